package lexer

import "fmt"

// TokenType tags one lexical token kind.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL   // unterminated literal or a character no token can start with
	IDENT     // lowercase-leading identifier: x, foldr, mult2
	CONID     // uppercase-leading identifier: Int, Maybe, True
	INT       // 123
	FLOAT     // 123.0, 3.
	CHAR      // 'a'
	STRING    // "abc"
	OPERATOR  // +, -, *, /, %, ==, /=, <, >, <=, >=, or any user symbolic op

	// Keywords
	MODULE
	WHERE
	CLASS
	INSTANCE
	DATA
	LET
	IN
	CASE
	OF

	// Punctuation
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }
	COMMA     // ,
	SEMICOLON // ;
	PIPE      // |
	BACKSLASH // \
	EQUALS    // =
	DCOLON    // ::
	DARROW    // =>
	ARROW     // ->
)

var keywords = map[string]TokenType{
	"module":   MODULE,
	"where":    WHERE,
	"class":    CLASS,
	"instance": INSTANCE,
	"data":     DATA,
	"let":      LET,
	"in":       IN,
	"case":     CASE,
	"of":       OF,
}

var tokenTypeNames = map[TokenType]string{
	EOF: "end of input", ILLEGAL: "illegal token", IDENT: "identifier", CONID: "constructor name",
	INT: "integer literal", FLOAT: "float literal", CHAR: "char literal",
	STRING: "string literal", OPERATOR: "operator",
	MODULE: "'module'", WHERE: "'where'", CLASS: "'class'", INSTANCE: "'instance'",
	DATA: "'data'", LET: "'let'", IN: "'in'", CASE: "'case'", OF: "'of'",
	LPAREN: "'('", RPAREN: "')'", LBRACKET: "'['", RBRACKET: "']'",
	LBRACE: "'{'", RBRACE: "'}'", COMMA: "','", SEMICOLON: "';'", PIPE: "'|'",
	BACKSLASH: "'\\'", EQUALS: "'='", DCOLON: "'::'", DARROW: "'=>'", ARROW: "'->'",
}

func (tt TokenType) String() string {
	if name, ok := tokenTypeNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(tt))
}

// Token is one lexeme plus its source position.
type Token struct {
	Type   TokenType
	Text   string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%d:%d %s", t.Line, t.Column, t.Text)
}
