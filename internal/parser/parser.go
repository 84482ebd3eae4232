// Package parser turns a token stream into the ast.Module the rest of the
// pipeline consumes, including list/tuple/string desugaring, unary-minus to
// negate rewriting, and right-section lambda desugaring.
// Top-level layout uses the explicit { ; } forms (see internal/lexer); the
// outer module braces are optional so a bare sequence of bindings separated
// by semicolons is a valid program.
package parser

import (
	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/errors"
	"github.com/thunklang/thunk/internal/lexer"
)

// classVarCounter hands out one distinct type-variable id per parsed class
// declaration. The ids sit far above anything inference allocates so the
// per-class constraint sets the type environment keys by variable can never
// collide across classes or modules parsed in one process.
var classVarCounter = ast.TypeVariable(1000000)

// Parser is a backtracking recursive-descent parser over a fully buffered
// token stream.
type Parser struct {
	tokens []lexer.Token
	pos    int

	declVarCounter ast.TypeVariable // ids for source type variables, always negative
}

// New buffers every token l produces (through EOF) and returns a Parser
// over them.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{declVarCounter: -1000}
	for {
		tok := l.NextToken()
		p.tokens = append(p.tokens, tok)
		if tok.Type == lexer.EOF {
			return p
		}
	}
}

func (p *Parser) next() lexer.Token {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *Parser) backtrack() {
	if p.pos > 0 {
		p.pos--
	}
}

func (p *Parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) loc(tok lexer.Token) errors.Location {
	return errors.Location{Line: tok.Line, Column: tok.Column}
}

func (p *Parser) require(tt lexer.TokenType) (lexer.Token, error) {
	tok := p.next()
	if tok.Type != tt {
		return tok, p.unexpected(tok, tt.String())
	}
	return tok, nil
}

func (p *Parser) unexpected(tok lexer.Token, expected string) error {
	if tok.Type == lexer.ILLEGAL {
		return errors.New(errors.PAR002, p.loc(tok), "unterminated or illegal token %q", tok.Text)
	}
	return errors.New(errors.PAR001, p.loc(tok), "expected %s, found %s %q", expected, tok.Type, tok.Text)
}

// newDeclVar allocates a fresh (negative) variable id for a source-level
// type variable.
func (p *Parser) newDeclVar() ast.TypeVariable {
	p.declVarCounter--
	return p.declVarCounter
}

// ParseModule lexes and parses one source file.
func ParseModule(src string) (*ast.Module, error) {
	return New(lexer.New(src)).Module()
}

// Module parses a whole compilation unit: an optional `module Name where`
// header, then top-level bindings, type declarations, data definitions,
// classes and instances separated by semicolons, with optional surrounding
// braces.
func (p *Parser) Module() (*ast.Module, error) {
	mod := &ast.Module{Name: "Main"}
	braced := false

	switch tok := p.next(); tok.Type {
	case lexer.MODULE:
		name, err := p.require(lexer.CONID)
		if err != nil {
			return nil, err
		}
		mod.Name = name.Text
		if _, err := p.require(lexer.WHERE); err != nil {
			return nil, err
		}
		if _, err := p.require(lexer.LBRACE); err != nil {
			return nil, err
		}
		braced = true
	case lexer.LBRACE:
		braced = true
	default:
		p.backtrack()
	}

	for {
		tok := p.next()
		switch tok.Type {
		case lexer.IDENT, lexer.LPAREN:
			p.backtrack()
			isDecl, err := p.looksLikeTypeDeclaration()
			if err != nil {
				return nil, err
			}
			if isDecl {
				decl, err := p.typeDeclaration(make(map[string]ast.TypeVariable))
				if err != nil {
					return nil, err
				}
				mod.TypeDeclarations = append(mod.TypeDeclarations, decl)
			} else {
				bind, err := p.binding()
				if err != nil {
					return nil, err
				}
				mod.Bindings = append(mod.Bindings, bind)
			}
		case lexer.CLASS:
			p.backtrack()
			class, err := p.class()
			if err != nil {
				return nil, err
			}
			mod.Classes = append(mod.Classes, class)
		case lexer.INSTANCE:
			p.backtrack()
			inst, err := p.instance()
			if err != nil {
				return nil, err
			}
			mod.Instances = append(mod.Instances, inst)
		case lexer.DATA:
			p.backtrack()
			data, err := p.dataDefinition()
			if err != nil {
				return nil, err
			}
			mod.DataDefinitions = append(mod.DataDefinitions, data)
		default:
			p.backtrack()
			goto done
		}

		if sep := p.next(); sep.Type != lexer.SEMICOLON {
			p.backtrack()
			break
		}
	}
done:
	if braced {
		if _, err := p.require(lexer.RBRACE); err != nil {
			return nil, err
		}
	}
	if _, err := p.require(lexer.EOF); err != nil {
		return nil, err
	}

	attachTypeDeclarations(mod)
	return mod, nil
}

// attachTypeDeclarations copies each free-standing `name :: T` onto the
// binding of the same name (the type checker re-validates and reports the
// orphans).
func attachTypeDeclarations(mod *ast.Module) {
	for _, decl := range mod.TypeDeclarations {
		for _, bind := range mod.Bindings {
			if decl.Name == bind.Name {
				bind.TypeDecl = decl.Clone()
			}
		}
	}
}

// looksLikeTypeDeclaration scans ahead from the current position until the
// first `::` or `=`, without consuming anything: `name :: T` versus
// `name args = expr`.
func (p *Parser) looksLikeTypeDeclaration() (bool, error) {
	saved := p.pos
	defer func() { p.pos = saved }()
	for {
		switch tok := p.next(); tok.Type {
		case lexer.DCOLON:
			return true, nil
		case lexer.EQUALS:
			return false, nil
		case lexer.EOF:
			return false, p.unexpected(tok, "'::' or '='")
		}
	}
}

// binding parses `name args = expr` or `(op) args = expr`, wrapping the
// arguments as nested lambdas and recording their count as the binding's
// arity.
func (p *Parser) binding() (*ast.Binding, error) {
	name, err := p.bindingName()
	if err != nil {
		return nil, err
	}

	var args []string
	for {
		tok := p.next()
		if tok.Type == lexer.IDENT {
			args = append(args, tok.Text)
			continue
		}
		if tok.Type != lexer.EQUALS {
			return nil, p.unexpected(tok, "'=' or parameter name")
		}
		break
	}

	body, err := p.expression()
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, p.unexpected(p.peek(), "expression")
	}
	if len(args) > 0 {
		body = makeLambda(args, body)
	}
	return &ast.Binding{Name: name, Arity: len(args), Expression: body}, nil
}

// bindingName parses either a plain lowercase identifier or an operator in
// parentheses, the two forms a binding or type declaration may be named by.
func (p *Parser) bindingName() (string, error) {
	tok := p.next()
	switch tok.Type {
	case lexer.IDENT:
		return tok.Text, nil
	case lexer.LPAREN:
		op := p.next()
		if op.Type != lexer.IDENT && op.Type != lexer.OPERATOR {
			return "", p.unexpected(op, "name or operator")
		}
		if _, err := p.require(lexer.RPAREN); err != nil {
			return "", err
		}
		return op.Text, nil
	default:
		return "", p.unexpected(tok, "binding name")
	}
}

// class parses `class C a where { decls }`. Every class gets its own
// distinct type-variable id (see classVarCounter); the declarations carry
// that variable so instances and uses can substitute it.
func (p *Parser) class() (*ast.Class, error) {
	if _, err := p.require(lexer.CLASS); err != nil {
		return nil, err
	}
	name, err := p.require(lexer.CONID)
	if err != nil {
		return nil, err
	}
	varName, err := p.require(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.require(lexer.WHERE); err != nil {
		return nil, err
	}
	if _, err := p.require(lexer.LBRACE); err != nil {
		return nil, err
	}

	classVarCounter++
	classVar := classVarCounter
	mapping := map[string]ast.TypeVariable{varName.Text: classVar}

	var decls []*ast.TypeDeclaration
	for {
		decl, err := p.typeDeclaration(mapping)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
		if sep := p.next(); sep.Type != lexer.SEMICOLON {
			p.backtrack()
			break
		}
	}
	if _, err := p.require(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.Class{Name: name.Text, Variable: classVar, Declarations: decls}, nil
}

// instance parses `instance [ctx =>] C T where { bindings }`. The binding
// names are mangled here to "#<Thead><method>", so an instance body's
// recursive references to the class method still resolve through the
// globally exported method signature rather than shadowing it.
func (p *Parser) instance() (*ast.Instance, error) {
	if _, err := p.require(lexer.INSTANCE); err != nil {
		return nil, err
	}

	mapping := make(map[string]ast.TypeVariable)
	constraints, classType, err := p.constrainedType(mapping)
	if err != nil {
		return nil, err
	}
	if classType.IsVar || len(classType.Args) != 1 {
		return nil, errors.New(errors.PAR001, errors.Location{},
			"instance head must apply a class name to one type, found %s", classType)
	}
	instType := classType.Args[0]
	if instType.IsVar {
		return nil, errors.New(errors.PAR001, errors.Location{},
			"instance head must name a concrete type operator, found type variable %s", instType)
	}

	if _, err := p.require(lexer.WHERE); err != nil {
		return nil, err
	}
	if _, err := p.require(lexer.LBRACE); err != nil {
		return nil, err
	}

	var bindings []*ast.Binding
	for {
		bind, err := p.binding()
		if err != nil {
			return nil, err
		}
		bind.Name = ast.MangleInstanceMethod(ast.HeadName(instType), bind.Name)
		bindings = append(bindings, bind)
		if sep := p.next(); sep.Type != lexer.SEMICOLON {
			p.backtrack()
			break
		}
	}
	if _, err := p.require(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.Instance{
		ClassName:   string(classType.Op),
		Type:        instType,
		Constraints: constraints,
		Bindings:    bindings,
	}, nil
}

// dataDefinition parses `data T a b = C1 t... | C2 t... | ...`, assigning
// constructor tags sequentially from 0 in declaration order.
func (p *Parser) dataDefinition() (*ast.DataDefinition, error) {
	if _, err := p.require(lexer.DATA); err != nil {
		return nil, err
	}
	name, err := p.require(lexer.CONID)
	if err != nil {
		return nil, err
	}

	def := &ast.DataDefinition{Name: name.Text}
	mapping := make(map[string]ast.TypeVariable)
	var typeArgs []*ast.Type
	for {
		tok := p.next()
		if tok.Type != lexer.IDENT {
			p.backtrack()
			break
		}
		v := p.newDeclVar()
		mapping[tok.Text] = v
		def.ParamNames = append(def.ParamNames, tok.Text)
		def.ParamIDs = append(def.ParamIDs, v)
		typeArgs = append(typeArgs, ast.NewVar(v))
	}
	def.Type = ast.NewOp(ast.TypeOperator(name.Text), typeArgs...)

	if _, err := p.require(lexer.EQUALS); err != nil {
		return nil, err
	}

	tag := 0
	for {
		ctor, err := p.constructor(def, mapping)
		if err != nil {
			return nil, err
		}
		ctor.Tag = tag
		tag++
		def.Constructors = append(def.Constructors, ctor)

		sep := p.next()
		if sep.Type != lexer.PIPE {
			p.backtrack()
			break
		}
	}
	return def, nil
}

// constructor parses one data constructor alternative: its name followed by
// zero or more argument types (bare type names, bracketed lists, or
// parenthesized types), built up as a curried function type ending in the
// data type itself.
func (p *Parser) constructor(def *ast.DataDefinition, mapping map[string]ast.TypeVariable) (*ast.Constructor, error) {
	name, err := p.require(lexer.CONID)
	if err != nil {
		return nil, err
	}

	var argTypes []*ast.Type
	for {
		tok := p.next()
		switch tok.Type {
		case lexer.IDENT:
			v, ok := mapping[tok.Text]
			if !ok {
				return nil, errors.New(errors.PAR001, p.loc(tok), "undefined type parameter %q", tok.Text)
			}
			argTypes = append(argTypes, ast.NewVar(v))
		case lexer.CONID:
			argTypes = append(argTypes, ast.NewOp(ast.TypeOperator(tok.Text)))
		case lexer.LPAREN:
			arg, err := p.parseType(mapping)
			if err != nil {
				return nil, err
			}
			if _, err := p.require(lexer.RPAREN); err != nil {
				return nil, err
			}
			argTypes = append(argTypes, arg)
		case lexer.LBRACKET:
			p.backtrack()
			arg, err := p.parseTypeAtom(mapping)
			if err != nil {
				return nil, err
			}
			argTypes = append(argTypes, arg)
		default:
			p.backtrack()
			typ := def.Type.Clone()
			for i := len(argTypes) - 1; i >= 0; i-- {
				typ = ast.FunctionType(argTypes[i], typ)
			}
			return &ast.Constructor{Name: name.Text, Type: typ, Arity: len(argTypes)}, nil
		}
	}
}

// typeDeclaration parses `name :: [ctx =>] type` (also the form used for
// class method signatures, which share the enclosing class's variable
// mapping).
func (p *Parser) typeDeclaration(mapping map[string]ast.TypeVariable) (*ast.TypeDeclaration, error) {
	name, err := p.bindingName()
	if err != nil {
		return nil, err
	}
	if _, err := p.require(lexer.DCOLON); err != nil {
		return nil, err
	}
	context, typ, err := p.constrainedType(mapping)
	if err != nil {
		return nil, err
	}
	return &ast.TypeDeclaration{Name: name, Type: typ, Context: context}, nil
}

// makeLambda nests body under params right to left, so params apply in
// source order.
func makeLambda(params []string, body ast.Expr) ast.Expr {
	for i := len(params) - 1; i >= 0; i-- {
		body = &ast.Lambda{Node: ast.Node{Location: body.Loc()}, Param: params[i], Body: body}
	}
	return body
}
