package parser

import (
	"strconv"

	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/errors"
	"github.com/thunklang/thunk/internal/lexer"
)

// precedence gives the fixed operator precedence table: additive and
// comparison operators at level 1, multiplicative at level 3, everything
// else (including `:`) at level 9.
func precedence(op string) int {
	switch op {
	case "+", "-", "==", "/=", "<", ">", "<=", ">=":
		return 1
	case "*", "/", "%":
		return 3
	default:
		return 9
	}
}

// Expression parses one full expression: an application extended by
// operator chains.
func (p *Parser) Expression() (ast.Expr, error) {
	return p.expression()
}

// ParseExpression is the REPL entry point: lex src, parse exactly one
// expression, and require that nothing follows it.
func ParseExpression(src string) (ast.Expr, error) {
	p := New(lexer.New(src))
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if expr == nil {
		return nil, p.unexpected(p.peek(), "expression")
	}
	if _, err := p.require(lexer.EOF); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) expression() (ast.Expr, error) {
	lhs, err := p.application()
	if err != nil {
		return nil, err
	}
	return p.operatorExpression(lhs, 0)
}

// expressionRequired fails where expression would return nil.
func (p *Parser) expressionRequired() (ast.Expr, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if expr == nil {
		return nil, p.unexpected(p.peek(), "expression")
	}
	return expr, nil
}

// operatorExpression extends lhs with every operator at or above
// minPrecedence, left-associatively: a tighter operator on the right binds
// into the right operand first (the recursive call with precedence+1), an
// equal one folds onto the accumulated left side. A missing left operand
// makes a section: unary `-` becomes an application of negate, any other
// operator becomes the right-section lambda \# -> # op rhs, and the
// left-section form (x op) is not a supported expression.
func (p *Parser) operatorExpression(lhs ast.Expr, minPrecedence int) (ast.Expr, error) {
	for {
		tok := p.next()
		if tok.Type != lexer.OPERATOR || precedence(tok.Text) < minPrecedence {
			p.backtrack()
			return lhs, nil
		}
		op := tok

		rhs, err := p.application()
		if err != nil {
			return nil, err
		}
		for {
			ahead := p.peek()
			if ahead.Type != lexer.OPERATOR || precedence(ahead.Text) <= precedence(op.Text) {
				break
			}
			rhs, err = p.operatorExpression(rhs, precedence(op.Text)+1)
			if err != nil {
				return nil, err
			}
		}

		loc := p.loc(op)
		opIdent := &ast.Identifier{Node: ast.Node{Location: loc}, Name: op.Text}
		switch {
		case lhs != nil && rhs != nil:
			lhs = apply(apply(opIdent, lhs), rhs)
		case lhs == nil && rhs != nil:
			if op.Text == "-" {
				opIdent.Name = "negate"
				lhs = apply(opIdent, rhs)
			} else {
				hole := &ast.Identifier{Node: ast.Node{Location: loc}, Name: "#"}
				section := apply(apply(opIdent, hole), rhs)
				lhs = &ast.Lambda{Node: ast.Node{Location: loc}, Param: "#", Body: section}
			}
		case lhs != nil && rhs == nil:
			return nil, errors.New(errors.PAR003, loc,
				"left operator section (x %s) is not supported", op.Text)
		default:
			return nil, nil
		}
	}
}

// application parses a chain of juxtaposed sub-expressions, folding them
// into nested binary Apply nodes. Returns nil (no error) when no
// sub-expression begins at the current token, so operator parsing can take
// over.
func (p *Parser) application() (ast.Expr, error) {
	lhs, err := p.subExpression()
	if err != nil || lhs == nil {
		return lhs, err
	}
	for {
		arg, err := p.subExpression()
		if err != nil {
			return nil, err
		}
		if arg == nil {
			return lhs, nil
		}
		lhs = apply(lhs, arg)
	}
}

// subExpression parses one atomic expression: a literal, identifier,
// parenthesized expression or tuple, list, lambda, let, or case. Returns
// nil without consuming anything when the current token cannot begin one.
func (p *Parser) subExpression() (ast.Expr, error) {
	tok := p.next()
	loc := p.loc(tok)
	switch tok.Type {
	case lexer.LPAREN:
		return p.parensOrTuple(loc)
	case lexer.LBRACKET:
		return p.list(loc)
	case lexer.BACKSLASH:
		return p.lambda(loc)
	case lexer.LET:
		return p.let(loc)
	case lexer.CASE:
		return p.caseOf(loc)
	case lexer.IDENT, lexer.CONID:
		return &ast.Identifier{Node: ast.Node{Location: loc}, Name: tok.Text}, nil
	case lexer.INT:
		v, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, errors.New(errors.PAR001, loc, "invalid integer literal %q", tok.Text)
		}
		return &ast.NumberLit{Node: ast.Node{Location: loc}, Value: v}, nil
	case lexer.FLOAT:
		text := tok.Text
		if text[len(text)-1] == '.' {
			text += "0"
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, errors.New(errors.PAR001, loc, "invalid float literal %q", tok.Text)
		}
		return &ast.RationalLit{Node: ast.Node{Location: loc}, Value: v}, nil
	case lexer.STRING:
		return &ast.StringLit{Node: ast.Node{Location: loc}, Value: tok.Text}, nil
	case lexer.CHAR:
		r := []rune(tok.Text)
		if len(r) != 1 {
			return nil, errors.New(errors.PAR001, loc, "invalid char literal %q", tok.Text)
		}
		return &ast.CharLit{Node: ast.Node{Location: loc}, Value: r[0]}, nil
	default:
		p.backtrack()
		return nil, nil
	}
}

// parensOrTuple parses what follows a '(': one expression (possibly an
// operator section, handled inside expression itself), or two or more
// separated by commas forming a tuple constructor application.
func (p *Parser) parensOrTuple(loc errors.Location) (ast.Expr, error) {
	var parts []ast.Expr
	for {
		expr, err := p.expressionRequired()
		if err != nil {
			return nil, err
		}
		parts = append(parts, expr)
		sep := p.next()
		if sep.Type == lexer.COMMA {
			continue
		}
		if sep.Type != lexer.RPAREN {
			return nil, p.unexpected(sep, "')' or ','")
		}
		break
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	tuple := ast.Expr(&ast.Identifier{Node: ast.Node{Location: loc}, Name: ast.TupleOperator(len(parts))})
	for _, part := range parts {
		tuple = apply(tuple, part)
	}
	return tuple, nil
}

// list parses the elements after a '[' and desugars them into a right-nested
// (:)/"[]" chain.
func (p *Parser) list(loc errors.Location) (ast.Expr, error) {
	var elems []ast.Expr
	for {
		if p.peek().Type == lexer.RBRACKET {
			p.next()
			break
		}
		expr, err := p.expressionRequired()
		if err != nil {
			return nil, err
		}
		elems = append(elems, expr)
		sep := p.next()
		if sep.Type == lexer.COMMA {
			continue
		}
		if sep.Type != lexer.RBRACKET {
			return nil, p.unexpected(sep, "']' or ','")
		}
		break
	}

	result := ast.Expr(&ast.Identifier{Node: ast.Node{Location: loc}, Name: "[]"})
	for i := len(elems) - 1; i >= 0; i-- {
		cons := &ast.Identifier{Node: ast.Node{Location: loc}, Name: ":"}
		result = apply(apply(cons, elems[i]), result)
	}
	return result, nil
}

// lambda parses `\x y -> body` as nested single-parameter lambdas.
func (p *Parser) lambda(loc errors.Location) (ast.Expr, error) {
	var params []string
	for {
		tok := p.next()
		if tok.Type == lexer.IDENT {
			params = append(params, tok.Text)
			continue
		}
		if tok.Type != lexer.ARROW {
			return nil, p.unexpected(tok, "'->' or parameter name")
		}
		break
	}
	if len(params) == 0 {
		return nil, errors.New(errors.PAR001, loc, "lambda has no parameters")
	}
	body, err := p.expressionRequired()
	if err != nil {
		return nil, err
	}
	return makeLambda(params, body), nil
}

// let parses `let { binds } in body`; the bindings are mutually recursive
// by default.
func (p *Parser) let(loc errors.Location) (ast.Expr, error) {
	if _, err := p.require(lexer.LBRACE); err != nil {
		return nil, err
	}
	var binds []*ast.Binding
	for {
		bind, err := p.binding()
		if err != nil {
			return nil, err
		}
		binds = append(binds, bind)
		if sep := p.next(); sep.Type != lexer.SEMICOLON {
			p.backtrack()
			break
		}
	}
	if _, err := p.require(lexer.RBRACE); err != nil {
		return nil, err
	}
	if _, err := p.require(lexer.IN); err != nil {
		return nil, err
	}
	body, err := p.expressionRequired()
	if err != nil {
		return nil, err
	}
	return &ast.Let{Node: ast.Node{Location: loc}, Bindings: binds, Body: body}, nil
}

// caseOf parses `case scrutinee of { pat -> expr ; ... }`.
func (p *Parser) caseOf(loc errors.Location) (ast.Expr, error) {
	scrutinee, err := p.expressionRequired()
	if err != nil {
		return nil, err
	}
	if _, err := p.require(lexer.OF); err != nil {
		return nil, err
	}
	if _, err := p.require(lexer.LBRACE); err != nil {
		return nil, err
	}
	var alts []ast.Alternative
	for {
		alt, err := p.alternative()
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
		if sep := p.next(); sep.Type != lexer.SEMICOLON {
			p.backtrack()
			break
		}
	}
	if _, err := p.require(lexer.RBRACE); err != nil {
		return nil, err
	}
	return &ast.Case{Node: ast.Node{Location: loc}, Scrutinee: scrutinee, Alternatives: alts}, nil
}

func (p *Parser) alternative() (ast.Alternative, error) {
	pat, err := p.pattern()
	if err != nil {
		return ast.Alternative{}, err
	}
	if _, err := p.require(lexer.ARROW); err != nil {
		return ast.Alternative{}, err
	}
	expr, err := p.expressionRequired()
	if err != nil {
		return ast.Alternative{}, err
	}
	return ast.Alternative{Pattern: pat, Expression: expr}, nil
}

// pattern parses a full (possibly applied) pattern: an identifier, a
// number, `[]`, a constructor or `:` with argument patterns, or a
// parenthesized/tuple pattern.
func (p *Parser) pattern() (ast.Pattern, error) {
	tok := p.next()
	loc := p.loc(tok)
	node := ast.PatternNode{Location: loc}
	switch tok.Type {
	case lexer.LBRACKET:
		if _, err := p.require(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return ast.ConstructorPattern{PatternNode: node, Name: "[]"}, nil
	case lexer.IDENT:
		return ast.IdentifierPattern{PatternNode: node, Name: tok.Text}, nil
	case lexer.CONID:
		args, err := p.patternParameters()
		if err != nil {
			return nil, err
		}
		return ast.ConstructorPattern{PatternNode: node, Name: tok.Text, Patterns: args}, nil
	case lexer.OPERATOR:
		if tok.Text != ":" {
			return nil, p.unexpected(tok, "pattern")
		}
		args, err := p.patternParameters()
		if err != nil {
			return nil, err
		}
		return ast.ConstructorPattern{PatternNode: node, Name: ":", Patterns: args}, nil
	case lexer.INT:
		v, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, errors.New(errors.PAR001, loc, "invalid integer literal %q", tok.Text)
		}
		return ast.NumberPattern{PatternNode: node, Value: v}, nil
	case lexer.LPAREN:
		return p.parenPattern(node)
	default:
		return nil, p.unexpected(tok, "pattern")
	}
}

// parenPattern parses the inside of a parenthesized pattern: either a
// single nested pattern or a comma-separated tuple pattern.
func (p *Parser) parenPattern(node ast.PatternNode) (ast.Pattern, error) {
	var parts []ast.Pattern
	for {
		pat, err := p.pattern()
		if err != nil {
			return nil, err
		}
		parts = append(parts, pat)
		sep := p.next()
		if sep.Type == lexer.COMMA {
			continue
		}
		if sep.Type != lexer.RPAREN {
			return nil, p.unexpected(sep, "')' or ','")
		}
		break
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return ast.ConstructorPattern{
		PatternNode: node,
		Name:        ast.TupleOperator(len(parts)),
		Patterns:    parts,
	}, nil
}

// patternParameters parses the argument patterns of an applied constructor
// pattern. A bare constructor name in argument position is a nullary
// constructor; an applied one needs parentheses.
func (p *Parser) patternParameters() ([]ast.Pattern, error) {
	var params []ast.Pattern
	for {
		tok := p.next()
		loc := p.loc(tok)
		node := ast.PatternNode{Location: loc}
		switch tok.Type {
		case lexer.IDENT:
			params = append(params, ast.IdentifierPattern{PatternNode: node, Name: tok.Text})
		case lexer.CONID:
			params = append(params, ast.ConstructorPattern{PatternNode: node, Name: tok.Text})
		case lexer.INT:
			v, err := strconv.ParseInt(tok.Text, 10, 64)
			if err != nil {
				return nil, errors.New(errors.PAR001, loc, "invalid integer literal %q", tok.Text)
			}
			params = append(params, ast.NumberPattern{PatternNode: node, Value: v})
		case lexer.LBRACKET:
			if _, err := p.require(lexer.RBRACKET); err != nil {
				return nil, err
			}
			params = append(params, ast.ConstructorPattern{PatternNode: node, Name: "[]"})
		case lexer.LPAREN:
			pat, err := p.parenPattern(node)
			if err != nil {
				return nil, err
			}
			params = append(params, pat)
		default:
			p.backtrack()
			return params, nil
		}
	}
}

// apply builds one Apply node, carrying the function's location.
func apply(fn, arg ast.Expr) ast.Expr {
	return &ast.Apply{Node: ast.Node{Location: fn.Loc()}, Func: fn, Arg: arg}
}
