package parser

import (
	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/errors"
	"github.com/thunklang/thunk/internal/lexer"
)

// constrainedType parses `[context =>] type`. The context is itself parsed
// with the type grammar (a single `C a` application or a tuple of them)
// and converted to constraints when the `=>` shows it was a context after
// all.
func (p *Parser) constrainedType(mapping map[string]ast.TypeVariable) ([]ast.Constraint, *ast.Type, error) {
	first, err := p.parseType(mapping)
	if err != nil {
		return nil, nil, err
	}
	if p.peek().Type == lexer.DARROW {
		p.next()
		constraints, err := p.typeConstraints(first)
		if err != nil {
			return nil, nil, err
		}
		typ, err := p.parseType(mapping)
		if err != nil {
			return nil, nil, err
		}
		return constraints, typ, nil
	}
	return nil, first, nil
}

// typeConstraints converts a parsed context type to its constraint list:
// `C a` to one constraint, `(C a, D b)` to one per tuple element.
func (p *Parser) typeConstraints(context *ast.Type) ([]ast.Constraint, error) {
	parts := []*ast.Type{context}
	if !context.IsVar && len(context.Op) > 0 && context.Op[0] == '(' {
		parts = context.Args
	}
	constraints := make([]ast.Constraint, 0, len(parts))
	for _, part := range parts {
		if part.IsVar || len(part.Args) != 1 || !part.Args[0].IsVar {
			return nil, errors.New(errors.PAR001, errors.Location{},
				"context must apply a class name to a type variable, found %s", part)
		}
		constraints = append(constraints, ast.Constraint{Class: string(part.Op), Var: part.Args[0].Var})
	}
	return constraints, nil
}

// parseType parses a full type: an atom (possibly applied) optionally
// followed by `-> type`, recursing right so arrows associate rightward.
func (p *Parser) parseType(mapping map[string]ast.TypeVariable) (*ast.Type, error) {
	tok := p.next()
	switch tok.Type {
	case lexer.LBRACKET:
		if p.peek().Type == lexer.RBRACKET {
			p.next()
			return p.parseReturnType(ast.NewOp(ast.OpList), mapping)
		}
		elem, err := p.parseType(mapping)
		if err != nil {
			return nil, err
		}
		if _, err := p.require(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return p.parseReturnType(ast.ListType(elem), mapping)

	case lexer.LPAREN:
		first, err := p.parseType(mapping)
		if err != nil {
			return nil, err
		}
		sep := p.next()
		switch sep.Type {
		case lexer.RPAREN:
			return p.parseReturnType(first, mapping)
		case lexer.COMMA:
			parts := []*ast.Type{first}
			for {
				part, err := p.parseType(mapping)
				if err != nil {
					return nil, err
				}
				parts = append(parts, part)
				next := p.next()
				if next.Type == lexer.COMMA {
					continue
				}
				if next.Type != lexer.RPAREN {
					return nil, p.unexpected(next, "')' or ','")
				}
				break
			}
			tuple := ast.NewOp(ast.TypeOperator(ast.TupleOperator(len(parts))), parts...)
			return p.parseReturnType(tuple, mapping)
		default:
			return nil, p.unexpected(sep, "')' or ','")
		}

	case lexer.CONID:
		args, err := p.subTypes(mapping)
		if err != nil {
			return nil, err
		}
		return p.parseReturnType(ast.NewOp(ast.TypeOperator(tok.Text), args...), mapping)

	case lexer.IDENT:
		args, err := p.subTypes(mapping)
		if err != nil {
			return nil, err
		}
		v := p.typeVariableFor(tok.Text, mapping)
		typ := ast.NewVar(v)
		typ.Args = args // higher-kinded variable application, e.g. `f a`
		return p.parseReturnType(typ, mapping)

	default:
		return nil, p.unexpected(tok, "type")
	}
}

// subTypes parses the argument atoms of an applied type constructor.
func (p *Parser) subTypes(mapping map[string]ast.TypeVariable) ([]*ast.Type, error) {
	var args []*ast.Type
	for {
		tok := p.next()
		switch tok.Type {
		case lexer.CONID:
			args = append(args, ast.NewOp(ast.TypeOperator(tok.Text)))
		case lexer.IDENT:
			args = append(args, ast.NewVar(p.typeVariableFor(tok.Text, mapping)))
		case lexer.LBRACKET, lexer.LPAREN:
			p.backtrack()
			arg, err := p.parseTypeAtom(mapping)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		default:
			p.backtrack()
			return args, nil
		}
	}
}

// parseTypeAtom parses one bracketed or parenthesized type without
// consuming a trailing arrow (which belongs to the enclosing type).
func (p *Parser) parseTypeAtom(mapping map[string]ast.TypeVariable) (*ast.Type, error) {
	tok := p.next()
	switch tok.Type {
	case lexer.LBRACKET:
		if p.peek().Type == lexer.RBRACKET {
			p.next()
			return ast.NewOp(ast.OpList), nil
		}
		elem, err := p.parseType(mapping)
		if err != nil {
			return nil, err
		}
		if _, err := p.require(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return ast.ListType(elem), nil
	case lexer.LPAREN:
		inner, err := p.parseType(mapping)
		if err != nil {
			return nil, err
		}
		if _, err := p.require(lexer.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, p.unexpected(tok, "type")
	}
}

// parseReturnType extends typ with `-> rest` when an arrow follows.
func (p *Parser) parseReturnType(typ *ast.Type, mapping map[string]ast.TypeVariable) (*ast.Type, error) {
	if p.peek().Type != lexer.ARROW {
		return typ, nil
	}
	p.next()
	rest, err := p.parseType(mapping)
	if err != nil {
		return nil, err
	}
	return ast.FunctionType(typ, rest), nil
}

// typeVariableFor returns the variable id already mapped to name, or
// allocates and records a fresh one (same name, same id within one
// declaration's mapping).
func (p *Parser) typeVariableFor(name string, mapping map[string]ast.TypeVariable) ast.TypeVariable {
	if v, ok := mapping[name]; ok {
		return v
	}
	v := p.newDeclVar()
	mapping[name] = v
	return v
}
