package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/lexer"
)

func parseExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	expr, err := ParseExpression(src)
	require.NoError(t, err)
	return expr
}

func ident(name string) ast.Expr { return &ast.Identifier{Name: name} }
func num(v int64) ast.Expr       { return &ast.NumberLit{Value: v} }
func app(f, x ast.Expr) ast.Expr { return &ast.Apply{Func: f, Arg: x} }

// exprEqual compares expression trees ignoring locations and types (the
// parser fills locations; structure is what these tests pin down).
func exprEqual(t *testing.T, want, got ast.Expr) {
	t.Helper()
	diff := cmp.Diff(want, got,
		cmpopts.IgnoreFields(ast.Node{}, "Location", "Typ"),
		cmpopts.IgnoreFields(ast.PatternNode{}, "Location"),
	)
	if diff != "" {
		t.Errorf("expression mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSimpleOperator(t *testing.T) {
	expr := parseExpr(t, "2 + 3")
	exprEqual(t, app(app(ident("+"), num(2)), num(3)), expr)
}

func TestParseOperatorsLeftAssociative(t *testing.T) {
	expr := parseExpr(t, "7 - 2 - 1")
	exprEqual(t, app(app(ident("-"), app(app(ident("-"), num(7)), num(2))), num(1)), expr)
}

func TestParsePrecedence(t *testing.T) {
	expr := parseExpr(t, "1 + 2 * 3")
	exprEqual(t, app(app(ident("+"), num(1)), app(app(ident("*"), num(2)), num(3))), expr)
}

func TestParseBinding(t *testing.T) {
	p := New(lexer.New("test x = x + 3"))
	bind, err := p.binding()
	require.NoError(t, err)
	assert.Equal(t, "test", bind.Name)
	assert.Equal(t, 1, bind.Arity)
	lam, ok := bind.Expression.(*ast.Lambda)
	require.True(t, ok)
	assert.Equal(t, "x", lam.Param)
	exprEqual(t, app(app(ident("+"), ident("x")), num(3)), lam.Body)
}

func TestParseRational(t *testing.T) {
	p := New(lexer.New("test = 3.14"))
	bind, err := p.binding()
	require.NoError(t, err)
	rat, ok := bind.Expression.(*ast.RationalLit)
	require.True(t, ok)
	assert.Equal(t, 3.14, rat.Value)
}

func TestParseLet(t *testing.T) {
	expr := parseExpr(t, "let { test = add 3 2 } in test - 2")
	let, ok := expr.(*ast.Let)
	require.True(t, ok)
	require.Len(t, let.Bindings, 1)
	assert.Equal(t, "test", let.Bindings[0].Name)
	exprEqual(t, app(app(ident("add"), num(3)), num(2)), let.Bindings[0].Expression)
	exprEqual(t, app(app(ident("-"), ident("test")), num(2)), let.Body)
}

func TestParseCase(t *testing.T) {
	expr := parseExpr(t, "case [] of { : x xs -> x; [] -> 2 }")
	c, ok := expr.(*ast.Case)
	require.True(t, ok)
	exprEqual(t, ident("[]"), c.Scrutinee)
	require.Len(t, c.Alternatives, 2)

	cons, ok := c.Alternatives[0].Pattern.(ast.ConstructorPattern)
	require.True(t, ok)
	assert.Equal(t, ":", cons.Name)
	require.Len(t, cons.Patterns, 2)
	assert.Equal(t, ast.IdentifierPattern{Name: "x"}, stripPatternLoc(cons.Patterns[0]))
	assert.Equal(t, ast.IdentifierPattern{Name: "xs"}, stripPatternLoc(cons.Patterns[1]))

	nilPat, ok := c.Alternatives[1].Pattern.(ast.ConstructorPattern)
	require.True(t, ok)
	assert.Equal(t, "[]", nilPat.Name)
	assert.Empty(t, nilPat.Patterns)
}

func stripPatternLoc(p ast.Pattern) ast.Pattern {
	switch pat := p.(type) {
	case ast.IdentifierPattern:
		pat.PatternNode = ast.PatternNode{}
		return pat
	case ast.NumberPattern:
		pat.PatternNode = ast.PatternNode{}
		return pat
	case ast.ConstructorPattern:
		pat.PatternNode = ast.PatternNode{}
		return pat
	}
	return p
}

func TestParseTypeDeclaration(t *testing.T) {
	p := New(lexer.New("(.) :: (b -> c) -> (a -> b) -> (a -> c)"))
	decl, err := p.typeDeclaration(make(map[string]ast.TypeVariable))
	require.NoError(t, err)
	assert.Equal(t, ".", decl.Name)

	typ := decl.Type
	require.True(t, typ.IsFunction())
	bc := typ.Domain()
	require.True(t, bc.IsFunction())
	rest := typ.Codomain()
	require.True(t, rest.IsFunction())
	ab := rest.Domain()
	ac := rest.Codomain()
	// Same-name variables share ids: b in (b -> c) is b in (a -> b).
	assert.Equal(t, bc.Domain().Var, ab.Codomain().Var)
	assert.Equal(t, bc.Codomain().Var, ac.Codomain().Var)
	assert.Equal(t, ab.Domain().Var, ac.Domain().Var)
}

func TestParseDataDefinition(t *testing.T) {
	p := New(lexer.New("data Bool = True | False"))
	data, err := p.dataDefinition()
	require.NoError(t, err)

	boolType := ast.NewOp("Bool")
	assert.True(t, data.Type.Equal(boolType))
	require.Len(t, data.Constructors, 2)
	assert.Equal(t, "True", data.Constructors[0].Name)
	assert.Equal(t, 0, data.Constructors[0].Tag)
	assert.Equal(t, 0, data.Constructors[0].Arity)
	assert.True(t, data.Constructors[0].Type.Equal(boolType))
	assert.Equal(t, "False", data.Constructors[1].Name)
	assert.Equal(t, 1, data.Constructors[1].Tag)
}

func TestParseParameterizedData(t *testing.T) {
	p := New(lexer.New("data List a = Cons a (List a) | Nil"))
	data, err := p.dataDefinition()
	require.NoError(t, err)

	require.Len(t, data.ParamIDs, 1)
	a := ast.NewVar(data.ParamIDs[0])
	listType := ast.NewOp("List", a)
	require.Len(t, data.Constructors, 2)

	cons := data.Constructors[0]
	assert.Equal(t, "Cons", cons.Name)
	assert.Equal(t, 2, cons.Arity)
	wantCons := ast.FunctionType(a.Clone(), ast.FunctionType(listType.Clone(), listType.Clone()))
	assert.True(t, cons.Type.Equal(wantCons), "Cons : %s, want %s", cons.Type, wantCons)

	nil_ := data.Constructors[1]
	assert.Equal(t, "Nil", nil_.Name)
	assert.Equal(t, 0, nil_.Arity)
	assert.True(t, nil_.Type.Equal(listType))
}

func TestParseTuple(t *testing.T) {
	expr := parseExpr(t, "(1, x)")
	exprEqual(t, app(app(ident("(,)"), num(1)), ident("x")), expr)
}

func TestParseListSugar(t *testing.T) {
	expr := parseExpr(t, "[1, 2]")
	want := app(app(ident(":"), num(1)), app(app(ident(":"), num(2)), ident("[]")))
	exprEqual(t, want, expr)
}

func TestParseStringIsLiteral(t *testing.T) {
	expr := parseExpr(t, `"hi"`)
	str, ok := expr.(*ast.StringLit)
	require.True(t, ok)
	assert.Equal(t, "hi", str.Value)
}

func TestParseUnaryMinusIsNegate(t *testing.T) {
	expr := parseExpr(t, "(- 3)")
	exprEqual(t, app(ident("negate"), num(3)), expr)
}

func TestParseRightSection(t *testing.T) {
	expr := parseExpr(t, "(+ 3)")
	lam, ok := expr.(*ast.Lambda)
	require.True(t, ok)
	assert.Equal(t, "#", lam.Param)
	exprEqual(t, app(app(ident("+"), ident("#")), num(3)), lam.Body)
}

func TestParseLeftSectionRejected(t *testing.T) {
	_, err := ParseExpression("(3 +)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAR003")
}

func TestParseClassAndInstance(t *testing.T) {
	src := `class Eq a where { (==) :: a -> a -> Bool };
instance Eq a => Eq [a] where { (==) xs ys = undefined }`
	mod, err := ParseModule(src)
	require.NoError(t, err)

	require.Len(t, mod.Classes, 1)
	assert.Equal(t, "Eq", mod.Classes[0].Name)
	require.Len(t, mod.Classes[0].Declarations, 1)
	assert.Equal(t, "==", mod.Classes[0].Declarations[0].Name)

	require.Len(t, mod.Instances, 1)
	inst := mod.Instances[0]
	assert.Equal(t, "Eq", inst.ClassName)
	require.Len(t, inst.Constraints, 1)
	assert.Equal(t, "Eq", inst.Constraints[0].Class)
	assert.False(t, inst.Type.IsVar)
	assert.Equal(t, ast.TypeOperator("[]"), inst.Type.Op)
	require.Len(t, inst.Type.Args, 1)
	assert.Equal(t, inst.Constraints[0].Var, inst.Type.Args[0].Var)

	require.Len(t, inst.Bindings, 1)
	assert.Equal(t, "#[]==", inst.Bindings[0].Name)
}

func TestParseModuleHeaderAndDeclAttachment(t *testing.T) {
	src := `module Sample where {
id :: a -> a;
id x = x
}`
	mod, err := ParseModule(src)
	require.NoError(t, err)
	assert.Equal(t, "Sample", mod.Name)
	require.Len(t, mod.Bindings, 1)
	require.NotNil(t, mod.Bindings[0].TypeDecl.Type)
	assert.True(t, mod.Bindings[0].TypeDecl.Type.IsFunction())
}

func TestParseModuleWithoutBraces(t *testing.T) {
	mod, err := ParseModule("mult2 x = primIntMultiply x 2;\nmain = mult2 10")
	require.NoError(t, err)
	assert.Equal(t, "Main", mod.Name)
	require.Len(t, mod.Bindings, 2)
	assert.Equal(t, "mult2", mod.Bindings[0].Name)
	assert.Equal(t, "main", mod.Bindings[1].Name)
}

func TestParseErrorReportsLocation(t *testing.T) {
	_, err := ParseModule("main = case 1 of }")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAR001")
	assert.Contains(t, err.Error(), "1:18")
}
