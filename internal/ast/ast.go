package ast

import "github.com/thunklang/thunk/internal/errors"

// Expr is the tagged expression node. Every concrete variant embeds Node,
// giving it an inferred Type (filled in by internal/types) and a source
// Location (filled in by internal/parser).
type Expr interface {
	exprNode()
	Loc() errors.Location
	Type() *Type
	SetType(*Type)
}

// Node carries the fields every Expr variant shares.
type Node struct {
	Location errors.Location
	Typ      *Type
}

func (n *Node) Loc() errors.Location { return n.Location }
func (n *Node) Type() *Type          { return n.Typ }
func (n *Node) SetType(t *Type)      { n.Typ = t }

// Identifier references a bound name (a binding, constructor, or class
// method).
type Identifier struct {
	Node
	Name string
}

func (*Identifier) exprNode() {}

// NumberLit is an integer literal; type-checks to a fresh variable
// constrained by class Num.
type NumberLit struct {
	Node
	Value int64
}

func (*NumberLit) exprNode() {}

// RationalLit is a floating point literal; type-checks to a fresh variable
// constrained by class Fractional.
type RationalLit struct {
	Node
	Value float64
}

func (*RationalLit) exprNode() {}

// StringLit is a string literal; represented as a [Char] list at the type
// level and kept as a literal node in expressions, which the compiler
// expands into a ':'/"[]" chain. String literals are not accepted in
// pattern position.
type StringLit struct {
	Node
	Value string
}

func (*StringLit) exprNode() {}

// CharLit is a single character literal.
type CharLit struct {
	Node
	Value rune
}

func (*CharLit) exprNode() {}

// Apply is binary application; curried applications nest (f a b is
// Apply(Apply(f, a), b)).
type Apply struct {
	Node
	Func Expr
	Arg  Expr
}

func (*Apply) exprNode() {}

// Lambda is a single-parameter function; multi-argument surface functions
// are nested lambdas.
type Lambda struct {
	Node
	Param string
	Body  Expr
}

func (*Lambda) exprNode() {}

// Let is recursive by default: every binding in Bindings may refer to every
// other binding in the same Let, including itself.
type Let struct {
	Node
	Bindings []*Binding
	Body     Expr
}

func (*Let) exprNode() {}

// Case tries Alternatives against Scrutinee in source order; the first
// pattern that matches selects the branch.
type Case struct {
	Node
	Scrutinee    Expr
	Alternatives []Alternative
}

func (*Case) exprNode() {}

// Alternative is one arm of a Case.
type Alternative struct {
	Pattern    Pattern
	Expression Expr
}

// Pattern is the tagged pattern node matched against a Case scrutinee or a
// Let/top-level binding's implicit argument patterns.
type Pattern interface {
	patternNode()
	Loc() errors.Location
}

// PatternNode carries the fields every Pattern variant shares.
type PatternNode struct {
	Location errors.Location
}

func (p PatternNode) Loc() errors.Location { return p.Location }

// IdentifierPattern binds the matched value to Name unconditionally.
type IdentifierPattern struct {
	PatternNode
	Name string
}

func (IdentifierPattern) patternNode() {}

// NumberPattern matches an integer literal exactly.
type NumberPattern struct {
	PatternNode
	Value int64
}

func (NumberPattern) patternNode() {}

// ConstructorPattern matches a saturated data constructor and recursively
// matches each of its fields against Patterns. List sugar ([], :) and tuple
// sugar ((,...)) desugar into this form at parse time.
type ConstructorPattern struct {
	PatternNode
	Name     string
	Patterns []Pattern
}

func (ConstructorPattern) patternNode() {}

// Binding is a single (possibly curried-sugar) top-level or let-bound
// definition. Arity counts the lambda binders the parser introduced for
// curried-argument sugar at the top of Expression, before any are
// desugared into nested Lambda nodes.
type Binding struct {
	Name       string
	Arity      int
	TypeDecl   TypeDeclaration
	Expression Expr
}

// Constructor is one alternative of a DataDefinition. Tag is assigned
// sequentially from 0 in declaration order; Arity is len(Type's curried
// argument list).
type Constructor struct {
	Name  string
	Type  *Type
	Tag   int
	Arity int
}

// DataDefinition declares an algebraic data type and its constructors.
// ParamNames and ParamIDs are parallel slices, in declaration order: each
// declared type-variable name and the TypeVariable id allocated for it.
type DataDefinition struct {
	Name         string
	ParamNames   []string
	ParamIDs     []TypeVariable
	Constructors []*Constructor
	Type         *Type
}

// Class declares a type class: one type variable and a set of method
// signatures, each implicitly constrained by the class itself.
type Class struct {
	Name         string
	Variable     TypeVariable
	Declarations []*TypeDeclaration
}

// MangleInstanceMethod names method as implemented by the instance whose
// head type operator is thead, e.g. ("[]", "==") -> "#[]==". The "#" prefix
// cannot be produced by the lexer as an identifier, so mangled names can
// never collide with source-level bindings.
func MangleInstanceMethod(thead, method string) string {
	return "#" + thead + method
}

// HeadName returns the outermost type-operator name of typ, the
// "constructor head" used when mangling instance method names.
func HeadName(typ *Type) string {
	if typ.IsVar {
		return typ.String()
	}
	return string(typ.Op)
}

// Instance is one `instance C T where ...` block. Binding names are
// mangled by the parser to "#<Thead><method>" so every instance method has
// a globally unique name.
type Instance struct {
	ClassName   string
	Type        *Type
	Constraints []Constraint
	Bindings    []*Binding
}

// Module is the top-level compilation unit: every declaration the parser
// produced from one source file.
type Module struct {
	Name            string
	Bindings        []*Binding
	TypeDeclarations []*TypeDeclaration
	Classes         []*Class
	Instances       []*Instance
	DataDefinitions []*DataDefinition
}
