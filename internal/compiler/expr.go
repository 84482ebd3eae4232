package compiler

import (
	"sort"

	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/errors"
	"github.com/thunklang/thunk/internal/vm"
)

// ctx compiles one super-combinator body: the local stack-slot bindings
// visible to it (its own parameters and whatever a Case alternative's
// pattern bound), the lambda-lifted closures visible to it (its own Let
// siblings, inherited down from the job that spawned it), and, for an
// instance method or constrained binding, the class/variable its leading
// dictionary parameter carries.
type ctx struct {
	cs  *compilerState
	env map[string]int // name -> absolute frame slot

	letDefs map[string]*letDef

	dictClass string
	dictVar   ast.TypeVariable

	depth int // number of live stack slots in the frame being compiled
}

// letDef is a lambda-lifted let-binding (or first-class lambda): a global
// combinator plus the free variables, captured from the lifting site, that
// must be applied to it before it behaves like an ordinary value again.
type letDef struct {
	global   int
	freeVars []string
}

func newCtx(cs *compilerState) *ctx {
	return &ctx{cs: cs, env: make(map[string]int), letDefs: make(map[string]*letDef)}
}

// bind assigns the next frame slot to name (a super-combinator's own
// parameter, bound left to right starting at slot 0).
func (ctx *ctx) bind(name string) {
	ctx.env[name] = ctx.depth
	ctx.depth++
}

func (ctx *ctx) isLocal(name string) bool {
	if _, ok := ctx.env[name]; ok {
		return true
	}
	_, ok := ctx.letDefs[name]
	return ok
}

// pushLocal emits code to push name's current value: Push for a plain frame
// slot, or PushGlobal plus its own captured free variables' Mkap chain for a
// lambda-lifted closure.
func (ctx *ctx) pushLocal(a *asm, name string) error {
	if slot, ok := ctx.env[name]; ok {
		a.emit(vm.Push(slot))
		ctx.depth++
		return nil
	}
	if ld, ok := ctx.letDefs[name]; ok {
		a.emit(vm.PushGlobal(ld.global))
		ctx.depth++
		for _, fv := range ld.freeVars {
			if err := ctx.pushLocal(a, fv); err != nil {
				return err
			}
			a.emit(vm.Mkap())
			ctx.depth--
		}
		return nil
	}
	return errors.New(errors.CMP001, errors.Location{}, "internal error: %q is not a local binding", name)
}

// compileLazy compiles expr to build (not force) its result on top of the
// stack. The result is the single new live value, though a Case also leaves
// its forced scrutinee buried beneath it; ctx.depth tracks the true runtime
// depth either way, and the frame's closing Slide discards everything below
// the final result at once.
func (ctx *ctx) compileLazy(a *asm, expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.Identifier:
		return ctx.compileIdentifier(a, e)
	case *ast.NumberLit:
		a.emit(vm.PushInt(e.Value))
		ctx.depth++
		return nil
	case *ast.RationalLit:
		a.emit(vm.PushFloat(e.Value))
		ctx.depth++
		return nil
	case *ast.CharLit:
		a.emit(vm.PushChar(e.Value))
		ctx.depth++
		return nil
	case *ast.StringLit:
		return ctx.compileLazy(a, desugarString(e.Value, e.Loc()))
	case *ast.Apply:
		return ctx.compileApply(a, e)
	case *ast.Lambda:
		return ctx.compileLambdaLit(a, e)
	case *ast.Let:
		return ctx.compileLet(a, e)
	case *ast.Case:
		return ctx.compileCase(a, e)
	default:
		return errors.New(errors.CMP001, expr.Loc(), "compiler: unhandled expression form %T", expr)
	}
}

// compileIdentifier resolves a name reference to whichever of the five
// things it can be: a frame-local value, a lambda-lifted closure, the
// negate wrapper, a type-class method (dispatched per compileMethodRef), or
// an ordinary global, pushing a dictionary application after a constrained
// global.
func (ctx *ctx) compileIdentifier(a *asm, e *ast.Identifier) error {
	name := e.Name
	if ctx.isLocal(name) {
		return ctx.pushLocal(a, name)
	}
	if name == "negate" {
		return ctx.compileNegate(a, e)
	}
	if ci, ok := ctx.cs.link.methodClass[name]; ok {
		return ctx.compileMethodRef(a, e, ci)
	}
	idx, ok := ctx.cs.slotOf(name)
	if !ok {
		return errors.New(errors.CMP001, e.Loc(), "undefined global %q", name)
	}
	a.emit(vm.PushGlobal(idx))
	ctx.depth++
	if c, constrainedRef := ctx.cs.link.constrained[name]; constrainedRef {
		inst := matchVar(c.declType, e.Type(), c.variable)
		if err := ctx.pushDictionaryFor(a, e.Loc(), c.class, inst); err != nil {
			return err
		}
		a.emit(vm.Mkap())
		ctx.depth--
	}
	return nil
}

// compileNegate resolves the negate wrapper unary minus desugars to, by the
// reference's inferred type: Int -> Int and Double -> Double each have a
// dedicated primitive wrapper, and a still-variable type (a literal whose
// Num constraint never met a concrete operator) defaults to Int, the same
// defaulting rule inference applies (internal/types/defaulting.go).
func (ctx *ctx) compileNegate(a *asm, e *ast.Identifier) error {
	name := "#negateInt"
	if t := e.Type(); t != nil && t.IsFunction() && !t.Domain().IsVar && t.Domain().Op == "Double" {
		name = "#negateDouble"
	}
	idx, ok := ctx.cs.slotOf(name)
	if !ok {
		return errors.New(errors.CMP001, e.Loc(), "undefined global %q", name)
	}
	a.emit(vm.PushGlobal(idx))
	ctx.depth++
	return nil
}

// compileMethodRef compiles a reference to a type-class method. The
// reference's inferred type reveals what the class variable became at this
// use site: a concrete operator selects that instance's mangled global
// (plus its own nested dictionary, if the instance is itself constrained),
// while a still-generic variable means the method must be fetched from the
// dictionary the active frame received as its first parameter.
func (ctx *ctx) compileMethodRef(a *asm, e *ast.Identifier, ci *classInfo) error {
	inst := matchVar(ci.declType[e.Name], e.Type(), ci.class.Variable)
	if inst == nil {
		return errors.New(errors.CMP001, e.Loc(),
			"cannot resolve class variable of %s method %q from type %s", ci.class.Name, e.Name, e.Type())
	}
	thead := ast.HeadName(inst)
	if inst.IsVar {
		if ctx.dictClass == ci.class.Name {
			a.emit(vm.PushDictionaryMember(ci.methodIndex[e.Name]))
			ctx.depth++
			return nil
		}
		// The class variable never met a concrete type and no dictionary is
		// in scope: the use is ambiguous, so it defaults to Int exactly as a
		// bare Num literal would (internal/types/defaulting.go).
		thead = "Int"
	}
	mangled := ast.MangleInstanceMethod(thead, e.Name)
	idx, ok := ctx.cs.slotOf(mangled)
	if !ok {
		return errors.New(errors.CMP001, e.Loc(), "no instance %s %s", ci.class.Name, thead)
	}
	a.emit(vm.PushGlobal(idx))
	ctx.depth++
	if c, needsDict := ctx.cs.link.constrained[mangled]; needsDict {
		argInst := matchVar(c.declType, inst, c.variable)
		if err := ctx.pushDictionaryFor(a, e.Loc(), c.class, argInst); err != nil {
			return err
		}
		a.emit(vm.Mkap())
		ctx.depth--
	}
	return nil
}

// pushDictionaryFor pushes the dictionary witnessing that typ belongs to
// class: the instance's own table when typ resolved to a concrete operator,
// or the active frame's dictionary parameter when typ is still generic
// (the callee then receives whatever dictionary this frame received).
func (ctx *ctx) pushDictionaryFor(a *asm, loc errors.Location, class string, typ *ast.Type) error {
	if typ == nil {
		return errors.New(errors.CMP001, loc, "cannot determine which %s dictionary to pass", class)
	}
	thead := ast.HeadName(typ)
	if typ.IsVar {
		if ctx.dictClass == class {
			slot, ok := ctx.env[dictParamName]
			if !ok {
				return errors.New(errors.CMP001, loc, "internal error: constrained frame has no dictionary slot")
			}
			a.emit(vm.Push(slot))
			ctx.depth++
			return nil
		}
		// Ambiguous element type: default to Int, as inference's Num
		// defaulting would have.
		thead = "Int"
	}
	idx, err := ctx.cs.dictionaryFor(class, thead)
	if err != nil {
		return err
	}
	a.emit(vm.PushDictionary(idx))
	ctx.depth++
	return nil
}

// matchVar structurally aligns general with concrete and returns whatever
// concrete holds in the position where general has variable v, or nil when
// the shapes never line v up with anything.
func matchVar(general, concrete *ast.Type, v ast.TypeVariable) *ast.Type {
	if general == nil || concrete == nil {
		return nil
	}
	if general.IsVar {
		if general.Var == v {
			return concrete
		}
		return nil
	}
	if concrete.IsVar {
		return nil
	}
	for i := range general.Args {
		if i >= len(concrete.Args) {
			break
		}
		if r := matchVar(general.Args[i], concrete.Args[i], v); r != nil {
			return r
		}
	}
	return nil
}

// compileApply compiles argument then function (so the function, which
// Mkap reads as its top operand, ends up above the argument) then applies.
func (ctx *ctx) compileApply(a *asm, e *ast.Apply) error {
	if err := ctx.compileLazy(a, e.Arg); err != nil {
		return err
	}
	if err := ctx.compileLazy(a, e.Func); err != nil {
		return err
	}
	a.emit(vm.Mkap())
	ctx.depth--
	return nil
}

// compileLambdaLit lifts a first-class lambda (and every contiguous Lambda
// nested directly in its body) to a fresh global super-combinator,
// parameterized by its own curried parameters plus whatever free variables
// it captures from the enclosing scope, and leaves a partially-applied
// closure (captures already supplied) on the stack.
func (ctx *ctx) compileLambdaLit(a *asm, lam *ast.Lambda) error {
	count := countLambdas(lam)
	params, body := peelLambdas(lam, count)

	fv := make(map[string]bool)
	freeVars(lam, make(map[string]bool), fv)
	captured := ctx.captures(fv, nil)

	allParams := append(append([]string{}, captured...), params...)
	_, idx := ctx.cs.addJob(job{
		params: allParams, body: body, letDefs: ctx.letDefs,
		dictClass: ctx.dictClass, dictVar: ctx.dictVar,
	})

	a.emit(vm.PushGlobal(idx))
	ctx.depth++
	for _, name := range captured {
		if err := ctx.pushLocal(a, name); err != nil {
			return err
		}
		a.emit(vm.Mkap())
		ctx.depth--
	}
	return nil
}

// captures narrows a free-variable set to the frame slots this ctx must
// supply to a lifted body, expanding references to already-lifted closures
// into the frame slots those closures themselves capture (the lifted body
// re-applies them by name, so the names must become its parameters too).
// skip names are never captured (a Let group's own siblings). Sorted so the
// Mkap application chain built at the reference site is deterministic.
func (ctx *ctx) captures(fv map[string]bool, skip map[string]bool) []string {
	seen := make(map[string]bool)
	var out []string
	var add func(name string)
	add = func(name string) {
		if seen[name] || skip[name] {
			return
		}
		seen[name] = true
		if _, ok := ctx.env[name]; ok {
			out = append(out, name)
			return
		}
		if ld, ok := ctx.letDefs[name]; ok {
			for _, inner := range ld.freeVars {
				add(inner)
			}
		}
		// Anything else is a global; nothing to capture.
	}
	for name := range fv {
		add(name)
	}
	// A body lifted out of a constrained frame carries the dictionary along
	// as a capture, so its own frame still has it at slot 0 ("#" sorts
	// before every identifier character) and PushDictionaryMember keeps its
	// stack[0] contract inside the lifted combinator too.
	if ctx.dictClass != "" {
		add(dictParamName)
	}
	sort.Strings(out)
	return out
}

// compileLet lambda-lifts every binding in one Let to its own global
// super-combinator. Each lifted body captures the free variables it needs
// from the enclosing scope (excluding its Let siblings, which resolve via
// the shared letDefs map instead, giving mutual recursion among the group
// without any stack-level placeholder/Update trick). Because a lifted body
// re-applies a sibling to the sibling's own captures, the capture sets are
// closed over the group before any slot is referenced.
func (ctx *ctx) compileLet(a *asm, let *ast.Let) error {
	n := len(let.Bindings)
	siblings := make(map[string]bool, n)
	sibIndex := make(map[string]int, n)
	for i, b := range let.Bindings {
		siblings[b.Name] = true
		sibIndex[b.Name] = i
	}

	names := make([]string, n)
	idxs := make([]int, n)
	for i := range let.Bindings {
		names[i], idxs[i] = ctx.cs.reserveLambdaSlot()
	}

	bodies := make([]ast.Expr, n)
	paramLists := make([][]string, n)
	direct := make([]map[string]bool, n) // frame slots referenced outside siblings
	sibRefs := make([][]int, n)
	for i, b := range let.Bindings {
		count := countLambdas(b.Expression)
		paramLists[i], bodies[i] = peelLambdas(b.Expression, count)

		fv := make(map[string]bool)
		freeVars(b.Expression, make(map[string]bool), fv)
		direct[i] = make(map[string]bool)
		for _, name := range ctx.captures(fv, siblings) {
			direct[i][name] = true
		}
		for name := range fv {
			if siblings[name] {
				sibRefs[i] = append(sibRefs[i], sibIndex[name])
			}
		}
	}

	// Close the capture sets over sibling references: pushing sibling j
	// inside body i re-applies j's captures, so they must be i's too.
	for changed := true; changed; {
		changed = false
		for i := range let.Bindings {
			for _, j := range sibRefs[i] {
				for name := range direct[j] {
					if !direct[i][name] {
						direct[i][name] = true
						changed = true
					}
				}
			}
		}
	}

	fullMap := make(map[string]*letDef, n+len(ctx.letDefs))
	for name, ld := range ctx.letDefs {
		fullMap[name] = ld
	}
	captured := make([][]string, n)
	for i, b := range let.Bindings {
		captured[i] = sortedNames(direct[i])
		fullMap[b.Name] = &letDef{global: idxs[i], freeVars: captured[i]}
	}

	for i := range let.Bindings {
		allParams := append(append([]string{}, captured[i]...), paramLists[i]...)
		ctx.cs.pending = append(ctx.cs.pending, job{
			name: names[i], params: allParams, body: bodies[i], letDefs: fullMap,
			dictClass: ctx.dictClass, dictVar: ctx.dictVar,
		})
	}

	saved := ctx.letDefs
	ctx.letDefs = fullMap
	err := ctx.compileLazy(a, let.Body)
	ctx.letDefs = saved
	return err
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// failSite is one point inside an alternative's pattern tests that jumps to
// the next alternative: the Jump to patch, plus how many matched-so-far
// constructor fields must be popped before the next alternative's tests see
// the stack at its expected depth.
type failSite struct {
	jump        int
	extras      int
	conditional bool // true when the site is a JumpFalse, not a Jump
}

// compileCase forces the scrutinee to WHNF at a fixed slot, then emits each
// alternative as a test-and-branch block tried in source order. Every
// alternative starts with the stack at the same depth; each converges on a
// shared exit with exactly the branch result added. Falling off the last
// alternative is the non-exhaustive-match runtime error.
func (ctx *ctx) compileCase(a *asm, e *ast.Case) error {
	if err := ctx.compileLazy(a, e.Scrutinee); err != nil {
		return err
	}
	a.emit(vm.Eval())
	scrutSlot := ctx.depth - 1
	baseDepth := ctx.depth

	var endJumps []int
	for _, alt := range e.Alternatives {
		ctx.depth = baseDepth
		savedEnv := cloneEnv(ctx.env)

		var fails []failSite
		if err := ctx.compilePatternTest(a, alt.Pattern, scrutSlot, baseDepth, true, &fails); err != nil {
			return err
		}
		if err := ctx.compileLazy(a, alt.Expression); err != nil {
			return err
		}
		if extras := ctx.depth - baseDepth - 1; extras > 0 {
			a.emit(vm.Slide(extras))
		}
		endJumps = append(endJumps, a.emit(vm.Jump(0)))

		// Cleanup trampolines: a test that fails with constructor fields
		// already on the stack pops them before re-entering the chain.
		cleanup := make(map[int]int)
		for _, f := range fails {
			if f.extras > 0 {
				if _, ok := cleanup[f.extras]; !ok {
					cleanup[f.extras] = a.here()
					a.emit(vm.Pop(f.extras))
					a.emit(vm.Jump(0)) // patched to the next alternative below
				}
			}
		}
		next := a.here()
		for _, f := range fails {
			target := next
			if f.extras > 0 {
				target = cleanup[f.extras]
			}
			if f.conditional {
				a.patch(f.jump, vm.JumpFalse(target))
			} else {
				a.patch(f.jump, vm.Jump(target))
			}
		}
		for _, addr := range cleanup {
			a.patch(addr+1, vm.Jump(next))
		}

		ctx.env = savedEnv
	}

	a.emit(vm.Fail())
	end := a.here()
	for _, j := range endJumps {
		a.patch(j, vm.Jump(end))
	}
	ctx.depth = baseDepth + 1
	return nil
}

func cloneEnv(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// compilePatternTest emits the tests and bindings for one pattern matched
// against the value at slot. evaluated reports whether that slot is already
// in WHNF (true only for the case scrutinee itself; constructor fields are
// lazy and get a Push/Eval pair before any test inspects them). Identifier
// patterns bind lazily, with no test and no eval. Failure jumps are recorded in
// fails together with the field count the cleanup path must pop.
func (ctx *ctx) compilePatternTest(a *asm, pat ast.Pattern, slot, baseDepth int, evaluated bool, fails *[]failSite) error {
	switch p := pat.(type) {
	case ast.IdentifierPattern:
		ctx.env[p.Name] = slot
		return nil

	case ast.NumberPattern:
		a.emit(vm.Push(slot))
		ctx.depth++
		if !evaluated {
			a.emit(vm.Eval())
		}
		a.emit(vm.PushInt(p.Value))
		ctx.depth++
		a.emit(vm.IntEQ())
		ctx.depth--
		jump := a.emit(vm.JumpFalse(0))
		ctx.depth--
		*fails = append(*fails, failSite{jump: jump, extras: ctx.depth - baseDepth, conditional: true})
		return nil

	case ast.ConstructorPattern:
		tag, arity, ok := ctx.cs.constructorInfo(p.Name)
		if !ok {
			return errors.New(errors.CMP001, p.Loc(), "undefined constructor %q in pattern", p.Name)
		}
		if len(p.Patterns) != arity {
			return errors.New(errors.CMP001, p.Loc(),
				"constructor %q has arity %d, pattern supplies %d", p.Name, arity, len(p.Patterns))
		}
		a.emit(vm.Push(slot))
		ctx.depth++
		if !evaluated {
			a.emit(vm.Eval())
		}
		a.emit(vm.CaseJump(tag))
		// On mismatch CaseJump pops the copy and falls through to this
		// jump; on match it skips it and the copy reaches Split.
		miss := a.emit(vm.Jump(0))
		*fails = append(*fails, failSite{jump: miss, extras: ctx.depth - 1 - baseDepth})
		a.emit(vm.Split(arity))
		ctx.depth += arity - 1
		fieldBase := ctx.depth - arity
		for i, sub := range p.Patterns {
			if err := ctx.compilePatternTest(a, sub, fieldBase+i, baseDepth, false, fails); err != nil {
				return err
			}
		}
		return nil

	default:
		return errors.New(errors.CMP001, pat.Loc(), "compiler: unhandled pattern form %T", pat)
	}
}

// desugarString builds the (:)/"[]" list that a string literal denotes, so
// the expression compiler never needs a dedicated String node kind.
func desugarString(s string, loc errors.Location) ast.Expr {
	runes := []rune(s)
	var build func(i int) ast.Expr
	build = func(i int) ast.Expr {
		if i >= len(runes) {
			return &ast.Identifier{Node: ast.Node{Location: loc}, Name: "[]"}
		}
		head := &ast.CharLit{Node: ast.Node{Location: loc}, Value: runes[i]}
		cons := &ast.Identifier{Node: ast.Node{Location: loc}, Name: ":"}
		partial := &ast.Apply{Node: ast.Node{Location: loc}, Func: cons, Arg: head}
		return &ast.Apply{Node: ast.Node{Location: loc}, Func: partial, Arg: build(i + 1)}
	}
	return build(0)
}
