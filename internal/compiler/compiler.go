// Package compiler lowers a type-checked ast.Module to a vm.Assembly:
// lambda-lifting every nested Lambda/Let into a top-level super-combinator,
// compiling each body to Push/Mkap/Split/CaseJump instruction streams, and
// building instance dictionaries for type-class method dispatch.
package compiler

import (
	"fmt"

	"github.com/thunklang/thunk/internal/ast"
	"github.com/thunklang/thunk/internal/errors"
	"github.com/thunklang/thunk/internal/vm"
)

// classInfo records a type class's declared methods, for resolving a method
// reference either to a concrete instance (PushGlobal) or to the active
// frame's dictionary (PushDictionaryMember) depending on whether the
// reference's inferred type is still generic at compile time.
type classInfo struct {
	class       *ast.Class
	methodIndex map[string]int       // method name -> index within class.Declarations
	declType    map[string]*ast.Type // method name -> declared signature (contains class.Variable)
}

// constrained records a dictionary-taking global's single class constraint:
// which class, which variable of declType carries it, and the type to
// structurally match a call site's inferred type against to learn what the
// variable became.
type constrained struct {
	class    string
	variable ast.TypeVariable
	declType *ast.Type
}

// Linker accumulates the flat global name table and type-class metadata
// across every assembly compiled in one session, so a later assembly's code
// can reference an earlier one's combinators, instances and constructors
// through the VM's flat global table (the REPL compiles one assembly per
// input line against the same Linker).
type Linker struct {
	globals      map[string]int // name -> absolute vm global index
	classes      map[string]*classInfo
	methodClass  map[string]*classInfo
	ctors        map[string]ctorInfo
	constrained  map[string]constrained
	nextGlobal   int
	nextAssembly int
}

// HasClass reports whether a dictionary-backed class of the given name has
// been compiled through this Linker (Num and Fractional are defaulting-only
// and never appear here).
func (l *Linker) HasClass(name string) bool {
	_, ok := l.classes[name]
	return ok
}

// NewLinker returns an empty Linker.
func NewLinker() *Linker {
	return &Linker{
		globals:     make(map[string]int),
		classes:     make(map[string]*classInfo),
		methodClass: make(map[string]*classInfo),
		ctors:       make(map[string]ctorInfo),
		constrained: make(map[string]constrained),
	}
}

// ctorInfo records a data constructor's tag and arity for pattern compilation.
type ctorInfo struct {
	tag, arity int
}

// job is one not-yet-compiled super-combinator: a top-level binding, an
// instance method, or a lambda-lifted closure/let-binding discovered while
// compiling another job's body.
type job struct {
	name      string
	params    []string // frame slots 0..len-1, in order (dict param, if any, is params[0])
	body      ast.Expr
	dictClass string // "" unless this combinator takes a dictionary as params[0]
	dictVar   ast.TypeVariable
	letDefs   map[string]*letDef // let-bindings visible to this job's body, inherited from its lifting site
}

// compilerState carries the bookkeeping for compiling one Module into one
// Assembly: the shared Linker, the worklist of combinators still to
// compile, and this assembly's own combinator and dictionary tables.
type compilerState struct {
	mod  *ast.Module
	link *Linker

	baseIndex  int // vm global-table index this assembly's combinator 0 will occupy
	assemblyID int // index this assembly will occupy in the VM's assembly list

	names   []string // this assembly's combinators, in SuperCombinators order
	arities []int
	bodies  [][]vm.Instruction

	pending []job

	lambdaCounter int

	instanceDicts     [][]int        // this assembly's Assembly.InstanceDictionaries
	instanceDictIndex map[string]int // "class@thead" -> index into instanceDicts
}

// Compile lowers mod to a vm.Assembly against the Linker's accumulated
// global table. The caller must add the returned assembly to its VM (the
// Linker assumes assemblies are added in compilation order, matching the
// global indices it has handed out).
func (l *Linker) Compile(mod *ast.Module) (*vm.Assembly, error) {
	cs := &compilerState{
		mod:               mod,
		link:              l,
		baseIndex:         l.nextGlobal,
		assemblyID:        l.nextAssembly,
		instanceDictIndex: make(map[string]int),
	}

	cs.collectClasses()
	if err := cs.reserveGlobals(); err != nil {
		return nil, err
	}
	if err := cs.buildInstanceDictionaries(); err != nil {
		return nil, err
	}
	if err := cs.drainWorklist(); err != nil {
		return nil, err
	}

	scs := make([]*vm.SuperCombinator, len(cs.names))
	for i, name := range cs.names {
		scs[i] = &vm.SuperCombinator{
			Name:         name,
			Arity:        cs.arities[i],
			Instructions: cs.bodies[i],
			AssemblyID:   cs.assemblyID,
		}
	}
	l.nextGlobal = cs.baseIndex + len(cs.names)
	l.nextAssembly++
	return &vm.Assembly{SuperCombinators: scs, InstanceDictionaries: cs.instanceDicts}, nil
}

func (cs *compilerState) collectClasses() {
	for _, c := range cs.mod.Classes {
		ci := &classInfo{
			class:       c,
			methodIndex: make(map[string]int, len(c.Declarations)),
			declType:    make(map[string]*ast.Type, len(c.Declarations)),
		}
		for i, decl := range c.Declarations {
			ci.methodIndex[decl.Name] = i
			ci.declType[decl.Name] = decl.Type
		}
		cs.link.classes[c.Name] = ci
		for _, decl := range c.Declarations {
			cs.link.methodClass[decl.Name] = ci
		}
	}
}

// reserveGlobals allocates a global index for every name this assembly
// defines up front (top-level bindings, instance methods, data
// constructors, and the built-in list/tuple constructors and primitive
// wrappers), so that forward and mutually-recursive references resolve
// before any body is compiled, and queues each definition's job.
func (cs *compilerState) reserveGlobals() error {
	if cs.assemblyID == 0 {
		cs.reserveBuiltins()
	}

	for _, dd := range cs.mod.DataDefinitions {
		for _, ctor := range dd.Constructors {
			cs.defineConstructor(ctor.Name, ctor.Tag, ctor.Arity)
		}
	}

	for _, b := range cs.mod.Bindings {
		if err := cs.reserveBinding(b, "", nil); err != nil {
			return err
		}
	}

	for _, inst := range cs.mod.Instances {
		for _, b := range inst.Bindings {
			if err := cs.reserveBinding(b, ast.HeadName(inst.Type), inst.Constraints); err != nil {
				return err
			}
		}
	}
	return nil
}

// reserveBinding queues one top-level or instance binding. A binding whose
// context carries a dictionary-backed class constraint gains a leading
// synthetic dictionary parameter; Num/Fractional constraints are
// defaulting-only and take no dictionary.
func (cs *compilerState) reserveBinding(b *ast.Binding, instHead string, instConstraints []ast.Constraint) error {
	if _, exists := cs.link.globals[b.Name]; exists && cs.indexOwned(cs.link.globals[b.Name]) {
		return errors.New(errors.CMP001, b.Expression.Loc(), "global %q already defined", b.Name)
	}
	cs.newSlot(b.Name)
	params, body := peelLambdas(b.Expression, b.Arity)

	constraints := b.TypeDecl.Context
	if instHead != "" {
		constraints = instConstraints
	}
	dictClass, dictVar, err := cs.dictConstraint(b.Name, constraints)
	if err != nil {
		return err
	}
	if dictClass != "" {
		params = append([]string{dictParamName}, params...)
		declType := b.TypeDecl.Type
		if instHead != "" {
			// An instance method's call sites match against the instance
			// head, not the method signature: the head tells them which
			// argument type the constraint variable stands for.
			declType = instanceHeadOf(cs.mod, b.Name)
		}
		cs.link.constrained[b.Name] = constrained{class: dictClass, variable: dictVar, declType: declType}
	}
	cs.pending = append(cs.pending, job{
		name: b.Name, params: params, body: body,
		dictClass: dictClass, dictVar: dictVar,
	})
	return nil
}

// dictConstraint narrows a binding's context to the single
// dictionary-backed constraint it may carry. Num and Fractional never have
// dictionaries (they resolve by defaulting during inference); more than one
// remaining class exceeds the dictionary-passing model this compiler
// implements.
func (cs *compilerState) dictConstraint(name string, context []ast.Constraint) (string, ast.TypeVariable, error) {
	var class string
	var variable ast.TypeVariable
	for _, c := range context {
		if _, ok := cs.link.classes[c.Class]; !ok {
			continue
		}
		if class != "" && c.Class != class {
			return "", 0, errors.New(errors.CMP001, errors.Location{},
				"binding %q needs dictionaries for both %s and %s; only one constraint class is supported", name, class, c.Class)
		}
		class = c.Class
		variable = c.Var
	}
	return class, variable, nil
}

// instanceHeadOf finds the head type of the instance that owns the mangled
// binding name.
func instanceHeadOf(mod *ast.Module, mangled string) *ast.Type {
	for _, inst := range mod.Instances {
		for _, b := range inst.Bindings {
			if b.Name == mangled {
				return inst.Type
			}
		}
	}
	return nil
}

// buildInstanceDictionaries constructs one method table per instance this
// module declares, so PushDictionary has them at fixed indices at run time.
// Dictionaries needed for imported instances are built lazily at the first
// call site that asks for them (dictionaryFor).
func (cs *compilerState) buildInstanceDictionaries() error {
	for _, inst := range cs.mod.Instances {
		if _, ok := cs.link.classes[inst.ClassName]; !ok {
			continue
		}
		if _, err := cs.dictionaryFor(inst.ClassName, ast.HeadName(inst.Type)); err != nil {
			return err
		}
	}
	return nil
}

// dictionaryFor returns this assembly's dictionary index for (class, thead),
// building the method table on first request: one global index per class
// method in declaration order, each resolved through the mangled instance
// method name.
func (cs *compilerState) dictionaryFor(class, thead string) (int, error) {
	key := class + "@" + thead
	if idx, ok := cs.instanceDictIndex[key]; ok {
		return idx, nil
	}
	ci, ok := cs.link.classes[class]
	if !ok {
		return 0, errors.New(errors.CMP001, errors.Location{}, "unknown class %q", class)
	}
	indices := make([]int, len(ci.class.Declarations))
	for i, decl := range ci.class.Declarations {
		gi, ok := cs.link.globals[ast.MangleInstanceMethod(thead, decl.Name)]
		if !ok {
			return 0, errors.New(errors.CMP001, errors.Location{},
				"no instance %s %s when building its dictionary", class, thead)
		}
		indices[i] = gi
	}
	idx := len(cs.instanceDicts)
	cs.instanceDicts = append(cs.instanceDicts, indices)
	cs.instanceDictIndex[key] = idx
	return idx, nil
}

// dictParamName is the synthetic parameter name bound to frame slot 0 of a
// constrained super-combinator; PushDictionaryMember always indexes
// stack[0] of the active frame, so the dictionary must live there.
const dictParamName = "#dict"

// peelLambdas strips n leading Lambda layers from expr (the curried-argument
// sugar a Binding's Arity counts), returning the parameter names in order and
// the remaining core body.
func peelLambdas(expr ast.Expr, n int) ([]string, ast.Expr) {
	params := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lam, ok := expr.(*ast.Lambda)
		if !ok {
			break
		}
		params = append(params, lam.Param)
		expr = lam.Body
	}
	return params, expr
}

// newSlot reserves the next index in this assembly for name and records it
// in the Linker's global table.
func (cs *compilerState) newSlot(name string) int {
	idx := cs.baseIndex + len(cs.names)
	cs.names = append(cs.names, name)
	cs.arities = append(cs.arities, 0) // filled in once the job compiles
	cs.bodies = append(cs.bodies, nil)
	cs.link.globals[name] = idx
	return idx
}

func (cs *compilerState) slotOf(name string) (int, bool) {
	idx, ok := cs.link.globals[name]
	return idx, ok
}

// indexOwned reports whether globalIdx belongs to the assembly currently
// being compiled (as opposed to an import, which may legitimately be
// shadowed).
func (cs *compilerState) indexOwned(globalIdx int) bool {
	return globalIdx >= cs.baseIndex && globalIdx < cs.baseIndex+len(cs.names)
}

// indexInAssembly converts a global index reserved by this assembly back to
// its position within cs.names/arities/bodies, for filling those slots in
// once a job compiles.
func (cs *compilerState) indexInAssembly(globalIdx int) (int, bool) {
	local := globalIdx - cs.baseIndex
	if local < 0 || local >= len(cs.names) {
		return 0, false
	}
	return local, true
}

// drainWorklist compiles every queued job, including lambda-lifted closures
// discovered while compiling earlier jobs, until none remain.
func (cs *compilerState) drainWorklist() error {
	for len(cs.pending) > 0 {
		j := cs.pending[0]
		cs.pending = cs.pending[1:]

		ctx := newCtx(cs)
		for _, p := range j.params {
			ctx.bind(p)
		}
		if j.dictClass != "" {
			ctx.dictClass = j.dictClass
			ctx.dictVar = j.dictVar
		}
		if j.letDefs != nil {
			ctx.letDefs = j.letDefs
		}

		a := &asm{}
		if err := ctx.compileLazy(a, j.body); err != nil {
			return err
		}
		a.emit(vm.Slide(ctx.depth - 1))

		local, ok := cs.indexInAssembly(cs.link.globals[j.name])
		if !ok {
			return errors.New(errors.CMP001, errors.Location{}, "internal error: %q has no reserved slot", j.name)
		}
		cs.arities[local] = len(j.params)
		cs.bodies[local] = a.code
	}
	return nil
}

// reserveLambdaSlot allocates a global slot for a lambda-lifted combinator
// without queuing its job (the caller fills in and appends the job itself,
// once every sibling in its Let group has a slot to reference).
func (cs *compilerState) reserveLambdaSlot() (name string, idx int) {
	cs.lambdaCounter++
	name = fmt.Sprintf("#lam%d.%d", cs.assemblyID, cs.lambdaCounter)
	idx = cs.newSlot(name)
	return name, idx
}

// addJob queues a freshly lambda-lifted combinator (j.name is assigned
// here) and reserves its global slot, returning the slot's absolute index.
func (cs *compilerState) addJob(j job) (name string, idx int) {
	name, idx = cs.reserveLambdaSlot()
	j.name = name
	cs.pending = append(cs.pending, j)
	return name, idx
}
