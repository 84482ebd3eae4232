package vm

// SuperCombinator is one lambda-lifted top-level definition: its arity, its
// instruction stream, and the id of the Assembly it was compiled into (so a
// Combinator node knows which assembly's globals its body's PushGlobal
// indices resolve against).
type SuperCombinator struct {
	Name         string
	Arity        int
	Instructions []Instruction
	AssemblyID   int
}

// Assembly is one compiled module: its super-combinators plus the instance
// dictionaries built for it at compile time.
type Assembly struct {
	SuperCombinators     []*SuperCombinator
	InstanceDictionaries [][]int
}
