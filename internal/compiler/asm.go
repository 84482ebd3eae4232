package compiler

import "github.com/thunklang/thunk/internal/vm"

// asm accumulates one super-combinator's instruction stream, with forward
// jumps resolved by patching a placeholder slot once the real target
// address is known.
type asm struct {
	code []vm.Instruction
}

// emit appends instr and returns its address, for callers that will patch
// it later (a forward Jump/JumpFalse/CaseJump whose target isn't known yet).
func (a *asm) emit(instr vm.Instruction) int {
	a.code = append(a.code, instr)
	return len(a.code) - 1
}

// here returns the address the next emit will land at.
func (a *asm) here() int {
	return len(a.code)
}

// patch overwrites the instruction at pos, used to fill in a forward jump
// once its target address is known.
func (a *asm) patch(pos int, instr vm.Instruction) {
	a.code[pos] = instr
}
