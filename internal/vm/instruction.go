package vm

import "fmt"

// Opcode names one VM instruction, grouped by role: Push, Build, Control,
// Arithmetic.
type Opcode int

const (
	OpPushInt Opcode = iota
	OpPushFloat
	OpPushChar
	OpPush
	OpPushGlobal
	OpPushDictionary
	OpPushDictionaryMember
	OpMkap
	OpPack
	OpEval
	OpUnwind
	OpSlide
	OpPop
	OpUpdate
	OpJump
	OpJumpFalse
	OpCaseJump
	OpSplit
	OpAdd
	OpSub
	OpMultiply
	OpDivide
	OpRemainder
	OpIntEQ
	OpIntLT
	OpIntLE
	OpIntGT
	OpIntGE
	OpDoubleAdd
	OpDoubleSub
	OpDoubleMultiply
	OpDoubleDivide
	OpDoubleRemainder
	OpDoubleEQ
	OpDoubleLT
	OpDoubleLE
	OpDoubleGT
	OpDoubleGE
	OpIntToDouble
	OpDoubleToInt
	OpFail
)

// Instruction is a single VM opcode plus whichever operand fields it needs.
// Using one struct instead of per-opcode types keeps the frame loop a flat
// slice index instead of an interface dispatch.
type Instruction struct {
	Op       Opcode
	Int      int64   // PushInt value; Push/PushGlobal/PushDictionary/PushDictionaryMember index; Pop/Slide/Update count; Jump/JumpFalse/CaseJump target or tag
	Float    float64 // PushFloat value
	Char     rune    // PushChar value
	Tag      int     // Pack tag
	Arity    int     // Pack arity
}

func PushInt(v int64) Instruction              { return Instruction{Op: OpPushInt, Int: v} }
func PushFloat(v float64) Instruction          { return Instruction{Op: OpPushFloat, Float: v} }
func PushChar(v rune) Instruction              { return Instruction{Op: OpPushChar, Char: v} }
func Push(index int) Instruction               { return Instruction{Op: OpPush, Int: int64(index)} }
func PushGlobal(index int) Instruction         { return Instruction{Op: OpPushGlobal, Int: int64(index)} }
func PushDictionary(index int) Instruction     { return Instruction{Op: OpPushDictionary, Int: int64(index)} }
func PushDictionaryMember(index int) Instruction {
	return Instruction{Op: OpPushDictionaryMember, Int: int64(index)}
}
func Mkap() Instruction                { return Instruction{Op: OpMkap} }
func Pack(tag, arity int) Instruction  { return Instruction{Op: OpPack, Tag: tag, Arity: arity} }
func Eval() Instruction                { return Instruction{Op: OpEval} }
func Unwind() Instruction              { return Instruction{Op: OpUnwind} }
func Slide(n int) Instruction          { return Instruction{Op: OpSlide, Int: int64(n)} }
func Pop(n int) Instruction            { return Instruction{Op: OpPop, Int: int64(n)} }
func Update(n int) Instruction         { return Instruction{Op: OpUpdate, Int: int64(n)} }
func Jump(addr int) Instruction        { return Instruction{Op: OpJump, Int: int64(addr)} }
func JumpFalse(addr int) Instruction   { return Instruction{Op: OpJumpFalse, Int: int64(addr)} }
func CaseJump(tag int) Instruction     { return Instruction{Op: OpCaseJump, Int: int64(tag)} }
func Split(n int) Instruction          { return Instruction{Op: OpSplit, Int: int64(n)} }

func Add() Instruction               { return Instruction{Op: OpAdd} }
func Sub() Instruction               { return Instruction{Op: OpSub} }
func Multiply() Instruction          { return Instruction{Op: OpMultiply} }
func Divide() Instruction            { return Instruction{Op: OpDivide} }
func Remainder() Instruction         { return Instruction{Op: OpRemainder} }
func IntEQ() Instruction             { return Instruction{Op: OpIntEQ} }
func IntLT() Instruction             { return Instruction{Op: OpIntLT} }
func IntLE() Instruction             { return Instruction{Op: OpIntLE} }
func IntGT() Instruction             { return Instruction{Op: OpIntGT} }
func IntGE() Instruction             { return Instruction{Op: OpIntGE} }
func DoubleAdd() Instruction         { return Instruction{Op: OpDoubleAdd} }
func DoubleSub() Instruction         { return Instruction{Op: OpDoubleSub} }
func DoubleMultiply() Instruction    { return Instruction{Op: OpDoubleMultiply} }
func DoubleDivide() Instruction      { return Instruction{Op: OpDoubleDivide} }
func DoubleRemainder() Instruction   { return Instruction{Op: OpDoubleRemainder} }
func DoubleEQ() Instruction          { return Instruction{Op: OpDoubleEQ} }
func DoubleLT() Instruction          { return Instruction{Op: OpDoubleLT} }
func DoubleLE() Instruction          { return Instruction{Op: OpDoubleLE} }
func DoubleGT() Instruction          { return Instruction{Op: OpDoubleGT} }
func DoubleGE() Instruction          { return Instruction{Op: OpDoubleGE} }
func IntToDouble() Instruction       { return Instruction{Op: OpIntToDouble} }
func DoubleToInt() Instruction       { return Instruction{Op: OpDoubleToInt} }

// Fail aborts execution with a non-exhaustive-match error. The compiler
// emits it as the fallthrough of a Case's last alternative.
func Fail() Instruction { return Instruction{Op: OpFail} }

var opcodeNames = map[Opcode]string{
	OpPushInt: "PushInt", OpPushFloat: "PushFloat", OpPushChar: "PushChar",
	OpPush: "Push", OpPushGlobal: "PushGlobal",
	OpPushDictionary: "PushDictionary", OpPushDictionaryMember: "PushDictionaryMember",
	OpMkap: "Mkap", OpPack: "Pack", OpEval: "Eval", OpUnwind: "Unwind",
	OpSlide: "Slide", OpPop: "Pop", OpUpdate: "Update",
	OpJump: "Jump", OpJumpFalse: "JumpFalse", OpCaseJump: "CaseJump", OpSplit: "Split",
	OpAdd: "Add", OpSub: "Sub", OpMultiply: "Multiply", OpDivide: "Divide", OpRemainder: "Remainder",
	OpIntEQ: "IntEQ", OpIntLT: "IntLT", OpIntLE: "IntLE", OpIntGT: "IntGT", OpIntGE: "IntGE",
	OpDoubleAdd: "DoubleAdd", OpDoubleSub: "DoubleSub", OpDoubleMultiply: "DoubleMultiply",
	OpDoubleDivide: "DoubleDivide", OpDoubleRemainder: "DoubleRemainder",
	OpDoubleEQ: "DoubleEQ", OpDoubleLT: "DoubleLT", OpDoubleLE: "DoubleLE",
	OpDoubleGT: "DoubleGT", OpDoubleGE: "DoubleGE",
	OpIntToDouble: "IntToDouble", OpDoubleToInt: "DoubleToInt",
	OpFail: "Fail",
}

func (instr Instruction) String() string {
	name, ok := opcodeNames[instr.Op]
	if !ok {
		return fmt.Sprintf("op(%d)", instr.Op)
	}
	switch instr.Op {
	case OpPushFloat:
		return fmt.Sprintf("%s %g", name, instr.Float)
	case OpPushChar:
		return fmt.Sprintf("%s %q", name, instr.Char)
	case OpPack:
		return fmt.Sprintf("%s %d %d", name, instr.Tag, instr.Arity)
	case OpPushInt, OpPush, OpPushGlobal, OpPushDictionary, OpPushDictionaryMember,
		OpSlide, OpPop, OpUpdate, OpJump, OpJumpFalse, OpCaseJump, OpSplit:
		return fmt.Sprintf("%s %d", name, instr.Int)
	default:
		return name
	}
}
