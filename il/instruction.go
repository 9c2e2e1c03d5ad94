package il

import (
	"fmt"
	"strconv"
	"strings"
)

// Imm is an instruction operand. The set of operand kinds is closed:
// only the types in this file implement it.
type Imm interface {
	imm()
}

// I8Imm is the operand of ldc.i4.s.
type I8Imm struct {
	Value int8
}

// I32Imm is the operand of ldc.i4.
type I32Imm struct {
	Value int32
}

// I64Imm is the operand of ldc.i8.
type I64Imm struct {
	Value int64
}

// F32Imm is the operand of ldc.r4.
type F32Imm struct {
	Value float32
}

// F64Imm is the operand of ldc.r8.
type F64Imm struct {
	Value float64
}

// StringImm is the operand of ldstr.
type StringImm struct {
	Value string
}

// TypeImm is a type operand (castclass, box, ldtoken, ...).
type TypeImm struct {
	Type Type
}

// MethodImm is a method operand (call, callvirt, newobj, ldftn, ldtoken).
type MethodImm struct {
	Method Method
}

// FieldImm is a field operand (ldsfld, stsfld, ldtoken, ...).
type FieldImm struct {
	Field Field
}

// BranchImm holds the target of a branch. The target is shared, never copied.
type BranchImm struct {
	Target *Instruction
}

// SwitchImm holds the jump table of a switch.
type SwitchImm struct {
	Targets []*Instruction
}

// VarImm refers to a local variable of the enclosing body.
type VarImm struct {
	Var *Variable
}

// ArgImm refers to a declared parameter of the enclosing method.
type ArgImm struct {
	Param *ParamDef
}

func (I8Imm) imm()     {}
func (I32Imm) imm()    {}
func (I64Imm) imm()    {}
func (F32Imm) imm()    {}
func (F64Imm) imm()    {}
func (StringImm) imm() {}
func (TypeImm) imm()   {}
func (MethodImm) imm() {}
func (FieldImm) imm()  {}
func (BranchImm) imm() {}
func (SwitchImm) imm() {}
func (VarImm) imm()    {}
func (ArgImm) imm()    {}

// Instruction is a single IL instruction. Instructions are referenced by
// pointer so branch operands stay valid while bodies are edited.
type Instruction struct {
	Imm    Imm
	Opcode Opcode
}

// Op creates an instruction without an operand.
func Op(op Opcode) *Instruction {
	return &Instruction{Opcode: op}
}

// OpImm creates an instruction with an operand.
func OpImm(op Opcode, imm Imm) *Instruction {
	return &Instruction{Opcode: op, Imm: imm}
}

// CallTarget returns the method operand of call, callvirt and newobj.
func (i *Instruction) CallTarget() (Method, bool) {
	switch i.Opcode {
	case OpCall, OpCallvirt, OpNewobj:
		if imm, ok := i.Imm.(MethodImm); ok {
			return imm.Method, true
		}
	}
	return nil, false
}

// IsBranch reports whether the instruction transfers control to a target.
func (i *Instruction) IsBranch() bool {
	switch i.Opcode.OperandKind() {
	case ShortInlineBrTarget, InlineBrTarget, InlineSwitch:
		return true
	}
	return false
}

func (i *Instruction) String() string {
	var b strings.Builder
	b.WriteString(i.Opcode.String())
	switch imm := i.Imm.(type) {
	case nil:
	case I8Imm:
		b.WriteString(" " + strconv.Itoa(int(imm.Value)))
	case I32Imm:
		b.WriteString(" " + strconv.Itoa(int(imm.Value)))
	case I64Imm:
		b.WriteString(" " + strconv.FormatInt(imm.Value, 10))
	case F32Imm:
		b.WriteString(" " + strconv.FormatFloat(float64(imm.Value), 'g', -1, 32))
	case F64Imm:
		b.WriteString(" " + strconv.FormatFloat(imm.Value, 'g', -1, 64))
	case StringImm:
		b.WriteString(" " + strconv.Quote(imm.Value))
	case TypeImm:
		b.WriteString(" " + imm.Type.FullName())
	case MethodImm:
		b.WriteString(" " + imm.Method.FullName())
	case FieldImm:
		b.WriteString(" " + imm.Field.FullName())
	case BranchImm:
		b.WriteString(" -> " + imm.Target.Opcode.String())
	case SwitchImm:
		b.WriteString(fmt.Sprintf(" (%d targets)", len(imm.Targets)))
	case VarImm:
		b.WriteString(" V_" + strconv.Itoa(imm.Var.Index))
	case ArgImm:
		b.WriteString(" " + imm.Param.Name)
	default:
		b.WriteString(fmt.Sprintf(" %T", imm))
	}
	return b.String()
}

// Variable is a local variable slot of a method body.
type Variable struct {
	Type  Type
	Index int
}

// MethodBody is the IL implementation of a method.
type MethodBody struct {
	Variables    []*Variable
	Instructions []*Instruction
	MaxStack     int
	InitLocals   bool
}

// NewBody creates an empty body with the conventional default stack size.
func NewBody() *MethodBody {
	return &MethodBody{MaxStack: 8, InitLocals: true}
}

// AddVariable appends a local of type t and returns it.
func (b *MethodBody) AddVariable(t Type) *Variable {
	v := &Variable{Type: t, Index: len(b.Variables)}
	b.Variables = append(b.Variables, v)
	return v
}

// Append adds instructions at the end of the body.
func (b *MethodBody) Append(instrs ...*Instruction) {
	b.Instructions = append(b.Instructions, instrs...)
}

// Insert places instrs before position pos.
func (b *MethodBody) Insert(pos int, instrs ...*Instruction) {
	if len(instrs) == 0 {
		return
	}
	out := make([]*Instruction, 0, len(b.Instructions)+len(instrs))
	out = append(out, b.Instructions[:pos]...)
	out = append(out, instrs...)
	out = append(out, b.Instructions[pos:]...)
	b.Instructions = out
}

// RemoveAt removes and returns the instruction at pos.
func (b *MethodBody) RemoveAt(pos int) *Instruction {
	removed := b.Instructions[pos]
	b.Instructions = append(b.Instructions[:pos], b.Instructions[pos+1:]...)
	return removed
}

// IndexOf returns the position of instr, or -1.
func (b *MethodBody) IndexOf(instr *Instruction) int {
	for i, in := range b.Instructions {
		if in == instr {
			return i
		}
	}
	return -1
}

// Retarget points every branch aimed at from to to instead.
func (b *MethodBody) Retarget(from, to *Instruction) int {
	n := 0
	for _, in := range b.Instructions {
		switch imm := in.Imm.(type) {
		case BranchImm:
			if imm.Target == from {
				in.Imm = BranchImm{Target: to}
				n++
			}
		case SwitchImm:
			for i, t := range imm.Targets {
				if t == from {
					imm.Targets[i] = to
					n++
				}
			}
		}
	}
	return n
}
