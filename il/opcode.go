package il

import "fmt"

// Opcode is an instruction operation code. Two-byte opcodes carry the 0xFE
// prefix in the high byte.
type Opcode uint16

// OperandKind says what operand an opcode takes.
type OperandKind byte

const (
	InlineNone OperandKind = iota
	ShortInlineI
	InlineI
	InlineI8
	ShortInlineR
	InlineR
	InlineString
	InlineType
	InlineMethod
	InlineField
	InlineTok
	ShortInlineBrTarget
	InlineBrTarget
	InlineSwitch
	ShortInlineVar
	InlineVar
	ShortInlineArg
	InlineArg
)

// Single-byte opcodes
const (
	OpNop       Opcode = 0x00
	OpBreak     Opcode = 0x01
	OpLdarg0    Opcode = 0x02
	OpLdarg1    Opcode = 0x03
	OpLdarg2    Opcode = 0x04
	OpLdarg3    Opcode = 0x05
	OpLdloc0    Opcode = 0x06
	OpLdloc1    Opcode = 0x07
	OpLdloc2    Opcode = 0x08
	OpLdloc3    Opcode = 0x09
	OpStloc0    Opcode = 0x0A
	OpStloc1    Opcode = 0x0B
	OpStloc2    Opcode = 0x0C
	OpStloc3    Opcode = 0x0D
	OpLdargS    Opcode = 0x0E
	OpLdargaS   Opcode = 0x0F
	OpStargS    Opcode = 0x10
	OpLdlocS    Opcode = 0x11
	OpLdlocaS   Opcode = 0x12
	OpStlocS    Opcode = 0x13
	OpLdnull    Opcode = 0x14
	OpLdcI4M1   Opcode = 0x15
	OpLdcI40    Opcode = 0x16
	OpLdcI41    Opcode = 0x17
	OpLdcI42    Opcode = 0x18
	OpLdcI43    Opcode = 0x19
	OpLdcI44    Opcode = 0x1A
	OpLdcI45    Opcode = 0x1B
	OpLdcI46    Opcode = 0x1C
	OpLdcI47    Opcode = 0x1D
	OpLdcI48    Opcode = 0x1E
	OpLdcI4S    Opcode = 0x1F
	OpLdcI4     Opcode = 0x20
	OpLdcI8     Opcode = 0x21
	OpLdcR4     Opcode = 0x22
	OpLdcR8     Opcode = 0x23
	OpDup       Opcode = 0x25
	OpPop       Opcode = 0x26
	OpCall      Opcode = 0x28
	OpRet       Opcode = 0x2A
	OpBrS       Opcode = 0x2B
	OpBrfalseS  Opcode = 0x2C
	OpBrtrueS   Opcode = 0x2D
	OpBeqS      Opcode = 0x2E
	OpBr        Opcode = 0x38
	OpBrfalse   Opcode = 0x39
	OpBrtrue    Opcode = 0x3A
	OpBeq       Opcode = 0x3B
	OpSwitch    Opcode = 0x45
	OpAdd       Opcode = 0x58
	OpSub       Opcode = 0x59
	OpMul       Opcode = 0x5A
	OpCallvirt  Opcode = 0x6F
	OpLdstr     Opcode = 0x72
	OpNewobj    Opcode = 0x73
	OpCastclass Opcode = 0x74
	OpIsinst    Opcode = 0x75
	OpThrow     Opcode = 0x7A
	OpLdfld     Opcode = 0x7B
	OpLdflda    Opcode = 0x7C
	OpStfld     Opcode = 0x7D
	OpLdsfld    Opcode = 0x7E
	OpLdsflda   Opcode = 0x7F
	OpStsfld    Opcode = 0x80
	OpBox       Opcode = 0x8C
	OpNewarr    Opcode = 0x8D
	OpLdlen     Opcode = 0x8E
	OpLdtoken   Opcode = 0xD0
	OpLeave     Opcode = 0xDD
	OpLeaveS    Opcode = 0xDE
)

// Two-byte opcodes (0xFE prefix)
const (
	OpCeq    Opcode = 0xFE01
	OpLdftn  Opcode = 0xFE06
	OpLdarg  Opcode = 0xFE09
	OpLdarga Opcode = 0xFE0A
	OpStarg  Opcode = 0xFE0B
	OpLdloc  Opcode = 0xFE0C
	OpLdloca Opcode = 0xFE0D
	OpStloc  Opcode = 0xFE0E
)

// PrefixTwoByte introduces a two-byte opcode in the encoded stream.
const PrefixTwoByte byte = 0xFE

type opInfo struct {
	name    string
	operand OperandKind
}

var opcodeTable = map[Opcode]opInfo{
	OpNop:       {"nop", InlineNone},
	OpBreak:     {"break", InlineNone},
	OpLdarg0:    {"ldarg.0", InlineNone},
	OpLdarg1:    {"ldarg.1", InlineNone},
	OpLdarg2:    {"ldarg.2", InlineNone},
	OpLdarg3:    {"ldarg.3", InlineNone},
	OpLdloc0:    {"ldloc.0", InlineNone},
	OpLdloc1:    {"ldloc.1", InlineNone},
	OpLdloc2:    {"ldloc.2", InlineNone},
	OpLdloc3:    {"ldloc.3", InlineNone},
	OpStloc0:    {"stloc.0", InlineNone},
	OpStloc1:    {"stloc.1", InlineNone},
	OpStloc2:    {"stloc.2", InlineNone},
	OpStloc3:    {"stloc.3", InlineNone},
	OpLdargS:    {"ldarg.s", ShortInlineArg},
	OpLdargaS:   {"ldarga.s", ShortInlineArg},
	OpStargS:    {"starg.s", ShortInlineArg},
	OpLdlocS:    {"ldloc.s", ShortInlineVar},
	OpLdlocaS:   {"ldloca.s", ShortInlineVar},
	OpStlocS:    {"stloc.s", ShortInlineVar},
	OpLdnull:    {"ldnull", InlineNone},
	OpLdcI4M1:   {"ldc.i4.m1", InlineNone},
	OpLdcI40:    {"ldc.i4.0", InlineNone},
	OpLdcI41:    {"ldc.i4.1", InlineNone},
	OpLdcI42:    {"ldc.i4.2", InlineNone},
	OpLdcI43:    {"ldc.i4.3", InlineNone},
	OpLdcI44:    {"ldc.i4.4", InlineNone},
	OpLdcI45:    {"ldc.i4.5", InlineNone},
	OpLdcI46:    {"ldc.i4.6", InlineNone},
	OpLdcI47:    {"ldc.i4.7", InlineNone},
	OpLdcI48:    {"ldc.i4.8", InlineNone},
	OpLdcI4S:    {"ldc.i4.s", ShortInlineI},
	OpLdcI4:     {"ldc.i4", InlineI},
	OpLdcI8:     {"ldc.i8", InlineI8},
	OpLdcR4:     {"ldc.r4", ShortInlineR},
	OpLdcR8:     {"ldc.r8", InlineR},
	OpDup:       {"dup", InlineNone},
	OpPop:       {"pop", InlineNone},
	OpCall:      {"call", InlineMethod},
	OpRet:       {"ret", InlineNone},
	OpBrS:       {"br.s", ShortInlineBrTarget},
	OpBrfalseS:  {"brfalse.s", ShortInlineBrTarget},
	OpBrtrueS:   {"brtrue.s", ShortInlineBrTarget},
	OpBeqS:      {"beq.s", ShortInlineBrTarget},
	OpBr:        {"br", InlineBrTarget},
	OpBrfalse:   {"brfalse", InlineBrTarget},
	OpBrtrue:    {"brtrue", InlineBrTarget},
	OpBeq:       {"beq", InlineBrTarget},
	OpSwitch:    {"switch", InlineSwitch},
	OpAdd:       {"add", InlineNone},
	OpSub:       {"sub", InlineNone},
	OpMul:       {"mul", InlineNone},
	OpCallvirt:  {"callvirt", InlineMethod},
	OpLdstr:     {"ldstr", InlineString},
	OpNewobj:    {"newobj", InlineMethod},
	OpCastclass: {"castclass", InlineType},
	OpIsinst:    {"isinst", InlineType},
	OpThrow:     {"throw", InlineNone},
	OpLdfld:     {"ldfld", InlineField},
	OpLdflda:    {"ldflda", InlineField},
	OpStfld:     {"stfld", InlineField},
	OpLdsfld:    {"ldsfld", InlineField},
	OpLdsflda:   {"ldsflda", InlineField},
	OpStsfld:    {"stsfld", InlineField},
	OpBox:       {"box", InlineType},
	OpNewarr:    {"newarr", InlineType},
	OpLdlen:     {"ldlen", InlineNone},
	OpLdtoken:   {"ldtoken", InlineTok},
	OpLeave:     {"leave", InlineBrTarget},
	OpLeaveS:    {"leave.s", ShortInlineBrTarget},
	OpCeq:       {"ceq", InlineNone},
	OpLdftn:     {"ldftn", InlineMethod},
	OpLdarg:     {"ldarg", InlineArg},
	OpLdarga:    {"ldarga", InlineArg},
	OpStarg:     {"starg", InlineArg},
	OpLdloc:     {"ldloc", InlineVar},
	OpLdloca:    {"ldloca", InlineVar},
	OpStloc:     {"stloc", InlineVar},
}

func (op Opcode) String() string {
	if info, ok := opcodeTable[op]; ok {
		return info.name
	}
	return fmt.Sprintf("op(0x%x)", uint16(op))
}

// Known reports whether the opcode is part of the supported instruction set.
func (op Opcode) Known() bool {
	_, ok := opcodeTable[op]
	return ok
}

// OperandKind returns the operand the opcode expects.
func (op Opcode) OperandKind() OperandKind {
	return opcodeTable[op].operand
}

// TwoByte reports whether the opcode is encoded with the 0xFE prefix.
func (op Opcode) TwoByte() bool {
	return op > 0xFF
}
