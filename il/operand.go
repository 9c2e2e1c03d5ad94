package il

// OperandFits reports whether imm has the shape op expects. A nil imm fits
// only opcodes without an operand.
func OperandFits(op Opcode, imm Imm) bool {
	var ok bool
	switch op.OperandKind() {
	case InlineNone:
		return imm == nil
	case ShortInlineI:
		_, ok = imm.(I8Imm)
	case InlineI:
		_, ok = imm.(I32Imm)
	case InlineI8:
		_, ok = imm.(I64Imm)
	case ShortInlineR:
		_, ok = imm.(F32Imm)
	case InlineR:
		_, ok = imm.(F64Imm)
	case InlineString:
		_, ok = imm.(StringImm)
	case InlineType:
		_, ok = imm.(TypeImm)
	case InlineMethod:
		_, ok = imm.(MethodImm)
	case InlineField:
		_, ok = imm.(FieldImm)
	case InlineTok:
		switch imm.(type) {
		case TypeImm, MethodImm, FieldImm:
			ok = true
		}
	case ShortInlineBrTarget, InlineBrTarget:
		_, ok = imm.(BranchImm)
	case InlineSwitch:
		_, ok = imm.(SwitchImm)
	case ShortInlineVar, InlineVar:
		_, ok = imm.(VarImm)
	case ShortInlineArg, InlineArg:
		_, ok = imm.(ArgImm)
	}
	return ok
}

// ShortForm reports whether the opcode stores its variable or argument
// index in a single byte.
func (op Opcode) ShortForm() bool {
	switch op.OperandKind() {
	case ShortInlineVar, ShortInlineArg:
		return true
	}
	return false
}

// ArgSlot returns the argument slot an ArgImm denotes in method, or -1.
// A nil parameter is the implicit instance argument.
func ArgSlot(method *MethodDef, imm ArgImm) int {
	if imm.Param == nil {
		if method.HasThis() {
			return 0
		}
		return -1
	}
	return method.ArgIndex(imm.Param)
}
