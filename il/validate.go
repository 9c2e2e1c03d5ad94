package il

import (
	"github.com/wippyai/dynbind/errors"
	"github.com/wippyai/dynbind/il/internal/binary"
)

// Validate checks the module for structural validity: type and member
// flags are coherent, every body is well formed, and every cross reference
// resolves to a definition or an imported reference.
func (m *Module) Validate() error {
	if err := m.validateTypes(); err != nil {
		return err
	}
	if err := m.validateMethods(); err != nil {
		return err
	}
	return m.validateReferences()
}

func validationError(kind errors.Kind, path []string, detail string, args ...any) error {
	return errors.New(errors.PhaseValidate, kind).Path(path...).Detail(detail, args...).Build()
}

func (m *Module) validateTypes() error {
	for _, t := range m.AllTypes() {
		path := []string{t.FullName()}
		if t.Name == "" {
			return validationError(errors.KindInvalidData, path, "type without a name")
		}
		if t.module != m {
			return validationError(errors.KindUnresolvedReference, path, "type is not attached to the module")
		}
		vis := t.Visibility()
		nestedVis := vis != TypeNotPublic && vis != TypePublic
		if t.DeclaringType == nil && nestedVis {
			return validationError(errors.KindInvalidVisibility, path, "top-level type has nested visibility 0x%x", uint32(vis))
		}
		if t.DeclaringType != nil && !nestedVis {
			return validationError(errors.KindInvalidVisibility, path, "nested type has top-level visibility 0x%x", uint32(vis))
		}
		for _, f := range t.Fields {
			if f.FieldType == nil {
				return validationError(errors.KindInvalidData, append(path, f.Name), "field without a type")
			}
			if f.DeclaringType != t {
				return validationError(errors.KindInvalidData, append(path, f.Name), "field declaring type mismatch")
			}
		}
	}
	return nil
}

func (m *Module) validateMethods() error {
	for _, t := range m.AllTypes() {
		for _, md := range t.Methods {
			path := []string{t.FullName(), md.Name}
			if md.DeclaringType != t {
				return validationError(errors.KindInvalidData, path, "method declaring type mismatch")
			}
			flagged := md.Attributes&MethodPInvokeImpl != 0
			if flagged != (md.PInvoke != nil) {
				return validationError(errors.KindInvalidData, path, "foreign import flag and descriptor disagree")
			}
			if md.PInvoke != nil && md.Body != nil {
				return validationError(errors.KindInvalidData, path, "foreign import with a body")
			}
			for _, p := range md.Params {
				if p.Type == nil {
					return validationError(errors.KindInvalidData, append(path, p.Name), "parameter without a type")
				}
			}
			if md.Body != nil {
				if err := validateBody(md, path); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateBody(md *MethodDef, path []string) error {
	body := md.Body
	inBody := make(map[*Instruction]bool, len(body.Instructions))
	for _, in := range body.Instructions {
		if in == nil {
			return validationError(errors.KindInvalidData, path, "nil instruction")
		}
		inBody[in] = true
	}
	vars := make(map[*Variable]int, len(body.Variables))
	for i, v := range body.Variables {
		vars[v] = i
	}

	for i, in := range body.Instructions {
		if !in.Opcode.Known() {
			return validationError(errors.KindInvalidData, path, "instruction %d: unknown opcode 0x%x", i, uint16(in.Opcode))
		}
		if !OperandFits(in.Opcode, in.Imm) {
			return validationError(errors.KindInvalidData, path, "instruction %d: %s has operand %s", i, in.Opcode, goTypeName(in.Imm))
		}
		index := -1
		switch imm := in.Imm.(type) {
		case BranchImm:
			if !inBody[imm.Target] {
				return validationError(errors.KindInvalidData, path, "instruction %d: branch target outside the body", i)
			}
		case SwitchImm:
			for _, target := range imm.Targets {
				if !inBody[target] {
					return validationError(errors.KindInvalidData, path, "instruction %d: switch target outside the body", i)
				}
			}
		case VarImm:
			idx, ok := vars[imm.Var]
			if !ok {
				return validationError(errors.KindInvalidData, path, "instruction %d: variable outside the body", i)
			}
			index = idx
		case ArgImm:
			slot := ArgSlot(md, imm)
			if slot < 0 {
				return validationError(errors.KindInvalidData, path, "instruction %d: parameter outside the method", i)
			}
			index = slot
		}
		if index > 0xFF && in.Opcode.ShortForm() {
			return validationError(errors.KindInvalidData, path, "instruction %d: %s index %d does not fit in one byte", i, in.Opcode, index)
		}
	}

	if n := len(body.Instructions); n > 0 {
		last := body.Instructions[n-1].Opcode
		switch last {
		case OpRet, OpThrow, OpBr, OpBrS, OpLeave, OpLeaveS:
		default:
			return validationError(errors.KindInvalidData, path, "body falls through its last instruction %s", last)
		}
	}
	return nil
}

// validateReferences resolves every reference the encoder would write.
func (m *Module) validateReferences() error {
	e := newEncoder(m)
	err := func() error {
		sink := binary.NewWriter()
		for _, write := range []func(*binary.Writer) error{
			e.writeTypeRefs,
			e.writeMembers,
			e.writeMemberRefs,
			e.writeAttributes,
			e.writeCode,
		} {
			if err := write(sink); err != nil {
				return err
			}
		}
		return nil
	}()
	if ee, ok := err.(*errors.Error); ok {
		ee.Phase = errors.PhaseValidate
		return ee
	}
	return err
}
