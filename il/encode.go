package il

import (
	"github.com/wippyai/dynbind/errors"
	"github.com/wippyai/dynbind/il/internal/binary"
	"go.uber.org/zap"
)

// encoder assigns table rows and writes sections. Every reference reached
// from the module must map to a row, otherwise encoding fails.
type encoder struct {
	m            *Module
	typeRefRow   map[*TypeRef]int
	typeDefRow   map[*TypeDef]int
	fieldRow     map[*FieldDef]int
	methodRow    map[*MethodDef]int
	paramRow     map[*ParamDef]int
	methodRefRow map[*MethodRef]int
	fieldRefRow  map[*FieldRef]int
	types        []*TypeDef
	methods      []*MethodDef
	path         []string
}

func newEncoder(m *Module) *encoder {
	e := &encoder{
		m:            m,
		typeRefRow:   make(map[*TypeRef]int, len(m.TypeRefs)),
		typeDefRow:   make(map[*TypeDef]int),
		fieldRow:     make(map[*FieldDef]int),
		methodRow:    make(map[*MethodDef]int),
		paramRow:     make(map[*ParamDef]int),
		methodRefRow: make(map[*MethodRef]int, len(m.MethodRefs)),
		fieldRefRow:  make(map[*FieldRef]int, len(m.FieldRefs)),
		types:        m.AllTypes(),
	}
	for i, r := range m.TypeRefs {
		e.typeRefRow[r] = i + 1
	}
	for i, r := range m.MethodRefs {
		e.methodRefRow[r] = i + 1
	}
	for i, r := range m.FieldRefs {
		e.fieldRefRow[r] = i + 1
	}
	for i, t := range e.types {
		e.typeDefRow[t] = i + 1
		for _, f := range t.Fields {
			e.fieldRow[f] = len(e.fieldRow) + 1
		}
		for _, md := range t.Methods {
			e.methodRow[md] = len(e.methodRow) + 1
			e.methods = append(e.methods, md)
			for _, p := range md.Params {
				e.paramRow[p] = len(e.paramRow) + 1
			}
		}
	}
	return e
}

// Encode serializes the module to the container format. It fails if any
// instruction, signature or attribute refers to something the module
// neither defines nor has imported.
func (m *Module) Encode() ([]byte, error) {
	e := newEncoder(m)
	w := binary.NewWriter()

	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	sec := binary.NewWriter()
	sec.WriteName(m.Name)
	sec.WriteName(m.CorLib)
	w.WriteSection(SectionModule, sec.Bytes())

	steps := []struct {
		write func(*binary.Writer) error
		id    byte
	}{
		{e.writeTypeRefs, SectionTypeRef},
		{e.writeTypeDefs, SectionTypeDef},
		{e.writeMembers, SectionMember},
		{e.writeMemberRefs, SectionMemberRef},
		{e.writeAttributes, SectionAttribute},
		{e.writeCode, SectionCode},
	}
	for _, step := range steps {
		sec := binary.NewWriter()
		if err := step.write(sec); err != nil {
			return nil, err
		}
		w.WriteSection(step.id, sec.Bytes())
	}

	for _, cs := range m.CustomSections {
		sec := binary.NewWriter()
		sec.WriteName(cs.Name)
		sec.WriteBytes(cs.Data)
		w.WriteSection(SectionCustom, sec.Bytes())
	}

	Logger().Debug("encoded module",
		zap.String("module", m.Name),
		zap.Int("types", len(e.types)),
		zap.Int("methods", len(e.methods)),
		zap.Int("bytes", w.Len()))
	return w.Bytes(), nil
}

func (e *encoder) unresolved(what, name string) error {
	return errors.New(errors.PhaseEncode, errors.KindUnresolvedReference).
		Path(e.path...).
		Member(name).
		Detail("%s is not defined or imported by the module", what).
		Build()
}

func (e *encoder) invalid(goType, detail string, args ...any) error {
	return errors.New(errors.PhaseEncode, errors.KindInvalidData).
		Path(e.path...).
		GoType(goType).
		Detail(detail, args...).
		Build()
}

func (e *encoder) writeSig(w *binary.Writer, t Type) error {
	switch t := t.(type) {
	case nil:
		w.Byte(sigNone)
	case *TypeRef:
		row, ok := e.typeRefRow[t]
		if !ok {
			return e.unresolved("type reference", t.FullName())
		}
		w.Byte(sigTypeRef)
		w.WriteU32(uint32(row))
	case *TypeDef:
		row, ok := e.typeDefRow[t]
		if !ok {
			return e.unresolved("type definition", t.FullName())
		}
		w.Byte(sigTypeDef)
		w.WriteU32(uint32(row))
	case *ArrayType:
		w.Byte(sigArray)
		return e.writeSig(w, t.Elem)
	case *ByRefType:
		w.Byte(sigByRef)
		return e.writeSig(w, t.Elem)
	case *PointerType:
		w.Byte(sigPointer)
		return e.writeSig(w, t.Elem)
	case *GenericInstType:
		w.Byte(sigGenericInst)
		if err := e.writeSig(w, t.Elem); err != nil {
			return err
		}
		w.WriteU32(uint32(len(t.Args)))
		for _, a := range t.Args {
			if err := e.writeSig(w, a); err != nil {
				return err
			}
		}
	case *GenericParam:
		if t.Method {
			w.Byte(sigGenericMVar)
		} else {
			w.Byte(sigGenericVar)
		}
		w.WriteU32(uint32(t.Position))
	default:
		return e.invalid(goTypeName(t), "unknown type signature")
	}
	return nil
}

func (e *encoder) methodToken(method Method) (Token, error) {
	switch method := method.(type) {
	case *MethodDef:
		if row, ok := e.methodRow[method]; ok {
			return NewToken(TableMethod, row), nil
		}
		return 0, e.unresolved("method definition", method.FullName())
	case *MethodRef:
		if row, ok := e.methodRefRow[method]; ok {
			return NewToken(TableMethodRef, row), nil
		}
		return 0, e.unresolved("method reference", method.FullName())
	case nil:
		return 0, e.invalid("<nil>", "missing method")
	default:
		return 0, e.invalid(goTypeName(method), "unknown method kind")
	}
}

func (e *encoder) fieldToken(field Field) (Token, error) {
	switch field := field.(type) {
	case *FieldDef:
		if row, ok := e.fieldRow[field]; ok {
			return NewToken(TableField, row), nil
		}
		return 0, e.unresolved("field definition", field.Name)
	case *FieldRef:
		if row, ok := e.fieldRefRow[field]; ok {
			return NewToken(TableFieldRef, row), nil
		}
		return 0, e.unresolved("field reference", field.FullName())
	case nil:
		return 0, e.invalid("<nil>", "missing field")
	default:
		return 0, e.invalid(goTypeName(field), "unknown field kind")
	}
}

func (e *encoder) writeTypeRefs(w *binary.Writer) error {
	w.WriteU32(uint32(len(e.m.TypeRefs)))
	for _, r := range e.m.TypeRefs {
		w.WriteName(r.Scope)
		w.WriteName(r.Namespace)
		w.WriteName(r.Name)
		w.WriteBool(r.IsValueType)
		declaring := 0
		if r.DeclaringType != nil {
			row, ok := e.typeRefRow[r.DeclaringType]
			if !ok {
				return e.unresolved("declaring type reference", r.DeclaringType.FullName())
			}
			declaring = row
		}
		w.WriteU32(uint32(declaring))
	}
	return nil
}

func (e *encoder) writeTypeDefs(w *binary.Writer) error {
	w.WriteU32(uint32(len(e.types)))
	for _, t := range e.types {
		w.WriteName(t.Namespace)
		w.WriteName(t.Name)
		w.WriteU32(uint32(t.Attributes))
		declaring := 0
		if t.DeclaringType != nil {
			declaring = e.typeDefRow[t.DeclaringType]
		}
		w.WriteU32(uint32(declaring))
	}
	return nil
}

func (e *encoder) writeMarshal(w *binary.Writer, mi *MarshalInfo) {
	if mi == nil {
		w.WriteBool(false)
		return
	}
	w.WriteBool(true)
	w.Byte(byte(mi.NativeType))
	w.WriteBlob(mi.Extra)
}

func (e *encoder) writeMembers(w *binary.Writer) error {
	for _, t := range e.types {
		e.path = []string{t.FullName()}
		if err := e.writeSig(w, t.BaseType); err != nil {
			return err
		}
		w.WriteU32(uint32(len(t.Fields)))
		for _, f := range t.Fields {
			w.WriteName(f.Name)
			w.WriteU32(uint32(f.Attributes))
			if err := e.writeSig(w, f.FieldType); err != nil {
				return err
			}
		}
		w.WriteU32(uint32(len(t.Methods)))
		for _, md := range t.Methods {
			e.path = []string{t.FullName(), md.Name}
			if err := e.writeMethod(w, md); err != nil {
				return err
			}
		}
	}
	e.path = nil
	return nil
}

func (e *encoder) writeMethod(w *binary.Writer, md *MethodDef) error {
	w.WriteName(md.Name)
	w.WriteU32(uint32(md.Attributes))
	w.WriteU32(uint32(md.ImplAttributes))
	w.Byte(byte(md.CallConv))

	if err := e.writeSig(w, md.Return.Type); err != nil {
		return err
	}
	w.WriteU32(uint32(md.Return.Attributes))
	e.writeMarshal(w, md.Return.Marshal)

	w.WriteU32(uint32(len(md.Params)))
	for _, p := range md.Params {
		w.WriteName(p.Name)
		w.WriteU32(uint32(p.Attributes))
		if err := e.writeSig(w, p.Type); err != nil {
			return err
		}
		e.writeMarshal(w, p.Marshal)
	}

	if md.PInvoke == nil {
		w.WriteBool(false)
		return nil
	}
	w.WriteBool(true)
	w.WriteName(md.PInvoke.Module)
	w.WriteName(md.PInvoke.EntryPoint)
	w.WriteU32(uint32(md.PInvoke.Attributes))
	return nil
}

func (e *encoder) writeMemberRefs(w *binary.Writer) error {
	w.WriteU32(uint32(len(e.m.MethodRefs)))
	for _, r := range e.m.MethodRefs {
		e.path = []string{r.Name}
		if err := e.writeSig(w, r.DeclaringType); err != nil {
			return err
		}
		w.WriteName(r.Name)
		if err := e.writeSig(w, r.ReturnType); err != nil {
			return err
		}
		w.WriteBool(r.HasThis)
		w.Byte(byte(r.CallConv))
		w.WriteU32(uint32(len(r.Params)))
		for _, p := range r.Params {
			if err := e.writeSig(w, p); err != nil {
				return err
			}
		}
	}
	w.WriteU32(uint32(len(e.m.FieldRefs)))
	for _, r := range e.m.FieldRefs {
		e.path = []string{r.Name}
		if err := e.writeSig(w, r.DeclaringType); err != nil {
			return err
		}
		w.WriteName(r.Name)
		if err := e.writeSig(w, r.FieldType); err != nil {
			return err
		}
	}
	e.path = nil
	return nil
}

type attrOwner struct {
	attrs []*CustomAttribute
	kind  byte
	row   int
}

// attributeOwners lists every attribute list in traversal order so the
// decoder can append them back in the same order.
func (e *encoder) attributeOwners() []attrOwner {
	var owners []attrOwner
	add := func(kind byte, row int, attrs []*CustomAttribute) {
		if len(attrs) > 0 {
			owners = append(owners, attrOwner{attrs: attrs, kind: kind, row: row})
		}
	}
	for _, t := range e.types {
		add(ownerType, e.typeDefRow[t], t.CustomAttributes)
		for _, f := range t.Fields {
			add(ownerField, e.fieldRow[f], f.CustomAttributes)
		}
		for _, md := range t.Methods {
			add(ownerMethod, e.methodRow[md], md.CustomAttributes)
			add(ownerReturn, e.methodRow[md], md.Return.CustomAttributes)
			for _, p := range md.Params {
				add(ownerParam, e.paramRow[p], p.CustomAttributes)
			}
		}
	}
	return owners
}

func (e *encoder) writeAttributes(w *binary.Writer) error {
	owners := e.attributeOwners()
	total := 0
	for _, o := range owners {
		total += len(o.attrs)
	}
	w.WriteU32(uint32(total))
	for _, o := range owners {
		for _, a := range o.attrs {
			w.Byte(o.kind)
			w.WriteU32(uint32(o.row))
			tok, err := e.methodToken(a.Constructor)
			if err != nil {
				return err
			}
			w.WriteU32LE(uint32(tok))
			w.WriteU32(uint32(len(a.Args)))
			for _, arg := range a.Args {
				if err := e.writeAttrArg(w, arg); err != nil {
					return err
				}
			}
			for _, named := range [][]NamedArg{a.Fields, a.Properties} {
				w.WriteU32(uint32(len(named)))
				for _, n := range named {
					w.WriteName(n.Name)
					if err := e.writeAttrArg(w, n.Arg); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (e *encoder) writeAttrArg(w *binary.Writer, arg AttrArg) error {
	if err := e.writeSig(w, arg.Type); err != nil {
		return err
	}
	switch v := arg.Value.(type) {
	case nil:
		w.Byte(valNil)
	case bool:
		w.Byte(valBool)
		w.WriteBool(v)
	case int32:
		w.Byte(valInt32)
		w.WriteS32(v)
	case int64:
		w.Byte(valInt64)
		w.WriteU64LE(uint64(v))
	case float64:
		w.Byte(valFloat64)
		w.WriteF64(v)
	case string:
		w.Byte(valString)
		w.WriteName(v)
	case Type:
		w.Byte(valType)
		return e.writeSig(w, v)
	default:
		return e.invalid(goTypeName(v), "unsupported attribute argument value")
	}
	return nil
}

func (e *encoder) writeCode(w *binary.Writer) error {
	var bodies []*MethodDef
	for _, md := range e.methods {
		if md.Body != nil {
			bodies = append(bodies, md)
		}
	}
	w.WriteU32(uint32(len(bodies)))
	for _, md := range bodies {
		e.path = []string{md.DeclaringType.FullName(), md.Name}
		w.WriteU32(uint32(e.methodRow[md]))
		if err := e.writeBody(w, md); err != nil {
			return err
		}
	}
	e.path = nil
	return nil
}

func (e *encoder) writeBody(w *binary.Writer, md *MethodDef) error {
	body := md.Body
	w.WriteU32(uint32(body.MaxStack))
	w.WriteBool(body.InitLocals)

	varIndex := make(map[*Variable]int, len(body.Variables))
	w.WriteU32(uint32(len(body.Variables)))
	for i, v := range body.Variables {
		varIndex[v] = i
		if err := e.writeSig(w, v.Type); err != nil {
			return err
		}
	}

	instrIndex := make(map[*Instruction]int, len(body.Instructions))
	for i, in := range body.Instructions {
		instrIndex[in] = i
	}

	w.WriteU32(uint32(len(body.Instructions)))
	for i, in := range body.Instructions {
		if err := e.writeInstruction(w, md, in, varIndex, instrIndex); err != nil {
			if ee, ok := err.(*errors.Error); ok && ee.Value == nil {
				ee.Value = i
			}
			return err
		}
	}
	return nil
}

func (e *encoder) writeInstruction(w *binary.Writer, md *MethodDef, in *Instruction, varIndex map[*Variable]int, instrIndex map[*Instruction]int) error {
	op := in.Opcode
	if !op.Known() {
		return e.invalid(goTypeName(in.Imm), "unknown opcode 0x%x", uint16(op))
	}
	if !OperandFits(op, in.Imm) {
		return e.invalid(goTypeName(in.Imm), "operand does not fit %s", op)
	}

	if op.TwoByte() {
		w.Byte(PrefixTwoByte)
	}
	w.Byte(byte(op))

	branch := func(target *Instruction) error {
		idx, ok := instrIndex[target]
		if !ok {
			return e.invalid("*il.Instruction", "%s targets an instruction outside the body", op)
		}
		w.WriteU32(uint32(idx))
		return nil
	}
	index := func(n int) error {
		if op.ShortForm() {
			if n > 0xFF {
				return e.invalid(goTypeName(in.Imm), "%s index %d does not fit in one byte", op, n)
			}
			w.Byte(byte(n))
			return nil
		}
		if n > 0xFFFF {
			return e.invalid(goTypeName(in.Imm), "%s index %d out of range", op, n)
		}
		w.WriteU16LE(uint16(n))
		return nil
	}

	switch imm := in.Imm.(type) {
	case nil:
	case I8Imm:
		w.Byte(byte(imm.Value))
	case I32Imm:
		w.WriteU32LE(uint32(imm.Value))
	case I64Imm:
		w.WriteU64LE(uint64(imm.Value))
	case F32Imm:
		w.WriteF32(imm.Value)
	case F64Imm:
		w.WriteF64(imm.Value)
	case StringImm:
		w.WriteName(imm.Value)
	case TypeImm:
		if op == OpLdtoken {
			w.Byte(tokType)
		}
		return e.writeSig(w, imm.Type)
	case MethodImm:
		if op == OpLdtoken {
			w.Byte(tokMethod)
		}
		tok, err := e.methodToken(imm.Method)
		if err != nil {
			return err
		}
		w.WriteU32LE(uint32(tok))
	case FieldImm:
		if op == OpLdtoken {
			w.Byte(tokField)
		}
		tok, err := e.fieldToken(imm.Field)
		if err != nil {
			return err
		}
		w.WriteU32LE(uint32(tok))
	case BranchImm:
		return branch(imm.Target)
	case SwitchImm:
		w.WriteU32(uint32(len(imm.Targets)))
		for _, t := range imm.Targets {
			if err := branch(t); err != nil {
				return err
			}
		}
	case VarImm:
		idx, ok := varIndex[imm.Var]
		if !ok {
			return e.invalid("*il.Variable", "%s refers to a variable outside the body", op)
		}
		return index(idx)
	case ArgImm:
		slot := ArgSlot(md, imm)
		if slot < 0 {
			return e.invalid("*il.ParamDef", "%s refers to a parameter outside the method", op)
		}
		return index(slot)
	default:
		return e.invalid(goTypeName(imm), "unsupported operand")
	}
	return nil
}
