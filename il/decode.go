package il

import (
	"errors"
	"fmt"
	"io"

	"github.com/wippyai/dynbind/il/internal/binary"
	"go.uber.org/zap"
)

// Parsing errors returned by ParseModule.
var (
	ErrInvalidMagic   = errors.New("invalid il magic number")
	ErrInvalidVersion = errors.New("invalid il version")
)

type decoder struct {
	m       *Module
	types   []*TypeDef
	fields  []*FieldDef
	methods []*MethodDef
	params  []*ParamDef
}

// ParseModule decodes a module from the container format.
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	d := &decoder{m: &Module{}}
	var last byte

	for {
		sectionID, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, r.WrapError("section header", err)
		}

		// Custom sections can appear anywhere
		if sectionID != SectionCustom {
			if sectionID <= last || sectionID > SectionCode {
				return nil, fmt.Errorf("section %d appears out of order", sectionID)
			}
			last = sectionID
		}

		size, err := r.ReadLen()
		if err != nil {
			return nil, r.WrapError("section size", err)
		}
		body, err := r.ReadBytes(size)
		if err != nil {
			return nil, r.WrapError("section data", err)
		}
		sr := binary.NewReader(body)

		var parse func(*binary.Reader) error
		var name string
		switch sectionID {
		case SectionCustom:
			parse, name = d.parseCustom, "custom section"
		case SectionModule:
			parse, name = d.parseModuleHeader, "module section"
		case SectionTypeRef:
			parse, name = d.parseTypeRefs, "typeref section"
		case SectionTypeDef:
			parse, name = d.parseTypeDefs, "typedef section"
		case SectionMember:
			parse, name = d.parseMembers, "member section"
		case SectionMemberRef:
			parse, name = d.parseMemberRefs, "memberref section"
		case SectionAttribute:
			parse, name = d.parseAttributes, "attribute section"
		case SectionCode:
			parse, name = d.parseCode, "code section"
		}
		if err := parse(sr); err != nil {
			var pe *binary.ParseError
			if errors.As(err, &pe) {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return nil, fmt.Errorf("%s: %w", name, sr.WrapError(name, err))
		}
		if sr.Len() != 0 {
			return nil, fmt.Errorf("%s: %d trailing bytes", name, sr.Len())
		}
	}

	Logger().Debug("parsed module",
		zap.String("module", d.m.Name),
		zap.Int("types", len(d.types)),
		zap.Int("methods", len(d.methods)),
		zap.Int("typerefs", len(d.m.TypeRefs)),
		zap.Int("memberrefs", len(d.m.MethodRefs)+len(d.m.FieldRefs)))
	return d.m, nil
}

// ParseModuleValidate parses a module and validates it.
func ParseModuleValidate(data []byte) (*Module, error) {
	m, err := ParseModule(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *decoder) parseCustom(r *binary.Reader) error {
	name, err := r.ReadName()
	if err != nil {
		return err
	}
	data, err := r.ReadBytes(r.Len())
	if err != nil {
		return err
	}
	d.m.CustomSections = append(d.m.CustomSections, CustomSection{Name: name, Data: data})
	return nil
}

func (d *decoder) parseModuleHeader(r *binary.Reader) error {
	var err error
	if d.m.Name, err = r.ReadName(); err != nil {
		return err
	}
	d.m.CorLib, err = r.ReadName()
	return err
}

func readBool(r *binary.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean 0x%02x", b)
}

func (d *decoder) parseTypeRefs(r *binary.Reader) error {
	count, err := r.ReadLen()
	if err != nil {
		return err
	}
	refs := make([]*TypeRef, count)
	declaring := make([]uint32, count)
	for i := range refs {
		ref := &TypeRef{}
		if ref.Scope, err = r.ReadName(); err != nil {
			return err
		}
		if ref.Namespace, err = r.ReadName(); err != nil {
			return err
		}
		if ref.Name, err = r.ReadName(); err != nil {
			return err
		}
		if ref.IsValueType, err = readBool(r); err != nil {
			return err
		}
		if declaring[i], err = r.ReadU32(); err != nil {
			return err
		}
		refs[i] = ref
	}
	for i, row := range declaring {
		if row == 0 {
			continue
		}
		if int(row) > count || int(row) == i+1 {
			return fmt.Errorf("type reference %d: invalid declaring row %d", i+1, row)
		}
		refs[i].DeclaringType = refs[row-1]
	}
	d.m.TypeRefs = refs
	return nil
}

func (d *decoder) parseTypeDefs(r *binary.Reader) error {
	count, err := r.ReadLen()
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		t := &TypeDef{}
		if t.Namespace, err = r.ReadName(); err != nil {
			return err
		}
		if t.Name, err = r.ReadName(); err != nil {
			return err
		}
		attrs, err := r.ReadU32()
		if err != nil {
			return err
		}
		t.Attributes = TypeAttributes(attrs)
		declaring, err := r.ReadU32()
		if err != nil {
			return err
		}
		switch {
		case declaring == 0:
			d.m.AddType(t)
		case int(declaring) <= len(d.types):
			d.types[declaring-1].AddNestedType(t)
		default:
			return fmt.Errorf("type %s: declaring row %d not yet defined", t.Name, declaring)
		}
		d.types = append(d.types, t)
	}
	return nil
}

func (d *decoder) readSig(r *binary.Reader) (Type, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case sigNone:
		return nil, nil
	case sigTypeRef:
		row, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		if row == 0 || int(row) > len(d.m.TypeRefs) {
			return nil, fmt.Errorf("type reference row %d out of range", row)
		}
		return d.m.TypeRefs[row-1], nil
	case sigTypeDef:
		row, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		if row == 0 || int(row) > len(d.types) {
			return nil, fmt.Errorf("type definition row %d out of range", row)
		}
		return d.types[row-1], nil
	case sigArray, sigByRef, sigPointer:
		elem, err := d.readSig(r)
		if err != nil {
			return nil, err
		}
		if elem == nil {
			return nil, fmt.Errorf("constructed type without element")
		}
		switch tag {
		case sigArray:
			return &ArrayType{Elem: elem}, nil
		case sigByRef:
			return &ByRefType{Elem: elem}, nil
		}
		return &PointerType{Elem: elem}, nil
	case sigGenericInst:
		elem, err := d.readSig(r)
		if err != nil {
			return nil, err
		}
		n, err := r.ReadLen()
		if err != nil {
			return nil, err
		}
		args := make([]Type, n)
		for i := range args {
			if args[i], err = d.readSig(r); err != nil {
				return nil, err
			}
		}
		return &GenericInstType{Elem: elem, Args: args}, nil
	case sigGenericVar, sigGenericMVar:
		pos, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		return &GenericParam{Position: int(pos), Method: tag == sigGenericMVar}, nil
	}
	return nil, fmt.Errorf("unknown type signature tag 0x%02x", tag)
}

func (d *decoder) readMarshal(r *binary.Reader) (*MarshalInfo, error) {
	present, err := readBool(r)
	if err != nil || !present {
		return nil, err
	}
	nt, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	extra, err := r.ReadBlob()
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		extra = nil
	}
	return &MarshalInfo{NativeType: NativeType(nt), Extra: extra}, nil
}

func (d *decoder) parseMembers(r *binary.Reader) error {
	for _, t := range d.types {
		base, err := d.readSig(r)
		if err != nil {
			return err
		}
		t.BaseType = base

		nfields, err := r.ReadLen()
		if err != nil {
			return err
		}
		for i := 0; i < nfields; i++ {
			f := &FieldDef{}
			if f.Name, err = r.ReadName(); err != nil {
				return err
			}
			attrs, err := r.ReadU32()
			if err != nil {
				return err
			}
			f.Attributes = FieldAttributes(attrs)
			if f.FieldType, err = d.readSig(r); err != nil {
				return err
			}
			t.AddField(f)
			d.fields = append(d.fields, f)
		}

		nmethods, err := r.ReadLen()
		if err != nil {
			return err
		}
		for i := 0; i < nmethods; i++ {
			md, err := d.readMethod(r)
			if err != nil {
				return fmt.Errorf("%s: %w", t.FullName(), err)
			}
			t.AddMethod(md)
			d.methods = append(d.methods, md)
		}
	}
	return nil
}

func (d *decoder) readMethod(r *binary.Reader) (*MethodDef, error) {
	md := &MethodDef{}
	var err error
	if md.Name, err = r.ReadName(); err != nil {
		return nil, err
	}
	attrs, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	md.Attributes = MethodAttributes(attrs)
	impl, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	md.ImplAttributes = MethodImplAttributes(impl)
	cc, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	md.CallConv = CallingConvention(cc)

	if md.Return.Type, err = d.readSig(r); err != nil {
		return nil, err
	}
	rattrs, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	md.Return.Attributes = ParamAttributes(rattrs)
	if md.Return.Marshal, err = d.readMarshal(r); err != nil {
		return nil, err
	}

	nparams, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	for i := 0; i < nparams; i++ {
		p := &ParamDef{}
		if p.Name, err = r.ReadName(); err != nil {
			return nil, err
		}
		pattrs, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		p.Attributes = ParamAttributes(pattrs)
		if p.Type, err = d.readSig(r); err != nil {
			return nil, err
		}
		if p.Marshal, err = d.readMarshal(r); err != nil {
			return nil, err
		}
		md.AddParam(p)
		d.params = append(d.params, p)
	}

	hasPInvoke, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if hasPInvoke {
		pi := &PInvokeInfo{}
		if pi.Module, err = r.ReadName(); err != nil {
			return nil, err
		}
		if pi.EntryPoint, err = r.ReadName(); err != nil {
			return nil, err
		}
		pattrs, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		pi.Attributes = PInvokeAttributes(pattrs)
		md.PInvoke = pi
	}
	return md, nil
}

func (d *decoder) parseMemberRefs(r *binary.Reader) error {
	nmethods, err := r.ReadLen()
	if err != nil {
		return err
	}
	for i := 0; i < nmethods; i++ {
		ref := &MethodRef{}
		if ref.DeclaringType, err = d.readSig(r); err != nil {
			return err
		}
		if ref.Name, err = r.ReadName(); err != nil {
			return err
		}
		if ref.ReturnType, err = d.readSig(r); err != nil {
			return err
		}
		if ref.HasThis, err = readBool(r); err != nil {
			return err
		}
		cc, err := r.ReadByte()
		if err != nil {
			return err
		}
		ref.CallConv = CallingConvention(cc)
		n, err := r.ReadLen()
		if err != nil {
			return err
		}
		ref.Params = make([]Type, n)
		for j := range ref.Params {
			if ref.Params[j], err = d.readSig(r); err != nil {
				return err
			}
		}
		d.m.MethodRefs = append(d.m.MethodRefs, ref)
	}

	nfields, err := r.ReadLen()
	if err != nil {
		return err
	}
	for i := 0; i < nfields; i++ {
		ref := &FieldRef{}
		if ref.DeclaringType, err = d.readSig(r); err != nil {
			return err
		}
		if ref.Name, err = r.ReadName(); err != nil {
			return err
		}
		if ref.FieldType, err = d.readSig(r); err != nil {
			return err
		}
		d.m.FieldRefs = append(d.m.FieldRefs, ref)
	}
	return nil
}

func (d *decoder) readToken(r *binary.Reader) (Token, error) {
	v, err := r.ReadU32LE()
	return Token(v), err
}

func (d *decoder) method(tok Token) (Method, error) {
	row := tok.Row()
	switch tok.Table() {
	case TableMethod:
		if row >= 1 && row <= len(d.methods) {
			return d.methods[row-1], nil
		}
	case TableMethodRef:
		if row >= 1 && row <= len(d.m.MethodRefs) {
			return d.m.MethodRefs[row-1], nil
		}
	default:
		return nil, fmt.Errorf("token 0x%08x is not a method", uint32(tok))
	}
	return nil, fmt.Errorf("method token 0x%08x out of range", uint32(tok))
}

func (d *decoder) field(tok Token) (Field, error) {
	row := tok.Row()
	switch tok.Table() {
	case TableField:
		if row >= 1 && row <= len(d.fields) {
			return d.fields[row-1], nil
		}
	case TableFieldRef:
		if row >= 1 && row <= len(d.m.FieldRefs) {
			return d.m.FieldRefs[row-1], nil
		}
	default:
		return nil, fmt.Errorf("token 0x%08x is not a field", uint32(tok))
	}
	return nil, fmt.Errorf("field token 0x%08x out of range", uint32(tok))
}

func (d *decoder) parseAttributes(r *binary.Reader) error {
	count, err := r.ReadLen()
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		row, err := r.ReadU32()
		if err != nil {
			return err
		}
		tok, err := d.readToken(r)
		if err != nil {
			return err
		}
		ctor, err := d.method(tok)
		if err != nil {
			return err
		}
		a := &CustomAttribute{Constructor: ctor}

		nargs, err := r.ReadLen()
		if err != nil {
			return err
		}
		for j := 0; j < nargs; j++ {
			arg, err := d.readAttrArg(r)
			if err != nil {
				return err
			}
			a.Args = append(a.Args, arg)
		}
		if a.Fields, err = d.readNamedArgs(r); err != nil {
			return err
		}
		if a.Properties, err = d.readNamedArgs(r); err != nil {
			return err
		}

		if err := d.attach(kind, int(row), a); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) attach(kind byte, row int, a *CustomAttribute) error {
	inRange := func(n int) bool { return row >= 1 && row <= n }
	switch kind {
	case ownerType:
		if inRange(len(d.types)) {
			t := d.types[row-1]
			t.CustomAttributes = append(t.CustomAttributes, a)
			return nil
		}
	case ownerField:
		if inRange(len(d.fields)) {
			f := d.fields[row-1]
			f.CustomAttributes = append(f.CustomAttributes, a)
			return nil
		}
	case ownerMethod:
		if inRange(len(d.methods)) {
			md := d.methods[row-1]
			md.CustomAttributes = append(md.CustomAttributes, a)
			return nil
		}
	case ownerReturn:
		if inRange(len(d.methods)) {
			md := d.methods[row-1]
			md.Return.CustomAttributes = append(md.Return.CustomAttributes, a)
			return nil
		}
	case ownerParam:
		if inRange(len(d.params)) {
			p := d.params[row-1]
			p.CustomAttributes = append(p.CustomAttributes, a)
			return nil
		}
	default:
		return fmt.Errorf("unknown attribute owner kind %d", kind)
	}
	return fmt.Errorf("attribute owner row %d out of range", row)
}

func (d *decoder) readNamedArgs(r *binary.Reader) ([]NamedArg, error) {
	n, err := r.ReadLen()
	if err != nil || n == 0 {
		return nil, err
	}
	out := make([]NamedArg, n)
	for i := range out {
		if out[i].Name, err = r.ReadName(); err != nil {
			return nil, err
		}
		if out[i].Arg, err = d.readAttrArg(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) readAttrArg(r *binary.Reader) (AttrArg, error) {
	t, err := d.readSig(r)
	if err != nil {
		return AttrArg{}, err
	}
	arg := AttrArg{Type: t}
	tag, err := r.ReadByte()
	if err != nil {
		return AttrArg{}, err
	}
	switch tag {
	case valNil:
	case valBool:
		arg.Value, err = readBool(r)
	case valInt32:
		arg.Value, err = r.ReadS32()
	case valInt64:
		var v uint64
		v, err = r.ReadU64LE()
		arg.Value = int64(v)
	case valFloat64:
		arg.Value, err = r.ReadF64()
	case valString:
		arg.Value, err = r.ReadName()
	case valType:
		var vt Type
		vt, err = d.readSig(r)
		arg.Value = vt
	default:
		err = fmt.Errorf("unknown attribute value tag 0x%02x", tag)
	}
	if err != nil {
		return AttrArg{}, err
	}
	return arg, nil
}

func (d *decoder) parseCode(r *binary.Reader) error {
	count, err := r.ReadLen()
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		row, err := r.ReadU32()
		if err != nil {
			return err
		}
		if row == 0 || int(row) > len(d.methods) {
			return fmt.Errorf("code for method row %d out of range", row)
		}
		md := d.methods[row-1]
		if md.Body != nil {
			return fmt.Errorf("duplicate code for %s", md.Name)
		}
		body, err := d.readBody(r, md)
		if err != nil {
			return fmt.Errorf("%s: %w", md.FullName(), err)
		}
		md.Body = body
	}
	return nil
}

type pendingBranch struct {
	instr   *Instruction
	targets []uint32
}

func (d *decoder) readBody(r *binary.Reader, md *MethodDef) (*MethodBody, error) {
	body := &MethodBody{}
	maxStack, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	body.MaxStack = int(maxStack)
	if body.InitLocals, err = readBool(r); err != nil {
		return nil, err
	}

	nvars, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	for i := 0; i < nvars; i++ {
		t, err := d.readSig(r)
		if err != nil {
			return nil, err
		}
		body.AddVariable(t)
	}

	ninstrs, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	var pending []pendingBranch
	body.Instructions = make([]*Instruction, 0, ninstrs)
	for i := 0; i < ninstrs; i++ {
		in, targets, err := d.readInstruction(r, md, body)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		if targets != nil {
			pending = append(pending, pendingBranch{instr: in, targets: targets})
		}
		body.Instructions = append(body.Instructions, in)
	}

	for _, p := range pending {
		resolved := make([]*Instruction, len(p.targets))
		for i, idx := range p.targets {
			if int(idx) >= len(body.Instructions) {
				return nil, fmt.Errorf("%s target %d out of range", p.instr.Opcode, idx)
			}
			resolved[i] = body.Instructions[idx]
		}
		if p.instr.Opcode == OpSwitch {
			p.instr.Imm = SwitchImm{Targets: resolved}
		} else {
			p.instr.Imm = BranchImm{Target: resolved[0]}
		}
	}
	return body, nil
}

func (d *decoder) readInstruction(r *binary.Reader, md *MethodDef, body *MethodBody) (*Instruction, []uint32, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, nil, err
	}
	op := Opcode(b)
	if b == PrefixTwoByte {
		lo, err := r.ReadByte()
		if err != nil {
			return nil, nil, err
		}
		op = Opcode(uint16(PrefixTwoByte)<<8 | uint16(lo))
	}
	if !op.Known() {
		return nil, nil, fmt.Errorf("unknown opcode 0x%x", uint16(op))
	}

	in := &Instruction{Opcode: op}
	readIndex := func() (int, error) {
		if op.ShortForm() {
			b, err := r.ReadByte()
			return int(b), err
		}
		v, err := r.ReadU16LE()
		return int(v), err
	}

	switch op.OperandKind() {
	case InlineNone:
	case ShortInlineI:
		v, err := r.ReadByte()
		if err != nil {
			return nil, nil, err
		}
		in.Imm = I8Imm{Value: int8(v)}
	case InlineI:
		v, err := r.ReadU32LE()
		if err != nil {
			return nil, nil, err
		}
		in.Imm = I32Imm{Value: int32(v)}
	case InlineI8:
		v, err := r.ReadU64LE()
		if err != nil {
			return nil, nil, err
		}
		in.Imm = I64Imm{Value: int64(v)}
	case ShortInlineR:
		v, err := r.ReadF32()
		if err != nil {
			return nil, nil, err
		}
		in.Imm = F32Imm{Value: v}
	case InlineR:
		v, err := r.ReadF64()
		if err != nil {
			return nil, nil, err
		}
		in.Imm = F64Imm{Value: v}
	case InlineString:
		v, err := r.ReadName()
		if err != nil {
			return nil, nil, err
		}
		in.Imm = StringImm{Value: v}
	case InlineType:
		t, err := d.readSig(r)
		if err != nil {
			return nil, nil, err
		}
		in.Imm = TypeImm{Type: t}
	case InlineMethod:
		imm, err := d.readMethodImm(r)
		if err != nil {
			return nil, nil, err
		}
		in.Imm = imm
	case InlineField:
		imm, err := d.readFieldImm(r)
		if err != nil {
			return nil, nil, err
		}
		in.Imm = imm
	case InlineTok:
		kind, err := r.ReadByte()
		if err != nil {
			return nil, nil, err
		}
		switch kind {
		case tokType:
			t, err := d.readSig(r)
			if err != nil {
				return nil, nil, err
			}
			in.Imm = TypeImm{Type: t}
		case tokMethod:
			if in.Imm, err = d.readMethodImm(r); err != nil {
				return nil, nil, err
			}
		case tokField:
			if in.Imm, err = d.readFieldImm(r); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, fmt.Errorf("unknown ldtoken kind %d", kind)
		}
	case ShortInlineBrTarget, InlineBrTarget:
		idx, err := r.ReadU32()
		if err != nil {
			return nil, nil, err
		}
		return in, []uint32{idx}, nil
	case InlineSwitch:
		n, err := r.ReadLen()
		if err != nil {
			return nil, nil, err
		}
		targets := make([]uint32, n)
		for i := range targets {
			if targets[i], err = r.ReadU32(); err != nil {
				return nil, nil, err
			}
		}
		return in, targets, nil
	case ShortInlineVar, InlineVar:
		idx, err := readIndex()
		if err != nil {
			return nil, nil, err
		}
		if idx >= len(body.Variables) {
			return nil, nil, fmt.Errorf("%s: variable %d out of range", op, idx)
		}
		in.Imm = VarImm{Var: body.Variables[idx]}
	case ShortInlineArg, InlineArg:
		slot, err := readIndex()
		if err != nil {
			return nil, nil, err
		}
		imm, err := argAt(md, slot)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		in.Imm = imm
	}
	return in, nil, nil
}

func (d *decoder) readMethodImm(r *binary.Reader) (MethodImm, error) {
	tok, err := d.readToken(r)
	if err != nil {
		return MethodImm{}, err
	}
	m, err := d.method(tok)
	if err != nil {
		return MethodImm{}, err
	}
	return MethodImm{Method: m}, nil
}

func (d *decoder) readFieldImm(r *binary.Reader) (FieldImm, error) {
	tok, err := d.readToken(r)
	if err != nil {
		return FieldImm{}, err
	}
	f, err := d.field(tok)
	if err != nil {
		return FieldImm{}, err
	}
	return FieldImm{Field: f}, nil
}

// argAt maps an argument slot back to the parameter it names.
func argAt(md *MethodDef, slot int) (ArgImm, error) {
	if md.HasThis() {
		if slot == 0 {
			return ArgImm{}, nil
		}
		slot--
	}
	if slot < 0 || slot >= len(md.Params) {
		return ArgImm{}, fmt.Errorf("argument %d out of range", slot)
	}
	return ArgImm{Param: md.Params[slot]}, nil
}
