package il_test

import (
	"bytes"
	stderrors "errors"
	"math"
	"testing"

	"github.com/wippyai/dynbind/errors"
	"github.com/wippyai/dynbind/il"
)

type sample struct {
	m      *il.Module
	typ    *il.TypeDef
	nested *il.TypeDef
	handle *il.FieldDef
	open   *il.MethodDef
	run    *il.MethodDef
	concat il.Method
}

func importMethod(t *testing.T, m *il.Module, ref *il.MethodRef) il.Method {
	t.Helper()
	imported, err := m.ImportMethod(ref)
	if err != nil {
		t.Fatalf("ImportMethod(%s): %v", ref.Name, err)
	}
	return imported
}

func buildSample(t *testing.T) *sample {
	t.Helper()
	m := il.NewModule("Sample")
	obj := m.ObjectType()
	str := m.StringType()
	i32 := m.Int32Type()
	ptr := m.IntPtrType()

	typ := &il.TypeDef{
		Namespace:  "Native",
		Name:       "Methods",
		Attributes: il.TypePublic | il.TypeAbstract | il.TypeSealed | il.TypeBeforeFieldInit,
		BaseType:   obj,
	}
	m.AddType(typ)

	nested := &il.TypeDef{
		Name:       "Callback",
		Attributes: il.TypeNestedPrivate | il.TypeSealed,
		BaseType:   m.CorLibType("System", "MulticastDelegate", false),
	}
	typ.AddNestedType(nested)

	handle := &il.FieldDef{Name: "handle", FieldType: ptr, Attributes: il.FieldPrivate | il.FieldStatic}
	typ.AddField(handle)

	open := &il.MethodDef{
		Name:           "sqlite3_open",
		Attributes:     il.MethodPublic | il.MethodStatic | il.MethodHideBySig | il.MethodPInvokeImpl,
		ImplAttributes: il.ImplPreserveSig,
		Return:         il.MethodReturn{Type: i32},
		PInvoke: &il.PInvokeInfo{
			Module:     "SQLite.Interop.dll",
			EntryPoint: "sqlite3_open_v2",
			Attributes: il.PInvokeCallConvCdecl | il.PInvokeCharSetAnsi,
		},
	}
	open.AddParam(&il.ParamDef{Name: "filename", Type: str, Marshal: &il.MarshalInfo{NativeType: il.NativeLPStr}})
	open.AddParam(&il.ParamDef{Name: "db", Type: &il.ByRefType{Elem: ptr}, Attributes: il.ParamOut})
	typ.AddMethod(open)

	concat := importMethod(t, m, &il.MethodRef{
		DeclaringType: str,
		Name:          "Concat",
		ReturnType:    str,
		Params:        []il.Type{str, str},
	})

	run := &il.MethodDef{
		Name:       "Run",
		Attributes: il.MethodPublic | il.MethodStatic | il.MethodHideBySig,
		Return:     il.MethodReturn{Type: str},
	}
	x := &il.ParamDef{Name: "x", Type: i32}
	run.AddParam(x)
	body := il.NewBody()
	v := body.AddVariable(str)

	tail := il.OpImm(il.OpLdloc, il.VarImm{Var: v})
	caseA := il.OpImm(il.OpLdcI4S, il.I8Imm{Value: -3})
	caseB := il.OpImm(il.OpLdcI8, il.I64Imm{Value: 1 << 40})
	body.Append(
		il.OpImm(il.OpLdargS, il.ArgImm{Param: x}),
		il.OpImm(il.OpSwitch, il.SwitchImm{Targets: []*il.Instruction{caseA, caseB}}),
		il.OpImm(il.OpLdstr, il.StringImm{Value: "a"}),
		il.OpImm(il.OpStlocS, il.VarImm{Var: v}),
		il.OpImm(il.OpBr, il.BranchImm{Target: tail}),
		caseA,
		il.Op(il.OpPop),
		caseB,
		il.Op(il.OpPop),
		il.OpImm(il.OpLdcR4, il.F32Imm{Value: 1.5}),
		il.Op(il.OpPop),
		il.OpImm(il.OpLdcR8, il.F64Imm{Value: math.E}),
		il.Op(il.OpPop),
		il.OpImm(il.OpLdcI4, il.I32Imm{Value: 100000}),
		il.Op(il.OpPop),
		il.OpImm(il.OpLdtoken, il.TypeImm{Type: nested}),
		il.Op(il.OpPop),
		il.OpImm(il.OpLdtoken, il.FieldImm{Field: handle}),
		il.Op(il.OpPop),
		il.OpImm(il.OpLdsfld, il.FieldImm{Field: handle}),
		il.Op(il.OpPop),
		il.Op(il.OpLdnull),
		il.OpImm(il.OpCastclass, il.TypeImm{Type: str}),
		il.Op(il.OpPop),
		tail,
		il.OpImm(il.OpLdstr, il.StringImm{Value: "b"}),
		il.OpImm(il.OpCall, il.MethodImm{Method: concat}),
		il.Op(il.OpRet),
	)
	run.Body = body
	typ.AddMethod(run)

	attrType := m.CorLibType("System.Runtime.CompilerServices", "CompilerGeneratedAttribute", false)
	ctor := importMethod(t, m, &il.MethodRef{DeclaringType: attrType, Name: ".ctor", ReturnType: m.VoidType(), HasThis: true})
	nested.CustomAttributes = append(nested.CustomAttributes, &il.CustomAttribute{Constructor: ctor})

	infoType := m.CorLibType("System", "InfoAttribute", false)
	infoCtor := importMethod(t, m, &il.MethodRef{
		DeclaringType: infoType,
		Name:          ".ctor",
		ReturnType:    m.VoidType(),
		HasThis:       true,
		Params:        []il.Type{i32, str},
	})
	open.CustomAttributes = append(open.CustomAttributes, &il.CustomAttribute{
		Constructor: infoCtor,
		Args: []il.AttrArg{
			{Type: i32, Value: int32(-7)},
			{Type: str, Value: "text"},
		},
		Fields: []il.NamedArg{
			{Name: "Flag", Arg: il.AttrArg{Type: m.BooleanType(), Value: true}},
			{Name: "Big", Arg: il.AttrArg{Type: i32, Value: int64(1) << 50}},
			{Name: "Ratio", Arg: il.AttrArg{Type: i32, Value: 0.25}},
		},
		Properties: []il.NamedArg{
			{Name: "Kind", Arg: il.AttrArg{Type: m.CorLibType("System", "Type", false), Value: il.Type(nested)}},
			{Name: "Empty", Arg: il.AttrArg{Type: obj}},
		},
	})
	open.Params[0].CustomAttributes = append(open.Params[0].CustomAttributes, &il.CustomAttribute{Constructor: ctor})
	open.Return.CustomAttributes = append(open.Return.CustomAttributes, &il.CustomAttribute{Constructor: ctor})
	handle.CustomAttributes = append(handle.CustomAttributes, &il.CustomAttribute{Constructor: ctor})

	m.CustomSections = append(m.CustomSections, il.CustomSection{Name: "note", Data: []byte{1, 2, 3}})

	return &sample{m: m, typ: typ, nested: nested, handle: handle, open: open, run: run, concat: concat}
}

func mustEncode(t *testing.T, m *il.Module) []byte {
	t.Helper()
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

func TestEncodeEmptyModule(t *testing.T) {
	data := mustEncode(t, il.NewModule("Empty"))
	if !bytes.Equal(data[:4], []byte{0x00, 'i', 'l', 'm'}) {
		t.Errorf("invalid magic number: %v", data[:4])
	}
	if !bytes.Equal(data[4:8], []byte{0x01, 0x00, 0x00, 0x00}) {
		t.Errorf("invalid version: %v", data[4:8])
	}

	parsed, err := il.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if parsed.Name != "Empty" || parsed.CorLib != il.DefaultCorLib {
		t.Errorf("header: got %q/%q", parsed.Name, parsed.CorLib)
	}
}

func TestModule_EncodeRoundTrip(t *testing.T) {
	s := buildSample(t)
	data := mustEncode(t, s.m)

	parsed, err := il.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	again := mustEncode(t, parsed)
	if !bytes.Equal(data, again) {
		t.Fatalf("round trip not byte-identical: %d vs %d bytes", len(data), len(again))
	}

	typ := parsed.Type("Native.Methods")
	if typ == nil {
		t.Fatal("Native.Methods not found")
	}
	if typ.Attributes != s.typ.Attributes {
		t.Errorf("type attributes: got 0x%x, want 0x%x", typ.Attributes, s.typ.Attributes)
	}
	nested := parsed.Type("Native.Methods/Callback")
	if nested == nil || nested.DeclaringType != typ {
		t.Fatal("nested type not restored")
	}
	if len(nested.CustomAttributes) != 1 {
		t.Errorf("nested attributes: got %d", len(nested.CustomAttributes))
	}

	open := typ.Method("sqlite3_open")
	if open == nil || !open.IsPInvoke() {
		t.Fatal("foreign import not restored")
	}
	if open.PInvoke.EntryPoint != "sqlite3_open_v2" || open.PInvoke.CallConv() != il.PInvokeCallConvCdecl {
		t.Errorf("pinvoke: %+v", open.PInvoke)
	}
	if open.Params[0].Marshal == nil || open.Params[0].Marshal.NativeType != il.NativeLPStr {
		t.Errorf("param marshal not restored")
	}
	if _, ok := open.Params[1].Type.(*il.ByRefType); !ok {
		t.Errorf("byref param: got %T", open.Params[1].Type)
	}

	attr := open.CustomAttributes[0]
	if got := attr.Args[0].Value; got != int32(-7) {
		t.Errorf("int32 arg: got %v (%T)", got, got)
	}
	if got, _ := attr.Field("Big"); got.Value != int64(1)<<50 {
		t.Errorf("int64 field: got %v", got.Value)
	}
	if got, _ := attr.Field("Ratio"); got.Value != 0.25 {
		t.Errorf("float64 field: got %v", got.Value)
	}
	if got := attr.Properties[0].Arg.Value; got != il.Type(nested) {
		t.Errorf("type property: got %v", got)
	}
	if got := attr.Properties[1].Arg.Value; got != nil {
		t.Errorf("nil property: got %v", got)
	}

	run := typ.Method("Run")
	instrs := run.Body.Instructions
	if len(instrs) != len(s.run.Body.Instructions) {
		t.Fatalf("instruction count: got %d, want %d", len(instrs), len(s.run.Body.Instructions))
	}
	br := instrs[4].Imm.(il.BranchImm)
	if br.Target != instrs[24] {
		t.Error("branch target not restored by identity")
	}
	sw := instrs[1].Imm.(il.SwitchImm)
	if sw.Targets[0] != instrs[5] || sw.Targets[1] != instrs[7] {
		t.Error("switch targets not restored")
	}
	if arg := instrs[0].Imm.(il.ArgImm); arg.Param != run.Params[0] {
		t.Error("argument operand not bound to parameter")
	}
	if v := instrs[24].Imm.(il.VarImm); v.Var != run.Body.Variables[0] {
		t.Error("variable operand not bound to local")
	}
	if call, ok := instrs[26].CallTarget(); !ok || call.MemberName() != "Concat" {
		t.Errorf("call target: %v", call)
	}
	if len(parsed.CustomSections) != 1 || parsed.CustomSections[0].Name != "note" {
		t.Errorf("custom sections: %+v", parsed.CustomSections)
	}
}

func TestModule_EncodeUnimportedReference(t *testing.T) {
	tests := []struct {
		name  string
		instr func(s *sample) *il.Instruction
	}{
		{
			name: "method reference",
			instr: func(s *sample) *il.Instruction {
				ref := &il.MethodRef{DeclaringType: s.m.StringType(), Name: "Trim", ReturnType: s.m.StringType(), HasThis: true}
				return il.OpImm(il.OpCallvirt, il.MethodImm{Method: ref})
			},
		},
		{
			name: "field reference",
			instr: func(s *sample) *il.Instruction {
				ref := &il.FieldRef{DeclaringType: s.m.StringType(), FieldType: s.m.StringType(), Name: "Empty"}
				return il.OpImm(il.OpLdsfld, il.FieldImm{Field: ref})
			},
		},
		{
			name: "type reference",
			instr: func(s *sample) *il.Instruction {
				ref := &il.TypeRef{Scope: "Other", Namespace: "X", Name: "Y"}
				return il.OpImm(il.OpCastclass, il.TypeImm{Type: ref})
			},
		},
		{
			name: "foreign type definition",
			instr: func(s *sample) *il.Instruction {
				other := il.NewModule("Other")
				td := &il.TypeDef{Name: "Stranger"}
				other.AddType(td)
				return il.OpImm(il.OpCastclass, il.TypeImm{Type: td})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildSample(t)
			s.run.Body.Insert(0, tt.instr(s), il.Op(il.OpPop))
			_, err := s.m.Encode()
			if err == nil {
				t.Fatal("expected error")
			}
			want := &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindUnresolvedReference}
			if !stderrors.Is(err, want) {
				t.Errorf("got %v, want unresolved reference", err)
			}
		})
	}
}

func TestModule_EncodeShortFormRange(t *testing.T) {
	m := il.NewModule("Range")
	typ := &il.TypeDef{Name: "T", BaseType: m.ObjectType()}
	m.AddType(typ)
	md := &il.MethodDef{Name: "M", Attributes: il.MethodStatic, Return: il.MethodReturn{Type: m.VoidType()}}
	body := il.NewBody()
	for i := 0; i < 300; i++ {
		body.AddVariable(m.Int32Type())
	}
	md.Body = body
	typ.AddMethod(md)

	body.Append(
		il.OpImm(il.OpLdlocS, il.VarImm{Var: body.Variables[255]}),
		il.OpImm(il.OpStloc, il.VarImm{Var: body.Variables[299]}),
		il.Op(il.OpRet),
	)
	data := mustEncode(t, m)
	if _, err := il.ParseModule(data); err != nil {
		t.Fatalf("ParseModule: %v", err)
	}

	body.Instructions[0] = il.OpImm(il.OpLdlocS, il.VarImm{Var: body.Variables[256]})
	_, err := m.Encode()
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindInvalidData}) {
		t.Errorf("expected invalid data for short form 256, got %v", err)
	}
}

func TestModule_EncodeOperandMismatch(t *testing.T) {
	s := buildSample(t)
	s.run.Body.Insert(0, il.OpImm(il.OpLdstr, il.I32Imm{Value: 1}), il.Op(il.OpPop))
	if _, err := s.m.Encode(); err == nil {
		t.Error("expected error for ldstr with an int32 operand")
	}
}

func TestModule_EncodeBranchOutsideBody(t *testing.T) {
	s := buildSample(t)
	s.run.Body.Insert(0, il.OpImm(il.OpBr, il.BranchImm{Target: il.Op(il.OpRet)}))
	if _, err := s.m.Encode(); err == nil {
		t.Error("expected error for branch outside the body")
	}
}
