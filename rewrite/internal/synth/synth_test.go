package synth_test

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/dynbind/errors"
	"github.com/wippyai/dynbind/il"
	"github.com/wippyai/dynbind/rewrite/internal/refs"
	"github.com/wippyai/dynbind/rewrite/internal/synth"
)

func foreignMethod(m *il.Module, attrs il.PInvokeAttributes) *il.MethodDef {
	md := &il.MethodDef{
		Name:       "sqlite3_open",
		Attributes: il.MethodPublic | il.MethodStatic | il.MethodPInvokeImpl,
		Return: il.MethodReturn{
			Type:    m.Int32Type(),
			Marshal: &il.MarshalInfo{NativeType: il.NativeI4},
		},
		PInvoke: &il.PInvokeInfo{Module: "SQLite.Interop.dll", Attributes: attrs},
	}
	md.AddParam(&il.ParamDef{
		Name:    "filename",
		Type:    m.StringType(),
		Marshal: &il.MarshalInfo{NativeType: il.NativeLPStr},
	})
	md.AddParam(&il.ParamDef{Name: "db", Type: &il.ByRefType{Elem: m.IntPtrType()}, Attributes: il.ParamOut})
	return md
}

func TestSynthesizer_DelegateShape(t *testing.T) {
	m := il.NewModule("Test")
	s := synth.New(refs.New(m))
	src := foreignMethod(m, il.PInvokeCallConvCdecl)

	td, err := s.FromMethod("OpenDelegate", src, il.TypeNestedPrivate)
	if err != nil {
		t.Fatalf("FromMethod: %v", err)
	}
	if td.BaseType.FullName() != "System.MulticastDelegate" {
		t.Errorf("base: got %s", td.BaseType.FullName())
	}
	if td.Attributes&il.TypeSealed == 0 || td.Visibility() != il.TypeNestedPrivate {
		t.Errorf("attributes: got 0x%x", uint32(td.Attributes))
	}

	want := []struct {
		name   string
		params []string
		ret    string
	}{
		{".ctor", []string{"System.Object", "System.IntPtr"}, "System.Void"},
		{"Invoke", []string{"System.String", "System.IntPtr&"}, "System.Int32"},
		{"BeginInvoke", []string{"System.String", "System.IntPtr&", "System.AsyncCallback", "System.Object"}, "System.IAsyncResult"},
		{"EndInvoke", []string{"System.IAsyncResult"}, "System.Int32"},
	}
	if len(td.Methods) != len(want) {
		t.Fatalf("got %d methods, want %d", len(td.Methods), len(want))
	}
	for i, w := range want {
		md := td.Methods[i]
		if md.Name != w.name {
			t.Errorf("method %d: got %s, want %s", i, md.Name, w.name)
			continue
		}
		if md.ImplAttributes&il.ImplCodeTypeMask != il.ImplRuntime {
			t.Errorf("%s: not runtime implemented", md.Name)
		}
		if md.IsStatic() || md.Body != nil {
			t.Errorf("%s: must be an instance method without a body", md.Name)
		}
		if md.Return.Type.FullName() != w.ret {
			t.Errorf("%s: return %s, want %s", md.Name, md.Return.Type.FullName(), w.ret)
		}
		if len(md.Params) != len(w.params) {
			t.Errorf("%s: got %d params, want %d", md.Name, len(md.Params), len(w.params))
			continue
		}
		for j, p := range md.Params {
			if p.Type.FullName() != w.params[j] {
				t.Errorf("%s param %d: got %s, want %s", md.Name, j, p.Type.FullName(), w.params[j])
			}
		}
	}
}

func TestSynthesizer_ParametersAreCopied(t *testing.T) {
	m := il.NewModule("Test")
	s := synth.New(refs.New(m))
	src := foreignMethod(m, il.PInvokeCallConvCdecl)

	td, err := s.FromMethod("D", src, il.TypeNestedPrivate)
	if err != nil {
		t.Fatalf("FromMethod: %v", err)
	}
	invoke := td.Method("Invoke")
	begin := td.Method("BeginInvoke")
	for i, p := range src.Params {
		if invoke.Params[i] == p || begin.Params[i] == p || invoke.Params[i] == begin.Params[i] {
			t.Errorf("param %d is shared", i)
		}
		if invoke.Params[i].Name != p.Name || invoke.Params[i].Attributes != p.Attributes {
			t.Errorf("param %d: got %+v", i, invoke.Params[i])
		}
	}
	if invoke.Params[0].Marshal == src.Params[0].Marshal {
		t.Error("marshal info is shared")
	}
	if invoke.Params[0].Marshal.NativeType != il.NativeLPStr {
		t.Errorf("marshal: got %v", invoke.Params[0].Marshal.NativeType)
	}
	if invoke.Return.Marshal == nil || invoke.Return.Marshal.NativeType != il.NativeI4 {
		t.Error("return marshal info not copied")
	}
}

func TestSynthesizer_InvalidVisibility(t *testing.T) {
	m := il.NewModule("Test")
	s := synth.New(refs.New(m))

	tests := []struct {
		name string
		vis  il.TypeAttributes
	}{
		{"sealed", il.TypeNestedPrivate | il.TypeSealed},
		{"abstract", il.TypePublic | il.TypeAbstract},
		{"interface", il.TypeInterface},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td, err := s.Build(synth.Delegate{Name: "D", Visibility: tt.vis})
			if td != nil {
				t.Error("type returned on failure")
			}
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseSynthesize, Kind: errors.KindInvalidVisibility}) {
				t.Fatalf("got %v, want invalid visibility", err)
			}
		})
	}

	for vis := il.TypeNotPublic; vis <= il.TypeNestedFamORAssem; vis++ {
		if _, err := s.Build(synth.Delegate{Name: "D", Visibility: vis}); err != nil {
			t.Errorf("visibility 0x%x: %v", uint32(vis), err)
		}
	}
}

func TestSynthesizer_VoidDelegate(t *testing.T) {
	m := il.NewModule("Test")
	s := synth.New(refs.New(m))

	td, err := s.Build(synth.Delegate{Namespace: "N", Name: "Callback", Visibility: il.TypePublic})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := td.Method("Invoke").Return.Type.FullName(); got != "System.Void" {
		t.Errorf("invoke returns %s", got)
	}
	if len(td.CustomAttributes) != 0 {
		t.Error("plain delegate carries attributes")
	}
	m.AddType(td)
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSynthesizer_UnmanagedFunctionPointer(t *testing.T) {
	type field struct {
		name  string
		value any
	}
	tests := []struct {
		name   string
		attrs  il.PInvokeAttributes
		sig    il.CallingConvention
		conv   synth.CallingConvention
		fields []field
	}{
		{
			name:   "cdecl defaults",
			attrs:  il.PInvokeCallConvCdecl | il.PInvokeBestFitEnabled,
			conv:   synth.Cdecl,
			fields: nil,
		},
		{
			name:   "best fit unspecified",
			attrs:  il.PInvokeCallConvStdcall,
			conv:   synth.StdCall,
			fields: []field{{"BestFitMapping", false}},
		},
		{
			name:  "everything set",
			attrs: il.PInvokeCallConvFastcall | il.PInvokeCharSetUnicode | il.PInvokeBestFitDisabled | il.PInvokeThrowOnUnmappableCharEnabled | il.PInvokeSupportsLastError,
			conv:  synth.FastCall,
			fields: []field{
				{"CharSet", int32(synth.CharSetUnicode)},
				{"BestFitMapping", false},
				{"ThrowOnUnmappableChar", true},
				{"SetLastError", true},
			},
		},
		{
			name:   "ansi thiscall",
			attrs:  il.PInvokeCallConvThiscall | il.PInvokeCharSetAnsi | il.PInvokeBestFitEnabled,
			conv:   synth.ThisCall,
			fields: []field{{"CharSet", int32(synth.CharSetAnsi)}},
		},
		{
			name:   "convention from signature",
			attrs:  il.PInvokeCharSetAuto | il.PInvokeBestFitEnabled,
			sig:    il.CallConvC,
			conv:   synth.Cdecl,
			fields: []field{{"CharSet", int32(synth.CharSetAuto)}},
		},
		{
			name:   "no convention anywhere",
			attrs:  il.PInvokeBestFitEnabled,
			sig:    il.CallConvDefault,
			conv:   synth.Winapi,
			fields: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := il.NewModule("Test")
			s := synth.New(refs.New(m))
			src := foreignMethod(m, tt.attrs)
			src.CallConv = tt.sig

			td, err := s.FromMethod("D", src, il.TypeNestedPrivate)
			if err != nil {
				t.Fatalf("FromMethod: %v", err)
			}
			if len(td.CustomAttributes) != 1 {
				t.Fatalf("got %d attributes, want 1", len(td.CustomAttributes))
			}
			attr := td.CustomAttributes[0]
			if got := attr.AttributeType().FullName(); got != "System.Runtime.InteropServices.UnmanagedFunctionPointerAttribute" {
				t.Errorf("attribute type %s", got)
			}
			if len(attr.Args) != 1 || attr.Args[0].Value != int32(tt.conv) {
				t.Errorf("convention: got %v, want %s", attr.Args, tt.conv)
			}
			if len(attr.Fields) != len(tt.fields) {
				t.Fatalf("got %d fields, want %d: %+v", len(attr.Fields), len(tt.fields), attr.Fields)
			}
			for i, f := range tt.fields {
				if attr.Fields[i].Name != f.name || attr.Fields[i].Arg.Value != f.value {
					t.Errorf("field %d: got %s=%v, want %s=%v", i, attr.Fields[i].Name, attr.Fields[i].Arg.Value, f.name, f.value)
				}
			}
		})
	}
}

func TestInterop_NonForeignDefaults(t *testing.T) {
	md := &il.MethodDef{Name: "M", CallConv: il.CallConvStdCall}

	if synth.CharSetOf(md) != synth.CharSetNone {
		t.Error("charset should default to None")
	}
	if !synth.BestFitMapping(md) {
		t.Error("best fit should default to true")
	}
	if synth.ThrowOnUnmappableChar(md) || synth.SetLastError(md) {
		t.Error("throw and last error should default to false")
	}
	if synth.CallingConventionOf(md) != synth.StdCall {
		t.Errorf("convention: got %s", synth.CallingConventionOf(md))
	}
}
