package engine_test

import (
	"bytes"
	"testing"

	"github.com/wippyai/dynbind/il"
	"github.com/wippyai/dynbind/interp"
	"github.com/wippyai/dynbind/rewrite/internal/engine"
)

const (
	targetName = "System.Data.SQLite.UnsafeNativeMethods"
	sqliteDLL  = "SQLite.Interop.dll"
)

type nativeSpec struct {
	name   string
	entry  string
	attrs  il.PInvokeAttributes
	ret    func(m *il.Module) il.Type
	params []func(m *il.Module) il.Type
}

func int32Type(m *il.Module) il.Type  { return m.Int32Type() }
func intPtrType(m *il.Module) il.Type { return m.IntPtrType() }
func stringType(m *il.Module) il.Type { return m.StringType() }

var sqliteImports = []nativeSpec{
	{
		name:  "sqlite3_libversion",
		attrs: il.PInvokeCallConvCdecl,
		ret:   intPtrType,
	},
	{
		name:   "sqlite3_open_interop",
		entry:  "sqlite3_open_interop",
		attrs:  il.PInvokeCallConvCdecl | il.PInvokeCharSetAnsi,
		ret:    int32Type,
		params: []func(m *il.Module) il.Type{stringType, int32Type, intPtrType},
	},
	{
		name:   "sqlite3_close",
		entry:  "sqlite3_close_interop",
		attrs:  il.PInvokeCallConvCdecl | il.PInvokeSupportsLastError,
		ret:    int32Type,
		params: []func(m *il.Module) il.Type{intPtrType},
	},
}

type fixture struct {
	m       *il.Module
	target  *il.TypeDef
	ready   *il.FieldDef
	imports []*il.MethodDef
}

// newFixture builds a module shaped like System.Data.SQLite: a target type
// holding foreign imports, one unrelated import and, when marker is set, a
// static initializer calling the legacy Initialize routine.
func newFixture(t *testing.T, specs []nativeSpec, marker bool) *fixture {
	t.Helper()
	m := il.NewModule("System.Data.SQLite")
	target := &il.TypeDef{
		Namespace:  "System.Data.SQLite",
		Name:       "UnsafeNativeMethods",
		Attributes: il.TypeNotPublic | il.TypeAbstract | il.TypeSealed,
		BaseType:   m.ObjectType(),
	}
	m.AddType(target)
	f := &fixture{m: m, target: target}

	for _, s := range specs {
		md := &il.MethodDef{
			Name:           s.name,
			Attributes:     il.MethodAssembly | il.MethodStatic | il.MethodHideBySig | il.MethodPInvokeImpl,
			ImplAttributes: il.ImplPreserveSig,
			Return:         il.MethodReturn{Type: s.ret(m)},
			PInvoke:        &il.PInvokeInfo{Module: sqliteDLL, EntryPoint: s.entry, Attributes: s.attrs},
		}
		for i, p := range s.params {
			md.AddParam(&il.ParamDef{Name: "p" + string(rune('0'+i)), Type: p(m)})
		}
		target.AddMethod(md)
		f.imports = append(f.imports, md)
	}

	tick := &il.MethodDef{
		Name:       "GetTickCount",
		Attributes: il.MethodAssembly | il.MethodStatic | il.MethodPInvokeImpl,
		Return:     il.MethodReturn{Type: m.Int32Type()},
		PInvoke:    &il.PInvokeInfo{Module: "kernel32.dll", Attributes: il.PInvokeCallConvWinapi},
	}
	target.AddMethod(tick)

	if marker {
		f.ready = &il.FieldDef{Name: "ready", FieldType: m.Int32Type(), Attributes: il.FieldPrivate | il.FieldStatic}
		target.AddField(f.ready)

		initialize := &il.MethodDef{
			Name:       "Initialize",
			Attributes: il.MethodPrivate | il.MethodStatic,
			Return:     il.MethodReturn{Type: m.VoidType()},
			Body:       il.NewBody(),
		}
		initialize.Body.Append(il.Op(il.OpRet))
		target.AddMethod(initialize)

		cctor := &il.MethodDef{
			Name:       ".cctor",
			Attributes: il.MethodPrivate | il.MethodStatic | il.MethodSpecialName | il.MethodRTSpecialName,
			Return:     il.MethodReturn{Type: m.VoidType()},
			Body:       il.NewBody(),
		}
		cctor.Body.Append(
			il.OpImm(il.OpCall, il.MethodImm{Method: initialize}),
			il.Op(il.OpLdcI41),
			il.OpImm(il.OpStsfld, il.FieldImm{Field: f.ready}),
			il.Op(il.OpRet),
		)
		target.AddMethod(cctor)
	}

	if err := m.Validate(); err != nil {
		t.Fatalf("fixture is invalid: %v", err)
	}
	return f
}

func encode(t *testing.T, m *il.Module) []byte {
	t.Helper()
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return data
}

// transform runs the engine over the encoded fixture and decodes the result.
func transform(t *testing.T, m *il.Module, cfg engine.Config) (*il.Module, *engine.Report) {
	t.Helper()
	out, report, err := engine.New(cfg).Transform(encode(t, m))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	rewritten, err := il.ParseModuleValidate(out)
	if err != nil {
		t.Fatalf("ParseModuleValidate: %v", err)
	}
	return rewritten, report
}

func newHost(arch string) *interp.StdHost {
	host := interp.NewStdHost()
	host.Env[engine.DefaultEnvironment] = arch
	host.Natives["sqlite3_libversion"] = func([]interp.Value) (interp.Value, error) {
		return interp.NativeInt(0xbeef), nil
	}
	host.Natives["sqlite3_open_interop"] = func(args []interp.Value) (interp.Value, error) {
		return int32(len(args[0].(string))) + args[1].(int32), nil
	}
	host.Natives["sqlite3_close_interop"] = func([]interp.Value) (interp.Value, error) {
		return int32(0), nil
	}
	return host
}

func TestEngine_EndToEnd(t *testing.T) {
	f := newFixture(t, sqliteImports, true)
	typesBefore := len(f.m.AllTypes())

	m, report := transform(t, f.m, engine.Config{})
	target := m.Type(targetName)
	if target == nil {
		t.Fatal("target type missing after rewrite")
	}

	t.Run("report", func(t *testing.T) {
		if !report.Found || !report.MarkerFound || report.Created {
			t.Errorf("report: %+v", report)
		}
		if len(report.Methods) != 3 {
			t.Fatalf("got %d rewritten methods, want 3", len(report.Methods))
		}
		wantEntries := []string{"sqlite3_libversion", "sqlite3_open_interop", "sqlite3_close_interop"}
		for i, mr := range report.Methods {
			if mr.EntryPoint != wantEntries[i] {
				t.Errorf("method %d entry: got %q, want %q", i, mr.EntryPoint, wantEntries[i])
			}
		}
	})

	t.Run("metadata", func(t *testing.T) {
		if got := len(m.AllTypes()) - typesBefore; got != 3 {
			t.Errorf("got %d new types, want 3", got)
		}
		if len(target.NestedTypes) != 3 {
			t.Errorf("got %d nested types, want 3", len(target.NestedTypes))
		}
		pointers := 0
		for _, fd := range target.Fields {
			if _, ok := fd.FieldType.(*il.TypeDef); ok && fd.IsStatic() {
				pointers++
			}
		}
		if pointers != 3 {
			t.Errorf("got %d delegate fields, want 3", pointers)
		}
		for _, spec := range sqliteImports {
			md := target.Method(spec.name)
			if md.PInvoke != nil || md.Attributes&il.MethodPInvokeImpl != 0 {
				t.Errorf("%s still a foreign import", spec.name)
			}
			if md.Body == nil || md.ImplAttributes&il.ImplCodeTypeMask != il.ImplIL {
				t.Errorf("%s has no IL body", spec.name)
			}
		}
		if tick := target.Method("GetTickCount"); !tick.IsPInvoke() {
			t.Error("import from another library was rewritten")
		}
		helper := target.Method("GetProcAddress")
		if helper == nil || !helper.IsPInvoke() || helper.PInvoke.Module != engine.DefaultHelperLibrary {
			t.Fatalf("lookup helper missing: %+v", helper)
		}
		if helper.PInvoke.CharSet() != il.PInvokeCharSetAnsi || helper.PInvoke.CallConv() != il.PInvokeCallConvWinapi {
			t.Errorf("helper flags 0x%x", uint16(helper.PInvoke.Attributes))
		}
		dt := target.NestedType("sqlite3_closeDelegate")
		if dt == nil {
			t.Fatal("delegate for sqlite3_close missing")
		}
		var ufp *il.CustomAttribute
		for _, a := range dt.CustomAttributes {
			if a.AttributeType().FullName() == "System.Runtime.InteropServices.UnmanagedFunctionPointerAttribute" {
				ufp = a
			}
		}
		if ufp == nil {
			t.Fatal("delegate lacks UnmanagedFunctionPointerAttribute")
		}
		if v, ok := ufp.Field("SetLastError"); !ok || v.Value != true {
			t.Errorf("SetLastError: %v %v", v.Value, ok)
		}
	})

	t.Run("initializer", func(t *testing.T) {
		host := newHost("AMD64")
		vm := interp.New(host)
		if err := vm.Initialize(target); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		if len(host.Loads) != 1 || host.Loads[0] != "SQLite.Interop.x64.dll" {
			t.Errorf("loads: %v", host.Loads)
		}
		if len(host.Traces) != 1 || host.Traces[0] != "SQLite.Interop.x64.dll" {
			t.Errorf("traces: %v", host.Traces)
		}
		want := []string{"sqlite3_libversion", "sqlite3_open_interop", "sqlite3_close_interop"}
		if len(host.Lookups) != len(want) {
			t.Fatalf("lookups: %v", host.Lookups)
		}
		for i, l := range host.Lookups {
			if l.Symbol != want[i] || l.Library != "SQLite.Interop.x64.dll" {
				t.Errorf("lookup %d: got %+v, want %s", i, l, want[i])
			}
		}
		if got := vm.Static(target.Field("ready")); got != int32(1) {
			t.Errorf("original initializer code did not run: ready=%v", got)
		}

		table, ok := vm.Static(target.Field("architecturePlatforms")).(*interp.Table)
		if !ok {
			t.Fatal("architecture table not stored")
		}
		wantKeys := []string{"x86", "AMD64", "IA64", "ARM"}
		wantValues := []string{"Win32", "x64", "Itanium", "WinCE"}
		if len(table.Keys) != 4 {
			t.Fatalf("table keys: %v", table.Keys)
		}
		for i, k := range wantKeys {
			if table.Keys[i] != k || table.Values[k] != wantValues[i] {
				t.Errorf("entry %d: got %s=%s, want %s=%s", i, table.Keys[i], table.Values[table.Keys[i]], k, wantValues[i])
			}
		}
	})

	t.Run("thunks", func(t *testing.T) {
		host := newHost("x86")
		vm := interp.New(host)

		got, err := vm.Invoke(target.Method("sqlite3_open_interop"), "main.db", int32(6), interp.NativeInt(0))
		if err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		if got != int32(13) {
			t.Errorf("got %v, want 13", got)
		}
		got, err = vm.Invoke(target.Method("sqlite3_libversion"))
		if err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		if got != interp.NativeInt(0xbeef) {
			t.Errorf("got %v, want 0xbeef", got)
		}
		if _, err := vm.Invoke(target.Method("sqlite3_close"), interp.NativeInt(7)); err != nil {
			t.Fatalf("Invoke: %v", err)
		}

		if len(host.Loads) != 1 || host.Loads[0] != "SQLite.Interop.Win32.dll" {
			t.Errorf("loads: %v", host.Loads)
		}
		calls := host.Calls
		if len(calls) != 3 {
			t.Fatalf("calls: %+v", calls)
		}
		first := calls[0]
		if first.Symbol != "sqlite3_open_interop" || len(first.Args) != 3 ||
			first.Args[0] != "main.db" || first.Args[1] != int32(6) || first.Args[2] != interp.NativeInt(0) {
			t.Errorf("arguments not forwarded: %+v", first)
		}
		if calls[2].Symbol != "sqlite3_close_interop" || calls[2].Args[0] != interp.NativeInt(7) {
			t.Errorf("close call: %+v", calls[2])
		}
	})
}

func TestEngine_ThunkShape(t *testing.T) {
	f := newFixture(t, sqliteImports, true)
	if _, err := engine.New(engine.Config{}).TransformModule(f.m); err != nil {
		t.Fatalf("TransformModule: %v", err)
	}

	md := f.imports[1]
	want := []il.Opcode{il.OpLdsfld, il.OpLdarg0, il.OpLdarg1, il.OpLdarg2, il.OpCallvirt, il.OpRet}
	if len(md.Body.Instructions) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(md.Body.Instructions), len(want))
	}
	for i, op := range want {
		if md.Body.Instructions[i].Opcode != op {
			t.Errorf("instruction %d: got %s, want %s", i, md.Body.Instructions[i].Opcode, op)
		}
	}
	callee, _ := md.Body.Instructions[4].CallTarget()
	if callee.MemberName() != "Invoke" || callee.Owner().FullName() != targetName+"/sqlite3_open_interopDelegate" {
		t.Errorf("thunk calls %s", callee.FullName())
	}
}

func TestEngine_PrologueShape(t *testing.T) {
	f := newFixture(t, sqliteImports[:1], false)
	report, err := engine.New(engine.Config{}).TransformModule(f.m)
	if err != nil {
		t.Fatalf("TransformModule: %v", err)
	}
	if report.MarkerFound || !report.Created {
		t.Errorf("report: %+v", report)
	}

	cctor := f.target.StaticConstructor()
	var want []il.Opcode
	want = append(want, il.OpNewobj)
	for i := 0; i < 4; i++ {
		want = append(want, il.OpDup, il.OpLdstr, il.OpLdstr, il.OpCallvirt)
	}
	want = append(want,
		il.OpStsfld,
		il.OpLdstr, il.OpLdsfld, il.OpLdstr, il.OpCall, il.OpCallvirt, il.OpLdstr, il.OpCall, il.OpStloc0,
		il.OpLdloc0, il.OpCall,
		il.OpLdloc0, il.OpCall, il.OpDup, il.OpStsfld,
		// single import: the handle is consumed without dup
		il.OpLdstr, il.OpCall, il.OpLdtoken, il.OpCall, il.OpCall, il.OpCastclass, il.OpStsfld,
		il.OpRet,
	)
	got := cctor.Body.Instructions
	if len(got) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(got), len(want))
	}
	for i, op := range want {
		if got[i].Opcode != op {
			t.Errorf("instruction %d: got %s, want %s", i, got[i].Opcode, op)
		}
	}
	if cctor.Body.MaxStack < 4 {
		t.Errorf("max stack %d", cctor.Body.MaxStack)
	}
}

func TestEngine_NoTargetPassesThrough(t *testing.T) {
	f := newFixture(t, sqliteImports, true)
	f.target.Name = "SafeNativeMethods"
	before := encode(t, f.m)

	out, report, err := engine.New(engine.Config{}).Transform(before)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if report.Found {
		t.Error("report claims the target was found")
	}
	if !bytes.Equal(out, before) {
		t.Error("module changed without a target type")
	}
}

func TestEngine_CustomTarget(t *testing.T) {
	f := newFixture(t, sqliteImports, true)
	cfg := engine.Config{TargetType: "Other.Type"}
	if report, err := engine.New(cfg).TransformModule(f.m); err != nil || report.Found {
		t.Fatalf("got %+v, %v", report, err)
	}
	if !f.imports[0].IsPInvoke() {
		t.Error("method rewritten for a different target")
	}
}

func TestEngine_ZeroImports(t *testing.T) {
	f := newFixture(t, nil, true)
	m, report := transform(t, f.m, engine.Config{})
	if len(report.Methods) != 0 {
		t.Fatalf("rewrote %d methods", len(report.Methods))
	}

	host := newHost("ARM")
	vm := interp.New(host)
	if err := vm.Initialize(m.Type(targetName)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(host.Loads) != 1 || host.Loads[0] != "SQLite.Interop.WinCE.dll" {
		t.Errorf("loads: %v", host.Loads)
	}
	if len(host.Lookups) != 0 {
		t.Errorf("lookups: %v", host.Lookups)
	}

	body := m.Type(targetName).StaticConstructor().Body.Instructions
	var pops int
	for _, in := range body {
		if in.Opcode == il.OpPop {
			pops++
		}
	}
	if pops != 1 {
		t.Errorf("got %d pops, want 1", pops)
	}
}

func TestEngine_InitializerWithoutMarker(t *testing.T) {
	f := newFixture(t, sqliteImports, false)
	flag := &il.FieldDef{Name: "flag", FieldType: f.m.Int32Type(), Attributes: il.FieldStatic}
	f.target.AddField(flag)

	// if (flag == 0) { flag = 2; return; } flag = 3; return;
	cctor := &il.MethodDef{
		Name:       ".cctor",
		Attributes: il.MethodPrivate | il.MethodStatic | il.MethodSpecialName | il.MethodRTSpecialName,
		Return:     il.MethodReturn{Type: f.m.VoidType()},
		Body:       il.NewBody(),
	}
	end := il.Op(il.OpRet)
	other := il.Op(il.OpLdcI43)
	cctor.Body.Append(
		il.OpImm(il.OpLdsfld, il.FieldImm{Field: flag}),
		il.OpImm(il.OpBrtrueS, il.BranchImm{Target: other}),
		il.Op(il.OpLdcI42),
		il.OpImm(il.OpStsfld, il.FieldImm{Field: flag}),
		il.Op(il.OpRet),
		other,
		il.OpImm(il.OpStsfld, il.FieldImm{Field: flag}),
		il.OpImm(il.OpBrS, il.BranchImm{Target: end}),
		end,
	)
	f.target.AddMethod(cctor)

	m, report := transform(t, f.m, engine.Config{})
	if report.MarkerFound || report.Created {
		t.Errorf("report: %+v", report)
	}

	host := newHost("IA64")
	vm := interp.New(host)
	target := m.Type(targetName)
	if err := vm.Initialize(target); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := vm.Static(target.Field("flag")); got != int32(2) {
		t.Errorf("flag: got %v, want 2", got)
	}
	if len(host.Loads) != 1 || host.Loads[0] != "SQLite.Interop.Itanium.dll" {
		t.Errorf("loads: %v", host.Loads)
	}
	if len(host.Lookups) != 3 {
		t.Errorf("lookups: %v", host.Lookups)
	}
	for _, in := range target.StaticConstructor().Body.Instructions[:5] {
		if in.Opcode == il.OpRet {
			t.Error("early return still skips the prologue")
		}
	}
}

func TestEngine_Overloads(t *testing.T) {
	specs := []nativeSpec{
		{name: "sqlite3_bind", entry: "sqlite3_bind_int", attrs: il.PInvokeCallConvCdecl, ret: int32Type,
			params: []func(m *il.Module) il.Type{intPtrType, int32Type}},
		{name: "sqlite3_bind", entry: "sqlite3_bind_text", attrs: il.PInvokeCallConvCdecl, ret: int32Type,
			params: []func(m *il.Module) il.Type{intPtrType, stringType}},
	}
	f := newFixture(t, specs, true)
	report, err := engine.New(engine.Config{}).TransformModule(f.m)
	if err != nil {
		t.Fatalf("TransformModule: %v", err)
	}
	if len(report.Methods) != 2 {
		t.Fatalf("rewrote %d methods", len(report.Methods))
	}
	if report.Methods[0].Field == report.Methods[1].Field || report.Methods[0].Delegate == report.Methods[1].Delegate {
		t.Errorf("overloads share members: %+v", report.Methods)
	}
	if f.target.NestedType("sqlite3_bind_2Delegate") == nil || f.target.Field("sqlite3_bind_2Ptr") == nil {
		t.Error("second overload not suffixed")
	}
}

func TestEngine_CustomLibraryLayout(t *testing.T) {
	f := newFixture(t, sqliteImports, true)
	cfg := engine.Config{
		Prefix:        "native/",
		Suffix:        "/sqlite.so",
		Environment:   "HOST_ARCH",
		Architectures: []engine.Architecture{{Name: "aarch64", Platform: "arm64"}},
	}
	m, _ := transform(t, f.m, cfg)

	host := interp.NewStdHost()
	host.Env["HOST_ARCH"] = "aarch64"
	vm := interp.New(host)
	if err := vm.Initialize(m.Type(targetName)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(host.Loads) != 1 || host.Loads[0] != "native/arm64/sqlite.so" {
		t.Errorf("loads: %v", host.Loads)
	}
}

func TestEngine_UnknownArchitecture(t *testing.T) {
	f := newFixture(t, sqliteImports, true)
	m, _ := transform(t, f.m, engine.Config{})

	host := newHost("PPC")
	vm := interp.New(host)
	if err := vm.Initialize(m.Type(targetName)); err == nil {
		t.Fatal("expected the table lookup to fail for an unknown architecture")
	}
	if len(host.Loads) != 0 {
		t.Errorf("library loaded: %v", host.Loads)
	}
}
