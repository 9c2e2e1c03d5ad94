package refs

import (
	"github.com/wippyai/dynbind/il"
)

// Runtime library members generated code depends on.
const (
	InteropNamespace = "System.Runtime.InteropServices"
	GenericNamespace = "System.Collections.Generic"
)

// StringConcat3 returns System.String::Concat(string, string, string).
func (b *Builder) StringConcat3() (il.Method, error) {
	str := b.module.StringType()
	return b.Static(str, "Concat", str, str, str, str)
}

// GetEnvironmentVariable returns System.Environment::GetEnvironmentVariable(string).
func (b *Builder) GetEnvironmentVariable() (il.Method, error) {
	str := b.module.StringType()
	return b.Static(b.Class("System", "Environment"), "GetEnvironmentVariable", str, str)
}

// LoadLibrary returns NativeLibrary::Load(string), which loads a native
// library by path and returns its handle.
func (b *Builder) LoadLibrary() (il.Method, error) {
	return b.Static(b.Class(InteropNamespace, "NativeLibrary"), "Load", b.module.IntPtrType(), b.module.StringType())
}

// GetDelegateForFunctionPointer returns Marshal::GetDelegateForFunctionPointer(IntPtr, Type).
func (b *Builder) GetDelegateForFunctionPointer() (il.Method, error) {
	return b.Static(b.Class(InteropNamespace, "Marshal"), "GetDelegateForFunctionPointer",
		b.Class("System", "Delegate"), b.module.IntPtrType(), b.SystemType())
}

// GetTypeFromHandle returns System.Type::GetTypeFromHandle(RuntimeTypeHandle).
func (b *Builder) GetTypeFromHandle() (il.Method, error) {
	return b.Static(b.SystemType(), "GetTypeFromHandle", b.SystemType(), b.ValueType("System", "RuntimeTypeHandle"))
}

// TraceWriteLine returns System.Diagnostics.Trace::WriteLine(string).
func (b *Builder) TraceWriteLine() (il.Method, error) {
	trace := b.Type(ScopeSystem, "System.Diagnostics", "Trace", false)
	return b.Static(trace, "WriteLine", nil, b.module.StringType())
}

// SystemType returns the reference to System.Type.
func (b *Builder) SystemType() *il.TypeRef {
	return b.Class("System", "Type")
}

// StringTable is Dictionary<string, string> with the members used to build
// and query it.
type StringTable struct {
	Type il.Type
	Ctor il.Method
	Add  il.Method
	Item il.Method
}

// StringTable returns the references for an ordered string to string table.
func (b *Builder) StringTable() (*StringTable, error) {
	str := b.module.StringType()
	open := b.Class(GenericNamespace, "Dictionary`2")
	inst, err := b.ImportType(&il.GenericInstType{Elem: open, Args: []il.Type{str, str}})
	if err != nil {
		return nil, err
	}
	key := &il.GenericParam{Position: 0}
	value := &il.GenericParam{Position: 1}

	ctor, err := b.Ctor(inst)
	if err != nil {
		return nil, err
	}
	add, err := b.Instance(inst, "Add", nil, key, value)
	if err != nil {
		return nil, err
	}
	item, err := b.Instance(inst, "get_Item", value, key)
	if err != nil {
		return nil, err
	}
	return &StringTable{Type: inst, Ctor: ctor, Add: add, Item: item}, nil
}

// Delegate types the synthesized callables derive from or mention.

// MulticastDelegate returns System.MulticastDelegate.
func (b *Builder) MulticastDelegate() *il.TypeRef {
	return b.Class("System", "MulticastDelegate")
}

// AsyncCallback returns System.AsyncCallback.
func (b *Builder) AsyncCallback() *il.TypeRef {
	return b.Class("System", "AsyncCallback")
}

// AsyncResult returns System.IAsyncResult.
func (b *Builder) AsyncResult() *il.TypeRef {
	return b.Class("System", "IAsyncResult")
}

// CompilerGenerated returns the constructor of CompilerGeneratedAttribute.
func (b *Builder) CompilerGenerated() (il.Method, error) {
	return b.Ctor(b.Class("System.Runtime.CompilerServices", "CompilerGeneratedAttribute"))
}

// UnmanagedFunctionPointer returns the constructor of
// UnmanagedFunctionPointerAttribute(CallingConvention) and the convention
// enum type.
func (b *Builder) UnmanagedFunctionPointer() (il.Method, *il.TypeRef, error) {
	conv := b.ValueType(InteropNamespace, "CallingConvention")
	ctor, err := b.Ctor(b.Class(InteropNamespace, "UnmanagedFunctionPointerAttribute"), conv)
	if err != nil {
		return nil, nil, err
	}
	return ctor, conv, nil
}

// CharSet returns the System.Runtime.InteropServices.CharSet enum type.
func (b *Builder) CharSet() *il.TypeRef {
	return b.ValueType(InteropNamespace, "CharSet")
}
