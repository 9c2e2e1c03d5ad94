package il

import (
	"strconv"
	"strings"
)

// Type is a type signature: a definition in this module, a reference to
// another scope, or a constructed type over one of those.
type Type interface {
	FullName() string
	isType()
}

// TypeRef references a type defined in another scope.
type TypeRef struct {
	DeclaringType *TypeRef
	Scope         string // assembly the type lives in
	Namespace     string
	Name          string
	IsValueType   bool
}

func (*TypeRef) isType() {}

// FullName returns the namespace-qualified name, nested types joined with '/'.
func (t *TypeRef) FullName() string {
	if t.DeclaringType != nil {
		return t.DeclaringType.FullName() + "/" + t.Name
	}
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// ArrayType is a single-dimension zero-based array.
type ArrayType struct {
	Elem Type
}

func (*ArrayType) isType() {}

func (t *ArrayType) FullName() string { return t.Elem.FullName() + "[]" }

// ByRefType is a managed reference, as used by ref and out parameters.
type ByRefType struct {
	Elem Type
}

func (*ByRefType) isType() {}

func (t *ByRefType) FullName() string { return t.Elem.FullName() + "&" }

// PointerType is an unmanaged pointer.
type PointerType struct {
	Elem Type
}

func (*PointerType) isType() {}

func (t *PointerType) FullName() string { return t.Elem.FullName() + "*" }

// GenericInstType is a generic type closed over type arguments.
type GenericInstType struct {
	Elem Type
	Args []Type
}

func (*GenericInstType) isType() {}

func (t *GenericInstType) FullName() string {
	var b strings.Builder
	b.WriteString(t.Elem.FullName())
	b.WriteByte('<')
	for i, a := range t.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.FullName())
	}
	b.WriteByte('>')
	return b.String()
}

// GenericParam refers to a generic parameter of the enclosing type (!n)
// or method (!!n) by position.
type GenericParam struct {
	Position int
	Method   bool
}

func (*GenericParam) isType() {}

func (t *GenericParam) FullName() string {
	if t.Method {
		return "!!" + strconv.Itoa(t.Position)
	}
	return "!" + strconv.Itoa(t.Position)
}

// TypeDef is a type defined in this module.
type TypeDef struct {
	BaseType         Type
	DeclaringType    *TypeDef
	module           *Module
	Namespace        string
	Name             string
	NestedTypes      []*TypeDef
	Fields           []*FieldDef
	Methods          []*MethodDef
	CustomAttributes []*CustomAttribute
	Attributes       TypeAttributes
}

func (*TypeDef) isType() {}

// FullName returns the namespace-qualified name, nested types joined with '/'.
func (t *TypeDef) FullName() string {
	if t.DeclaringType != nil {
		return t.DeclaringType.FullName() + "/" + t.Name
	}
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Module returns the module that owns the type, or nil if detached.
func (t *TypeDef) Module() *Module {
	return t.module
}

// Visibility returns the visibility bits of the type.
func (t *TypeDef) Visibility() TypeAttributes {
	return t.Attributes & TypeVisibilityMask
}

// AddNestedType adds nt as a nested member of t.
func (t *TypeDef) AddNestedType(nt *TypeDef) {
	nt.DeclaringType = t
	t.NestedTypes = append(t.NestedTypes, nt)
	nt.attach(t.module)
	if t.module != nil {
		t.module.index = nil
	}
}

// AddField adds f to t.
func (t *TypeDef) AddField(f *FieldDef) {
	f.DeclaringType = t
	t.Fields = append(t.Fields, f)
}

// AddMethod adds m to t.
func (t *TypeDef) AddMethod(m *MethodDef) {
	m.DeclaringType = t
	t.Methods = append(t.Methods, m)
}

// Method returns the first method with the given name.
func (t *TypeDef) Method(name string) *MethodDef {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Field returns the field with the given name.
func (t *TypeDef) Field(name string) *FieldDef {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// NestedType returns the directly nested type with the given name.
func (t *TypeDef) NestedType(name string) *TypeDef {
	for _, nt := range t.NestedTypes {
		if nt.Name == name {
			return nt
		}
	}
	return nil
}

// StaticConstructor returns the type initializer, or nil.
func (t *TypeDef) StaticConstructor() *MethodDef {
	for _, m := range t.Methods {
		if m.Name == ".cctor" && m.IsStatic() && m.Attributes&MethodRTSpecialName != 0 {
			return m
		}
	}
	return nil
}

func (t *TypeDef) attach(m *Module) {
	t.module = m
	for _, nt := range t.NestedTypes {
		nt.DeclaringType = t
		nt.attach(m)
	}
}

// Member is a field or method, defined here or referenced.
type Member interface {
	MemberName() string
	Owner() Type
	FullName() string
	isMember()
}

// Method is a method definition or a method reference.
type Method interface {
	Member
	Signature() MethodSig
}

// Field is a field definition or a field reference.
type Field interface {
	Member
	FieldSig() Type
}

// MethodSig is the call signature of a method.
type MethodSig struct {
	Return   Type
	Params   []Type
	HasThis  bool
	CallConv CallingConvention
}

func methodFullName(owner Type, name string, sig MethodSig) string {
	var b strings.Builder
	if sig.Return != nil {
		b.WriteString(sig.Return.FullName())
		b.WriteByte(' ')
	}
	if owner != nil {
		b.WriteString(owner.FullName())
		b.WriteString("::")
	}
	b.WriteString(name)
	b.WriteByte('(')
	for i, p := range sig.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.FullName())
	}
	b.WriteByte(')')
	return b.String()
}

// MethodRef references a method by signature without resolving it.
type MethodRef struct {
	DeclaringType Type
	ReturnType    Type
	Name          string
	Params        []Type
	HasThis       bool
	CallConv      CallingConvention
}

func (*MethodRef) isMember() {}

func (r *MethodRef) MemberName() string { return r.Name }

func (r *MethodRef) Owner() Type { return r.DeclaringType }

func (r *MethodRef) Signature() MethodSig {
	return MethodSig{Return: r.ReturnType, Params: r.Params, HasThis: r.HasThis, CallConv: r.CallConv}
}

func (r *MethodRef) FullName() string {
	return methodFullName(r.DeclaringType, r.Name, r.Signature())
}

// FieldRef references a field by name and type.
type FieldRef struct {
	DeclaringType Type
	FieldType     Type
	Name          string
}

func (*FieldRef) isMember() {}

func (r *FieldRef) MemberName() string { return r.Name }

func (r *FieldRef) Owner() Type { return r.DeclaringType }

func (r *FieldRef) FieldSig() Type { return r.FieldType }

func (r *FieldRef) FullName() string {
	return r.FieldType.FullName() + " " + r.DeclaringType.FullName() + "::" + r.Name
}

// FieldDef is a field defined in this module.
type FieldDef struct {
	FieldType        Type
	DeclaringType    *TypeDef
	Name             string
	CustomAttributes []*CustomAttribute
	Attributes       FieldAttributes
}

func (*FieldDef) isMember() {}

func (f *FieldDef) MemberName() string { return f.Name }

func (f *FieldDef) Owner() Type {
	if f.DeclaringType == nil {
		return nil
	}
	return f.DeclaringType
}

func (f *FieldDef) FieldSig() Type { return f.FieldType }

func (f *FieldDef) FullName() string {
	owner := ""
	if f.DeclaringType != nil {
		owner = f.DeclaringType.FullName() + "::"
	}
	return f.FieldType.FullName() + " " + owner + f.Name
}

// IsStatic reports whether the field is static.
func (f *FieldDef) IsStatic() bool { return f.Attributes&FieldStatic != 0 }

// MarshalInfo describes how a value is marshaled to native code.
type MarshalInfo struct {
	Extra      []byte // native type specific trailing descriptor
	NativeType NativeType
}

// MethodReturn describes a method's return value.
type MethodReturn struct {
	Type             Type
	Marshal          *MarshalInfo
	CustomAttributes []*CustomAttribute
	Attributes       ParamAttributes
}

// ParamDef is a declared method parameter.
type ParamDef struct {
	Type             Type
	Marshal          *MarshalInfo
	Name             string
	CustomAttributes []*CustomAttribute
	Attributes       ParamAttributes
}

// PInvokeInfo binds a method to a function exported by a native library.
type PInvokeInfo struct {
	Module     string // native library name
	EntryPoint string // exported symbol; empty means the method name
	Attributes PInvokeAttributes
}

// CharSet returns the character set bits.
func (p *PInvokeInfo) CharSet() PInvokeAttributes {
	return p.Attributes & PInvokeCharSetMask
}

// CallConv returns the calling convention bits.
func (p *PInvokeInfo) CallConv() PInvokeAttributes {
	return p.Attributes & PInvokeCallConvMask
}

// IsBestFitEnabled reports whether best-fit mapping was explicitly enabled.
func (p *PInvokeInfo) IsBestFitEnabled() bool {
	return p.Attributes&PInvokeBestFitMask == PInvokeBestFitEnabled
}

// IsThrowOnUnmappableCharEnabled reports whether unmappable characters throw.
func (p *PInvokeInfo) IsThrowOnUnmappableCharEnabled() bool {
	return p.Attributes&PInvokeThrowOnUnmappableCharMask == PInvokeThrowOnUnmappableCharEnabled
}

// SupportsLastError reports whether the native error code is preserved.
func (p *PInvokeInfo) SupportsLastError() bool {
	return p.Attributes&PInvokeSupportsLastError != 0
}

// MethodDef is a method defined in this module.
type MethodDef struct {
	Return           MethodReturn
	PInvoke          *PInvokeInfo
	Body             *MethodBody
	DeclaringType    *TypeDef
	Name             string
	Params           []*ParamDef
	CustomAttributes []*CustomAttribute
	Attributes       MethodAttributes
	ImplAttributes   MethodImplAttributes
	CallConv         CallingConvention
}

func (*MethodDef) isMember() {}

func (m *MethodDef) MemberName() string { return m.Name }

func (m *MethodDef) Owner() Type {
	if m.DeclaringType == nil {
		return nil
	}
	return m.DeclaringType
}

func (m *MethodDef) Signature() MethodSig {
	params := make([]Type, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.Type
	}
	return MethodSig{Return: m.Return.Type, Params: params, HasThis: m.HasThis(), CallConv: m.CallConv}
}

func (m *MethodDef) FullName() string {
	return methodFullName(m.Owner(), m.Name, m.Signature())
}

// IsStatic reports whether the method is static.
func (m *MethodDef) IsStatic() bool { return m.Attributes&MethodStatic != 0 }

// HasThis reports whether argument 0 is the instance.
func (m *MethodDef) HasThis() bool { return !m.IsStatic() }

// IsPInvoke reports whether the method is a foreign import.
func (m *MethodDef) IsPInvoke() bool {
	return m.Attributes&MethodPInvokeImpl != 0 && m.PInvoke != nil
}

// AddParam appends a parameter.
func (m *MethodDef) AddParam(p *ParamDef) {
	m.Params = append(m.Params, p)
}

// ParamIndex returns the position of p among the declared parameters, or -1.
func (m *MethodDef) ParamIndex(p *ParamDef) int {
	for i, q := range m.Params {
		if q == p {
			return i
		}
	}
	return -1
}

// ArgIndex returns the argument slot of p, counting the implicit instance.
func (m *MethodDef) ArgIndex(p *ParamDef) int {
	idx := m.ParamIndex(p)
	if idx < 0 {
		return -1
	}
	if m.HasThis() {
		idx++
	}
	return idx
}

// CustomAttribute is an attribute instance attached to metadata.
type CustomAttribute struct {
	Constructor Method
	Args        []AttrArg
	Fields      []NamedArg
	Properties  []NamedArg
}

// AttrArg is a typed attribute argument. Value holds one of bool, int32,
// int64, float64, string or Type.
type AttrArg struct {
	Type  Type
	Value any
}

// NamedArg is a field or property assignment in an attribute.
type NamedArg struct {
	Arg  AttrArg
	Name string
}

// Field returns the named field argument.
func (a *CustomAttribute) Field(name string) (AttrArg, bool) {
	for _, f := range a.Fields {
		if f.Name == name {
			return f.Arg, true
		}
	}
	return AttrArg{}, false
}

// AttributeType returns the type that declares the attribute constructor.
func (a *CustomAttribute) AttributeType() Type {
	if a.Constructor == nil {
		return nil
	}
	return a.Constructor.Owner()
}
