package il

import (
	"fmt"
	"strings"

	"github.com/wippyai/dynbind/errors"
)

// DefaultCorLib is the scope runtime library references resolve against.
const DefaultCorLib = "mscorlib"

// CustomSection is an opaque named payload carried through unchanged.
type CustomSection struct {
	Name string
	Data []byte
}

// Module is a loaded module: its type definitions and the reference tables
// every cross-module reference must be imported into before encoding.
type Module struct {
	index          map[string]*TypeDef
	refs           *refIndex
	Name           string
	CorLib         string
	Types          []*TypeDef
	TypeRefs       []*TypeRef
	MethodRefs     []*MethodRef
	FieldRefs      []*FieldRef
	CustomSections []CustomSection
}

// NewModule creates an empty module named name.
func NewModule(name string) *Module {
	return &Module{Name: name, CorLib: DefaultCorLib}
}

// AddType adds a top-level type definition.
func (m *Module) AddType(t *TypeDef) {
	t.DeclaringType = nil
	t.attach(m)
	m.Types = append(m.Types, t)
	m.index = nil
}

// Type returns the definition with the given full name, nested names
// joined with '/'. The lookup table is built on first use and rebuilt
// after types are added.
func (m *Module) Type(fullName string) *TypeDef {
	if m.index == nil {
		m.index = make(map[string]*TypeDef)
		for _, t := range m.AllTypes() {
			m.index[t.FullName()] = t
		}
	}
	return m.index[fullName]
}

// AllTypes returns every type definition, each followed by its nested types.
func (m *Module) AllTypes() []*TypeDef {
	var out []*TypeDef
	var walk func(ts []*TypeDef)
	walk = func(ts []*TypeDef) {
		for _, t := range ts {
			out = append(out, t)
			walk(t.NestedTypes)
		}
	}
	walk(m.Types)
	return out
}

// CorLibType returns the imported reference to a runtime library type.
func (m *Module) CorLibType(namespace, name string, valueType bool) *TypeRef {
	return m.ImportTypeRef(&TypeRef{Scope: m.corLib(), Namespace: namespace, Name: name, IsValueType: valueType})
}

// Common runtime library types.

func (m *Module) VoidType() *TypeRef    { return m.CorLibType("System", "Void", true) }
func (m *Module) ObjectType() *TypeRef  { return m.CorLibType("System", "Object", false) }
func (m *Module) StringType() *TypeRef  { return m.CorLibType("System", "String", false) }
func (m *Module) IntPtrType() *TypeRef  { return m.CorLibType("System", "IntPtr", true) }
func (m *Module) BooleanType() *TypeRef { return m.CorLibType("System", "Boolean", true) }
func (m *Module) Int32Type() *TypeRef   { return m.CorLibType("System", "Int32", true) }

func (m *Module) corLib() string {
	if m.CorLib == "" {
		return DefaultCorLib
	}
	return m.CorLib
}

type refIndex struct {
	types   map[string]*TypeRef
	methods map[string]*MethodRef
	fields  map[string]*FieldRef
}

func (m *Module) refTables() *refIndex {
	if m.refs != nil {
		return m.refs
	}
	idx := &refIndex{
		types:   make(map[string]*TypeRef),
		methods: make(map[string]*MethodRef),
		fields:  make(map[string]*FieldRef),
	}
	for _, r := range m.TypeRefs {
		idx.types[TypeKey(r)] = r
	}
	for _, r := range m.MethodRefs {
		idx.methods[methodKey(r)] = r
	}
	for _, r := range m.FieldRefs {
		idx.fields[fieldKey(r)] = r
	}
	m.refs = idx
	return idx
}

// ImportTypeRef returns the module's canonical entry for r, adding it to
// the reference table if no structurally equal entry exists.
func (m *Module) ImportTypeRef(r *TypeRef) *TypeRef {
	if r.DeclaringType != nil {
		r.DeclaringType = m.ImportTypeRef(r.DeclaringType)
	}
	idx := m.refTables()
	key := TypeKey(r)
	if existing, ok := idx.types[key]; ok {
		return existing
	}
	idx.types[key] = r
	m.TypeRefs = append(m.TypeRefs, r)
	return r
}

// ImportType canonicalizes a type signature against the module. References
// are imported, constructed types are rebuilt over imported elements, and
// definitions must belong to the module.
func (m *Module) ImportType(t Type) (Type, error) {
	switch t := t.(type) {
	case nil:
		return nil, nil
	case *TypeDef:
		if t.module != m {
			return nil, errors.Unresolved(errors.PhaseRewrite, "type definition", t.FullName())
		}
		return t, nil
	case *TypeRef:
		return m.ImportTypeRef(t), nil
	case *ArrayType:
		elem, err := m.ImportType(t.Elem)
		if err != nil {
			return nil, err
		}
		return &ArrayType{Elem: elem}, nil
	case *ByRefType:
		elem, err := m.ImportType(t.Elem)
		if err != nil {
			return nil, err
		}
		return &ByRefType{Elem: elem}, nil
	case *PointerType:
		elem, err := m.ImportType(t.Elem)
		if err != nil {
			return nil, err
		}
		return &PointerType{Elem: elem}, nil
	case *GenericInstType:
		elem, err := m.ImportType(t.Elem)
		if err != nil {
			return nil, err
		}
		args, err := m.importTypes(t.Args)
		if err != nil {
			return nil, err
		}
		return &GenericInstType{Elem: elem, Args: args}, nil
	case *GenericParam:
		return t, nil
	default:
		return nil, errors.New(errors.PhaseRewrite, errors.KindUnsupportedOperation).
			GoType(goTypeName(t)).
			Detail("cannot import type signature").
			Build()
	}
}

func (m *Module) importTypes(ts []Type) ([]Type, error) {
	out := make([]Type, len(ts))
	for i, t := range ts {
		it, err := m.ImportType(t)
		if err != nil {
			return nil, err
		}
		out[i] = it
	}
	return out, nil
}

// ImportMethod returns the module's canonical handle for method. Importing
// the same reference twice yields the same entry.
func (m *Module) ImportMethod(method Method) (Method, error) {
	switch method := method.(type) {
	case *MethodDef:
		if method.DeclaringType == nil || method.DeclaringType.module != m {
			return nil, errors.Unresolved(errors.PhaseRewrite, "method definition", method.FullName())
		}
		return method, nil
	case *MethodRef:
		owner, err := m.ImportType(method.DeclaringType)
		if err != nil {
			return nil, err
		}
		ret, err := m.ImportType(method.ReturnType)
		if err != nil {
			return nil, err
		}
		params, err := m.importTypes(method.Params)
		if err != nil {
			return nil, err
		}
		r := &MethodRef{
			DeclaringType: owner,
			ReturnType:    ret,
			Name:          method.Name,
			Params:        params,
			HasThis:       method.HasThis,
			CallConv:      method.CallConv,
		}
		idx := m.refTables()
		key := methodKey(r)
		if existing, ok := idx.methods[key]; ok {
			return existing, nil
		}
		idx.methods[key] = r
		m.MethodRefs = append(m.MethodRefs, r)
		return r, nil
	default:
		return nil, errors.New(errors.PhaseRewrite, errors.KindUnsupportedOperation).
			GoType(goTypeName(method)).
			Detail("cannot import method").
			Build()
	}
}

// ImportField returns the module's canonical handle for field.
func (m *Module) ImportField(field Field) (Field, error) {
	switch field := field.(type) {
	case *FieldDef:
		if field.DeclaringType == nil || field.DeclaringType.module != m {
			return nil, errors.Unresolved(errors.PhaseRewrite, "field definition", field.Name)
		}
		return field, nil
	case *FieldRef:
		owner, err := m.ImportType(field.DeclaringType)
		if err != nil {
			return nil, err
		}
		ft, err := m.ImportType(field.FieldType)
		if err != nil {
			return nil, err
		}
		r := &FieldRef{DeclaringType: owner, FieldType: ft, Name: field.Name}
		idx := m.refTables()
		key := fieldKey(r)
		if existing, ok := idx.fields[key]; ok {
			return existing, nil
		}
		idx.fields[key] = r
		m.FieldRefs = append(m.FieldRefs, r)
		return r, nil
	default:
		return nil, errors.New(errors.PhaseRewrite, errors.KindUnsupportedOperation).
			GoType(goTypeName(field)).
			Detail("cannot import field").
			Build()
	}
}

// TypeKey is the structural identity of a type signature. Two signatures
// with the same key denote the same type.
func TypeKey(t Type) string {
	var b strings.Builder
	writeTypeKey(&b, t)
	return b.String()
}

func writeTypeKey(b *strings.Builder, t Type) {
	switch t := t.(type) {
	case nil:
		b.WriteString("void?")
	case *TypeRef:
		b.WriteByte('[')
		b.WriteString(t.Scope)
		b.WriteByte(']')
		b.WriteString(t.FullName())
		if t.IsValueType {
			b.WriteString("$v")
		}
	case *TypeDef:
		b.WriteString("[.]")
		b.WriteString(t.FullName())
	case *ArrayType:
		writeTypeKey(b, t.Elem)
		b.WriteString("[]")
	case *ByRefType:
		writeTypeKey(b, t.Elem)
		b.WriteByte('&')
	case *PointerType:
		writeTypeKey(b, t.Elem)
		b.WriteByte('*')
	case *GenericInstType:
		writeTypeKey(b, t.Elem)
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			writeTypeKey(b, a)
		}
		b.WriteByte('>')
	default:
		b.WriteString(t.FullName())
	}
}

func methodKey(r *MethodRef) string {
	var b strings.Builder
	writeTypeKey(&b, r.DeclaringType)
	b.WriteString("::")
	b.WriteString(r.Name)
	b.WriteByte('(')
	for i, p := range r.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		writeTypeKey(&b, p)
	}
	b.WriteString(")")
	writeTypeKey(&b, r.ReturnType)
	if r.HasThis {
		b.WriteString(" instance")
	}
	b.WriteByte(' ')
	b.WriteByte('0' + byte(r.CallConv&0x0f))
	return b.String()
}

func fieldKey(r *FieldRef) string {
	var b strings.Builder
	writeTypeKey(&b, r.DeclaringType)
	b.WriteString("::")
	b.WriteString(r.Name)
	b.WriteByte(':')
	writeTypeKey(&b, r.FieldType)
	return b.String()
}

func goTypeName(v any) string {
	return fmt.Sprintf("%T", v)
}
