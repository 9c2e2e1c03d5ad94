// Package refs builds the references generated code calls through.
//
// Every call target, field and type that generated code mentions is
// created here and imported into the module, so the reference tables hold
// exactly one canonical entry per member.
package refs

import (
	"github.com/wippyai/dynbind/il"
)

// ScopeSystem is the assembly holding runtime types outside the core library.
const ScopeSystem = "System"

// Builder creates and imports references into one module.
type Builder struct {
	module *il.Module
}

// New creates a builder for m.
func New(m *il.Module) *Builder {
	return &Builder{module: m}
}

// Module returns the module references are imported into.
func (b *Builder) Module() *il.Module {
	return b.module
}

// Type returns the imported reference to namespace.name in scope. An empty
// scope means the core library.
func (b *Builder) Type(scope, namespace, name string, valueType bool) *il.TypeRef {
	if scope == "" {
		return b.module.CorLibType(namespace, name, valueType)
	}
	return b.module.ImportTypeRef(&il.TypeRef{Scope: scope, Namespace: namespace, Name: name, IsValueType: valueType})
}

// Class returns a core library reference type.
func (b *Builder) Class(namespace, name string) *il.TypeRef {
	return b.Type("", namespace, name, false)
}

// ValueType returns a core library value type.
func (b *Builder) ValueType(namespace, name string) *il.TypeRef {
	return b.Type("", namespace, name, true)
}

// MethodRef builds a reference to declaring::name by signature and imports
// it. The method does not need to resolve locally; this is how generated
// code calls runtime facilities and members of types still being built.
func (b *Builder) MethodRef(declaring il.Type, name string, ret il.Type, hasThis bool, params ...il.Type) (il.Method, error) {
	if ret == nil {
		ret = b.module.VoidType()
	}
	return b.Import(&il.MethodRef{
		DeclaringType: declaring,
		ReturnType:    ret,
		Name:          name,
		Params:        params,
		HasThis:       hasThis,
	})
}

// Static builds a static method reference.
func (b *Builder) Static(declaring il.Type, name string, ret il.Type, params ...il.Type) (il.Method, error) {
	return b.MethodRef(declaring, name, ret, false, params...)
}

// Instance builds an instance method reference.
func (b *Builder) Instance(declaring il.Type, name string, ret il.Type, params ...il.Type) (il.Method, error) {
	return b.MethodRef(declaring, name, ret, true, params...)
}

// Ctor builds a reference to the instance constructor of declaring.
func (b *Builder) Ctor(declaring il.Type, params ...il.Type) (il.Method, error) {
	return b.MethodRef(declaring, ".ctor", nil, true, params...)
}

// Import makes method usable from the module. Importing the same reference
// again returns the same entry.
func (b *Builder) Import(method il.Method) (il.Method, error) {
	return b.module.ImportMethod(method)
}

// ImportField makes field usable from the module.
func (b *Builder) ImportField(field il.Field) (il.Field, error) {
	return b.module.ImportField(field)
}

// ImportType makes t usable from the module.
func (b *Builder) ImportType(t il.Type) (il.Type, error) {
	return b.module.ImportType(t)
}
