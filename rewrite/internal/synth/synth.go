package synth

import (
	"github.com/wippyai/dynbind/errors"
	"github.com/wippyai/dynbind/il"
	"github.com/wippyai/dynbind/rewrite/internal/refs"
)

const (
	delegateMethodAttrs = il.MethodPublic | il.MethodHideBySig | il.MethodNewSlot | il.MethodVirtual
	ctorAttrs           = il.MethodPublic | il.MethodHideBySig | il.MethodSpecialName | il.MethodRTSpecialName
	runtimeImpl         = il.ImplRuntime | il.ImplManaged
)

// Delegate describes a delegate type to synthesize.
type Delegate struct {
	Namespace  string
	Name       string
	Return     il.MethodReturn
	Params     []*il.ParamDef
	Visibility il.TypeAttributes
}

// Synthesizer builds delegate types for one module.
type Synthesizer struct {
	refs *refs.Builder
}

// New creates a synthesizer importing through b.
func New(b *refs.Builder) *Synthesizer {
	return &Synthesizer{refs: b}
}

// Build creates the delegate type. The type is detached; the caller adds it
// to the module. A nil return type means void.
func (s *Synthesizer) Build(d Delegate) (*il.TypeDef, error) {
	if d.Visibility&il.TypeVisibilityMask != d.Visibility {
		err := errors.InvalidVisibility(uint32(d.Visibility))
		err.Member = d.Name
		return nil, err
	}
	m := s.refs.Module()
	ret := CopyReturn(d.Return)
	if ret.Type == nil {
		ret.Type = m.VoidType()
	}
	asyncResult := s.refs.AsyncResult()

	td := &il.TypeDef{
		Namespace:  d.Namespace,
		Name:       d.Name,
		Attributes: d.Visibility | il.TypeAnsiClass | il.TypeSealed,
		BaseType:   s.refs.MulticastDelegate(),
	}

	ctor := &il.MethodDef{
		Name:           ".ctor",
		Attributes:     ctorAttrs,
		ImplAttributes: runtimeImpl,
		Return:         il.MethodReturn{Type: m.VoidType()},
	}
	ctor.AddParam(&il.ParamDef{Name: "object", Type: m.ObjectType()})
	ctor.AddParam(&il.ParamDef{Name: "method", Type: m.IntPtrType()})
	td.AddMethod(ctor)

	invoke := &il.MethodDef{
		Name:           "Invoke",
		Attributes:     delegateMethodAttrs,
		ImplAttributes: runtimeImpl,
		Return:         ret,
	}
	for _, p := range d.Params {
		invoke.AddParam(CopyParam(p))
	}
	td.AddMethod(invoke)

	begin := &il.MethodDef{
		Name:           "BeginInvoke",
		Attributes:     delegateMethodAttrs,
		ImplAttributes: runtimeImpl,
		Return:         il.MethodReturn{Type: asyncResult},
	}
	for _, p := range d.Params {
		begin.AddParam(CopyParam(p))
	}
	begin.AddParam(&il.ParamDef{Name: "callback", Type: s.refs.AsyncCallback()})
	begin.AddParam(&il.ParamDef{Name: "object", Type: m.ObjectType()})
	td.AddMethod(begin)

	end := &il.MethodDef{
		Name:           "EndInvoke",
		Attributes:     delegateMethodAttrs,
		ImplAttributes: runtimeImpl,
		Return:         CopyReturn(ret),
	}
	end.AddParam(&il.ParamDef{Name: "result", Type: asyncResult})
	td.AddMethod(end)

	return td, nil
}

// FromMethod builds a delegate matching method's signature. When method is
// a foreign import the delegate is tagged with its marshaling metadata.
func (s *Synthesizer) FromMethod(name string, method *il.MethodDef, visibility il.TypeAttributes) (*il.TypeDef, error) {
	td, err := s.Build(Delegate{
		Name:       name,
		Return:     method.Return,
		Params:     method.Params,
		Visibility: visibility,
	})
	if err != nil {
		return nil, err
	}
	if method.IsPInvoke() {
		attr, err := s.UnmanagedFunctionPointer(method)
		if err != nil {
			return nil, err
		}
		td.CustomAttributes = append(td.CustomAttributes, attr)
	}
	return td, nil
}

// UnmanagedFunctionPointer reconstructs the marshaling attribute of a
// foreign import.
func (s *Synthesizer) UnmanagedFunctionPointer(method *il.MethodDef) (*il.CustomAttribute, error) {
	ctor, conv, err := s.refs.UnmanagedFunctionPointer()
	if err != nil {
		return nil, errors.New(errors.PhaseSynthesize, errors.KindUnresolvedReference).
			Member(method.Name).
			Detail("import UnmanagedFunctionPointerAttribute").
			Cause(err).
			Build()
	}
	attr := &il.CustomAttribute{
		Constructor: ctor,
		Args:        []il.AttrArg{{Type: conv, Value: int32(CallingConventionOf(method))}},
	}
	b := newFieldBuilder(attr)
	if cs := CharSetOf(method); cs != CharSetNone {
		b.set("CharSet", s.refs.CharSet(), int32(cs))
	}
	boolType := s.refs.Module().BooleanType()
	if !BestFitMapping(method) {
		b.set("BestFitMapping", boolType, false)
	}
	if ThrowOnUnmappableChar(method) {
		b.set("ThrowOnUnmappableChar", boolType, true)
	}
	if SetLastError(method) {
		b.set("SetLastError", boolType, true)
	}
	return attr, nil
}

// fieldBuilder appends named field arguments to an attribute.
type fieldBuilder struct {
	attr *il.CustomAttribute
}

func newFieldBuilder(attr *il.CustomAttribute) fieldBuilder {
	return fieldBuilder{attr: attr}
}

func (b fieldBuilder) set(name string, t il.Type, v any) {
	b.attr.Fields = append(b.attr.Fields, il.NamedArg{Name: name, Arg: il.AttrArg{Type: t, Value: v}})
}

// CopyReturn copies a return descriptor. Marshal info and the attribute
// list are copied; attribute instances are shared.
func CopyReturn(src il.MethodReturn) il.MethodReturn {
	dst := il.MethodReturn{
		Type:       src.Type,
		Attributes: src.Attributes,
		Marshal:    copyMarshal(src.Marshal),
	}
	if len(src.CustomAttributes) > 0 {
		dst.CustomAttributes = append([]*il.CustomAttribute(nil), src.CustomAttributes...)
	}
	return dst
}

// CopyParam returns a new parameter with the same name, type, flags and
// marshaling as p.
func CopyParam(p *il.ParamDef) *il.ParamDef {
	out := &il.ParamDef{
		Name:       p.Name,
		Type:       p.Type,
		Attributes: p.Attributes,
		Marshal:    copyMarshal(p.Marshal),
	}
	if len(p.CustomAttributes) > 0 {
		out.CustomAttributes = append([]*il.CustomAttribute(nil), p.CustomAttributes...)
	}
	return out
}

func copyMarshal(mi *il.MarshalInfo) *il.MarshalInfo {
	if mi == nil {
		return nil
	}
	out := &il.MarshalInfo{NativeType: mi.NativeType}
	if len(mi.Extra) > 0 {
		out.Extra = append([]byte(nil), mi.Extra...)
	}
	return out
}
