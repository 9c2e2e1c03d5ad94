package engine

import (
	"github.com/wippyai/dynbind/errors"
	"github.com/wippyai/dynbind/il"
	"github.com/wippyai/dynbind/il/emit"
	"github.com/wippyai/dynbind/rewrite/internal/refs"
	"github.com/wippyai/dynbind/rewrite/internal/synth"
	"go.uber.org/zap"
)

const (
	codeTypeFlags = il.ImplCodeTypeMask | il.ImplManagedMask | il.ImplPreserveSig
	pointerAttrs  = il.FieldPrivate | il.FieldStatic
)

// MethodReport records how one foreign import was rewritten.
type MethodReport struct {
	Method     string
	EntryPoint string
	Delegate   string
	Field      string
}

// rewriter turns foreign imports into thunks over cached delegates.
type rewriter struct {
	refs   *refs.Builder
	synth  *synth.Synthesizer
	names  *namer
	cursor *emit.Cursor
	helper *il.MethodDef
	tag    func() (*il.CustomAttribute, error)
	log    *zap.Logger

	getTypeFromHandle il.Method
	getDelegate       il.Method
}

func (r *rewriter) resolveRuntime() error {
	var err error
	if r.getTypeFromHandle, err = r.refs.GetTypeFromHandle(); err != nil {
		return err
	}
	r.getDelegate, err = r.refs.GetDelegateForFunctionPointer()
	return err
}

// rewrite replaces md with a thunk. The library handle is on the stack at
// the cursor; it is duplicated unless md is the last method, which
// consumes it.
func (r *rewriter) rewrite(target *il.TypeDef, md *il.MethodDef, last bool) (MethodReport, error) {
	entry := md.PInvoke.EntryPoint
	if entry == "" {
		entry = md.Name
	}
	stem := r.names.stem(md.Name)

	dt, err := r.synth.FromMethod(stem+delegateSuffix, md, il.TypeNestedPrivate)
	if err != nil {
		return MethodReport{}, err
	}
	tag, err := r.tag()
	if err != nil {
		return MethodReport{}, err
	}
	dt.CustomAttributes = append(dt.CustomAttributes, tag)
	target.AddNestedType(dt)

	if tag, err = r.tag(); err != nil {
		return MethodReport{}, err
	}
	field := &il.FieldDef{
		Name:             stem + fieldSuffix,
		FieldType:        dt,
		Attributes:       pointerAttrs,
		CustomAttributes: []*il.CustomAttribute{tag},
	}
	target.AddField(field)

	if !last {
		r.cursor.Op(il.OpDup)
	}
	r.cursor.
		Ldstr(entry).
		Call(r.helper).
		Ldtoken(dt).
		Call(r.getTypeFromHandle).
		Call(r.getDelegate).
		Castclass(dt).
		Stsfld(field)

	if err := r.replaceBody(md, dt, field); err != nil {
		return MethodReport{}, err
	}

	r.log.Debug("rewrote foreign import",
		zap.String("method", md.Name),
		zap.String("entry_point", entry),
		zap.String("delegate", dt.FullName()),
		zap.String("field", field.Name))

	return MethodReport{
		Method:     md.Name,
		EntryPoint: entry,
		Delegate:   dt.FullName(),
		Field:      field.Name,
	}, nil
}

// replaceBody turns md into an ordinary IL method forwarding its arguments
// to the cached delegate.
func (r *rewriter) replaceBody(md *il.MethodDef, dt *il.TypeDef, field *il.FieldDef) error {
	invoke := dt.Method("Invoke")
	if invoke == nil {
		return errors.NotFound(errors.PhaseRewrite, "delegate Invoke", dt.FullName())
	}

	md.PInvoke = nil
	md.Attributes &^= il.MethodPInvokeImpl
	md.ImplAttributes = md.ImplAttributes&^codeTypeFlags | il.ImplIL | il.ImplManaged

	body := il.NewBody()
	body.InitLocals = false
	body.MaxStack = len(md.Params) + 1
	c := emit.NewCursor(body, 0)
	c.Ldsfld(field)
	for _, p := range md.Params {
		load, err := emit.ShortestArgLoad(md, p)
		if err != nil {
			return err
		}
		c.Emit(load)
	}
	c.Callvirt(invoke).Op(il.OpRet)
	md.Body = body
	return nil
}
