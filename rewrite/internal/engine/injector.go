package engine

import (
	"fmt"

	"github.com/wippyai/dynbind/errors"
	"github.com/wippyai/dynbind/il"
	"github.com/wippyai/dynbind/il/emit"
	"github.com/wippyai/dynbind/rewrite/internal/refs"
	"go.uber.org/zap"
)

// prologueStack is the evaluation stack depth the prologue and the
// per-method resolution code need.
const prologueStack = 4

const cctorAttrs = il.MethodPrivate | il.MethodStatic | il.MethodHideBySig | il.MethodSpecialName | il.MethodRTSpecialName

// prologue is the result of injecting into the static initializer.
type prologue struct {
	Initializer *il.MethodDef
	Cursor      *emit.Cursor
	Table       *il.FieldDef
	Handle      *il.FieldDef
	Created     bool
	MarkerFound bool
}

// injector places the library loading prologue into the target type's
// static initializer.
type injector struct {
	cfg   *Config
	refs  *refs.Builder
	names *namer
	tag   func() (*il.CustomAttribute, error)
	log   *zap.Logger
}

// inject emits the prologue and returns the cursor after it. On return the
// library handle is on the evaluation stack at the cursor.
func (in *injector) inject(target *il.TypeDef) (*prologue, error) {
	cctor, created := in.staticInitializer(target)
	body := cctor.Body
	p := &prologue{Initializer: cctor, Created: created}

	var (
		start    int
		replaced *il.Instruction
		closing  *il.Instruction
	)
	if idx := in.findMarker(target, body); idx >= 0 {
		p.MarkerFound = true
		replaced = body.RemoveAt(idx)
		start = idx
		in.log.Debug("replacing marker call",
			zap.String("type", target.FullName()),
			zap.String("marker", in.cfg.Marker),
			zap.Int("offset", idx))
	} else {
		n := len(body.Instructions)
		if n > 0 && body.Instructions[n-1].Opcode == il.OpRet {
			replaced = body.RemoveAt(n - 1)
			clone, err := emit.Clone(replaced)
			if err != nil {
				return nil, err
			}
			closing = clone
		} else {
			closing = il.Op(il.OpRet)
		}
		start = len(body.Instructions)
		body.Append(closing)
		in.log.Debug("appending prologue to static initializer",
			zap.String("type", target.FullName()),
			zap.Bool("created", created))
	}

	p.Cursor = emit.NewCursor(body, start)
	if err := in.emitPrologue(target, p); err != nil {
		return nil, err
	}

	first := body.Instructions[start]
	if replaced != nil {
		body.Retarget(replaced, first)
	}
	if closing != nil {
		// Earlier returns now fall into the prologue.
		for _, instr := range body.Instructions[:start] {
			if instr.Opcode == il.OpRet {
				instr.Opcode = il.OpBr
				instr.Imm = il.BranchImm{Target: first}
			}
		}
	}
	if body.MaxStack < prologueStack {
		body.MaxStack = prologueStack
	}
	return p, nil
}

// staticInitializer returns the type initializer, creating one whose body
// is a single ret when the type has none.
func (in *injector) staticInitializer(target *il.TypeDef) (*il.MethodDef, bool) {
	if cctor := target.StaticConstructor(); cctor != nil {
		if cctor.Body == nil {
			cctor.Body = il.NewBody()
			cctor.Body.Append(il.Op(il.OpRet))
		}
		return cctor, false
	}
	cctor := &il.MethodDef{
		Name:       ".cctor",
		Attributes: cctorAttrs,
		Return:     il.MethodReturn{Type: in.refs.Module().VoidType()},
		Body:       il.NewBody(),
	}
	cctor.Body.Append(il.Op(il.OpRet))
	target.AddMethod(cctor)
	return cctor, true
}

// findMarker returns the position of the call to the legacy initialization
// routine, a static void parameterless method of the target type, or -1.
func (in *injector) findMarker(target *il.TypeDef, body *il.MethodBody) int {
	for i, instr := range body.Instructions {
		if instr.Opcode != il.OpCall {
			continue
		}
		callee, ok := instr.CallTarget()
		if !ok || callee.MemberName() != in.cfg.Marker {
			continue
		}
		owner := callee.Owner()
		if owner == nil || owner.FullName() != target.FullName() {
			continue
		}
		sig := callee.Signature()
		if sig.HasThis || len(sig.Params) != 0 || sig.Return == nil || sig.Return.FullName() != "System.Void" {
			continue
		}
		return i
	}
	return -1
}

func (in *injector) addField(target *il.TypeDef, name string, t il.Type) (*il.FieldDef, error) {
	attr, err := in.tag()
	if err != nil {
		return nil, err
	}
	f := &il.FieldDef{
		Name:             in.names.unique(name),
		FieldType:        t,
		Attributes:       il.FieldPrivate | il.FieldStatic,
		CustomAttributes: []*il.CustomAttribute{attr},
	}
	target.AddField(f)
	return f, nil
}

func (in *injector) emitPrologue(target *il.TypeDef, p *prologue) error {
	m := in.refs.Module()
	wrap := func(what string, err error) error {
		return errors.New(errors.PhaseInject, errors.KindUnresolvedReference).
			Path(target.FullName(), ".cctor").
			Detail("import %s", what).
			Cause(err).
			Build()
	}

	table, err := in.refs.StringTable()
	if err != nil {
		return wrap("string table", err)
	}
	getenv, err := in.refs.GetEnvironmentVariable()
	if err != nil {
		return wrap("environment lookup", err)
	}
	concat, err := in.refs.StringConcat3()
	if err != nil {
		return wrap("string concatenation", err)
	}
	trace, err := in.refs.TraceWriteLine()
	if err != nil {
		return wrap("trace output", err)
	}
	load, err := in.refs.LoadLibrary()
	if err != nil {
		return wrap("library loading", err)
	}

	p.Table, err = in.addField(target, tableFieldName, table.Type)
	if err != nil {
		return fmt.Errorf("add table field: %w", err)
	}
	p.Handle, err = in.addField(target, handleFieldName, m.IntPtrType())
	if err != nil {
		return fmt.Errorf("add handle field: %w", err)
	}
	name := p.Initializer.Body.AddVariable(m.StringType())

	c := p.Cursor
	c.Newobj(table.Ctor)
	for _, arch := range in.cfg.Architectures {
		c.Op(il.OpDup).Ldstr(arch.Name).Ldstr(arch.Platform).Callvirt(table.Add)
	}
	c.Stsfld(p.Table)

	c.Ldstr(in.cfg.Prefix).
		Ldsfld(p.Table).
		Ldstr(in.cfg.Environment).
		Call(getenv).
		Callvirt(table.Item).
		Ldstr(in.cfg.Suffix).
		Call(concat).
		Store(name)

	c.Load(name).Call(trace)

	c.Load(name).
		Call(load).
		Op(il.OpDup).
		Stsfld(p.Handle)
	return nil
}
