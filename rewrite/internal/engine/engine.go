package engine

import (
	"fmt"

	"github.com/wippyai/dynbind/il"
	"github.com/wippyai/dynbind/rewrite/internal/refs"
	"github.com/wippyai/dynbind/rewrite/internal/synth"
	"go.uber.org/zap"
)

// Report describes the outcome of a rewrite.
type Report struct {
	Target      string
	Helper      string
	Methods     []MethodReport
	Found       bool
	MarkerFound bool
	Created     bool
}

// Engine rewrites the foreign imports of one target type.
//
// The engine is stateless between calls. Each call operates on an
// independent module.
type Engine struct {
	cfg Config
}

// New creates an engine with the given config.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Transform decodes a module container, rewrites it and encodes the result.
func (e *Engine) Transform(data []byte) ([]byte, *Report, error) {
	m, err := il.ParseModule(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse module: %w", err)
	}
	report, err := e.TransformModule(m)
	if err != nil {
		return nil, nil, err
	}
	out, err := m.Encode()
	if err != nil {
		return nil, nil, fmt.Errorf("encode module: %w", err)
	}
	return out, report, nil
}

// TransformModule rewrites m in place.
//
// The rewrite:
//  1. Looks up the target type by exact name; a missing type is not an error
//  2. Collects its foreign imports bound to the configured library
//  3. Adds the symbol lookup helper
//  4. Injects the library loading prologue into the static initializer
//  5. Rewrites each import, in declaration order, into a delegate thunk
//  6. Validates the result
func (e *Engine) TransformModule(m *il.Module) (*Report, error) {
	log := e.cfg.Logger
	report := &Report{Target: e.cfg.TargetType}

	target := m.Type(e.cfg.TargetType)
	if target == nil {
		log.Info("target type not found, module left unchanged", zap.String("type", e.cfg.TargetType))
		return report, nil
	}
	report.Found = true

	var imports []*il.MethodDef
	for _, md := range target.Methods {
		if md.IsPInvoke() && md.PInvoke.Module == e.cfg.Library {
			imports = append(imports, md)
		}
	}
	log.Info("rewriting foreign imports",
		zap.String("type", target.FullName()),
		zap.String("library", e.cfg.Library),
		zap.Int("methods", len(imports)))

	b := refs.New(m)
	names := newNamer(target)
	tag := func() (*il.CustomAttribute, error) {
		ctor, err := b.CompilerGenerated()
		if err != nil {
			return nil, err
		}
		return &il.CustomAttribute{Constructor: ctor}, nil
	}

	helper := e.lookupHelper(m, names)
	target.AddMethod(helper)
	report.Helper = helper.Name

	inj := &injector{cfg: &e.cfg, refs: b, names: names, tag: tag, log: log}
	pro, err := inj.inject(target)
	if err != nil {
		return nil, fmt.Errorf("inject static initializer: %w", err)
	}
	report.MarkerFound = pro.MarkerFound
	report.Created = pro.Created

	rw := &rewriter{
		refs:   b,
		synth:  synth.New(b),
		names:  names,
		cursor: pro.Cursor,
		helper: helper,
		tag:    tag,
		log:    log,
	}
	if err := rw.resolveRuntime(); err != nil {
		return nil, fmt.Errorf("import runtime references: %w", err)
	}
	for i, md := range imports {
		mr, err := rw.rewrite(target, md, i == len(imports)-1)
		if err != nil {
			return nil, fmt.Errorf("rewrite %s: %w", md.Name, err)
		}
		report.Methods = append(report.Methods, mr)
	}
	if len(imports) == 0 {
		pro.Cursor.Op(il.OpPop)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("rewritten module is invalid: %w", err)
	}
	log.Info("rewrite complete",
		zap.String("type", target.FullName()),
		zap.Int("rewritten", len(report.Methods)),
		zap.Bool("marker", pro.MarkerFound))
	return report, nil
}

// lookupHelper declares the native symbol lookup the generated code calls:
//
//	static extern IntPtr GetProcAddress(IntPtr module, string name)
func (e *Engine) lookupHelper(m *il.Module, names *namer) *il.MethodDef {
	md := &il.MethodDef{
		Name:           names.unique(e.cfg.HelperSymbol),
		Attributes:     il.MethodPrivate | il.MethodStatic | il.MethodHideBySig | il.MethodPInvokeImpl,
		ImplAttributes: il.ImplPreserveSig,
		Return:         il.MethodReturn{Type: m.IntPtrType()},
		PInvoke: &il.PInvokeInfo{
			Module:     e.cfg.HelperLibrary,
			EntryPoint: e.cfg.HelperSymbol,
			Attributes: il.PInvokeCharSetAnsi | il.PInvokeCallConvWinapi,
		},
	}
	md.AddParam(&il.ParamDef{Name: "module", Type: m.IntPtrType()})
	md.AddParam(&il.ParamDef{Name: "name", Type: m.StringType()})
	return md
}
