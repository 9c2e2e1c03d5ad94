package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wippyai/dynbind/il"
	"github.com/wippyai/dynbind/interp"
	"github.com/wippyai/dynbind/rewrite"
	"golang.org/x/term"
)

func main() {
	var (
		moduleFile  = flag.String("module", "", "Path to module file")
		list        = flag.Bool("list", false, "List types, methods and foreign imports")
		initType    = flag.String("init", "", "Run the static initializer of the named type")
		envVars     = flag.String("env", "", "Environment variables for -init (KEY=VAL,KEY2=VAL2)")
		doRewrite   = flag.Bool("rewrite", false, "Rewrite foreign imports in memory before inspecting")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *moduleFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: ilinspect -module <file> [-list] [-rewrite]")
		fmt.Fprintln(os.Stderr, "       ilinspect -module <file> -init <type> [-env K=V,...]")
		fmt.Fprintln(os.Stderr, "       ilinspect -module <file> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*moduleFile, *doRewrite); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	styled := term.IsTerminal(int(os.Stdout.Fd()))
	if err := run(os.Stdout, styled, *moduleFile, *initType, *envVars, *list, *doRewrite); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadModule parses and validates the module, optionally rewriting it with
// the default configuration.
func loadModule(path string, doRewrite bool) (*il.Module, *rewrite.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}
	m, err := il.ParseModuleValidate(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}
	if !doRewrite {
		return m, nil, nil
	}
	report, err := rewrite.TransformModule(m, rewrite.DefaultConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("rewrite: %w", err)
	}
	return m, report, nil
}

func run(w io.Writer, styled bool, moduleFile, initType, envStr string, listOnly, doRewrite bool) error {
	m, report, err := loadModule(moduleFile, doRewrite)
	if err != nil {
		return err
	}
	st := newStyles(styled)

	fmt.Fprintf(w, "Module: %s\n", m.Name)
	fmt.Fprintf(w, "Types: %d\n", len(m.AllTypes()))
	fmt.Fprintf(w, "Type refs: %d\n", len(m.TypeRefs))
	fmt.Fprintf(w, "Member refs: %d\n", len(m.MethodRefs)+len(m.FieldRefs))

	if report != nil {
		fmt.Fprintln(w)
		writeReport(w, st, report)
	}

	if listOnly || initType == "" {
		fmt.Fprintln(w)
		for _, t := range m.AllTypes() {
			writeType(w, st, t)
		}
	}

	if initType == "" {
		return nil
	}

	t := m.Type(initType)
	if t == nil {
		return fmt.Errorf("type %s not found", initType)
	}
	host := interp.NewStdHost()
	for k, v := range parseEnv(envStr) {
		host.Env[k] = v
	}

	fmt.Fprintf(w, "\nRunning static initializer of %s...\n", st.typ.Render(t.FullName()))
	err = interp.New(host).Initialize(t)
	writeEffects(w, st, host)
	if err != nil {
		return fmt.Errorf("initialize %s: %w", initType, err)
	}
	return nil
}

func parseEnv(s string) map[string]string {
	env := make(map[string]string)
	if s == "" {
		return env
	}
	for _, kv := range strings.Split(s, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	return env
}

type styles struct {
	title   lipgloss.Style
	typ     lipgloss.Style
	method  lipgloss.Style
	foreign lipgloss.Style
	result  lipgloss.Style
	err     lipgloss.Style
	help    lipgloss.Style
}

func newStyles(styled bool) styles {
	if !styled {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title:   titleStyle,
		typ:     typeStyle,
		method:  methodStyle,
		foreign: foreignStyle,
		result:  resultStyle,
		err:     errorStyle,
		help:    helpStyle,
	}
}

func writeType(w io.Writer, st styles, t *il.TypeDef) {
	fmt.Fprintln(w, st.typ.Render(t.FullName()))
	for _, f := range t.Fields {
		fmt.Fprintf(w, "  field  %s %s\n", f.FieldType.FullName(), f.Name)
	}
	for _, md := range t.Methods {
		fmt.Fprintf(w, "  method %s\n", formatMethod(st, md))
	}
}

func formatMethod(st styles, md *il.MethodDef) string {
	s := st.method.Render(md.Name) + signature(md)
	if md.IsPInvoke() {
		s += " " + st.foreign.Render("["+foreignTarget(md.PInvoke, md.Name)+"]")
	}
	return s
}

func signature(md *il.MethodDef) string {
	params := make([]string, len(md.Params))
	for i, p := range md.Params {
		params[i] = p.Type.FullName() + " " + p.Name
	}
	ret := "void"
	if md.Return.Type != nil {
		ret = md.Return.Type.FullName()
	}
	return "(" + strings.Join(params, ", ") + ") " + ret
}

func foreignTarget(p *il.PInvokeInfo, name string) string {
	entry := p.EntryPoint
	if entry == "" {
		entry = name
	}
	return p.Module + "!" + entry
}

func writeReport(w io.Writer, st styles, r *rewrite.Report) {
	if !r.Found {
		fmt.Fprintf(w, "%s not found, module unchanged\n", st.typ.Render(r.Target))
		return
	}
	placement := "appended to the static initializer"
	switch {
	case r.Created:
		placement = "in a new static initializer"
	case r.MarkerFound:
		placement = "at the marker call"
	}
	fmt.Fprintf(w, "Rewrote %d foreign imports of %s, prologue %s\n",
		len(r.Methods), st.typ.Render(r.Target), placement)
	for _, mr := range r.Methods {
		fmt.Fprintf(w, "  %s -> %s via %s\n",
			st.method.Render(mr.Method), st.foreign.Render(mr.EntryPoint), mr.Delegate)
	}
}

func writeEffects(w io.Writer, st styles, h *interp.StdHost) {
	for _, lib := range h.Loads {
		fmt.Fprintf(w, "  load   %s\n", st.result.Render(lib))
	}
	for _, l := range h.Lookups {
		fmt.Fprintf(w, "  lookup %s!%s\n", l.Library, st.foreign.Render(l.Symbol))
	}
	for _, msg := range h.Traces {
		fmt.Fprintf(w, "  trace  %s\n", msg)
	}
}
