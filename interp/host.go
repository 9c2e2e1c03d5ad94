package interp

import (
	"fmt"
	"strings"

	"github.com/wippyai/dynbind/errors"
	"github.com/wippyai/dynbind/il"
)

// NativeFunc implements a native symbol.
type NativeFunc func(args []Value) (Value, error)

// Lookup records one symbol resolution.
type Lookup struct {
	Library string
	Symbol  string
}

// NativeCall records one call through a native function pointer or a
// foreign import.
type NativeCall struct {
	Symbol string
	Args   []Value
}

// Table is an ordered string to string table.
type Table struct {
	Keys   []string
	Values map[string]string
}

// Get returns the value stored under key.
func (t *Table) Get(key string) (string, bool) {
	v, ok := t.Values[key]
	return v, ok
}

// StdHost implements the runtime facilities used by rewritten modules and
// records their observable effects.
type StdHost struct {
	Env     map[string]string
	Natives map[string]NativeFunc

	// LookupSymbol is the foreign import resolving symbols in a loaded
	// library.
	LookupSymbol string

	Loads   []string
	Lookups []Lookup
	Traces  []string
	Calls   []NativeCall

	libraries map[NativeInt]string
	symbols   map[NativeInt]string
	next      NativeInt
}

// NewStdHost creates a host with an empty environment and no natives.
func NewStdHost() *StdHost {
	return &StdHost{
		Env:          make(map[string]string),
		Natives:      make(map[string]NativeFunc),
		LookupSymbol: "GetProcAddress",
		libraries:    make(map[NativeInt]string),
		symbols:      make(map[NativeInt]string),
		next:         0x1000,
	}
}

// Symbol returns the symbol a function pointer was resolved from.
func (h *StdHost) Symbol(p NativeInt) (string, bool) {
	s, ok := h.symbols[p]
	return s, ok
}

func (h *StdHost) handle() NativeInt {
	h.next += 0x10
	return h.next
}

// memberKey names a method by its declaring type, without generic
// arguments, and its name.
func memberKey(m il.Method) string {
	owner := m.Owner()
	if gi, ok := owner.(*il.GenericInstType); ok {
		owner = gi.Elem
	}
	if owner == nil {
		return m.MemberName()
	}
	return owner.FullName() + "::" + m.MemberName()
}

func hostError(m il.Method, detail string, args ...any) error {
	return errors.New(errors.PhaseInterp, errors.KindInvalidInput).
		Member(m.MemberName()).
		Detail(detail, args...).
		Build()
}

func stringArg(m il.Method, args []Value, i int) (string, error) {
	if i >= len(args) {
		return "", hostError(m, "missing argument %d", i)
	}
	switch v := args[i].(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return "", errors.TypeMismatch(errors.PhaseInterp, m.MemberName(), fmt.Sprintf("%T", v), fmt.Sprintf("argument %d is not a string", i))
	}
}

func nativeArg(m il.Method, args []Value, i int) (NativeInt, error) {
	if i >= len(args) {
		return 0, hostError(m, "missing argument %d", i)
	}
	v, ok := args[i].(NativeInt)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseInterp, m.MemberName(), fmt.Sprintf("%T", args[i]), fmt.Sprintf("argument %d is not a native int", i))
	}
	return v, nil
}

// Call implements Host.
func (h *StdHost) Call(m il.Method, args []Value) (Value, error) {
	if md, ok := m.(*il.MethodDef); ok {
		if md.IsPInvoke() {
			return h.callImport(md, args)
		}
		if md.Name == "Invoke" && md.ImplAttributes&il.ImplCodeTypeMask == il.ImplRuntime {
			return h.invokeDelegate(md, args)
		}
	}

	switch memberKey(m) {
	case "System.String::Concat":
		var b strings.Builder
		for i := range args {
			s, err := stringArg(m, args, i)
			if err != nil {
				return nil, err
			}
			b.WriteString(s)
		}
		return b.String(), nil

	case "System.Environment::GetEnvironmentVariable":
		name, err := stringArg(m, args, 0)
		if err != nil {
			return nil, err
		}
		if v, ok := h.Env[name]; ok {
			return v, nil
		}
		return nil, nil

	case "System.Runtime.InteropServices.NativeLibrary::Load":
		name, err := stringArg(m, args, 0)
		if err != nil {
			return nil, err
		}
		h.Loads = append(h.Loads, name)
		lib := h.handle()
		h.libraries[lib] = name
		return lib, nil

	case "System.Diagnostics.Trace::WriteLine":
		line, err := stringArg(m, args, 0)
		if err != nil {
			return nil, err
		}
		h.Traces = append(h.Traces, line)
		return nil, nil

	case "System.Type::GetTypeFromHandle":
		th, ok := args[0].(TypeHandle)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseInterp, m.MemberName(), fmt.Sprintf("%T", args[0]), "not a type handle")
		}
		return &TypeObject{Type: th.Type}, nil

	case "System.Runtime.InteropServices.Marshal::GetDelegateForFunctionPointer":
		ptr, err := nativeArg(m, args, 0)
		if err != nil {
			return nil, err
		}
		if ptr == 0 {
			return nil, hostError(m, "null function pointer")
		}
		to, ok := args[1].(*TypeObject)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseInterp, m.MemberName(), fmt.Sprintf("%T", args[1]), "not a type")
		}
		return &Delegate{Type: to.Type, Target: ptr}, nil

	case "System.Collections.Generic.Dictionary`2::Add":
		t, ok := args[0].(*Table)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseInterp, m.MemberName(), fmt.Sprintf("%T", args[0]), "not a table")
		}
		key, err := stringArg(m, args, 1)
		if err != nil {
			return nil, err
		}
		value, err := stringArg(m, args, 2)
		if err != nil {
			return nil, err
		}
		if _, dup := t.Values[key]; dup {
			return nil, hostError(m, "duplicate key %q", key)
		}
		t.Keys = append(t.Keys, key)
		t.Values[key] = value
		return nil, nil

	case "System.Collections.Generic.Dictionary`2::get_Item":
		t, ok := args[0].(*Table)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseInterp, m.MemberName(), fmt.Sprintf("%T", args[0]), "not a table")
		}
		key, err := stringArg(m, args, 1)
		if err != nil {
			return nil, err
		}
		v, ok := t.Values[key]
		if !ok {
			return nil, errors.NotFound(errors.PhaseInterp, "table key", key)
		}
		return v, nil
	}

	return nil, errors.NotFound(errors.PhaseInterp, "host method", m.FullName())
}

// New implements Host.
func (h *StdHost) New(ctor il.Method, args []Value) (Value, error) {
	switch memberKey(ctor) {
	case "System.Collections.Generic.Dictionary`2::.ctor":
		return &Table{Values: make(map[string]string)}, nil
	case "System.Object::.ctor":
		return &Object{Fields: make(map[*il.FieldDef]Value)}, nil
	}
	return nil, errors.NotFound(errors.PhaseInterp, "host constructor", ctor.FullName())
}

func (h *StdHost) callImport(md *il.MethodDef, args []Value) (Value, error) {
	symbol := md.PInvoke.EntryPoint
	if symbol == "" {
		symbol = md.Name
	}
	if symbol == h.LookupSymbol {
		lib, err := nativeArg(md, args, 0)
		if err != nil {
			return nil, err
		}
		name, err := stringArg(md, args, 1)
		if err != nil {
			return nil, err
		}
		library, ok := h.libraries[lib]
		if !ok {
			return nil, hostError(md, "unknown library handle 0x%x", int64(lib))
		}
		h.Lookups = append(h.Lookups, Lookup{Library: library, Symbol: name})
		ptr := h.handle()
		h.symbols[ptr] = name
		return ptr, nil
	}
	return h.callNative(symbol, args)
}

func (h *StdHost) invokeDelegate(md *il.MethodDef, args []Value) (Value, error) {
	if len(args) == 0 {
		return nil, hostError(md, "missing delegate receiver")
	}
	d, ok := args[0].(*Delegate)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseInterp, md.Name, fmt.Sprintf("%T", args[0]), "not a delegate")
	}
	symbol, ok := h.symbols[d.Target]
	if !ok {
		return nil, hostError(md, "unknown function pointer 0x%x", int64(d.Target))
	}
	return h.callNative(symbol, args[1:])
}

func (h *StdHost) callNative(symbol string, args []Value) (Value, error) {
	h.Calls = append(h.Calls, NativeCall{Symbol: symbol, Args: append([]Value(nil), args...)})
	fn, ok := h.Natives[symbol]
	if !ok {
		return nil, errors.NotFound(errors.PhaseInterp, "native symbol", symbol)
	}
	return fn(args)
}
