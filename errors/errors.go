package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad       Phase = "load"       // reading the container from disk
	PhaseDecode     Phase = "decode"     // container bytes to module graph
	PhaseEncode     Phase = "encode"     // module graph to container bytes
	PhaseValidate   Phase = "validate"   // structural validation
	PhaseRewrite    Phase = "rewrite"    // method body rewriting
	PhaseSynthesize Phase = "synthesize" // delegate type synthesis
	PhaseInject     Phase = "inject"     // static initializer injection
	PhaseInterp     Phase = "interp"     // IL evaluation
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidData          Kind = "invalid_data"
	KindUnsupportedOperand   Kind = "unsupported_operand"
	KindInvalidVisibility    Kind = "invalid_visibility"
	KindUnresolvedReference  Kind = "unresolved_reference"
	KindNotFound             Kind = "not_found"
	KindInvalidInput         Kind = "invalid_input"
	KindStackUnderflow       Kind = "stack_underflow"
	KindTypeMismatch         Kind = "type_mismatch"
	KindUnsupportedOperation Kind = "unsupported"
)

// Error is the structured error type used throughout the rewriter
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Member string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.Member != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Member != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", member ")
			b.WriteString(e.Member)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("member ")
			b.WriteString(e.Member)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Member != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Member sets the metadata member name
func (b *Builder) Member(name string) *Builder {
	b.err.Member = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnsupportedOperand creates an error for an instruction operand outside the known set
func UnsupportedOperand(goType string, opcode string) *Error {
	return &Error{
		Phase:  PhaseRewrite,
		Kind:   KindUnsupportedOperand,
		GoType: goType,
		Detail: fmt.Sprintf("cannot clone operand of %s", opcode),
	}
}

// InvalidVisibility creates an error for a type visibility outside the visibility mask
func InvalidVisibility(value uint32) *Error {
	return &Error{
		Phase:  PhaseSynthesize,
		Kind:   KindInvalidVisibility,
		Value:  value,
		Detail: fmt.Sprintf("attributes 0x%x may only contain a visibility flag", value),
	}
}

// Unresolved creates an error for a reference that is not owned or imported by the module
func Unresolved(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnresolvedReference,
		Member: name,
		Detail: fmt.Sprintf("%s is not part of the module", what),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Member: name,
		Detail: fmt.Sprintf("%s not found", what),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, member, goType, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Member: member,
		GoType: goType,
		Detail: detail,
	}
}

// StackUnderflow creates an evaluation stack underflow error
func StackUnderflow(member string, offset int) *Error {
	return &Error{
		Phase:  PhaseInterp,
		Kind:   KindStackUnderflow,
		Member: member,
		Value:  offset,
		Detail: fmt.Sprintf("evaluation stack empty at instruction %d", offset),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedOperation,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
