// Package interp evaluates IL method bodies.
//
// The evaluator runs the subset of IL that module initializers and thunks
// use: constants, locals, arguments, static and instance fields, calls,
// object creation, type tokens, casts, branches and switches. Anything the
// module does not implement itself is delegated to a Host: method
// references, foreign imports and runtime-implemented delegate members.
//
// # Values
//
// Evaluation stack values are Go values:
//
//	int32, int64, float32, float64  numeric stack types
//	string                          System.String
//	NativeInt                       System.IntPtr
//	TypeHandle                      the result of ldtoken on a type
//	*TypeObject                     System.Type
//	*Object                         instances of module types
//	*Delegate                       delegates bound to a native function
//	nil                             null references
//
// # Type initialization
//
// A type's static initializer runs once, before the first access to one of
// its static fields or the first call to one of its methods.
//
// # Standard host
//
// NewStdHost implements the runtime facilities generated initializers
// depend on (string concatenation, environment lookup, library loading,
// symbol lookup, delegate conversion, trace output and string tables) and
// records every library load, symbol lookup, trace line and native call in
// order, so tests can assert on the observable behavior of rewritten code.
package interp
