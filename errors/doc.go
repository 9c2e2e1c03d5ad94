// Package errors provides structured error types for the rewriter.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes context: member path, Go type, metadata member and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindUnresolvedReference).
//		Path("UnsafeNativeMethods", ".cctor").
//		Member("System.String System.String::Concat(System.String,System.String)").
//		Detail("method reference was not imported").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnsupportedOperand("*emit.fakeImm", "ldstr")
//	err := errors.InvalidVisibility(0x101)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
