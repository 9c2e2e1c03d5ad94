// Package rewrite turns fixed foreign imports into dynamically resolved
// thunks.
//
// # Overview
//
// A foreign import names its native library statically, so the loader
// binds it to one file regardless of the processor the process runs on.
// Rewrite changes a target type so the library file is chosen at type
// initialization from the processor architecture, and every import is
// called through a delegate resolved from that library by symbol name.
//
// For each foreign import of the target type bound to the configured
// library the rewrite:
//
//  1. Synthesizes a private nested delegate type with the import's
//     signature and marshaling metadata
//  2. Adds a private static field caching the resolved delegate
//  3. Resolves the symbol in the static initializer, after the library
//     loading prologue
//  4. Replaces the import with a thunk calling the cached delegate
//
// # Usage
//
//	out, report, err := rewrite.Transform(data, rewrite.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	for _, m := range report.Methods {
//	    fmt.Println(m.Method, "->", m.EntryPoint)
//	}
//
// A module without the target type is returned unchanged; Report.Found
// tells the two outcomes apart.
//
// # Logging
//
// The package logs through a zap logger, a no-op by default. Install one
// with SetLogger before transforming.
package rewrite
