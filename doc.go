// Package dynbind rewrites compiled modules so that the native library
// behind a type's foreign imports is chosen at run time.
//
// A foreign import binds a managed method to one native library file. When
// that file exists in several builds, one per processor architecture, the
// import can only target one of them. dynbind rewrites the importing type
// so its static initializer loads the file matching the running processor
// and resolves every import through a cached delegate.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	dynbind/             Root package, documentation only
//	├── rewrite/         High-level API: Transform, Config, Report
//	│   └── internal/
//	│       ├── engine/  Driver, initializer injector and per-method rewriter
//	│       ├── refs/    Imported references to runtime facilities
//	│       └── synth/   Delegate type synthesis with marshaling metadata
//	├── il/              Module model and binary container codec
//	│   └── emit/        Size-optimal instruction selection and cloning
//	├── interp/          IL evaluator used to execute initializers and thunks
//	├── errors/          Structured error types for debugging
//	└── cmd/
//	    ├── dynbind/     Rewriter: dynbind <source> <destination>
//	    └── ilinspect/   Module listing, initializer simulation, TUI browser
//
// # Quick Start
//
// Rewrite a module in memory:
//
//	out, report, err := rewrite.Transform(data, rewrite.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(report.Methods), "imports rewritten")
//
// Run the rewritten static initializer against a simulated runtime:
//
//	m, _ := il.ParseModule(out)
//	host := interp.NewStdHost()
//	host.Env["PROCESSOR_ARCHITECTURE"] = "AMD64"
//	err = interp.New(host).Initialize(m.Type(report.Target))
//	fmt.Println(host.Loads) // [SQLite.Interop.x64.dll]
//
// # Thread Safety
//
// A Module is not safe for concurrent use. Transform works on a private
// copy decoded from its input and may be called concurrently.
package dynbind
