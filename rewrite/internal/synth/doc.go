// Package synth synthesizes callable delegate types.
//
// A delegate type has the runtime's fixed shape:
//
//	.ctor(object, native int)
//	Invoke(args) ret
//	BeginInvoke(args, AsyncCallback, object) IAsyncResult
//	EndInvoke(IAsyncResult) ret
//
// All four members are implemented by the runtime and carry no body.
//
// # Foreign import metadata
//
// A delegate built from a foreign import carries an
// UnmanagedFunctionPointerAttribute mirroring the import's marshaling.
// Only values that differ from the attribute defaults are written:
//
//	CharSet                only when not None
//	BestFitMapping=false   only when best-fit is not enabled
//	ThrowOnUnmappableChar  only when enabled
//	SetLastError           only when enabled
package synth
