package synth

import (
	"github.com/wippyai/dynbind/il"
)

// CallingConvention mirrors System.Runtime.InteropServices.CallingConvention.
type CallingConvention int32

const (
	Winapi   CallingConvention = 1
	Cdecl    CallingConvention = 2
	StdCall  CallingConvention = 3
	ThisCall CallingConvention = 4
	FastCall CallingConvention = 5
)

func (c CallingConvention) String() string {
	switch c {
	case Winapi:
		return "Winapi"
	case Cdecl:
		return "Cdecl"
	case StdCall:
		return "StdCall"
	case ThisCall:
		return "ThisCall"
	case FastCall:
		return "FastCall"
	}
	return "CallingConvention(?)"
}

// CharSet mirrors System.Runtime.InteropServices.CharSet.
type CharSet int32

const (
	CharSetNone    CharSet = 1
	CharSetAnsi    CharSet = 2
	CharSetUnicode CharSet = 3
	CharSetAuto    CharSet = 4
)

// CallingConventionOf returns the convention a foreign import is called
// with. Explicit import flags win over the signature's convention.
func CallingConventionOf(method *il.MethodDef) CallingConvention {
	if method.PInvoke != nil {
		switch method.PInvoke.CallConv() {
		case il.PInvokeCallConvCdecl:
			return Cdecl
		case il.PInvokeCallConvFastcall:
			return FastCall
		case il.PInvokeCallConvStdcall:
			return StdCall
		case il.PInvokeCallConvThiscall:
			return ThisCall
		case il.PInvokeCallConvWinapi:
			return Winapi
		}
	}
	return fromSignature(method.CallConv)
}

func fromSignature(cc il.CallingConvention) CallingConvention {
	switch cc & 0x0f {
	case il.CallConvC:
		return Cdecl
	case il.CallConvFastCall:
		return FastCall
	case il.CallConvStdCall:
		return StdCall
	case il.CallConvThisCall:
		return ThisCall
	default:
		return Winapi
	}
}

// CharSetOf returns the character set of a foreign import, or None.
func CharSetOf(method *il.MethodDef) CharSet {
	if method.PInvoke == nil {
		return CharSetNone
	}
	switch method.PInvoke.CharSet() {
	case il.PInvokeCharSetAnsi:
		return CharSetAnsi
	case il.PInvokeCharSetAuto:
		return CharSetAuto
	case il.PInvokeCharSetUnicode:
		return CharSetUnicode
	default:
		return CharSetNone
	}
}

// BestFitMapping reports whether best-fit mapping applies. Methods that are
// not foreign imports use the default of true.
func BestFitMapping(method *il.MethodDef) bool {
	if method.PInvoke == nil {
		return true
	}
	return method.PInvoke.IsBestFitEnabled()
}

// ThrowOnUnmappableChar reports whether unmappable characters throw.
func ThrowOnUnmappableChar(method *il.MethodDef) bool {
	if method.PInvoke == nil {
		return false
	}
	return method.PInvoke.IsThrowOnUnmappableCharEnabled()
}

// SetLastError reports whether the native error code is preserved.
func SetLastError(method *il.MethodDef) bool {
	if method.PInvoke == nil {
		return false
	}
	return method.PInvoke.SupportsLastError()
}
