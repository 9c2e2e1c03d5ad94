package il

// TypeAttributes are the flags of a type definition.
type TypeAttributes uint32

// Type visibility. Exactly one of these is set on any type.
const (
	TypeVisibilityMask    TypeAttributes = 0x00000007
	TypeNotPublic         TypeAttributes = 0x00000000
	TypePublic            TypeAttributes = 0x00000001
	TypeNestedPublic      TypeAttributes = 0x00000002
	TypeNestedPrivate     TypeAttributes = 0x00000003
	TypeNestedFamily      TypeAttributes = 0x00000004
	TypeNestedAssembly    TypeAttributes = 0x00000005
	TypeNestedFamANDAssem TypeAttributes = 0x00000006
	TypeNestedFamORAssem  TypeAttributes = 0x00000007
)

// Layout, semantics and string format flags.
const (
	TypeLayoutMask       TypeAttributes = 0x00000018
	TypeSequentialLayout TypeAttributes = 0x00000008
	TypeExplicitLayout   TypeAttributes = 0x00000010
	TypeInterface        TypeAttributes = 0x00000020
	TypeAbstract         TypeAttributes = 0x00000080
	TypeSealed           TypeAttributes = 0x00000100
	TypeSpecialName      TypeAttributes = 0x00000400
	TypeRTSpecialName    TypeAttributes = 0x00000800
	TypeImport           TypeAttributes = 0x00001000
	TypeSerializable     TypeAttributes = 0x00002000
	TypeStringFormatMask TypeAttributes = 0x00030000
	TypeAnsiClass        TypeAttributes = 0x00000000
	TypeUnicodeClass     TypeAttributes = 0x00010000
	TypeAutoClass        TypeAttributes = 0x00020000
	TypeBeforeFieldInit  TypeAttributes = 0x00100000
)

// MethodAttributes are the flags of a method definition.
type MethodAttributes uint16

const (
	MethodMemberAccessMask MethodAttributes = 0x0007
	MethodPrivate          MethodAttributes = 0x0001
	MethodFamANDAssem      MethodAttributes = 0x0002
	MethodAssembly         MethodAttributes = 0x0003
	MethodFamily           MethodAttributes = 0x0004
	MethodFamORAssem       MethodAttributes = 0x0005
	MethodPublic           MethodAttributes = 0x0006
	MethodStatic           MethodAttributes = 0x0010
	MethodFinal            MethodAttributes = 0x0020
	MethodVirtual          MethodAttributes = 0x0040
	MethodHideBySig        MethodAttributes = 0x0080
	MethodNewSlot          MethodAttributes = 0x0100
	MethodAbstract         MethodAttributes = 0x0400
	MethodSpecialName      MethodAttributes = 0x0800
	MethodRTSpecialName    MethodAttributes = 0x1000
	MethodPInvokeImpl      MethodAttributes = 0x2000
)

// MethodImplAttributes describe how a method body is provided.
type MethodImplAttributes uint16

const (
	ImplCodeTypeMask MethodImplAttributes = 0x0003
	ImplIL           MethodImplAttributes = 0x0000
	ImplNative       MethodImplAttributes = 0x0001
	ImplRuntime      MethodImplAttributes = 0x0003
	ImplManagedMask  MethodImplAttributes = 0x0004
	ImplManaged      MethodImplAttributes = 0x0000
	ImplUnmanaged    MethodImplAttributes = 0x0004
	ImplNoInlining   MethodImplAttributes = 0x0008
	ImplSynchronized MethodImplAttributes = 0x0020
	ImplPreserveSig  MethodImplAttributes = 0x0080
	ImplInternalCall MethodImplAttributes = 0x1000
)

// FieldAttributes are the flags of a field definition.
type FieldAttributes uint16

const (
	FieldAccessMask    FieldAttributes = 0x0007
	FieldPrivate       FieldAttributes = 0x0001
	FieldAssembly      FieldAttributes = 0x0003
	FieldFamily        FieldAttributes = 0x0004
	FieldPublic        FieldAttributes = 0x0006
	FieldStatic        FieldAttributes = 0x0010
	FieldInitOnly      FieldAttributes = 0x0020
	FieldLiteral       FieldAttributes = 0x0040
	FieldSpecialName   FieldAttributes = 0x0200
	FieldRTSpecialName FieldAttributes = 0x0400
)

// ParamAttributes are the flags of a parameter or return value.
type ParamAttributes uint16

const (
	ParamNone            ParamAttributes = 0x0000
	ParamIn              ParamAttributes = 0x0001
	ParamOut             ParamAttributes = 0x0002
	ParamOptional        ParamAttributes = 0x0010
	ParamHasDefault      ParamAttributes = 0x1000
	ParamHasFieldMarshal ParamAttributes = 0x2000
)

// PInvokeAttributes carry the marshaling options of a foreign import.
type PInvokeAttributes uint16

const (
	PInvokeNoMangle PInvokeAttributes = 0x0001

	PInvokeCharSetMask    PInvokeAttributes = 0x0006
	PInvokeCharSetNotSpec PInvokeAttributes = 0x0000
	PInvokeCharSetAnsi    PInvokeAttributes = 0x0002
	PInvokeCharSetUnicode PInvokeAttributes = 0x0004
	PInvokeCharSetAuto    PInvokeAttributes = 0x0006

	PInvokeBestFitMask     PInvokeAttributes = 0x0030
	PInvokeBestFitUseAssem PInvokeAttributes = 0x0000
	PInvokeBestFitEnabled  PInvokeAttributes = 0x0010
	PInvokeBestFitDisabled PInvokeAttributes = 0x0020

	PInvokeSupportsLastError PInvokeAttributes = 0x0040

	PInvokeCallConvMask     PInvokeAttributes = 0x0700
	PInvokeCallConvWinapi   PInvokeAttributes = 0x0100
	PInvokeCallConvCdecl    PInvokeAttributes = 0x0200
	PInvokeCallConvStdcall  PInvokeAttributes = 0x0300
	PInvokeCallConvThiscall PInvokeAttributes = 0x0400
	PInvokeCallConvFastcall PInvokeAttributes = 0x0500

	PInvokeThrowOnUnmappableCharMask     PInvokeAttributes = 0x3000
	PInvokeThrowOnUnmappableCharUseAssem PInvokeAttributes = 0x0000
	PInvokeThrowOnUnmappableCharEnabled  PInvokeAttributes = 0x1000
	PInvokeThrowOnUnmappableCharDisabled PInvokeAttributes = 0x2000
)

// CallingConvention is the calling convention recorded in a method signature.
type CallingConvention byte

const (
	CallConvDefault  CallingConvention = 0x00
	CallConvC        CallingConvention = 0x01
	CallConvStdCall  CallingConvention = 0x02
	CallConvThisCall CallingConvention = 0x03
	CallConvFastCall CallingConvention = 0x04
	CallConvVarArg   CallingConvention = 0x05
	CallConvGeneric  CallingConvention = 0x10
)

// NativeType is the unmanaged type a parameter or return value marshals to.
type NativeType byte

const (
	NativeNone    NativeType = 0x00
	NativeBoolean NativeType = 0x02
	NativeI1      NativeType = 0x03
	NativeU1      NativeType = 0x04
	NativeI2      NativeType = 0x05
	NativeU2      NativeType = 0x06
	NativeI4      NativeType = 0x07
	NativeU4      NativeType = 0x08
	NativeI8      NativeType = 0x09
	NativeU8      NativeType = 0x0a
	NativeR4      NativeType = 0x0b
	NativeR8      NativeType = 0x0c
	NativeLPStr   NativeType = 0x14
	NativeLPWStr  NativeType = 0x15
	NativeInt     NativeType = 0x1f
	NativeUInt    NativeType = 0x20
	NativeFunc    NativeType = 0x26
	NativeArray   NativeType = 0x2a
)
