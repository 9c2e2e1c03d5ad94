package interp

import (
	"github.com/wippyai/dynbind/il"
)

// Value is an evaluation stack value. See the package documentation for
// the Go types used.
type Value = any

// NativeInt is a native-sized integer, used for handles and function
// pointers.
type NativeInt int64

// TypeHandle is a runtime type handle pushed by ldtoken.
type TypeHandle struct {
	Type il.Type
}

// TypeObject is a System.Type instance.
type TypeObject struct {
	Type il.Type
}

// Object is an instance of a type defined in the module.
type Object struct {
	Type   *il.TypeDef
	Fields map[*il.FieldDef]Value
}

// Delegate is a delegate bound to a native function pointer.
type Delegate struct {
	Type   il.Type
	Target NativeInt
}

// MethodPointer is the result of ldftn.
type MethodPointer struct {
	Method il.Method
}

func truthy(v Value) bool {
	switch v := v.(type) {
	case nil:
		return false
	case int32:
		return v != 0
	case int64:
		return v != 0
	case NativeInt:
		return v != 0
	case float32:
		return v != 0
	case float64:
		return v != 0
	case bool:
		return v
	default:
		return true
	}
}

// typeOf returns the module-level type of a reference value, or nil.
func typeOf(v Value) il.Type {
	switch v := v.(type) {
	case *Object:
		if v.Type == nil {
			return nil
		}
		return v.Type
	case *Delegate:
		return v.Type
	}
	return nil
}

// zeroValue returns the default value of a field or local of type t.
func zeroValue(t il.Type) Value {
	ref, ok := t.(*il.TypeRef)
	if !ok || !ref.IsValueType || ref.Namespace != "System" {
		return nil
	}
	switch ref.Name {
	case "Boolean", "Char", "SByte", "Byte", "Int16", "UInt16", "Int32", "UInt32":
		return int32(0)
	case "Int64", "UInt64":
		return int64(0)
	case "IntPtr", "UIntPtr":
		return NativeInt(0)
	case "Single":
		return float32(0)
	case "Double":
		return float64(0)
	}
	return nil
}
