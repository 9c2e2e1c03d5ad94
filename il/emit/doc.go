// Package emit builds instructions for generated code.
//
// The shortest-form helpers pick the smallest encoding for local and
// argument access:
//
//	index 0-3    ldloc.N / stloc.N / ldarg.N  (no operand)
//	index 4-255  ldloc.s / stloc.s / ldarg.s  (one-byte operand)
//	index 256+   ldloc / stloc / ldarg        (two-byte operand)
//
// Clone copies an instruction with its operand. Branch and switch targets
// are shared with the original, not copied.
//
// A Cursor inserts instructions into a body at a position that advances as
// it emits, so consecutive emission steps land in program order.
package emit
