// Package il models compiled modules and reads and writes them in the
// container format.
//
// A Module owns type definitions and three reference tables (types,
// methods, fields). Anything a module refers to but does not define must
// be imported into those tables before encoding:
//
//	m := il.NewModule("App")
//	str := m.StringType()              // imported runtime library type
//	concat, err := m.ImportMethod(&il.MethodRef{
//	    DeclaringType: str,
//	    Name:          "Concat",
//	    ReturnType:    str,
//	    Params:        []il.Type{str, str},
//	})
//
// Importing is idempotent: structurally equal references share one entry.
//
// # Container Format
//
// A container starts with the magic "\0ilm" and a version, followed by
// sections in a fixed order:
//
//	Module(1)     name and runtime library scope
//	TypeRef(2)    imported type references
//	TypeDef(3)    type headers, nested types after their declaring type
//	Member(4)     base types, fields, methods, parameters, foreign imports
//	MemberRef(5)  imported method and field references
//	Attribute(6)  custom attributes in owner order
//	Code(7)       method bodies
//
// Custom sections (0) may appear anywhere and are written last. Integers
// are LEB128, names are length-prefixed UTF-8, and members are addressed by
// metadata tokens (table<<24 | row).
//
// Round-tripping is byte-stable:
//
//	data, _ := m.Encode()
//	parsed, _ := il.ParseModule(data)
//	again, _ := parsed.Encode() // bytes.Equal(data, again)
//
// # Instructions
//
// Instructions hold an Opcode and an operand from a closed set (Imm).
// Branches point at instructions, not offsets, so bodies can be edited
// freely. Variable and argument operands point at the Variable or
// ParamDef they name; the encoder derives indices.
//
// # Validation
//
// Validate checks flag coherence, body well-formedness (operand shapes,
// short form ranges, branch targets) and that every reference resolves.
package il
