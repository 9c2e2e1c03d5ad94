package emit

import (
	"fmt"

	"github.com/wippyai/dynbind/errors"
	"github.com/wippyai/dynbind/il"
)

const maxShortIndex = 255

var (
	loadLocal  = [4]il.Opcode{il.OpLdloc0, il.OpLdloc1, il.OpLdloc2, il.OpLdloc3}
	storeLocal = [4]il.Opcode{il.OpStloc0, il.OpStloc1, il.OpStloc2, il.OpStloc3}
	loadArg    = [4]il.Opcode{il.OpLdarg0, il.OpLdarg1, il.OpLdarg2, il.OpLdarg3}
)

// shortest picks the macro, short or long opcode for index.
func shortest(index int, macro [4]il.Opcode, short, long il.Opcode, imm il.Imm) *il.Instruction {
	switch {
	case index >= 0 && index < len(macro):
		return il.Op(macro[index])
	case index <= maxShortIndex:
		return il.OpImm(short, imm)
	default:
		return il.OpImm(long, imm)
	}
}

// ShortestLoad returns the smallest instruction loading local v.
func ShortestLoad(v *il.Variable) *il.Instruction {
	return shortest(v.Index, loadLocal, il.OpLdlocS, il.OpLdloc, il.VarImm{Var: v})
}

// ShortestStore returns the smallest instruction storing into local v.
func ShortestStore(v *il.Variable) *il.Instruction {
	return shortest(v.Index, storeLocal, il.OpStlocS, il.OpStloc, il.VarImm{Var: v})
}

// ShortestArgLoad returns the smallest instruction loading parameter p of
// method. The slot counts the implicit instance argument.
func ShortestArgLoad(method *il.MethodDef, p *il.ParamDef) (*il.Instruction, error) {
	slot := method.ArgIndex(p)
	if slot < 0 {
		return nil, errors.New(errors.PhaseRewrite, errors.KindInvalidInput).
			Path(method.Name).
			Member(p.Name).
			Detail("parameter is not declared by the method").
			Build()
	}
	return shortest(slot, loadArg, il.OpLdargS, il.OpLdarg, il.ArgImm{Param: p}), nil
}

// Clone returns a new instruction with the same opcode and operand. Targets
// of branches and switches are shared with in; the switch table itself is
// copied so retargeting one does not affect the other.
func Clone(in *il.Instruction) (*il.Instruction, error) {
	var imm il.Imm
	switch op := in.Imm.(type) {
	case nil:
	case il.I8Imm:
		imm = op
	case il.I32Imm:
		imm = op
	case il.I64Imm:
		imm = op
	case il.F32Imm:
		imm = op
	case il.F64Imm:
		imm = op
	case il.StringImm:
		imm = op
	case il.TypeImm:
		imm = op
	case il.MethodImm:
		imm = op
	case il.FieldImm:
		imm = op
	case il.BranchImm:
		imm = op
	case il.SwitchImm:
		targets := make([]*il.Instruction, len(op.Targets))
		copy(targets, op.Targets)
		imm = il.SwitchImm{Targets: targets}
	case il.VarImm:
		imm = op
	case il.ArgImm:
		imm = op
	default:
		return nil, errors.UnsupportedOperand(fmt.Sprintf("%T", in.Imm), in.Opcode.String())
	}
	return &il.Instruction{Opcode: in.Opcode, Imm: imm}, nil
}

// Cursor is an insertion point in a method body.
type Cursor struct {
	Body *il.MethodBody
	Pos  int
}

// NewCursor creates a cursor inserting before position pos of body.
func NewCursor(body *il.MethodBody, pos int) *Cursor {
	return &Cursor{Body: body, Pos: pos}
}

// Emit inserts instrs at the cursor and advances past them.
func (c *Cursor) Emit(instrs ...*il.Instruction) *Cursor {
	c.Body.Insert(c.Pos, instrs...)
	c.Pos += len(instrs)
	return c
}

// Op emits an instruction without an operand.
func (c *Cursor) Op(op il.Opcode) *Cursor {
	return c.Emit(il.Op(op))
}

// Ldstr emits a string load.
func (c *Cursor) Ldstr(s string) *Cursor {
	return c.Emit(il.OpImm(il.OpLdstr, il.StringImm{Value: s}))
}

// Call emits a call to method.
func (c *Cursor) Call(method il.Method) *Cursor {
	return c.Emit(il.OpImm(il.OpCall, il.MethodImm{Method: method}))
}

// Callvirt emits a virtual call to method.
func (c *Cursor) Callvirt(method il.Method) *Cursor {
	return c.Emit(il.OpImm(il.OpCallvirt, il.MethodImm{Method: method}))
}

// Newobj emits an object creation through ctor.
func (c *Cursor) Newobj(ctor il.Method) *Cursor {
	return c.Emit(il.OpImm(il.OpNewobj, il.MethodImm{Method: ctor}))
}

// Ldsfld emits a static field load.
func (c *Cursor) Ldsfld(f il.Field) *Cursor {
	return c.Emit(il.OpImm(il.OpLdsfld, il.FieldImm{Field: f}))
}

// Stsfld emits a static field store.
func (c *Cursor) Stsfld(f il.Field) *Cursor {
	return c.Emit(il.OpImm(il.OpStsfld, il.FieldImm{Field: f}))
}

// Ldtoken emits a runtime handle load for t.
func (c *Cursor) Ldtoken(t il.Type) *Cursor {
	return c.Emit(il.OpImm(il.OpLdtoken, il.TypeImm{Type: t}))
}

// Castclass emits a checked cast to t.
func (c *Cursor) Castclass(t il.Type) *Cursor {
	return c.Emit(il.OpImm(il.OpCastclass, il.TypeImm{Type: t}))
}

// Load emits the shortest load of local v.
func (c *Cursor) Load(v *il.Variable) *Cursor {
	return c.Emit(ShortestLoad(v))
}

// Store emits the shortest store into local v.
func (c *Cursor) Store(v *il.Variable) *Cursor {
	return c.Emit(ShortestStore(v))
}
