package interp

import (
	"fmt"

	"github.com/wippyai/dynbind/errors"
	"github.com/wippyai/dynbind/il"
)

// DefaultMaxSteps bounds the number of instructions one Invoke may execute.
const DefaultMaxSteps = 1 << 20

// Host provides everything the module does not implement itself.
type Host interface {
	// Call invokes a method without an IL body. For instance methods the
	// receiver is args[0].
	Call(method il.Method, args []Value) (Value, error)

	// New creates an instance of a type outside the module.
	New(ctor il.Method, args []Value) (Value, error)
}

// Machine evaluates method bodies of one module.
type Machine struct {
	host        Host
	statics     map[*il.FieldDef]Value
	initialized map[*il.TypeDef]bool
	targets     map[*il.MethodBody]map[*il.Instruction]int
	MaxSteps    int
	steps       int
}

// New creates a machine calling out to host.
func New(host Host) *Machine {
	return &Machine{
		host:        host,
		statics:     make(map[*il.FieldDef]Value),
		initialized: make(map[*il.TypeDef]bool),
		targets:     make(map[*il.MethodBody]map[*il.Instruction]int),
		MaxSteps:    DefaultMaxSteps,
	}
}

// Static returns the current value of a static field.
func (vm *Machine) Static(f *il.FieldDef) Value {
	if v, ok := vm.statics[f]; ok {
		return v
	}
	return zeroValue(f.FieldType)
}

// Initialize runs the static initializer of t unless it already ran.
func (vm *Machine) Initialize(t *il.TypeDef) error {
	vm.steps = 0
	return vm.initialize(t)
}

func (vm *Machine) initialize(t *il.TypeDef) error {
	if vm.initialized[t] {
		return nil
	}
	vm.initialized[t] = true
	cctor := t.StaticConstructor()
	if cctor == nil || cctor.Body == nil {
		return nil
	}
	_, err := vm.run(cctor, nil)
	return err
}

// Invoke calls method with args, initializing its declaring type first.
// For instance methods the receiver is args[0].
func (vm *Machine) Invoke(method *il.MethodDef, args ...Value) (Value, error) {
	vm.steps = 0
	return vm.call(method, args)
}

func (vm *Machine) call(method il.Method, args []Value) (Value, error) {
	md, ok := method.(*il.MethodDef)
	if !ok || md.Body == nil {
		return vm.host.Call(method, args)
	}
	if md.DeclaringType != nil {
		if err := vm.initialize(md.DeclaringType); err != nil {
			return nil, err
		}
	}
	return vm.run(md, args)
}

func argCount(sig il.MethodSig) int {
	n := len(sig.Params)
	if sig.HasThis {
		n++
	}
	return n
}

type frame struct {
	method *il.MethodDef
	args   []Value
	locals []Value
	stack  []Value
	pc     int
}

func (f *frame) push(v Value) {
	f.stack = append(f.stack, v)
}

func (f *frame) pop() (Value, error) {
	if len(f.stack) == 0 {
		return nil, errors.StackUnderflow(f.method.Name, f.pc)
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *frame) popN(n int) ([]Value, error) {
	if len(f.stack) < n {
		return nil, errors.StackUnderflow(f.method.Name, f.pc)
	}
	out := make([]Value, n)
	copy(out, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return out, nil
}

func (vm *Machine) branchTargets(body *il.MethodBody) map[*il.Instruction]int {
	if t, ok := vm.targets[body]; ok {
		return t
	}
	t := make(map[*il.Instruction]int, len(body.Instructions))
	for i, in := range body.Instructions {
		t[in] = i
	}
	vm.targets[body] = t
	return t
}

func (vm *Machine) run(md *il.MethodDef, args []Value) (Value, error) {
	body := md.Body
	if want := argCount(md.Signature()); len(args) != want {
		return nil, errors.New(errors.PhaseInterp, errors.KindInvalidInput).
			Member(md.Name).
			Detail("got %d arguments, want %d", len(args), want).
			Build()
	}
	f := &frame{
		method: md,
		args:   append([]Value(nil), args...),
		locals: make([]Value, len(body.Variables)),
	}
	locals := make(map[*il.Variable]int, len(body.Variables))
	for i, v := range body.Variables {
		locals[v] = i
		f.locals[i] = zeroValue(v.Type)
	}
	targets := vm.branchTargets(body)

	fail := func(detail string, args ...any) error {
		return errors.New(errors.PhaseInterp, errors.KindInvalidData).
			Member(md.Name).
			Value(f.pc).
			Detail(detail, args...).
			Build()
	}
	jump := func(target *il.Instruction) error {
		idx, ok := targets[target]
		if !ok {
			return fail("branch target outside the body")
		}
		f.pc = idx
		return nil
	}
	local := func(v *il.Variable) (int, error) {
		idx, ok := locals[v]
		if !ok {
			return 0, fail("variable outside the body")
		}
		return idx, nil
	}
	arg := func(imm il.Imm) (int, error) {
		a, ok := imm.(il.ArgImm)
		if !ok {
			return 0, fail("argument operand %T", imm)
		}
		slot := il.ArgSlot(md, a)
		if slot < 0 || slot >= len(f.args) {
			return 0, fail("argument outside the method")
		}
		return slot, nil
	}

	for f.pc < len(body.Instructions) {
		vm.steps++
		if vm.MaxSteps > 0 && vm.steps > vm.MaxSteps {
			return nil, fail("step limit %d exceeded", vm.MaxSteps)
		}
		in := body.Instructions[f.pc]
		f.pc++

		switch op := in.Opcode; op {
		case il.OpNop, il.OpBreak:

		case il.OpLdarg0, il.OpLdarg1, il.OpLdarg2, il.OpLdarg3:
			slot := int(op - il.OpLdarg0)
			if slot >= len(f.args) {
				return nil, fail("argument %d outside the method", slot)
			}
			f.push(f.args[slot])
		case il.OpLdargS, il.OpLdarg:
			slot, err := arg(in.Imm)
			if err != nil {
				return nil, err
			}
			f.push(f.args[slot])
		case il.OpStargS, il.OpStarg:
			slot, err := arg(in.Imm)
			if err != nil {
				return nil, err
			}
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			f.args[slot] = v

		case il.OpLdloc0, il.OpLdloc1, il.OpLdloc2, il.OpLdloc3:
			idx := int(op - il.OpLdloc0)
			if idx >= len(f.locals) {
				return nil, fail("local %d outside the body", idx)
			}
			f.push(f.locals[idx])
		case il.OpStloc0, il.OpStloc1, il.OpStloc2, il.OpStloc3:
			idx := int(op - il.OpStloc0)
			if idx >= len(f.locals) {
				return nil, fail("local %d outside the body", idx)
			}
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			f.locals[idx] = v
		case il.OpLdlocS, il.OpLdloc:
			idx, err := local(in.Imm.(il.VarImm).Var)
			if err != nil {
				return nil, err
			}
			f.push(f.locals[idx])
		case il.OpStlocS, il.OpStloc:
			idx, err := local(in.Imm.(il.VarImm).Var)
			if err != nil {
				return nil, err
			}
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			f.locals[idx] = v

		case il.OpLdnull:
			f.push(nil)
		case il.OpLdcI4M1:
			f.push(int32(-1))
		case il.OpLdcI40, il.OpLdcI41, il.OpLdcI42, il.OpLdcI43, il.OpLdcI44,
			il.OpLdcI45, il.OpLdcI46, il.OpLdcI47, il.OpLdcI48:
			f.push(int32(op - il.OpLdcI40))
		case il.OpLdcI4S:
			f.push(int32(in.Imm.(il.I8Imm).Value))
		case il.OpLdcI4:
			f.push(in.Imm.(il.I32Imm).Value)
		case il.OpLdcI8:
			f.push(in.Imm.(il.I64Imm).Value)
		case il.OpLdcR4:
			f.push(in.Imm.(il.F32Imm).Value)
		case il.OpLdcR8:
			f.push(in.Imm.(il.F64Imm).Value)
		case il.OpLdstr:
			f.push(in.Imm.(il.StringImm).Value)

		case il.OpDup:
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			f.push(v)
			f.push(v)
		case il.OpPop:
			if _, err := f.pop(); err != nil {
				return nil, err
			}

		case il.OpCall, il.OpCallvirt:
			method := in.Imm.(il.MethodImm).Method
			sig := method.Signature()
			callArgs, err := f.popN(argCount(sig))
			if err != nil {
				return nil, err
			}
			if op == il.OpCallvirt && sig.HasThis && callArgs[0] == nil {
				return nil, fail("null receiver for %s", method.MemberName())
			}
			ret, err := vm.call(method, callArgs)
			if err != nil {
				return nil, err
			}
			if !isVoid(sig.Return) {
				f.push(ret)
			}
		case il.OpNewobj:
			ctor := in.Imm.(il.MethodImm).Method
			ctorArgs, err := f.popN(len(ctor.Signature().Params))
			if err != nil {
				return nil, err
			}
			obj, err := vm.newObject(ctor, ctorArgs)
			if err != nil {
				return nil, err
			}
			f.push(obj)
		case il.OpLdftn:
			f.push(MethodPointer{Method: in.Imm.(il.MethodImm).Method})

		case il.OpRet:
			if isVoid(md.Return.Type) {
				return nil, nil
			}
			return f.pop()
		case il.OpThrow:
			v, _ := f.pop()
			return nil, errors.New(errors.PhaseInterp, errors.KindUnsupportedOperation).
				Member(md.Name).
				Value(v).
				Detail("exception thrown at instruction %d", f.pc-1).
				Build()

		case il.OpBr, il.OpBrS, il.OpLeave, il.OpLeaveS:
			if err := jump(in.Imm.(il.BranchImm).Target); err != nil {
				return nil, err
			}
		case il.OpBrtrue, il.OpBrtrueS, il.OpBrfalse, il.OpBrfalseS:
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			want := op == il.OpBrtrue || op == il.OpBrtrueS
			if truthy(v) == want {
				if err := jump(in.Imm.(il.BranchImm).Target); err != nil {
					return nil, err
				}
			}
		case il.OpBeq, il.OpBeqS:
			ops, err := f.popN(2)
			if err != nil {
				return nil, err
			}
			if ops[0] == ops[1] {
				if err := jump(in.Imm.(il.BranchImm).Target); err != nil {
					return nil, err
				}
			}
		case il.OpSwitch:
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			idx, ok := v.(int32)
			if !ok {
				return nil, errors.TypeMismatch(errors.PhaseInterp, md.Name, fmt.Sprintf("%T", v), "switch on a non int32 value")
			}
			table := in.Imm.(il.SwitchImm).Targets
			if idx >= 0 && int(idx) < len(table) {
				if err := jump(table[idx]); err != nil {
					return nil, err
				}
			}

		case il.OpAdd, il.OpSub, il.OpMul:
			ops, err := f.popN(2)
			if err != nil {
				return nil, err
			}
			v, err := arith(op, ops[0], ops[1])
			if err != nil {
				return nil, errors.TypeMismatch(errors.PhaseInterp, md.Name, fmt.Sprintf("%T", ops[0]), err.Error())
			}
			f.push(v)
		case il.OpCeq:
			ops, err := f.popN(2)
			if err != nil {
				return nil, err
			}
			if ops[0] == ops[1] {
				f.push(int32(1))
			} else {
				f.push(int32(0))
			}

		case il.OpLdsfld:
			fd, err := vm.staticField(in.Imm.(il.FieldImm).Field)
			if err != nil {
				return nil, err
			}
			v, ok := vm.statics[fd]
			if !ok {
				v = zeroValue(fd.FieldType)
			}
			f.push(v)
		case il.OpStsfld:
			fd, err := vm.staticField(in.Imm.(il.FieldImm).Field)
			if err != nil {
				return nil, err
			}
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			vm.statics[fd] = v
		case il.OpLdfld:
			fd, ok := in.Imm.(il.FieldImm).Field.(*il.FieldDef)
			if !ok {
				return nil, fail("instance field outside the module")
			}
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			obj, ok := v.(*Object)
			if !ok {
				return nil, errors.TypeMismatch(errors.PhaseInterp, fd.Name, fmt.Sprintf("%T", v), "field load from a non-object")
			}
			v, ok = obj.Fields[fd]
			if !ok {
				v = zeroValue(fd.FieldType)
			}
			f.push(v)
		case il.OpStfld:
			fd, ok := in.Imm.(il.FieldImm).Field.(*il.FieldDef)
			if !ok {
				return nil, fail("instance field outside the module")
			}
			ops, err := f.popN(2)
			if err != nil {
				return nil, err
			}
			obj, ok := ops[0].(*Object)
			if !ok {
				return nil, errors.TypeMismatch(errors.PhaseInterp, fd.Name, fmt.Sprintf("%T", ops[0]), "field store to a non-object")
			}
			obj.Fields[fd] = ops[1]

		case il.OpLdtoken:
			switch imm := in.Imm.(type) {
			case il.TypeImm:
				f.push(TypeHandle{Type: imm.Type})
			default:
				f.push(imm)
			}
		case il.OpCastclass, il.OpIsinst:
			want := in.Imm.(il.TypeImm).Type
			v, err := f.pop()
			if err != nil {
				return nil, err
			}
			if got := typeOf(v); got != nil && il.TypeKey(got) != il.TypeKey(want) {
				if op == il.OpIsinst {
					f.push(nil)
					continue
				}
				return nil, errors.TypeMismatch(errors.PhaseInterp, md.Name, got.FullName(),
					fmt.Sprintf("cannot cast to %s", want.FullName()))
			}
			f.push(v)
		case il.OpBox:
			// Boxed values keep their Go representation.

		default:
			return nil, errors.New(errors.PhaseInterp, errors.KindUnsupportedOperation).
				Member(md.Name).
				Value(f.pc - 1).
				Detail("opcode %s", op).
				Build()
		}
	}
	return nil, fail("execution ran past the end of the body")
}

func (vm *Machine) staticField(field il.Field) (*il.FieldDef, error) {
	fd, ok := field.(*il.FieldDef)
	if !ok {
		return nil, errors.Unsupported(errors.PhaseInterp, "static field outside the module: "+field.FullName())
	}
	if fd.DeclaringType != nil {
		if err := vm.initialize(fd.DeclaringType); err != nil {
			return nil, err
		}
	}
	return fd, nil
}

func (vm *Machine) newObject(ctor il.Method, args []Value) (Value, error) {
	md, ok := ctor.(*il.MethodDef)
	if !ok || md.Body == nil {
		return vm.host.New(ctor, args)
	}
	obj := &Object{Type: md.DeclaringType, Fields: make(map[*il.FieldDef]Value)}
	if _, err := vm.call(md, append([]Value{obj}, args...)); err != nil {
		return nil, err
	}
	return obj, nil
}

func isVoid(t il.Type) bool {
	return t == nil || t.FullName() == "System.Void"
}

func arith(op il.Opcode, a, b Value) (Value, error) {
	switch x := a.(type) {
	case int32:
		if y, ok := b.(int32); ok {
			switch op {
			case il.OpAdd:
				return x + y, nil
			case il.OpSub:
				return x - y, nil
			default:
				return x * y, nil
			}
		}
	case int64:
		if y, ok := b.(int64); ok {
			switch op {
			case il.OpAdd:
				return x + y, nil
			case il.OpSub:
				return x - y, nil
			default:
				return x * y, nil
			}
		}
	case NativeInt:
		if y, ok := b.(NativeInt); ok {
			switch op {
			case il.OpAdd:
				return x + y, nil
			case il.OpSub:
				return x - y, nil
			default:
				return x * y, nil
			}
		}
	case float64:
		if y, ok := b.(float64); ok {
			switch op {
			case il.OpAdd:
				return x + y, nil
			case il.OpSub:
				return x - y, nil
			default:
				return x * y, nil
			}
		}
	}
	return nil, fmt.Errorf("%s on %T and %T", op, a, b)
}
