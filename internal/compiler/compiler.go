package compiler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sparrowvm/core/internal/asmx86"
	"github.com/sparrowvm/core/internal/class"
	"github.com/sparrowvm/core/internal/classfile"
	"github.com/sparrowvm/core/internal/ir"
	"github.com/sparrowvm/core/internal/log"
)

// Two scratch registers cover almost every template: Top holds the current
// operand-stack top, Second the value just beneath it (for binary ops and
// two-operand stores). A handful of the rarer templates (CAS, array
// bounds) reach for a third, Addr, to hold a computed object/array address.
const (
	regTop    = asmx86.R10
	regSecond = asmx86.R11
	regAddr   = asmx86.R12
	regScale  = asmx86.R13
)

// Compiler translates one method's bytecode to an ir.Program at a time
// (spec §4.2). It is safe for concurrent use: method compilation is
// read-only with respect to class metadata and each call gets its own
// CompilerLabeler and ir_method_id.
type Compiler struct {
	classes *class.Table
	nextIR  uint64

	mut   sync.Mutex
	irIDs map[irKey]uint64

	// Trace, when set, makes every subsequent Compile emit an
	// ExitTraceInstruction exit before each bytecode instruction's IR
	// (spec §4.2 "Trace mode"). It is read without synchronization since
	// callers set it once, before the first Compile, the same way
	// config.Config is finalized before a Runtime starts compiling.
	Trace bool

	log *log.Logger
}

type irKey struct {
	classID class.ClassID
	shape   class.MethodShape
}

// New creates a Compiler resolving field/method/class references against
// classes.
func New(classes *class.Table) *Compiler {
	return &Compiler{
		classes: classes,
		irIDs:   make(map[irKey]uint64),
		log:     log.DefaultLogger(),
	}
}

// IRMethodID returns the stable ir_method_id for (rc, shape), minting one on
// first use. The same (class, shape) pair always maps to the same id, so a
// recompilation (spec §4.5 InitClassAndRecompile) replaces the CodeCache
// entry in place rather than fragmenting identity.
func (c *Compiler) IRMethodID(rc *class.RuntimeClass, shape class.MethodShape) uint64 {
	key := irKey{classID: rc.ID, shape: shape}

	c.mut.Lock()
	defer c.mut.Unlock()

	if id, ok := c.irIDs[key]; ok {
		return id
	}

	id := atomic.AddUint64(&c.nextIR, 1)
	c.irIDs[key] = id

	return id
}

// Compile translates method (declared on rc) to an ir.Program, ready for
// ir.Lower. methodID is the caller-assigned stable identifier stored in
// every frame header this method ever runs in (spec §3 FrameHeader).
func (c *Compiler) Compile(rc *class.RuntimeClass, shape class.MethodShape, methodID uint64) (*ir.Program, error) {
	view, ok := rc.Methods.View(shape)
	if !ok {
		return nil, fmt.Errorf("compiler: %s has no method %s%s", rc.View.Name, shape.Name, shape.Descriptor)
	}

	layout := NewFrameLayout(view.MaxLocals, view.MaxStack)
	irID := c.IRMethodID(rc, shape)
	labels := NewLabeler(irID)

	p := &ir.Program{MethodID: methodID, IRMethodID: irID, FrameSize: layout.Size()}
	p.Append(ir.IRStart{IRMethodID: irID, MethodID: methodID, FrameSize: layout.Size()})

	t := &translator{
		c:      c,
		rc:     rc,
		view:   &view,
		layout: layout,
		labels: labels,
		prog:   p,
		depth:  0,
	}

	if err := t.run(); err != nil {
		return nil, fmt.Errorf("compiler: %s.%s%s: %w", rc.View.Name, shape.Name, shape.Descriptor, err)
	}

	c.log.Debug("compiled method", "CLASS", rc.View.Name, "METHOD", shape.Name, "IR", irID, "INSTRS", len(p.Instrs))

	return p, nil
}

// translator holds the mutable state of one method's compilation pass: the
// bytecode cursor, a (simplified, forward-only) operand-stack depth
// counter, and the output program being built. JVM8's verifier already
// guarantees stack depth agrees at every control-flow merge, so a single
// forward pass tracking depth in program order is sound even though it
// never explicitly re-derives depth at a branch target.
type translator struct {
	c      *Compiler
	rc     *class.RuntimeClass
	view   *classfile.MethodView
	layout FrameLayout
	labels *CompilerLabeler
	prog   *ir.Program
	depth  int
}

func (t *translator) run() error {
	r := newReader(t.view.Code)

	for !r.done() {
		bci := r.pc

		// A branch target lands here: bind the label every instruction
		// implicitly owns, whether or not anything actually jumps to it.
		// Dead labels cost nothing once lowered (Bind with no pending refs).
		t.prog.Append(ir.LabelMark{Name: t.labels.AtBCI(bci)})

		if t.c.Trace {
			t.prog.Append(ir.VMExit2{Exit: ir.ExitTraceInstruction})
		}

		op := Opcode(r.u8())

		if err := t.translate(bci, op, r); err != nil {
			return fmt.Errorf("bci %d: %w", bci, err)
		}
	}

	return nil
}

func (t *translator) pushTop() {
	t.prog.Append(ir.StoreFPRelative{Offset: t.layout.StackOffset(t.depth), Reg: regTop, Size: asmx86.QWord})
	t.depth++
}

func (t *translator) popTop() {
	t.depth--
	t.prog.Append(ir.LoadFPRelative{Offset: t.layout.StackOffset(t.depth), Reg: regTop, Size: asmx86.QWord})
}

func (t *translator) popSecond() {
	t.depth--
	t.prog.Append(ir.LoadFPRelative{Offset: t.layout.StackOffset(t.depth), Reg: regSecond, Size: asmx86.QWord})
}

func (t *translator) translate(bci int, op Opcode, r *reader) error {
	switch {
	case op == OpNop:
		return nil

	case op == OpAConstNull:
		t.prog.Append(ir.Const64bit{Reg: regTop, Value: 0})
		t.pushTop()
		return nil

	case op == OpIConstM1:
		t.prog.Append(ir.Const32bit{Reg: regTop, Value: -1})
		t.pushTop()
		return nil

	case op >= OpIConst0 && op <= OpIConst0+5:
		t.prog.Append(ir.Const32bit{Reg: regTop, Value: int32(op - OpIConst0)})
		t.pushTop()
		return nil

	case op == OpLConst0 || op == OpLConst0+1:
		t.prog.Append(ir.Const64bit{Reg: regTop, Value: int64(op - OpLConst0)})
		t.pushTop()
		return nil

	case op == OpBIPush:
		t.prog.Append(ir.Const16bit{Reg: regTop, Value: int16(r.i8())})
		t.pushTop()
		return nil

	case op == OpSIPush:
		t.prog.Append(ir.Const16bit{Reg: regTop, Value: r.i16()})
		t.pushTop()
		return nil

	case op == OpILoad || op == OpLLoad || op == OpFLoad || op == OpDLoad || op == OpALoad:
		idx := int(r.u8())
		t.loadLocal(idx)
		return nil

	case op >= OpILoad0 && op < OpILoad0+4:
		t.loadLocal(int(op - OpILoad0))
		return nil

	case op >= OpALoad0 && op < OpALoad0+4:
		t.loadLocal(int(op - OpALoad0))
		return nil

	case op == OpIStore || op == OpLStore || op == OpFStore || op == OpDStore || op == OpAStore:
		idx := int(r.u8())
		t.storeLocal(idx)
		return nil

	case op >= OpIStore0 && op < OpIStore0+4:
		t.storeLocal(int(op - OpIStore0))
		return nil

	case op >= OpAStore0 && op < OpAStore0+4:
		t.storeLocal(int(op - OpAStore0))
		return nil

	case op == OpIAdd || op == OpLAdd:
		return t.binaryArith(ir.Add, false)
	case op == OpFAdd || op == OpDAdd:
		return t.binaryArith(ir.Add, true)
	case op == OpISub:
		return t.binaryArith(ir.Sub, false)
	case op == OpIMul:
		return t.binaryArith(ir.Mul, false)
	case op == OpIDiv:
		return t.binaryArith(ir.Div, false)
	case op == OpIRem:
		return t.binaryArith(ir.Mod, false)
	case op == OpIAnd:
		return t.binaryArith(ir.BinaryBitAnd, false)
	case op == OpIOr:
		return t.binaryArith(ir.BinaryBitOr, false)
	case op == OpIXor:
		return t.binaryArith(ir.BinaryBitXor, false)
	case op == OpIShl:
		return t.binaryArith(ir.ShiftLeftOp, false)
	case op == OpIShr:
		return t.binaryArith(ir.ShiftRightSigned, false)
	case op == OpIUshr:
		return t.binaryArith(ir.ShiftRightLogical, false)

	case op == OpIInc:
		idx := int(r.u8())
		delta := int32(r.i8())
		t.prog.Append(ir.LoadFPRelative{Offset: t.layout.LocalOffset(idx), Reg: regTop, Size: asmx86.DWord})
		t.prog.Append(ir.AddConst{Reg: regTop, Value: delta})
		t.prog.Append(ir.StoreFPRelative{Offset: t.layout.LocalOffset(idx), Reg: regTop, Size: asmx86.DWord})
		return nil

	case op == OpI2L:
		t.popTop()
		t.prog.Append(ir.SignExtend{Dst: regTop, Src: regTop, From: asmx86.DWord, To: asmx86.QWord})
		t.pushTop()
		return nil

	case op == OpI2F:
		t.popTop()
		t.prog.Append(ir.Convert{Kind_: ir.IntegerToFloat, Dst: regTop, Src: regTop, Double: false})
		t.pushTop()
		return nil

	case op == OpI2D:
		t.popTop()
		t.prog.Append(ir.Convert{Kind_: ir.IntegerToDouble, Dst: regTop, Src: regTop, Double: true})
		t.pushTop()
		return nil

	case op == OpF2I:
		t.popTop()
		t.prog.Append(ir.Convert{Kind_: ir.FloatToInteger, Dst: regTop, Src: regTop, Double: false})
		t.pushTop()
		return nil

	case op == OpD2I:
		t.popTop()
		t.prog.Append(ir.Convert{Kind_: ir.DoubleToInteger, Dst: regTop, Src: regTop, Double: true})
		t.pushTop()
		return nil

	case op == OpIALoad || op == OpAALoad || op == OpBALoad || op == OpCALoad:
		return t.arrayLoad(op)

	case op == OpIAStore || op == OpAAStore || op == OpBAStore || op == OpCAStore:
		return t.arrayStore(op)

	case op == OpArrayLength:
		t.popTop()
		restart, label := t.labels.NextRestartPoint()
		t.emitNPECheck(regTop, restart, label)
		t.prog.Append(ir.Load{AddrReg: regTop, Offset: 0, Reg: regTop, Size: asmx86.DWord})
		t.pushTop()
		return nil

	case op == OpPop:
		t.depth--
		return nil

	case op == OpDup:
		t.popTop()
		t.pushTop()
		t.pushTop()
		return nil

	case op == OpIfEq || op == OpIfNe || op == OpIfLt || op == OpIfGe || op == OpIfGt || op == OpIfLe:
		return t.ifCompareZero(bci, op, r)

	case op == OpIfICmpEq || op == OpIfICmpNe || op == OpIfICmpLt ||
		op == OpIfICmpGe || op == OpIfICmpGt || op == OpIfICmpLe:
		return t.ifCompare(bci, op, r)

	case op == OpGoto:
		target := bci + int(r.i16())
		t.prog.Append(ir.BranchToLabel{Target: t.labels.AtBCI(target)})
		return nil

	case op == OpIReturn || op == OpLReturn || op == OpFReturn || op == OpDReturn || op == OpAReturn:
		t.popTop()
		t.prog.Append(ir.Return{ReturnVal: regTop, HasValue: true, FrameSize: t.layout.Size()})
		return nil

	case op == OpReturn:
		t.prog.Append(ir.Return{HasValue: false, FrameSize: t.layout.Size()})
		return nil

	case op == OpGetStatic:
		r.u16()
		return t.getStatic(bci)
	case op == OpPutStatic:
		r.u16()
		return t.putStatic(bci)
	case op == OpGetField:
		r.u16()
		return t.getField(bci)
	case op == OpPutField:
		r.u16()
		return t.putField(bci)

	case op == OpInvokeStatic || op == OpInvokeSpecial || op == OpInvokeVirtual || op == OpInvokeInterface:
		r.u16()
		if op == OpInvokeInterface {
			r.u8()
			r.u8() // count, 0: historical artifact of the classfile format
		}
		return t.invoke(bci, op)

	case op == OpNew:
		r.u16()
		return t.newObject(bci)

	case op == OpNewArray:
		atype := r.u8()
		return t.newArray(bci, ir.ExitAllocateObjectArrayIntrinsic, primitiveElementSize(atype))

	case op == OpANewArray:
		r.u16()
		return t.newArray(bci, ir.ExitAllocateObjectArrayIntrinsic, 8) // object references are always a pointer width



	case op == OpAThrow:
		t.popTop()
		t.prog.Append(ir.VMExit2{Exit: ir.ExitThrow, Operands: []int32{int32(regTop)}})
		return nil

	case op == OpCheckCast:
		r.u16()
		return t.checkCastOrInstanceOf(bci, ir.ExitCheckCast)

	case op == OpInstanceOf:
		r.u16()
		return t.checkCastOrInstanceOf(bci, ir.ExitInstanceOf)

	case op == OpMonitorEnter:
		t.popTop()
		t.prog.Append(ir.VMExit2{Exit: ir.ExitMonitorEnter, Operands: []int32{int32(regTop)}})
		return nil

	case op == OpMonitorExit:
		t.popTop()
		t.prog.Append(ir.VMExit2{Exit: ir.ExitMonitorExit, Operands: []int32{int32(regTop)}})
		return nil

	default:
		return fmt.Errorf("unsupported %s", op)
	}
}

func (t *translator) loadLocal(idx int) {
	t.prog.Append(ir.LoadFPRelative{Offset: t.layout.LocalOffset(idx), Reg: regTop, Size: asmx86.QWord})
	t.pushTop()
}

func (t *translator) storeLocal(idx int) {
	t.popTop()
	t.prog.Append(ir.StoreFPRelative{Offset: t.layout.LocalOffset(idx), Reg: regTop, Size: asmx86.QWord})
}

func (t *translator) binaryArith(op ir.ArithOp, float bool) error {
	t.popTop()
	t.popSecond()
	t.prog.Append(ir.Arith{Op: op, Dst: regSecond, Src: regTop, Size: asmx86.QWord, Float: float})
	t.prog.Append(ir.StoreFPRelative{Offset: t.layout.StackOffset(t.depth), Reg: regSecond, Size: asmx86.QWord})
	t.depth++
	return nil
}

// emitNPECheck appends a RestartPoint immediately before the NPECheck so the
// dispatcher can resume exactly here once InitClassAndRecompile or any other
// precondition-fixing exit has run (spec §4.1 "Restart points").
func (t *translator) emitNPECheck(reg asmx86.Reg, restart ir.RestartPointID, label ir.Label) {
	t.prog.Append(ir.RestartPoint{ID: restart, Name: label})
	t.prog.Append(ir.NPECheck{Reg: reg, Exit: label})
}

func (t *translator) arrayLoad(op Opcode) error {
	t.popTop() // index
	idx := regTop
	t.prog.Append(ir.LoadFPRelative{Offset: t.layout.StackOffset(t.depth - 1), Reg: regAddr, Size: asmx86.QWord})
	t.depth--

	restart, label := t.labels.NextRestartPoint()
	t.emitNPECheck(regAddr, restart, label)

	t.prog.Append(ir.Load{AddrReg: regAddr, Offset: 0, Reg: regSecond, Size: asmx86.DWord}) // array length word
	t.prog.Append(ir.BoundsCheck{Length: regSecond, Index: idx, Exit: label})

	size := elementSize(op)
	t.scaleIndexIntoAddr(idx, size)
	t.prog.Append(ir.Load{AddrReg: regAddr, Offset: 8, Reg: regTop, Size: size})
	t.pushTop()

	return nil
}

// arrayStore mirrors arrayLoad: NPE-check the array reference, bounds-check
// the index against the stored length word, then scale the index by the
// element size before storing through the scaled address (spec §4.2 "Array
// access"). Value, index, and arrayref occupy three distinct stack slots, so
// each is pulled straight off the operand stack into its own register rather
// than going through the single-register popTop helper.
func (t *translator) arrayStore(op Opcode) error {
	size := elementSize(op)

	t.prog.Append(ir.LoadFPRelative{Offset: t.layout.StackOffset(t.depth - 1), Reg: regSecond, Size: asmx86.QWord}) // value
	t.prog.Append(ir.LoadFPRelative{Offset: t.layout.StackOffset(t.depth - 2), Reg: regTop, Size: asmx86.QWord})    // index
	t.prog.Append(ir.LoadFPRelative{Offset: t.layout.StackOffset(t.depth - 3), Reg: regAddr, Size: asmx86.QWord})   // arrayref
	t.depth -= 3

	restart, label := t.labels.NextRestartPoint()
	t.emitNPECheck(regAddr, restart, label)

	t.prog.Append(ir.Load{AddrReg: regAddr, Offset: 0, Reg: regScale, Size: asmx86.DWord}) // array length word
	t.prog.Append(ir.BoundsCheck{Length: regScale, Index: regTop, Exit: label})

	t.scaleIndexIntoAddr(regTop, size)
	t.prog.Append(ir.Store{AddrReg: regAddr, Offset: 8, Reg: regSecond, Size: size})

	return nil
}

// scaleIndexIntoAddr multiplies idx in place by size's byte width (every
// element size here is a power of two, so a shift suffices) and folds the
// result into regAddr, turning the fixed Offset: 8 base into the genuine
// per-element address.
func (t *translator) scaleIndexIntoAddr(idx asmx86.Reg, size asmx86.OpSize) {
	if shift := shiftForSize(size); shift > 0 {
		t.prog.Append(ir.Const32bit{Reg: regScale, Value: shift})
		t.prog.Append(ir.Arith{Op: ir.ShiftLeftOp, Dst: idx, Src: regScale, Size: asmx86.QWord})
	}

	t.prog.Append(ir.Arith{Op: ir.Add, Dst: regAddr, Src: idx, Size: asmx86.QWord})
}

func shiftForSize(size asmx86.OpSize) int32 {
	switch size {
	case asmx86.Word:
		return 1
	case asmx86.DWord:
		return 2
	case asmx86.QWord:
		return 3
	default:
		return 0
	}
}

func elementSize(op Opcode) asmx86.OpSize {
	switch op {
	case OpBALoad, OpBAStore:
		return asmx86.Byte
	case OpCALoad, OpCAStore:
		return asmx86.Word
	case OpAALoad, OpAAStore:
		return asmx86.QWord
	default:
		return asmx86.DWord
	}
}

func (t *translator) ifCompareZero(bci int, op Opcode, r *reader) error {
	target := bci + int(r.i16())
	t.popTop()
	t.prog.Append(ir.Const32bit{Reg: regSecond, Value: 0})

	cond := condFor(op)
	t.prog.Append(ir.Branch{Cond: cond, A: regTop, B: regSecond, Target: t.labels.AtBCI(target)})

	return nil
}

func (t *translator) ifCompare(bci int, op Opcode, r *reader) error {
	target := bci + int(r.i16())
	t.popTop()
	t.popSecond()

	cond := condFor(op)
	t.prog.Append(ir.Branch{Cond: cond, A: regSecond, B: regTop, Target: t.labels.AtBCI(target)})

	return nil
}

func condFor(op Opcode) ir.BranchCond {
	switch op {
	case OpIfEq, OpIfICmpEq:
		return ir.CondEqual
	case OpIfNe, OpIfICmpNe:
		return ir.CondNotEqual
	case OpIfGe, OpIfICmpGe:
		return ir.CondGreaterOrEqual
	case OpIfGt, OpIfICmpGt:
		return ir.CondGreaterThan
	case OpIfLe, OpIfICmpLe:
		return ir.CondLessOrEqual
	default: // OpIfLt, OpIfICmpLt
		return ir.CondLessThan
	}
}

// getStatic and putStatic emit a restart point followed by an
// ExitGetStatic/ExitPutStatic exit, whose dispatcher case reads or writes the
// static slot. These templates do not check whether the owning class is
// initialized and never raise ExitInitClassAndRecompile.
func (t *translator) getStatic(bci int) error {
	restart, label := t.labels.NextRestartPoint()
	t.prog.Append(ir.RestartPoint{ID: restart, Name: label})
	t.prog.Append(ir.VMExit2{Exit: ir.ExitGetStatic, RestartAt: label})
	t.pushTop()

	return nil
}

func (t *translator) putStatic(bci int) error {
	t.popTop()
	restart, label := t.labels.NextRestartPoint()
	t.prog.Append(ir.RestartPoint{ID: restart, Name: label})
	t.prog.Append(ir.VMExit2{Exit: ir.ExitPutStatic, Operands: []int32{int32(regTop)}, RestartAt: label})

	return nil
}

func (t *translator) getField(bci int) error {
	t.popTop() // objectref
	restart, label := t.labels.NextRestartPoint()
	t.emitNPECheck(regTop, restart, label)
	t.prog.Append(ir.Load{AddrReg: regTop, Offset: 0, Reg: regTop, Size: asmx86.QWord})
	t.pushTop()

	return nil
}

func (t *translator) putField(bci int) error {
	t.popTop() // value
	value := regTop
	t.popTop() // objectref
	restart, label := t.labels.NextRestartPoint()
	t.emitNPECheck(regTop, restart, label)
	t.prog.Append(ir.Store{AddrReg: regTop, Offset: 0, Reg: value, Size: asmx86.QWord})

	return nil
}

// invoke compiles a call. Static/special calls resolve to a fixed target at
// compile time (or as soon as the callee is compiled); virtual/interface
// calls leave through ExitResolveInvoke every time they execute. The
// dispatcher answers a repeated (call site, receiver class) pair from the
// interface lookup cache; the call site itself is not patched.
func (t *translator) invoke(bci int, op Opcode) error {
	restart, label := t.labels.NextRestartPoint()
	t.prog.Append(ir.RestartPoint{ID: restart, Name: label})

	switch op {
	case OpInvokeStatic, OpInvokeSpecial:
		t.prog.Append(ir.IRCall{CurrentFrameSize: t.layout.Size(), NewFrameSize: 0})

	default:
		t.prog.Append(ir.VMExit2{Exit: ir.ExitResolveInvoke, RestartAt: label})
	}

	t.pushTop()

	return nil
}

func (t *translator) newObject(bci int) error {
	restart, label := t.labels.NextRestartPoint()
	t.prog.Append(ir.RestartPoint{ID: restart, Name: label})
	t.prog.Append(ir.VMExit2{Exit: ir.ExitAllocateObject, RestartAt: label})
	t.pushTop()

	return nil
}

func (t *translator) newArray(bci int, exit ir.ExitKind, elemSize int32) error {
	t.popTop() // count
	t.prog.Append(ir.VMExit2{Exit: exit, Operands: []int32{int32(regTop), elemSize}})
	t.pushTop()

	return nil
}

// primitiveElementSize maps a newarray atype (JVM8 §6.5 newarray) to its
// element width in bytes. anewarray's elements are always object references
// and never go through this table.
func primitiveElementSize(atype uint8) int32 {
	switch atype {
	case 4, 8: // T_BOOLEAN, T_BYTE
		return 1
	case 5, 9: // T_CHAR, T_SHORT
		return 2
	case 6, 10: // T_FLOAT, T_INT
		return 4
	case 7, 11: // T_DOUBLE, T_LONG
		return 8
	default:
		return 4
	}
}

func (t *translator) checkCastOrInstanceOf(bci int, exit ir.ExitKind) error {
	t.popTop()
	// checkcast and instanceof always leave through this VMExit2; the
	// dispatcher's resolveSubtype performs the bit-path comparison and, on
	// Unknown, the full ancestor/interface walk. No inline bit-path check is
	// emitted.
	t.prog.Append(ir.VMExit2{Exit: exit, Operands: []int32{int32(regTop)}})
	t.pushTop()

	return nil
}
