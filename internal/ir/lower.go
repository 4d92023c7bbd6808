package ir

import (
	"fmt"

	"github.com/sparrowvm/core/internal/asmx86"
	"github.com/sparrowvm/core/internal/log"
	"github.com/sparrowvm/core/internal/stack"
)

// Lower compiles a Program to machine code, resolving labels and recording
// patch sites (spec §4.1 "Compiles IR to machine code, tracks per-function
// labels and exit sites"). A Program referencing a Label that is never
// bound by a LabelMark produces the fatal ErrUnresolvedLabel.
//
// Every IR instruction lowers to its genuine x86-64 encoding (REX/ModRM/SIB
// as needed): there is no schematic placeholder byte anywhere in this file.
// The guest-to-host boundary is the teacher's CALL CX in trampoline_amd64.s:
// because every managed-to-managed call (IRCall) is a register-indirect JMP
// rather than a CALL, the host's RSP never moves for the life of a managed
// call chain, so any exit — a normal outermost Return, a VMExit2, a failed
// NPECheck/BoundsCheck — can transfer back to the host with a plain RET.
func Lower(p *Program) (*CompiledMethod, error) {
	e := asmx86.NewEmitter()
	restartPoints := make(map[RestartPointID]int)
	l := log.DefaultLogger()
	synth := 0

	freshLabel := func(tag string) asmx86.LabelName {
		synth++
		return asmx86.LabelName(fmt.Sprintf("$%s%d", tag, synth))
	}

	for _, instr := range p.Instrs {
		switch in := instr.(type) {
		case LabelMark:
			e.Bind(asmx86.LabelName(in.Name))

		case RestartPoint:
			e.Bind(asmx86.LabelName(in.Name))
			restartPoints[in.ID] = e.Offset()

		case BranchToLabel:
			emitJmpLabel(e, asmx86.LabelName(in.Target))

		case Branch:
			emitCmpRR(e, true, gpEncoding(in.A), gpEncoding(in.B))

			var cc byte
			switch in.Cond {
			case CondEqual:
				cc = jccEqual
			case CondNotEqual:
				cc = jccNotEqual
			case CondLessThan:
				cc = jccLess
			case CondGreaterOrEqual:
				cc = jccGreaterOrEqual
			case CondGreaterThan:
				cc = jccGreater
			case CondLessOrEqual:
				cc = jccLessOrEqual
			}

			emitJcc(e, cc, asmx86.LabelName(in.Target))

		case LoadFPRelative:
			lowerLoad(e, gpEncoding(asmx86.RBP), in.Offset, in.Reg, in.Size)

		case StoreFPRelative:
			lowerStore(e, gpEncoding(asmx86.RBP), in.Offset, in.Reg, in.Size)

		case Load:
			lowerLoad(e, gpEncoding(in.AddrReg), in.Offset, in.Reg, in.Size)

		case Store:
			lowerStore(e, gpEncoding(in.AddrReg), in.Offset, in.Reg, in.Size)

		case Arith:
			lowerArith(e, in)

		case SignExtend:
			lowerSignExtend(e, in)

		case Convert:
			lowerConvert(e, in)

		case FloatCompare:
			lowerFloatCompare(e, in, freshLabel)

		case IntCompare:
			lowerIntCompare(e, in)

		case Const16bit:
			emitMovImm16(e, gpEncoding(in.Reg), in.Value)

		case Const32bit:
			emitMovImm32Direct(e, gpEncoding(in.Reg), in.Value)

		case Const64bit:
			emitMovImm64(e, gpEncoding(in.Reg), uint64(in.Value))

		case AddConst:
			reg := gpEncoding(in.Reg)
			emitRex(e, true, false, false, reg >= 8)
			e.Emit(0x81)
			e.Emit(modrm(3, 0, reg&7))
			e.EmitUint32(uint32(in.Value))

		case IRStart:
			lowerIRStart(e, in)

		case IRCall:
			lowerIRCall(e, in, freshLabel)

		case Return:
			lowerReturn(e, in, freshLabel)

		case NPECheck:
			lowerNPECheck(e, in, freshLabel)

		case BoundsCheck:
			lowerBoundsCheck(e, in, freshLabel)

		case CompareAndSwapAtomic:
			lowerCompareAndSwapAtomic(e, in)

		case VMExit2:
			if in.RestartAt != "" {
				// A restart point immediately precedes its exit so the
				// dispatcher can resume here after satisfying the exit's
				// precondition (spec §4.1 "Restart points").
				e.Bind(asmx86.LabelName(fmt.Sprintf("%s$restart", in.RestartAt)))
			}

			lowerExitReturn(e, int32(in.Exit)+1, in.Operands)

		case CallIntrinsicHelper:
			// Intrinsic helper tags start past the ExitKind range so the
			// host side can tell "serviced by exitdispatch" apart from
			// "serviced by the intrinsic helper table" without ambiguity.
			lowerExitReturn(e, intrinsicTagBase+int32(in.HelperID), in.Operands)

		default:
			return nil, fmt.Errorf("ir: lower %#x: unhandled instruction %T", p.IRMethodID, instr)
		}
	}

	code, patches, err := e.Finish()
	if err != nil {
		return nil, fmt.Errorf("ir: lower %#x: %w", p.IRMethodID, err)
	}

	l.Debug("lowered program", "IR", p.IRMethodID, "BYTES", len(code), "PATCHES", len(patches))

	return &CompiledMethod{
		IRMethodID:    p.IRMethodID,
		MethodID:      p.MethodID,
		FrameSize:     p.FrameSize,
		Code:          code,
		Labels:        labelOffsets(e),
		RestartPoints: restartPoints,
		Patches:       patches,
		log:           l,
	}, nil
}

// lowerLoad/lowerStore encode `mov reg, [base+disp]` / `mov [base+disp], reg`
// at the width Size names. Byte and Word use their narrow opcodes; DWord and
// QWord share the 32/64-bit mov opcodes, differing only by REX.W.
func lowerLoad(e *asmx86.Emitter, baseEnc byte, disp int32, reg asmx86.Reg, size asmx86.OpSize) {
	regEnc := gpEncoding(reg)

	switch size {
	case asmx86.Byte:
		emitRegMem(e, false, []byte{0x8A}, regEnc, baseEnc, disp)
	case asmx86.Word:
		e.Emit(0x66)
		emitRegMem(e, false, []byte{0x8B}, regEnc, baseEnc, disp)
	case asmx86.DWord, asmx86.SingleFloat:
		emitRegMem(e, false, []byte{0x8B}, regEnc, baseEnc, disp)
	default:
		emitRegMem(e, true, []byte{0x8B}, regEnc, baseEnc, disp)
	}
}

func lowerStore(e *asmx86.Emitter, baseEnc byte, disp int32, reg asmx86.Reg, size asmx86.OpSize) {
	regEnc := gpEncoding(reg)

	switch size {
	case asmx86.Byte:
		emitRegMem(e, false, []byte{0x88}, regEnc, baseEnc, disp)
	case asmx86.Word:
		e.Emit(0x66)
		emitRegMem(e, false, []byte{0x89}, regEnc, baseEnc, disp)
	case asmx86.DWord, asmx86.SingleFloat:
		emitRegMem(e, false, []byte{0x89}, regEnc, baseEnc, disp)
	default:
		emitRegMem(e, true, []byte{0x89}, regEnc, baseEnc, disp)
	}
}

// lowerArith lowers integer ALU ops directly and bridges Float ops through
// a fixed XMM0/XMM1 scratch pair (spec §4.2 "float/double route through XMM
// instructions"), since Arith's Dst/Src contract keeps float bit patterns
// in general-purpose registers between instructions.
func lowerArith(e *asmx86.Emitter, in Arith) {
	w := in.Size == asmx86.QWord || in.Size == asmx86.DoubleFloat
	dst, src := gpEncoding(in.Dst), gpEncoding(in.Src)

	if in.Float {
		double := in.Size == asmx86.QWord || in.Size == asmx86.DoubleFloat
		emitMovqToXMM(e, xmmEncoding(asmx86.XMM0), dst)
		emitMovqToXMM(e, xmmEncoding(asmx86.XMM1), src)
		emitSSEArith(e, in.Op, double, xmmEncoding(asmx86.XMM0), xmmEncoding(asmx86.XMM1))
		emitMovqFromXMM(e, dst, xmmEncoding(asmx86.XMM0))

		return
	}

	switch in.Op {
	case Add:
		emitAluRR(e, 0x01, w, dst, src)
	case Sub:
		emitAluRR(e, 0x29, w, dst, src)
	case BinaryBitAnd:
		emitAluRR(e, 0x21, w, dst, src)
	case BinaryBitOr:
		emitAluRR(e, 0x09, w, dst, src)
	case BinaryBitXor:
		emitAluRR(e, 0x31, w, dst, src)
	case Mul:
		emitImulRR(e, w, dst, src)
	case ShiftLeftOp, ShiftRightSigned, ShiftRightLogical:
		lowerShift(e, in.Op, w, dst, src)
	case Div, Mod:
		lowerDivMod(e, in.Op, w, dst, src)
	}
}

// lowerShift moves Src's low byte into CL (the only operand encoding for a
// register-specified shift count) and emits the D3 /r shift group.
func lowerShift(e *asmx86.Emitter, op ArithOp, w bool, dst, src byte) {
	rcx := gpEncoding(asmx86.RCX)
	emitMovRR(e, false, rcx, src)

	var digit byte
	switch op {
	case ShiftLeftOp:
		digit = 4
	case ShiftRightSigned:
		digit = 7
	default:
		digit = 5
	}

	emitRex(e, w, false, false, dst >= 8)
	e.Emit(0xD3)
	e.Emit(modrm(3, digit, dst&7))
}

// lowerDivMod sign-extends Dst into the EDX:EAX/RDX:RAX pair, divides by
// Src, and moves the quotient (Div) or remainder (Mod) back into Dst. RAX
// and RDX are safe scratch here: the compiler never allocates them as JVM
// value registers.
func lowerDivMod(e *asmx86.Emitter, op ArithOp, w bool, dst, src byte) {
	rax, rdx := gpEncoding(asmx86.RAX), gpEncoding(asmx86.RDX)

	emitMovRR(e, w, rax, dst)

	if w {
		e.Emit(rex(true, false, false, false), 0x99) // cqo
	} else {
		e.Emit(0x99) // cdq
	}

	emitRex(e, w, false, false, src >= 8)
	e.Emit(0xF7)
	e.Emit(modrm(3, 7, src&7))

	if op == Div {
		emitMovRR(e, w, dst, rax)
	} else {
		emitMovRR(e, w, dst, rdx)
	}
}

// lowerSignExtend emits the narrowest genuine sign-extending move for the
// From->To pair; DWord->QWord (movsxd) is i2l, the case the compiler emits.
func lowerSignExtend(e *asmx86.Emitter, in SignExtend) {
	dst, src := gpEncoding(in.Dst), gpEncoding(in.Src)

	switch {
	case in.From == asmx86.DWord && in.To == asmx86.QWord:
		emitRex(e, true, dst >= 8, false, src >= 8)
		e.Emit(0x63)
		e.Emit(modrm(3, dst&7, src&7))
	case in.From == asmx86.Byte:
		emitRex(e, in.To == asmx86.QWord, dst >= 8, false, src >= 8)
		e.Emit(0x0F, 0xBE)
		e.Emit(modrm(3, dst&7, src&7))
	case in.From == asmx86.Word:
		emitRex(e, in.To == asmx86.QWord, dst >= 8, false, src >= 8)
		e.Emit(0x0F, 0xBF)
		e.Emit(modrm(3, dst&7, src&7))
	default:
		emitMovRR(e, in.To == asmx86.QWord, dst, src)
	}
}

// lowerConvert emits real cvtsi2sd/cvtsi2ss (integer->float) or
// cvttsd2si/cvttss2si (float->integer, truncating toward zero per JVM
// semantics), bridging through XMM0 since Dst/Src stay general-purpose.
func lowerConvert(e *asmx86.Emitter, in Convert) {
	dst, src := gpEncoding(in.Dst), gpEncoding(in.Src)
	xmm0 := xmmEncoding(asmx86.XMM0)

	prefix := byte(0xF3)
	if in.Double {
		prefix = 0xF2
	}

	switch in.Kind_ {
	case IntegerToFloat, IntegerToDouble:
		e.Emit(prefix)
		e.Emit(rex(true, xmm0 >= 8, false, src >= 8))
		e.Emit(0x0F, 0x2A)
		e.Emit(modrm(3, xmm0&7, src&7))
		emitMovqFromXMM(e, dst, xmm0)

	default: // FloatToInteger, DoubleToInteger
		emitMovqToXMM(e, xmm0, src)
		e.Emit(prefix)
		e.Emit(rex(true, dst >= 8, false, xmm0 >= 8))
		e.Emit(0x0F, 0x2C)
		e.Emit(modrm(3, dst&7, xmm0&7))
	}
}

// lowerIntCompare computes a tri-state -1/0/1 without branching: setg/setl
// on the flags from a single cmp, zero-extended and subtracted. RAX/RCX are
// safe scratch (JVM values never live there).
func lowerIntCompare(e *asmx86.Emitter, in IntCompare) {
	a, b, dst := gpEncoding(in.A), gpEncoding(in.B), gpEncoding(in.Dst)
	rax, rcx := gpEncoding(asmx86.RAX), gpEncoding(asmx86.RCX)

	emitCmpRR(e, true, a, b)
	emitSetcc(e, 0x9F, rax) // setg al
	emitMovzx8(e, true, rax, rax)
	emitSetcc(e, 0x9C, rcx) // setl cl
	emitMovzx8(e, true, rcx, rcx)
	emitAluRR(e, 0x29, true, rax, rcx) // sub rax, rcx
	emitMovRR(e, true, dst, rax)
}

// lowerFloatCompare is IntCompare's floating-point analogue, handling the
// unordered (NaN) case per spec §8: ucomisd/ucomiss sets PF when either
// operand is NaN, in which case the comparison short-circuits to Mode's
// default rather than falling through to the above/below tri-state.
func lowerFloatCompare(e *asmx86.Emitter, in FloatCompare, freshLabel func(string) asmx86.LabelName) {
	a, b, dst := gpEncoding(in.A), gpEncoding(in.B), gpEncoding(in.Dst)
	xmm0, xmm1 := xmmEncoding(asmx86.XMM0), xmmEncoding(asmx86.XMM1)
	rax, rcx := gpEncoding(asmx86.RAX), gpEncoding(asmx86.RCX)

	emitMovqToXMM(e, xmm0, a)
	emitMovqToXMM(e, xmm1, b)

	if in.Double {
		e.Emit(0x66)
	}
	e.Emit(0x0F, 0x2E)
	e.Emit(modrm(3, xmm0&7, xmm1&7))

	def := int32(1)
	if in.Mode == CompareL {
		def = -1
	}
	emitMovImm32(e, true, dst, def)

	done := freshLabel("fcmp")
	emitJcc(e, jccParity, done)

	emitSetcc(e, 0x97, rax) // seta al
	emitMovzx8(e, true, rax, rax)
	emitSetcc(e, 0x92, rcx) // setb cl
	emitMovzx8(e, true, rcx, rcx)
	emitAluRR(e, 0x29, true, rax, rcx)
	emitMovRR(e, true, dst, rax)

	e.Bind(done)
}

// Frame header field offsets (spec §4.3), matching stack.FrameHeader's
// field order: PrevRIP, PrevRBP, IRMethodID, MethodID, Magic1, Magic2, each
// an 8-byte word.
const (
	fhPrevRIP    = 0
	fhPrevRBP    = 8
	fhIRMethodID = 16
	fhMethodID   = 24
	fhMagic1     = 32
	fhMagic2     = 40
)

// lowerIRStart writes the frame header's identity fields (spec §4.3): the
// link fields (PrevRIP/PrevRBP) are zero in fresh stack memory for the
// outermost frame, or written by the caller's IRCall for a nested one.
func lowerIRStart(e *asmx86.Emitter, in IRStart) {
	rax := gpEncoding(asmx86.RAX)
	rbp := gpEncoding(asmx86.RBP)

	storeConst64 := func(offset int32, v uint64) {
		emitMovImm64(e, rax, v)
		emitRegMem(e, true, []byte{0x89}, rax, rbp, offset)
	}

	storeConst64(fhIRMethodID, in.IRMethodID)
	storeConst64(fhMethodID, in.MethodID)
	storeConst64(fhMagic1, stack.Magic1)
	storeConst64(fhMagic2, stack.Magic2)
}

// lowerIRCall implements a managed-to-managed call (spec §4.3): it writes
// the callee's prev_rip/prev_rbp link fields, switches RBP to the callee's
// frame, and jumps (never calls — the real machine call stack must stay
// untouched so an eventual exit can RET straight back to the host) to the
// patchable target address. The return site is marked with a label that the
// callee's eventual Return jumps back to.
func lowerIRCall(e *asmx86.Emitter, in IRCall, freshLabel func(string) asmx86.LabelName) {
	rax := gpEncoding(asmx86.RAX)
	rcx := gpEncoding(asmx86.RCX)
	rdx := gpEncoding(asmx86.RDX)
	rbp := gpEncoding(asmx86.RBP)

	ret := freshLabel("ircall_ret")

	// rax = callee frame pointer = rbp - CurrentFrameSize
	emitMovRR(e, true, rax, rbp)
	emitRex(e, true, false, false, rax >= 8)
	e.Emit(0x81)
	e.Emit(modrm(3, 5, rax&7))
	e.EmitUint32(uint32(in.CurrentFrameSize))

	// rcx = return address = rip-relative lea of ret
	emitRex(e, true, rcx >= 8, false, false)
	e.Emit(0x8D)
	e.Emit(modrm(0, rcx&7, 5))
	e.RefRel32(ret)

	emitRegMem(e, true, []byte{0x89}, rcx, rax, fhPrevRIP)
	emitRegMem(e, true, []byte{0x89}, rbp, rax, fhPrevRBP)
	emitMovRR(e, true, rbp, rax)

	emitMovImm64(e, rdx, in.TargetAddr)
	patchSite := e.Offset() - 8
	e.RecordPatchSite(asmx86.PatchCallTarget, patchSite, 8)

	// jmp rdx
	emitRex(e, false, false, false, rdx >= 8)
	e.Emit(0xFF)
	e.Emit(modrm(3, 4, rdx&7))

	e.Bind(ret)
}

// lowerReturn pops the current frame. The outermost frame (PrevRIP==0) does
// a genuine RET, handing control (and the ABI's value/tag registers) back
// to callManagedAsm; a nested frame restores RBP and jumps back into the
// managed caller right after its IRCall, without ever touching RSP. Which
// case applies is known only at runtime, so both paths are emitted with a
// test.
func lowerReturn(e *asmx86.Emitter, in Return, freshLabel func(string) asmx86.LabelName) {
	rax := gpEncoding(asmx86.RAX)
	rcx := gpEncoding(asmx86.RCX)
	rdx := gpEncoding(asmx86.RDX)
	rbp := gpEncoding(asmx86.RBP)

	if in.HasValue {
		emitMovRR(e, true, rax, gpEncoding(in.ReturnVal))
	} else {
		emitAluRR(e, 0x31, false, rax, rax) // xor eax, eax
	}

	emitRegMem(e, true, []byte{0x8B}, rcx, rbp, fhPrevRIP)
	emitRegMem(e, true, []byte{0x8B}, rdx, rbp, fhPrevRBP)
	emitMovRR(e, true, rbp, rdx)

	emitTestRR(e, true, rcx, rcx)
	nested := freshLabel("return_nested")
	emitJcc(e, jccNotEqual, nested)

	emitMovImm32(e, true, rdx, 0) // tag = 0: normal return
	e.Emit(0xC3)                 // ret

	e.Bind(nested)
	emitRex(e, false, false, false, rcx >= 8)
	e.Emit(0xFF)
	e.Emit(modrm(3, 4, rcx&7)) // jmp rcx
}

// lowerNPECheck falls through when Reg is non-null, otherwise transfers to
// the host with ExitNPE and the failing reference as operand0. The failure
// path never jumps at in.Exit's label — doing so would loop back into the
// same check — it is an inline exit sequence instead.
func lowerNPECheck(e *asmx86.Emitter, in NPECheck, freshLabel func(string) asmx86.LabelName) {
	reg := gpEncoding(in.Reg)
	emitTestRR(e, true, reg, reg)

	skip := freshLabel("npe_ok")
	emitJcc(e, jccNotEqual, skip)

	emitMovRR(e, true, gpEncoding(asmx86.RCX), reg)
	emitMovImm32(e, true, gpEncoding(asmx86.R8), 0)
	lowerGuardExitTail(e, ExitNPE)

	e.Bind(skip)
}

// lowerBoundsCheck falls through when 0 <= Index < Length (an unsigned
// comparison, so a negative index wraps to a huge value and fails exactly
// like an over-long one, per spec §8's boundary cases), otherwise exits
// with ExitArrayBoundsCheck carrying Index/Length.
func lowerBoundsCheck(e *asmx86.Emitter, in BoundsCheck, freshLabel func(string) asmx86.LabelName) {
	index, length := gpEncoding(in.Index), gpEncoding(in.Length)
	emitCmpRR(e, true, index, length)

	ok := freshLabel("bounds_ok")
	emitJcc(e, jccBelow, ok)

	emitMovRR(e, true, gpEncoding(asmx86.RCX), index)
	emitMovRR(e, true, gpEncoding(asmx86.R8), length)
	lowerGuardExitTail(e, ExitArrayBoundsCheck)

	e.Bind(ok)
}

// lowerCompareAndSwapAtomic implements Unsafe.compareAndSwap* with a real
// `lock cmpxchg`, leaving the success flag (ZF) zero-extended in Dst.
func lowerCompareAndSwapAtomic(e *asmx86.Emitter, in CompareAndSwapAtomic) {
	rax := gpEncoding(asmx86.RAX)
	addr := gpEncoding(in.AddrReg)
	newVal := gpEncoding(in.New)
	dst := gpEncoding(in.Dst)

	w := in.Size == asmx86.QWord

	emitMovRR(e, w, rax, gpEncoding(in.Expected))

	e.Emit(0xF0) // lock
	emitRex(e, w, newVal >= 8, false, addr >= 8)
	e.Emit(0x0F, 0xB1)
	emitMem(e, newVal&7, addr, in.Offset)

	emitSetcc(e, 0x94, dst) // sete
	emitMovzx8(e, true, dst, dst)
}

// intrinsicTagBase offsets CallIntrinsicHelper's tags past every ExitKind
// value (ExitKind fits in a byte, so 256 leaves no overlap), so RunMethod
// can tell an unserviced VM exit apart from an intrinsic helper call.
const intrinsicTagBase = 256

// lowerExitReturn is the guest-to-host exit protocol shared by VMExit2 and
// CallIntrinsicHelper: operand0 and operand1 (when present) go in RCX/R8,
// tag goes in RDX (0 stays reserved for "normal return"), and a RET hands
// control back to callManagedAsm (safe because no managed call ever pushes
// onto the real machine stack — see the Lower doc comment).
func lowerExitReturn(e *asmx86.Emitter, tag int32, operands []int32) {
	rcx := gpEncoding(asmx86.RCX)
	r8 := gpEncoding(asmx86.R8)
	rdx := gpEncoding(asmx86.RDX)

	var op0, op1 int32
	if len(operands) > 0 {
		op0 = operands[0]
	}
	if len(operands) > 1 {
		op1 = operands[1]
	}

	emitMovImm32(e, true, rcx, op0)
	emitMovImm32(e, true, r8, op1)
	emitMovImm32(e, true, rdx, tag)
	e.Emit(0xC3) // ret
}

// lowerGuardExitTail finishes a guard-check exit (NPECheck, BoundsCheck)
// whose caller has already placed the operand values into RCX/R8 itself —
// those are live register values, not VMExit2's compile-time constants, so
// lowerExitReturn's immediate-only loads don't apply here.
func lowerGuardExitTail(e *asmx86.Emitter, exit ExitKind) {
	emitMovImm32(e, true, gpEncoding(asmx86.RDX), int32(exit)+1)
	e.Emit(0xC3) // ret
}

func labelOffsets(e *asmx86.Emitter) map[Label]int {
	out := make(map[Label]int)
	for name, off := range e.Bound() {
		if len(name) > 0 && name[0] == '$' {
			continue // synthetic labels from freshLabel stay internal
		}
		out[Label(name)] = off
	}

	return out
}
