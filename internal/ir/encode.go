package ir

import (
	"fmt"

	"github.com/sparrowvm/core/internal/asmx86"
)

// gpEncoding maps asmx86.Reg's declaration order onto the real x86-64
// register-encoding numbers (spec §4.1 "lowering to x86-64 machine code"):
// asmx86.Reg was assigned in a convenient enumeration order, not the
// hardware's RAX=0/RCX=1/RDX=2/RBX=3/RSP=4/RBP=5/RSI=6/RDI=7 order, so every
// ModRM/SIB byte this package emits goes through this table first.
var gpEncTable = [...]byte{
	0, 3, 1, 2, 6, 7, 5, 4, // RAX RBX RCX RDX RSI RDI RBP RSP -> hw numbers
	8, 9, 10, 11, 12, 13, 14, 15, // R8-R15 already line up
}

func gpEncoding(r asmx86.Reg) byte {
	if int(r) >= len(gpEncTable) {
		panic(fmt.Sprintf("ir: %s is not a general-purpose register", r))
	}

	return gpEncTable[r]
}

func xmmEncoding(r asmx86.Reg) byte {
	if !r.IsXMM() {
		panic(fmt.Sprintf("ir: %s is not an xmm register", r))
	}

	return byte(r - asmx86.XMM0)
}

// rex builds a REX prefix byte. w selects a 64-bit operand, r/x/b extend
// the ModRM reg, SIB index, and ModRM rm/SIB base fields respectively.
func rex(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}

	return v
}

// emitRex appends a REX prefix only when one of its bits is actually set;
// plain 32-bit operations among the low eight registers need none.
func emitRex(e *asmx86.Emitter, w, r, x, b bool) {
	if w || r || x || b {
		e.Emit(rex(w, r, x, b))
	}
}

func modrm(mod, reg, rm byte) byte {
	return mod<<6 | (reg&7)<<3 | (rm & 7)
}

// emitMem appends the ModRM[/SIB][/disp] bytes addressing [base+disp] with
// regField (a ModRM reg value or an opcode-extension digit) as the other
// operand. RSP/R12 as a base require a SIB byte; RBP/R13 with a zero
// displacement collide with the mod=00 RIP-relative/no-base encodings, so
// that case is forced to an explicit one-byte displacement of zero.
func emitMem(e *asmx86.Emitter, regField, baseEnc byte, disp int32) {
	base3 := baseEnc & 7
	needsSIB := base3 == 4

	var mod byte
	switch {
	case disp == 0 && base3 != 5:
		mod = 0
	case disp >= -128 && disp <= 127:
		mod = 1
	default:
		mod = 2
	}

	rm := base3
	if needsSIB {
		rm = 4
	}

	e.Emit(modrm(mod, regField, rm))

	if needsSIB {
		e.Emit(0x20 | base3) // scale=00 index=100(none) base=base3
	}

	switch mod {
	case 1:
		e.Emit(byte(int8(disp)))
	case 2:
		e.EmitUint32(uint32(disp))
	}
}

// emitRegMem emits a REX-prefixed opcode operating on reg and [base+disp].
func emitRegMem(e *asmx86.Emitter, w bool, opcode []byte, regEnc, baseEnc byte, disp int32) {
	emitRex(e, w, regEnc >= 8, false, baseEnc >= 8)
	e.Emit(opcode...)
	emitMem(e, regEnc&7, baseEnc, disp)
}

// emitMovRR emits `mov dst, src` (register to register, the "MOV r/m, r"
// direction: dst is the r/m operand, src is the reg operand).
func emitMovRR(e *asmx86.Emitter, w bool, dst, src byte) {
	emitRex(e, w, src >= 8, false, dst >= 8)
	e.Emit(0x89)
	e.Emit(modrm(3, src&7, dst&7))
}

// emitAluRR emits a two-operand ALU op in the "op r/m, r" form: dst op= src.
func emitAluRR(e *asmx86.Emitter, opcode byte, w bool, dst, src byte) {
	emitRex(e, w, src >= 8, false, dst >= 8)
	e.Emit(opcode)
	e.Emit(modrm(3, src&7, dst&7))
}

// emitImulRR emits `imul dst, src` (0F AF /r, the "reg, r/m" direction).
func emitImulRR(e *asmx86.Emitter, w bool, dst, src byte) {
	emitRex(e, w, dst >= 8, false, src >= 8)
	e.Emit(0x0F, 0xAF)
	e.Emit(modrm(3, dst&7, src&7))
}

// emitMovImm32 emits `mov r/m, imm32` (sign-extended on the 64-bit form),
// used for loading small constants into a scratch or value register.
func emitMovImm32(e *asmx86.Emitter, w bool, reg byte, imm int32) {
	emitRex(e, w, false, false, reg >= 8)
	e.Emit(0xC7)
	e.Emit(modrm(3, 0, reg&7))
	e.EmitUint32(uint32(imm))
}

// emitMovImm32Direct emits the `mov r32, imm32` B8+reg form.
func emitMovImm32Direct(e *asmx86.Emitter, reg byte, imm int32) {
	emitRex(e, false, false, false, reg >= 8)
	e.Emit(0xB8 + (reg & 7))
	e.EmitUint32(uint32(imm))
}

func emitMovImm64(e *asmx86.Emitter, reg byte, imm uint64) {
	emitRex(e, true, false, false, reg >= 8)
	e.Emit(0xB8 + (reg & 7))
	e.EmitUint64(imm)
}

func emitMovImm16(e *asmx86.Emitter, reg byte, imm int16) {
	e.Emit(0x66)
	emitRex(e, false, false, false, reg >= 8)
	e.Emit(0xB8 + (reg & 7))
	e.Emit(byte(imm), byte(imm>>8))
}

// emitTestRR emits `test a, b` (used as a==0 check when a==b).
func emitTestRR(e *asmx86.Emitter, w bool, a, b byte) {
	emitRex(e, w, b >= 8, false, a >= 8)
	e.Emit(0x85)
	e.Emit(modrm(3, b&7, a&7))
}

// emitCmpRR emits `cmp a, b`, computing a-b into the flags.
func emitCmpRR(e *asmx86.Emitter, w bool, a, b byte) {
	emitRex(e, w, b >= 8, false, a >= 8)
	e.Emit(0x39)
	e.Emit(modrm(3, b&7, a&7))
}

// emitSetcc + emitMovzx8 turn a condition into a zero-extended 0/1 value.
func emitSetcc(e *asmx86.Emitter, cc byte, reg byte) {
	emitRex(e, false, false, false, reg >= 8)
	e.Emit(0x0F, cc)
	e.Emit(modrm(3, 0, reg&7))
}

func emitMovzx8(e *asmx86.Emitter, w bool, dst, src byte) {
	emitRex(e, w, dst >= 8, false, src >= 8)
	e.Emit(0x0F, 0xB6)
	e.Emit(modrm(3, dst&7, src&7))
}

// emitMovqToXMM/emitMovqFromXMM bridge a GP register holding a float/double
// bit pattern into/out of an XMM register for real SSE2 arithmetic.
func emitMovqToXMM(e *asmx86.Emitter, xmm, gp byte) {
	e.Emit(0x66)
	e.Emit(rex(true, xmm >= 8, false, gp >= 8))
	e.Emit(0x0F, 0x6E)
	e.Emit(modrm(3, xmm&7, gp&7))
}

func emitMovqFromXMM(e *asmx86.Emitter, gp, xmm byte) {
	e.Emit(0x66)
	e.Emit(rex(true, xmm >= 8, false, gp >= 8))
	e.Emit(0x0F, 0x7E)
	e.Emit(modrm(3, xmm&7, gp&7))
}

func emitSSEArith(e *asmx86.Emitter, op ArithOp, double bool, dstXMM, srcXMM byte) {
	if double {
		e.Emit(0xF2)
	} else {
		e.Emit(0xF3)
	}

	e.Emit(0x0F)

	var opcode byte
	switch op {
	case Add:
		opcode = 0x58
	case Sub:
		opcode = 0x5C
	case Mul:
		opcode = 0x59
	case Div:
		opcode = 0x5E
	}

	e.Emit(opcode)
	e.Emit(modrm(3, dstXMM&7, srcXMM&7))
}

// jcc opcodes, the two-byte 0F 8x near (rel32) family — not the one-byte
// rel8 short-jump opcodes, which can't reach an arbitrary label.
const (
	jccEqual          = 0x84
	jccNotEqual       = 0x85
	jccLess           = 0x8C
	jccGreaterOrEqual = 0x8D
	jccLessOrEqual    = 0x8E
	jccGreater        = 0x8F
	jccBelow          = 0x82
	jccParity         = 0x8A
)

func emitJcc(e *asmx86.Emitter, cc byte, target asmx86.LabelName) {
	e.Emit(0x0F, cc)
	e.RefRel32(target)
}

func emitJmpLabel(e *asmx86.Emitter, target asmx86.LabelName) {
	e.Emit(0xE9)
	e.RefRel32(target)
}
