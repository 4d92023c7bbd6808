// Package compiler implements the template bytecode→IR compiler (spec §4.2):
// a single linear pass over one method's bytecode producing an ir.Program,
// with no optimization passes of its own (those belong to a re-optimizing
// tier this module explicitly excludes, spec "Non-goals").
//
// The per-opcode translation rules mirror the teacher's per-instruction
// struct pattern in internal/vm/ops.go, generalized from "decode one LC-3
// word, execute it against CPU state" to "decode one bytecode, emit the IR
// it lowers to".
package compiler

import "fmt"

// Opcode is a JVM bytecode opcode value (JVM8 §6.5). Only the subset the
// compiler translates is named; any other opcode makes the translator return
// an "unsupported" error; the verifier (out of scope, spec §1) is assumed to have
// already rejected malformed bytecode before it gets here.
type Opcode uint8

const (
	OpNop      Opcode = 0x00
	OpAConstNull Opcode = 0x01
	OpIConstM1 Opcode = 0x02
	OpIConst0  Opcode = 0x03 // iconst_0 .. iconst_5 are 0x03..0x08
	OpLConst0  Opcode = 0x09 // lconst_0, lconst_1
	OpFConst0  Opcode = 0x0b // fconst_0..2
	OpDConst0  Opcode = 0x0e // dconst_0, dconst_1
	OpBIPush   Opcode = 0x10
	OpSIPush   Opcode = 0x11
	OpILoad    Opcode = 0x15
	OpLLoad    Opcode = 0x16
	OpFLoad    Opcode = 0x17
	OpDLoad    Opcode = 0x18
	OpALoad    Opcode = 0x19
	OpILoad0   Opcode = 0x1a // iload_0..3
	OpALoad0   Opcode = 0x2a // aload_0..3
	OpIALoad   Opcode = 0x2e
	OpAALoad   Opcode = 0x32
	OpBALoad   Opcode = 0x33
	OpCALoad   Opcode = 0x34
	OpIStore   Opcode = 0x36
	OpLStore   Opcode = 0x37
	OpFStore   Opcode = 0x38
	OpDStore   Opcode = 0x39
	OpAStore   Opcode = 0x3a
	OpIStore0  Opcode = 0x3b // istore_0..3
	OpAStore0  Opcode = 0x4b // astore_0..3
	OpIAStore  Opcode = 0x4f
	OpAAStore  Opcode = 0x53
	OpBAStore  Opcode = 0x54
	OpCAStore  Opcode = 0x55
	OpPop      Opcode = 0x57
	OpDup      Opcode = 0x59
	OpIAdd     Opcode = 0x60
	OpLAdd     Opcode = 0x61
	OpFAdd     Opcode = 0x62
	OpDAdd     Opcode = 0x63
	OpISub     Opcode = 0x64
	OpIMul     Opcode = 0x68
	OpIDiv     Opcode = 0x6c
	OpIRem     Opcode = 0x70
	OpIAnd     Opcode = 0x7e
	OpIOr      Opcode = 0x80
	OpIXor     Opcode = 0x82
	OpIShl     Opcode = 0x78
	OpIShr     Opcode = 0x7a
	OpIUshr    Opcode = 0x7c
	OpIInc     Opcode = 0x84
	OpI2L      Opcode = 0x85
	OpI2F      Opcode = 0x86
	OpI2D      Opcode = 0x87
	OpF2I      Opcode = 0x8b
	OpD2I      Opcode = 0x8e
	OpIfEq     Opcode = 0x99
	OpIfNe     Opcode = 0x9a
	OpIfLt     Opcode = 0x9b
	OpIfGe     Opcode = 0x9c
	OpIfGt     Opcode = 0x9d
	OpIfLe     Opcode = 0x9e
	OpIfICmpEq Opcode = 0x9f
	OpIfICmpNe Opcode = 0xa0
	OpIfICmpLt Opcode = 0xa1
	OpIfICmpGe Opcode = 0xa2
	OpIfICmpGt Opcode = 0xa3
	OpIfICmpLe Opcode = 0xa4
	OpGoto     Opcode = 0xa7
	OpIReturn  Opcode = 0xac
	OpLReturn  Opcode = 0xad
	OpFReturn  Opcode = 0xae
	OpDReturn  Opcode = 0xaf
	OpAReturn  Opcode = 0xb0
	OpReturn   Opcode = 0xb1
	OpGetStatic Opcode = 0xb2
	OpPutStatic Opcode = 0xb3
	OpGetField  Opcode = 0xb4
	OpPutField  Opcode = 0xb5
	OpInvokeVirtual   Opcode = 0xb6
	OpInvokeSpecial   Opcode = 0xb7
	OpInvokeStatic    Opcode = 0xb8
	OpInvokeInterface Opcode = 0xb9
	OpNew             Opcode = 0xbb
	OpNewArray        Opcode = 0xbc
	OpANewArray       Opcode = 0xbd
	OpArrayLength     Opcode = 0xbe
	OpAThrow          Opcode = 0xbf
	OpCheckCast       Opcode = 0xc0
	OpInstanceOf      Opcode = 0xc1
	OpMonitorEnter    Opcode = 0xc2
	OpMonitorExit     Opcode = 0xc3
)

func (o Opcode) String() string {
	return fmt.Sprintf("opcode(%#02x)", uint8(o))
}

// reader is a cursor over one method's raw bytecode, analogous to
// vm.IR's field-extraction helpers but for a variable-width byte stream
// instead of a fixed 16-bit word.
type reader struct {
	code []byte
	pc   int
}

func newReader(code []byte) *reader { return &reader{code: code} }

func (r *reader) done() bool { return r.pc >= len(r.code) }

func (r *reader) u8() uint8 {
	b := r.code[r.pc]
	r.pc++
	return b
}

func (r *reader) i8() int8 { return int8(r.u8()) }

func (r *reader) u16() uint16 {
	hi, lo := r.u8(), r.u8()
	return uint16(hi)<<8 | uint16(lo)
}

func (r *reader) i16() int16 { return int16(r.u16()) }
