package ir

import (
	"fmt"

	"github.com/sparrowvm/core/internal/asmx86"
)

// ArithOp names a binary arithmetic or bitwise opcode. The teacher's
// per-instruction struct-per-opcode style (internal/vm/ops.go has a
// distinct type for every LC-3 opcode) doesn't scale cleanly to a dozen
// binary operators that differ only in the operation they perform; Arith
// generalizes it the way internal/vm/ops.go's addImm/andImm pair already
// generalizes "same shape, different op" into a Mode field.
type ArithOp uint8

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
	BinaryBitAnd
	BinaryBitOr
	BinaryBitXor
	ShiftLeftOp
	ShiftRightSigned
	ShiftRightLogical
)

func (op ArithOp) String() string {
	names := [...]string{"Add", "Sub", "Mul", "Div", "Mod", "And", "Or", "Xor", "Shl", "Sar", "Shr"}
	return names[op]
}

func (op ArithOp) kind() OpKind {
	kinds := [...]OpKind{
		OpAdd, OpSub, OpMul, OpDiv, OpMod,
		OpBinaryBitAnd, OpBinaryBitOr, OpBinaryBitXor,
		OpShiftLeft, OpShiftRightSigned, OpShiftRightLogical,
	}

	return kinds[op]
}

// Arith computes Dst = Dst <op> Src, in place, matching x86-64's two-operand
// ALU instruction shape.
type Arith struct {
	Op       ArithOp
	Dst, Src asmx86.Reg
	Size     asmx86.OpSize
	Float    bool // true routes through XMM instructions (spec §4.2 "float/double route through XMM instructions")
}

func (a Arith) Kind() OpKind { return a.Op.kind() }
func (a Arith) String() string {
	return fmt.Sprintf("%s[%s] %s, %s", a.Op, a.Size, a.Dst, a.Src)
}

// SignExtend widens Src into Dst, sign-extending from From to To.
type SignExtend struct {
	Dst, Src asmx86.Reg
	From, To asmx86.OpSize
}

func (SignExtend) Kind() OpKind { return OpSignExtend }
func (i SignExtend) String() string {
	return fmt.Sprintf("SignExtend %s, %s (%s->%s)", i.Dst, i.Src, i.From, i.To)
}

// ConvertKind names one of the four JVM numeric-conversion intrinsics the
// compiler lowers directly (i2f, f2i, i2d, d2i). A Convert carries no
// integer width: its lowering always uses the 64-bit integer form.
type ConvertKind uint8

const (
	IntegerToFloat ConvertKind = iota
	FloatToInteger
	IntegerToDouble
	DoubleToInteger
)

// Convert performs a numeric representation change (spec §4.1 "Conversion").
// Double selects the SSE2 prefix (f2/f3) and operand width the real
// cvtsi2sd/cvtsi2ss/cvttsd2si/cvttss2si encodings need: true for i2d/d2i,
// false for i2f/f2i.
type Convert struct {
	Kind_    ConvertKind
	Dst, Src asmx86.Reg
	Double   bool
}

func (c Convert) Kind() OpKind {
	switch c.Kind_ {
	case IntegerToFloat:
		return OpIntegerToFloatConvert
	case FloatToInteger:
		return OpFloatToIntegerConvert
	case IntegerToDouble:
		return OpIntegerToDoubleConvert
	default:
		return OpDoubleToIntegerConvert
	}
}

func (c Convert) String() string {
	names := [...]string{"i2f", "f2i", "i2d", "d2i"}
	return fmt.Sprintf("%s %s, %s", names[c.Kind_], c.Dst, c.Src)
}
