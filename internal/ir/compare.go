package ir

import (
	"fmt"

	"github.com/sparrowvm/core/internal/asmx86"
)

// FloatCompareMode selects NaN handling for fcmpg/fcmpl (spec §8 boundary
// behavior: "Float compare G of NaN, x returns 1; L returns -1").
type FloatCompareMode uint8

const (
	CompareG FloatCompareMode = iota // NaN compares greater
	CompareL                         // NaN compares less
)

// FloatCompare compares two floating-point registers, leaving a tri-state
// result (-1, 0, 1) in Dst.
type FloatCompare struct {
	Dst      asmx86.Reg
	A, B     asmx86.Reg
	Mode     FloatCompareMode
	Double   bool
}

func (FloatCompare) Kind() OpKind { return OpFloatCompare }
func (c FloatCompare) String() string {
	mode := "G"
	if c.Mode == CompareL {
		mode = "L"
	}

	return fmt.Sprintf("FloatCompare%s %s, %s, %s", mode, c.Dst, c.A, c.B)
}

// IntCompare compares two integer registers, leaving -1/0/1 in Dst (used by
// lcmp; 32-bit int comparisons go through the branch opcodes directly).
type IntCompare struct {
	Dst  asmx86.Reg
	A, B asmx86.Reg
}

func (IntCompare) Kind() OpKind { return OpIntCompare }
func (c IntCompare) String() string { return fmt.Sprintf("IntCompare %s, %s, %s", c.Dst, c.A, c.B) }

// BranchCond names the condition a conditional branch tests.
type BranchCond uint8

const (
	CondEqual BranchCond = iota
	CondNotEqual
	CondLessThan
	CondGreaterOrEqual
	CondGreaterThan
	CondLessOrEqual
)

// Branch is a conditional branch comparing A and B, jumping to Target if
// Cond holds.
type Branch struct {
	Cond   BranchCond
	A, B   asmx86.Reg
	Target Label
}

func (b Branch) Kind() OpKind {
	switch b.Cond {
	case CondEqual:
		return OpBranchEqual
	case CondNotEqual:
		return OpBranchNotEqual
	default:
		return OpBranchLessThan
	}
}

func (b Branch) String() string {
	names := [...]string{
		"BranchEqual", "BranchNotEqual", "BranchLessThan",
		"BranchGreaterOrEqual", "BranchGreaterThan", "BranchLessOrEqual",
	}
	return fmt.Sprintf("%s %s, %s, ->%s", names[b.Cond], b.A, b.B, b.Target)
}

// BranchToLabel is an unconditional jump.
type BranchToLabel struct {
	Target Label
}

func (BranchToLabel) Kind() OpKind { return OpBranchToLabel }
func (b BranchToLabel) String() string { return fmt.Sprintf("BranchToLabel ->%s", b.Target) }

// LabelMark binds Name to the current emission offset (spec §4.1 "Labels").
type LabelMark struct {
	Name Label
}

func (LabelMark) Kind() OpKind { return OpLabel }
func (l LabelMark) String() string { return fmt.Sprintf("Label %s:", l.Name) }
