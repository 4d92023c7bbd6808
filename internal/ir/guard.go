package ir

import (
	"fmt"

	"github.com/sparrowvm/core/internal/asmx86"
)

// NPECheck raises the ExitNPE exit if Reg holds a null
// reference, otherwise falls through (spec §4.2 "NPE-check the reference").
type NPECheck struct {
	Reg  asmx86.Reg
	Exit Label // the exit's restart/landing label
}

func (NPECheck) Kind() OpKind { return OpNPECheck }
func (c NPECheck) String() string { return fmt.Sprintf("NPECheck %s ->%s", c.Reg, c.Exit) }

// BoundsCheck raises ExitArrayBoundsCheck if Index is outside [0, Length)
// (spec §8 boundary behavior: -1 and len both fault; 0 and len-1 succeed).
type BoundsCheck struct {
	Length asmx86.Reg
	Index  asmx86.Reg
	Exit   Label
}

func (BoundsCheck) Kind() OpKind { return OpBoundsCheck }
func (c BoundsCheck) String() string {
	return fmt.Sprintf("BoundsCheck %s < %s ->%s", c.Index, c.Length, c.Exit)
}

// CompareAndSwapAtomic implements Unsafe.compareAndSwapInt/Long/Object: an
// x86-64 `lock cmpxchg`, leaving the boolean success flag in Dst.
type CompareAndSwapAtomic struct {
	AddrReg         asmx86.Reg
	Offset          int32
	Expected, New   asmx86.Reg
	Dst             asmx86.Reg
	Size            asmx86.OpSize
}

func (CompareAndSwapAtomic) Kind() OpKind { return OpCompareAndSwapAtomic }
func (c CompareAndSwapAtomic) String() string {
	return fmt.Sprintf("CompareAndSwapAtomic[%s] %s, [%s%+d], %s->%s",
		c.Size, c.Dst, c.AddrReg, c.Offset, c.Expected, c.New)
}
