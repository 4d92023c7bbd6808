package compiler

import "github.com/sparrowvm/core/internal/stack"

// FrameLayout is the locals-then-operand-stack slot assignment for one
// method's frame (spec §4.2 "locals and operand stack share the frame,
// addressed FP-relative"; supplemented from
// original_source/gc-memory-layout-common/src/frame_layout.rs). Local slot
// indices and operand-stack depths are exactly what the classfile format's
// max_locals/max_stack already count in JVM8, including the two-slot cost of
// category-2 values (long, double) — so no separate category-2 bookkeeping
// is needed here beyond what MaxLocals/MaxStack already encode.
type FrameLayout struct {
	MaxLocals int
	MaxStack  int
}

// NewFrameLayout builds a FrameLayout from a method's declared slot counts.
func NewFrameLayout(maxLocals, maxStack int) FrameLayout {
	return FrameLayout{MaxLocals: maxLocals, MaxStack: maxStack}
}

// Size is the total frame size in bytes: the fixed header plus one 8-byte
// slot per local and per operand-stack depth.
func (l FrameLayout) Size() int32 {
	return int32(stack.FrameHeaderSize + (l.MaxLocals+l.MaxStack)*8)
}

// LocalOffset returns the FP-relative byte offset of local variable slot i
// (negative: locals live below the frame header, since the managed stack
// grows downward, spec §4.3).
func (l FrameLayout) LocalOffset(i int) int32 {
	return -int32(stack.FrameHeaderSize + (i+1)*8)
}

// StackOffset returns the FP-relative byte offset of operand-stack depth i
// (0 is the first pushed value), laid out immediately after the locals.
func (l FrameLayout) StackOffset(i int) int32 {
	return -int32(stack.FrameHeaderSize + (l.MaxLocals+i+1)*8)
}
