package ir

import (
	"fmt"

	"github.com/sparrowvm/core/internal/asmx86"
)

// IRCall calls another managed method (spec §4.1 "Calls", §4.3 "Calling
// another managed method"): it writes prev_rip/prev_rbp into the callee's
// frame header, resizes the stack for the callee's frame, and jumps to a
// patchable target address. TargetAddr starts as a placeholder resolved at
// link time for invokestatic/invokespecial, or populated lazily by the
// virtual-dispatch exit on first call for invokevirtual/invokeinterface
// (spec §4.2 "Invokes").
type IRCall struct {
	CurrentFrameSize int32
	NewFrameSize     int32
	TargetAddr       uint64 // patched in place; see asmx86.PatchCallTarget
	Temps            []asmx86.Reg
}

func (IRCall) Kind() OpKind { return OpIRCall }
func (c IRCall) String() string {
	return fmt.Sprintf("IRCall target=%#x frame=%d->%d temps=%v",
		c.TargetAddr, c.CurrentFrameSize, c.NewFrameSize, c.Temps)
}

// Return pops the current frame, restores the caller's RBP, and jumps to
// the stored return address, leaving ReturnVal (if any) in the ABI's return
// register.
type Return struct {
	ReturnVal asmx86.Reg // zero value (RAX) means "no return value slot used"
	HasValue  bool
	FrameSize int32
	Temps     []asmx86.Reg
}

func (Return) Kind() OpKind { return OpReturn }
func (r Return) String() string {
	if !r.HasValue {
		return fmt.Sprintf("Return (void) frame=%d", r.FrameSize)
	}

	return fmt.Sprintf("Return %s frame=%d", r.ReturnVal, r.FrameSize)
}

// IRStart marks the entry of a compiled method: the first instruction
// run_method jumps to, establishing the frame header fields.
type IRStart struct {
	IRMethodID uint64
	MethodID   uint64
	FrameSize  int32
}

func (IRStart) Kind() OpKind { return OpIRStart }
func (s IRStart) String() string {
	return fmt.Sprintf("IRStart ir=%d method=%d frame=%d", s.IRMethodID, s.MethodID, s.FrameSize)
}
