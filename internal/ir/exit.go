package ir

import "fmt"

// ExitKind enumerates IRVMExitType variants (spec §4.5). Each carries the
// operand FP-offsets or constants it needs to hand the dispatcher.
type ExitKind uint8

const (
	ExitInitClassAndRecompile ExitKind = iota
	ExitAllocateObject
	ExitAllocateObjectArrayIntrinsic
	ExitNewString
	ExitPutStatic
	ExitGetStatic
	ExitMonitorEnter
	ExitMonitorExit
	ExitRunSpecialNativeNew
	ExitNPE
	ExitArrayBoundsCheck
	ExitCheckCast
	ExitInstanceOf
	ExitThrow
	ExitResolveInvoke
	ExitTraceInstruction

	// ExitBreakpoint resolves the JVMTI-vs-JIT open question (spec §9) as an
	// exit rather than a code patch. The compiler does not emit it; the
	// dispatcher's case for it resumes after the exit without suspending.
	ExitBreakpoint
)

func (k ExitKind) String() string {
	names := [...]string{
		"InitClassAndRecompile", "AllocateObject", "AllocateObjectArrayIntrinsic",
		"NewString", "PutStatic", "GetStatic", "MonitorEnter", "MonitorExit",
		"RunSpecialNativeNew", "NPE", "BoundsCheck", "CheckCast", "InstanceOf",
		"Throw", "ResolveInvoke", "TraceInstruction", "Breakpoint",
	}

	if int(k) >= len(names) {
		return fmt.Sprintf("ExitKind(%d)", k)
	}

	return names[k]
}

// VMExit2 saves managed state and transfers to the dispatcher (spec §4.1
// "Exits / patch points"). RestartAt, if non-empty, names the RestartPoint
// the dispatcher should resume at instead of falling through.
type VMExit2 struct {
	Exit      ExitKind
	Operands  []int32 // FP-relative offsets or small constants the exit needs
	RestartAt Label
}

func (VMExit2) Kind() OpKind { return OpVMExit2 }
func (e VMExit2) String() string {
	if e.RestartAt != "" {
		return fmt.Sprintf("VMExit2 %s operands=%v restart=%s", e.Exit, e.Operands, e.RestartAt)
	}

	return fmt.Sprintf("VMExit2 %s operands=%v", e.Exit, e.Operands)
}

// RestartPoint marks a resume address inserted immediately before a VMExit2
// that may need to re-execute (spec §4.1 "Restart points").
type RestartPoint struct {
	ID   RestartPointID
	Name Label
}

func (RestartPoint) Kind() OpKind { return OpRestartPoint }
func (r RestartPoint) String() string { return fmt.Sprintf("RestartPoint(%d) %s:", r.ID, r.Name) }

// CallIntrinsicHelper invokes a registered native/intrinsic helper by id,
// bypassing the usual IRCall path because intrinsics have no managed frame
// of their own (spec §4.2 "Intrinsics").
type CallIntrinsicHelper struct {
	HelperID uint32
	Operands []int32
}

func (CallIntrinsicHelper) Kind() OpKind { return OpCallIntrinsicHelper }
func (c CallIntrinsicHelper) String() string {
	return fmt.Sprintf("CallIntrinsicHelper #%d operands=%v", c.HelperID, c.Operands)
}
