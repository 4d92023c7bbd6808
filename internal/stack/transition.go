package stack

// SavedRegisters is the register-snapshot layout used on the guest↔host
// boundary (spec §6). The lowered VMExit2 code does not write it: an exit
// returns its tag and operands in registers (see internal/ir's
// lowerExitReturn).
type SavedRegisters struct {
	RSP    uint64
	RBP    uint64
	RIP    uint64
	Status uint64 // flags register
}

// JitCodeContext is the packed VM-exit payload (spec §6): the managed
// (guest) register snapshot taken at the exit site, and the native (host)
// registers the dispatcher runs with, plus the address the dispatcher jumps
// to on entry.
type JitCodeContext struct {
	NativeSaved   SavedRegisters
	JavaSaved     SavedRegisters
	ExitHandlerIP uint64
}

// Transition represents one crossing of the guest↔host boundary: either
// entering managed code fresh (Run) or returning to the host at a VM exit.
// It exists as a Go-level stand-in for the register-save/restore sequence
// the real x86-64 emitter generates inline; internal/exitdispatch consumes
// it the same way the teacher's interrupt.Handle consumes an *interrupt.
type Transition struct {
	Context JitCodeContext
	Guard   *JavaStackGuard
}

// EnterManaged installs the first managed frame on guard's stack and
// records the host's registers so a later exit can restore them (spec §4.3
// "Entering managed code"). entryPoint is the IR method's compiled entry
// address; irMethodID/methodID populate the frame header.
func EnterManaged(guard *JavaStackGuard, entryPoint uintptr, irMethodID, methodID uint64, frameSize uintptr) (*FrameHeader, *Transition, error) {
	fp, err := guard.PushFrame(frameSize)
	if err != nil {
		return nil, nil, err
	}

	header := &FrameHeader{
		PrevRIP:    0, // nothing to return to: this is the outermost managed frame
		PrevRBP:    0,
		IRMethodID: irMethodID,
		MethodID:   methodID,
		Magic1:     Magic1,
		Magic2:     Magic2,
	}

	t := &Transition{
		Guard: guard,
		Context: JitCodeContext{
			JavaSaved: SavedRegisters{RBP: uint64(fp), RIP: uint64(entryPoint)},
		},
	}

	return header, t, nil
}

// Exit records a VM exit: the managed state at the moment of the exit, and
// where the dispatcher should resume once it has serviced the exit (either
// the instruction after the exit, or a restart point). It does not itself
// move the guard's cursor — the managed stack is "preserved untouched" on
// exit per spec §4.3.
func (t *Transition) Exit(exitHandler uintptr, javaRSP, javaRBP, javaRIP uint64) {
	t.Context.JavaSaved = SavedRegisters{RSP: javaRSP, RBP: javaRBP, RIP: javaRIP}
	t.Context.ExitHandlerIP = uint64(exitHandler)
}

// Resume picks the resume address: the restart point id if non-zero,
// otherwise the address immediately following the exit (spec §4.5 "After
// handling, the dispatcher returns either 'resume after exit' or 'resume at
// restart point'").
type ResumeKind uint8

const (
	ResumeAfterExit ResumeKind = iota
	ResumeAtRestartPoint
)

type Resume struct {
	Kind          ResumeKind
	RestartPoint  uint64 // meaningful when Kind == ResumeAtRestartPoint
}
