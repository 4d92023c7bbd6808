package ir

import (
	"fmt"
	"sync"

	"github.com/sparrowvm/core/internal/log"
	"github.com/sparrowvm/core/internal/stack"
)

// CodeCache is the IR VM's table of compiled methods, keyed by ir_method_id
// (spec §2 "IR and IR VM": "tracks per-function labels and exit sites,
// provides a run_method(ir_method_id, stack, frame_ptr) entry"). Reads do
// not block pending writes (spec §5 "Class tables, method tables, field
// tables"), following the same reader-writer-lock policy applied there.
type CodeCache struct {
	mut     sync.RWMutex
	methods map[uint64]*compiled

	log *log.Logger
}

// compiled pairs a CompiledMethod with the executable memory it was copied
// into, so recompilation can free the old mapping once nothing references
// it (tracked by the caller, not here — the IR VM never frees code a
// managed frame might still be returning into).
type compiled struct {
	method *CompiledMethod
	exec   *executableRegion
}

// NewCodeCache creates an empty cache.
func NewCodeCache() *CodeCache {
	return &CodeCache{
		methods: make(map[uint64]*compiled),
		log:     log.DefaultLogger(),
	}
}

// Install compiles program and makes it available to RunMethod under
// program.IRMethodID, replacing any previous compilation for that id (the
// class-init-and-recompile exit's "recompile this method" path, spec §4.5).
func (c *CodeCache) Install(p *Program) (*CompiledMethod, error) {
	cm, err := Lower(p)
	if err != nil {
		return nil, err
	}

	exec, err := newExecutableRegion(cm.Code)
	if err != nil {
		return nil, fmt.Errorf("ir: install ir=%d: %w", p.IRMethodID, err)
	}

	c.mut.Lock()
	c.methods[p.IRMethodID] = &compiled{method: cm, exec: exec}
	c.mut.Unlock()

	c.log.Info("installed compiled method", "IR", p.IRMethodID, "METHOD", p.MethodID, "BYTES", len(cm.Code))

	return cm, nil
}

// Lookup returns the compiled method for ir_method_id.
func (c *CodeCache) Lookup(irMethodID uint64) (*CompiledMethod, bool) {
	c.mut.RLock()
	defer c.mut.RUnlock()

	e, ok := c.methods[irMethodID]
	if !ok {
		return nil, false
	}

	return e.method, true
}

// EntryAddr returns the mapped entry address of the compiled code for
// irMethodID, for callers (internal/exitdispatch's invoke-cache population)
// that need a raw address rather than a fresh RunMethod transition.
func (c *CodeCache) EntryAddr(irMethodID uint64) (uintptr, bool) {
	c.mut.RLock()
	defer c.mut.RUnlock()

	e, ok := c.methods[irMethodID]
	if !ok {
		return 0, false
	}

	return e.exec.addr(), true
}

// ErrInvalidMethod is the precondition failure for RunMethod: a valid
// ir_method_id is required, and spec §4.1 calls an invalid one fatal
// ("invalid ids abort"), so callers should treat this as unrecoverable
// rather than propagate it as an ordinary control-flow error.
type ErrInvalidMethod struct {
	IRMethodID uint64
}

func (e *ErrInvalidMethod) Error() string {
	return fmt.Sprintf("ir: invalid ir_method_id %d", e.IRMethodID)
}

// UnhandledExitError reports that a managed call left through a VM exit or
// intrinsic helper that RunMethod's caller never serviced: RunMethod only
// transfers control into managed code and back, it doesn't itself run
// internal/exitdispatch's dispatch loop. Tag follows the emitted exit
// protocol (lower.go's lowerExitReturn): 1..intrinsicTagBase-1 is an
// ExitKind+1, intrinsicTagBase+helperID is a CallIntrinsicHelper.
type UnhandledExitError struct {
	Tag      int64
	Op0, Op1 int64
}

func (e *UnhandledExitError) Error() string {
	if e.Tag >= intrinsicTagBase {
		return fmt.Sprintf("ir: unhandled intrinsic helper #%d (operands %d, %d)",
			e.Tag-intrinsicTagBase, e.Op0, e.Op1)
	}

	return fmt.Sprintf("ir: unhandled vm exit %s (operands %d, %d)", ExitKind(e.Tag-1), e.Op0, e.Op1)
}

// Exit decodes Tag into the ExitKind it names and whether it was actually a
// VM exit (as opposed to an intrinsic helper call).
func (e *UnhandledExitError) Exit() (kind ExitKind, ok bool) {
	if e.Tag < 1 || e.Tag >= intrinsicTagBase {
		return 0, false
	}

	return ExitKind(e.Tag - 1), true
}

// RunMethod is the host-to-managed boundary (spec §6 "Entry point"): it
// installs the first managed frame on guard's stack and transfers control
// to the compiled method's entry point, returning the method's i64 result
// once the method returns (normally) or panicking with *ErrInvalidMethod if
// irMethodID was never installed.
func (c *CodeCache) RunMethod(irMethodID uint64, guard *stack.JavaStackGuard, methodID uint64) (int64, error) {
	c.mut.RLock()
	entry, ok := c.methods[irMethodID]
	c.mut.RUnlock()

	if !ok {
		panic(&ErrInvalidMethod{IRMethodID: irMethodID})
	}

	header, _, err := stack.EnterManaged(guard, entry.exec.addr(), irMethodID, methodID, uintptr(entry.method.FrameSize))
	if err != nil {
		return 0, fmt.Errorf("ir: run_method: %w", err)
	}

	_ = header // the frame header is written by the emitted IRStart prologue in a real JIT; tracked here for the debugger/unwinder to find

	c.log.Debug("run_method", "IR", irMethodID, "METHOD", methodID)

	value, tag, op0, op1, err := callManaged(entry.exec.addr(), guard.FramePointer())
	if err != nil {
		return 0, err
	}

	if tag != 0 {
		return 0, &UnhandledExitError{Tag: tag, Op0: op0, Op1: op1}
	}

	return value, nil
}
