// Package stack implements the managed execution stack (spec §4.3): a
// guarded mmap'd region per thread, paired with the host's native stack, and
// the JavaStackGuard handle that is the only way the stack is read or
// mutated while in use.
//
// The shape mirrors vm.Memory's MAR/MDR-controller pattern from the
// teacher (internal/vm/mem.go): a small struct owning the backing storage
// plus a cursor, with every access routed through it rather than raw slice
// indexing, so debug-mode invariant checks have one choke point.
package stack

import (
	"errors"
	"fmt"

	"github.com/sparrowvm/core/internal/log"
)

// FrameHeader is the fixed, packed layout of a managed frame header (spec
// §3, §6): six 64-bit words, aligned to 8 bytes.
type FrameHeader struct {
	PrevRIP    uint64
	PrevRBP    uint64
	IRMethodID uint64
	MethodID   uint64
	Magic1     uint64
	Magic2     uint64
}

// FrameHeaderWords is the header's size in 64-bit words.
const FrameHeaderWords = 6

// FrameHeaderSize is the header's size in bytes.
const FrameHeaderSize = FrameHeaderWords * 8

// Magic cookie constants, validated on every frame entry and unwind step
// (spec §3 invariant, §4.3 "Frame invariants").
const (
	Magic1 uint64 = 0xCAFEF00DDEADC0DE
	Magic2 uint64 = 0x0BADC0FFEE0DDF00
)

// ErrBadMagic is returned when a frame's magic cookies don't match; spec §3
// calls this fatal, so callers that can't recover (the unwinder mid-walk)
// should treat it as an InternalError and abort rather than propagate it as
// an ordinary error.
var ErrBadMagic = errors.New("stack: frame magic mismatch")

// ErrStackOverflow is raised when a call would cross the managed stack's
// bottom guard page (spec §7 StackOverflowError).
var ErrStackOverflow = errors.New("stack: overflow")

// ManagedStack is one thread's dedicated guest stack: a contiguous byte
// range, reserved once at thread start and never moved, that grows downward
// like a native stack (spec §4.3).
type ManagedStack struct {
	body     []byte // backing storage, MAP_STACK|MAP_NORESERVE on unix
	bottom   uintptr // lowest usable address (above the guard page)
	top      uintptr // highest address (exclusive)
	guardLen uintptr
}

// DefaultStackSize is the body size reserved for each managed stack,
// guard page excluded.
const DefaultStackSize = 8 << 20 // 8 MiB, matching typical pthread stack sizing

// DefaultGuardSize is the size of the unmapped/protected guard region at the
// stack's low address, whose presence turns a stack overflow into a
// detectable fault rather than silent corruption.
const DefaultGuardSize = 4096

// NewManagedStack reserves a managed stack of the given size plus a guard
// page below it.
func NewManagedStack(size uintptr) (*ManagedStack, error) {
	if size == 0 {
		size = DefaultStackSize
	}

	total := size + DefaultGuardSize

	body, bottom, err := reserveStack(total, DefaultGuardSize)
	if err != nil {
		return nil, fmt.Errorf("stack: reserve: %w", err)
	}

	return &ManagedStack{
		body:     body,
		bottom:   bottom,
		top:      bottom + size,
		guardLen: DefaultGuardSize,
	}, nil
}

// Close releases the stack's backing storage.
func (s *ManagedStack) Close() error {
	return releaseStack(s.body)
}

// Bounds returns the stack's usable [bottom, top) range, for frame-pointer
// validation (spec §4.3 "A frame pointer must lie between the stack's mmap
// bottom and mmap top").
func (s *ManagedStack) Bounds() (bottom, top uintptr) {
	return s.bottom, s.top
}

// Contains reports whether fp lies within the stack's usable range.
func (s *ManagedStack) Contains(fp uintptr) bool {
	return fp >= s.bottom && fp < s.top
}

// JavaStackGuard is the only handle through which a managed stack is read or
// mutated while in use (spec §4.3). It carries a cursor (the current frame
// pointer) and validates frame invariants on every move when debug checks
// are enabled.
type JavaStackGuard struct {
	stack *ManagedStack
	fp    uintptr // current FramePointer cursor

	debugChecks bool
	log         *log.Logger
}

// NewGuard wraps a managed stack with a guard positioned at its top (the
// first frame is pushed downward from there, mirroring RSP/RBP behavior on
// x86-64).
func NewGuard(s *ManagedStack, debugChecks bool) *JavaStackGuard {
	_, top := s.Bounds()

	return &JavaStackGuard{
		stack:       s,
		fp:          top,
		debugChecks: debugChecks,
		log:         log.DefaultLogger(),
	}
}

// FramePointer returns the guard's current cursor.
func (g *JavaStackGuard) FramePointer() uintptr { return g.fp }

// PushFrame reserves frameSize bytes below the current frame pointer for a
// new frame, returning the new frame's base address (its header's address).
// It is the Go-level analogue of the IRCall instruction's frame setup (spec
// §4.3 "writes prev_rip/prev_rbp into the callee's frame header, updates
// RBP/RSP to the new frame").
func (g *JavaStackGuard) PushFrame(frameSize uintptr) (uintptr, error) {
	next := g.fp - frameSize

	bottom, _ := g.stack.Bounds()
	if next < bottom {
		return 0, ErrStackOverflow
	}

	g.fp = next

	if g.debugChecks {
		g.log.Debug("pushed frame", "FP", fmt.Sprintf("%#x", g.fp), "SIZE", frameSize)
	}

	return g.fp, nil
}

// PopFrame restores the guard's cursor to callerFP, validating that the
// frame being popped carries correct magic cookies (spec §3 invariant). It
// panics on a bad magic — this is an InternalError per spec §7, not a
// recoverable condition.
func (g *JavaStackGuard) PopFrame(header *FrameHeader, callerFP uintptr) {
	if header.Magic1 != Magic1 || header.Magic2 != Magic2 {
		panic(fmt.Errorf("%w: got %#x/%#x", ErrBadMagic, header.Magic1, header.Magic2))
	}

	if !g.stack.Contains(callerFP) && callerFP != 0 {
		panic(fmt.Errorf("stack: frame pointer %#x outside managed stack bounds", callerFP))
	}

	g.fp = callerFP
}

// Validate checks a frame header's magic cookies without moving the cursor,
// for use by the stack walker (spec §4.3 "Exception unwind").
func Validate(header *FrameHeader) error {
	if header.Magic1 != Magic1 || header.Magic2 != Magic2 {
		return ErrBadMagic
	}

	return nil
}
