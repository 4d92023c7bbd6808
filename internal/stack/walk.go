package stack

import "fmt"

// FrameReader abstracts reading a FrameHeader at an address, so the walker
// works the same whether frames live in a real mmap'd ManagedStack or a
// test fixture backed by a plain map.
type FrameReader interface {
	ReadFrame(addr uintptr) (FrameHeader, error)
}

// Walk follows prev_rbp links starting at fp until the magic cookies run
// out (an all-zero PrevRBP at the outermost frame) or a bad-magic frame is
// found, calling visit for each frame in callee-to-caller order
// (innermost first), matching how a debugger or the
// exception unwinder walks a stack (spec §4.3 "Exception unwind").
//
// visit returning false stops the walk early (used by the unwinder once it
// finds a frame whose exception table covers the faulting PC).
func Walk(r FrameReader, fp uintptr, visit func(addr uintptr, h FrameHeader) bool) error {
	for fp != 0 {
		h, err := r.ReadFrame(fp)
		if err != nil {
			return fmt.Errorf("stack: walk: read frame at %#x: %w", fp, err)
		}

		if err := Validate(&h); err != nil {
			return fmt.Errorf("stack: walk: frame at %#x: %w", fp, err)
		}

		if !visit(fp, h) {
			return nil
		}

		fp = uintptr(h.PrevRBP)
	}

	return nil
}
