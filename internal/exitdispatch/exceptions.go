package exitdispatch

import "fmt"

// NullPointerException, ArrayIndexOutOfBoundsException, and Thrown are the
// host-side stand-ins for the three ways managed code hands control back to
// the dispatcher with something to propagate (spec §7): these are returned
// as ordinary Go errors from Handle rather than modeled as heap-allocated
// Throwable objects, since a full exception-object/stack-trace model is
// outside this package's scope (the object layer, internal/mem and
// internal/class, already models everything an allocated Throwable would
// need; wiring one up is the caller's job once it has a ClassID to
// allocate).
type NullPointerException struct{}

func (*NullPointerException) Error() string { return "NullPointerException" }

type ArrayIndexOutOfBoundsException struct {
	Index, Length int32
}

func (e *ArrayIndexOutOfBoundsException) Error() string {
	return fmt.Sprintf("ArrayIndexOutOfBoundsException: index %d, length %d", e.Index, e.Length)
}

// Thrown wraps an athrow's already-allocated exception object pointer.
type Thrown struct {
	ObjectPtr uintptr
}

func (t *Thrown) Error() string {
	return fmt.Sprintf("exception thrown: object at %#x", t.ObjectPtr)
}

// IllegalMonitorStateException is raised by monitorexit when the calling
// goroutine doesn't hold the object's monitor, or holds it at depth zero
// (spec §4.5 "monitorenter / monitorexit"): monitor balance is tracked at
// runtime, not proven by the (out-of-scope) verifier, so a mismatched
// monitorexit is a genuine runtime condition, not dead code.
type IllegalMonitorStateException struct {
	ObjectPtr uintptr
}

func (e *IllegalMonitorStateException) Error() string {
	return fmt.Sprintf("IllegalMonitorStateException: object at %#x", e.ObjectPtr)
}
