package class

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sparrowvm/core/internal/classfile"
	"github.com/sparrowvm/core/internal/log"
)

// RuntimeClass is the runtime representation of a loaded class. Once
// created it lives until process shutdown (spec §3 "RuntimeClass").
type RuntimeClass struct {
	ID   ClassID
	View *classfile.ClassView

	// Parent is nil only for java/lang/Object.
	Parent     *RuntimeClass
	Interfaces []*RuntimeClass

	Layout    ObjectLayout
	Methods   MethodNumbering
	Static    *StaticStorage
	BitPath   BitPath

	mut           sync.Mutex
	status        ClassStatus
	initializer   uint64 // goroutine id of the thread running <clinit>, 0 if none
	initErr       error
	waiters       []chan struct{}
	nextChildSlot int // next unused BitPath child slot handed to a subclass

	log *log.Logger
}

var (
	// ErrClassNotFound is returned when a Source has no class by the
	// requested name (spec §7 ClassNotFoundError/NoClassDefFoundError).
	ErrClassNotFound = errors.New("class not found")

	// ErrInitFailed wraps any exception escaping <clinit> (spec §7
	// ExceptionInInitializerError).
	ErrInitFailed = errors.New("exception in initializer")
)

// newRuntimeClass allocates a RuntimeClass in the Prepared state. It does
// not compute layout or method numbering; callers (Table.Prepare) do that
// once parent/interfaces are resolved.
func newRuntimeClass(id ClassID, view *classfile.ClassView, parent *RuntimeClass, ifaces []*RuntimeClass) *RuntimeClass {
	return &RuntimeClass{
		ID:         id,
		View:       view,
		Parent:     parent,
		Interfaces: ifaces,
		status:     StatusPrepared,
		log:        log.DefaultLogger(),
	}
}

func (rc *RuntimeClass) String() string {
	return fmt.Sprintf("RuntimeClass(%s, id=%s, status=%s)", rc.View.Name, rc.ID, rc.Status())
}

// Status reads the class's current status under the class mutex; every read
// takes the lock, inside or outside a transition.
func (rc *RuntimeClass) Status() ClassStatus {
	rc.mut.Lock()
	defer rc.mut.Unlock()

	return rc.status
}

// link transitions Prepared → Linked once the superclass chain and
// interfaces are at least Prepared and this class's ObjectLayout /
// MethodNumbering have been computed.
func (rc *RuntimeClass) link(layout ObjectLayout, methods MethodNumbering, static *StaticStorage, path BitPath) {
	rc.mut.Lock()
	defer rc.mut.Unlock()

	if rc.status != StatusPrepared {
		return
	}

	rc.Layout = layout
	rc.Methods = methods
	rc.Static = static
	rc.BitPath = path
	rc.status = StatusLinked

	rc.log.Debug("class linked", "CLASS", rc.View.Name, "FIELDS", len(layout.Numbers), "METHODS", len(methods.numbers))
}

// EnsureInitialized runs <clinit> exactly once, per spec §4.6: re-entry from
// the initializing thread returns immediately without re-running <clinit>;
// re-entry from another thread blocks until the first finishes. callerGoroutine
// identifies the calling thread (the exit dispatcher supplies its own stable
// id; tests may pass any non-zero value consistently per goroutine).
//
// clinit is invoked with the lock released so it may recursively touch other
// classes; it must itself handle re-entrant EnsureInitialized calls for this
// same class correctly, which it will, since status is already Initializing.
func (rc *RuntimeClass) EnsureInitialized(callerGoroutine uint64, clinit func() error) error {
	rc.mut.Lock()

	switch rc.status {
	case StatusInitialized:
		rc.mut.Unlock()
		return nil

	case StatusError:
		rc.mut.Unlock()
		return fmt.Errorf("%w: %s: %w", ErrInitFailed, rc.View.Name, rc.initErr)

	case StatusInitializing:
		if rc.initializer == callerGoroutine {
			// Recursive entry from the initializing thread: spec requires
			// this returns immediately without re-running <clinit>.
			rc.mut.Unlock()
			return nil
		}

		wait := make(chan struct{})
		rc.waiters = append(rc.waiters, wait)
		rc.mut.Unlock()

		<-wait

		return rc.EnsureInitialized(callerGoroutine, clinit)

	default: // StatusLinked
		rc.status = StatusInitializing
		rc.initializer = callerGoroutine
		rc.mut.Unlock()
	}

	err := clinit()

	rc.mut.Lock()
	if err != nil {
		rc.status = StatusError
		rc.initErr = err
	} else {
		rc.status = StatusInitialized
	}

	waiters := rc.waiters
	rc.waiters = nil
	rc.mut.Unlock()

	for _, w := range waiters {
		close(w)
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInitFailed, rc.View.Name, err)
	}

	return nil
}

// IsSubclassOf reports whether rc is the same class as, or a (possibly
// indirect) subclass of, other, walking Parent links only (interfaces are
// checked separately via InterfaceIDs).
func (rc *RuntimeClass) IsSubclassOf(other *RuntimeClass) bool {
	for c := rc; c != nil; c = c.Parent {
		if c == other {
			return true
		}
	}

	return false
}

// ImplementsInterface reports whether rc (or an ancestor) declares iface
// among its implemented interfaces.
func (rc *RuntimeClass) ImplementsInterface(iface *RuntimeClass) bool {
	for c := rc; c != nil; c = c.Parent {
		for _, i := range c.Interfaces {
			if i == iface || i.ImplementsInterface(iface) {
				return true
			}
		}
	}

	return false
}
