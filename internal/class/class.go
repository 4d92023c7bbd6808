// Package class holds the runtime representation of loaded types: the
// process-wide ClassID table, per-class linkage and initialization state,
// object/method numbering, and static storage.
//
// The layering mirrors vm.Interrupt's idt-plus-mutex shape from the teacher:
// a small table protected by a lock, with a String()/LogValue() for
// debugging, and sentinel errors for the failure modes a caller can expect.
package class

import (
	"fmt"
	"sync"

	"github.com/sparrowvm/core/internal/log"
)

// ClassID is a stable, dense, never-recycled integer identifying a reference
// type (spec §3 "Class identity").
type ClassID uint32

func (id ClassID) String() string { return fmt.Sprintf("C#%d", uint32(id)) }

// TypeDescriptor is a sum type: primitive, reference-to-named-class, or
// array-of-T. Exactly one of the three "views" is meaningful, selected by
// Kind.
type TypeDescriptor struct {
	Kind DescriptorKind

	// Primitive is meaningful when Kind == KindPrimitive.
	Primitive PrimitiveKind

	// ClassName is meaningful when Kind == KindReference.
	ClassName string

	// Element is meaningful when Kind == KindArray; it may itself be an
	// array descriptor (multi-dimensional arrays nest).
	Element *TypeDescriptor
}

type DescriptorKind uint8

const (
	KindPrimitive DescriptorKind = iota
	KindReference
	KindArray
)

type PrimitiveKind uint8

const (
	Boolean PrimitiveKind = iota
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
	Void
)

// Size returns the native word count (in 64-bit slots) a value of this
// primitive kind occupies in a frame: category-2 types (long, double)
// occupy two slots, everything else occupies one.
func (p PrimitiveKind) Size() int {
	if p == Long || p == Double {
		return 2
	}

	return 1
}

func (d TypeDescriptor) String() string {
	switch d.Kind {
	case KindPrimitive:
		return [...]string{"Z", "B", "C", "S", "I", "J", "F", "D", "V"}[d.Primitive]
	case KindArray:
		return "[" + d.Element.String()
	default:
		return "L" + d.ClassName + ";"
	}
}

// IDTable is the process-wide ClassID ↔ TypeDescriptor mapping. It is the
// only place new ClassID values are minted; ids are monotonic and never
// recycled (spec §3 invariant).
type IDTable struct {
	mut    sync.RWMutex
	byID   []TypeDescriptor
	byDesc map[string]ClassID

	log *log.Logger
}

// NewIDTable creates an empty, ready-to-use table.
func NewIDTable() *IDTable {
	return &IDTable{
		byDesc: make(map[string]ClassID),
		log:    log.DefaultLogger(),
	}
}

// Intern returns the ClassID for desc, minting a new one if this is the
// first time desc has been seen. Interning the same descriptor twice always
// returns the same id.
func (t *IDTable) Intern(desc TypeDescriptor) ClassID {
	key := desc.String()

	t.mut.RLock()
	if id, ok := t.byDesc[key]; ok {
		t.mut.RUnlock()
		return id
	}
	t.mut.RUnlock()

	t.mut.Lock()
	defer t.mut.Unlock()

	if id, ok := t.byDesc[key]; ok {
		return id
	}

	id := ClassID(len(t.byID))
	t.byID = append(t.byID, desc)
	t.byDesc[key] = id

	t.log.Debug("interned class id", "ID", id, "DESC", key)

	return id
}

// Lookup returns the descriptor for id. The second return is false if id was
// never minted by this table.
func (t *IDTable) Lookup(id ClassID) (TypeDescriptor, bool) {
	t.mut.RLock()
	defer t.mut.RUnlock()

	if int(id) >= len(t.byID) {
		return TypeDescriptor{}, false
	}

	return t.byID[id], true
}

// ClassStatus is the class linkage/initialization state machine (spec §4.6).
type ClassStatus uint8

const (
	StatusPrepared ClassStatus = iota
	StatusLinked
	StatusInitializing
	StatusInitialized
	StatusError
)

func (s ClassStatus) String() string {
	switch s {
	case StatusPrepared:
		return "Prepared"
	case StatusLinked:
		return "Linked"
	case StatusInitializing:
		return "Initializing"
	case StatusInitialized:
		return "Initialized"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

func (s ClassStatus) LogValue() log.Value { return log.StringValue(s.String()) }
