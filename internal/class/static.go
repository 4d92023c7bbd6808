package class

import (
	"sync"

	"github.com/sparrowvm/core/internal/classfile"
)

// StaticStorage is a separately-allocated, word-addressable array of
// static-field slots for one class (spec §3). It is allocated once, when
// the class is prepared, and lives until process shutdown.
type StaticStorage struct {
	mut     sync.RWMutex
	slots   []uint64
	numbers map[string]int
}

// newStaticStorage allocates storage for view's static fields, in
// declaration order. Static fields are never inherited (unlike instance
// fields): each class gets its own storage even when it redeclares a name
// already static in an ancestor.
func newStaticStorage(view *classfile.ClassView) *StaticStorage {
	ss := &StaticStorage{
		numbers: make(map[string]int),
	}

	for _, f := range view.Fields {
		if !f.AccessFlags.Has(classfile.AccStatic) {
			continue
		}

		ss.numbers[f.Name] = len(ss.slots)
		ss.slots = append(ss.slots, 0)
	}

	return ss
}

// Number returns the static-storage slot index for name.
func (ss *StaticStorage) Number(name string) (int, bool) {
	n, ok := ss.numbers[name]
	return n, ok
}

// Get reads a static slot by index (spec §4.5 GetStatic exit).
func (ss *StaticStorage) Get(n int) uint64 {
	ss.mut.RLock()
	defer ss.mut.RUnlock()

	return ss.slots[n]
}

// Put writes a static slot by index (spec §4.5 PutStatic exit).
func (ss *StaticStorage) Put(n int, val uint64) {
	ss.mut.Lock()
	defer ss.mut.Unlock()

	ss.slots[n] = val
}

// Addr returns the address of slot n as an offset from the storage base, for
// the compiler to embed as a constant in emitted code (spec §4.2 "Static
// access").
func (ss *StaticStorage) Addr(n int) int {
	return n * 8
}
