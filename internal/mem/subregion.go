package mem

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"
)

// ErrOutOfMemory is raised by the allocator when a sub-region cannot extend
// (spec §7 OutOfMemoryError).
var ErrOutOfMemory = errors.New("out of memory")

// subRegion packs every object of one AllocatedObjectType within a single
// region. Allocation walks a free cursor with compare-and-swap (spec §5
// "Region allocation — each size-class region has its own bump cursor
// protected by a compare-and-swap"); when an allocation would exceed the
// backing slice's capacity it falls back to a mutex, matching the spec's
// "large allocations fall back to a mutex" for the rare contended-extension
// case.
type subRegion struct {
	header SubRegionHeader

	body   []byte // the region's backing slice, shared across all sub-regions of that class
	offset uintptr // start offset of this sub-region within body, fixed at creation

	cursor uint64 // atomically-updated bump pointer, relative to offset

	extendMut sync.Mutex
	limit     uint64 // current committed extent, relative to offset
}

// subRegionInitialCapacity is how much of the backing region each sub-region
// is granted on creation before it needs to extend. Chosen generously (the
// regions are 8 TiB of virtual, not physical, address space) so most
// programs never hit the mutex-protected extend path.
const subRegionInitialCapacity = 1 << 30 // 1 GiB per sub-region-type slice

// subRegionSlotWidth spaces distinct sub-regions 64 GiB apart within their
// shared region body, plenty of room to grow independently without
// colliding, and far below the 8 TiB region size.
const subRegionSlotWidth = uintptr(1) << 36

var nextSlot = map[*byte]uint64{} // keyed by region body identity; guarded by slotMut
var slotMut sync.Mutex

func newSubRegion(body []byte, t AllocatedObjectType, size uintptr) *subRegion {
	var bodyKey *byte
	if len(body) > 0 {
		bodyKey = &body[0]
	}

	slotMut.Lock()
	slot := nextSlot[bodyKey]
	nextSlot[bodyKey] = slot + 1
	slotMut.Unlock()

	return &subRegion{
		header: SubRegionHeader{Type: t, ObjectSize: size},
		body:   body,
		offset: uintptr(slot) * subRegionSlotWidth,
		limit:  subRegionInitialCapacity,
	}
}

// base returns the absolute start address of this sub-region's slice.
func (sr *subRegion) base() uintptr {
	if len(sr.body) == 0 {
		return 0
	}

	return uintptr(unsafe.Pointer(&sr.body[0])) + sr.offset
}

// committed returns how much of the sub-region has been handed out.
func (sr *subRegion) committed() uintptr {
	return uintptr(atomic.LoadUint64(&sr.cursor))
}

// bump reserves n bytes from the sub-region, advancing the cursor with a
// CAS loop. When the reservation would cross the current limit, it takes
// extendMut and (since this is a virtual-memory scheme, not a physically
// bounded arena) simply raises the limit — the mutex exists to serialize
// concurrent extensions, not to bound memory, matching spec §4.4's "the fast
// allocation path ... walks a free cursor".
func (sr *subRegion) bump(n uintptr) (uintptr, error) {
	for {
		cur := atomic.LoadUint64(&sr.cursor)
		next := cur + uint64(n)

		if next > atomic.LoadUint64(&sr.limit) {
			if err := sr.extend(next); err != nil {
				return 0, err
			}

			continue
		}

		if atomic.CompareAndSwapUint64(&sr.cursor, cur, next) {
			return uintptr(cur), nil
		}
	}
}

func (sr *subRegion) extend(need uint64) error {
	sr.extendMut.Lock()
	defer sr.extendMut.Unlock()

	if atomic.LoadUint64(&sr.limit) >= need {
		return nil // another goroutine already extended far enough
	}

	if uintptr(need) >= subRegionSlotWidth {
		return ErrOutOfMemory
	}

	atomic.StoreUint64(&sr.limit, need+need/2) // grow with headroom
	return nil
}
