// Package mem implements the region-based object allocator: four fixed,
// address-range-partitioned regions (spec §3, §4.4) reserved via anonymous
// mmap so that an object pointer alone encodes its region class.
package mem

import (
	"fmt"

	"github.com/sparrowvm/core/internal/log"
)

// RegionClass names one of the four size-class regions.
type RegionClass uint8

const (
	Small RegionClass = iota
	Medium
	Large
	ExtraLarge

	numRegions = int(ExtraLarge) + 1
)

func (c RegionClass) String() string {
	return [...]string{"small", "medium", "large", "extra-large"}[c]
}

// RegionBase is the fixed mmap base address for each region class (spec §4.4,
// §6 "Region base addresses"). A region's body size is always RegionSize.
var RegionBase = [numRegions]uintptr{
	Small:      1 << 43,
	Medium:     3 << 43,
	Large:      5 << 43,
	ExtraLarge: 7 << 43,
}

// RegionSize is the reserved size of each region: 2^43 bytes (8 TiB).
const RegionSize = uintptr(1) << 43

// ClassOf returns the RegionClass encoded by the top bits of a pointer,
// and true if ptr falls within one of the four reserved ranges at all.
func ClassOf(ptr uintptr) (RegionClass, bool) {
	for c, base := range RegionBase {
		if ptr >= base && ptr < base+RegionSize {
			return RegionClass(c), true
		}
	}

	return 0, false
}

// classify picks which region an allocation of size n bytes is routed to.
// Small objects (most instances) go to Small; large arrays escalate through
// Medium/Large/ExtraLarge. The thresholds are arbitrary but monotonic, which
// is all §4.4 requires ("objects are routed to a region class by
// AllocatedObjectType and size").
func classify(n uintptr) RegionClass {
	switch {
	case n <= 256:
		return Small
	case n <= 4096:
		return Medium
	case n <= 1<<20:
		return Large
	default:
		return ExtraLarge
	}
}

// Regions owns the four reserved mmap ranges and, within each, the
// sub-regions keyed by AllocatedObjectType. It is one of the process-wide
// singletons named in spec §9 (paired with internal/class.Table's ClassID
// allocator and internal/asmx86's code-editing lock).
type Regions struct {
	bodies  [numRegions][]byte
	subregs [numRegions]map[AllocatedObjectType]*subRegion

	log *log.Logger
}

// NewRegions reserves all four regions via anonymous mmap. It is expensive
// (8 TiB × 4 of address space, though physical pages are committed lazily by
// the OS on first touch) and is meant to be called once per process.
func NewRegions() (*Regions, error) {
	r := &Regions{log: log.DefaultLogger()}

	for c := range RegionBase {
		body, err := reserveRegion(RegionBase[c], RegionSize)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("mem: reserve region %s: %w", RegionClass(c), err)
		}

		r.bodies[c] = body
		r.subregs[c] = make(map[AllocatedObjectType]*subRegion)

		r.log.Info("region reserved", "CLASS", RegionClass(c), "BASE", fmt.Sprintf("%#x", RegionBase[c]), "SIZE", RegionSize)
	}

	return r, nil
}

// Close releases all reserved regions. It is idempotent.
func (r *Regions) Close() error {
	var firstErr error

	for c, body := range r.bodies {
		if body == nil {
			continue
		}

		if err := releaseRegion(body); err != nil && firstErr == nil {
			firstErr = err
		}

		r.bodies[c] = nil
	}

	return firstErr
}

// subRegionFor returns (creating if needed) the sub-region packing objects
// of type t, within the region class appropriate for size n.
func (r *Regions) subRegionFor(t AllocatedObjectType, n uintptr) (*subRegion, RegionClass) {
	class := classify(n)

	sr, ok := r.subregs[class][t]
	if !ok {
		sr = newSubRegion(r.bodies[class], t, n)
		r.subregs[class][t] = sr
	}

	return sr, class
}

// Allocate reserves n bytes for an object of type t and returns a pointer
// (as a region-relative offset plus the region's base address) and an
// OutOfMemoryError if the sub-region cannot extend (spec §7).
func (r *Regions) Allocate(t AllocatedObjectType, n uintptr) (uintptr, error) {
	sr, class := r.subRegionFor(t, n)

	off, err := sr.bump(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrOutOfMemory, class, err)
	}

	ptr := RegionBase[class] + sr.offset + off

	r.log.Debug("allocated", "TYPE", t, "SIZE", n, "PTR", fmt.Sprintf("%#x", ptr))

	return ptr, nil
}

// FindObjectRegionHeader returns the sub-region header for the object at
// ptr: the AllocatedObjectType and layout that a single pointer identifies
// without any table lookup (spec §4.4 find_object_region_header). The
// second return is false if ptr is not in any reserved region.
func (r *Regions) FindObjectRegionHeader(ptr uintptr) (*SubRegionHeader, bool) {
	class, ok := ClassOf(ptr)
	if !ok {
		return nil, false
	}

	for _, sr := range r.subregs[class] {
		if ptr >= sr.base() && ptr < sr.base()+sr.committed() {
			return &sr.header, true
		}
	}

	return nil, false
}

// RegionStat summarizes one sub-region's committed extent, for the CLI's
// `regions` subcommand.
type RegionStat struct {
	Class     RegionClass
	Type      AllocatedObjectType
	Committed uintptr
}

// Stats reports every sub-region currently carved out of each region class,
// in size order within each class's map iteration (no ordering guarantee
// beyond what Go's map iteration gives; the CLI sorts for display).
func (r *Regions) Stats() []RegionStat {
	var stats []RegionStat

	for class, subregs := range r.subregs {
		for t, sr := range subregs {
			stats = append(stats, RegionStat{
				Class:     RegionClass(class),
				Type:      t,
				Committed: sr.committed(),
			})
		}
	}

	return stats
}
