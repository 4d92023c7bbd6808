package mem_test

import (
	"testing"

	"github.com/sparrowvm/core/internal/mem"
)

func newRegions(t *testing.T) *mem.Regions {
	t.Helper()

	r, err := mem.NewRegions()
	if err != nil {
		t.Fatalf("NewRegions: %s", err)
	}
	t.Cleanup(func() { r.Close() })

	return r
}

var smallType = mem.AllocatedObjectType{Kind: mem.AllocObject, TypeName: "Demo"}

func TestAllocateReturnsPointerInClassRange(t *testing.T) {
	r := newRegions(t)

	ptr, err := r.Allocate(smallType, 64)
	if err != nil {
		t.Fatalf("Allocate: %s", err)
	}

	class, ok := mem.ClassOf(ptr)
	if !ok {
		t.Fatal("ClassOf: pointer not in any reserved region")
	}

	if class != mem.Small {
		t.Errorf("ClassOf = %s, want small (64 bytes is within the small threshold)", class)
	}
}

func TestAllocateAdvancesCursor(t *testing.T) {
	r := newRegions(t)

	first, err := r.Allocate(smallType, 64)
	if err != nil {
		t.Fatalf("Allocate: %s", err)
	}

	second, err := r.Allocate(smallType, 64)
	if err != nil {
		t.Fatalf("Allocate: %s", err)
	}

	if second <= first {
		t.Errorf("second alloc %#x did not advance past first %#x", second, first)
	}

	if second-first != 64 {
		t.Errorf("allocations are %d bytes apart, want 64", second-first)
	}
}

func TestAllocateRoutesBySize(t *testing.T) {
	r := newRegions(t)

	large := mem.AllocatedObjectType{Kind: mem.AllocObjectArray, TypeName: "Demo"}

	ptr, err := r.Allocate(large, 1<<21)
	if err != nil {
		t.Fatalf("Allocate: %s", err)
	}

	class, ok := mem.ClassOf(ptr)
	if !ok {
		t.Fatal("ClassOf: pointer not in any reserved region")
	}

	if class != mem.ExtraLarge {
		t.Errorf("ClassOf(2MiB alloc) = %s, want extra-large", class)
	}
}

func TestFindObjectRegionHeader(t *testing.T) {
	r := newRegions(t)

	ptr, err := r.Allocate(smallType, 64)
	if err != nil {
		t.Fatalf("Allocate: %s", err)
	}

	hdr, ok := r.FindObjectRegionHeader(ptr)
	if !ok {
		t.Fatal("FindObjectRegionHeader: not found for an address just allocated")
	}

	if hdr.Type != smallType {
		t.Errorf("header.Type = %v, want %v", hdr.Type, smallType)
	}

	if _, ok := r.FindObjectRegionHeader(0); ok {
		t.Error("FindObjectRegionHeader(0) = true, want false")
	}
}

func TestStatsReflectsAllocations(t *testing.T) {
	r := newRegions(t)

	if _, err := r.Allocate(smallType, 64); err != nil {
		t.Fatalf("Allocate: %s", err)
	}

	stats := r.Stats()
	if len(stats) == 0 {
		t.Fatal("Stats() returned nothing after an allocation")
	}

	var found bool
	for _, s := range stats {
		if s.Class == mem.Small && s.Type == smallType {
			found = true
			if s.Committed < 64 {
				t.Errorf("committed = %d, want at least 64", s.Committed)
			}
		}
	}

	if !found {
		t.Error("Stats() did not report the small/Demo sub-region")
	}
}
