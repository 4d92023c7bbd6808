package mem

// ArrayLayout describes the memory shape of an array instance (spec §3
// "Arrays have a length word immediately after the header..."; supplemented
// from original_source/array-memory-layout/src/layout.rs): header, then a
// length word, then len elements of ElementSize bytes each.
type ArrayLayout struct {
	ElementSize uintptr // 1, 2, 4, or 8 bytes
}

// LengthOffset is the byte offset of the length word, immediately after the
// fixed-size object header.
const LengthOffset = HeaderSize

// ElementsOffset is the byte offset of the first element, immediately after
// the length word.
const ElementsOffset = LengthOffset + 8

// Size returns the total byte size of an array instance with the given
// element count, header and length word included.
func (l ArrayLayout) Size(length int) uintptr {
	return ElementsOffset + l.ElementSize*uintptr(length)
}

// ElementOffset returns the byte offset of element i, for the compiler's
// array-load/array-store translation (spec §4.2 "scale index by element
// size; load or store").
func (l ArrayLayout) ElementOffset(i int) uintptr {
	return ElementsOffset + l.ElementSize*uintptr(i)
}

// HeaderSize duplicates class.HeaderSize locally to avoid an import cycle
// (internal/class does not depend on internal/mem, and internal/mem must
// not depend on internal/class, which itself needs allocation primitives
// defined here); both constants are defined once per spec §3 and must never
// drift — see the cross-package test in mem/array_test.go.
const HeaderSize = 5 * 8
