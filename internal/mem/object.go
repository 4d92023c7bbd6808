package mem

import "fmt"

// AllocatedObjectType is the full static description of an allocation
// request (spec GLOSSARY): a plain class instance, an array of object
// references to some element type, or a primitive array of some element
// kind. It doubles as the sub-region key: identical-type objects are packed
// together so a sub-region header alone (no table lookup) tells a reader
// the layout of everything inside it (spec §4.4).
type AllocatedObjectType struct {
	Kind        AllocKind
	ElementSize uintptr // only meaningful for arrays; 0 for plain objects
	TypeName    string  // class name, or element type descriptor for arrays
}

type AllocKind uint8

const (
	AllocObject AllocKind = iota
	AllocObjectArray
	AllocPrimitiveArray
)

func (t AllocatedObjectType) String() string {
	switch t.Kind {
	case AllocObjectArray:
		return fmt.Sprintf("[L%s;", t.TypeName)
	case AllocPrimitiveArray:
		return fmt.Sprintf("[%s(%d)", t.TypeName, t.ElementSize)
	default:
		return t.TypeName
	}
}

// ObjectHeader mirrors the fixed, packed layout described in spec §3: a
// single indirect load at a known offset retrieves the class pointer. Field
// order and sizes here are exactly the wire layout the compiler emits
// offsets against; HeaderWords must stay in sync with class.HeaderSize.
type ObjectHeader struct {
	ClassPointerCache   uintptr // direct pointer to the class mirror
	InheritanceBitPath  uint64  // packed class.BitPath bits+depth
	InterfaceIDsPtr     uintptr
	InterfaceIDsLen     uint64
	RegionMetadataPtr   uintptr
}

const HeaderWords = 5

// Offsets of each header field, in bytes, for the compiler to embed as
// constants in emitted loads (spec §3 "a single indirect load [obj +
// header_offset] retrieves the class pointer").
const (
	OffsetClassPointerCache  = 0 * 8
	OffsetInheritanceBitPath = 1 * 8
	OffsetInterfaceIDsPtr    = 2 * 8
	OffsetInterfaceIDsLen    = 3 * 8
	OffsetRegionMetadataPtr  = 4 * 8
)

// SubRegionHeader is the per-sub-region metadata recording the object
// layout packed there, so find_object_region_header(ptr) can answer "what
// is this" without consulting any table but the region bases themselves.
type SubRegionHeader struct {
	Type          AllocatedObjectType
	ObjectSize    uintptr // fixed size of one packed instance, header included
	ClassPointer  uintptr // cached pointer to the class mirror for Type
}
