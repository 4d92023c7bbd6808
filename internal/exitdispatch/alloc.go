package exitdispatch

import (
	"unsafe"

	"github.com/sparrowvm/core/internal/class"
	"github.com/sparrowvm/core/internal/ir"
	"github.com/sparrowvm/core/internal/mem"
	"github.com/sparrowvm/core/internal/stack"
)

// writeHeaderWord stores a 64-bit value at ptr+offset. Region memory is raw
// mmap'd bytes (internal/mem.Regions), not a Go slice the allocator hands
// back, so writing an object header is necessarily an unsafe pointer store
// rather than an indexed slice write — the same trade internal/mem/region_unix.go
// already makes to turn an mmap'd address into usable memory at all.
func writeHeaderWord(ptr uintptr, offset uintptr, value uint64) {
	*(*uint64)(unsafe.Pointer(ptr + offset)) = value
}

func readHeaderWord(ptr uintptr, offset uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(ptr + offset))
}

// initObjectHeader writes the fixed five-word header every allocation gets
// (spec §3 "Object header"), encoding rc's ClassID in the class-pointer-
// cache slot. A genuine mirror-object pointer there would require
// java/lang/Class bootstrapping, which is out of this module's scope; the
// ClassID is sufficient for every header-consuming operation this package
// implements (checkcast, instanceof, GC-less allocation bookkeeping).
func initObjectHeader(ptr uintptr, rc *class.RuntimeClass) {
	writeHeaderWord(ptr, mem.OffsetClassPointerCache, uint64(rc.ID))
	writeHeaderWord(ptr, mem.OffsetInheritanceBitPath, rc.BitPath.Pack())
	writeHeaderWord(ptr, mem.OffsetInterfaceIDsPtr, 0)
	writeHeaderWord(ptr, mem.OffsetInterfaceIDsLen, uint64(len(class.InterfaceIDs(rc))))
	writeHeaderWord(ptr, mem.OffsetRegionMetadataPtr, 0)
}

// classOfObject recovers the allocating class from an object's header.
func (d *Dispatcher) classOfObject(ptr uintptr) (*class.RuntimeClass, bool) {
	id := class.ClassID(readHeaderWord(ptr, mem.OffsetClassPointerCache))
	return d.classes.ByID(id)
}

func (d *Dispatcher) allocateObject(ctx *Context) (stack.Resume, error) {
	rc := ctx.Class

	size := uintptr(class.HeaderSize + (len(rc.Layout.Order)+len(rc.Layout.Hidden))*8)

	ptr, err := d.regions.Allocate(mem.AllocatedObjectType{Kind: mem.AllocObject, TypeName: rc.View.Name}, size)
	if err != nil {
		return stack.Resume{}, err
	}

	initObjectHeader(ptr, rc)

	ctx.Values = []uint64{uint64(ptr)}

	return resumeAtRestart(ctx), nil
}

func (d *Dispatcher) allocateArray(ctx *Context) (stack.Resume, error) {
	length := int(ctx.Values[0])
	if length < 0 {
		return stack.Resume{}, &NegativeArraySizeException{Length: int32(length)}
	}

	// ctx.Values[1] carries the element width the compiler derived from the
	// newarray atype (1/2/4/8), or 8 for anewarray's object references;
	// callers that don't supply it default to a pointer-width element.
	elemSize := uintptr(8)
	if len(ctx.Values) > 1 {
		elemSize = uintptr(ctx.Values[1])
	}

	layout := mem.ArrayLayout{ElementSize: elemSize}
	size := layout.Size(length)

	kind := mem.AllocObjectArray

	ptr, err := d.regions.Allocate(mem.AllocatedObjectType{Kind: kind, ElementSize: elemSize, TypeName: ctx.Class.View.Name}, size)
	if err != nil {
		return stack.Resume{}, err
	}

	initObjectHeader(ptr, ctx.Class)
	writeHeaderWord(ptr, mem.LengthOffset, uint64(length))

	ctx.Values = []uint64{uint64(ptr)}

	return resumeAfter(), nil
}

func (d *Dispatcher) newString(ctx *Context) (stack.Resume, error) {
	rc, err := d.classes.Get("java/lang/String")
	if err != nil {
		return stack.Resume{}, err
	}

	ctx.Class = rc

	return d.allocateObject(ctx)
}

// NegativeArraySizeException is raised by newarray/anewarray when the requested length is negative (spec §7).
type NegativeArraySizeException struct{ Length int32 }

func (e *NegativeArraySizeException) Error() string {
	return "NegativeArraySizeException"
}

// compiledEntryPoint is a small indirection through which invoke.go asks the
// code cache for an already-installed CompiledMethod.
func (d *Dispatcher) compiledEntryPoint(irMethodID uint64) (*ir.CompiledMethod, bool) {
	return d.code.Lookup(irMethodID)
}
