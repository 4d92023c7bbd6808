package exitdispatch

import (
	"github.com/sparrowvm/core/internal/class"
	"github.com/sparrowvm/core/internal/mem"
	"github.com/sparrowvm/core/internal/stack"
)

// resolveSubtype answers "is the object at ptr an instance of target",
// trying the O(1) bit-path prefix check first and falling back to a full
// ancestor/interface walk only when the bit-path is Unknown. Both checks run
// here, after the checkcast/instanceof exit has left managed code.
func (d *Dispatcher) resolveSubtype(ptr uintptr, target *class.RuntimeClass) bool {
	id := class.ClassID(readHeaderWord(ptr, mem.OffsetClassPointerCache))

	rc, ok := d.classes.ByID(id)
	if !ok {
		return false
	}

	if !isInterfaceCheck(target) {
		path := class.UnpackBitPath(readHeaderWord(ptr, mem.OffsetInheritanceBitPath))
		if result := target.BitPath.IsPrefixOf(path); result != class.Unknown {
			return result == class.True
		}
	}

	if rc.ImplementsInterface(target) || rc.IsSubclassOf(target) {
		return true
	}

	return class.Implements(class.InterfaceIDs(rc), target.ID)
}

func isInterfaceCheck(target *class.RuntimeClass) bool {
	const accInterface = 0x0200
	return target.View.AccessFlags.Has(accInterface)
}

func (d *Dispatcher) checkCast(ctx *Context) (stack.Resume, error) {
	ptr := uintptr(ctx.Values[0])
	if ptr == 0 {
		// null casts to anything (JVM8 checkcast semantics).
		return resumeAfter(), nil
	}

	if !d.resolveSubtype(ptr, ctx.Class) {
		return stack.Resume{}, &ClassCastException{Want: ctx.Class.View.Name}
	}

	return resumeAfter(), nil
}

func (d *Dispatcher) instanceOf(ctx *Context) (stack.Resume, error) {
	ptr := uintptr(ctx.Values[0])
	if ptr == 0 {
		ctx.Values = []uint64{0}
		return resumeAfter(), nil
	}

	result := uint64(0)
	if d.resolveSubtype(ptr, ctx.Class) {
		result = 1
	}

	ctx.Values = []uint64{result}

	return resumeAfter(), nil
}

// ClassCastException is raised when checkcast's target check fails (spec
// §7).
type ClassCastException struct{ Want string }

func (e *ClassCastException) Error() string {
	return "ClassCastException: " + e.Want
}
