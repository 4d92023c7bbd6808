package exitdispatch

import (
	"fmt"

	"github.com/sparrowvm/core/internal/class"
	"github.com/sparrowvm/core/internal/stack"
)

// resolveInvoke services ExitResolveInvoke, which a virtual/interface call
// site raises every time it executes. A (call site, receiver class) pair
// already in the lookup cache is answered from it; otherwise it looks up the
// receiver's vtable slot, compiles the target method if it hasn't been
// already, and populates the cache. The call site itself is not patched.
func (d *Dispatcher) resolveInvoke(ctx *Context) (stack.Resume, error) {
	receiverPtr := uintptr(ctx.Values[0])

	receiver, ok := d.classOfObject(receiverPtr)
	if !ok {
		return stack.Resume{}, fmt.Errorf("exitdispatch: resolveInvoke: unknown receiver at %#x", receiverPtr)
	}

	if target, ok := d.calls.Lookup(ctx.Site, receiver.ID); ok {
		ctx.Values = []uint64{uint64(target)}
		return resumeAtRestart(ctx), nil
	}

	shape, ok := d.dispatchShape(ctx, receiver)
	if !ok {
		return stack.Resume{}, fmt.Errorf("exitdispatch: resolveInvoke: no such method for %s", receiver.View.Name)
	}

	irID := d.compiler.IRMethodID(receiver, shape)

	cm, ok := d.compiledEntryPoint(irID)
	if !ok {
		methodID := uint64(receiver.ID)<<32 | uint64(irID)

		prog, err := d.compiler.Compile(receiver, shape, methodID)
		if err != nil {
			return stack.Resume{}, err
		}

		cm, err = d.code.Install(prog)
		if err != nil {
			return stack.Resume{}, err
		}
	}

	target, ok := d.code.EntryAddr(cm.IRMethodID)
	if !ok {
		return stack.Resume{}, fmt.Errorf("exitdispatch: resolveInvoke: %s has no mapped entry", receiver.View.Name)
	}

	d.calls.Populate(ctx.Site, receiver.ID, target)

	ctx.Values = []uint64{uint64(target)}

	return resumeAtRestart(ctx), nil
}

// dispatchShape resolves the vtable shape being invoked at ctx.Site. The
// call site already names the shape it was compiled against (invokevirtual
// always names a shape even though the actual override executed may belong
// to a subclass); resolveInvoke just confirms the receiver's MethodNumbering
// agrees it has a slot for it.
func (d *Dispatcher) dispatchShape(ctx *Context, receiver *class.RuntimeClass) (class.MethodShape, bool) {
	_, ok := receiver.Methods.Number(ctx.Shape)
	if !ok {
		return class.MethodShape{}, false
	}

	return ctx.Shape, true
}
