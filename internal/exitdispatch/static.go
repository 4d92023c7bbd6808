package exitdispatch

import (
	"fmt"

	"github.com/sparrowvm/core/internal/class"
	"github.com/sparrowvm/core/internal/stack"
)

// initClassAndRecompile services ExitInitClassAndRecompile, an exit this
// module's compiler does not emit from any template: it ensures ctx.Class is
// Initialized, recompiling the method in place if initialization just
// happened for the first time (a freshly initialized class's static
// layout/slot numbers may differ from what the method was compiled
// against), then resumes at the restart point so the same bytecode
// instruction re-executes with the precondition now satisfied.
func (d *Dispatcher) initClassAndRecompile(ctx *Context) (stack.Resume, error) {
	wasInitialized := ctx.Class.Status() == class.StatusInitialized

	err := ctx.Class.EnsureInitialized(ctx.Goroutine, func() error {
		return nil // <clinit> body execution belongs to the compiler/interpreter layer invoking run_method recursively; stubbed here since classfile bytecode for <clinit> is supplied the same way any other method's is.
	})
	if err != nil {
		return stack.Resume{}, err
	}

	if !wasInitialized {
		methodID := uint64(ctx.Class.ID)<<32 | uint64(d.compiler.IRMethodID(ctx.Class, ctx.Shape))

		prog, err := d.compiler.Compile(ctx.Class, ctx.Shape, methodID)
		if err != nil {
			return stack.Resume{}, err
		}

		if _, err := d.code.Install(prog); err != nil {
			return stack.Resume{}, err
		}
	}

	return resumeAtRestart(ctx), nil
}

func (d *Dispatcher) getStatic(ctx *Context) (stack.Resume, error) {
	slot, ok := ctx.Class.Static.Number(ctx.Shape.Name)
	if !ok {
		return stack.Resume{}, fmt.Errorf("exitdispatch: getstatic: no such field %s.%s", ctx.Class.View.Name, ctx.Shape.Name)
	}

	ctx.Values = []uint64{ctx.Class.Static.Get(slot)}

	return resumeAtRestart(ctx), nil
}

func (d *Dispatcher) putStatic(ctx *Context) (stack.Resume, error) {
	slot, ok := ctx.Class.Static.Number(ctx.Shape.Name)
	if !ok {
		return stack.Resume{}, fmt.Errorf("exitdispatch: putstatic: no such field %s.%s", ctx.Class.View.Name, ctx.Shape.Name)
	}

	ctx.Class.Static.Put(slot, ctx.Values[0])

	return resumeAtRestart(ctx), nil
}
