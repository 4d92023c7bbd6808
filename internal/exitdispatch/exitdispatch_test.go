package exitdispatch_test

import (
	"testing"

	"github.com/sparrowvm/core/internal/class"
	"github.com/sparrowvm/core/internal/classfile"
	"github.com/sparrowvm/core/internal/compiler"
	"github.com/sparrowvm/core/internal/exitdispatch"
	"github.com/sparrowvm/core/internal/ir"
	"github.com/sparrowvm/core/internal/mem"
)

func newDispatcher(t *testing.T, source classfile.FixtureSource) (*exitdispatch.Dispatcher, *class.Table, *mem.Regions) {
	t.Helper()

	regions, err := mem.NewRegions()
	if err != nil {
		t.Fatalf("NewRegions: %s", err)
	}
	t.Cleanup(func() { regions.Close() })

	classes := class.NewTable(source)
	code := ir.NewCodeCache()
	comp := compiler.New(classes)

	return exitdispatch.New(classes, regions, code, comp), classes, regions
}

func demoSource() classfile.FixtureSource {
	return classfile.FixtureSource{
		"Demo": &classfile.ClassView{
			Name: "Demo",
			Fields: []classfile.FieldView{
				{Name: "counter", Descriptor: "I", AccessFlags: classfile.AccStatic},
			},
		},
	}
}

func TestGetPutStaticRoundTrip(t *testing.T) {
	d, classes, _ := newDispatcher(t, demoSource())

	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	ctx := &exitdispatch.Context{
		Exit:  ir.VMExit2{Exit: ir.ExitPutStatic},
		Class: rc,
		Shape: class.MethodShape{Name: "counter"},
		Values: []uint64{42},
	}

	if _, err := d.Handle(ctx); err != nil {
		t.Fatalf("Handle(putstatic): %s", err)
	}

	ctx = &exitdispatch.Context{
		Exit:  ir.VMExit2{Exit: ir.ExitGetStatic},
		Class: rc,
		Shape: class.MethodShape{Name: "counter"},
	}

	if _, err := d.Handle(ctx); err != nil {
		t.Fatalf("Handle(getstatic): %s", err)
	}

	if len(ctx.Values) != 1 || ctx.Values[0] != 42 {
		t.Errorf("getstatic returned %v, want [42]", ctx.Values)
	}
}

func TestGetStaticUnknownFieldErrors(t *testing.T) {
	d, classes, _ := newDispatcher(t, demoSource())

	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	ctx := &exitdispatch.Context{
		Exit:  ir.VMExit2{Exit: ir.ExitGetStatic},
		Class: rc,
		Shape: class.MethodShape{Name: "noSuchField"},
	}

	if _, err := d.Handle(ctx); err == nil {
		t.Fatal("expected an error for an unknown static field")
	}
}

func TestAllocateObjectReturnsPointer(t *testing.T) {
	d, classes, _ := newDispatcher(t, demoSource())

	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	ctx := &exitdispatch.Context{
		Exit:  ir.VMExit2{Exit: ir.ExitAllocateObject},
		Class: rc,
	}

	if _, err := d.Handle(ctx); err != nil {
		t.Fatalf("Handle(allocate): %s", err)
	}

	if len(ctx.Values) != 1 || ctx.Values[0] == 0 {
		t.Fatalf("allocate returned %v, want a non-zero pointer", ctx.Values)
	}
}

func TestMonitorEnterExitReentrant(t *testing.T) {
	d, classes, _ := newDispatcher(t, demoSource())

	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	obj := uint64(0x1000)

	for i := 0; i < 2; i++ {
		ctx := &exitdispatch.Context{
			Exit:      ir.VMExit2{Exit: ir.ExitMonitorEnter},
			Class:     rc,
			Goroutine: 1,
			Values:    []uint64{obj},
		}

		if _, err := d.Handle(ctx); err != nil {
			t.Fatalf("Handle(monitorenter) #%d: %s", i, err)
		}
	}

	for i := 0; i < 2; i++ {
		ctx := &exitdispatch.Context{
			Exit:      ir.VMExit2{Exit: ir.ExitMonitorExit},
			Class:     rc,
			Goroutine: 1,
			Values:    []uint64{obj},
		}

		if _, err := d.Handle(ctx); err != nil {
			t.Fatalf("Handle(monitorexit) #%d: %s", i, err)
		}
	}
}

func TestMonitorExitByNonOwnerErrors(t *testing.T) {
	d, classes, _ := newDispatcher(t, demoSource())

	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	obj := uint64(0x2000)

	if _, err := d.Handle(&exitdispatch.Context{
		Exit:      ir.VMExit2{Exit: ir.ExitMonitorExit},
		Class:     rc,
		Goroutine: 1,
		Values:    []uint64{obj},
	}); err == nil {
		t.Fatal("expected monitorexit on an unheld monitor to error")
	} else if _, ok := err.(*exitdispatch.IllegalMonitorStateException); !ok {
		t.Errorf("err = %T, want *exitdispatch.IllegalMonitorStateException", err)
	}

	if _, err := d.Handle(&exitdispatch.Context{
		Exit:      ir.VMExit2{Exit: ir.ExitMonitorEnter},
		Class:     rc,
		Goroutine: 1,
		Values:    []uint64{obj},
	}); err != nil {
		t.Fatalf("Handle(monitorenter): %s", err)
	}

	if _, err := d.Handle(&exitdispatch.Context{
		Exit:      ir.VMExit2{Exit: ir.ExitMonitorExit},
		Class:     rc,
		Goroutine: 2,
		Values:    []uint64{obj},
	}); err == nil {
		t.Fatal("expected monitorexit by a goroutine that doesn't own the monitor to error")
	}
}

func TestNPEAndBoundsExitsReturnErrors(t *testing.T) {
	d, _, _ := newDispatcher(t, demoSource())

	if _, err := d.Handle(&exitdispatch.Context{Exit: ir.VMExit2{Exit: ir.ExitNPE}}); err == nil {
		t.Error("expected a NullPointerException")
	}

	ctx := &exitdispatch.Context{
		Exit:   ir.VMExit2{Exit: ir.ExitArrayBoundsCheck},
		Values: []uint64{5, 3},
	}

	_, err := d.Handle(ctx)
	if err == nil {
		t.Fatal("expected an ArrayIndexOutOfBoundsException")
	}

	oob, ok := err.(*exitdispatch.ArrayIndexOutOfBoundsException)
	if !ok {
		t.Fatalf("error type = %T, want *exitdispatch.ArrayIndexOutOfBoundsException", err)
	}

	if oob.Index != 5 || oob.Length != 3 {
		t.Errorf("oob = %+v, want index=5 length=3", oob)
	}
}

func TestInstanceOfNullIsFalse(t *testing.T) {
	d, classes, _ := newDispatcher(t, demoSource())

	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	ctx := &exitdispatch.Context{
		Exit:   ir.VMExit2{Exit: ir.ExitInstanceOf},
		Class:  rc,
		Values: []uint64{0},
	}

	if _, err := d.Handle(ctx); err != nil {
		t.Fatalf("Handle(instanceof): %s", err)
	}

	if len(ctx.Values) != 1 || ctx.Values[0] != 0 {
		t.Errorf("instanceof on null = %v, want [0]", ctx.Values)
	}
}

func TestUnhandledExitKindErrors(t *testing.T) {
	d, _, _ := newDispatcher(t, demoSource())

	if _, err := d.Handle(&exitdispatch.Context{Exit: ir.VMExit2{Exit: ir.ExitKind(255)}}); err == nil {
		t.Fatal("expected an error for an unknown exit kind")
	}
}
