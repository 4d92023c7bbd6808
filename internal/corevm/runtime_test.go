package corevm_test

import (
	"testing"

	"github.com/sparrowvm/core/internal/class"
	"github.com/sparrowvm/core/internal/config"
	"github.com/sparrowvm/core/internal/corevm"
	"github.com/sparrowvm/core/internal/ir"
)

func TestRunStaticComputesDemoResult(t *testing.T) {
	rt, err := corevm.New(corevm.DemoSource(), config.New(config.WithUnittestMode()))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	defer rt.Close()

	result, err := rt.RunStatic("Demo", "main", "()I")
	if err != nil {
		t.Fatalf("RunStatic: %s", err)
	}

	if result != 3 {
		t.Errorf("RunStatic = %d, want 3 (1+2)", result)
	}
}

func TestInstallDemoMethod(t *testing.T) {
	rt, err := corevm.New(corevm.DemoSource(), config.New(config.WithUnittestMode()))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	defer rt.Close()

	rc, err := rt.Classes.Get("Demo")
	if err != nil {
		t.Fatalf("Classes.Get: %s", err)
	}

	shape := class.MethodShape{Name: "main", Descriptor: "()I"}

	cm, err := rt.Install(rc, shape)
	if err != nil {
		t.Fatalf("Install: %s", err)
	}

	if len(cm.Code) == 0 {
		t.Error("Install produced no code")
	}

	if _, ok := rt.Code.Lookup(cm.IRMethodID); !ok {
		t.Error("installed method not found by Lookup")
	}
}

func TestRunStaticUnknownClass(t *testing.T) {
	rt, err := corevm.New(corevm.DemoSource(), config.New(config.WithUnittestMode()))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	defer rt.Close()

	if _, err := rt.RunStatic("NoSuchClass", "main", "()I"); err == nil {
		t.Fatal("expected an error running an unknown class")
	}
}

func TestTraceModeEmitsTraceExit(t *testing.T) {
	rt, err := corevm.New(corevm.DemoSource(), config.New(config.WithUnittestMode(), config.WithTracing()))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	defer rt.Close()

	rc, err := rt.Classes.Get("Demo")
	if err != nil {
		t.Fatalf("Classes.Get: %s", err)
	}

	shape := class.MethodShape{Name: "main", Descriptor: "()I"}
	methodID := uint64(rc.ID)<<32 | rt.Compiler.IRMethodID(rc, shape)

	prog, err := rt.Compiler.Compile(rc, shape, methodID)
	if err != nil {
		t.Fatalf("Compile: %s", err)
	}

	var traceExits int
	for _, instr := range prog.Instrs {
		if exit, ok := instr.(ir.VMExit2); ok && exit.Exit == ir.ExitTraceInstruction {
			traceExits++
		}
	}

	if traceExits == 0 {
		t.Error("trace mode compiled a program with no ExitTraceInstruction exits")
	}
}

func TestNoTraceModeEmitsNoTraceExit(t *testing.T) {
	rt, err := corevm.New(corevm.DemoSource(), config.New(config.WithUnittestMode()))
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	defer rt.Close()

	rc, err := rt.Classes.Get("Demo")
	if err != nil {
		t.Fatalf("Classes.Get: %s", err)
	}

	shape := class.MethodShape{Name: "main", Descriptor: "()I"}
	methodID := uint64(rc.ID)<<32 | rt.Compiler.IRMethodID(rc, shape)

	prog, err := rt.Compiler.Compile(rc, shape, methodID)
	if err != nil {
		t.Fatalf("Compile: %s", err)
	}

	for _, instr := range prog.Instrs {
		if exit, ok := instr.(ir.VMExit2); ok && exit.Exit == ir.ExitTraceInstruction {
			t.Error("compiled a trace exit with tracing disabled")
		}
	}
}
