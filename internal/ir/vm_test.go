package ir_test

import (
	"testing"

	"github.com/sparrowvm/core/internal/asmx86"
	"github.com/sparrowvm/core/internal/ir"
)

func returnConstProgram(irMethodID, methodID uint64, value int32) *ir.Program {
	p := &ir.Program{MethodID: methodID, IRMethodID: irMethodID, FrameSize: 16}
	p.Append(
		ir.IRStart{IRMethodID: irMethodID, MethodID: methodID, FrameSize: 16},
		ir.Const32bit{Reg: asmx86.RAX, Value: value},
		ir.Return{ReturnVal: asmx86.RAX, HasValue: true, FrameSize: 16},
	)

	return p
}

func TestCodeCacheInstallAndLookup(t *testing.T) {
	c := ir.NewCodeCache()

	if _, err := c.Install(returnConstProgram(1, 1, 3)); err != nil {
		t.Fatalf("Install: %s", err)
	}

	cm, ok := c.Lookup(1)
	if !ok {
		t.Fatal("Lookup(1) = false, want true after Install")
	}

	if cm.MethodID != 1 {
		t.Errorf("MethodID = %d, want 1", cm.MethodID)
	}

	if _, ok := c.Lookup(2); ok {
		t.Error("Lookup(2) = true, want false for a never-installed id")
	}
}

func TestCodeCacheEntryAddr(t *testing.T) {
	c := ir.NewCodeCache()

	if _, err := c.Install(returnConstProgram(5, 5, 7)); err != nil {
		t.Fatalf("Install: %s", err)
	}

	addr, ok := c.EntryAddr(5)
	if !ok {
		t.Fatal("EntryAddr(5) = false, want true after Install")
	}

	if addr == 0 {
		t.Error("EntryAddr returned a zero address")
	}

	if _, ok := c.EntryAddr(6); ok {
		t.Error("EntryAddr(6) = true, want false for a never-installed id")
	}
}

func TestCodeCacheInstallReplacesExisting(t *testing.T) {
	c := ir.NewCodeCache()

	if _, err := c.Install(returnConstProgram(9, 1, 3)); err != nil {
		t.Fatalf("first Install: %s", err)
	}

	if _, err := c.Install(returnConstProgram(9, 2, 4)); err != nil {
		t.Fatalf("second Install: %s", err)
	}

	cm, ok := c.Lookup(9)
	if !ok {
		t.Fatal("Lookup(9) = false after reinstall")
	}

	if cm.MethodID != 2 {
		t.Errorf("MethodID = %d, want 2 (the recompiled version)", cm.MethodID)
	}
}

func TestRunMethodInvalidIDPanics(t *testing.T) {
	c := ir.NewCodeCache()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected RunMethod to panic on an unknown ir_method_id")
		}

		if _, ok := r.(*ir.ErrInvalidMethod); !ok {
			t.Errorf("panic value = %#v, want *ir.ErrInvalidMethod", r)
		}
	}()

	_, _ = c.RunMethod(999, nil, 0)
}
