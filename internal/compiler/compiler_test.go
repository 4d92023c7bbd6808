package compiler_test

import (
	"testing"

	"github.com/sparrowvm/core/internal/class"
	"github.com/sparrowvm/core/internal/classfile"
	"github.com/sparrowvm/core/internal/compiler"
	"github.com/sparrowvm/core/internal/ir"
)

func demoClass(code []byte, maxStack, maxLocals int) classfile.FixtureSource {
	return classfile.FixtureSource{
		"Demo": &classfile.ClassView{
			Name: "Demo",
			Methods: []classfile.MethodView{
				{
					Name:        "main",
					Descriptor:  "()I",
					AccessFlags: classfile.AccStatic | classfile.AccPublic,
					Code:        code,
					MaxStack:    maxStack,
					MaxLocals:   maxLocals,
				},
			},
		},
	}
}

func TestCompileAddReturn(t *testing.T) {
	code := []byte{0x04, 0x05, 0x60, 0xac} // iconst_1, iconst_2, iadd, ireturn
	source := demoClass(code, 2, 0)

	classes := class.NewTable(source)
	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	c := compiler.New(classes)
	shape := class.MethodShape{Name: "main", Descriptor: "()I"}

	p, err := c.Compile(rc, shape, 1)
	if err != nil {
		t.Fatalf("Compile: %s", err)
	}

	if len(p.Instrs) == 0 {
		t.Fatal("Compile produced an empty program")
	}

	last := p.Instrs[len(p.Instrs)-1]
	if _, ok := last.(ir.Return); !ok {
		t.Errorf("last instruction = %T, want ir.Return", last)
	}
}

func TestCompileUnknownMethodFails(t *testing.T) {
	source := demoClass([]byte{0xac}, 0, 0)
	classes := class.NewTable(source)
	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	c := compiler.New(classes)
	shape := class.MethodShape{Name: "doesNotExist", Descriptor: "()V"}

	if _, err := c.Compile(rc, shape, 1); err == nil {
		t.Fatal("expected Compile to fail for an undeclared method")
	}
}

func TestIRMethodIDStableAcrossCompiles(t *testing.T) {
	code := []byte{0xb1} // return
	source := demoClass(code, 0, 0)
	classes := class.NewTable(source)
	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	c := compiler.New(classes)
	shape := class.MethodShape{Name: "main", Descriptor: "()I"}

	id1 := c.IRMethodID(rc, shape)
	id2 := c.IRMethodID(rc, shape)

	if id1 != id2 {
		t.Errorf("IRMethodID returned %d then %d for the same (class, shape)", id1, id2)
	}
}

func TestTraceInsertsExitBeforeEveryInstruction(t *testing.T) {
	code := []byte{0x04, 0x05, 0x60, 0xac}
	source := demoClass(code, 2, 0)
	classes := class.NewTable(source)
	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	c := compiler.New(classes)
	c.Trace = true
	shape := class.MethodShape{Name: "main", Descriptor: "()I"}

	p, err := c.Compile(rc, shape, 1)
	if err != nil {
		t.Fatalf("Compile: %s", err)
	}

	var traceExits int
	for _, instr := range p.Instrs {
		if exit, ok := instr.(ir.VMExit2); ok && exit.Exit == ir.ExitTraceInstruction {
			traceExits++
		}
	}

	// One trace exit per bytecode instruction: iconst_1, iconst_2, iadd, ireturn.
	if traceExits != 4 {
		t.Errorf("traceExits = %d, want 4", traceExits)
	}
}

func TestCompileArrayStoreScalesIndex(t *testing.T) {
	// aload_0, iload_1, iload_2, iastore, return
	code := []byte{0x2a, 0x1b, 0x1c, 0x4f, 0xb1}
	source := demoClass(code, 3, 3)
	classes := class.NewTable(source)
	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	c := compiler.New(classes)
	shape := class.MethodShape{Name: "main", Descriptor: "()I"}

	p, err := c.Compile(rc, shape, 1)
	if err != nil {
		t.Fatalf("Compile: %s", err)
	}

	var sawShift, sawScaledStore bool
	for _, instr := range p.Instrs {
		if a, ok := instr.(ir.Arith); ok && a.Op == ir.ShiftLeftOp {
			sawShift = true
		}
		if s, ok := instr.(ir.Store); ok && s.Offset == 8 {
			sawScaledStore = true
		}
	}

	if !sawShift {
		t.Error("expected iastore to scale its index by the element size")
	}

	if !sawScaledStore {
		t.Error("expected iastore to store at the array's element-base offset")
	}
}

func TestCompileNewArrayCarriesElementSize(t *testing.T) {
	// iconst_1, newarray T_INT, pop, return
	code := []byte{0x04, 0xbc, 0x0a, 0x57, 0xb1}
	source := demoClass(code, 2, 0)
	classes := class.NewTable(source)
	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	c := compiler.New(classes)
	shape := class.MethodShape{Name: "main", Descriptor: "()I"}

	p, err := c.Compile(rc, shape, 1)
	if err != nil {
		t.Fatalf("Compile: %s", err)
	}

	var found bool
	for _, instr := range p.Instrs {
		exit, ok := instr.(ir.VMExit2)
		if !ok || exit.Exit != ir.ExitAllocateObjectArrayIntrinsic {
			continue
		}

		found = true

		if len(exit.Operands) != 2 || exit.Operands[1] != 4 {
			t.Errorf("newarray Operands = %v, want a 4-byte element size for T_INT", exit.Operands)
		}
	}

	if !found {
		t.Fatal("expected a newarray exit")
	}
}

func TestIfICmpGeCompilesGreaterOrEqualBranch(t *testing.T) {
	// iconst_0, iconst_1, if_icmpge -> bci 7, iconst_0, ireturn, iconst_1, ireturn
	code := []byte{0x03, 0x04, 0xa2, 0x00, 0x05, 0x03, 0xac, 0x04, 0xac}
	source := demoClass(code, 2, 0)
	classes := class.NewTable(source)
	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	c := compiler.New(classes)
	shape := class.MethodShape{Name: "main", Descriptor: "()I"}

	p, err := c.Compile(rc, shape, 1)
	if err != nil {
		t.Fatalf("Compile: %s", err)
	}

	var sawGe bool
	for _, instr := range p.Instrs {
		if b, ok := instr.(ir.Branch); ok && b.Cond == ir.CondGreaterOrEqual {
			sawGe = true
		}
	}

	if !sawGe {
		t.Error("expected if_icmpge to compile to a CondGreaterOrEqual branch")
	}
}

func TestCompileBranch(t *testing.T) {
	// iconst_0, ifeq +7 (to the iconst_0 at bci 8), iconst_1, goto +4 (to
	// the ireturn at bci 9), iconst_0, ireturn
	code := []byte{
		0x03,             // iconst_0
		0x99, 0x00, 0x07, // ifeq -> bci 8
		0x04,       // iconst_1 (bci 4)
		0xa7, 0x00, 0x04, // goto -> bci 9 (ireturn)
		0x03, // iconst_0 (bci 8)
		0xac, // ireturn (bci 9)
	}
	source := demoClass(code, 2, 0)
	classes := class.NewTable(source)
	rc, err := classes.Get("Demo")
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	c := compiler.New(classes)
	shape := class.MethodShape{Name: "main", Descriptor: "()I"}

	p, err := c.Compile(rc, shape, 1)
	if err != nil {
		t.Fatalf("Compile: %s", err)
	}

	var sawBranch bool
	for _, instr := range p.Instrs {
		switch instr.(type) {
		case ir.Branch, ir.BranchToLabel:
			sawBranch = true
		}
	}

	if !sawBranch {
		t.Error("expected at least one branch instruction in the compiled program")
	}
}
