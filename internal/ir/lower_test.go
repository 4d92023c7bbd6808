package ir_test

import (
	"testing"

	"github.com/sparrowvm/core/internal/asmx86"
	"github.com/sparrowvm/core/internal/ir"
)

func TestLowerSimpleProgram(t *testing.T) {
	p := &ir.Program{MethodID: 1, IRMethodID: 1, FrameSize: 16}
	p.Append(
		ir.IRStart{IRMethodID: 1, MethodID: 1, FrameSize: 16},
		ir.Const32bit{Reg: asmx86.RAX, Value: 1},
		ir.Const32bit{Reg: asmx86.RBX, Value: 2},
		ir.Arith{Op: ir.Add, Dst: asmx86.RAX, Src: asmx86.RBX, Size: asmx86.DWord},
		ir.Return{ReturnVal: asmx86.RAX, HasValue: true, FrameSize: 16},
	)

	cm, err := ir.Lower(p)
	if err != nil {
		t.Fatalf("Lower: %s", err)
	}

	if len(cm.Code) == 0 {
		t.Fatal("Lower produced no code")
	}

	if cm.IRMethodID != 1 || cm.MethodID != 1 || cm.FrameSize != 16 {
		t.Errorf("CompiledMethod metadata = %+v, want ir=1 method=1 frame=16", cm)
	}

	if len(cm.Labels) != 0 {
		t.Errorf("Labels = %v, want none bound", cm.Labels)
	}
}

func TestLowerBindsLabelsAndRestartPoints(t *testing.T) {
	p := &ir.Program{MethodID: 2, IRMethodID: 2, FrameSize: 8}
	p.Append(
		ir.IRStart{IRMethodID: 2, MethodID: 2, FrameSize: 8},
		ir.BranchToLabel{Target: "loop"},
		ir.LabelMark{Name: "loop"},
		ir.RestartPoint{ID: 1, Name: "resume"},
		ir.VMExit2{Exit: ir.ExitGetStatic, RestartAt: "resume"},
		ir.Return{FrameSize: 8},
	)

	cm, err := ir.Lower(p)
	if err != nil {
		t.Fatalf("Lower: %s", err)
	}

	if _, ok := cm.Labels["loop"]; !ok {
		t.Error("expected label \"loop\" to be bound")
	}

	if _, ok := cm.RestartPoints[1]; !ok {
		t.Error("expected restart point 1 to be recorded")
	}
}

func TestLowerUnresolvedLabelFails(t *testing.T) {
	p := &ir.Program{MethodID: 3, IRMethodID: 3, FrameSize: 8}
	p.Append(
		ir.IRStart{IRMethodID: 3, MethodID: 3, FrameSize: 8},
		ir.BranchToLabel{Target: "nowhere"},
		ir.Return{FrameSize: 8},
	)

	if _, err := ir.Lower(p); err == nil {
		t.Fatal("expected Lower to fail on an unresolved label")
	}
}

func TestProgramString(t *testing.T) {
	p := &ir.Program{MethodID: 1, IRMethodID: 1, FrameSize: 4}
	p.Append(ir.Return{FrameSize: 4})

	s := p.String()
	if s == "" {
		t.Error("Program.String() returned empty output")
	}
}
