package ir

import (
	"fmt"

	"github.com/sparrowvm/core/internal/asmx86"
	"github.com/sparrowvm/core/internal/log"
)

// Program is a linear IR program for one method: an ordered instruction
// list with embedded label marks and restart points, as produced by
// internal/compiler and consumed by Lower.
type Program struct {
	MethodID   uint64
	IRMethodID uint64
	FrameSize  int32
	Instrs     []Instr
}

func (p *Program) String() string {
	s := fmt.Sprintf("Program(method=%d, ir=%d, frame=%d)\n", p.MethodID, p.IRMethodID, p.FrameSize)
	for _, i := range p.Instrs {
		s += "  " + i.String() + "\n"
	}

	return s
}

// Append adds instructions to the program in order.
func (p *Program) Append(instrs ...Instr) {
	p.Instrs = append(p.Instrs, instrs...)
}

// CompiledMethod is the result of lowering a Program: the emitted machine
// code plus the bookkeeping the dispatcher and recompiler need.
type CompiledMethod struct {
	IRMethodID uint64
	MethodID   uint64
	FrameSize  int32
	Code       []byte
	EntryPoint int // byte offset of IRStart within Code; normally 0

	// Labels maps every label bound by a LabelMark or RestartPoint to its
	// code offset, so the dispatcher can translate a RestartPoint name into
	// a resume address. Lowering's own synthetic labels are not included.
	Labels map[Label]int

	// RestartPoints maps a restart point id to its code offset.
	RestartPoints map[RestartPointID]int

	// Patches are the self-modification sites discovered during emission
	// (spec §4.1 "Self-modifying patches").
	Patches []asmx86.PatchSite

	log *log.Logger
}

func (cm *CompiledMethod) String() string {
	return fmt.Sprintf("CompiledMethod(ir=%d, method=%d, %d bytes, %d labels, %d restart points)",
		cm.IRMethodID, cm.MethodID, len(cm.Code), len(cm.Labels), len(cm.RestartPoints))
}
