package compiler

import (
	"fmt"

	"github.com/sparrowvm/core/internal/ir"
)

// CompilerLabeler mints dense, method-unique ir.Label and ir.RestartPointID
// values from a bytecode index, so every branch target and restart point a
// method needs names exactly once regardless of how many instructions
// reference it. Grounded on internal/asm/parser.go's SymbolTable: a single
// table consulted both when defining a label's site and when referencing it
// ahead of definition.
type CompilerLabeler struct {
	methodID uint64
	restarts ir.RestartPointID
}

// NewLabeler creates a labeler scoped to one method's compilation.
func NewLabeler(methodID uint64) *CompilerLabeler {
	return &CompilerLabeler{methodID: methodID}
}

// AtBCI names the label for the instruction at bytecode index bci — used
// both to mark a branch target's site (LabelMark) and to reference it
// (BranchToLabel/Branch), so the same bci always produces the same Label.
func (l *CompilerLabeler) AtBCI(bci int) ir.Label {
	return ir.Label(fmt.Sprintf("m%d@%d", l.methodID, bci))
}

// NextRestartPoint mints a fresh restart point id for the current VMExit2,
// paired with the label its RestartPoint instruction binds.
func (l *CompilerLabeler) NextRestartPoint() (ir.RestartPointID, ir.Label) {
	l.restarts++
	return l.restarts, ir.Label(fmt.Sprintf("m%d$restart%d", l.methodID, l.restarts))
}
