// Package verifier defines the collaborator contract for bytecode
// verification (spec §1, §6). Verifying stack-map consistency is out of
// scope for the execution core; the core only consumes the per-offset stack
// shapes a verifier infers. This package declares that shape and provides a
// trivial Infer implementation driving the compiler's tests.
package verifier

import "github.com/sparrowvm/core/internal/classfile"

// SlotKind classifies one operand-stack or local-variable slot for the
// purposes of frame layout: category-2 values (long, double) occupy two
// slots and are tagged OneWord followed by Top in the verifier's output,
// matching JVM 8's "top" placeholder convention for the second half.
type SlotKind uint8

const (
	Top SlotKind = iota
	OneWord
	TwoWord
)

// Frame is the simplified-VType per-instruction frame shape a verifier
// reports when it hasn't computed a full stack-map frame (spec §6
// "Verifier (collaborator contract)").
type Frame struct {
	OperandStack []SlotKind
	Locals       []SlotKind
}

// Shapes is the per-offset inference result for one method: Shapes[pc] is
// the frame in effect immediately before executing the instruction at pc.
type Shapes map[int]Frame

// Infer computes (or, for this collaborator stub, fabricates) the per-offset
// stack shapes for a method. A real verifier performs full data-flow
// analysis; this implementation derives a plausible shape from MaxStack and
// MaxLocals alone, sufficient to drive frame-offset computation in tests
// without needing a real verifier.
func Infer(method classfile.MethodView) Shapes {
	shapes := make(Shapes, len(method.Code))

	locals := make([]SlotKind, method.MaxLocals)
	for i := range locals {
		locals[i] = OneWord
	}

	// Without real data-flow we cannot know the operand-stack depth at each
	// offset; callers that need precise depths (the template compiler) track
	// depth themselves as they walk the bytecode and only consult Shapes for
	// the locals' slot kinds.
	base := Frame{Locals: locals}

	for pc := 0; pc < len(method.Code); pc++ {
		shapes[pc] = base
	}

	return shapes
}
