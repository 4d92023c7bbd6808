package verifier_test

import (
	"testing"

	"github.com/sparrowvm/core/internal/classfile"
	"github.com/sparrowvm/core/internal/verifier"
)

func TestInferLocalsAllOneWord(t *testing.T) {
	method := classfile.MethodView{
		Code:      []byte{0x00, 0x00, 0x00},
		MaxLocals: 3,
		MaxStack:  2,
	}

	shapes := verifier.Infer(method)

	if len(shapes) != len(method.Code) {
		t.Fatalf("len(shapes) = %d, want %d (one per bytecode offset)", len(shapes), len(method.Code))
	}

	frame, ok := shapes[0]
	if !ok {
		t.Fatal("Infer did not report a frame for offset 0")
	}

	if len(frame.Locals) != 3 {
		t.Fatalf("len(Locals) = %d, want 3", len(frame.Locals))
	}

	for i, kind := range frame.Locals {
		if kind != verifier.OneWord {
			t.Errorf("Locals[%d] = %v, want OneWord", i, kind)
		}
	}
}

func TestInferEmptyMethod(t *testing.T) {
	shapes := verifier.Infer(classfile.MethodView{})

	if len(shapes) != 0 {
		t.Errorf("len(shapes) = %d, want 0 for an empty method", len(shapes))
	}
}
