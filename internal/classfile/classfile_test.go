package classfile_test

import (
	"errors"
	"testing"

	"github.com/sparrowvm/core/internal/classfile"
)

func TestFixtureSourceLoadFound(t *testing.T) {
	src := classfile.FixtureSource{
		"Demo": &classfile.ClassView{Name: "Demo"},
	}

	cv, err := src.Load("Demo")
	if err != nil {
		t.Fatalf("Load: %s", err)
	}

	if cv.Name != "Demo" {
		t.Errorf("Name = %q, want Demo", cv.Name)
	}
}

func TestFixtureSourceLoadNotFound(t *testing.T) {
	src := classfile.FixtureSource{}

	_, err := src.Load("NoSuchClass")
	if err == nil {
		t.Fatal("expected an error for a missing class")
	}

	var nfe *classfile.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}

	if nfe.Name != "NoSuchClass" {
		t.Errorf("NotFoundError.Name = %q, want NoSuchClass", nfe.Name)
	}
}

func TestAccessFlagsHas(t *testing.T) {
	flags := classfile.AccPublic | classfile.AccFinal

	if !flags.Has(classfile.AccPublic) {
		t.Error("Has(AccPublic) = false, want true")
	}

	if flags.Has(classfile.AccStatic) {
		t.Error("Has(AccStatic) = true, want false")
	}
}

func TestMethodViewPredicates(t *testing.T) {
	static := classfile.MethodView{AccessFlags: classfile.AccStatic}
	if !static.IsStatic() {
		t.Error("IsStatic() = false, want true")
	}
	if static.IsAbstract() {
		t.Error("IsAbstract() = true, want false")
	}

	abstract := classfile.MethodView{AccessFlags: classfile.AccAbstract}
	if !abstract.IsAbstract() {
		t.Error("IsAbstract() = false, want true")
	}
	if abstract.IsStatic() {
		t.Error("IsStatic() = true, want false")
	}
}
