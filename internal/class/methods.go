package class

import "github.com/sparrowvm/core/internal/classfile"

// MethodShape identifies a method by its JVM shape: name plus descriptor.
// Two methods with the same shape in a subclass/superclass pair are the
// same vtable slot (an override); different shapes are different slots.
type MethodShape struct {
	Name       string
	Descriptor string
}

// MethodNumbering is a stable per-class mapping from MethodShape to a dense
// method number: a vtable. Inherited methods keep their parent's number;
// overrides re-use it; new methods append (spec §3 "MethodNumbering").
type MethodNumbering struct {
	numbers map[MethodShape]int
	views   map[MethodShape]classfile.MethodView
	count   int
}

// Number returns the method number for shape and whether this class (or an
// ancestor) declares it.
func (m MethodNumbering) Number(shape MethodShape) (int, bool) {
	n, ok := m.numbers[shape]
	return n, ok
}

// View returns the MethodView providing the implementation for shape as
// known to this class (the view may belong to an ancestor, for inherited,
// non-overridden methods).
func (m MethodNumbering) View(shape MethodShape) (classfile.MethodView, bool) {
	v, ok := m.views[shape]
	return v, ok
}

// Count is the vtable size: one past the highest assigned method number.
func (m MethodNumbering) Count() int { return m.count }

// computeMethodNumbering builds a class's vtable: it starts from the
// parent's (every inherited MethodShape keeps its parent's number), then
// walks this class's own declared methods, reusing the shape's number if
// it overrides a parent method, or appending a fresh number otherwise (spec
// §8 "Method-numbering monotonicity").
func computeMethodNumbering(parent *RuntimeClass, view *classfile.ClassView) MethodNumbering {
	mn := MethodNumbering{
		numbers: make(map[MethodShape]int),
		views:   make(map[MethodShape]classfile.MethodView),
	}

	if parent != nil {
		for shape, n := range parent.Methods.numbers {
			mn.numbers[shape] = n
		}

		for shape, v := range parent.Methods.views {
			mn.views[shape] = v
		}

		mn.count = parent.Methods.count
	}

	for _, m := range view.Methods {
		shape := MethodShape{Name: m.Name, Descriptor: m.Descriptor}

		if _, inherited := mn.numbers[shape]; !inherited {
			mn.numbers[shape] = mn.count
			mn.count++
		}

		// Always install this class's own view, overriding any inherited one:
		// even when the number is reused, the implementation dispatched to
		// changes.
		mn.views[shape] = m
	}

	return mn
}
