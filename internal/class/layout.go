package class

import "github.com/sparrowvm/core/internal/classfile"

// HeaderSize is the fixed size, in bytes, of an object header (spec §3
// "Object header"): class_pointer_cache, inheritance_bit_path_ptr,
// interface_ids_list_ptr, interface_ids_list_len, region_metadata_ptr — five
// machine words.
const HeaderSize = 5 * 8

// HiddenField names the well-known hidden fields a class mirror object
// carries (spec §3 "Optionally, per-class hidden fields").
type HiddenField uint8

const (
	HiddenComponentType HiddenField = iota
	HiddenCPDTypeID
	HiddenIsArray
)

// ObjectLayout is the ordered assignment of fields to field numbers for one
// class. Parent fields occupy the low numbers; this class's own fields
// follow in declaration order. No interned-name ordering is applied.
type ObjectLayout struct {
	// Numbers maps a field's declared name to its dense field number.
	Numbers map[string]int

	// Order lists field names in field-number order, for reflection-style
	// enumeration (spec §8 "Classfile → ClassView → object layout →
	// reflection's getDeclaredFields returns fields in declaration order").
	Order []string

	// Hidden maps a hidden field kind to its field number, for classes that
	// carry one (notably java/lang/Class mirrors).
	Hidden map[HiddenField]int
}

// Offset returns the byte offset of fieldNumber within an object, i.e. the
// address to add to the object pointer to reach the field's 64-bit slot
// (spec §8 testable property: offset == field_number*8 + header_size).
func (ObjectLayout) Offset(fieldNumber int) int {
	return fieldNumber*8 + HeaderSize
}

// FieldNumber returns the field number for name and whether it exists.
func (l ObjectLayout) FieldNumber(name string) (int, bool) {
	n, ok := l.Numbers[name]
	return n, ok
}

// computeObjectLayout builds a class's ObjectLayout from its parent's
// (inherited field numbers are never renumbered, spec §3 invariant) and its
// own declared instance fields, in declaration order.
func computeObjectLayout(parent *RuntimeClass, view *classfile.ClassView) ObjectLayout {
	layout := ObjectLayout{
		Numbers: make(map[string]int),
		Hidden:  make(map[HiddenField]int),
	}

	next := 0

	if parent != nil {
		for name, n := range parent.Layout.Numbers {
			layout.Numbers[name] = n
		}

		layout.Order = append(layout.Order, parent.Layout.Order...)

		for h, n := range parent.Layout.Hidden {
			layout.Hidden[h] = n
		}

		next = len(parent.Layout.Order) + len(parent.Layout.Hidden)
	}

	for _, f := range view.Fields {
		if f.AccessFlags.Has(classfile.AccStatic) {
			continue
		}

		layout.Numbers[f.Name] = next
		layout.Order = append(layout.Order, f.Name)
		next++
	}

	if view.Name == "java/lang/Class" {
		for _, h := range []HiddenField{HiddenComponentType, HiddenCPDTypeID, HiddenIsArray} {
			layout.Hidden[h] = next
			next++
		}
	}

	return layout
}
