package class

import (
	"fmt"
	"sync"

	"github.com/sparrowvm/core/internal/classfile"
	"github.com/sparrowvm/core/internal/log"
)

// Table is the process-wide class table: it owns the IDTable, the
// ClassID→*RuntimeClass map, and the classfile Source it consults on first
// reference. It is one of the process-wide singletons named in spec §9
// ("Global mutable state"): this table owns the class-ID allocator, and the
// code-editing lock lives in internal/asmx86. This module has no string
// intern pool.
type Table struct {
	ids    *IDTable
	source classfile.Source

	mut     sync.RWMutex
	classes map[ClassID]*RuntimeClass
	byName  map[string]*RuntimeClass

	log *log.Logger
}

// NewTable creates a class table backed by source.
func NewTable(source classfile.Source) *Table {
	return &Table{
		ids:     NewIDTable(),
		source:  source,
		classes: make(map[ClassID]*RuntimeClass),
		byName:  make(map[string]*RuntimeClass),
		log:     log.DefaultLogger(),
	}
}

// Get returns the RuntimeClass for the already-Prepared class name, loading
// and preparing it (and transitively its superclass and interfaces) if this
// is the first reference. It never returns a class less than Prepared.
func (t *Table) Get(name string) (*RuntimeClass, error) {
	t.mut.RLock()
	if rc, ok := t.byName[name]; ok {
		t.mut.RUnlock()
		return rc, nil
	}
	t.mut.RUnlock()

	view, err := t.source.Load(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrClassNotFound, name, err)
	}

	var parent *RuntimeClass
	if view.SuperName != "" {
		parent, err = t.Get(view.SuperName)
		if err != nil {
			return nil, err
		}
	}

	ifaces := make([]*RuntimeClass, 0, len(view.Interfaces))
	for _, iname := range view.Interfaces {
		iface, err := t.Get(iname)
		if err != nil {
			return nil, err
		}

		ifaces = append(ifaces, iface)
	}

	t.mut.Lock()
	defer t.mut.Unlock()

	if rc, ok := t.byName[name]; ok {
		// Lost a race with another goroutine preparing the same class.
		return rc, nil
	}

	id := t.ids.Intern(TypeDescriptor{Kind: KindReference, ClassName: name})
	rc := newRuntimeClass(id, view, parent, ifaces)

	layout := computeObjectLayout(parent, view)
	methods := computeMethodNumbering(parent, view)
	static := newStaticStorage(view)
	path := computeBitPath(parent, ifaces)

	rc.link(layout, methods, static, path)

	t.classes[id] = rc
	t.byName[name] = rc

	t.log.Info("class prepared", "CLASS", name, "ID", id)

	return rc, nil
}

// ByID returns the class for a previously-minted id, or false if none is
// registered yet under that id.
func (t *Table) ByID(id ClassID) (*RuntimeClass, bool) {
	t.mut.RLock()
	defer t.mut.RUnlock()

	rc, ok := t.classes[id]

	return rc, ok
}

// IDs exposes the table's underlying id allocator, for components (the
// compiler's constant resolution, the array layout code) that need to
// intern array/primitive descriptors without a backing RuntimeClass.
func (t *Table) IDs() *IDTable { return t.ids }

// Classes returns every class prepared so far, for introspection (the CLI's
// `classes` subcommand) rather than anything on the execution path.
func (t *Table) Classes() []*RuntimeClass {
	t.mut.RLock()
	defer t.mut.RUnlock()

	classes := make([]*RuntimeClass, 0, len(t.classes))
	for _, rc := range t.classes {
		classes = append(classes, rc)
	}

	return classes
}
