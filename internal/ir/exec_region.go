package ir

import "fmt"

// executableRegion is a small RX-mapped copy of one compiled method's code,
// separate from internal/mem's heap regions: JIT code lives outside the
// object heap entirely (spec §4.4 lists only HEAP/METASPACE/STACK regions;
// code is host-managed memory the region allocator never touches).
type executableRegion struct {
	mapping []byte // RW view used only during construction/patching
	base    uintptr
	size    uintptr
}

// newExecutableRegion copies code into a freshly mapped RX page range and
// returns a handle to it. The mapping is RW while code is being written and
// flipped to RX before callManaged ever sees it, so W^X holds at every point
// other code outside this function could run on the same core.
func newExecutableRegion(code []byte) (*executableRegion, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("ir: cannot map empty method body")
	}

	mapping, base, err := mapExecutable(code)
	if err != nil {
		return nil, err
	}

	return &executableRegion{mapping: mapping, base: base, size: uintptr(len(mapping))}, nil
}

// addr returns the region's entry address, i.e. where IRStart begins.
func (r *executableRegion) addr() uintptr { return r.base }

// Close releases the backing mapping. The code cache never calls this for a
// method a managed frame might still return into; it exists for methods
// superseded by recompilation once the caller has confirmed no frame
// references the old code.
func (r *executableRegion) Close() error {
	return unmapExecutable(r.mapping)
}
