package class

import "sync"

// InterfaceIDs is the per-object "interface ID list" the spec's object
// header points at (spec §3 object header,
// interface_ids_list_ptr/interface_ids_list_len): the dense ClassIDs of
// every interface a class (and its ancestors) implement, used by
// invokeinterface and instanceof when the bit-path check returns Unknown.
func InterfaceIDs(rc *RuntimeClass) []ClassID {
	seen := make(map[ClassID]bool)
	var ids []ClassID

	var walk func(c *RuntimeClass)
	walk = func(c *RuntimeClass) {
		if c == nil {
			return
		}

		for _, i := range c.Interfaces {
			if !seen[i.ID] {
				seen[i.ID] = true
				ids = append(ids, i.ID)
			}

			walk(i)
		}

		walk(c.Parent)
	}

	walk(rc)

	return ids
}

// Implements reports whether ids contains target, a linear scan matching
// the "interface ID list" the spec describes (small in practice: most
// classes implement a handful of interfaces).
func Implements(ids []ClassID, target ClassID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}

	return false
}

// CallSite identifies one invokeinterface/invokevirtual bytecode location,
// for keying the lookup cache below.
type CallSite struct {
	MethodID uint64 // the id of the method containing the call site
	BCI      int    // bytecode index of the call instruction
}

// cacheEntry is one slot of the direct-mapped interface dispatch cache.
type cacheEntry struct {
	site     CallSite
	receiver ClassID
	target   uintptr // resolved entry point of the callee's compiled code
	valid    bool
}

// LookupCache accelerates repeated invokeinterface dispatch at a single call
// site for a single receiver class, avoiding the full interface-ID-list scan
// plus vtable lookup on every call (spec §4.2 "a lookup cache accelerates
// repeated calls"; supplemented from
// original_source/interface-vtable/src/lookup_cache.rs). It is a small
// direct-mapped cache: a miss simply evicts whatever was there.
type LookupCache struct {
	mut     sync.Mutex
	entries []cacheEntry
}

// NewLookupCache creates a cache with size slots.
func NewLookupCache(size int) *LookupCache {
	return &LookupCache{entries: make([]cacheEntry, size)}
}

func (c *LookupCache) slot(site CallSite) int {
	h := uint64(site.MethodID)*31 + uint64(site.BCI)
	return int(h % uint64(len(c.entries)))
}

// Lookup returns the cached target address for (site, receiver), or false on
// a miss (wrong receiver, different call site hashed to the same slot, or
// never populated).
func (c *LookupCache) Lookup(site CallSite, receiver ClassID) (uintptr, bool) {
	c.mut.Lock()
	defer c.mut.Unlock()

	e := c.entries[c.slot(site)]
	if e.valid && e.site == site && e.receiver == receiver {
		return e.target, true
	}

	return 0, false
}

// Populate records the resolved target for (site, receiver), evicting
// whatever previously occupied the slot.
func (c *LookupCache) Populate(site CallSite, receiver ClassID, target uintptr) {
	c.mut.Lock()
	defer c.mut.Unlock()

	c.entries[c.slot(site)] = cacheEntry{site: site, receiver: receiver, target: target, valid: true}
}
