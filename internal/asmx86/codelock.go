package asmx86

import (
	"fmt"
	"sync"

	"github.com/sparrowvm/core/internal/log"
)

// CodeLock is the single process-wide authority through which machine code
// is ever mutated after initial emission (spec §4.1 "All patches are
// performed under a process-wide code-editing lock"; §9 "Self-modifying
// code safety"). It is one of the three process-wide singletons in spec §9,
// initialized last in the documented order (class-ID allocator → intern
// pool → code lock).
//
// Modeled as an RAII-style guard whose release serializes the instruction
// stream, per original_source/another-jit-vm/src/code_modification.rs:
// acquire, mutate, release-and-cpuid. Go has no Drop, so the guard's Close
// plays that role; callers must defer it.
type CodeLock struct {
	mut sync.Mutex
	log *log.Logger
}

// NewCodeLock creates an unlocked code-editing lock.
func NewCodeLock() *CodeLock {
	return &CodeLock{log: log.DefaultLogger()}
}

// CodeModificationHandle is held while code is being patched; releasing it
// (Close) issues cpuid on every core to serialize the instruction stream,
// per spec §4.1 "on release, the lock holder issues cpuid to serialize the
// instruction stream on every core".
type CodeModificationHandle struct {
	lock *CodeLock
}

// Acquire locks the process-wide code-editing mutex and returns a handle.
// Callers must Close it exactly once.
func (c *CodeLock) Acquire() *CodeModificationHandle {
	c.mut.Lock()
	return &CodeModificationHandle{lock: c}
}

// Patch rewrites width bytes at code[offset:] with newBytes, after
// validating that the bytes currently there match expect — the "sanity
// check" spec §4.1 requires ("Patches that fail their sanity check ... are
// aborted"). A mismatch panics: this is an InternalError, a programming bug,
// not a recoverable condition.
func (h *CodeModificationHandle) Patch(code []byte, site PatchSite, expect, newBytes []byte) {
	region := code[site.Offset : site.Offset+site.Width]

	for i, b := range expect {
		if region[i] != b {
			panic(fmt.Errorf("asmx86: patch sanity check failed at offset %d: got %#x, want %#x",
				site.Offset+i, region[i], b))
		}
	}

	copy(region, newBytes)
}

// Close releases the lock. Per the architecture's single-writer,
// serializing-release discipline (spec §9), readers — JIT'd code running on
// other cores — never synchronize explicitly; issuing cpuid here is
// sufficient on x86-64 because it is a serializing instruction.
func (h *CodeModificationHandle) Close() {
	cpuidSerialize()
	h.lock.mut.Unlock()
}
