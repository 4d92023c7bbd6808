package asmx86

import (
	"encoding/binary"
	"fmt"

	"github.com/sparrowvm/core/internal/log"
)

// Label names a code offset, minted dense and resolved at most once
// (spec §4.1 "Labels"). Forward references are tracked as pending patches
// until the label is Bind-ed.
type LabelName string

// ErrUnresolvedLabel is returned when Finish is called with labels still
// referenced but never bound; spec §4.1 calls this a fatal compilation
// error.
var ErrUnresolvedLabel = fmt.Errorf("asmx86: unresolved label")

// PatchKind distinguishes the two self-modifying-code categories the JIT
// performs after initial emission (spec §4.1 "Self-modifying patches").
type PatchKind uint8

const (
	// PatchCallTarget rewrites an 8-byte absolute address embedded in an
	// IRCall's movabs when the callee is (re)compiled.
	PatchCallTarget PatchKind = iota

	// PatchSkippableExit rewrites a conditional-branch opcode byte to
	// bypass a now-unnecessary guard.
	PatchSkippableExit
)

// PatchSite records one location future self-modification may target.
type PatchSite struct {
	Kind   PatchKind
	Offset int // byte offset within the function's code
	Width  int // number of bytes this patch rewrites
}

// Emitter assembles one function's machine code: a growable byte buffer,
// a label table, and the patch sites discovered along the way. It is not
// safe for concurrent use — one Emitter per in-progress compilation,
// matching the teacher's parser/assembler lifecycle (one per source file).
type Emitter struct {
	code    []byte
	labels  map[LabelName]int
	pending map[LabelName][]pendingRef
	patches []PatchSite

	log *log.Logger
}

type pendingRef struct {
	offset int // where to write, once the label resolves
	rel    bool
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		labels:  make(map[LabelName]int),
		pending: make(map[LabelName][]pendingRef),
		log:     log.DefaultLogger(),
	}
}

// Offset returns the current end of the emitted code, i.e. where the next
// byte will land.
func (e *Emitter) Offset() int { return len(e.code) }

// Emit appends raw bytes (the lowered encoding of one instruction).
func (e *Emitter) Emit(bytes ...byte) {
	e.code = append(e.code, bytes...)
}

// EmitUint32 appends a little-endian 32-bit immediate (e.g. a rel32 branch
// displacement placeholder, or a 32-bit constant operand).
func (e *Emitter) EmitUint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	e.code = append(e.code, buf[:]...)
}

// EmitUint64 appends a little-endian 64-bit immediate (e.g. a movabs
// target address).
func (e *Emitter) EmitUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	e.code = append(e.code, buf[:]...)
}

// Bind associates name with the current offset. Any pending forward
// references to name are patched immediately.
func (e *Emitter) Bind(name LabelName) {
	offset := e.Offset()
	e.labels[name] = offset

	for _, ref := range e.pending[name] {
		e.patchRel32(ref.offset, offset)
	}

	delete(e.pending, name)

	e.log.Debug("label bound", "LABEL", name, "OFFSET", offset)
}

// RefRel32 reserves 4 bytes at the current offset for a rel32 displacement
// to name, recording a pending patch if name hasn't been bound yet (a
// forward branch), or writing it immediately (a backward branch, spec §4.2
// "Backward branches and loops need no special handling").
func (e *Emitter) RefRel32(name LabelName) {
	at := e.Offset()
	e.EmitUint32(0) // placeholder

	if target, ok := e.labels[name]; ok {
		e.patchRel32(at, target)
		return
	}

	e.pending[name] = append(e.pending[name], pendingRef{offset: at, rel: true})
}

func (e *Emitter) patchRel32(siteOffset, targetOffset int) {
	// The displacement is relative to the end of the 4-byte field itself.
	rel := int32(targetOffset - (siteOffset + 4))
	binary.LittleEndian.PutUint32(e.code[siteOffset:siteOffset+4], uint32(rel))
}

// RecordPatchSite remembers a self-modification point for later use by the
// code lock's Patch call.
func (e *Emitter) RecordPatchSite(kind PatchKind, offset, width int) {
	e.patches = append(e.patches, PatchSite{Kind: kind, Offset: offset, Width: width})
}

// Bound returns every label bound so far, mapped to its code offset.
func (e *Emitter) Bound() map[LabelName]int {
	out := make(map[LabelName]int, len(e.labels))
	for name, off := range e.labels {
		out[name] = off
	}

	return out
}

// Finish validates that every referenced label was bound and returns the
// emitted code plus its patch sites. An unresolved label is a compilation
// error and is fatal per spec §4.1.
func (e *Emitter) Finish() ([]byte, []PatchSite, error) {
	if len(e.pending) > 0 {
		for name := range e.pending {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnresolvedLabel, name)
		}
	}

	return e.code, e.patches, nil
}
