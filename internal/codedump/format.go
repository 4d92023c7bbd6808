// Package codedump implements the debug dump file the compiler can be
// configured to emit (spec §9, supplemented from
// original_source/slow-interpreter/src/options.rs's store_generated_classes
// flag): one record per installed compiled method, holding its IR method id,
// class/method name, and the emitted machine code, so a JIT'd method can be
// inspected after the fact without attaching a debugger.
//
// The on-disk format is a flat sequence of length-prefixed records, written
// the way the teacher's internal/vm/loader.go reads/writes its object-code
// format with encoding/binary: a fixed header, then Code.
package codedump

import "fmt"

// magic identifies a dump file; version allows the record layout to change
// without silently misreading an old file.
const (
	magic   = uint32(0x4a56_4d44) // "JVMD"
	version = uint16(1)
)

// Record is one compiled method's debug entry.
type Record struct {
	IRMethodID uint64
	MethodID   uint64
	ClassName  string
	MethodName string
	FrameSize  int32
	Code       []byte
}

func (r Record) String() string {
	return fmt.Sprintf("%s.%s ir=%d bytes=%d", r.ClassName, r.MethodName, r.IRMethodID, len(r.Code))
}
