package codedump

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sparrowvm/core/internal/log"
)

// Writer appends Records to a dump file as they're compiled. It is the
// store_generated_classes side: internal/corevm's Runtime.Install calls
// Append after each method it compiles and installs when dumping is enabled
// (internal/config.StoreGeneratedClasses). Methods the exit dispatcher
// compiles and installs itself are not recorded.
type Writer struct {
	f   *os.File
	log *log.Logger
}

// Create opens path for writing, truncating any existing dump, and writes
// the file header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("codedump: create: %w", err)
	}

	if err := binary.Write(f, binary.BigEndian, magic); err != nil {
		f.Close()
		return nil, fmt.Errorf("codedump: write header: %w", err)
	}

	if err := binary.Write(f, binary.BigEndian, version); err != nil {
		f.Close()
		return nil, fmt.Errorf("codedump: write header: %w", err)
	}

	return &Writer{f: f, log: log.DefaultLogger()}, nil
}

// Append writes one record: a fixed-width header carrying the ids, the frame
// size and the three lengths, then the class name, the method name and the
// raw code bytes, mirroring the Orig-then-Code shape of the teacher's
// ObjectCode.read.
func (w *Writer) Append(r Record) error {
	fields := []any{
		r.IRMethodID,
		r.MethodID,
		uint16(len(r.ClassName)),
		uint16(len(r.MethodName)),
		r.FrameSize,
		uint32(len(r.Code)),
	}

	for _, field := range fields {
		if err := binary.Write(w.f, binary.BigEndian, field); err != nil {
			return fmt.Errorf("codedump: append: %w", err)
		}
	}

	if _, err := io.WriteString(w.f, r.ClassName); err != nil {
		return fmt.Errorf("codedump: append: %w", err)
	}

	if _, err := io.WriteString(w.f, r.MethodName); err != nil {
		return fmt.Errorf("codedump: append: %w", err)
	}

	if _, err := w.f.Write(r.Code); err != nil {
		return fmt.Errorf("codedump: append: %w", err)
	}

	w.log.Debug("dumped compiled method", "IR", r.IRMethodID, "CLASS", r.ClassName, "METHOD", r.MethodName)

	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	return w.f.Close()
}
