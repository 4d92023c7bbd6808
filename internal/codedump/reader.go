package codedump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// File is a read-only, memory-mapped view of a dump file, grounded on
// saferwall-pe's pe.File: map the whole thing once with mmap.Map(RDONLY) and
// parse records out of the mapping rather than issuing read syscalls per
// record.
type File struct {
	f    *os.File
	data mmap.MMap
}

// Open memory-maps path for reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codedump: open: %w", err)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("codedump: mmap: %w", err)
	}

	return &File{f: f, data: data}, nil
}

// Close unmaps the file and releases the descriptor.
func (d *File) Close() error {
	if err := d.data.Unmap(); err != nil {
		d.f.Close()
		return fmt.Errorf("codedump: unmap: %w", err)
	}

	return d.f.Close()
}

// Records parses every Record in the mapping in file order.
func (d *File) Records() ([]Record, error) {
	r := bytes.NewReader(d.data)

	var (
		gotMagic   uint32
		gotVersion uint16
	)

	if err := binary.Read(r, binary.BigEndian, &gotMagic); err != nil {
		return nil, fmt.Errorf("codedump: read header: %w", err)
	}

	if gotMagic != magic {
		return nil, fmt.Errorf("codedump: bad magic %#x", gotMagic)
	}

	if err := binary.Read(r, binary.BigEndian, &gotVersion); err != nil {
		return nil, fmt.Errorf("codedump: read header: %w", err)
	}

	if gotVersion != version {
		return nil, fmt.Errorf("codedump: unsupported version %d", gotVersion)
	}

	var records []Record

	for r.Len() > 0 {
		rec, err := readRecord(r)
		if err != nil {
			return records, err
		}

		records = append(records, rec)
	}

	return records, nil
}

func readRecord(r *bytes.Reader) (Record, error) {
	var (
		irMethodID, methodID        uint64
		classNameLen, methodNameLen uint16
		frameSize                   int32
		codeLen                     uint32
	)

	for _, field := range []any{&irMethodID, &methodID, &classNameLen, &methodNameLen, &frameSize, &codeLen} {
		if err := binary.Read(r, binary.BigEndian, field); err != nil {
			return Record{}, fmt.Errorf("codedump: read record: %w", err)
		}
	}

	className := make([]byte, classNameLen)
	if _, err := io.ReadFull(r, className); err != nil {
		return Record{}, fmt.Errorf("codedump: read record: %w", err)
	}

	methodName := make([]byte, methodNameLen)
	if _, err := io.ReadFull(r, methodName); err != nil {
		return Record{}, fmt.Errorf("codedump: read record: %w", err)
	}

	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return Record{}, fmt.Errorf("codedump: read record: %w", err)
	}

	return Record{
		IRMethodID: irMethodID,
		MethodID:   methodID,
		ClassName:  string(className),
		MethodName: string(methodName),
		FrameSize:  frameSize,
		Code:       code,
	}, nil
}
