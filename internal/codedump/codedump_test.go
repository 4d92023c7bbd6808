package codedump_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sparrowvm/core/internal/codedump"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated-classes.dump")

	w, err := codedump.Create(path)
	if err != nil {
		t.Fatalf("Create: %s", err)
	}

	want := []codedump.Record{
		{IRMethodID: 1, MethodID: 0x10001, ClassName: "Main", MethodName: "main", FrameSize: 64, Code: []byte{0x90, 0xc3}},
		{IRMethodID: 2, MethodID: 0x10002, ClassName: "Main", MethodName: "<init>", FrameSize: 32, Code: []byte{}},
	}

	for _, r := range want {
		if err := w.Append(r); err != nil {
			t.Fatalf("Append: %s", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}

	f, err := codedump.Open(path)
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer f.Close()

	got, err := f.Records()
	if err != nil {
		t.Fatalf("Records: %s", err)
	}

	if len(got) != len(want) {
		t.Fatalf("Records: got %d records, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i].IRMethodID != want[i].IRMethodID ||
			got[i].MethodID != want[i].MethodID ||
			got[i].ClassName != want[i].ClassName ||
			got[i].MethodName != want[i].MethodName ||
			got[i].FrameSize != want[i].FrameSize ||
			string(got[i].Code) != string(want[i].Code) {
			t.Errorf("record %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := codedump.Open(filepath.Join(t.TempDir(), "does-not-exist.dump"))
	if err == nil {
		t.Fatal("expected an error opening a missing dump file")
	}
}

func TestOpenBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dump")
	if err := os.WriteFile(path, []byte("not a dump file"), 0o644); err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	f, err := codedump.Open(path)
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer f.Close()

	if _, err := f.Records(); err == nil {
		t.Fatal("expected bad-magic error reading records")
	}
}
