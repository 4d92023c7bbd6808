package mem_test

import (
	"testing"

	"github.com/sparrowvm/core/internal/class"
	"github.com/sparrowvm/core/internal/mem"
)

// mem.HeaderSize is deliberately duplicated from class.HeaderSize to avoid
// an import cycle (see the comment on mem.HeaderSize); this test is the
// tripwire that catches the two drifting apart.
func TestHeaderSizeMatchesClassPackage(t *testing.T) {
	if mem.HeaderSize != class.HeaderSize {
		t.Fatalf("mem.HeaderSize = %d, class.HeaderSize = %d, want equal", mem.HeaderSize, class.HeaderSize)
	}
}

func TestArrayLayoutOffsets(t *testing.T) {
	l := mem.ArrayLayout{ElementSize: 4}

	if l.ElementOffset(0) != mem.ElementsOffset {
		t.Errorf("ElementOffset(0) = %d, want %d", l.ElementOffset(0), mem.ElementsOffset)
	}

	if got, want := l.ElementOffset(3), mem.ElementsOffset+12; got != want {
		t.Errorf("ElementOffset(3) = %d, want %d", got, want)
	}

	if got, want := l.Size(10), mem.ElementsOffset+40; got != want {
		t.Errorf("Size(10) = %d, want %d", got, want)
	}
}
