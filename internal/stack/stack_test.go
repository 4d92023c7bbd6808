package stack_test

import (
	"testing"

	"github.com/sparrowvm/core/internal/stack"
)

func newTestStack(t *testing.T) *stack.ManagedStack {
	t.Helper()

	s, err := stack.NewManagedStack(1 << 16)
	if err != nil {
		t.Fatalf("NewManagedStack: %s", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestGuardStartsAtTop(t *testing.T) {
	s := newTestStack(t)
	_, top := s.Bounds()

	g := stack.NewGuard(s, true)
	if g.FramePointer() != top {
		t.Errorf("FramePointer() = %#x, want top %#x", g.FramePointer(), top)
	}
}

func TestPushFrameMovesCursorDown(t *testing.T) {
	s := newTestStack(t)
	g := stack.NewGuard(s, true)

	before := g.FramePointer()

	fp, err := g.PushFrame(64)
	if err != nil {
		t.Fatalf("PushFrame: %s", err)
	}

	if fp != before-64 {
		t.Errorf("PushFrame returned %#x, want %#x", fp, before-64)
	}

	if g.FramePointer() != fp {
		t.Error("PushFrame did not move the guard's cursor")
	}
}

func TestPushFrameOverflow(t *testing.T) {
	s := newTestStack(t)
	g := stack.NewGuard(s, true)

	if _, err := g.PushFrame(1 << 30); err != stack.ErrStackOverflow {
		t.Fatalf("PushFrame past the bottom = %v, want ErrStackOverflow", err)
	}
}

func TestPopFrameValidatesMagic(t *testing.T) {
	s := newTestStack(t)
	g := stack.NewGuard(s, true)

	bad := &stack.FrameHeader{Magic1: 0, Magic2: 0}

	defer func() {
		if recover() == nil {
			t.Fatal("PopFrame with bad magic did not panic")
		}
	}()

	g.PopFrame(bad, 0)
}

func TestValidateGoodAndBadMagic(t *testing.T) {
	good := &stack.FrameHeader{Magic1: stack.Magic1, Magic2: stack.Magic2}
	if err := stack.Validate(good); err != nil {
		t.Errorf("Validate(good) = %s, want nil", err)
	}

	bad := &stack.FrameHeader{Magic1: 1, Magic2: 2}
	if err := stack.Validate(bad); err != stack.ErrBadMagic {
		t.Errorf("Validate(bad) = %v, want ErrBadMagic", err)
	}
}

func TestEnterManagedInstallsOutermostFrame(t *testing.T) {
	s := newTestStack(t)
	g := stack.NewGuard(s, true)

	header, transition, err := stack.EnterManaged(g, 0xdeadbeef, 1, 2, 64)
	if err != nil {
		t.Fatalf("EnterManaged: %s", err)
	}

	if header.PrevRIP != 0 || header.PrevRBP != 0 {
		t.Error("outermost frame should have zero prev_rip/prev_rbp")
	}

	if header.IRMethodID != 1 || header.MethodID != 2 {
		t.Errorf("header ids = (%d, %d), want (1, 2)", header.IRMethodID, header.MethodID)
	}

	if header.Magic1 != stack.Magic1 || header.Magic2 != stack.Magic2 {
		t.Error("EnterManaged did not stamp the magic cookies")
	}

	if transition.Context.JavaSaved.RIP != 0xdeadbeef {
		t.Errorf("transition entry RIP = %#x, want 0xdeadbeef", transition.Context.JavaSaved.RIP)
	}
}

type fakeFrameReader map[uintptr]stack.FrameHeader

func (f fakeFrameReader) ReadFrame(addr uintptr) (stack.FrameHeader, error) {
	h, ok := f[addr]
	if !ok {
		return stack.FrameHeader{}, stack.ErrBadMagic
	}

	return h, nil
}

func TestWalkVisitsInnermostFirst(t *testing.T) {
	frames := fakeFrameReader{
		0x300: {PrevRBP: 0x200, Magic1: stack.Magic1, Magic2: stack.Magic2},
		0x200: {PrevRBP: 0x100, Magic1: stack.Magic1, Magic2: stack.Magic2},
		0x100: {PrevRBP: 0, Magic1: stack.Magic1, Magic2: stack.Magic2},
	}

	var visited []uintptr
	err := stack.Walk(frames, 0x300, func(addr uintptr, h stack.FrameHeader) bool {
		visited = append(visited, addr)
		return true
	})
	if err != nil {
		t.Fatalf("Walk: %s", err)
	}

	want := []uintptr{0x300, 0x200, 0x100}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}

	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %#x, want %#x", i, visited[i], want[i])
		}
	}
}

func TestWalkStopsWhenVisitReturnsFalse(t *testing.T) {
	frames := fakeFrameReader{
		0x300: {PrevRBP: 0x200, Magic1: stack.Magic1, Magic2: stack.Magic2},
		0x200: {PrevRBP: 0x100, Magic1: stack.Magic1, Magic2: stack.Magic2},
		0x100: {PrevRBP: 0, Magic1: stack.Magic1, Magic2: stack.Magic2},
	}

	var visited int
	err := stack.Walk(frames, 0x300, func(addr uintptr, h stack.FrameHeader) bool {
		visited++
		return addr != 0x300
	})
	if err != nil {
		t.Fatalf("Walk: %s", err)
	}

	if visited != 1 {
		t.Errorf("visited %d frames, want 1 (stopped after the first)", visited)
	}
}

func TestWalkBadMagicErrors(t *testing.T) {
	frames := fakeFrameReader{
		0x300: {PrevRBP: 0x200, Magic1: 0, Magic2: 0},
	}

	err := stack.Walk(frames, 0x300, func(addr uintptr, h stack.FrameHeader) bool { return true })
	if err == nil {
		t.Fatal("expected Walk to error on a bad-magic frame")
	}
}
