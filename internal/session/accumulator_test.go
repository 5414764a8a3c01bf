package session

import "testing"

func TestAccumulator_Unbounded(t *testing.T) {
	a := newAccumulator(0)
	for i := 0; i < 100; i++ {
		if !a.append([]byte("chunk ")) {
			t.Fatal("unbounded accumulator dropped a fragment")
		}
	}
	if len(a.String()) != 600 {
		t.Fatalf("len = %d, want 600", len(a.String()))
	}
	if a.droppedFragments() != 0 {
		t.Fatalf("dropped = %d", a.droppedFragments())
	}
}

func TestAccumulator_DropsWholeFragmentAtLimit(t *testing.T) {
	a := newAccumulator(5)
	if !a.append([]byte("abc")) {
		t.Fatal("first fragment dropped")
	}
	// "def" would cross the limit; it is dropped whole, not split.
	if a.append([]byte("def")) {
		t.Fatal("expected drop")
	}
	// A smaller fragment that still fits is accepted afterwards.
	if !a.append([]byte("xy")) {
		t.Fatal("fitting fragment dropped")
	}
	if got := a.String(); got != "abcxy" {
		t.Fatalf("result = %q", got)
	}
	if a.droppedFragments() != 1 {
		t.Fatalf("dropped = %d, want 1", a.droppedFragments())
	}
}

func TestAccumulator_ExactFit(t *testing.T) {
	a := newAccumulator(4)
	if !a.append([]byte("abcd")) {
		t.Fatal("exact-fit fragment dropped")
	}
	if a.append([]byte("e")) {
		t.Fatal("expected drop at full buffer")
	}
	if got := a.String(); got != "abcd" {
		t.Fatalf("result = %q", got)
	}
}

func TestAccumulator_EmptyFragment(t *testing.T) {
	a := newAccumulator(1)
	if !a.append(nil) {
		t.Fatal("empty fragment reported as dropped")
	}
	if a.droppedFragments() != 0 {
		t.Fatalf("dropped = %d", a.droppedFragments())
	}
}

func TestAccumulator_MultiByteFragmentNeverSplit(t *testing.T) {
	a := newAccumulator(5)
	a.append([]byte("ab"))
	// A 4 byte code point would cross the bound; none of its bytes may land
	// in the buffer.
	if a.append([]byte("\xf0\x9f\x98\x80")) {
		t.Fatal("expected drop")
	}
	if got := a.String(); got != "ab" {
		t.Fatalf("result = %q", got)
	}
}
