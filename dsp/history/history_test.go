package history

import "testing"

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("New(0) should fail")
	}
	b, err := New(4)
	if err != nil {
		t.Fatalf("New(4) failed: %v", err)
	}
	if b.Capacity() != 4 {
		t.Fatalf("Capacity() = %d, want 4", b.Capacity())
	}
	if b.Len() != 0 || b.Full() {
		t.Fatalf("new buffer not empty: Len=%d Full=%v", b.Len(), b.Full())
	}
}

func TestPushAndSnapshot(t *testing.T) {
	b, _ := New(4)
	if n := b.Push([]float64{1, 2, 3}); n != 3 {
		t.Fatalf("Push returned %d, want 3", n)
	}
	if b.Len() != 3 || b.Free() != 1 || b.Full() {
		t.Fatalf("Len=%d Free=%d Full=%v, want 3 1 false", b.Len(), b.Free(), b.Full())
	}

	dst := make([]float64, 4)
	if n := b.Snapshot(dst); n != 3 {
		t.Fatalf("Snapshot returned %d, want 3", n)
	}
	for i, want := range []float64{1, 2, 3} {
		if dst[i] != want {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}
}

func TestPushEvictsOldest(t *testing.T) {
	b, _ := New(4)
	b.Push([]float64{1, 2, 3, 4})
	if !b.Full() {
		t.Fatal("buffer should be full after 4 pushes")
	}
	b.Push([]float64{5, 6})

	dst := make([]float64, 4)
	b.Snapshot(dst)
	for i, want := range []float64{3, 4, 5, 6} {
		if dst[i] != want {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}
	if !b.Full() {
		t.Fatal("buffer should remain full after eviction")
	}
}

func TestPushLongerThanCapacity(t *testing.T) {
	b, _ := New(3)
	if n := b.Push([]float64{1, 2, 3, 4, 5, 6, 7}); n != 3 {
		t.Fatalf("Push returned %d, want 3", n)
	}
	dst := make([]float64, 3)
	b.Snapshot(dst)
	for i, want := range []float64{5, 6, 7} {
		if dst[i] != want {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}
}

func TestSnapshotWrapsBackingArray(t *testing.T) {
	b, _ := New(4)
	// Drive read/write past the seam several times.
	for k := 0; k < 5; k++ {
		b.Push([]float64{float64(3 * k), float64(3*k + 1), float64(3*k + 2)})
	}
	dst := make([]float64, 4)
	if n := b.Snapshot(dst); n != 4 {
		t.Fatalf("Snapshot returned %d, want 4", n)
	}
	for i, want := range []float64{11, 12, 13, 14} {
		if dst[i] != want {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want)
		}
	}
}

func TestSnapshotShortDst(t *testing.T) {
	b, _ := New(4)
	b.Push([]float64{1, 2, 3, 4})
	dst := make([]float64, 2)
	if n := b.Snapshot(dst); n != 2 {
		t.Fatalf("Snapshot returned %d, want 2", n)
	}
	if dst[0] != 1 || dst[1] != 2 {
		t.Fatalf("dst = %v, want [1 2]", dst)
	}
}

func TestReset(t *testing.T) {
	b, _ := New(4)
	b.Push([]float64{1, 2, 3, 4})
	b.Reset()
	if b.Len() != 0 || b.Full() {
		t.Fatalf("after Reset: Len=%d Full=%v, want 0 false", b.Len(), b.Full())
	}
	b.Push([]float64{9})
	dst := make([]float64, 4)
	if n := b.Snapshot(dst); n != 1 || dst[0] != 9 {
		t.Fatalf("after Reset push: Snapshot n=%d dst[0]=%v, want 1 9", n, dst[0])
	}
}

func TestPushEmpty(t *testing.T) {
	b, _ := New(2)
	if n := b.Push(nil); n != 0 {
		t.Fatalf("Push(nil) = %d, want 0", n)
	}
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", b.Len())
	}
}
