package recorder

import (
	"math"
	"testing"
)

func TestBufferAppendOrder(t *testing.T) {
	b := NewSampleBuffer(16000)
	b.Append([]float32{1, 2})
	b.Append([]float32{3})
	b.Append([]float32{4, 5})

	if got := b.Len(); got != 5 {
		t.Fatalf("Len = %d, want 5", got)
	}
	got := b.Take()
	want := []float32{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("Take returned %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBufferTakeMovesOnce(t *testing.T) {
	b := NewSampleBuffer(16000)
	b.Append([]float32{1, 2, 3})

	if first := b.Take(); len(first) != 3 {
		t.Fatalf("first Take returned %d frames, want 3", len(first))
	}
	if second := b.Take(); second != nil {
		t.Fatalf("second Take returned %d frames, want nil", len(second))
	}
	b.Append([]float32{9})
	if got := b.Len(); got != 0 {
		t.Fatalf("append after Take kept %d frames, want 0", got)
	}
}

func TestBufferCloseDiscards(t *testing.T) {
	b := NewSampleBuffer(16000)
	b.Append([]float32{1})
	b.Close()

	b.Append([]float32{2})
	if got := b.Len(); got != 0 {
		t.Fatalf("Len after Close = %d, want 0", got)
	}
	if got := b.Take(); got != nil {
		t.Fatalf("Take after Close returned %d frames, want nil", len(got))
	}
}

func TestBufferAppendCopies(t *testing.T) {
	b := NewSampleBuffer(16000)
	src := []float32{0.5, -0.5}
	b.Append(src)
	src[0] = 99

	got := b.Take()
	if got[0] != 0.5 {
		t.Fatalf("buffered frame changed to %v after caller mutation", got[0])
	}
}

func TestBufferDuration(t *testing.T) {
	b := NewSampleBuffer(16000)
	b.Append(make([]float32, 8000))
	if got := b.Duration(); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("Duration = %v, want 0.5", got)
	}
}
