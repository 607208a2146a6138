package recorder

import "sync"

// SampleBuffer accumulates capture chunks in arrival order. The contents are
// consumed exactly once with Take; after that (or after Close) further
// appends are dropped, so a callback still in flight during teardown cannot
// corrupt anything.
type SampleBuffer struct {
	mu         sync.Mutex
	chunks     [][]float32
	frames     int
	sampleRate int
	done       bool
}

func NewSampleBuffer(sampleRate int) *SampleBuffer {
	return &SampleBuffer{sampleRate: sampleRate}
}

// Append copies one chunk into the buffer. The capture backend reuses its
// callback slice, so the copy is required.
func (b *SampleBuffer) Append(chunk []float32) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	c := make([]float32, len(chunk))
	copy(c, chunk)
	b.chunks = append(b.chunks, c)
	b.frames += len(c)
}

// Len reports the total number of frames buffered so far.
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Duration reports the buffered audio length in seconds.
func (b *SampleBuffer) Duration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sampleRate <= 0 {
		return 0
	}
	return float64(b.frames) / float64(b.sampleRate)
}

func (b *SampleBuffer) SampleRate() int { return b.sampleRate }

// Take moves the buffered samples out as one contiguous slice and closes the
// buffer. A second call returns nil.
func (b *SampleBuffer) Take() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return nil
	}
	b.done = true
	out := make([]float32, 0, b.frames)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	b.chunks = nil
	b.frames = 0
	return out
}

// Close discards the contents and rejects further appends. Used on the
// cancel path where the audio is thrown away.
func (b *SampleBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done = true
	b.chunks = nil
	b.frames = 0
}
