package audio

import (
	"sync"
	"testing"
	"time"
)

func TestFakeCaptureInstantFeed(t *testing.T) {
	samples := make([]float32, 3000)
	for i := range samples {
		samples[i] = 0.1
	}
	ctx := NewFakeContextFromSamples(samples, false)
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("new capture: %v", err)
	}

	var mu sync.Mutex
	var frames int
	dev.SetCallback(func(chunk []float32) {
		mu.Lock()
		frames += len(chunk)
		mu.Unlock()
	})
	if err := dev.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-dev.(*FakeCapture).AudioDone():
	case <-time.After(2 * time.Second):
		t.Fatal("audio never finished feeding")
	}

	dev.Stop()
	dev.ClearCallback()
	dev.Close()

	mu.Lock()
	defer mu.Unlock()
	if frames < len(samples) {
		t.Fatalf("fed %d frames, want at least %d", frames, len(samples))
	}
}

func TestFakeCaptureRealtimePacing(t *testing.T) {
	samples := make([]float32, 4000) // a quarter second at 16kHz
	ctx := NewFakeContextFromSamples(samples, true)
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("new capture: %v", err)
	}
	dev.SetCallback(func([]float32) {})

	start := time.Now()
	if err := dev.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-dev.(*FakeCapture).AudioDone():
	case <-time.After(5 * time.Second):
		t.Fatal("audio never finished feeding")
	}
	elapsed := time.Since(start)
	dev.Stop()

	if elapsed < 150*time.Millisecond {
		t.Errorf("realtime feed finished in %v, want roughly a quarter second", elapsed)
	}
}
