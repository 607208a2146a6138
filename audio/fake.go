package audio

import (
	"os"
	"slices"
	"sync"
	"time"

	"murmur/encoder"
)

const fakeFrameSize = 1024

// FakeContext replays a WAV file through the CaptureDevice interface so the
// recording pipeline can run without a microphone.
type FakeContext struct {
	samples  []float32
	realtime bool
}

func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	pcm, _, err := encoder.DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	samples := make([]float32, len(pcm))
	for i, s := range pcm {
		samples[i] = float32(s) / 32768.0
	}
	return &FakeContext{samples: samples, realtime: realtime}, nil
}

// NewFakeContextFromSamples builds a fake straight from samples, for tests
// that do not want a file on disk.
func NewFakeContextFromSamples(samples []float32, realtime bool) *FakeContext {
	return &FakeContext{samples: samples, realtime: realtime}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake device"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{samples: f.samples, realtime: f.realtime, audioDone: make(chan struct{})}, nil
}

type FakeCapture struct {
	samples   []float32
	realtime  bool
	audioDone chan struct{}

	mu      sync.Mutex
	cb      DataCallback
	halt    chan struct{}
	drained chan struct{}
}

// AudioDone closes once the file has been fully fed; after that the fake
// keeps producing silence until stopped.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

// finish marks the end of the file exactly once, no matter which feed loop
// gets there.
func (f *FakeCapture) finish() {
	select {
	case <-f.audioDone:
	default:
		close(f.audioDone)
	}
}

// Start feeds the file and then silence. In batch mode the whole file is
// delivered synchronously before Start returns, so a caller that stops
// immediately afterwards still captures everything. Start does not touch
// audioDone: a waiter from before Start must still see its close.
func (f *FakeCapture) Start() error {
	f.halt = make(chan struct{})
	f.drained = make(chan struct{})

	if !f.realtime {
		for pos := 0; pos < len(f.samples); pos += fakeFrameSize {
			if cb := f.callback(); cb != nil {
				cb(slices.Clone(f.samples[pos:min(pos+fakeFrameSize, len(f.samples))]))
			}
		}
		f.finish()

		go func() {
			defer close(f.drained)
			silence := make([]float32, fakeFrameSize)
			for {
				select {
				case <-f.halt:
					return
				case <-time.After(time.Millisecond):
				}
				if cb := f.callback(); cb != nil {
					cb(silence)
				}
			}
		}()
		return nil
	}

	frameInterval := time.Duration(fakeFrameSize) * time.Second / time.Duration(encoder.SampleRate)
	go func() {
		defer close(f.drained)
		tick := time.NewTicker(frameInterval)
		defer tick.Stop()
		silence := make([]float32, fakeFrameSize)
		pos := 0
		for {
			select {
			case <-f.halt:
				return
			case <-tick.C:
			}
			cb := f.callback()
			if cb == nil {
				continue
			}
			if pos >= len(f.samples) {
				f.finish()
				cb(silence)
				continue
			}
			end := min(pos+fakeFrameSize, len(f.samples))
			cb(slices.Clone(f.samples[pos:end]))
			pos = end
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	if f.halt == nil {
		return
	}
	select {
	case <-f.halt:
	default:
		close(f.halt)
	}
	<-f.drained
	// A fresh channel lets the next Start replay the file for a new waiter.
	f.audioDone = make(chan struct{})
}

func (f *FakeCapture) Close() {}
