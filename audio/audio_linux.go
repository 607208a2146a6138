//go:build linux

package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// Software gain applied on top of the 3x source volume requested from the
// server. Quiet laptop mics otherwise produce levels the transcription
// engines struggle with.
const captureGain = 4

type pulseBackend struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	client, err := pulse.NewClient(pulse.ClientApplicationName("murmur"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseBackend{client: client}, nil
}

func (b *pulseBackend) Devices() ([]DeviceInfo, error) {
	sources, err := b.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	infos := make([]DeviceInfo, len(sources))
	for i, src := range sources {
		infos[i] = DeviceInfo{ID: src.ID(), Name: src.Name()}
	}
	return infos, nil
}

func (b *pulseBackend) NewCapture(device *DeviceInfo, cfg CaptureConfig) (CaptureDevice, error) {
	return &pulseRecord{client: b.client, source: device, cfg: cfg}, nil
}

func (b *pulseBackend) Close() {
	b.client.Close()
}

type pulseRecord struct {
	client *pulse.Client
	source *DeviceInfo
	cfg    CaptureConfig
	cb     atomic.Pointer[DataCallback]

	mu    sync.Mutex
	quit  chan struct{}
	ended chan struct{}
}

// feed receives raw samples on the pulse reader goroutine, applies gain
// and hands them to the registered callback.
func (r *pulseRecord) feed(buf []float32) (int, error) {
	cb := r.cb.Load()
	if cb == nil || len(buf) == 0 {
		return len(buf), nil
	}
	out := make([]float32, len(buf))
	for i, s := range buf {
		v := s * captureGain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = v
	}
	(*cb)(out)
	return len(buf), nil
}

func (r *pulseRecord) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(r.cfg.SampleRate)),
		pulse.RecordLatency(0.05),
		pulse.RecordRawOption(func(cr *proto.CreateRecordStream) {
			cr.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm) * 3}
		}),
	}
	if r.source != nil {
		if src, err := r.client.SourceByID(r.source.ID); err == nil && src != nil {
			opts = append(opts, pulse.RecordSource(src))
		}
	}

	stream, err := r.client.NewRecord(pulse.Float32Writer(r.feed), opts...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}

	quit := make(chan struct{})
	ended := make(chan struct{})
	go func() {
		stream.Start()
		<-quit
		stream.Stop()
		stream.Close()
		close(ended)
	}()
	r.quit, r.ended = quit, ended
	return nil
}

func (r *pulseRecord) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.quit == nil {
		return
	}
	close(r.quit)
	<-r.ended
	r.quit = nil
}

func (r *pulseRecord) Close() {
	r.Stop()
}

func (r *pulseRecord) SetCallback(cb DataCallback) {
	r.cb.Store(&cb)
}

func (r *pulseRecord) ClearCallback() {
	r.cb.Store(nil)
}
