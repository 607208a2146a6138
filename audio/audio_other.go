//go:build !linux

package audio

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoBackend struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoBackend{ctx: ctx}, nil
}

func (b *malgoBackend) Devices() ([]DeviceInfo, error) {
	found, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	infos := make([]DeviceInfo, len(found))
	for i, d := range found {
		infos[i] = DeviceInfo{
			ID:   hex.EncodeToString(d.ID.Pointer()[:]),
			Name: d.Name(),
		}
	}
	return infos, nil
}

func (b *malgoBackend) NewCapture(device *DeviceInfo, cfg CaptureConfig) (CaptureDevice, error) {
	mcfg := malgo.DefaultDeviceConfig(malgo.Capture)
	mcfg.Capture.Format = malgo.FormatF32
	mcfg.Capture.Channels = cfg.Channels
	mcfg.SampleRate = cfg.SampleRate
	if device != nil {
		raw, err := hex.DecodeString(device.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
		var id malgo.DeviceID
		copy(id[:], raw)
		mcfg.Capture.DeviceID = id.Pointer()
	}

	mc := &malgoCapture{}
	dev, err := malgo.InitDevice(b.ctx.Context, mcfg, malgo.DeviceCallbacks{
		Data: func(_, data []byte, frames uint32) {
			if cb := mc.cb.Load(); cb != nil {
				(*cb)(samplesFromF32LE(data, frames*cfg.Channels))
			}
		},
	})
	if err != nil {
		return nil, err
	}
	mc.device = dev
	return mc, nil
}

func (b *malgoBackend) Close() {
	b.ctx.Uninit()
	b.ctx.Free()
}

// samplesFromF32LE reinterprets a miniaudio f32 buffer. The count comes
// from the frame callback and is bounded by the byte length.
func samplesFromF32LE(data []byte, count uint32) []float32 {
	n := min(int(count), len(data)/4)
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return out
}

type malgoCapture struct {
	device *malgo.Device
	cb     atomic.Pointer[DataCallback]
}

func (c *malgoCapture) Start() error {
	return c.device.Start()
}

func (c *malgoCapture) Stop() {
	c.device.Stop()
}

func (c *malgoCapture) Close() {
	c.device.Uninit()
}

func (c *malgoCapture) SetCallback(cb DataCallback) {
	c.cb.Store(&cb)
}

func (c *malgoCapture) ClearCallback() {
	c.cb.Store(nil)
}
