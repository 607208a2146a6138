package audio

import (
	"math"
	"math/cmplx"
	"sync"
)

// Analyser keeps a rolling window of recent capture samples and reports their
// frequency-domain magnitudes as bytes, one per bin, 0-255. The scaling mirrors
// the Web Audio AnalyserNode: Hann window, dB conversion over [-100, -30],
// time smoothing of 0.8 between snapshots.
const (
	fftSize      = 2048
	binCount     = fftSize / 2
	minDecibels  = -100.0
	maxDecibels  = -30.0
	smoothingFac = 0.8
)

type Analyser struct {
	mu     sync.Mutex
	ring   [fftSize]float32
	pos    int
	smooth [binCount]float64
}

func NewAnalyser() *Analyser {
	return &Analyser{}
}

func (a *Analyser) BinCount() int { return binCount }

// Push appends capture samples to the rolling window. Safe to call from the
// audio callback.
func (a *Analyser) Push(samples []float32) {
	a.mu.Lock()
	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos = (a.pos + 1) % fftSize
	}
	a.mu.Unlock()
}

// Reset clears the window and smoothing state between recordings.
func (a *Analyser) Reset() {
	a.mu.Lock()
	a.ring = [fftSize]float32{}
	a.pos = 0
	a.smooth = [binCount]float64{}
	a.mu.Unlock()
}

// ByteFrequencyData fills dst with the current magnitude snapshot. dst longer
// than BinCount() is truncated; shorter dst receives the low bins only.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	buf := make([]complex128, fftSize)

	a.mu.Lock()
	for i := 0; i < fftSize; i++ {
		s := float64(a.ring[(a.pos+i)%fftSize])
		// Hann window
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
		buf[i] = complex(s*w, 0)
	}
	a.mu.Unlock()

	fft(buf)

	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i < binCount; i++ {
		mag := cmplx.Abs(buf[i]) / float64(fftSize)
		a.smooth[i] = smoothingFac*a.smooth[i] + (1-smoothingFac)*mag

		db := -math.MaxFloat64
		if a.smooth[i] > 0 {
			db = 20 * math.Log10(a.smooth[i])
		}
		scaled := 255 * (db - minDecibels) / (maxDecibels - minDecibels)
		if scaled < 0 {
			scaled = 0
		} else if scaled > 255 {
			scaled = 255
		}
		if i < len(dst) {
			dst[i] = byte(scaled)
		}
	}
}

// fft runs an in-place iterative radix-2 transform. len(buf) must be a power
// of two.
func fft(buf []complex128) {
	n := len(buf)

	// Bit-reversal permutation
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		wl := cmplx.Rect(1, angle)
		for start := 0; start < n; start += length {
			w := complex(1, 0)
			for k := 0; k < length/2; k++ {
				u := buf[start+k]
				v := buf[start+k+length/2] * w
				buf[start+k] = u + v
				buf[start+k+length/2] = u - v
				w *= wl
			}
		}
	}
}
