package audio

import (
	"math"
	"testing"
)

func sine(freq float64, n int, sampleRate int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return samples
}

func TestAnalyserSilence(t *testing.T) {
	a := NewAnalyser()
	a.Push(make([]float32, fftSize))

	bins := make([]byte, a.BinCount())
	a.ByteFrequencyData(bins)

	for i, b := range bins {
		if b != 0 {
			t.Fatalf("bin %d = %d, want 0 for silence", i, b)
		}
	}
}

func TestAnalyserToneRaisesBins(t *testing.T) {
	a := NewAnalyser()
	a.Push(sine(1000, fftSize, 16000))

	bins := make([]byte, a.BinCount())
	// Multiple snapshots so time smoothing converges toward the live signal.
	for i := 0; i < 10; i++ {
		a.ByteFrequencyData(bins)
	}

	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	if sum == 0 {
		t.Fatal("expected non-zero magnitude bins for a 1 kHz tone")
	}

	// The hottest bin should sit near 1 kHz: bin = freq * fftSize / rate.
	peak := 0
	for i, b := range bins {
		if b > bins[peak] {
			peak = i
		}
	}
	want := 1000 * fftSize / 16000
	if peak < want-4 || peak > want+4 {
		t.Errorf("peak bin = %d, want about %d", peak, want)
	}
}

func TestAnalyserReset(t *testing.T) {
	a := NewAnalyser()
	a.Push(sine(440, fftSize, 16000))
	bins := make([]byte, a.BinCount())
	a.ByteFrequencyData(bins)

	a.Reset()
	a.ByteFrequencyData(bins)
	for i, b := range bins {
		if b != 0 {
			t.Fatalf("bin %d = %d after Reset, want 0", i, b)
		}
	}
}

func TestAnalyserShortDst(t *testing.T) {
	a := NewAnalyser()
	a.Push(sine(1000, fftSize, 16000))

	short := make([]byte, 8)
	a.ByteFrequencyData(short) // must not panic
}
