package encoder

import (
	"encoding/binary"
	"math"
	"testing"
)

func sineSamples(n int, freq float64) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.8 * math.Sin(2*math.Pi*freq*float64(i)/SampleRate))
	}
	return samples
}

func TestEncodeWAVHeader(t *testing.T) {
	samples := sineSamples(SampleRate, 440) // 1 second
	data := EncodeWAV(samples, SampleRate)

	if len(data) != HeaderSize+len(samples)*2 {
		t.Fatalf("encoded size = %d, want %d", len(data), HeaderSize+len(samples)*2)
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		t.Error("missing fmt/data chunk markers")
	}

	payload := uint32(len(samples) * 2)
	if got := binary.LittleEndian.Uint32(data[4:8]); got != 36+payload {
		t.Errorf("ChunkSize = %d, want %d", got, 36+payload)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != payload {
		t.Errorf("Subchunk2Size = %d, want %d", got, payload)
	}
	if got := binary.LittleEndian.Uint16(data[20:22]); got != 1 {
		t.Errorf("AudioFormat = %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(data[22:24]); got != 1 {
		t.Errorf("NumChannels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != SampleRate {
		t.Errorf("SampleRate = %d, want %d", got, SampleRate)
	}
	if got := binary.LittleEndian.Uint32(data[28:32]); got != SampleRate*2 {
		t.Errorf("ByteRate = %d, want %d", got, SampleRate*2)
	}
	if got := binary.LittleEndian.Uint16(data[34:36]); got != 16 {
		t.Errorf("BitsPerSample = %d, want 16", got)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	src := sineSamples(SampleRate/2, 1000)
	data := EncodeWAV(src, SampleRate)

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != SampleRate {
		t.Errorf("rate = %d, want %d", rate, SampleRate)
	}
	if len(decoded) != len(src) {
		t.Fatalf("sample count = %d, want %d", len(decoded), len(src))
	}

	const maxErr = 1.0 / 32768
	for i, q := range decoded {
		back := float64(q) / 32768
		if diff := math.Abs(back - float64(src[i])); diff > maxErr {
			t.Fatalf("sample %d: quantization error %g exceeds %g", i, diff, maxErr)
		}
	}
}

func TestEncodeWAVClamps(t *testing.T) {
	data := EncodeWAV([]float32{2.5, -3.0, 1.0, -1.0}, SampleRate)
	decoded, _, err := DecodeWAV(data)
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{32767, -32768, 32767, -32768}
	for i, w := range want {
		if decoded[i] != w {
			t.Errorf("sample %d = %d, want %d", i, decoded[i], w)
		}
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	data := EncodeWAV(nil, SampleRate)
	if len(data) != HeaderSize {
		t.Fatalf("empty encode = %d bytes, want %d", len(data), HeaderSize)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != 0 {
		t.Errorf("Subchunk2Size = %d, want 0", got)
	}
	decoded, _, err := DecodeWAV(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 0 {
		t.Errorf("decoded %d samples from empty stream", len(decoded))
	}
}

func TestDuration(t *testing.T) {
	for _, tt := range []struct {
		name    string
		seconds float64
	}{
		{"half second", 0.5},
		{"three seconds", 3},
	} {
		t.Run(tt.name, func(t *testing.T) {
			n := int(tt.seconds * SampleRate)
			data := EncodeWAV(make([]float32, n), SampleRate)
			got, err := Duration(data)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.seconds) > 1e-9 {
				t.Errorf("Duration = %g, want %g", got, tt.seconds)
			}
		})
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	for _, tt := range []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("RIFF")},
		{"wrong magic", make([]byte, HeaderSize)},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecodeWAVTruncatedPayload(t *testing.T) {
	data := EncodeWAV(sineSamples(1000, 440), SampleRate)
	if _, _, err := DecodeWAV(data[:len(data)-10]); err == nil {
		t.Error("expected error for truncated payload")
	}
}
