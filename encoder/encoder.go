// Package encoder owns the audio container formats: WAV as the canonical
// capture container and FLAC as the optional upload transcode.
package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
	HeaderSize    = 44
)

// wavHeader is the canonical 44-byte RIFF/WAVE header, little-endian.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + data size
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 = PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // rate * channels * bytes per sample
	BlockAlign    uint16 // channels * bytes per sample
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // data size
}

// EncodeWAV converts float samples in [-1, 1] to a mono 16-bit PCM WAV byte
// stream. Samples outside the range are clamped before quantization. Pure
// function of its inputs.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	dataSize := uint32(len(samples) * 2)

	header := wavHeader{
		ChunkSize:     36 + dataSize,
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   Channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * Channels * BitsPerSample / 8),
		BlockAlign:    Channels * BitsPerSample / 8,
		BitsPerSample: BitsPerSample,
		Subchunk2Size: dataSize,
	}
	copy(header.ChunkID[:], "RIFF")
	copy(header.Format[:], "WAVE")
	copy(header.Subchunk1ID[:], "fmt ")
	copy(header.Subchunk2ID[:], "data")

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+int(dataSize)))
	binary.Write(buf, binary.LittleEndian, header)

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = quantize(s)
	}
	binary.Write(buf, binary.LittleEndian, pcm)

	return buf.Bytes()
}

// quantize clamps to [-1, 1] and scales to int16 so that a decode via
// value/32768 stays within 1/32768 of the clamped input.
func quantize(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	v := int32(math.Round(float64(s) * 32768))
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}

// DecodeWAV parses a mono 16-bit PCM WAV stream produced by EncodeWAV (or any
// canonical 44-byte-header file) and returns the samples and sample rate.
func DecodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < HeaderSize {
		return nil, 0, fmt.Errorf("wav too short: %d bytes", len(data))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("reading wav header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a wav stream")
	}
	if string(header.Subchunk1ID[:]) != "fmt " || string(header.Subchunk2ID[:]) != "data" {
		return nil, 0, fmt.Errorf("unsupported wav chunk layout")
	}
	if header.AudioFormat != 1 {
		return nil, 0, fmt.Errorf("unsupported wav format %d, want PCM", header.AudioFormat)
	}
	if header.BitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d, want 16", header.BitsPerSample)
	}
	if header.NumChannels != 1 {
		return nil, 0, fmt.Errorf("unsupported channel count %d, want mono", header.NumChannels)
	}

	payload := data[HeaderSize:]
	if int(header.Subchunk2Size) > len(payload) {
		return nil, 0, fmt.Errorf("wav data truncated: header declares %d bytes, have %d",
			header.Subchunk2Size, len(payload))
	}
	payload = payload[:header.Subchunk2Size]

	samples := make([]int16, len(payload)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(payload[i*2:]))
	}
	return samples, int(header.SampleRate), nil
}

// Duration reports the audio length in seconds declared by a WAV stream.
func Duration(data []byte) (float64, error) {
	samples, rate, err := DecodeWAV(data)
	if err != nil {
		return 0, err
	}
	if rate == 0 {
		return 0, fmt.Errorf("wav declares zero sample rate")
	}
	return float64(len(samples)) / float64(rate), nil
}
