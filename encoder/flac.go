package encoder

import (
	"bytes"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// TranscodeFLAC re-encodes a WAV stream as FLAC. Lossless, so cloud engines
// hear the identical signal at roughly half the upload size.
func TranscodeFLAC(wavData []byte) ([]byte, error) {
	samples, rate, err := DecodeWAV(wavData)
	if err != nil {
		return nil, fmt.Errorf("transcode source: %w", err)
	}

	var buf bytes.Buffer
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    uint32(rate),
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
		NSamples:      uint64(len(samples)),
	}
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		return nil, fmt.Errorf("flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	for start := 0; start < len(samples); start += BlockSize {
		block := samples[start:min(start+BlockSize, len(samples))]
		if err := writeFlacBlock(enc, block, rate); err != nil {
			return nil, err
		}
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("flac close: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFlacBlock(enc *flac.Encoder, block []int16, rate int) error {
	widened := make([]int32, len(block))
	for i, s := range block {
		widened[i] = int32(s)
	}

	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    uint32(rate),
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   widened,
			NSamples:  len(block),
		}},
	}

	if err := enc.WriteFrame(f); err != nil {
		return fmt.Errorf("flac frame: %w", err)
	}
	return nil
}
