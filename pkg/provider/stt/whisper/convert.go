package whisper

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// decodeWAV reads a complete PCM WAV stream and returns its samples as mono
// float32 in [-1.0, 1.0] together with the sample rate.
func decodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("whisper: audio is not a valid PCM WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("whisper: decode wav: %w", err)
	}
	return intBufferToMono(buf), int(dec.SampleRate), nil
}

// intBufferToMono down-mixes an interleaved integer PCM buffer to mono
// float32 by averaging all channels per frame. Samples are scaled by the
// source bit depth so full scale maps to ±1.0. A trailing partial frame is
// ignored.
func intBufferToMono(buf *audio.IntBuffer) []float32 {
	if buf == nil || len(buf.Data) == 0 {
		return nil
	}
	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		channels = buf.Format.NumChannels
	}
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := float32(int64(1) << (depth - 1))

	frames := len(buf.Data) / channels
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			sum += float32(buf.Data[i*channels+ch]) / scale
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
