package decoders

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM    = 1
	wavChunkFrames  = 4096
	wavEncodeDepth  = 16
	wavEncodeFullSc = 32767.0
)

func decodeWAV(r io.ReadSeeker) (*PCM, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("input is not a valid WAV audio file")
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV audio format %d", ErrUnsupportedFormat, decoder.WavAudioFormat)
	}
	if decoder.NumChans == 0 {
		return nil, fmt.Errorf("WAV file declares zero channels")
	}

	bitDepth := int(decoder.BitDepth)
	divisor, err := getAudioDivisor(bitDepth)
	if err != nil {
		return nil, err
	}

	channels := int(decoder.NumChans)
	out := &PCM{Channels: uint32(channels), SampleRate: decoder.SampleRate}
	buf := &audio.IntBuffer{
		Data:   make([]int, wavChunkFrames*channels),
		Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: channels},
	}

	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		for _, sample := range buf.Data[:n] {
			if bitDepth == 8 {
				// 8-bit WAV samples are unsigned
				sample -= 128
			}
			out.Samples = append(out.Samples, float32(sample)/divisor)
		}
	}

	// Drop a trailing partial frame.
	out.Samples = out.Samples[:out.Frames()*uint64(channels)]
	return out, nil
}

// EncodeWAV writes interleaved float32 samples as 16-bit PCM WAV. Samples are clipped
// to [-1, 1].
func EncodeWAV(w io.WriteSeeker, samples []float32, channels, sampleRate uint32) error {
	if channels == 0 || sampleRate == 0 {
		return fmt.Errorf("invalid WAV format: %d channels at %d Hz", channels, sampleRate)
	}

	enc := wav.NewEncoder(w, int(sampleRate), wavEncodeDepth, int(channels), wavFormatPCM)

	data := make([]int, len(samples))
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		data[i] = int(math.Round(v * wavEncodeFullSc))
	}

	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: int(sampleRate), NumChannels: int(channels)},
		SourceBitDepth: wavEncodeDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	return enc.Close()
}
