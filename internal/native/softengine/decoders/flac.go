package decoders

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tphakala/flac"
)

func decodeFLAC(r io.Reader) (*PCM, error) {
	decoder, err := flac.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	if decoder.NChannels <= 0 {
		return nil, fmt.Errorf("FLAC stream declares %d channels", decoder.NChannels)
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, err
	}
	bytesPerSample := decoder.BitsPerSample / 8

	out := &PCM{
		Channels:   uint32(decoder.NChannels),
		SampleRate: uint32(decoder.SampleRate),
	}
	if decoder.TotalSamples > 0 {
		out.Samples = make([]float32, 0, int(decoder.TotalSamples)*decoder.NChannels)
	}

	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch decoder.BitsPerSample {
			case 8:
				sample = int32(int8(frame[i]))
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(int8(frame[i+2]))<<16
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			out.Samples = append(out.Samples, float32(sample)/divisor)
		}
	}

	out.Samples = out.Samples[:out.Frames()*uint64(out.Channels)]
	return out, nil
}
