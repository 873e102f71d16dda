package decoders

import (
	"encoding/binary"
	"errors"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit little-endian stereo.
const mp3Channels = 2

func decodeMP3(r io.Reader) (*PCM, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	out := &PCM{Channels: mp3Channels, SampleRate: uint32(dec.SampleRate())}
	if l := dec.Length(); l > 0 {
		out.Samples = make([]float32, 0, int(l/2))
	}

	buf := make([]byte, 8192)
	for {
		n, err := dec.Read(buf)
		for i := 0; i+1 < n; i += 2 {
			v := int16(binary.LittleEndian.Uint16(buf[i:]))
			out.Samples = append(out.Samples, float32(v)/32768.0)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	out.Samples = out.Samples[:out.Frames()*mp3Channels]
	return out, nil
}
