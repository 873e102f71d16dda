package decoders

import (
	"io"

	"github.com/jfreymuth/oggvorbis"
)

func decodeVorbis(r io.Reader) (*PCM, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}

	out := &PCM{
		Samples:    samples,
		Channels:   uint32(format.Channels),
		SampleRate: uint32(format.SampleRate),
	}
	out.Samples = out.Samples[:out.Frames()*uint64(out.Channels)]
	return out, nil
}
