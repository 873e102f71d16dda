// Package decoders turns encoded audio files into interleaved float32 PCM for the
// reference engine. Supported containers are WAV, FLAC, MP3 and Ogg Vorbis.
package decoders

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/go-miniaudio/internal/errors"
)

// PCM is a fully decoded clip.
type PCM struct {
	Samples    []float32 // interleaved
	Channels   uint32
	SampleRate uint32
}

// Frames returns the number of whole frames in p.
func (p *PCM) Frames() uint64 {
	if p == nil || p.Channels == 0 {
		return 0
	}
	return uint64(len(p.Samples)) / uint64(p.Channels)
}

// Format identifies an audio container.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatFLAC    Format = "flac"
	FormatMP3     Format = "mp3"
	FormatVorbis  Format = "ogg"
)

// ErrUnsupportedFormat is returned for containers no decoder handles.
var ErrUnsupportedFormat = errors.NewStd("unsupported audio format")

// DecodeFile decodes the file at path. The container is sniffed from the first
// bytes and falls back to the file extension.
func DecodeFile(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("decoders").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Context("operation", "open_audio_file").
			Build()
	}
	defer f.Close()

	format, err := Sniff(f)
	if err != nil {
		return nil, err
	}
	if format == FormatUnknown {
		format = formatFromExtension(path)
	}

	pcm, err := Decode(f, format)
	if err != nil {
		return nil, errors.New(err).
			Component("decoders").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Context("format", string(format)).
			Context("operation", "decode_audio_file").
			Build()
	}
	return pcm, nil
}

// Sniff reads the container magic from r and rewinds it.
func Sniff(r io.ReadSeeker) (Format, error) {
	var magic [4]byte
	n, err := io.ReadFull(r, magic[:])
	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return FormatUnknown, serr
	}
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, err
	}
	m := magic[:n]

	switch {
	case bytes.HasPrefix(m, []byte("RIFF")):
		return FormatWAV, nil
	case bytes.HasPrefix(m, []byte("fLaC")):
		return FormatFLAC, nil
	case bytes.HasPrefix(m, []byte("OggS")):
		return FormatVorbis, nil
	case bytes.HasPrefix(m, []byte("ID3")):
		return FormatMP3, nil
	case len(m) >= 2 && m[0] == 0xFF && m[1]&0xE0 == 0xE0:
		return FormatMP3, nil
	}
	return FormatUnknown, nil
}

func formatFromExtension(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".flac":
		return FormatFLAC
	case ".mp3":
		return FormatMP3
	case ".ogg", ".oga":
		return FormatVorbis
	}
	return FormatUnknown
}

// Decode decodes r as format.
func Decode(r io.ReadSeeker, format Format) (*PCM, error) {
	switch format {
	case FormatWAV:
		return decodeWAV(r)
	case FormatFLAC:
		return decodeFLAC(r)
	case FormatMP3:
		return decodeMP3(r)
	case FormatVorbis:
		return decodeVorbis(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
}

// getAudioDivisor returns the full-scale value of a signed integer sample.
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8:
		return 128.0, nil
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}
