package softengine

import (
	"encoding/binary"
	"math"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/go-miniaudio/internal/native"
)

const bytesPerSample = 4

// source produces interleaved frames for a sound. Implementations are only touched
// with Driver.mu held.
type source interface {
	// next copies one frame into dst and reports false when no frame is available.
	next(dst []float32, looping bool) bool
	cursor() uint64
	length() uint64
	seek(frame uint64) native.Result
	// rewindIfAtEnd restarts a finished source so a new Start plays it again.
	rewindIfAtEnd()
}

// memorySource plays a fully decoded buffer.
type memorySource struct {
	samples  []float32
	channels uint32
	frames   uint64
	pos      uint64
}

func newMemorySource(samples []float32, channels uint32) *memorySource {
	return &memorySource{
		samples:  samples,
		channels: channels,
		frames:   uint64(len(samples)) / uint64(channels),
	}
}

func (m *memorySource) next(dst []float32, looping bool) bool {
	if m.pos >= m.frames {
		if !looping || m.frames == 0 {
			return false
		}
		m.pos = 0
	}
	off := m.pos * uint64(m.channels)
	copy(dst, m.samples[off:off+uint64(m.channels)])
	m.pos++
	return true
}

func (m *memorySource) cursor() uint64 { return m.pos }
func (m *memorySource) length() uint64 { return m.frames }

func (m *memorySource) seek(frame uint64) native.Result {
	if frame > m.frames {
		return native.ResultInvalidArgs
	}
	m.pos = frame
	return native.ResultSuccess
}

func (m *memorySource) rewindIfAtEnd() {
	if m.pos >= m.frames {
		m.pos = 0
	}
}

// streamSource is fed by StreamAppendPCMFrames through a byte ring buffer holding
// little-endian float32 frames. Only whole frames are ever written or read.
type streamSource struct {
	rb         *ringbuffer.RingBuffer
	channels   uint32
	frameBytes int
	capacity   uint64
	consumed   uint64
	end        bool

	readBuf  []byte
	writeBuf []byte
}

func newStreamSource(channels uint32, capacityInFrames uint64) *streamSource {
	frameBytes := int(channels) * bytesPerSample
	return &streamSource{
		rb:         ringbuffer.New(int(capacityInFrames) * frameBytes),
		channels:   channels,
		frameBytes: frameBytes,
		capacity:   capacityInFrames,
		readBuf:    make([]byte, frameBytes),
	}
}

func (s *streamSource) next(dst []float32, _ bool) bool {
	if s.rb.Length() < s.frameBytes {
		return false
	}
	n, err := s.rb.Read(s.readBuf)
	if err != nil || n != s.frameBytes {
		return false
	}
	for c := range dst {
		dst[c] = math.Float32frombits(binary.LittleEndian.Uint32(s.readBuf[c*bytesPerSample:]))
	}
	s.consumed++
	return true
}

// drained reports true once the end flag is set and nothing is queued.
func (s *streamSource) drained() bool {
	return s.end && s.rb.Length() < s.frameBytes
}

func (s *streamSource) queued() uint64 {
	return uint64(s.rb.Length() / s.frameBytes)
}

func (s *streamSource) available() uint64 {
	return uint64(s.rb.Free() / s.frameBytes)
}

// append writes as many whole frames of frames as fit and returns that count.
func (s *streamSource) append(frames []float32, count uint64) (uint64, native.Result) {
	n := min(count, s.available())
	if n == 0 {
		return 0, native.ResultSuccess
	}

	size := int(n) * s.frameBytes
	if cap(s.writeBuf) < size {
		s.writeBuf = make([]byte, size)
	}
	buf := s.writeBuf[:size]
	for i, v := range frames[:n*uint64(s.channels)] {
		binary.LittleEndian.PutUint32(buf[i*bytesPerSample:], math.Float32bits(v))
	}

	written, err := s.rb.Write(buf)
	if err != nil && written == 0 {
		return 0, native.ResultError
	}
	return uint64(written / s.frameBytes), native.ResultSuccess
}

func (s *streamSource) reset() {
	s.rb.Reset()
	s.end = false
	s.consumed = 0
}

func (s *streamSource) cursor() uint64 { return s.consumed }
func (s *streamSource) length() uint64 { return 0 }

func (s *streamSource) seek(uint64) native.Result {
	return native.ResultInvalidOperation
}

func (s *streamSource) rewindIfAtEnd() {}
