package miniaudio

import (
	"github.com/tphakala/go-miniaudio/internal/native"
)

// StreamingSound is a sound fed with interleaved float32 PCM through a fixed-size ring
// buffer. Producers append from any goroutine while the engine drains the buffer.
//
// AppendPCMFrames never blocks: it accepts what fits and reports how many frames that
// was. A producer that gets back fewer frames than it offered should wait and retry the
// remainder.
type StreamingSound struct {
	*Sound
	channels uint32
	capacity uint64
}

// Channels returns the channel count of appended frames.
func (s *StreamingSound) Channels() uint32 { return s.channels }

// BufferCapacityInFrames returns the ring buffer capacity.
func (s *StreamingSound) BufferCapacityInFrames() uint64 { return s.capacity }

// QueuedFrames returns the number of frames waiting to be played.
func (s *StreamingSound) QueuedFrames() (uint64, error) {
	return s.frameQuery("ma_stream_get_queued_frames", s.driver.StreamGetQueuedFrames)
}

// AvailableFramesToWrite returns the free space of the ring buffer in frames.
func (s *StreamingSound) AvailableFramesToWrite() (uint64, error) {
	return s.frameQuery("ma_stream_get_available_write_frames", s.driver.StreamGetAvailableWriteFrames)
}

// AppendPCMFrames queues interleaved samples and returns the number of whole frames
// accepted, between 0 and len(samples)/Channels. A return of 0 means the buffer is full.
func (s *StreamingSound) AppendPCMFrames(samples []float32) (uint64, error) {
	const op = "ma_stream_append_pcm_frames"
	if s.h.Released() {
		return 0, disposedError(s.h.Kind(), op)
	}
	if len(samples) == 0 {
		return 0, nil
	}
	if len(samples)%int(s.channels) != 0 {
		return 0, argumentError(op, "%d samples is not a whole number of %d channel frames", len(samples), s.channels)
	}

	requested := uint64(len(samples)) / uint64(s.channels)
	var accepted uint64
	err := pinned(s.h, op, func(p native.Ptr) error {
		n, r := s.driver.StreamAppendPCMFrames(p, samples, requested)
		if err := checkResult(s.driver, op, r); err != nil {
			return err
		}
		accepted = min(n, requested)
		return nil
	})
	if err != nil {
		return 0, err
	}
	getMetrics().StreamAppend(requested, accepted)
	return accepted, nil
}

// SignalEndOfStream marks the stream finished. The sound ends, and its Ended handlers
// run, once the queued frames have played.
func (s *StreamingSound) SignalEndOfStream() error {
	return call(s.driver, s.h, "ma_stream_mark_end", s.driver.StreamMarkEnd)
}

// ClearEndOfStream withdraws a previous SignalEndOfStream.
func (s *StreamingSound) ClearEndOfStream() error {
	return call(s.driver, s.h, "ma_stream_clear_end", s.driver.StreamClearEnd)
}

// IsEndOfStreamSignaled reports whether SignalEndOfStream is in effect.
func (s *StreamingSound) IsEndOfStreamSignaled() (bool, error) {
	return query(s.h, "ma_stream_is_end", s.driver.StreamIsEnd)
}

// ResetBuffer discards every queued frame and clears the end of stream flag.
func (s *StreamingSound) ResetBuffer() error {
	return call(s.driver, s.h, "ma_stream_reset", s.driver.StreamReset)
}
