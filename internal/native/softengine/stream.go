package softengine

import "github.com/tphakala/go-miniaudio/internal/native"

// withStream runs fn on the stream source of the sound at ptr with d.mu held.
// Non-stream sounds report ResultInvalidOperation.
func withStream[T any](d *Driver, ptr native.Ptr, fallback T, fn func(*streamSource) T) (T, native.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := lookupLocked[*soundObj](d, ptr)
	if !ok {
		return fallback, native.ResultInvalidArgs
	}
	st, ok := s.src.(*streamSource)
	if !ok {
		return fallback, native.ResultInvalidOperation
	}
	return fn(st), native.ResultSuccess
}

// StreamGetQueuedFrames implements native.Driver.
func (d *Driver) StreamGetQueuedFrames(ptr native.Ptr) (uint64, native.Result) {
	return withStream(d, ptr, 0, (*streamSource).queued)
}

// StreamGetAvailableWriteFrames implements native.Driver.
func (d *Driver) StreamGetAvailableWriteFrames(ptr native.Ptr) (uint64, native.Result) {
	return withStream(d, ptr, 0, (*streamSource).available)
}

// StreamAppendPCMFrames implements native.Driver. It never blocks: only the whole
// frames that fit are written and their count is returned.
func (d *Driver) StreamAppendPCMFrames(ptr native.Ptr, frames []float32, frameCount uint64) (uint64, native.Result) {
	type appended struct {
		n   uint64
		res native.Result
	}
	out, res := withStream(d, ptr, appended{}, func(st *streamSource) appended {
		if uint64(len(frames)) < frameCount*uint64(st.channels) {
			return appended{res: native.ResultInvalidArgs}
		}
		n, r := st.append(frames, frameCount)
		return appended{n: n, res: r}
	})
	if !res.OK() {
		return 0, res
	}
	return out.n, out.res
}

// StreamMarkEnd implements native.Driver.
func (d *Driver) StreamMarkEnd(ptr native.Ptr) native.Result {
	_, res := withStream(d, ptr, struct{}{}, func(st *streamSource) struct{} {
		st.end = true
		return struct{}{}
	})
	return res
}

// StreamClearEnd implements native.Driver.
func (d *Driver) StreamClearEnd(ptr native.Ptr) native.Result {
	_, res := withStream(d, ptr, struct{}{}, func(st *streamSource) struct{} {
		st.end = false
		return struct{}{}
	})
	return res
}

// StreamIsEnd implements native.Driver.
func (d *Driver) StreamIsEnd(ptr native.Ptr) bool {
	end, _ := withStream(d, ptr, false, func(st *streamSource) bool { return st.end })
	return end
}

// StreamReset implements native.Driver.
func (d *Driver) StreamReset(ptr native.Ptr) native.Result {
	_, res := withStream(d, ptr, struct{}{}, func(st *streamSource) struct{} {
		st.reset()
		return struct{}{}
	})
	return res
}
