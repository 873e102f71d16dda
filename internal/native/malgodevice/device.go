package malgodevice

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/go-miniaudio/internal/errors"
)

const bytesPerSample = 4

// Device is a malgo playback or capture device using float32 samples.
type Device struct {
	md      *malgo.Device
	capture bool
	onData  malgo.DataProc

	// scratch is only touched from the device thread.
	scratch []float32

	mu     sync.Mutex
	closed bool
}

func (d *Device) scratchFor(n int) []float32 {
	if cap(d.scratch) < n {
		d.scratch = make([]float32, n)
	}
	return d.scratch[:n]
}

func encodeFloat32(dst []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[i*bytesPerSample:], math.Float32bits(v))
	}
}

func decodeFloat32(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*bytesPerSample:]))
	}
}

// Start implements softengine.Device.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.Newf("device is closed").Component("malgodevice").Category(errors.CategoryState).Build()
	}
	if err := d.md.Start(); err != nil {
		return errors.New(err).
			Component("malgodevice").
			Category(errors.CategoryAudioDevice).
			Context("operation", "start_device").
			Build()
	}
	return nil
}

// Stop implements softengine.Device. miniaudio returns once the device thread has left
// the data callback.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || !d.md.IsStarted() {
		return nil
	}
	if err := d.md.Stop(); err != nil {
		return errors.New(err).
			Component("malgodevice").
			Category(errors.CategoryAudioDevice).
			Context("operation", "stop_device").
			Build()
	}
	return nil
}

// Close implements softengine.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.md.Uninit()
	return nil
}

// SampleRate implements softengine.Device.
func (d *Device) SampleRate() uint32 {
	return d.md.SampleRate()
}

// Channels implements softengine.Device.
func (d *Device) Channels() uint32 {
	if d.capture {
		return d.md.CaptureChannels()
	}
	return d.md.PlaybackChannels()
}
