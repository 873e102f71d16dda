package softengine

import "github.com/tphakala/go-miniaudio/internal/native"

// DeviceInfo describes one device reported by a DeviceBackend.
type DeviceInfo struct {
	Name      string
	ID        string
	IsDefault bool
}

// DeviceConfig is the request passed to a backend when opening a device. Zero fields
// let the backend choose.
type DeviceConfig struct {
	DeviceID     string
	SampleRate   uint32
	Channels     uint32
	PeriodFrames uint32
}

// RenderFunc fills out with frames interleaved output frames.
type RenderFunc func(out []float32, frames uint32)

// CaptureFunc receives frames interleaved input frames. in is only valid for the call.
type CaptureFunc func(in []float32, frames uint32)

// Device is an opened playback or capture device.
type Device interface {
	Start() error
	// Stop returns once no callback is running for the device.
	Stop() error
	// Close stops the device and releases it. No callback runs after Close returns.
	Close() error
	SampleRate() uint32
	Channels() uint32
}

// DeviceBackend is the audio I/O layer underneath a context.
type DeviceBackend interface {
	Devices(kind native.DeviceKind) ([]DeviceInfo, error)
	OpenPlayback(cfg DeviceConfig, render RenderFunc) (Device, error)
	OpenCapture(cfg DeviceConfig, deliver CaptureFunc) (Device, error)
	Close() error
}

// BackendFactory opens a DeviceBackend honouring the preferred backend order. An
// empty list selects the platform default.
type BackendFactory func(backends []int32) (DeviceBackend, error)

const (
	nullPlaybackName = "Null Playback Device"
	nullCaptureName  = "Null Capture Device"
	nullDeviceID     = "null"
)

// nullDevices is what a context without a backend enumerates.
func nullDevices(kind native.DeviceKind) []DeviceInfo {
	switch kind {
	case native.DeviceKindPlayback:
		return []DeviceInfo{{Name: nullPlaybackName, ID: nullDeviceID, IsDefault: true}}
	case native.DeviceKindCapture:
		return []DeviceInfo{{Name: nullCaptureName, ID: nullDeviceID, IsDefault: true}}
	default:
		return nil
	}
}
