// Package malgodevice implements softengine.DeviceBackend on malgo, giving the reference
// engine real playback and capture devices through miniaudio.
package malgodevice

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/native"
	"github.com/tphakala/go-miniaudio/internal/native/softengine"
)

var backendMap = map[int32]malgo.Backend{
	native.BackendWasapi:     malgo.BackendWasapi,
	native.BackendDSound:     malgo.BackendDsound,
	native.BackendWinMM:      malgo.BackendWinmm,
	native.BackendCoreAudio:  malgo.BackendCoreaudio,
	native.BackendSndio:      malgo.BackendSndio,
	native.BackendAudio4:     malgo.BackendAudio4,
	native.BackendOSS:        malgo.BackendOss,
	native.BackendPulseAudio: malgo.BackendPulseaudio,
	native.BackendALSA:       malgo.BackendAlsa,
	native.BackendJack:       malgo.BackendJack,
	native.BackendAAudio:     malgo.BackendAaudio,
	native.BackendOpenSLES:   malgo.BackendOpensl,
	native.BackendWebAudio:   malgo.BackendWebaudio,
	native.BackendNull:       malgo.BackendNull,
}

// malgoBackends maps engine backend ids to malgo backends. Ids malgo has no
// equivalent for are skipped.
func malgoBackends(backends []int32) []malgo.Backend {
	if len(backends) == 0 {
		return nil
	}
	out := make([]malgo.Backend, 0, len(backends))
	for _, b := range backends {
		if mb, ok := backendMap[b]; ok {
			out = append(out, mb)
		}
	}
	return out
}

// Factory returns a softengine.BackendFactory that opens malgo contexts. Messages from
// miniaudio are logged at debug level.
func Factory(log logger.Logger) softengine.BackendFactory {
	if log == nil {
		log = logger.Global().Module("malgo")
	}
	return func(backends []int32) (softengine.DeviceBackend, error) {
		return Open(backends, log)
	}
}

// Backend is a malgo context.
type Backend struct {
	log logger.Logger

	mu  sync.Mutex
	ctx *malgo.AllocatedContext
	// infos keeps enumerated device ids alive for InitDevice.
	infos map[string]*malgo.DeviceInfo
}

// Open initialises a malgo context preferring backends in order.
func Open(backends []int32, log logger.Logger) (*Backend, error) {
	mb := malgoBackends(backends)
	if len(backends) > 0 && len(mb) == 0 {
		return nil, errors.Newf("none of the requested backends %v is supported", backends).
			Component("malgodevice").
			Category(errors.CategoryConfiguration).
			Build()
	}

	ctx, err := malgo.InitContext(mb, malgo.ContextConfig{}, func(message string) {
		log.Debug("miniaudio", logger.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return nil, errors.New(err).
			Component("malgodevice").
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_context").
			Build()
	}
	return &Backend{log: log, ctx: ctx, infos: make(map[string]*malgo.DeviceInfo)}, nil
}

func deviceType(kind native.DeviceKind) malgo.DeviceType {
	if kind == native.DeviceKindCapture {
		return malgo.Capture
	}
	return malgo.Playback
}

// Devices implements softengine.DeviceBackend. IDs are the hex form of miniaudio's
// device id.
func (b *Backend) Devices(kind native.DeviceKind) ([]softengine.DeviceInfo, error) {
	infos, err := b.enumerate(kind)
	if err != nil {
		return nil, err
	}
	out := make([]softengine.DeviceInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, softengine.DeviceInfo{
			Name:      info.Name(),
			ID:        info.ID.String(),
			IsDefault: info.IsDefault == 1,
		})
	}
	return out, nil
}

func (b *Backend) enumerate(kind native.DeviceKind) ([]*malgo.DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return nil, errors.Newf("malgo context is closed").
			Component("malgodevice").
			Category(errors.CategoryState).
			Build()
	}

	infos, err := b.ctx.Devices(deviceType(kind))
	if err != nil {
		return nil, errors.New(err).
			Component("malgodevice").
			Category(errors.CategoryAudioDevice).
			Context("operation", "enumerate_devices").
			Build()
	}
	out := make([]*malgo.DeviceInfo, 0, len(infos))
	for i := range infos {
		info := infos[i]
		b.infos[info.ID.String()] = &info
		out = append(out, &info)
	}
	return out, nil
}

// resolve finds the device matching id. An empty id selects the default device and
// returns nil.
func (b *Backend) resolve(kind native.DeviceKind, id string) (*malgo.DeviceInfo, error) {
	if id == "" {
		return nil, nil
	}
	infos, err := b.enumerate(kind)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if matchesDevice(info.ID.String(), info.Name(), id) {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", softengine.ErrDeviceNotFound, id)
}

// matchesDevice accepts the hex id, the decoded ASCII id or a name substring.
func matchesDevice(hexID, name, want string) bool {
	if strings.EqualFold(hexID, want) {
		return true
	}
	if decoded, err := hex.DecodeString(hexID); err == nil {
		if strings.TrimRight(string(decoded), "\x00") == want {
			return true
		}
	}
	return strings.Contains(name, want)
}

// OpenPlayback implements softengine.DeviceBackend.
func (b *Backend) OpenPlayback(cfg softengine.DeviceConfig, render softengine.RenderFunc) (softengine.Device, error) {
	info, err := b.resolve(native.DeviceKindPlayback, cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	dc := malgo.DefaultDeviceConfig(malgo.Playback)
	dc.Playback.Format = malgo.FormatF32
	dc.Playback.Channels = cfg.Channels
	dc.SampleRate = cfg.SampleRate
	dc.PeriodSizeInFrames = cfg.PeriodFrames
	if info != nil {
		dc.Playback.DeviceID = info.ID.Pointer()
	}

	dev := &Device{}
	dev.onData = func(out, _ []byte, frames uint32) {
		samples := dev.scratchFor(len(out) / bytesPerSample)
		render(samples, frames)
		encodeFloat32(out, samples)
	}
	if err := b.initDevice(dev, dc); err != nil {
		return nil, err
	}
	return dev, nil
}

// OpenCapture implements softengine.DeviceBackend.
func (b *Backend) OpenCapture(cfg softengine.DeviceConfig, deliver softengine.CaptureFunc) (softengine.Device, error) {
	info, err := b.resolve(native.DeviceKindCapture, cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	dc := malgo.DefaultDeviceConfig(malgo.Capture)
	dc.Capture.Format = malgo.FormatF32
	dc.Capture.Channels = cfg.Channels
	dc.SampleRate = cfg.SampleRate
	dc.PeriodSizeInFrames = cfg.PeriodFrames
	dc.Alsa.NoMMap = 1
	if info != nil {
		dc.Capture.DeviceID = info.ID.Pointer()
	}

	dev := &Device{capture: true}
	dev.onData = func(_, in []byte, frames uint32) {
		samples := dev.scratchFor(len(in) / bytesPerSample)
		decodeFloat32(samples, in)
		deliver(samples, frames)
	}
	if err := b.initDevice(dev, dc); err != nil {
		return nil, err
	}
	return dev, nil
}

func (b *Backend) initDevice(dev *Device, dc malgo.DeviceConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return errors.Newf("malgo context is closed").
			Component("malgodevice").
			Category(errors.CategoryState).
			Build()
	}

	md, err := malgo.InitDevice(b.ctx.Context, dc, malgo.DeviceCallbacks{
		Data: dev.onData,
		Stop: func() {
			b.log.Debug("device stopped", logger.Bool("capture", dev.capture))
		},
	})
	if err != nil {
		return errors.New(err).
			Component("malgodevice").
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_device").
			Context("sample_rate", dc.SampleRate).
			Build()
	}
	dev.md = md
	return nil
}

// Close implements softengine.DeviceBackend. It is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return nil
	}
	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil
	clear(b.infos)
	if err != nil {
		return errors.New(err).
			Component("malgodevice").
			Category(errors.CategoryAudioDevice).
			Context("operation", "uninit_context").
			Build()
	}
	return nil
}
