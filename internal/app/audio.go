package app

import (
	stderrors "errors"
	"strings"
	"time"

	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/miniaudio"
)

// OpenContext creates a context preferring the configured backends.
func (s *Session) OpenContext() (*miniaudio.Context, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	backends, err := s.settings.Audio.ParsedBackends()
	if err != nil {
		return nil, err
	}
	return miniaudio.NewContext(s.driver, backends...)
}

func deviceID(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return &id
}

// OpenEngine creates a device engine on ctx. Creation is retried over the configured
// fallback sample rates when the device rejects a rate; other errors are returned at
// once.
func (s *Session) OpenEngine(ctx *miniaudio.Context) (*miniaudio.Engine, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	audio := s.settings.Audio
	start := time.Now()
	var errs []error
	for _, rate := range audio.SampleRates() {
		engine, err := miniaudio.NewEngine(s.driver, &miniaudio.EngineOptions{
			Context:            ctx,
			PlaybackDeviceID:   deviceID(audio.PlaybackDevice),
			SampleRate:         rate,
			Channels:           audio.Channels,
			PeriodSizeInFrames: audio.PeriodFrames,
			NoAutoStart:        audio.NoAutoStart,
		})
		if err == nil {
			s.log.Info("engine opened",
				logger.Int("sample_rate", int(rate)),
				logger.Int("channels", int(audio.Channels)))
			return engine, nil
		}
		if !stderrors.Is(err, miniaudio.ErrConstruction) {
			return nil, err
		}
		s.log.Warn("engine rejected sample rate", logger.Int("sample_rate", int(rate)), logger.Error(err))
		errs = append(errs, err)
	}
	return nil, errors.New(stderrors.Join(errs...)).
		Component("app").
		Category(errors.CategoryAudio).
		Timing("open_engine", time.Since(start)).
		Context("attempts", len(errs)).
		Build()
}

// OpenOfflineEngine creates an engine without a device, rendered by the caller.
func (s *Session) OpenOfflineEngine(sampleRate, channels uint32) (*miniaudio.Engine, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return miniaudio.NewEngine(s.driver, &miniaudio.EngineOptions{
		SampleRate: sampleRate,
		Channels:   channels,
		NoDevice:   true,
	})
}

// OpenCapture creates a capture device on ctx with the same sample rate fallback as
// OpenEngine.
func (s *Session) OpenCapture(ctx *miniaudio.Context, channels uint32) (*miniaudio.CaptureDevice, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	audio := s.settings.Audio
	start := time.Now()
	var errs []error
	for _, rate := range audio.SampleRates() {
		dev, err := miniaudio.NewCaptureDevice(s.driver, &miniaudio.CaptureDeviceOptions{
			Context:    ctx,
			DeviceID:   audio.CaptureDevice,
			SampleRate: rate,
			Channels:   channels,
		})
		if err == nil {
			s.log.Info("capture device opened", logger.Int("sample_rate", int(rate)))
			return dev, nil
		}
		if !stderrors.Is(err, miniaudio.ErrConstruction) {
			return nil, err
		}
		s.log.Warn("capture device rejected sample rate", logger.Int("sample_rate", int(rate)), logger.Error(err))
		errs = append(errs, err)
	}
	return nil, errors.New(stderrors.Join(errs...)).
		Component("app").
		Category(errors.CategoryAudio).
		Timing("open_capture", time.Since(start)).
		Context("attempts", len(errs)).
		Build()
}
