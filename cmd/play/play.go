// Package play implements the play command: scheduled, faded playback of an audio file
// on the device or rendered offline to a wav file.
package play

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/go-miniaudio/internal/app"
	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/miniaudio"
	"github.com/tphakala/go-miniaudio/internal/native/softengine/decoders"
	"github.com/tphakala/go-miniaudio/internal/scheduling"
)

// renderBlockFrames is the block size used when rendering offline.
const renderBlockFrames = 1024

// Options controls when and how loud the file is played.
type Options struct {
	Delay   time.Duration
	FadeIn  time.Duration
	FadeOut time.Duration
	Volume  float32
	// Tail is extra silence rendered after the sound has stopped.
	Tail time.Duration
	// PollInterval is how often playback state is checked.
	PollInterval time.Duration
}

func (o Options) validate(length time.Duration) error {
	switch {
	case o.Delay < 0 || o.FadeIn < 0 || o.FadeOut < 0 || o.Tail < 0:
		return invalid("delay, fades and tail must not be negative")
	case o.FadeIn+o.FadeOut > length:
		return invalid("fades are longer than the sound")
	case o.Volume < 0:
		return invalid("volume must not be negative")
	}
	return nil
}

func invalid(msg string) error {
	return errors.Newf("%s", msg).Component("cli").Category(errors.CategoryValidation).Build()
}

// Command creates the play command.
func Command(session *app.Session) *cobra.Command {
	opts := Options{Volume: 1}
	var renderPath string

	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Play an audio file",
		Long: "Play a wav, flac, mp3 or ogg vorbis file with an optional delayed start and fades. " +
			"With --render the mix is rendered offline and written to a wav file instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.PollInterval = session.Settings().Monitor.Interval
			if opts.PollInterval <= 0 {
				opts.PollInterval = 20 * time.Millisecond
			}
			log := session.Logger().Module("play")

			if renderPath != "" {
				audio := session.Settings().Audio
				engine, err := session.OpenOfflineEngine(audio.SampleRate, audio.Channels)
				if err != nil {
					return err
				}
				defer engine.Close()
				return RenderToFile(engine, args[0], renderPath, opts, log)
			}

			ctx, err := session.OpenContext()
			if err != nil {
				return err
			}
			defer ctx.Close()
			engine, err := session.OpenEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()
			return Play(cmd.Context(), engine, args[0], opts, log)
		},
	}

	cmd.Flags().DurationVar(&opts.Delay, "delay", 0, "Delay before playback starts")
	cmd.Flags().DurationVar(&opts.FadeIn, "fade-in", 0, "Fade-in length")
	cmd.Flags().DurationVar(&opts.FadeOut, "fade-out", 0, "Fade-out length at the end of the file")
	cmd.Flags().Float32Var(&opts.Volume, "volume", opts.Volume, "Linear playback volume")
	cmd.Flags().DurationVar(&opts.Tail, "tail", 0, "Silence rendered after the sound, with --render")
	cmd.Flags().StringVar(&renderPath, "render", "", "Render offline to this wav file instead of playing")
	return cmd
}

// Scheduled is a sound with its start and stop set on the engine clock.
type Scheduled struct {
	Sound *miniaudio.Sound
	// StartFrame and StopFrame are engine frames; the sound is silent outside them.
	StartFrame uint64
	StopFrame  uint64
}

// Schedule loads path and schedules it on engine: start after Delay, fade in over
// FadeIn, and stop at the end of the file, fading out over FadeOut. The caller closes
// the returned sound.
func Schedule(engine *miniaudio.Engine, path string, opts Options) (*Scheduled, error) {
	sound, err := engine.NewSound(path, miniaudio.SoundFlagDecode|miniaudio.SoundFlagNoSpatialization)
	if err != nil {
		return nil, err
	}
	sched, err := schedule(engine, sound, opts)
	if err != nil {
		_ = sound.Close()
		return nil, err
	}
	return sched, nil
}

func schedule(engine *miniaudio.Engine, sound *miniaudio.Sound, opts Options) (*Scheduled, error) {
	seconds, err := sound.LengthInSeconds()
	if err != nil {
		return nil, err
	}
	length := time.Duration(seconds * float64(time.Second))
	if err := opts.validate(length); err != nil {
		return nil, err
	}
	if err := sound.SetVolume(opts.Volume); err != nil {
		return nil, err
	}

	rate, err := engine.SampleRate()
	if err != nil {
		return nil, err
	}
	start, err := engine.AbsoluteTimeInFrames(opts.Delay)
	if err != nil {
		return nil, err
	}
	stop := start + scheduling.FramesFromDuration(length, rate)

	if err := sound.ScheduleStartAt(start); err != nil {
		return nil, err
	}
	if opts.FadeIn > 0 {
		if err := sound.ApplyFadeIn(0, 1, opts.Delay, opts.FadeIn); err != nil {
			return nil, err
		}
	}
	if opts.FadeOut > 0 {
		if err := sound.ScheduleStopAt(stop, opts.FadeOut); err != nil {
			return nil, err
		}
	}
	if err := sound.Start(); err != nil {
		return nil, err
	}
	return &Scheduled{Sound: sound, StartFrame: start, StopFrame: stop}, nil
}

// Play schedules path on a device engine and waits until it has stopped.
func Play(ctx context.Context, engine *miniaudio.Engine, path string, opts Options, log logger.Logger) error {
	sched, err := Schedule(engine, path, opts)
	if err != nil {
		return err
	}
	defer sched.Sound.Close()

	ended := make(chan struct{})
	var once sync.Once
	sub, err := sched.Sound.OnEnded(func(*miniaudio.Sound) {
		once.Do(func() { close(ended) })
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	log.Info("playing",
		logger.String("file", path),
		logger.Uint64("start_frame", sched.StartFrame),
		logger.Uint64("stop_frame", sched.StopFrame))

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("playback interrupted")
			return nil
		case <-ended:
			return nil
		case <-ticker.C:
			// A scheduled stop does not fire the end callback.
			stopped, err := stoppedAfter(engine, sched)
			if err != nil {
				return err
			}
			if stopped {
				return nil
			}
		}
	}
}

func stoppedAfter(engine *miniaudio.Engine, sched *Scheduled) (bool, error) {
	now, err := engine.TimeInPCMFrames()
	if err != nil {
		return false, err
	}
	if now < sched.StartFrame {
		return false, nil
	}
	state, err := sched.Sound.State()
	if err != nil {
		return false, err
	}
	return state == miniaudio.SoundStateStopped, nil
}

// Render schedules path on an engine without a device and renders the mix until the
// sound has stopped plus Tail. It returns interleaved samples.
func Render(engine *miniaudio.Engine, path string, opts Options) ([]float32, error) {
	sched, err := Schedule(engine, path, opts)
	if err != nil {
		return nil, err
	}
	defer sched.Sound.Close()

	rate, err := engine.SampleRate()
	if err != nil {
		return nil, err
	}
	channels, err := engine.Channels()
	if err != nil {
		return nil, err
	}
	now, err := engine.TimeInPCMFrames()
	if err != nil {
		return nil, err
	}
	total := sched.StopFrame - now + scheduling.FramesFromDuration(opts.Tail, rate)

	out := make([]float32, 0, total*uint64(channels))
	block := make([]float32, renderBlockFrames*int(channels))
	for remaining := total; remaining > 0; {
		frames := min(remaining, renderBlockFrames)
		n, err := engine.ReadPCMFrames(block[:frames*uint64(channels)])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		out = append(out, block[:n*uint64(channels)]...)
		remaining -= n
	}
	return out, nil
}

// RenderToFile renders path offline and writes the mix to dst as 16-bit wav.
func RenderToFile(engine *miniaudio.Engine, path, dst string, opts Options, log logger.Logger) error {
	samples, err := Render(engine, path, opts)
	if err != nil {
		return err
	}
	rate, err := engine.SampleRate()
	if err != nil {
		return err
	}
	channels, err := engine.Channels()
	if err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return errors.New(err).
			Component("cli").
			Category(errors.CategoryFileIO).
			FileContext(dst).
			Build()
	}
	if err := decoders.EncodeWAV(f, samples, channels, rate); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.New(err).
			Component("cli").
			Category(errors.CategoryFileIO).
			FileContext(dst).
			Build()
	}

	log.Info("rendered",
		logger.String("file", dst),
		logger.Int("frames", len(samples)/int(channels)),
		logger.Int("sample_rate", int(rate)))
	return nil
}
