// Package tone implements the tone command: a generated sine wave fed to the engine
// through a streaming sound.
package tone

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/go-miniaudio/internal/app"
	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/logger"
	"github.com/tphakala/go-miniaudio/internal/miniaudio"
	"github.com/tphakala/go-miniaudio/internal/scheduling"
)

// Options controls the generated tone and how it is streamed.
type Options struct {
	Frequency float64
	Amplitude float32
	Duration  time.Duration
	// Buffer is the stream ring buffer length, Chunk the size of each append.
	Buffer time.Duration
	Chunk  time.Duration
	// RetryDelay is the wait after an append the buffer had no room for.
	RetryDelay time.Duration
	// PollInterval is how often playback state is checked while draining.
	PollInterval time.Duration
}

func (o Options) validate() error {
	switch {
	case o.Frequency <= 0:
		return invalid("frequency must be positive")
	case o.Amplitude <= 0 || o.Amplitude > 1:
		return invalid("amplitude must be in (0, 1]")
	case o.Duration <= 0:
		return invalid("duration must be positive")
	case o.Buffer <= 0 || o.Chunk <= 0 || o.Chunk > o.Buffer:
		return invalid("chunk must be positive and fit the buffer")
	case o.RetryDelay <= 0 || o.PollInterval <= 0:
		return invalid("retry delay and poll interval must be positive")
	}
	return nil
}

func invalid(msg string) error {
	return errors.Newf("%s", msg).Component("cli").Category(errors.CategoryValidation).Build()
}

// Command creates the tone command.
func Command(session *app.Session) *cobra.Command {
	opts := Options{Amplitude: 0.2}
	var seconds float64

	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Play a sine wave",
		Long:  "Generate a sine wave and stream it to the playback device until it has been played out.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := session.Settings()
			opts.Duration = time.Duration(seconds * float64(time.Second))
			opts.Buffer = time.Duration(s.Stream.BufferSeconds * float64(time.Second))
			opts.Chunk = time.Duration(s.Stream.ChunkMillis) * time.Millisecond
			opts.RetryDelay = s.Stream.RetryDelay
			opts.PollInterval = s.Monitor.Interval
			if opts.PollInterval <= 0 {
				opts.PollInterval = 50 * time.Millisecond
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
			return Run(cmd.Context(), engine, opts, session.Logger().Module("tone"))
		},
	}

	cmd.Flags().Float64Var(&opts.Frequency, "freq", 440, "Tone frequency in Hz")
	cmd.Flags().Float64Var(&seconds, "seconds", 2, "Tone length in seconds")
	cmd.Flags().Float32Var(&opts.Amplitude, "amplitude", opts.Amplitude, "Peak amplitude between 0 and 1")
	return cmd
}

// Generator produces an interleaved sine wave with the same sample on every channel.
type Generator struct {
	amplitude float32
	channels  uint32
	step      float64
	phase     float64
}

// NewGenerator returns a generator for frequency at sampleRate.
func NewGenerator(frequency float64, amplitude float32, sampleRate, channels uint32) *Generator {
	return &Generator{
		amplitude: amplitude,
		channels:  channels,
		step:      2 * math.Pi * frequency / float64(sampleRate),
	}
}

// Fill writes whole frames into buf and returns the number of frames written.
func (g *Generator) Fill(buf []float32) int {
	frames := len(buf) / int(g.channels)
	for f := range frames {
		v := g.amplitude * float32(math.Sin(g.phase))
		for c := range int(g.channels) {
			buf[f*int(g.channels)+c] = v
		}
		g.phase += g.step
		if g.phase >= 2*math.Pi {
			g.phase -= 2 * math.Pi
		}
	}
	return frames
}

// Run streams the tone through a new streaming sound on engine and returns once it
// has been played out, or when ctx is cancelled.
func Run(ctx context.Context, engine *miniaudio.Engine, opts Options, log logger.Logger) error {
	if err := opts.validate(); err != nil {
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

	capacity := scheduling.FramesFromDuration(opts.Buffer, rate)
	stream, err := engine.NewStreamingSound(channels, rate, capacity, miniaudio.SoundFlagNoSpatialization)
	if err != nil {
		return err
	}
	defer stream.Close()

	ended := make(chan struct{})
	var endOnce sync.Once
	sub, err := stream.OnEnded(func(*miniaudio.Sound) {
		endOnce.Do(func() { close(ended) })
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	if err := stream.Start(); err != nil {
		return err
	}

	total := scheduling.FramesFromDuration(opts.Duration, rate)
	log.Info("streaming tone",
		logger.Float64("frequency", opts.Frequency),
		logger.Uint64("frames", total),
		logger.Uint64("buffer_frames", capacity))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		gen := NewGenerator(opts.Frequency, opts.Amplitude, rate, channels)
		chunkFrames := max(scheduling.FramesFromDuration(opts.Chunk, rate), 1)
		return produce(gctx, stream, gen, total, chunkFrames, opts.RetryDelay)
	})
	g.Go(func() error {
		return waitPlayedOut(gctx, stream, ended, opts.PollInterval)
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("tone interrupted")
			return nil
		}
		return err
	}
	log.Info("tone finished")
	return nil
}

// produce appends total frames in chunks. A partial or zero append means the ring
// buffer is full; the remainder is retried after retryDelay.
func produce(ctx context.Context, stream *miniaudio.StreamingSound, gen *Generator, total, chunkFrames uint64, retryDelay time.Duration) error {
	channels := uint64(stream.Channels())
	chunk := make([]float32, chunkFrames*channels)

	var written uint64
	for written < total {
		frames := min(chunkFrames, total-written)
		pending := chunk[:frames*channels]
		gen.Fill(pending)

		for len(pending) > 0 {
			accepted, err := stream.AppendPCMFrames(pending)
			if err != nil {
				return err
			}
			pending = pending[accepted*channels:]
			written += accepted
			if len(pending) == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return stream.SignalEndOfStream()
}

// waitPlayedOut returns when the end callback fired or the sound reports stopped
// after the producer signalled the end of the stream.
func waitPlayedOut(ctx context.Context, stream *miniaudio.StreamingSound, ended <-chan struct{}, poll time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ended:
			return nil
		case <-ticker.C:
			signalled, err := stream.IsEndOfStreamSignaled()
			if err != nil {
				return err
			}
			if !signalled {
				continue
			}
			state, err := stream.State()
			if err != nil {
				return err
			}
			if state == miniaudio.SoundStateStopped {
				return nil
			}
		}
	}
}
