// Package monitor implements the monitor command: a capture level meter.
package monitor

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/tphakala/go-miniaudio/internal/app"
	"github.com/tphakala/go-miniaudio/internal/miniaudio"
)

// MinDBFS is reported for silence.
const MinDBFS = -120.0

// DBFS converts a linear amplitude to decibels relative to full scale.
func DBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return MinDBFS
	}
	return max(20*math.Log10(amplitude), MinDBFS)
}

// Level is the signal level over one report interval.
type Level struct {
	RMS     float64
	Peak    float64
	Samples uint64
}

func (l Level) String() string {
	return fmt.Sprintf("rms %6.1f dBFS  peak %6.1f dBFS  (%d samples)", l.RMS, l.Peak, l.Samples)
}

// Meter accumulates captured samples between snapshots. It is safe for concurrent use.
type Meter struct {
	mu         sync.Mutex
	sumSquares float64
	samples    uint64
	peak       float64
}

// Add accumulates samples.
func (m *Meter) Add(samples []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range samples {
		v := float64(s)
		m.sumSquares += v * v
		m.peak = max(m.peak, math.Abs(v))
	}
	m.samples += uint64(len(samples))
}

// Snapshot returns the level since the previous snapshot and resets the meter.
func (m *Meter) Snapshot() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := Level{RMS: MinDBFS, Peak: DBFS(m.peak), Samples: m.samples}
	if m.samples > 0 {
		l.RMS = DBFS(math.Sqrt(m.sumSquares / float64(m.samples)))
	}
	m.sumSquares, m.samples, m.peak = 0, 0, 0
	return l
}

// Command creates the monitor command.
func Command(session *app.Session) *cobra.Command {
	var (
		seconds  float64
		channels uint32
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Show the capture level",
		Long:  "Open the capture device and print its RMS and peak level in dBFS.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := session.OpenContext()
			if err != nil {
				return err
			}
			defer ctx.Close()
			dev, err := session.OpenCapture(ctx, channels)
			if err != nil {
				return err
			}
			defer dev.Close()

			duration := time.Duration(seconds * float64(time.Second))
			return Run(cmd.Context(), dev, duration, session.Settings().Monitor.Interval, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Float64Var(&seconds, "seconds", 0, "Stop after this many seconds, 0 runs until interrupted")
	cmd.Flags().Uint32Var(&channels, "channels", miniaudio.DefaultCaptureChannels, "Capture channel count")
	return cmd
}

// Run starts dev and writes a level line to w at most once per interval until ctx is
// done or duration has elapsed. A zero duration runs until ctx is done.
func Run(ctx context.Context, dev *miniaudio.CaptureDevice, duration, interval time.Duration, w io.Writer) error {
	var meter Meter
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	levels := make(chan Level, 1)

	// The handler runs on the device thread and never blocks; a report the printer
	// has not picked up yet is dropped.
	sub, err := dev.OnData(func(data miniaudio.CaptureData) {
		meter.Add(data.Samples)
		if !limiter.Allow() {
			return
		}
		select {
		case levels <- meter.Snapshot():
		default:
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	if err := dev.Start(); err != nil {
		return err
	}
	defer dev.Stop()

	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case l := <-levels:
			if _, err := fmt.Fprintln(w, l); err != nil {
				return err
			}
		}
	}
}
