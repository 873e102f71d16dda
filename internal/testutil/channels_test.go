package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReceiveWithTimeout(t *testing.T) {
	t.Parallel()

	ch := make(chan int, 1)
	ch <- 7
	assert.Equal(t, 7, ReceiveWithTimeout(t, ch, ShortTestTimeout, "value expected"))
}

func TestDriveUntilStepsUntilDone(t *testing.T) {
	t.Parallel()

	done := make(chan string, 1)
	steps := 0
	got := DriveUntil(t, done, DefaultTestTimeout, func() {
		steps++
		if steps == 3 {
			done <- "finished"
		}
	})
	assert.Equal(t, "finished", got)
	assert.Equal(t, 3, steps)
}

func TestWaitForChannel(t *testing.T) {
	t.Parallel()

	ch := make(chan struct{})
	close(ch)
	WaitForChannel(t, ch, ShortTestTimeout, "closed channel should signal")
}
