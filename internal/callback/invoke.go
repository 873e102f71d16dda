package callback

import (
	"fmt"

	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/logger"
)

// PanicCounter counts recovered callback panics.
type PanicCounter interface {
	CallbackPanic(callback string)
}

// Invoke runs fn and recovers any panic so it never unwinds into native code.
// A recovered panic is logged at error level and Invoke reports true.
func Invoke(log logger.Logger, name string, fn func()) bool {
	return InvokeCounted(log, nil, name, fn)
}

// InvokeCounted is Invoke that also records recovered panics on counter.
func InvokeCounted(log logger.Logger, counter PanicCounter, name string, fn func()) (recovered bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		recovered = true
		if counter != nil {
			counter.CallbackPanic(name)
		}
		err := panicError(name, r)
		if log != nil {
			log.Error("callback panicked",
				logger.String("callback", name),
				logger.String("panic", fmt.Sprint(r)),
				logger.Error(err))
		}
	}()
	fn()
	return false
}

// panicError records a recovered panic. Building it reports it to telemetry when a
// reporter is active.
func panicError(name string, r any) *errors.EnhancedError {
	return errors.Newf("callback %s panicked: %v", name, r).
		Component("callback").
		Category(errors.CategoryCallback).
		Priority(errors.PriorityHigh).
		Context("callback", name).
		Build()
}
