package miniaudio

import (
	"fmt"

	"github.com/tphakala/go-miniaudio/internal/errors"
	"github.com/tphakala/go-miniaudio/internal/handle"
	"github.com/tphakala/go-miniaudio/internal/native"
)

const component = "miniaudio"

// Error kinds. Every error returned by this package matches exactly one of them with
// errors.Is.
var (
	// ErrConstruction means a native factory failed or returned an invalid pointer.
	ErrConstruction = errors.NewStd("native object construction failed")
	// ErrDisposed means the object was used after Close.
	ErrDisposed = errors.NewStd("object has been closed")
	// ErrNative means a native operation reported a failure code.
	ErrNative = errors.NewStd("native operation failed")
	// ErrInvalidArgument means an argument was rejected before any native call.
	ErrInvalidArgument = errors.NewStd("invalid argument")
)

// ResultError carries a failing native result code.
type ResultError struct {
	Code        native.Result
	Op          string
	Description string
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("miniaudio API '%s' failed with code %d: %s.", e.Op, int32(e.Code), e.Description)
}

// Is matches ErrNative.
func (e *ResultError) Is(target error) bool {
	return target == ErrNative
}

func newResultError(d native.Driver, op string, r native.Result) *ResultError {
	return &ResultError{Code: r, Op: op, Description: d.DescribeResult(r)}
}

// checkResult returns nil for success and a native error otherwise.
func checkResult(d native.Driver, op string, r native.Result) error {
	if r.OK() {
		return nil
	}
	return errors.New(newResultError(d, op, r)).
		Component(component).
		Category(errors.CategoryAudio).
		Context("operation", op).
		Context("result", int32(r)).
		Build()
}

// constructionFailure matches ErrConstruction only. The ResultError is reachable
// through errors.As, not Unwrap, so a failed create never matches ErrNative.
type constructionFailure struct {
	op     string
	detail string
	result *ResultError
}

func (e *constructionFailure) Error() string {
	if e.result != nil {
		return ErrConstruction.Error() + ": " + e.result.Error()
	}
	return fmt.Sprintf("%s: %s %s", ErrConstruction, e.op, e.detail)
}

func (e *constructionFailure) Is(target error) bool {
	return target == ErrConstruction
}

func (e *constructionFailure) As(target any) bool {
	if p, ok := target.(**ResultError); ok && e.result != nil {
		*p = e.result
		return true
	}
	return false
}

func constructionError(d native.Driver, op string, r native.Result) error {
	cause := &constructionFailure{op: op, detail: "returned an invalid pointer"}
	if !r.OK() {
		cause.result = newResultError(d, op, r)
	}
	return errors.New(cause).
		Component(component).
		Category(errors.CategoryAudio).
		Context("operation", op).
		Context("result", int32(r)).
		Build()
}

func disposedError(kind, op string) error {
	return errors.New(fmt.Errorf("%w: %s", ErrDisposed, kind)).
		Component(component).
		Category(errors.CategoryState).
		Context("operation", op).
		Build()
}

func argumentError(op, format string, args ...any) error {
	return errors.New(fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))).
		Component(component).
		Category(errors.CategoryValidation).
		Context("operation", op).
		Build()
}

// pinned runs fn with the native pointer of h pinned. A released handle reports
// ErrDisposed.
func pinned(h *handle.Handle, op string, fn func(native.Ptr) error) error {
	err := h.With(fn)
	if errors.Is(err, handle.ErrReleased) {
		return disposedError(h.Kind(), op)
	}
	return err
}

// query pins h and returns the value produced by fn.
func query[T any](h *handle.Handle, op string, fn func(native.Ptr) T) (T, error) {
	var v T
	err := pinned(h, op, func(p native.Ptr) error {
		v = fn(p)
		return nil
	})
	return v, err
}

// call pins h and checks the result of fn.
func call(d native.Driver, h *handle.Handle, op string, fn func(native.Ptr) native.Result) error {
	return pinned(h, op, func(p native.Ptr) error {
		return checkResult(d, op, fn(p))
	})
}

// acquire wraps a freshly created pointer. A failing result or invalid pointer becomes
// a construction error; a valid pointer paired with a failure code is destroyed.
func acquire(d native.Driver, kind, op string, ptr native.Ptr, r native.Result, destroy func(native.Ptr)) (*handle.Handle, error) {
	if !r.OK() || !ptr.Valid() {
		if ptr.Valid() {
			destroy(ptr)
		}
		return nil, constructionError(d, op, r)
	}
	h, err := handle.Acquire(kind, ptr, destroy, handle.WithObserver(hooks))
	if err != nil {
		return nil, errors.New(&constructionFailure{op: op, detail: err.Error()}).
			Component(component).
			Category(errors.CategoryAudio).
			Context("operation", op).
			Build()
	}
	return h, nil
}
