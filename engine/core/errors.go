package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotSpecified is the only error kind surfaced at package boundaries.
// Every *GfxError matches it with errors.Is.
var ErrNotSpecified = errors.New("gfx_error :: not_specified")

// Reasons carried by a GfxError. They are informative only, callers
// that just need to know something failed should test ErrNotSpecified.
var (
	ErrGraphicsInitFailed    = errors.New("graphics initialization failed")
	ErrSurfaceCreationFailed = errors.New("surface creation failed")
	ErrRendererInFlight      = errors.New("renderer already in flight")
	ErrInvalidFrameState     = errors.New("invalid frame state transition")
	ErrNotInitialized        = errors.New("not initialized")
	ErrPlatformNotSelected   = errors.New("platform not selected")
	ErrWindowDestroyed       = errors.New("window destroyed")
	ErrStackExhausted        = errors.New("stack allocator exhausted")
	ErrQueueFull             = errors.New("queue is full")
	ErrQueueEmpty            = errors.New("queue is empty")
	ErrDeviceLost            = errors.New("device lost")
	ErrUnknown               = errors.New("unknown")
)

type GfxError struct {
	Op       string
	Reason   error
	File     string
	Line     int
	Function string
}

// NewError wraps reason for the operation op and records where it was raised.
// If reason already is a *GfxError it is returned untouched so the
// original location survives propagation.
func NewError(op string, reason error) error {
	if reason == nil {
		reason = ErrUnknown
	}
	var existing *GfxError
	if errors.As(reason, &existing) {
		return reason
	}
	gerr := &GfxError{Op: op, Reason: reason}
	if pc, file, line, ok := runtime.Caller(1); ok {
		gerr.File = filepath.Base(file)
		gerr.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			gerr.Function = fn.Name()
		}
	}
	return gerr
}

// Errorf is NewError with a formatted reason wrapping base.
func Errorf(op string, base error, format string, args ...interface{}) error {
	gerr := &GfxError{Op: op, Reason: fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))}
	if pc, file, line, ok := runtime.Caller(1); ok {
		gerr.File = filepath.Base(file)
		gerr.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			gerr.Function = fn.Name()
		}
	}
	return gerr
}

func (e *GfxError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Op, ErrNotSpecified, e.Reason)
}

func (e *GfxError) Unwrap() []error {
	return []error{ErrNotSpecified, e.Reason}
}

// Guard runs fn and turns a panic raised by a wrapped library into a *GfxError.
func Guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			gerr := &GfxError{Op: op, Reason: fmt.Errorf("%w: panic: %v", ErrUnknown, r), Function: op}
			if frame, ok := panicSite(); ok {
				gerr.File = filepath.Base(frame.File)
				gerr.Line = frame.Line
				gerr.Function = frame.Function
			}
			err = gerr
		}
	}()
	if err := fn(); err != nil {
		return NewError(op, err)
	}
	return nil
}

// panicSite returns the innermost frame outside the runtime while a
// deferred function of Guard is recovering.
func panicSite() (runtime.Frame, bool) {
	pcs := make([]uintptr, 32)
	// skip runtime.Callers, panicSite and the deferred closure
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			return frame, true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}

// Teardown runs a cleanup step. Its failure is logged and swallowed so
// that it never masks the error that triggered the unwind.
func Teardown(op string, fn func() error) {
	if err := Guard(op, fn); err != nil {
		LogGfxError(err)
	}
}
