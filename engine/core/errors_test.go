package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNewErrorMatchesKindAndReason(t *testing.T) {
	err := NewError("begin_window", ErrRendererInFlight)
	if !errors.Is(err, ErrNotSpecified) {
		t.Fatalf("errors.Is(err, ErrNotSpecified) is false for %v", err)
	}
	if !errors.Is(err, ErrRendererInFlight) {
		t.Fatalf("errors.Is(err, ErrRendererInFlight) is false for %v", err)
	}
	var gerr *GfxError
	if !errors.As(err, &gerr) {
		t.Fatalf("errors.As failed for %v", err)
	}
	if gerr.File != "errors_test.go" || gerr.Line == 0 {
		t.Fatalf("location:\nhave %s:%d\nwant errors_test.go:<line>", gerr.File, gerr.Line)
	}
}

func TestNewErrorKeepsOriginalLocation(t *testing.T) {
	inner := NewError("inner", ErrDeviceLost)
	outer := NewError("outer", inner)
	if outer != inner {
		t.Fatalf("NewError rewrapped an existing *GfxError")
	}
}

func TestGuardCollapsesPanics(t *testing.T) {
	err := Guard("adapter", func() error {
		panic("native failure")
	})
	if !errors.Is(err, ErrNotSpecified) {
		t.Fatalf("Guard:\nhave %v\nwant a not_specified error", err)
	}
	if err := Guard("adapter", func() error { return nil }); err != nil {
		t.Fatalf("Guard:\nhave %v\nwant nil", err)
	}
}

func outOfRange(values []int) int {
	return values[3]
}

func TestGuardRecordsPanicSite(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
		want string
	}{
		{"explicit", func() error { panic("native failure") }, "TestGuardRecordsPanicSite"},
		{"runtime", func() error { return errors.New(string(rune(outOfRange(nil)))) }, "outOfRange"},
	}
	for _, tt := range tests {
		var gerr *GfxError
		if err := Guard("adapter", tt.fn); !errors.As(err, &gerr) {
			t.Fatalf("%s: have %v\nwant a *GfxError", tt.name, err)
		}
		if gerr.File != "errors_test.go" || gerr.Line == 0 || !strings.Contains(gerr.Function, tt.want) {
			t.Fatalf("%s: have %s:%d %s\nwant errors_test.go:<line> in %s", tt.name, gerr.File, gerr.Line, gerr.Function, tt.want)
		}
	}
}

func TestTeardownSwallowsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(io.Discard)

	Teardown("release", func() error { return ErrDeviceLost })
	if !strings.Contains(buf.String(), "gfx_error :: not_specified") {
		t.Fatalf("log output:\nhave %q\nwant it to mention gfx_error :: not_specified", buf.String())
	}
}
