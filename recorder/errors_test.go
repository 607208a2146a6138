package recorder

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"murmur/audio"
)

func TestClassifyOpenError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want CaptureKind
	}{
		{"no device sentinel", audio.ErrNoDevice, CaptureDeviceAbsent},
		{"permission sentinel", audio.ErrPermission, CapturePermissionDenied},
		{"wrapped sentinel", fmt.Errorf("open: %w", audio.ErrNoDevice), CaptureDeviceAbsent},
		{"denied text", errors.New("pulseaudio: access denied"), CapturePermissionDenied},
		{"not authorized text", errors.New("client is not authorized"), CapturePermissionDenied},
		{"not found text", errors.New("source not found"), CaptureDeviceAbsent},
		{"anything else", errors.New("device is exclusively held"), CaptureDeviceBusy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ce := classifyOpenError(tc.err)
			if ce.Kind != tc.want {
				t.Errorf("kind = %v, want %v", ce.Kind, tc.want)
			}
			if !errors.Is(ce, tc.err) {
				t.Errorf("classified error does not unwrap to the cause")
			}
		})
	}
}

func TestCaptureErrorMessages(t *testing.T) {
	cases := []struct {
		kind CaptureKind
		want string
	}{
		{CapturePermissionDenied, "permission"},
		{CaptureDeviceAbsent, "microphone"},
		{CaptureTooShort, "too short"},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			e := &CaptureError{Kind: tc.kind, Err: errors.New("cause")}
			if msg := e.Error(); !strings.Contains(msg, tc.want) {
				t.Errorf("message %q does not mention %q", msg, tc.want)
			}
		})
	}
}

func TestCaptureKindString(t *testing.T) {
	if got := CaptureTooShort.String(); got != "too-short" {
		t.Errorf("String = %q, want too-short", got)
	}
	if got := CaptureKind(99).String(); got != "unknown" {
		t.Errorf("String = %q, want unknown", got)
	}
}
