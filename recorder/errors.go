package recorder

import (
	"errors"
	"fmt"
	"strings"

	"murmur/audio"
)

// Sentinel results for calls that arrive in the wrong state. These are state
// answers, not failures.
var (
	ErrAlreadyRecording = errors.New("a recording is already active")
	ErrNotRecording     = errors.New("no recording is active")
)

// CaptureKind classifies recording failures. Provider failures never appear
// here; they carry their own taxonomy.
type CaptureKind int

const (
	CapturePermissionDenied CaptureKind = iota
	CaptureDeviceAbsent
	CaptureDeviceBusy
	CaptureTooShort
	CaptureEncodeFailed
)

func (k CaptureKind) String() string {
	switch k {
	case CapturePermissionDenied:
		return "permission-denied"
	case CaptureDeviceAbsent:
		return "device-absent"
	case CaptureDeviceBusy:
		return "device-busy"
	case CaptureTooShort:
		return "too-short"
	case CaptureEncodeFailed:
		return "encode-failed"
	}
	return "unknown"
}

type CaptureError struct {
	Kind CaptureKind
	Err  error
}

func (e *CaptureError) Error() string {
	switch e.Kind {
	case CapturePermissionDenied:
		return "microphone access denied; check the system permission settings"
	case CaptureDeviceAbsent:
		return "no microphone found; connect an input device"
	case CaptureDeviceBusy:
		return fmt.Sprintf("could not open the microphone: %v", e.Err)
	case CaptureTooShort:
		return "recording too short; hold the hotkey a little longer"
	case CaptureEncodeFailed:
		return fmt.Sprintf("could not encode the recording: %v", e.Err)
	}
	return fmt.Sprintf("capture error: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// classifyOpenError maps a device-open failure to a capture kind. Platform
// backends do not agree on error shapes, so this goes by sentinel first and
// message text second.
func classifyOpenError(err error) *CaptureError {
	if errors.Is(err, audio.ErrNoDevice) {
		return &CaptureError{Kind: CaptureDeviceAbsent, Err: err}
	}
	if errors.Is(err, audio.ErrPermission) {
		return &CaptureError{Kind: CapturePermissionDenied, Err: err}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "denied") || strings.Contains(msg, "permission") || strings.Contains(msg, "not authorized"):
		return &CaptureError{Kind: CapturePermissionDenied, Err: err}
	case strings.Contains(msg, "no device") || strings.Contains(msg, "no such device") || strings.Contains(msg, "not found"):
		return &CaptureError{Kind: CaptureDeviceAbsent, Err: err}
	default:
		return &CaptureError{Kind: CaptureDeviceBusy, Err: err}
	}
}
