package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable means microphone permission or hardware is
	// missing. Never retried automatically; the user grants access out of
	// band.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrCaptureBusy rejects a second Start while a recording is active.
	ErrCaptureBusy = errors.New("a recording is already in progress")

	// ErrEmptyAudio rejects a turn request with no samples.
	ErrEmptyAudio = errors.New("audio payload is empty")

	// ErrChannelNotOpen rejects a send while the realtime channel is not
	// open. Callers must react; the frame is never dropped silently.
	ErrChannelNotOpen = errors.New("realtime channel is not open")

	// ErrSessionConsumed rejects a confirm on a session that already
	// succeeded or failed. A fresh session id must be obtained.
	ErrSessionConsumed = errors.New("authorization session already consumed")
)

// TurnError wraps a transport-level failure of a one-shot voice turn.
type TurnError struct {
	Cause error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("voice turn failed: %v", e.Cause)
}

func (e *TurnError) Unwrap() error { return e.Cause }

// ProtocolError marks a malformed inbound payload. It is absorbed at the
// channel boundary and only ever logged.
type ProtocolError struct {
	Cause error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed server payload: %v", e.Cause)
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// ServerError is an HTTP-style rejection from a collaborator service.
// Detail carries the machine-readable reason for display.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Detail, e.Status)
}

// VerificationRejected reports whether the server declined an OTP or voice
// factor, as opposed to failing outright.
func (e *ServerError) VerificationRejected() bool {
	return e.Status == 401 || e.Status == 403
}

// Reason extracts the displayable reason from a collaborator failure.
func Reason(err error) string {
	var se *ServerError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return err.Error()
}
