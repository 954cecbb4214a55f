package xerrors

import (
	"errors"
	"fmt"
	"time"
)

// Generic
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input provided")
)

// Notification lifecycle
var (
	// ErrTerminalStatus is returned when a status write targets a record that
	// already reached sent or failed with a different status.
	ErrTerminalStatus = errors.New("notification already in terminal status")
)

// ConfigError reports missing transport credentials or store configuration.
// Fatal for the operation, never retried automatically.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return "missing configuration: " + e.Field
}

// ValidationError is surfaced before any persistence occurs.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
	}
	return e.Field + " is required"
}

// ThrottleError carries everything a caller needs to retry with an explicit
// bypass. It never hard-blocks: CanBypass is always true.
type ThrottleError struct {
	RecipientEmail string
	LastSentAt     time.Time
	CanBypass      bool
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("notification to %s throttled, last sent at %s",
		e.RecipientEmail, e.LastSentAt.Format(time.RFC3339))
}

// TransportError is a failed interaction with the mail transport. It is
// captured onto the notification record, never thrown past the dispatcher.
type TransportError struct {
	StatusCode int
	Msg        string
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error (status %d): %s", e.StatusCode, e.Msg)
	}
	return "transport error: " + e.Msg
}
