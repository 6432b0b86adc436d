package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for common failure scenarios.
var (
	ErrConfiguration        = errors.New("configuration error")
	ErrShowNotFound         = fmt.Errorf("%w: show not found", ErrConfiguration)
	ErrEmptyDirectory       = fmt.Errorf("%w: no episodes in directory", ErrConfiguration)
	ErrEmptyEpisodeSet      = fmt.Errorf("%w: empty episode set", ErrConfiguration)
	ErrTransport            = errors.New("transport error")
	ErrTransportUnavailable = fmt.Errorf("%w: playback host unavailable", ErrTransport)
	ErrHistoryStore         = errors.New("history store error")
	ErrPlaybackExhausted    = errors.New("playback exhausted")
	ErrPINRejected          = errors.New("incorrect PIN")
	ErrConfigNotFound       = errors.New("config file not found")
	ErrInvalidConfig        = errors.New("invalid configuration")
)

// OneTapError wraps an error with a user-friendly suggestion.
type OneTapError struct {
	Err        error
	Suggestion string
}

func (e *OneTapError) Error() string {
	return e.Err.Error()
}

func (e *OneTapError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &OneTapError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ExhaustedError reports that no candidate episode could be started.
type ExhaustedError struct {
	ShowID   string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("playback exhausted for %s after %d attempts: %v", e.ShowID, e.Attempts, e.Last)
	}
	return fmt.Sprintf("playback exhausted for %s after %d attempts", e.ShowID, e.Attempts)
}

func (e *ExhaustedError) Unwrap() error {
	return ErrPlaybackExhausted
}

// IsConfiguration returns true for errors that must not be retried.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrInvalidConfig)
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	var oneTapErr *OneTapError
	if errors.As(err, &oneTapErr) && oneTapErr.Suggestion != "" {
		return oneTapErr.Suggestion
	}

	errStr := strings.ToLower(err.Error())

	if errors.Is(err, ErrShowNotFound) {
		return "Run 'onetap tiles' to see configured shows"
	}

	if errors.Is(err, ErrEmptyDirectory) || errors.Is(err, ErrEmptyEpisodeSet) {
		return "Check that the show's folder contains .mkv, .mp4 or .avi files"
	}

	if errors.Is(err, ErrTransportUnavailable) || strings.Contains(errStr, "connection refused") {
		return "Make sure the player is running and transport.kodi_url is correct"
	}

	if errors.Is(err, ErrPlaybackExhausted) {
		return "Check that the files in this show's folder play on this device"
	}

	if errors.Is(err, ErrPINRejected) {
		return "Ask the caregiver for the PIN, or clear caregiver.pin in the config file"
	}

	if errors.Is(err, ErrHistoryStore) {
		return "Check permissions on the history file, or run 'onetap history purge'"
	}

	if errors.Is(err, ErrConfigNotFound) || errors.Is(err, ErrInvalidConfig) || strings.Contains(errStr, "config") {
		return "Run 'onetap config init' to create a configuration file"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}

// PartialResult carries whatever a batch operation managed to produce
// alongside the per-item errors it collected.
type PartialResult[T any] struct {
	Data   T
	Errors []error
}

// HasErrors returns true if any item failed.
func (p *PartialResult[T]) HasErrors() bool {
	return len(p.Errors) > 0
}

// AddError records a per-item failure. Nil is ignored.
func (p *PartialResult[T]) AddError(err error) {
	if err != nil {
		p.Errors = append(p.Errors, err)
	}
}

// Err joins the collected errors, or returns nil.
func (p *PartialResult[T]) Err() error {
	return errors.Join(p.Errors...)
}

// ErrorSummary renders the errors one per line, numbered when there is more
// than one.
func (p *PartialResult[T]) ErrorSummary() string {
	switch len(p.Errors) {
	case 0:
		return ""
	case 1:
		return p.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d problems:\n", len(p.Errors))
	for i, err := range p.Errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err)
	}
	return sb.String()
}
