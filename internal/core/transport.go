package core

import (
	"context"
	"time"
)

// PlayResult is the transport's reply to a play request. A non-empty Error
// means the host rejected the file even though the call itself succeeded.
type PlayResult struct {
	Error string `json:"error,omitempty"`
}

// Failed returns true if the host reported an error payload.
func (r PlayResult) Failed() bool {
	return r.Error != ""
}

// Transport opens episode files on the playback host.
type Transport interface {
	// Play asks the host to start playing episode. A returned error means the
	// request could not be delivered (errors.ErrTransportUnavailable when the
	// host is absent).
	Play(ctx context.Context, episode string) (PlayResult, error)
}

// EventType identifies a playback lifecycle event.
type EventType int

const (
	// EventEnded fires when an episode played through to its end.
	EventEnded EventType = iota
	// EventError fires when an episode that had started fails mid-playback.
	EventError
	// EventStopped fires when the viewer stopped playback.
	EventStopped
)

func (t EventType) String() string {
	switch t {
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is a playback lifecycle notification from the transport.
type Event struct {
	Type      EventType `json:"type"`
	Episode   string    `json:"episode,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHandler receives playback events.
type EventHandler func(Event)

// EventSource delivers playback events to registered handlers.
type EventSource interface {
	// Subscribe registers h and returns a function that unregisters it.
	Subscribe(h EventHandler) (unsubscribe func())
}
