package core

import "github.com/vovakirdan/messenger-server/internal/store"

// EventKind is a notification the hub emits to subscribers.
type EventKind int

const (
	// EventMessage carries a message just appended to a channel.
	EventMessage EventKind = iota
	// EventChannelReset reports that a channel was re-created with an empty log.
	EventChannelReset
	// EventReset reports a full reset. Subscriptions end right after it.
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventChannelReset:
		return "channel_reset"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event is sent to subscribers to describe what happened in a channel.
type Event struct {
	Kind    EventKind
	Channel string
	Message store.Message
}
