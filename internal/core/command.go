package core

// CommandKind describes what the hub is asked to do.
type CommandKind int

const (
	// CommandSubscribe attaches a subscriber to its channel.
	CommandSubscribe CommandKind = iota
	// CommandUnsubscribe detaches a subscriber and closes its queue.
	CommandUnsubscribe
	// CommandPublish fans an event out.
	CommandPublish
)

// Command is queued to the hub. One queue keeps subscribe and publish in order.
type Command struct {
	Kind       CommandKind
	Subscriber *Subscriber
	Event      *Event
}
