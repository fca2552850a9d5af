package core

// Subscriber is a live feed consumer attached to one channel.
type Subscriber struct {
	ID      string
	User    string
	Channel string
	Events  chan *Event
}

// NewSubscriber constructs a subscriber with a buffered event queue.
func NewSubscriber(id, user, channel string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 8
	}
	return &Subscriber{
		ID:      id,
		User:    user,
		Channel: channel,
		Events:  make(chan *Event, buffer),
	}
}
