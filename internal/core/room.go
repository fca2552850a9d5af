package core

// Room is the set of live feed subscriptions on one channel. It is owned by
// the hub goroutine and never locked.
type Room struct {
	Name        string
	subscribers map[*Subscriber]struct{}
}

// NewRoom returns a room for channel name with no subscriptions.
func NewRoom(name string) *Room {
	return &Room{
		Name:        name,
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// Add subscribes s to the channel. It reports false if s is already subscribed.
func (r *Room) Add(s *Subscriber) bool {
	if _, ok := r.subscribers[s]; ok {
		return false
	}
	r.subscribers[s] = struct{}{}
	return true
}

// Remove ends the subscription of s. It reports false if s was not subscribed,
// in which case the caller must not close s.Events.
func (r *Room) Remove(s *Subscriber) bool {
	if _, ok := r.subscribers[s]; !ok {
		return false
	}
	delete(r.subscribers, s)
	return true
}

// Broadcast offers event to every subscriber without blocking and returns how
// many full queues missed it.
func (r *Room) Broadcast(event *Event) (dropped int) {
	for s := range r.subscribers {
		select {
		case s.Events <- event:
		default:
			dropped++
		}
	}
	return dropped
}

// Empty reports whether the channel has no subscriptions left.
func (r *Room) Empty() bool {
	return len(r.subscribers) == 0
}
