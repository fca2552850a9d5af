package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

const hubQueueSize = 256

// Hub owns live feed subscriptions. All state is confined to the Run goroutine.
type Hub struct {
	commands chan *Command
	stopping chan struct{}
	done     chan struct{}

	// mu guards stopped; enqueuers hold it shared while sending.
	mu      sync.RWMutex
	stopped bool

	rooms map[string]*Room
	log   *zerolog.Logger
}

// NewHub creates a hub. Call Run to start processing.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		commands: make(chan *Command, hubQueueSize),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
		rooms:    make(map[string]*Room),
		log:      logger,
	}
}

// Run processes commands until ctx is canceled, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.stop()
			return
		case cmd := <-h.commands:
			h.handle(cmd)
		}
	}
}

// stop refuses new commands, applies the queued subscription changes and
// closes every subscriber.
func (h *Hub) stop() {
	close(h.stopping)
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()

	h.drain()
	h.closeAll()
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Subscribe attaches s to its channel. If the hub has stopped, s.Events is closed.
func (h *Hub) Subscribe(s *Subscriber) {
	if !h.enqueue(&Command{Kind: CommandSubscribe, Subscriber: s}) {
		close(s.Events)
	}
}

// Unsubscribe detaches s and closes s.Events if it is still attached.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.enqueue(&Command{Kind: CommandUnsubscribe, Subscriber: s})
}

// Publish queues an event for fan-out.
func (h *Hub) Publish(ev *Event) {
	h.enqueue(&Command{Kind: CommandPublish, Event: ev})
}

func (h *Hub) enqueue(cmd *Command) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return false
	}

	select {
	case h.commands <- cmd:
		return true
	case <-h.stopping:
		return false
	}
}

func (h *Hub) handle(cmd *Command) {
	switch cmd.Kind {
	case CommandSubscribe:
		s := cmd.Subscriber
		room, ok := h.rooms[s.Channel]
		if !ok {
			room = NewRoom(s.Channel)
			h.rooms[s.Channel] = room
		}
		if room.Add(s) {
			h.log.Debug().Str("subscriber", s.ID).Str("user", s.User).Str("channel", s.Channel).Msg("feed subscribed")
		}
	case CommandUnsubscribe:
		s := cmd.Subscriber
		room, ok := h.rooms[s.Channel]
		if !ok || !room.Remove(s) {
			return
		}
		close(s.Events)
		if room.Empty() {
			delete(h.rooms, s.Channel)
		}
		h.log.Debug().Str("subscriber", s.ID).Str("channel", s.Channel).Msg("feed unsubscribed")
	case CommandPublish:
		h.publish(cmd.Event)
	}
}

func (h *Hub) publish(ev *Event) {
	if ev.Kind == EventReset {
		for _, room := range h.rooms {
			h.broadcast(room, ev)
		}
		h.closeAll()
		return
	}

	if room, ok := h.rooms[ev.Channel]; ok {
		h.broadcast(room, ev)
	}
}

func (h *Hub) broadcast(room *Room, ev *Event) {
	if dropped := room.Broadcast(ev); dropped > 0 {
		h.log.Debug().Str("channel", room.Name).Str("event", ev.Kind.String()).Int("dropped", dropped).Msg("slow feed subscribers skipped")
	}
}

// drain applies queued subscription changes so closeAll reaches them.
// Nothing can be enqueued once stopped is set.
func (h *Hub) drain() {
	for {
		select {
		case cmd := <-h.commands:
			if cmd.Kind != CommandPublish {
				h.handle(cmd)
			}
		default:
			return
		}
	}
}

func (h *Hub) closeAll() {
	for name, room := range h.rooms {
		for s := range room.subscribers {
			close(s.Events)
		}
		delete(h.rooms, name)
	}
}
