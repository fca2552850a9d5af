package memory

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vovakirdan/messenger-server/internal/store"
)

var errClosed = errors.New("store closed")

// memTx is only valid inside the View/Update callback that created it.
type memTx struct {
	s        *MemoryStore
	writable bool
}

// ==== UserStore implementation ====

func (t *memTx) UserExists(username string) bool {
	_, ok := t.s.state.users[username]
	return ok
}

func (t *memTx) GetUser(username string) (*store.User, error) {
	u, ok := t.s.state.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (t *memTx) CreateUser(username string) error {
	if !t.writable {
		return store.ErrReadOnly
	}
	if _, ok := t.s.state.users[username]; ok {
		return fmt.Errorf("user %q: %w", username, store.ErrAlreadyExists)
	}
	t.s.state.users[username] = &store.User{Username: username}
	return nil
}

func (t *memTx) SetUserToken(username, token string) error {
	if !t.writable {
		return store.ErrReadOnly
	}
	u, ok := t.s.state.users[username]
	if !ok {
		return fmt.Errorf("user %q: %w", username, store.ErrNotFound)
	}
	u.Token = token
	return nil
}

// ==== TokenStore implementation ====

func (t *memTx) PutToken(token, username string) error {
	if !t.writable {
		return store.ErrReadOnly
	}
	t.s.state.tokens[token] = username
	return nil
}

func (t *memTx) ResolveToken(token string) (string, error) {
	username, ok := t.s.state.tokens[token]
	if !ok {
		return "", fmt.Errorf("token: %w", store.ErrNotFound)
	}
	return username, nil
}

// ==== ChannelStore implementation ====

func (t *memTx) ChannelExists(name string) bool {
	_, ok := t.s.state.channels[name]
	return ok
}

func (t *memTx) ResetChannel(name string) error {
	if !t.writable {
		return store.ErrReadOnly
	}
	t.s.state.channels[name] = []store.Message{}
	return nil
}

func (t *memTx) AppendMessage(channel string, msg store.Message) (store.Message, error) {
	if !t.writable {
		return store.Message{}, store.ErrReadOnly
	}
	log, ok := t.s.state.channels[channel]
	if !ok {
		return store.Message{}, fmt.Errorf("channel %q: %w", channel, store.ErrNotFound)
	}

	// Wall clocks can step backwards; keep the log ordered anyway.
	if n := len(log); n > 0 && msg.TS < log[n-1].TS {
		msg.TS = log[n-1].TS
	}
	msg = cloneMessage(msg)

	t.s.state.channels[channel] = append(log, msg)
	return cloneMessage(msg), nil
}

func (t *memTx) MessagesSince(channel string, from float64) ([]store.Message, error) {
	log, ok := t.s.state.channels[channel]
	if !ok {
		return nil, fmt.Errorf("channel %q: %w", channel, store.ErrNotFound)
	}

	messages := make([]store.Message, 0, len(log))
	for _, msg := range log {
		if msg.TS >= from {
			messages = append(messages, cloneMessage(msg))
		}
	}
	return messages, nil
}

// cloneMessage copies attachments so the log shares no memory with callers.
func cloneMessage(msg store.Message) store.Message {
	files := make([]store.Attachment, len(msg.Files))
	for i, f := range msg.Files {
		f.Data = slices.Clone(f.Data)
		files[i] = f
	}
	msg.Files = files
	return msg
}

// Reset swaps in a fresh state. Readers never see a partial reset since
// they hold the shared lock.
func (t *memTx) Reset() error {
	if !t.writable {
		return store.ErrReadOnly
	}
	t.s.state = newState()
	return nil
}
