package store

import (
	"context"
	"errors"
)

// AdminUsername is the reserved user seeded at startup and after every reset.
const AdminUsername = "admin"

var (
	// ErrNotFound is returned when a user, token or channel does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when registering a username that is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrReadOnly is returned when a mutation is attempted inside View.
	ErrReadOnly = errors.New("read-only transaction")
)

// User is a registered identity.
type User struct {
	Username string
	// Token is the most recently issued token. Informational only: earlier
	// tokens stay valid in the token registry.
	Token string
}

// Attachment is an opaque file carried by a message.
type Attachment struct {
	ID          string
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Message is an entry of a channel log.
type Message struct {
	User  string
	TS    float64 // seconds since the Unix epoch
	Text  string
	Files []Attachment
}

// UserStore is the identity store.
type UserStore interface {
	// UserExists reports whether username is registered.
	UserExists(username string) bool

	// GetUser returns a copy of the user record.
	GetUser(username string) (*User, error)

	// CreateUser registers an empty user record. Fails with ErrAlreadyExists.
	CreateUser(username string) error

	// SetUserToken records the user's current token.
	SetUserToken(username, token string) error
}

// TokenStore is the token registry.
type TokenStore interface {
	// PutToken maps token to username, overwriting any previous mapping.
	PutToken(token, username string) error

	// ResolveToken returns the username owning token.
	ResolveToken(token string) (string, error)
}

// ChannelStore holds channels and their message logs.
type ChannelStore interface {
	// ChannelExists reports whether the channel has been created.
	ChannelExists(name string) bool

	// ResetChannel creates the channel or replaces its log with an empty one.
	ResetChannel(name string) error

	// AppendMessage appends msg to the channel log and returns the stored copy.
	// The stored timestamp is never lower than the last one in the log.
	AppendMessage(channel string, msg Message) (Message, error)

	// MessagesSince returns every message with TS >= from, oldest first.
	MessagesSince(channel string, from float64) ([]Message, error)
}

// Tx is a view of the whole state inside one critical section.
type Tx interface {
	UserStore
	TokenStore
	ChannelStore

	// Reset drops every user, token and channel and re-seeds the admin user.
	Reset() error
}

// Store owns the shared state and serializes access to it.
type Store interface {
	// View runs fn with shared access. Mutations fail with ErrReadOnly.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn with exclusive access. There is no rollback: fn must
	// finish its checks before it mutates.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the store.
	Close() error
}
