package core

import (
	"time"

	"github.com/vovakirdan/messenger-server/internal/store"
)

// GetTokenRequest asks for a session token.
type GetTokenRequest struct {
	Username string
	Password string
}

// AddUserRequest registers a user. Admin only.
type AddUserRequest struct {
	AdminToken string
	Username   string
}

// AddUserResult is either the created username or, for a duplicate, a
// per-field error payload. A duplicate is not reported as an error.
type AddUserResult struct {
	Username string
	Errors   map[string]string
}

// AddChannelRequest creates or resets a channel. Admin only.
type AddChannelRequest struct {
	AdminToken string
	Channel    string
}

// SendMessageRequest appends a message authored by the token owner.
type SendMessageRequest struct {
	Token   string
	Channel string
	Message string
	Files   []store.Attachment
}

// SentMessage is the acknowledgement of SendMessage. Attachments are not echoed.
type SentMessage struct {
	Timestamp float64
	User      string
	Message   string
}

// ReadChannelRequest lists messages with TS >= FromTimestamp.
type ReadChannelRequest struct {
	Token         string
	Channel       string
	FromTimestamp float64
}

// CleanDBRequest resets the whole state. Admin only.
type CleanDBRequest struct {
	AdminToken string
}

// SubscribeRequest opens a live feed of one channel.
type SubscribeRequest struct {
	Token   string
	Channel string
}

// Timestamp converts t to float seconds since the Unix epoch.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
