package proto

// TokenResponse is returned by get_token.
type TokenResponse struct {
	Token string `json:"token"`
}

// UsernameResponse is returned by add_user on success.
type UsernameResponse struct {
	Username string `json:"username"`
}

// ChannelResponse is returned by add_channel.
type ChannelResponse struct {
	Channel string `json:"channel"`
}

// ErrorsResponse maps request fields to error messages. It is used both for
// rejected requests and for the add_user duplicate payload.
type ErrorsResponse struct {
	Errors map[string]string `json:"errors"`
}

// SentMessage acknowledges send_message.
type SentMessage struct {
	Timestamp float64 `json:"timestamp"`
	User      string  `json:"user"`
	Message   string  `json:"message"`
}

// File is an attachment as rendered on the wire. Data is base64 in JSON.
type File struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `json:"data"`
}

// MessageRecord is one entry of read_channel.
type MessageRecord struct {
	User    string  `json:"user"`
	TS      float64 `json:"ts"`
	Message string  `json:"message"`
	Files   []File  `json:"files"`
}

// MessagesResponse is returned by read_channel.
type MessagesResponse struct {
	Messages []MessageRecord `json:"messages"`
}

// Feed event names.
const (
	FeedEventMessage      = "message"
	FeedEventChannelReset = "channel_reset"
	FeedEventReset        = "reset"
)

// FeedEvent is pushed to live feed subscribers.
type FeedEvent struct {
	Event   string         `json:"event"`
	Channel string         `json:"channel,omitempty"`
	Message *MessageRecord `json:"message,omitempty"`
}
