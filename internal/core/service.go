package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/auth"
	"github.com/vovakirdan/messenger-server/internal/store"
)

// Service exposes the session and admin operations. Each operation runs its
// guards and its body inside a single store transaction.
type Service struct {
	store  store.Store
	digest auth.Digester
	hub    *Hub
	log    *zerolog.Logger
	now    func() time.Time
}

// NewService creates the operations layer. hub may be nil to disable live feeds.
func NewService(st store.Store, digest auth.Digester, hub *Hub, logger *zerolog.Logger) *Service {
	if digest == nil {
		digest = auth.SHA224
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:  st,
		digest: digest,
		hub:    hub,
		log:    logger,
		now:    time.Now,
	}
}

// GetToken issues the token for username/password. The password is not
// checked against anything; the derived token is the credential.
func (s *Service) GetToken(ctx context.Context, req GetTokenRequest) (string, error) {
	var token string
	err := s.store.Update(ctx, func(tx store.Tx) error {
		username, err := validUser(tx, req.Username)
		if err != nil {
			return err
		}

		token = s.digest(username, req.Password)
		if err := tx.PutToken(token, username); err != nil {
			return err
		}
		return tx.SetUserToken(username, token)
	})
	if err != nil {
		s.reject("get_token", err)
		return "", err
	}
	return token, nil
}

// AddUser registers a user. A taken username yields a result with Errors set
// and a nil error.
func (s *Service) AddUser(ctx context.Context, req AddUserRequest) (AddUserResult, error) {
	var result AddUserResult
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := validAdminToken(tx, req.AdminToken); err != nil {
			return err
		}

		if err := tx.CreateUser(req.Username); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				result.Errors = map[string]string{"username": "Username already exists"}
				return nil
			}
			return err
		}
		result.Username = req.Username
		return nil
	})
	if err != nil {
		s.reject("add_user", err)
		return AddUserResult{}, err
	}

	if result.Errors == nil {
		s.log.Info().Str("username", result.Username).Msg("user added")
	}
	return result, nil
}

// AddChannel creates the channel, or empties its log if it already exists.
func (s *Service) AddChannel(ctx context.Context, req AddChannelRequest) (string, error) {
	var existed bool
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := validAdminToken(tx, req.AdminToken); err != nil {
			return err
		}

		existed = tx.ChannelExists(req.Channel)
		if err := tx.ResetChannel(req.Channel); err != nil {
			return err
		}
		if existed {
			s.publish(&Event{Kind: EventChannelReset, Channel: req.Channel})
		}
		return nil
	})
	if err != nil {
		s.reject("add_channel", err)
		return "", err
	}

	if existed {
		s.log.Warn().Str("channel", req.Channel).Msg("channel re-created, log cleared")
	} else {
		s.log.Info().Str("channel", req.Channel).Msg("channel added")
	}
	return req.Channel, nil
}

// SendMessage appends a message to a channel.
func (s *Service) SendMessage(ctx context.Context, req SendMessageRequest) (SentMessage, error) {
	var stored store.Message
	err := s.store.Update(ctx, func(tx store.Tx) error {
		username, err := validToken(tx, req.Token)
		if err != nil {
			return err
		}
		if _, err := validChannel(tx, req.Channel); err != nil {
			return err
		}

		stored, err = tx.AppendMessage(req.Channel, store.Message{
			User:  username,
			TS:    Timestamp(s.now()),
			Text:  req.Message,
			Files: req.Files,
		})
		if err != nil {
			return err
		}
		s.publish(&Event{Kind: EventMessage, Channel: req.Channel, Message: stored})
		return nil
	})
	if err != nil {
		s.reject("send_message", err)
		return SentMessage{}, err
	}

	s.log.Debug().Str("channel", req.Channel).Str("user", stored.User).Int("files", len(stored.Files)).Msg("message stored")
	return SentMessage{Timestamp: stored.TS, User: stored.User, Message: stored.Text}, nil
}

// ReadChannel returns the messages of a channel with TS >= FromTimestamp, oldest first.
func (s *Service) ReadChannel(ctx context.Context, req ReadChannelRequest) ([]store.Message, error) {
	var messages []store.Message
	err := s.store.View(ctx, func(tx store.Tx) error {
		if _, err := validToken(tx, req.Token); err != nil {
			return err
		}
		if _, err := validChannel(tx, req.Channel); err != nil {
			return err
		}

		var err error
		messages, err = tx.MessagesSince(req.Channel, req.FromTimestamp)
		return err
	})
	if err != nil {
		s.reject("read_channel", err)
		return nil, err
	}
	return messages, nil
}

// CleanDB drops every user, token and channel and re-seeds the admin user.
func (s *Service) CleanDB(ctx context.Context, req CleanDBRequest) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := validAdminToken(tx, req.AdminToken); err != nil {
			return err
		}
		if err := tx.Reset(); err != nil {
			return err
		}
		s.publish(&Event{Kind: EventReset})
		return nil
	})
	if err != nil {
		s.reject("clean_db", err)
		return err
	}

	s.log.Info().Msg("state reset")
	return nil
}

// Subscribe validates the request and attaches a new subscriber to the hub.
// Registration is queued while the store is locked, so a later reset always
// reaches the subscriber.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest, id string, buffer int) (*Subscriber, error) {
	if s.hub == nil {
		return nil, errors.New("live feed disabled")
	}

	var sub *Subscriber
	err := s.store.View(ctx, func(tx store.Tx) error {
		username, err := validToken(tx, req.Token)
		if err != nil {
			return err
		}
		if _, err := validChannel(tx, req.Channel); err != nil {
			return err
		}

		sub = NewSubscriber(id, username, req.Channel, buffer)
		s.hub.Subscribe(sub)
		return nil
	})
	if err != nil {
		s.reject("subscribe", err)
		return nil, err
	}
	return sub, nil
}

// Unsubscribe detaches a subscriber returned by Subscribe.
func (s *Service) Unsubscribe(sub *Subscriber) {
	if s.hub != nil && sub != nil {
		s.hub.Unsubscribe(sub)
	}
}

func (s *Service) publish(ev *Event) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}

func (s *Service) reject(op string, err error) {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		s.log.Debug().Str("op", op).Str("code", coreErr.Code).Msg("request rejected")
		return
	}
	s.log.Error().Err(err).Str("op", op).Msg("operation failed")
}
