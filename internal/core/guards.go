package core

import (
	"errors"

	"github.com/vovakirdan/messenger-server/internal/store"
)

// Guards run at the start of every operation, inside the same critical
// section as the operation body. They never mutate.

func validUser(tx store.Tx, username string) (string, error) {
	if !tx.UserExists(username) {
		return "", ErrUserNotFound
	}
	return username, nil
}

// validToken returns the username owning token.
func validToken(tx store.Tx, token string) (string, error) {
	username, err := tx.ResolveToken(token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return username, nil
}

func validAdminToken(tx store.Tx, token string) (string, error) {
	username, err := validToken(tx, token)
	if err != nil {
		return "", err
	}
	if !isAdmin(username) {
		return "", ErrInvalidAdminToken
	}
	return username, nil
}

func validChannel(tx store.Tx, channel string) (string, error) {
	if !tx.ChannelExists(channel) {
		return "", ErrChannelNotFound
	}
	return channel, nil
}

// isAdmin derives the role from the owner name only.
func isAdmin(username string) bool {
	return username == store.AdminUsername
}
