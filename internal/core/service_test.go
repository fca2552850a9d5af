package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/messenger-server/internal/auth"
	"github.com/vovakirdan/messenger-server/internal/store"
	"github.com/vovakirdan/messenger-server/internal/store/memory"
)

// fakeClock advances by one second on every reading.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(t *testing.T, hub *Hub) *Service {
	t.Helper()

	st := memory.New()
	t.Cleanup(func() { _ = st.Close() })

	svc := NewService(st, auth.SHA224, hub, nil)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	svc.now = clock.Now
	return svc
}

func adminToken(t *testing.T, svc *Service) string {
	t.Helper()

	token, err := svc.GetToken(context.Background(), GetTokenRequest{Username: "admin", Password: "admin"})
	require.NoError(t, err)
	return token
}

func TestGetToken_Deterministic(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.GetToken(ctx, GetTokenRequest{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	second, err := svc.GetToken(ctx, GetTokenRequest{Username: "admin", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, auth.SHA224("admin", "secret"), first)
}

func TestGetToken_UnknownUser(t *testing.T) {
	svc := newTestService(t, nil)

	for _, password := range []string{"", "admin", "whatever"} {
		_, err := svc.GetToken(context.Background(), GetTokenRequest{Username: "ghost", Password: password})
		require.ErrorIs(t, err, ErrUserNotFound)
	}
}

func TestGetToken_SupersededTokensStayValid(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	old, err := svc.GetToken(ctx, GetTokenRequest{Username: "admin", Password: "one"})
	require.NoError(t, err)
	current, err := svc.GetToken(ctx, GetTokenRequest{Username: "admin", Password: "two"})
	require.NoError(t, err)
	require.NotEqual(t, old, current)

	_, err = svc.AddChannel(ctx, AddChannelRequest{AdminToken: old, Channel: "general"})
	require.NoError(t, err)

	require.NoError(t, svc.store.View(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser("admin")
		require.NoError(t, err)
		assert.Equal(t, current, u.Token)
		return nil
	}))
}

func TestAddUser(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	admin := adminToken(t, svc)

	res, err := svc.AddUser(ctx, AddUserRequest{AdminToken: admin, Username: "carmack"})
	require.NoError(t, err)
	assert.Equal(t, "carmack", res.Username)
	assert.Nil(t, res.Errors)

	token, err := svc.GetToken(ctx, GetTokenRequest{Username: "carmack", Password: "pw"})
	require.NoError(t, err)

	// Duplicate is reported as data and leaves the user untouched.
	res, err = svc.AddUser(ctx, AddUserRequest{AdminToken: admin, Username: "carmack"})
	require.NoError(t, err)
	assert.Empty(t, res.Username)
	assert.Equal(t, map[string]string{"username": "Username already exists"}, res.Errors)

	require.NoError(t, svc.store.View(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser("carmack")
		require.NoError(t, err)
		assert.Equal(t, token, u.Token)
		return nil
	}))

	// Adding the reserved admin name is a duplicate as well.
	res, err = svc.AddUser(ctx, AddUserRequest{AdminToken: admin, Username: "admin"})
	require.NoError(t, err)
	assert.NotNil(t, res.Errors)
}

func TestAdminOperations_RejectTokens(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	admin := adminToken(t, svc)

	_, err := svc.AddUser(ctx, AddUserRequest{AdminToken: admin, Username: "carmack"})
	require.NoError(t, err)
	user, err := svc.GetToken(ctx, GetTokenRequest{Username: "carmack", Password: "pw"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"never issued", "bogus", ErrInvalidToken},
		{"empty", "", ErrInvalidToken},
		{"non-admin", user, ErrInvalidAdminToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddUser(ctx, AddUserRequest{AdminToken: tt.token, Username: "x"})
			assert.ErrorIs(t, err, tt.want)

			_, err = svc.AddChannel(ctx, AddChannelRequest{AdminToken: tt.token, Channel: "x"})
			assert.ErrorIs(t, err, tt.want)

			err = svc.CleanDB(ctx, CleanDBRequest{AdminToken: tt.token})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// Failed calls leave state unchanged.
	require.NoError(t, svc.store.View(ctx, func(tx store.Tx) error {
		assert.False(t, tx.UserExists("x"))
		assert.False(t, tx.ChannelExists("x"))
		assert.True(t, tx.UserExists("carmack"))
		return nil
	}))
}

func TestUserOperations_RejectInvalidTokenAndChannel(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	admin := adminToken(t, svc)

	_, err := svc.AddChannel(ctx, AddChannelRequest{AdminToken: admin, Channel: "general"})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, SendMessageRequest{Token: "bogus", Channel: "general", Message: "hi"})
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.ReadChannel(ctx, ReadChannelRequest{Token: "bogus", Channel: "general"})
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.SendMessage(ctx, SendMessageRequest{Token: admin, Channel: "missing", Message: "hi"})
	require.ErrorIs(t, err, ErrChannelNotFound)
	_, err = svc.ReadChannel(ctx, ReadChannelRequest{Token: admin, Channel: "missing"})
	require.ErrorIs(t, err, ErrChannelNotFound)

	// Token is checked before the channel.
	_, err = svc.SendMessage(ctx, SendMessageRequest{Token: "bogus", Channel: "missing"})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSendAndRead_PreservesOrder(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	admin := adminToken(t, svc)

	_, err := svc.AddUser(ctx, AddUserRequest{AdminToken: admin, Username: "carmack"})
	require.NoError(t, err)
	user, err := svc.GetToken(ctx, GetTokenRequest{Username: "carmack", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.AddChannel(ctx, AddChannelRequest{AdminToken: admin, Channel: "general"})
	require.NoError(t, err)

	files := []store.Attachment{{ID: "f1", Name: "cat.jpg", ContentType: "image/jpeg", Size: 3, Data: []byte{1, 2, 3}}}
	sends := []SendMessageRequest{
		{Token: admin, Channel: "general", Message: "one"},
		{Token: user, Channel: "general", Message: "two", Files: files},
		{Token: admin, Channel: "general", Message: "three"},
	}

	var acks []SentMessage
	for _, req := range sends {
		ack, err := svc.SendMessage(ctx, req)
		require.NoError(t, err)
		acks = append(acks, ack)
	}
	assert.Equal(t, "carmack", acks[1].User)
	assert.Equal(t, "two", acks[1].Message)

	msgs, err := svc.ReadChannel(ctx, ReadChannelRequest{Token: user, Channel: "general", FromTimestamp: 0})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, sends[i].Message, m.Text)
		assert.Equal(t, acks[i].Timestamp, m.TS)
		assert.Equal(t, acks[i].User, m.User)
	}
	assert.Equal(t, files, msgs[1].Files)
	assert.Empty(t, msgs[0].Files)
}

func TestReadChannel_TimestampFilterIsMonotonic(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	admin := adminToken(t, svc)

	_, err := svc.AddChannel(ctx, AddChannelRequest{AdminToken: admin, Channel: "general"})
	require.NoError(t, err)

	var acks []SentMessage
	for _, text := range []string{"a", "b", "c", "d"} {
		ack, err := svc.SendMessage(ctx, SendMessageRequest{Token: admin, Channel: "general", Message: text})
		require.NoError(t, err)
		acks = append(acks, ack)
	}

	prev := len(acks) + 1
	for i, ack := range acks {
		msgs, err := svc.ReadChannel(ctx, ReadChannelRequest{Token: admin, Channel: "general", FromTimestamp: ack.Timestamp})
		require.NoError(t, err)
		require.Len(t, msgs, len(acks)-i)
		assert.Equal(t, ack.Message, msgs[0].Text)
		assert.LessOrEqual(t, len(msgs), prev)
		prev = len(msgs)
	}

	msgs, err := svc.ReadChannel(ctx, ReadChannelRequest{Token: admin, Channel: "general", FromTimestamp: acks[3].Timestamp + 1})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAddChannel_RecreateClearsLog(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	admin := adminToken(t, svc)

	name, err := svc.AddChannel(ctx, AddChannelRequest{AdminToken: admin, Channel: "general"})
	require.NoError(t, err)
	assert.Equal(t, "general", name)

	_, err = svc.SendMessage(ctx, SendMessageRequest{Token: admin, Channel: "general", Message: "hello"})
	require.NoError(t, err)

	_, err = svc.AddChannel(ctx, AddChannelRequest{AdminToken: admin, Channel: "general"})
	require.NoError(t, err)

	msgs, err := svc.ReadChannel(ctx, ReadChannelRequest{Token: admin, Channel: "general"})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestCleanDB(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	admin := adminToken(t, svc)

	_, err := svc.AddUser(ctx, AddUserRequest{AdminToken: admin, Username: "carmack"})
	require.NoError(t, err)
	user, err := svc.GetToken(ctx, GetTokenRequest{Username: "carmack", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.AddChannel(ctx, AddChannelRequest{AdminToken: admin, Channel: "general"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, SendMessageRequest{Token: user, Channel: "general", Message: "hi"})
	require.NoError(t, err)

	require.NoError(t, svc.CleanDB(ctx, CleanDBRequest{AdminToken: admin}))

	// Old tokens are gone, including the admin's own.
	_, err = svc.ReadChannel(ctx, ReadChannelRequest{Token: user, Channel: "general"})
	require.ErrorIs(t, err, ErrInvalidToken)
	err = svc.CleanDB(ctx, CleanDBRequest{AdminToken: admin})
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.GetToken(ctx, GetTokenRequest{Username: "carmack", Password: "pw"})
	require.ErrorIs(t, err, ErrUserNotFound)

	admin = adminToken(t, svc)
	_, err = svc.ReadChannel(ctx, ReadChannelRequest{Token: admin, Channel: "general"})
	require.ErrorIs(t, err, ErrChannelNotFound)
}

func TestScenario_AdminGeneralHello(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	token, err := svc.GetToken(ctx, GetTokenRequest{Username: "admin", Password: "admin"})
	require.NoError(t, err)

	_, err = svc.AddChannel(ctx, AddChannelRequest{AdminToken: token, Channel: "general"})
	require.NoError(t, err)

	ack, err := svc.SendMessage(ctx, SendMessageRequest{Token: token, Channel: "general", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "admin", ack.User)
	assert.Equal(t, "hello", ack.Message)

	msgs, err := svc.ReadChannel(ctx, ReadChannelRequest{Token: token, Channel: "general", FromTimestamp: 0})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)

	msgs, err = svc.ReadChannel(ctx, ReadChannelRequest{Token: token, Channel: "general", FromTimestamp: ack.Timestamp + 1})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestConcurrentSendsAndReset(t *testing.T) {
	svc := newTestService(t, nil)
	svc.now = time.Now
	ctx := context.Background()
	admin := adminToken(t, svc)

	_, err := svc.AddChannel(ctx, AddChannelRequest{AdminToken: admin, Channel: "general"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, err := svc.SendMessage(ctx, SendMessageRequest{Token: admin, Channel: "general", Message: "m"})
				if err != nil {
					assert.ErrorIs(t, err, ErrInvalidToken)
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.CleanDB(ctx, CleanDBRequest{AdminToken: admin}))
	}()
	wg.Wait()

	// Every send either landed before the reset or was rejected after it.
	admin = adminToken(t, svc)
	_, err = svc.ReadChannel(ctx, ReadChannelRequest{Token: admin, Channel: "general"})
	require.ErrorIs(t, err, ErrChannelNotFound)
}

func TestSubscribe_ReceivesLiveEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	svc := newTestService(t, hub)
	admin := adminToken(t, svc)

	_, err := svc.Subscribe(ctx, SubscribeRequest{Token: admin, Channel: "general"}, "s1", 8)
	require.ErrorIs(t, err, ErrChannelNotFound)

	_, err = svc.AddChannel(ctx, AddChannelRequest{AdminToken: admin, Channel: "general"})
	require.NoError(t, err)

	sub, err := svc.Subscribe(ctx, SubscribeRequest{Token: admin, Channel: "general"}, "s1", 8)
	require.NoError(t, err)
	assert.Equal(t, "admin", sub.User)

	_, err = svc.SendMessage(ctx, SendMessageRequest{Token: admin, Channel: "general", Message: "hello"})
	require.NoError(t, err)
	ev := mustEvent(t, sub.Events, EventMessage)
	assert.Equal(t, "hello", ev.Message.Text)

	_, err = svc.AddChannel(ctx, AddChannelRequest{AdminToken: admin, Channel: "general"})
	require.NoError(t, err)
	mustEvent(t, sub.Events, EventChannelReset)

	require.NoError(t, svc.CleanDB(ctx, CleanDBRequest{AdminToken: admin}))
	mustEvent(t, sub.Events, EventReset)
	mustClose(t, sub.Events)
}

func TestSubscribe_DisabledWithoutHub(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Subscribe(context.Background(), SubscribeRequest{Token: "x", Channel: "y"}, "s", 8)
	require.Error(t, err)
}
