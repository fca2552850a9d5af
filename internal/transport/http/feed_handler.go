package http

import (
	"context"
	"errors"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/core"
	"github.com/vovakirdan/messenger-server/internal/utils"
)

// FeedRequest represents the feed query.
type FeedRequest struct {
	Token   string `form:"token"`
	Channel string `form:"channel" binding:"required"`
}

// FeedHandler streams channel events to a websocket.
type FeedHandler struct {
	svc    *core.Service
	buffer int
	log    *zerolog.Logger
}

// NewFeedHandler builds a new feed handler.
func NewFeedHandler(svc *core.Service, buffer int, logger *zerolog.Logger) *FeedHandler {
	return &FeedHandler{svc: svc, buffer: buffer, log: logger}
}

// Serve validates the request, then upgrades to a websocket.
// GET /feed?token=<token>&channel=linuxusers
func (h *FeedHandler) Serve(c *gin.Context) {
	var req FeedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	sub, err := h.svc.Subscribe(c.Request.Context(), core.SubscribeRequest{
		Token:   req.Token,
		Channel: req.Channel,
	}, utils.NewID(), h.buffer)
	if err != nil {
		writeCoreError(c, h.log, err)
		return
	}
	defer h.svc.Unsubscribe(sub)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	// The feed is one-way; CloseRead discards inbound frames and cancels
	// ctx when the peer goes away.
	ctx := conn.CloseRead(c.Request.Context())

	err = h.writeLoop(ctx, conn, sub)
	switch {
	case err == nil:
		conn.Close(websocket.StatusNormalClosure, "feed closed")
	case errors.Is(err, context.Canceled):
		conn.Close(websocket.StatusNormalClosure, "closing")
	default:
		h.log.Warn().Err(err).Str("subscriber", sub.ID).Msg("ws feed closed with error")
		conn.Close(websocket.StatusInternalError, err.Error())
	}
}

// writeLoop returns nil once the hub closes the subscriber queue.
func (h *FeedHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *core.Subscriber) error {
	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, feedEventFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("subscriber", sub.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
