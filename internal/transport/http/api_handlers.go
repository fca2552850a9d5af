package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/config"
	"github.com/vovakirdan/messenger-server/internal/core"
	"github.com/vovakirdan/messenger-server/internal/proto"
	"github.com/vovakirdan/messenger-server/internal/store"
)

// APIHandlers provides HTTP handlers for the messenger operations.
type APIHandlers struct {
	svc    *core.Service
	limits config.LimitsConfig
	log    *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(svc *core.Service, limits config.LimitsConfig, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		svc:    svc,
		limits: limits,
		log:    logger,
	}
}

// GetTokenRequest represents the get_token query.
type GetTokenRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password"`
}

// AddUserRequest represents the add_user query. Token fields are not
// required: an empty token is rejected by the service as invalid.
type AddUserRequest struct {
	Token    string `form:"token"`
	Username string `form:"username" binding:"required"`
}

// AddChannelRequest represents the add_channel query.
type AddChannelRequest struct {
	Token   string `form:"token"`
	Channel string `form:"channel" binding:"required"`
}

// SendMessageRequest represents the send_message form or JSON body.
// Attachments arrive as multipart "files" parts.
type SendMessageRequest struct {
	Token   string `form:"token" json:"token"`
	Channel string `form:"channel" json:"channel" binding:"required"`
	Message string `form:"message" json:"message"`
}

// ReadChannelRequest represents the read_channel query.
type ReadChannelRequest struct {
	Token         string  `form:"token"`
	Channel       string  `form:"channel" binding:"required"`
	FromTimestamp float64 `form:"from_timestamp"`
}

// CleanDBRequest represents the clean_db query.
type CleanDBRequest struct {
	Token string `form:"token"`
}

// GetToken issues a session token.
// GET /get_token?username=admin&password=admin
func (h *APIHandlers) GetToken(c *gin.Context) {
	var req GetTokenRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	token, err := h.svc.GetToken(c.Request.Context(), core.GetTokenRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeCoreError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, proto.TokenResponse{Token: token})
}

// AddUser registers a user. Admin only. A duplicate username is answered
// with 200 and an errors payload.
// GET /add_user?token=<token>&username=carmack
func (h *APIHandlers) AddUser(c *gin.Context) {
	var req AddUserRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	res, err := h.svc.AddUser(c.Request.Context(), core.AddUserRequest{
		AdminToken: req.Token,
		Username:   req.Username,
	})
	if err != nil {
		writeCoreError(c, h.log, err)
		return
	}

	if res.Errors != nil {
		c.JSON(http.StatusOK, proto.ErrorsResponse{Errors: res.Errors})
		return
	}
	c.JSON(http.StatusOK, proto.UsernameResponse{Username: res.Username})
}

// AddChannel creates a channel, clearing its log if it already exists. Admin only.
// GET /add_channel?token=<token>&channel=linuxusers
func (h *APIHandlers) AddChannel(c *gin.Context) {
	var req AddChannelRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	name, err := h.svc.AddChannel(c.Request.Context(), core.AddChannelRequest{
		AdminToken: req.Token,
		Channel:    req.Channel,
	})
	if err != nil {
		writeCoreError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, proto.ChannelResponse{Channel: name})
}

// SendMessage appends a message, with optional attachments, to a channel.
// POST /send_message
func (h *APIHandlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if lerr := checkMessageLength(h.limits, req.Message); lerr != nil {
		c.JSON(lerr.status, errorsResponse(lerr.field, lerr.msg))
		return
	}

	files, err := h.attachments(c)
	if err != nil {
		var lerr *limitError
		if errors.As(err, &lerr) {
			c.JSON(lerr.status, errorsResponse(lerr.field, lerr.msg))
			return
		}
		h.log.Debug().Err(err).Msg("invalid attachments")
		c.JSON(http.StatusBadRequest, errorsResponse("files", "invalid attachments"))
		return
	}

	sent, err := h.svc.SendMessage(c.Request.Context(), core.SendMessageRequest{
		Token:   req.Token,
		Channel: req.Channel,
		Message: req.Message,
		Files:   files,
	})
	if err != nil {
		writeCoreError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, proto.SentMessage{
		Timestamp: sent.Timestamp,
		User:      sent.User,
		Message:   sent.Message,
	})
}

// ReadChannel lists messages with ts >= from_timestamp (default 0).
// GET /read_channel?token=<token>&channel=linuxusers&from_timestamp=0
func (h *APIHandlers) ReadChannel(c *gin.Context) {
	var req ReadChannelRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	messages, err := h.svc.ReadChannel(c.Request.Context(), core.ReadChannelRequest{
		Token:         req.Token,
		Channel:       req.Channel,
		FromTimestamp: req.FromTimestamp,
	})
	if err != nil {
		writeCoreError(c, h.log, err)
		return
	}

	records := make([]proto.MessageRecord, 0, len(messages))
	for _, m := range messages {
		records = append(records, recordFromMessage(m))
	}
	c.JSON(http.StatusOK, proto.MessagesResponse{Messages: records})
}

// CleanDB removes every user, channel and message. Admin only.
// GET /clean_db?token=<token>
func (h *APIHandlers) CleanDB(c *gin.Context) {
	var req CleanDBRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.svc.CleanDB(c.Request.Context(), core.CleanDBRequest{AdminToken: req.Token}); err != nil {
		writeCoreError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

func (h *APIHandlers) attachments(c *gin.Context) ([]store.Attachment, error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	return readAttachments(h.limits, form.File["files"])
}
