package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/core"
	"github.com/vovakirdan/messenger-server/internal/proto"
	"github.com/vovakirdan/messenger-server/internal/store"
)

func statusForCode(code string) int {
	switch code {
	case core.ErrCodeUserNotFound, core.ErrCodeChannelNotFound:
		return http.StatusNotFound
	case core.ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case core.ErrCodeInvalidAdminToken:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// writeCoreError renders an operation failure as {"errors": {field: message}}.
func writeCoreError(c *gin.Context, logger *zerolog.Logger, err error) {
	var coreErr *core.CoreError
	if errors.As(err, &coreErr) {
		c.JSON(statusForCode(coreErr.Code), errorsResponse(coreErr.Field, coreErr.Message))
		return
	}

	logger.Error().Err(err).Str("request_id", c.GetString(ContextKeyRequestID)).Msg("operation failed")
	c.JSON(http.StatusInternalServerError, errorsResponse("server", "internal server error"))
}

// writeBindError renders a parameter binding failure.
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp := proto.ErrorsResponse{Errors: make(map[string]string, len(verrs))}
		for _, fe := range verrs {
			resp.Errors[fe.Field()] = "Required parameter '" + fe.Field() + "' not supplied"
		}
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	c.JSON(http.StatusBadRequest, errorsResponse("request", "invalid request parameters"))
}

func errorsResponse(field, msg string) proto.ErrorsResponse {
	return proto.ErrorsResponse{Errors: map[string]string{field: msg}}
}

func recordFromMessage(msg store.Message) proto.MessageRecord {
	files := make([]proto.File, 0, len(msg.Files))
	for _, f := range msg.Files {
		files = append(files, proto.File{
			ID:          f.ID,
			Name:        f.Name,
			ContentType: f.ContentType,
			Size:        f.Size,
			Data:        f.Data,
		})
	}
	return proto.MessageRecord{
		User:    msg.User,
		TS:      msg.TS,
		Message: msg.Text,
		Files:   files,
	}
}

func feedEventFromEvent(ev *core.Event) proto.FeedEvent {
	switch ev.Kind {
	case core.EventMessage:
		record := recordFromMessage(ev.Message)
		return proto.FeedEvent{Event: proto.FeedEventMessage, Channel: ev.Channel, Message: &record}
	case core.EventChannelReset:
		return proto.FeedEvent{Event: proto.FeedEventChannelReset, Channel: ev.Channel}
	default:
		return proto.FeedEvent{Event: proto.FeedEventReset}
	}
}
