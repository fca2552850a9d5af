package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/vovakirdan/messenger-server/internal/config"
	"github.com/vovakirdan/messenger-server/internal/store"
	"github.com/vovakirdan/messenger-server/internal/utils"
)

// limitError is an advisory limit violation reported to the caller.
type limitError struct {
	status int
	field  string
	msg    string
}

func (e *limitError) Error() string {
	return e.msg
}

func checkMessageLength(limits config.LimitsConfig, text string) *limitError {
	if !limits.Enforce || limits.MaxMessageChars <= 0 {
		return nil
	}
	if n := utf8.RuneCountInString(text); n > limits.MaxMessageChars {
		return &limitError{
			status: http.StatusBadRequest,
			field:  "message",
			msg:    fmt.Sprintf("Message is %d characters, limit is %d", n, limits.MaxMessageChars),
		}
	}
	return nil
}

// readAttachments loads uploaded files and, when limits are enforced, checks
// their size and sniffed content type.
func readAttachments(limits config.LimitsConfig, headers []*multipart.FileHeader) ([]store.Attachment, error) {
	files := make([]store.Attachment, 0, len(headers))
	for _, fh := range headers {
		if limits.Enforce && limits.MaxAttachmentBytes > 0 && fh.Size > limits.MaxAttachmentBytes {
			return nil, &limitError{
				status: http.StatusRequestEntityTooLarge,
				field:  "files",
				msg:    fmt.Sprintf("%s exceeds %d bytes", fh.Filename, limits.MaxAttachmentBytes),
			}
		}

		data, err := readFileHeader(fh)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", fh.Filename, err)
		}

		detected := mimetype.Detect(data)
		if limits.Enforce && len(limits.AllowedAttachmentTypes) > 0 && !isAllowedType(detected, limits.AllowedAttachmentTypes) {
			return nil, &limitError{
				status: http.StatusBadRequest,
				field:  "files",
				msg:    fmt.Sprintf("%s has type %s", fh.Filename, detected.String()),
			}
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = detected.String()
		}

		files = append(files, store.Attachment{
			ID:          utils.NewID(),
			Name:        fh.Filename,
			ContentType: contentType,
			Size:        int64(len(data)),
			Data:        data,
		})
	}
	return files, nil
}

func isAllowedType(detected *mimetype.MIME, allowed []string) bool {
	for _, t := range allowed {
		if detected.Is(t) {
			return true
		}
	}
	return false
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
