package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/auth"
	"github.com/vovakirdan/messenger-server/internal/config"
	"github.com/vovakirdan/messenger-server/internal/core"
	"github.com/vovakirdan/messenger-server/internal/store/memory"
)

// startTestServer runs the router over a fresh memory store and hub.
// mutate may adjust the config before the router is built.
func startTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	disabledLogger := zerolog.New(nil)

	st := memory.New()
	t.Cleanup(func() { _ = st.Close() })

	hub := core.NewHub(&disabledLogger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	svc := core.NewService(st, auth.SHA224, hub, &disabledLogger)
	server := NewServer(svc, &cfg, &disabledLogger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// getJSON issues GET path?params and decodes the JSON body into out.
func getJSON(t *testing.T, ts *httptest.Server, path string, params url.Values, out any) int {
	t.Helper()

	target := ts.URL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	resp, err := ts.Client().Get(target)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	decodeBody(t, resp.Body, out)
	return resp.StatusCode
}

// postJSON posts body as JSON to path and decodes the response into out.
func postJSON(t *testing.T, ts *httptest.Server, path string, body any, out any) int {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := ts.Client().Post(ts.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	decodeBody(t, resp.Body, out)
	return resp.StatusCode
}

// postMultipart posts fields and a single "files" part.
func postMultipart(t *testing.T, ts *httptest.Server, fields map[string]string, filename string, data []byte, out any) int {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	part, err := w.CreateFormFile("files", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	resp, err := ts.Client().Post(ts.URL+"/send_message", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /send_message: %v", err)
	}
	defer resp.Body.Close()
	decodeBody(t, resp.Body, out)
	return resp.StatusCode
}

func decodeBody(t *testing.T, r io.Reader, out any) {
	t.Helper()
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return
	}
	if err := json.NewDecoder(r).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// jpegBytes is the smallest prefix mimetype recognises as image/jpeg.
var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
