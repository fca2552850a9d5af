package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/messenger-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("feed_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:8000", "server base URL")
	user := flag.String("user", "admin", "username to log in with")
	password := flag.String("password", "admin", "password to log in with")
	channel := flag.String("channel", "general", "channel name (created when logged in as admin)")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var tok proto.TokenResponse
	if err := getJSON(ctx, *base+"/get_token", url.Values{"username": {*user}, "password": {*password}}, &tok); err != nil {
		return fmt.Errorf("get_token: %w", err)
	}

	if *user == "admin" {
		var ch proto.ChannelResponse
		if err := getJSON(ctx, *base+"/add_channel", url.Values{"token": {tok.Token}, "channel": {*channel}}, &ch); err != nil {
			return fmt.Errorf("add_channel: %w", err)
		}
	}

	feedURL := strings.Replace(*base, "http", "ws", 1) + "/feed?" + url.Values{
		"token":   {tok.Token},
		"channel": {*channel},
	}.Encode()
	conn, _, err := websocket.Dial(ctx, feedURL, nil)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := sendMessage(ctx, *base, tok.Token, *channel, *text); err != nil {
		return fmt.Errorf("send_message: %w", err)
	}

	var ev proto.FeedEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		return fmt.Errorf("read feed: %w", err)
	}
	fmt.Printf("Received event=%s channel=%s", ev.Event, ev.Channel)
	if ev.Message != nil {
		fmt.Printf(" user=%s ts=%f text=%q", ev.Message.User, ev.Message.TS, ev.Message.Message)
	}
	fmt.Println()

	if ev.Event != proto.FeedEventMessage || ev.Message == nil || ev.Message.Message != *text {
		return fmt.Errorf("unexpected feed event %+v", ev)
	}
	return nil
}

func getJSON(ctx context.Context, target string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return do(req, out)
}

func sendMessage(ctx context.Context, base, token, channel, text string) error {
	body, err := json.Marshal(map[string]string{"token": token, "channel": channel, "message": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/send_message", strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req, &proto.SentMessage{})
}

func do(req *http.Request, out any) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp proto.ErrorsResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("status %d: %v", resp.StatusCode, errResp.Errors)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
