package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

type frame struct {
	Type      string          `json:"type"`
	ChatID    int64           `json:"chat_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Watch streams message events of chatID to fn until ctx is done or the
// server closes the socket. A cancelled ctx is not reported as an error.
func (c *Client) Watch(ctx context.Context, token string, chatID int64, fn func(chat.Event)) error {
	wsURL := c.baseURL + "/messages/ws/" + strconv.FormatInt(chatID, 10)
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.httpClient.Timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusSwitchingProtocols {
				return decodeError(resp)
			}
		}
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		switch f.Type {
		case chat.EventMessageCreated, chat.EventMessageUpdated, chat.EventMessageDeleted:
			var msg chat.Message
			if err := json.Unmarshal(f.Data, &msg); err != nil {
				return fmt.Errorf("decode %s: %w", f.Type, err)
			}
			fn(chat.Event{Type: f.Type, ChatID: f.ChatID, Message: msg})
		case "error":
			var payload struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(f.Data, &payload)
			return &Error{Status: http.StatusBadRequest, Detail: payload.Message}
		}
	}
}
