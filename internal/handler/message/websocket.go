package message

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	chatHandler "github.com/zhouzirui/z-messenger/internal/handler/chat"
	"github.com/zhouzirui/z-messenger/internal/middleware"
	chatService "github.com/zhouzirui/z-messenger/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// WebSocketHandler WebSocket消息推送处理器
type WebSocketHandler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatService.Service) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{chatID}", h.handleWebSocket)
}

// inboundMessage is what a client may send over the socket.
type inboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// outgoingMessage wraps every frame the server writes.
type outgoingMessage struct {
	Type      string      `json:"type"`
	ChatID    int64       `json:"chat_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// safeConn serializes writes; gorilla connections allow one concurrent writer.
type safeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *safeConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return w.Close()
}

func (c *safeConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}
	userID, _ := middleware.UserID(r.Context())

	if _, err := h.chatSvc.GetChat(r.Context(), chatID); err != nil {
		chatHandler.RespondServiceError(w, err)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[websocket] upgrade failed")
		return
	}
	defer raw.Close()
	conn := &safeConn{conn: raw}

	events, unsubscribe := h.chatSvc.Hub().Subscribe(chatID)
	defer unsubscribe()

	log.Info().Int64("chat_id", chatID).Int64("user_id", userID).Msg("[websocket] new connection")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	raw.SetReadDeadline(time.Now().Add(readTimeout))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)
	go h.readLoop(ctx, cancel, conn, chatID, userID)

	h.send(conn, outgoingMessage{Type: "connected", ChatID: chatID})

	for {
		select {
		case <-ctx.Done():
			log.Info().Int64("chat_id", chatID).Int64("user_id", userID).Msg("[websocket] connection closed")
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.writeJSON(outgoingMessage{
				Type:      event.Type,
				ChatID:    event.ChatID,
				Data:      event.Message,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				log.Warn().Err(err).Msg("[websocket] write event failed")
				return
			}
		}
	}
}

// readLoop handles inbound frames until the peer goes away.
func (h *WebSocketHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *safeConn, chatID, userID int64) {
	defer cancel()

	for {
		var msg inboundMessage
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("[websocket] read error")
			}
			return
		}
		conn.conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "message":
			if _, err := h.chatSvc.SendMessage(ctx, userID, chatID, msg.Content); err != nil {
				h.sendError(conn, err.Error())
			}
		default:
			h.sendError(conn, "unsupported message type")
		}
	}
}

func (h *WebSocketHandler) send(conn *safeConn, msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	if err := conn.writeJSON(msg); err != nil {
		log.Warn().Err(err).Msg("[websocket] write failed")
	}
}

func (h *WebSocketHandler) sendError(conn *safeConn, message string) {
	h.send(conn, outgoingMessage{
		Type: "error",
		Data: map[string]string{"message": message},
	})
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *safeConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
