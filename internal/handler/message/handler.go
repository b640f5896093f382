package message

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	chatHandler "github.com/zhouzirui/z-messenger/internal/handler/chat"
	"github.com/zhouzirui/z-messenger/internal/middleware"
	chatService "github.com/zhouzirui/z-messenger/internal/service/chat"
	"github.com/zhouzirui/z-messenger/pkg/utils"
)

const sseHeartbeat = 15 * time.Second

// Handler 消息服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	ws      *WebSocketHandler
}

// New 创建消息处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		ws:      NewWebSocketHandler(chatSvc),
	}
}

// RegisterRoutes 注册消息相关的路由, 调用方负责挂载认证中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/send", h.handleSend)
	r.Put("/edit", h.handleEdit)
	r.Delete("/delete", h.handleDelete)
	r.Get("/receiving/{chatID}", h.handleReceive)
	r.Get("/events/{chatID}", h.handleEvents)
	h.ws.RegisterWebSocketRoutes(r)
}

// handleSend 发送消息
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ChatID  int64  `json:"chat_id"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, _ := middleware.UserID(r.Context())
	msg, err := h.chatSvc.SendMessage(r.Context(), userID, payload.ChatID, payload.Content)
	if err != nil {
		chatHandler.RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, msg)
}

// handleEdit 修改消息, 参数通过 query 传递
func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	messageID, ok := int64Query(w, r, "message_id")
	if !ok {
		return
	}

	userID, _ := middleware.UserID(r.Context())
	msg, err := h.chatSvc.EditMessage(r.Context(), userID, messageID, r.URL.Query().Get("new_content"))
	if err != nil {
		chatHandler.RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, msg)
}

// handleDelete 删除消息
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	messageID, ok := int64Query(w, r, "message_id")
	if !ok {
		return
	}

	userID, _ := middleware.UserID(r.Context())
	if err := h.chatSvc.DeleteMessage(r.Context(), userID, messageID); err != nil {
		chatHandler.RespondServiceError(w, err)
		return
	}

	utils.RespondMessage(w, http.StatusOK, "message deleted")
}

// handleReceive 拉取聊天历史
func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	messages, err := h.chatSvc.LoadTranscript(r.Context(), chatID)
	if err != nil {
		chatHandler.RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleEvents 以SSE推送聊天的消息变更
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	if _, err := h.chatSvc.GetChat(r.Context(), chatID); err != nil {
		chatHandler.RespondServiceError(w, err)
		return
	}

	events, cancel := h.chatSvc.Hub().Subscribe(chatID)
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Info().Int64("chat_id", chatID).Msg("[sse] stream opened")

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info().Int64("chat_id", chatID).Msg("[sse] stream closed")
			return
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, event.Type, event); err != nil {
				return
			}
		}
	}
}

func chatIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid chat id")
		return 0, false
	}
	return chatID, true
}

func int64Query(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, key+" is required")
		return 0, false
	}
	return val, true
}
