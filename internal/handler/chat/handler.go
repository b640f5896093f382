package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-messenger/internal/middleware"
	"github.com/zhouzirui/z-messenger/internal/model/chat"
	chatService "github.com/zhouzirui/z-messenger/internal/service/chat"
	"github.com/zhouzirui/z-messenger/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由, 调用方负责挂载认证中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleListChats)
	r.Post("/create", h.handleCreateChat)
	r.Post("/update", h.handleUpdateChat)
}

// handleListChats 列出当前用户的聊天
func (h *Handler) handleListChats(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	chats, err := h.chatSvc.ListChats(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("[chat] list chats failed")
		utils.RespondError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}

	utils.RespondJSON(w, http.StatusOK, chats)
}

// handleCreateChat 创建聊天
func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name    string `json:"name"`
		IsGroup bool   `json:"is_group"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, _ := middleware.UserID(r.Context())
	created, err := h.chatSvc.CreateChat(r.Context(), userID, payload.Name, payload.IsGroup)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, created)
}

// handleUpdateChat 更新聊天名称或头像
func (h *Handler) handleUpdateChat(w http.ResponseWriter, r *http.Request) {
	var update chat.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if update.ChatID == 0 {
		utils.RespondError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	userID, _ := middleware.UserID(r.Context())
	updated, err := h.chatSvc.UpdateChat(r.Context(), userID, update)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, updated)
}

// RespondServiceError maps chat service errors onto HTTP statuses.
func RespondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrNameRequired), errors.Is(err, chatService.ErrContentRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrChatNotFound), errors.Is(err, chatService.ErrMessageNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrForbidden):
		utils.RespondError(w, http.StatusForbidden, err.Error())
	default:
		log.Error().Err(err).Msg("[chat] request failed")
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
