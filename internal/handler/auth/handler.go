package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-messenger/internal/middleware"
	"github.com/zhouzirui/z-messenger/internal/model/auth"
	authService "github.com/zhouzirui/z-messenger/internal/service/auth"
	"github.com/zhouzirui/z-messenger/pkg/utils"
)

// Handler 认证服务的HTTP处理器
type Handler struct {
	authSvc *authService.Service
}

// New 创建认证处理器
func New(authSvc *authService.Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// RegisterRoutes 注册认证相关的路由, requireUser 保护 /me
func (h *Handler) RegisterRoutes(r chi.Router, requireUser func(http.Handler) http.Handler) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.With(requireUser).Get("/me", h.handleMe)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, err := h.authSvc.Register(r.Context(), creds)
	switch {
	case errors.Is(err, authService.ErrUserExists), errors.Is(err, authService.ErrCredentialsRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("[auth] register failed")
		utils.RespondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	utils.RespondMessage(w, http.StatusOK, "registration successful")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.authSvc.Login(r.Context(), creds)
	switch {
	case errors.Is(err, authService.ErrInvalidCredentials):
		utils.RespondError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("[auth] login failed")
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, token)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]int64{"user_id": userID})
}
