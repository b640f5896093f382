package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authHandler "github.com/zhouzirui/z-messenger/internal/handler/auth"
	chatHandler "github.com/zhouzirui/z-messenger/internal/handler/chat"
	filesHandler "github.com/zhouzirui/z-messenger/internal/handler/files"
	messageHandler "github.com/zhouzirui/z-messenger/internal/handler/message"
	middlewarePkg "github.com/zhouzirui/z-messenger/internal/middleware"
	authService "github.com/zhouzirui/z-messenger/internal/service/auth"
	chatService "github.com/zhouzirui/z-messenger/internal/service/chat"
	filesService "github.com/zhouzirui/z-messenger/internal/service/files"
	"github.com/zhouzirui/z-messenger/pkg/utils"
)

// Services bundles what the router needs.
type Services struct {
	Auth  *authService.Service
	Chat  *chatService.Service
	Files *filesService.Service

	// StaticDir is served under /static when non-empty.
	StaticDir      string
	MaxUploadBytes int64
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	requireUser := middlewarePkg.Authenticate(svc.Auth)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondMessage(w, http.StatusOK, "messenger API is running")
	})

	r.Route("/auth", func(ar chi.Router) {
		authHandler.New(svc.Auth).RegisterRoutes(ar, requireUser)
	})

	r.Route("/chats", func(cr chi.Router) {
		cr.Use(requireUser)
		chatHandler.New(svc.Chat).RegisterRoutes(cr)
	})

	r.Route("/messages", func(mr chi.Router) {
		mr.Use(requireUser)
		messageHandler.New(svc.Chat).RegisterRoutes(mr)
	})

	if svc.Files != nil {
		r.Route("/files", func(fr chi.Router) {
			fr.Use(requireUser)
			filesHandler.New(svc.Files, svc.MaxUploadBytes).RegisterRoutes(fr)
		})
	}

	if svc.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(svc.StaticDir))))
	}

	return r
}
