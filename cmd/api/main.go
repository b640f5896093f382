package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-messenger/internal/config"
	"github.com/zhouzirui/z-messenger/internal/handler"
	authService "github.com/zhouzirui/z-messenger/internal/service/auth"
	chatService "github.com/zhouzirui/z-messenger/internal/service/chat"
	filesService "github.com/zhouzirui/z-messenger/internal/service/files"
	"github.com/zhouzirui/z-messenger/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown LOG_LEVEL, keeping default")
	}

	// run returns only after its deferred cleanups, so the store is closed before exit.
	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("shutdown complete")
}

// run opens storage, wires the services and serves until ctx is done.
func run(ctx context.Context, cfg *config.Config) error {
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage (%s): %w", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("storage close error")
		}
	}()
	log.Info().Str("driver", cfg.Storage.Driver).Str("path", cfg.Storage.Path).Msg("storage ready")

	authSvc, err := authService.NewService(store, cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("initialize auth service: %w", err)
	}

	chatSvc := chatService.NewService(store, store, chatService.NewHub())

	filesSvc, err := filesService.NewService(cfg.Files.UploadDir, cfg.Files.UploadURL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize file uploads, /files disabled")
		filesSvc = nil
	}

	router := handler.NewRouter(handler.Services{
		Auth:           authSvc,
		Chat:           chatSvc,
		Files:          filesSvc,
		StaticDir:      cfg.Files.StaticDir,
		MaxUploadBytes: cfg.Files.MaxUploadBytes,
	})

	return startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Msgf("messenger API listening on %s", addr)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
