package main

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zhouzirui/z-messenger/internal/config"
)

func testConfig(t *testing.T, addr string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server:  config.ServerConfig{Addr: addr},
		Storage: config.StorageConfig{Driver: "sqlite", Path: filepath.Join(dir, "messenger.db")},
		Auth:    config.AuthConfig{Secret: "main-secret", TokenTTL: time.Hour},
		Files: config.FilesConfig{
			StaticDir:      filepath.Join(dir, "static"),
			UploadDir:      filepath.Join(dir, "static", "uploads"),
			UploadURL:      "/static/uploads",
			MaxUploadBytes: 1 << 20,
		},
		LogLevel: "info",
	}
}

func TestRunReturnsListenErrorAndClosesStore(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	cfg := testConfig(t, ln.Addr().String())
	if err := run(context.Background(), cfg); err == nil {
		t.Fatal("expected error for an address already in use")
	}

	// sqlite removes the WAL file once the last connection is closed
	if _, err := os.Stat(cfg.Storage.Path + "-wal"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("store left open, wal stat err: %v", err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t, "127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run err: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}
