package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "zzz")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("TOKEN_TTL_MINUTES", "")
	t.Setenv("STATIC_DIR", "")
	t.Setenv("UPLOAD_DIR", "")
	t.Setenv("MAX_UPLOAD_MB", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("unexpected driver %q", cfg.Storage.Driver)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Fatalf("unexpected ttl %s", cfg.Auth.TokenTTL)
	}
	if cfg.Files.UploadURL != "/static/uploads" {
		t.Fatalf("unexpected upload url %q", cfg.Files.UploadURL)
	}
	if cfg.Files.MaxUploadBytes != 32<<20 {
		t.Fatalf("unexpected max upload %d", cfg.Files.MaxUploadBytes)
	}
}

func TestLoadServerConfigPortForms(t *testing.T) {
	cases := map[string]string{
		"9000":           ":9000",
		":9001":          ":9001",
		"127.0.0.1:9002": "127.0.0.1:9002",
	}
	for in, want := range cases {
		t.Setenv("PORT", in)
		got, err := loadServerConfig()
		if err != nil {
			t.Fatalf("loadServerConfig(%q) err: %v", in, err)
		}
		if got.Addr != want {
			t.Fatalf("loadServerConfig(%q) = %q, want %q", in, got.Addr, want)
		}
	}

	t.Setenv("PORT", "80 80")
	if _, err := loadServerConfig(); err == nil {
		t.Fatal("expected error for port with spaces")
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("JWT_SECRET", "zzz")
	t.Setenv("TOKEN_TTL_MINUTES", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric ttl")
	}
}

func TestLoadClientFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("base_url: http://chat.example:9000/\ntimeout: 3s\nsession:\n  driver: memory\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}
	t.Setenv("MESSENGER_BASE_URL", "")
	t.Setenv("MESSENGER_SESSION_DRIVER", "")
	t.Setenv("MESSENGER_TIMEOUT", "")

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient err: %v", err)
	}
	if cfg.BaseURL != "http://chat.example:9000" {
		t.Fatalf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Timeout)
	}
	if cfg.Session.Driver != "memory" {
		t.Fatalf("unexpected driver %q", cfg.Session.Driver)
	}

	t.Setenv("MESSENGER_BASE_URL", "https://override.example")
	t.Setenv("MESSENGER_TIMEOUT", "250ms")
	cfg, err = LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient err: %v", err)
	}
	if cfg.BaseURL != "https://override.example" || cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadClientMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("MESSENGER_BASE_URL", "")
	t.Setenv("MESSENGER_SESSION_DRIVER", "")
	t.Setenv("MESSENGER_TIMEOUT", "")

	cfg, err := LoadClient(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadClient err: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" || cfg.Session.Driver != "pebble" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestClientConfigValidate(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.BaseURL = "ftp://nope"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http base url")
	}

	cfg = DefaultClientConfig()
	cfg.Session.Driver = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientConfigSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultClientConfig()
	cfg.BaseURL = "http://saved.example"
	cfg.Session.Driver = "memory"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save err: %v", err)
	}
	t.Setenv("MESSENGER_BASE_URL", "")
	t.Setenv("MESSENGER_SESSION_DRIVER", "")
	t.Setenv("MESSENGER_TIMEOUT", "")

	loaded, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient err: %v", err)
	}
	if loaded.BaseURL != "http://saved.example" || loaded.Timeout != cfg.Timeout {
		t.Fatalf("unexpected loaded config %+v", loaded)
	}
}
