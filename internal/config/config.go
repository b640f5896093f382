package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Files    FilesConfig
	LogLevel string
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	authCfg, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	files, err := loadFilesConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Storage:  loadStorageConfig(),
		Auth:     authCfg,
		Files:    files,
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// StorageConfig 描述持久化配置。
type StorageConfig struct {
	Driver string
	Path   string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Driver: strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", "sqlite")),
		Path:   getEnvOrDefault("DATABASE_PATH", "messenger.db"),
	}
}

// AuthConfig 描述令牌签发配置。
type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

func loadAuthConfig() (AuthConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return AuthConfig{}, errors.New("JWT_SECRET is required")
	}

	ttl := 60
	if override, err := parseOptionalIntEnv("TOKEN_TTL_MINUTES"); err != nil {
		return AuthConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AuthConfig{}, fmt.Errorf("invalid TOKEN_TTL_MINUTES value %d", *override)
		}
		ttl = *override
	}

	return AuthConfig{Secret: secret, TokenTTL: time.Duration(ttl) * time.Minute}, nil
}

// FilesConfig 描述静态资源与上传目录。
type FilesConfig struct {
	StaticDir      string
	UploadDir      string
	UploadURL      string
	MaxUploadBytes int64
}

func loadFilesConfig() (FilesConfig, error) {
	staticDir := getEnvOrDefault("STATIC_DIR", "static")
	uploadDir := getEnvOrDefault("UPLOAD_DIR", filepath.Join(staticDir, "uploads"))

	maxMB := 32
	if override, err := parseOptionalIntEnv("MAX_UPLOAD_MB"); err != nil {
		return FilesConfig{}, err
	} else if override != nil && *override > 0 {
		maxMB = *override
	}

	// Uploads are only reachable over HTTP when they live under the static dir.
	uploadURL := ""
	if rel, err := filepath.Rel(staticDir, uploadDir); err == nil && !strings.HasPrefix(rel, "..") {
		uploadURL = "/static/" + filepath.ToSlash(rel)
	}

	return FilesConfig{
		StaticDir:      staticDir,
		UploadDir:      uploadDir,
		UploadURL:      uploadURL,
		MaxUploadBytes: int64(maxMB) << 20,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}

	val, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
