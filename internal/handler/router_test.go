package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	authService "github.com/zhouzirui/z-messenger/internal/service/auth"
	chatService "github.com/zhouzirui/z-messenger/internal/service/chat"
	"github.com/zhouzirui/z-messenger/internal/storage"
)

func setupRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	store := storage.NewMemoryStore()
	authSvc, err := authService.NewService(store, "router-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	staticDir := t.TempDir()
	return NewRouter(Services{
		Auth:      authSvc,
		Chat:      chatService.NewService(store, store, nil),
		StaticDir: staticDir,
	}), staticDir
}

func postJSON(t *testing.T, router http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRootHealth(t *testing.T) {
	router, _ := setupRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("CORS headers missing")
	}
}

func TestRegisterLoginListChats(t *testing.T) {
	router, _ := setupRouter(t)
	creds := map[string]string{"username": "alice", "password": "pw"}

	if rec := postJSON(t, router, "/auth/register", "", creds); rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	rec := postJSON(t, router, "/auth/login", "", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&token); err != nil || token.AccessToken == "" {
		t.Fatalf("decode token: %v", err)
	}

	if rec := postJSON(t, router, "/chats/create", token.AccessToken, map[string]any{"name": "General"}); rec.Code != http.StatusCreated {
		t.Fatalf("create chat: %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list chats: %d %s", rec.Code, rec.Body.String())
	}
	var chats []struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&chats); err != nil {
		t.Fatalf("decode chats: %v", err)
	}
	if len(chats) != 1 || chats[0].Name != "General" {
		t.Fatalf("unexpected chats %+v", chats)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := setupRouter(t)
	for _, path := range []string{"/chats", "/messages/receiving/1", "/auth/me"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestFilesRouteDisabledWithoutService(t *testing.T) {
	router, _ := setupRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/files/upload", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	router, dir := setupRouter(t)
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/hello.txt", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "hi" {
		t.Fatalf("unexpected static response %d %q", rec.Code, rec.Body.String())
	}
}
