package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-messenger/internal/middleware"
	authService "github.com/zhouzirui/z-messenger/internal/service/auth"
	"github.com/zhouzirui/z-messenger/internal/storage"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	svc, err := authService.NewService(storage.NewMemoryStore(), "secret", time.Hour)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	r := chi.NewRouter()
	New(svc).RegisterRoutes(r, middleware.Authenticate(svc))
	return r
}

func post(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRegisterLoginMe(t *testing.T) {
	r := setupRouter(t)
	creds := map[string]string{"username": "alice", "password": "pw"}

	if resp := post(r, "/register", creds); resp.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", resp.Code)
	}

	resp := post(r, "/login", creds)
	if resp.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.Code)
	}
	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &token); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if token.AccessToken == "" || token.TokenType != "bearer" {
		t.Fatalf("unexpected token %+v", token)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	me := httptest.NewRecorder()
	r.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", me.Code)
	}
	var body map[string]int64
	if err := json.Unmarshal(me.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if body["user_id"] != 1 {
		t.Fatalf("unexpected user id %d", body["user_id"])
	}
}

func TestRegisterDuplicateReturnsDetail(t *testing.T) {
	r := setupRouter(t)
	creds := map[string]string{"username": "alice", "password": "pw"}
	post(r, "/register", creds)

	resp := post(r, "/register", creds)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body map[string]string
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body["detail"] != authService.ErrUserExists.Error() {
		t.Fatalf("unexpected detail %q", body["detail"])
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	r := setupRouter(t)
	resp := post(r, "/login", map[string]string{"username": "ghost", "password": "pw"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestRegisterInvalidBody(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader([]byte("{")))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
