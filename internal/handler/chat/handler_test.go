package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-messenger/internal/middleware"
	model "github.com/zhouzirui/z-messenger/internal/model/chat"
	chatservice "github.com/zhouzirui/z-messenger/internal/service/chat"
	"github.com/zhouzirui/z-messenger/internal/storage"
)

// asUser injects a fixed caller id in place of token authentication.
func asUser(userID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), userID)))
		})
	}
}

func setupRouter(userID int64) (*chi.Mux, *chatservice.Service) {
	store := storage.NewMemoryStore()
	chatSvc := chatservice.NewService(store, store, nil)
	handler := New(chatSvc)

	r := chi.NewRouter()
	r.Route("/chats", func(cr chi.Router) {
		cr.Use(asUser(userID))
		handler.RegisterRoutes(cr)
	})
	return r, chatSvc
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestListChatsReturnsCallerChatsInOrder(t *testing.T) {
	r, svc := setupRouter(1)
	ctx := context.Background()
	svc.CreateChat(ctx, 1, "General", true)
	svc.CreateChat(ctx, 1, "Random", true)
	svc.CreateChat(ctx, 2, "Hidden", true)

	resp := do(r, http.MethodGet, "/chats", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var chats []model.Chat
	if err := json.Unmarshal(resp.Body.Bytes(), &chats); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(chats) != 2 || chats[0].Name != "General" || chats[1].Name != "Random" {
		t.Fatalf("unexpected chats %+v", chats)
	}
}

func TestListChatsEmptyIsArray(t *testing.T) {
	r, _ := setupRouter(1)
	resp := do(r, http.MethodGet, "/chats", nil)
	if got := bytes.TrimSpace(resp.Body.Bytes()); string(got) != "[]" {
		t.Fatalf("expected empty array, got %s", got)
	}
}

func TestCreateChat(t *testing.T) {
	r, _ := setupRouter(3)
	resp := do(r, http.MethodPost, "/chats/create", map[string]any{"name": "General", "is_group": true})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var created model.Chat
	json.Unmarshal(resp.Body.Bytes(), &created)
	if created.CreatorID != 3 || !created.IsGroup {
		t.Fatalf("unexpected chat %+v", created)
	}
}

func TestCreateChatMissingName(t *testing.T) {
	r, _ := setupRouter(1)
	resp := do(r, http.MethodPost, "/chats/create", map[string]any{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUpdateChatStatuses(t *testing.T) {
	r, svc := setupRouter(1)
	ctx := context.Background()
	mine, _ := svc.CreateChat(ctx, 1, "General", true)
	theirs, _ := svc.CreateChat(ctx, 2, "Theirs", true)

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"ok", map[string]any{"chat_id": mine.ID, "name": "Lobby"}, http.StatusOK},
		{"forbidden", map[string]any{"chat_id": theirs.ID, "name": "Mine now"}, http.StatusForbidden},
		{"missing", map[string]any{"chat_id": 99, "name": "x"}, http.StatusNotFound},
		{"no id", map[string]any{"name": "x"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if resp := do(r, http.MethodPost, "/chats/update", tc.body); resp.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.Code)
			}
		})
	}
}
