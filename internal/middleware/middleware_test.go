package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	authService "github.com/zhouzirui/z-messenger/internal/service/auth"
)

type fakeParser map[string]int64

func (f fakeParser) ParseToken(token string) (int64, error) {
	if token == "expired" {
		return 0, authService.ErrTokenExpired
	}
	id, ok := f[token]
	if !ok {
		return 0, authService.ErrTokenInvalid
	}
	return id, nil
}

func protected() http.Handler {
	return Authenticate(fakeParser{"abc": 7})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserID(r.Context())
		w.Write([]byte(strconv.FormatInt(id, 10)))
	}))
}

func TestAuthenticateAcceptsBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rr := httptest.NewRecorder()

	protected().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "7" {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Body.String())
	}
}

func TestAuthenticateRejects(t *testing.T) {
	cases := map[string]struct {
		header string
		detail string
	}{
		"missing": {"", "not authenticated"},
		"scheme":  {"Basic abc", "not authenticated"},
		"invalid": {"Bearer nope", "invalid token"},
		"expired": {"Bearer expired", "token expired"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/chats", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()

			protected().ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			want := `{"detail":"` + tc.detail + `"}` + "\n"
			if rr.Body.String() != want {
				t.Fatalf("unexpected body %q", rr.Body.String())
			}
		})
	}
}

func TestAuthenticateQueryTokenOnlyForUpgrade(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/messages/ws/1?token=abc", nil)
	rr := httptest.NewRecorder()
	protected().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without upgrade header, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/messages/ws/1?token=abc", nil)
	req.Header.Set("Upgrade", "websocket")
	rr = httptest.NewRecorder()
	protected().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with upgrade header, got %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach handler")
	}))
	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing allow-origin header")
	}
}
