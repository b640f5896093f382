package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondErrorUsesDetailField(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, http.StatusBadRequest, "user already exists")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body["detail"] != "user already exists" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSendSSEEventFormatsFrame(t *testing.T) {
	rr := httptest.NewRecorder()
	SetupSSEHeaders(rr)

	if err := SendSSEEvent(rr, rr, "message.created", map[string]int{"id": 1}); err != nil {
		t.Fatalf("SendSSEEvent err: %v", err)
	}

	want := "event: message.created\ndata: {\"id\":1}\n\n"
	if got := rr.Body.String(); got != want {
		t.Fatalf("unexpected frame %q", got)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/event-stream") {
		t.Fatalf("missing sse content type")
	}
}
