package email

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func send(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.HandleSend(rec, httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body)))
	return rec
}

func TestHandler_HandleSend(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"to": "Lan <lan@example.com>", "subject": "Hi", "body": "x"}`, http.StatusOK},
		{"invalid json", `{`, http.StatusBadRequest},
		{"invalid recipient", `{"to": "not an address", "subject": "Hi"}`, http.StatusBadRequest},
		{"missing subject", `{"to": "lan@example.com", "subject": " "}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := send(h, tt.body); rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	h.HandleOutbox(rec, httptest.NewRequest(http.MethodGet, "/outbox?to=LAN@example.com", nil))

	var msgs []Message
	if err := json.NewDecoder(rec.Body).Decode(&msgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 1 || msgs[0].To != "lan@example.com" {
		t.Errorf("unexpected outbox: %+v", msgs)
	}
}

func TestHandler_OutboxIsBounded(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.limit = 3

	for i := 0; i < 5; i++ {
		send(h, fmt.Sprintf(`{"to": "u%d@example.com", "subject": "s"}`, i))
	}

	rec := httptest.NewRecorder()
	h.HandleOutbox(rec, httptest.NewRequest(http.MethodGet, "/outbox", nil))

	var msgs []Message
	_ = json.NewDecoder(rec.Body).Decode(&msgs)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].To != "u4@example.com" || msgs[2].To != "u2@example.com" {
		t.Errorf("unexpected order: %+v", msgs)
	}
}
