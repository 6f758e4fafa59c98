// Package email is a stand-in mail relay for local and test environments.
// It validates messages and keeps the most recent ones in memory instead of
// delivering them.
package email

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"
)

const defaultOutboxSize = 100

type Message struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

type Handler struct {
	logger *slog.Logger

	mu     sync.Mutex
	outbox []Message
	limit  int
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		limit:  defaultOutboxSize,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	addr, err := mail.ParseAddress(req.To)
	if err != nil {
		h.logger.Info("rejected message with invalid recipient", "to", req.To, "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		h.writeError(w, http.StatusBadRequest, "missing subject")
		return
	}

	h.store(Message{To: addr.Address, Subject: req.Subject, Body: req.Body, SentAt: time.Now().UTC()})
	h.logger.Info("email sent", "to", addr.Address, "subject", req.Subject)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

// HandleOutbox lists recently accepted messages, newest first.
func (h *Handler) HandleOutbox(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")

	h.mu.Lock()
	msgs := make([]Message, 0, len(h.outbox))
	for i := len(h.outbox) - 1; i >= 0; i-- {
		if to == "" || strings.EqualFold(h.outbox[i].To, to) {
			msgs = append(msgs, h.outbox[i])
		}
	}
	h.mu.Unlock()

	h.writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) store(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outbox = append(h.outbox, m)
	if len(h.outbox) > h.limit {
		h.outbox = h.outbox[len(h.outbox)-h.limit:]
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
