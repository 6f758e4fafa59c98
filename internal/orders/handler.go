package orders

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/session"
)

type Reader interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByOwner(ctx context.Context, userID string) ([]domain.Order, error)
}

type Handler struct {
	repo   Reader
	logger *slog.Logger
}

func NewHandler(repo Reader, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// HandleGet serves an order to its owner, or to a guest presenting the
// order's access token. Anyone else gets 404 so order ids cannot be probed.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id.String())
	if errors.Is(err, ErrOrderNotFound) {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !canView(r, order) {
		h.logger.Info("order access denied", "order_id", order.ID)
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, order)
}

func canView(r *http.Request, order *domain.Order) bool {
	if identity, ok := session.FromContext(r.Context()); ok && order.OwnerUserID != nil {
		return *order.OwnerUserID == identity.UserID
	}
	token := r.URL.Query().Get("token")
	if token == "" || order.AccessToken == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(*order.AccessToken)) == 1
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "sign in to see your orders")
		return
	}

	orders, err := h.repo.ListByOwner(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "count", len(orders), "user_id", identity.UserID)
	h.writeJSON(w, http.StatusOK, orders)
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
