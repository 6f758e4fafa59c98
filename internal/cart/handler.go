package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/session"
)

type Quotes interface {
	Quote(ctx context.Context, lines []domain.CartLine, discountID string) (*Summary, error)
}

type Handler struct {
	store      LineStore
	reconciler *Reconciler
	quoter     Quotes
	logger     *slog.Logger
}

func NewHandler(store LineStore, quoter Quotes, logger *slog.Logger) *Handler {
	return &Handler{
		store:      store,
		reconciler: NewReconciler(store, logger),
		quoter:     quoter,
		logger:     logger,
	}
}

type linesRequest struct {
	Items      []domain.RawCartLine `json:"items"`
	DiscountID string               `json:"discount_id"`
}

// HandleGet prices the signed-in purchaser's stored cart.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	lines, err := h.store.Items(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.quote(w, r, lines, r.URL.Query().Get("discount_id"))
}

// HandleQuote prices lines held by the client, typically a guest's local cart.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	var req linesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines, err := domain.NormalizeCartLines(req.Items, false)
	if err != nil {
		h.logger.Info("rejected malformed cart lines", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid cart item")
		return
	}

	h.quote(w, r, lines, req.DiscountID)
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request, lines []domain.CartLine, discountID string) {
	summary, err := h.quoter.Quote(r.Context(), lines, discountID)
	if err != nil {
		h.logger.Error("failed to quote cart", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	var raw domain.RawCartLine
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	line, err := raw.Normalize(false)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid cart item")
		return
	}

	err = h.store.Increment(r.Context(), identity.UserID, line.VariantID, line.Quantity)
	if errors.Is(err, ErrUnknownVariant) {
		h.writeError(w, http.StatusNotFound, "variant not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to add cart item", "error", err, "user_id", identity.UserID, "variant_id", line.VariantID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart item added", "user_id", identity.UserID, "variant_id", line.VariantID, "quantity", line.Quantity)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	variantID, err := uuid.Parse(chi.URLParam(r, "variantID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid variant id")
		return
	}

	if err := h.store.Remove(r.Context(), identity.UserID, variantID.String()); err != nil {
		h.logger.Error("failed to remove cart item", "error", err, "user_id", identity.UserID, "variant_id", variantID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleMerge folds the client's pre-login cart into the stored one.
func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	var req linesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines, err := domain.NormalizeCartLines(req.Items, false)
	if err != nil {
		h.logger.Info("rejected malformed cart lines", "error", err, "user_id", identity.UserID)
		h.writeError(w, http.StatusBadRequest, "invalid cart item")
		return
	}

	res, err := h.reconciler.Merge(r.Context(), identity.UserID, lines)
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  ErrSyncFailed.Error(),
			"merged": res.Merged,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) requireIdentity(w http.ResponseWriter, r *http.Request) (session.Identity, bool) {
	identity, ok := session.FromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "sign in to use a saved cart")
	}
	return identity, ok
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
