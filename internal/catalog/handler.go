package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type VariantReader interface {
	GetVariant(ctx context.Context, id string) (*domain.VariantSnapshot, error)
}

type Handler struct {
	variants VariantReader
	logger   *slog.Logger
}

func NewHandler(variants VariantReader, logger *slog.Logger) *Handler {
	return &Handler{
		variants: variants,
		logger:   logger,
	}
}

type variantResponse struct {
	domain.VariantSnapshot
	EffectivePrice int64  `json:"effective_price"`
	DisplayName    string `json:"display_name"`
	Discontinued   bool   `json:"discontinued"`
	InStock        bool   `json:"in_stock"`
}

func (h *Handler) HandleGetVariant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid variant id")
		return
	}

	v, err := h.variants.GetVariant(r.Context(), id.String())
	if err != nil {
		h.logger.Error("failed to get variant", "error", err, "variant_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if v == nil {
		h.writeError(w, http.StatusNotFound, "variant not found")
		return
	}

	h.writeJSON(w, http.StatusOK, variantResponse{
		VariantSnapshot: *v,
		EffectivePrice:  v.EffectivePrice(),
		DisplayName:     v.DisplayName(),
		Discontinued:    v.Deleted(),
		InStock:         !v.Deleted() && v.StockQuantity > 0,
	})
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
