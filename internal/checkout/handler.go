package checkout

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/idempotency"
	"github.com/joao-fontenele/storefront/internal/session"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type Placer interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Result, error)
}

// IdempotencyStore is optional; see idempotency.RedisStore.
type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (*idempotency.Record, error)
	Complete(ctx context.Context, key string, rec idempotency.Record) error
	Release(ctx context.Context, key string) error
}

type Handler struct {
	placer      Placer
	idempotency IdempotencyStore
	logger      *slog.Logger
}

func NewHandler(placer Placer, idem IdempotencyStore, logger *slog.Logger) *Handler {
	return &Handler{
		placer:      placer,
		idempotency: idem,
		logger:      logger,
	}
}

type placeOrderRequest struct {
	Items           []domain.RawCartLine   `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethodID string                 `json:"payment_method_id"`
	DiscountID      string                 `json:"discount_id"`
	Guest           *domain.GuestContact   `json:"guest"`
	Totals          *ClientTotals          `json:"totals"`
}

type placeOrderResponse struct {
	Success     bool          `json:"success"`
	OrderID     string        `json:"order_id,omitempty"`
	AccessToken *string       `json:"access_token,omitempty"`
	Error       string        `json:"error,omitempty"`
	Category    Category      `json:"category,omitempty"`
	Lines       []LineProblem `json:"lines,omitempty"`
	Replayed    bool          `json:"replayed,omitempty"`
}

func (h *Handler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFailure(w, invalidRequest("invalid request body"))
		return
	}

	if len(req.Items) == 0 {
		h.writeFailure(w, invalidRequest("Your cart is empty."))
		return
	}

	lines, err := domain.NormalizeCartLines(req.Items, true)
	if err != nil {
		h.logger.Info("rejected malformed cart lines", "error", err)
		h.writeFailure(w, invalidRequest("Your cart contains an invalid item. Please refresh your cart."))
		return
	}

	placeReq := PlaceOrderRequest{
		Lines:           lines,
		ShippingAddress: req.ShippingAddress,
		PaymentMethodID: req.PaymentMethodID,
		DiscountID:      req.DiscountID,
		ClientTotals:    req.Totals,
	}
	if id, ok := session.FromContext(r.Context()); ok {
		placeReq.UserID = id.UserID
		placeReq.UserEmail = id.Email
	} else {
		placeReq.Guest = req.Guest
	}

	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	fingerprint := requestFingerprint(placeReq)
	if key != "" && h.idempotency != nil {
		if placeReq.UserID != "" {
			key = placeReq.UserID + ":" + key
		}
		rec, err := h.idempotency.Begin(r.Context(), key)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			h.writeJSON(w, http.StatusConflict, placeOrderResponse{Error: "This order is already being placed."})
			return
		case err != nil:
			h.logger.Error("idempotency lookup failed, continuing without it", "error", err)
			key = ""
		case rec != nil && subtle.ConstantTimeCompare([]byte(rec.Fingerprint), []byte(fingerprint)) != 1:
			h.logger.Warn("idempotency key reused with a different request")
			h.writeJSON(w, http.StatusUnprocessableEntity, placeOrderResponse{
				Error:    "This checkout key was already used for a different order. Please reload the page and try again.",
				Category: CategoryInvalidRequest,
			})
			return
		case rec != nil:
			h.logger.Info("replayed checkout", "order_id", rec.OrderID)
			h.writeJSON(w, http.StatusOK, placeOrderResponse{
				Success:     true,
				OrderID:     rec.OrderID,
				AccessToken: rec.AccessToken,
				Replayed:    true,
			})
			return
		}
	} else {
		key = ""
	}

	result, err := h.placer.PlaceOrder(r.Context(), placeReq)
	if err != nil {
		if key != "" {
			if relErr := h.idempotency.Release(r.Context(), key); relErr != nil {
				h.logger.Error("failed to release idempotency key", "error", relErr)
			}
		}
		var perr *PlaceOrderError
		if !errors.As(err, &perr) {
			perr = internalError(err)
		}
		h.writeFailure(w, perr)
		return
	}

	if key != "" {
		rec := idempotency.Record{OrderID: result.OrderID, AccessToken: result.AccessToken, Fingerprint: fingerprint}
		if err := h.idempotency.Complete(r.Context(), key, rec); err != nil {
			h.logger.Error("failed to store idempotency record", "error", err, "order_id", result.OrderID)
		}
	}

	h.writeJSON(w, http.StatusCreated, placeOrderResponse{
		Success:     true,
		OrderID:     result.OrderID,
		AccessToken: result.AccessToken,
	})
}

// requestFingerprint hashes everything that determines which order a request
// places, including who places it.
func requestFingerprint(req PlaceOrderRequest) string {
	data, _ := json.Marshal(struct {
		UserID          string
		Guest           *domain.GuestContact
		Lines           []domain.CartLine
		ShippingAddress domain.ShippingAddress
		PaymentMethodID string
		DiscountID      string
	}{req.UserID, req.Guest, req.Lines, req.ShippingAddress, req.PaymentMethodID, req.DiscountID})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func statusFor(category Category) int {
	switch category {
	case CategoryUnavailableItems, CategoryPriceChanged:
		return http.StatusConflict
	case CategoryInvalidDiscount, CategoryInvalidPaymentMethod:
		return http.StatusUnprocessableEntity
	case CategoryInvalidRequest:
		return http.StatusBadRequest
	case CategoryStatusResolutionFailure, CategoryInternal:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, perr *PlaceOrderError) {
	h.writeJSON(w, statusFor(perr.Category), placeOrderResponse{
		Success:  false,
		Error:    perr.Message,
		Category: perr.Category,
		Lines:    perr.Lines,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
