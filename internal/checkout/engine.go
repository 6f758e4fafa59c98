package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/storefront/internal/discount"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/pricing"
)

var tracer = otel.Tracer(instrumentationName)

type Deps struct {
	Catalog        Catalog
	Discounts      Discounts
	Statuses       Statuses
	PaymentMethods PaymentMethods
	// Store must be backed by the elevated database handle; it writes rows
	// guests have no direct access to.
	Store Store
	// Events is optional.
	Events EventPublisher
}

// Engine validates proposed orders against live catalog state and commits
// order, line items, payment and cart clearing in one transaction.
type Engine struct {
	catalog   Catalog
	discounts Discounts
	statuses  Statuses
	payments  PaymentMethods
	store     Store
	events    EventPublisher
	logger    *slog.Logger
	metrics   *checkoutMetrics
	now       func() time.Time
	newID     func() string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

func NewEngine(deps Deps, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if deps.Catalog == nil || deps.Discounts == nil || deps.Statuses == nil || deps.PaymentMethods == nil || deps.Store == nil {
		return nil, errors.New("checkout: missing engine dependency")
	}

	m, err := newCheckoutMetrics()
	if err != nil {
		return nil, fmt.Errorf("create checkout metrics: %w", err)
	}

	e := &Engine{
		catalog:   deps.Catalog,
		discounts: deps.Discounts,
		statuses:  deps.Statuses,
		payments:  deps.PaymentMethods,
		store:     deps.Store,
		events:    deps.Events,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ClientTotals are the amounts the purchaser's screen showed. They are only
// compared against the server's own computation.
type ClientTotals struct {
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discount_amount"`
	ShippingFee    int64 `json:"shipping_fee"`
	Total          int64 `json:"total"`
}

type PlaceOrderRequest struct {
	// UserID is empty for guest checkouts.
	UserID          string
	UserEmail       string
	Guest           *domain.GuestContact
	Lines           []domain.CartLine
	ShippingAddress domain.ShippingAddress
	PaymentMethodID string
	DiscountID      string
	ClientTotals    *ClientTotals
}

type Result struct {
	OrderID string `json:"order_id"`
	// AccessToken is set only for guest orders.
	AccessToken *string        `json:"access_token,omitempty"`
	Totals      pricing.Totals `json:"totals"`
}

// PlaceOrder either commits a consistent order or returns a *PlaceOrderError
// and leaves no writes behind.
func (e *Engine) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Result, error) {
	ctx, span := tracer.Start(ctx, "checkout.PlaceOrder", trace.WithAttributes(
		attribute.Bool("checkout.guest", req.UserID == ""),
		attribute.Int("checkout.lines", len(req.Lines)),
	))
	defer span.End()

	res, perr := e.placeOrder(ctx, req)
	if perr != nil {
		span.RecordError(perr)
		span.SetStatus(codes.Error, string(perr.Category))
		e.metrics.recordRejected(ctx, perr.Category)
		return nil, perr
	}

	span.SetAttributes(attribute.String("order.id", res.OrderID))
	e.metrics.recordPlaced(ctx, res.AccessToken != nil, res.Totals.Total)
	return res, nil
}

func (e *Engine) placeOrder(ctx context.Context, req PlaceOrderRequest) (*Result, *PlaceOrderError) {
	if perr := validateRequest(req); perr != nil {
		return nil, perr
	}

	logger := e.logger.With("user_id", req.UserID, "guest", req.UserID == "")
	ids := distinctVariantIDs(req.Lines)

	variants, err := e.catalog.GetVariants(ctx, ids)
	if err != nil {
		logger.Error("failed to load variants", "error", err)
		return nil, internalError(fmt.Errorf("get variants: %w", err))
	}

	priced, perr := checkLines(req.Lines, variants)
	if perr != nil {
		logger.Info("order rejected", "category", perr.Category, "lines", len(perr.Lines))
		return nil, perr
	}
	subtotal, saleDiscount := pricing.Subtotal(priced)

	now := e.now()
	var (
		disc           *domain.Discount
		discountAmount int64
	)
	if req.DiscountID != "" {
		disc, err = e.discounts.GetDiscount(ctx, req.DiscountID)
		if err != nil {
			logger.Error("failed to load discount", "error", err, "discount_id", req.DiscountID)
			return nil, internalError(fmt.Errorf("get discount: %w", err))
		}
		discountAmount, perr = applyDiscount(disc, now, subtotal)
		if perr != nil {
			logger.Info("order rejected", "category", perr.Category, "discount_id", req.DiscountID, "error", perr.Err)
			return nil, perr
		}
	}

	method, err := e.payments.GetPaymentMethod(ctx, req.PaymentMethodID)
	if err != nil {
		logger.Error("failed to load payment method", "error", err, "payment_method_id", req.PaymentMethodID)
		return nil, internalError(fmt.Errorf("get payment method: %w", err))
	}
	if method == nil || !method.IsActive {
		logger.Info("order rejected", "category", CategoryInvalidPaymentMethod, "payment_method_id", req.PaymentMethodID)
		return nil, &PlaceOrderError{
			Category: CategoryInvalidPaymentMethod,
			Message:  "The selected payment method is not available. Please choose another one.",
		}
	}

	settings, err := e.catalog.GetShopSettings(ctx)
	if err != nil {
		logger.Error("failed to load shop settings", "error", err)
		return nil, internalError(fmt.Errorf("get shop settings: %w", err))
	}
	totals := pricing.Compute(subtotal, saleDiscount, discountAmount, pricing.ShippingFee(settings, subtotal))

	if req.ClientTotals != nil && !clientTotalsMatch(*req.ClientTotals, totals) {
		logger.Info("order rejected", "category", CategoryPriceChanged,
			"client_total", req.ClientTotals.Total, "server_total", totals.Total)
		return nil, &PlaceOrderError{
			Category: CategoryPriceChanged,
			Message:  "Your order total has changed. Please review the new total before placing the order.",
		}
	}

	status, perr := e.resolveStatus(ctx, logger)
	if perr != nil {
		return nil, perr
	}

	order := e.newOrder(req, status, disc, totals, now)
	payment := &domain.PaymentRecord{
		ID:        e.newID(),
		OrderID:   order.ID,
		MethodID:  method.ID,
		Amount:    totals.Total,
		Status:    domain.PaymentStatusPending,
		CreatedAt: now,
	}
	requested := requestedQuantities(req.Lines)

	err = e.store.WithTx(ctx, func(tx Tx) error {
		locked, err := tx.LockVariants(ctx, ids)
		if err != nil {
			return fmt.Errorf("lock variants: %w", err)
		}
		current, perr := checkLines(req.Lines, locked)
		if perr != nil {
			return perr
		}

		if disc != nil {
			latest, err := tx.LockDiscount(ctx, disc.ID)
			if err != nil {
				return fmt.Errorf("lock discount: %w", err)
			}
			amount, perr := applyDiscount(latest, now, subtotal)
			if perr != nil {
				return perr
			}
			if amount != discountAmount {
				return &PlaceOrderError{
					Category: CategoryInvalidDiscount,
					Message:  "This discount code changed while you were checking out. Please apply it again.",
				}
			}
			if latest.RemainingUses != nil {
				if err := tx.ConsumeDiscountUse(ctx, latest.ID); err != nil {
					return fmt.Errorf("consume discount use: %w", err)
				}
			}
		}

		for _, id := range ids {
			if err := tx.DecrementStock(ctx, id, requested[id]); err != nil {
				return fmt.Errorf("decrement stock of %s: %w", id, err)
			}
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		order.Items = e.snapshotLines(order.ID, current)
		if err := tx.InsertLineItems(ctx, order.Items); err != nil {
			return fmt.Errorf("insert line items: %w", err)
		}

		if err := tx.InsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		if order.OwnerUserID != nil {
			if err := tx.ClearCart(ctx, *order.OwnerUserID); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		var rejected *PlaceOrderError
		if errors.As(err, &rejected) {
			logger.Info("order rejected during commit", "category", rejected.Category, "lines", len(rejected.Lines))
			return nil, rejected
		}
		logger.Error("order commit failed, transaction rolled back", "error", err, "order_id", order.ID)
		return nil, commitFailure(err)
	}

	logger.Info("order placed", "order_id", order.ID, "total", totals.Total, "items", len(order.Items))
	e.publishPlaced(ctx, logger, req, order)

	return &Result{OrderID: order.ID, AccessToken: order.AccessToken, Totals: totals}, nil
}

func (e *Engine) resolveStatus(ctx context.Context, logger *slog.Logger) (domain.OrderStatus, *PlaceOrderError) {
	statuses, err := e.statuses.ListOrderStatuses(ctx)
	if err != nil {
		logger.Error("failed to list order statuses", "error", err)
		return domain.OrderStatus{}, internalError(fmt.Errorf("list order statuses: %w", err))
	}

	status, fallback, err := ResolveInitialStatus(statuses)
	if err != nil {
		logger.Error("cannot resolve initial order status", "error", err)
		return domain.OrderStatus{}, &PlaceOrderError{
			Category: CategoryStatusResolutionFailure,
			Message:  "Checkout is temporarily unavailable. Please try again later.",
			Err:      err,
		}
	}
	if fallback {
		logger.Warn("no pending order status configured, using first defined status",
			"status_id", status.ID, "status_name", status.Name, "known_names", strings.Join(PendingStatusNames, ","))
	}
	return status, nil
}

func (e *Engine) newOrder(req PlaceOrderRequest, status domain.OrderStatus, disc *domain.Discount, totals pricing.Totals, now time.Time) *domain.Order {
	order := &domain.Order{
		ID:                 e.newID(),
		ShippingAddress:    req.ShippingAddress,
		PaymentMethodID:    req.PaymentMethodID,
		OrderStatusID:      status.ID,
		SubtotalAmount:     totals.Subtotal,
		SaleDiscountAmount: totals.SaleDiscount,
		DiscountAmount:     totals.DiscountAmount,
		ShippingFee:        totals.ShippingFee,
		TotalAmount:        totals.Total,
		CreatedAt:          now,
	}
	if disc != nil {
		id := disc.ID
		order.DiscountID = &id
	}

	if req.UserID != "" {
		owner := req.UserID
		order.OwnerUserID = &owner
		return order
	}

	guest := *req.Guest
	token := uuid.NewString()
	order.Guest = &guest
	order.AccessToken = &token
	return order
}

func (e *Engine) snapshotLines(orderID string, priced []pricing.PricedLine) []domain.OrderLineItem {
	items := make([]domain.OrderLineItem, 0, len(priced))
	for _, p := range priced {
		items = append(items, domain.OrderLineItem{
			ID:                  e.newID(),
			OrderID:             orderID,
			VariantID:           p.Variant.ID,
			ProductNameSnapshot: p.Variant.ProductName,
			VolumeMLSnapshot:    p.Variant.VolumeML,
			Quantity:            p.Line.Quantity,
			UnitPriceAtOrder:    p.Variant.EffectivePrice(),
		})
	}
	return items
}

func (e *Engine) publishPlaced(ctx context.Context, logger *slog.Logger, req PlaceOrderRequest, order *domain.Order) {
	if e.events == nil {
		return
	}

	event := domain.OrderPlacedEvent{
		OrderID:   order.ID,
		Total:     order.TotalAmount,
		Timestamp: order.CreatedAt,
		Items:     make([]domain.OrderPlacedItem, 0, len(order.Items)),
	}
	for _, it := range order.Items {
		event.Items = append(event.Items, domain.OrderPlacedItem{
			VariantID:   it.VariantID,
			ProductName: it.ProductNameSnapshot,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPriceAtOrder,
		})
	}
	if order.IsGuest() {
		event.CustomerEmail = order.Guest.Email
		event.CustomerName = order.Guest.Name
		event.AccessToken = *order.AccessToken
	} else {
		event.UserID = *order.OwnerUserID
		event.CustomerEmail = req.UserEmail
		event.CustomerName = order.ShippingAddress.RecipientName
	}

	if err := e.events.Publish(ctx, order.ID, event); err != nil {
		logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
	}
}

func validateRequest(req PlaceOrderRequest) *PlaceOrderError {
	for _, line := range req.Lines {
		if line.VariantID == "" || line.Quantity <= 0 {
			return invalidRequest("Your cart contains an invalid item. Please refresh your cart.")
		}
	}

	addr := req.ShippingAddress
	if strings.TrimSpace(addr.RecipientName) == "" || strings.TrimSpace(addr.Phone) == "" ||
		strings.TrimSpace(addr.AddressLine) == "" || strings.TrimSpace(addr.City) == "" {
		return invalidRequest("Please provide a complete shipping address.")
	}

	if req.PaymentMethodID == "" {
		return invalidRequest("Please choose a payment method.")
	}

	if req.UserID == "" {
		g := req.Guest
		if g == nil || strings.TrimSpace(g.Name) == "" || (strings.TrimSpace(g.Email) == "" && strings.TrimSpace(g.Phone) == "") {
			return invalidRequest("Please provide your name and an email or phone number to check out as a guest.")
		}
	}
	return nil
}

// checkLines classifies every line against the given snapshots. Unavailable
// lines take precedence over price changes, and all offending lines are reported.
func checkLines(lines []domain.CartLine, variants []domain.VariantSnapshot) ([]pricing.PricedLine, *PlaceOrderError) {
	byID := make(map[string]domain.VariantSnapshot, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}
	requested := requestedQuantities(lines)

	var (
		unavailable []LineProblem
		changed     []LineProblem
		reported    = make(map[string]bool)
		priced      = make([]pricing.PricedLine, 0, len(lines))
	)
	for _, line := range lines {
		v, found := byID[line.VariantID]
		if problem, ok := availability(line.VariantID, v, found, requested[line.VariantID]); !ok {
			if !reported[line.VariantID] {
				unavailable = append(unavailable, problem)
				reported[line.VariantID] = true
			}
			continue
		}

		if v.EffectivePrice() != line.ClientObservedPrice {
			changed = append(changed, LineProblem{
				VariantID:   v.ID,
				ProductName: v.DisplayName(),
				Reason:      reasonPriceChanged,
				ClientPrice: line.ClientObservedPrice,
				ServerPrice: v.EffectivePrice(),
			})
			continue
		}

		priced = append(priced, pricing.PricedLine{Line: line, Variant: v})
	}

	if len(unavailable) > 0 {
		return nil, unavailableError(unavailable)
	}
	if len(changed) > 0 {
		return nil, priceChangedError(changed)
	}
	return priced, nil
}

func availability(id string, v domain.VariantSnapshot, found bool, requested int) (LineProblem, bool) {
	switch {
	case !found:
		return LineProblem{VariantID: id, Reason: reasonNotFound, Requested: requested}, false
	case v.Deleted():
		return LineProblem{VariantID: id, ProductName: v.DisplayName(), Reason: reasonDiscontinued, Requested: requested}, false
	case v.StockQuantity <= 0:
		return LineProblem{VariantID: id, ProductName: v.DisplayName(), Reason: reasonOutOfStock, Requested: requested}, false
	case v.StockQuantity < requested:
		return LineProblem{
			VariantID:   id,
			ProductName: v.DisplayName(),
			Reason:      reasonInsufficient,
			Requested:   requested,
			Available:   v.StockQuantity,
		}, false
	}
	return LineProblem{}, true
}

func applyDiscount(d *domain.Discount, now time.Time, subtotal int64) (int64, *PlaceOrderError) {
	if d == nil {
		return 0, &PlaceOrderError{
			Category: CategoryInvalidDiscount,
			Message:  "This discount code does not exist. Please remove it and try again.",
		}
	}

	eval := discount.Evaluate(*d, now, subtotal)
	if !eval.Valid {
		return 0, &PlaceOrderError{
			Category: CategoryInvalidDiscount,
			Message:  eval.Reason.Message() + " Please remove it and try again.",
			Err:      fmt.Errorf("discount %s: %s", d.Code, eval.Reason),
		}
	}
	return eval.Amount, nil
}

func clientTotalsMatch(client ClientTotals, server pricing.Totals) bool {
	return client.Subtotal == server.Subtotal &&
		client.DiscountAmount == server.DiscountAmount &&
		client.ShippingFee == server.ShippingFee &&
		client.Total == server.Total
}

// distinctVariantIDs returns the cart's variant ids sorted, which is also
// the order rows are locked in.
func distinctVariantIDs(lines []domain.CartLine) []string {
	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if !seen[l.VariantID] {
			seen[l.VariantID] = true
			ids = append(ids, l.VariantID)
		}
	}
	sort.Strings(ids)
	return ids
}

func requestedQuantities(lines []domain.CartLine) map[string]int {
	qty := make(map[string]int, len(lines))
	for _, l := range lines {
		qty[l.VariantID] += l.Quantity
	}
	return qty
}
