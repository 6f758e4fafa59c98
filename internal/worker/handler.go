package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/messaging"
)

// ConfirmationHandler turns order placed events into confirmation emails.
type ConfirmationHandler struct {
	emailServiceURL string
	storefrontURL   string
	httpClient      *http.Client
	printer         *message.Printer
	logger          *slog.Logger
}

func NewConfirmationHandler(emailServiceURL, storefrontURL string, client *http.Client, logger *slog.Logger) *ConfirmationHandler {
	return &ConfirmationHandler{
		emailServiceURL: strings.TrimRight(emailServiceURL, "/"),
		storefrontURL:   strings.TrimRight(storefrontURL, "/"),
		httpClient:      client,
		printer:         message.NewPrinter(language.Vietnamese),
		logger:          logger,
	}
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *ConfirmationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %v: %w", err, messaging.ErrPermanent)
	}

	logger := h.logger.With("order_id", event.OrderID, "guest", event.UserID == "")
	logger.Info("processing order placed event", "items", len(event.Items), "total", event.Total)

	if event.CustomerEmail == "" {
		logger.Info("no email address on order, skipping confirmation")
		return nil
	}

	req := emailRequest{
		To:      event.CustomerEmail,
		Subject: "Order confirmation " + shortID(event.OrderID),
		Body:    h.renderBody(event),
	}
	if err := h.sendEmail(ctx, req); err != nil {
		logger.Error("failed to send confirmation email", "error", err)
		return fmt.Errorf("send confirmation email: %w", err)
	}

	logger.Info("confirmation email sent")
	return nil
}

func (h *ConfirmationHandler) renderBody(event domain.OrderPlacedEvent) string {
	var b strings.Builder

	name := event.CustomerName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\nThanks for your order %s. We will let you know when it ships.\n\n", name, shortID(event.OrderID))

	for _, it := range event.Items {
		b.WriteString(h.printer.Sprintf("  %d x %s  %d ₫\n", it.Quantity, it.ProductName, int64(it.Quantity)*it.UnitPrice))
	}
	b.WriteString(h.printer.Sprintf("\nTotal: %d ₫\n", event.Total))

	if link := h.orderLink(event); link != "" {
		fmt.Fprintf(&b, "\nTrack your order: %s\n", link)
	}
	return b.String()
}

// orderLink points guests at their token-authorized order page and members
// at their order history.
func (h *ConfirmationHandler) orderLink(event domain.OrderPlacedEvent) string {
	if h.storefrontURL == "" {
		return ""
	}
	link := h.storefrontURL + "/orders/" + url.PathEscape(event.OrderID)
	if event.AccessToken != "" {
		link += "?token=" + url.QueryEscape(event.AccessToken)
	}
	return link
}

func (h *ConfirmationHandler) sendEmail(ctx context.Context, body emailRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("email service rejected message with status %d: %w", resp.StatusCode, messaging.ErrPermanent)
	default:
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}
