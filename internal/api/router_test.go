package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/storefront/internal/cart"
	"github.com/joao-fontenele/storefront/internal/catalog"
	"github.com/joao-fontenele/storefront/internal/checkout"
	"github.com/joao-fontenele/storefront/internal/orders"
)

func newTestRouter(logger *slog.Logger) http.Handler {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	return NewRouter(Handlers{
		Checkout: checkout.NewHandler(nil, nil, logger),
		Cart:     cart.NewHandler(nil, nil, logger),
		Orders:   orders.NewHandler(nil, logger),
		Catalog:  catalog.NewHandler(nil, logger),
		Metrics:  metrics,
	}, logger)
}

func TestRouter(t *testing.T) {
	router := newTestRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/checkout", "{", http.StatusBadRequest},
		{http.MethodGet, "/cart", "", http.StatusUnauthorized},
		{http.MethodPost, "/cart/quote", "{", http.StatusBadRequest},
		{http.MethodPost, "/cart/items", "{}", http.StatusUnauthorized},
		{http.MethodDelete, "/cart/items/x", "", http.StatusUnauthorized},
		{http.MethodPost, "/cart/merge", "{}", http.StatusUnauthorized},
		{http.MethodGet, "/orders", "", http.StatusUnauthorized},
		{http.MethodGet, "/orders/not-a-uuid", "", http.StatusNotFound},
		{http.MethodGet, "/variants/not-a-uuid", "", http.StatusBadRequest},
		{http.MethodGet, "/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/checkout", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRouter_AccessLog(t *testing.T) {
	var buf bytes.Buffer
	router := newTestRouter(slog.New(slog.NewJSONHandler(&buf, nil)))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	out := buf.String()
	for _, want := range []string{`"msg":"http request"`, `"status":200`, `"path":"/healthz"`, `"request_id"`} {
		if !strings.Contains(out, want) {
			t.Errorf("access log missing %s: %s", want, out)
		}
	}
}
