package cart

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/session"
)

const (
	variantA = "5b7a3c1e-2f4d-4a8b-9c6e-1d2f3a4b5c6d"
	variantB = "6c8b4d2f-3a5e-4b9c-8d7f-2e3a4b5c6d7e"
)

func newTestRouter(store *memStore) http.Handler {
	cat := newQuoteCatalog()
	v := cat.variants["a"]
	v.ID = variantA
	cat.variants[variantA] = v
	h := NewHandler(store, NewQuoter(cat, cat), slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Use(session.Middleware)
	r.Get("/cart", h.HandleGet)
	r.Post("/cart/quote", h.HandleQuote)
	r.Post("/cart/items", h.HandleAddItem)
	r.Delete("/cart/items/{variantID}", h.HandleRemoveItem)
	r.Post("/cart/merge", h.HandleMerge)
	return r
}

func do(router http.Handler, method, target, body, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != "" {
		req.Header.Set(session.HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RequiresSession(t *testing.T) {
	router := newTestRouter(newMemStore())
	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/cart"},
		{http.MethodPost, "/cart/items"},
		{http.MethodDelete, "/cart/items/" + variantA},
		{http.MethodPost, "/cart/merge"},
	} {
		rec := do(router, tc.method, tc.target, `{}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.target)
	}
}

func TestHandler_Merge(t *testing.T) {
	t.Run("accepts both id spellings", func(t *testing.T) {
		store := newMemStore()
		router := newTestRouter(store)

		body := `{"items": [{"variant_id": "` + variantA + `", "quantity": 1}, {"variantId": "` + variantB + `", "quantity": 2}]}`
		rec := do(router, http.MethodPost, "/cart/merge", body, "user-1")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res MergeResult
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
		assert.Equal(t, 2, res.Merged)
		assert.Equal(t, 2, store.rows["user-1"][variantB])
	})

	t.Run("rejects lines it cannot normalize", func(t *testing.T) {
		store := newMemStore()
		router := newTestRouter(store)

		body := `{"items": [{"variant_id": "` + variantA + `", "variantId": "` + variantB + `", "quantity": 1}]}`
		rec := do(router, http.MethodPost, "/cart/merge", body, "user-1")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, store.rows["user-1"])
	})

	t.Run("surfaces a generic sync failure", func(t *testing.T) {
		store := newMemStore()
		store.failFor[variantB] = true
		router := newTestRouter(store)

		body := `{"items": [{"variant_id": "` + variantA + `", "quantity": 1}, {"variant_id": "` + variantB + `", "quantity": 1}]}`
		rec := do(router, http.MethodPost, "/cart/merge", body, "user-1")
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var res map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
		assert.Equal(t, "cart sync failed", res["error"])
		assert.Equal(t, float64(1), res["merged"])
	})
}

func TestHandler_ItemsAndGet(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store)

	rec := do(router, http.MethodPost, "/cart/items", `{"variant_id": "`+strings.ToUpper(variantA)+`", "quantity": 2}`, "user-1")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, store.rows["user-1"][variantA])

	rec = do(router, http.MethodGet, "/cart?discount_id=d10", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary Summary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, int64(160000), summary.Totals.Subtotal)
	assert.Equal(t, int64(16000), summary.Totals.DiscountAmount)

	rec = do(router, http.MethodDelete, "/cart/items/"+variantA, "", "user-1")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.rows["user-1"])

	rec = do(router, http.MethodDelete, "/cart/items/not-a-uuid", "", "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_QuoteForGuest(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := do(router, http.MethodPost, "/cart/quote", `{"items": [{"variantId": "`+variantA+`", "quantity": 1}]}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary Summary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, int64(80000), summary.Totals.Subtotal)
	assert.Equal(t, int64(110000), summary.Totals.Total)

	rec = do(router, http.MethodPost, "/cart/quote", `{"items": [{"quantity": 1}]}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
