package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/handler"
	"github.com/boddenberg/interest-ledger-go/internal/infra/cache"
	"github.com/boddenberg/interest-ledger-go/internal/infra/observability"
	"github.com/boddenberg/interest-ledger-go/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newIdempotentHandler(t *testing.T, status int, calls *int) (http.Handler, *cache.InMemory[port.StoredResponse]) {
	t.Helper()
	store := cache.New[port.StoredResponse](time.Minute)
	t.Cleanup(store.Close)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(status)
		w.Write([]byte(`{}`))
	})
	mw := handler.IdempotencyMiddleware(store, observability.NewMetrics(), zap.NewNop())
	return mw(next), store
}

func send(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts/AC001/transactions", nil)
	req.Header.Set(handler.IdempotencyHeader, key)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyMiddleware_KeyInFlight(t *testing.T) {
	var calls int
	h, store := newIdempotentHandler(t, http.StatusCreated, &calls)
	key := uuid.NewString()
	store.Set(key, port.StoredResponse{Route: "POST /v1/accounts/AC001/transactions", Pending: true})

	if rec := send(h, key); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 while the first request runs, got %d", rec.Code)
	}
	if calls != 0 {
		t.Errorf("expected handler not to run, ran %d times", calls)
	}
}

func TestIdempotencyMiddleware_ServerErrorReleasesKey(t *testing.T) {
	var calls int
	h, store := newIdempotentHandler(t, http.StatusInternalServerError, &calls)
	key := uuid.NewString()

	send(h, key)
	if _, ok := store.Get(key); ok {
		t.Error("expected key released after 5xx")
	}
	send(h, key)
	if calls != 2 {
		t.Errorf("expected retry to run the handler again, ran %d times", calls)
	}
}

func TestIdempotencyMiddleware_StoresCompletedResponse(t *testing.T) {
	var calls int
	h, store := newIdempotentHandler(t, http.StatusCreated, &calls)
	key := uuid.NewString()

	send(h, key)
	stored, ok := store.Get(key)
	if !ok || stored.Pending || stored.Status != http.StatusCreated {
		t.Fatalf("expected completed 201 stored, got %+v (found=%v)", stored, ok)
	}
	if rec := send(h, key); rec.Code != http.StatusCreated || calls != 1 {
		t.Errorf("expected replayed 201 without rerun, got %d after %d calls", rec.Code, calls)
	}
}
