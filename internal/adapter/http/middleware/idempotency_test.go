package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/veilflow/veilflow/internal/usecase/mocks"
)

func TestIdempotencyMiddleware_ReplaysCachedResponse(t *testing.T) {
	store := mocks.NewMockIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	handlerCalls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"txn-1"}`))
	}))

	request := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "req-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := request()
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, 1, handlerCalls)
	assert.Empty(t, first.Header().Get("X-Idempotency-Replay"))

	second := request()
	assert.Equal(t, 1, handlerCalls, "handler must not run twice for the same key")
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replay"))
	assert.JSONEq(t, `{"id":"txn-1"}`, second.Body.String())
}

func TestIdempotencyMiddleware_FailedResponseIsRetryable(t *testing.T) {
	store := mocks.NewMockIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	fail := true
	handlerCalls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalls++
		if fail {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"txn-2"}`))
	}))

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader(`{}`))
		r.Header.Set(IdempotencyKeyHeader, "req-2")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	first := req()
	assert.Equal(t, http.StatusUnprocessableEntity, first.Code)

	// The failure was not cached; the retry reaches the handler.
	fail = false
	second := req()
	assert.Equal(t, 2, handlerCalls)
	assert.Equal(t, http.StatusCreated, second.Code)
}

func TestIdempotencyMiddleware_PassThrough(t *testing.T) {
	store := mocks.NewMockIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	handlerCalls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalls++
		w.WriteHeader(http.StatusOK)
	}))

	// GET requests bypass the cache even with a key.
	get := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/acc-1", nil)
	get.Header.Set(IdempotencyKeyHeader, "req-3")
	handler.ServeHTTP(httptest.NewRecorder(), get)
	handler.ServeHTTP(httptest.NewRecorder(), get)

	// POSTs without a key bypass it too.
	post := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader(`{}`))
	handler.ServeHTTP(httptest.NewRecorder(), post)
	handler.ServeHTTP(httptest.NewRecorder(), post)

	assert.Equal(t, 4, handlerCalls)
}
