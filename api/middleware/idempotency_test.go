package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func allocationRequest(owner uuid.UUID, key, body string) *http.Request {
	req := requestWithPattern(http.MethodPost, "/api/v1/allocations", "/api/v1/allocations", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithUserID(req.Context(), owner))
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestMatchRule(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		pattern  string
		want     time.Duration
		required bool
		ok       bool
	}{
		{"allocation create", http.MethodPost, "/api/v1/allocations", criticalIdempotencyTTL, true, true},
		{"income create", http.MethodPost, "/api/v1/incomes", defaultIdempotencyTTL, false, true},
		{"bill create", http.MethodPost, "/api/v1/bills/", defaultIdempotencyTTL, false, true},
		{"preview", http.MethodPost, "/api/v1/allocations/preview", 0, false, false},
		{"list", http.MethodGet, "/api/v1/allocations", 0, false, false},
	}

	for _, tt := range tests {
		rule, ok := matchRule(tt.method, tt.pattern)
		require.Equal(t, tt.ok, ok, tt.name)
		if ok {
			assert.Equal(t, tt.want, rule.ttl, tt.name)
			assert.Equal(t, tt.required, rule.required, tt.name)
		}
	}
}

func TestIdempotencyRequiresHeaderForAllocations(t *testing.T) {
	store := newFakeStore()
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	Idempotency(store, nil)(handler).ServeHTTP(resp, allocationRequest(uuid.New(), "", `{"amount":"1"}`))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, handlerCalled)
}

func TestIdempotencyOptionalForIncomes(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/incomes", "/api/v1/incomes", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Idempotency(store, nil)(handler).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, 1, calls)
	assert.Zero(t, store.len())
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"a1"}}`))
	})
	mw := Idempotency(store, nil)

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, allocationRequest(owner, "abc", `{"amount":"10.00"}`))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	mw(handler).ServeHTTP(replay, allocationRequest(owner, "abc", `{"amount":"10.00"}`))
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, `{"data":{"id":"a1"}}`, strings.TrimSpace(replay.Body.String()))
	assert.Equal(t, 1, calls)

	key := store.IdempotencyKey(owner.String()+"|POST|/api/v1/allocations", "abc")
	assert.Equal(t, criticalIdempotencyTTL, store.ttls[key])
}

func TestIdempotencyScopesKeysPerOwner(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})
	mw := Idempotency(store, nil)

	mw(handler).ServeHTTP(httptest.NewRecorder(), allocationRequest(uuid.New(), "same", `{}`))
	mw(handler).ServeHTTP(httptest.NewRecorder(), allocationRequest(uuid.New(), "same", `{}`))
	assert.Equal(t, 2, calls)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mw := Idempotency(store, nil)

	mw(handler).ServeHTTP(httptest.NewRecorder(), allocationRequest(owner, "xyz", `{"amount":"1.00"}`))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, allocationRequest(owner, "xyz", `{"amount":"2.00"}`))

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, resp))
}

func TestIdempotencyDoesNotStoreRetryableOutcomes(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	statuses := []int{http.StatusConflict, http.StatusCreated}
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statuses[calls])
		calls++
	})
	mw := Idempotency(store, nil)

	first := httptest.NewRecorder()
	mw(handler).ServeHTTP(first, allocationRequest(owner, "retry", `{}`))
	require.Equal(t, http.StatusConflict, first.Code)
	assert.Zero(t, store.len())

	second := httptest.NewRecorder()
	mw(handler).ServeHTTP(second, allocationRequest(owner, "retry", `{}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyStoresBusinessRejections(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	mw := Idempotency(store, nil)

	mw(handler).ServeHTTP(httptest.NewRecorder(), allocationRequest(owner, "k", `{}`))
	replay := httptest.NewRecorder()
	mw(handler).ServeHTTP(replay, allocationRequest(owner, "k", `{}`))

	assert.Equal(t, http.StatusUnprocessableEntity, replay.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	entered := make(chan struct{})
	release := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	})
	mw := Idempotency(store, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		mw(handler).ServeHTTP(httptest.NewRecorder(), allocationRequest(owner, "busy", `{}`))
	}()
	<-entered

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, allocationRequest(owner, "busy", `{}`))
	close(release)
	<-done

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, resp))
}
