package idempotency

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/safar/go-sql-shop/internal/logger"
)

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: map[string]Entry{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (s *memoryStore) Reserve(_ context.Context, key, fingerprint string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = Entry{Fingerprint: fingerprint}
	return true, nil
}

func (s *memoryStore) Save(_ context.Context, key string, entry Entry, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *memoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func newCheckoutRequest(key, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/orders/checkout", strings.NewReader(body))
	if key != "" {
		r.Header.Set(Header, key)
	}
	return r
}

// echoHandler answers 201 with the request body, counting calls.
func echoHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	})
}

func TestReplaysSuccessfulResponse(t *testing.T) {
	calls := 0
	h := NewMiddleware(newMemoryStore(), time.Hour, logger.Discard()).Wrap(echoHandler(&calls))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, newCheckoutRequest("abc", `{"user_id":"a"}`))

	second := httptest.NewRecorder()
	h.ServeHTTP(second, newCheckoutRequest("abc", `{"user_id":"a"}`))

	if calls != 1 {
		t.Fatalf("Expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != `{"user_id":"a"}` {
		t.Errorf("Replay mismatch: %d %s", second.Code, second.Body.String())
	}
	if second.Header().Get(ReplayedHeader) != "true" {
		t.Error("Replay should be marked")
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected JSON content type, got %q", second.Header().Get("Content-Type"))
	}
}

func TestHandlerSeesOriginalBody(t *testing.T) {
	calls := 0
	h := NewMiddleware(newMemoryStore(), time.Hour, logger.Discard()).Wrap(echoHandler(&calls))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newCheckoutRequest("body", `{"user_id":"x"}`))

	if rec.Body.String() != `{"user_id":"x"}` {
		t.Errorf("Handler should read the full body, got %q", rec.Body.String())
	}
}

func TestKeyReusedWithDifferentBodyIsRejected(t *testing.T) {
	calls := 0
	h := NewMiddleware(newMemoryStore(), time.Hour, logger.Discard()).Wrap(echoHandler(&calls))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, newCheckoutRequest("k", `{"user_id":"A"}`))

	second := httptest.NewRecorder()
	h.ServeHTTP(second, newCheckoutRequest("k", `{"user_id":"B"}`))

	if calls != 1 {
		t.Errorf("Second request must not reach the handler, calls=%d", calls)
	}
	if second.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", second.Code)
	}
	if second.Header().Get(ReplayedHeader) != "" {
		t.Error("Mismatched request must not be marked as a replay")
	}
	if strings.Contains(second.Body.String(), `"A"`) {
		t.Errorf("First user's response leaked: %s", second.Body.String())
	}
}

func TestFailureReleasesKey(t *testing.T) {
	calls := 0
	h := NewMiddleware(newMemoryStore(), time.Hour, logger.Discard()).Wrap(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusConflict)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, newCheckoutRequest("retry-me", `{}`))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, newCheckoutRequest("retry-me", `{}`))

	if calls != 2 {
		t.Fatalf("Expected retry after failure to reach handler, calls=%d", calls)
	}
	if second.Code != http.StatusCreated {
		t.Errorf("Expected 201 on retry, got %d", second.Code)
	}
}

func TestInFlightKeyConflicts(t *testing.T) {
	store := newMemoryStore()
	body := `{"user_id":"busy"}`
	fp := Fingerprint(http.MethodPost, "/orders/checkout", []byte(body))
	store.Reserve(context.Background(), "idempotency:busy", fp, time.Minute)

	h := NewMiddleware(store, time.Hour, logger.Discard()).Wrap(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("Handler must not run while key is in flight")
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newCheckoutRequest("busy", body))

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", rec.Code)
	}
}

func TestNoKeyPassesThrough(t *testing.T) {
	calls := 0
	h := NewMiddleware(newMemoryStore(), time.Hour, logger.Discard()).Wrap(echoHandler(&calls))

	h.ServeHTTP(httptest.NewRecorder(), newCheckoutRequest("", `{}`))
	h.ServeHTTP(httptest.NewRecorder(), newCheckoutRequest("", `{}`))

	if calls != 2 {
		t.Errorf("Expected 2 calls without key, got %d", calls)
	}
}

func TestFingerprintDependsOnBodyAndPath(t *testing.T) {
	base := Fingerprint(http.MethodPost, "/orders/checkout", []byte(`{"user_id":"A"}`))

	if base != Fingerprint(http.MethodPost, "/orders/checkout", []byte(`{"user_id":"A"}`)) {
		t.Error("Fingerprint should be stable")
	}
	if base == Fingerprint(http.MethodPost, "/orders/checkout", []byte(`{"user_id":"B"}`)) {
		t.Error("Different bodies should differ")
	}
	if base == Fingerprint(http.MethodPost, "/orders", []byte(`{"user_id":"A"}`)) {
		t.Error("Different paths should differ")
	}
}
