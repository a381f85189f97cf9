package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	Header         = "Idempotency-Key"
	ReplayedHeader = "Idempotent-Replayed"

	maxBodyBytes = 1 << 20
)

type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Entry is what a key holds: the fingerprint of the request that claimed
// it and, once that request succeeded, its response. A nil Response means
// the first request is still running.
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	Response    *Response `json:"response,omitempty"`
}

type Store interface {
	// Get returns nil if the key is unknown.
	Get(ctx context.Context, key string) (*Entry, error)
	// Reserve claims key for the request with fingerprint; false means
	// another request already holds it.
	Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (bool, error)
	Save(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// Fingerprint identifies a request by method, path and body.
func Fingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type Middleware struct {
	store      Store
	ttl        time.Duration
	reserveTTL time.Duration
	log        *slog.Logger
}

func NewMiddleware(store Store, ttl time.Duration, log *slog.Logger) *Middleware {
	return &Middleware{
		store:      store,
		ttl:        ttl,
		reserveTTL: time.Minute,
		log:        log,
	}
}

// Wrap replays the first successful response for a repeated key and
// request body. A key reused with a different body is rejected with 422.
// Requests without a key pass through untouched; failed responses release
// the key.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := Key(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		ctx := r.Context()
		scoped := "idempotency:" + key
		fingerprint := Fingerprint(r.Method, r.URL.Path, body)

		entry, err := m.store.Get(ctx, scoped)
		if err != nil {
			m.log.Warn("idempotency lookup failed, serving without replay protection",
				slog.String("key", key), slog.Any("err", err))
			next.ServeHTTP(w, r)
			return
		}
		if entry != nil {
			m.answerExisting(w, entry, fingerprint)
			return
		}

		reserved, err := m.store.Reserve(ctx, scoped, fingerprint, m.reserveTTL)
		if err != nil {
			m.log.Warn("idempotency reserve failed, serving without replay protection",
				slog.String("key", key), slog.Any("err", err))
			next.ServeHTTP(w, r)
			return
		}
		if !reserved {
			writeError(w, http.StatusConflict, "request with this idempotency key is in progress")
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		done := context.WithoutCancel(ctx)
		if rec.status >= 200 && rec.status < 300 {
			saved := Entry{
				Fingerprint: fingerprint,
				Response: &Response{
					Status:      rec.status,
					ContentType: rec.Header().Get("Content-Type"),
					Body:        rec.body.Bytes(),
				},
			}
			if err := m.store.Save(done, scoped, saved, m.ttl); err != nil {
				m.log.Error("idempotency save failed", slog.String("key", key), slog.Any("err", err))
			}
			return
		}

		if err := m.store.Release(done, scoped); err != nil {
			m.log.Error("idempotency release failed", slog.String("key", key), slog.Any("err", err))
		}
	})
}

func (m *Middleware) answerExisting(w http.ResponseWriter, entry *Entry, fingerprint string) {
	switch {
	case entry.Fingerprint != fingerprint:
		writeError(w, http.StatusUnprocessableEntity, "idempotency key was already used for a different request")
	case entry.Response == nil:
		writeError(w, http.StatusConflict, "request with this idempotency key is in progress")
	default:
		replay(w, entry.Response)
	}
}

func replay(w http.ResponseWriter, resp *Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}` + "\n"))
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
