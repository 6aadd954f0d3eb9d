// Package webhook turns inbound HTTP deliveries into synchronization passes.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"order_sheets_sync/internal/failure"
	"order_sheets_sync/internal/syncer"
)

const maxBodyBytes = 1 << 20

// Syncer runs one pass for an order key.
type Syncer interface {
	Sync(ctx context.Context, key string) (syncer.Result, error)
}

// FailureNotifier is told about passes that failed.
type FailureNotifier interface {
	NotifySyncFailure(ctx context.Context, key string, err error)
}

type Handler struct {
	syncer     Syncer
	notifier   FailureNotifier
	secret     string
	timeout    time.Duration
	strategies []KeyStrategy
}

type Option func(*Handler)

// WithSecret requires "Authorization: Bearer <secret>" on every delivery.
func WithSecret(secret string) Option {
	return func(h *Handler) { h.secret = secret }
}

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

func WithNotifier(n FailureNotifier) Option {
	return func(h *Handler) { h.notifier = n }
}

func NewHandler(s Syncer, opts ...Option) *Handler {
	h := &Handler{syncer: s, strategies: DefaultKeyStrategies()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers the sync endpoint and a health check.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", h)
	mux.Handle("/sync", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	return mux
}

type response struct {
	Success bool           `json:"success"`
	Result  *syncer.Result `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)
	logger := log.With().Str("request_id", requestID).Logger()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, response{Error: "method not allowed"})
		return
	}
	if h.secret != "" && !h.authorized(r) {
		logger.Warn().Msg("Rejected delivery with bad credentials")
		writeJSON(w, http.StatusUnauthorized, response{Error: "unauthorized"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: "failed to read body"})
		return
	}

	key, strategy, err := ExtractKey(body, h.strategies)
	if err != nil {
		logger.Warn().Err(err).Msg("Rejected delivery without order key")
		writeJSON(w, StatusFor(failure.KindOf(err)), response{Error: err.Error()})
		return
	}
	logger.Debug().Str("order_id", key).Str("strategy", strategy).Msg("Extracted order key")

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.syncer.Sync(ctx, key)
	if err != nil {
		kind := failure.KindOf(err)
		logger.Error().Err(err).Str("order_id", key).Stringer("kind", kind).Msg("Sync pass failed")
		if h.notifier != nil && kind != failure.RecordNotFound && kind != failure.InvalidRequest {
			h.notifier.NotifySyncFailure(context.WithoutCancel(r.Context()), key, err)
		}
		writeJSON(w, StatusFor(kind), response{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, response{Success: true, Result: &result})
}

func (h *Handler) authorized(r *http.Request) bool {
	want := "Bearer " + h.secret
	got := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// StatusFor maps a failure kind to the HTTP status returned to the sender.
func StatusFor(kind failure.Kind) int {
	switch kind {
	case failure.InvalidRequest:
		return http.StatusBadRequest
	case failure.RecordNotFound:
		return http.StatusNotFound
	case failure.UpstreamAuthFailure, failure.SpreadsheetServiceFailure, failure.RecordSourceFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
