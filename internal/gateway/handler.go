package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/alphatracesol/operator-uplift-gateway/internal/auditlog"
	"github.com/alphatracesol/operator-uplift-gateway/internal/credits"
	"github.com/alphatracesol/operator-uplift-gateway/internal/metrics"
	"github.com/alphatracesol/operator-uplift-gateway/internal/provider"
	"github.com/alphatracesol/operator-uplift-gateway/internal/quota"
)

// Operation is the rate-limit bucket this endpoint draws from.
const Operation = "ai"

// auditTimeout bounds the detached interaction-log write.
const auditTimeout = 5 * time.Second

// Options tunes request validation and dispatch.
type Options struct {
	MaxMessages       int
	MaxMessageContent int
	ProviderTimeout   time.Duration
}

func (o *Options) fill() {
	if o.MaxMessages <= 0 {
		o.MaxMessages = 50
	}
	if o.MaxMessageContent <= 0 {
		o.MaxMessageContent = 8000
	}
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = 30 * time.Second
	}
}

// Verifier is the slice of the identity service the pipeline needs.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Handler runs the request pipeline for POST /ai-proxy. All
// dependencies are injected at construction; the handler itself holds
// no mutable state.
type Handler struct {
	verifier Verifier
	quotas   quota.Store
	ledger   credits.Ledger
	registry *provider.Registry
	audit    auditlog.Logger
	tracer   trace.Tracer
	opts     Options
}

func NewHandler(verifier Verifier, quotas quota.Store, ledger credits.Ledger, registry *provider.Registry, audit auditlog.Logger, tracer trace.Tracer, opts Options) *Handler {
	opts.fill()
	return &Handler{
		verifier: verifier,
		quotas:   quotas,
		ledger:   ledger,
		registry: registry,
		audit:    audit,
		tracer:   tracer,
		opts:     opts,
	}
}

type proxyRequest struct {
	Provider  string          `json:"provider"`
	Messages  json.RawMessage `json:"messages"`
	UserID    string          `json:"userId"`
	Timestamp int64           `json:"timestamp,omitempty"`
	// Optional per-call overrides
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	messages []provider.Message
}

// HandleProxy is the single request pipeline: validate body, verify
// identity, confirm the declared user, check the rate-limit window,
// check the credit balance, dispatch, deduct, log, respond. Each stage
// short-circuits with its exact status/body mapping; no stage retries.
func (h *Handler) HandleProxy(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "gateway.proxy")
	defer span.End()

	req, appErr := h.parseAndValidate(r)
	if appErr != nil {
		h.reject(w, span, appErr)
		return
	}

	userID, appErr := h.authenticate(ctx, r, req.UserID)
	if appErr != nil {
		h.reject(w, span, appErr)
		return
	}
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("provider", req.Provider),
	)

	if appErr := h.checkQuota(ctx, userID); appErr != nil {
		h.reject(w, span, appErr)
		return
	}

	// Advisory fast-fail; the authoritative balance change is the
	// guarded decrement after dispatch.
	balance, err := h.ledger.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, credits.ErrUserNotFound) {
			h.reject(w, span, errUserNotFound)
			return
		}
		slog.Error("gateway: balance check failed", "user_id", userID, "error", err)
		h.reject(w, span, errInternal)
		return
	}
	if balance <= 0 {
		h.reject(w, span, errNoCredits)
		return
	}

	p, ok := h.registry.Lookup(req.Provider)
	if !ok {
		h.reject(w, span, errUnsupported)
		return
	}

	resp, appErr := h.dispatch(ctx, p, req, userID)
	if appErr != nil {
		h.reject(w, span, appErr)
		return
	}

	// The provider call succeeded: the spend is committed even if the
	// write fails, trading a rare missed decrement for never
	// double-charging a timeout.
	if err := h.ledger.Deduct(ctx, userID); err != nil {
		metrics.CreditDeductFailures.Inc()
		slog.Error("gateway: credit deduction failed after dispatch", "user_id", userID, "error", err)
	} else {
		metrics.CreditsDeductedTotal.Inc()
	}

	h.logInteraction(userID, req.messages, resp)

	writeJSON(w, http.StatusOK, map[string]string{"response": resp.Text})
}

// HandleMethodNotAllowed answers anything that is not POST or OPTIONS.
func (h *Handler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, errMethodNotAllowed.Status, map[string]string{"error": errMethodNotAllowed.Message})
}

func (h *Handler) parseAndValidate(r *http.Request) (*proxyRequest, *AppError) {
	body, err := io.ReadAll(r.Body)
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil, errEmptyBody
	}

	var req proxyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errEmptyBody
	}

	if req.Provider == "" || len(req.Messages) == 0 || req.UserID == "" {
		return nil, errMissingFields
	}

	if err := json.Unmarshal(req.Messages, &req.messages); err != nil || len(req.messages) == 0 {
		return nil, errEmptyMessages
	}

	if len(req.messages) > h.opts.MaxMessages {
		return nil, errInvalidMessage
	}
	for _, m := range req.messages {
		switch m.Role {
		case "system", "user", "assistant":
		default:
			return nil, errInvalidMessage
		}
		if m.Content == "" || len(m.Content) > h.opts.MaxMessageContent {
			return nil, errInvalidMessage
		}
	}

	return &req, nil
}

func (h *Handler) authenticate(ctx context.Context, r *http.Request, declaredUserID string) (string, *AppError) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errNoAuthHeader
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	userID, err := h.verifier.Verify(ctx, token)
	if err != nil {
		return "", errInvalidToken
	}

	// A mismatch means a crafted request, not a stale token; it gets a
	// distinct, non-retryable rejection.
	if userID != declaredUserID {
		return "", errIdentityMismatch
	}

	return userID, nil
}

// checkQuota fails open when the quota store itself is unreachable:
// rate limiting protects capacity, credits protect money, and only the
// latter is allowed to block on infrastructure failure.
func (h *Handler) checkQuota(ctx context.Context, userID string) *AppError {
	decision, err := h.quotas.Check(ctx, userID, Operation)
	if err != nil {
		metrics.QuotaFailOpenTotal.Inc()
		slog.Warn("gateway: quota check failed, allowing request", "user_id", userID, "error", err)
		return nil
	}
	if !decision.Allowed {
		return rateLimited(decision.WaitSeconds)
	}
	return nil
}

func (h *Handler) dispatch(ctx context.Context, p provider.Provider, req *proxyRequest, userID string) (*provider.Response, *AppError) {
	callCtx, cancel := context.WithTimeout(ctx, h.opts.ProviderTimeout)
	defer cancel()

	start := time.Now()
	resp, err := h.registry.Execute(callCtx, p, &provider.Request{
		Messages:    req.messages,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		UserID:      userID,
	})
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ProviderCallDuration.WithLabelValues(p.Name(), outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		// Upstream detail stays in the logs; the caller only sees 500.
		slog.Error("gateway: provider call failed", "provider", p.Name(), "user_id", userID, "error", err)
		return nil, errInternal
	}

	return resp, nil
}

// logInteraction dispatches the audit write detached from the response
// path with its own bounded context. Failures are counted and dropped.
func (h *Handler) logInteraction(userID string, input []provider.Message, resp *provider.Response) {
	entry := &auditlog.Entry{
		UserID:   userID,
		Type:     "ai_interaction",
		Input:    input,
		Output:   resp.Text,
		Provider: resp.Provider,
		At:       time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := h.audit.Log(ctx, entry); err != nil {
			metrics.AuditLogFailures.Inc()
			slog.Warn("gateway: interaction log dropped", "user_id", userID, "error", err)
		}
	}()
}

func (h *Handler) reject(w http.ResponseWriter, span trace.Span, appErr *AppError) {
	span.SetAttributes(
		attribute.String("rejection", appErr.Kind),
		attribute.Int("status", appErr.Status),
	)
	metrics.RejectionsTotal.WithLabelValues(appErr.Kind).Inc()

	body := map[string]any{"error": appErr.Message}
	if appErr.WaitSeconds > 0 {
		body["waitTime"] = appErr.WaitSeconds
		w.Header().Set("Retry-After", strconv.Itoa(appErr.WaitSeconds))
	}
	writeJSON(w, appErr.Status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
