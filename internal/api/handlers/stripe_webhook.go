// Package handlers contains the HTTP handler implementations for the
// PayBridge API.
//
// The webhook handler is NOT behind auth middleware -- it is called directly
// by the payment processor. Security is provided by verifying the
// Stripe-Signature header using HMAC-SHA256.
package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paybridge/internal/core"
	"paybridge/internal/payments"
	"paybridge/internal/reconcile"
	"paybridge/internal/types"
)

// maxWebhookBodySize is the maximum allowed size of a webhook payload (64 KB).
// Processor payloads are typically small; this limit protects against abuse.
const maxWebhookBodySize = 64 * 1024

// ---------------------------------------------------------------------------
// Interfaces for webhook handler dependencies
// ---------------------------------------------------------------------------

// Reconciler applies a resolved payment to the user store. This is the
// subset of the reconciliation engine the handler needs.
type Reconciler interface {
	Reconcile(ctx context.Context, identity types.ResolvedIdentity, event *types.PaymentEvent) reconcile.Outcome
}

// PaymentNotifier delivers best-effort outcome messages. Failures inside
// the notifier never surface here.
type PaymentNotifier interface {
	NotifySuccess(ctx context.Context, telegramID int64, event *types.PaymentEvent)
	NotifyFailure(ctx context.Context, telegramID int64, event *types.PaymentEvent)
}

// ---------------------------------------------------------------------------
// Stripe Webhook Handler
// ---------------------------------------------------------------------------

// StripeWebhookHandler drives the full pipeline for one webhook delivery:
// verify, classify, resolve, reconcile, notify -- strictly in that order.
// A request never reaches the store unverified.
type StripeWebhookHandler struct {
	verifier   payments.WebhookVerifier
	classifier *payments.Classifier
	resolver   *payments.Resolver
	engine     Reconciler
	notifier   PaymentNotifier
	secret     string
	logger     *slog.Logger
}

// NewStripeWebhookHandler creates a StripeWebhookHandler with the provided
// dependencies.
func NewStripeWebhookHandler(
	verifier payments.WebhookVerifier,
	classifier *payments.Classifier,
	resolver *payments.Resolver,
	engine Reconciler,
	notifier PaymentNotifier,
	secret string,
	logger *slog.Logger,
) *StripeWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeWebhookHandler{
		verifier:   verifier,
		classifier: classifier,
		resolver:   resolver,
		engine:     engine,
		notifier:   notifier,
		secret:     secret,
		logger:     logger,
	}
}

// RegisterRoutes mounts the webhook endpoint. Webhook routes are public
// (no auth middleware).
func (h *StripeWebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook/stripe", h.Handle)
}

// Handle processes one incoming webhook delivery.
//
// Status contract:
//   - 200 {"status":"success"} -- billable event applied
//   - 200 {"status":"ignored"} -- irrelevant event type
//   - 400 -- bad/missing signature, missing secret config, malformed
//     payload, unresolvable identity, or unknown user (rejected before any
//     state change)
//   - 500 -- user found but the store update failed; the processor retries
//     the delivery, and the full-field overwrite makes the retry safe
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read webhook body", "error", err)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMalformedPayload,
			"failed to read request body",
			err,
		))
		return
	}

	if h.secret == "" {
		// Misconfiguration: reject rather than accept unverifiable input.
		h.logger.ErrorContext(ctx, "webhook signing secret is not configured")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeAuthSecretMissing,
			"webhook signing secret is not configured",
			nil,
		))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		h.logger.WarnContext(ctx, "missing Stripe-Signature header")
		core.Error(w, r, types.NewAppError(
			types.ErrCodeAuthSignatureMissing,
			"missing Stripe-Signature header",
			nil,
		))
		return
	}

	if err := h.verifier.Verify(payload, sigHeader, h.secret); err != nil {
		h.logger.WarnContext(ctx, "webhook signature verification failed", "error", err)
		core.Error(w, r, types.NewAppError(
			types.ErrCodeAuthSignatureInvalid,
			"webhook signature verification failed",
			err,
		))
		return
	}

	event, err := h.classifier.Parse(payload)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to parse webhook event", "error", err)
		core.Error(w, r, err)
		return
	}

	// Audit line: every verified delivery is recorded at classification
	// time, whether or not it is billable.
	h.logger.InfoContext(ctx, "webhook event received",
		"event_id", event.ID,
		"event_kind", string(event.Kind),
		"customer_id", event.CustomerID,
		"amount", event.Amount.String(),
	)

	if !event.Kind.Billable() {
		core.JSON(w, r, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	identity, err := h.resolver.Resolve(event)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	outcome := h.engine.Reconcile(ctx, identity, event)
	switch outcome.Kind {
	case reconcile.OutcomeApplied:
		h.notifier.NotifySuccess(ctx, identity.TelegramID, event)
		core.JSON(w, r, http.StatusOK, map[string]string{"status": "success"})

	case reconcile.OutcomeUserNotFound:
		// Resolved to a telegram id with no local record. A webhook never
		// creates users, so this is rejected; no chat message is sent to
		// an id we have no relationship with.
		core.Error(w, r, outcome.Err)

	case reconcile.OutcomeUpdateFailed:
		// Accepted but failed to apply: tell the user we saw the payment,
		// and answer 500 so the processor redelivers.
		h.notifier.NotifyFailure(ctx, identity.TelegramID, event)
		core.Error(w, r, outcome.Err)

	default:
		core.Error(w, r, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"unknown reconciliation outcome",
			nil,
		))
	}
}
