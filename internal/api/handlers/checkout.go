package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paybridge/internal/core"
	"paybridge/internal/external"
	"paybridge/internal/types"
)

// CheckoutHandler exposes checkout-session creation for the bot's
// subscribe flow. The session carries the telegram id in its metadata,
// which is what the webhook resolver later reads back.
type CheckoutHandler struct {
	billing external.BillingService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a CheckoutHandler.
func NewCheckoutHandler(billing external.BillingService, logger *slog.Logger) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{billing: billing, logger: logger}
}

// RegisterRoutes mounts the checkout endpoint.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/billing/checkout", h.Create)
}

type createCheckoutRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

type createCheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

// Create generates a payment link for the given telegram user.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMalformedPayload,
			"invalid request body",
			err,
		))
		return
	}
	if req.TelegramID <= 0 {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"telegram_id is required",
			nil,
		))
		return
	}

	checkoutURL, sessionID, err := h.billing.CreateCheckoutSession(ctx, req.TelegramID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create checkout session",
			"telegram_id", req.TelegramID,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "checkout session created",
		"telegram_id", req.TelegramID,
		"session_id", sessionID,
	)
	core.JSON(w, r, http.StatusOK, createCheckoutResponse{
		CheckoutURL: checkoutURL,
		SessionID:   sessionID,
	})
}
