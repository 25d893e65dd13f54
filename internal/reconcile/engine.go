// Package reconcile turns verified, classified payment events into
// subscription state. The engine owns the update path against the user
// store; the notifier owns best-effort message delivery afterwards.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"paybridge/internal/types"
)

// subscriptionPeriod is the period granted per payment when the event
// carries no explicit period (checkout sessions and payment intents).
// Invoice events supply their own billing period.
const subscriptionPeriod = 30 * 24 * time.Hour

// UserStore is the slice of the user repository the engine needs.
type UserStore interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*types.User, error)
	ApplySubscriptionUpdate(ctx context.Context, update types.SubscriptionUpdate) (*types.User, error)
}

// OutcomeKind labels the terminal state a reconciliation run ended in.
type OutcomeKind string

const (
	// OutcomeApplied means the subscription update was written.
	OutcomeApplied OutcomeKind = "applied"
	// OutcomeUserNotFound means the identity resolved but no local user
	// exists. A webhook never creates users, so this is terminal.
	OutcomeUserNotFound OutcomeKind = "user_not_found"
	// OutcomeUpdateFailed means the store update failed after the user
	// was found. The processor must see an error so it redelivers.
	OutcomeUpdateFailed OutcomeKind = "update_failed"
)

// Outcome is the terminal result of reconciling one payment event.
// User is set only for OutcomeApplied; Err is set for the failure kinds.
type Outcome struct {
	Kind OutcomeKind
	User *types.User
	Err  error
}

// Engine applies billable payment events to the user store.
type Engine struct {
	store  UserStore
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates a reconciliation engine backed by the given store.
func NewEngine(store UserStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile looks up the user behind the resolved identity and applies a
// full-field subscription overwrite built from the event. It never creates
// a user: an unknown identity is reported as OutcomeUserNotFound with no
// store mutation.
//
// The overwrite is naturally idempotent: redelivery of the same event
// produces the same final user state, so no dedup bookkeeping is kept.
func (e *Engine) Reconcile(ctx context.Context, identity types.ResolvedIdentity, event *types.PaymentEvent) Outcome {
	log := e.logger.With(
		"event_id", event.ID,
		"event_kind", string(event.Kind),
		"telegram_id", identity.TelegramID,
	)

	if _, err := e.store.GetByTelegramID(ctx, identity.TelegramID); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundUser {
			log.WarnContext(ctx, "payment received for unknown user, no subscription written")
			return Outcome{Kind: OutcomeUserNotFound, Err: err}
		}
		log.ErrorContext(ctx, "user lookup failed", "error", err)
		return Outcome{Kind: OutcomeUpdateFailed, Err: err}
	}

	update := e.buildUpdate(identity, event)

	user, err := e.store.ApplySubscriptionUpdate(ctx, update)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundUser {
			// The user vanished between lookup and update. Same terminal
			// state as not finding it in the first place.
			log.WarnContext(ctx, "user disappeared before subscription update")
			return Outcome{Kind: OutcomeUserNotFound, Err: err}
		}
		log.ErrorContext(ctx, "subscription update failed", "error", err)
		return Outcome{
			Kind: OutcomeUpdateFailed,
			Err: types.NewAppError(
				types.ErrCodeInternalStoreUpdate,
				"failed to apply subscription update",
				err,
			),
		}
	}

	log.InfoContext(ctx, "subscription updated",
		"amount", event.Amount.String(),
		"period_start", user.PeriodStart,
		"period_end", user.PeriodEnd,
	)
	return Outcome{Kind: OutcomeApplied, User: user}
}

// buildUpdate maps a payment event onto the subscription overwrite. Events
// without an explicit billing period get now + 30 days.
func (e *Engine) buildUpdate(identity types.ResolvedIdentity, event *types.PaymentEvent) types.SubscriptionUpdate {
	var start, end time.Time
	if event.PeriodStart != nil && event.PeriodEnd != nil {
		start = *event.PeriodStart
		end = *event.PeriodEnd
	} else {
		start = e.now()
		end = start.Add(subscriptionPeriod)
	}

	return types.SubscriptionUpdate{
		TelegramID:  identity.TelegramID,
		Active:      true,
		PeriodStart: start,
		PeriodEnd:   end,
		Amount:      event.Amount,
	}
}
