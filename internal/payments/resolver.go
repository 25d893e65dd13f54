package payments

import (
	"log/slog"
	"strconv"

	"paybridge/internal/types"
)

// Metadata keys carrying the messaging-platform user id, in precedence order.
// Both spellings exist in the wild because different checkout flows populated
// them differently; telegram_id wins when both are present.
const (
	metaKeyTelegramID     = "telegram_id"
	metaKeyTelegramUserID = "telegram_user_id"
)

// Resolver extracts the messaging-platform user identity from a payment
// event's metadata. It is the single required join key between the payment
// domain and the user domain: when resolution fails, the reconciliation
// engine must not proceed.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve returns the telegram identity carried in the event metadata.
//
// Lookup order: metadata["telegram_id"], then metadata["telegram_user_id"].
// The first present, non-empty value is parsed as an integer; a non-numeric
// value fails resolution rather than falling through to the next key, since
// a corrupted id is a configuration fault worth surfacing, not a reason to
// guess. Absence of both keys also fails resolution.
//
// The event's customer email, when present, is logged as a manual
// reconciliation hint. It is never used as an automatic fallback: email is
// not a verified join key and must not trigger a store mutation.
func (r *Resolver) Resolve(event *types.PaymentEvent) (types.ResolvedIdentity, error) {
	raw, key := firstMetadataValue(event.Metadata, metaKeyTelegramID, metaKeyTelegramUserID)
	if raw == "" {
		r.logUnresolved(event, "no telegram id key in metadata")
		return types.ResolvedIdentity{}, types.NewAppErrorWithDetails(
			types.ErrCodeIdentityUnresolved,
			"no telegram id in event metadata",
			nil,
			map[string]any{"event_id": event.ID},
		)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.logUnresolved(event, "telegram id is not numeric")
		return types.ResolvedIdentity{}, types.NewAppErrorWithDetails(
			types.ErrCodeIdentityUnresolved,
			"telegram id in event metadata is not numeric",
			err,
			map[string]any{"event_id": event.ID, "metadata_key": key},
		)
	}

	return types.ResolvedIdentity{TelegramID: id}, nil
}

// firstMetadataValue returns the first non-empty value among keys, with the
// key it was found under.
func firstMetadataValue(metadata map[string]string, keys ...string) (string, string) {
	for _, key := range keys {
		if v := metadata[key]; v != "" {
			return v, key
		}
	}
	return "", ""
}

// logUnresolved records the failure with enough context for manual
// reconciliation against the processor dashboard.
func (r *Resolver) logUnresolved(event *types.PaymentEvent, reason string) {
	attrs := []any{
		slog.String("event_id", event.ID),
		slog.String("event_kind", string(event.Kind)),
		slog.String("customer_id", event.CustomerID),
		slog.String("reason", reason),
	}
	if event.CustomerEmail != "" {
		attrs = append(attrs, slog.String("customer_email", event.CustomerEmail))
	}
	r.logger.Warn("identity resolution failed", attrs...)
}
