package external

import (
	"context"
)

// ---------------------------------------------------------------------------
// Billing Integration (Stripe)
// ---------------------------------------------------------------------------

// BillingService abstracts interactions with the payment provider (Stripe).
// Implementations translate between domain types and vendor-specific APIs.
type BillingService interface {
	// CreateCheckoutSession generates a Stripe Checkout URL for a Telegram
	// user to pay for a subscription. The telegram id is carried in the
	// session metadata so the payment webhook can map the customer back to
	// the bot user.
	CreateCheckoutSession(ctx context.Context, telegramID int64) (checkoutURL string, sessionID string, err error)
}

// ---------------------------------------------------------------------------
// Messaging Integration (Telegram)
// ---------------------------------------------------------------------------

// Messenger abstracts the Telegram Bot API surface the bridge needs:
// delivering a text message to a chat.
type Messenger interface {
	// SendMessage delivers text to the given chat. The chat id is the
	// Telegram user id for direct messages.
	SendMessage(ctx context.Context, chatID int64, text string) error
}
