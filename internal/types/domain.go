package types

import (
	"fmt"
	"time"
)

// EventKind classifies a payment-processor webhook event into the small set
// of shapes the reconciliation pipeline understands. Anything the pipeline
// does not act on is KindOther.
type EventKind string

const (
	KindCheckoutCompleted       EventKind = "checkout.session.completed"
	KindPaymentIntentSucceeded  EventKind = "payment_intent.succeeded"
	KindInvoicePaymentSucceeded EventKind = "invoice.payment_succeeded"
	KindOther                   EventKind = "other"
)

// Billable reports whether events of this kind represent a subscription
// payment that must be reconciled against a local user.
func (k EventKind) Billable() bool {
	switch k {
	case KindCheckoutCompleted, KindPaymentIntentSucceeded, KindInvoicePaymentSucceeded:
		return true
	default:
		return false
	}
}

// Amount is a monetary value held in minor currency units (cents). Holding
// the integer avoids float drift; the major-unit decimal is derived on demand.
type Amount struct {
	MinorUnits int64  `json:"minor_units"`
	Currency   string `json:"currency"`
}

// Major renders the amount in major currency units as an exact decimal
// string, e.g. MinorUnits=12345 -> "123.45". Division truncates toward zero,
// matching the processor's cent semantics.
func (a Amount) Major() string {
	units := a.MinorUnits / 100
	cents := a.MinorUnits % 100
	if cents < 0 {
		cents = -cents
	}
	if a.MinorUnits < 0 && units == 0 {
		return fmt.Sprintf("-0.%02d", cents)
	}
	return fmt.Sprintf("%d.%02d", units, cents)
}

// String renders the amount with its currency code for log lines and
// user-facing messages, e.g. "50.00 USD".
func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Major(), a.Currency)
}

// PaymentEvent is the structured form of a processor webhook event, decoded
// once at the classifier boundary so all downstream code is statically shaped.
type PaymentEvent struct {
	// ID is the processor-assigned event identifier (evt_...). Used for log
	// correlation and manual reconciliation, never as a dedup key: the
	// subscription update is a full-field overwrite and therefore naturally
	// idempotent under redelivery.
	ID   string
	Kind EventKind

	// CustomerID is the opaque processor customer reference (cus_...).
	// May be empty for one-off checkout sessions.
	CustomerID string

	// CustomerEmail is the contact address from the checkout session, when
	// present. It is a best-effort reconciliation hint only; the primary join
	// key is always the telegram id in Metadata.
	CustomerEmail string

	Amount   Amount
	Metadata map[string]string

	// PeriodStart/PeriodEnd are set only for invoice-type events, converted
	// from the processor's epoch-second fields.
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// ResolvedIdentity is the messaging-platform user identity extracted from a
// PaymentEvent's metadata. It is a derived value and is never persisted on
// its own.
type ResolvedIdentity struct {
	TelegramID int64
}

// SubscriptionUpdate is the full-field overwrite applied to a user record
// after a verified, classified, resolved payment event. Applying the same
// update twice leaves the user in the same state.
type SubscriptionUpdate struct {
	TelegramID  int64
	Active      bool
	PeriodStart time.Time
	PeriodEnd   time.Time
	Amount      Amount
}

// User is the persistent user record, keyed by the unique telegram id.
// Users are created by the bot on first interaction; the payment pipeline
// only ever reads and updates them -- a webhook must never create a user.
type User struct {
	ID           int64
	TelegramID   int64
	Username     string
	LanguageCode string

	SubscriptionActive bool
	PaymentStatus      bool
	PaymentAmount      Amount
	PaymentDate        *time.Time
	PeriodStart        *time.Time
	PeriodEnd          *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
