package payments

import (
	"encoding/json"
	"time"

	"paybridge/internal/types"
)

// Minimal event representations tailored to extract the fields the pipeline
// needs. We avoid importing the full stripe.Event type to keep parsing
// decoupled from the stripe-go library and to make testing straightforward.

// rawEvent is the outer webhook event envelope.
type rawEvent struct {
	ID   string       `json:"id"`
	Type string       `json:"type"`
	Data rawEventData `json:"data"`
}

// rawEventData wraps the event data object.
type rawEventData struct {
	Object json.RawMessage `json:"object"`
}

// checkoutSessionObj carries the fields read from a checkout.session.completed
// data object. Amounts are in minor units (cents) as the processor sends them.
type checkoutSessionObj struct {
	Customer        string            `json:"customer"`
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails *customerDetails  `json:"customer_details"`
}

type customerDetails struct {
	Email string `json:"email"`
}

// paymentIntentObj carries the fields read from a payment_intent.succeeded
// data object.
type paymentIntentObj struct {
	Customer string            `json:"customer"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// invoiceObj carries the fields read from an invoice.payment_succeeded data
// object. Period bounds are epoch seconds.
type invoiceObj struct {
	Customer    string            `json:"customer"`
	AmountPaid  int64             `json:"amount_paid"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata"`
	PeriodStart int64             `json:"period_start"`
	PeriodEnd   int64             `json:"period_end"`
}

// Classifier parses raw webhook payloads into statically-shaped PaymentEvents
// and decides whether they are subscription-relevant.
type Classifier struct{}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Parse decodes a verified webhook payload into a PaymentEvent. Malformed
// JSON yields a validation AppError (a client fault, not a server fault).
// Event types the pipeline does not act on come back as KindOther with only
// the ID populated; the endpoint answers those with an "ignored" outcome.
func (c *Classifier) Parse(payload []byte) (*types.PaymentEvent, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeValidationMalformedPayload,
			"invalid webhook event JSON",
			err,
		)
	}

	event := &types.PaymentEvent{
		ID:   raw.ID,
		Kind: classifyType(raw.Type),
	}

	switch event.Kind {
	case types.KindCheckoutCompleted:
		var obj checkoutSessionObj
		if err := json.Unmarshal(raw.Data.Object, &obj); err != nil {
			return nil, malformedObject(raw.Type, err)
		}
		event.CustomerID = obj.Customer
		event.Amount = types.Amount{MinorUnits: obj.AmountTotal, Currency: obj.Currency}
		event.Metadata = obj.Metadata
		if obj.CustomerDetails != nil {
			event.CustomerEmail = obj.CustomerDetails.Email
		}

	case types.KindPaymentIntentSucceeded:
		var obj paymentIntentObj
		if err := json.Unmarshal(raw.Data.Object, &obj); err != nil {
			return nil, malformedObject(raw.Type, err)
		}
		event.CustomerID = obj.Customer
		event.Amount = types.Amount{MinorUnits: obj.Amount, Currency: obj.Currency}
		event.Metadata = obj.Metadata

	case types.KindInvoicePaymentSucceeded:
		var obj invoiceObj
		if err := json.Unmarshal(raw.Data.Object, &obj); err != nil {
			return nil, malformedObject(raw.Type, err)
		}
		event.CustomerID = obj.Customer
		event.Amount = types.Amount{MinorUnits: obj.AmountPaid, Currency: obj.Currency}
		event.Metadata = obj.Metadata
		if obj.PeriodStart != 0 {
			start := time.Unix(obj.PeriodStart, 0).UTC()
			event.PeriodStart = &start
		}
		if obj.PeriodEnd != 0 {
			end := time.Unix(obj.PeriodEnd, 0).UTC()
			event.PeriodEnd = &end
		}
	}

	if event.Metadata == nil {
		event.Metadata = map[string]string{}
	}

	return event, nil
}

// classifyType maps a processor event type string to an EventKind.
func classifyType(eventType string) types.EventKind {
	switch eventType {
	case string(types.KindCheckoutCompleted):
		return types.KindCheckoutCompleted
	case string(types.KindPaymentIntentSucceeded):
		return types.KindPaymentIntentSucceeded
	case string(types.KindInvoicePaymentSucceeded):
		return types.KindInvoicePaymentSucceeded
	default:
		return types.KindOther
	}
}

// malformedObject builds the AppError for a data object that failed to decode.
func malformedObject(eventType string, err error) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMalformedPayload,
		"invalid event data object",
		err,
		map[string]any{"event_type": eventType},
	)
}
