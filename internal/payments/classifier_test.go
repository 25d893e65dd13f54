package payments

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paybridge/internal/types"
)

func TestClassifier_Parse_CheckoutCompleted(t *testing.T) {
	c := NewClassifier()
	payload := []byte(`{
		"id": "evt_checkout_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"customer": "cus_abc",
			"amount_total": 5000,
			"currency": "usd",
			"metadata": {"telegram_id": "42"},
			"customer_details": {"email": "payer@example.com"}
		}}
	}`)

	event, err := c.Parse(payload)
	require.NoError(t, err)

	assert.Equal(t, "evt_checkout_1", event.ID)
	assert.Equal(t, types.KindCheckoutCompleted, event.Kind)
	assert.Equal(t, "cus_abc", event.CustomerID)
	assert.Equal(t, int64(5000), event.Amount.MinorUnits)
	assert.Equal(t, "50.00", event.Amount.Major())
	assert.Equal(t, "usd", event.Amount.Currency)
	assert.Equal(t, "42", event.Metadata["telegram_id"])
	assert.Equal(t, "payer@example.com", event.CustomerEmail)
	assert.Nil(t, event.PeriodStart)
	assert.Nil(t, event.PeriodEnd)
}

func TestClassifier_Parse_PaymentIntentSucceeded(t *testing.T) {
	c := NewClassifier()
	payload := []byte(`{
		"id": "evt_pi_1",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"customer": "cus_abc",
			"amount": 12345,
			"currency": "eur",
			"metadata": {"telegram_user_id": "7"}
		}}
	}`)

	event, err := c.Parse(payload)
	require.NoError(t, err)

	assert.Equal(t, types.KindPaymentIntentSucceeded, event.Kind)
	assert.Equal(t, "123.45", event.Amount.Major())
	assert.Equal(t, "eur", event.Amount.Currency)
	assert.Equal(t, "7", event.Metadata["telegram_user_id"])
}

func TestClassifier_Parse_InvoicePaymentSucceeded(t *testing.T) {
	c := NewClassifier()
	payload := []byte(`{
		"id": "evt_inv_1",
		"type": "invoice.payment_succeeded",
		"data": {"object": {
			"customer": "cus_abc",
			"amount_paid": 12345,
			"currency": "usd",
			"metadata": {"telegram_id": "42"},
			"period_start": 1706700000,
			"period_end": 1709292000
		}}
	}`)

	event, err := c.Parse(payload)
	require.NoError(t, err)

	assert.Equal(t, types.KindInvoicePaymentSucceeded, event.Kind)
	assert.Equal(t, "123.45", event.Amount.Major())
	require.NotNil(t, event.PeriodStart)
	require.NotNil(t, event.PeriodEnd)
	assert.Equal(t, time.Unix(1706700000, 0).UTC(), *event.PeriodStart)
	assert.Equal(t, time.Unix(1709292000, 0).UTC(), *event.PeriodEnd)
}

func TestClassifier_Parse_IrrelevantType(t *testing.T) {
	c := NewClassifier()
	payload := []byte(`{
		"id": "evt_cust_1",
		"type": "customer.created",
		"data": {"object": {"id": "cus_new"}}
	}`)

	event, err := c.Parse(payload)
	require.NoError(t, err)

	assert.Equal(t, types.KindOther, event.Kind)
	assert.False(t, event.Kind.Billable())
	assert.NotNil(t, event.Metadata, "metadata must never be nil downstream")
}

func TestClassifier_Parse_MalformedJSON(t *testing.T) {
	c := NewClassifier()

	_, err := c.Parse([]byte(`{"id": "evt_broken"`))
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationMalformedPayload, appErr.Code)
}

func TestClassifier_Parse_MalformedDataObject(t *testing.T) {
	c := NewClassifier()
	payload := []byte(`{
		"id": "evt_bad_obj",
		"type": "checkout.session.completed",
		"data": {"object": {"amount_total": "not-a-number"}}
	}`)

	_, err := c.Parse(payload)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationMalformedPayload, appErr.Code)
}

func TestClassifier_Parse_MissingAmountDefaultsToZero(t *testing.T) {
	c := NewClassifier()
	payload := []byte(`{
		"id": "evt_no_amount",
		"type": "payment_intent.succeeded",
		"data": {"object": {"customer": "cus_abc", "currency": "usd", "metadata": {}}}
	}`)

	event, err := c.Parse(payload)
	require.NoError(t, err)
	assert.Equal(t, "0.00", event.Amount.Major())
}
