package payments

import (
	stripe "github.com/stripe/stripe-go/v82"
)

// SDKVerifier implements WebhookVerifier using stripe-go's webhook signature
// verification. This provides HMAC-SHA256 checking of the timestamped header
// with the SDK's default timestamp tolerance, for deployments that want the
// vendor-maintained implementation instead of NativeVerifier. It does not
// accept the simple "v1=<hex>" header form.
type SDKVerifier struct{}

// NewSDKVerifier creates an SDKVerifier.
func NewSDKVerifier() *SDKVerifier {
	return &SDKVerifier{}
}

// Compile-time assertion that SDKVerifier satisfies WebhookVerifier.
var _ WebhookVerifier = (*SDKVerifier)(nil)

// Verify validates a webhook payload against the signature header and signing
// secret using stripe-go's ValidatePayload, which checks both the HMAC
// signature and the timestamp tolerance.
func (v *SDKVerifier) Verify(payload []byte, header string, secret string) error {
	return stripe.ValidatePayload(payload, header, secret)
}
