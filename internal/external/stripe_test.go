package external

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"paybridge/internal/types"
)

// newStripeTestClient creates a StripeClient pointed at a test server with
// no retries so failure tests are deterministic.
func newStripeTestClient(t *testing.T, serverURL string) *StripeClient {
	t.Helper()
	base := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"stripe-test",
		RetryPolicy{MaxRetries: 0, MinWait: 1 * time.Millisecond, MaxWait: 1 * time.Millisecond},
		"PayBridge-Test/1.0",
		WithSleepFunc(noopSleep),
	)
	return NewStripeClientWithBase(base, StripeClientConfig{
		SecretKey: "sk_test_123",
		PriceID:   "price_monthly",
		BaseURL:   serverURL,
	})
}

func TestCreateCheckoutSession_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotForm url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_test_abc","url":"https://checkout.stripe.com/c/pay/cs_test_abc"}`))
	}))
	defer server.Close()

	client := newStripeTestClient(t, server.URL)

	checkoutURL, sessionID, err := client.CreateCheckoutSession(context.Background(), 123456789)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if gotPath != "/v1/checkout/sessions" {
		t.Errorf("expected /v1/checkout/sessions, got %s", gotPath)
	}
	if gotAuth != "Bearer sk_test_123" {
		t.Errorf("unexpected Authorization header: %s", gotAuth)
	}
	if got := gotForm.Get("metadata[telegram_id]"); got != "123456789" {
		t.Errorf("expected metadata[telegram_id]=123456789, got %q", got)
	}
	if got := gotForm.Get("client_reference_id"); got != "123456789" {
		t.Errorf("expected client_reference_id=123456789, got %q", got)
	}
	if got := gotForm.Get("line_items[0][price]"); got != "price_monthly" {
		t.Errorf("expected configured price id, got %q", got)
	}
	if got := gotForm.Get("mode"); got != "subscription" {
		t.Errorf("expected mode=subscription, got %q", got)
	}

	if checkoutURL != "https://checkout.stripe.com/c/pay/cs_test_abc" {
		t.Errorf("unexpected checkout URL: %s", checkoutURL)
	}
	if sessionID != "cs_test_abc" {
		t.Errorf("unexpected session ID: %s", sessionID)
	}
}

func TestCreateCheckoutSession_StripeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such price: price_monthly"}}`))
	}))
	defer server.Close()

	client := newStripeTestClient(t, server.URL)

	_, _, err := client.CreateCheckoutSession(context.Background(), 42)
	if err == nil {
		t.Fatal("expected error for 400, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeUpstreamStripe {
		t.Errorf("expected error code %s, got %s", types.ErrCodeUpstreamStripe, appErr.Code)
	}
}

func TestCreateCheckoutSession_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newStripeTestClient(t, server.URL)

	_, _, err := client.CreateCheckoutSession(context.Background(), 42)
	if err == nil {
		t.Fatal("expected error for 429, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeUpstreamRateLimited {
		t.Errorf("expected error code %s, got %s", types.ErrCodeUpstreamRateLimited, appErr.Code)
	}
}
