package external

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paybridge/internal/types"
)

// newTelegramTestClient creates a TelegramClient pointed at a test server
// with no retries so failure tests are deterministic.
func newTelegramTestClient(t *testing.T, serverURL string) *TelegramClient {
	t.Helper()
	base := NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"telegram-test",
		RetryPolicy{MaxRetries: 0, MinWait: 1 * time.Millisecond, MaxWait: 1 * time.Millisecond},
		"PayBridge-Test/1.0",
		WithSleepFunc(noopSleep),
	)
	return NewTelegramClientWithBase(base, TelegramClientConfig{
		BotToken: "test-token",
		BaseURL:  serverURL,
	})
}

func TestTelegramSendMessage_Success(t *testing.T) {
	var gotPath string
	var gotBody telegramSendMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer server.Close()

	client := newTelegramTestClient(t, server.URL)

	err := client.SendMessage(context.Background(), 123456789, "payment received")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("expected sendMessage path with bot token, got %s", gotPath)
	}
	if gotBody.ChatID != 123456789 {
		t.Errorf("expected chat_id 123456789, got %d", gotBody.ChatID)
	}
	if gotBody.Text != "payment received" {
		t.Errorf("unexpected text: %s", gotBody.Text)
	}
	if gotBody.ParseMode != "HTML" {
		t.Errorf("expected parse_mode HTML, got %s", gotBody.ParseMode)
	}
}

func TestTelegramSendMessage_BlockedByUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer server.Close()

	client := newTelegramTestClient(t, server.URL)

	err := client.SendMessage(context.Background(), 42, "hello")
	if err == nil {
		t.Fatal("expected error for 403, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeUpstreamTelegram {
		t.Errorf("expected error code %s, got %s", types.ErrCodeUpstreamTelegram, appErr.Code)
	}
}

func TestTelegramSendMessage_BadRequestIncludesDescription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	client := newTelegramTestClient(t, server.URL)

	err := client.SendMessage(context.Background(), 42, "hello")
	if err == nil {
		t.Fatal("expected error for 400, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeUpstreamTelegram {
		t.Errorf("expected error code %s, got %s", types.ErrCodeUpstreamTelegram, appErr.Code)
	}
	if appErr.Details["status_code"] != http.StatusBadRequest {
		t.Errorf("expected status_code detail 400, got %v", appErr.Details["status_code"])
	}
}

func TestTelegramSendMessage_ServerErrorMapsToUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTelegramTestClient(t, server.URL)

	err := client.SendMessage(context.Background(), 42, "hello")
	if err == nil {
		t.Fatal("expected error for 502, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	// 5xx goes through BaseClient retry exhaustion and keeps its code.
	if appErr.Code != types.ErrCodeUpstreamUnavailable {
		t.Errorf("expected error code %s, got %s", types.ErrCodeUpstreamUnavailable, appErr.Code)
	}
}
