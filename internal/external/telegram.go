package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"paybridge/internal/types"
)

// telegramAPIBase is the default Telegram Bot API base URL.
// Overridable in tests via TelegramClientConfig.BaseURL.
const telegramAPIBase = "https://api.telegram.org"

// TelegramClientConfig holds the configuration for creating a TelegramClient.
type TelegramClientConfig struct {
	BotToken string
	BaseURL  string // Override for testing; defaults to telegramAPIBase
	Logger   *slog.Logger
}

// TelegramClient implements Messenger by making direct HTTP calls to the
// Telegram Bot API sendMessage method through BaseClient. This routes all
// requests through the shared resilience infrastructure (circuit breaker,
// retries, error mapping) and makes testing with httptest straightforward.
type TelegramClient struct {
	base     *BaseClient
	botToken string
	baseURL  string
	logger   *slog.Logger
}

// NewTelegramClient creates a new TelegramClient.
func NewTelegramClient(
	httpClient *http.Client,
	cfg TelegramClientConfig,
) *TelegramClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = telegramAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := NewBaseClient(
		httpClient,
		"telegram",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		"PayBridge/1.0",
		WithSleepFunc(time.Sleep),
	)

	return &TelegramClient{
		base:     base,
		botToken: cfg.BotToken,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		logger:   logger,
	}
}

// NewTelegramClientWithBase creates a TelegramClient with a pre-configured
// BaseClient. This is useful for testing when you want to control the
// BaseClient configuration (e.g., disable retries).
func NewTelegramClientWithBase(
	base *BaseClient,
	cfg TelegramClientConfig,
) *TelegramClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = telegramAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TelegramClient{
		base:     base,
		botToken: cfg.BotToken,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		logger:   logger,
	}
}

// ---------------------------------------------------------------------------
// Messenger Implementation
// ---------------------------------------------------------------------------

// telegramSendMessageRequest is the JSON body for the sendMessage method.
type telegramSendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// telegramResponse is the envelope every Bot API method returns.
type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// SendMessage delivers a text message to the given chat using the Bot API
// sendMessage method. Messages are sent with HTML parse mode so callers can
// use bold and links in notification text.
//
// Error mapping:
//   - 403 Forbidden (user blocked the bot) -> types.ErrCodeUpstreamTelegram
//   - 429 Too Many Requests -> handled by BaseClient (retry + ErrCodeUpstreamRateLimited)
//   - 5xx -> handled by BaseClient (retry + ErrCodeUpstreamUnavailable)
//   - Other 4xx -> types.ErrCodeUpstreamTelegram
func (t *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := telegramSendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to marshal Telegram sendMessage payload",
			err,
		)
	}

	reqURL := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create Telegram sendMessage request",
			err,
		)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.base.Do(req)
	if err != nil {
		return t.wrapTelegramError("SendMessage", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	return t.handleErrorResponse(resp, "SendMessage")
}

// ---------------------------------------------------------------------------
// Error Handling
// ---------------------------------------------------------------------------

// handleErrorResponse reads a Bot API error envelope and maps it to a
// types.AppError.
func (t *TelegramClient) handleErrorResponse(resp *http.Response, operation string) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamTelegram,
			fmt.Sprintf("%s: Telegram returned status %d and response body was unreadable", operation, resp.StatusCode),
			readErr,
		)
	}

	var tgErr telegramResponse
	errMsg := ""
	if jsonErr := json.Unmarshal(body, &tgErr); jsonErr == nil && tgErr.Description != "" {
		errMsg = tgErr.Description
	} else {
		errMsg = string(body)
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamTelegram,
		fmt.Sprintf("%s: Telegram error (%d): %s", operation, resp.StatusCode, errMsg),
		nil,
		map[string]any{"status_code": resp.StatusCode},
	)
}

// wrapTelegramError wraps a BaseClient transport error with context.
func (t *TelegramClient) wrapTelegramError(operation string, err error) error {
	// BaseClient errors (circuit breaker, retries exhausted) already carry
	// the right upstream code.
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamTelegram,
		fmt.Sprintf("%s: Telegram request failed: %v", operation, err),
		err,
	)
}

// ---------------------------------------------------------------------------
// Interface Compliance
// ---------------------------------------------------------------------------

// Compile-time assertion that TelegramClient satisfies Messenger.
var _ Messenger = (*TelegramClient)(nil)
