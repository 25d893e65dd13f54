package reconcile

import (
	"context"
	"log/slog"
	"time"

	"paybridge/internal/external"
	"paybridge/internal/types"
)

// LanguageReader is the narrow slice of the user repository the notifier
// needs: the preferred message language for a user.
type LanguageReader interface {
	PreferredLanguage(ctx context.Context, telegramID int64) (string, error)
}

// Notifier delivers payment outcome messages over the messaging channel.
// Every send is best-effort: failures are logged and swallowed, because a
// failed chat message must never turn an applied payment into an HTTP
// error that the processor would retry.
type Notifier struct {
	messenger external.Messenger
	languages LanguageReader
	adminID   int64 // 0 disables admin notifications
	logger    *slog.Logger
	now       func() time.Time
}

// NewNotifier creates a Notifier. adminID 0 means no operator channel is
// configured and admin notifications are skipped.
func NewNotifier(messenger external.Messenger, languages LanguageReader, adminID int64, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		messenger: messenger,
		languages: languages,
		adminID:   adminID,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NotifySuccess tells the user their subscription is active, then notifies
// the operator. The user message is attempted first; both are attempted
// even if one fails.
func (n *Notifier) NotifySuccess(ctx context.Context, telegramID int64, event *types.PaymentEvent) {
	n.sendToUser(ctx, telegramID, successMessage(n.preferredLanguage(ctx, telegramID)))
	n.notifyAdmin(ctx, telegramID, event)
}

// NotifyFailure tells the user their payment was received but could not be
// applied, then notifies the operator so it can be reconciled manually.
func (n *Notifier) NotifyFailure(ctx context.Context, telegramID int64, event *types.PaymentEvent) {
	n.sendToUser(ctx, telegramID, failureMessage(n.preferredLanguage(ctx, telegramID)))
	n.notifyAdmin(ctx, telegramID, event)
}

func (n *Notifier) sendToUser(ctx context.Context, telegramID int64, text string) {
	if err := n.messenger.SendMessage(ctx, telegramID, text); err != nil {
		n.logger.WarnContext(ctx, "failed to notify user",
			"telegram_id", telegramID,
			"error", err,
		)
	}
}

func (n *Notifier) notifyAdmin(ctx context.Context, telegramID int64, event *types.PaymentEvent) {
	if n.adminID == 0 {
		return
	}
	text := adminSummary(telegramID, event, n.now())
	if err := n.messenger.SendMessage(ctx, n.adminID, text); err != nil {
		n.logger.WarnContext(ctx, "failed to notify admin",
			"admin_id", n.adminID,
			"telegram_id", telegramID,
			"error", err,
		)
	}
}

// preferredLanguage resolves the user's message language, defaulting to
// English when the lookup fails.
func (n *Notifier) preferredLanguage(ctx context.Context, telegramID int64) string {
	lang, err := n.languages.PreferredLanguage(ctx, telegramID)
	if err != nil {
		n.logger.DebugContext(ctx, "language lookup failed, using default",
			"telegram_id", telegramID,
			"error", err,
		)
		return languageEnglish
	}
	return lang
}
