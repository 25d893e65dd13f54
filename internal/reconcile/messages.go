package reconcile

import (
	"fmt"
	"time"

	"paybridge/internal/types"
)

// Message catalog for user-facing notifications, keyed by language code.
// Telegram messages use HTML parse mode.

const (
	languageEnglish = "en"
	languageRussian = "ru"
)

var successMessages = map[string]string{
	languageEnglish: `🎉 <b>Payment Successful!</b>

✅ Your subscription has been activated
📅 Subscription period: 30 days from today

Thank you for your payment!`,
	languageRussian: `🎉 <b>Оплата прошла успешно!</b>

✅ Ваша подписка активирована
📅 Срок подписки: 30 дней с сегодняшнего дня

Спасибо за оплату!`,
}

var failureMessages = map[string]string{
	languageEnglish: `⚠️ <b>Payment Issue</b>

We received your payment but could not activate your subscription automatically. Our team has been notified and will resolve it shortly.`,
	languageRussian: `⚠️ <b>Проблема с оплатой</b>

Мы получили ваш платёж, но не смогли автоматически активировать подписку. Наша команда уже уведомлена и скоро всё исправит.`,
}

// successMessage returns the localized payment confirmation, falling back
// to English for unknown language codes.
func successMessage(lang string) string {
	if msg, ok := successMessages[lang]; ok {
		return msg
	}
	return successMessages[languageEnglish]
}

// failureMessage returns the localized payment problem notice, falling back
// to English for unknown language codes.
func failureMessage(lang string) string {
	if msg, ok := failureMessages[lang]; ok {
		return msg
	}
	return failureMessages[languageEnglish]
}

// adminSummary formats the operator notification for a processed payment.
// Operator messages are always English.
func adminSummary(telegramID int64, event *types.PaymentEvent, at time.Time) string {
	return fmt.Sprintf(`🔥 <b>New Subscription</b>

👤 User: %d
💳 Customer: %s
💰 Amount: %s
🕐 Time: %s UTC`,
		telegramID,
		orNA(event.CustomerID),
		event.Amount.String(),
		at.UTC().Format("2006-01-02 15:04:05"),
	)
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
