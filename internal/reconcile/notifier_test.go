package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessenger records every send and can fail selectively per chat.
type fakeMessenger struct {
	sent    []sentMessage
	failFor map[int64]error
}

type sentMessage struct {
	chatID int64
	text   string
}

func (f *fakeMessenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	if err, ok := f.failFor[chatID]; ok {
		return err
	}
	return nil
}

// fakeLanguages returns a fixed language per user.
type fakeLanguages struct {
	lang string
	err  error
}

func (f *fakeLanguages) PreferredLanguage(ctx context.Context, telegramID int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.lang, nil
}

func TestNotifySuccess_UserThenAdmin(t *testing.T) {
	messenger := &fakeMessenger{}
	notifier := NewNotifier(messenger, &fakeLanguages{lang: "en"}, 999, discardLogger())

	notifier.NotifySuccess(context.Background(), 42, billableEvent())

	require.Len(t, messenger.sent, 2)
	assert.Equal(t, int64(42), messenger.sent[0].chatID, "user message goes first")
	assert.Equal(t, int64(999), messenger.sent[1].chatID)
	assert.Contains(t, messenger.sent[0].text, "Payment Successful")
	assert.Contains(t, messenger.sent[1].text, "New Subscription")
	assert.Contains(t, messenger.sent[1].text, "cus_123")
	assert.Contains(t, messenger.sent[1].text, "50.00 usd")
}

func TestNotifySuccess_LocalizedForRussianUsers(t *testing.T) {
	messenger := &fakeMessenger{}
	notifier := NewNotifier(messenger, &fakeLanguages{lang: "ru"}, 0, discardLogger())

	notifier.NotifySuccess(context.Background(), 42, billableEvent())

	require.Len(t, messenger.sent, 1)
	assert.Contains(t, messenger.sent[0].text, "подписка активирована")
}

func TestNotifySuccess_AdminSkippedWhenUnconfigured(t *testing.T) {
	messenger := &fakeMessenger{}
	notifier := NewNotifier(messenger, &fakeLanguages{lang: "en"}, 0, discardLogger())

	notifier.NotifySuccess(context.Background(), 42, billableEvent())

	require.Len(t, messenger.sent, 1)
	assert.Equal(t, int64(42), messenger.sent[0].chatID)
}

func TestNotifySuccess_AdminStillNotifiedWhenUserSendFails(t *testing.T) {
	messenger := &fakeMessenger{
		failFor: map[int64]error{42: errors.New("bot was blocked by the user")},
	}
	notifier := NewNotifier(messenger, &fakeLanguages{lang: "en"}, 999, discardLogger())

	// Must not panic or propagate; both sends attempted.
	notifier.NotifySuccess(context.Background(), 42, billableEvent())

	require.Len(t, messenger.sent, 2)
	assert.Equal(t, int64(999), messenger.sent[1].chatID)
}

func TestNotifyFailure_SendsProblemNotice(t *testing.T) {
	messenger := &fakeMessenger{}
	notifier := NewNotifier(messenger, &fakeLanguages{lang: "en"}, 999, discardLogger())

	notifier.NotifyFailure(context.Background(), 42, billableEvent())

	require.Len(t, messenger.sent, 2)
	assert.Contains(t, messenger.sent[0].text, "Payment Issue")
}

func TestNotifier_DefaultsToEnglishOnLanguageLookupFailure(t *testing.T) {
	messenger := &fakeMessenger{}
	notifier := NewNotifier(messenger, &fakeLanguages{err: errors.New("store down")}, 0, discardLogger())

	notifier.NotifySuccess(context.Background(), 42, billableEvent())

	require.Len(t, messenger.sent, 1)
	assert.True(t, strings.Contains(messenger.sent[0].text, "Payment Successful"))
}

func TestNotifier_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	messenger := &fakeMessenger{}
	notifier := NewNotifier(messenger, &fakeLanguages{lang: "fr"}, 0, discardLogger())

	notifier.NotifySuccess(context.Background(), 42, billableEvent())

	require.Len(t, messenger.sent, 1)
	assert.Contains(t, messenger.sent[0].text, "Payment Successful")
}
