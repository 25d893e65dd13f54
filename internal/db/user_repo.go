package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"paybridge/internal/types"
)

// defaultLanguage is used when a user has no stored language preference.
const defaultLanguage = "en"

// UserRepository provides data access for the users table. Users are created
// by the bot on first interaction; this repository deliberately has no insert
// path reachable from payment processing -- a webhook must never create a user.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository backed by the given database
// connection (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// userColumns defines the standard set of columns selected for user queries.
// Used consistently across all query methods to avoid column drift.
// payment_amount_minor holds cents; the major-unit decimal is derived in code.
const userColumns = `u.id, u.telegram_id, u.username, u.language_code,
	u.subscription_active, u.payment_status, u.payment_amount_minor, u.payment_currency,
	u.payment_date, u.period_start, u.period_end, u.created_at, u.updated_at`

// scanUser scans a single user row into a types.User struct.
// The columns must match the order defined in userColumns. Nullable columns
// (username, language_code, payment fields) use pointer scan targets.
func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	var (
		username     *string
		languageCode *string
		amountMinor  *int64
		currency     *string
	)
	err := row.Scan(
		&u.ID,
		&u.TelegramID,
		&username,
		&languageCode,
		&u.SubscriptionActive,
		&u.PaymentStatus,
		&amountMinor,
		&currency,
		&u.PaymentDate,
		&u.PeriodStart,
		&u.PeriodEnd,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if username != nil {
		u.Username = *username
	}
	if languageCode != nil {
		u.LanguageCode = *languageCode
	}
	if amountMinor != nil {
		u.PaymentAmount.MinorUnits = *amountMinor
	}
	if currency != nil {
		u.PaymentAmount.Currency = *currency
	}
	return &u, nil
}

// GetByTelegramID retrieves a user by their unique telegram id.
// Returns ErrCodeNotFoundUser if no user exists.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 WHERE u.telegram_id = $1`,
		telegramID,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user", err)
	}
	return u, nil
}

// ApplySubscriptionUpdate applies a full-field overwrite of the user's
// subscription state, keyed by telegram id. It is an update-only upsert:
// when no matching row exists it returns ErrCodeNotFoundUser and changes
// nothing.
//
// Because every field is overwritten rather than incremented, applying the
// same update twice leaves the row in the same state; processor webhook
// redelivery needs no dedup bookkeeping. Concurrent webhooks for the same
// user serialize through Postgres row locking, last write wins.
func (r *UserRepository) ApplySubscriptionUpdate(ctx context.Context, update types.SubscriptionUpdate) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE users u
		 SET subscription_active = $1,
		     payment_status = $2,
		     payment_amount_minor = $3,
		     payment_currency = $4,
		     payment_date = NOW(),
		     period_start = $5,
		     period_end = $6,
		     updated_at = NOW()
		 WHERE u.telegram_id = $7
		 RETURNING `+userColumns,
		update.Active,
		update.Active,
		update.Amount.MinorUnits,
		update.Amount.Currency,
		update.PeriodStart,
		update.PeriodEnd,
		update.TelegramID,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to update subscription", err)
	}
	return u, nil
}

// PreferredLanguage returns the user's stored message language, defaulting to
// "en" when the user is unknown or has no preference. Notification
// formatting must not fail because a language row is missing.
func (r *UserRepository) PreferredLanguage(ctx context.Context, telegramID int64) (string, error) {
	var languageCode *string
	err := r.db.QueryRow(ctx,
		`SELECT u.language_code FROM users u WHERE u.telegram_id = $1`,
		telegramID,
	).Scan(&languageCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return defaultLanguage, nil
		}
		return defaultLanguage, types.NewAppError(types.ErrCodeInternalDB, "failed to read language preference", err)
	}
	if languageCode == nil || *languageCode == "" {
		return defaultLanguage, nil
	}
	return *languageCode, nil
}
