package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

// CreditLedgerPG implements domain.CreditLedger on PostgreSQL. The debit is
// one guarded UPDATE, so concurrent debits for the same owner serialize on
// the account row instead of racing a read-then-write.
type CreditLedgerPG struct {
	sql    infra.SQLExecutor
	logger zerolog.Logger
}

// NewCreditLedger creates a ledger backed by the given executor.
func NewCreditLedger(sql infra.SQLExecutor, logger zerolog.Logger) *CreditLedgerPG {
	return &CreditLedgerPG{sql: sql, logger: logger}
}

// Debit deducts amount from the owner's balance, subscription bucket first.
// It returns false with no mutation when the combined balance is too small.
// The usage record is appended after the balance write; an audit insert
// failure is logged and swallowed because the debit is already authoritative.
func (l *CreditLedgerPG) Debit(ctx context.Context, ownerID string, amount int, description string) (bool, error) {
	row := l.sql.QueryRow(ctx, sqlinline.QDebitCredits, ownerID, amount)
	var subscription, purchased int
	if err := row.Scan(&subscription, &purchased); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	if _, err := l.sql.Exec(ctx, sqlinline.QInsertCreditUsage, ownerID, amount, description); err != nil {
		l.logger.Error().Err(err).
			Str("owner_id", ownerID).
			Int("amount", amount).
			Msg("ledger: usage record insert failed")
	}
	return true, nil
}

// Balance returns the owner's account. Unknown owners read as an empty
// account rather than an error.
func (l *CreditLedgerPG) Balance(ctx context.Context, ownerID string) (*domain.CreditAccount, error) {
	row := l.sql.QueryRow(ctx, sqlinline.QSelectCreditBalance, ownerID)
	var account domain.CreditAccount
	if err := row.Scan(&account.OwnerID, &account.SubscriptionCredits, &account.PurchasedCredits, &account.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.CreditAccount{OwnerID: ownerID}, nil
		}
		return nil, err
	}
	return &account, nil
}

// ResetSubscription sets the subscription bucket to the tier amount, used by
// the billing cycle at period rollover.
func (l *CreditLedgerPG) ResetSubscription(ctx context.Context, ownerID string, amount int) error {
	_, err := l.sql.Exec(ctx, sqlinline.QResetSubscriptionCredits, ownerID, amount)
	return err
}

// AddPurchased increments the purchased bucket after a completed purchase.
func (l *CreditLedgerPG) AddPurchased(ctx context.Context, ownerID string, amount int) error {
	_, err := l.sql.Exec(ctx, sqlinline.QAddPurchasedCredits, ownerID, amount)
	return err
}

var _ domain.CreditLedger = (*CreditLedgerPG)(nil)
