package domain

import "time"

// CreditAccount is a user's two-bucket prepaid balance. Both buckets are
// non-negative and subscription credits are always consumed first.
type CreditAccount struct {
	OwnerID             string
	SubscriptionCredits int
	PurchasedCredits    int
	UpdatedAt           time.Time
}

// Total returns the combined spendable balance.
func (a CreditAccount) Total() int {
	return a.SubscriptionCredits + a.PurchasedCredits
}

// SplitDebit computes per-bucket deductions for a debit of amount against
// the given balances: subscription first, remainder from purchased. The
// second return is false when the combined balance does not cover the
// amount, in which case nothing may be deducted.
func SplitDebit(subscription, purchased, amount int) (fromSubscription, fromPurchased int, ok bool) {
	if amount < 0 || subscription+purchased < amount {
		return 0, 0, false
	}
	fromSubscription = amount
	if fromSubscription > subscription {
		fromSubscription = subscription
	}
	return fromSubscription, amount - fromSubscription, true
}

// CreditUsageRecord is one immutable audit entry appended per debit.
type CreditUsageRecord struct {
	ID          string
	OwnerID     string
	Amount      int
	Description string
	CreatedAt   time.Time
}
