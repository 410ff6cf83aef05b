package domain

import "time"

// LedgerEntry records a single balance mutation. Amounts are in primary
// currency units except for entry types paying out the secondary currency,
// which carry the value in Meta.
type LedgerEntry struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Type      string                 `db:"type" json:"type"`
	Amount    int64                  `db:"amount" json:"amount"`
	Meta      map[string]interface{} `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

const (
	EntryTapEarn            = "tap_earn"
	EntryReferralCommission = "referral_commission"
	EntryReferralBonus      = "referral_bonus"
	EntrySpinPrize          = "spin_prize"
	EntryPurchase           = "purchase"
)
