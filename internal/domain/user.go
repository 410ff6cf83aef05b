package domain

import "time"

type User struct {
	ID               int64      `db:"id" json:"id"`
	TgID             int64      `db:"tg_id" json:"tg_id"`
	Username         string     `db:"username" json:"username"`
	FirstName        string     `db:"first_name" json:"first_name"`
	Balance          int64      `db:"balance" json:"balance"`
	SecondaryBalance float64    `db:"secondary_balance" json:"secondary_balance"`
	Level            int        `db:"level" json:"level"`
	TapCount         int64      `db:"tap_count" json:"tap_count"`
	LastSyncAt       *time.Time `db:"last_sync_at" json:"last_sync_at,omitempty"`
	BoosterExpiresAt *time.Time `db:"booster_expires_at" json:"booster_expires_at,omitempty"`
	AutotapExpiresAt *time.Time `db:"autotap_expires_at" json:"autotap_expires_at,omitempty"`
	LastSpinAt       *time.Time `db:"last_spin_at" json:"last_spin_at,omitempty"`
	ReferredBy       *int64     `db:"referred_by" json:"referred_by,omitempty"`
	Banned           bool       `db:"banned" json:"banned"`
	JoinedAt         time.Time  `db:"joined_at" json:"joined_at"`
}

// BoosterActive reports whether the x2 earn multiplier applies at the given time.
func (u *User) BoosterActive(now time.Time) bool {
	return u.BoosterExpiresAt != nil && u.BoosterExpiresAt.After(now)
}

// AutotapActive reports whether the passive income perk applies at the given time.
func (u *User) AutotapActive(now time.Time) bool {
	return u.AutotapExpiresAt != nil && u.AutotapExpiresAt.After(now)
}
