package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Referral struct {
	ID         int64     `json:"id"`
	ReferrerID int64     `json:"referrer_id"`
	ReferredID int64     `json:"referred_id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReferralStats struct {
	TotalReferrals  int   `json:"total_referrals"`
	CommissionTotal int64 `json:"commission_total"`
}

type ReferralRepository struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// GetReferrerID returns the referrer's user id, or ErrUserNotFound when the
// user has no referrer.
func (r *ReferralRepository) GetReferrerID(ctx context.Context, userID int64) (int64, error) {
	var referrerID int64
	err := r.db.QueryRow(ctx,
		`SELECT referred_by FROM users WHERE id = $1 AND referred_by IS NOT NULL`,
		userID,
	).Scan(&referrerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return referrerID, err
}

// GetReferralsByUser returns everyone the user has referred, oldest first.
func (r *ReferralRepository) GetReferralsByUser(ctx context.Context, userID int64) ([]Referral, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ref.id, ref.referrer_id, ref.referred_id,
		        COALESCE(u.username, ''), COALESCE(u.first_name, ''), ref.created_at
		 FROM referrals ref
		 JOIN users u ON u.id = ref.referred_id
		 WHERE ref.referrer_id = $1
		 ORDER BY ref.created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var referrals []Referral
	for rows.Next() {
		var ref Referral
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID,
			&ref.Username, &ref.FirstName, &ref.CreatedAt); err != nil {
			return nil, err
		}
		referrals = append(referrals, ref)
	}
	return referrals, rows.Err()
}

// GetReferralStats returns the referral count and the lifetime commission
// total credited from referees' earnings.
func (r *ReferralRepository) GetReferralStats(ctx context.Context, userID int64) (*ReferralStats, error) {
	stats := &ReferralStats{}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM referrals WHERE referrer_id = $1`,
		userID,
	).Scan(&stats.TotalReferrals); err != nil {
		return nil, err
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		 WHERE user_id = $1 AND type = 'referral_commission'`,
		userID,
	).Scan(&stats.CommissionTotal); err != nil {
		return nil, err
	}

	return stats, nil
}
