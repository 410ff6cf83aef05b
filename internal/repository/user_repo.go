package repository

import (
	"context"
	"errors"
	"time"

	"snowman_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, tg_id, COALESCE(username, ''), COALESCE(first_name, ''),
	balance, secondary_balance, level, tap_count,
	last_sync_at, booster_expires_at, autotap_expires_at, last_spin_at,
	referred_by, banned, joined_at`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.TgID,
		&u.Username,
		&u.FirstName,
		&u.Balance,
		&u.SecondaryBalance,
		&u.Level,
		&u.TapCount,
		&u.LastSyncAt,
		&u.BoosterExpiresAt,
		&u.AutotapExpiresAt,
		&u.LastSpinAt,
		&u.ReferredBy,
		&u.Banned,
		&u.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByTgID(ctx context.Context, tgID int64) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tg_id = $1`, tgID))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// Starting balance for new users.
const initialBalance = 500

// Create inserts a new user with default values. When referrerID points at an
// existing user, the referral relation is recorded and joinBonus is credited
// to both sides in the same transaction.
func (r *UserRepository) Create(ctx context.Context, u *domain.User, referrerID *int64, joinBonus int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	balance := int64(initialBalance)
	if referrerID != nil {
		// confirm the referrer exists; a dangling id just means no bonus
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, *referrerID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			referrerID = nil
		}
	}
	if referrerID != nil {
		balance += joinBonus
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO users (tg_id, username, first_name, balance, level, referred_by)
		 VALUES ($1, $2, $3, $4, 1, $5)
		 RETURNING id, balance, level, joined_at`,
		u.TgID, u.Username, u.FirstName, balance, referrerID,
	).Scan(&u.ID, &u.Balance, &u.Level, &u.JoinedAt)
	if err != nil {
		return err
	}
	u.ReferredBy = referrerID

	if referrerID != nil {
		if _, err := tx.Exec(ctx,
			`INSERT INTO referrals (referrer_id, referred_id)
			 VALUES ($1, $2)
			 ON CONFLICT (referred_id) DO NOTHING`,
			*referrerID, u.ID,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE users SET balance = balance + $1 WHERE id = $2`,
			joinBonus, *referrerID,
		); err != nil {
			return err
		}
		if joinBonus > 0 {
			if _, err := tx.Exec(ctx,
				`INSERT INTO ledger_entries (user_id, type, amount, meta)
				 VALUES ($1, $2, $3, $4), ($5, $2, $3, $6)`,
				*referrerID, domain.EntryReferralBonus, joinBonus,
				map[string]interface{}{"referred_id": u.ID},
				u.ID,
				map[string]interface{}{"referrer_id": *referrerID},
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// AddBalance atomically adds delta to the user's primary balance and returns
// the new value. The balance is never allowed below zero.
func (r *UserRepository) AddBalance(ctx context.Context, userID int64, delta int64) (int64, error) {
	var newBalance int64
	err := r.db.QueryRow(ctx,
		`UPDATE users SET balance = balance + $1
		 WHERE id = $2 AND balance + $1 >= 0
		 RETURNING balance`,
		delta, userID,
	).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return newBalance, err
}

// AddSecondaryBalance atomically adds delta to the secondary currency balance.
func (r *UserRepository) AddSecondaryBalance(ctx context.Context, userID int64, delta float64) (float64, error) {
	var newBalance float64
	err := r.db.QueryRow(ctx,
		`UPDATE users SET secondary_balance = secondary_balance + $1
		 WHERE id = $2 AND secondary_balance + $1 >= 0
		 RETURNING secondary_balance`,
		delta, userID,
	).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return newBalance, err
}

// PerkField is a perk expiry column that ExtendPerk may update.
type PerkField string

const (
	PerkBooster PerkField = "booster_expires_at"
	PerkAutotap PerkField = "autotap_expires_at"
)

// ExtendPerk extends a perk window by duration starting from
// max(now, current expiry), so stacking never shortens an active window.
// The extension is a single statement and safe against concurrent grants.
func (r *UserRepository) ExtendPerk(ctx context.Context, userID int64, field PerkField, duration time.Duration) (time.Time, error) {
	var col string
	switch field {
	case PerkBooster, PerkAutotap:
		col = string(field)
	default:
		return time.Time{}, errors.New("unknown perk field")
	}

	var newExpiry time.Time
	err := r.db.QueryRow(ctx,
		`UPDATE users
		 SET `+col+` = GREATEST(COALESCE(`+col+`, now()), now()) + $1
		 WHERE id = $2
		 RETURNING `+col,
		duration, userID,
	).Scan(&newExpiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrUserNotFound
	}
	return newExpiry, err
}

// SetBanned flips the deactivation flag; records are never deleted.
func (r *UserRepository) SetBanned(ctx context.Context, userID int64, banned bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET banned = $1 WHERE id = $2`, banned, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// TopEntry is one leaderboard row.
type TopEntry struct {
	Rank      int    `json:"rank"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	Balance   int64  `json:"balance"`
	Level     int    `json:"level"`
}

// GetTopByBalance returns the leaderboard ordered by primary balance.
func (r *UserRepository) GetTopByBalance(ctx context.Context, limit int) ([]TopEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT COALESCE(username, ''), COALESCE(first_name, ''), balance, level
		 FROM users
		 WHERE NOT banned
		 ORDER BY balance DESC, joined_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []TopEntry
	rank := 1
	for rows.Next() {
		var e TopEntry
		if err := rows.Scan(&e.Username, &e.FirstName, &e.Balance, &e.Level); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		res = append(res, e)
	}
	return res, rows.Err()
}

// AllTgIDs returns the Telegram chat ids of every known user, for broadcasts.
func (r *UserRepository) AllTgIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT tg_id FROM users WHERE NOT banned ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of registered users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
