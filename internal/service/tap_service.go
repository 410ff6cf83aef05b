package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"snowman_backend/internal/domain"
	"snowman_backend/internal/logger"
	"snowman_backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound = repository.ErrUserNotFound
	ErrUserBanned   = errors.New("user is deactivated")
	ErrInvalidTaps  = errors.New("tap count must be non-negative")
)

type TapStatus string

const (
	TapAccepted TapStatus = "ok"
	TapRejected TapStatus = "rejected"
)

// TapResult is returned for both accepted and rejected syncs; a rejection is
// a policy outcome, not an error, and leaves the record untouched.
type TapResult struct {
	Status   TapStatus `json:"status"`
	Balance  int64     `json:"balance"`
	Earned   int64     `json:"earned"`
	TapCount int64     `json:"tap_count"`
}

// TapConfig holds the anti-cheat and referral economy tunables.
type TapConfig struct {
	MaxTapsPerSecond  int64
	Buffer            int64
	CommissionPercent int64
	MinEarned         int64
}

// firstSyncWindow bounds the elapsed time assumed for a user that has never
// synced, so the first report cannot claim an unlimited window.
const firstSyncWindow = 5 * time.Second

// TapCap returns the maximum tap count accepted for an elapsed window.
func TapCap(elapsed time.Duration, maxPerSecond, buffer int64) int64 {
	secs := int64(elapsed / time.Second)
	if secs < 0 {
		secs = 0
	}
	return secs*maxPerSecond + buffer
}

// Commission returns the referrer's cut of an earned amount, floored.
func Commission(earned, percent int64) int64 {
	return earned * percent / 100
}

// TapService reconciles client-reported tap batches into verified balance
// mutations and distributes referral commissions.
type TapService struct {
	db     *pgxpool.Pool
	users  *repository.UserRepository
	ledger *repository.LedgerRepository
	cfg    TapConfig
	log    *slog.Logger
}

func NewTapService(db *pgxpool.Pool, cfg TapConfig) *TapService {
	return &TapService{
		db:     db,
		users:  repository.NewUserRepository(db),
		ledger: repository.NewLedgerRepository(db),
		cfg:    cfg,
		log:    logger.With("component", "tap_service"),
	}
}

// SyncTaps verifies a claimed tap count against the elapsed time since the
// last accepted sync and applies the earned amount atomically. Over-cap
// claims are rejected without mutation. An accepted sync above the commission
// threshold credits the referrer as a best-effort side effect.
func (s *TapService) SyncTaps(ctx context.Context, userID int64, claimedTaps int64) (*TapResult, error) {
	if claimedTaps < 0 {
		return nil, ErrInvalidTaps
	}
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		balance    int64
		level      int64
		tapCount   int64
		lastSyncAt *time.Time
		boosterEnd *time.Time
		referredBy *int64
		banned     bool
	)
	err = tx.QueryRow(ctx,
		`SELECT balance, level, tap_count, last_sync_at, booster_expires_at, referred_by, banned
		 FROM users WHERE id = $1 FOR UPDATE`,
		userID,
	).Scan(&balance, &level, &tapCount, &lastSyncAt, &boosterEnd, &referredBy, &banned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if banned {
		return nil, ErrUserBanned
	}

	elapsed := firstSyncWindow
	if lastSyncAt != nil {
		elapsed = now.Sub(*lastSyncAt)
	}

	cap := TapCap(elapsed, s.cfg.MaxTapsPerSecond, s.cfg.Buffer)
	if claimedTaps > cap {
		s.log.Warn("tap sync rejected", "user_id", userID,
			"claimed", claimedTaps, "cap", cap, "elapsed", elapsed)
		tapsRejected.Inc()
		return &TapResult{Status: TapRejected, Balance: balance, TapCount: tapCount}, nil
	}

	multiplier := int64(1)
	if boosterEnd != nil && boosterEnd.After(now) {
		multiplier = 2
	}
	earned := claimedTaps * level * multiplier

	var newBalance, newTapCount int64
	err = tx.QueryRow(ctx,
		`UPDATE users
		 SET balance = balance + $1, tap_count = tap_count + $2, last_sync_at = $3
		 WHERE id = $4
		 RETURNING balance, tap_count`,
		earned, claimedTaps, now, userID,
	).Scan(&newBalance, &newTapCount)
	if err != nil {
		return nil, err
	}

	if earned > 0 {
		entry := &domain.LedgerEntry{
			UserID: userID,
			Type:   domain.EntryTapEarn,
			Amount: earned,
			Meta: map[string]interface{}{
				"taps":       claimedTaps,
				"multiplier": multiplier,
			},
		}
		if err := s.ledger.CreateWithTx(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	tapsAccepted.Inc()
	tapsEarned.Add(float64(earned))

	if earned > s.cfg.MinEarned && referredBy != nil {
		s.payCommission(ctx, *referredBy, userID, earned)
	}

	return &TapResult{
		Status:   TapAccepted,
		Balance:  newBalance,
		Earned:   earned,
		TapCount: newTapCount,
	}, nil
}

// payCommission credits the referrer. Failures are logged and never surfaced:
// the referee's accepted sync stands regardless.
func (s *TapService) payCommission(ctx context.Context, referrerID, refereeID, earned int64) {
	commission := Commission(earned, s.cfg.CommissionPercent)
	if commission <= 0 {
		return
	}

	if _, err := s.users.AddBalance(ctx, referrerID, commission); err != nil {
		s.log.Warn("referral commission lost", "referrer_id", referrerID,
			"referee_id", refereeID, "commission", commission, "error", err)
		return
	}
	commissionsPaid.Add(float64(commission))

	entry := &domain.LedgerEntry{
		UserID: referrerID,
		Type:   domain.EntryReferralCommission,
		Amount: commission,
		Meta:   map[string]interface{}{"referee_id": refereeID},
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		s.log.Warn("commission ledger entry failed", "referrer_id", referrerID, "error", err)
	}
}
