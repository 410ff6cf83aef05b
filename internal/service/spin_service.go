package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"snowman_backend/internal/domain"
	"snowman_backend/internal/game"
	"snowman_backend/internal/logger"
	"snowman_backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCooldownActive is a soft refusal: the caller is told how long to wait.
var ErrCooldownActive = errors.New("reward draw cooldown active")

// SpinResult is the outcome of one reward wheel draw.
type SpinResult struct {
	Index            int     `json:"index"`
	Prize            float64 `json:"prize"`
	SecondaryBalance float64 `json:"secondary_balance"`
	SpinAngle        float64 `json:"spin_angle"`
}

// SpinService runs the cooldown-gated weighted reward draw.
type SpinService struct {
	db       *pgxpool.Pool
	ledger   *repository.LedgerRepository
	wheel    *game.PrizeWheel
	cooldown time.Duration
	log      *slog.Logger
}

func NewSpinService(db *pgxpool.Pool, wheel *game.PrizeWheel, cooldown time.Duration) *SpinService {
	return &SpinService{
		db:       db,
		ledger:   repository.NewLedgerRepository(db),
		wheel:    wheel,
		cooldown: cooldown,
		log:      logger.With("component", "spin_service"),
	}
}

// Wheel exposes the segment table for the info endpoint.
func (s *SpinService) Wheel() *game.PrizeWheel {
	return s.wheel
}

// Cooldown returns the configured draw cooldown.
func (s *SpinService) Cooldown() time.Duration {
	return s.cooldown
}

// Spin draws a weighted prize for the user if the cooldown has elapsed and
// credits it to the secondary balance atomically. When still cooling down it
// returns ErrCooldownActive along with the remaining wait.
func (s *SpinService) Spin(ctx context.Context, userID int64) (*SpinResult, time.Duration, error) {
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		lastSpinAt *time.Time
		banned     bool
	)
	err = tx.QueryRow(ctx,
		`SELECT last_spin_at, banned FROM users WHERE id = $1 FOR UPDATE`,
		userID,
	).Scan(&lastSpinAt, &banned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrUserNotFound
		}
		return nil, 0, err
	}
	if banned {
		return nil, 0, ErrUserBanned
	}

	if lastSpinAt != nil {
		if elapsed := now.Sub(*lastSpinAt); elapsed < s.cooldown {
			spinsOnCooldown.Inc()
			return nil, s.cooldown - elapsed, ErrCooldownActive
		}
	}

	segment := s.wheel.Draw()

	var newBalance float64
	err = tx.QueryRow(ctx,
		`UPDATE users
		 SET secondary_balance = secondary_balance + $1, last_spin_at = $2
		 WHERE id = $3
		 RETURNING secondary_balance`,
		segment.Prize, now, userID,
	).Scan(&newBalance)
	if err != nil {
		return nil, 0, err
	}

	entry := &domain.LedgerEntry{
		UserID: userID,
		Type:   domain.EntrySpinPrize,
		Amount: 0,
		Meta: map[string]interface{}{
			"segment": segment.ID,
			"prize":   segment.Prize,
		},
	}
	if err := s.ledger.CreateWithTx(ctx, tx, entry); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	spinsTotal.Inc()

	s.log.Info("reward draw", "user_id", userID, "segment", segment.ID, "prize", segment.Prize)

	return &SpinResult{
		Index:            segment.ID,
		Prize:            segment.Prize,
		SecondaryBalance: newBalance,
		SpinAngle:        s.wheel.SpinAngle(segment.ID),
	}, 0, nil
}
