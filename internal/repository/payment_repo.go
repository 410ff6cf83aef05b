package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository tracks processed payment confirmations so a redelivered
// webhook never double-grants a purchase.
type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// MarkProcessedTx records a payment charge id inside an open transaction.
// It returns false when the id was already recorded, meaning the grant for
// this confirmation has been applied before and must be skipped.
func (r *PaymentRepository) MarkProcessedTx(ctx context.Context, tx pgx.Tx, chargeID, payload string) (bool, error) {
	tag, err := tx.Exec(ctx,
		`INSERT INTO processed_payments (charge_id, payload)
		 VALUES ($1, $2)
		 ON CONFLICT (charge_id) DO NOTHING`,
		chargeID, payload,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IsProcessed reports whether a charge id has been applied.
func (r *PaymentRepository) IsProcessed(ctx context.Context, chargeID string) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM processed_payments WHERE charge_id = $1`,
		chargeID,
	).Scan(&count)
	return count > 0, err
}
