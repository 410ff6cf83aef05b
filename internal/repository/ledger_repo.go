package repository

import (
	"context"
	"encoding/json"
	"time"

	"snowman_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Create inserts a ledger entry.
func (r *LedgerRepository) Create(ctx context.Context, e *domain.LedgerEntry) error {
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil {
		metaJSON = []byte("{}")
	}

	return r.db.QueryRow(ctx,
		`INSERT INTO ledger_entries (user_id, type, amount, meta)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		e.UserID, e.Type, e.Amount, metaJSON,
	).Scan(&e.ID, &e.CreatedAt)
}

// CreateWithTx inserts a ledger entry using an existing database transaction.
func (r *LedgerRepository) CreateWithTx(ctx context.Context, dbTx pgx.Tx, e *domain.LedgerEntry) error {
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil {
		metaJSON = []byte("{}")
	}

	return dbTx.QueryRow(ctx,
		`INSERT INTO ledger_entries (user_id, type, amount, meta)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		e.UserID, e.Type, e.Amount, metaJSON,
	).Scan(&e.ID, &e.CreatedAt)
}

// GetByUserID returns recent ledger entries for a user.
func (r *LedgerRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, amount, meta, created_at
		 FROM ledger_entries
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// SumByUserIDAndType returns the total amount over entries of one type.
func (r *LedgerRepository) SumByUserIDAndType(ctx context.Context, userID int64, entryType string) (int64, error) {
	var sum int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
		 WHERE user_id = $1 AND type = $2`,
		userID, entryType,
	).Scan(&sum)
	return sum, err
}

func scanEntries(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	var result []*domain.LedgerEntry

	for rows.Next() {
		var (
			e         domain.LedgerEntry
			metaJSON  []byte
			createdAt time.Time
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &metaJSON, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = createdAt
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &e.Meta)
		}
		result = append(result, &e)
	}

	return result, rows.Err()
}
