package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"snowman_backend/internal/domain"
	"snowman_backend/internal/logger"
	"snowman_backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUnknownItem      = errors.New("unknown catalog item")
	ErrMalformedPayload = errors.New("malformed payment payload")
)

// PurchaseService maps confirmed payments onto ledger mutations. Every
// confirmation is keyed by its charge id so redelivered webhooks are applied
// at most once.
type PurchaseService struct {
	db       *pgxpool.Pool
	users    *repository.UserRepository
	ledger   *repository.LedgerRepository
	payments *repository.PaymentRepository
	catalog  map[string]domain.ShopItem
	log      *slog.Logger
}

func NewPurchaseService(db *pgxpool.Pool) *PurchaseService {
	return &PurchaseService{
		db:       db,
		users:    repository.NewUserRepository(db),
		ledger:   repository.NewLedgerRepository(db),
		payments: repository.NewPaymentRepository(db),
		catalog:  domain.DefaultCatalog(),
		log:      logger.With("component", "purchase_service"),
	}
}

// Catalog returns the shop items keyed by id.
func (s *PurchaseService) Catalog() map[string]domain.ShopItem {
	return s.catalog
}

// Item looks up one catalog entry.
func (s *PurchaseService) Item(itemID string) (domain.ShopItem, error) {
	item, ok := s.catalog[itemID]
	if !ok {
		return domain.ShopItem{}, ErrUnknownItem
	}
	return item, nil
}

// InvoicePayload encodes an item and buyer into the opaque invoice payload
// that comes back with the payment confirmation.
func InvoicePayload(itemID string, tgID int64) string {
	return fmt.Sprintf("%s_%d", itemID, tgID)
}

// ParsePayload splits an itemId_userId payload. Item ids contain the
// delimiter themselves, so the split anchors on the last one; the trailing
// part is the numeric Telegram user id.
func ParsePayload(payload string) (itemID string, tgID int64, err error) {
	i := strings.LastIndex(payload, "_")
	if i <= 0 || i == len(payload)-1 {
		return "", 0, ErrMalformedPayload
	}
	tgID, err = strconv.ParseInt(payload[i+1:], 10, 64)
	if err != nil || tgID <= 0 {
		return "", 0, ErrMalformedPayload
	}
	return payload[:i], tgID, nil
}

// Reconcile applies a confirmed payment to the buyer's record. It returns
// false with no error when the charge id was already processed: duplicate
// deliveries are acknowledged but nothing is granted twice.
func (s *PurchaseService) Reconcile(ctx context.Context, chargeID, payload string) (bool, error) {
	itemID, tgID, err := ParsePayload(payload)
	if err != nil {
		return false, err
	}

	item, ok := s.catalog[itemID]
	if !ok {
		return false, ErrUnknownItem
	}

	user, err := s.users.GetByTgID(ctx, tgID)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// the idempotency marker and the grant commit together
	fresh, err := s.payments.MarkProcessedTx(ctx, tx, chargeID, payload)
	if err != nil {
		return false, err
	}
	if !fresh {
		purchasesDuplicate.Inc()
		s.log.Warn("duplicate payment confirmation skipped",
			"charge_id", chargeID, "item", itemID, "tg_id", tgID)
		return false, nil
	}

	meta := map[string]interface{}{"item": itemID, "charge_id": chargeID}
	entry := &domain.LedgerEntry{UserID: user.ID, Type: domain.EntryPurchase, Meta: meta}

	switch item.Kind {
	case domain.KindCurrency:
		if _, err := tx.Exec(ctx,
			`UPDATE users SET balance = balance + $1 WHERE id = $2`,
			item.GrantAmount, user.ID,
		); err != nil {
			return false, err
		}
		entry.Amount = item.GrantAmount

	case domain.KindBooster, domain.KindAutotap:
		col := "booster_expires_at"
		if item.Kind == domain.KindAutotap {
			col = "autotap_expires_at"
		}
		// stacking starts from max(now, current expiry)
		var expiry time.Time
		if err := tx.QueryRow(ctx,
			`UPDATE users
			 SET `+col+` = GREATEST(COALESCE(`+col+`, now()), now()) + $1
			 WHERE id = $2
			 RETURNING `+col,
			item.Duration, user.ID,
		).Scan(&expiry); err != nil {
			return false, err
		}
		meta["expires_at"] = expiry
		meta["duration_seconds"] = int64(item.Duration.Seconds())

	default:
		return false, ErrUnknownItem
	}

	if err := s.ledger.CreateWithTx(ctx, tx, entry); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	purchasesApplied.WithLabelValues(itemID).Inc()

	s.log.Info("purchase applied", "item", itemID, "tg_id", tgID, "charge_id", chargeID)
	return true, nil
}
