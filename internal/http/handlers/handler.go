package handlers

import (
	"snowman_backend/internal/config"
	"snowman_backend/internal/repository"
	"snowman_backend/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceCreator issues a payment link for a catalog item. Implemented by the
// bot collaborator; the HTTP layer never talks to the payment platform itself.
type InvoiceCreator interface {
	CreateInvoiceLink(itemID string, tgID int64) (string, error)
}

type Handler struct {
	DB           *pgxpool.Pool
	Cfg          *config.Config
	UserRepo     *repository.UserRepository
	ReferralRepo *repository.ReferralRepository
	LedgerRepo   *repository.LedgerRepository
	TapService   *service.TapService
	SpinService  *service.SpinService
	Purchases    *service.PurchaseService
	Invoices     InvoiceCreator
}

func NewHandler(db *pgxpool.Pool, cfg *config.Config, tapSvc *service.TapService, spinSvc *service.SpinService, purchases *service.PurchaseService, invoices InvoiceCreator) *Handler {
	return &Handler{
		DB:           db,
		Cfg:          cfg,
		UserRepo:     repository.NewUserRepository(db),
		ReferralRepo: repository.NewReferralRepository(db),
		LedgerRepo:   repository.NewLedgerRepository(db),
		TapService:   tapSvc,
		SpinService:  spinSvc,
		Purchases:    purchases,
		Invoices:     invoices,
	}
}

// getUserID extracts the user id placed in the context by the JWT middleware.
func getUserID(c interface{ Get(string) (any, bool) }) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// getClaims returns the full session identity set by the JWT middleware.
func getClaims(c interface{ Get(string) (any, bool) }) (*service.SessionClaims, bool) {
	val, ok := c.Get("session_claims")
	if !ok {
		return nil, false
	}
	claims, ok := val.(*service.SessionClaims)
	return claims, ok
}
