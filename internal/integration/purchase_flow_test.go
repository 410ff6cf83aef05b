package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"snowman_backend/internal/repository"
	"snowman_backend/internal/service"
)

func TestPurchaseService_CurrencyGrantIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := createUser(t, db, nil, 0)
	svc := service.NewPurchaseService(db)

	payload := service.InvoicePayload("coin_starter", u.TgID)
	chargeID := fmt.Sprintf("itest-charge-%d", u.TgID)

	applied, err := svc.Reconcile(ctx, chargeID, payload)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !applied {
		t.Fatal("expected first confirmation to apply")
	}

	users := repository.NewUserRepository(db)
	fresh, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if got := fresh.Balance - u.Balance; got != 5000 {
		t.Fatalf("expected +5000 coins, got %+d", got)
	}

	// Telegram redelivers confirmations; the grant must not double-apply.
	applied, err = svc.Reconcile(ctx, chargeID, payload)
	if err != nil {
		t.Fatalf("duplicate reconcile: %v", err)
	}
	if applied {
		t.Fatal("duplicate confirmation applied twice")
	}

	again, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if again.Balance != fresh.Balance {
		t.Fatalf("duplicate changed balance: %d -> %d", fresh.Balance, again.Balance)
	}
}

func TestPurchaseService_PerkStacking(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := createUser(t, db, nil, 0)
	svc := service.NewPurchaseService(db)
	users := repository.NewUserRepository(db)

	buy := func(n int) {
		t.Helper()
		chargeID := fmt.Sprintf("itest-perk-%d-%d", u.TgID, n)
		applied, err := svc.Reconcile(ctx, chargeID, service.InvoicePayload("booster_3d", u.TgID))
		if err != nil {
			t.Fatalf("reconcile: %v", err)
		}
		if !applied {
			t.Fatal("expected perk purchase to apply")
		}
	}

	buy(1)
	first, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if first.BoosterExpiresAt == nil {
		t.Fatal("expected booster expiry set")
	}
	want := time.Now().Add(3 * 24 * time.Hour)
	if d := first.BoosterExpiresAt.Sub(want); d < -time.Minute || d > time.Minute {
		t.Fatalf("expected expiry ~3d out, got %v", first.BoosterExpiresAt)
	}

	// Buying again while active extends from the current expiry, not from now.
	buy(2)
	second, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	ext := second.BoosterExpiresAt.Sub(*first.BoosterExpiresAt)
	if ext < 3*24*time.Hour-time.Minute || ext > 3*24*time.Hour+time.Minute {
		t.Fatalf("expected stacked extension of 3d, got %v", ext)
	}
}

func TestPurchaseService_UnknownUserLeavesChargeUnmarked(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	svc := service.NewPurchaseService(db)
	ghostTgID := nextTgID()
	chargeID := fmt.Sprintf("itest-ghost-%d", ghostTgID)

	if _, err := svc.Reconcile(ctx, chargeID, service.InvoicePayload("coin_starter", ghostTgID)); err == nil {
		t.Fatal("expected error for unknown buyer")
	}

	done, err := repository.NewPaymentRepository(db).IsProcessed(ctx, chargeID)
	if err != nil {
		t.Fatalf("is processed: %v", err)
	}
	if done {
		t.Fatal("failed reconciliation must not consume the charge id")
	}
}
