package integration

import (
	"context"
	"testing"
	"time"

	"snowman_backend/internal/domain"
	"snowman_backend/internal/repository"
	"snowman_backend/internal/service"
)

func tapConfig() service.TapConfig {
	return service.TapConfig{
		MaxTapsPerSecond:  15,
		Buffer:            50,
		CommissionPercent: 10,
		MinEarned:         10,
	}
}

func TestTapService_SyncTaps_AcceptAndReject(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := createUser(t, db, nil, 0)
	svc := service.NewTapService(db, tapConfig())

	// 10 seconds elapsed allows up to 200 taps.
	backdateSync(t, db, u.ID, 10*time.Second)

	res, err := svc.SyncTaps(ctx, u.ID, 150)
	if err != nil {
		t.Fatalf("sync taps: %v", err)
	}
	if res.Status != service.TapAccepted {
		t.Fatalf("expected accepted, got %s", res.Status)
	}
	if res.Earned != 150 {
		t.Fatalf("expected 150 earned at level 1, got %d", res.Earned)
	}
	if res.Balance != u.Balance+150 {
		t.Fatalf("expected balance %d, got %d", u.Balance+150, res.Balance)
	}
	if res.TapCount != 150 {
		t.Fatalf("expected tap_count 150, got %d", res.TapCount)
	}

	entries, err := repository.NewLedgerRepository(db).GetByUserID(ctx, u.ID, 10)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != domain.EntryTapEarn || entries[0].Amount != 150 {
		t.Fatalf("expected one tap_earn entry of 150, got %+v", entries)
	}

	// A claim far over the cap must leave the record untouched.
	backdateSync(t, db, u.ID, 2*time.Second)
	res2, err := svc.SyncTaps(ctx, u.ID, 5000)
	if err != nil {
		t.Fatalf("sync taps: %v", err)
	}
	if res2.Status != service.TapRejected {
		t.Fatalf("expected rejected, got %s", res2.Status)
	}
	if res2.Balance != res.Balance {
		t.Fatalf("rejected sync changed balance: %d -> %d", res.Balance, res2.Balance)
	}

	fresh, err := repository.NewUserRepository(db).GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if fresh.TapCount != 150 {
		t.Fatalf("rejected sync changed tap_count: %d", fresh.TapCount)
	}
}

func TestTapService_FirstSyncWindow(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := createUser(t, db, nil, 0)
	svc := service.NewTapService(db, tapConfig())

	// No prior sync: the window is clamped, so 125 taps pass and 126 do not.
	res, err := svc.SyncTaps(ctx, u.ID, 126)
	if err != nil {
		t.Fatalf("sync taps: %v", err)
	}
	if res.Status != service.TapRejected {
		t.Fatalf("expected first oversized sync rejected, got %s", res.Status)
	}

	res, err = svc.SyncTaps(ctx, u.ID, 125)
	if err != nil {
		t.Fatalf("sync taps: %v", err)
	}
	if res.Status != service.TapAccepted {
		t.Fatalf("expected clamped first sync accepted, got %s", res.Status)
	}
}

func TestTapService_BoosterMultiplier(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := createUser(t, db, nil, 0)
	svc := service.NewTapService(db, tapConfig())

	// An active booster doubles the earn rate.
	setBoosterExpiry(t, db, u.ID, time.Hour)
	backdateSync(t, db, u.ID, 10*time.Second)

	res, err := svc.SyncTaps(ctx, u.ID, 100)
	if err != nil {
		t.Fatalf("sync taps: %v", err)
	}
	if res.Status != service.TapAccepted {
		t.Fatalf("expected accepted, got %s", res.Status)
	}
	if res.Earned != 200 {
		t.Fatalf("expected 100 taps at level 1 with booster to earn 200, got %d", res.Earned)
	}
	if res.Balance != u.Balance+200 {
		t.Fatalf("expected balance %d, got %d", u.Balance+200, res.Balance)
	}

	// Once the booster expires the same batch earns the base rate.
	setBoosterExpiry(t, db, u.ID, -time.Hour)
	backdateSync(t, db, u.ID, 10*time.Second)

	res2, err := svc.SyncTaps(ctx, u.ID, 100)
	if err != nil {
		t.Fatalf("sync taps: %v", err)
	}
	if res2.Status != service.TapAccepted {
		t.Fatalf("expected accepted, got %s", res2.Status)
	}
	if res2.Earned != 100 {
		t.Fatalf("expected expired booster to earn 100, got %d", res2.Earned)
	}
	if res2.Balance != res.Balance+100 {
		t.Fatalf("expected balance %d, got %d", res.Balance+100, res2.Balance)
	}
}

func TestTapService_ReferralCommission(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	referrer := createUser(t, db, nil, 0)
	referred := createUser(t, db, &referrer.ID, 500)

	users := repository.NewUserRepository(db)
	refBefore, err := users.GetByID(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("reload referrer: %v", err)
	}

	svc := service.NewTapService(db, tapConfig())
	backdateSync(t, db, referred.ID, 20*time.Second)

	res, err := svc.SyncTaps(ctx, referred.ID, 200)
	if err != nil {
		t.Fatalf("sync taps: %v", err)
	}
	if res.Status != service.TapAccepted {
		t.Fatalf("expected accepted, got %s", res.Status)
	}

	refAfter, err := users.GetByID(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("reload referrer: %v", err)
	}
	if got := refAfter.Balance - refBefore.Balance; got != 20 {
		t.Fatalf("expected 10%% commission of 200, got %d", got)
	}

	stats, err := repository.NewReferralRepository(db).GetReferralStats(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("referral stats: %v", err)
	}
	if stats.TotalReferrals != 1 {
		t.Fatalf("expected 1 referral, got %d", stats.TotalReferrals)
	}
	if stats.CommissionTotal != 20 {
		t.Fatalf("expected commission total 20, got %d", stats.CommissionTotal)
	}
}

func TestTapService_BannedUser(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := createUser(t, db, nil, 0)
	users := repository.NewUserRepository(db)
	if err := users.SetBanned(ctx, u.ID, true); err != nil {
		t.Fatalf("ban: %v", err)
	}

	svc := service.NewTapService(db, tapConfig())
	if _, err := svc.SyncTaps(ctx, u.ID, 10); err != service.ErrUserBanned {
		t.Fatalf("expected ErrUserBanned, got %v", err)
	}
}
