package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"snowman_backend/internal/game"
	"snowman_backend/internal/repository"
	"snowman_backend/internal/service"
)

func TestSpinService_SpinAndCooldown(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := createUser(t, db, nil, 0)

	wheel, err := game.NewPrizeWheel(game.DefaultSegments())
	if err != nil {
		t.Fatalf("wheel: %v", err)
	}
	svc := service.NewSpinService(db, wheel, 24*time.Hour)

	res, _, err := svc.Spin(ctx, u.ID)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if res.Prize <= 0 {
		t.Fatalf("expected positive prize, got %v", res.Prize)
	}
	if res.SecondaryBalance != res.Prize {
		t.Fatalf("expected secondary balance %v, got %v", res.Prize, res.SecondaryBalance)
	}

	fresh, err := repository.NewUserRepository(db).GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if fresh.LastSpinAt == nil {
		t.Fatal("expected last_spin_at set")
	}

	// Second draw inside the window is refused with the remaining wait.
	_, wait, err := svc.Spin(ctx, u.ID)
	if !errors.Is(err, service.ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
	if wait <= 0 || wait > 24*time.Hour {
		t.Fatalf("unexpected remaining wait %v", wait)
	}

	after, err := repository.NewUserRepository(db).GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if after.SecondaryBalance != res.SecondaryBalance {
		t.Fatalf("refused spin changed secondary balance: %v", after.SecondaryBalance)
	}
}

func TestSpinService_CooldownExpiry(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := createUser(t, db, nil, 0)

	wheel, err := game.NewPrizeWheel(game.DefaultSegments())
	if err != nil {
		t.Fatalf("wheel: %v", err)
	}
	svc := service.NewSpinService(db, wheel, 24*time.Hour)

	if _, _, err := svc.Spin(ctx, u.ID); err != nil {
		t.Fatalf("spin: %v", err)
	}

	// Push the recorded spin past the window; the next draw must succeed.
	_, err = db.Exec(ctx,
		`UPDATE users SET last_spin_at = now() - interval '25 hours' WHERE id = $1`, u.ID)
	if err != nil {
		t.Fatalf("backdate spin: %v", err)
	}

	if _, _, err := svc.Spin(ctx, u.ID); err != nil {
		t.Fatalf("spin after cooldown: %v", err)
	}
}
