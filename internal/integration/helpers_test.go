package integration

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"snowman_backend/internal/domain"
	"snowman_backend/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// tgIDSeq keeps test users unique across reruns against the same database.
var tgIDSeq int64 = time.Now().UnixNano() % 1_000_000_000

func nextTgID() int64 {
	return 9_000_000_000 + atomic.AddInt64(&tgIDSeq, 1)
}

func testDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	applyMigrations(t, db)
	return db
}

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := db.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
}

func createUser(t *testing.T, db *pgxpool.Pool, referrerID *int64, joinBonus int64) *domain.User {
	t.Helper()

	u := &domain.User{
		TgID:      nextTgID(),
		Username:  "itest",
		FirstName: "Integration",
	}
	if err := repository.NewUserRepository(db).Create(context.Background(), u, referrerID, joinBonus); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// setBoosterExpiry places booster_expires_at relative to now; a negative
// offset yields an already-expired booster.
func setBoosterExpiry(t *testing.T, db *pgxpool.Pool, userID int64, offset time.Duration) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`UPDATE users SET booster_expires_at = now() + make_interval(secs => $1) WHERE id = $2`,
		offset.Seconds(), userID)
	if err != nil {
		t.Fatalf("set booster expiry: %v", err)
	}
}

// backdateSync pushes last_sync_at into the past so a tap batch of a known
// size fits (or exceeds) the rate cap.
func backdateSync(t *testing.T, db *pgxpool.Pool, userID int64, ago time.Duration) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`UPDATE users SET last_sync_at = now() - make_interval(secs => $1) WHERE id = $2`,
		ago.Seconds(), userID)
	if err != nil {
		t.Fatalf("backdate sync: %v", err)
	}
}
