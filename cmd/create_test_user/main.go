package main

import (
	"context"
	"errors"
	"log"
	"os"

	"snowman_backend/internal/db"
	"snowman_backend/internal/domain"
	"snowman_backend/internal/repository"
	"snowman_backend/internal/service"
)

// Creates a local test player and prints a session token for curl runs.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewUserRepository(pool)
	ctx := context.Background()

	tgID := int64(1234567890)

	u, err := repo.GetByTgID(ctx, tgID)
	switch {
	case err == nil:
		log.Printf("user already exists id=%d\n", u.ID)
	case errors.Is(err, repository.ErrUserNotFound):
		u = &domain.User{
			TgID:      tgID,
			Username:  "testuser",
			FirstName: "Tester",
		}
		if err := repo.Create(ctx, u, nil, 0); err != nil {
			log.Fatalf("create user failed: %v", err)
		}
		log.Printf("user created id=%d balance=%d\n", u.ID, u.Balance)
	default:
		log.Fatalf("get by tg id failed: %v", err)
	}

	service.InitJWT()
	token, err := service.GenerateJWT(service.SessionClaims{
		UserID:    u.ID,
		TgID:      u.TgID,
		Username:  u.Username,
		FirstName: u.FirstName,
	})
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
