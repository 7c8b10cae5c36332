package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/contacts-identity/config"
	"github.com/oksasatya/contacts-identity/internal/application"
	"github.com/oksasatya/contacts-identity/internal/container"
	"github.com/oksasatya/contacts-identity/internal/domain/entity"
	"github.com/oksasatya/contacts-identity/internal/domain/repository"
	"github.com/oksasatya/contacts-identity/pkg/helpers"
)

// seed creates a verified demo account so login works without a mailbox.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	if cfg.StoreDriver == "memory" {
		logger.Fatal("seeding the memory store has no effect, set STORE_DRIVER to postgres or redis")
	}

	ctx := context.Background()
	store, closeStore, err := container.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer closeStore()

	email := getenv("SEED_EMAIL", "demo@contacts.local")
	password := getenv("SEED_PASSWORD", "password123")

	hash, err := helpers.NewBcryptHasher(cfg.BcryptCost).Hash(password)
	if err != nil {
		logger.WithError(err).Fatal("failed to hash password")
	}
	u := &entity.User{
		Email:        email,
		Password:     hash,
		Subscription: cfg.DefaultSubscription,
		AvatarURL:    application.DefaultAvatarURL(email),
		Verified:     true,
	}
	if err := store.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			logger.WithField("email", email).Info("demo user already exists")
			return
		}
		logger.WithError(err).Fatal("failed to seed user")
	}
	logger.WithFields(map[string]any{"id": u.ID, "email": email}).Info("seeded verified demo user")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
