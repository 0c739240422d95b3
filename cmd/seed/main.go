// Command seed bootstraps the initial admin account. Role changes require an
// existing admin, so a fresh deployment needs one seeded out of band.
package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"adminpanel/internal/auth"
	"adminpanel/internal/config"
	"adminpanel/internal/db"
	apperrors "adminpanel/internal/errors"
	"adminpanel/internal/model"
	"adminpanel/internal/repository"
)

func main() {
	name := flag.String("name", "Admin", "display name for the admin account")
	email := flag.String("email", "admin@example.com", "email for the admin account")
	password := flag.String("password", "", "password for the admin account (required)")
	flag.Parse()

	if *password == "" {
		log.Fatal("seed: -password is required")
	}

	_ = godotenv.Load()
	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}
	defer db.Close(gormDB) //nolint:errcheck

	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	userRepo := repository.NewUserRepository(gormDB)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	ctx := context.Background()

	if existing, err := userRepo.FindByEmail(ctx, *email); err == nil {
		log.Printf("admin account already exists (id=%d), nothing to do", existing.ID)
		return
	} else if !errors.Is(err, apperrors.ErrUserNotFound) {
		log.Fatalf("check admin account: %v", err)
	}

	hash, err := hasher.Hash(*password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	admin := &model.User{
		Name:         *name,
		Email:        *email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		log.Fatalf("create admin account: %v", err)
	}

	log.Printf("admin account created (id=%d, email=%s)", admin.ID, admin.Email)
}
