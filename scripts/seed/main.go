// Command seed bootstraps the first super admin account. It is idempotent:
// rerunning it against a database that already has the account is a no-op.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/landmark-academy/school-portal-api/internal/models"
	"github.com/landmark-academy/school-portal-api/pkg/config"
	"github.com/landmark-academy/school-portal-api/pkg/database"
)

func main() {
	var (
		email    string
		password string
		fullName string
		timeout  time.Duration
	)

	flag.StringVar(&email, "email", "admin@school.local", "super admin email")
	flag.StringVar(&password, "password", "", "super admin password (required)")
	flag.StringVar(&fullName, "name", "Portal Administrator", "super admin full name")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "database timeout")
	flag.Parse()

	if password == "" {
		log.Fatal("a password is required, pass -password")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var exists bool
	if err := db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email); err != nil {
		log.Fatalf("failed to check existing account: %v", err)
	}
	if exists {
		log.Printf("account %s already exists, nothing to do", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, position, status, qualification, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		uuid.NewString(), email, string(hash), fullName,
		models.PositionSuperAdmin, models.StatusApproved, "N/A", now,
	)
	if err != nil {
		log.Fatalf("failed to create super admin: %v", err)
	}

	log.Printf("super admin %s created", email)
}
