package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/prernathite123/SchoolManagement/config"
	"github.com/prernathite123/SchoolManagement/pkg/helpers"
)

// Seeds the bootstrap superadmin. Safe to run repeatedly; an existing
// account keeps its password.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	email := getenvDefault("SEED_ADMIN_EMAIL", "admin@school.local")
	password := getenvDefault("SEED_ADMIN_PASSWORD", "ChangeMe123")

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (
			first_name, last_name, email, password_hash, role,
			is_email_verified, is_active
		)
		VALUES ('Super', 'Admin', $1, $2, 'superadmin', true, true)
		ON CONFLICT (lower(email)) DO UPDATE SET is_active = true
		RETURNING id
	`, email, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed superadmin: %v", err)
	}

	fmt.Printf("seeded superadmin: id=%s email=%s\n", id, email)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
