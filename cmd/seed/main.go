package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"userapi/internal/auth"
	"userapi/internal/config"
	"userapi/internal/db"
	apperrors "userapi/internal/errors"
	"userapi/internal/model"
	"userapi/internal/repository"
)

// SeedUserData represents one entry in the seed fixture file.
type SeedUserData struct {
	Username string         `json:"username"`
	Name     string         `json:"name"`
	Password string         `json:"password"`
	Profile  map[string]any `json:"profile,omitempty"`
}

func main() {
	file := flag.String("file", "cmd/seed/testdata/users.json", "path to seed fixture")
	flag.Parse()

	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	entries, err := loadSeedFile(*file)
	if err != nil {
		log.Fatalf("Failed to load seed file: %v", err)
	}
	log.Printf("Loaded %d users from %s", len(entries), *file)

	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		log.Fatalf("Password hasher init: %v", err)
	}
	userRepo := repository.NewUserRepository(gormDB)
	ctx := context.Background()

	created, skipped := 0, 0
	for _, entry := range entries {
		if entry.Username == "" || entry.Password == "" {
			log.Printf("Skipping entry with missing username or password")
			skipped++
			continue
		}

		passwordHash, err := hasher.Hash(entry.Password)
		if err != nil {
			log.Fatalf("Failed to hash password for %s: %v", entry.Username, err)
		}

		user := &model.User{
			Username:     entry.Username,
			Name:         entry.Name,
			PasswordHash: passwordHash,
			Profile:      entry.Profile,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			if errors.Is(err, apperrors.ErrUsernameTaken) {
				log.Printf("Skipping %s: already registered", entry.Username)
				skipped++
				continue
			}
			log.Fatalf("Failed to create %s: %v", entry.Username, err)
		}
		created++
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Users created: %d", created)
	log.Printf("  - Entries skipped: %d", skipped)
}

// loadSeedFile reads and decodes the fixture file.
func loadSeedFile(path string) ([]SeedUserData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var entries []SeedUserData
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return entries, nil
}
