// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// seedUsers are the demo accounts created in development.
var seedUsers = []struct {
	Email       string
	DisplayName string
	Password    string
}{
	{"alice@blogapi.local", "Alice", "alice"},
	{"bob@blogapi.local", "Bob", "bob"},
}

// seedCategories are the starter categories created in development.
var seedCategories = []string{"General", "News", "Tutorials"}

// Seed populates the database with initial development data: two demo
// users and a handful of categories. It is a no-op if any user exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	for _, u := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("seed bcrypt: %w", err)
		}
		_, err = db.Exec(`
			INSERT INTO users (email, password_hash, display_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO NOTHING
		`, u.Email, string(hash), u.DisplayName)
		if err != nil {
			return fmt.Errorf("seed insert user %s: %w", u.Email, err)
		}
	}

	for _, name := range seedCategories {
		_, err := db.Exec(`INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
		if err != nil {
			return fmt.Errorf("seed insert category %s: %w", name, err)
		}
	}

	slog.Info("database seeded with demo users",
		"users", len(seedUsers),
		"categories", len(seedCategories),
	)

	return nil
}
