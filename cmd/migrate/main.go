// Copyright 2026 The Tenantcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Command migrate applies or rolls back the embedded schema migrations.
//
// Usage: migrate [up|down|version] [database-url]
//
// Without a database URL the connection settings are read from the
// environment (DATABASE_URL or DB_*), the same way the server reads them.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/tenantcore/tenantcore/internal/store/postgres"
)

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	connStr, err := databaseURL(os.Args[2:])
	if err != nil {
		log.Fatalf("Failed to resolve database URL: %v", err)
	}

	m, err := postgres.NewMigrator(connStr)
	if err != nil {
		log.Fatalf("Failed to open migrator: %v", err)
	}
	defer m.Close()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "version":
	default:
		log.Fatalf("Unknown command %q (want up, down or version)", cmd)
	}
	if err != nil {
		log.Fatalf("Migration %s failed: %v", cmd, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatalf("Failed to read version: %v", err)
	}
	fmt.Printf("✓ schema version %d (dirty=%t)\n", version, dirty)
}

func databaseURL(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	cfg := postgres.Config{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     envOr("DB_PORT", "5432"),
		User:     envOr("DB_USER", "tenantcore"),
		Password: os.Getenv("DB_PASSWORD"),
		Database: envOr("DB_NAME", "tenantcore"),
		SSLMode:  envOr("DB_SSLMODE", "disable"),
	}
	if cfg.Password == "" {
		return "", fmt.Errorf("set DATABASE_URL or DB_PASSWORD, or pass a URL argument")
	}
	return cfg.DSN(), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
