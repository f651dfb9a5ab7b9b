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


// Command clean-db wipes tenant, billing and user data from a development
// database. The plan catalog is left in place.
//
// Usage: clean-db [database-url]   (defaults to $DATABASE_URL)
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

// Reverse dependency order.
var tables = []string{
	"tenant_memberships",
	"tenants",
	"billing_events",
	"subscriptions",
	"accounts",
	"users",
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	connStr := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		connStr = os.Args[1]
	}
	if connStr == "" {
		log.Fatal("DATABASE_URL is not set and no URL argument was given")
	}

	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	fmt.Println("Cleaning database...")

	for _, table := range tables {
		if _, err := conn.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", pgx.Identifier{table}.Sanitize())); err != nil {
			fmt.Printf("Warning: failed to truncate %s: %v\n", table, err)
			continue
		}
		fmt.Printf("✓ Cleared %s\n", table)
	}

	var plans int
	if err := conn.QueryRow(ctx, "SELECT count(*) FROM plans").Scan(&plans); err != nil {
		log.Fatalf("Failed to count plans: %v", err)
	}
	fmt.Printf("\n✓ Database cleaned; %d plans kept\n", plans)
}
