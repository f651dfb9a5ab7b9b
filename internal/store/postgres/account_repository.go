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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/id"
	"github.com/tenantcore/tenantcore/internal/identity"
)

// AccountRepository implements account.Repository
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, user_email, max_tenants, tenants_used, created_at, updated_at`

func scanAccount(row pgx.Row) (*account.Account, error) {
	var a account.Account
	if err := row.Scan(&a.ID, &a.UserEmail, &a.MaxTenants, &a.TenantsUsed, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &a, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, accountID string) (*account.Account, error) {
	if !validID(accountID) {
		return nil, account.ErrAccountNotFound
	}
	return scanAccount(r.db.conn(ctx).QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID))
}

// GetByUserEmail retrieves the account owned by email
func (r *AccountRepository) GetByUserEmail(ctx context.Context, email string) (*account.Account, error) {
	return scanAccount(r.db.conn(ctx).QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_email = $1`, email))
}

// UpsertForPlan creates the account or updates its tenant ceiling. Usage is
// never touched.
func (r *AccountRepository) UpsertForPlan(ctx context.Context, email string, maxTenants int) (*account.Account, error) {
	now := time.Now().UTC()
	a, err := scanAccount(r.db.conn(ctx).QueryRow(ctx, `
		INSERT INTO accounts (id, user_email, max_tenants, tenants_used, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $4)
		ON CONFLICT (user_email) DO UPDATE
			SET max_tenants = EXCLUDED.max_tenants, updated_at = EXCLUDED.updated_at
		RETURNING `+accountColumns,
		id.NewUUIDv7(), email, maxTenants, now,
	))
	if err != nil {
		if mapped, ok := constraintError(err, map[string]error{"accounts_user_email_fkey": identity.ErrUserNotFound}); ok {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}
	return a, nil
}

// ConsumeTenantSlot increments tenants_used while it is below max_tenants.
func (r *AccountRepository) ConsumeTenantSlot(ctx context.Context, accountID string) error {
	if !validID(accountID) {
		return account.ErrAccountNotFound
	}
	tag, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE accounts
		SET tenants_used = tenants_used + 1, updated_at = NOW()
		WHERE id = $1 AND tenants_used < max_tenants
	`, accountID)
	if err != nil {
		return fmt.Errorf("failed to consume tenant slot: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, accountID); err != nil {
		return err
	}
	return account.ErrQuotaExceeded
}
