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

	"github.com/jackc/pgx/v5"
	"github.com/tenantcore/tenantcore/internal/tenant"
)

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `id, account_id, name, slug, contact_email, is_active, seat_limit, seat_used, created_at, updated_at`

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.AccountID, &t.Name, &t.Slug, &t.ContactEmail, &t.IsActive,
		&t.SeatLimit, &t.SeatUsed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create creates a new tenant
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	_, err := r.db.conn(ctx).Exec(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.AccountID, t.Name, t.Slug, t.ContactEmail, t.IsActive, t.SeatLimit, t.SeatUsed, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if mapped, ok := constraintError(err, map[string]error{"tenants_slug_key": tenant.ErrTenantNameUnavailable}); ok {
			return mapped
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	if !validID(id) {
		return nil, tenant.ErrTenantNotFound
	}
	t, err := scanTenant(r.db.conn(ctx).QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil && !errors.Is(err, tenant.ErrTenantNotFound) {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, err
}

// GetBySlug retrieves a tenant by slug
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	t, err := scanTenant(r.db.conn(ctx).QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug))
	if err != nil && !errors.Is(err, tenant.ErrTenantNotFound) {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, err
}

// ListByIDs retrieves the tenants with the given IDs ordered by name
func (r *TenantRepository) ListByIDs(ctx context.Context, ids []string) ([]*tenant.Tenant, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*tenant.Tenant{}, nil
	}

	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT `+tenantColumns+` FROM tenants WHERE id = ANY($1::uuid[]) ORDER BY name
	`, valid)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	tenants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*tenant.Tenant, error) {
		return scanTenant(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan tenants: %w", err)
	}
	return tenants, nil
}

// ConsumeSeat increments seat_used while it is below seat_limit
func (r *TenantRepository) ConsumeSeat(ctx context.Context, tenantID string) error {
	if !validID(tenantID) {
		return tenant.ErrTenantNotFound
	}
	tag, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE tenants
		SET seat_used = seat_used + 1, updated_at = NOW()
		WHERE id = $1 AND seat_used < seat_limit
	`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to consume seat: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, tenantID); err != nil {
		return err
	}
	return tenant.ErrSeatLimitReached
}

// ReleaseSeat decrements seat_used, never below zero
func (r *TenantRepository) ReleaseSeat(ctx context.Context, tenantID string) error {
	if !validID(tenantID) {
		return tenant.ErrTenantNotFound
	}
	tag, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE tenants
		SET seat_used = GREATEST(seat_used - 1, 0), updated_at = NOW()
		WHERE id = $1
	`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}
