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
	"github.com/tenantcore/tenantcore/internal/authz"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/tenant"
)

// MembershipRepository implements tenant.MembershipRepository
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

const membershipColumns = `id, tenant_id, user_id, role, joined_at`

func scanMembership(row pgx.Row) (*tenant.Membership, error) {
	var m tenant.Membership
	if err := row.Scan(&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrMembershipNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Create inserts a membership
func (r *MembershipRepository) Create(ctx context.Context, m *tenant.Membership) error {
	_, err := r.db.conn(ctx).Exec(ctx, `
		INSERT INTO tenant_memberships (`+membershipColumns+`)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.TenantID, m.UserID, m.Role, m.JoinedAt)
	if err != nil {
		if mapped, ok := constraintError(err, map[string]error{
			"tenant_memberships_tenant_user_key": tenant.ErrMembershipExists,
			"tenant_memberships_tenant_id_fkey":  tenant.ErrTenantNotFound,
			"tenant_memberships_user_id_fkey":    identity.ErrUserNotFound,
		}); ok {
			return mapped
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

// Get retrieves the membership of userID in tenantID
func (r *MembershipRepository) Get(ctx context.Context, tenantID, userID string) (*tenant.Membership, error) {
	if !validID(tenantID) || !validID(userID) {
		return nil, tenant.ErrMembershipNotFound
	}
	m, err := scanMembership(r.db.conn(ctx).QueryRow(ctx, `
		SELECT `+membershipColumns+` FROM tenant_memberships WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID))
	if err != nil && !errors.Is(err, tenant.ErrMembershipNotFound) {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, err
}

// UpdateRole changes the role of an existing membership
func (r *MembershipRepository) UpdateRole(ctx context.Context, tenantID, userID string, role authz.Role) error {
	if !validID(tenantID) || !validID(userID) {
		return tenant.ErrMembershipNotFound
	}
	tag, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE tenant_memberships SET role = $3 WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrMembershipNotFound
	}
	return nil
}

// Delete removes a membership
func (r *MembershipRepository) Delete(ctx context.Context, tenantID, userID string) error {
	if !validID(tenantID) || !validID(userID) {
		return tenant.ErrMembershipNotFound
	}
	tag, err := r.db.conn(ctx).Exec(ctx, `
		DELETE FROM tenant_memberships WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrMembershipNotFound
	}
	return nil
}

// ListByTenant lists the members of a tenant in join order
func (r *MembershipRepository) ListByTenant(ctx context.Context, tenantID string) ([]*tenant.Membership, error) {
	if !validID(tenantID) {
		return []*tenant.Membership{}, nil
	}
	return r.list(ctx, `WHERE tenant_id = $1`, tenantID)
}

// ListByUser lists the memberships held by a user in join order
func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]*tenant.Membership, error) {
	if !validID(userID) {
		return []*tenant.Membership{}, nil
	}
	return r.list(ctx, `WHERE user_id = $1`, userID)
}

func (r *MembershipRepository) list(ctx context.Context, where string, arg string) ([]*tenant.Membership, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT `+membershipColumns+` FROM tenant_memberships `+where+` ORDER BY joined_at, id
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	ms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*tenant.Membership, error) {
		return scanMembership(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan memberships: %w", err)
	}
	return ms, nil
}

// CountByRole counts the members of a tenant holding role
func (r *MembershipRepository) CountByRole(ctx context.Context, tenantID string, role authz.Role) (int, error) {
	if !validID(tenantID) {
		return 0, nil
	}
	var n int
	err := r.db.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM tenant_memberships WHERE tenant_id = $1 AND role = $2
	`, tenantID, role).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return n, nil
}

// RoleOf resolves the role userID holds in tenantID
func (r *MembershipRepository) RoleOf(ctx context.Context, tenantID, userID string) (authz.Role, bool, error) {
	m, err := r.Get(ctx, tenantID, userID)
	if errors.Is(err, tenant.ErrMembershipNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return m.Role, true, nil
}
