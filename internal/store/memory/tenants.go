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

package memory

import (
	"context"
	"sort"
	"time"

	"github.com/tenantcore/tenantcore/internal/authz"
	"github.com/tenantcore/tenantcore/internal/id"
	"github.com/tenantcore/tenantcore/internal/tenant"
)

// TenantRepository implements tenant.Repository.
type TenantRepository struct{ s *Store }

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.state.tenants {
		if existing.Slug == t.Slug {
			return tenant.ErrTenantNameUnavailable
		}
	}
	if t.ID == "" {
		t.ID = id.NewUUIDv7()
	}
	stored := *t
	r.s.state.tenants[stored.ID] = &stored
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.state.tenants[tenantID]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	out := *t
	return &out, nil
}

func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	defer r.s.lock(ctx)()
	for _, t := range r.s.state.tenants {
		if t.Slug == slug {
			out := *t
			return &out, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (r *TenantRepository) ListByIDs(ctx context.Context, ids []string) ([]*tenant.Tenant, error) {
	defer r.s.lock(ctx)()
	out := make([]*tenant.Tenant, 0, len(ids))
	for _, tid := range ids {
		if t, ok := r.s.state.tenants[tid]; ok {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *TenantRepository) ConsumeSeat(ctx context.Context, tenantID string) error {
	defer r.s.lock(ctx)()
	t, ok := r.s.state.tenants[tenantID]
	if !ok {
		return tenant.ErrTenantNotFound
	}
	if t.SeatUsed >= t.SeatLimit {
		return tenant.ErrSeatLimitReached
	}
	t.SeatUsed++
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *TenantRepository) ReleaseSeat(ctx context.Context, tenantID string) error {
	defer r.s.lock(ctx)()
	t, ok := r.s.state.tenants[tenantID]
	if !ok {
		return tenant.ErrTenantNotFound
	}
	if t.SeatUsed > 0 {
		t.SeatUsed--
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MembershipRepository implements tenant.MembershipRepository.
type MembershipRepository struct{ s *Store }

func membershipKey(tenantID, userID string) string {
	return tenantID + "/" + userID
}

func (r *MembershipRepository) Create(ctx context.Context, m *tenant.Membership) error {
	defer r.s.lock(ctx)()
	key := membershipKey(m.TenantID, m.UserID)
	if _, ok := r.s.state.memberships[key]; ok {
		return tenant.ErrMembershipExists
	}
	if _, ok := r.s.state.tenants[m.TenantID]; !ok {
		return tenant.ErrTenantNotFound
	}
	if m.ID == "" {
		m.ID = id.NewUUIDv7()
	}
	stored := *m
	r.s.state.memberships[key] = &stored
	return nil
}

func (r *MembershipRepository) Get(ctx context.Context, tenantID, userID string) (*tenant.Membership, error) {
	defer r.s.lock(ctx)()
	m, ok := r.s.state.memberships[membershipKey(tenantID, userID)]
	if !ok {
		return nil, tenant.ErrMembershipNotFound
	}
	out := *m
	return &out, nil
}

func (r *MembershipRepository) UpdateRole(ctx context.Context, tenantID, userID string, role authz.Role) error {
	defer r.s.lock(ctx)()
	m, ok := r.s.state.memberships[membershipKey(tenantID, userID)]
	if !ok {
		return tenant.ErrMembershipNotFound
	}
	m.Role = role
	return nil
}

func (r *MembershipRepository) Delete(ctx context.Context, tenantID, userID string) error {
	defer r.s.lock(ctx)()
	key := membershipKey(tenantID, userID)
	if _, ok := r.s.state.memberships[key]; !ok {
		return tenant.ErrMembershipNotFound
	}
	delete(r.s.state.memberships, key)
	return nil
}

func (r *MembershipRepository) ListByTenant(ctx context.Context, tenantID string) ([]*tenant.Membership, error) {
	defer r.s.lock(ctx)()
	return r.s.state.listMemberships(func(m *tenant.Membership) bool { return m.TenantID == tenantID }), nil
}

func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]*tenant.Membership, error) {
	defer r.s.lock(ctx)()
	return r.s.state.listMemberships(func(m *tenant.Membership) bool { return m.UserID == userID }), nil
}

func (r *MembershipRepository) CountByRole(ctx context.Context, tenantID string, role authz.Role) (int, error) {
	defer r.s.lock(ctx)()
	n := 0
	for _, m := range r.s.state.memberships {
		if m.TenantID == tenantID && m.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *MembershipRepository) RoleOf(ctx context.Context, tenantID, userID string) (authz.Role, bool, error) {
	defer r.s.lock(ctx)()
	m, ok := r.s.state.memberships[membershipKey(tenantID, userID)]
	if !ok {
		return "", false, nil
	}
	return m.Role, true, nil
}

func (st *state) listMemberships(match func(*tenant.Membership) bool) []*tenant.Membership {
	out := []*tenant.Membership{}
	for _, m := range st.memberships {
		if match(m) {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
