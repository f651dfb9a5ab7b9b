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

package tenant_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/audit"
	"github.com/tenantcore/tenantcore/internal/authz"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/store/memory"
	"github.com/tenantcore/tenantcore/internal/tenant"
)

type fixture struct {
	store   *memory.Store
	service *tenant.Service
}

func newFixture(t *testing.T, memberships tenant.MembershipRepository) *fixture {
	t.Helper()
	s := memory.NewSeeded()
	if memberships == nil {
		memberships = s.Memberships()
	}
	svc := tenant.NewService(
		s.Tenants(),
		memberships,
		s.Accounts(),
		s.Users(),
		authz.NewService(memberships),
		s,
		audit.NewSlogLogger(),
		tenant.Options{DefaultSeatLimit: 3},
	)
	return &fixture{store: s, service: svc}
}

// user creates a user and, when maxTenants > 0, an account with that ceiling.
func (f *fixture) user(t *testing.T, email string, maxTenants int) *identity.User {
	t.Helper()
	ctx := context.Background()
	u := &identity.User{Email: email, Name: email, IsActive: true, CreatedAt: time.Now()}
	require.NoError(t, f.store.Users().Create(ctx, u))
	if maxTenants > 0 {
		_, err := f.store.Accounts().UpsertForPlan(ctx, email, maxTenants)
		require.NoError(t, err)
	}
	return u
}

func (f *fixture) createTenant(t *testing.T, owner *identity.User, name string) *tenant.Tenant {
	t.Helper()
	tn, _, err := f.service.CreateTenant(context.Background(), tenant.CreateTenantInput{
		OwnerUserID: owner.ID,
		OwnerEmail:  owner.Email,
		Name:        name,
	})
	require.NoError(t, err)
	return tn
}

// failingMemberships fails every Create so tests can force an error after
// the tenant row and counters have been written.
type failingMemberships struct {
	tenant.MembershipRepository
}

var errInjected = errors.New("injected membership failure")

func (failingMemberships) Create(ctx context.Context, m *tenant.Membership) error {
	return errInjected
}

// TestPurpose: Validates slug derivation from display names.
// Scope: Unit Test
// Security: Input normalization (URL-safe identifiers)
// Expected: Punctuation is dropped, whitespace runs collapse to one hyphen, edges are trimmed.
// Test Case ID: TEN-01
func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Corp!!":            "acme-corp",
		"  multi   space  ":      "multi-space",
		"Already-Slugged":        "already-slugged",
		"a -- b":                 "a-b",
		"-Leading and trailing-": "leading-and-trailing",
		"!!!":                    "",
		"Ünïcode Café":           "ncode-caf",
	}
	for in, want := range cases {
		assert.Equal(t, want, tenant.Slugify(in), "Slugify(%q)", in)
	}
	assert.Equal(t, tenant.Slugify("Acme Corp!!"), tenant.Slugify(tenant.Slugify("Acme Corp!!")))
}

// TestPurpose: Validates that creating a tenant consumes quota, a seat and grants OWNER atomically.
// Scope: Unit Test
// Security: Tenant ownership bootstrap
// Expected: Tenant exists with seatUsed 1, creator is OWNER, account tenantsUsed is 1.
// Test Case ID: TEN-02
func TestCreateTenant_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	owner := f.user(t, "owner@example.com", 2)

	tn, m, err := f.service.CreateTenant(ctx, tenant.CreateTenantInput{
		OwnerUserID: owner.ID,
		OwnerEmail:  owner.Email,
		Name:        "Acme Corp!!",
	})
	require.NoError(t, err)

	assert.Equal(t, "acme-corp", tn.Slug)
	assert.Equal(t, "Acme Corp!!", tn.Name)
	assert.Equal(t, owner.Email, tn.ContactEmail)
	assert.Equal(t, 3, tn.SeatLimit)
	assert.Equal(t, 1, tn.SeatUsed)
	assert.True(t, tn.IsActive)
	assert.Equal(t, authz.RoleOwner, m.Role)

	acct, err := f.store.Accounts().GetByUserEmail(ctx, owner.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, acct.TenantsUsed)
	assert.Equal(t, acct.ID, tn.AccountID)

	ids, err := f.service.TenantIDsForUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tn.ID}, ids)
}

// TestPurpose: Validates tenant quota enforcement.
// Scope: Unit Test
// Security: Quota enforcement, no partial state
// Expected: At tenantsUsed == maxTenants creation fails with ErrQuotaExceeded; no tenant, membership or counter change.
// Test Case ID: TEN-03
func TestCreateTenant_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	owner := f.user(t, "owner@example.com", 1)
	f.createTenant(t, owner, "First")

	_, _, err := f.service.CreateTenant(ctx, tenant.CreateTenantInput{
		OwnerUserID: owner.ID, OwnerEmail: owner.Email, Name: "Second",
	})
	assert.ErrorIs(t, err, account.ErrQuotaExceeded)

	_, err = f.store.Tenants().GetBySlug(ctx, "second")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)

	ms, err := f.store.Memberships().ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, ms, 1)

	acct, err := f.store.Accounts().GetByUserEmail(ctx, owner.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, acct.TenantsUsed)
}

// TestPurpose: Validates atomicity when the last step of tenant creation fails.
// Scope: Unit Test
// Security: Data integrity (transactional rollback)
// Expected: Tenant row, seat counter and quota counter are all rolled back.
// Test Case ID: TEN-04
func TestCreateTenant_RollsBackOnMembershipFailure(t *testing.T) {
	ctx := context.Background()
	s := memory.NewSeeded()
	failing := failingMemberships{MembershipRepository: s.Memberships()}
	svc := tenant.NewService(s.Tenants(), failing, s.Accounts(), s.Users(),
		authz.NewService(failing), s, audit.NewSlogLogger(), tenant.Options{})

	owner := &identity.User{Email: "owner@example.com", IsActive: true}
	require.NoError(t, s.Users().Create(ctx, owner))
	_, err := s.Accounts().UpsertForPlan(ctx, owner.Email, 1)
	require.NoError(t, err)

	_, _, err = svc.CreateTenant(ctx, tenant.CreateTenantInput{
		OwnerUserID: owner.ID, OwnerEmail: owner.Email, Name: "Acme",
	})
	require.ErrorIs(t, err, errInjected)

	_, err = s.Tenants().GetBySlug(ctx, "acme")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)

	acct, err := s.Accounts().GetByUserEmail(ctx, owner.Email)
	require.NoError(t, err)
	assert.Equal(t, 0, acct.TenantsUsed)
}

// TestPurpose: Validates slug uniqueness across tenants.
// Scope: Unit Test
// Security: Tenant identity collision prevention
// Expected: A name that slugifies to a taken slug fails with ErrTenantNameUnavailable and consumes no quota.
// Test Case ID: TEN-05
func TestCreateTenant_SlugConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	a := f.user(t, "a@example.com", 2)
	b := f.user(t, "b@example.com", 2)
	f.createTenant(t, a, "Acme Corp")

	_, _, err := f.service.CreateTenant(ctx, tenant.CreateTenantInput{
		OwnerUserID: b.ID, OwnerEmail: b.Email, Name: "acme   corp!",
	})
	assert.ErrorIs(t, err, tenant.ErrTenantNameUnavailable)

	acct, err := f.store.Accounts().GetByUserEmail(ctx, b.Email)
	require.NoError(t, err)
	assert.Equal(t, 0, acct.TenantsUsed)
}

// TestPurpose: Validates input checks on tenant creation.
// Scope: Unit Test
// Security: Input validation
// Expected: Empty slug, negative seat limit and a user without account are rejected.
// Test Case ID: TEN-06
func TestCreateTenant_InvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	owner := f.user(t, "owner@example.com", 1)
	noAccount := f.user(t, "free@example.com", 0)

	_, _, err := f.service.CreateTenant(ctx, tenant.CreateTenantInput{OwnerUserID: owner.ID, OwnerEmail: owner.Email, Name: "?!"})
	assert.ErrorIs(t, err, tenant.ErrInvalidTenantName)

	_, _, err = f.service.CreateTenant(ctx, tenant.CreateTenantInput{OwnerUserID: owner.ID, OwnerEmail: owner.Email, Name: "ok", SeatLimit: -1})
	assert.ErrorIs(t, err, tenant.ErrInvalidSeatLimit)

	_, _, err = f.service.CreateTenant(ctx, tenant.CreateTenantInput{OwnerUserID: noAccount.ID, OwnerEmail: noAccount.Email, Name: "ok"})
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

// TestPurpose: Validates that assigning a role twice updates the membership in place.
// Scope: Unit Test
// Security: Membership uniqueness on (tenantId, userId)
// Expected: One membership row carrying the latest role; seat consumed once.
// Test Case ID: TEN-07
func TestAssignMembership_Upsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	owner := f.user(t, "owner@example.com", 1)
	member := f.user(t, "member@example.com", 0)
	tn := f.createTenant(t, owner, "Acme")

	m, err := f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: owner.ID, TenantID: tn.ID, UserID: member.ID, Role: authz.RoleViewer,
	})
	require.NoError(t, err)
	assert.Equal(t, authz.RoleViewer, m.Role)

	m2, err := f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: owner.ID, TenantID: tn.ID, UserID: member.ID, Role: authz.RoleManager,
	})
	require.NoError(t, err)
	assert.Equal(t, m.ID, m2.ID)
	assert.Equal(t, authz.RoleManager, m2.Role)

	roster, err := f.service.ListMemberships(ctx, owner.ID, tn.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 2)

	got, err := f.store.Tenants().GetByID(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SeatUsed)
}

// TestPurpose: Validates authorization of membership changes.
// Scope: Unit Test
// Security: Privilege escalation prevention (CWE-269), tenant isolation
// Expected: Non-members and sub-ADMIN members are denied; an ADMIN cannot grant OWNER.
// Test Case ID: TEN-08
func TestAssignMembership_Authorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	owner := f.user(t, "owner@example.com", 1)
	admin := f.user(t, "admin@example.com", 0)
	viewer := f.user(t, "viewer@example.com", 0)
	outsider := f.user(t, "outsider@example.com", 0)
	tn := f.createTenant(t, owner, "Acme")

	for _, m := range []struct {
		user *identity.User
		role authz.Role
	}{{admin, authz.RoleAdmin}, {viewer, authz.RoleViewer}} {
		_, err := f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
			ActorUserID: owner.ID, TenantID: tn.ID, UserID: m.user.ID, Role: m.role,
		})
		require.NoError(t, err)
	}

	_, err := f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: outsider.ID, TenantID: tn.ID, UserID: outsider.ID, Role: authz.RoleOwner,
	})
	assert.ErrorIs(t, err, authz.ErrNotMember)

	_, err = f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: viewer.ID, TenantID: tn.ID, UserID: outsider.ID, Role: authz.RoleGuest,
	})
	assert.ErrorIs(t, err, authz.ErrAccessDenied)

	_, err = f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: admin.ID, TenantID: tn.ID, UserID: outsider.ID, Role: authz.RoleOwner,
	})
	assert.ErrorIs(t, err, authz.ErrAccessDenied)

	_, err = f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: admin.ID, TenantID: tn.ID, UserID: owner.ID, Role: authz.RoleGuest,
	})
	assert.ErrorIs(t, err, authz.ErrAccessDenied)

	_, err = f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: admin.ID, TenantID: tn.ID, UserID: outsider.ID, Role: authz.Role("ROOT"),
	})
	assert.ErrorIs(t, err, authz.ErrInvalidRole)

	_, err = f.service.ListMemberships(ctx, outsider.ID, tn.ID)
	assert.ErrorIs(t, err, authz.ErrNotMember)
}

// TestPurpose: Validates the seat ceiling on new memberships.
// Scope: Unit Test
// Security: Seat limit enforcement
// Expected: Once seatUsed reaches seatLimit new members fail with ErrSeatLimitReached; role updates still succeed.
// Test Case ID: TEN-09
func TestAssignMembership_SeatLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	owner := f.user(t, "owner@example.com", 1)
	tn, _, err := f.service.CreateTenant(ctx, tenant.CreateTenantInput{
		OwnerUserID: owner.ID, OwnerEmail: owner.Email, Name: "Tiny", SeatLimit: 2,
	})
	require.NoError(t, err)

	second := f.user(t, "second@example.com", 0)
	third := f.user(t, "third@example.com", 0)

	_, err = f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: owner.ID, TenantID: tn.ID, UserID: second.ID, Role: authz.RoleAgent,
	})
	require.NoError(t, err)

	_, err = f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: owner.ID, TenantID: tn.ID, UserID: third.ID, Role: authz.RoleAgent,
	})
	assert.ErrorIs(t, err, tenant.ErrSeatLimitReached)

	_, err = f.store.Memberships().Get(ctx, tn.ID, third.ID)
	assert.ErrorIs(t, err, tenant.ErrMembershipNotFound)

	_, err = f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: owner.ID, TenantID: tn.ID, UserID: second.ID, Role: authz.RoleReporter,
	})
	assert.NoError(t, err)
}

// TestPurpose: Validates membership removal and last-owner protection.
// Scope: Unit Test
// Security: Tenant lockout prevention
// Expected: Removing a member frees a seat; the sole OWNER cannot be removed or demoted.
// Test Case ID: TEN-10
func TestRemoveMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	owner := f.user(t, "owner@example.com", 1)
	member := f.user(t, "member@example.com", 0)
	tn := f.createTenant(t, owner, "Acme")

	_, err := f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: owner.ID, TenantID: tn.ID, UserID: member.ID, Role: authz.RoleAgent,
	})
	require.NoError(t, err)

	require.NoError(t, f.service.RemoveMembership(ctx, owner.ID, tn.ID, member.ID))
	got, err := f.store.Tenants().GetByID(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SeatUsed)

	assert.ErrorIs(t, f.service.RemoveMembership(ctx, owner.ID, tn.ID, owner.ID), tenant.ErrLastOwner)
	_, err = f.service.AssignMembership(ctx, tenant.AssignMembershipInput{
		ActorUserID: owner.ID, TenantID: tn.ID, UserID: owner.ID, Role: authz.RoleAdmin,
	})
	assert.ErrorIs(t, err, tenant.ErrLastOwner)

	assert.ErrorIs(t, f.service.RemoveMembership(ctx, owner.ID, tn.ID, member.ID), tenant.ErrMembershipNotFound)
}
