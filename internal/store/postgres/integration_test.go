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

//go:build integration
// +build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/authz"
	"github.com/tenantcore/tenantcore/internal/billing"
	"github.com/tenantcore/tenantcore/internal/id"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/tenant"
)

// newTestDB starts a disposable PostgreSQL container with the schema applied.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("tenantcore_test"),
		tcpostgres.WithUsername("tenantcore"),
		tcpostgres.WithPassword("tenantcore"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Skipping integration test: failed to start postgres: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := NewMigrator(dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := New(ctx, Config{URL: dsn})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func createUser(t *testing.T, db *DB, email string) *identity.User {
	t.Helper()
	now := time.Now().UTC()
	u := &identity.User{
		ID:           id.NewUUIDv7(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "hash",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

// TestPurpose: Validates that the seed migration installs the plan catalog with provider prices.
// Scope: Database Integration Test
// Security: N/A
// Expected: basic, pro and enterprise are listed by tenant ceiling, each with one active stripe price.
// Test Case ID: INT-01
func TestPlanRepository_SeededCatalog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewPlanRepository(db)

	plans, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, "basic", plans[0].Key)
	assert.Equal(t, "pro", plans[1].Key)
	assert.Equal(t, "enterprise", plans[2].Key)

	pro, err := repo.GetByKey(ctx, "pro")
	require.NoError(t, err)
	assert.Equal(t, 5, pro.MaxTenants)
	price, ok := pro.ActivePrice(billing.ProviderStripe)
	require.True(t, ok)
	assert.Equal(t, "price_pro_monthly", price.PriceID)

	byID, err := repo.GetByID(ctx, pro.ID)
	require.NoError(t, err)
	assert.Equal(t, "pro", byID.Key)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.Error(t, err)
}

// TestPurpose: Validates that an account is keyed by email and that its tenant quota is enforced in SQL.
// Scope: Database Integration Test
// Security: Quota enforcement
// Expected: Repeated upserts keep one row and preserve usage; consumption beyond max_tenants fails.
// Test Case ID: INT-02
func TestAccountRepository_UpsertAndQuota(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewAccountRepository(db)
	createUser(t, db, "owner@example.com")

	first, err := repo.UpsertForPlan(ctx, "owner@example.com", 1)
	require.NoError(t, err)
	require.NoError(t, repo.ConsumeTenantSlot(ctx, first.ID))
	assert.ErrorIs(t, repo.ConsumeTenantSlot(ctx, first.ID), account.ErrQuotaExceeded)

	second, err := repo.UpsertForPlan(ctx, "owner@example.com", 5)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.MaxTenants)
	assert.Equal(t, 1, second.TenantsUsed)

	_, err = repo.UpsertForPlan(ctx, "ghost@example.com", 1)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	assert.ErrorIs(t, repo.ConsumeTenantSlot(ctx, id.NewUUIDv7()), account.ErrAccountNotFound)
}

// TestPurpose: Validates webhook event idempotency at the storage layer.
// Scope: Database Integration Test
// Security: Replay protection
// Expected: The second Record of the same (provider, event_id) reports false; Link attaches references.
// Test Case ID: INT-03
func TestEventRepository_Idempotency(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	events := NewEventRepository(db)
	subs := NewSubscriptionRepository(db)
	createUser(t, db, "payer@example.com")
	acct, err := NewAccountRepository(db).UpsertForPlan(ctx, "payer@example.com", 5)
	require.NoError(t, err)
	pro, err := NewPlanRepository(db).GetByKey(ctx, "pro")
	require.NoError(t, err)

	evt := &billing.BillingEvent{
		ID:         id.NewUUIDv7(),
		Provider:   billing.ProviderStripe,
		EventID:    "evt_1",
		Type:       "checkout.session.completed",
		Raw:        []byte(`{}`),
		ReceivedAt: time.Now().UTC(),
	}
	inserted, err := events.Record(ctx, evt)
	require.NoError(t, err)
	assert.True(t, inserted)

	replay := *evt
	replay.ID = id.NewUUIDv7()
	inserted, err = events.Record(ctx, &replay)
	require.NoError(t, err)
	assert.False(t, inserted)

	now := time.Now().UTC()
	sub, err := subs.Upsert(ctx, &billing.Subscription{
		ID:             id.NewUUIDv7(),
		AccountID:      acct.ID,
		PlanID:         pro.ID,
		Provider:       billing.ProviderStripe,
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		PriceID:        "price_pro_monthly",
		Status:         billing.StatusActive,
		PeriodStart:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)

	require.NoError(t, events.Link(ctx, evt.ID, acct.ID, sub.ID))
	assert.ErrorIs(t, events.Link(ctx, id.NewUUIDv7(), "", ""), billing.ErrEventNotFound)

	sub.Status = billing.StatusPastDue
	sub.ID = id.NewUUIDv7()
	updated, err := subs.Upsert(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPastDue, updated.Status)

	list, err := subs.ListByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, billing.StatusPastDue, list[0].Status)

	_, err = subs.GetByProviderID(ctx, billing.ProviderStripe, "sub_missing")
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
}

// TestPurpose: Validates that WithinTransaction rolls back every write when fn fails.
// Scope: Database Integration Test
// Security: Atomicity of multi-row writes
// Expected: A user created inside a failed transaction does not exist afterwards.
// Test Case ID: INT-04
func TestDB_WithinTransactionRollback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	boom := errors.New("boom")

	err := db.WithinTransaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		if err := users.Create(ctx, &identity.User{
			ID: id.NewUUIDv7(), Email: "rollback@example.com", IsActive: true, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = users.GetByEmail(ctx, "rollback@example.com")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

// TestPurpose: Validates tenant seat accounting and membership constraint mapping.
// Scope: Database Integration Test
// Security: Seat limits and membership uniqueness
// Expected: ConsumeSeat stops at seat_limit; duplicate membership and duplicate slug map to domain errors.
// Test Case ID: INT-05
func TestTenantRepository_SeatsAndMemberships(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tenants := NewTenantRepository(db)
	members := NewMembershipRepository(db)
	owner := createUser(t, db, "founder@example.com")
	acct, err := NewAccountRepository(db).UpsertForPlan(ctx, owner.Email, 1)
	require.NoError(t, err)

	now := time.Now().UTC()
	tn := &tenant.Tenant{
		ID: id.NewUUIDv7(), AccountID: acct.ID, Name: "Acme", Slug: "acme",
		IsActive: true, SeatLimit: 1, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, tenants.Create(ctx, tn))

	dup := *tn
	dup.ID = id.NewUUIDv7()
	assert.ErrorIs(t, tenants.Create(ctx, &dup), tenant.ErrTenantNameUnavailable)

	require.NoError(t, tenants.ConsumeSeat(ctx, tn.ID))
	assert.ErrorIs(t, tenants.ConsumeSeat(ctx, tn.ID), tenant.ErrSeatLimitReached)
	require.NoError(t, tenants.ReleaseSeat(ctx, tn.ID))
	require.NoError(t, tenants.ReleaseSeat(ctx, tn.ID))
	got, err := tenants.GetByID(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SeatUsed)

	m := &tenant.Membership{ID: id.NewUUIDv7(), TenantID: tn.ID, UserID: owner.ID, Role: authz.RoleOwner, JoinedAt: now}
	require.NoError(t, members.Create(ctx, m))
	again := *m
	again.ID = id.NewUUIDv7()
	assert.ErrorIs(t, members.Create(ctx, &again), tenant.ErrMembershipExists)

	ghost := &tenant.Membership{ID: id.NewUUIDv7(), TenantID: tn.ID, UserID: id.NewUUIDv7(), Role: authz.RoleViewer, JoinedAt: now}
	assert.ErrorIs(t, members.Create(ctx, ghost), identity.ErrUserNotFound)

	role, ok, err := members.RoleOf(ctx, tn.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, authz.RoleOwner, role)

	n, err := members.CountByRole(ctx, tn.ID, authz.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	listed, err := tenants.ListByIDs(ctx, []string{tn.ID, "bogus"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "acme", listed[0].Slug)
}

// TestPurpose: Validates the migrator reports versions and can roll back the schema.
// Scope: Database Integration Test
// Security: N/A
// Expected: Version is 2 after Up and 0 after Down.
// Test Case ID: INT-06
func TestMigrator_UpDown(t *testing.T) {
	db := newTestDB(t)
	dsn := db.Pool().Config().ConnString()

	m, err := NewMigrator(dsn)
	require.NoError(t, err)
	defer m.Close()

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}
