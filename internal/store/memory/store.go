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

// Package memory implements every repository and the Transactor in process
// memory. It backs unit tests and STORE_DRIVER=memory local runs.
package memory

import (
	"context"
	"sync"

	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/billing"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/plan"
	"github.com/tenantcore/tenantcore/internal/store"
	"github.com/tenantcore/tenantcore/internal/tenant"
)

var (
	_ store.Transactor               = (*Store)(nil)
	_ identity.UserRepository        = (*UserRepository)(nil)
	_ account.Repository             = (*AccountRepository)(nil)
	_ plan.Repository                = (*PlanRepository)(nil)
	_ billing.SubscriptionRepository = (*SubscriptionRepository)(nil)
	_ billing.EventRepository        = (*EventRepository)(nil)
	_ tenant.Repository              = (*TenantRepository)(nil)
	_ tenant.MembershipRepository    = (*MembershipRepository)(nil)
)

type txKey struct{}

// Store holds all state behind one mutex. A transaction holds the mutex for
// its whole duration and restores a snapshot when fn fails, so transactions
// are serialized and all-or-nothing.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	users         map[string]*identity.User
	accounts      map[string]*account.Account
	plans         map[string]*plan.Plan
	subscriptions map[string]*billing.Subscription
	events        map[string]*billing.BillingEvent
	tenants       map[string]*tenant.Tenant
	memberships   map[string]*tenant.Membership
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState()}
}

// NewSeeded returns a store holding the default plan catalog.
func NewSeeded() *Store {
	s := New()
	for _, p := range plan.Seed() {
		s.state.plans[p.ID] = clonePlan(p)
	}
	return s
}

func newState() *state {
	return &state{
		users:         map[string]*identity.User{},
		accounts:      map[string]*account.Account{},
		plans:         map[string]*plan.Plan{},
		subscriptions: map[string]*billing.Subscription{},
		events:        map[string]*billing.BillingEvent{},
		tenants:       map[string]*tenant.Tenant{},
		memberships:   map[string]*tenant.Membership{},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range st.accounts {
		a := *v
		c.accounts[k] = &a
	}
	for k, v := range st.plans {
		c.plans[k] = clonePlan(v)
	}
	for k, v := range st.subscriptions {
		c.subscriptions[k] = cloneSubscription(v)
	}
	for k, v := range st.events {
		e := *v
		c.events[k] = &e
	}
	for k, v := range st.tenants {
		t := *v
		c.tenants[k] = &t
	}
	for k, v := range st.memberships {
		m := *v
		c.memberships[k] = &m
	}
	return c
}

// WithinTransaction runs fn atomically. Calls nested inside fn join the
// outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock acquires the store mutex unless ctx already runs inside one of this
// store's transactions. The returned func releases it.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Accounts returns the account repository view of the store.
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

// Plans returns the plan repository view of the store.
func (s *Store) Plans() *PlanRepository { return &PlanRepository{s: s} }

// Subscriptions returns the subscription repository view of the store.
func (s *Store) Subscriptions() *SubscriptionRepository { return &SubscriptionRepository{s: s} }

// BillingEvents returns the billing event ledger view of the store.
func (s *Store) BillingEvents() *EventRepository { return &EventRepository{s: s} }

// Tenants returns the tenant repository view of the store.
func (s *Store) Tenants() *TenantRepository { return &TenantRepository{s: s} }

// Memberships returns the membership repository view of the store.
func (s *Store) Memberships() *MembershipRepository { return &MembershipRepository{s: s} }

// PutPlan inserts or replaces a plan. Intended for tests and local seeding.
func (s *Store) PutPlan(p *plan.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.plans[p.ID] = clonePlan(p)
}
