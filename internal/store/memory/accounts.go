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

	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/id"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/plan"
)

// UserRepository implements identity.UserRepository.
type UserRepository struct{ s *Store }

func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	defer r.s.lock(ctx)()
	for _, u := range r.s.state.users {
		if u.Email == user.Email {
			return identity.ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = id.NewUUIDv7()
	}
	u := *user
	r.s.state.users[u.ID] = &u
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID string) (*identity.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.state.users[userID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	defer r.s.lock(ctx)()
	u := r.s.state.userByEmail(email)
	if u == nil {
		return nil, identity.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *UserRepository) SetActive(ctx context.Context, userID string, active bool) error {
	defer r.s.lock(ctx)()
	u, ok := r.s.state.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.IsActive = active
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (st *state) userByEmail(email string) *identity.User {
	for _, u := range st.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

// AccountRepository implements account.Repository.
type AccountRepository struct{ s *Store }

func (r *AccountRepository) GetByID(ctx context.Context, accountID string) (*account.Account, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.state.accounts[accountID]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	out := *a
	return &out, nil
}

func (r *AccountRepository) GetByUserEmail(ctx context.Context, email string) (*account.Account, error) {
	defer r.s.lock(ctx)()
	a := r.s.state.accountByEmail(email)
	if a == nil {
		return nil, account.ErrAccountNotFound
	}
	out := *a
	return &out, nil
}

// UpsertForPlan requires the owning user to exist, matching the foreign key
// the Postgres schema declares.
func (r *AccountRepository) UpsertForPlan(ctx context.Context, email string, maxTenants int) (*account.Account, error) {
	defer r.s.lock(ctx)()
	if r.s.state.userByEmail(email) == nil {
		return nil, identity.ErrUserNotFound
	}

	now := time.Now().UTC()
	a := r.s.state.accountByEmail(email)
	if a == nil {
		a = &account.Account{
			ID:        id.NewUUIDv7(),
			UserEmail: email,
			CreatedAt: now,
		}
		r.s.state.accounts[a.ID] = a
	}
	a.MaxTenants = maxTenants
	a.UpdatedAt = now

	out := *a
	return &out, nil
}

func (r *AccountRepository) ConsumeTenantSlot(ctx context.Context, accountID string) error {
	defer r.s.lock(ctx)()
	a, ok := r.s.state.accounts[accountID]
	if !ok {
		return account.ErrAccountNotFound
	}
	if a.TenantsUsed >= a.MaxTenants {
		return account.ErrQuotaExceeded
	}
	a.TenantsUsed++
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (st *state) accountByEmail(email string) *account.Account {
	for _, a := range st.accounts {
		if a.UserEmail == email {
			return a
		}
	}
	return nil
}

// PlanRepository implements plan.Repository.
type PlanRepository struct{ s *Store }

func (r *PlanRepository) GetByID(ctx context.Context, planID string) (*plan.Plan, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.state.plans[planID]
	if !ok {
		return nil, plan.ErrPlanNotFound
	}
	return clonePlan(p), nil
}

func (r *PlanRepository) GetByKey(ctx context.Context, key string) (*plan.Plan, error) {
	defer r.s.lock(ctx)()
	for _, p := range r.s.state.plans {
		if p.Key == key {
			return clonePlan(p), nil
		}
	}
	return nil, plan.ErrPlanNotFound
}

func (r *PlanRepository) List(ctx context.Context) ([]*plan.Plan, error) {
	defer r.s.lock(ctx)()
	out := make([]*plan.Plan, 0, len(r.s.state.plans))
	for _, p := range r.s.state.plans {
		out = append(out, clonePlan(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MaxTenants != out[j].MaxTenants {
			return out[i].MaxTenants < out[j].MaxTenants
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func clonePlan(p *plan.Plan) *plan.Plan {
	out := *p
	out.Prices = make([]*plan.Price, len(p.Prices))
	for i, pr := range p.Prices {
		c := *pr
		out.Prices[i] = &c
	}
	return &out
}
