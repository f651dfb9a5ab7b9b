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

package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Plan), args.Error(1)
}

func (m *mockRepo) GetByKey(ctx context.Context, key string) (*Plan, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Plan), args.Error(1)
}

func (m *mockRepo) List(ctx context.Context) ([]*Plan, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*Plan), args.Error(1)
}

func proPlan() *Plan {
	return &Plan{
		ID:         "plan-pro",
		Key:        "pro",
		Name:       "Pro",
		MaxTenants: 5,
		Prices: []*Price{
			{ID: "p1", PlanID: "plan-pro", Provider: "stripe", PriceID: "price_old", Active: false},
			{ID: "p2", PlanID: "plan-pro", Provider: "stripe", PriceID: "price_pro_monthly", Interval: IntervalMonth, AmountCents: 2999, Currency: "usd", Active: true},
		},
	}
}

// TestPurpose: Validates plan resolution by key, then by id, and the not-found path.
// Scope: Unit Test
// Expected: Key lookups win, id lookups are the fallback, unknown references return ErrPlanNotFound.
// Test Case ID: PLN-01
func TestCatalog_Resolve(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	c := NewCatalog(repo)

	repo.On("GetByKey", ctx, "pro").Return(proPlan(), nil)
	repo.On("GetByKey", ctx, "plan-pro").Return(nil, ErrPlanNotFound)
	repo.On("GetByID", ctx, "plan-pro").Return(proPlan(), nil)
	repo.On("GetByKey", ctx, "gold").Return(nil, ErrPlanNotFound)
	repo.On("GetByID", ctx, "gold").Return(nil, ErrPlanNotFound)
	repo.On("GetByKey", ctx, "down").Return(nil, errors.New("connection refused"))

	p, err := c.Resolve(ctx, "pro")
	require.NoError(t, err)
	assert.Equal(t, 5, p.MaxTenants)

	p, err = c.Resolve(ctx, "plan-pro")
	require.NoError(t, err)
	assert.Equal(t, "pro", p.Key)

	_, err = c.Resolve(ctx, "gold")
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = c.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = c.Resolve(ctx, "down")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPlanNotFound)
}

// TestPurpose: Validates active price selection per provider.
// Scope: Unit Test
// Expected: Inactive prices are skipped; a provider without an active price yields ErrPriceNotFound.
// Test Case ID: PLN-02
func TestCatalog_ActivePrice(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	c := NewCatalog(repo)
	repo.On("GetByKey", ctx, "pro").Return(proPlan(), nil)

	_, price, err := c.ActivePrice(ctx, "pro", "stripe")
	require.NoError(t, err)
	assert.Equal(t, "price_pro_monthly", price.PriceID)

	_, _, err = c.ActivePrice(ctx, "pro", "paypal")
	assert.ErrorIs(t, err, ErrPriceNotFound)
}
