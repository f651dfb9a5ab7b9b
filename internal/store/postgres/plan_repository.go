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
	"github.com/tenantcore/tenantcore/internal/plan"
)

// PlanRepository implements plan.Repository
type PlanRepository struct {
	db *DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetByID retrieves a plan and its prices by ID
func (r *PlanRepository) GetByID(ctx context.Context, planID string) (*plan.Plan, error) {
	if !validID(planID) {
		return nil, plan.ErrPlanNotFound
	}
	return r.getOne(ctx, `SELECT id, key, name, max_tenants, created_at FROM plans WHERE id = $1`, planID)
}

// GetByKey retrieves a plan and its prices by key
func (r *PlanRepository) GetByKey(ctx context.Context, key string) (*plan.Plan, error) {
	return r.getOne(ctx, `SELECT id, key, name, max_tenants, created_at FROM plans WHERE key = $1`, key)
}

func (r *PlanRepository) getOne(ctx context.Context, query, arg string) (*plan.Plan, error) {
	var p plan.Plan
	err := r.db.conn(ctx).QueryRow(ctx, query, arg).Scan(&p.ID, &p.Key, &p.Name, &p.MaxTenants, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, plan.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	prices, err := r.prices(ctx, `WHERE plan_id = $1`, p.ID)
	if err != nil {
		return nil, err
	}
	p.Prices = prices
	return &p, nil
}

// List returns every plan ordered by tenant ceiling
func (r *PlanRepository) List(ctx context.Context) ([]*plan.Plan, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT id, key, name, max_tenants, created_at FROM plans ORDER BY max_tenants, key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	plans, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*plan.Plan, error) {
		p := &plan.Plan{Prices: []*plan.Price{}}
		return p, row.Scan(&p.ID, &p.Key, &p.Name, &p.MaxTenants, &p.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan plans: %w", err)
	}

	prices, err := r.prices(ctx, ``)
	if err != nil {
		return nil, err
	}
	byPlan := make(map[string]*plan.Plan, len(plans))
	for _, p := range plans {
		byPlan[p.ID] = p
	}
	for _, pr := range prices {
		if p, ok := byPlan[pr.PlanID]; ok {
			p.Prices = append(p.Prices, pr)
		}
	}
	return plans, nil
}

func (r *PlanRepository) prices(ctx context.Context, where string, args ...any) ([]*plan.Price, error) {
	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT id, plan_id, provider, product_id, price_id, interval, amount_cents, currency, active
		FROM plan_prices `+where+`
		ORDER BY active DESC, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plan prices: %w", err)
	}
	prices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*plan.Price, error) {
		var pr plan.Price
		err := row.Scan(&pr.ID, &pr.PlanID, &pr.Provider, &pr.ProductID, &pr.PriceID,
			&pr.Interval, &pr.AmountCents, &pr.Currency, &pr.Active)
		return &pr, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan plan prices: %w", err)
	}
	return prices, nil
}
