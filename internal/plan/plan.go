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

// Package plan holds the subscription tiers and their provider prices.
package plan

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPlanNotFound  = errors.New("plan not found")
	ErrPriceNotFound = errors.New("no active price for plan")
)

// BillingInterval is the cadence a price is charged at.
type BillingInterval string

const (
	IntervalDay   BillingInterval = "DAY"
	IntervalWeek  BillingInterval = "WEEK"
	IntervalMonth BillingInterval = "MONTH"
	IntervalYear  BillingInterval = "YEAR"
)

// Plan is a named tier granting a tenant ceiling to accounts on it.
type Plan struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	Name       string    `json:"name"`
	MaxTenants int       `json:"max_tenants"`
	Prices     []*Price  `json:"prices"`
	CreatedAt  time.Time `json:"created_at"`
}

// Price is a provider-specific price for a plan. PriceID is unique per provider.
type Price struct {
	ID          string          `json:"id"`
	PlanID      string          `json:"plan_id"`
	Provider    string          `json:"provider"`
	ProductID   string          `json:"product_id"`
	PriceID     string          `json:"price_id"`
	Interval    BillingInterval `json:"interval"`
	AmountCents int64           `json:"amount_cents"`
	Currency    string          `json:"currency"`
	Active      bool            `json:"active"`
}

// ActivePrice returns the price new checkouts should use for provider. When
// more than one is active the first one listed wins.
func (p *Plan) ActivePrice(provider string) (*Price, bool) {
	for _, pr := range p.Prices {
		if pr.Active && pr.Provider == provider {
			return pr, true
		}
	}
	return nil, false
}

// Repository loads plans together with their prices.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Plan, error)
	GetByKey(ctx context.Context, key string) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
}
