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
	"github.com/tenantcore/tenantcore/internal/billing"
)

// SubscriptionRepository implements billing.SubscriptionRepository
type SubscriptionRepository struct {
	db *DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, account_id, plan_id, provider, customer_id, subscription_id, price_id,
	status, period_start, period_end, created_at, updated_at`

func scanSubscription(row pgx.Row) (*billing.Subscription, error) {
	var s billing.Subscription
	err := row.Scan(&s.ID, &s.AccountID, &s.PlanID, &s.Provider, &s.CustomerID, &s.SubscriptionID, &s.PriceID,
		&s.Status, &s.PeriodStart, &s.PeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Upsert inserts a subscription or overwrites the mutable fields of the row
// with the same (provider, subscription_id).
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *billing.Subscription) (*billing.Subscription, error) {
	stored, err := scanSubscription(r.db.conn(ctx).QueryRow(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (provider, subscription_id) DO UPDATE SET
			account_id   = EXCLUDED.account_id,
			plan_id      = EXCLUDED.plan_id,
			customer_id  = EXCLUDED.customer_id,
			price_id     = EXCLUDED.price_id,
			status       = EXCLUDED.status,
			period_start = EXCLUDED.period_start,
			period_end   = EXCLUDED.period_end,
			updated_at   = EXCLUDED.updated_at
		RETURNING `+subscriptionColumns,
		sub.ID, sub.AccountID, sub.PlanID, sub.Provider, sub.CustomerID, sub.SubscriptionID, sub.PriceID,
		sub.Status, sub.PeriodStart, sub.PeriodEnd, sub.CreatedAt, sub.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return stored, nil
}

// GetByProviderID retrieves a subscription by its provider key
func (r *SubscriptionRepository) GetByProviderID(ctx context.Context, provider, subscriptionID string) (*billing.Subscription, error) {
	sub, err := scanSubscription(r.db.conn(ctx).QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider = $1 AND subscription_id = $2
	`, provider, subscriptionID))
	if err != nil && !errors.Is(err, billing.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, err
}

// ListByAccount lists the subscriptions of an account, oldest first
func (r *SubscriptionRepository) ListByAccount(ctx context.Context, accountID string) ([]*billing.Subscription, error) {
	if !validID(accountID) {
		return []*billing.Subscription{}, nil
	}
	rows, err := r.db.conn(ctx).Query(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions WHERE account_id = $1 ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*billing.Subscription, error) {
		return scanSubscription(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscriptions: %w", err)
	}
	return subs, nil
}

// EventRepository implements billing.EventRepository
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new billing event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Record appends an event unless its (provider, event_id) is already
// present. Concurrent deliveries of one key serialize on the unique index;
// the loser sees zero affected rows once the winner commits.
func (r *EventRepository) Record(ctx context.Context, evt *billing.BillingEvent) (bool, error) {
	tag, err := r.db.conn(ctx).Exec(ctx, `
		INSERT INTO billing_events (id, provider, event_id, type, raw, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, event_id) DO NOTHING
	`, evt.ID, evt.Provider, evt.EventID, evt.Type, evt.Raw, evt.ReceivedAt)
	if err != nil {
		return false, fmt.Errorf("failed to record billing event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Link attaches account and subscription references to a recorded event
func (r *EventRepository) Link(ctx context.Context, eventID, accountID, subscriptionID string) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `
		UPDATE billing_events SET account_id = $2, subscription_id = $3 WHERE id = $1
	`, eventID, nullable(accountID), nullable(subscriptionID))
	if err != nil {
		return fmt.Errorf("failed to link billing event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrEventNotFound
	}
	return nil
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
