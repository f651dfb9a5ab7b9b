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

	"github.com/tenantcore/tenantcore/internal/billing"
	"github.com/tenantcore/tenantcore/internal/id"
)

// SubscriptionRepository implements billing.SubscriptionRepository.
type SubscriptionRepository struct{ s *Store }

func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *billing.Subscription) (*billing.Subscription, error) {
	defer r.s.lock(ctx)()
	if existing := r.s.state.subscriptionByKey(sub.Provider, sub.SubscriptionID); existing != nil {
		existing.AccountID = sub.AccountID
		existing.PlanID = sub.PlanID
		existing.CustomerID = sub.CustomerID
		existing.PriceID = sub.PriceID
		existing.Status = sub.Status
		existing.PeriodStart = sub.PeriodStart
		existing.PeriodEnd = sub.PeriodEnd
		existing.UpdatedAt = sub.UpdatedAt
		return cloneSubscription(existing), nil
	}

	stored := cloneSubscription(sub)
	if stored.ID == "" {
		stored.ID = id.NewUUIDv7()
	}
	r.s.state.subscriptions[stored.ID] = stored
	return cloneSubscription(stored), nil
}

func (r *SubscriptionRepository) GetByProviderID(ctx context.Context, provider, subscriptionID string) (*billing.Subscription, error) {
	defer r.s.lock(ctx)()
	sub := r.s.state.subscriptionByKey(provider, subscriptionID)
	if sub == nil {
		return nil, billing.ErrSubscriptionNotFound
	}
	return cloneSubscription(sub), nil
}

func (r *SubscriptionRepository) ListByAccount(ctx context.Context, accountID string) ([]*billing.Subscription, error) {
	defer r.s.lock(ctx)()
	out := []*billing.Subscription{}
	for _, sub := range r.s.state.subscriptions {
		if sub.AccountID == accountID {
			out = append(out, cloneSubscription(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (st *state) subscriptionByKey(provider, subscriptionID string) *billing.Subscription {
	for _, sub := range st.subscriptions {
		if sub.Provider == provider && sub.SubscriptionID == subscriptionID {
			return sub
		}
	}
	return nil
}

func cloneSubscription(sub *billing.Subscription) *billing.Subscription {
	out := *sub
	if sub.PeriodEnd != nil {
		end := *sub.PeriodEnd
		out.PeriodEnd = &end
	}
	return &out
}

// EventRepository implements billing.EventRepository.
type EventRepository struct{ s *Store }

func (r *EventRepository) Record(ctx context.Context, evt *billing.BillingEvent) (bool, error) {
	defer r.s.lock(ctx)()
	for _, e := range r.s.state.events {
		if e.Provider == evt.Provider && e.EventID == evt.EventID {
			return false, nil
		}
	}
	if evt.ID == "" {
		evt.ID = id.NewUUIDv7()
	}
	stored := *evt
	stored.Raw = append([]byte(nil), evt.Raw...)
	r.s.state.events[stored.ID] = &stored
	return true, nil
}

func (r *EventRepository) Link(ctx context.Context, eventID, accountID, subscriptionID string) error {
	defer r.s.lock(ctx)()
	e, ok := r.s.state.events[eventID]
	if !ok {
		return billing.ErrEventNotFound
	}
	e.AccountID = accountID
	e.SubscriptionID = subscriptionID
	return nil
}

// List returns every recorded event in arrival order.
func (r *EventRepository) List(ctx context.Context) []*billing.BillingEvent {
	defer r.s.lock(ctx)()
	out := make([]*billing.BillingEvent, 0, len(r.s.state.events))
	for _, e := range r.s.state.events {
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
