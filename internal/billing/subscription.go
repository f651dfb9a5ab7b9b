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

// Package billing turns payment provider events into subscription and account
// state and starts provider checkouts.
package billing

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrEventNotFound        = errors.New("billing event not found")
	ErrUnknownStatus        = errors.New("unknown provider subscription status")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrMalformedEvent       = errors.New("malformed webhook event")
	ErrUnknownProvider      = errors.New("unknown payment provider")
	ErrProviderNotSupported = errors.New("payment provider not supported")
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPastDue  Status = "PAST_DUE"
	StatusCanceled Status = "CANCELED"
)

// Valid reports whether s is one of the three lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPastDue, StatusCanceled:
		return true
	}
	return false
}

// Subscription mirrors a provider subscription. (Provider, SubscriptionID)
// is unique.
type Subscription struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"account_id"`
	PlanID         string     `json:"plan_id"`
	Provider       string     `json:"provider"`
	CustomerID     string     `json:"customer_id"`
	SubscriptionID string     `json:"subscription_id"`
	PriceID        string     `json:"price_id"`
	Status         Status     `json:"status"`
	PeriodStart    time.Time  `json:"period_start"`
	PeriodEnd      *time.Time `json:"period_end,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// BillingEvent is the append-only record of one provider delivery.
// (Provider, EventID) is the idempotency key. AccountID and SubscriptionID
// are empty for events that touch neither.
type BillingEvent struct {
	ID             string    `json:"id"`
	Provider       string    `json:"provider"`
	EventID        string    `json:"event_id"`
	Type           string    `json:"type"`
	AccountID      string    `json:"account_id,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	Raw            []byte    `json:"-"`
	ReceivedAt     time.Time `json:"received_at"`
}

// SubscriptionRepository defines the interface for subscription persistence
type SubscriptionRepository interface {
	// Upsert inserts sub or, when (Provider, SubscriptionID) exists, overwrites
	// its mutable fields. The stored row is returned.
	Upsert(ctx context.Context, sub *Subscription) (*Subscription, error)
	GetByProviderID(ctx context.Context, provider, subscriptionID string) (*Subscription, error)
	ListByAccount(ctx context.Context, accountID string) ([]*Subscription, error)
}

// EventRepository defines the interface for the billing event ledger
type EventRepository interface {
	// Record appends evt and reports whether it was new. A delivery whose
	// (Provider, EventID) is already recorded returns false and writes nothing.
	Record(ctx context.Context, evt *BillingEvent) (bool, error)

	// Link attaches account and subscription references to an event recorded
	// in the current transaction.
	Link(ctx context.Context, eventID, accountID, subscriptionID string) error
}
