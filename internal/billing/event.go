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

package billing

import "time"

// EventKind classifies provider events by the effect they have here.
type EventKind string

const (
	KindCheckoutCompleted   EventKind = "checkout_completed"
	KindSubscriptionUpdated EventKind = "subscription_updated"
	KindSubscriptionDeleted EventKind = "subscription_deleted"
	KindPaymentSucceeded    EventKind = "payment_succeeded"
	KindPaymentFailed       EventKind = "payment_failed"
	KindIgnored             EventKind = "ignored"
)

// Event is a verified provider event decoded into provider-neutral terms.
// Exactly one of Checkout, Subscription or Invoice is set unless Kind is
// KindIgnored.
type Event struct {
	ID         string
	Provider   string
	Type       string
	Kind       EventKind
	OccurredAt time.Time
	Raw        []byte

	Checkout     *CheckoutCompleted
	Subscription *SubscriptionChange
	Invoice      *InvoiceOutcome
}

// CheckoutCompleted is a finished hosted checkout.
type CheckoutCompleted struct {
	SessionID      string
	Mode           string
	SubscriptionID string
	CustomerID     string
	Metadata       map[string]string
}

// IsSubscription reports whether the checkout started a subscription.
func (c *CheckoutCompleted) IsSubscription() bool {
	return c.Mode == "subscription"
}

// SubscriptionChange is a provider-side subscription update or deletion.
type SubscriptionChange struct {
	SubscriptionID string
	CustomerID     string
	ProviderStatus string
	Status         Status
	PriceID        string
	PeriodStart    time.Time
	PeriodEnd      *time.Time
}

// InvoiceOutcome is the result of charging an invoice.
type InvoiceOutcome struct {
	InvoiceID      string
	SubscriptionID string
	CustomerID     string
}

// Metadata keys written on checkout sessions and read back from webhooks.
const (
	MetadataEmail   = "email"
	MetadataPlanID  = "planId"
	MetadataPriceID = "priceId"
)
