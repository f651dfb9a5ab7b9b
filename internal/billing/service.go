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

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/audit"
	"github.com/tenantcore/tenantcore/internal/id"
	"github.com/tenantcore/tenantcore/internal/observability/logger"
	"github.com/tenantcore/tenantcore/internal/observability/metrics"
	"github.com/tenantcore/tenantcore/internal/plan"
	"github.com/tenantcore/tenantcore/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/tenantcore/tenantcore/internal/billing")

// WebhookResult reports what HandleWebhook did with a delivery.
type WebhookResult struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	Duplicate bool   `json:"duplicate"`
}

// Service applies provider events and starts checkouts.
type Service struct {
	registry      *Registry
	subscriptions SubscriptionRepository
	events        EventRepository
	accounts      *account.Service
	catalog       *plan.Catalog
	tx            store.Transactor
	auditLogger   audit.Logger
	instruments   *metrics.Instruments
}

// NewService creates a new billing service
func NewService(
	registry *Registry,
	subscriptions SubscriptionRepository,
	events EventRepository,
	accounts *account.Service,
	catalog *plan.Catalog,
	tx store.Transactor,
	auditLogger audit.Logger,
	instruments *metrics.Instruments,
) *Service {
	return &Service{
		registry:      registry,
		subscriptions: subscriptions,
		events:        events,
		accounts:      accounts,
		catalog:       catalog,
		tx:            tx,
		auditLogger:   auditLogger,
		instruments:   instruments,
	}
}

// SignatureHeader returns the webhook signature header of provider.
func (s *Service) SignatureHeader(provider string) (string, error) {
	p, err := s.registry.Get(provider)
	if err != nil {
		return "", err
	}
	return p.SignatureHeader(), nil
}

// HandleWebhook verifies and applies one provider delivery.
//
// Recording the event under its (provider, event id) key and applying its
// effects share a transaction. A delivery whose key is already recorded
// changes nothing and is reported as a duplicate with a nil error. Any other
// failure rolls the whole delivery back so the provider's retry starts clean.
func (s *Service) HandleWebhook(ctx context.Context, provider string, payload []byte, signature string) (*WebhookResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "billing.HandleWebhook", trace.WithAttributes(attribute.String("billing.provider", provider)))
	defer span.End()

	proc, err := s.registry.Enabled(provider)
	if err != nil {
		return nil, err
	}

	evt, err := proc.ParseWebhook(payload, signature)
	if err != nil {
		span.RecordError(err)
		s.instruments.RecordWebhook(ctx, provider, "", "rejected", time.Since(start))
		slog.WarnContext(ctx, "webhook rejected", logger.Provider(provider), logger.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("billing.event_id", evt.ID), attribute.String("billing.event_type", evt.Type))

	result := &WebhookResult{EventID: evt.ID, Type: evt.Type}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		record := &BillingEvent{
			ID:         id.NewUUIDv7(),
			Provider:   evt.Provider,
			EventID:    evt.ID,
			Type:       evt.Type,
			Raw:        evt.Raw,
			ReceivedAt: time.Now().UTC(),
		}
		inserted, err := s.events.Record(ctx, record)
		if err != nil {
			return fmt.Errorf("failed to record billing event: %w", err)
		}
		if !inserted {
			result.Duplicate = true
			return nil
		}

		accountID, subscriptionID, err := s.apply(ctx, evt)
		if err != nil {
			return err
		}
		if accountID != "" || subscriptionID != "" {
			if err := s.events.Link(ctx, record.ID, accountID, subscriptionID); err != nil {
				return fmt.Errorf("failed to link billing event: %w", err)
			}
		}
		return nil
	})

	attrs := []any{logger.Provider(provider), logger.EventID(evt.ID), logger.EventType(evt.Type)}
	if err != nil {
		span.RecordError(err)
		s.instruments.RecordWebhook(ctx, provider, evt.Type, "failed", time.Since(start))
		slog.ErrorContext(ctx, "webhook processing failed", append(attrs, logger.Error(err))...)
		return nil, err
	}

	if result.Duplicate {
		s.instruments.RecordWebhook(ctx, provider, evt.Type, "duplicate", time.Since(start))
		slog.InfoContext(ctx, "duplicate webhook delivery ignored", attrs...)
		return result, nil
	}

	s.instruments.RecordWebhook(ctx, provider, evt.Type, "applied", time.Since(start))
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeBillingEventReceived,
		Resource: "billing_event",
		Metadata: map[string]any{"provider": provider, "event_id": evt.ID, "event_type": evt.Type},
	})
	slog.InfoContext(ctx, "webhook applied", attrs...)
	return result, nil
}

// apply performs the side effects of evt and returns the account and
// subscription rows it touched, if any.
func (s *Service) apply(ctx context.Context, evt *Event) (string, string, error) {
	switch evt.Kind {
	case KindCheckoutCompleted:
		return s.applyCheckout(ctx, evt)
	case KindSubscriptionUpdated, KindSubscriptionDeleted:
		return s.applySubscriptionChange(ctx, evt)
	case KindPaymentSucceeded, KindPaymentFailed:
		return s.applyInvoice(ctx, evt)
	}
	return "", "", nil
}

func (s *Service) applyCheckout(ctx context.Context, evt *Event) (string, string, error) {
	c := evt.Checkout
	if c == nil {
		return "", "", fmt.Errorf("%w: checkout session missing", ErrMalformedEvent)
	}
	if !c.IsSubscription() {
		return "", "", nil
	}
	// Later subscription events address the row by this id.
	if c.SubscriptionID == "" {
		return "", "", fmt.Errorf("%w: subscription id missing from checkout %s", ErrMalformedEvent, c.SessionID)
	}

	acct, p, err := s.accounts.ProvisionFromCheckout(ctx, account.CheckoutMetadata{
		Email:  c.Metadata[MetadataEmail],
		PlanID: c.Metadata[MetadataPlanID],
	})
	if err != nil {
		return "", "", err
	}

	priceID := c.Metadata[MetadataPriceID]
	if priceID == "" {
		if price, ok := p.ActivePrice(evt.Provider); ok {
			priceID = price.PriceID
		}
	}

	now := time.Now().UTC()
	sub, err := s.subscriptions.Upsert(ctx, &Subscription{
		ID:             id.NewUUIDv7(),
		AccountID:      acct.ID,
		PlanID:         p.ID,
		Provider:       evt.Provider,
		CustomerID:     c.CustomerID,
		SubscriptionID: c.SubscriptionID,
		PriceID:        priceID,
		Status:         StatusActive,
		PeriodStart:    evt.OccurredAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upsert subscription: %w", err)
	}

	s.logTransition(ctx, sub, "", evt)
	return acct.ID, sub.ID, nil
}

func (s *Service) applySubscriptionChange(ctx context.Context, evt *Event) (string, string, error) {
	change := evt.Subscription
	if change == nil || change.SubscriptionID == "" {
		return "", "", fmt.Errorf("%w: subscription id missing", ErrMalformedEvent)
	}

	sub, err := s.subscriptions.GetByProviderID(ctx, evt.Provider, change.SubscriptionID)
	if err != nil {
		return "", "", err
	}
	previous := sub.Status

	sub.Status = change.Status
	if change.PriceID != "" {
		sub.PriceID = change.PriceID
	}
	if change.CustomerID != "" {
		sub.CustomerID = change.CustomerID
	}
	if !change.PeriodStart.IsZero() {
		sub.PeriodStart = change.PeriodStart
	}
	if change.PeriodEnd != nil {
		sub.PeriodEnd = change.PeriodEnd
	}
	sub.UpdatedAt = time.Now().UTC()

	stored, err := s.subscriptions.Upsert(ctx, sub)
	if err != nil {
		return "", "", fmt.Errorf("failed to update subscription: %w", err)
	}

	s.logTransition(ctx, stored, previous, evt)
	return stored.AccountID, stored.ID, nil
}

// applyInvoice moves ACTIVE to PAST_DUE on a failed charge and back on a
// successful one. Invoices for unknown subscriptions are recorded unlinked.
func (s *Service) applyInvoice(ctx context.Context, evt *Event) (string, string, error) {
	inv := evt.Invoice
	if inv == nil || inv.SubscriptionID == "" {
		return "", "", nil
	}

	sub, err := s.subscriptions.GetByProviderID(ctx, evt.Provider, inv.SubscriptionID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		slog.WarnContext(ctx, "invoice for unknown subscription",
			logger.Provider(evt.Provider), logger.EventID(evt.ID), logger.SubscriptionID(inv.SubscriptionID))
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}

	previous := sub.Status
	next := invoiceTransition(previous, evt.Kind)
	if next == previous {
		return sub.AccountID, sub.ID, nil
	}

	sub.Status = next
	sub.UpdatedAt = time.Now().UTC()
	stored, err := s.subscriptions.Upsert(ctx, sub)
	if err != nil {
		return "", "", fmt.Errorf("failed to update subscription: %w", err)
	}
	s.logTransition(ctx, stored, previous, evt)
	return stored.AccountID, stored.ID, nil
}

func invoiceTransition(current Status, kind EventKind) Status {
	switch {
	case kind == KindPaymentFailed && current == StatusActive:
		return StatusPastDue
	case kind == KindPaymentSucceeded && current == StatusPastDue:
		return StatusActive
	}
	return current
}

func (s *Service) logTransition(ctx context.Context, sub *Subscription, from Status, evt *Event) {
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSubscriptionChanged,
		Resource: "subscription",
		Metadata: map[string]any{
			"subscription_id": sub.SubscriptionID,
			"account_id":      sub.AccountID,
			"from":            string(from),
			"to":              string(sub.Status),
			"event_id":        evt.ID,
		},
	})
	slog.InfoContext(ctx, "subscription status set",
		logger.SubscriptionID(sub.SubscriptionID),
		logger.AccountID(sub.AccountID),
		slog.String("from", string(from)),
		slog.String("to", string(sub.Status)))
}

// CreateCheckoutSession starts a provider checkout for email on the active
// price of planRef.
func (s *Service) CreateCheckoutSession(ctx context.Context, provider, email, planRef string) (*CheckoutSession, error) {
	ctx, span := tracer.Start(ctx, "billing.CreateCheckoutSession")
	defer span.End()

	proc, err := s.registry.Enabled(provider)
	if err != nil {
		return nil, err
	}

	p, price, err := s.catalog.ActivePrice(ctx, planRef, provider)
	if err != nil {
		return nil, err
	}

	session, err := proc.CreateCheckoutSession(ctx, CheckoutRequest{Email: email, Plan: p, Price: price})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeCheckoutStarted,
		Resource: "checkout_session",
		Metadata: map[string]any{"provider": provider, "plan": p.Key, "email": email, "session_id": session.ID},
	})
	return session, nil
}

// SubscriptionsForAccount lists the subscriptions of an account.
func (s *Service) SubscriptionsForAccount(ctx context.Context, accountID string) ([]*Subscription, error) {
	return s.subscriptions.ListByAccount(ctx, accountID)
}
