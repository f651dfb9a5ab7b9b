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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// ProviderStripe is the registry key of the Stripe processor.
const ProviderStripe = "stripe"

// checkoutSessionCreator is the slice of the Stripe API client used to start
// checkouts.
type checkoutSessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeConfig holds Stripe credentials and redirect targets.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	FrontendURL   string
}

// StripeProcessor verifies and decodes Stripe webhooks and creates Stripe
// Checkout sessions.
type StripeProcessor struct {
	config   StripeConfig
	sessions checkoutSessionCreator
}

// NewStripeProcessor creates a processor backed by the Stripe API.
func NewStripeProcessor(cfg StripeConfig) *StripeProcessor {
	sc := client.New(cfg.SecretKey, nil)
	return &StripeProcessor{config: cfg, sessions: sc.CheckoutSessions}
}

func (p *StripeProcessor) Name() string { return ProviderStripe }

func (p *StripeProcessor) Enabled() bool { return true }

func (p *StripeProcessor) SignatureHeader() string { return "Stripe-Signature" }

// ParseWebhook verifies the Stripe-Signature header over the raw payload and
// maps the event onto an Event.
func (p *StripeProcessor) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if p.config.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, p.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if evt.ID == "" || evt.Data == nil {
		return nil, fmt.Errorf("%w: missing id or data", ErrMalformedEvent)
	}

	out := &Event{
		ID:         evt.ID,
		Provider:   ProviderStripe,
		Type:       string(evt.Type),
		Kind:       KindIgnored,
		OccurredAt: time.Unix(evt.Created, 0).UTC(),
		Raw:        payload,
	}

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", ErrMalformedEvent, err)
		}
		out.Kind = KindCheckoutCompleted
		out.Checkout = checkoutFromStripe(&cs)

	case stripe.EventTypeCustomerSubscriptionUpdated, stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: subscription: %v", ErrMalformedEvent, err)
		}
		change, err := subscriptionFromStripe(&sub)
		if evt.Type == stripe.EventTypeCustomerSubscriptionDeleted {
			// Deletion is terminal whatever status the payload carries.
			out.Kind = KindSubscriptionDeleted
			change.Status = StatusCanceled
		} else {
			if err != nil {
				return nil, err
			}
			out.Kind = KindSubscriptionUpdated
		}
		out.Subscription = change

	case stripe.EventTypeInvoicePaymentSucceeded, stripe.EventTypeInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("%w: invoice: %v", ErrMalformedEvent, err)
		}
		out.Invoice = invoiceFromStripe(&inv)
		if evt.Type == stripe.EventTypeInvoicePaymentSucceeded {
			out.Kind = KindPaymentSucceeded
		} else {
			out.Kind = KindPaymentFailed
		}
	}

	return out, nil
}

// CreateCheckoutSession starts a subscription-mode hosted checkout for the
// requested price. The email, plan and price are carried in the session and
// subscription metadata so the completion webhook can provision the account.
func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.Plan == nil || req.Price == nil {
		return nil, errors.New("checkout requires a plan and a price")
	}
	metadata := map[string]string{
		MetadataEmail:   req.Email,
		MetadataPlanID:  req.Plan.ID,
		MetadataPriceID: req.Price.PriceID,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail: stripe.String(req.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.Price.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.config.FrontendURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(p.config.FrontendURL + "/pricing"),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	cs, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: cs.ID, URL: cs.URL}, nil
}

func checkoutFromStripe(cs *stripe.CheckoutSession) *CheckoutCompleted {
	out := &CheckoutCompleted{
		SessionID: cs.ID,
		Mode:      string(cs.Mode),
		Metadata:  cs.Metadata,
	}
	if cs.Subscription != nil {
		out.SubscriptionID = cs.Subscription.ID
	}
	if cs.Customer != nil {
		out.CustomerID = cs.Customer.ID
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return out
}

// subscriptionFromStripe always returns a populated change. The error reports
// a status with no local mapping.
func subscriptionFromStripe(sub *stripe.Subscription) (*SubscriptionChange, error) {
	out := &SubscriptionChange{
		SubscriptionID: sub.ID,
		ProviderStatus: string(sub.Status),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	if sub.CurrentPeriodStart > 0 {
		out.PeriodStart = time.Unix(sub.CurrentPeriodStart, 0).UTC()
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		out.PeriodEnd = &end
	}

	status, err := MapStripeStatus(sub.Status)
	out.Status = status
	return out, err
}

func invoiceFromStripe(inv *stripe.Invoice) *InvoiceOutcome {
	out := &InvoiceOutcome{InvoiceID: inv.ID}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	return out
}

// MapStripeStatus folds Stripe's subscription statuses onto the three local
// states.
func MapStripeStatus(s stripe.SubscriptionStatus) (Status, error) {
	switch s {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return StatusActive, nil
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid,
		stripe.SubscriptionStatusIncomplete, stripe.SubscriptionStatusPaused:
		return StatusPastDue, nil
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return StatusCanceled, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}
