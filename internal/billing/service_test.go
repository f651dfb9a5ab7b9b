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

package billing_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/audit"
	"github.com/tenantcore/tenantcore/internal/billing"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/plan"
	"github.com/tenantcore/tenantcore/internal/store/memory"
)

const secret = "whsec_service_test"

type harness struct {
	store   *memory.Store
	service *billing.Service
}

func newHarness(t *testing.T, extra ...billing.Processor) *harness {
	t.Helper()
	s := memory.NewSeeded()
	catalog := plan.NewCatalog(s.Plans())
	accounts := account.NewService(s.Accounts(), s.Users(), catalog, audit.NewSlogLogger())
	processors := append([]billing.Processor{
		billing.NewStripeProcessor(billing.StripeConfig{WebhookSecret: secret}),
		billing.PayPalProcessor{},
	}, extra...)
	svc := billing.NewService(
		billing.NewRegistry(processors...),
		s.Subscriptions(),
		s.BillingEvents(),
		accounts,
		catalog,
		s,
		audit.NewSlogLogger(),
		nil,
	)
	return &harness{store: s, service: svc}
}

func (h *harness) deliver(t *testing.T, id, eventType string, object map[string]any) (*billing.WebhookResult, error) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"created":     time.Now().Unix(),
		"api_version": "2019-01-01",
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret, Timestamp: time.Now()})
	return h.service.HandleWebhook(context.Background(), billing.ProviderStripe, sp.Payload, sp.Header)
}

func checkoutObject(email, planID, subID string) map[string]any {
	return map[string]any{
		"id": "cs_" + subID, "object": "checkout.session", "mode": "subscription",
		"subscription": subID, "customer": "cus_1",
		"metadata": map[string]string{"email": email, "planId": planID},
	}
}

func subscriptionObject(subID, status string) map[string]any {
	return map[string]any{"id": subID, "object": "subscription", "status": status, "customer": "cus_1"}
}

func (h *harness) user(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, h.store.Users().Create(context.Background(), &identity.User{Email: email, IsActive: true}))
}

// TestPurpose: Validates the checkout-to-cancellation lifecycle driven by webhooks.
// Scope: Unit Test
// Security: Entitlement integrity
// Expected: Checkout with planId "pro" sizes the account to 5 tenants; deletion cancels the same subscription row.
// Test Case ID: BLS-01
func TestHandleWebhook_CheckoutThenDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.user(t, "buyer@example.com")

	res, err := h.deliver(t, "evt_1", "checkout.session.completed", checkoutObject("buyer@example.com", "pro", "sub_1"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	acct, err := h.store.Accounts().GetByUserEmail(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, 5, acct.MaxTenants)

	sub, err := h.store.Subscriptions().GetByProviderID(ctx, "stripe", "sub_1")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, sub.Status)
	assert.Equal(t, acct.ID, sub.AccountID)
	assert.Equal(t, "price_pro_monthly", sub.PriceID)

	_, err = h.deliver(t, "evt_2", "customer.subscription.deleted", subscriptionObject("sub_1", "canceled"))
	require.NoError(t, err)

	subs, err := h.store.Subscriptions().ListByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, billing.StatusCanceled, subs[0].Status)

	events := h.store.BillingEvents().List(ctx)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, acct.ID, e.AccountID)
		assert.Equal(t, sub.ID, e.SubscriptionID)
	}
}

// TestPurpose: Validates idempotent processing of redelivered webhooks.
// Scope: Unit Test
// Security: Replay protection
// Expected: The second delivery of an event id reports success as a duplicate and writes nothing.
// Test Case ID: BLS-02
func TestHandleWebhook_DuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.user(t, "buyer@example.com")
	obj := checkoutObject("buyer@example.com", "pro", "sub_1")

	first, err := h.deliver(t, "evt_dup", "checkout.session.completed", obj)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := h.deliver(t, "evt_dup", "checkout.session.completed", obj)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, "evt_dup", second.EventID)

	assert.Len(t, h.store.BillingEvents().List(ctx), 1)
	acct, err := h.store.Accounts().GetByUserEmail(ctx, "buyer@example.com")
	require.NoError(t, err)
	subs, err := h.store.Subscriptions().ListByAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

// TestPurpose: Validates that failed deliveries leave no trace so provider retries start clean.
// Scope: Unit Test
// Security: Payload integrity, at-least-once delivery
// Expected: Missing metadata, unknown plan, unknown user and update-before-create fail and record no event.
// Test Case ID: BLS-03
func TestHandleWebhook_FailuresRollBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.user(t, "buyer@example.com")

	noMeta := checkoutObject("", "", "sub_1")
	noMeta["metadata"] = map[string]string{}
	_, err := h.deliver(t, "evt_a", "checkout.session.completed", noMeta)
	assert.ErrorIs(t, err, account.ErrMetadataNotFound)

	_, err = h.deliver(t, "evt_b", "checkout.session.completed", checkoutObject("buyer@example.com", "platinum", "sub_1"))
	assert.ErrorIs(t, err, plan.ErrPlanNotFound)

	_, err = h.deliver(t, "evt_c", "checkout.session.completed", checkoutObject("ghost@example.com", "pro", "sub_1"))
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	_, err = h.deliver(t, "evt_d", "customer.subscription.updated", subscriptionObject("sub_1", "active"))
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)

	assert.Empty(t, h.store.BillingEvents().List(ctx))
	_, err = h.store.Accounts().GetByUserEmail(ctx, "buyer@example.com")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)

	// The retried checkout succeeds once the data is right.
	_, err = h.deliver(t, "evt_a", "checkout.session.completed", checkoutObject("buyer@example.com", "basic", "sub_1"))
	require.NoError(t, err)
	_, err = h.deliver(t, "evt_d", "customer.subscription.updated", subscriptionObject("sub_1", "trialing"))
	require.NoError(t, err)
}

// TestPurpose: Validates that a subscription checkout without a subscription id is rejected rather than dropped.
// Scope: Unit Test
// Security: Payload integrity, no silently lost purchases
// Expected: Every delivery fails with ErrMalformedEvent and records nothing, so the provider redelivers; one-off payment checkouts are recorded without provisioning.
// Test Case ID: BLS-08
func TestHandleWebhook_CheckoutWithoutSubscriptionID(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.user(t, "dan@example.com")

	missing := checkoutObject("dan@example.com", "pro", "")
	delete(missing, "subscription")
	for _, id := range []string{"evt_a", "evt_b", "evt_a"} {
		_, err := h.deliver(t, id, "checkout.session.completed", missing)
		assert.ErrorIs(t, err, billing.ErrMalformedEvent, id)
	}

	assert.Empty(t, h.store.BillingEvents().List(ctx))
	_, err := h.store.Subscriptions().GetByProviderID(ctx, "stripe", "")
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)
	_, err = h.store.Accounts().GetByUserEmail(ctx, "dan@example.com")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)

	oneOff := checkoutObject("dan@example.com", "pro", "")
	oneOff["mode"] = "payment"
	delete(oneOff, "subscription")
	res, err := h.deliver(t, "evt_c", "checkout.session.completed", oneOff)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	require.Len(t, h.store.BillingEvents().List(ctx), 1)
	_, err = h.store.Accounts().GetByUserEmail(ctx, "dan@example.com")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

// TestPurpose: Validates subscription status transitions from update and invoice events.
// Scope: Unit Test
// Security: Entitlement integrity
// Expected: Failed payment moves ACTIVE to PAST_DUE, success restores ACTIVE, update applies mapped status.
// Test Case ID: BLS-04
func TestHandleWebhook_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.user(t, "buyer@example.com")

	_, err := h.deliver(t, "evt_1", "checkout.session.completed", checkoutObject("buyer@example.com", "basic", "sub_1"))
	require.NoError(t, err)

	status := func() billing.Status {
		sub, err := h.store.Subscriptions().GetByProviderID(ctx, "stripe", "sub_1")
		require.NoError(t, err)
		return sub.Status
	}

	invoice := map[string]any{"id": "in_1", "object": "invoice", "subscription": "sub_1", "customer": "cus_1"}
	_, err = h.deliver(t, "evt_2", "invoice.payment_failed", invoice)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPastDue, status())

	_, err = h.deliver(t, "evt_3", "invoice.payment_succeeded", invoice)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, status())

	_, err = h.deliver(t, "evt_4", "customer.subscription.updated", subscriptionObject("sub_1", "unpaid"))
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPastDue, status())

	_, err = h.deliver(t, "evt_5", "customer.subscription.updated", subscriptionObject("sub_1", "canceled"))
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceled, status())

	_, err = h.deliver(t, "evt_6", "invoice.payment_succeeded", invoice)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceled, status())
}

// TestPurpose: Validates that unhandled events are still recorded for idempotency and audit.
// Scope: Unit Test
// Security: Audit trail completeness
// Expected: Unhandled types and invoices for unknown subscriptions are recorded unlinked.
// Test Case ID: BLS-05
func TestHandleWebhook_RecordsUnlinkedEvents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.deliver(t, "evt_x", "customer.created", map[string]any{"id": "cus_1", "object": "customer"})
	require.NoError(t, err)
	_, err = h.deliver(t, "evt_y", "invoice.payment_failed", map[string]any{"id": "in_1", "object": "invoice", "subscription": "sub_unknown"})
	require.NoError(t, err)

	events := h.store.BillingEvents().List(ctx)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Empty(t, e.AccountID)
		assert.Empty(t, e.SubscriptionID)
		assert.NotEmpty(t, e.Raw)
	}
}

// TestPurpose: Validates provider routing and signature failures at the service boundary.
// Scope: Unit Test
// Security: Webhook authenticity (CWE-345)
// Expected: Unknown providers, unsupported providers and bad signatures are rejected without recording.
// Test Case ID: BLS-06
func TestHandleWebhook_Rejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.service.HandleWebhook(ctx, "square", []byte("{}"), "sig")
	assert.ErrorIs(t, err, billing.ErrUnknownProvider)

	_, err = h.service.HandleWebhook(ctx, billing.ProviderPayPal, []byte("{}"), "sig")
	assert.ErrorIs(t, err, billing.ErrProviderNotSupported)

	_, err = h.service.HandleWebhook(ctx, billing.ProviderStripe, []byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, billing.ErrInvalidSignature)

	assert.Empty(t, h.store.BillingEvents().List(ctx))

	header, err := h.service.SignatureHeader(billing.ProviderStripe)
	require.NoError(t, err)
	assert.Equal(t, "Stripe-Signature", header)
}

type recordingProcessor struct {
	billing.PayPalProcessor
	req billing.CheckoutRequest
}

func (p *recordingProcessor) Name() string { return "recording" }

func (p *recordingProcessor) Enabled() bool { return true }

func (p *recordingProcessor) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	p.req = req
	return &billing.CheckoutSession{ID: "sess_1", URL: "https://pay.example.com/sess_1"}, nil
}

// TestPurpose: Validates checkout session creation against the plan catalog.
// Scope: Unit Test
// Security: N/A
// Expected: The plan's active price for the provider is used; unknown plans and providers without prices fail; a disabled provider is rejected before the catalog is read.
// Test Case ID: BLS-07
func TestCreateCheckoutSession(t *testing.T) {
	ctx := context.Background()
	rec := &recordingProcessor{}
	h := newHarness(t, rec)

	_, err := h.service.CreateCheckoutSession(ctx, "recording", "a@example.com", "pro")
	assert.ErrorIs(t, err, plan.ErrPriceNotFound)

	pl := plan.Seed()[1]
	pl.Prices[0].Provider = "recording"
	h.store.PutPlan(pl)

	session, err := h.service.CreateCheckoutSession(ctx, "recording", "a@example.com", "pro")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/sess_1", session.URL)
	assert.Equal(t, "a@example.com", rec.req.Email)
	assert.Equal(t, "price_pro_monthly", rec.req.Price.PriceID)

	_, err = h.service.CreateCheckoutSession(ctx, "recording", "a@example.com", "platinum")
	assert.ErrorIs(t, err, plan.ErrPlanNotFound)

	_, err = h.service.CreateCheckoutSession(ctx, "square", "a@example.com", "pro")
	assert.ErrorIs(t, err, billing.ErrUnknownProvider)

	_, err = h.service.CreateCheckoutSession(ctx, billing.ProviderPayPal, "a@example.com", "pro")
	assert.ErrorIs(t, err, billing.ErrProviderNotSupported)
	assert.NotErrorIs(t, err, plan.ErrPriceNotFound)
}
