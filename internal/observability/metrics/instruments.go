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

package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments are the domain counters recorded by the services. A nil
// *Instruments is valid and records nothing.
type Instruments struct {
	webhookEvents   metric.Int64Counter
	webhookDuration metric.Float64Histogram
	signIns         metric.Int64Counter
	registrations   metric.Int64Counter
	tenantsCreated  metric.Int64Counter
}

// NewInstruments registers every domain instrument on m.
func NewInstruments(m *Meter) (*Instruments, error) {
	var (
		i   Instruments
		err error
	)
	if i.webhookEvents, err = m.CreateCounter("billing.webhook.events", "Webhook deliveries by provider, type and outcome"); err != nil {
		return nil, err
	}
	if i.webhookDuration, err = m.CreateHistogram("billing.webhook.duration", "Time spent applying a webhook delivery", "ms"); err != nil {
		return nil, err
	}
	if i.signIns, err = m.CreateCounter("auth.signins", "Sign-in attempts by outcome"); err != nil {
		return nil, err
	}
	if i.registrations, err = m.CreateCounter("auth.registrations", "Completed user registrations"); err != nil {
		return nil, err
	}
	if i.tenantsCreated, err = m.CreateCounter("tenant.created", "Tenants created"); err != nil {
		return nil, err
	}
	return &i, nil
}

// RecordWebhook counts one webhook delivery and how long it took.
func (i *Instruments) RecordWebhook(ctx context.Context, provider, eventType, outcome string, elapsed time.Duration) {
	if i == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("event_type", eventType),
		attribute.String("outcome", outcome),
	)
	i.webhookEvents.Add(ctx, 1, attrs)
	i.webhookDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

// RecordSignIn counts a sign-in attempt.
func (i *Instruments) RecordSignIn(ctx context.Context, outcome string) {
	if i == nil {
		return
	}
	i.signIns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordRegistration counts a completed registration.
func (i *Instruments) RecordRegistration(ctx context.Context) {
	if i == nil {
		return
	}
	i.registrations.Add(ctx, 1)
}

// RecordTenantCreated counts a created tenant.
func (i *Instruments) RecordTenantCreated(ctx context.Context) {
	if i == nil {
		return
	}
	i.tenantsCreated.Add(ctx, 1)
}
