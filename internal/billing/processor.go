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
	"fmt"
	"sort"

	"github.com/tenantcore/tenantcore/internal/plan"
)

// CheckoutRequest asks a provider to start a hosted subscription checkout.
type CheckoutRequest struct {
	Email string
	Plan  *plan.Plan
	Price *plan.Price
}

// CheckoutSession is the provider's answer to a CheckoutRequest.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Processor is one payment provider integration.
type Processor interface {
	// Name is the registry key and the provider value stored on records.
	Name() string

	// Enabled reports whether the provider is usable. Disabled processors
	// stay registered so their key resolves to ErrProviderNotSupported.
	Enabled() bool

	// SignatureHeader names the HTTP header carrying the webhook signature.
	SignatureHeader() string

	// ParseWebhook verifies payload against signature and decodes it. The
	// payload must be the raw request body.
	ParseWebhook(payload []byte, signature string) (*Event, error)

	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// Registry looks processors up by name.
type Registry struct {
	processors map[string]Processor
}

// NewRegistry indexes processors by Name. A later processor with the same
// name replaces an earlier one.
func NewRegistry(processors ...Processor) *Registry {
	r := &Registry{processors: make(map[string]Processor, len(processors))}
	for _, p := range processors {
		r.processors[p.Name()] = p
	}
	return r
}

// Get returns the processor registered under name.
func (r *Registry) Get(name string) (Processor, error) {
	p, ok := r.processors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Enabled returns the processor registered under name, or
// ErrProviderNotSupported when it is registered but disabled.
func (r *Registry) Enabled(name string) (Processor, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if !p.Enabled() {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotSupported, name)
	}
	return p, nil
}

// Names lists the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.processors))
	for n := range r.processors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
