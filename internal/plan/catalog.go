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

package plan

import (
	"context"
	"errors"
	"fmt"
)

// Catalog resolves plans for checkout and provisioning.
type Catalog struct {
	repo Repository
}

// NewCatalog creates a plan catalog
func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// Resolve finds a plan by its key ("pro") or by its id.
func (c *Catalog) Resolve(ctx context.Context, ref string) (*Plan, error) {
	if ref == "" {
		return nil, ErrPlanNotFound
	}

	p, err := c.repo.GetByKey(ctx, ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrPlanNotFound) {
		return nil, fmt.Errorf("failed to load plan %q: %w", ref, err)
	}

	p, err = c.repo.GetByID(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, ref)
		}
		return nil, fmt.Errorf("failed to load plan %q: %w", ref, err)
	}
	return p, nil
}

// ActivePrice resolves ref and returns its active price for provider.
func (c *Catalog) ActivePrice(ctx context.Context, ref, provider string) (*Plan, *Price, error) {
	p, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	price, ok := p.ActivePrice(provider)
	if !ok {
		return nil, nil, fmt.Errorf("%w: plan %s, provider %s", ErrPriceNotFound, p.Key, provider)
	}
	return p, price, nil
}

// List returns every plan ordered by tenant ceiling.
func (c *Catalog) List(ctx context.Context) ([]*Plan, error) {
	return c.repo.List(ctx)
}
