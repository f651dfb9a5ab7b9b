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

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tenantcore/tenantcore/internal/audit"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/observability/logger"
	"github.com/tenantcore/tenantcore/internal/plan"
)

// CheckoutMetadata is what a completed checkout must carry to provision an
// account.
type CheckoutMetadata struct {
	Email  string
	PlanID string
}

// Service provides account provisioning
type Service struct {
	repo        Repository
	users       identity.UserRepository
	catalog     *plan.Catalog
	auditLogger audit.Logger
}

// NewService creates a new account service
func NewService(repo Repository, users identity.UserRepository, catalog *plan.Catalog, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		catalog:     catalog,
		auditLogger: auditLogger,
	}
}

// OpenForPlan gives email an account sized for planRef. Used at registration.
func (s *Service) OpenForPlan(ctx context.Context, email, planRef string) (*Account, error) {
	p, err := s.catalog.Resolve(ctx, planRef)
	if err != nil {
		return nil, err
	}
	acct, err := s.repo.UpsertForPlan(ctx, email, p.MaxTenants)
	if err != nil {
		return nil, fmt.Errorf("failed to open account: %w", err)
	}
	return acct, nil
}

// ProvisionFromCheckout creates or updates the account named by a completed
// checkout so it reflects the purchased plan's tenant ceiling. Existing usage
// is preserved.
func (s *Service) ProvisionFromCheckout(ctx context.Context, meta CheckoutMetadata) (*Account, *plan.Plan, error) {
	if meta.Email == "" || meta.PlanID == "" {
		return nil, nil, ErrMetadataNotFound
	}

	p, err := s.catalog.Resolve(ctx, meta.PlanID)
	if err != nil {
		slog.ErrorContext(ctx, "checkout references a plan missing from the catalog",
			logger.PlanID(meta.PlanID), logger.Email(meta.Email), logger.Error(err))
		return nil, nil, err
	}

	if _, err := s.users.GetByEmail(ctx, meta.Email); err != nil {
		return nil, nil, fmt.Errorf("checkout for %s: %w", meta.Email, err)
	}

	acct, err := s.repo.UpsertForPlan(ctx, meta.Email, p.MaxTenants)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountProvisioned,
		Resource: "account",
		Metadata: map[string]any{
			"account_id":  acct.ID,
			"email":       acct.UserEmail,
			"plan":        p.Key,
			"max_tenants": acct.MaxTenants,
		},
	})

	return acct, p, nil
}

// GetByEmail returns the account owned by the user with email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return s.repo.GetByUserEmail(ctx, email)
}
