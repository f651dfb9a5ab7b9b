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

package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/audit"
	"github.com/tenantcore/tenantcore/internal/authz"
	"github.com/tenantcore/tenantcore/internal/id"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/observability/logger"
	"github.com/tenantcore/tenantcore/internal/observability/metrics"
	"github.com/tenantcore/tenantcore/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/tenantcore/tenantcore/internal/tenant")

// Service provides tenant management business logic
type Service struct {
	repo             Repository
	memberships      MembershipRepository
	accounts         account.Repository
	users            identity.UserRepository
	authz            *authz.Service
	tx               store.Transactor
	auditLogger      audit.Logger
	instruments      *metrics.Instruments
	defaultSeatLimit int
}

// Options carries the optional collaborators and defaults of Service.
type Options struct {
	DefaultSeatLimit int
	Instruments      *metrics.Instruments
}

// NewService creates a new tenant service
func NewService(
	repo Repository,
	memberships MembershipRepository,
	accounts account.Repository,
	users identity.UserRepository,
	authzService *authz.Service,
	tx store.Transactor,
	auditLogger audit.Logger,
	opts Options,
) *Service {
	if opts.DefaultSeatLimit < 1 {
		opts.DefaultSeatLimit = 10
	}
	return &Service{
		repo:             repo,
		memberships:      memberships,
		accounts:         accounts,
		users:            users,
		authz:            authzService,
		tx:               tx,
		auditLogger:      auditLogger,
		instruments:      opts.Instruments,
		defaultSeatLimit: opts.DefaultSeatLimit,
	}
}

// CreateTenantInput describes a tenant to create on behalf of its owner.
type CreateTenantInput struct {
	OwnerUserID  string
	OwnerEmail   string
	Name         string
	ContactEmail string
	SeatLimit    int
}

// CreateTenant creates a tenant under the owner's account. Consuming a unit of
// the account quota, inserting the tenant and inserting the OWNER membership
// happen in one transaction; any failure leaves no trace.
func (s *Service) CreateTenant(ctx context.Context, in CreateTenantInput) (*Tenant, *Membership, error) {
	ctx, span := tracer.Start(ctx, "tenant.CreateTenant")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	slug := Slugify(name)
	if slug == "" {
		return nil, nil, ErrInvalidTenantName
	}

	seatLimit := in.SeatLimit
	if seatLimit == 0 {
		seatLimit = s.defaultSeatLimit
	}
	if seatLimit < 1 {
		return nil, nil, ErrInvalidSeatLimit
	}

	contact := strings.TrimSpace(in.ContactEmail)
	if contact == "" {
		contact = in.OwnerEmail
	}

	var (
		t *Tenant
		m *Membership
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		acct, err := s.accounts.GetByUserEmail(ctx, in.OwnerEmail)
		if err != nil {
			return err
		}
		if err := s.accounts.ConsumeTenantSlot(ctx, acct.ID); err != nil {
			return err
		}

		now := time.Now().UTC()
		t = &Tenant{
			ID:           id.NewUUIDv7(),
			AccountID:    acct.ID,
			Name:         name,
			Slug:         slug,
			ContactEmail: contact,
			IsActive:     true,
			SeatLimit:    seatLimit,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.repo.Create(ctx, t); err != nil {
			return err
		}

		if err := s.repo.ConsumeSeat(ctx, t.ID); err != nil {
			return err
		}
		t.SeatUsed = 1

		m = &Membership{
			ID:       id.NewUUIDv7(),
			TenantID: t.ID,
			UserID:   in.OwnerUserID,
			Role:     authz.RoleOwner,
			JoinedAt: now,
		}
		return s.memberships.Create(ctx, m)
	})
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	span.SetAttributes(attribute.String("tenant.id", t.ID), attribute.String("tenant.slug", t.Slug))
	s.instruments.RecordTenantCreated(ctx)
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: t.ID,
		ActorID:  in.OwnerUserID,
		Resource: "tenant",
		Metadata: map[string]any{"slug": t.Slug, "account_id": t.AccountID, "seat_limit": t.SeatLimit},
	})
	slog.InfoContext(ctx, "tenant created", logger.TenantID(t.ID), logger.AccountID(t.AccountID), logger.UserID(in.OwnerUserID))

	return t, m, nil
}

// AssignMembershipInput names the member, tenant and role to set.
type AssignMembershipInput struct {
	ActorUserID string
	TenantID    string
	UserID      string
	Role        authz.Role
}

// AssignMembership sets userID's role in a tenant, creating the membership
// (and consuming a seat) when absent and updating the role otherwise. The
// actor must be allowed to grant the role.
func (s *Service) AssignMembership(ctx context.Context, in AssignMembershipInput) (*Membership, error) {
	ctx, span := tracer.Start(ctx, "tenant.AssignMembership", trace.WithAttributes(attribute.String("tenant.id", in.TenantID)))
	defer span.End()

	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", authz.ErrInvalidRole, in.Role)
	}

	var (
		result  *Membership
		created bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		actorRole, err := s.authz.Authorize(ctx, in.ActorUserID, in.TenantID, authz.ActionMembershipAssign)
		if err != nil {
			return err
		}

		existing, err := s.memberships.Get(ctx, in.TenantID, in.UserID)
		if err != nil && !errors.Is(err, ErrMembershipNotFound) {
			return err
		}

		var current authz.Role
		if existing != nil {
			current = existing.Role
		}
		if !authz.CanGrant(actorRole, in.Role, current) {
			return authz.ErrAccessDenied
		}

		if existing != nil {
			if existing.Role == in.Role {
				result = existing
				return nil
			}
			if existing.Role == authz.RoleOwner {
				if err := s.ensureAnotherOwner(ctx, in.TenantID); err != nil {
					return err
				}
			}
			if err := s.memberships.UpdateRole(ctx, in.TenantID, in.UserID, in.Role); err != nil {
				return err
			}
			existing.Role = in.Role
			result = existing
			return nil
		}

		if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
			return err
		}
		if err := s.repo.ConsumeSeat(ctx, in.TenantID); err != nil {
			return err
		}
		result = &Membership{
			ID:       id.NewUUIDv7(),
			TenantID: in.TenantID,
			UserID:   in.UserID,
			Role:     in.Role,
			JoinedAt: time.Now().UTC(),
		}
		created = true
		return s.memberships.Create(ctx, result)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMembershipAssigned,
		TenantID: in.TenantID,
		ActorID:  in.ActorUserID,
		Resource: string(in.Role),
		Metadata: map[string]any{"user_id": in.UserID, "created": created},
	})

	return result, nil
}

// RemoveMembership deletes a membership and frees its seat. The last owner of
// a tenant cannot be removed.
func (s *Service) RemoveMembership(ctx context.Context, actorUserID, tenantID, userID string) error {
	ctx, span := tracer.Start(ctx, "tenant.RemoveMembership", trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer span.End()

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		actorRole, err := s.authz.Authorize(ctx, actorUserID, tenantID, authz.ActionMembershipRemove)
		if err != nil {
			return err
		}

		existing, err := s.memberships.Get(ctx, tenantID, userID)
		if err != nil {
			return err
		}
		if existing.Role.Rank() > actorRole.Rank() {
			return authz.ErrAccessDenied
		}
		if existing.Role == authz.RoleOwner {
			if err := s.ensureAnotherOwner(ctx, tenantID); err != nil {
				return err
			}
		}

		if err := s.memberships.Delete(ctx, tenantID, userID); err != nil {
			return err
		}
		return s.repo.ReleaseSeat(ctx, tenantID)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMembershipRemoved,
		TenantID: tenantID,
		ActorID:  actorUserID,
		Resource: "membership",
		Metadata: map[string]any{"user_id": userID},
	})
	return nil
}

func (s *Service) ensureAnotherOwner(ctx context.Context, tenantID string) error {
	owners, err := s.memberships.CountByRole(ctx, tenantID, authz.RoleOwner)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return ErrLastOwner
	}
	return nil
}

// GetTenant returns a tenant the actor belongs to.
func (s *Service) GetTenant(ctx context.Context, actorUserID, tenantID string) (*Tenant, error) {
	if _, err := s.authz.Authorize(ctx, actorUserID, tenantID, authz.ActionTenantView); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tenantID)
}

// ListMemberships returns the roster of a tenant the actor may view.
func (s *Service) ListMemberships(ctx context.Context, actorUserID, tenantID string) ([]*Membership, error) {
	if _, err := s.authz.Authorize(ctx, actorUserID, tenantID, authz.ActionMembershipList); err != nil {
		return nil, err
	}
	return s.memberships.ListByTenant(ctx, tenantID)
}

// MembershipsForUser returns every membership held by userID.
func (s *Service) MembershipsForUser(ctx context.Context, userID string) ([]*Membership, error) {
	return s.memberships.ListByUser(ctx, userID)
}

// TenantsForUser returns the tenants userID belongs to.
func (s *Service) TenantsForUser(ctx context.Context, userID string) ([]*Tenant, error) {
	ids, err := s.TenantIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*Tenant{}, nil
	}
	return s.repo.ListByIDs(ctx, ids)
}

// TenantIDsForUser returns the ids of the tenants userID belongs to. It is
// never nil.
func (s *Service) TenantIDsForUser(ctx context.Context, userID string) ([]string, error) {
	ms, err := s.memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.TenantID)
	}
	return ids, nil
}
