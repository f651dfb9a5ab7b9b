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

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/audit"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/observability/logger"
	"github.com/tenantcore/tenantcore/internal/observability/metrics"
	"github.com/tenantcore/tenantcore/internal/store"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID      string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Memberships []string `json:"memberships"`
}

// MembershipSource lists the tenants a user belongs to.
type MembershipSource interface {
	TenantIDsForUser(ctx context.Context, userID string) ([]string, error)
}

// SignInResult is returned by SignIn and Refresh.
type SignInResult struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	ExpiresIn   int64          `json:"expires_in"`
	User        *identity.User `json:"user"`
}

// Options configures Service.
type Options struct {
	// DefaultPlan is the plan key given to accounts opened at registration.
	DefaultPlan string
	Instruments *metrics.Instruments
}

// Service coordinates registration, credential checks and token issuance
type Service struct {
	identity    *identity.Service
	accounts    *account.Service
	memberships MembershipSource
	tokens      *TokenIssuer
	tx          store.Transactor
	auditLogger audit.Logger
	defaultPlan string
	instruments *metrics.Instruments
}

// NewService creates a new auth service
func NewService(
	identitySvc *identity.Service,
	accounts *account.Service,
	memberships MembershipSource,
	tokens *TokenIssuer,
	tx store.Transactor,
	auditLogger audit.Logger,
	opts Options,
) *Service {
	if opts.DefaultPlan == "" {
		opts.DefaultPlan = "basic"
	}
	return &Service{
		identity:    identitySvc,
		accounts:    accounts,
		memberships: memberships,
		tokens:      tokens,
		tx:          tx,
		auditLogger: auditLogger,
		defaultPlan: opts.DefaultPlan,
		instruments: opts.Instruments,
	}
}

// Tokens returns the issuer used for access tokens.
func (s *Service) Tokens() *TokenIssuer { return s.tokens }

// Register creates the user and its default-plan account together.
func (s *Service) Register(ctx context.Context, email, name, password string) (*identity.User, error) {
	var user *identity.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.identity.Register(ctx, email, name, password)
		if err != nil {
			return err
		}
		if _, err := s.accounts.OpenForPlan(ctx, email, s.defaultPlan); err != nil {
			return fmt.Errorf("failed to open default account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.instruments.RecordRegistration(ctx)
	slog.InfoContext(ctx, "user registered", logger.UserID(user.ID))
	return user, nil
}

// Authenticate checks email and password. Unknown emails, wrong passwords and
// password-less users all yield ErrInvalidCredentials; a deactivated user
// yields ErrAccountInactive.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	user, ok, err := s.identity.ValidateCredentials(ctx, email, password)
	if err != nil {
		s.instruments.RecordSignIn(ctx, "error")
		return nil, err
	}
	if !ok {
		s.instruments.RecordSignIn(ctx, "invalid")
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: "user",
			Metadata: map[string]any{"email": email, "reason": "invalid_credentials"},
		})
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.instruments.RecordSignIn(ctx, "inactive")
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Resource: "user",
			Metadata: map[string]any{"email": email, "reason": "inactive"},
		})
		return nil, ErrAccountInactive
	}

	return &Principal{UserID: user.ID, Email: user.Email, Name: user.Name}, nil
}

// SignIn issues an access token for an authenticated principal. The token
// carries the principal's current tenant memberships.
func (s *Service) SignIn(ctx context.Context, p *Principal) (*SignInResult, error) {
	user, err := s.identity.GetUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	memberships, err := s.memberships.TenantIDsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, memberships)
	if err != nil {
		return nil, err
	}

	s.instruments.RecordSignIn(ctx, "success")
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		ActorID:  user.ID,
		Resource: "user",
		Metadata: map[string]any{"memberships": len(memberships)},
	})

	return &SignInResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User:        user,
	}, nil
}

// Refresh issues a new token for a bearer principal with memberships re-read
// from the store.
func (s *Service) Refresh(ctx context.Context, p *Principal) (*SignInResult, error) {
	res, err := s.SignIn(ctx, p)
	if err != nil {
		return nil, err
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTokenIssued,
		ActorID:  p.UserID,
		Resource: "token",
		Metadata: map[string]any{"grant": "refresh"},
	})
	return res, nil
}

// principalFromClaims resolves verified token claims against the user
// store. A deleted subject is an invalid token; an inactive one is rejected
// with ErrAccountInactive.
func (s *Service) principalFromClaims(ctx context.Context, claims *Claims) (*Principal, error) {
	user, err := s.identity.GetUser(ctx, claims.Subject)
	if errors.Is(err, identity.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return &Principal{UserID: user.ID, Email: user.Email, Name: user.Name, Memberships: claims.Memberships}, nil
}

// Current returns the principal with memberships and profile re-read from
// the store.
func (s *Service) Current(ctx context.Context, p *Principal) (*Principal, error) {
	user, err := s.identity.GetUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	memberships, err := s.memberships.TenantIDsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Principal{UserID: user.ID, Email: user.Email, Name: user.Name, Memberships: memberships}, nil
}
