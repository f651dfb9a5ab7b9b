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

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tenantcore/tenantcore/internal/audit"
	"github.com/tenantcore/tenantcore/internal/id"
	"github.com/tenantcore/tenantcore/internal/observability/logger"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for new password hashes.
const DefaultBcryptCost = 12

// PasswordHasher handles password hashing using bcrypt
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a bcrypt hasher. Costs outside bcrypt's range
// fall back to DefaultBcryptCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash hashes a password
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrWeakPassword
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares password with a stored hash in constant time. A mismatch is
// (false, nil); a malformed hash is an error.
func (h *PasswordHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to verify password: %w", err)
	}
}

// Service provides identity-related business logic
type Service struct {
	repo        UserRepository
	hasher      *PasswordHasher
	auditLogger audit.Logger
}

// NewService creates a new identity service
func NewService(repo UserRepository, hasher *PasswordHasher, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		auditLogger: auditLogger,
	}
}

// Register creates a user with a password. Password length policy is enforced
// by the caller. The returned user carries no password hash.
func (s *Service) Register(ctx context.Context, email, name, password string) (*User, error) {
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.create(ctx, email, name, hash)
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserRegistered,
		ActorID:  user.ID,
		Resource: "user",
		Metadata: map[string]any{"email": user.Email},
	})

	return user.Sanitized(), nil
}

// CreateUser provisions a user without a password. Such a user cannot sign in
// until credentials are set.
func (s *Service) CreateUser(ctx context.Context, actorID, email, name string) (*User, error) {
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	user, err := s.create(ctx, email, name, "")
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		ActorID:  actorID,
		Resource: "user",
		Metadata: map[string]any{"user_id": user.ID, "email": user.Email},
	})

	return user.Sanitized(), nil
}

func (s *Service) create(ctx context.Context, email, name, hash string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:           id.NewUUIDv7(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ValidateCredentials looks up email and checks password against the stored
// hash. ok is false for an unknown email, a missing hash or a wrong password;
// err is reserved for infrastructure failures. The returned record still
// carries its hash and active flag for the caller to inspect.
func (s *Service) ValidateCredentials(ctx context.Context, email, password string) (user *User, ok bool, err error) {
	user, err = s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.HasPassword() {
		return nil, false, nil
	}

	match, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		slog.ErrorContext(ctx, "stored password hash is unusable", logger.UserID(user.ID), logger.Error(err))
		return nil, false, err
	}
	if !match {
		return nil, false, nil
	}
	return user, true, nil
}

// FindProfile returns the user registered under email, without credentials.
func (s *Service) FindProfile(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// GetUser returns the user with the given id, without credentials.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// SetActive enables or disables authentication for a user without deleting it.
func (s *Service) SetActive(ctx context.Context, actorID, userID string, active bool) error {
	if err := s.repo.SetActive(ctx, userID, active); err != nil {
		return err
	}

	eventType := audit.TypeUserDeactivated
	if active {
		eventType = audit.TypeUserActivated
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		ActorID:  actorID,
		Resource: "user",
		Metadata: map[string]any{"user_id": userID},
	})
	return nil
}

func isValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && at < len(email)-1
}
