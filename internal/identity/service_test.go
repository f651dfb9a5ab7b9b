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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantcore/tenantcore/internal/audit"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a simple in-memory implementation of UserRepository
type MockUserRepository struct {
	users   map[string]*User
	failGet error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*User)}
}

func (m *MockUserRepository) Create(ctx context.Context, user *User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrUserAlreadyExists
		}
	}
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	if m.failGet != nil {
		return nil, m.failGet
	}
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func newTestService() (*Service, *MockUserRepository) {
	repo := NewMockUserRepository()
	return NewService(repo, NewPasswordHasher(bcrypt.MinCost), audit.NewSlogLogger()), repo
}

// TestPurpose: Validates registration hashes the password and never returns it.
// Scope: Unit Test
// Security: Credential storage (CWE-256), sensitive data exposure
// Expected: Stored user holds a bcrypt hash; returned user has an empty hash.
// Test Case ID: IDN-01
func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	user, err := svc.Register(ctx, "alice@example.com", " Alice ", "s3cret-password")
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, "Alice", user.Name)
	assert.True(t, user.IsActive)
	assert.NotEmpty(t, user.ID)

	stored := repo.users[user.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cret-password", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-password")))
}

// TestPurpose: Validates that an existing email blocks registration.
// Scope: Unit Test
// Security: Account takeover prevention
// Expected: Second registration with the same email fails with ErrUserAlreadyExists and leaves one record.
// Test Case ID: IDN-02
func TestService_Register_Conflict(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	_, err := svc.Register(ctx, "alice@example.com", "Alice", "password-1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "Mallory", "password-2")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	assert.Len(t, repo.users, 1)

	_, err = svc.Register(ctx, "not-an-email", "x", "password-3")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

// TestPurpose: Validates credential checks return a uniform negative outcome.
// Scope: Unit Test
// Security: Authentication (CWE-287), user enumeration (CWE-204)
// Expected: Unknown email, wrong password and missing hash all yield ok=false with no error.
// Test Case ID: IDN-03
func TestService_ValidateCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, "alice@example.com", "Alice", "right-password")
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, "admin", "nopass@example.com", "No Pass")
	require.NoError(t, err)

	user, ok, err := svc.ValidateCredentials(ctx, "alice@example.com", "right-password")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", user.Email)

	for _, tc := range []struct{ email, password string }{
		{"alice@example.com", "wrong-password"},
		{"nobody@example.com", "right-password"},
		{"nopass@example.com", ""},
	} {
		user, ok, err := svc.ValidateCredentials(ctx, tc.email, tc.password)
		assert.NoError(t, err, tc.email)
		assert.False(t, ok, tc.email)
		assert.Nil(t, user, tc.email)
	}
}

// TestPurpose: Validates that repository failures are not reported as bad credentials.
// Scope: Unit Test
// Security: Error classification
// Expected: An infrastructure error propagates as an error, not ok=false.
// Test Case ID: IDN-04
func TestService_ValidateCredentials_InfrastructureError(t *testing.T) {
	svc, repo := newTestService()
	down := errors.New("connection refused")
	repo.failGet = down

	_, ok, err := svc.ValidateCredentials(context.Background(), "alice@example.com", "pw")
	assert.False(t, ok)
	assert.ErrorIs(t, err, down)
}

// TestPurpose: Validates profile lookup and activation toggling.
// Scope: Unit Test
// Security: Sensitive data exposure, account deactivation
// Expected: FindProfile strips the hash; SetActive flips the stored flag.
// Test Case ID: IDN-05
func TestService_FindProfileAndSetActive(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	registered, err := svc.Register(ctx, "alice@example.com", "Alice", "password")
	require.NoError(t, err)

	profile, err := svc.FindProfile(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, profile.PasswordHash)
	assert.Equal(t, registered.ID, profile.ID)

	_, err = svc.FindProfile(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, svc.SetActive(ctx, "admin", registered.ID, false))
	assert.False(t, repo.users[registered.ID].IsActive)

	assert.ErrorIs(t, svc.SetActive(ctx, "admin", "missing", true), ErrUserNotFound)
}

// TestPurpose: Validates the bcrypt hasher edge cases.
// Scope: Unit Test
// Security: Password hashing (CWE-916)
// Expected: Out-of-range cost falls back to the default; passwords over 72 bytes are rejected as weak.
// Test Case ID: IDN-06
func TestPasswordHasher(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(99).cost)

	h := NewPasswordHasher(bcrypt.MinCost)
	_, err := h.Hash(string(make([]byte, 73)))
	assert.ErrorIs(t, err, ErrWeakPassword)

	ok, err := h.Verify("pw", "not-a-bcrypt-hash")
	assert.False(t, ok)
	assert.Error(t, err)
}
