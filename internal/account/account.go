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

// Package account tracks the billing-capable entity owned by a user and its
// tenant quota.
package account

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrQuotaExceeded    = errors.New("tenant quota exceeded")
	ErrMetadataNotFound = errors.New("checkout metadata not found")
)

// Account belongs to exactly one user, keyed by the user's email.
type Account struct {
	ID          string    `json:"id"`
	UserEmail   string    `json:"user_email"`
	MaxTenants  int       `json:"max_tenants"`
	TenantsUsed int       `json:"tenants_used"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Remaining returns how many more tenants the account may create.
func (a *Account) Remaining() int {
	if a.TenantsUsed >= a.MaxTenants {
		return 0
	}
	return a.MaxTenants - a.TenantsUsed
}

// Repository defines the interface for account persistence
type Repository interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByUserEmail(ctx context.Context, email string) (*Account, error)

	// UpsertForPlan creates the account for email with maxTenants and no
	// usage, or updates only maxTenants when it already exists.
	UpsertForPlan(ctx context.Context, email string, maxTenants int) (*Account, error)

	// ConsumeTenantSlot increments tenantsUsed only while it is below
	// maxTenants; otherwise it returns ErrQuotaExceeded and changes nothing.
	ConsumeTenantSlot(ctx context.Context, accountID string) error
}
