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

package authz

import (
	"context"
	"fmt"
)

// MembershipLookup resolves the role a user holds in a tenant.
type MembershipLookup interface {
	RoleOf(ctx context.Context, tenantID, userID string) (Role, bool, error)
}

// Service answers tenant-scoped authorization questions
type Service struct {
	memberships MembershipLookup
}

// NewService creates a new authorization service
func NewService(memberships MembershipLookup) *Service {
	return &Service{memberships: memberships}
}

// Authorize checks that userID may perform action inside tenantID and returns
// the caller's role. A non-member gets ErrNotMember; an insufficient role gets
// ErrAccessDenied together with the role that was found.
func (s *Service) Authorize(ctx context.Context, userID, tenantID string, action Action) (Role, error) {
	min, ok := MinimumRole(action)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	role, found, err := s.memberships.RoleOf(ctx, tenantID, userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve membership: %w", err)
	}
	if !found {
		return "", ErrNotMember
	}
	if !role.AtLeast(min) {
		return role, ErrAccessDenied
	}
	return role, nil
}
