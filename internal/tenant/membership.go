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
	"errors"
	"time"

	"github.com/tenantcore/tenantcore/internal/authz"
)

var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrMembershipExists   = errors.New("membership already exists")
	ErrLastOwner          = errors.New("tenant must keep at least one owner")
)

// Membership binds one user to one tenant with a single role.
type Membership struct {
	ID       string     `json:"id"`
	TenantID string     `json:"tenant_id"`
	UserID   string     `json:"user_id"`
	Role     authz.Role `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}
