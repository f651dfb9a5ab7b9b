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
	"fmt"
	"strings"
)

// Role is a ranked capability level held by a member of a tenant.
type Role string

// Tenant roles, highest privilege first.
const (
	RoleOwner    Role = "OWNER"
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleAgent    Role = "AGENT"
	RoleReporter Role = "REPORTER"
	RoleViewer   Role = "VIEWER"
	RoleGuest    Role = "GUEST"
)

// roleRanks is the total order over roles. Gaps leave room for new tiers.
var roleRanks = map[Role]int{
	RoleOwner:    70,
	RoleAdmin:    60,
	RoleManager:  50,
	RoleAgent:    40,
	RoleReporter: 30,
	RoleViewer:   20,
	RoleGuest:    10,
}

// Roles returns every role ordered from highest to lowest rank.
func Roles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleManager, RoleAgent, RoleReporter, RoleViewer, RoleGuest}
}

// Rank returns the role's position in the hierarchy, or 0 for an unknown role.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.Rank() >= min.Rank()
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts user input into a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}
