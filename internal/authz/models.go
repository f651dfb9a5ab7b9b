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

import "errors"

var (
	ErrAccessDenied  = errors.New("access denied")
	ErrNotMember     = errors.New("user is not a member of the tenant")
	ErrInvalidRole   = errors.New("invalid role")
	ErrUnknownAction = errors.New("unknown action")
)

// Action names an operation that is gated on the caller's tenant role.
type Action string

const (
	ActionTenantView       Action = "tenant:view"
	ActionTenantManage     Action = "tenant:manage"
	ActionMembershipList   Action = "membership:list"
	ActionMembershipAssign Action = "membership:assign"
	ActionMembershipRemove Action = "membership:remove"
)

// minimumRoles maps each action to the lowest role allowed to perform it.
var minimumRoles = map[Action]Role{
	ActionTenantView:       RoleGuest,
	ActionMembershipList:   RoleViewer,
	ActionMembershipAssign: RoleAdmin,
	ActionMembershipRemove: RoleAdmin,
	ActionTenantManage:     RoleOwner,
}

// MinimumRole returns the lowest role allowed to perform action.
func MinimumRole(action Action) (Role, bool) {
	r, ok := minimumRoles[action]
	return r, ok
}

// Can reports whether role satisfies the minimum rank for action.
func Can(role Role, action Action) bool {
	min, ok := minimumRoles[action]
	if !ok {
		return false
	}
	return role.AtLeast(min)
}

// CanGrant reports whether an actor holding actor may set a member's role to
// target when the member currently holds current (empty for a new member).
// Nobody grants above their own rank and only owners touch owner memberships.
func CanGrant(actor, target, current Role) bool {
	if !Can(actor, ActionMembershipAssign) {
		return false
	}
	if target.Rank() > actor.Rank() {
		return false
	}
	if current == RoleOwner && actor != RoleOwner {
		return false
	}
	return true
}
