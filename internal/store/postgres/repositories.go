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

package postgres

import (
	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/billing"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/plan"
	"github.com/tenantcore/tenantcore/internal/store"
	"github.com/tenantcore/tenantcore/internal/tenant"
)

var (
	_ store.Transactor               = (*DB)(nil)
	_ identity.UserRepository        = (*UserRepository)(nil)
	_ account.Repository             = (*AccountRepository)(nil)
	_ plan.Repository                = (*PlanRepository)(nil)
	_ billing.SubscriptionRepository = (*SubscriptionRepository)(nil)
	_ billing.EventRepository        = (*EventRepository)(nil)
	_ tenant.Repository              = (*TenantRepository)(nil)
	_ tenant.MembershipRepository    = (*MembershipRepository)(nil)
)
