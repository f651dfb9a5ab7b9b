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

package plan

import "time"

// Seed returns the default catalog. The ids match the seed migration so
// in-memory and Postgres deployments hand out the same plan ids.
func Seed() []*Plan {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(planID, key, name string, maxTenants int, priceRowID, priceID string, cents int64) *Plan {
		return &Plan{
			ID:         planID,
			Key:        key,
			Name:       name,
			MaxTenants: maxTenants,
			CreatedAt:  created,
			Prices: []*Price{{
				ID:          priceRowID,
				PlanID:      planID,
				Provider:    "stripe",
				ProductID:   "prod_" + key,
				PriceID:     priceID,
				Interval:    IntervalMonth,
				AmountCents: cents,
				Currency:    "usd",
				Active:      true,
			}},
		}
	}
	return []*Plan{
		mk("0190a000-0000-7000-8000-000000000001", "basic", "Basic", 1,
			"0190a000-0000-7000-8000-000000000101", "price_basic_monthly", 999),
		mk("0190a000-0000-7000-8000-000000000002", "pro", "Pro", 5,
			"0190a000-0000-7000-8000-000000000102", "price_pro_monthly", 2999),
		mk("0190a000-0000-7000-8000-000000000003", "enterprise", "Enterprise", 10,
			"0190a000-0000-7000-8000-000000000103", "price_enterprise_monthly", 9999),
	}
}
