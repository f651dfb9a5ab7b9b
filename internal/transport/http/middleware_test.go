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

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/authz"
	"github.com/tenantcore/tenantcore/internal/tenant"
)

// TestPurpose: Validates per-client token buckets in the rate limiter middleware.
// Scope: Unit Test
// Security: Abuse throttling (CWE-770)
// Expected: A client exceeding its burst gets 429 while another client is unaffected.
// Test Case ID: RL-01
func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.2:1000"))
}

// TestPurpose: Validates that idle clients are evicted from the limiter.
// Scope: Unit Test
// Security: Bounded memory under drive-by traffic
// Expected: Clients unseen for longer than the idle TTL are removed; recent ones stay.
// Test Case ID: RL-02
func TestRateLimiter_EvictIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, 10)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(rl.idleTTL + time.Second)
	rl.Allow("fresh")
	rl.evictIdle()

	assert.NotContains(t, rl.clients, "old")
	assert.Contains(t, rl.clients, "fresh")
}

// TestPurpose: Validates the domain error to HTTP status taxonomy.
// Scope: Unit Test
// Security: No internal detail leaks on unexpected errors
// Expected: Wrapped sentinels keep their status; unknown errors answer a generic 500.
// Test Case ID: ERR-01
func TestRespondDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{fmt.Errorf("create: %w", account.ErrQuotaExceeded), http.StatusConflict, account.ErrQuotaExceeded.Error()},
		{tenant.ErrTenantNotFound, http.StatusNotFound, tenant.ErrTenantNotFound.Error()},
		{authz.ErrNotMember, http.StatusForbidden, msgAccessDenied},
		{fmt.Errorf("%w: %q", authz.ErrInvalidRole, "x"), http.StatusBadRequest, authz.ErrInvalidRole.Error()},
		{errors.New("connection refused to 10.0.0.5"), http.StatusInternalServerError, msgInternal},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		respondDomainError(rec, req, c.err)
		assert.Equal(t, c.status, rec.Code, c.err.Error())
		assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, c.body), rec.Body.String())
	}
}

// TestPurpose: Validates client address extraction for rate limiting.
// Scope: Unit Test
// Security: N/A
// Expected: The first forwarded hop wins; otherwise the RemoteAddr host without port.
// Test Case ID: RL-03
func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}
