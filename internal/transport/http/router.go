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
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tenantcore/tenantcore/internal/auth"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Route declares one API endpoint. Auth names the strategy that must
// authenticate the request; an empty Auth marks the route public.
type Route struct {
	Method  string
	Pattern string
	Auth    string
	Handler http.HandlerFunc
}

// Routes returns the API route table mounted under /api/v1.
func (h *Handler) Routes() []Route {
	return []Route{
		{http.MethodPost, "/auth/register", "", h.Register},
		{http.MethodPost, "/auth/signin", auth.StrategyLocal, h.SignIn},
		{http.MethodPost, "/auth/refresh", auth.StrategyBearer, h.Refresh},
		{http.MethodGet, "/auth/me", auth.StrategyBearer, h.GetCurrentUser},

		{http.MethodPost, "/users", auth.StrategyBearer, h.CreateUser},
		{http.MethodGet, "/users/profile", auth.StrategyBearer, h.FindProfile},

		{http.MethodGet, "/plans", "", h.ListPlans},
		{http.MethodGet, "/account", auth.StrategyBearer, h.GetAccount},
		{http.MethodPost, "/billing/checkout", auth.StrategyBearer, h.CreateCheckoutSession},
		{http.MethodPost, "/webhooks/{provider}", "", h.Webhook},

		{http.MethodGet, "/tenants", auth.StrategyBearer, h.ListTenants},
		{http.MethodPost, "/tenants", auth.StrategyBearer, h.CreateTenant},
		{http.MethodGet, "/tenants/{tenantID}", auth.StrategyBearer, h.GetTenant},
		{http.MethodGet, "/tenants/{tenantID}/members", auth.StrategyBearer, h.ListMembers},
		{http.MethodPut, "/tenants/{tenantID}/members/{userID}", auth.StrategyBearer, h.AssignMember},
		{http.MethodDelete, "/tenants/{tenantID}/members/{userID}", auth.StrategyBearer, h.RemoveMember},
	}
}

// NewRouter creates a new HTTP router. Every route's strategy is resolved
// here, so an unknown strategy name fails at startup rather than per request.
func NewRouter(h *Handler, rateLimiter *RateLimiter, requestTimeout time.Duration) (*chi.Mux, error) {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if rateLimiter != nil {
		r.Use(RateLimitMiddleware(rateLimiter))
	}
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", h.HealthCheck)
	r.Get("/swagger/doc.json", h.OpenAPIDoc)

	var mountErr error
	r.Route("/api/v1", func(api chi.Router) {
		for _, route := range h.Routes() {
			if route.Auth == "" {
				api.Method(route.Method, route.Pattern, route.Handler)
				continue
			}
			strategy, err := h.strategies.Lookup(route.Auth)
			if err != nil {
				mountErr = fmt.Errorf("route %s %s: %w", route.Method, route.Pattern, err)
				return
			}
			api.With(h.Authenticate(strategy)).Method(route.Method, route.Pattern, route.Handler)
		}
	})
	if mountErr != nil {
		return nil, mountErr
	}

	return r, nil
}
