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
	"log/slog"
	"net/http"

	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/auth"
	"github.com/tenantcore/tenantcore/internal/authz"
	"github.com/tenantcore/tenantcore/internal/billing"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/observability/logger"
	"github.com/tenantcore/tenantcore/internal/plan"
	"github.com/tenantcore/tenantcore/internal/tenant"
)

const (
	msgInvalidCredentials = "invalid credentials"
	msgAccessDenied       = "access denied"
	msgInternal           = "internal server error"
)

// errorStatus maps a domain sentinel to its response. An empty message
// reuses the sentinel's text.
type errorStatus struct {
	target  error
	status  int
	message string
}

var errorStatuses = []errorStatus{
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, msgInvalidCredentials},
	{auth.ErrAccountInactive, http.StatusUnauthorized, msgInvalidCredentials},
	{auth.ErrInvalidToken, http.StatusUnauthorized, msgInvalidCredentials},

	{authz.ErrNotMember, http.StatusForbidden, msgAccessDenied},
	{authz.ErrAccessDenied, http.StatusForbidden, msgAccessDenied},

	{identity.ErrUserAlreadyExists, http.StatusConflict, ""},
	{tenant.ErrTenantNameUnavailable, http.StatusConflict, ""},
	{tenant.ErrMembershipExists, http.StatusConflict, ""},
	{account.ErrQuotaExceeded, http.StatusConflict, ""},
	{tenant.ErrSeatLimitReached, http.StatusConflict, ""},
	{tenant.ErrLastOwner, http.StatusConflict, ""},

	{identity.ErrUserNotFound, http.StatusNotFound, ""},
	{account.ErrAccountNotFound, http.StatusNotFound, ""},
	{plan.ErrPlanNotFound, http.StatusNotFound, ""},
	{plan.ErrPriceNotFound, http.StatusNotFound, ""},
	{tenant.ErrTenantNotFound, http.StatusNotFound, ""},
	{tenant.ErrMembershipNotFound, http.StatusNotFound, ""},

	{identity.ErrInvalidEmail, http.StatusBadRequest, ""},
	{identity.ErrWeakPassword, http.StatusBadRequest, ""},
	{authz.ErrInvalidRole, http.StatusBadRequest, ""},
	{tenant.ErrInvalidTenantName, http.StatusBadRequest, ""},
	{tenant.ErrInvalidSeatLimit, http.StatusBadRequest, ""},
	{billing.ErrUnknownProvider, http.StatusBadRequest, ""},
	{billing.ErrProviderNotSupported, http.StatusBadRequest, ""},
}

// respondDomainError writes the status for err. Errors outside the domain
// taxonomy are logged and answered with a generic 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, es := range errorStatuses {
		if errors.Is(err, es.target) {
			msg := es.message
			if msg == "" {
				msg = es.target.Error()
			}
			respondError(w, es.status, msg)
			return
		}
	}

	slog.ErrorContext(r.Context(), "request failed",
		logger.Method(r.Method),
		logger.Path(r.URL.Path),
		logger.Error(err),
	)
	respondError(w, http.StatusInternalServerError, msgInternal)
}
