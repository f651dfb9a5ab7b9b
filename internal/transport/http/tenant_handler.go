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
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tenantcore/tenantcore/internal/authz"
	"github.com/tenantcore/tenantcore/internal/tenant"
)

// CreateTenantRequest represents tenant creation data
type CreateTenantRequest struct {
	Name         string `json:"name" validate:"required,max=200" example:"Acme Corp"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email" example:"ops@acme.test"`
	SeatLimit    int    `json:"seat_limit" validate:"omitempty,min=1" example:"10"`
}

// CreateTenantResponse carries the tenant and the caller's OWNER membership.
type CreateTenantResponse struct {
	Tenant     *tenant.Tenant     `json:"tenant"`
	Membership *tenant.Membership `json:"membership"`
}

// CreateTenant handles tenant creation
// @Summary Create Tenant
// @Description Create a tenant under the caller's account; the caller becomes its OWNER
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTenantRequest true "Tenant Data"
// @Success 201 {object} CreateTenantResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants [post]
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := GetPrincipal(r.Context())
	t, m, err := h.tenantService.CreateTenant(r.Context(), tenant.CreateTenantInput{
		OwnerUserID:  p.UserID,
		OwnerEmail:   p.Email,
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		SeatLimit:    req.SeatLimit,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, CreateTenantResponse{Tenant: t, Membership: m})
}

// ListTenants lists the caller's tenants
// @Summary List Tenants
// @Description List the tenants the caller is a member of
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Success 200 {array} tenant.Tenant
// @Router /tenants [get]
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenantService.TenantsForUser(r.Context(), GetUserID(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tenants)
}

// GetTenant returns one tenant
// @Summary Get Tenant
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} tenant.Tenant
// @Failure 403 {object} map[string]string
// @Router /tenants/{tenantID} [get]
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenantService.GetTenant(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// ListMembers returns the tenant roster
// @Summary List Members
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {array} tenant.Membership
// @Failure 403 {object} map[string]string
// @Router /tenants/{tenantID}/members [get]
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.tenantService.ListMemberships(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

// AssignMemberRequest represents role assignment data
type AssignMemberRequest struct {
	Role string `json:"role" validate:"required,role" example:"VIEWER"`
}

// AssignMember adds a member or changes their role
// @Summary Assign Member
// @Description Add a user to the tenant or change the role they hold
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param userID path string true "User ID"
// @Param request body AssignMemberRequest true "Role Data"
// @Success 200 {object} tenant.Membership
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants/{tenantID}/members/{userID} [put]
func (h *Handler) AssignMember(w http.ResponseWriter, r *http.Request) {
	var req AssignMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	m, err := h.tenantService.AssignMembership(r.Context(), tenant.AssignMembershipInput{
		ActorUserID: GetUserID(r.Context()),
		TenantID:    chi.URLParam(r, "tenantID"),
		UserID:      chi.URLParam(r, "userID"),
		Role:        role,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// RemoveMember removes a member from the tenant
// @Summary Remove Member
// @Tags Tenant
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param userID path string true "User ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants/{tenantID}/members/{userID} [delete]
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.tenantService.RemoveMembership(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "tenantID"), chi.URLParam(r, "userID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
