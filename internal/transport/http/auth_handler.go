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

	"github.com/tenantcore/tenantcore/internal/audit"
)

// RegisterRequest represents registration data
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" example:"alice@example.com"`
	Password string `json:"password" validate:"required,min=8" example:"correct-horse"`
	Name     string `json:"name" validate:"max=200" example:"Alice"`
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a user with a password and an account on the default plan
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration Data"
// @Success 201 {object} identity.User
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeUserRegistered,
		ActorID:   user.ID,
		Resource:  "user",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
		Metadata:  map[string]any{"email": user.Email},
	})

	respondJSON(w, http.StatusCreated, user)
}

// SignIn exchanges credentials for an access token
// @Summary Sign in
// @Description Authenticate with email and password and receive a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body auth.Credentials true "Credentials"
// @Success 200 {object} auth.SignInResult
// @Failure 401 {object} map[string]string
// @Router /auth/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	res, err := h.authService.SignIn(r.Context(), GetPrincipal(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Refresh issues a new token with current memberships
// @Summary Refresh token
// @Description Issue a fresh token whose memberships are re-read from the store
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} auth.SignInResult
// @Failure 401 {object} map[string]string
// @Router /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.authService.Refresh(r.Context(), GetPrincipal(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetCurrentUser returns the current principal
// @Summary Get Current User
// @Description Return the authenticated user with current tenant memberships
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} auth.Principal
// @Failure 401 {object} map[string]string
// @Router /auth/me [get]
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.authService.Current(r.Context(), GetPrincipal(r.Context()))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
