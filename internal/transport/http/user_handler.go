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
	"strings"
)

// CreateUserRequest represents user provisioning data
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email" example:"bob@example.com"`
	Name  string `json:"name" validate:"max=200" example:"Bob"`
}

// CreateUser provisions a user without credentials
// @Summary Create User
// @Description Create a user with no password; the user cannot sign in until one is set
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User Data"
// @Success 201 {object} identity.User
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /users [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.identityService.CreateUser(r.Context(), GetUserID(r.Context()), req.Email, req.Name)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// FindProfile looks a user up by email
// @Summary Find Profile
// @Description Return the profile registered under an email address
// @Tags User
// @Produce json
// @Security BearerAuth
// @Param email query string true "Email"
// @Success 200 {object} identity.User
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /users/profile [get]
func (h *Handler) FindProfile(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := h.identityService.FindProfile(r.Context(), email)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
