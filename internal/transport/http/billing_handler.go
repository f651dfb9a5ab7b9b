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
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/billing"
	"github.com/tenantcore/tenantcore/internal/observability/logger"
)

// ListPlans returns the plan catalog
// @Summary List Plans
// @Description List every plan with its provider prices
// @Tags Billing
// @Produce json
// @Success 200 {array} plan.Plan
// @Router /plans [get]
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.catalog.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, plans)
}

// AccountResponse is the caller's account with its subscriptions.
type AccountResponse struct {
	*account.Account
	Remaining     int                     `json:"remaining"`
	Subscriptions []*billing.Subscription `json:"subscriptions"`
}

// GetAccount returns the caller's quota and usage
// @Summary Get Account
// @Description Return the caller's tenant quota, usage and subscriptions
// @Tags Billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccountResponse
// @Failure 404 {object} map[string]string
// @Router /account [get]
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	acct, err := h.accountService.GetByEmail(r.Context(), p.Email)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	subs, err := h.billingService.SubscriptionsForAccount(r.Context(), acct.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, AccountResponse{Account: acct, Remaining: acct.Remaining(), Subscriptions: subs})
}

// CheckoutRequest represents a plan purchase
type CheckoutRequest struct {
	PlanID   string `json:"planId" validate:"required" example:"pro"`
	Provider string `json:"provider" example:"stripe"`
}

// CreateCheckoutSession starts a hosted checkout
// @Summary Create Checkout Session
// @Description Start a provider checkout for the caller on the plan's active price
// @Tags Billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CheckoutRequest true "Checkout Data"
// @Success 201 {object} billing.CheckoutSession
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /billing/checkout [post]
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Provider == "" {
		req.Provider = billing.ProviderStripe
	}

	p := GetPrincipal(r.Context())
	session, err := h.billingService.CreateCheckoutSession(r.Context(), req.Provider, p.Email, req.PlanID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// WebhookResponse acknowledges a provider delivery.
type WebhookResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// Webhook receives a signed provider event
// @Summary Provider Webhook
// @Description Verify and apply a payment provider event. Any failure answers 400 so the provider redelivers.
// @Tags Billing
// @Accept json
// @Produce json
// @Param provider path string true "Provider name"
// @Success 200 {object} WebhookResponse
// @Failure 400 {object} map[string]string
// @Router /webhooks/{provider} [post]
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	header, err := h.billingService.SignatureHeader(provider)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Signature verification needs the body byte-for-byte.
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.billingService.HandleWebhook(r.Context(), provider, payload, r.Header.Get(header))
	if err != nil {
		msg := "webhook rejected"
		if errors.Is(err, billing.ErrInvalidSignature) {
			msg = billing.ErrInvalidSignature.Error()
		}
		slog.WarnContext(r.Context(), "webhook delivery failed", logger.Provider(provider), logger.Error(err))
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	respondJSON(w, http.StatusOK, WebhookResponse{Received: true, Duplicate: res.Duplicate})
}
