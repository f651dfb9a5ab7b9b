// @title Tenantcore API
// @version 1.0.0
// @description Multi-tenant SaaS backend: accounts, plans, subscriptions and tenant memberships.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/swaggo/swag"
	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/audit"
	"github.com/tenantcore/tenantcore/internal/auth"
	"github.com/tenantcore/tenantcore/internal/billing"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/observability/logger"
	"github.com/tenantcore/tenantcore/internal/plan"
	"github.com/tenantcore/tenantcore/internal/tenant"

	// Registers the OpenAPI document served at /swagger/doc.json.
	_ "github.com/tenantcore/tenantcore/internal/transport/http/docs"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	authService     *auth.Service
	strategies      auth.Strategies
	identityService *identity.Service
	accountService  *account.Service
	catalog         *plan.Catalog
	billingService  *billing.Service
	tenantService   *tenant.Service
	auditLogger     audit.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authService *auth.Service,
	strategies auth.Strategies,
	identityService *identity.Service,
	accountService *account.Service,
	catalog *plan.Catalog,
	billingService *billing.Service,
	tenantService *tenant.Service,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		authService:     authService,
		strategies:      strategies,
		identityService: identityService,
		accountService:  accountService,
		catalog:         catalog,
		billingService:  billingService,
		tenantService:   tenantService,
		auditLogger:     auditLogger,
	}
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "tenantcore",
	})
}

// OpenAPIDoc serves the registered OpenAPI document.
func (h *Handler) OpenAPIDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to read openapi document", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
