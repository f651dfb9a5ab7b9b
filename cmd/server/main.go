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


package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tenantcore/tenantcore/internal/account"
	"github.com/tenantcore/tenantcore/internal/audit"
	"github.com/tenantcore/tenantcore/internal/auth"
	"github.com/tenantcore/tenantcore/internal/authz"
	"github.com/tenantcore/tenantcore/internal/billing"
	"github.com/tenantcore/tenantcore/internal/config"
	"github.com/tenantcore/tenantcore/internal/identity"
	"github.com/tenantcore/tenantcore/internal/observability/logger"
	"github.com/tenantcore/tenantcore/internal/observability/metrics"
	"github.com/tenantcore/tenantcore/internal/observability/tracing"
	"github.com/tenantcore/tenantcore/internal/plan"
	"github.com/tenantcore/tenantcore/internal/store"
	"github.com/tenantcore/tenantcore/internal/store/memory"
	"github.com/tenantcore/tenantcore/internal/store/postgres"
	"github.com/tenantcore/tenantcore/internal/tenant"
	transportHTTP "github.com/tenantcore/tenantcore/internal/transport/http"
)

// repositories is the persistence surface the services are built on. Both
// store backends fill it.
type repositories struct {
	users         identity.UserRepository
	accounts      account.Repository
	plans         plan.Repository
	subscriptions billing.SubscriptionRepository
	events        billing.EventRepository
	tenants       tenant.Repository
	memberships   tenant.MembershipRepository
	tx            store.Transactor
	close         func()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	// Phase: CLI Commands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	slog.Info("starting tenantcore", logger.Component("server"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
		tracer, _ = tracing.New(ctx, tracing.Config{ServiceName: cfg.Observability.ServiceName})
	}
	defer tracer.Shutdown(context.Background())

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceVersion: cfg.Observability.ServiceVersion,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
		meter, _ = metrics.New(ctx, metrics.Config{}, cfg.Observability.ServiceName)
	}
	defer meter.Shutdown(context.Background())
	instruments, err := metrics.NewInstruments(meter)
	if err != nil {
		slog.Error("failed to register instruments", logger.Error(err))
		os.Exit(1)
	}

	repos, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", logger.Error(err), slog.String("driver", cfg.Store.Driver))
		os.Exit(1)
	}
	defer repos.close()

	// Initialize helpers
	auditLogger := audit.NewSlogLogger()
	passwordHasher := identity.NewPasswordHasher(cfg.Security.BcryptCost)
	tokens := auth.NewTokenIssuer([]byte(cfg.Security.JWTSecret), cfg.Security.JWTIssuer, cfg.Security.JWTTTL)

	// Initialize services
	identityService := identity.NewService(repos.users, passwordHasher, auditLogger)
	catalog := plan.NewCatalog(repos.plans)
	accountService := account.NewService(repos.accounts, repos.users, catalog, auditLogger)
	tenantService := tenant.NewService(
		repos.tenants,
		repos.memberships,
		repos.accounts,
		repos.users,
		authz.NewService(repos.memberships),
		repos.tx,
		auditLogger,
		tenant.Options{DefaultSeatLimit: cfg.Tenancy.DefaultSeatLimit, Instruments: instruments},
	)
	authService := auth.NewService(
		identityService,
		accountService,
		tenantService,
		tokens,
		repos.tx,
		auditLogger,
		auth.Options{DefaultPlan: cfg.Billing.DefaultPlanID, Instruments: instruments},
	)

	registry := billing.NewRegistry(
		billing.NewStripeProcessor(billing.StripeConfig{
			SecretKey:     cfg.Billing.StripeSecretKey,
			WebhookSecret: cfg.Billing.StripeWebhookSecret,
			FrontendURL:   cfg.Billing.FrontendURL,
		}),
		billing.PayPalProcessor{},
	)
	billingService := billing.NewService(
		registry,
		repos.subscriptions,
		repos.events,
		accountService,
		catalog,
		repos.tx,
		auditLogger,
		instruments,
	)

	strategies := auth.NewStrategies(
		auth.NewLocalStrategy(authService),
		auth.NewBearerStrategy(authService),
	)

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go rateLimiter.Run(ctx)

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		authService,
		strategies,
		identityService,
		accountService,
		catalog,
		billingService,
		tenantService,
		auditLogger,
	)

	// Create router
	router, err := transportHTTP.NewRouter(handler, rateLimiter, cfg.Server.RequestTimeout)
	if err != nil {
		slog.Error("failed to build router", logger.Error(err))
		os.Exit(1)
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		slog.Error("server error", logger.Error(err))
	}

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (*repositories, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		s := memory.NewSeeded()
		slog.Warn("using in-memory store; data is lost on restart")
		return &repositories{
			users:         s.Users(),
			accounts:      s.Accounts(),
			plans:         s.Plans(),
			subscriptions: s.Subscriptions(),
			events:        s.BillingEvents(),
			tenants:       s.Tenants(),
			memberships:   s.Memberships(),
			tx:            s,
			close:         func() {},
		}, nil
	case config.StoreDriverPostgres:
		db, err := postgres.New(ctx, databaseConfig(cfg))
		if err != nil {
			return nil, err
		}
		slog.Info("connected to database")
		return &repositories{
			users:         postgres.NewUserRepository(db),
			accounts:      postgres.NewAccountRepository(db),
			plans:         postgres.NewPlanRepository(db),
			subscriptions: postgres.NewSubscriptionRepository(db),
			events:        postgres.NewEventRepository(db),
			tenants:       postgres.NewTenantRepository(db),
			memberships:   postgres.NewMembershipRepository(db),
			tx:            db,
			close:         db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func databaseConfig(cfg *config.Config) postgres.Config {
	return postgres.Config{
		URL:          cfg.Database.URL,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}
}

func runMigrate(cfg *config.Config) error {
	if cfg.Store.Driver != config.StoreDriverPostgres {
		return fmt.Errorf("migrations require STORE_DRIVER=%s", config.StoreDriverPostgres)
	}
	m, err := postgres.NewMigrator(databaseConfig(cfg).DSN())
	if err != nil {
		return err
	}
	defer m.Close()

	fmt.Println("Applying migrations...")
	if err := m.Up(); err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Printf("Migration successful. version=%d dirty=%t\n", version, dirty)
	return nil
}
