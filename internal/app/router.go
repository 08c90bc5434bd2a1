package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/karma-pos/karma/internal/auth"
	"github.com/karma-pos/karma/internal/cart"
	"github.com/karma-pos/karma/internal/inventory"
	"github.com/karma-pos/karma/internal/observability"
	"github.com/karma-pos/karma/internal/payments"
	"github.com/karma-pos/karma/internal/platform/httpx"
	"github.com/karma-pos/karma/internal/products"
	"github.com/karma-pos/karma/internal/sales"
	"github.com/karma-pos/karma/internal/shared"
	"github.com/karma-pos/karma/internal/users"
	"github.com/karma-pos/karma/jobs"
)

// Dependencies aggregates the externally-owned resources the router needs.
type Dependencies struct {
	Config  *Config
	Logger  *slog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
	Jobs    *jobs.Handler
}

// NewRouter assembles the whole HTTP surface: repositories, services and
// handlers per module, plus health and metrics endpoints.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	audit := shared.NewAuditLogger(deps.Pool)
	tokens := shared.NewTokenStore(deps.Redis, "karma:session", deps.Config.TokenTTL)

	usersRepo := users.NewRepository(deps.Pool)
	usersService := users.NewService(usersRepo, audit, logger)
	usersHandler := users.NewHandler(logger, usersService)

	authService := auth.NewService(usersRepo, tokens)
	authHandler := auth.NewHandler(logger, authService, usersService)

	productsRepo := products.NewRepository(deps.Pool)
	productsService := products.NewService(productsRepo, audit, logger)
	productsHandler := products.NewHandler(logger, productsService)

	inventoryRepo := inventory.NewRepository(deps.Pool)
	inventoryService := inventory.NewService(inventoryRepo, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	cartRepo := cart.NewRepository(deps.Pool)
	cartService := cart.NewService(cartRepo, productsRepo, logger)
	cartHandler := cart.NewHandler(logger, cartService)

	paymentsRepo := payments.NewRepository(deps.Pool)
	paymentsService := payments.NewService(paymentsRepo, logger)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	salesRepo := sales.NewRepository(deps.Pool)
	salesService := sales.NewService(salesRepo, inventoryService, cartService, paymentsService, logger)
	salesHandler := sales.NewHandler(logger, salesService)

	r := chi.NewRouter()
	r.Use(MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  deps.Config,
		Metrics: deps.Metrics,
	})...)
	r.Use(authService.Identify)

	r.Route("/auth", authHandler.MountRoutes)
	// user management and job control are admin-only
	r.Route("/usuarios", func(ur chi.Router) {
		ur.Use(authService.RequireRole(users.RoleAdmin))
		usersHandler.MountRoutes(ur)
	})
	r.Route("/productos", productsHandler.MountRoutes)
	r.Route("/carrito", cartHandler.MountRoutes)
	r.Route("/ventas", salesHandler.MountRoutes)
	r.Route("/pagos", paymentsHandler.MountRoutes)
	r.Route("/metodos-pago", paymentsHandler.MountMethodRoutes)
	r.Route("/inventario", inventoryHandler.MountRoutes)
	if deps.Jobs != nil {
		r.Route("/jobs", func(jr chi.Router) {
			jr.Use(authService.RequireRole(users.RoleAdmin))
			deps.Jobs.MountRoutes(jr)
		})
	}

	r.Get("/healthz", healthHandler(deps.Pool, deps.Redis, logger))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	return r
}

// healthHandler reports Postgres and Redis reachability. Redis being down
// degrades the report without failing it: sessions stop, sales do not.
func healthHandler(pool *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			logger.Error("health check: postgres unreachable", slog.Any("error", err))
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"postgres": "unreachable",
			})
			return
		}
		status := map[string]string{"status": "ok", "postgres": "ok", "redis": "ok"}
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("health check: redis unreachable", slog.Any("error", err))
			status["status"] = "degraded"
			status["redis"] = "unreachable"
		}
		httpx.JSON(w, http.StatusOK, status)
	}
}
