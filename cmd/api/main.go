package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arjunmehra/bazaarcart-backend/api/controllers"
	"github.com/arjunmehra/bazaarcart-backend/api/routes"
	"github.com/arjunmehra/bazaarcart-backend/internal/cart"
	"github.com/arjunmehra/bazaarcart-backend/internal/catalog"
	"github.com/arjunmehra/bazaarcart-backend/internal/coupons"
	"github.com/arjunmehra/bazaarcart-backend/internal/inventory"
	"github.com/arjunmehra/bazaarcart-backend/internal/orders"
	"github.com/arjunmehra/bazaarcart-backend/internal/payments"
	"github.com/arjunmehra/bazaarcart-backend/internal/settlement"
	"github.com/arjunmehra/bazaarcart-backend/pkg/config"
	"github.com/arjunmehra/bazaarcart-backend/pkg/db"
	"github.com/arjunmehra/bazaarcart-backend/pkg/gateway"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
	"github.com/arjunmehra/bazaarcart-backend/pkg/migrate"
	"github.com/arjunmehra/bazaarcart-backend/pkg/outbox"
	"github.com/arjunmehra/bazaarcart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := gateway.NewClient(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	ordersRepo := orders.NewRepository(conn)
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	ordersService := orders.NewService(
		dbClient,
		ordersRepo,
		catalog.NewRepository(conn),
		cart.NewRepository(conn),
		coupons.NewService(coupons.NewRepository(conn)),
		inventory.NewService(),
		outboxService,
		gatewayClient,
		cfg.Shipping,
		logg,
	)
	settlementService := settlement.NewService(dbClient, settlement.NewRepository(conn), outboxService, logg)
	verifier := payments.NewVerifier(dbClient, ordersRepo, outboxService, cfg.Gateway.WebhookSecret, logg)

	registry := prometheus.NewRegistry()

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Orders:      ordersService,
		Settlements: settlementService,
		Verifier:    verifier,
		Guard:       payments.NewIdempotencyGuard(redisClient),
		Readiness: map[string]controllers.Pinger{
			"postgres": dbClient,
			"redis":    redisClient,
		},
		Metrics: registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
