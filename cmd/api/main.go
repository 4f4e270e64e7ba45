package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/safelink-ng/safelink-backend/api/routes"
	"github.com/safelink-ng/safelink-backend/internal/delivery"
	"github.com/safelink-ng/safelink-backend/internal/orders"
	"github.com/safelink-ng/safelink-backend/internal/profiles"
	"github.com/safelink-ng/safelink-backend/internal/settlement"
	"github.com/safelink-ng/safelink-backend/internal/transfers"
	"github.com/safelink-ng/safelink-backend/pkg/config"
	"github.com/safelink-ng/safelink-backend/pkg/db"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
	"github.com/safelink-ng/safelink-backend/pkg/migrate"
	"github.com/safelink-ng/safelink-backend/pkg/paystack"
	"github.com/safelink-ng/safelink-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := paystack.NewGateway(cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer gateway", err)
		os.Exit(1)
	}

	secretCache, err := orders.NewSecretCache(redisClient, cfg.Escrow.CodeTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create secret cache", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	transferRepo := transfers.NewRepository(dbClient.DB())
	profileRepo := profiles.NewRepository(dbClient.DB())

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:       orderRepo,
		Secrets:    secretCache,
		Logger:     logg,
		BcryptCost: cfg.Escrow.BcryptCost,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	deliveryService, err := delivery.NewService(delivery.ServiceParams{
		Orders: orderService,
		Repo:   orderRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery service", err)
		os.Exit(1)
	}

	profileService, err := profiles.NewService(profiles.ServiceParams{
		Repo:    profileRepo,
		Gateway: gateway,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create profiles service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Orders:    orderRepo,
		Transfers: transferRepo,
		Profiles:  profileRepo,
		Gateway:   gateway,
		Tx:        dbClient,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

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
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Orders:     orderService,
			Delivery:   deliveryService,
			Settlement: settlementService,
			Profiles:   profileService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
