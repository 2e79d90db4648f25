package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/relaydrop/relaydrop-backend/api/controllers"
	"github.com/relaydrop/relaydrop-backend/api/routes"
	"github.com/relaydrop/relaydrop-backend/internal/drivers"
	"github.com/relaydrop/relaydrop-backend/internal/geo"
	"github.com/relaydrop/relaydrop-backend/internal/notifications"
	"github.com/relaydrop/relaydrop-backend/internal/orders"
	"github.com/relaydrop/relaydrop-backend/internal/proofs"
	"github.com/relaydrop/relaydrop-backend/internal/stores"
	"github.com/relaydrop/relaydrop-backend/pkg/config"
	"github.com/relaydrop/relaydrop-backend/pkg/db"
	"github.com/relaydrop/relaydrop-backend/pkg/logger"
	"github.com/relaydrop/relaydrop-backend/pkg/maps"
	"github.com/relaydrop/relaydrop-backend/pkg/metrics"
	"github.com/relaydrop/relaydrop-backend/pkg/pubsub"
	"github.com/relaydrop/relaydrop-backend/pkg/redis"
	"github.com/relaydrop/relaydrop-backend/pkg/storage/gcs"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	// The routing provider is optional in dev; quotes fall back to a
	// straight-line ETA, but geocoding still requires the API key.
	var geocoder geo.Geocoder
	var estimator geo.RouteEstimator = geo.HaversineEstimator{AverageSpeedKmh: cfg.GoogleMaps.AverageSpeedKmh}
	if cfg.GoogleMaps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.GoogleMaps.APIKey)
		if err != nil {
			logg.Error(ctx, "failed to create maps client", err)
			os.Exit(1)
		}
		geocoder = geo.MapsGeocoder{Client: mapsClient}
		estimator = geo.MapsRouteEstimator{Client: mapsClient}
	} else {
		logg.Warn(ctx, "maps api key not configured, quotes will be unavailable")
	}
	resolver := geo.NewResolver(geocoder, estimator, cfg.GoogleMaps.Timeout)

	var uploader controllers.ProofUploader
	var gcsPinger controllers.Pinger
	if cfg.GCS.BucketName != "" {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(ctx, "failed to create gcs client", err)
			os.Exit(1)
		}
		uploader = gcsClient
		gcsPinger = gcsClient
	} else {
		logg.Warn(ctx, "gcs bucket not configured, multipart proof uploads disabled")
	}

	var publisher notifications.EventPublisher
	if cfg.GCP.ProjectID != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to create pubsub client", err)
			os.Exit(1)
		}
		defer psClient.Close()
		publisher = &notifications.PubSubPublisher{Client: psClient}
	} else {
		logg.Warn(ctx, "pubsub project not configured, events stay in-database only")
	}

	gormDB := dbClient.DB()
	ordersRepo := orders.NewRepository(gormDB)
	storesRepo := stores.NewRepository(gormDB)
	driversRepo := drivers.NewRepository(gormDB)
	proofsRepo := proofs.NewRepository(gormDB)
	notifRepo := notifications.NewRepository(gormDB)

	proofSvc, err := proofs.NewService(proofsRepo)
	if err != nil {
		logg.Error(ctx, "failed to create proofs service", err)
		os.Exit(1)
	}

	notifSvc, err := notifications.NewService(notifRepo)
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}

	dispatcher := notifications.NewDispatcher(notifRepo, driversRepo, publisher, logg, cfg.Dispatch.Timeout)

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, storesRepo, resolver, proofSvc, dispatcher)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		Metrics:       metrics.NewHTTPMetrics(),
		DBPinger:      dbClient,
		GCSPinger:     gcsPinger,
		Redis:         redisClient,
		Orders:        ordersSvc,
		Notifications: notifSvc,
		Uploader:      uploader,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(startCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(startCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(startCtx, "server shutdown failed", err)
		}
		// Let in-flight notification fan-out finish before exiting.
		dispatcher.Wait()
	}

	logg.Info(startCtx, "api server stopped")
}
