// Command server runs the guard location tracking service: the consent-gated
// tracking engine, the HTTP surface, and the audit outbox worker. Every
// backend is optional; unconfigured ones fall back to in-memory
// implementations so the service runs standalone in development.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"securyflex/internal/audit"
	"securyflex/internal/consent"
	consenthandler "securyflex/internal/consent/handler"
	"securyflex/internal/export"
	exporthandler "securyflex/internal/export/handler"
	"securyflex/internal/platform/config"
	"securyflex/internal/platform/httpserver"
	"securyflex/internal/platform/kafka"
	"securyflex/internal/platform/logger"
	"securyflex/internal/platform/metrics"
	"securyflex/internal/platform/postgres"
	platformredis "securyflex/internal/platform/redis"
	"securyflex/internal/position"
	"securyflex/internal/token"
	"securyflex/internal/tracking"
	trackinghandler "securyflex/internal/tracking/handler"
	httptransport "securyflex/internal/transport/http"
	"securyflex/internal/worklocation"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres backs consent, work locations and the audit trail.
	var (
		consentStore  consent.Store
		locationStore worklocation.Store
		auditStore    audit.Store
	)
	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("postgres migration failed", "error", err)
			os.Exit(1)
		}
		consentStore = consent.NewPostgresStore(db)
		locationStore = worklocation.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		log.Info("postgres configured")
	} else {
		consentStore = consent.NewInMemoryStore()
		locationStore = worklocation.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		log.Warn("postgres not configured, using in-memory stores")
	}

	// Redis backs the live guard location state.
	var stateStore tracking.StateStore
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		stateStore = tracking.NewRedisStateStore(redisClient.Client)
		log.Info("redis configured")
	} else {
		stateStore = tracking.NewInMemoryStateStore()
		log.Warn("redis not configured, using in-memory state store")
	}

	auditor := audit.NewPublisher(auditStore, log, m)

	// Device positions arrive over MQTT; without a broker the simulated
	// source keeps the engine runnable.
	var (
		positions   position.Source
		permissions position.PermissionChecker
	)
	if cfg.MQTT.BrokerURL != "" {
		mqttSource, err := position.NewMQTTSource(cfg.MQTT, log)
		if err != nil {
			log.Error("mqtt connection failed", "error", err)
			os.Exit(1)
		}
		defer mqttSource.Close()
		positions = mqttSource
		permissions = mqttSource
		log.Info("mqtt position source configured", "broker", cfg.MQTT.BrokerURL)
	} else {
		sim := position.NewSimSource()
		positions = sim
		permissions = sim
		log.Warn("mqtt not configured, using simulated position source")
	}

	consentService := consent.NewService(consentStore, auditor, m)
	trackingService := tracking.NewService(
		consentService,
		positions,
		permissions,
		locationStore,
		stateStore,
		auditor,
		log,
		m,
		cfg.Tracking,
	)
	exportService := export.New(stateStore, auditor)

	jwtValidator := token.NewValidator(cfg.Auth.JWTSigningKey)

	router := httptransport.NewRouter(
		trackinghandler.New(trackingService, log, m, jwtValidator),
		consenthandler.New(consentService, log, m, jwtValidator, cfg.Consent.TTL),
		exporthandler.New(exportService, log, m, jwtValidator),
	)

	srv := httpserver.New(cfg.HTTP.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// The outbox worker needs both Postgres (the outbox) and Kafka (the
	// sink); without either the trail still lands in the store.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.New(cfg.Kafka, audit.Topics(cfg.Kafka.TopicPrefix)...)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		worker := audit.NewOutboxWorker(db, producer, cfg.Kafka.TopicPrefix, log)
		group.Go(func() error {
			log.Info("starting audit outbox worker")
			return worker.Run(groupCtx)
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := trackingService.Shutdown(shutdownCtx); err != nil {
			log.Error("tracking shutdown incomplete", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
