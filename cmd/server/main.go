package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/api"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/audit"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/availability"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/booking"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/cache"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/calendar"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/clock"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/config"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/database"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/events"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/metrics"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/pricing"
	"github.com/anye1tovar/logic-escape-room-sub000/internal/schedule"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("RESERVATIONS_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	cacheLayer := cache.New(rdb, cfg.CacheTTL(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.System{}
	classifier := schedule.NewClassifier(db)
	availabilitySvc := availability.NewService(db, db, db, db, classifier,
		clk, cfg.MinAdvance(), cfg.SlotDuration(), logger)
	pricingSvc := pricing.NewService(db, classifier)
	bus := events.NewBus(logger)
	bookingSvc := booking.NewService(db, availabilitySvc, pricingSvc, bus, clk,
		cfg.ConfirmationCodeLength(), cfg.ConfirmationCodeAttempts(), logger)
	exporter := audit.NewExporter(db, logger)

	// Any mutation drops that date's cached views; a reprogram drops both
	// the old and the new date.
	invalidate := func(event events.Event) error {
		cacheLayer.InvalidateDate(ctx, clock.FormatDate(event.Reservation.Date))
		if event.Prev != nil {
			cacheLayer.InvalidateDate(ctx, clock.FormatDate(event.Prev.Date))
		}
		return nil
	}
	bus.Subscribe(events.TypeReservationCreated, invalidate)
	bus.Subscribe(events.TypeReservationReprogrammed, invalidate)
	bus.Subscribe(events.TypeReservationCancelled, invalidate)

	if cfg.Calendar.Enabled {
		calClient, calErr := calendar.NewClient(ctx, calendar.Config{
			CalendarID:   cfg.Calendar.CalendarID,
			ClientID:     cfg.Calendar.ClientID,
			ClientSecret: cfg.Calendar.ClientSecret,
			RefreshToken: cfg.Calendar.RefreshToken,
		}, logger)
		if calErr != nil {
			logger.Error().Err(calErr).Msg("calendar disabled: client init failed")
		} else {
			bus.Subscribe(events.TypeReservationCreated, calClient.Handler())
			bus.Subscribe(events.TypeReservationReprogrammed, calClient.Handler())
		}
	}

	if cfg.Backup.Enabled {
		storagePath := cfg.Backup.StoragePath
		if storagePath == "" {
			storagePath = "data/backups"
		}
		backup := database.NewBackup(cfg.Database.Path, storagePath,
			cfg.BackupInterval(), cfg.BackupRetention(), logger)
		go backup.Run(ctx)
	}

	server := api.NewHTTPServer(availabilitySvc, bookingSvc, pricingSvc,
		cacheLayer, exporter, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Handler(),
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("reservation engine started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
