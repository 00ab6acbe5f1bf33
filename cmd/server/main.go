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

	"clinicbook/internal/api"
	"clinicbook/internal/auth"
	"clinicbook/internal/config"
	"clinicbook/internal/database"
	"clinicbook/internal/events"
	"clinicbook/internal/export"
	"clinicbook/internal/metrics"
	"clinicbook/internal/notify"
	"clinicbook/internal/repository"
	"clinicbook/internal/scheduler"
	"clinicbook/internal/store"
	"clinicbook/internal/support"
	"clinicbook/internal/visits"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CLINICBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.SeedDoctors(ctx, database.DefaultDoctors); err != nil {
		logger.Fatal().Err(err).Msg("seed doctors error")
	}
	if err := db.SeedMedicalRecords(ctx, database.DefaultMedicalRecords); err != nil {
		logger.Fatal().Err(err).Msg("seed records error")
	}

	// Sessions live in Redis with an in-memory fallback. Without Redis the
	// in-memory store serves alone.
	var rdb *redis.Client
	var sessions repository.SessionRepository = repository.NewMemorySessionRepository()
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sessions = repository.NewFailoverSessionRepository(
			repository.NewRedisSessionRepository(rdb),
			repository.NewMemorySessionRepository(),
			&logger,
		)
	}

	bus := events.NewEventBus()
	rules := store.Rules{
		MinAdvance: cfg.BookingMinAdvance(),
		MaxAdvance: cfg.BookingMaxAdvance(),
	}
	appointments := store.New(db, bus, rules, cfg.Location(), &logger)

	notifier, err := notify.New(cfg.Telegram.BotToken, cfg.Telegram.ManagerChatIDs, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram init error")
	}
	subscribeNotifications(bus, notifier, &logger)

	authSvc := auth.New(db, sessions, cfg.SessionTTL(), &logger)
	supportSvc := support.New(db, bus, &logger)
	visitSvc := visits.New(db, bus, &logger)
	exporter := export.New(appointments)

	sched := scheduler.New(appointments, notifier, cfg.RefreshInterval(), cfg.ReminderWindow(), &logger)
	go sched.Start(ctx)

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

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

	server := api.NewHTTPServer(appointments, db, authSvc, supportSvc, visitSvc, exporter, &logger)
	logger.Info().Int("port", cfg.Server.Port).Msg("clinicbook started")
	if err := server.Start(ctx, fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

// subscribeNotifications bridges domain events to Telegram notices.
func subscribeNotifications(bus *events.EventBus, notifier *notify.Notifier, logger *zerolog.Logger) {
	bus.Subscribe(events.TypeAppointmentCreated, func(e events.Event) error {
		appt, err := events.DecodeAppointment(e)
		if err != nil {
			logger.Error().Err(err).Msg("decode appointment event")
			return err
		}
		notifier.AppointmentBooked(appt)
		return nil
	})
	bus.Subscribe(events.TypeAppointmentCancelled, func(e events.Event) error {
		appt, err := events.DecodeAppointment(e)
		if err != nil {
			logger.Error().Err(err).Msg("decode appointment event")
			return err
		}
		notifier.AppointmentCancelled(appt)
		return nil
	})
	bus.Subscribe(events.TypeHomeVisitRequested, func(e events.Event) error {
		visit, err := events.DecodeHomeVisit(e)
		if err != nil {
			logger.Error().Err(err).Msg("decode home visit event")
			return err
		}
		notifier.HomeVisitRequested(visit)
		return nil
	})
	bus.Subscribe(events.TypeSupportRequested, func(e events.Event) error {
		interaction, err := events.DecodeSupportInteraction(e)
		if err != nil {
			logger.Error().Err(err).Msg("decode support event")
			return err
		}
		notifier.CallBackRequested(interaction.Content)
		return nil
	})
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
