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
	"github.com/rs/zerolog"

	"terminplan/internal/api"
	"terminplan/internal/cache"
	"terminplan/internal/calendar"
	"terminplan/internal/config"
	"terminplan/internal/events"
	"terminplan/internal/metrics"
	"terminplan/internal/reservation"
	"terminplan/internal/service"
	"terminplan/internal/slots"
	"terminplan/internal/timeutil"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("TERMINPLAN_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	practitioners, err := service.LoadDirectory(cfg.Directory.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Directory.Path).Msg("failed to load practitioner directory")
	}

	rules, err := rulesFromConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid calendar rules")
	}

	gen := slots.NewGenerator(rules)
	if cfg.Rules.OvertimeMaxMinutes > 0 || cfg.Rules.OvertimeHardCapClock != "" {
		policy := slots.DefaultOvertimePolicy()
		if cfg.Rules.OvertimeMaxMinutes > 0 {
			policy.MaxExtension = cfg.Rules.OvertimeMaxMinutes
		}
		if cfg.Rules.OvertimeHardCapClock != "" {
			hardCap, err := timeutil.ParseClock(cfg.Rules.OvertimeHardCapClock)
			if err != nil {
				logger.Fatal().Err(err).Msg("invalid overtime hard cap")
			}
			policy.HardCap = hardCap
		}
		gen.SetOvertimePolicy(policy)
	}

	var ledger reservation.Ledger
	var redisLedger *reservation.RedisLedger
	if cfg.Reservation.Redis.Address != "" {
		redisLedger, err = reservation.NewRedisLedger(
			cfg.Reservation.Redis.Address,
			cfg.Reservation.Redis.Password,
			cfg.Reservation.Redis.DB,
			cfg.ReservationHold(),
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect reservation ledger")
		}
		defer redisLedger.Close()
		ledger = redisLedger
		logger.Info().Str("address", cfg.Reservation.Redis.Address).Msg("using redis reservation ledger")
	} else {
		ledger = reservation.NewMemoryLedger(cfg.ReservationHold())
		logger.Info().Msg("using in-memory reservation ledger")
	}

	availCache := cache.New(cfg.CacheMaxBytes(), cache.Policy(cfg.Cache.Policy))
	source := service.NewMemorySource(nil)

	svc, err := service.New(service.Config{
		CacheTTL:                 cfg.CacheTTL(),
		CacheSweepInterval:       cfg.CacheSweep(),
		ReservationSweepInterval: cfg.ReservationSweep(),
		DefaultGranularity:       cfg.Rules.DefaultGranularity,
		DefaultBuffer:            cfg.Rules.DefaultBuffer,
	}, rules, gen, availCache, ledger, practitioners, source, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build service")
	}

	if cfg.Cache.SnapshotPath != "" {
		restoreSnapshot(svc, cfg.Cache.SnapshotPath, &logger)
	}

	for _, typ := range []events.Type{events.BookingNew, events.BookingCancelled, events.AvailabilityChanged} {
		svc.Events().Subscribe(typ, func(e events.Event) {
			logger.Info().
				Str("type", string(e.Type)).
				Str("practitioner", e.PractitionerID).
				Msg("booking event")
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc.Start(ctx)
	defer svc.Stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.New(svc, source, &logger, cfg.Server.RateLimit, cfg.Server.Burst)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Router(),
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctxShutdown)
	}()

	logger.Info().
		Int("port", cfg.Server.Port).
		Int("practitioners", len(practitioners)).
		Msg("availability service listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("http server error")
	}

	if cfg.Cache.SnapshotPath != "" {
		saveSnapshot(svc, cfg.Cache.SnapshotPath, &logger)
	}
	logger.Info().Msg("availability service stopped")
}

func rulesFromConfig(cfg *config.Config) (*calendar.Rules, error) {
	if cfg.Rules.BreakStart == "" || cfg.Rules.BreakEnd == "" {
		return calendar.NewRules(), nil
	}
	start, err := timeutil.ParseClock(cfg.Rules.BreakStart)
	if err != nil {
		return nil, fmt.Errorf("break_start: %w", err)
	}
	end, err := timeutil.ParseClock(cfg.Rules.BreakEnd)
	if err != nil {
		return nil, fmt.Errorf("break_end: %w", err)
	}
	return calendar.NewRulesWithBreak(start, end), nil
}

func restoreSnapshot(svc *service.Service, path string, logger *zerolog.Logger) {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("cache snapshot unreadable")
		}
		return
	}
	defer f.Close()
	if err := svc.ImportCache(f); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("cache snapshot rejected")
		return
	}
	logger.Info().Str("path", path).Msg("cache snapshot restored")
}

func saveSnapshot(svc *service.Service, path string, logger *zerolog.Logger) {
	f, err := os.Create(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("cache snapshot write failed")
		return
	}
	defer f.Close()
	if err := svc.ExportCache(f); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("cache snapshot write failed")
		return
	}
	logger.Info().Str("path", path).Msg("cache snapshot saved")
}

func startHealthServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
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
