package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "medicineweb/internal/admin/handler"
	adminmetrics "medicineweb/internal/admin/metrics"
	"medicineweb/internal/admin/seed"
	adminservice "medicineweb/internal/admin/service"
	"medicineweb/internal/audit"
	"medicineweb/internal/auth"
	"medicineweb/internal/directory"
	"medicineweb/internal/directory/memstore"
	"medicineweb/internal/directory/pgstore"
	"medicineweb/internal/platform/config"
	"medicineweb/internal/platform/httpserver"
	"medicineweb/internal/platform/logger"
	"medicineweb/internal/platform/middleware"
	platformredis "medicineweb/internal/platform/redis"
	"medicineweb/internal/professional/cache"
	professionalhandler "medicineweb/internal/professional/handler"
	professionalmetrics "medicineweb/internal/professional/metrics"
	professionalservice "medicineweb/internal/professional/service"
)

// main wires the stores, services, and HTTP surface together and owns the
// server lifecycle. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	stores, db, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var directoryCache cache.Cache
	if redisClient != nil {
		defer redisClient.Close()
		directoryCache = cache.NewRedis(redisClient)
		log.Info("directory cache enabled", "ttl", cfg.DirectoryCacheTTL)
	}

	auditOpts := []audit.Option{}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			return err
		}
		defer sink.Close()
		auditOpts = append(auditOpts, audit.WithSink(sink))
		log.Info("audit sink enabled", "topic", cfg.Kafka.AuditTopic)
	}
	auditor := audit.NewPublisher(audit.NewMemoryStore(), auditOpts...)

	seeder := seed.New(stores.authorities, stores.accounts, stores.tx, log, auditor)
	if created, err := seeder.Run(ctx, cfg.Bootstrap); err != nil {
		return err
	} else if created != nil {
		log.Info("top authority bootstrapped", "authority_id", created.ID)
	}

	tokens := auth.NewJWTService(cfg.JWTSigningKey, "medicineweb", cfg.TokenTTL)
	validator := auth.NewJWTServiceAdapter(tokens)

	lifecycle := professionalservice.New(
		stores.professionals, stores.bookings, stores.authorities, stores.accounts, stores.tx,
		professionalservice.WithLogger(log),
		professionalservice.WithMetrics(professionalmetrics.New()),
		professionalservice.WithAuditPublisher(auditor),
		professionalservice.WithCache(directoryCache, cfg.DirectoryCacheTTL),
	)
	guard := adminservice.New(
		stores.authorities, stores.accounts, stores.professionals, stores.bookings, stores.tx,
		adminservice.WithLogger(log),
		adminservice.WithMetrics(adminmetrics.New()),
		adminservice.WithAuditPublisher(auditor),
	)
	login := auth.NewService(stores.accounts, tokens, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	auth.NewHandler(login).Register(router)
	professionalhandler.New(lifecycle, log, validator).Register(router)
	adminhandler.New(guard, log, validator).Register(router)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// storeSet is the wiring-level view of the directory store: one value per
// interface the services consume, all backed by the same implementation.
type storeSet struct {
	professionals directory.ProfessionalStore
	bookings      directory.BookingStore
	authorities   directory.AuthorityStore
	accounts      directory.AccountStore
	tx            directory.StoreTx
}

// openStores selects the PostgreSQL store when DATABASE_URL is set and the
// in-memory store otherwise. The in-memory store keeps local development
// free of infrastructure.
func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (storeSet, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		mem := memstore.New()
		return storeSet{
			professionals: mem.Professionals(),
			bookings:      mem.Bookings(),
			authorities:   mem.Authorities(),
			accounts:      mem.Accounts(),
			tx:            mem,
		}, nil, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return storeSet{}, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return storeSet{}, nil, err
	}

	pg := pgstore.New(db)
	if err := pg.Migrate(ctx); err != nil {
		db.Close()
		return storeSet{}, nil, err
	}
	log.Info("connected to postgres")

	return storeSet{
		professionals: pg.Professionals(),
		bookings:      pg.Bookings(),
		authorities:   pg.Authorities(),
		accounts:      pg.Accounts(),
		tx:            pg,
	}, db, nil
}
