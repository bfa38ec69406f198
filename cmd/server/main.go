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
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	entityhandler "evigate/internal/entity/handler"
	entityservice "evigate/internal/entity/service"
	entitystore "evigate/internal/entity/store"
	"evigate/internal/evidence/binding"
	evidencehandler "evigate/internal/evidence/handler"
	evidencemetrics "evigate/internal/evidence/metrics"
	"evigate/internal/evidence/service"
	"evigate/internal/evidence/store/draft"
	"evigate/internal/evidence/store/lock"
	"evigate/internal/evidence/store/record"
	"evigate/internal/platform/config"
	"evigate/internal/platform/httpserver"
	"evigate/internal/platform/logger"
	"evigate/internal/platform/middleware"
	platformredis "evigate/internal/platform/redis"
	"evigate/internal/tenanttoken"
	"evigate/pkg/platform/audit"
	"evigate/pkg/platform/audit/publisher"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages. Every backing service is
// optional: unset URLs select the in-memory implementations so the gateway
// runs dependency-free in development.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDependencies(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	router := buildRouter(deps, log)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting evigate", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// dependencies is everything the router needs.
type dependencies struct {
	evidence *service.DraftService
	entities *entityservice.EntityService
	tokens   *tenanttoken.Service
}

func buildDependencies(ctx context.Context, cfg config.Config, log *slog.Logger) (*dependencies, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var (
		draftStore  draft.Store  = draft.NewInMemory()
		recordStore record.Store = record.NewInMemory()
		lockStore   lock.Store   = lock.NewInMemory()
		entityStore              = entitystore.NewInMemory()
	)

	if cfg.Database.URL != "" {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, cleanup, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, cleanup, err
		}
		cleanups = append(cleanups, func() { db.Close() })
		draftStore = draft.NewPostgres(db)

		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, pool.Close)
		recordStore = record.NewPostgres(pool)
		log.Info("postgres stores enabled")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, cleanup, err
	}
	if redisClient != nil {
		cleanups = append(cleanups, func() { redisClient.Close() })
		lockStore = lock.NewRedis(redisClient.Client, cfg.Redis.LockTTL)
		log.Info("redis draft locks enabled")
	}

	var auditor audit.Store = audit.NewMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := publisher.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			return nil, cleanup, err
		}
		cleanups = append(cleanups, func() { _ = pub.Close() })
		auditor = pub
		log.Info("kafka audit trail enabled", "topic", cfg.Kafka.AuditTopic)
	}

	entities, err := entityservice.New(entityStore, log, entityservice.WithAuditor(auditor))
	if err != nil {
		return nil, cleanup, err
	}
	resolver, err := binding.New(entities)
	if err != nil {
		return nil, cleanup, err
	}
	evidence, err := service.New(draftStore, recordStore, lockStore, resolver,
		service.WithAuditor(auditor),
		service.WithMetrics(evidencemetrics.New()),
		service.WithLogger(log),
	)
	if err != nil {
		return nil, cleanup, err
	}

	return &dependencies{
		evidence: evidence,
		entities: entities,
		tokens:   tenanttoken.NewService(cfg.Server.JWTSigningKey, "evigate"),
	}, cleanup, nil
}

func buildRouter(deps *dependencies, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Correlation)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		// Registry views are static and tenant-free.
		evidencehandler.NewRegistry().Register(v1)

		v1.Group(func(authed chi.Router) {
			authed.Use(middleware.RequireTenant(deps.tokens, log))
			evidencehandler.New(deps.evidence, log).Register(authed)
			entityhandler.New(deps.entities, log).Register(authed)
		})
	})
	return r
}
