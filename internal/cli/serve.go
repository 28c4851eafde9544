package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"visitlog/internal/audit"
	authHandler "visitlog/internal/auth/handler"
	"visitlog/internal/auth/revocation"
	authService "visitlog/internal/auth/service"
	authStore "visitlog/internal/auth/store"
	"visitlog/internal/auth/tokens"
	"visitlog/internal/platform/config"
	"visitlog/internal/platform/httpserver"
	"visitlog/internal/platform/logger"
	platformMetrics "visitlog/internal/platform/metrics"
	"visitlog/internal/platform/postgres"
	platformRedis "visitlog/internal/platform/redis"
	visitHandler "visitlog/internal/visit/handler"
	visitMetrics "visitlog/internal/visit/metrics"
	visitService "visitlog/internal/visit/service"
	visitStore "visitlog/internal/visit/store"
	"visitlog/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the visitor log server",
		Long:  "Start the HTTP server: REST API, web UI, and metrics endpoint.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg := config.FromEnv()
	log := logger.New(cfg.DevMode)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when a DSN is configured, in-memory otherwise.
	var (
		visits visitStore.Store
		users  authStore.UserStore
		audits audit.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		visits = visitStore.NewPostgres(db)
		users = authStore.NewPostgres(db)
		audits = audit.NewPostgresStore(db)
		log.Info("using postgres storage")
	} else {
		visits = visitStore.NewInMemory()
		users = authStore.NewInMemory()
		audits = audit.NewInMemoryStore()
		log.Warn("no VISITLOG_DATABASE_URL set, using in-memory storage")
	}

	// Token revocation: shared via redis when configured.
	var trl revocation.TokenRevocationList
	redisClient, err := platformRedis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		trl = revocation.NewRedisTRL(redisClient.Client)
		log.Info("using redis token revocation list")
	} else {
		trl = revocation.NewInMemoryTRL()
	}

	// Audit pipeline: publisher -> worker -> store (+ kafka when configured).
	producer, err := audit.NewKafkaProducer(cfg.KafkaBrokers, audit.DefaultTopic)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close()
		log.Info("publishing audit events to kafka", "topic", audit.DefaultTopic)
	}
	publisher := audit.NewPublisher(0, log)
	worker := audit.NewWorker(audits, producer, publisher.Inbox(), log)

	// Services.
	appMetrics := platformMetrics.New()
	tokenService := tokens.NewService(cfg.JWTSigningKey, "visitlog", config.AccessTokenTTL, config.RefreshTokenTTL, trl)
	validator := tokens.NewMiddlewareValidator(tokenService)
	auth := authService.New(users, tokenService, authService.WithAuditPublisher(publisher))
	visitSvc := visitService.New(visits,
		visitService.WithAuditPublisher(publisher),
		visitService.WithMetrics(visitMetrics.New()),
	)

	// Router.
	router := chi.NewRouter()
	visitHandler.New(visitSvc, log, appMetrics, validator).Register(router)
	authHandler.New(auth, log, appMetrics, validator).Register(router)

	ui, err := web.NewServer(visitSvc, log)
	if err != nil {
		return err
	}
	ui.Register(router)

	router.Handle("/metrics", platformMetrics.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(ctx)
	})
	g.Go(func() error {
		log.Info("starting visitlog", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
