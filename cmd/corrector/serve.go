package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lilyanlefevre/formula-corrector/internal/analysis"
	"github.com/lilyanlefevre/formula-corrector/internal/analysis/cache"
	"github.com/lilyanlefevre/formula-corrector/internal/analysis/events"
	"github.com/lilyanlefevre/formula-corrector/internal/analysis/handler"
	"github.com/lilyanlefevre/formula-corrector/internal/analysis/store"
	"github.com/lilyanlefevre/formula-corrector/internal/correction"
	"github.com/lilyanlefevre/formula-corrector/internal/matcher"
	"github.com/lilyanlefevre/formula-corrector/pkg/health"
	"github.com/lilyanlefevre/formula-corrector/pkg/kafka"
	"github.com/lilyanlefevre/formula-corrector/pkg/logger"
	"github.com/lilyanlefevre/formula-corrector/pkg/metrics"
	"github.com/lilyanlefevre/formula-corrector/pkg/middleware"
	"github.com/lilyanlefevre/formula-corrector/pkg/postgres"
	pkgredis "github.com/lilyanlefevre/formula-corrector/pkg/redis"
	"github.com/lilyanlefevre/formula-corrector/pkg/resilience"
)

func serveCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	cfg := a.cfg
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	instanceID := uuid.NewString()
	log := logger.WithComponent("serve").With("instance", instanceID)
	log.Info("starting corrector service", "port", cfg.Server.Port)

	repo, err := a.repository()
	if err != nil {
		return err
	}

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, m)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	checker := health.NewChecker()
	checker.Register("corrections", correctionsCheck(repo))

	opts := []analysis.Option{
		analysis.WithMetrics(m),
		analysis.WithTracing(cfg.Tracing.Enabled),
	}
	retry := resilience.DefaultRetryConfig()

	if cfg.Redis.Enabled {
		rc, err := resilience.Connect(ctx, "redis", retry, func(ctx context.Context) (*pkgredis.Client, error) {
			return pkgredis.NewClient(ctx, cfg.Redis)
		})
		if err != nil {
			log.Warn("redis unavailable, report cache disabled", "error", err)
			checker.Register("redis", health.Static(health.StatusDegraded, "unavailable at startup"))
		} else {
			defer rc.Close()
			reports := cache.New(rc, cfg.Redis.CacheTTL)
			opts = append(opts, analysis.WithCache(reports))
			checker.Register("redis", health.PingCheck(rc, true))
			checker.Register("report-cache", reports.HealthCheck())
			log.Info("report cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Postgres.Enabled {
		pg, err := resilience.Connect(ctx, "postgres", retry, func(ctx context.Context) (*postgres.Client, error) {
			return postgres.New(ctx, cfg.Postgres)
		})
		if err == nil {
			runs := store.New(pg)
			if err = runs.EnsureSchema(ctx); err != nil {
				pg.Close()
			} else {
				defer pg.Close()
				opts = append(opts, analysis.WithStore(runs))
				checker.Register("postgres", health.PingCheck(pg, true))
				log.Info("run history enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
			}
		}
		if err != nil {
			log.Warn("postgres unavailable, run history disabled", "error", err)
			checker.Register("postgres", health.Static(health.StatusDegraded, "unavailable at startup"))
		}
	}

	if cfg.Kafka.Enabled {
		completed := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalysisCompleted, m)
		defer completed.Close()
		updated := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorrectionsUpdated, m)
		defer updated.Close()

		collector := events.NewCollector(instanceID, completed, updated, 1024)
		collector.Start(ctx)
		defer collector.Close()
		opts = append(opts, analysis.WithNotifier(collector))
	}

	svc := analysis.NewService(repo, opts...)

	if cfg.Kafka.Enabled {
		// Every instance must see every library update, so each one joins
		// its own consumer group.
		kcfg := cfg.Kafka
		kcfg.ConsumerGroup = fmt.Sprintf("%s-%s", cfg.Kafka.ConsumerGroup, instanceID)
		consumer := kafka.NewConsumer(kcfg, cfg.Kafka.Topics.CorrectionsUpdated, events.HandleCorrectionsUpdated(svc, instanceID))
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("corrections consumer stopped", "error", err)
			}
		}()
		log.Info("kafka events enabled",
			"brokers", cfg.Kafka.Brokers,
			"analysis_topic", cfg.Kafka.Topics.AnalysisCompleted,
			"corrections_topic", cfg.Kafka.Topics.CorrectionsUpdated,
		)
	}

	if list, err := repo.List(ctx); err == nil {
		m.CorrectionsLoaded.Set(float64(len(list)))
		log.Info("correction library loaded", "path", repo.Path(), "corrections", len(list))
	}

	h := handler.New(svc, a.loadOptions(), matcher.Options{ExcludeSelf: cfg.Match.ExcludeSelf})
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler(5*time.Second))

	// Metrics sits directly above the mux so it observes the matched pattern.
	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.MaxBody(cfg.Server.MaxBodyBytes)(chain)
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ListenAndServe returns as soon as Shutdown begins; the deferred closes
	// must wait until in-flight requests have finished.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
	}()

	log.Info("corrector service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	<-stopped
	log.Info("corrector service stopped")
	return nil
}

func correctionsCheck(repo correction.Repository) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		list, err := repo.List(ctx)
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d corrections", len(list))}
	}
}
