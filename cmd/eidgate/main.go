// Package main starts the eID session daemon: it owns the connection to the
// identity engine and exposes the identification flow to a local UI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"eidgate/internal/eid/adapters/websocket"
	"eidgate/internal/eid/handler"
	eidmetrics "eidgate/internal/eid/metrics"
	"eidgate/internal/eid/service"
	"eidgate/internal/platform/config"
	"eidgate/internal/platform/httpserver"
	applog "eidgate/internal/platform/logger"
	"eidgate/internal/platform/metrics"
	"eidgate/internal/platform/middleware"
	"eidgate/internal/platform/otel"
	"eidgate/pkg/platform/audit/publisher"
	"eidgate/pkg/platform/circuit"
	"eidgate/pkg/platform/httputil"
	"eidgate/pkg/platform/sentinel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("eidgate: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := applog.New(os.Stdout, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	shutdownTracing, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("failed to flush spans", "error", err)
		}
	}()

	reg := metrics.NewRegistry()

	backend, err := openAuditBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	auditor := publisher.NewPublisher(backend.store,
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
		publisher.WithLogger(logger),
		publisher.WithMetrics(publisher.NewMetrics(reg)),
		publisher.WithBreaker(circuit.New("audit_"+cfg.Audit.Backend,
			circuit.WithFailureThreshold(cfg.Audit.BreakerThreshold),
			circuit.WithCooldown(cfg.Audit.BreakerCooldown),
		)),
	)
	defer auditor.Close()

	channel := websocket.New(
		websocket.WithURL(cfg.Kernel.URL),
		websocket.WithOrigin(cfg.Kernel.Origin),
		websocket.WithDialTimeout(cfg.Kernel.DialTimeout),
		websocket.WithLogger(logger),
	)

	svc, err := service.New(channel,
		service.WithLogger(logger),
		service.WithMetrics(eidmetrics.New(reg)),
		service.WithAuditPublisher(auditor),
		service.WithDebounce(cfg.Session.Debounce),
		service.WithMailboxSize(cfg.Session.MailboxSize),
		service.WithSubscriberBuffer(cfg.Session.SubscriberBuffer),
	)
	if err != nil {
		return fmt.Errorf("create session controller: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	handler.New(svc, logger).Register(r)
	r.Handle("/metrics", metrics.Handler(reg))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := backend.health(r.Context()); err != nil {
			httputil.WriteError(w, fmt.Errorf("audit backend: %w: %w", sentinel.ErrUnavailable, err))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	srv := httpserver.New(cfg.HTTP, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := svc.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("session controller: %w", err)
		}
		return nil
	})
	if backend.run != nil {
		g.Go(func() error {
			if err := backend.run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audit maintenance: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("starting eidgate", "addr", cfg.HTTP.Addr, "kernel_url", cfg.Kernel.URL, "audit_backend", cfg.Audit.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("eidgate stopped")
	return err
}
