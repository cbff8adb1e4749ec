// Command glidexd is the Firecracker micro-VM control plane daemon: it
// serves the HTTP API, owns the catalog, and supervises every hypervisor
// process it spawns.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/onkernel/glidex/cmd/glidexd/api"
	"github.com/onkernel/glidex/cmd/glidexd/config"
	"github.com/onkernel/glidex/lib/catalog"
	"github.com/onkernel/glidex/lib/lifecycle"
	glidexmiddleware "github.com/onkernel/glidex/lib/middleware"
	"github.com/onkernel/glidex/lib/logger"
	"github.com/onkernel/glidex/lib/otel"
	"github.com/onkernel/glidex/lib/paths"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application terminated", "error", err)
		os.Exit(1)
	}
	slog.Info("glidexd exiting normally")
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	otelCfg := otel.Config{
		Enabled:     cfg.OtelEnabled,
		Endpoint:    cfg.OtelEndpoint,
		ServiceName: cfg.OtelServiceName,
		Insecure:    cfg.OtelInsecure,
		Version:     cfg.Version,
		Env:         cfg.OtelEnv,
	}

	otelProvider, otelShutdown, err := otel.Init(context.Background(), otelCfg)
	if err != nil {
		slog.Warn("failed to initialize OpenTelemetry, continuing without telemetry", "error", err)
	}
	if otelShutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				slog.Warn("error shutting down OpenTelemetry", "error", err)
			}
		}()
	}

	var otelLogHandler slog.Handler
	if otelProvider != nil {
		otelLogHandler = otelProvider.LogHandler
		otel.SetGlobalLogHandler(otelLogHandler)
	}

	logCfg := logger.NewConfig()
	log := logger.NewSubsystemLogger(logger.SubsystemAPI, logCfg, otelLogHandler)

	if cfg.OtelEnabled {
		log.Info("OpenTelemetry enabled", "endpoint", cfg.OtelEndpoint, "service", cfg.OtelServiceName)
	}

	if err := checkKVMAccess(); err != nil {
		return fmt.Errorf("KVM access check failed: %w", err)
	}
	log.Info("KVM access verified")

	catalogPath := cfg.CatalogPath
	if catalogPath == "" {
		catalogPath, err = paths.CatalogPath()
		if err != nil {
			return fmt.Errorf("resolve catalog path: %w", err)
		}
	}

	store, err := catalog.Open(catalogPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()
	log.Info("catalog opened", "path", catalogPath)

	var lifecycleMeter metric.Meter
	var lifecycleTracer trace.Tracer
	if otelProvider != nil {
		lifecycleMeter = otelProvider.Meter
		lifecycleTracer = otelProvider.TracerFor("glidex/lifecycle")
	}
	mgr := lifecycle.NewManager(store, cfg.FirecrackerBinary, lifecycleMeter, lifecycleTracer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mgr.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize lifecycle manager: %w", err)
	}

	var httpMetrics *glidexmiddleware.HTTPMetrics
	if otelProvider != nil && otelProvider.Meter != nil {
		httpMetrics, err = glidexmiddleware.NewHTTPMetrics(otelProvider.Meter)
		if err != nil {
			log.Warn("failed to create HTTP metrics", "error", err)
			httpMetrics = nil
		}
	}

	server := api.NewServer(mgr, log)
	router := api.NewRouter(server, httpMetrics)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		log.Info("starting glidexd", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			return err
		}
		return nil
	})

	grp.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown http server", "error", err)
			return err
		}
		log.Info("http server shutdown complete")

		mgr.Shutdown(shutdownCtx)
		log.Info("lifecycle manager shutdown complete")

		return nil
	})

	err = grp.Wait()
	log.Info("all goroutines finished")
	return err
}

// checkKVMAccess verifies KVM is available and the calling user has
// permission to use it. Every VM start exec's firecracker,
// which fails immediately without this.
func checkKVMAccess() error {
	f, err := os.OpenFile("/dev/kvm", os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("/dev/kvm not found - KVM not enabled or not supported")
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied accessing /dev/kvm - user not in 'kvm' group")
		}
		return fmt.Errorf("cannot access /dev/kvm: %w", err)
	}
	f.Close()
	return nil
}
