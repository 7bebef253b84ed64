package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/JakeFAU/econ-dashboard/internal/api"
	"github.com/JakeFAU/econ-dashboard/internal/clock/system"
	"github.com/JakeFAU/econ-dashboard/internal/config"
	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
	"github.com/JakeFAU/econ-dashboard/internal/detector"
	"github.com/JakeFAU/econ-dashboard/internal/dispatcher"
	"github.com/JakeFAU/econ-dashboard/internal/fetcher"
	collyfetcher "github.com/JakeFAU/econ-dashboard/internal/fetcher/colly"
	gcsfetcher "github.com/JakeFAU/econ-dashboard/internal/fetcher/gcs"
	headlessfetcher "github.com/JakeFAU/econ-dashboard/internal/fetcher/headless"
	"github.com/JakeFAU/econ-dashboard/internal/fetcher/local"
	"github.com/JakeFAU/econ-dashboard/internal/fetcher/throttle"
	"github.com/JakeFAU/econ-dashboard/internal/hash/sha256"
	"github.com/JakeFAU/econ-dashboard/internal/id/uuid"
	"github.com/JakeFAU/econ-dashboard/internal/loader"
	"github.com/JakeFAU/econ-dashboard/internal/logging"
	"github.com/JakeFAU/econ-dashboard/internal/metrics"
	pubsubpublisher "github.com/JakeFAU/econ-dashboard/internal/publisher/pubsub"
	"github.com/JakeFAU/econ-dashboard/internal/source/postgres"
	"github.com/JakeFAU/econ-dashboard/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "", "Path to config file")
	envFile := flag.String("env-file", ".env", "Dotenv file with DASHBOARD_* overrides; ignored when missing")
	once := flag.Bool("once", false, "Load every dataset once, print the snapshot as JSON and exit")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracerProvider(ctx, "econ-dashboard")
	if err != nil {
		logger.Warn("tracer provider init failed", zap.Error(err))
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn("tracer provider shutdown failed", zap.Error(err))
			}
		}()
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("resolve display timezone failed", zap.Error(err))
		return 1
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.New(registry)
	if err != nil {
		logger.Error("metrics init failed", zap.Error(err))
		return 1
	}

	deps, cleanup := wire(ctx, cfg, logger)
	defer cleanup()

	clock := system.New(loc)
	sources := throttle.Wrap(deps.router, throttle.New(throttle.Config{
		RatePerSecond: cfg.HTTP.RatePerSecond,
		Burst:         cfg.HTTP.Burst,
	}))
	load := loader.New(
		sources,
		deps.headless,
		detector.NewHeuristic(cfg.Headless.MinBodyBytes),
		postgres.NewRowSource(),
		deps.publisher,
		sha256.New(),
		clock,
		uuid.New(),
		recorder,
		loader.Config{
			Topic:    cfg.PubSub.TopicName,
			Headless: cfg.Headless.Enabled,
			ProxyFor: cfg.ProxyFor,
		},
		logger.Named("loader"),
	)
	dispatch := dispatcher.New(load, clock)

	if *once {
		if err := writeSnapshot(os.Stdout, dispatch.LoadAll(ctx, cfg.Datasets)); err != nil {
			logger.Error("write snapshot failed", zap.Error(err))
			return 1
		}
		return 0
	}

	apiServer := api.NewServer(dispatch, load, cfg, registry, recorder, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port), zap.Int("datasets", len(cfg.Datasets)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return 0
}

// writeSnapshot prints snap as indented JSON.
func writeSnapshot(w io.Writer, snap dashboard.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

type dependencies struct {
	router    *fetcher.Router
	headless  dashboard.Fetcher
	publisher dashboard.Publisher
}

// wire builds the source readers and the publisher. Optional integrations that fail
// to initialize are logged and left out rather than stopping the dashboard.
func wire(ctx context.Context, cfg config.Config, logger *zap.Logger) (dependencies, func()) {
	var closers []func()
	deps := dependencies{
		router: &fetcher.Router{
			HTTP: collyfetcher.New(collyfetcher.Config{
				UserAgent:     cfg.HTTP.UserAgent,
				RespectRobots: cfg.HTTP.RespectRobots,
				Timeout:       cfg.FetchTimeout(),
			}),
		},
	}

	if cfg.Sources.LocalDir != "" {
		reader, err := local.New(local.Config{BaseDir: cfg.Sources.LocalDir})
		if err != nil {
			logger.Warn("local source reader init failed", zap.String("dir", cfg.Sources.LocalDir), zap.Error(err))
		} else {
			deps.router.File = reader
		}
	}

	if cfg.Sources.GCSEnabled {
		client, err := storage.NewClient(ctx)
		if err != nil {
			logger.Warn("gcs client init failed", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = client.Close() })
			reader, err := gcsfetcher.New(client)
			if err != nil {
				logger.Warn("gcs reader init failed", zap.Error(err))
			} else {
				deps.router.GCS = reader
			}
		}
	}

	if cfg.Headless.Enabled {
		headless, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
			MarkerWait:        cfg.MarkerWait(),
		})
		if err != nil {
			logger.Warn("headless fetcher init failed, promotions will keep the static body", zap.Error(err))
			deps.headless = headlessfetcher.NewNoop()
		} else {
			closers = append(closers, headless.Close)
			deps.headless = headless
		}
	}

	if cfg.PubSub.TopicName != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Warn("pubsub client init failed", zap.Error(err))
		} else {
			publisher := pubsubpublisher.New(client)
			closers = append(closers, func() {
				publisher.Close()
				_ = client.Close()
			})
			deps.publisher = publisher
		}
	}

	return deps, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}
