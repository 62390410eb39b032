// Command syncd is the long-running synchronization service: it keeps
// the Huly, Vibe and per-repository Beads issue surfaces in bidirectional
// agreement across the tracked project fleet. All configuration comes
// from the environment; there is no CLI surface beyond the process
// itself.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/oculairmedia/huly-vibe-sync/internal/beadsadapter"
	"github.com/oculairmedia/huly-vibe-sync/internal/config"
	"github.com/oculairmedia/huly-vibe-sync/internal/durability"
	"github.com/oculairmedia/huly-vibe-sync/internal/huly"
	"github.com/oculairmedia/huly-vibe-sync/internal/observability"
	"github.com/oculairmedia/huly-vibe-sync/internal/orchestrator"
	"github.com/oculairmedia/huly-vibe-sync/internal/phaseengine"
	"github.com/oculairmedia/huly-vibe-sync/internal/store"
	"github.com/oculairmedia/huly-vibe-sync/internal/store/sqlite"
	"github.com/oculairmedia/huly-vibe-sync/internal/types"
	"github.com/oculairmedia/huly-vibe-sync/internal/vibe"
	"github.com/oculairmedia/huly-vibe-sync/internal/watchers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "syncd:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	local := config.LoadLocalConfigWithEnv(".")

	logFormat := os.Getenv("LOG_FORMAT")
	log := observability.NewLogger(logFormat, slog.LevelInfo)

	if cfg.HulyAPIURL() == "" || cfg.VibeAPIURL() == "" {
		// Fatal config surfaces at process start only; runtime errors
		// never kill the process.
		return fmt.Errorf("HULY_API_URL and VIBE_API_URL must be set")
	}

	meterShutdown, err := setupMetrics(ctx)
	if err != nil {
		return fmt.Errorf("setting up metrics: %w", err)
	}
	defer meterShutdown(context.Background())

	metrics, err := observability.NewMetrics(log)
	if err != nil {
		return fmt.Errorf("building metrics: %w", err)
	}

	dbPath := os.Getenv("SYNC_DB_PATH")
	if dbPath == "" {
		dbPath = "sync.db"
	}
	st, err := sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	hulyClient := huly.NewClient(cfg.HulyAPIURL(), os.Getenv("HULY_API_TOKEN"), metrics)
	vibeClient := vibe.NewClient(cfg.VibeAPIURL(), os.Getenv("VIBE_API_TOKEN"), metrics)

	dryRun := cfg.DryRun() || local.DryRun
	beadsFor := func(project *types.Project) phaseengine.BeadsAdapter {
		return beadsadapter.New(project.FilesystemPath, cfg.BeadsOperationDelay(), metrics, dryRun)
	}
	engineFor := func(project *types.Project) *phaseengine.Engine {
		return phaseengine.New(st, hulyClient, vibeClient, nil, beadsFor, metrics, log, phaseengine.Options{
			DryRun:  dryRun,
			GitPush: os.Getenv("BEADS_GIT_PUSH") == "true",
		})
	}

	orch := orchestrator.New(st, hulyClient, vibeClient, engineFor, log, orchestrator.Options{
		SkipEmpty:   cfg.SkipEmptyProjects(),
		Parallel:    cfg.ParallelSync(),
		MaxWorkers:  cfg.MaxWorkers(),
		Incremental: cfg.IncrementalSync(),
	})

	if cfg.UseTemporalSync() && local.UseTemporalSync {
		return runTemporal(ctx, cfg, st, orch, engineFor, hulyClient, log)
	}
	return runDirect(ctx, cfg, orch, log)
}

// runTemporal starts the durability-layer worker and the continuous
// scheduled-sync workflow, plus the watchers feeding the workflow queue.
func runTemporal(
	ctx context.Context,
	cfg *config.Config,
	st store.Store,
	orch *orchestrator.Orchestrator,
	engineFor func(*types.Project) *phaseengine.Engine,
	hulyClient *huly.Client,
	log *slog.Logger,
) error {
	hostPort := os.Getenv("TEMPORAL_ADDRESS")
	if hostPort == "" {
		hostPort = "localhost:7233"
	}
	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: hostPort})
	if err != nil {
		return fmt.Errorf("dialing temporal: %w", err)
	}
	defer tc.Close()

	activities := durability.NewActivities(st, orch, engineFor, hulyClient)
	w := durability.NewWorker(tc, activities, log)
	if err := w.Start(); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}
	defer w.Stop()

	scheduler := durability.NewScheduler(tc)

	intervalMinutes := int(cfg.SyncInterval().Round(time.Minute) / time.Minute)
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	if err := scheduler.StartScheduledSync(ctx, intervalMinutes, 0); err != nil {
		log.ErrorContext(ctx, "starting scheduled sync", slog.String("error", err.Error()))
	}

	onBeadsChange := func(projectIdentifier, projectPath string, changedPaths []string) {
		project, err := st.GetProject(ctx, projectIdentifier)
		if err != nil || project == nil {
			log.Error("beads change for unknown project", slog.String("project", projectIdentifier))
			return
		}
		result, err := hulyClient.ListIssues(ctx, projectIdentifier, huly.ListIssuesOptions{
			ModifiedSince:   project.HulySyncCursor,
			IncludeSyncMeta: true,
		})
		if err != nil {
			log.Error("fetching issues for beads change", slog.String("project", projectIdentifier), slog.String("error", err.Error()))
			return
		}
		if err := scheduler.ScheduleBeadsFileChange(ctx, *project, changedPaths, result.Issues, result.SyncMeta); err != nil {
			log.Error("scheduling beads file change workflow", slog.String("project", projectIdentifier), slog.String("error", err.Error()))
		}
	}

	beadsWatcher, err := watchers.NewBeadsWatcher(st, log, onBeadsChange)
	if err != nil {
		return fmt.Errorf("building beads watcher: %w", err)
	}
	go func() {
		if err := beadsWatcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("beads watcher exited", slog.String("error", err.Error()))
		}
	}()

	if subdir := cfg.DocsSubdir(); subdir != "" {
		docsWatcher, err := watchers.NewDocsWatcher(st, subdir, log, func(projectIdentifier, projectPath string, changedPaths []string) {
			log.Info("documentation changed", slog.String("project", projectIdentifier), slog.Int("files", len(changedPaths)))
		})
		if err != nil {
			return fmt.Errorf("building docs watcher: %w", err)
		}
		go func() {
			if err := docsWatcher.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("docs watcher exited", slog.String("error", err.Error()))
			}
		}()
	}

	log.Info("syncd running", slog.String("mode", "temporal"), slog.String("temporal", hostPort))
	<-ctx.Done()
	return nil
}

// runDirect is the USE_TEMPORAL_SYNC=false path: the orchestrator runs on
// a plain in-process timer with no durable replay. Cycles never overlap
//: the next tick is armed only after the previous cycle returns.
func runDirect(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator, log *slog.Logger) error {
	log.Info("syncd running", slog.String("mode", "direct"), slog.Duration("interval", cfg.SyncInterval()))

	for {
		outcome, err := orch.RunCycle(ctx)
		if err != nil {
			log.ErrorContext(ctx, "sync cycle failed", slog.String("error", err.Error()))
		} else {
			log.InfoContext(ctx, "sync cycle complete",
				slog.String("run", outcome.SyncRunID),
				slog.Int("projects", outcome.ProjectsTouched),
				slog.Int("issues", outcome.IssuesTouched),
				slog.Int("errored", outcome.Errored),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.SyncInterval()):
		}
	}
}

// setupMetrics installs the process-global MeterProvider: OTLP over HTTP
// when OTEL_EXPORTER_OTLP_ENDPOINT is set, stdout otherwise.
func setupMetrics(ctx context.Context) (func(context.Context) error, error) {
	var (
		exporter sdkmetric.Exporter
		err      error
	)
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		exporter, err = otlpmetrichttp.New(ctx)
	} else {
		exporter, err = stdoutmetric.New()
	}
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "syncd"),
	)
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(time.Minute))),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}
