// Command jobforge-worker hosts the job-dispatch core and directory
// monitor: it repeatedly calls next_job then work in a pool of worker
// goroutines, and polls enabled dirmon entries on a schedule to
// discover, archive, and enqueue files.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bobmcallan/jobforge/internal/common"
	"github.com/bobmcallan/jobforge/internal/dirmon"
	"github.com/bobmcallan/jobforge/internal/jobqueue"
	"github.com/bobmcallan/jobforge/internal/store"
)

func main() {
	configPath := os.Getenv("JOBFORGE_CONFIG")
	config, err := common.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLogger(config.Logging.Level)
	common.PrintBanner(config, logger)

	manager, err := store.NewManager(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to document store")
	}
	defer manager.Close()

	ctxBoot, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := manager.Jobs().ResetOrphaned(ctxBoot); err != nil {
		logger.Warn().Err(err).Msg("failed to reset orphaned running jobs")
	}
	cancelBoot()

	hub := jobqueue.NewEventHub(logger)
	go hub.Run()
	defer hub.Stop()

	inline := jobqueue.NewInlineMode(config.JobQueue.InlineMode)
	registry := jobqueue.NewRegistry()
	registerJobTypes(registry)

	factory := jobqueue.NewFactory(manager.Jobs(), registry, inline, logger, hub)
	dispatcher := jobqueue.NewDispatcher(manager.Jobs(), logger, hub)

	whitelist := dirmon.NewWhitelist(config.Dirmon.WhitelistPaths...)
	jobTypes := dirmon.NewJobTypeRegistry()
	registerDirmonJobTypes(jobTypes)
	dirmonLifecycle := dirmon.NewLifecycle(manager.Dirmon(), jobTypes, logger, hub)
	// Throttle at half the poll interval: back-to-back ticks always scan,
	// while fsnotify nudge storms are suppressed. A tick that comes within
	// half an interval of a nudge-triggered scan is skipped for that pattern.
	scanner := dirmon.NewScanner(whitelist, config.Dirmon.DefaultArchiveDirectory, logger, config.Dirmon.GetScanInterval()/2)
	dirmonFactory := dirmon.NewFactory(manager.UploadJobs(), logger)
	driver := dirmon.NewDriver(manager.Dirmon(), dirmonLifecycle, scanner, dirmonFactory, logger, config.Dirmon.GetScanInterval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < config.JobQueue.MaxConcurrent; i++ {
		wg.Add(1)
		go runWorkerLoop(ctx, &wg, fmt.Sprintf("worker-%d", i+1), manager, dispatcher, registry, logger, inline, hub, config.JobQueue.GetPollInterval())
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		driver.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", hub.ServeWS)
	srv := &http.Server{Addr: fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port), Handler: mux}
	go func() {
		logger.Info().Int("port", config.Server.Port).Msg("event hub listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("event hub server failed")
		}
	}()

	_ = factory // kept for the host application's perform_later/perform_now surface

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	common.PrintShutdownBanner(logger)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	wg.Wait()
}

// runWorkerLoop repeatedly calls next_job then work, sleeping
// pollInterval between empty polls.
func runWorkerLoop(ctx context.Context, wg *sync.WaitGroup, name string, manager *store.Manager, dispatcher *jobqueue.Dispatcher, registry *jobqueue.Registry, logger *common.Logger, inline *jobqueue.InlineMode, hub *jobqueue.EventHub, pollInterval time.Duration) {
	defer wg.Done()
	worker := jobqueue.NewWorker(name, jobqueue.NewLifecycle(manager.Jobs(), logger), registry, logger, inline, hub)

	var skip []string
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := dispatcher.NextJob(ctx, name, skip)
		if err != nil {
			logger.Error().Str("worker_name", name).Err(err).Msg("next_job failed")
			time.Sleep(pollInterval)
			continue
		}
		if job == nil {
			skip = nil
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
			continue
		}

		excludeFromNextLookup, err := worker.Work(ctx, job)
		if err != nil && inline.Enabled() {
			logger.Error().Str("worker_name", name).Err(err).Msg("job raised under inline mode")
		}
		if excludeFromNextLookup {
			skip = append(skip, job.ID)
		} else {
			skip = nil
		}
	}
}

// registerJobTypes is where the host application wires its
// perform_method handlers into the registry. Left empty here — concrete
// job types belong to the host, not this core.
func registerJobTypes(registry *jobqueue.Registry) {}

// registerDirmonJobTypes wires the job classes a DirmonEntry may target.
// UploadFileJob is the one concrete type this core names.
func registerDirmonJobTypes(registry *dirmon.JobTypeRegistry) {
	registry.Register("UploadFileJob", "job_class_name", "properties", "description", "upload_file_name", "original_file_name", "job_id")
}
