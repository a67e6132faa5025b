package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"framelift/config"
	ffmpegenc "framelift/internal/adapter/encoder/ffmpeg"
	"framelift/internal/adapter/remote/httplog"
	"framelift/internal/adapter/storage/localfs"
	"framelift/internal/adapter/transfer/httpfetch"
	"framelift/internal/detector"
	"framelift/internal/domain"
	"framelift/internal/infrastructure/logger"
	"framelift/internal/ledger"
	"framelift/internal/metrics"
	"framelift/internal/port"
	"framelift/internal/processor"
	"framelift/internal/retry"
	"framelift/internal/service"
	"framelift/internal/workspace"
)

func main() {
	var (
		source   = flag.String("source", "", "source video URL")
		dest     = flag.String("dest", "", "destination key for the final artifact")
		mode     = flag.String("mode", "both", "processing mode: interpolate, upscale or both")
		scale    = flag.Int("scale", 0, "upscale factor (2-4, default per mode)")
		interp   = flag.Float64("interp", 0, "interpolation factor (default per mode)")
		fps      = flag.Float64("fps", 0, "explicit target frame rate (0 = derive)")
		instance = flag.String("instance", "", "remote instance id (runs processing remotely)")
		result   = flag.String("result", "", "remote result URL (required with -instance)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error.Printf("failed to load config: %v", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error.Printf("failed to create data directory: %v", err)
		os.Exit(1)
	}

	prefer, err := processor.ParsePrefer(cfg.Prefer)
	if err != nil {
		logger.Error.Printf("invalid PROCESSOR_PREFER: %v", err)
		os.Exit(1)
	}

	pending, err := ledger.NewStore(cfg.DataDir)
	if err != nil {
		logger.Error.Printf("failed to open pending-upload ledger: %v", err)
		os.Exit(1)
	}
	defer func() { _ = pending.Close() }()

	m := metrics.New("framelift", prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			logger.Info.Printf("metrics listening on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error.Printf("metrics server failed: %v", err)
			}
		}()
	}

	var logs port.LogSource
	if cfg.RemoteLogURL != "" {
		logs = httplog.NewSource(cfg.RemoteLogURL, 30*time.Second)
	}

	orch := service.NewOrchestrator(service.Deps{
		Workspaces: workspace.NewStore(cfg.DataDir),
		Ledger:     pending,
		Factory:    processor.NewFactory(nil),
		Encoder:    ffmpegenc.NewEncoder(),
		Downloader: httpfetch.NewFetcher(cfg.DownloadTimeout),
		Uploader:   localfs.NewStore(cfg.DestDir),
		Confirmer:  localfs.NewStore(cfg.DestDir),
		Logs:       logs,
		Events:     service.NewEventBus(),
		Metrics:    m,
	}, service.Config{
		Prefer: prefer,
		StageRetry: retry.Policy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		},
		Detector: detector.Config{
			SuccessMarker:          cfg.SuccessMarker,
			FailureMarker:          cfg.FailureMarker,
			PollInterval:           cfg.PollInterval,
			MaxPollInterval:        cfg.MaxPollInterval,
			MaxWait:                cfg.MaxRemoteWait,
			MaxConsecutiveFailures: cfg.MaxPollFailures,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info.Printf("received %s, cancelling", sig)
		cancel()
	}()

	// Interrupted uploads from a previous run are retried before any new
	// work is accepted.
	if err := orch.ResumePending(ctx); err != nil {
		logger.Error.Printf("pending-upload resume incomplete: %v", err)
		os.Exit(1)
	}

	if *source == "" || *dest == "" {
		logger.Info.Printf("no job given (need -source and -dest), exiting after resume")
		return
	}

	job, err := domain.NewJob(*source, *dest, domain.Mode(*mode), *scale, *interp, *fps)
	if err != nil {
		logger.Error.Printf("rejected job: %v", err)
		os.Exit(1)
	}
	if *instance != "" {
		if *result == "" {
			logger.Error.Printf("-instance requires -result")
			os.Exit(1)
		}
		job.InstanceID = *instance
		job.ResultLocation = *result
	}

	runner := service.NewRunner(orch, cfg.Workers)
	results := runner.SubmitAll(ctx, []*domain.Job{job})
	if !results[0].Success {
		os.Exit(1)
	}
}
