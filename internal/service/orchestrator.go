package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"framelift/internal/detector"
	"framelift/internal/domain"
	"framelift/internal/infrastructure/logger"
	"framelift/internal/metrics"
	"framelift/internal/port"
	"framelift/internal/processor"
	"framelift/internal/retry"
	"framelift/internal/workspace"
)

// Progress checkpoints reached as stages complete. Values only move
// forward; JobStatus clamps anything lower.
const (
	progressDownload = 0.15
	progressProbe    = 0.20
	progressExtract  = 0.30
	progressProcess  = 0.60
	progressAssemble = 0.80
	progressUpload   = 0.90
	progressDone     = 1.0
)

type Config struct {
	Prefer       processor.Prefer
	StageRetry   retry.Policy
	Detector     detector.Config
	ArtifactName string
}

func (c *Config) withDefaults() {
	if c.Prefer == "" {
		c.Prefer = processor.PreferAuto
	}
	if c.StageRetry.MaxAttempts == 0 {
		c.StageRetry = retry.DefaultPolicy()
	}
	if c.ArtifactName == "" {
		c.ArtifactName = "output.mp4"
	}
}

// ProcessorFactory selects the concrete backend for each processing stage.
type ProcessorFactory interface {
	Interpolator(prefer processor.Prefer) (port.Interpolator, error)
	Upscaler(prefer processor.Prefer) (port.Upscaler, error)
}

// Deps are the collaborators the orchestrator composes. LogSource may be
// nil when no job runs remotely; Events may be nil.
type Deps struct {
	Workspaces *workspace.Store
	Ledger     port.PendingLedger
	Factory    ProcessorFactory
	Encoder    port.Encoder
	Downloader port.Downloader
	Uploader   port.Uploader
	Confirmer  port.Confirmer
	Logs       port.LogSource
	Events     EventPublisher
	Metrics    *metrics.Metrics
}

// Orchestrator owns a job's lifecycle from submission through verified
// upload.
type Orchestrator struct {
	deps Deps
	cfg  Config

	mu       sync.Mutex
	statuses map[string]*domain.JobStatus
}

func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	cfg.withDefaults()
	return &Orchestrator{
		deps:     deps,
		cfg:      cfg,
		statuses: make(map[string]*domain.JobStatus),
	}
}

// Status returns the mutable progress view for a job, creating it on
// first use. Observers treat it as read-only.
func (o *Orchestrator) Status(jobID string) *domain.JobStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	st, ok := o.statuses[jobID]
	if !ok {
		st = &domain.JobStatus{}
		o.statuses[jobID] = st
	}
	return st
}

// Submit drives the job to a terminal outcome: acquire workspace, download,
// run the mode's stages, assemble, record the pending upload, upload, and
// confirm. On failure the workspace is retained for inspection.
func (o *Orchestrator) Submit(ctx context.Context, job *domain.Job) domain.JobResult {
	status := o.Status(job.ID)
	status.Start()
	defer status.Finish()

	var result domain.JobResult
	_ = o.deps.Metrics.TrackJob(func() error {
		result = o.run(ctx, job, status)
		if !result.Success {
			if result.Err != nil {
				return result.Err
			}
			return errors.New("job failed")
		}
		return nil
	})

	if result.Success {
		o.publish(job.ID, Event{Type: "result", Progress: progressDone, Message: "done"})
		logger.Info.Printf("job %s completed, artifact at %s", job.ID, job.Destination)
	} else {
		o.publish(job.ID, Event{Type: "result", Stage: result.FailedStage, Message: result.Err.Error()})
		logger.Error.Printf("job %s failed at stage %s: %v", job.ID, result.FailedStage, result.Err)
	}
	return result
}

func (o *Orchestrator) run(ctx context.Context, job *domain.Job, status *domain.JobStatus) domain.JobResult {
	wsPath, err := o.deps.Workspaces.Create(job.ID)
	if err != nil {
		return o.fail(job, "", err)
	}
	outPath := filepath.Join(wsPath, o.cfg.ArtifactName)

	skipProcessing := false
	if _, err := os.Stat(outPath); err == nil {
		_, lerr := o.deps.Ledger.Get(job.ID)
		if errors.Is(lerr, domain.ErrNotFound) {
			// Finished artifact, no pending entry: a previous run made it
			// all the way through confirmation. Nothing to recompute.
			logger.Info.Printf("job %s already complete, short-circuiting", job.ID)
			status.Advance(progressDone)
			return domain.JobResult{JobID: job.ID, Success: true, OutputPath: job.Destination}
		}
		if lerr != nil {
			return o.fail(job, "", lerr)
		}
		// Artifact plus pending entry: the upload never confirmed. Resume
		// there instead of reprocessing.
		logger.Info.Printf("job %s has an unconfirmed artifact, resuming at upload", job.ID)
		skipProcessing = true
	}

	if !skipProcessing {
		var stage domain.Stage
		if job.InstanceID != "" {
			stage, err = o.runRemote(ctx, job, status, wsPath, outPath)
		} else {
			stage, err = o.runLocal(ctx, job, status, wsPath, outPath)
		}
		if err != nil {
			return o.fail(job, stage, err)
		}
	}

	if stage, err := o.finalize(ctx, job, status, outPath); err != nil {
		return o.fail(job, stage, err)
	}

	if err := o.deps.Workspaces.Cleanup(job.ID, false); err != nil {
		logger.Warn.Printf("release workspace for job %s: %v", job.ID, err)
	}
	status.Advance(progressDone)
	return domain.JobResult{JobID: job.ID, Success: true, OutputPath: job.Destination}
}

func (o *Orchestrator) fail(job *domain.Job, stage domain.Stage, err error) domain.JobResult {
	// Workspace is deliberately retained so the failure can be inspected
	// without re-running.
	_ = o.deps.Workspaces.Cleanup(job.ID, true)
	return domain.JobResult{JobID: job.ID, Success: false, FailedStage: stage, Err: err}
}

func (o *Orchestrator) runLocal(ctx context.Context, job *domain.Job, status *domain.JobStatus, wsPath, outPath string) (domain.Stage, error) {
	if job.LocalInput() == "" {
		err := o.runStage(ctx, job, status, domain.StageDownload, progressDownload, func(ctx context.Context) error {
			p, err := o.deps.Downloader.Fetch(ctx, job.SourceLocation, wsPath)
			if err != nil {
				return err
			}
			return job.SetLocalInput(p)
		})
		if err != nil {
			return domain.StageDownload, err
		}
	}

	var inputFPS float64
	err := o.runStage(ctx, job, status, domain.StageProbe, progressProbe, func(ctx context.Context) error {
		fps, err := o.deps.Encoder.ProbeFPS(ctx, job.LocalInput())
		if err != nil {
			return err
		}
		inputFPS = fps
		return nil
	})
	if err != nil {
		return domain.StageProbe, err
	}

	framesDir := filepath.Join(wsPath, "frames")
	err = o.runStage(ctx, job, status, domain.StageExtract, progressExtract, func(ctx context.Context) error {
		if err := os.MkdirAll(framesDir, 0755); err != nil {
			return err
		}
		return o.deps.Encoder.ExtractFrames(ctx, job.LocalInput(), framesDir)
	})
	if err != nil {
		return domain.StageExtract, err
	}

	current := framesDir

	if job.Interpolates() {
		interpDir := filepath.Join(wsPath, "interpolated")
		err = o.runStage(ctx, job, status, domain.StageInterpolate, progressProcess, func(ctx context.Context) error {
			interp, err := o.deps.Factory.Interpolator(o.cfg.Prefer)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(interpDir, 0755); err != nil {
				return err
			}
			return interp.Interpolate(ctx, current, interpDir, job.InterpFactor)
		})
		if err != nil {
			return domain.StageInterpolate, err
		}
		current = interpDir
	}

	if job.Upscales() {
		upscaledDir := filepath.Join(wsPath, "upscaled")
		err = o.runStage(ctx, job, status, domain.StageUpscale, progressProcess, func(ctx context.Context) error {
			up, err := o.deps.Factory.Upscaler(o.cfg.Prefer)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(upscaledDir, 0755); err != nil {
				return err
			}
			return up.Upscale(ctx, current, upscaledDir, job.ScaleFactor)
		})
		if err != nil {
			return domain.StageUpscale, err
		}
		current = upscaledDir
	}

	err = o.runStage(ctx, job, status, domain.StageAssemble, progressAssemble, func(ctx context.Context) error {
		return o.deps.Encoder.AssembleVideo(ctx, current, outPath, job.EffectiveFPS(inputFPS))
	})
	if err != nil {
		return domain.StageAssemble, err
	}
	return "", nil
}

// runRemote monitors out-of-process execution on a rented instance. The
// detector owns its own backoff, so the remote stage is not wrapped by the
// stage retry policy.
func (o *Orchestrator) runRemote(ctx context.Context, job *domain.Job, status *domain.JobStatus, wsPath, outPath string) (domain.Stage, error) {
	if o.deps.Logs == nil {
		return domain.StageRemote, fmt.Errorf("job %s requests remote execution but no log source is configured", job.ID)
	}

	err := o.deps.Metrics.TrackStage(string(domain.StageRemote), func() error {
		det := detector.New(o.deps.Logs, job.InstanceID, o.detectorConfig())
		state, err := det.Wait(ctx)
		switch state {
		case detector.StateCompleted:
			return nil
		case detector.StateFailed:
			return fmt.Errorf("%w: instance %s", domain.ErrRemoteFailed, job.InstanceID)
		case detector.StateTimedOut:
			return err
		default:
			return err
		}
	})
	if err != nil {
		return domain.StageRemote, err
	}
	status.Advance(progressProcess)
	o.publish(job.ID, Event{Type: "stage", Stage: domain.StageRemote, Progress: progressProcess})

	err = o.runStage(ctx, job, status, domain.StageFetchResult, progressAssemble, func(ctx context.Context) error {
		p, err := o.deps.Downloader.Fetch(ctx, job.ResultLocation, wsPath)
		if err != nil {
			return err
		}
		if p == outPath {
			return nil
		}
		return os.Rename(p, outPath)
	})
	if err != nil {
		return domain.StageFetchResult, err
	}
	return "", nil
}

func (o *Orchestrator) detectorConfig() detector.Config {
	cfg := o.cfg.Detector
	cfg.OnPoll = func(err error) {
		o.deps.Metrics.LogPolls.Inc()
		if err != nil {
			o.deps.Metrics.LogPollFailures.Inc()
		}
	}
	return cfg
}

// finalize records the pending upload, uploads, and confirms. The ledger
// entry is durable before the first Put, and cleared only after the
// destination positively reports the artifact.
func (o *Orchestrator) finalize(ctx context.Context, job *domain.Job, status *domain.JobStatus, outPath string) (domain.Stage, error) {
	if err := o.deps.Ledger.Record(job.ID, outPath, job.Destination); err != nil {
		return domain.StageUpload, err
	}

	err := o.runStage(ctx, job, status, domain.StageUpload, progressUpload, func(ctx context.Context) error {
		return o.uploadOnce(ctx, job.ID, outPath, job.Destination)
	})
	if err != nil {
		return domain.StageUpload, err
	}

	err = o.runStage(ctx, job, status, domain.StageConfirm, progressDone, func(ctx context.Context) error {
		return o.confirmOnce(ctx, job.Destination)
	})
	if err != nil {
		return domain.StageConfirm, err
	}

	if err := o.deps.Ledger.Confirm(job.ID); err != nil {
		return domain.StageConfirm, err
	}
	return "", nil
}

func (o *Orchestrator) uploadOnce(ctx context.Context, jobID, artifactPath, destination string) error {
	o.deps.Metrics.UploadAttempts.Inc()
	_ = o.deps.Ledger.IncrementAttempts(jobID)
	return o.deps.Uploader.Put(ctx, artifactPath, destination)
}

func (o *Orchestrator) confirmOnce(ctx context.Context, destination string) error {
	ok, err := o.deps.Confirmer.Exists(ctx, destination)
	if err != nil {
		return err
	}
	if !ok {
		return domain.MarkTransient(fmt.Errorf("destination %s does not hold the artifact yet", destination))
	}
	return nil
}

// ResumePending re-drives every ledger entry left by a prior process
// instance. It must run to completion before new jobs are accepted. An
// entry whose upload already landed is confirmed without re-uploading.
func (o *Orchestrator) ResumePending(ctx context.Context) error {
	entries, err := o.deps.Ledger.ListPending()
	if err != nil {
		return fmt.Errorf("load pending uploads: %w", err)
	}

	var errs []error
	for _, p := range entries {
		logger.Info.Printf("resuming pending upload for job %s (attempts so far: %d)", p.JobID, p.Attempts)
		if err := o.resumeOne(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", p.JobID, err))
			continue
		}
		o.deps.Metrics.PendingResumed.Inc()
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) resumeOne(ctx context.Context, p domain.PendingUpload) error {
	// The crash may have hit between network-send and provider-side
	// durability; check the destination before re-uploading.
	ok, err := o.deps.Confirmer.Exists(ctx, p.Destination)
	if err == nil && ok {
		return o.deps.Ledger.Confirm(p.JobID)
	}

	if _, err := os.Stat(p.ArtifactPath); err != nil {
		// Entry stays in the ledger as evidence.
		return fmt.Errorf("artifact %s is gone: %w", p.ArtifactPath, err)
	}

	err = o.cfg.StageRetry.Execute(ctx, func() error {
		return o.uploadOnce(ctx, p.JobID, p.ArtifactPath, p.Destination)
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	err = o.cfg.StageRetry.Execute(ctx, func() error {
		return o.confirmOnce(ctx, p.Destination)
	})
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	return o.deps.Ledger.Confirm(p.JobID)
}

// runStage executes one pipeline stage under the retry policy, times it,
// and advances progress on success. Cancellation is honored at the stage
// boundary.
func (o *Orchestrator) runStage(ctx context.Context, job *domain.Job, status *domain.JobStatus, stage domain.Stage, target float64, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before stage %s: %w", stage, err)
	}

	err := o.deps.Metrics.TrackStage(string(stage), func() error {
		return o.cfg.StageRetry.Execute(ctx, func() error {
			return fn(ctx)
		})
	})
	if err != nil {
		return fmt.Errorf("stage %s: %w", stage, err)
	}

	status.Advance(target)
	o.publish(job.ID, Event{Type: "stage", Stage: stage, Progress: target})
	return nil
}

func (o *Orchestrator) publish(jobID string, event Event) {
	if o.deps.Events != nil {
		o.deps.Events.Publish(jobID, event)
	}
}
