package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeInterpolate Mode = "interpolate"
	ModeUpscale     Mode = "upscale"
	ModeBoth        Mode = "both"
)

// Stage names for pipeline progress and failure reporting.
type Stage string

const (
	StageDownload    Stage = "download"
	StageProbe       Stage = "probe"
	StageExtract     Stage = "extract"
	StageInterpolate Stage = "interpolate"
	StageUpscale     Stage = "upscale"
	StageRemote      Stage = "remote"
	StageFetchResult Stage = "fetch_result"
	StageAssemble    Stage = "assemble"
	StageUpload      Stage = "upload"
	StageConfirm     Stage = "confirm"
)

// Job is the immutable identity and intent of one unit of work.
// LocalInputPath is the only field set after construction, exactly once,
// when the source has been downloaded.
type Job struct {
	ID             string
	SourceLocation string
	Destination    string
	Mode           Mode
	ScaleFactor    int
	InterpFactor   float64
	TargetFPS      float64

	// InstanceID is set when the processing stage runs on a rented remote
	// instance; ResultLocation is where that instance publishes its output.
	InstanceID     string
	ResultLocation string

	CreatedAt time.Time

	localInputPath string
}

func NewJob(source, destination string, mode Mode, scale int, interpFactor, targetFPS float64) (*Job, error) {
	switch mode {
	case ModeInterpolate, ModeUpscale, ModeBoth:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	if source == "" {
		return nil, fmt.Errorf("%w: source location is required", ErrInvalidParam)
	}
	if destination == "" {
		return nil, fmt.Errorf("%w: destination is required", ErrInvalidParam)
	}

	if mode == ModeUpscale || mode == ModeBoth {
		if scale == 0 {
			scale = 2
		}
		if scale < 2 || scale > 4 {
			return nil, fmt.Errorf("%w: scale factor %d (must be 2-4)", ErrInvalidParam, scale)
		}
	}

	if mode == ModeInterpolate || mode == ModeBoth {
		if interpFactor == 0 {
			interpFactor = 2.0
		}
		if interpFactor < 1 {
			return nil, fmt.Errorf("%w: interpolation factor %g (must be >= 1)", ErrInvalidParam, interpFactor)
		}
	}

	if targetFPS < 0 {
		return nil, fmt.Errorf("%w: target fps %g", ErrInvalidParam, targetFPS)
	}

	return &Job{
		ID:             uuid.NewString(),
		SourceLocation: source,
		Destination:    destination,
		Mode:           mode,
		ScaleFactor:    scale,
		InterpFactor:   interpFactor,
		TargetFPS:      targetFPS,
		CreatedAt:      time.Now(),
	}, nil
}

func (j *Job) Interpolates() bool {
	return j.Mode == ModeInterpolate || j.Mode == ModeBoth
}

func (j *Job) Upscales() bool {
	return j.Mode == ModeUpscale || j.Mode == ModeBoth
}

// EffectiveFPS derives the output frame rate. An explicit target always
// wins; otherwise interpolating modes multiply the input rate and
// upscale-only keeps it.
func (j *Job) EffectiveFPS(inputFPS float64) float64 {
	if j.TargetFPS > 0 {
		return j.TargetFPS
	}
	if j.Interpolates() {
		return inputFPS * j.InterpFactor
	}
	return inputFPS
}

// SetLocalInput records where the downloaded source landed. The path is
// write-once.
func (j *Job) SetLocalInput(path string) error {
	if j.localInputPath != "" {
		return fmt.Errorf("local input path already set to %s", j.localInputPath)
	}
	j.localInputPath = path
	return nil
}

func (j *Job) LocalInput() string {
	return j.localInputPath
}

// JobStatus is the polled view of a running job. Progress never decreases.
type JobStatus struct {
	mu       sync.Mutex
	running  bool
	progress float64
}

func (s *JobStatus) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

func (s *JobStatus) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Advance moves progress forward to p. Values at or below the current
// progress are ignored.
func (s *JobStatus) Advance(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p > 1 {
		p = 1
	}
	if p > s.progress {
		s.progress = p
	}
}

func (s *JobStatus) Snapshot() (running bool, progress float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.progress
}

// JobResult is the terminal outcome, produced exactly once per submission.
type JobResult struct {
	JobID       string
	Success     bool
	OutputPath  string
	FailedStage Stage
	Err         error
}

// PendingUpload is the durable record that an artifact exists locally but
// has not been confirmed present at its destination.
type PendingUpload struct {
	JobID        string
	ArtifactPath string
	Destination  string
	CreatedAt    time.Time
	Attempts     int64
}
