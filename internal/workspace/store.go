// Package workspace tracks per-job local scratch directories.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"framelift/internal/infrastructure/logger"
)

// Store maps job ids to scratch directories. The registry is in-memory,
// but paths derive deterministically from the job id so workspaces survive
// a process restart.
type Store struct {
	mu      sync.Mutex
	baseDir string
	dirs    map[string]string
}

func NewStore(baseDir string) *Store {
	return &Store{
		baseDir: baseDir,
		dirs:    make(map[string]string),
	}
}

func (s *Store) pathFor(jobID string) string {
	return filepath.Join(s.baseDir, "job_"+jobID)
}

// Create makes the workspace directory for jobID, registering it. Calling
// Create for an already-live workspace returns the existing path.
func (s *Store) Create(jobID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path, ok := s.dirs[jobID]; ok {
		return path, nil
	}

	path := s.pathFor(jobID)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create workspace for %s: %w", jobID, err)
	}
	s.dirs[jobID] = path
	return path, nil
}

// Get resolves the workspace for jobID. On a registry miss it derives the
// path from the job id and verifies it still exists on disk, re-registering
// it if so.
func (s *Store) Get(jobID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path, ok := s.dirs[jobID]; ok {
		return path, true
	}

	path := s.pathFor(jobID)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}
	s.dirs[jobID] = path
	return path, true
}

// Cleanup removes the workspace unless keepOnError is set, in which case
// the directory is retained on disk for postmortem inspection and only
// remains registered.
func (s *Store) Cleanup(jobID string, keepOnError bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.dirs[jobID]
	if !ok {
		path = s.pathFor(jobID)
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}

	if keepOnError {
		logger.Warn.Printf("retaining workspace %s for inspection", path)
		return nil
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove workspace %s: %w", path, err)
	}
	delete(s.dirs, jobID)
	return nil
}

// CleanupAll removes every registered workspace.
func (s *Store) CleanupAll() error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.dirs))
	for id := range s.dirs {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := s.Cleanup(id, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
