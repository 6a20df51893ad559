package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Store reads and writes the task list file.
// Update serializes read-modify-write cycles across processes through an
// advisory lock on <path>.lock; Load and Save on their own do not lock.
type Store struct {
	path string
	log  *zap.Logger
}

// New creates a Store backed by the file at path.
func New(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log.Named("store")}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// LockPath returns the path of the advisory lock file.
func (s *Store) LockPath() string {
	return s.path + ".lock"
}

// Load reads the state file.
// A missing file is created empty. An unreadable or corrupt file is logged
// and left untouched, and an empty state is returned. Load never fails.
func (s *Store) Load() State {
	st, _ := s.load()
	return st
}

// load is Load that also reports whether an existing file could not be used.
func (s *Store) load() (State, bool) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		st := NewState()
		if err := s.Save(st); err == nil {
			s.log.Info("created new state file", zap.String("path", s.path))
		}
		return st, false
	}
	if err != nil {
		s.log.Error("failed to read state file", zap.String("path", s.path), zap.Error(err))
		return NewState(), true
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Error("failed to parse state file, starting empty", zap.String("path", s.path), zap.Error(err))
		return NewState(), true
	}
	if st.normalize() {
		s.log.Warn("state file had missing or duplicate ids, reassigned", zap.String("path", s.path))
	}

	s.log.Debug("loaded state", zap.Int("tasks", len(st.Tasks)), zap.Int("last_task_id", st.NextID))
	return st, false
}

// Update loads the state, applies fn and saves the result while holding the
// state file lock. Nothing is saved if fn returns an error, which Update
// passes through. An unusable state file is moved aside to
// <path>.corrupt-<timestamp> before it is replaced.
func (s *Store) Update(fn func(*State) error) error {
	unlock, err := s.lock()
	if err != nil {
		s.log.Error("failed to lock state file", zap.String("path", s.LockPath()), zap.Error(err))
		return err
	}
	defer unlock()

	st, unusable := s.load()
	if err := fn(&st); err != nil {
		return err
	}
	if unusable {
		if err := s.quarantine(); err != nil {
			s.log.Error("refusing to overwrite unusable state file", zap.String("path", s.path), zap.Error(err))
			return err
		}
	}
	return s.Save(st)
}

// quarantine renames the state file out of the way, keeping its bytes.
func (s *Store) quarantine() error {
	dst := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405.000000000"))
	if err := os.Rename(s.path, dst); err != nil {
		return fmt.Errorf("failed to move unusable state file aside: %w", err)
	}
	s.log.Warn("moved unusable state file aside", zap.String("path", s.path), zap.String("saved_as", dst))
	return nil
}

// Save replaces the state file with st.
// The new content is written to a temporary file in the same directory and
// renamed over the target, so readers see either the old or the new content.
func (s *Store) Save(st State) error {
	if err := s.save(st); err != nil {
		s.log.Error("failed to save state file", zap.String("path", s.path), zap.Error(err))
		return err
	}
	s.log.Debug("saved state", zap.Int("tasks", len(st.Tasks)), zap.Int("last_task_id", st.NextID))
	return nil
}

func (s *Store) save(st State) error {
	if st.Tasks == nil {
		st.Tasks = []Task{}
	}

	data, err := json.MarshalIndent(st, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod state: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename state: %w", err)
	}
	return nil
}
