package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/JakeFAU/jersey-gallery/internal/crawler"
	"github.com/JakeFAU/jersey-gallery/internal/metrics"
)

// FileStore implements crawler.StateStore on a single JSON file.
type FileStore struct {
	path   string
	mirror Mirror
	logger *zap.Logger
}

// Option customizes a FileStore.
type Option func(*FileStore)

// WithMirror uploads every saved dataset through m.
func WithMirror(m Mirror) Option {
	return func(s *FileStore) {
		s.mirror = m
	}
}

// NewFileStore returns a store rooted at path. Parent directories are
// created on first save.
func NewFileStore(path string, logger *zap.Logger, opts ...Option) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FileStore{path: path, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the dataset file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored progress. A missing or unreadable file is an empty
// state, never an error.
func (s *FileStore) Load(_ context.Context) crawler.CrawlState {
	ds, err := ReadDataset(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("no saved progress, starting fresh", zap.String("path", s.path))
		} else {
			s.logger.Warn("could not load progress, starting fresh", zap.String("path", s.path), zap.Error(err))
		}
		return crawler.CrawlState{}
	}
	state := ds.State()
	s.logger.Info("loaded progress",
		zap.String("path", s.path),
		zap.Int("jerseys", len(state.Jerseys)),
		zap.Int("last_page", state.LastCompletedPage),
		zap.String("resume_url", state.LastURL()))
	return state
}

// Save replaces the dataset file atomically: the JSON is written to a
// temporary sibling, synced, then renamed over the target.
func (s *FileStore) Save(ctx context.Context, state crawler.CrawlState) error {
	data, err := EncodeDataset(NewDataset(state))
	if err == nil {
		err = writeFileAtomic(s.path, data)
	}
	metrics.ObserveStoreSave(err)
	if err != nil {
		return fmt.Errorf("%w: %w", crawler.ErrPersistence, err)
	}
	s.logger.Debug("progress saved",
		zap.Int("jerseys", len(state.Jerseys)),
		zap.Int("last_page", state.LastCompletedPage),
		zap.Int("total_pages", state.TotalPages))

	if s.mirror != nil {
		uri, err := s.mirror.Upload(ctx, data)
		if err != nil {
			s.logger.Warn("dataset mirror failed", zap.Error(err))
		} else {
			s.logger.Debug("dataset mirrored", zap.String("uri", uri))
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // dataset is served publicly
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}
