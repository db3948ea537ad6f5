package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	snapshotVersion = 1
	lockRetryDelay  = 20 * time.Millisecond
)

// fileStore serves queries from memory and rewrites a JSON snapshot of all
// chunks after each mutation. The snapshot is replaced atomically, and a
// sibling .lock file serializes writers across processes, so a server and a
// CLI ingest can share one snapshot. Whenever the file on disk is not the one
// this process last read or wrote, it is reloaded first.
type fileStore struct {
	*memoryStore
	path string
	lock *flock.Flock
	seen os.FileInfo
}

type snapshot struct {
	Version   int             `json:"version"`
	Dimension int             `json:"dimension"`
	Chunks    []snapshotChunk `json:"chunks"`
}

type snapshotChunk struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func newFileStore(ctx context.Context, cfg *Config) (Store, error) {
	path := filepath.Clean(cfg.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("filesystem: create snapshot directory: %w", err)
	}
	s := &fileStore{memoryStore: newMemoryStore(cfg), path: path, lock: flock.New(path + ".lock")}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.withLock(ctx, false, s.refreshLocked); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withLock(ctx, true, func() error {
		if err := s.refreshLocked(); err != nil {
			return err
		}
		if err := s.upsertLocked(records); err != nil {
			return fmt.Errorf("filesystem: %w", err)
		}
		return s.flushLocked()
	})
}

func (s *fileStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if err := s.sync(ctx); err != nil {
		return nil, err
	}
	return s.memoryStore.Search(ctx, query, opts)
}

func (s *fileStore) Delete(ctx context.Context, filter Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withLock(ctx, true, func() error {
		if err := s.refreshLocked(); err != nil {
			return err
		}
		if s.deleteLocked(filter) {
			return s.flushLocked()
		}
		return nil
	})
}

func (s *fileStore) Close(context.Context) error {
	return s.lock.Close()
}

// sync reloads the snapshot when another process replaced it.
func (s *fileStore) sync(ctx context.Context) error {
	s.mu.RLock()
	current := s.isCurrent()
	s.mu.RUnlock()
	if current {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withLock(ctx, false, s.refreshLocked)
}

// withLock runs fn holding the cross-process lock, exclusive for writers.
func (s *fileStore) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	try := s.lock.TryRLockContext
	if exclusive {
		try = s.lock.TryLockContext
	}
	locked, err := try(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("filesystem: lock %s: %w", s.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("filesystem: lock %s: not acquired", s.lock.Path())
	}
	defer s.lock.Unlock()
	return fn()
}

func (s *fileStore) isCurrent() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return s.seen == nil && errors.Is(err, os.ErrNotExist)
	}
	return s.seen != nil && os.SameFile(s.seen, info) &&
		s.seen.ModTime().Equal(info.ModTime()) && s.seen.Size() == info.Size()
}

// refreshLocked replaces the in-memory records with the snapshot on disk
// unless it is the one already loaded. A missing file means an empty store.
func (s *fileStore) refreshLocked() error {
	if s.isCurrent() {
		return nil
	}
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.records = make(map[string]Record)
		s.seen = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("filesystem: open snapshot: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("filesystem: stat snapshot: %w", err)
	}
	var snap snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("filesystem: decode snapshot %s: %w", s.path, err)
	}
	if snap.Dimension != 0 && snap.Dimension != s.dimension {
		return fmt.Errorf("filesystem: snapshot %s holds %d-dimension vectors, configured %d",
			s.path, snap.Dimension, s.dimension)
	}
	records := make([]Record, 0, len(snap.Chunks))
	for _, c := range snap.Chunks {
		records = append(records, Record{ID: c.ID, Text: c.Text, Embedding: c.Embedding, Metadata: c.Metadata})
	}
	s.records = make(map[string]Record, len(records))
	if err := s.upsertLocked(records); err != nil {
		return fmt.Errorf("filesystem: snapshot %s: %w", s.path, err)
	}
	s.seen = info
	return nil
}

func (s *fileStore) flushLocked() error {
	snap := snapshot{Version: snapshotVersion, Dimension: s.dimension, Chunks: make([]snapshotChunk, 0, len(s.records))}
	for _, rec := range s.records {
		snap.Chunks = append(snap.Chunks, snapshotChunk{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: rec.Embedding,
			Metadata:  rec.Metadata,
		})
	}
	slices.SortFunc(snap.Chunks, func(a, b snapshotChunk) int { return strings.Compare(a.ID, b.ID) })

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("filesystem: create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := json.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return fmt.Errorf("filesystem: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filesystem: write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("filesystem: replace snapshot: %w", err)
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("filesystem: stat snapshot: %w", err)
	}
	s.seen = info
	return nil
}
