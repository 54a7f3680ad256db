package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/newthinker/trendstrength/internal/barometer"
	"github.com/newthinker/trendstrength/internal/core"
	"github.com/newthinker/trendstrength/internal/storage/archive"
)

const rootDir = "snapshots"

// Snapshot is one persisted barometer run
type Snapshot struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	barometer.Table

	Selection []core.InstrumentID `json:"selection,omitempty"`
	TopTrend  []core.InstrumentID `json:"top_trend,omitempty"`
}

// New wraps a table under a fresh run id
func New(table *barometer.Table, now time.Time) *Snapshot {
	return &Snapshot{
		RunID:     uuid.NewString(),
		CreatedAt: now.UTC(),
		Table:     *table,
	}
}

// Path returns the storage path of the snapshot
func (s *Snapshot) Path() string {
	return path.Join(rootDir, s.CreatedAt.Format("2006-01-02"), s.RunID+".json")
}

// Store persists snapshots in archive storage
type Store struct {
	storage archive.Storage
}

// NewStore creates a snapshot store
func NewStore(storage archive.Storage) *Store {
	return &Store{storage: storage}
}

// Save writes snap and returns its path
func (s *Store) Save(ctx context.Context, snap *Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	p := snap.Path()
	if err := s.storage.Write(ctx, p, data); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return p, nil
}

// Load reads the snapshot with the given run id
func (s *Store) Load(ctx context.Context, runID string) (*Snapshot, error) {
	paths, err := s.storage.List(ctx, rootDir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	for _, p := range paths {
		if path.Base(p) == runID+".json" {
			return s.read(ctx, p)
		}
	}
	return nil, core.WrapError(core.ErrSnapshotNotFound, fmt.Errorf("run %s", runID))
}

// Latest returns the most recently created snapshot
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	paths, err := s.storage.List(ctx, rootDir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	if len(paths) == 0 {
		return nil, core.WrapError(core.ErrSnapshotNotFound, errors.New("no snapshots stored"))
	}

	// paths are sorted, so the last date directory holds the newest runs
	lastDay := path.Dir(paths[len(paths)-1])

	var latest *Snapshot
	for _, p := range paths {
		if path.Dir(p) != lastDay || !strings.HasSuffix(p, ".json") {
			continue
		}
		snap, err := s.read(ctx, p)
		if err != nil {
			return nil, err
		}
		if latest == nil || snap.CreatedAt.After(latest.CreatedAt) {
			latest = snap
		}
	}
	if latest == nil {
		return nil, core.WrapError(core.ErrSnapshotNotFound, errors.New("no snapshots stored"))
	}
	return latest, nil
}

func (s *Store) read(ctx context.Context, p string) (*Snapshot, error) {
	data, err := s.storage.Read(ctx, p)
	if errors.Is(err, archive.ErrNotFound) {
		return nil, core.WrapError(core.ErrSnapshotNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", p, err)
	}
	return &snap, nil
}
