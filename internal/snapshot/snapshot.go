package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"libwatch/internal/fileutil"
	"libwatch/internal/logging"
)

// ItemState holds the tracked measures for one item at one point in time.
// Value is the primary measure (size in GB for the sizes domain, air date in
// fractional days for the status domain). Count is an optional secondary
// integer measure (episode count, status ordinal).
type ItemState struct {
	Value       float64   `json:"value"`
	Count       int       `json:"count,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// Snapshot is the complete keyed state of tracked items at one point in time.
// Snapshots are immutable once read; a new snapshot is built fresh each run
// and replaces the stored one after diffing.
type Snapshot map[string]ItemState

// Clone returns a copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, state := range s {
		out[id] = state
	}
	return out
}

// Store persists one domain's snapshot as a JSON document.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a snapshot store for the given file path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logging.NewComponentLogger(logger, "snapshot"),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot from disk. A missing, empty, or unparsable file is
// treated as "no previous snapshot": Load returns an empty snapshot with
// found=false and never a fatal error.
func (s *Store) Load() (Snapshot, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to read snapshot, treating as first run",
				logging.String("path", s.path),
				logging.Error(err))
		}
		return Snapshot{}, false
	}
	if len(data) == 0 {
		return Snapshot{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("snapshot file corrupt, treating as first run",
			logging.String("path", s.path),
			logging.Error(err))
		return Snapshot{}, false
	}

	cleaned := make(Snapshot, len(snap))
	for id, state := range snap {
		if strings.TrimSpace(id) == "" {
			continue
		}
		cleaned[id] = state
	}

	s.logger.Debug("loaded snapshot",
		logging.Int("item_count", len(cleaned)),
		logging.String("path", s.path))
	return cleaned, true
}

// Save writes the snapshot to disk atomically so a crash mid-run never leaves
// a half-written file. Entries without an explicit timestamp are stamped with
// the current time.
func (s *Store) Save(snap Snapshot) error {
	now := time.Now().UTC()
	stamped := make(Snapshot, len(snap))
	for id, state := range snap {
		if state.LastUpdated.IsZero() {
			state.LastUpdated = now
		}
		stamped[id] = state
	}

	data, err := json.MarshalIndent(stamped, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}

	s.logger.Debug("saved snapshot",
		logging.Int("item_count", len(stamped)),
		logging.String("path", s.path))
	return nil
}
