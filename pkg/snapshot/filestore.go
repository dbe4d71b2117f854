package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// timestampLayout produces lexicographically sortable filenames with
// nanosecond precision.
const timestampLayout = "20060102T150405.000000000Z"

// FileStore persists snapshots as one directory per trip with one
// exclusively-created JSON file per snapshot. An existing file at the same
// path causes a write failure rather than a silent overwrite.
type FileStore struct {
	baseDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates the base directory if needed. The path is always
// explicit; there is no environment or working-directory discovery.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New("snapshot base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &FileStore{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// tripLock returns the per-trip mutex, creating it on first use. Appends for
// the same trip are serialized so the previous-hash check and the write
// commit as one step.
func (s *FileStore) tripLock(tripID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[tripID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[tripID] = lock
	}
	return lock
}

func (s *FileStore) tripDir(tripID string) string {
	return filepath.Join(s.baseDir, tripID)
}

// Append persists a snapshot with exclusive-create semantics.
func (s *FileStore) Append(snap *Snapshot) (string, error) {
	serialized, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("serialize snapshot: %w", err)
	}
	if len(serialized) > MaxSnapshotBytes {
		return "", ErrSnapshotTooLarge
	}

	lock := s.tripLock(snap.TripID)
	lock.Lock()
	defer lock.Unlock()

	latest, err := s.lastChainHashLocked(snap.TripID)
	if err != nil {
		return "", err
	}
	if snap.PreviousHash != latest {
		return "", ErrChainConflict
	}

	dir := s.tripDir(snap.TripID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create trip directory: %w", err)
	}

	target := filepath.Join(dir, snap.Timestamp.UTC().Format(timestampLayout)+".json")
	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrSnapshotExists, target)
		}
		return "", fmt.Errorf("create snapshot file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(serialized); err != nil {
		return "", fmt.Errorf("write snapshot file: %w", err)
	}
	return target, nil
}

// LastChainHash returns the chain hash of the trip's most recent snapshot.
func (s *FileStore) LastChainHash(tripID string) (string, error) {
	lock := s.tripLock(tripID)
	lock.Lock()
	defer lock.Unlock()
	return s.lastChainHashLocked(tripID)
}

func (s *FileStore) lastChainHashLocked(tripID string) (string, error) {
	snaps, err := s.loadTripSnapshotsLocked(tripID)
	if err != nil {
		return "", err
	}
	if len(snaps) == 0 {
		return "", nil
	}
	return snaps[len(snaps)-1].ChainHash, nil
}

// LoadTripSnapshots returns all snapshots for a trip in file order, which by
// construction is creation order.
func (s *FileStore) LoadTripSnapshots(tripID string) ([]*Snapshot, error) {
	lock := s.tripLock(tripID)
	lock.Lock()
	defer lock.Unlock()
	return s.loadTripSnapshotsLocked(tripID)
}

func (s *FileStore) loadTripSnapshotsLocked(tripID string) ([]*Snapshot, error) {
	entries, err := os.ReadDir(s.tripDir(tripID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read trip directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	snaps := make([]*Snapshot, 0, len(names))
	for _, name := range names {
		snap, err := s.loadFile(filepath.Join(s.tripDir(tripID), name))
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (s *FileStore) loadFile(path string) (*Snapshot, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}
