package snapshot

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-memory map. It is intended for
// tests and enforces the same immutability, size, and chain rules as the
// durable backends.
type MemoryStore struct {
	mu    sync.Mutex
	trips map[string][]*Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trips: make(map[string][]*Snapshot)}
}

// Append stores a snapshot, refusing duplicates of the same identity.
func (s *MemoryStore) Append(snap *Snapshot) (string, error) {
	serialized, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("serialize snapshot: %w", err)
	}
	if len(serialized) > MaxSnapshotBytes {
		return "", ErrSnapshotTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Chain check first, then identity, matching the durable backends.
	existing := s.trips[snap.TripID]
	latest := ""
	if len(existing) > 0 {
		latest = existing[len(existing)-1].ChainHash
	}
	if snap.PreviousHash != latest {
		return "", ErrChainConflict
	}
	for _, prior := range existing {
		if prior.Timestamp.Equal(snap.Timestamp) {
			return "", fmt.Errorf("%w: %s at %s", ErrSnapshotExists, snap.TripID, snap.Timestamp)
		}
	}

	copied := *snap
	s.trips[snap.TripID] = append(existing, &copied)
	return fmt.Sprintf("%s/%s", snap.TripID, snap.Timestamp.UTC().Format(time.RFC3339Nano)), nil
}

// LastChainHash returns the latest chain hash for the trip.
func (s *MemoryStore) LastChainHash(tripID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := s.trips[tripID]
	if len(snaps) == 0 {
		return "", nil
	}
	return snaps[len(snaps)-1].ChainHash, nil
}

// LoadTripSnapshots returns copies of the trip's snapshots in append order.
func (s *MemoryStore) LoadTripSnapshots(tripID string) ([]*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := s.trips[tripID]
	out := make([]*Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		copied := *snap
		out = append(out, &copied)
	}
	return out, nil
}
