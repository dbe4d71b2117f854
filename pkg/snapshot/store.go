package snapshot

import (
	"errors"
	"fmt"
)

// MaxSnapshotBytes is the serialized size ceiling for a single snapshot.
// Larger snapshots are rejected at append time; callers must trim the input
// data before snapshotting large entities.
const MaxSnapshotBytes = 10 * 1024

// Storage errors. Callers must not retry an append with the same identity,
// only with corrected or trimmed content.
var (
	// ErrSnapshotExists indicates an append would overwrite an existing
	// snapshot identity.
	ErrSnapshotExists = errors.New("snapshot already exists")

	// ErrSnapshotTooLarge indicates the serialized snapshot exceeds
	// MaxSnapshotBytes.
	ErrSnapshotTooLarge = fmt.Errorf("snapshot exceeds %d bytes", MaxSnapshotBytes)

	// ErrChainConflict indicates the snapshot's previous hash no longer
	// matches the trip's latest chain link. A concurrent append won the
	// race; re-read the chain head and rebuild the snapshot.
	ErrChainConflict = errors.New("snapshot previous hash does not match latest chain link")
)

// Store is append-only storage for validation snapshots. Implementations
// must be safe for concurrent use and must serialize appends per trip so the
// previous-hash check and the commit are atomic.
type Store interface {
	// Append persists a snapshot and returns its storage location. It fails
	// with ErrSnapshotExists when the identity (trip + timestamp) is taken,
	// ErrSnapshotTooLarge when the serialized form exceeds the ceiling, and
	// ErrChainConflict when the previous hash is stale.
	Append(snap *Snapshot) (string, error)

	// LastChainHash returns the chain hash of the trip's most recent
	// snapshot, or the empty string when the trip has none. Callers use it
	// to seed PreviousHash on the next append.
	LastChainHash(tripID string) (string, error)

	// LoadTripSnapshots returns all snapshots for a trip in creation order.
	LoadTripSnapshots(tripID string) ([]*Snapshot, error)
}
