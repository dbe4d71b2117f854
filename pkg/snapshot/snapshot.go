package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/stranske/tripward/pkg/policy/engine"
)

// Snapshot is an immutable record of a single validation run. Both hashes
// are computed at construction and never change afterwards.
type Snapshot struct {
	TripID        string          `json:"trip_id"`
	Timestamp     time.Time       `json:"timestamp"`
	PolicyVersion string          `json:"policy_version"`
	Input         *engine.Context `json:"input_data"`
	Results       []engine.Result `json:"results"`

	// PreviousHash is the chain hash of the trip's previous snapshot, or
	// empty for the first snapshot.
	PreviousHash string `json:"previous_hash,omitempty"`

	// SnapshotHash digests every field above.
	SnapshotHash string `json:"snapshot_hash"`

	// ChainHash links this snapshot to the previous one.
	ChainHash string `json:"chain_hash"`
}

// payload is the hashed portion of a snapshot: everything except the two
// hash fields themselves.
type payload struct {
	TripID        string          `json:"trip_id"`
	Timestamp     time.Time       `json:"timestamp"`
	PolicyVersion string          `json:"policy_version"`
	Input         *engine.Context `json:"input_data"`
	Results       []engine.Result `json:"results"`
	PreviousHash  string          `json:"previous_hash"`
}

func hashPayload(p payload) (string, error) {
	serialized, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("serialize snapshot payload: %w", err)
	}
	canonical, err := jcs.Transform(serialized)
	if err != nil {
		return "", fmt.Errorf("canonicalize snapshot payload: %w", err)
	}
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:]), nil
}

func chainHash(previousHash, snapshotHash string) string {
	digest := sha256.Sum256([]byte(previousHash + snapshotHash))
	return hex.EncodeToString(digest[:])
}

// New captures a snapshot, computing its content and chain hashes. The
// timestamp is normalized to UTC so serialization is deterministic.
func New(tripID string, timestamp time.Time, policyVersion string, input *engine.Context, results []engine.Result, previousHash string) (*Snapshot, error) {
	timestamp = timestamp.UTC()

	snapshotHash, err := hashPayload(payload{
		TripID:        tripID,
		Timestamp:     timestamp,
		PolicyVersion: policyVersion,
		Input:         input,
		Results:       results,
		PreviousHash:  previousHash,
	})
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		TripID:        tripID,
		Timestamp:     timestamp,
		PolicyVersion: policyVersion,
		Input:         input,
		Results:       results,
		PreviousHash:  previousHash,
		SnapshotHash:  snapshotHash,
		ChainHash:     chainHash(previousHash, snapshotHash),
	}, nil
}

// recomputeHashes re-derives both hashes from the snapshot's current fields.
// Used by chain verification to detect tampering.
func (s *Snapshot) recomputeHashes() (snapshotHash, chain string, err error) {
	snapshotHash, err = hashPayload(payload{
		TripID:        s.TripID,
		Timestamp:     s.Timestamp,
		PolicyVersion: s.PolicyVersion,
		Input:         s.Input,
		Results:       s.Results,
		PreviousHash:  s.PreviousHash,
	})
	if err != nil {
		return "", "", err
	}
	return snapshotHash, chainHash(s.PreviousHash, snapshotHash), nil
}
