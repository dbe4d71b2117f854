package snapshot

import "fmt"

// ChainError reports a broken link found while re-walking a snapshot chain.
type ChainError struct {
	Index  int
	TripID string
	Reason string
}

// Error returns the error message.
func (e *ChainError) Error() string {
	return fmt.Sprintf("snapshot chain for %q broken at index %d: %s", e.TripID, e.Index, e.Reason)
}

// VerifyChain re-walks a trip's snapshots in order and checks that every
// content hash, chain hash, and previous-hash link still holds. A forged
// field anywhere in the chain, including a rewritten previous hash, is
// reported as a ChainError.
func VerifyChain(snaps []*Snapshot) error {
	previousChain := ""
	for i, snap := range snaps {
		if snap.PreviousHash != previousChain {
			return &ChainError{
				Index:  i,
				TripID: snap.TripID,
				Reason: fmt.Sprintf("previous hash %q does not match prior chain hash %q",
					snap.PreviousHash, previousChain),
			}
		}

		snapshotHash, chain, err := snap.recomputeHashes()
		if err != nil {
			return err
		}
		if snap.SnapshotHash != snapshotHash {
			return &ChainError{
				Index:  i,
				TripID: snap.TripID,
				Reason: "content does not match recorded snapshot hash",
			}
		}
		if snap.ChainHash != chain {
			return &ChainError{
				Index:  i,
				TripID: snap.TripID,
				Reason: "recorded chain hash does not match recomputed chain hash",
			}
		}

		previousChain = snap.ChainHash
	}
	return nil
}
