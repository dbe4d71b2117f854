package snapshot

import (
	"errors"

	"github.com/stranske/tripward/pkg/policy/engine"
)

// Recheck re-runs a snapshot's recorded input through a (possibly newer)
// engine and returns the fresh results together with a structured comparison
// against the recorded ones. The snapshot itself is never modified.
func Recheck(snap *Snapshot, eng *engine.Engine) ([]engine.Result, Comparison, error) {
	if snap.Input == nil {
		return nil, Comparison{}, errors.New("snapshot has no recorded input data")
	}
	rechecked := eng.Evaluate(snap.Input)
	return rechecked, CompareResults(snap.Results, rechecked), nil
}
