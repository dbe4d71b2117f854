package version

import "github.com/stranske/tripward/pkg/policy/engine"

// SimulationResult is the before/after outcome for one historical context.
type SimulationResult struct {
	Context         *engine.Context `json:"context"`
	CurrentResults  []engine.Result `json:"current_results"`
	ProposedResults []engine.Result `json:"proposed_results"`
}

// Simulate replays historical contexts through the current and proposed
// engines and returns the paired results. It is a pure function: no side
// effects, no persistence, and identical output for identical input, so a
// proposed configuration can be validated before it ever touches a live
// snapshot store.
func Simulate(current, proposed *engine.Engine, contexts []*engine.Context) []SimulationResult {
	results := make([]SimulationResult, 0, len(contexts))
	for _, ctx := range contexts {
		results = append(results, SimulationResult{
			Context:         ctx,
			CurrentResults:  current.Evaluate(ctx),
			ProposedResults: proposed.Evaluate(ctx),
		})
	}
	return results
}
