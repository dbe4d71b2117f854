package snapshot

import "github.com/stranske/tripward/pkg/policy/engine"

// Delta is the difference between two validation runs for a single rule.
// A rule present in only one run always counts as changed; a rule present in
// both changed iff its (severity, message, passed) signature differs. The
// match is keyed on rule id, so reordering rules within a configuration
// never produces spurious diffs.
type Delta struct {
	RuleID    string         `json:"rule_id"`
	Original  *engine.Result `json:"original,omitempty"`
	Rechecked *engine.Result `json:"rechecked,omitempty"`
}

// Changed reports whether the rule outcome substantively changed.
func (d Delta) Changed() bool {
	if d.Original == nil || d.Rechecked == nil {
		return true
	}
	return d.Original.Severity != d.Rechecked.Severity ||
		d.Original.Message != d.Rechecked.Message ||
		d.Original.Passed != d.Rechecked.Passed
}

// Comparison is the structured diff between original and re-checked results.
type Comparison struct {
	Changed   []Delta `json:"changed"`
	Unchanged []Delta `json:"unchanged"`
}

// HasDifferences reports whether any rule changed outcome.
func (c Comparison) HasDifferences() bool {
	return len(c.Changed) > 0
}

// CompareResults diffs two result sets keyed by rule id. Output order
// follows the input slices, not map iteration, so comparisons are
// deterministic.
func CompareResults(original, rechecked []engine.Result) Comparison {
	recheckedByID := make(map[string]*engine.Result, len(rechecked))
	for i := range rechecked {
		recheckedByID[rechecked[i].RuleID] = &rechecked[i]
	}
	originalIDs := make(map[string]bool, len(original))

	var comparison Comparison
	for i := range original {
		result := &original[i]
		originalIDs[result.RuleID] = true
		delta := Delta{
			RuleID:    result.RuleID,
			Original:  result,
			Rechecked: recheckedByID[result.RuleID],
		}
		if delta.Changed() {
			comparison.Changed = append(comparison.Changed, delta)
		} else {
			comparison.Unchanged = append(comparison.Unchanged, delta)
		}
	}

	for i := range rechecked {
		result := &rechecked[i]
		if originalIDs[result.RuleID] {
			continue
		}
		comparison.Changed = append(comparison.Changed, Delta{
			RuleID:    result.RuleID,
			Rechecked: result,
		})
	}

	return comparison
}
