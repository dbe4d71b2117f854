package version

// MigrationPlan is an ordered, human-reviewable sequence of steps for moving
// between two policy versions. Plans are advisory output only; nothing
// executes them automatically.
type MigrationPlan struct {
	Source           Version  `json:"source"`
	Target           Version  `json:"target"`
	BreakingChange   bool     `json:"breaking_change"`
	RequiresDowntime bool     `json:"requires_downtime"`
	Steps            []string `json:"steps"`
}

// MigrationPlanner constructs migration plans that favor zero-downtime
// dual-run rollouts.
type MigrationPlanner struct{}

// BuildPlan emits the stepwise plan from source to target. A major version
// bump marks the plan as breaking and appends a staged rollout step.
func (MigrationPlanner) BuildPlan(source, target Version) MigrationPlan {
	breaking := target.Major != source.Major
	steps := []string{
		"Pin current policy version for in-flight approvals",
		"Deploy proposed policy in shadow mode for regression comparisons",
		"Replay recent historical decisions to surface deltas",
		"Promote proposed policy when deltas are understood and approved",
		"Archive previous policy version for rollback within retention window",
	}
	if breaking {
		steps = append(steps,
			"Schedule staged rollout with opt-in cohorts to guard against breaking behavior")
	}

	return MigrationPlan{
		Source:           source,
		Target:           target,
		BreakingChange:   breaking,
		RequiresDowntime: false,
		Steps:            steps,
	}
}
