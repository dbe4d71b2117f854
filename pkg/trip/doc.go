// Package trip models trip plans, expense items, and the approval state
// machine.
//
// A plan moves draft -> submitted -> approved | rejected, with flagged
// decisions holding it at submitted. Transitions happen only through
// RecordApprovalDecision, which appends an immutable ApprovalEvent to a
// strictly append-only history and atomically updates the plan's status. The
// history is exposed only as a copying read-only view; no API removes or
// reorders prior events.
//
// The package takes its collaborators (rule engine, snapshot store) by
// injection. When an Auditor is supplied, each recorded decision also
// captures a hash-chained validation snapshot; that is the only point where
// the approval state machine and the snapshot chain touch.
package trip
