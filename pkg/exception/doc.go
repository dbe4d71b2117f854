// Package exception routes advisory rule failures through an escalation
// workflow.
//
// A request's approval level is computed at creation from its type and
// financial impact using a monotonic threshold table: amounts at or above
// the board threshold route to the board, amounts at or above the director
// threshold route at least to a director, and no amount ever downgrades a
// type's baseline level.
//
// Requests left undecided past the SLA window escalate exactly one level per
// check. The Sweeper runs that check on a cron schedule over a registry of
// open requests.
package exception
