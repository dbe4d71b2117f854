package trip

import (
	"errors"
	"time"
)

// ErrOverrideWithoutJustification indicates an override decision missing its
// required justification. The error is raised at construction time, before
// any state changes.
var ErrOverrideWithoutJustification = errors.New("override decisions require justification text")

// Outcome is the result of an approval workflow decision.
type Outcome string

const (
	OutcomeApproved   Outcome = "approved"
	OutcomeRejected   Outcome = "rejected"
	OutcomeFlagged    Outcome = "flagged"
	OutcomeOverridden Outcome = "overridden"
)

// ApprovalEvent is an immutable audit record for a single approval or
// override decision. Events are value types; once constructed their fields
// never change.
type ApprovalEvent struct {
	ApproverID     string    `json:"approver_id"`
	Level          string    `json:"level"`
	Outcome        Outcome   `json:"outcome"`
	Timestamp      time.Time `json:"timestamp"`
	Justification  string    `json:"justification,omitempty"`
	PreviousStatus Status    `json:"previous_status"`
	NewStatus      Status    `json:"new_status"`
}

// newApprovalEvent validates the override invariant before constructing the
// event.
func newApprovalEvent(approverID, level string, outcome Outcome, timestamp time.Time, justification string, previous, next Status) (ApprovalEvent, error) {
	if outcome == OutcomeOverridden && justification == "" {
		return ApprovalEvent{}, ErrOverrideWithoutJustification
	}
	return ApprovalEvent{
		ApproverID:     approverID,
		Level:          level,
		Outcome:        outcome,
		Timestamp:      timestamp,
		Justification:  justification,
		PreviousStatus: previous,
		NewStatus:      next,
	}, nil
}

// approvalLog is a strictly append-only event sequence. It exposes append
// and a copying snapshot only; there is no in-place mutation or removal.
type approvalLog struct {
	events []ApprovalEvent
}

func (l *approvalLog) append(event ApprovalEvent) {
	l.events = append(l.events, event)
}

// snapshot returns a copy of the log; mutating the returned slice does not
// affect the log.
func (l *approvalLog) snapshot() []ApprovalEvent {
	out := make([]ApprovalEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *approvalLog) len() int {
	return len(l.events)
}
