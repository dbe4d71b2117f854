package trip

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stranske/tripward/pkg/exception"
	"github.com/stranske/tripward/pkg/policy/engine"
	"github.com/stranske/tripward/pkg/policy/version"
	"github.com/stranske/tripward/pkg/snapshot"
)

// Status of a trip plan.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Plan is a trip plan moving through the approval workflow. Its approval
// history is append-only and reachable only through ApprovalHistory.
type Plan struct {
	TripID        string          `json:"trip_id"`
	TravelerName  string          `json:"traveler_name"`
	Destination   string          `json:"destination"`
	BookingDate   *time.Time      `json:"booking_date,omitempty"`
	DepartureDate time.Time       `json:"departure_date"`
	ReturnDate    time.Time       `json:"return_date"`
	Purpose       string          `json:"purpose"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Status        Status          `json:"status"`

	// ExpenseBreakdown is the planned spend per category.
	ExpenseBreakdown map[ExpenseCategory]decimal.Decimal `json:"expense_breakdown,omitempty"`

	// Expenses are itemized entries attached so far; they feed the
	// non-reimbursable and third-party policy rules.
	Expenses []ExpenseItem `json:"expenses,omitempty"`

	// ValidationResults holds the results of the most recent validation.
	ValidationResults []engine.Result `json:"validation_results,omitempty"`

	// ExceptionRequests are requests to override advisory rule failures.
	ExceptionRequests []*exception.Request `json:"exception_requests,omitempty"`

	history approvalLog
}

// DurationDays is the trip length in days, inclusive of both travel days.
func (p *Plan) DurationDays() int {
	return int(p.ReturnDate.Sub(p.DepartureDate).Hours()/24) + 1
}

// PolicyContext maps the plan into a fresh evaluation context.
func (p *Plan) PolicyContext() *engine.Context {
	ctx := &engine.Context{
		BookingDate:        p.BookingDate,
		Destination:        p.Destination,
		Expenses:           lineItems(p.Expenses),
		ThirdPartyPayments: thirdPartyPayments(p.Expenses),
	}
	if !p.DepartureDate.IsZero() {
		departure := p.DepartureDate
		ctx.DepartureDate = &departure
	}
	if !p.ReturnDate.IsZero() {
		returnDate := p.ReturnDate
		ctx.ReturnDate = &returnDate
	}
	if !p.EstimatedCost.IsZero() {
		cost := p.EstimatedCost
		ctx.EstimatedCost = &cost
	}
	if len(p.ExpenseBreakdown) > 0 {
		ctx.PlannedSpend = make(map[string]decimal.Decimal, len(p.ExpenseBreakdown))
		for category, amount := range p.ExpenseBreakdown {
			ctx.PlannedSpend[string(category)] = amount
		}
	}
	if driving, ok := p.ExpenseBreakdown[CategoryGroundTransport]; ok {
		ctx.DrivingCost = &driving
	}
	if flight, ok := p.ExpenseBreakdown[CategoryAirfare]; ok {
		ctx.FlightCost = &flight
	}
	return ctx
}

// RunValidation evaluates the plan with the injected engine and records the
// results on the plan.
func (p *Plan) RunValidation(eng *engine.Engine) []engine.Result {
	results := eng.Evaluate(p.PolicyContext())
	p.ValidationResults = results
	return results
}

// ApprovalHistory returns a read-only copy of the approval event sequence in
// decision order.
func (p *Plan) ApprovalHistory() []ApprovalEvent {
	return p.history.snapshot()
}

// AddExceptionRequest attaches an exception request to the plan.
func (p *Plan) AddExceptionRequest(request *exception.Request) {
	p.ExceptionRequests = append(p.ExceptionRequests, request)
}

// Decision is one approval workflow decision to record. A zero Timestamp is
// stamped with the current UTC time.
type Decision struct {
	ApproverID    string
	Level         string
	Outcome       Outcome
	Justification string
	Timestamp     time.Time
}

// nextStatus is the fixed outcome -> status mapping.
func (p *Plan) nextStatus(outcome Outcome) Status {
	switch outcome {
	case OutcomeApproved, OutcomeOverridden:
		return StatusApproved
	case OutcomeRejected:
		return StatusRejected
	case OutcomeFlagged:
		return StatusSubmitted
	}
	return p.Status
}

// RecordApprovalDecision validates the decision, appends one immutable
// ApprovalEvent carrying the status before and after, and atomically updates
// the plan's status. Validation failures happen before any mutation.
//
// When auditor is non-nil the decision also captures a chained validation
// snapshot; a snapshot storage failure is returned after the event has been
// recorded, since the decision itself already happened.
func (p *Plan) RecordApprovalDecision(decision Decision, auditor *Auditor) (ApprovalEvent, error) {
	timestamp := decision.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	newStatus := p.nextStatus(decision.Outcome)
	event, err := newApprovalEvent(
		decision.ApproverID,
		decision.Level,
		decision.Outcome,
		timestamp,
		decision.Justification,
		p.Status,
		newStatus,
	)
	if err != nil {
		return ApprovalEvent{}, err
	}

	p.history.append(event)
	p.Status = newStatus

	if auditor != nil {
		if err := auditor.SnapshotPlan(p, timestamp); err != nil {
			return event, fmt.Errorf("audit snapshot: %w", err)
		}
	}
	return event, nil
}

// Auditor couples approval decisions to the snapshot chain. It re-validates
// the plan, computes the policy version hash, seeds the previous hash from
// the store's latest chain link, and appends a new chained snapshot.
type Auditor struct {
	Engine *engine.Engine
	Store  snapshot.Store
}

// SnapshotPlan captures a chained validation snapshot for the plan.
func (a *Auditor) SnapshotPlan(p *Plan, timestamp time.Time) error {
	results := p.ValidationResults
	input := p.PolicyContext()
	if results == nil {
		results = a.Engine.Evaluate(input)
		p.ValidationResults = results
	}

	configHash, err := version.HashConfig(a.Engine.DescribeRules())
	if err != nil {
		return err
	}
	previous, err := a.Store.LastChainHash(p.TripID)
	if err != nil {
		return err
	}

	snap, err := snapshot.New(p.TripID, timestamp, configHash, input, results, previous)
	if err != nil {
		return err
	}
	_, err = a.Store.Append(snap)
	return err
}
