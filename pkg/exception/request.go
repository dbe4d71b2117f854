package exception

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinJustificationLength is the minimum number of characters required in a
// request's justification.
const MinJustificationLength = 50

// EscalationWindow is the SLA for a pending decision before the request
// escalates one level.
const EscalationWindow = 48 * time.Hour

// Validation errors raised at construction, before any state exists.
var (
	ErrJustificationTooShort = fmt.Errorf("justification must be at least %d characters", MinJustificationLength)
	ErrUnknownType           = errors.New("unknown exception type")
	ErrNegativeAmount        = errors.New("amount must not be negative")
)

// Type is an exception category aligned to an advisory policy rule.
type Type string

const (
	TypeAdvanceBooking  Type = "advance_booking"
	TypeDrivingVsFlying Type = "driving_vs_flying"
	TypeHotelComparison Type = "hotel_comparison"
	TypeLocalOvernight  Type = "local_overnight"
	TypeMealPerDiem     Type = "meal_per_diem"
)

// Level is an approval tier for exception routing, ordered lowest to
// highest.
type Level string

const (
	LevelManager  Level = "manager"
	LevelDirector Level = "director"
	LevelBoard    Level = "board"
)

var levelOrder = []Level{LevelManager, LevelDirector, LevelBoard}

func levelRank(level Level) int {
	for i, l := range levelOrder {
		if l == level {
			return i
		}
	}
	return 0
}

func maxLevel(a, b Level) Level {
	if levelRank(b) > levelRank(a) {
		return b
	}
	return a
}

func nextLevel(level Level) Level {
	index := levelRank(level) + 1
	if index >= len(levelOrder) {
		return levelOrder[len(levelOrder)-1]
	}
	return levelOrder[index]
}

// RequestStatus is the lifecycle status of an exception request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusEscalated RequestStatus = "escalated"
)

// baseLevels maps each exception type to its baseline approval level.
var baseLevels = map[Type]Level{
	TypeAdvanceBooking:  LevelManager,
	TypeDrivingVsFlying: LevelManager,
	TypeHotelComparison: LevelManager,
	TypeLocalOvernight:  LevelDirector,
	TypeMealPerDiem:     LevelManager,
}

var (
	directorThreshold = decimal.NewFromInt(5000)
	boardThreshold    = decimal.NewFromInt(20000)
)

// DetermineApprovalLevel computes the routing level from type and amount.
// The threshold table is monotonic: a large amount can raise the level but
// never lowers the type's baseline.
func DetermineApprovalLevel(requestType Type, amount *decimal.Decimal) (Level, error) {
	level, ok := baseLevels[requestType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, requestType)
	}
	if amount != nil {
		switch {
		case amount.GreaterThanOrEqual(boardThreshold):
			level = maxLevel(level, LevelBoard)
		case amount.GreaterThanOrEqual(directorThreshold):
			level = maxLevel(level, LevelDirector)
		}
	}
	return level, nil
}

// ApprovalRecord is the audit entry for an exception decision.
type ApprovalRecord struct {
	ApproverID string    `json:"approver_id"`
	Level      Level     `json:"level"`
	Timestamp  time.Time `json:"timestamp"`
	Notes      string    `json:"notes,omitempty"`
}

// Request is a request to override an advisory policy rule failure. Identity
// and routing history stay auditable across status transitions.
type Request struct {
	ID             string           `json:"id"`
	Type           Type             `json:"type"`
	Justification  string           `json:"justification"`
	SupportingDocs []string         `json:"supporting_docs,omitempty"`
	Requestor      string           `json:"requestor"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	ApprovalLevel  Level            `json:"approval_level"`
	Status         RequestStatus    `json:"status"`
	Approval       *ApprovalRecord  `json:"approval,omitempty"`
	RequestedAt    time.Time        `json:"requested_at"`
	EscalatedAt    *time.Time       `json:"escalated_at,omitempty"`
}

// NewRequest validates inputs and computes the routing level. A zero
// requestedAt is stamped with the current UTC time.
func NewRequest(requestType Type, justification, requestor string, amount *decimal.Decimal, requestedAt time.Time) (*Request, error) {
	if len(justification) < MinJustificationLength {
		return nil, ErrJustificationTooShort
	}
	if amount != nil && amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	level, err := DetermineApprovalLevel(requestType, amount)
	if err != nil {
		return nil, err
	}
	if requestedAt.IsZero() {
		requestedAt = time.Now().UTC()
	}

	return &Request{
		ID:            uuid.NewString(),
		Type:          requestType,
		Justification: justification,
		Requestor:     requestor,
		Amount:        amount,
		ApprovalLevel: level,
		Status:        StatusPending,
		RequestedAt:   requestedAt,
	}, nil
}

// Approve marks the request approved and records the decision. A zero
// timestamp is stamped with the current UTC time; an empty level keeps the
// request's routing level.
func (r *Request) Approve(approverID string, level Level, notes string, timestamp time.Time) *ApprovalRecord {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	if level == "" {
		level = r.ApprovalLevel
	}
	r.Approval = &ApprovalRecord{
		ApproverID: approverID,
		Level:      level,
		Timestamp:  timestamp,
		Notes:      notes,
	}
	r.Status = StatusApproved
	r.ApprovalLevel = level
	return r.Approval
}

// Reject marks the request rejected.
func (r *Request) Reject() {
	r.Status = StatusRejected
}

// Open reports whether the request still awaits a decision.
func (r *Request) Open() bool {
	return r.Status == StatusPending || r.Status == StatusEscalated
}

// EscalateIfOverdue escalates an open request exactly one level when its age
// since the last escalation (or since submission if never escalated)
// exceeds the SLA window. Within the window the call is a no-op, so repeated
// checks escalate at most once per elapsed window.
func (r *Request) EscalateIfOverdue(now time.Time) bool {
	if !r.Open() {
		return false
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	anchor := r.RequestedAt
	if r.EscalatedAt != nil {
		anchor = *r.EscalatedAt
	}
	if now.Sub(anchor) < EscalationWindow {
		return false
	}

	r.Status = StatusEscalated
	r.EscalatedAt = &now
	r.ApprovalLevel = nextLevel(r.ApprovalLevel)
	return true
}
