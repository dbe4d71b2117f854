package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Severity classifies the weight of a rule result.
type Severity string

const (
	// SeverityBlocking marks a failure that prevents submission.
	SeverityBlocking Severity = "blocking"

	// SeverityAdvisory marks a failure that is recorded but does not block.
	SeverityAdvisory Severity = "advisory"

	// SeverityInfo is reported for every passing result regardless of the
	// rule's configured severity.
	SeverityInfo Severity = "info"
)

// Result is the outcome of evaluating a single rule against a context.
type Result struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Passed   bool     `json:"passed"`
	Message  string   `json:"message"`
}

// Blocking reports whether the result should prevent submission.
func (r Result) Blocking() bool {
	return !r.Passed && r.Severity == SeverityBlocking
}

// LineItem is a single expense entry inspected by the non-reimbursable rule.
type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// ThirdPartyPayment is an expense entry covered by a third party. Entries
// must be itemized so they can be excluded from reimbursement.
type ThirdPartyPayment struct {
	Description string `json:"description"`
	Itemized    bool   `json:"itemized"`
}

// Context is the input to a policy evaluation. Every field is optional so
// callers can evaluate partial data during intake flows; a rule whose inputs
// are absent reports a passing info result rather than an error.
//
// A Context is constructed fresh per evaluation and never shared or mutated.
type Context struct {
	BookingDate   *time.Time `json:"booking_date,omitempty"`
	DepartureDate *time.Time `json:"departure_date,omitempty"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
	Destination   string     `json:"destination,omitempty"`

	EstimatedCost *decimal.Decimal           `json:"estimated_cost,omitempty"`
	PlannedSpend  map[string]decimal.Decimal `json:"planned_spend,omitempty"`

	SelectedFare *decimal.Decimal `json:"selected_fare,omitempty"`
	LowestFare   *decimal.Decimal `json:"lowest_fare,omitempty"`

	CabinClass          string   `json:"cabin_class,omitempty"`
	FlightDurationHours *float64 `json:"flight_duration_hours,omitempty"`

	FareEvidenceAttached *bool `json:"fare_evidence_attached,omitempty"`

	DrivingCost *decimal.Decimal `json:"driving_cost,omitempty"`
	FlightCost  *decimal.Decimal `json:"flight_cost,omitempty"`

	ComparableHotels []decimal.Decimal `json:"comparable_hotels,omitempty"`

	DistanceFromOfficeMiles *float64 `json:"distance_from_office_miles,omitempty"`
	OvernightStay           *bool    `json:"overnight_stay,omitempty"`

	MealsProvided        *bool `json:"meals_provided,omitempty"`
	MealPerDiemRequested *bool `json:"meal_per_diem_requested,omitempty"`

	Expenses           []LineItem          `json:"expenses,omitempty"`
	ThirdPartyPayments []ThirdPartyPayment `json:"third_party_payments,omitempty"`
}

// RuleDescription is the canonical, lossless description of one configured
// rule. The ordered description list is the input to the policy version hash,
// so it must round-trip every parameter: decimals are serialized as strings
// and set-valued parameters are emitted sorted.
type RuleDescription struct {
	ID       string         `json:"id"`
	Severity Severity       `json:"severity"`
	Params   map[string]any `json:"params"`
}
