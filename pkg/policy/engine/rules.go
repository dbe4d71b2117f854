package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// RuleType identifies one variant in the fixed rule enumeration.
type RuleType string

const (
	RuleAdvanceBooking  RuleType = "advance_booking"
	RuleBudgetLimit     RuleType = "budget_limit"
	RuleDurationLimit   RuleType = "duration_limit"
	RuleFareComparison  RuleType = "fare_comparison"
	RuleCabinClass      RuleType = "cabin_class"
	RuleFareEvidence    RuleType = "fare_evidence"
	RuleDrivingVsFlying RuleType = "driving_vs_flying"
	RuleHotelComparison RuleType = "hotel_comparison"
	RuleLocalOvernight  RuleType = "local_overnight"
	RuleMealPerDiem     RuleType = "meal_per_diem"
	RuleNonReimbursable RuleType = "non_reimbursable"
	RuleThirdPartyPaid  RuleType = "third_party_paid"
)

// ruleOrder fixes registration order so evaluation and the version hash are
// independent of YAML map iteration order.
var ruleOrder = []RuleType{
	RuleAdvanceBooking,
	RuleBudgetLimit,
	RuleDurationLimit,
	RuleFareComparison,
	RuleCabinClass,
	RuleFareEvidence,
	RuleDrivingVsFlying,
	RuleHotelComparison,
	RuleLocalOvernight,
	RuleMealPerDiem,
	RuleNonReimbursable,
	RuleThirdPartyPaid,
}

// params holds the union of all rule parameters. Only the fields belonging
// to a spec's rule type are populated.
type params struct {
	DaysRequired              int
	DaysRequiredInternational int
	InternationalDestinations []string

	TripLimit      *decimal.Decimal
	CategoryLimits map[string]decimal.Decimal

	MaxConsecutiveDays int

	MaxOverLowest decimal.Decimal

	LongHaulHours  float64
	AllowedClasses []string

	MinimumAlternatives int

	MinDistanceMiles float64

	BlockedKeywords []string
}

// ruleSpec is one configured rule: a variant tag, a severity, and the
// variant's parameters.
type ruleSpec struct {
	Type     RuleType
	Severity Severity
	Params   params
}

var foldCaser = cases.Fold()

func fold(s string) string {
	return foldCaser.String(s)
}

// result builds a Result for the rule. Passing results are reported at info
// severity; the configured severity only applies on failure.
func (s ruleSpec) result(passed bool, message string) Result {
	severity := s.Severity
	if passed {
		severity = SeverityInfo
	}
	return Result{
		RuleID:   string(s.Type),
		Severity: severity,
		Passed:   passed,
		Message:  message,
	}
}

// evaluate dispatches to the rule variant. The dispatch covers the full rule
// enumeration; FromConfig guarantees no other type reaches it.
func (s ruleSpec) evaluate(ctx *Context) Result {
	switch s.Type {
	case RuleAdvanceBooking:
		return s.evaluateAdvanceBooking(ctx)
	case RuleBudgetLimit:
		return s.evaluateBudgetLimit(ctx)
	case RuleDurationLimit:
		return s.evaluateDurationLimit(ctx)
	case RuleFareComparison:
		return s.evaluateFareComparison(ctx)
	case RuleCabinClass:
		return s.evaluateCabinClass(ctx)
	case RuleFareEvidence:
		return s.evaluateFareEvidence(ctx)
	case RuleDrivingVsFlying:
		return s.evaluateDrivingVsFlying(ctx)
	case RuleHotelComparison:
		return s.evaluateHotelComparison(ctx)
	case RuleLocalOvernight:
		return s.evaluateLocalOvernight(ctx)
	case RuleMealPerDiem:
		return s.evaluateMealPerDiem(ctx)
	case RuleNonReimbursable:
		return s.evaluateNonReimbursable(ctx)
	case RuleThirdPartyPaid:
		return s.evaluateThirdPartyPaid(ctx)
	default:
		return s.result(true, fmt.Sprintf("Rule %q has no evaluator", s.Type))
	}
}

// daysBetween returns whole calendar days from a to b, ignoring the time of
// day and zone of either value.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

func (s ruleSpec) isInternational(destination string) bool {
	folded := fold(destination)
	for _, keyword := range s.Params.InternationalDestinations {
		if strings.Contains(folded, fold(keyword)) {
			return true
		}
	}
	return false
}

func (s ruleSpec) evaluateAdvanceBooking(ctx *Context) Result {
	if ctx.BookingDate == nil || ctx.DepartureDate == nil {
		return s.result(true, "Advance booking check skipped due to missing dates")
	}

	required := s.Params.DaysRequired
	if s.Params.DaysRequiredInternational > 0 && s.isInternational(ctx.Destination) {
		required = s.Params.DaysRequiredInternational
	}

	daysNotice := daysBetween(*ctx.BookingDate, *ctx.DepartureDate)
	if daysNotice < required {
		return s.result(false, fmt.Sprintf(
			"Bookings should be made at least %d days in advance; only %d days provided.",
			required, daysNotice))
	}
	return s.result(true, fmt.Sprintf(
		"Booked %d days in advance (minimum %d).", daysNotice, required))
}

// evaluateBudgetLimit reports a single result covering every breached limit.
// Categories without a planned amount count as zero spend.
func (s ruleSpec) evaluateBudgetLimit(ctx *Context) Result {
	if ctx.EstimatedCost == nil && len(ctx.PlannedSpend) == 0 {
		return s.result(true, "Budget limit check skipped due to missing cost data")
	}

	var breaches []string
	if s.Params.TripLimit != nil && ctx.EstimatedCost != nil && ctx.EstimatedCost.GreaterThan(*s.Params.TripLimit) {
		breaches = append(breaches, fmt.Sprintf(
			"estimated cost %s exceeds trip limit %s", ctx.EstimatedCost, s.Params.TripLimit))
	}
	for _, category := range sortedKeys(s.Params.CategoryLimits) {
		limit := s.Params.CategoryLimits[category]
		planned := ctx.PlannedSpend[category]
		if planned.GreaterThan(limit) {
			breaches = append(breaches, fmt.Sprintf(
				"planned %s spend %s exceeds limit %s", category, planned, limit))
		}
	}

	if len(breaches) > 0 {
		return s.result(false, "Budget limits exceeded: "+strings.Join(breaches, "; ")+".")
	}
	return s.result(true, "Planned spend is within the configured budget limits.")
}

func (s ruleSpec) evaluateDurationLimit(ctx *Context) Result {
	if ctx.DepartureDate == nil || ctx.ReturnDate == nil {
		return s.result(true, "Duration limit check skipped due to missing travel dates")
	}

	duration := daysBetween(*ctx.DepartureDate, *ctx.ReturnDate) + 1
	if duration > s.Params.MaxConsecutiveDays {
		return s.result(false, fmt.Sprintf(
			"Trip duration %d days exceeds the %d day maximum.",
			duration, s.Params.MaxConsecutiveDays))
	}
	return s.result(true, fmt.Sprintf(
		"Trip duration %d days is within the %d day maximum.",
		duration, s.Params.MaxConsecutiveDays))
}

func sortedKeys(limits map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(limits))
	for key := range limits {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s ruleSpec) evaluateFareComparison(ctx *Context) Result {
	if ctx.SelectedFare == nil || ctx.LowestFare == nil {
		return s.result(true, "Fare comparison skipped due to missing fare data")
	}

	overage := ctx.SelectedFare.Sub(*ctx.LowestFare)
	if overage.GreaterThan(s.Params.MaxOverLowest) {
		return s.result(false, fmt.Sprintf(
			"Selected fare exceeds lowest available by %s which is above the %s allowable threshold.",
			overage, s.Params.MaxOverLowest))
	}
	return s.result(true, fmt.Sprintf(
		"Fare within %s of lowest available.", s.Params.MaxOverLowest))
}

func (s ruleSpec) evaluateCabinClass(ctx *Context) Result {
	if ctx.CabinClass == "" || ctx.FlightDurationHours == nil {
		return s.result(true, "Cabin class check skipped due to missing flight details")
	}

	cabin := fold(ctx.CabinClass)
	duration := *ctx.FlightDurationHours
	if duration <= s.Params.LongHaulHours && !containsFolded(s.Params.AllowedClasses, cabin) {
		return s.result(false, fmt.Sprintf(
			"Flights under %g hours must use allowed cabins [%s]; requested '%s'.",
			s.Params.LongHaulHours, strings.Join(s.Params.AllowedClasses, ", "), ctx.CabinClass))
	}
	return s.result(true, fmt.Sprintf(
		"Cabin '%s' acceptable for %g hour flight.", ctx.CabinClass, duration))
}

func containsFolded(values []string, folded string) bool {
	for _, v := range values {
		if fold(v) == folded {
			return true
		}
	}
	return false
}

func (s ruleSpec) evaluateFareEvidence(ctx *Context) Result {
	if ctx.FareEvidenceAttached != nil && *ctx.FareEvidenceAttached {
		return s.result(true, "Fare evidence attached")
	}
	return s.result(false, "Screenshot or fare evidence must be attached to the request.")
}

func (s ruleSpec) evaluateDrivingVsFlying(ctx *Context) Result {
	if ctx.DrivingCost == nil || ctx.FlightCost == nil {
		return s.result(true, "Driving vs flying comparison skipped due to missing estimates")
	}

	if ctx.DrivingCost.GreaterThan(*ctx.FlightCost) {
		return s.result(false, fmt.Sprintf(
			"Driving estimate %s exceeds flight estimate %s; reimbursement will be limited to the lesser cost.",
			ctx.DrivingCost, ctx.FlightCost))
	}
	return s.result(true, "Driving is lower or equal cost compared to flying.")
}

func (s ruleSpec) evaluateHotelComparison(ctx *Context) Result {
	supplied := len(ctx.ComparableHotels)
	if supplied < s.Params.MinimumAlternatives {
		return s.result(false, fmt.Sprintf(
			"Provide at least %d comparable hotel rates; %d supplied.",
			s.Params.MinimumAlternatives, supplied))
	}
	return s.result(true, fmt.Sprintf(
		"%d comparable hotels provided (minimum %d).", supplied, s.Params.MinimumAlternatives))
}

func (s ruleSpec) evaluateLocalOvernight(ctx *Context) Result {
	if ctx.OvernightStay == nil || !*ctx.OvernightStay {
		return s.result(true, "No overnight stay requested")
	}
	if ctx.DistanceFromOfficeMiles == nil {
		return s.result(true, "Local overnight check skipped due to missing distance data")
	}
	distance := *ctx.DistanceFromOfficeMiles
	if distance < s.Params.MinDistanceMiles {
		return s.result(false, fmt.Sprintf(
			"Overnight stays within %g miles require waiver; distance is %g miles.",
			s.Params.MinDistanceMiles, distance))
	}
	return s.result(true, fmt.Sprintf(
		"Overnight stay is %g miles from office (minimum %g).",
		distance, s.Params.MinDistanceMiles))
}

func (s ruleSpec) evaluateMealPerDiem(ctx *Context) Result {
	provided := ctx.MealsProvided != nil && *ctx.MealsProvided
	requested := ctx.MealPerDiemRequested != nil && *ctx.MealPerDiemRequested
	if provided && requested {
		return s.result(false,
			"Meal per diem should exclude conference-provided meals; adjust the request accordingly.")
	}
	return s.result(true, "Meal per diem request aligns with provided meals.")
}

func (s ruleSpec) evaluateNonReimbursable(ctx *Context) Result {
	for _, expense := range ctx.Expenses {
		description := fold(expense.Description)
		for _, keyword := range s.Params.BlockedKeywords {
			if strings.Contains(description, fold(keyword)) {
				return s.result(false, fmt.Sprintf(
					"Expense '%s' includes non-reimbursable items (%s).",
					expense.Description, strings.Join(s.Params.BlockedKeywords, ", ")))
			}
		}
	}
	return s.result(true, "No non-reimbursable items detected.")
}

func (s ruleSpec) evaluateThirdPartyPaid(ctx *Context) Result {
	for _, payment := range ctx.ThirdPartyPayments {
		if payment.Itemized {
			continue
		}
		description := payment.Description
		if description == "" {
			description = "third-party payment"
		}
		return s.result(false, fmt.Sprintf(
			"Third-party payment '%s' must be itemized and excluded from reimbursement.",
			description))
	}
	return s.result(true, "Third-party payments are properly itemized or none provided.")
}
