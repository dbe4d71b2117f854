package trip

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stranske/tripward/pkg/policy/engine"
)

// ErrThirdPartyExplanationRequired indicates an expense covered by a third
// party without the mandatory explanation.
var ErrThirdPartyExplanationRequired = errors.New("third-party paid expenses require an explanation")

// ExpenseCategory classifies expense items.
type ExpenseCategory string

const (
	CategoryAirfare         ExpenseCategory = "airfare"
	CategoryLodging         ExpenseCategory = "lodging"
	CategoryGroundTransport ExpenseCategory = "ground_transport"
	CategoryMeals           ExpenseCategory = "meals"
	CategoryConferenceFees  ExpenseCategory = "conference_fees"
	CategoryOther           ExpenseCategory = "other"
)

// ExpenseItem is a single expense in a report.
type ExpenseItem struct {
	Category        ExpenseCategory `json:"category"`
	Description     string          `json:"description"`
	Vendor          string          `json:"vendor,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	ExpenseDate     time.Time       `json:"expense_date"`
	ReceiptAttached bool            `json:"receipt_attached"`

	// ThirdPartyPaid marks expenses covered by someone other than the
	// traveler; such expenses are excluded from reimbursement and require
	// an explanation.
	ThirdPartyPaid            bool   `json:"third_party_paid"`
	ThirdPartyPaidExplanation string `json:"third_party_paid_explanation,omitempty"`
}

// Validate enforces construction invariants on the item.
func (e ExpenseItem) Validate() error {
	if e.ThirdPartyPaid && e.ThirdPartyPaidExplanation == "" {
		return ErrThirdPartyExplanationRequired
	}
	return nil
}

// ReimbursableAmount excludes third-party paid expenses.
func (e ExpenseItem) ReimbursableAmount() decimal.Decimal {
	if e.ThirdPartyPaid {
		return decimal.Zero
	}
	return e.Amount
}

// ExpenseReport is a set of expenses submitted for reimbursement.
type ExpenseReport struct {
	ReportID     string        `json:"report_id"`
	TripID       string        `json:"trip_id"`
	TravelerName string        `json:"traveler_name"`
	CostCenter   string        `json:"cost_center,omitempty"`
	Expenses     []ExpenseItem `json:"expenses"`

	// ApprovalStatus and ApprovalDecisions are set by
	// ApprovalEngine.EvaluateReport.
	ApprovalStatus    ApprovalStatus     `json:"approval_status,omitempty"`
	ApprovalDecisions []ApprovalDecision `json:"approval_decisions,omitempty"`
}

// TotalAmount sums the reimbursable amounts of all expenses.
func (r *ExpenseReport) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, expense := range r.Expenses {
		total = total.Add(expense.ReimbursableAmount())
	}
	return total
}

// ExpensesByCategory groups expense amounts by category.
func (r *ExpenseReport) ExpensesByCategory() map[ExpenseCategory]decimal.Decimal {
	totals := make(map[ExpenseCategory]decimal.Decimal)
	for _, expense := range r.Expenses {
		totals[expense.Category] = totals[expense.Category].Add(expense.Amount)
	}
	return totals
}

// lineItems maps expenses into the engine's line-item shape for the
// non-reimbursable keyword rule.
func lineItems(expenses []ExpenseItem) []engine.LineItem {
	if len(expenses) == 0 {
		return nil
	}
	items := make([]engine.LineItem, 0, len(expenses))
	for _, expense := range expenses {
		items = append(items, engine.LineItem{
			Description: expense.Description,
			Amount:      expense.Amount,
		})
	}
	return items
}

// thirdPartyPayments maps third-party paid expenses into the engine's shape
// for the itemization rule. An expense counts as itemized when it carries
// the required explanation.
func thirdPartyPayments(expenses []ExpenseItem) []engine.ThirdPartyPayment {
	var payments []engine.ThirdPartyPayment
	for _, expense := range expenses {
		if !expense.ThirdPartyPaid {
			continue
		}
		payments = append(payments, engine.ThirdPartyPayment{
			Description: expense.Description,
			Itemized:    expense.ThirdPartyPaidExplanation != "",
		})
	}
	return payments
}
