package trip

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const testApprovalRules = `
rules:
  - name: meals_manager_review
    category: meals
    threshold: "300.00"
    action: require_approval
    approver: manager
  - name: high_amount_flag
    threshold: "5000.00"
    action: require_approval
    approver: manager
  - name: default_under_100
    threshold: "100.00"
    action: auto_approve
    approver: system
`

func mustApprovalEngine(t *testing.T, yamlConfig string) *ApprovalEngine {
	t.Helper()
	eng, err := ApprovalEngineFromYAML([]byte(yamlConfig))
	if err != nil {
		t.Fatalf("ApprovalEngineFromYAML() error = %v", err)
	}
	return eng
}

func testExpense(category ExpenseCategory, amount string) ExpenseItem {
	return ExpenseItem{
		Category:    category,
		Description: "test purchase",
		Amount:      decimal.RequireFromString(amount),
		ExpenseDate: time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestApprovalEngineConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr error
	}{
		{
			name:    "empty rule list",
			config:  `rules: []`,
			wantErr: ErrNoApprovalRules,
		},
		{
			name: "missing name",
			config: `
rules:
  - threshold: 100
    approver: ops
`,
			wantErr: ErrInvalidApprovalRule,
		},
		{
			name: "missing approver",
			config: `
rules:
  - name: incomplete
    threshold: 100
`,
			wantErr: ErrInvalidApprovalRule,
		},
		{
			name: "negative threshold",
			config: `
rules:
  - name: bad_threshold
    threshold: "-10.00"
    approver: ops
`,
			wantErr: ErrInvalidApprovalRule,
		},
		{
			name: "unknown action",
			config: `
rules:
  - name: bad_action
    threshold: 100
    action: escalate_to_space
    approver: ops
`,
			wantErr: ErrUnknownApprovalAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApprovalEngineFromYAML([]byte(tt.config))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ApprovalEngineFromYAML() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvaluateExpenseRouting(t *testing.T) {
	eng := mustApprovalEngine(t, testApprovalRules)

	tests := []struct {
		name         string
		expense      ExpenseItem
		wantStatus   ApprovalStatus
		wantRule     string
		wantApprover string
	}{
		{
			name:         "small expense auto-approves",
			expense:      testExpense(CategoryAirfare, "50.00"),
			wantStatus:   ApprovalAutoApproved,
			wantRule:     "default_under_100",
			wantApprover: "system",
		},
		{
			name:         "large expense is flagged for manager review",
			expense:      testExpense(CategoryLodging, "7500.00"),
			wantStatus:   ApprovalFlagged,
			wantRule:     "high_amount_flag",
			wantApprover: "manager",
		},
		{
			name:         "category rule decides before the defaults",
			expense:      testExpense(CategoryMeals, "350.00"),
			wantStatus:   ApprovalFlagged,
			wantRule:     "meals_manager_review",
			wantApprover: "manager",
		},
		{
			name:       "mid-range expense triggers no rule",
			expense:    testExpense(CategoryOther, "800.00"),
			wantStatus: ApprovalPending,
			wantRule:   "no_rule_triggered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := eng.EvaluateExpense(tt.expense, time.Time{})
			if decision.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", decision.Status, tt.wantStatus)
			}
			if decision.RuleName != tt.wantRule {
				t.Errorf("RuleName = %s, want %s", decision.RuleName, tt.wantRule)
			}
			if tt.wantApprover != "" && decision.Approver != tt.wantApprover {
				t.Errorf("Approver = %s, want %s", decision.Approver, tt.wantApprover)
			}
			if decision.Timestamp.IsZero() {
				t.Errorf("decision timestamp was not stamped")
			}
		})
	}
}

func TestEvaluateReportRollsUpStatuses(t *testing.T) {
	eng := mustApprovalEngine(t, testApprovalRules)

	tests := []struct {
		name       string
		expenses   []ExpenseItem
		wantStatus ApprovalStatus
	}{
		{
			name: "all auto-approved expenses approve the report",
			expenses: []ExpenseItem{
				testExpense(CategoryAirfare, "80.00"),
				testExpense(CategoryGroundTransport, "40.00"),
			},
			wantStatus: ApprovalAutoApproved,
		},
		{
			name: "one flagged expense flags the report",
			expenses: []ExpenseItem{
				testExpense(CategoryAirfare, "80.00"),
				testExpense(CategoryMeals, "450.00"),
			},
			wantStatus: ApprovalFlagged,
		},
		{
			name: "a pending expense keeps the report pending",
			expenses: []ExpenseItem{
				testExpense(CategoryAirfare, "80.00"),
				testExpense(CategoryOther, "800.00"),
			},
			wantStatus: ApprovalPending,
		},
		{
			name:       "empty report stays pending",
			expenses:   nil,
			wantStatus: ApprovalPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &ExpenseReport{
				ReportID:     "R1",
				TripID:       "T1",
				TravelerName: "Jordan Reyes",
				Expenses:     tt.expenses,
			}
			at := time.Date(2025, time.January, 20, 9, 0, 0, 0, time.UTC)
			status := eng.EvaluateReport(report, at)
			if status != tt.wantStatus {
				t.Errorf("EvaluateReport() = %s, want %s", status, tt.wantStatus)
			}
			if report.ApprovalStatus != tt.wantStatus {
				t.Errorf("report status = %s, want %s", report.ApprovalStatus, tt.wantStatus)
			}
			if len(report.ApprovalDecisions) != len(tt.expenses) {
				t.Errorf("len(decisions) = %d, want %d", len(report.ApprovalDecisions), len(tt.expenses))
			}
			for _, decision := range report.ApprovalDecisions {
				if !decision.Timestamp.Equal(at) {
					t.Errorf("decision timestamp = %s, want %s", decision.Timestamp, at)
				}
			}
		})
	}
}

func TestApprovalEngineFromFileDefaults(t *testing.T) {
	eng, err := ApprovalEngineFromFile("../../examples/approval_rules.yaml")
	if err != nil {
		t.Fatalf("ApprovalEngineFromFile() error = %v", err)
	}
	if eng.RuleCount() != 3 {
		t.Errorf("RuleCount() = %d, want 3", eng.RuleCount())
	}

	decision := eng.EvaluateExpense(testExpense(CategoryOther, "10.00"), time.Time{})
	if decision.Status != ApprovalAutoApproved {
		t.Errorf("Status = %s, want %s", decision.Status, ApprovalAutoApproved)
	}
}
