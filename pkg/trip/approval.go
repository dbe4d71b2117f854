package trip

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Approval rule configuration errors, raised at load time.
var (
	ErrNoApprovalRules       = errors.New("approval rules configuration must include at least one rule")
	ErrInvalidApprovalRule   = errors.New("invalid approval rule")
	ErrUnknownApprovalAction = errors.New("unknown approval action")
)

// ApprovalStatus is the outcome of routing an expense through the approval
// rules.
type ApprovalStatus string

const (
	ApprovalPending      ApprovalStatus = "pending"
	ApprovalAutoApproved ApprovalStatus = "auto_approved"
	ApprovalFlagged      ApprovalStatus = "flagged"
)

// ApprovalAction is what a rule does when it matches an expense.
type ApprovalAction string

const (
	ActionAutoApprove     ApprovalAction = "auto_approve"
	ActionRequireApproval ApprovalAction = "require_approval"
)

// ApprovalRule routes expenses by amount threshold. An empty Category applies
// the rule to every expense; rules are consulted in configuration order and
// the first triggered rule decides.
type ApprovalRule struct {
	Name      string          `json:"name"`
	Threshold decimal.Decimal `json:"threshold"`
	Category  ExpenseCategory `json:"category,omitempty"`
	Approver  string          `json:"approver"`
	Action    ApprovalAction  `json:"action"`
}

// Matches reports whether the rule applies to the expense's category.
func (r ApprovalRule) Matches(expense ExpenseItem) bool {
	return r.Category == "" || r.Category == expense.Category
}

// Evaluate returns the status the rule assigns to the expense, or false when
// the rule does not trigger.
func (r ApprovalRule) Evaluate(expense ExpenseItem) (ApprovalStatus, bool) {
	switch r.Action {
	case ActionAutoApprove:
		if expense.Amount.LessThanOrEqual(r.Threshold) {
			return ApprovalAutoApproved, true
		}
	case ActionRequireApproval:
		if expense.Amount.GreaterThanOrEqual(r.Threshold) {
			return ApprovalFlagged, true
		}
	}
	return "", false
}

// ApprovalDecision is the audit record for one routed expense.
type ApprovalDecision struct {
	Expense   ExpenseItem    `json:"expense"`
	Status    ApprovalStatus `json:"status"`
	RuleName  string         `json:"rule_name"`
	Approver  string         `json:"approver"`
	Timestamp time.Time      `json:"timestamp"`
	Reason    string         `json:"reason,omitempty"`
}

// ApprovalEngine evaluates expenses against an ordered approval rule set.
type ApprovalEngine struct {
	rules []ApprovalRule
}

// approvalRuleConfig is the YAML shape of one rule. Threshold accepts a
// number or a quoted decimal string.
type approvalRuleConfig struct {
	Name      string `yaml:"name"`
	Threshold any    `yaml:"threshold"`
	Category  string `yaml:"category"`
	Approver  string `yaml:"approver"`
	Action    string `yaml:"action"`
}

type approvalConfig struct {
	Rules []approvalRuleConfig `yaml:"rules"`
}

// ApprovalEngineFromYAML parses and validates an approval rule configuration.
func ApprovalEngineFromYAML(content []byte) (*ApprovalEngine, error) {
	var cfg approvalConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse approval rules: %w", err)
	}
	if len(cfg.Rules) == 0 {
		return nil, ErrNoApprovalRules
	}

	rules := make([]ApprovalRule, 0, len(cfg.Rules))
	for _, raw := range cfg.Rules {
		rule, err := buildApprovalRule(raw)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return &ApprovalEngine{rules: rules}, nil
}

// ApprovalEngineFromFile loads approval rules from an explicit path.
func ApprovalEngineFromFile(path string) (*ApprovalEngine, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read approval rules: %w", err)
	}
	return ApprovalEngineFromYAML(content)
}

func buildApprovalRule(raw approvalRuleConfig) (ApprovalRule, error) {
	if raw.Name == "" {
		return ApprovalRule{}, fmt.Errorf("%w: name is required", ErrInvalidApprovalRule)
	}
	if raw.Approver == "" {
		return ApprovalRule{}, fmt.Errorf("%w: rule %q: approver is required", ErrInvalidApprovalRule, raw.Name)
	}

	threshold, err := thresholdValue(raw.Threshold)
	if err != nil || threshold.IsNegative() {
		return ApprovalRule{}, fmt.Errorf("%w: rule %q: threshold %v", ErrInvalidApprovalRule, raw.Name, raw.Threshold)
	}

	action := ApprovalAction(raw.Action)
	if raw.Action == "" {
		action = ActionAutoApprove
	}
	switch action {
	case ActionAutoApprove, ActionRequireApproval:
	default:
		return ApprovalRule{}, fmt.Errorf("%w: rule %q: %q", ErrUnknownApprovalAction, raw.Name, raw.Action)
	}

	return ApprovalRule{
		Name:      raw.Name,
		Threshold: threshold,
		Category:  ExpenseCategory(raw.Category),
		Approver:  raw.Approver,
		Action:    action,
	}, nil
}

func thresholdValue(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(v)
	}
	return decimal.Decimal{}, fmt.Errorf("unexpected threshold %v", value)
}

// RuleCount returns the number of configured rules.
func (e *ApprovalEngine) RuleCount() int {
	return len(e.rules)
}

// EvaluateExpense routes a single expense through the rules in order. An
// expense no rule triggers on stays pending with an unassigned approver. A
// zero timestamp is stamped with the current UTC time.
func (e *ApprovalEngine) EvaluateExpense(expense ExpenseItem, timestamp time.Time) ApprovalDecision {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	for _, rule := range e.rules {
		if !rule.Matches(expense) {
			continue
		}
		status, triggered := rule.Evaluate(expense)
		if !triggered {
			continue
		}
		return ApprovalDecision{
			Expense:   expense,
			Status:    status,
			RuleName:  rule.Name,
			Approver:  rule.Approver,
			Timestamp: timestamp,
			Reason: fmt.Sprintf("expense amount %s triggered rule %q with threshold %s",
				expense.Amount, rule.Name, rule.Threshold),
		}
	}
	return ApprovalDecision{
		Expense:   expense,
		Status:    ApprovalPending,
		RuleName:  "no_rule_triggered",
		Approver:  "unassigned",
		Timestamp: timestamp,
		Reason:    "no approval rule triggered",
	}
}

// EvaluateReport routes every expense in the report, records the decisions on
// it, and rolls the per-expense statuses up to the report status: any flagged
// expense flags the report, a report of only auto-approved expenses is
// auto-approved, and anything else (including an empty report) stays pending.
func (e *ApprovalEngine) EvaluateReport(report *ExpenseReport, timestamp time.Time) ApprovalStatus {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	decisions := make([]ApprovalDecision, 0, len(report.Expenses))
	for _, expense := range report.Expenses {
		decisions = append(decisions, e.EvaluateExpense(expense, timestamp))
	}
	report.ApprovalDecisions = decisions

	status := rollUpStatus(decisions)
	report.ApprovalStatus = status
	return status
}

func rollUpStatus(decisions []ApprovalDecision) ApprovalStatus {
	if len(decisions) == 0 {
		return ApprovalPending
	}
	allApproved := true
	for _, decision := range decisions {
		switch decision.Status {
		case ApprovalFlagged:
			return ApprovalFlagged
		case ApprovalAutoApproved:
		default:
			allApproved = false
		}
	}
	if allApproved {
		return ApprovalAutoApproved
	}
	return ApprovalPending
}
