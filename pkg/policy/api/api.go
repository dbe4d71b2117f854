package api

import (
	"github.com/stranske/tripward/pkg/policy/engine"
	"github.com/stranske/tripward/pkg/policy/version"
)

// IssueSeverity is the public three-level severity scale.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
	SeverityInfo    IssueSeverity = "info"
)

// CheckStatus is the aggregate pass/fail outcome of a policy check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusFail CheckStatus = "fail"
)

// Issue is a single policy rule violation or advisory.
type Issue struct {
	// Code is the stable rule id that produced the issue.
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Severity IssueSeverity  `json:"severity"`
	Context  map[string]any `json:"context"`
}

// CheckResult aggregates the issues of one evaluation together with the
// deterministic policy version identifier of the rule set that produced them.
type CheckResult struct {
	Status        CheckStatus `json:"status"`
	Issues        []Issue     `json:"issues"`
	PolicyVersion string      `json:"policy_version"`
}

func issueSeverity(result engine.Result) IssueSeverity {
	switch result.Severity {
	case engine.SeverityBlocking:
		return SeverityError
	case engine.SeverityAdvisory:
		return SeverityWarning
	}
	return SeverityInfo
}

func issueFromResult(result engine.Result) Issue {
	return Issue{
		Code:     result.RuleID,
		Message:  result.Message,
		Severity: issueSeverity(result),
		Context: map[string]any{
			"rule_id":  result.RuleID,
			"severity": string(result.Severity),
		},
	}
}

// FromResults folds already-computed rule results into a check result. The
// check fails when any blocking rule failed.
func FromResults(results []engine.Result, policyVersion string) CheckResult {
	status := StatusPass
	var issues []Issue
	for _, result := range results {
		if result.Passed {
			continue
		}
		issues = append(issues, issueFromResult(result))
		if result.Severity == engine.SeverityBlocking {
			status = StatusFail
		}
	}

	return CheckResult{
		Status:        status,
		Issues:        issues,
		PolicyVersion: policyVersion,
	}
}

// Check evaluates a context and returns the failed results as issues.
func Check(eng *engine.Engine, ctx *engine.Context) (CheckResult, error) {
	configHash, err := version.HashConfig(eng.DescribeRules())
	if err != nil {
		return CheckResult{}, err
	}
	return FromResults(eng.Evaluate(ctx), configHash), nil
}
