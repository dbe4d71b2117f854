package api

import (
	"testing"
	"time"

	"github.com/stranske/tripward/pkg/policy/engine"
)

func mustEngine(t *testing.T, yamlConfig string) *engine.Engine {
	t.Helper()
	eng, err := engine.FromYAML([]byte(yamlConfig))
	if err != nil {
		t.Fatalf("engine.FromYAML() error = %v", err)
	}
	return eng
}

const testConfig = `
rules:
  advance_booking:
    days_required: 14
  fare_evidence: {}
`

func TestCheckFailsOnBlockingViolation(t *testing.T) {
	eng := mustEngine(t, testConfig)

	// No fare evidence: blocking failure. Nine days notice: advisory failure.
	booking := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	departure := booking.AddDate(0, 0, 9)
	result, err := Check(eng, &engine.Context{
		BookingDate:   &booking,
		DepartureDate: &departure,
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if result.Status != StatusFail {
		t.Errorf("Status = %s, want %s", result.Status, StatusFail)
	}
	if len(result.Issues) != 2 {
		t.Fatalf("len(Issues) = %d, want 2", len(result.Issues))
	}

	severities := map[string]IssueSeverity{}
	for _, issue := range result.Issues {
		severities[issue.Code] = issue.Severity
		if issue.Context["rule_id"] != issue.Code {
			t.Errorf("issue context rule_id = %v, want %s", issue.Context["rule_id"], issue.Code)
		}
	}
	if severities["fare_evidence"] != SeverityError {
		t.Errorf("fare_evidence severity = %s, want %s", severities["fare_evidence"], SeverityError)
	}
	if severities["advance_booking"] != SeverityWarning {
		t.Errorf("advance_booking severity = %s, want %s", severities["advance_booking"], SeverityWarning)
	}
}

func TestCheckPassesWithOnlyAdvisoryFailures(t *testing.T) {
	eng := mustEngine(t, testConfig)

	booking := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	departure := booking.AddDate(0, 0, 9)
	attached := true
	result, err := Check(eng, &engine.Context{
		BookingDate:          &booking,
		DepartureDate:        &departure,
		FareEvidenceAttached: &attached,
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if result.Status != StatusPass {
		t.Errorf("Status = %s, want %s (advisory failures do not block)", result.Status, StatusPass)
	}
	if len(result.Issues) != 1 {
		t.Errorf("len(Issues) = %d, want 1 advisory warning", len(result.Issues))
	}
}

func TestCheckOmitsPassingRules(t *testing.T) {
	eng := mustEngine(t, testConfig)

	booking := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	departure := booking.AddDate(0, 0, 30)
	attached := true
	result, err := Check(eng, &engine.Context{
		BookingDate:          &booking,
		DepartureDate:        &departure,
		FareEvidenceAttached: &attached,
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if result.Status != StatusPass {
		t.Errorf("Status = %s, want %s", result.Status, StatusPass)
	}
	if len(result.Issues) != 0 {
		t.Errorf("len(Issues) = %d, want 0", len(result.Issues))
	}
	if result.PolicyVersion == "" {
		t.Errorf("PolicyVersion is empty")
	}
}

func TestCheckPolicyVersionIsStable(t *testing.T) {
	a, err := Check(mustEngine(t, testConfig), &engine.Context{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Check(mustEngine(t, testConfig), &engine.Context{})
	if err != nil {
		t.Fatal(err)
	}
	if a.PolicyVersion != b.PolicyVersion {
		t.Errorf("PolicyVersion differs for identical configurations")
	}
}
