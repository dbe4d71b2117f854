package exception

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const validJustification = "Customer contract signing requires on-site presence within the notice window."

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestNewRequestValidation(t *testing.T) {
	tests := []struct {
		name          string
		requestType   Type
		justification string
		amount        *decimal.Decimal
		wantErr       error
	}{
		{
			name:          "short justification rejected",
			requestType:   TypeAdvanceBooking,
			justification: "Need this trip",
			wantErr:       ErrJustificationTooShort,
		},
		{
			name:          "justification at the minimum accepted",
			requestType:   TypeAdvanceBooking,
			justification: strings.Repeat("x", MinJustificationLength),
		},
		{
			name:          "unknown type rejected",
			requestType:   Type("teleportation"),
			justification: validJustification,
			wantErr:       ErrUnknownType,
		},
		{
			name:          "negative amount rejected",
			requestType:   TypeAdvanceBooking,
			justification: validJustification,
			amount:        decPtr("-100.00"),
			wantErr:       ErrNegativeAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request, err := NewRequest(tt.requestType, tt.justification, "jordan", tt.amount, time.Time{})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewRequest() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRequest() error = %v", err)
			}
			if request.ID == "" {
				t.Errorf("request ID is empty")
			}
			if request.Status != StatusPending {
				t.Errorf("Status = %s, want %s", request.Status, StatusPending)
			}
			if request.RequestedAt.IsZero() {
				t.Errorf("RequestedAt was not stamped")
			}
		})
	}
}

func TestDetermineApprovalLevel(t *testing.T) {
	tests := []struct {
		name        string
		requestType Type
		amount      *decimal.Decimal
		want        Level
	}{
		{"small amount routes to baseline", TypeAdvanceBooking, decPtr("800.00"), LevelManager},
		{"no amount routes to baseline", TypeMealPerDiem, nil, LevelManager},
		{"director threshold", TypeAdvanceBooking, decPtr("5000.00"), LevelDirector},
		{"just under director threshold", TypeAdvanceBooking, decPtr("4999.99"), LevelManager},
		{"board threshold", TypeAdvanceBooking, decPtr("20000.00"), LevelBoard},
		{"well above board threshold", TypeDrivingVsFlying, decPtr("25000.00"), LevelBoard},
		{"local overnight baseline is director", TypeLocalOvernight, nil, LevelDirector},
		{"small amount never lowers the baseline", TypeLocalOvernight, decPtr("100.00"), LevelDirector},
		{"board threshold still raises director baseline", TypeLocalOvernight, decPtr("20000.00"), LevelBoard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := DetermineApprovalLevel(tt.requestType, tt.amount)
			if err != nil {
				t.Fatalf("DetermineApprovalLevel() error = %v", err)
			}
			if level != tt.want {
				t.Errorf("DetermineApprovalLevel() = %s, want %s", level, tt.want)
			}
		})
	}
}

func TestApproveAndReject(t *testing.T) {
	request, err := NewRequest(TypeAdvanceBooking, validJustification, "jordan", nil, time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	record := request.Approve("mgr-7", "", "Business need confirmed", time.Time{})
	if request.Status != StatusApproved {
		t.Errorf("Status = %s, want %s", request.Status, StatusApproved)
	}
	if record.Level != LevelManager {
		t.Errorf("record level = %s, want request's routing level", record.Level)
	}
	if request.Open() {
		t.Errorf("Open() = true after approval")
	}

	rejected, err := NewRequest(TypeAdvanceBooking, validJustification, "jordan", nil, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	rejected.Reject()
	if rejected.Status != StatusRejected {
		t.Errorf("Status = %s, want %s", rejected.Status, StatusRejected)
	}
}

func TestEscalateIfOverdue(t *testing.T) {
	requestedAt := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	request, err := NewRequest(TypeAdvanceBooking, validJustification, "jordan", nil, requestedAt)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("within the window is a no-op", func(t *testing.T) {
		if request.EscalateIfOverdue(requestedAt.Add(47 * time.Hour)) {
			t.Errorf("escalated inside the SLA window")
		}
		if request.ApprovalLevel != LevelManager {
			t.Errorf("ApprovalLevel = %s, want unchanged manager", request.ApprovalLevel)
		}
	})

	t.Run("past the window escalates exactly one level", func(t *testing.T) {
		now := requestedAt.Add(49 * time.Hour)
		if !request.EscalateIfOverdue(now) {
			t.Fatalf("did not escalate past the SLA window")
		}
		if request.ApprovalLevel != LevelDirector {
			t.Errorf("ApprovalLevel = %s, want %s", request.ApprovalLevel, LevelDirector)
		}
		if request.Status != StatusEscalated {
			t.Errorf("Status = %s, want %s", request.Status, StatusEscalated)
		}

		// Immediately re-checking must not escalate again.
		if request.EscalateIfOverdue(now.Add(time.Hour)) {
			t.Errorf("escalated twice within one window")
		}
	})

	t.Run("escalation resets the SLA anchor", func(t *testing.T) {
		now := request.EscalatedAt.Add(EscalationWindow + time.Hour)
		if !request.EscalateIfOverdue(now) {
			t.Fatalf("did not escalate after a full window at the new level")
		}
		if request.ApprovalLevel != LevelBoard {
			t.Errorf("ApprovalLevel = %s, want %s", request.ApprovalLevel, LevelBoard)
		}
	})

	t.Run("board level is the cap", func(t *testing.T) {
		now := request.EscalatedAt.Add(EscalationWindow + time.Hour)
		request.EscalateIfOverdue(now)
		if request.ApprovalLevel != LevelBoard {
			t.Errorf("ApprovalLevel = %s, escalation must cap at board", request.ApprovalLevel)
		}
	})

	t.Run("decided requests never escalate", func(t *testing.T) {
		decided, err := NewRequest(TypeAdvanceBooking, validJustification, "jordan", nil, requestedAt)
		if err != nil {
			t.Fatal(err)
		}
		decided.Approve("mgr-7", "", "", time.Time{})
		if decided.EscalateIfOverdue(requestedAt.Add(100 * time.Hour)) {
			t.Errorf("approved request escalated")
		}
	})
}

func TestRegistryEscalateOverdue(t *testing.T) {
	requestedAt := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	registry := NewRegistry()

	overdue, err := NewRequest(TypeAdvanceBooking, validJustification, "jordan", nil, requestedAt)
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := NewRequest(TypeMealPerDiem, validJustification, "casey", nil, requestedAt.Add(47*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	decided, err := NewRequest(TypeHotelComparison, validJustification, "riley", nil, requestedAt)
	if err != nil {
		t.Fatal(err)
	}
	decided.Reject()

	registry.Add(overdue)
	registry.Add(fresh)
	registry.Add(decided)

	escalated := registry.EscalateOverdue(requestedAt.Add(48 * time.Hour))
	if escalated != 1 {
		t.Errorf("EscalateOverdue() = %d, want 1", escalated)
	}
	if overdue.Status != StatusEscalated {
		t.Errorf("overdue request status = %s, want %s", overdue.Status, StatusEscalated)
	}
	if fresh.Status != StatusPending {
		t.Errorf("fresh request status = %s, want %s", fresh.Status, StatusPending)
	}

	open := registry.Open()
	if len(open) != 2 {
		t.Errorf("len(Open()) = %d, want 2", len(open))
	}
}

func TestBuildDashboard(t *testing.T) {
	mk := func(requestType Type, requestor string) *Request {
		request, err := NewRequest(requestType, validJustification, requestor, nil, time.Time{})
		if err != nil {
			t.Fatal(err)
		}
		return request
	}

	a := mk(TypeAdvanceBooking, "jordan")
	b := mk(TypeAdvanceBooking, "jordan")
	c := mk(TypeMealPerDiem, "casey")
	c.Approve("dir-2", LevelDirector, "", time.Time{})

	dashboard := BuildDashboard([]*Request{a, b, c})
	if dashboard.ByType["advance_booking"] != 2 {
		t.Errorf("ByType[advance_booking] = %d, want 2", dashboard.ByType["advance_booking"])
	}
	if dashboard.ByRequestor["jordan"] != 2 {
		t.Errorf("ByRequestor[jordan] = %d, want 2", dashboard.ByRequestor["jordan"])
	}
	if dashboard.ByApprover["dir-2"] != 1 {
		t.Errorf("ByApprover[dir-2] = %d, want 1", dashboard.ByApprover["dir-2"])
	}
}
