package exception

import (
	"testing"
	"time"
)

func timeAgo(d time.Duration) time.Time {
	return time.Now().UTC().Add(-d)
}

func TestSweeperStartValidatesSchedule(t *testing.T) {
	registry := NewRegistry()

	t.Run("invalid schedule fails", func(t *testing.T) {
		sweeper := NewSweeper(registry, "whenever", nil, nil)
		if err := sweeper.Start(); err == nil {
			t.Errorf("Start() error = nil, want error")
		}
	})

	t.Run("empty schedule is a no-op", func(t *testing.T) {
		sweeper := NewSweeper(registry, "", nil, nil)
		if err := sweeper.Start(); err != nil {
			t.Errorf("Start() error = %v", err)
		}
		sweeper.Stop()
	})

	t.Run("valid schedule starts and stops", func(t *testing.T) {
		sweeper := NewSweeper(registry, "* * * * *", nil, nil)
		if err := sweeper.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		sweeper.Stop()
	})
}

type countingRecorder struct {
	total int
}

func (c *countingRecorder) RecordEscalations(count int) {
	c.total += count
}

func TestSweepRecordsEscalations(t *testing.T) {
	registry := NewRegistry()
	request, err := NewRequest(TypeAdvanceBooking, validJustification, "jordan",
		nil, timeAgo(EscalationWindow*2))
	if err != nil {
		t.Fatal(err)
	}
	registry.Add(request)

	recorder := &countingRecorder{}
	sweeper := NewSweeper(registry, "* * * * *", recorder, nil)
	sweeper.sweep()

	if recorder.total != 1 {
		t.Errorf("recorded escalations = %d, want 1", recorder.total)
	}
	if request.Status != StatusEscalated {
		t.Errorf("request status = %s, want %s", request.Status, StatusEscalated)
	}
}
