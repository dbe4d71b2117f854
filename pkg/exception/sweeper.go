package exception

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Registry tracks exception requests awaiting a decision. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	requests map[string]*Request
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{requests: make(map[string]*Request)}
}

// Add registers a request for escalation tracking.
func (r *Registry) Add(request *Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[request.ID] = request
}

// All returns every tracked request regardless of status.
func (r *Registry) All() []*Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requests := make([]*Request, 0, len(r.requests))
	for _, request := range r.requests {
		requests = append(requests, request)
	}
	return requests
}

// Open returns the requests still awaiting a decision.
func (r *Registry) Open() []*Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var open []*Request
	for _, request := range r.requests {
		if request.Open() {
			open = append(open, request)
		}
	}
	return open
}

// EscalateOverdue runs the SLA check over every open request and returns how
// many escalated.
func (r *Registry) EscalateOverdue(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	escalated := 0
	for _, request := range r.requests {
		if request.EscalateIfOverdue(now) {
			escalated++
		}
	}
	return escalated
}

// EscalationRecorder receives escalation telemetry. A nil recorder disables
// recording.
type EscalationRecorder interface {
	RecordEscalations(count int)
}

// Sweeper escalates overdue requests on a cron schedule.
type Sweeper struct {
	registry *Registry
	schedule string
	recorder EscalationRecorder
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewSweeper creates a sweeper for the registry. An empty schedule disables
// sweeping; Start becomes a no-op.
func NewSweeper(registry *Registry, schedule string, recorder EscalationRecorder, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		registry: registry,
		schedule: schedule,
		recorder: recorder,
		logger:   logger.With("component", "exception.sweeper"),
		cron:     cron.New(),
	}
}

// Start begins scheduled sweeping.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("escalation schedule not configured, skipping sweeper")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid escalation schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("schedule escalation sweep: %w", err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info("escalation sweeper started",
		"schedule", s.schedule,
		"sla_window", EscalationWindow,
	)
	return nil
}

func (s *Sweeper) sweep() {
	escalated := s.registry.EscalateOverdue(time.Now().UTC())
	if s.recorder != nil && escalated > 0 {
		s.recorder.RecordEscalations(escalated)
	}
	if escalated > 0 {
		s.logger.Info("escalated overdue exception requests", "count", escalated)
	} else {
		s.logger.Debug("escalation sweep completed, nothing overdue")
	}
}

// Stop stops the sweeper and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("escalation sweeper stopped")
	}
}
