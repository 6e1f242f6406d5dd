package ingest

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the cycle counters.
type Snapshot struct {
	Cycles        int       `json:"cycles"`
	FailedCycles  int       `json:"failed_cycles"`
	Lines         int       `json:"lines"`
	Parsed        int       `json:"parsed"`
	Skipped       int       `json:"skipped"`
	Inserted      int       `json:"inserted"`
	LastCycleID   string    `json:"last_cycle_id,omitempty"`
	LastCycleAt   time.Time `json:"last_cycle_at"`
	LastReport    *Report   `json:"last_report,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	LastSuccessAt time.Time `json:"last_success_at"`
}

// Status accumulates cycle results for readers on other goroutines.
type Status struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewStatus() *Status {
	return &Status{}
}

// Record adds the outcome of one cycle.
func (s *Status) Record(cycleID string, at time.Time, report Report, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Cycles++
	s.snap.Lines += report.Lines
	s.snap.Parsed += report.Parsed
	s.snap.Skipped += report.Skipped
	s.snap.Inserted += report.Inserted
	s.snap.LastCycleID = cycleID
	s.snap.LastCycleAt = at
	r := report
	s.snap.LastReport = &r
	if err != nil {
		s.snap.FailedCycles++
		s.snap.LastError = err.Error()
		return
	}
	s.snap.LastError = ""
	s.snap.LastSuccessAt = at
}

// Snapshot returns a copy safe to use without holding the lock.
func (s *Status) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap
	if snap.LastReport != nil {
		r := *snap.LastReport
		snap.LastReport = &r
	}
	return snap
}
