package digest

import (
	"sync"
	"time"

	"webhook-digest-service/internal/logging"
)

// Scheduler owns the single recurring digest timer. At most one ticker is
// live at any instant; Start replaces any previous schedule, so an interval
// change never leaves the old schedule firing alongside the new one.
type Scheduler struct {
	run    func()
	logger *logging.Logger

	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
}

func NewScheduler(run func(), logger *logging.Logger) *Scheduler {
	return &Scheduler{run: run, logger: logger}
}

// Start begins firing every interval. A previously running schedule is
// stopped first.
func (s *Scheduler) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	s.ticker = ticker
	s.done = done

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.run()
			}
		}
	}()

	s.logger.Infof("Digest schedule started, firing every %s", interval)
}

// Stop halts the schedule. Safe to call when nothing is running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.done)
	s.ticker = nil
	s.done = nil
}
