// Package refresh implements the caller-side render policy: at most one
// concurrent render per output target, a minimum redraw interval, optional
// cross-instance staggering, and interval-aligned auto refresh.
package refresh

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// staggerMu is shared across all throttles so staggered instances queue up
// behind each other instead of waking simultaneously.
var staggerMu sync.Mutex

// Throttle serializes renders for one output target and enforces a minimum
// interval between them.
type Throttle struct {
	MinInterval time.Duration
	StaggerMax  time.Duration

	mu   sync.Mutex
	last time.Time
}

// Do runs fn unless a render completed within MinInterval. Concurrent calls
// for the same target serialize; the losers then skip because the winner
// refreshed the timestamp. A skipped call is not an error.
func (t *Throttle) Do(fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.MinInterval > 0 && time.Since(t.last) < t.MinInterval {
		logrus.Debug("Skipping render inside minimum redraw interval")
		return nil
	}
	if t.StaggerMax > 0 {
		staggerMu.Lock()
		delay := time.Duration(rand.Int63n(int64(t.StaggerMax)))
		logrus.Debugf("Staggering render by %s", delay)
		time.Sleep(delay)
		staggerMu.Unlock()
	}
	t.last = time.Now()
	return fn()
}

// Scheduler triggers a refresh function aligned to interval boundaries
// (e.g. every 10 minutes at :00, :10, :20).
type Scheduler struct {
	cron *cron.Cron
}

// Start schedules fn every intervalMinutes, aligned to the wall clock.
func Start(intervalMinutes int, fn func()) (*Scheduler, error) {
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	c := cron.New()
	spec := fmt.Sprintf("*/%d * * * *", intervalMinutes)
	if _, err := c.AddFunc(spec, fn); err != nil {
		return nil, err
	}
	c.Start()
	logrus.Debugf("Auto-refresh scheduled every %d minute(s)", intervalMinutes)
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Stop() {
	if s != nil && s.cron != nil {
		s.cron.Stop()
	}
}
