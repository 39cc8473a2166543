// Package refresh runs the dashboard's periodic refresh on an explicit,
// reconfigurable timer.
package refresh

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

const (
	MinInterval     = 5 * time.Second
	MaxInterval     = 60 * time.Second
	DefaultInterval = 10 * time.Second
)

// Settings is the user-facing auto-refresh configuration.
type Settings struct {
	Enabled         bool `json:"enabled" yaml:"enabled"`
	IntervalSeconds int  `json:"intervalSeconds" yaml:"intervalSeconds" validate:"min=5,max=60"`
}

func DefaultSettings() Settings {
	return Settings{Enabled: true, IntervalSeconds: int(DefaultInterval / time.Second)}
}

func (s Settings) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Validate rejects intervals outside MinInterval..MaxInterval.
func (s Settings) Validate() error {
	if d := s.Interval(); d < MinInterval || d > MaxInterval {
		return fmt.Errorf("interval must be between %d and %d seconds, got %d",
			int(MinInterval/time.Second), int(MaxInterval/time.Second), s.IntervalSeconds)
	}
	return nil
}

// ClampInterval bounds d to MinInterval..MaxInterval. Zero means the default.
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultInterval
	case d < MinInterval:
		return MinInterval
	case d > MaxInterval:
		return MaxInterval
	}
	return d.Truncate(time.Second)
}

type Scheduler struct {
	mu       sync.Mutex
	enabled  bool
	interval time.Duration
	cron     *rcron.Cron
	entry    rcron.EntryID
	running  bool
	cancel   context.CancelFunc
	stopCh   chan struct{}

	// OnTick is called once per interval while enabled. Ticks never overlap;
	// a tick that fires while the previous one is still running is skipped.
	OnTick func()

	schedule func(time.Duration) rcron.Schedule
}

func NewScheduler(s Settings) *Scheduler {
	logger := rcron.VerbosePrintfLogger(log.Default())
	return &Scheduler{
		enabled:  s.Enabled,
		interval: ClampInterval(s.Interval()),
		cron:     rcron.New(rcron.WithChain(rcron.Recover(logger), rcron.SkipIfStillRunning(logger))),
		schedule: func(d time.Duration) rcron.Schedule { return rcron.Every(d) },
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	stopCh := make(chan struct{})
	s.cancel = cancel
	s.stopCh = stopCh
	s.running = true
	s.rescheduleLocked()
	enabled, interval := s.enabled, s.interval
	s.mu.Unlock()

	s.cron.Start()
	log.Printf("[refresh] started (enabled=%v, interval=%s)", enabled, interval)

	go func() {
		select {
		case <-runCtx.Done():
			s.Stop()
		case <-stopCh:
		}
	}()
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, stopCh := s.cancel, s.stopCh
	s.cancel, s.stopCh = nil, nil
	s.running = false
	s.mu.Unlock()

	close(stopCh)
	cancel()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("[refresh] stop timeout waiting for running tick")
	}
	log.Printf("[refresh] stopped")
}

func (s *Scheduler) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Settings{Enabled: s.enabled, IntervalSeconds: int(s.interval / time.Second)}
}

func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled == enabled {
		return
	}
	s.enabled = enabled
	s.rescheduleLocked()
	log.Printf("[refresh] auto refresh enabled=%v", enabled)
}

// SetInterval clamps d, reschedules the timer and returns the interval in
// effect.
func (s *Scheduler) SetInterval(d time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	d = ClampInterval(d)
	if d != s.interval {
		s.interval = d
		s.rescheduleLocked()
		log.Printf("[refresh] interval set to %s", d)
	}
	return d
}

// Apply sets both fields at once and returns the settings in effect.
func (s *Scheduler) Apply(in Settings) Settings {
	s.SetInterval(in.Interval())
	s.SetEnabled(in.Enabled)
	return s.Settings()
}

// Next returns the time of the next scheduled tick.
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == 0 {
		return time.Time{}, false
	}
	next := s.cron.Entry(s.entry).Next
	return next, !next.IsZero()
}

func (s *Scheduler) rescheduleLocked() {
	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
	if !s.running || !s.enabled {
		return
	}
	s.entry = s.cron.Schedule(s.schedule(s.interval), rcron.FuncJob(s.tick))
}

func (s *Scheduler) tick() {
	if s.OnTick == nil {
		log.Printf("[refresh] no OnTick handler set")
		return
	}
	s.OnTick()
}
