// Package scheduler drives the reminder broadcaster on quarter-hour
// wall-clock boundaries within a configured active-hours window.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"quarterlog-bot/internal/broadcast"
)

// Runner is the broadcaster entry point the scheduler invokes once per
// eligible tick.
type Runner interface {
	Run(ctx context.Context, now time.Time) (broadcast.Report, error)
}

// Scheduler owns the timer that fires the broadcaster. The cadence is
// fixed at every quarter hour; the window is injected configuration.
type Scheduler struct {
	runner    Runner
	startHour int // first hour (inclusive) reminders go out
	endHour   int // hour (exclusive) reminders stop
	debug     bool
}

// New creates a Scheduler for the [startHour, endHour) window.
func New(runner Runner, startHour, endHour int, debug bool) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if startHour < 0 || startHour > 23 {
		return nil, fmt.Errorf("start hour must be within 0-23, got %d", startHour)
	}
	if endHour < 1 || endHour > 24 {
		return nil, fmt.Errorf("end hour must be within 1-24, got %d", endHour)
	}
	if endHour <= startHour {
		return nil, fmt.Errorf("end hour %d must be after start hour %d", endHour, startHour)
	}
	return &Scheduler{
		runner:    runner,
		startHour: startHour,
		endHour:   endHour,
		debug:     debug,
	}, nil
}

// Start runs the scheduling loop until ctx is cancelled. Each pass runs
// on this goroutine; the broadcaster's own pacing bounds how long a
// pass can take, and a failed pass never stops the loop.
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("[Scheduler] Running quarter-hour reminders between %02d:00 and %02d:00", s.startHour, s.endHour)

	for {
		now := time.Now()
		next := NextTick(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("[Scheduler] Stopped")
			return
		case tick := <-timer.C:
			if !s.InWindow(tick) {
				if s.debug {
					log.Printf("[Scheduler] Tick %s outside active window, skipping", tick.Format("15:04"))
				}
				continue
			}
			if _, err := s.runner.Run(ctx, tick); err != nil {
				// Already captured downstream; keep the loop alive.
				log.Printf("[Scheduler] Broadcast pass failed: %v", err)
			}
		}
	}
}

// NextTick returns the first quarter-hour boundary strictly after now.
func NextTick(now time.Time) time.Time {
	return now.Truncate(15 * time.Minute).Add(15 * time.Minute)
}

// InWindow reports whether t falls inside the active-hours window.
func (s *Scheduler) InWindow(t time.Time) bool {
	hour := t.Hour()
	return hour >= s.startHour && hour < s.endHour
}
