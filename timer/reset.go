// timer/reset.go
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wdlord/discord-pokebot/logger"
)

// ResetTime is a daily instant in UTC.
type ResetTime struct {
	Hour   int
	Minute int
}

func (r ResetTime) String() string { return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute) }

// ParseResetTimes 解析 "HH:MM" 格式的每日重置时间
func ParseResetTimes(values []string) ([]ResetTime, error) {
	out := make([]ResetTime, 0, len(values))
	for _, v := range values {
		t, err := time.Parse("15:04", v)
		if err != nil {
			return nil, fmt.Errorf("invalid reset time %q: %w", v, err)
		}
		out = append(out, ResetTime{Hour: t.Hour(), Minute: t.Minute()})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no reset times configured")
	}
	return out, nil
}

// NextReset returns the earliest reset instant strictly after now.
func NextReset(now time.Time, times []ResetTime) time.Time {
	now = now.UTC()
	var next time.Time
	for _, rt := range times {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), rt.Hour, rt.Minute, 0, 0, time.UTC)
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next
}

// TimeUntilReset 距离下一次重置的时间
func TimeUntilReset(now time.Time, times []ResetTime) time.Duration {
	return NextReset(now, times).Sub(now)
}

// DailyScheduler calls reset at every configured reset time.
type DailyScheduler struct {
	timers *TimerManager
	times  []ResetTime
	reset  func(ctx context.Context) error

	mutex   sync.Mutex
	timerId int64
	ctx     context.Context
}

func NewDailyScheduler(timers *TimerManager, times []ResetTime, reset func(ctx context.Context) error) *DailyScheduler {
	return &DailyScheduler{timers: timers, times: times, reset: reset}
}

// Run schedules resets until ctx is cancelled.
func (s *DailyScheduler) Run(ctx context.Context) error {
	s.mutex.Lock()
	s.ctx = ctx
	s.scheduleLocked()
	s.mutex.Unlock()

	<-ctx.Done()

	s.mutex.Lock()
	s.timers.RemoveTimer(s.timerId)
	s.mutex.Unlock()
	return nil
}

func (s *DailyScheduler) scheduleLocked() {
	now := s.timers.now()
	next := NextReset(now, s.times)
	s.timerId = s.timers.AddTimer(next.Sub(now), 0, s.fire)
	logger.Log.Infow("next roll reset scheduled", "at", next)
}

func (s *DailyScheduler) fire() {
	s.mutex.Lock()
	ctx := s.ctx
	s.mutex.Unlock()
	if ctx.Err() != nil {
		return
	}

	if err := s.reset(ctx); err != nil {
		logger.Log.Errorw("roll reset failed", "error", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if ctx.Err() == nil {
		s.scheduleLocked()
	}
}
