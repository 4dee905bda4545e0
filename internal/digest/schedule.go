package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

// CycleRunner is satisfied by *Runner.
type CycleRunner interface {
	RunCycle(ctx context.Context, trigger string) (*Outcome, error)
}

type clock struct {
	hour, minute int
}

// Schedule fires a cycle at fixed wall-clock times every day.
type Schedule struct {
	times  []clock
	loc    *time.Location
	runner CycleRunner

	nowFn   func() time.Time
	sleepFn func(ctx context.Context, d time.Duration) error
}

// NewSchedule parses HH:MM times. A nil loc means time.Local.
func NewSchedule(times []string, loc *time.Location, runner CycleRunner) (*Schedule, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("digest: schedule needs at least one time")
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Schedule{loc: loc, runner: runner, nowFn: time.Now, sleepFn: sleepWithContext}
	seen := make(map[clock]struct{}, len(times))
	for _, raw := range times {
		t, err := time.Parse("15:04", strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("digest: schedule time %q: %w", raw, err)
		}
		c := clock{hour: t.Hour(), minute: t.Minute()}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		s.times = append(s.times, c)
	}
	sort.Slice(s.times, func(i, j int) bool {
		if s.times[i].hour != s.times[j].hour {
			return s.times[i].hour < s.times[j].hour
		}
		return s.times[i].minute < s.times[j].minute
	})
	return s, nil
}

// NextRun returns the first scheduled instant strictly after now.
func (s *Schedule) NextRun(now time.Time) time.Time {
	local := now.In(s.loc)
	for day := 0; day < 2; day++ {
		for _, c := range s.times {
			at := time.Date(local.Year(), local.Month(), local.Day()+day, c.hour, c.minute, 0, 0, s.loc)
			if at.After(local) {
				return at
			}
		}
	}
	// unreachable with at least one time
	return local.Add(24 * time.Hour)
}

// Run blocks until ctx is done, firing a cycle at each scheduled time. Failed
// cycles are logged and the loop continues.
func (s *Schedule) Run(ctx context.Context) error {
	for {
		now := s.nowFn()
		next := s.NextRun(now)
		logx.WithContext(ctx).Infof("digest: next cycle at %s", next.Format(time.RFC3339))
		if err := s.sleepFn(ctx, next.Sub(now)); err != nil {
			logx.WithContext(ctx).Infof("digest: scheduler stopped: %v", err)
			return nil
		}
		if _, err := s.runner.RunCycle(ctx, TriggerSchedule); err != nil {
			logx.WithContext(ctx).Errorf("digest: scheduled cycle err=%v", err)
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
