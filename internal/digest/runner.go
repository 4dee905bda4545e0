// Package digest runs collect, format, post cycles on demand or on a daily schedule.
package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"btcdigest/pkg/journal"
	"btcdigest/pkg/market"
	"btcdigest/pkg/publish"
	"btcdigest/pkg/report"
)

const (
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// Source produces one collection result per call.
type Source interface {
	Collect(ctx context.Context) market.Result
}

// FixtureSource always returns the reference snapshot, for mock runs.
type FixtureSource struct{}

func (FixtureSource) Collect(context.Context) market.Result {
	return market.Result{Snapshot: report.FixtureSnapshot()}
}

// Outcome describes a finished cycle.
type Outcome struct {
	Result market.Result
	Text   string
	Posted bool
}

type Runner struct {
	source  Source
	poster  publish.Poster
	journal *journal.Writer
	dryRun  bool
	timeout time.Duration
}

type RunnerOption func(*Runner)

// WithJournal records every cycle through w.
func WithJournal(w *journal.Writer) RunnerOption {
	return func(r *Runner) { r.journal = w }
}

// WithDryRun formats the message without posting it.
func WithDryRun(dry bool) RunnerOption {
	return func(r *Runner) { r.dryRun = dry }
}

// WithCycleTimeout bounds a whole cycle.
func WithCycleTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

func NewRunner(source Source, poster publish.Poster, opts ...RunnerOption) *Runner {
	r := &Runner{source: source, poster: poster}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunCycle collects, formats and posts one digest. An empty snapshot returns
// report.ErrEmptySnapshot and nothing is posted. The outcome is returned
// even when posting fails.
func (r *Runner) RunCycle(ctx context.Context, trigger string) (*Outcome, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	logger := logx.WithContext(ctx)
	start := time.Now()
	rec := &journal.CycleRecord{Trigger: trigger, DryRun: r.dryRun}

	out, err := r.run(ctx, rec)
	rec.DurationMs = time.Since(start).Milliseconds()
	rec.Success = err == nil
	if err != nil {
		rec.ErrorMessage = err.Error()
		logger.Errorf("digest: %s cycle failed after %dms: %v", trigger, rec.DurationMs, err)
	} else {
		logger.Infof("digest: %s cycle done assets=%d missing=%d posted=%t took %dms",
			trigger, out.Result.Snapshot.Len(), len(out.Result.Missing), out.Posted, rec.DurationMs)
	}
	r.record(ctx, rec)
	return out, err
}

func (r *Runner) run(ctx context.Context, rec *journal.CycleRecord) (*Outcome, error) {
	res := r.source.Collect(ctx)
	if res.Snapshot == nil {
		res.Snapshot = market.NewSnapshot()
	}
	rec.FromResult(res)
	out := &Outcome{Result: res}

	text, err := report.Format(res.Snapshot)
	if err != nil {
		return out, err
	}
	out.Text = text
	rec.Message = text

	if r.dryRun {
		logx.WithContext(ctx).Infof("digest: dry run, not posting:\n%s", text)
		return out, nil
	}
	if r.poster == nil {
		return out, errors.New("digest: no poster configured")
	}
	if err := r.poster.Post(ctx, text); err != nil {
		return out, fmt.Errorf("digest: post: %w", err)
	}
	out.Posted = true
	rec.Posted = true
	return out, nil
}

func (r *Runner) record(ctx context.Context, rec *journal.CycleRecord) {
	if r.journal == nil {
		return
	}
	path, err := r.journal.WriteCycle(rec)
	if err != nil {
		logx.WithContext(ctx).Errorf("digest: journal write err=%v", err)
		return
	}
	logx.WithContext(ctx).Debugf("digest: journal %s", path)
}
