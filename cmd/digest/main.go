package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"btcdigest/internal/cli"
	"btcdigest/internal/config"
	"btcdigest/internal/digest"
	"btcdigest/internal/svc"
	"btcdigest/pkg/report"
)

const shutdownTimeout = 10 * time.Second // Grace period for an in-flight cycle

var (
	configFile = flag.String("f", "etc/digest.yaml", "the config file")
	once       = flag.Bool("once", false, "run a single cycle and exit")
	mock       = flag.Bool("mock", false, "use the built-in sample snapshot instead of live providers")
	dryRun     = flag.Bool("dry-run", false, "print the digest instead of posting it")
)

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	logx.MustSetup(cfg.Log)
	defer logx.Close()
	cli.LogConfigSummary(cfg)

	svcCtx, err := svc.NewServiceContext(*cfg)
	if err != nil {
		logx.Errorf("digest: %v", err)
		os.Exit(1)
	}

	runner := newRunner(cfg, svcCtx, *mock, *dryRun)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once || *mock {
		code := runOnce(ctx, runner)
		stop()
		logx.Close()
		os.Exit(code)
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		logx.Errorf("digest: %v", err)
		os.Exit(1)
	}
	schedule, err := digest.NewSchedule(cfg.Schedule.Times, loc, runner)
	if err != nil {
		logx.Errorf("digest: %v", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = schedule.Run(ctx)
	}()
	fmt.Printf("Digest scheduler started at %v (%s). Press Ctrl+C to stop.\n", cfg.Schedule.Times, loc)

	<-ctx.Done()
	logx.Info("digest: shutdown signal received")
	select {
	case <-done:
		logx.Info("digest: scheduler stopped cleanly")
	case <-time.After(shutdownTimeout):
		logx.Info("digest: shutdown timeout exceeded, forcing exit")
	}
}

// newRunner wires the cycle runner. Sample data is never posted, so mock
// implies dry run.
func newRunner(cfg *config.Config, svcCtx *svc.ServiceContext, mock, dryRun bool) *digest.Runner {
	var source digest.Source = svcCtx.Collector
	if mock {
		source = digest.FixtureSource{}
		dryRun = true
	}
	opts := []digest.RunnerOption{
		digest.WithCycleTimeout(cfg.CycleTimeout),
		digest.WithDryRun(dryRun),
	}
	if svcCtx.Journal != nil {
		opts = append(opts, digest.WithJournal(svcCtx.Journal))
	}
	return digest.NewRunner(source, svcCtx.Poster, opts...)
}

func runOnce(ctx context.Context, runner *digest.Runner) int {
	out, err := runner.RunCycle(ctx, digest.TriggerManual)
	if out != nil && len(out.Result.Missing) > 0 {
		logx.Infof("digest: missing %v", out.Result.Missing)
	}
	if out != nil && out.Text != "" && !out.Posted {
		fmt.Println(out.Text)
	}
	switch {
	case errors.Is(err, report.ErrEmptySnapshot):
		fmt.Fprintln(os.Stderr, "no market data collected, nothing posted")
		return 2
	case err != nil:
		fmt.Fprintf(os.Stderr, "cycle failed: %v\n", err)
		return 1
	}
	return 0
}
