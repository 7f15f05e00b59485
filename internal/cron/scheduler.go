package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"autocheckout/internal/checkout"
	"autocheckout/internal/config"
)

// Runner is the slice of the executor the trigger needs.
type Runner interface {
	Execute(ctx context.Context, kind checkout.InvocationKind) checkout.Result
}

// Scheduler fires scheduled checkout invocations. It only triggers; the
// executor decides whether the tick falls in the day's window.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	spec    string
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a new cron scheduler in the property's time zone.
func New(cfg config.CheckoutConfig, runner Runner, logger *zap.Logger) *Scheduler {
	logger = logger.Named("cron")
	cl := cronLogger{logger.Sugar()}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	timeout := cfg.ClaimTTL
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:  runner,
		spec:    cfg.TriggerSpec,
		timeout: timeout,
		logger:  logger,
	}
}

// Start registers the checkout trigger and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting cron scheduler...", zap.String("spec", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return fmt.Errorf("register checkout trigger %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started")
	return nil
}

// Stop gracefully stops the cron scheduler. The returned context is done
// once a running tick has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// tick runs one scheduled invocation. The deadline matches the claim TTL so
// a hung run never holds the day past the point another run may reclaim it.
func (s *Scheduler) tick() {
	defer s.recoverFromPanic("checkout")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res := s.runner.Execute(ctx, checkout.KindScheduled)
	s.logger.Debug("Checkout tick",
		zap.String("run_id", res.RunID),
		zap.String("outcome", string(res.Outcome)))
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("error", r))
	}
}

// cronLogger adapts zap onto cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
