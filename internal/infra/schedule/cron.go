package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appschedule "shortlet/internal/app/schedule"
)

// JobObserver records job outcomes.
type JobObserver interface {
	ObserveJob(job string, err error)
}

// Cron runs jobs on robfig/cron specs. Overlapping runs of the same job are
// skipped and every run gets a context cancelled by Stop.
type Cron struct {
	c       *cron.Cron
	logger  *slog.Logger
	metrics JobObserver
	timeout time.Duration

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCron builds a scheduler. timeout bounds a single run; zero means none.
func NewCron(logger *slog.Logger, metrics JobObserver, timeout time.Duration) *Cron {
	if logger == nil {
		logger = slog.Default()
	}
	adapter := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{
		c:       cron.New(cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)), cron.WithLogger(adapter)),
		logger:  logger,
		metrics: metrics,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Cron) Every(name, spec string, job appschedule.Job) error {
	if job == nil {
		return errors.New("schedule: job is required")
	}
	_, err := s.c.AddFunc(spec, func() { s.run(name, job) })
	return err
}

func (s *Cron) run(name string, job appschedule.Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := time.Now()
	err := job(ctx)
	if s.metrics != nil {
		s.metrics.ObserveJob(name, err)
	}
	if err != nil {
		s.logger.Error("job failed", "job", name, "elapsed", time.Since(started), "error", err)
		return
	}
	s.logger.Debug("job finished", "job", name, "elapsed", time.Since(started))
}

// Start runs the scheduler in its own goroutine.
func (s *Cron) Start() {
	s.c.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Cron) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	<-s.c.Stop().Done()
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

var _ appschedule.Scheduler = (*Cron)(nil)
