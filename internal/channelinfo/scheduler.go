package channelinfo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	command "github.com/goliatone/go-command"
	"github.com/robfig/cron/v3"

	"github.com/goliatone/go-chansync/internal/logging"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

var (
	// ErrExpressionRequired is returned when a job is registered without a schedule.
	ErrExpressionRequired = errors.New("channelinfo: cron expression is required")
	// ErrUnsupportedJob is returned for handlers that are not func() error.
	ErrUnsupportedJob = errors.New("channelinfo: unsupported cron handler")
)

// SchedulerOption customises a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(logger interfaces.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scheduler runs registered jobs on cron expressions.
type Scheduler struct {
	engine *cron.Cron
	logger interfaces.Logger
}

// NewScheduler returns a stopped scheduler.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		engine: cron.New(),
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds handler under cfg.Expression. It has the signature of a
// command cron registrar; handler must be a func() error.
func (s *Scheduler) Register(cfg command.HandlerConfig, handler any) error {
	expression := strings.TrimSpace(cfg.Expression)
	if expression == "" {
		return ErrExpressionRequired
	}
	job, ok := handler.(func() error)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedJob, handler)
	}
	if _, err := s.engine.AddFunc(expression, func() {
		if err := job(); err != nil {
			s.logger.Error("channelinfo.cron.failed", "expression", expression, "error", err)
		}
	}); err != nil {
		return fmt.Errorf("channelinfo: schedule %q: %w", expression, err)
	}
	s.logger.Info("channelinfo.cron.registered", "expression", expression)
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.engine.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.engine.Stop()
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.engine.Entries())
}

// RunAll executes every registered job once, in schedule order.
func (s *Scheduler) RunAll() {
	for _, entry := range s.engine.Entries() {
		entry.Job.Run()
	}
}
