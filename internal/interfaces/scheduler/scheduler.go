package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("sports-tracker/internal/interfaces/scheduler")

// JobSource provides the job table to register.
type JobSource interface {
	Jobs() []usecase.JobDefinition
}

// Scheduler runs every job on its own interval. A run that is still in
// progress when the next tick arrives causes that tick to be skipped.
type Scheduler struct {
	cron   *gocron.Scheduler
	logger *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the jobs without starting them. Jobs with a non-positive
// interval are left out.
func New(source JobSource, logger *logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Default()
	}

	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	cron.WaitForScheduleAll()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	for _, job := range source.Jobs() {
		if job.Interval <= 0 || job.Run == nil {
			logger.Info("background job disabled", "job", job.Name)
			continue
		}
		if _, err := cron.Every(job.Interval).Tag(job.Name).Do(s.runner(job)); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule job %s: %w", job.Name, err)
		}
	}

	return s, nil
}

// runner only traces; job outcomes are logged by the job itself.
func (s *Scheduler) runner(job usecase.JobDefinition) func() {
	return func() {
		ctx, span := tracer.Start(s.ctx, "scheduler.job", trace.WithAttributes(attribute.String("job", job.Name)))
		defer span.End()

		if err := job.Run(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
	s.logger.Info("background jobs started", "jobs", s.cron.Len())
}

// RunNow triggers the named job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	if err := s.cron.RunByTag(name); err != nil {
		return fmt.Errorf("run job %s: %w", name, err)
	}
	return nil
}

// Stop cancels in-flight runs and waits for the scheduler to halt.
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
	s.logger.Info("background jobs stopped")
}

// Len reports how many jobs are registered.
func (s *Scheduler) Len() int {
	return s.cron.Len()
}
