package appointments

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/psicoliz/booking/pkg/logging"
)

const sweeperJobName = "expire-stale-pending-bookings"

// Sweeper periodically cancels abandoned gateway checkouts so their slots
// return to the schedule.
type Sweeper struct {
	service   *Service
	ttl       time.Duration
	interval  time.Duration
	scheduler gocron.Scheduler
	logger    *logging.Logger
	stopOnce  sync.Once
	stopErr   error
}

func NewSweeper(service *Service, ttl, interval time.Duration, logger *logging.Logger) (*Sweeper, error) {
	if service == nil {
		return nil, errors.New("appointments: sweeper needs a service")
	}
	if ttl <= 0 {
		return nil, errors.New("appointments: sweeper ttl must be positive")
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Sweeper{service: service, ttl: ttl, interval: interval, logger: logger}

	sched, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					logger.Error("scheduler job panicked", "job_id", jobID, "job_name", jobName, "panic", recoverData)
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			_, _ = s.RunOnce(ctx)
		}),
		gocron.WithName(sweeperJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}
	s.scheduler = sched
	return s, nil
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.service.ExpireStale(ctx, s.ttl)
	if err != nil {
		s.logger.Error("stale booking sweep failed", "error", err)
		return 0, err
	}
	return n, nil
}

// Start begins running the sweep on its interval.
func (s *Sweeper) Start() {
	s.logger.Info("booking sweeper starting", "ttl", s.ttl.String(), "interval", s.interval.String())
	s.scheduler.Start()
}

// Stop shuts the scheduler down. Safe to call more than once.
func (s *Sweeper) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("booking sweeper stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}
