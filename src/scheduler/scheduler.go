package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/jobs"
	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/oops"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Task func(ctx context.Context) error

// Runs tasks on cron schedules ("0 7 * * *", "@every 6h", ...) until its
// job is canceled. A task that is still running when its next turn comes up
// is skipped rather than run twice.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration

	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
}

type EntryInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// Timeout bounds each individual run; zero means no limit.
func New(loc *time.Location, timeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{logging.GlobalLogger()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		timeout: timeout,
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
	}
}

func (s *Scheduler) Add(name, schedule string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return oops.New(nil, "a task named %s is already scheduled", name)
	}

	id, err := s.cron.AddFunc(schedule, func() {
		if err := s.RunNow(s.runContext(), name, task); err != nil {
			logging.Error().Err(err).Str("task", name).Msg("Scheduled task failed")
		}
	})
	if err != nil {
		return oops.New(err, "invalid schedule %q for %s", schedule, name)
	}
	s.entries[name] = id

	logging.Info().Str("task", name).Str("schedule", schedule).Msg("Scheduled task")
	return nil
}

func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

// Runs a task immediately, with the same logging and timeout as a scheduled
// run.
func (s *Scheduler) RunNow(ctx context.Context, name string, task Task) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := logging.ExtractLogger(ctx).With().Str("task", name).Logger()
	ctx = logging.AttachLoggerToContext(&logger, ctx)

	logger.Info().Msg("Starting task")
	start := time.Now()
	if err := task(ctx); err != nil {
		return oops.New(err, "task %s failed", name)
	}
	logger.Info().Dur("took", time.Since(start)).Msg("Finished task")
	return nil
}

// Starts the schedule and returns a job for stopping it. Canceling the job
// cancels any running tasks and waits for them before the job finishes.
func (s *Scheduler) Start() *jobs.Job {
	job := jobs.New("scheduler")

	s.mu.Lock()
	s.ctx = job.Ctx
	s.mu.Unlock()

	s.cron.Start()
	go func() {
		defer job.Finish()
		<-job.Canceled()
		job.Logger.Info().Msg("Stopping scheduler")
		<-s.cron.Stop().Done()
	}()

	return job
}

func (s *Scheduler) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]EntryInfo, 0, len(s.entries))
	for name, id := range s.entries {
		entry := s.cron.Entry(id)
		infos = append(infos, EntryInfo{
			Name:    name,
			NextRun: entry.Next,
			LastRun: entry.Prev,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Routes cron's own logging through zerolog.
type cronLogger struct {
	logger *zerolog.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
