package jobs

import (
	"context"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/utils"
	"github.com/rs/zerolog"
)

/*
Utilities for running and waiting on background work, like the scheduled
exports of the watch command. A Job bundles a cancelable context with a
"done" signal, so long-running work can be told to stop and then waited on
during shutdown.
*/

// A Job tracks one piece of background work. Ctx is canceled when the job
// should stop; the job calls Finish once it actually has.
type Job struct {
	Name   string
	Ctx    context.Context
	Logger zerolog.Logger
	cancel func()
	done   chan struct{}
	err    error
}

func New(name string) *Job {
	logger := logging.With().Str("job", name).Logger()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logging.AttachLoggerToContext(&logger, ctx)
	return &Job{
		Name:   name,
		Ctx:    ctx,
		Logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Runs fn in the background as a new Job. The job finishes when fn returns,
// and whatever fn returned is available from Err. A panic in fn is recorded
// as the job's error rather than taking down the process.
func Start(name string, fn func(ctx context.Context) error) *Job {
	job := New(name)
	go func() {
		defer job.Finish()
		job.err = run(job.Ctx, fn)
	}()
	return job
}

func run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer utils.RecoverPanicAsError(&err)
	return fn(ctx)
}

// Asks the job to stop by canceling its context. Called from outside the job,
// e.g. on shutdown.
func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) Canceled() <-chan struct{} {
	return j.Ctx.Done()
}

// Marks the job as done. Called by the job itself.
func (j *Job) Finish() *Job {
	close(j.done)
	return j
}

func (j *Job) Finished() <-chan struct{} {
	return j.done
}

// The error a job started with Start returned. Only meaningful after
// Finished is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Several jobs to be shut down together. Build it with normal slice syntax.
type Jobs []*Job

// Cancels every job, then waits for them all to finish or for the timeout to
// run out. Returns the names of any jobs that didn't finish in time.
func (jobs Jobs) CancelAndWait(timeout time.Duration) []string {
	allDoneChan := make(chan struct{})
	for _, job := range jobs {
		job.Cancel()
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	go func() {
		for _, job := range jobs {
			<-job.Finished()
		}
		close(allDoneChan)
	}()

	select {
	case <-timer.C:
		return jobs.ListUnfinished()
	case <-allDoneChan:
		return nil
	}
}

func (jobs Jobs) ListUnfinished() []string {
	unfinished := []string{}
	for _, job := range jobs {
		select {
		case <-job.Finished():
			continue
		default:
			unfinished = append(unfinished, job.Name)
		}
	}
	return unfinished
}
