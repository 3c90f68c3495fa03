// Package scheduler runs periodic background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/creatives/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job is one periodic task.
type Job struct {
	Name string
	// Spec is a standard cron expression or a descriptor such as "@every 5m".
	Spec string
	Run  func(ctx context.Context)
}

// Scheduler runs jobs until its context ends. A job still running when its
// next tick comes is skipped for that tick.
type Scheduler struct {
	jobs []Job
}

// New validates every job's schedule.
func New(jobs ...Job) (*Scheduler, error) {
	for _, j := range jobs {
		if _, err := cron.ParseStandard(j.Spec); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", j.Spec, j.Name, err)
		}
	}
	return &Scheduler{jobs: jobs}, nil
}

// Run starts the jobs and blocks until ctx is done, then waits for running
// jobs to return.
func (s *Scheduler) Run(ctx context.Context) {
	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	for _, j := range s.jobs {
		job := j
		if _, err := c.AddFunc(job.Spec, func() {
			log.Debug().Str("job", job.Name).Msg("Running scheduled job")
			job.Run(ctx)
		}); err != nil {
			log.Error().Err(err).Str("job", job.Name).Msg("Failed to schedule job")
		}
	}

	log.Info().Int("jobs", len(s.jobs)).Msg("Starting background scheduler...")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("Stopping background scheduler.")
}

// Refresher is satisfied by the session manager.
type Refresher interface {
	RefreshUser(ctx context.Context)
}

// RefreshJob keeps the signed-in user fresh. The manager itself skips the
// call while nobody is signed in.
func RefreshJob(spec string, r Refresher) Job {
	return Job{Name: "refresh-user", Spec: spec, Run: r.RefreshUser}
}

// PurgeJob drops revocation records for credentials that expired anyway.
func PurgeJob(spec string, tokens services.TokenServiceProvider) Job {
	return Job{Name: "purge-revoked-tokens", Spec: spec, Run: func(context.Context) {
		n, err := tokens.PurgeExpired(time.Now())
		if err != nil {
			log.Error().Err(err).Msg("Failed to purge revoked tokens")
			return
		}
		if n > 0 {
			log.Info().Int64("purged", n).Msg("Purged expired revoked tokens")
		}
	}}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
