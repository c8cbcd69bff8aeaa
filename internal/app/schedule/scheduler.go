package schedule

import "context"

// Job is one recurring unit of background work.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on a cron-style spec.
type Scheduler interface {
	Every(name, spec string, job Job) error
}
