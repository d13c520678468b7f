package jobs

import (
	"context"
	"time"
)

// Job is a callback the scheduler runs on a cron cadence.
type Job struct {
	Name     string
	TaskType string
	Spec     string
	Run      func(ctx context.Context, asOf time.Time) error
}

// Scheduler runs registered jobs on their cadence until the context ends.
type Scheduler interface {
	Register(job Job) error
	Run(ctx context.Context) error
}

// SweepJobs turns sweep jobs into schedulable jobs. Jobs with an empty spec
// are dropped, which disables that sweep.
func SweepJobs(specs map[string]string, sweeps ...*SweepJob) []Job {
	out := make([]Job, 0, len(sweeps))
	for _, s := range sweeps {
		if s == nil || specs[s.TaskType] == "" {
			continue
		}
		out = append(out, Job{Name: s.Name, TaskType: s.TaskType, Spec: specs[s.TaskType], Run: s.Run})
	}
	return out
}
