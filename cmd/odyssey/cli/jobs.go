package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
	"github.com/odyssey-erp/odyssey-pm/jobs"
)

type enqueuer interface {
	EnqueueSweep(ctx context.Context, taskType string, asOf time.Time) (*asynq.TaskInfo, error)
	Close() error
}

type inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for the sweep queue.
type JobsCLI struct {
	client    enqueuer
	inspector inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &JobsCLI{client: client, inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		err = errors.Join(err, c.inspector.Close())
	}
	if c.client != nil {
		err = errors.Join(err, c.client.Close())
	}
	return err
}

// Trigger enqueues a one-off sweep. A zero asOf lets the worker use its date.
func (c *JobsCLI) Trigger(ctx context.Context, taskType string, asOf time.Time) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueueSweep(ctx, taskType, asOf)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// Run dispatches `jobs trigger <task> [-as-of YYYY-MM-DD]` and `jobs stats`.
func (c *JobsCLI) Run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: jobs trigger <task> [-as-of YYYY-MM-DD] | jobs stats")
	}
	switch args[0] {
	case "trigger":
		fs := flag.NewFlagSet("trigger", flag.ContinueOnError)
		fs.SetOutput(out)
		asOfRaw := fs.String("as-of", "", "sweep date (YYYY-MM-DD)")
		if len(args) < 2 {
			return errors.New("usage: jobs trigger <task> [-as-of YYYY-MM-DD]")
		}
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		var asOf time.Time
		if *asOfRaw != "" {
			parsed, err := shared.ParseDate(*asOfRaw)
			if err != nil {
				return err
			}
			asOf = parsed
		}
		info, err := c.Trigger(ctx, args[1], asOf)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return err
	case "stats":
		stats, err := c.InspectQueue()
		if err != nil {
			return err
		}
		scheduled, err := c.ListScheduled(10)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "queue\tpending\tactive\tscheduled\tretry\tarchived\n")
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		for _, task := range scheduled {
			fmt.Fprintf(tw, "next\t%s\t%s\n", task.Type, task.NextProcessAt.Format(time.RFC3339))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("jobs cli: unknown command %q", args[0])
	}
}
