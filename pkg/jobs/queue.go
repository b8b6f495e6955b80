// Package jobs runs long operations such as bulk image generation in the
// background and tracks their progress for polling clients.
//
// A [Queue] executes jobs on a fixed ants worker pool and keeps every job in
// memory. A cron entry sweeps finished jobs once they are older than the
// retention period.
package jobs

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"

	"github.com/northbynortheast/signmaker/pkg/errors"
)

// Defaults.
const (
	DefaultWorkers   = 2
	DefaultRetention = time.Hour
	DefaultSweep     = "@every 10m"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Finished reports whether s is terminal.
func (s Status) Finished() bool { return s == StatusCompleted || s == StatusFailed }

// Job is a snapshot of a background job.
type Job struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	Total       int        `json:"total"`
	Message     string     `json:"message"`
	Error       string     `json:"error,omitempty"`
	Result      any        `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Func is the body of a job. It reports progress through h and returns a
// JSON-serializable result.
type Func func(ctx context.Context, h *Handle) (any, error)

// Options configures a Queue.
type Options struct {
	Workers   int
	Retention time.Duration
	// Sweep is the cron spec of the retention sweep.
	Sweep  string
	Logger *log.Logger
}

// Queue runs and tracks jobs.
type Queue struct {
	mu   sync.RWMutex
	jobs map[string]*Job

	pool      *ants.Pool
	sched     *cron.Cron
	retention time.Duration
	logger    *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts a queue with its workers and retention sweep.
func New(opts Options) (*Queue, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Sweep == "" {
		opts.Sweep = DefaultSweep
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	pool, err := ants.NewPool(opts.Workers, ants.WithPanicHandler(func(p any) {
		opts.Logger.Error("job worker panic", "panic", p)
	}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "create worker pool")
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:      make(map[string]*Job),
		pool:      pool,
		sched:     cron.New(),
		retention: opts.Retention,
		logger:    opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	if _, err := q.sched.AddFunc(opts.Sweep, func() { q.Sweep(time.Now()) }); err != nil {
		pool.Release()
		cancel()
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "invalid sweep schedule %q", opts.Sweep)
	}
	q.sched.Start()
	return q, nil
}

// Submit records the job and hands it to the pool without blocking the
// caller. Jobs stay pending while every worker is busy.
func (q *Queue) Submit(name string, fn Func) (string, error) {
	if q.ctx.Err() != nil {
		return "", errors.New(errors.ErrCodeInternal, "job queue closed")
	}
	id := uuid.NewString()[:8]
	job := &Job{ID: id, Name: name, Status: StatusPending, CreatedAt: time.Now()}

	q.mu.Lock()
	q.jobs[id] = job
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		err := q.pool.Submit(func() {
			defer q.wg.Done()
			q.run(job, fn)
		})
		if err != nil {
			defer q.wg.Done()
			end := time.Now()
			q.update(job, func(j *Job) {
				j.Status = StatusFailed
				j.Error = fmt.Sprintf("submit: %v", err)
				j.CompletedAt = &end
			})
		}
	}()
	q.logger.Info("job submitted", "id", id, "name", name)
	return id, nil
}

func (q *Queue) run(job *Job, fn Func) {
	h := &Handle{q: q, job: job}
	start := time.Now()
	q.update(job, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = &start
	})

	result, err := q.call(h, fn)

	end := time.Now()
	q.update(job, func(j *Job) {
		j.CompletedAt = &end
		if err != nil {
			j.Status = StatusFailed
			j.Error = err.Error()
			return
		}
		j.Status = StatusCompleted
		j.Result = result
		j.Progress = j.Total
	})
	if err != nil {
		q.logger.Warn("job failed", "id", job.ID, "name", job.Name, "err", err, "duration", end.Sub(start))
	} else {
		q.logger.Info("job completed", "id", job.ID, "name", job.Name, "duration", end.Sub(start))
	}
}

func (q *Queue) call(h *Handle, fn Func) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	return fn(q.ctx, h)
}

func (q *Queue) update(job *Job, f func(*Job)) {
	q.mu.Lock()
	f(job)
	q.mu.Unlock()
}

// Get returns a snapshot of the job with id.
func (q *Queue) Get(id string) (Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	j, ok := q.jobs[id]
	if !ok {
		return Job{}, errors.New(errors.ErrCodeJobNotFound, "job not found: %s", id)
	}
	return *j, nil
}

// List returns every job, newest first.
func (q *Queue) List() []Job {
	q.mu.RLock()
	out := make([]Job, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, *j)
	}
	q.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

// Sweep removes finished jobs that completed more than the retention
// period before now, returning how many were removed.
func (q *Queue) Sweep(now time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for id, j := range q.jobs {
		if j.Status.Finished() && j.CompletedAt != nil && now.Sub(*j.CompletedAt) > q.retention {
			delete(q.jobs, id)
			n++
		}
	}
	if n > 0 {
		q.logger.Debug("swept jobs", "removed", n)
	}
	return n
}

// Wait blocks until every submitted job has finished or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels running jobs, stops the sweep and waits for workers until
// ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.cancel()
	<-q.sched.Stop().Done()
	err := q.Wait(ctx)
	q.pool.Release()
	return err
}

// =============================================================================
// Progress
// =============================================================================

// Handle lets a running job report progress.
type Handle struct {
	q   *Queue
	job *Job
}

// ID returns the job ID.
func (h *Handle) ID() string { return h.job.ID }

// SetTotal sets the number of steps.
func (h *Handle) SetTotal(n int) {
	h.q.update(h.job, func(j *Job) { j.Total = n })
}

// Step advances progress by one and sets the message.
func (h *Handle) Step(msg string) {
	h.q.update(h.job, func(j *Job) {
		j.Progress++
		j.Message = msg
	})
}

// Message sets the status message without advancing.
func (h *Handle) Message(msg string) {
	h.q.update(h.job, func(j *Job) { j.Message = msg })
}
