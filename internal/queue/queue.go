// Package queue implements the in-process priority job queue behind the
// asynchronous pipeline: three fixed priorities with strict dispatch order,
// per-delivery visibility timeouts, exponential retry scheduling and a dead
// letter list.
package queue

import (
	"container/heap"
	"container/list"
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/observability"
)

// sweepInterval is how often the janitor checks visibility deadlines and due
// retries.
const sweepInterval = 500 * time.Millisecond

// errVisibilityTimeout is the burial cause when a delivery's visibility
// deadline expires after the last allowed attempt.
var errVisibilityTimeout = errors.New("visibility timeout expired")

// Options configures a Queue.
type Options struct {
	// PerPriority supplies visibility timeout and retry budget per queue.
	PerPriority map[domain.Priority]config.QueueConfig
	// HighWaterMark bounds pending jobs per priority queue. A full priority
	// rejects with ErrQueueFull while the others keep accepting, so callers
	// can degrade a submission to a lower priority.
	HighWaterMark int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// Now is injectable for tests.
	Now func() time.Time
}

type runningJob struct {
	job      *domain.Job
	deadline time.Time
}

type delayedJob struct {
	job   *domain.Job
	runAt time.Time
}

type delayedHeap []delayedJob

func (h delayedHeap) Len() int            { return len(h) }
func (h delayedHeap) Less(i, j int) bool  { return h[i].runAt.Before(h[j].runAt) }
func (h delayedHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *delayedHeap) Push(x any)         { *h = append(*h, x.(delayedJob)) }
func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is safe for concurrent producers and consumers.
type Queue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	ready     map[domain.Priority]*list.List
	scheduled delayedHeap
	running   map[string]*runningJob
	jobs      map[string]*domain.Job
	dead      []*domain.Job

	cfg    map[domain.Priority]config.QueueConfig
	hwm    int
	base   time.Duration
	maxDel time.Duration
	now    func() time.Time
	onDead func(*domain.Job, error)

	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// New builds a queue and starts its janitor.
func New(opts Options) *Queue {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HighWaterMark <= 0 {
		opts.HighWaterMark = 10000
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 500 * time.Millisecond
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = 30 * time.Second
	}
	q := &Queue{
		ready:   make(map[domain.Priority]*list.List, len(domain.Priorities)),
		running: make(map[string]*runningJob),
		jobs:    make(map[string]*domain.Job),
		cfg:     opts.PerPriority,
		hwm:     opts.HighWaterMark,
		base:    opts.RetryBaseDelay,
		maxDel:  opts.RetryMaxDelay,
		now:     opts.Now,
		stop:    make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	for _, p := range domain.Priorities {
		q.ready[p] = list.New()
	}
	q.wg.Add(1)
	go q.janitor()
	return q
}

// SetOnDead installs the dead-letter hook, invoked once per burial with the
// job and its cause. It runs on its own goroutine so it may call back into
// the queue. Every burial path fires it, including visibility-timeout
// expiries detected by the janitor.
func (q *Queue) SetOnDead(fn func(job *domain.Job, cause error)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onDead = fn
}

// Close stops the janitor and wakes all blocked consumers.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.stop)
	q.cond.Broadcast()
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a job to its priority queue. It fails with ErrQueueFull above
// the high-water mark and ErrInvalidArgument on an unknown priority.
func (q *Queue) Enqueue(_ context.Context, job *domain.Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("op=queue.Enqueue: %w: job id required", domain.ErrInvalidArgument)
	}
	if !job.Priority.Valid() {
		return fmt.Errorf("op=queue.Enqueue: %w: unknown priority %q", domain.ErrInvalidArgument, job.Priority)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("op=queue.Enqueue: %w: queue closed", domain.ErrUnavailable)
	}
	if pending := q.pendingLocked(job.Priority); pending >= q.hwm {
		return fmt.Errorf("op=queue.Enqueue: %w: %d %s jobs pending", domain.ErrQueueFull, pending, job.Priority)
	}
	if _, exists := q.jobs[job.ID]; exists {
		return fmt.Errorf("op=queue.Enqueue: %w: duplicate job id %s", domain.ErrInvalidArgument, job.ID)
	}
	job.Status = domain.JobQueued
	job.EnqueuedAt = q.now()
	q.jobs[job.ID] = job
	q.ready[job.Priority].PushBack(job)
	q.gaugeLocked(job.Priority)
	q.cond.Signal()
	return nil
}

// Dequeue blocks until a job is available or the context ends. Strict
// priority: premium drains before standard, standard before batch.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Job, error) {
	return q.DequeueFrom(ctx, domain.Priorities...)
}

// DequeueFrom blocks like Dequeue but only reads the given priority list, in
// the order given. Worker profiles use this: a premium worker passes
// [premium], a standard one [premium, standard].
func (q *Queue) DequeueFrom(ctx context.Context, priorities ...domain.Priority) (*domain.Job, error) {
	stopWatch := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stopWatch()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("op=queue.Dequeue: %w", domain.ErrCancelled)
		}
		if q.closed {
			return nil, fmt.Errorf("op=queue.Dequeue: %w: queue closed", domain.ErrUnavailable)
		}
		if job := q.popLocked(priorities); job != nil {
			return job, nil
		}
		q.cond.Wait()
	}
}

func (q *Queue) popLocked(priorities []domain.Priority) *domain.Job {
	for _, p := range priorities {
		l := q.ready[p]
		front := l.Front()
		if front == nil {
			continue
		}
		l.Remove(front)
		job := front.Value.(*domain.Job)
		now := q.now()
		observability.RecordQueueWait(string(p), now.Sub(job.EnqueuedAt).Seconds())
		job.Attempts++
		job.Status = domain.JobRunning
		job.StartedAt = now
		q.running[job.ID] = &runningJob{job: job, deadline: now.Add(q.cfgFor(p).JobTimeout)}
		q.gaugeLocked(p)
		return job
	}
	return nil
}

// Ack marks a delivered job as succeeded.
func (q *Queue) Ack(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.running[id]
	if !ok {
		return fmt.Errorf("op=queue.Ack: %w: job %s not running", domain.ErrNotFound, id)
	}
	delete(q.running, id)
	r.job.Status = domain.JobSucceeded
	r.job.FinishedAt = q.now()
	observability.RecordQueueTerminal(string(r.job.Priority), "succeeded")
	return nil
}

// Nack reports a failed delivery. Retryable failures are rescheduled with
// exponential backoff until the retry budget is spent; everything else goes
// straight to the dead letter list.
func (q *Queue) Nack(id string, cause error, retryable bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.running[id]
	if !ok {
		return fmt.Errorf("op=queue.Nack: %w: job %s not running", domain.ErrNotFound, id)
	}
	delete(q.running, id)
	job := r.job
	if cause != nil {
		job.LastError = cause.Error()
	}
	if !retryable || job.Attempts > q.cfgFor(job.Priority).MaxRetries {
		q.buryLocked(job, cause)
		return nil
	}
	job.Status = domain.JobQueued
	delay := q.retryDelay(job.Attempts)
	heap.Push(&q.scheduled, delayedJob{job: job, runAt: q.now().Add(delay)})
	return nil
}

// retryDelay doubles per attempt from the base, capped at the maximum.
func (q *Queue) retryDelay(attempts int) time.Duration {
	d := time.Duration(float64(q.base) * math.Pow(2, float64(attempts-1)))
	if d > q.maxDel || d <= 0 {
		d = q.maxDel
	}
	return d
}

func (q *Queue) buryLocked(job *domain.Job, cause error) {
	job.Status = domain.JobDead
	job.FinishedAt = q.now()
	q.dead = append(q.dead, job)
	observability.RecordQueueTerminal(string(job.Priority), "dead")
	if q.onDead != nil {
		go q.onDead(job, cause)
	}
}

// Fetch returns a job by id.
func (q *Queue) Fetch(id string) (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, fmt.Errorf("op=queue.Fetch: %w: job %s", domain.ErrNotFound, id)
	}
	return job, nil
}

// Stats snapshots every priority queue.
func (q *Queue) Stats() map[domain.Priority]domain.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[domain.Priority]domain.QueueStats, len(domain.Priorities))
	for _, p := range domain.Priorities {
		out[p] = domain.QueueStats{Pending: q.ready[p].Len()}
	}
	for _, d := range q.scheduled {
		s := out[d.job.Priority]
		s.Pending++
		out[d.job.Priority] = s
	}
	for _, r := range q.running {
		s := out[r.job.Priority]
		s.Running++
		out[r.job.Priority] = s
	}
	for _, job := range q.dead {
		s := out[job.Priority]
		s.Dead++
		out[job.Priority] = s
	}
	return out
}

// DeadLetters returns the dead jobs, oldest first.
func (q *Queue) DeadLetters() []*domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*domain.Job, len(q.dead))
	copy(out, q.dead)
	return out
}

func (q *Queue) pendingLocked(p domain.Priority) int {
	n := q.ready[p].Len()
	for _, d := range q.scheduled {
		if d.job.Priority == p {
			n++
		}
	}
	return n
}

func (q *Queue) cfgFor(p domain.Priority) config.QueueConfig {
	if c, ok := q.cfg[p]; ok {
		return c
	}
	return config.QueueConfig{JobTimeout: 5 * time.Minute, ResultTTL: 12 * time.Hour, MaxRetries: 3}
}

func (q *Queue) gaugeLocked(p domain.Priority) {
	observability.RecordQueueDepth(string(p), float64(q.ready[p].Len()))
}

func (q *Queue) janitor() {
	defer q.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stop:
			return
		case <-ticker.C:
			q.sweep()
		}
	}
}

// sweep returns expired running jobs to the head of their queue and moves due
// retries to the tail. A delivery whose visibility expired after the last
// allowed attempt is buried.
func (q *Queue) sweep() {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()

	for id, r := range q.running {
		if r.deadline.After(now) {
			continue
		}
		delete(q.running, id)
		job := r.job
		job.LastError = errVisibilityTimeout.Error()
		if job.Attempts > q.cfgFor(job.Priority).MaxRetries {
			q.buryLocked(job, errVisibilityTimeout)
			continue
		}
		job.Status = domain.JobQueued
		q.ready[job.Priority].PushFront(job)
		q.gaugeLocked(job.Priority)
		q.cond.Signal()
	}

	for len(q.scheduled) > 0 && !q.scheduled[0].runAt.After(now) {
		d := heap.Pop(&q.scheduled).(delayedJob)
		q.ready[d.job.Priority].PushBack(d.job)
		q.gaugeLocked(d.job.Priority)
		q.cond.Signal()
	}
}
