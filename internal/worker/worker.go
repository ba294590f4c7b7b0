// Package worker runs the consumer pool draining the job queue: it executes
// task payloads, caches results, and notifies webhooks.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/fairyhunter13/talent-matcher/internal/cache"
	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/queue"
	"github.com/fairyhunter13/talent-matcher/internal/webhook"
)

// failedResultTTL bounds how long failure records stay cached.
const failedResultTTL = time.Hour

// TaskRunner executes one parsed task payload and returns the serialized
// result.
type TaskRunner interface {
	RunTask(ctx context.Context, job *domain.Job, payload domain.TaskPayload) (json.RawMessage, error)
}

// Notifier delivers completion webhooks. Satisfied by webhook.Dispatcher.
type Notifier interface {
	Deliver(ctx context.Context, endpoint, secret string, payload webhook.Payload) error
}

// Pool is a fixed-size worker pool over one queue.
type Pool struct {
	queue   *queue.Queue
	runner  TaskRunner
	results *cache.Tier
	notify  Notifier // nil disables webhooks
	cfg     map[domain.Priority]config.QueueConfig
	// priorities is the worker profile: which queues this pool reads, in
	// strict order.
	priorities []domain.Priority
	size       int
	grace      time.Duration

	// taskCtx parents every job execution; forceCancel fires when the grace
	// period expires so in-flight tasks stop instead of running detached.
	taskCtx     context.Context
	forceCancel context.CancelFunc

	wg sync.WaitGroup
}

// PoolOptions configures a Pool.
type PoolOptions struct {
	Queue   *queue.Queue
	Runner  TaskRunner
	Results *cache.Tier
	Notify  Notifier
	// PerPriority supplies job timeout and result TTL per queue.
	PerPriority map[domain.Priority]config.QueueConfig
	// Priorities selects the worker profile; empty reads every queue.
	Priorities []domain.Priority
	Size       int
	// Grace bounds how long Run waits for in-flight jobs after cancellation.
	Grace time.Duration
}

// NewPool builds a pool; Size defaults to 4 and Grace to 30s.
func NewPool(opts PoolOptions) *Pool {
	if opts.Size <= 0 {
		opts.Size = 4
	}
	if opts.Grace <= 0 {
		opts.Grace = 30 * time.Second
	}
	if len(opts.Priorities) == 0 {
		opts.Priorities = domain.Priorities
	}
	taskCtx, forceCancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:       opts.Queue,
		runner:      opts.Runner,
		results:     opts.Results,
		notify:      opts.Notify,
		cfg:         opts.PerPriority,
		priorities:  opts.Priorities,
		size:        opts.Size,
		grace:       opts.Grace,
		taskCtx:     taskCtx,
		forceCancel: forceCancel,
	}
	// Every burial surfaces here, including visibility-timeout expiries the
	// janitor detects long after the worker's own nack path has moved on.
	p.queue.SetOnDead(p.handleDead)
	return p
}

// handleDead caches the terminal failure record and notifies the webhook.
// The queue invokes it once per burial.
func (p *Pool) handleDead(job *domain.Job, cause error) {
	if cause == nil {
		cause = errors.New(job.LastError)
	}
	failure := domain.FailureFrom(cause)
	failure.Retryable = false
	slog.Warn("job dead-lettered",
		slog.String("job_id", job.ID),
		slog.Int("attempts", job.Attempts),
		slog.String("cause", failure.Message))
	p.storeResult(job, nil, &failure, failedResultTTL)
	p.dispatch(job, "failed", nil, &failure)
}

// Run blocks until ctx is cancelled, then waits up to the grace period for
// in-flight jobs to finish. Jobs still running when the grace expires are
// cancelled; the queue's visibility timeout returns them for redelivery.
func (p *Pool) Run(ctx context.Context) {
	slog.Info("worker pool starting", slog.Int("size", p.size))
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
	<-ctx.Done()
	defer p.forceCancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("worker pool drained")
		return
	case <-time.After(p.grace):
		slog.Warn("worker pool grace period expired, cancelling in-flight jobs",
			slog.Duration("grace", p.grace))
	}
	p.forceCancel()
	<-done
}

func (p *Pool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		job, err := p.queue.DequeueFrom(ctx, p.priorities...)
		if err != nil {
			if domain.Classify(err) == domain.ClassCancelled {
				return
			}
			slog.Error("worker dequeue failed", slog.Int("worker", id), slog.Any("error", err))
			return
		}
		p.execute(job)
	}
}

// execute runs one delivery. The job context is detached from the dequeue
// context so shutdown drains rather than kills in-flight work, but it stays
// parented to taskCtx so the grace deadline can still cancel it.
func (p *Pool) execute(job *domain.Job) {
	cfg := p.cfgFor(job.Priority)
	ctx, cancel := context.WithTimeout(p.taskCtx, cfg.JobTimeout)
	defer cancel()

	var result json.RawMessage
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("%w: task panicked: %v", domain.ErrInternal, rec)
				slog.Error("task panic",
					slog.String("job_id", job.ID),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))
			}
		}()
		var payload domain.TaskPayload
		if uerr := json.Unmarshal(job.Payload, &payload); uerr != nil {
			err = fmt.Errorf("%w: bad payload: %v", domain.ErrInvalidArgument, uerr)
			return
		}
		result, err = p.runner.RunTask(ctx, job, payload)
	}()

	if err == nil {
		if ackErr := p.queue.Ack(job.ID); ackErr != nil {
			slog.Error("ack failed", slog.String("job_id", job.ID), slog.Any("error", ackErr))
			return
		}
		p.storeResult(job, result, nil, cfg.ResultTTL)
		p.dispatch(job, "succeeded", result, nil)
		return
	}

	class := domain.Classify(err)
	if class == domain.ClassCancelled && p.taskCtx.Err() != nil {
		// forced shutdown: leave the delivery to the visibility timeout so
		// the job is redelivered instead of buried
		slog.Info("task cancelled by shutdown", slog.String("job_id", job.ID))
		return
	}
	retryable := class.Retryable()
	slog.Warn("task failed",
		slog.String("job_id", job.ID),
		slog.String("class", string(class)),
		slog.Bool("retryable", retryable),
		slog.Int("attempts", job.Attempts),
		slog.Any("error", err))
	if nackErr := p.queue.Nack(job.ID, err, retryable); nackErr != nil {
		slog.Error("nack failed", slog.String("job_id", job.ID), slog.Any("error", nackErr))
	}
	// Terminal failures are handled by handleDead via the queue's dead-letter
	// hook, so the retry and burial paths stay in one place.
}

// storedResult is the cached completion record fetched by result lookups.
type storedResult struct {
	JobID  string          `json:"job_id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *domain.Failure `json:"error,omitempty"`
}

func (p *Pool) storeResult(job *domain.Job, result json.RawMessage, failure *domain.Failure, ttl time.Duration) {
	if p.results == nil {
		return
	}
	status := "succeeded"
	if failure != nil {
		status = "failed"
	}
	data, err := json.Marshal(storedResult{JobID: job.ID, Status: status, Result: result, Error: failure})
	if err != nil {
		slog.Error("result marshal failed", slog.String("job_id", job.ID), slog.Any("error", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.results.Set(ctx, cache.Key("result", job.ID), data, ttl)
}

func (p *Pool) dispatch(job *domain.Job, status string, result json.RawMessage, failure *domain.Failure) {
	if p.notify == nil || job.WebhookURL == "" {
		return
	}
	payload := webhook.Payload{
		JobID:       job.ID,
		Status:      status,
		Result:      result,
		Error:       failure,
		CompletedAt: time.Now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := p.notify.Deliver(ctx, job.WebhookURL, job.WebhookSecret, payload); err != nil {
		slog.Error("webhook dispatch failed", slog.String("job_id", job.ID), slog.Any("error", err))
	}
}

func (p *Pool) cfgFor(pr domain.Priority) config.QueueConfig {
	if c, ok := p.cfg[pr]; ok {
		return c
	}
	return config.QueueConfig{JobTimeout: 5 * time.Minute, ResultTTL: 12 * time.Hour, MaxRetries: 3}
}
