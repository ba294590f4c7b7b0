package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talent-matcher/internal/cache"
	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
	"github.com/fairyhunter13/talent-matcher/internal/queue"
	"github.com/fairyhunter13/talent-matcher/internal/webhook"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	fn    func(job *domain.Job, payload domain.TaskPayload) (json.RawMessage, error)
}

func (f *fakeRunner) RunTask(_ context.Context, job *domain.Job, payload domain.TaskPayload) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(job, payload)
}

type fakeNotifier struct {
	mu       sync.Mutex
	payloads []webhook.Payload
}

func (f *fakeNotifier) Deliver(_ context.Context, _, _ string, p webhook.Payload) error {
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.mu.Unlock()
	return nil
}

func (f *fakeNotifier) delivered() []webhook.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webhook.Payload(nil), f.payloads...)
}

var testCfg = map[domain.Priority]config.QueueConfig{
	domain.PriorityStandard: {JobTimeout: time.Minute, ResultTTL: time.Hour, MaxRetries: 3},
}

func testPool(t *testing.T, runner TaskRunner, notify Notifier) (*Pool, *queue.Queue, *cache.Tier) {
	t.Helper()
	q := queue.New(queue.Options{PerPriority: testCfg, HighWaterMark: 100})
	t.Cleanup(q.Close)
	results := cache.New(100)
	p := NewPool(PoolOptions{
		Queue:       q,
		Runner:      runner,
		Results:     results,
		Notify:      notify,
		PerPriority: testCfg,
		Size:        1,
		Grace:       time.Second,
	})
	return p, q, results
}

func matchJob(id string) *domain.Job {
	payload, _ := json.Marshal(domain.TaskPayload{Kind: domain.KindMatch, CandidateID: "c1", JobID: "j1"})
	return &domain.Job{
		ID:         id,
		Kind:       domain.KindMatch,
		Priority:   domain.PriorityStandard,
		Payload:    payload,
		WebhookURL: "https://example.com/hook",
	}
}

func TestExecuteSuccessAcksCachesAndNotifies(t *testing.T) {
	runner := &fakeRunner{fn: func(*domain.Job, domain.TaskPayload) (json.RawMessage, error) {
		return json.RawMessage(`{"overall_score":0.8}`), nil
	}}
	notify := &fakeNotifier{}
	p, q, results := testPool(t, runner, notify)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, matchJob("a")))
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	p.execute(job)

	got, err := q.Fetch("a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobSucceeded, got.Status)

	data, ok := results.Get(ctx, cache.Key("result", "a"))
	require.True(t, ok)
	var stored storedResult
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "succeeded", stored.Status)

	deliveries := notify.delivered()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "a", deliveries[0].JobID)
	assert.Equal(t, "succeeded", deliveries[0].Status)
}

func TestExecutePanicIsNonRetryable(t *testing.T) {
	runner := &fakeRunner{fn: func(*domain.Job, domain.TaskPayload) (json.RawMessage, error) {
		panic("nil pointer somewhere")
	}}
	notify := &fakeNotifier{}
	p, q, _ := testPool(t, runner, notify)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, matchJob("a")))
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	p.execute(job)

	got, err := q.Fetch("a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobDead, got.Status)
	assert.Equal(t, 1, got.Attempts, "panics must not be retried")

	require.Eventually(t, func() bool {
		return len(notify.delivered()) == 1
	}, 2*time.Second, 10*time.Millisecond, "burial must notify the webhook")
	deliveries := notify.delivered()
	assert.Equal(t, "failed", deliveries[0].Status)
	require.NotNil(t, deliveries[0].Error)
	assert.False(t, deliveries[0].Error.Retryable)
}

func TestVisibilityTimeoutBurialNotifiesAndCaches(t *testing.T) {
	runner := &fakeRunner{fn: func(*domain.Job, domain.TaskPayload) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}}
	notify := &fakeNotifier{}
	cfg := map[domain.Priority]config.QueueConfig{
		domain.PriorityStandard: {JobTimeout: 10 * time.Millisecond, ResultTTL: time.Hour, MaxRetries: 0},
	}
	q := queue.New(queue.Options{PerPriority: cfg, HighWaterMark: 100})
	t.Cleanup(q.Close)
	results := cache.New(100)
	NewPool(PoolOptions{
		Queue:       q,
		Runner:      runner,
		Results:     results,
		Notify:      notify,
		PerPriority: cfg,
		Size:        1,
		Grace:       time.Second,
	})

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, matchJob("a")))
	_, err := q.Dequeue(ctx)
	require.NoError(t, err)
	// never acked: the janitor buries it once the visibility deadline passes

	require.Eventually(t, func() bool {
		j, ferr := q.Fetch("a")
		return ferr == nil && j.Status == domain.JobDead
	}, 3*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(notify.delivered()) == 1
	}, 2*time.Second, 10*time.Millisecond, "janitor burials must notify too")
	delivery := notify.delivered()[0]
	assert.Equal(t, "failed", delivery.Status)
	require.NotNil(t, delivery.Error)
	assert.False(t, delivery.Error.Retryable)
	assert.Contains(t, delivery.Error.Message, "visibility timeout")

	data, ok := results.Get(ctx, cache.Key("result", "a"))
	require.True(t, ok)
	var stored storedResult
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "failed", stored.Status)
}

func TestExecuteRetryableFailureRequeuesWithoutWebhook(t *testing.T) {
	runner := &fakeRunner{fn: func(*domain.Job, domain.TaskPayload) (json.RawMessage, error) {
		return nil, fmt.Errorf("geo lookup: %w", domain.ErrUnavailable)
	}}
	notify := &fakeNotifier{}
	p, q, _ := testPool(t, runner, notify)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, matchJob("a")))
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	p.execute(job)

	got, err := q.Fetch("a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobQueued, got.Status, "retryable failure is rescheduled")
	assert.Empty(t, notify.delivered(), "no webhook until the job is terminal")
}

func TestExecuteBadPayloadGoesDead(t *testing.T) {
	runner := &fakeRunner{fn: func(*domain.Job, domain.TaskPayload) (json.RawMessage, error) {
		t.Fatal("runner must not be called for bad payloads")
		return nil, nil
	}}
	p, q, _ := testPool(t, runner, &fakeNotifier{})

	ctx := context.Background()
	bad := matchJob("a")
	bad.Payload = []byte("{not json")
	require.NoError(t, q.Enqueue(ctx, bad))
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	p.execute(job)

	got, err := q.Fetch("a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobDead, got.Status)
}

// blockingRunner holds every task until its context is cancelled.
type blockingRunner struct {
	started chan struct{}
}

func (b *blockingRunner) RunTask(ctx context.Context, _ *domain.Job, _ domain.TaskPayload) (json.RawMessage, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunCancelsInFlightAfterGrace(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{})}
	notify := &fakeNotifier{}
	p, q, _ := testPool(t, runner, notify)
	p.grace = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Enqueue(ctx, matchJob("a")))

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	<-runner.started
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("pool did not force-cancel in-flight work after the grace period")
	}

	// the delivery is abandoned, not buried: the visibility timeout returns
	// it for redelivery
	got, err := q.Fetch("a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobRunning, got.Status)
	assert.Empty(t, notify.delivered())
}

func TestRunDrainsOnCancel(t *testing.T) {
	runner := &fakeRunner{fn: func(*domain.Job, domain.TaskPayload) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}}
	p, q, _ := testPool(t, runner, &fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Enqueue(ctx, matchJob("a")))

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		j, err := q.Fetch("a")
		return err == nil && j.Status == domain.JobSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("pool did not stop after cancellation")
	}
}
