package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/talent-matcher/internal/config"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testQueue(t *testing.T, clock *fakeClock, hwm int) *Queue {
	t.Helper()
	q := New(Options{
		PerPriority: map[domain.Priority]config.QueueConfig{
			domain.PriorityPremium:  {JobTimeout: 10 * time.Minute, ResultTTL: 24 * time.Hour, MaxRetries: 5},
			domain.PriorityStandard: {JobTimeout: 5 * time.Minute, ResultTTL: 12 * time.Hour, MaxRetries: 3},
			domain.PriorityBatch:    {JobTimeout: 30 * time.Minute, ResultTTL: 48 * time.Hour, MaxRetries: 2},
		},
		HighWaterMark:  hwm,
		RetryBaseDelay: 500 * time.Millisecond,
		RetryMaxDelay:  30 * time.Second,
		Now:            clock.Now,
	})
	t.Cleanup(q.Close)
	return q
}

func job(id string, p domain.Priority) *domain.Job {
	return &domain.Job{ID: id, Kind: domain.KindMatch, Priority: p}
}

func TestStrictPriorityOrder(t *testing.T) {
	q := testQueue(t, newFakeClock(), 100)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, job("b1", domain.PriorityBatch)))
	require.NoError(t, q.Enqueue(ctx, job("s1", domain.PriorityStandard)))
	require.NoError(t, q.Enqueue(ctx, job("p1", domain.PriorityPremium)))

	for _, want := range []string{"p1", "s1", "b1"} {
		j, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, j.ID)
	}
}

func TestFIFOWithinPriority(t *testing.T) {
	q := testQueue(t, newFakeClock(), 100)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(ctx, job(fmt.Sprintf("s%d", i), domain.PriorityStandard)))
	}
	for i := 0; i < 3; i++ {
		j, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("s%d", i), j.ID)
	}
}

func TestEnqueueBackpressure(t *testing.T) {
	q := testQueue(t, newFakeClock(), 2)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, job("a", domain.PriorityStandard)))
	require.NoError(t, q.Enqueue(ctx, job("b", domain.PriorityStandard)))

	err := q.Enqueue(ctx, job("c", domain.PriorityStandard))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQueueFull)
}

func TestBackpressureIsPerPriority(t *testing.T) {
	q := testQueue(t, newFakeClock(), 1)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, job("p1", domain.PriorityPremium)))
	require.ErrorIs(t, q.Enqueue(ctx, job("p2", domain.PriorityPremium)), domain.ErrQueueFull)

	// a full premium queue must not block the other priorities, so a
	// rejected submission can be resubmitted at a lower priority
	require.NoError(t, q.Enqueue(ctx, job("s1", domain.PriorityStandard)))
	require.NoError(t, q.Enqueue(ctx, job("b1", domain.PriorityBatch)))
}

func TestEnqueueRejectsUnknownPriority(t *testing.T) {
	q := testQueue(t, newFakeClock(), 10)
	err := q.Enqueue(context.Background(), &domain.Job{ID: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAckMarksSucceeded(t *testing.T) {
	q := testQueue(t, newFakeClock(), 10)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, job("a", domain.PriorityStandard)))
	j, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Ack(j.ID))

	got, err := q.Fetch("a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobSucceeded, got.Status)
	assert.Equal(t, 1, got.Attempts)
}

func TestRetryableFailuresExhaustToDeadLetter(t *testing.T) {
	clock := newFakeClock()
	q := testQueue(t, clock, 10)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, job("a", domain.PriorityStandard)))

	// standard allows 3 retries: deliveries 1-4, then dead
	for attempt := 1; attempt <= 4; attempt++ {
		j, err := q.Dequeue(ctx)
		require.NoError(t, err, "delivery %d", attempt)
		assert.Equal(t, attempt, j.Attempts)
		require.NoError(t, q.Nack(j.ID, errors.New("downstream unavailable"), true))
		clock.Advance(time.Minute)
		q.sweep()
	}

	got, err := q.Fetch("a")
	require.NoError(t, err)
	assert.Equal(t, domain.JobDead, got.Status)
	assert.Equal(t, 4, got.Attempts)
	require.Len(t, q.DeadLetters(), 1)
	assert.Equal(t, "a", q.DeadLetters()[0].ID)
}

func TestDeadLetterHookFiresOnEveryBurialPath(t *testing.T) {
	clock := newFakeClock()
	q := testQueue(t, clock, 10)
	ctx := context.Background()

	var mu sync.Mutex
	var buried []string
	var causes []error
	q.SetOnDead(func(j *domain.Job, cause error) {
		mu.Lock()
		buried = append(buried, j.ID)
		causes = append(causes, cause)
		mu.Unlock()
	})

	// nack path
	require.NoError(t, q.Enqueue(ctx, job("a", domain.PriorityStandard)))
	j, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Nack(j.ID, errors.New("candidate not found"), false))

	// visibility-timeout path: standard allows 3 retries, so deliveries 1-3
	// requeue on expiry and the fourth expiry buries
	require.NoError(t, q.Enqueue(ctx, job("b", domain.PriorityStandard)))
	for attempt := 1; attempt <= 4; attempt++ {
		_, err := q.Dequeue(ctx)
		require.NoError(t, err)
		clock.Advance(6 * time.Minute)
		q.sweep()
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(buried) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b"}, buried)
	for _, cause := range causes {
		require.Error(t, cause)
	}
}

func TestNonRetryableGoesStraightToDeadLetter(t *testing.T) {
	q := testQueue(t, newFakeClock(), 10)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, job("a", domain.PriorityPremium)))
	j, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Nack(j.ID, errors.New("candidate not found"), false))

	got, _ := q.Fetch("a")
	assert.Equal(t, domain.JobDead, got.Status)
	assert.Equal(t, 1, got.Attempts)
}

func TestRetryDelayDoublesAndCaps(t *testing.T) {
	q := testQueue(t, newFakeClock(), 10)
	assert.Equal(t, 500*time.Millisecond, q.retryDelay(1))
	assert.Equal(t, 1*time.Second, q.retryDelay(2))
	assert.Equal(t, 2*time.Second, q.retryDelay(3))
	assert.Equal(t, 30*time.Second, q.retryDelay(10))
}

func TestVisibilityTimeoutRequeuesAtHead(t *testing.T) {
	clock := newFakeClock()
	q := testQueue(t, clock, 10)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, job("stuck", domain.PriorityStandard)))
	require.NoError(t, q.Enqueue(ctx, job("next", domain.PriorityStandard)))

	j, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "stuck", j.ID)

	// worker vanishes; visibility expires
	clock.Advance(6 * time.Minute)
	q.sweep()

	redelivered, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stuck", redelivered.ID, "expired job returns to the head")
	assert.Equal(t, 2, redelivered.Attempts)
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := testQueue(t, newFakeClock(), 10)
	ctx := context.Background()

	done := make(chan *domain.Job, 1)
	go func() {
		j, err := q.Dequeue(ctx)
		if err == nil {
			done <- j
		}
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, job("late", domain.PriorityBatch)))

	select {
	case j := <-done:
		assert.Equal(t, "late", j.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("dequeue did not wake on enqueue")
	}
}

func TestDequeueHonorsContext(t *testing.T) {
	q := testQueue(t, newFakeClock(), 10)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCancelled)
}

func TestStatsSnapshot(t *testing.T) {
	q := testQueue(t, newFakeClock(), 10)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, job("p1", domain.PriorityPremium)))
	require.NoError(t, q.Enqueue(ctx, job("p2", domain.PriorityPremium)))
	require.NoError(t, q.Enqueue(ctx, job("s1", domain.PriorityStandard)))

	j, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Nack(j.ID, errors.New("boom"), false))

	stats := q.Stats()
	assert.Equal(t, 1, stats[domain.PriorityPremium].Pending)
	assert.Equal(t, 1, stats[domain.PriorityPremium].Dead)
	assert.Equal(t, 1, stats[domain.PriorityStandard].Pending)
	assert.Equal(t, 0, stats[domain.PriorityBatch].Pending)
}

func TestFetchUnknownJob(t *testing.T) {
	q := testQueue(t, newFakeClock(), 10)
	_, err := q.Fetch("ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDequeueFromReadsOnlyItsProfile(t *testing.T) {
	q := testQueue(t, newFakeClock(), 100)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, job("s1", domain.PriorityStandard)))
	require.NoError(t, q.Enqueue(ctx, job("b1", domain.PriorityBatch)))

	// A batch worker skips the standard job even though it is ready.
	j, err := q.DequeueFrom(ctx, domain.PriorityBatch)
	require.NoError(t, err)
	assert.Equal(t, "b1", j.ID)

	// A standard worker overflow profile reads premium first, then standard.
	require.NoError(t, q.Enqueue(ctx, job("p1", domain.PriorityPremium)))
	j, err = q.DequeueFrom(ctx, domain.PriorityPremium, domain.PriorityStandard)
	require.NoError(t, err)
	assert.Equal(t, "p1", j.ID)

	j, err = q.DequeueFrom(ctx, domain.PriorityPremium, domain.PriorityStandard)
	require.NoError(t, err)
	assert.Equal(t, "s1", j.ID)
}
