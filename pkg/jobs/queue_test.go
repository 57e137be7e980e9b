package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := make([]string, 0)
	done := make(chan struct{}, 3)
	q := NewQueue("reports", func(_ context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})

	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "export"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestQueueRetriesFailedJob(t *testing.T) {
	var attempts int32
	done := make(chan Job, 1)
	q := NewQueue("reports", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		done <- job
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))

	select {
	case job := <-done:
		assert.Equal(t, 2, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var attempts int32
	q := NewQueue("reports", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 1, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	time.Sleep(100 * time.Millisecond)
	q.Stop()

	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("reports", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
}

func TestEnqueueAfterStop(t *testing.T) {
	q := NewQueue("reports", func(context.Context, Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
}

func TestMemoryBackendPopHonoursContext(t *testing.T) {
	b := NewMemoryBackend(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJobEncoding(t *testing.T) {
	enqueued := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	raw, err := encodeJob(Job{ID: "job-1", Type: "report", Payload: map[string]string{"format": "pdf"}, Attempt: 2, Enqueued: enqueued})
	require.NoError(t, err)

	job, err := decodeJob(raw)
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, "pdf", job.Payload["format"])
	assert.Equal(t, 2, job.Attempt)
	assert.True(t, enqueued.Equal(job.Enqueued))

	_, err = decodeJob("not-json")
	assert.Error(t, err)
}
