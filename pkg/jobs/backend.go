package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoJob signals that Pop returned without work; workers simply poll again.
var ErrNoJob = errors.New("no job available")

// Backend stores pending jobs between Enqueue and a worker picking them up.
type Backend interface {
	Push(ctx context.Context, job Job) error
	Pop(ctx context.Context) (Job, error)
}

// MemoryBackend is a bounded channel living inside the process.
type MemoryBackend struct {
	ch chan Job
}

// NewMemoryBackend creates a channel-backed backend.
func NewMemoryBackend(size int) *MemoryBackend {
	if size <= 0 {
		size = 1
	}
	return &MemoryBackend{ch: make(chan Job, size)}
}

func (b *MemoryBackend) Push(ctx context.Context, job Job) error {
	select {
	case b.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBackend) Pop(ctx context.Context) (Job, error) {
	select {
	case job := <-b.ch:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// RedisBackend keeps jobs in a Redis list using LPUSH/BRPOP.
type RedisBackend struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisBackend builds a list-backed backend.
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = "tracker:jobs"
	}
	return &RedisBackend{client: client, key: key, timeout: 5 * time.Second}
}

func (b *RedisBackend) Push(ctx context.Context, job Job) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}
	return b.client.LPush(ctx, b.key, payload).Err()
}

func (b *RedisBackend) Pop(ctx context.Context) (Job, error) {
	res, err := b.client.BRPop(ctx, b.timeout, b.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Job{}, ErrNoJob
		}
		return Job{}, err
	}
	if len(res) != 2 {
		return Job{}, ErrNoJob
	}
	return decodeJob(res[1])
}

func encodeJob(job Job) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return string(data), nil
}

func decodeJob(raw string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}
