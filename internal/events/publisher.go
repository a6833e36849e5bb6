// Package events broadcasts job lifecycle changes to Redis subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
	"github.com/redis/go-redis/v9"
)

// JobEvent is the message published for every job transition
type JobEvent struct {
	JobID     string          `json:"job_id"`
	Type      model.JobType   `json:"type"`
	Status    model.JobStatus `json:"status"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

// redisClient is the subset of *redis.Client the publisher uses
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisPublisher publishes job events on a channel and mirrors the latest job
// snapshot under <channel>:job:<id>
type RedisPublisher struct {
	client  redisClient
	channel string
	ttl     time.Duration
}

// Connect opens a Redis client and verifies it answers
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)
	return client, nil
}

// NewRedisPublisher creates a publisher. Snapshots expire after ttl.
func NewRedisPublisher(client redisClient, channel string, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
		ttl:     ttl,
	}
}

// SnapshotKey is where the latest state of a job is mirrored
func (p *RedisPublisher) SnapshotKey(jobID string) string {
	return p.channel + ":job:" + jobID
}

// JobChanged publishes the transition. Failures are logged and never reach the job.
func (p *RedisPublisher) JobChanged(ctx context.Context, job model.Job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	event, err := json.Marshal(JobEvent{
		JobID:     job.ID,
		Type:      job.Type,
		Status:    job.Status,
		Progress:  job.Progress,
		Message:   job.Message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("Failed to encode job event", "job_id", job.ID, "error", err)
		return
	}

	if err := p.client.Publish(ctx, p.channel, event).Err(); err != nil {
		slog.Warn("Failed to publish job event", "job_id", job.ID, "status", job.Status, "error", err)
	}

	snapshot, err := json.Marshal(job)
	if err != nil {
		slog.Error("Failed to encode job snapshot", "job_id", job.ID, "error", err)
		return
	}
	if err := p.client.Set(ctx, p.SnapshotKey(job.ID), snapshot, p.ttl).Err(); err != nil {
		slog.Warn("Failed to store job snapshot", "job_id", job.ID, "error", err)
	}
}
