package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
	"github.com/redis/go-redis/v9"
)

type recordingClient struct {
	published map[string][]string
	stored    map[string]string
	ttls      map[string]time.Duration
	fail      error
}

func newRecordingClient() *recordingClient {
	return &recordingClient{
		published: make(map[string][]string),
		stored:    make(map[string]string),
		ttls:      make(map[string]time.Duration),
	}
}

func (c *recordingClient) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	if c.fail != nil {
		return redis.NewIntResult(0, c.fail)
	}
	c.published[channel] = append(c.published[channel], string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func (c *recordingClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if c.fail != nil {
		return redis.NewStatusResult("", c.fail)
	}
	c.stored[key] = string(value.([]byte))
	c.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisPublisherJobChanged(t *testing.T) {
	client := newRecordingClient()
	publisher := NewRedisPublisher(client, "adbfleet:jobs", time.Hour)

	job := model.Job{ID: "job-1", Type: model.JobTypeGoogleSignIn, Status: model.JobStatusRunning, Progress: 50, Message: "half"}
	publisher.JobChanged(context.Background(), job)

	messages := client.published["adbfleet:jobs"]
	if len(messages) != 1 {
		t.Fatalf("Expected 1 published message, got %d", len(messages))
	}

	var event JobEvent
	if err := json.Unmarshal([]byte(messages[0]), &event); err != nil {
		t.Fatalf("Invalid event JSON: %v", err)
	}
	if event.JobID != "job-1" || event.Status != model.JobStatusRunning || event.Progress != 50 {
		t.Errorf("Unexpected event %+v", event)
	}

	key := publisher.SnapshotKey("job-1")
	if key != "adbfleet:jobs:job:job-1" {
		t.Errorf("SnapshotKey() = %s", key)
	}
	if client.stored[key] == "" || client.ttls[key] != time.Hour {
		t.Errorf("Snapshot not stored with TTL: %q %v", client.stored[key], client.ttls[key])
	}
}

func TestRedisPublisherSwallowsErrors(t *testing.T) {
	client := newRecordingClient()
	client.fail = errors.New("connection refused")
	publisher := NewRedisPublisher(client, "jobs", time.Minute)

	publisher.JobChanged(context.Background(), model.Job{ID: "job-2", Status: model.JobStatusError})

	if len(client.published) != 0 {
		t.Error("Nothing should be recorded when Redis fails")
	}
}
