package webhook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dandantas/adbfleet/internal/model"
)

// DeliveryStore persists delivery logs
type DeliveryStore interface {
	Create(ctx context.Context, log *model.DeliveryLog) error
}

// Notifier posts a webhook whenever a job reaches a terminal state
type Notifier struct {
	dispatcher *Dispatcher
	webhook    model.Webhook
	store      DeliveryStore
	timeout    time.Duration

	wg sync.WaitGroup
}

// NewNotifier creates a job notifier. store may be nil.
func NewNotifier(dispatcher *Dispatcher, webhook model.Webhook, store DeliveryStore, timeout time.Duration) (*Notifier, error) {
	if err := webhook.Validate(); err != nil {
		return nil, err
	}
	return &Notifier{
		dispatcher: dispatcher,
		webhook:    webhook,
		store:      store,
		timeout:    timeout,
	}, nil
}

// JobChanged sends the notification in the background so job goroutines never
// wait on the receiver
func (n *Notifier) JobChanged(ctx context.Context, job model.Job) {
	if !job.Status.IsTerminal() {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		// retries may outlive the request or job that triggered them
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		delivery, err := n.dispatcher.Send(sendCtx, n.webhook, FormatJobPayload(job), job.ID)
		delivery.JobStatus = job.Status
		if err != nil {
			slog.Warn("Job notification failed", "job_id", job.ID, "error", err)
		}

		if n.store == nil {
			return
		}
		if err := n.store.Create(context.WithoutCancel(ctx), delivery); err != nil {
			slog.Error("Failed to store delivery log", "job_id", job.ID, "error", err)
		}
	}()
}

// Close waits for pending notifications until ctx expires
func (n *Notifier) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
