package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peakform/coachdesk-api/pkg/config"
	"github.com/peakform/coachdesk-api/pkg/jobs"
)

// EmailSender delivers a transactional email. Implementations wrap the
// outbound provider; delivery is fire-and-forget from the caller's view.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// PushNotifier delivers a push notification to a user's devices.
type PushNotifier interface {
	Notify(ctx context.Context, userID, kind string, payload map[string]string) error
}

const (
	jobKindEmail = "email"
	jobKindPush  = "push"
)

type emailJob struct {
	To       string
	Subject  string
	HTMLBody string
}

type pushJob struct {
	UserID  string
	Kind    string
	Payload map[string]string
}

// Dispatcher routes best-effort deliveries through a retrying worker queue
// so sink latency and failures never touch the caller's primary write path.
type Dispatcher struct {
	queue   *jobs.Queue
	email   EmailSender
	push    PushNotifier
	timeout time.Duration
	logger  *zap.Logger
}

// NewDispatcher wires the delivery queue. timeout bounds each sink call.
func NewDispatcher(email EmailSender, push PushNotifier, timeout time.Duration, cfg config.NotificationsConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &Dispatcher{email: email, push: push, timeout: timeout, logger: logger}
	d.queue = jobs.NewQueue("notifications", d.handle, jobs.QueueConfig{
		Workers:    cfg.QueueWorkers,
		BufferSize: cfg.QueueBuffer,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return d
}

// Start launches the queue workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// EnqueueEmail schedules an outbound email.
func (d *Dispatcher) EnqueueEmail(to, subject, htmlBody string) error {
	return d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Kind:    jobKindEmail,
		Payload: emailJob{To: to, Subject: subject, HTMLBody: htmlBody},
	})
}

// EnqueuePush schedules a push notification.
func (d *Dispatcher) EnqueuePush(userID, kind string, payload map[string]string) error {
	return d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Kind:    jobKindPush,
		Payload: pushJob{UserID: userID, Kind: kind, Payload: payload},
	})
}

func (d *Dispatcher) handle(ctx context.Context, job jobs.Job) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	switch payload := job.Payload.(type) {
	case emailJob:
		if d.email == nil {
			return nil
		}
		return d.email.Send(ctx, payload.To, payload.Subject, payload.HTMLBody)
	case pushJob:
		if d.push == nil {
			return nil
		}
		return d.push.Notify(ctx, payload.UserID, payload.Kind, payload.Payload)
	default:
		d.logger.Sugar().Warnw("unknown notification job", "kind", job.Kind, "job_id", job.ID)
		return nil
	}
}
