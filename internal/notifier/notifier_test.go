package notifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakform/coachdesk-api/pkg/config"
)

type recordingEmailSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingEmailSender) Send(_ context.Context, to, subject, _ string) error {
	r.mu.Lock()
	r.sent = append(r.sent, to+":"+subject)
	r.mu.Unlock()
	return nil
}

type recordingPushNotifier struct {
	mu     sync.Mutex
	pushed []string
}

func (r *recordingPushNotifier) Notify(_ context.Context, userID, kind string, _ map[string]string) error {
	r.mu.Lock()
	r.pushed = append(r.pushed, userID+":"+kind)
	r.mu.Unlock()
	return nil
}

func TestDispatcherDeliversEmailAndPush(t *testing.T) {
	email := &recordingEmailSender{}
	push := &recordingPushNotifier{}
	d := NewDispatcher(email, push, time.Second, config.NotificationsConfig{QueueWorkers: 1, QueueBuffer: 4}, nil)

	d.Start(context.Background())
	defer d.Stop()

	require.NoError(t, d.EnqueueEmail("casey@example.com", "Reminder", "<p>hi</p>"))
	require.NoError(t, d.EnqueuePush("client-1", "SWAP_APPROVED", map[string]string{"swapRequestId": "swap-1"}))

	require.Eventually(t, func() bool {
		email.mu.Lock()
		push.mu.Lock()
		defer email.mu.Unlock()
		defer push.mu.Unlock()
		return len(email.sent) == 1 && len(push.pushed) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"casey@example.com:Reminder"}, email.sent)
	assert.Equal(t, []string{"client-1:SWAP_APPROVED"}, push.pushed)
}

func TestDispatcherEnqueueBeforeStart(t *testing.T) {
	d := NewDispatcher(&recordingEmailSender{}, &recordingPushNotifier{}, time.Second, config.NotificationsConfig{}, nil)
	assert.Error(t, d.EnqueueEmail("casey@example.com", "Reminder", ""))
}
