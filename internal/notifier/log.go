package notifier

import (
	"context"

	"go.uber.org/zap"
)

// LogEmailSender writes would-be emails to the log. Used in development and
// wherever a real provider is not configured.
type LogEmailSender struct {
	logger *zap.Logger
}

// NewLogEmailSender constructs the sender.
func NewLogEmailSender(logger *zap.Logger) *LogEmailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmailSender{logger: logger}
}

// Send implements EmailSender.
func (s *LogEmailSender) Send(_ context.Context, to, subject, _ string) error {
	s.logger.Sugar().Infow("email delivery", "to", to, "subject", subject)
	return nil
}

// LogPushNotifier writes would-be push notifications to the log.
type LogPushNotifier struct {
	logger *zap.Logger
}

// NewLogPushNotifier constructs the notifier.
func NewLogPushNotifier(logger *zap.Logger) *LogPushNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPushNotifier{logger: logger}
}

// Notify implements PushNotifier.
func (s *LogPushNotifier) Notify(_ context.Context, userID, kind string, payload map[string]string) error {
	s.logger.Sugar().Infow("push delivery", "user_id", userID, "kind", kind, "payload", payload)
	return nil
}
