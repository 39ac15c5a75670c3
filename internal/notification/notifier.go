// Package notification delivers advisory notices to users. Delivery is
// fire-and-forget: failures are logged and swallowed, never surfaced to
// the caller and never retried. The activity log, not this package, is
// the durable audit record.
package notification

import (
	"context"

	"go.uber.org/zap"
)

type Notification struct {
	RecipientID   string
	RecipientName string
	Subject       string
	Body          string
}

// Notifier is the delivery backend. The production implementation would
// hand off to an email provider; LogNotifier stands in for it.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the service log.
type LogNotifier struct {
	logger *zap.SugaredLogger
}

func NewLogNotifier(logger *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.Infow("notification",
		"recipient_id", n.RecipientID,
		"recipient", n.RecipientName,
		"subject", n.Subject,
		"body", n.Body,
	)
	return nil
}

// Dispatch sends best-effort and logs failures at warn.
func Dispatch(ctx context.Context, notifier Notifier, logger *zap.SugaredLogger, n Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		logger.Warnw("notification delivery failed",
			"recipient_id", n.RecipientID,
			"subject", n.Subject,
			"err", err,
		)
	}
}
