package notify

import (
	"context"

	"github.com/lifesignal/lifesignal/internal/logging"
)

// LogNotifier writes deliveries to the log. It stands in when no webhook
// endpoint is configured, typically in local development.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notify")}
}

func (n *LogNotifier) Send(ctx context.Context, recipientID string, msg Message) error {
	n.logger.Info(ctx, "notification",
		"recipient_id", recipientID,
		"message_id", msg.ID,
		"kind", msg.Kind,
		"principal_id", msg.PrincipalID,
		"body", msg.Body,
	)
	return nil
}
