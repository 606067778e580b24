package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookNotifier posts each message as JSON to a single configured endpoint.
// The front-end behind that endpoint owns actual user delivery; from the
// core's point of view a 2xx response is success, anything else is failure.
type WebhookNotifier struct {
	endpoint string
	client   *http.Client
}

type webhookPayload struct {
	RecipientID string  `json:"recipient_id"`
	Message     Message `json:"message"`
}

func NewWebhookNotifier(endpoint string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Send(ctx context.Context, recipientID string, msg Message) error {
	body, err := json.Marshal(webhookPayload{RecipientID: recipientID, Message: msg})
	if err != nil {
		return fmt.Errorf("error encoding notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error building notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("error delivering notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
