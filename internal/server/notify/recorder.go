package notify

import (
	"context"
	"errors"
	"sync"
)

// Recorder is an in-memory Notifier used in tests and as the default when no
// webhook endpoint is configured. It records every send and can be told to
// fail for specific recipients.
type Recorder struct {
	mu      sync.Mutex
	sent    []Sent
	failFor map[string]struct{}
}

type Sent struct {
	RecipientID string
	Message     Message
}

var errRecipientUnreachable = errors.New("recipient unreachable")

func NewRecorder() *Recorder {
	return &Recorder{failFor: make(map[string]struct{})}
}

// FailFor makes every subsequent send to recipientID return an error.
func (r *Recorder) FailFor(recipientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failFor[recipientID] = struct{}{}
}

func (r *Recorder) Send(ctx context.Context, recipientID string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.failFor[recipientID]; ok {
		return errRecipientUnreachable
	}
	r.sent = append(r.sent, Sent{RecipientID: recipientID, Message: msg})
	return nil
}

// Sent returns a copy of everything delivered so far.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// SentTo returns the messages delivered to one recipient.
func (r *Recorder) SentTo(recipientID string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, s := range r.sent {
		if s.RecipientID == recipientID {
			out = append(out, s.Message)
		}
	}
	return out
}
