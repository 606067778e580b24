// Package notify defines the outbound notification capability. The core
// assumes no delivery guarantee: every send is fire-and-forget with a
// success/failure result, and callers decide whether a failure matters.
package notify

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type Kind string

const (
	KindExpiryNotice    Kind = "expiry_notice"
	KindContentDelivery Kind = "content_delivery"
	KindLockoutNotice   Kind = "lockout_notice"
	KindRecoveryNotice  Kind = "recovery_notice"
	KindReminder        Kind = "reminder"
	KindTrusteeChange   Kind = "trustee_change"
)

// Message is a single outbound notification. ID is a ULID stamped at
// construction so deliveries can be correlated in logs.
type Message struct {
	ID            string `json:"id"`
	Kind          Kind   `json:"kind"`
	PrincipalID   string `json:"principal_id"`
	Body          string `json:"body"`
	ContentKind   string `json:"content_kind,omitempty"`
	AttachmentURL string `json:"attachment_url,omitempty"`
}

// Notifier delivers a message to a recipient. Implementations must be safe
// for concurrent use and should bound each call themselves or respect the
// caller's context deadline.
type Notifier interface {
	Send(ctx context.Context, recipientID string, msg Message) error
}

// NewMessage builds a message with a fresh ULID.
func NewMessage(kind Kind, principalID, body string) Message {
	return Message{
		ID:          ulid.Make().String(),
		Kind:        kind,
		PrincipalID: principalID,
		Body:        body,
	}
}
