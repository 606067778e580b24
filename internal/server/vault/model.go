package vault

import (
	"strings"
	"time"
)

type ContentKind string

const (
	KindText  ContentKind = "text"
	KindImage ContentKind = "image"
	KindVideo ContentKind = "video"
	KindAudio ContentKind = "audio"
)

func ValidKind(k ContentKind) bool {
	switch k {
	case KindText, KindImage, KindVideo, KindAudio:
		return true
	}
	return false
}

// Entry is a unit of encrypted content addressed to a subset of the owner's
// trustees. RecipientIDs may contain ids of trustees revoked after the entry
// was written; the distribution engine skips those.
type Entry struct {
	ID           int64
	OwnerID      string
	ContentKind  ContentKind
	Ciphertext   []byte
	Nonce        []byte
	StorageKey   string
	RecipientIDs []string
	CreatedAt    time.Time
}

// AddressedTo reports whether trusteeID is in the entry's recipient set.
func (e *Entry) AddressedTo(trusteeID string) bool {
	for _, id := range e.RecipientIDs {
		if id == trusteeID {
			return true
		}
	}
	return false
}

// joinRecipients and splitRecipients convert between the slice form and the
// comma-joined column form.
func joinRecipients(ids []string) string {
	return strings.Join(ids, ",")
}

func splitRecipients(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
