package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookNotifier_Send(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second)
	msg := NewMessage(KindExpiryNotice, "p-1", "principal unreachable")

	if err := n.Send(context.Background(), "t-1", msg); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if got.RecipientID != "t-1" || got.Message.Kind != KindExpiryNotice {
		t.Errorf("unexpected payload: %+v", got)
	}
	if got.Message.ID == "" {
		t.Errorf("expected message id to be stamped")
	}
}

func TestWebhookNotifier_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second)
	if err := n.Send(context.Background(), "t-1", NewMessage(KindReminder, "p-1", "x")); err == nil {
		t.Fatalf("expected error for non-2xx status")
	}
}

func TestWebhookNotifier_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	n := NewWebhookNotifier(srv.URL, time.Second)
	if err := n.Send(ctx, "t-1", NewMessage(KindReminder, "p-1", "x")); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
