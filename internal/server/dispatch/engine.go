// Package dispatch runs the periodic liveness sweep: reminding owners whose
// window is nearly spent and fanning out vault content to trustees once a
// principal expires.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/lifesignal/lifesignal/internal/common"
	"github.com/lifesignal/lifesignal/internal/logging"
	"github.com/lifesignal/lifesignal/internal/obs"
	"github.com/lifesignal/lifesignal/internal/server/liveness"
	"github.com/lifesignal/lifesignal/internal/server/notify"
	"github.com/lifesignal/lifesignal/internal/server/principals"
	"github.com/lifesignal/lifesignal/internal/server/trustees"
	"github.com/lifesignal/lifesignal/internal/server/vault"
)

type Engine struct {
	principals  principals.Repository
	trustees    trustees.Repository
	vault       *vault.Service
	notifier    notify.Notifier
	logger      logging.Logger
	sendTimeout time.Duration
}

func NewEngine(p principals.Repository, t trustees.Repository, v *vault.Service,
	notifier notify.Notifier, sendTimeout time.Duration, logger logging.Logger) *Engine {
	return &Engine{
		principals:  p,
		trustees:    t,
		vault:       v,
		notifier:    notifier,
		logger:      logger.With("module", "dispatch"),
		sendTimeout: sendTimeout,
	}
}

// RunCheck sweeps every watchable principal once against the given instant.
// A notification failure never fails the sweep: each delivery is attempted
// independently and failures are logged and counted.
func (e *Engine) RunCheck(ctx context.Context, now time.Time) error {

	list, err := e.principals.ListWatchable(ctx)
	if err != nil {
		return fmt.Errorf("error listing principals: %w", err)
	}

	for _, p := range list {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case liveness.IsExpired(p, now):
			e.expire(ctx, p)
		case p.Elapsed(now) > time.Duration(float64(p.Threshold())*common.ReminderFraction):
			e.remind(ctx, p, now)
		}
	}

	obs.CheckRuns.Inc()
	return nil
}

func (e *Engine) remind(ctx context.Context, p *principals.Principal, now time.Time) {
	remaining := p.Threshold() - p.Elapsed(now)
	msg := notify.NewMessage(notify.KindReminder, p.ID,
		fmt.Sprintf("check in within %s or your vault will be distributed", remaining.Round(time.Minute)))
	if err := e.send(ctx, p.ID, msg); err != nil {
		e.logger.Warn(ctx, "reminder failed", "principal_id", p.ID, "error", err)
		return
	}
	obs.Reminders.Inc()
}

// expire performs the alive -> expired flip and, on winning it, fans out to
// trustees. The compare-and-set is what makes the fan-out at-most-once: a
// concurrent or repeated sweep that loses the flip does nothing.
func (e *Engine) expire(ctx context.Context, p *principals.Principal) {

	flipped, err := e.principals.ExpireIfAlive(ctx, p.ID)
	if err != nil {
		e.logger.Error(ctx, "expiry flip failed", "principal_id", p.ID, "error", err)
		return
	}
	if !flipped {
		return
	}

	obs.Expiries.Inc()
	e.logger.Info(ctx, "principal expired", "principal_id", p.ID)

	links, err := e.trustees.ListByOwner(ctx, p.ID)
	if err != nil {
		e.logger.Error(ctx, "listing trustees for fan-out", "principal_id", p.ID, "error", err)
		return
	}
	entries, err := e.vault.ListByOwner(ctx, p.ID)
	if err != nil {
		e.logger.Error(ctx, "listing vault for fan-out", "principal_id", p.ID, "error", err)
		return
	}

	for _, link := range links {
		e.deliverTo(ctx, p, link, entries)
	}
}

// deliverTo sends one trustee their expiry notice plus every entry addressed
// to them. Entries addressed to ids that are not registered trustees are
// never reached: the fan-out iterates the registry, not the address lists.
func (e *Engine) deliverTo(ctx context.Context, p *principals.Principal, link *trustees.Link, entries []*vault.Entry) {

	notice := notify.NewMessage(notify.KindExpiryNotice, p.ID,
		fmt.Sprintf("%s has not checked in within their window", p.DisplayName))
	if err := e.send(ctx, link.TrusteeID, notice); err != nil {
		e.logger.Warn(ctx, "expiry notice failed", "trustee_id", link.TrusteeID, "error", err)
		obs.Deliveries.WithLabelValues(string(notify.KindExpiryNotice), "error").Inc()
	} else {
		obs.Deliveries.WithLabelValues(string(notify.KindExpiryNotice), "ok").Inc()
	}

	for _, entry := range entries {
		if !entry.AddressedTo(link.TrusteeID) {
			continue
		}
		msg, err := e.contentMessage(ctx, p.ID, entry)
		if err != nil {
			e.logger.Error(ctx, "preparing entry for delivery",
				"trustee_id", link.TrusteeID, "entry_id", entry.ID, "error", err)
			obs.Deliveries.WithLabelValues(string(notify.KindContentDelivery), "error").Inc()
			continue
		}
		if err := e.send(ctx, link.TrusteeID, msg); err != nil {
			e.logger.Warn(ctx, "content delivery failed",
				"trustee_id", link.TrusteeID, "entry_id", entry.ID, "error", err)
			obs.Deliveries.WithLabelValues(string(notify.KindContentDelivery), "error").Inc()
			continue
		}
		obs.Deliveries.WithLabelValues(string(notify.KindContentDelivery), "ok").Inc()
	}
}

func (e *Engine) contentMessage(ctx context.Context, principalID string, entry *vault.Entry) (notify.Message, error) {

	if entry.ContentKind == vault.KindText {
		plaintext, err := e.vault.Decrypt(entry)
		if err != nil {
			return notify.Message{}, err
		}
		msg := notify.NewMessage(notify.KindContentDelivery, principalID, plaintext)
		msg.ContentKind = string(entry.ContentKind)
		return msg, nil
	}

	url, err := e.vault.GetPresignedGetUrl(ctx, entry.StorageKey)
	if err != nil {
		return notify.Message{}, err
	}
	msg := notify.NewMessage(notify.KindContentDelivery, principalID, "")
	msg.ContentKind = string(entry.ContentKind)
	msg.AttachmentURL = url
	return msg, nil
}

func (e *Engine) send(ctx context.Context, recipientID string, msg notify.Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	defer cancel()
	return e.notifier.Send(sendCtx, recipientID, msg)
}
