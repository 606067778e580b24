package dispatch

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/lifesignal/lifesignal/internal/logging"
	"github.com/lifesignal/lifesignal/internal/server/config"
	"github.com/lifesignal/lifesignal/internal/server/notify"
	"github.com/lifesignal/lifesignal/internal/server/principals"
	"github.com/lifesignal/lifesignal/internal/server/trustees"
	"github.com/lifesignal/lifesignal/internal/server/vault"
)

type fixture struct {
	engine     *Engine
	principals principals.Repository
	trustees   trustees.Repository
	vault      *vault.Service
	recorder   *notify.Recorder
	start      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	vaultSvc, err := vault.NewService(vault.NewInMemoryRepository(), cfg, logger)
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		principals: principals.NewInMemoryRepository(),
		trustees:   trustees.NewInMemoryRepository(),
		vault:      vaultSvc,
		recorder:   notify.NewRecorder(),
		start:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.engine = NewEngine(f.principals, f.trustees, f.vault, f.recorder, time.Second, logger)
	return f
}

// owner creates a principal with the given window, heartbeat pinned to
// f.start, and trustee links.
func (f *fixture) owner(t *testing.T, id string, thresholdHours int, guardians ...string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.principals.GetOrCreate(ctx, id, id); err != nil {
		t.Fatal(err)
	}
	err := f.principals.Update(ctx, id, func(p *principals.Principal) error {
		p.ThresholdHours = thresholdHours
		p.LastHeartbeat = f.start
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range guardians {
		if err := f.trustees.Add(ctx, &trustees.Link{PrincipalID: id, TrusteeID: g}); err != nil {
			t.Fatal(err)
		}
	}
}

func (f *fixture) addText(t *testing.T, owner, content string, recipients ...string) {
	t.Helper()
	if _, err := f.vault.Add(context.Background(), owner, vault.KindText, content, "", recipients); err != nil {
		t.Fatal(err)
	}
}

func kinds(msgs []notify.Message) map[notify.Kind]int {
	out := map[notify.Kind]int{}
	for _, m := range msgs {
		out[m.Kind]++
	}
	return out
}

func TestRunCheck_ExpiryFansOutAddressedEntries(t *testing.T) {
	f := newFixture(t)
	f.owner(t, "owner", 72, "g1", "g2")
	f.addText(t, "owner", "letter for g1", "g1")
	f.addText(t, "owner", "letter for both", "g1", "g2")
	ctx := context.Background()

	if err := f.engine.RunCheck(ctx, f.start.Add(80*time.Hour)); err != nil {
		t.Fatalf("RunCheck error: %v", err)
	}

	g1 := kinds(f.recorder.SentTo("g1"))
	if g1[notify.KindExpiryNotice] != 1 || g1[notify.KindContentDelivery] != 2 {
		t.Errorf("g1 deliveries: %v", g1)
	}
	g2 := kinds(f.recorder.SentTo("g2"))
	if g2[notify.KindExpiryNotice] != 1 || g2[notify.KindContentDelivery] != 1 {
		t.Errorf("g2 deliveries: %v", g2)
	}

	// The delivered text arrives decrypted.
	var bodies []string
	for _, m := range f.recorder.SentTo("g2") {
		if m.Kind == notify.KindContentDelivery {
			bodies = append(bodies, m.Body)
		}
	}
	if len(bodies) != 1 || bodies[0] != "letter for both" {
		t.Errorf("g2 content: %v", bodies)
	}

	p, _ := f.principals.Get(ctx, "owner")
	if p.LivenessStatus != principals.LivenessExpired {
		t.Errorf("LivenessStatus = %v", p.LivenessStatus)
	}
}

func TestRunCheck_RepeatSweepDeliversAtMostOnce(t *testing.T) {
	f := newFixture(t)
	f.owner(t, "owner", 72, "g1")
	f.addText(t, "owner", "once only", "g1")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := f.engine.RunCheck(ctx, f.start.Add(100*time.Hour)); err != nil {
			t.Fatalf("RunCheck error: %v", err)
		}
	}

	got := kinds(f.recorder.SentTo("g1"))
	if got[notify.KindExpiryNotice] != 1 || got[notify.KindContentDelivery] != 1 {
		t.Errorf("repeat sweeps must not re-deliver: %v", got)
	}
}

func TestRunCheck_ConcurrentSweepsDeliverAtMostOnce(t *testing.T) {
	f := newFixture(t)
	f.owner(t, "owner", 72, "g1")
	f.addText(t, "owner", "once only", "g1")

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- f.engine.RunCheck(context.Background(), f.start.Add(100*time.Hour))
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("RunCheck error: %v", err)
		}
	}

	got := kinds(f.recorder.SentTo("g1"))
	if got[notify.KindExpiryNotice] != 1 || got[notify.KindContentDelivery] != 1 {
		t.Errorf("racing sweeps must not re-deliver: %v", got)
	}
}

func TestRunCheck_DanglingRecipientSkipped(t *testing.T) {
	f := newFixture(t)
	f.owner(t, "owner", 72, "g1")
	// "ghost" was revoked after the entry was addressed.
	f.addText(t, "owner", "mixed letter", "g1", "ghost")

	if err := f.engine.RunCheck(context.Background(), f.start.Add(80*time.Hour)); err != nil {
		t.Fatalf("RunCheck error: %v", err)
	}

	if got := kinds(f.recorder.SentTo("g1")); got[notify.KindContentDelivery] != 1 {
		t.Errorf("g1 should still receive their copy: %v", got)
	}
	if msgs := f.recorder.SentTo("ghost"); len(msgs) != 0 {
		t.Errorf("nothing may go to an unregistered recipient: %v", msgs)
	}
}

func TestRunCheck_OneFailingTrusteeDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	f.owner(t, "owner", 72, "g1", "g2")
	f.addText(t, "owner", "letter", "g1", "g2")
	f.recorder.FailFor("g1")

	if err := f.engine.RunCheck(context.Background(), f.start.Add(80*time.Hour)); err != nil {
		t.Fatalf("RunCheck error: %v", err)
	}

	got := kinds(f.recorder.SentTo("g2"))
	if got[notify.KindExpiryNotice] != 1 || got[notify.KindContentDelivery] != 1 {
		t.Errorf("g2 must receive everything despite g1 failing: %v", got)
	}
}

func TestRunCheck_ReminderWithoutStateChange(t *testing.T) {
	f := newFixture(t)
	f.owner(t, "owner", 100, "g1")
	ctx := context.Background()

	// 80% of a 100h window.
	if err := f.engine.RunCheck(ctx, f.start.Add(85*time.Hour)); err != nil {
		t.Fatalf("RunCheck error: %v", err)
	}

	owner := kinds(f.recorder.SentTo("owner"))
	if owner[notify.KindReminder] != 1 {
		t.Errorf("expected a reminder to the owner: %v", owner)
	}
	if msgs := f.recorder.SentTo("g1"); len(msgs) != 0 {
		t.Errorf("no trustee traffic before expiry: %v", msgs)
	}

	p, _ := f.principals.Get(ctx, "owner")
	if p.LivenessStatus != principals.LivenessAlive {
		t.Error("a reminder must not change liveness state")
	}
}

func TestRunCheck_FreshPrincipalUntouched(t *testing.T) {
	f := newFixture(t)
	f.owner(t, "owner", 72, "g1")

	if err := f.engine.RunCheck(context.Background(), f.start.Add(time.Hour)); err != nil {
		t.Fatalf("RunCheck error: %v", err)
	}
	if sent := f.recorder.Sent(); len(sent) != 0 {
		t.Errorf("no traffic expected well inside the window: %v", sent)
	}
}

func TestRunCheck_LockedPrincipalNotSwept(t *testing.T) {
	f := newFixture(t)
	f.owner(t, "owner", 72, "g1")
	ctx := context.Background()

	err := f.principals.Update(ctx, "owner", func(p *principals.Principal) error {
		p.LockState = principals.LockStateLocked
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.engine.RunCheck(ctx, f.start.Add(200*time.Hour)); err != nil {
		t.Fatalf("RunCheck error: %v", err)
	}
	if sent := f.recorder.Sent(); len(sent) != 0 {
		t.Errorf("locked principals are outside the sweep: %v", sent)
	}
}
