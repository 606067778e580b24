package lockout

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lifesignal/lifesignal/internal/common"
	"github.com/lifesignal/lifesignal/internal/logging"
	"github.com/lifesignal/lifesignal/internal/obs"
	"github.com/lifesignal/lifesignal/internal/server/notify"
	"github.com/lifesignal/lifesignal/internal/server/principals"
	"github.com/lifesignal/lifesignal/internal/server/trustees"
)

type fixture struct {
	svc        *Service
	principals principals.Repository
	trustees   trustees.Repository
	recorder   *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		principals: principals.NewInMemoryRepository(),
		trustees:   trustees.NewInMemoryRepository(),
		recorder:   notify.NewRecorder(),
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	f.svc = NewService(f.principals, f.trustees, f.recorder, logger)
	return f
}

func (f *fixture) enroll(t *testing.T, id, credential string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.principals.GetOrCreate(ctx, id, id); err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	if err := f.svc.SetCredential(ctx, id, "", credential); err != nil {
		t.Fatalf("SetCredential error: %v", err)
	}
}

func (f *fixture) guard(t *testing.T, owner, trustee string) {
	t.Helper()
	err := f.trustees.Add(context.Background(), &trustees.Link{PrincipalID: owner, TrusteeID: trustee})
	if err != nil {
		t.Fatalf("Add trustee error: %v", err)
	}
}

func (f *fixture) lock(t *testing.T, owner string) string {
	t.Helper()
	var res *VerifyResult
	var err error
	for i := 0; i < common.LockThreshold; i++ {
		res, err = f.svc.VerifyCredential(context.Background(), owner, "wrong")
		if err != nil {
			t.Fatalf("VerifyCredential error: %v", err)
		}
	}
	if res.Outcome != OutcomeLockedOut || res.RecoveryKey == "" {
		t.Fatalf("expected locked_out with key, got %+v", res)
	}
	return res.RecoveryKey
}

func TestVerifyCredential_Match(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")

	res, err := f.svc.VerifyCredential(context.Background(), "owner", "hunter2")
	if err != nil {
		t.Fatalf("VerifyCredential error: %v", err)
	}
	if res.Outcome != OutcomeAuthorized {
		t.Errorf("expected authorized, got %v", res.Outcome)
	}
}

func TestVerifyCredential_MismatchCountsDown(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")
	ctx := context.Background()

	for want := common.LockThreshold - 1; want >= 1; want-- {
		res, err := f.svc.VerifyCredential(ctx, "owner", "wrong")
		if err != nil {
			t.Fatalf("VerifyCredential error: %v", err)
		}
		if res.Outcome != OutcomeRejected || res.RemainingAttempts != want {
			t.Fatalf("expected rejected with %d remaining, got %+v", want, res)
		}
	}

	res, err := f.svc.VerifyCredential(ctx, "owner", "wrong")
	if err != nil {
		t.Fatalf("VerifyCredential error: %v", err)
	}
	if res.Outcome != OutcomeLockedOut {
		t.Errorf("expected locked_out on attempt %d, got %v", common.LockThreshold, res.Outcome)
	}
	if len(res.RecoveryKey) != common.RecoveryKeyLength {
		t.Errorf("expected %d-digit recovery key, got %q", common.RecoveryKeyLength, res.RecoveryKey)
	}
}

func TestVerifyCredential_MatchResetsCounter(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")
	ctx := context.Background()

	for i := 0; i < common.LockThreshold-1; i++ {
		if _, err := f.svc.VerifyCredential(ctx, "owner", "wrong"); err != nil {
			t.Fatalf("VerifyCredential error: %v", err)
		}
	}
	if _, err := f.svc.VerifyCredential(ctx, "owner", "hunter2"); err != nil {
		t.Fatalf("VerifyCredential error: %v", err)
	}

	res, err := f.svc.VerifyCredential(ctx, "owner", "wrong")
	if err != nil {
		t.Fatalf("VerifyCredential error: %v", err)
	}
	if res.Outcome != OutcomeRejected || res.RemainingAttempts != common.LockThreshold-1 {
		t.Errorf("counter not reset by a match: %+v", res)
	}
}

func TestVerifyCredential_LockNotifiesTrusteesWithoutKey(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")
	f.guard(t, "owner", "t1")
	f.guard(t, "owner", "t2")

	key := f.lock(t, "owner")

	for _, trustee := range []string{"t1", "t2"} {
		msgs := f.recorder.SentTo(trustee)
		if len(msgs) != 1 || msgs[0].Kind != notify.KindLockoutNotice {
			t.Fatalf("expected one lockout notice to %s, got %+v", trustee, msgs)
		}
		if msgs[0].Body == key || len(msgs[0].Body) == 0 {
			t.Errorf("notice body must not carry the recovery key: %q", msgs[0].Body)
		}
	}
}

func TestVerifyCredential_WhileLockedRefused(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")
	f.lock(t, "owner")

	// Even a correct credential is not evaluated while locked.
	_, err := f.svc.VerifyCredential(context.Background(), "owner", "hunter2")
	if err != common.ErrorAccessDenied {
		t.Errorf("expected ErrorAccessDenied, got %v", err)
	}
}

func TestVerifyCredential_NoCredentialEnrolled(t *testing.T) {
	f := newFixture(t)
	if _, err := f.principals.GetOrCreate(context.Background(), "owner", "owner"); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.VerifyCredential(context.Background(), "owner", "anything")
	if err != common.ErrorNoCredential {
		t.Errorf("expected ErrorNoCredential, got %v", err)
	}
}

func TestSetCredential_ReplaceRequiresCurrent(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")
	ctx := context.Background()

	if err := f.svc.SetCredential(ctx, "owner", "wrong", "newpass"); err != common.ErrorUnauthorized {
		t.Fatalf("expected ErrorUnauthorized, got %v", err)
	}
	if err := f.svc.SetCredential(ctx, "owner", "hunter2", "newpass"); err != nil {
		t.Fatalf("SetCredential error: %v", err)
	}

	res, err := f.svc.VerifyCredential(ctx, "owner", "newpass")
	if err != nil || res.Outcome != OutcomeAuthorized {
		t.Errorf("new credential not accepted: %+v %v", res, err)
	}
}

func TestSetCredential_RefusedWhileLocked(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")
	f.lock(t, "owner")

	err := f.svc.SetCredential(context.Background(), "owner", "hunter2", "newpass")
	if err != common.ErrorAccessDenied {
		t.Errorf("expected ErrorAccessDenied, got %v", err)
	}
}

func TestAttemptUnlock_FullRecovery(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")
	f.guard(t, "owner", "t1")
	key := f.lock(t, "owner")
	ctx := context.Background()

	locked, err := f.svc.LockedPrincipals(ctx, "t1")
	if err != nil || len(locked) != 1 || locked[0].ID != "owner" {
		t.Fatalf("expected owner among locked principals, got %+v %v", locked, err)
	}

	outcome, err := f.svc.AttemptUnlock(ctx, "t1", "owner", key)
	if err != nil || outcome != UnlockOutcomeUnlocked {
		t.Fatalf("expected unlocked, got %v %v", outcome, err)
	}

	p, err := f.principals.Get(ctx, "owner")
	if err != nil {
		t.Fatal(err)
	}
	if p.Locked() || p.RecoveryKey != "" || p.HasCredential() {
		t.Errorf("unlock must clear lock, key and credential: %+v", p)
	}

	// Owner is told to re-enroll.
	msgs := f.recorder.SentTo("owner")
	found := false
	for _, m := range msgs {
		if m.Kind == notify.KindRecoveryNotice {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a recovery notice to the owner, got %+v", msgs)
	}

	// Old credential is gone; enrollment starts over.
	if err := f.svc.SetCredential(ctx, "owner", "", "freshpass"); err != nil {
		t.Errorf("re-enrollment after unlock failed: %v", err)
	}
}

func TestAttemptUnlock_WrongKey(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")
	f.guard(t, "owner", "t1")
	f.lock(t, "owner")

	outcome, err := f.svc.AttemptUnlock(context.Background(), "t1", "owner", "000000")
	if err != nil {
		t.Fatalf("AttemptUnlock error: %v", err)
	}
	if outcome != UnlockOutcomeKeyRejected {
		t.Errorf("expected key_rejected, got %v", outcome)
	}

	p, _ := f.principals.Get(context.Background(), "owner")
	if !p.Locked() {
		t.Error("wrong key must not unlock")
	}
}

func TestAttemptUnlock_RepeatIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")
	f.guard(t, "owner", "t1")
	key := f.lock(t, "owner")
	ctx := context.Background()

	if outcome, err := f.svc.AttemptUnlock(ctx, "t1", "owner", key); err != nil || outcome != UnlockOutcomeUnlocked {
		t.Fatalf("first unlock: %v %v", outcome, err)
	}
	outcome, err := f.svc.AttemptUnlock(ctx, "t1", "owner", key)
	if err != nil {
		t.Fatalf("repeat unlock error: %v", err)
	}
	if outcome != UnlockOutcomeAlreadyUnlocked {
		t.Errorf("expected already_unlocked, got %v", outcome)
	}
}

func TestAttemptUnlock_StrangerRefused(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")
	f.guard(t, "owner", "t1")
	key := f.lock(t, "owner")

	_, err := f.svc.AttemptUnlock(context.Background(), "stranger", "owner", key)
	if err != common.ErrorUnauthorized {
		t.Errorf("expected ErrorUnauthorized, got %v", err)
	}
}

func TestLockAndUnlockAdvanceCounters(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "owner", "hunter2")
	f.guard(t, "owner", "t1")

	locksBefore := testutil.ToFloat64(obs.Lockouts)
	unlocksBefore := testutil.ToFloat64(obs.Unlocks)

	key := f.lock(t, "owner")
	if got := testutil.ToFloat64(obs.Lockouts); got != locksBefore+1 {
		t.Errorf("lockouts counter = %v, want %v", got, locksBefore+1)
	}

	if outcome, err := f.svc.AttemptUnlock(context.Background(), "t1", "owner", key); err != nil || outcome != UnlockOutcomeUnlocked {
		t.Fatalf("unlock: %v %v", outcome, err)
	}
	if got := testutil.ToFloat64(obs.Unlocks); got != unlocksBefore+1 {
		t.Errorf("unlocks counter = %v, want %v", got, unlocksBefore+1)
	}
}
