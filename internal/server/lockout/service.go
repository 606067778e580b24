// Package lockout implements the credential check counter and the
// trustee-assisted recovery flow.
//
// A principal moves to the locked state after common.LockThreshold
// consecutive failed credential checks. Locking mints a one-time recovery
// key; any registered trustee can present that key to unlock. Unlocking
// clears both the recovery key and the enrolled credential, so the owner
// must enroll a fresh credential afterwards.
package lockout

import (
	"context"
	"fmt"

	"github.com/lifesignal/lifesignal/internal/common"
	"github.com/lifesignal/lifesignal/internal/cryptox"
	"github.com/lifesignal/lifesignal/internal/logging"
	"github.com/lifesignal/lifesignal/internal/obs"
	"github.com/lifesignal/lifesignal/internal/server/notify"
	"github.com/lifesignal/lifesignal/internal/server/principals"
	"github.com/lifesignal/lifesignal/internal/server/trustees"
)

type Outcome string

const (
	OutcomeAuthorized Outcome = "authorized"
	OutcomeRejected   Outcome = "rejected"
	OutcomeLockedOut  Outcome = "locked_out"
)

// VerifyResult reports a single credential check. RecoveryKey is populated
// only on the check that triggers the lock: the owner is told the key once
// so they can read it to a trustee out of band. A check against an already
// locked record fails with AccessDenied without touching the credential.
type VerifyResult struct {
	Outcome           Outcome
	RemainingAttempts int
	RecoveryKey       string
}

type UnlockOutcome string

const (
	UnlockOutcomeUnlocked        UnlockOutcome = "unlocked"
	UnlockOutcomeKeyRejected     UnlockOutcome = "key_rejected"
	UnlockOutcomeAlreadyUnlocked UnlockOutcome = "already_unlocked"
)

type Service struct {
	principals principals.Repository
	trustees   trustees.Repository
	notifier   notify.Notifier
	logger     logging.Logger
}

func NewService(p principals.Repository, t trustees.Repository, notifier notify.Notifier, logger logging.Logger) *Service {
	return &Service{
		principals: p,
		trustees:   t,
		notifier:   notifier,
		logger:     logger.With("module", "lockout"),
	}
}

// VerifyCredential checks the candidate credential and advances the failure
// counter. The whole decision runs inside the repository's per-record
// exclusion scope, so two racing checks cannot both observe attempt four.
func (s *Service) VerifyCredential(ctx context.Context, principalID, credential string) (*VerifyResult, error) {

	result := &VerifyResult{}
	lockedNow := false

	err := s.principals.Update(ctx, principalID, func(p *principals.Principal) error {
		if p.Locked() {
			return common.ErrorAccessDenied
		}

		if !p.HasCredential() {
			return common.ErrorNoCredential
		}

		if cryptox.CheckCredential([]byte(credential), p.CredentialSalt, p.CredentialHash) {
			p.FailedAttempts = 0
			result.Outcome = OutcomeAuthorized
			return nil
		}

		p.FailedAttempts++
		if p.FailedAttempts < common.LockThreshold {
			result.Outcome = OutcomeRejected
			result.RemainingAttempts = common.LockThreshold - p.FailedAttempts
			return nil
		}

		key, err := common.MakeRecoveryKey()
		if err != nil {
			return fmt.Errorf("error generating recovery key: %w", err)
		}
		p.LockState = principals.LockStateLocked
		p.RecoveryKey = key
		p.FailedAttempts = 0
		result.Outcome = OutcomeLockedOut
		result.RecoveryKey = key
		lockedNow = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if lockedNow {
		obs.Lockouts.Inc()
		s.notifyTrustees(ctx, principalID)
	}

	return result, nil
}

// notifyTrustees tells every trustee the principal is locked. The recovery
// key is never put in the notification; the owner passes it on themselves.
func (s *Service) notifyTrustees(ctx context.Context, principalID string) {
	links, err := s.trustees.ListByOwner(ctx, principalID)
	if err != nil {
		s.logger.Error(ctx, "listing trustees after lockout", "principal_id", principalID, "error", err)
		return
	}
	msg := notify.NewMessage(notify.KindLockoutNotice, principalID,
		"account locked after repeated failed credential checks; the owner may contact you with a recovery key")
	for _, link := range links {
		if err := s.notifier.Send(ctx, link.TrusteeID, msg); err != nil {
			s.logger.Warn(ctx, "lockout notice failed", "trustee_id", link.TrusteeID, "error", err)
		}
	}
}

// SetCredential enrolls or replaces the principal's credential. Replacing an
// existing credential requires presenting the current one.
func (s *Service) SetCredential(ctx context.Context, principalID, current, credential string) error {

	if credential == "" {
		return common.ErrorValidation
	}

	return s.principals.Update(ctx, principalID, func(p *principals.Principal) error {
		if p.Locked() {
			return common.ErrorAccessDenied
		}
		if p.HasCredential() && !cryptox.CheckCredential([]byte(current), p.CredentialSalt, p.CredentialHash) {
			return common.ErrorUnauthorized
		}

		salt := common.GenerateRandByteArray(16)
		p.CredentialSalt = salt
		p.CredentialHash = cryptox.HashCredential([]byte(credential), salt)
		p.FailedAttempts = 0
		return nil
	})
}

// LockedPrincipals lists the locked owners among those the trustee guards,
// i.e. the accounts the trustee could currently unlock.
func (s *Service) LockedPrincipals(ctx context.Context, trusteeID string) ([]*principals.Principal, error) {

	links, err := s.trustees.ListByTrustee(ctx, trusteeID)
	if err != nil {
		return nil, err
	}

	var locked []*principals.Principal
	for _, link := range links {
		p, err := s.principals.Get(ctx, link.PrincipalID)
		if err != nil {
			s.logger.Warn(ctx, "loading guarded principal", "principal_id", link.PrincipalID, "error", err)
			continue
		}
		if p.Locked() {
			locked = append(locked, p)
		}
	}
	return locked, nil
}

// AttemptUnlock lets a trustee present a recovery key for a principal they
// guard. A repeat attempt after a successful unlock reports already_unlocked
// rather than an error, so retries are harmless.
func (s *Service) AttemptUnlock(ctx context.Context, trusteeID, principalID, key string) (UnlockOutcome, error) {

	guards, err := s.guards(ctx, trusteeID, principalID)
	if err != nil {
		return "", err
	}
	if !guards {
		return "", common.ErrorUnauthorized
	}

	var outcome UnlockOutcome

	err = s.principals.Update(ctx, principalID, func(p *principals.Principal) error {
		if !p.Locked() {
			outcome = UnlockOutcomeAlreadyUnlocked
			return nil
		}
		if key == "" || key != p.RecoveryKey {
			outcome = UnlockOutcomeKeyRejected
			return nil
		}

		p.LockState = principals.LockStateActive
		p.RecoveryKey = ""
		p.CredentialHash = nil
		p.CredentialSalt = nil
		p.FailedAttempts = 0
		outcome = UnlockOutcomeUnlocked
		return nil
	})
	if err != nil {
		return "", err
	}

	if outcome == UnlockOutcomeUnlocked {
		obs.Unlocks.Inc()
		msg := notify.NewMessage(notify.KindRecoveryNotice, principalID,
			"your account was unlocked by a trustee; enroll a new credential")
		if err := s.notifier.Send(ctx, principalID, msg); err != nil {
			s.logger.Warn(ctx, "recovery notice failed", "principal_id", principalID, "error", err)
		}
	}

	return outcome, nil
}

func (s *Service) guards(ctx context.Context, trusteeID, principalID string) (bool, error) {
	links, err := s.trustees.ListByTrustee(ctx, trusteeID)
	if err != nil {
		return false, err
	}
	for _, link := range links {
		if link.PrincipalID == principalID {
			return true, nil
		}
	}
	return false, nil
}
