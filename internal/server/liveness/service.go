// Package liveness tracks the owner's heartbeat against their expiry window.
package liveness

import (
	"context"
	"time"

	"github.com/lifesignal/lifesignal/internal/common"
	"github.com/lifesignal/lifesignal/internal/logging"
	"github.com/lifesignal/lifesignal/internal/server/principals"
	"github.com/lifesignal/lifesignal/internal/server/trustees"
)

type Service struct {
	principals principals.Repository
	trustees   trustees.Repository
	logger     logging.Logger
	now        func() time.Time
}

func NewService(p principals.Repository, t trustees.Repository, logger logging.Logger) *Service {
	return &Service{
		principals: p,
		trustees:   t,
		logger:     logger.With("module", "liveness"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Status is the owner-facing liveness summary.
type Status struct {
	Principal    *principals.Principal
	TrusteeCount int
	Elapsed      time.Duration
	Remaining    time.Duration
}

// Heartbeat records a check-in. A principal with no trustees gets
// common.ErrorNotProtected and no state change: an unwitnessed switch is a
// misconfiguration, and accepting the beat would hide it.
func (s *Service) Heartbeat(ctx context.Context, principalID string) error {

	links, err := s.trustees.ListByOwner(ctx, principalID)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return common.ErrorNotProtected
	}

	return s.principals.Update(ctx, principalID, func(p *principals.Principal) error {
		if p.Locked() {
			return common.ErrorAccessDenied
		}
		p.LastHeartbeat = s.now()
		p.LivenessStatus = principals.LivenessAlive
		return nil
	})
}

// SetThreshold changes the expiry window. Hours must be positive.
func (s *Service) SetThreshold(ctx context.Context, principalID string, hours int) error {

	if hours <= 0 {
		return common.ErrorValidation
	}

	return s.principals.Update(ctx, principalID, func(p *principals.Principal) error {
		if p.Locked() {
			return common.ErrorAccessDenied
		}
		p.ThresholdHours = hours
		return nil
	})
}

func (s *Service) Status(ctx context.Context, principalID string) (*Status, error) {

	p, err := s.principals.Get(ctx, principalID)
	if err != nil {
		return nil, err
	}
	links, err := s.trustees.ListByOwner(ctx, principalID)
	if err != nil {
		return nil, err
	}

	elapsed := p.Elapsed(s.now())
	return &Status{
		Principal:    p,
		TrusteeCount: len(links),
		Elapsed:      elapsed,
		Remaining:    p.Threshold() - elapsed,
	}, nil
}

// IsExpired reports whether the principal has outlived its window at the
// given instant. Exactly on the boundary is still inside the window.
func IsExpired(p *principals.Principal, now time.Time) bool {
	return p.Elapsed(now) > p.Threshold()
}
