// Package trustees manages the many-to-many relation between a principal and
// the parties guarding it.
package trustees

import (
	"context"
	"fmt"

	"github.com/lifesignal/lifesignal/internal/common"
	"github.com/lifesignal/lifesignal/internal/logging"
	"github.com/lifesignal/lifesignal/internal/server/notify"
)

type Service struct {
	repo     Repository
	notifier notify.Notifier
	logger   logging.Logger
}

func NewService(repo Repository, notifier notify.Notifier, logger logging.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger.With("module", "trustees"),
	}
}

// Accept completes the mutual-accept handshake: the trustee confirms an
// owner's invitation. The owner is told about the new guardian best-effort.
func (s *Service) Accept(ctx context.Context, principalID, trusteeID, displayName string) (*Link, error) {

	if principalID == trusteeID {
		return nil, common.ErrorSelfTrustee
	}

	existing, err := s.repo.ListByOwner(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("error listing trustees: %w", err)
	}
	if len(existing) >= common.MaxTrustees {
		return nil, common.ErrorTrusteeLimit
	}

	link := &Link{PrincipalID: principalID, TrusteeID: trusteeID, DisplayName: displayName}
	if err := s.repo.Add(ctx, link); err != nil {
		return nil, err
	}

	msg := notify.NewMessage(notify.KindTrusteeChange, principalID, "Your invitation was accepted. You are now protected.")
	if err := s.notifier.Send(ctx, principalID, msg); err != nil {
		s.logger.Warn(ctx, "accept notice failed", "principal", principalID, "error", err)
	}

	return link, nil
}

// Revoke removes a trustee at the owner's request and tells the removed
// trustee best-effort.
func (s *Service) Revoke(ctx context.Context, principalID, trusteeID string) error {

	if err := s.repo.Remove(ctx, principalID, trusteeID); err != nil {
		return err
	}

	msg := notify.NewMessage(notify.KindTrusteeChange, principalID, "You are no longer a trustee for this account.")
	if err := s.notifier.Send(ctx, trusteeID, msg); err != nil {
		s.logger.Warn(ctx, "revoke notice failed", "trustee", trusteeID, "error", err)
	}

	return nil
}

func (s *Service) List(ctx context.Context, principalID string) ([]*Link, error) {
	return s.repo.ListByOwner(ctx, principalID)
}

// Protects returns the links where trusteeID acts as guardian.
func (s *Service) Protects(ctx context.Context, trusteeID string) ([]*Link, error) {
	return s.repo.ListByTrustee(ctx, trusteeID)
}
