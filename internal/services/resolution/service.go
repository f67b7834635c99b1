// Package resolution exposes the review queue of pending donations and
// applies operator decisions to them.
package resolution

import (
	"context"

	"go.uber.org/zap"

	"almsdesk/internal/domain"
	"almsdesk/internal/ports"
)

type Service struct {
	donations ports.DonationRepository
	log       *zap.Logger
}

func New(donations ports.DonationRepository, log *zap.Logger) *Service {
	return &Service{donations: donations, log: log}
}

// Queue returns every pending donation with its candidates, best score
// first within each donation.
func (s *Service) Queue(ctx context.Context) ([]domain.QueueEntry, error) {
	return s.donations.ListPending(ctx)
}

// Link attaches the chosen donor to a pending donation and clears its
// candidates. The donor does not have to be one of the candidates; it does
// have to exist, and the donation has to still be pending.
func (s *Service) Link(ctx context.Context, donationID, donorID string) error {
	if err := s.donations.ResolveLink(ctx, donationID, donorID); err != nil {
		return err
	}
	s.log.Info("donation linked",
		zap.String("donation_id", donationID),
		zap.String("donor_id", donorID))
	return nil
}

// CreateNew confirms a pending donation as a brand-new person: the pending
// state and candidates are cleared and no donor is attached. Creating the
// donor record is a separate CRM action.
func (s *Service) CreateNew(ctx context.Context, donationID string) error {
	if err := s.donations.ResolveNew(ctx, donationID); err != nil {
		return err
	}
	s.log.Info("donation confirmed as new donor", zap.String("donation_id", donationID))
	return nil
}
