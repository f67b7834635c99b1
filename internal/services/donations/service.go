// Package donations handles gift entry. Every entered donation runs
// through the matcher; CSV imports defer matching to the background queue
// so large files come back quickly.
package donations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"almsdesk/internal/domain"
	"almsdesk/internal/ports"
)

var ErrAmountNotPositive = errors.New("donation amount must be positive")

type Service struct {
	donations ports.DonationRepository
	donors    ports.DonorRepository
	jobs      ports.JobRepository
	matcher   ports.Matcher
	log       *zap.Logger
}

func New(donations ports.DonationRepository, donors ports.DonorRepository, jobs ports.JobRepository, matcher ports.Matcher, log *zap.Logger) *Service {
	return &Service{donations: donations, donors: donors, jobs: jobs, matcher: matcher, log: log}
}

// Enter records a single gift and matches it inline. When no tier matches,
// a donor is created from the raw fields and linked immediately: operators
// keying checks expect every gift to land on a donor.
func (s *Service) Enter(ctx context.Context, in ports.DonationInput) (ports.EntryResult, error) {
	don, err := s.create(ctx, in)
	if err != nil {
		return ports.EntryResult{}, err
	}

	outcome, err := s.matcher.Match(ctx, don.ID)
	if err != nil {
		return ports.EntryResult{}, err
	}
	if outcome.Status == domain.MatchUnmatched {
		donor, err := s.donors.CreateDonor(ctx, domain.Donor{
			FirstName: don.RawFirst,
			LastName:  don.RawLast,
			Email:     strings.ToLower(don.RawEmail),
			Street:    don.RawStreet,
			Zip:       don.RawZip,
		})
		if err != nil {
			return ports.EntryResult{}, err
		}
		if err := s.donations.SetResolved(ctx, don.ID, donor.ID); err != nil {
			return ports.EntryResult{}, err
		}
		outcome = domain.ResolvedOutcome(donor.ID, "new_donor")
		s.log.Info("donor created from entry",
			zap.String("donation_id", don.ID),
			zap.String("donor_id", donor.ID))
	}

	don, err = s.donations.GetDonation(ctx, don.ID)
	if err != nil {
		return ports.EntryResult{}, err
	}
	return ports.EntryResult{Donation: don, Outcome: outcome}, nil
}

// EnterBatch enters a batch of gifts in order, stopping at the first
// failure. Gifts entered before the failure stay entered; batch entry is a
// keying convenience, not a transaction.
func (s *Service) EnterBatch(ctx context.Context, ins []ports.DonationInput) ([]ports.EntryResult, error) {
	out := make([]ports.EntryResult, 0, len(ins))
	for i, in := range ins {
		res, err := s.Enter(ctx, in)
		if err != nil {
			return out, errorAt(i, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// ImportCSV parses and normalizes the file, records each valid row as a
// donation, and enqueues a match job per donation. Row failures are
// reported per line; they do not stop the import.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ports.ImportReport, error) {
	rows, failures, err := parseCSV(r)
	if err != nil {
		return ports.ImportReport{}, err
	}

	report := ports.ImportReport{Failed: failures}
	for _, row := range rows {
		don, err := s.create(ctx, row.input)
		if err != nil {
			report.Failed = append(report.Failed, ports.RowError{Line: row.line, Reason: err.Error()})
			continue
		}
		if _, err := s.jobs.Enqueue(ctx, don.ID); err != nil {
			return report, err
		}
		report.Imported++
	}
	s.log.Info("csv import finished",
		zap.Int("imported", report.Imported),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}

func errorAt(i int, err error) error {
	return fmt.Errorf("gift %d: %w", i+1, err)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Donation, error) {
	return s.donations.GetDonation(ctx, id)
}

func (s *Service) create(ctx context.Context, in ports.DonationInput) (domain.Donation, error) {
	if !in.Amount.IsPositive() {
		return domain.Donation{}, ErrAmountNotPositive
	}
	giftDate := in.GiftDate
	if giftDate.IsZero() {
		giftDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return s.donations.CreateDonation(ctx, domain.Donation{
		Amount:      in.Amount,
		Method:      strings.TrimSpace(in.Method),
		CheckNumber: strings.TrimSpace(in.CheckNumber),
		Fund:        strings.TrimSpace(in.Fund),
		GiftDate:    giftDate,
		RawFirst:    strings.TrimSpace(in.First),
		RawLast:     strings.TrimSpace(in.Last),
		RawEmail:    strings.TrimSpace(in.Email),
		RawStreet:   strings.TrimSpace(in.Street),
		RawZip:      strings.TrimSpace(in.Zip),
		Status:      domain.StatusResolved,
	})
}
