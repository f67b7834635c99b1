// Package matcher resolves a donation's raw donor text against the donor
// store through a strict tiered cascade: exact email, exact name, fuzzy
// name, fuzzy address. Exact tiers resolve immediately; fuzzy tiers only
// ever produce pending candidates for human review.
package matcher

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"almsdesk/internal/domain"
	"almsdesk/internal/ports"
)

// Tier labels reported in outcomes and logs.
const (
	TierEmailExact   = "email_exact"
	TierNameExact    = "name_exact"
	TierFuzzyName    = "fuzzy_name"
	TierFuzzyAddress = "fuzzy_address"
)

// Config holds the empirical tuning knobs. The thresholds are compared
// strictly (score > threshold), matching the SQL the Postgres store runs.
type Config struct {
	NameThreshold    float64
	AddressThreshold float64
	CandidateLimit   int
}

func DefaultConfig() Config {
	return Config{NameThreshold: 0.3, AddressThreshold: 0.6, CandidateLimit: 5}
}

type Service struct {
	donors    ports.DonorRepository
	donations ports.DonationRepository
	cfg       Config
	log       *zap.Logger
}

func New(donors ports.DonorRepository, donations ports.DonationRepository, cfg Config, log *zap.Logger) *Service {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultConfig().CandidateLimit
	}
	return &Service{donors: donors, donations: donations, cfg: cfg, log: log}
}

// Match runs the cascade for the donation and persists the result: exact
// tiers link the donor and mark the donation resolved, fuzzy tiers write
// candidates and mark it pending, and an unmatched donation is left
// untouched for the caller's new-donor policy. A donation that is already
// pending has its candidates purged first, so an outcome that no longer
// finds matches cannot leave stale pending state behind.
//
// Known race: between the lookups and the write, a concurrent submission
// for the same raw identity can independently go pending or resolve. There
// is no locking here on purpose; a rescan rebuilds candidates from scratch,
// so re-running the matcher is always safe.
func (s *Service) Match(ctx context.Context, donationID string) (domain.MatchOutcome, error) {
	don, err := s.donations.GetDonation(ctx, donationID)
	if err != nil {
		return domain.MatchOutcome{}, err
	}
	if don.DonorID != nil {
		return domain.MatchOutcome{}, domain.ErrAlreadyLinked
	}
	if don.Status == domain.StatusPending {
		if err := s.donations.ClearPending(ctx, donationID); err != nil {
			return domain.MatchOutcome{}, err
		}
		don.Status = domain.StatusResolved
	}
	return s.run(ctx, don)
}

// Rescan purges the donation's existing candidates and runs the cascade
// again. Only unlinked donations can be rescanned.
func (s *Service) Rescan(ctx context.Context, donationID string) (domain.MatchOutcome, error) {
	don, err := s.donations.GetDonation(ctx, donationID)
	if err != nil {
		return domain.MatchOutcome{}, err
	}
	if don.DonorID != nil {
		return domain.MatchOutcome{}, domain.ErrAlreadyLinked
	}
	if err := s.donations.ClearPending(ctx, donationID); err != nil {
		return domain.MatchOutcome{}, err
	}
	don.Status = domain.StatusResolved
	return s.run(ctx, don)
}

func (s *Service) run(ctx context.Context, don domain.Donation) (domain.MatchOutcome, error) {
	outcome, err := s.evaluate(ctx, don)
	if err != nil {
		return domain.MatchOutcome{}, err
	}

	switch outcome.Status {
	case domain.MatchResolved:
		if err := s.donations.SetResolved(ctx, don.ID, outcome.DonorID); err != nil {
			return domain.MatchOutcome{}, err
		}
	case domain.MatchPending:
		if err := s.donations.MarkPending(ctx, don.ID, outcome.Candidates); err != nil {
			return domain.MatchOutcome{}, err
		}
	}

	s.log.Debug("match outcome",
		zap.String("donation_id", don.ID),
		zap.String("status", string(outcome.Status)),
		zap.String("tier", outcome.Tier),
		zap.Int("candidates", len(outcome.Candidates)))
	return outcome, nil
}

// evaluate is the pure cascade: no writes, short-circuits at the first
// tier that produces a result.
func (s *Service) evaluate(ctx context.Context, don domain.Donation) (domain.MatchOutcome, error) {
	first := strings.TrimSpace(don.RawFirst)
	last := strings.TrimSpace(don.RawLast)
	email := strings.TrimSpace(don.RawEmail)
	street := strings.TrimSpace(don.RawStreet)
	zip := strings.TrimSpace(don.RawZip)

	// Tier 1: exact email. Plausibility gate only; real validation is not
	// the matcher's job.
	if len(email) > 5 && strings.Contains(email, "@") {
		hits, err := s.donors.FindByEmail(ctx, email)
		if err != nil {
			return domain.MatchOutcome{}, err
		}
		if len(hits) > 0 {
			return domain.ResolvedOutcome(hits[0].ID, TierEmailExact), nil
		}
	}

	// Tier 2: exact (first, last).
	if first != "" && last != "" {
		hits, err := s.donors.FindByName(ctx, first, last)
		if err != nil {
			return domain.MatchOutcome{}, err
		}
		if len(hits) > 0 {
			return domain.ResolvedOutcome(hits[0].ID, TierNameExact), nil
		}
	}

	// Tier 3: same last name and zip, ranked by first-name similarity.
	// Takes priority over tier 4 whenever it finds qualifying rows.
	if first != "" && last != "" && len(zip) >= 5 {
		matches, err := s.donors.SearchByLastZip(ctx, last, zip, first, s.cfg.NameThreshold, s.cfg.CandidateLimit)
		if err != nil {
			return domain.MatchOutcome{}, err
		}
		if len(matches) > 0 {
			return domain.PendingOutcome(TierFuzzyName, candidates(don.ID, matches, domain.ReasonFuzzyName)), nil
		}
	}

	// Tier 4: same last name, street similarity.
	if last != "" && len(street) > 5 {
		matches, err := s.donors.SearchByLastStreet(ctx, last, street, s.cfg.AddressThreshold, s.cfg.CandidateLimit)
		if err != nil {
			return domain.MatchOutcome{}, err
		}
		if len(matches) > 0 {
			return domain.PendingOutcome(TierFuzzyAddress, candidates(don.ID, matches, domain.ReasonFuzzyAddress)), nil
		}
	}

	return domain.UnmatchedOutcome(), nil
}

func candidates(donationID string, matches []domain.DonorMatch, reason string) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, domain.Candidate{
			DonationID: donationID,
			DonorID:    m.Donor.ID,
			Score:      m.Score,
			Reason:     reason,
		})
	}
	return out
}
