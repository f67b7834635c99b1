package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"almsdesk/internal/domain"
)

// MergeDonors applies the whole merge to cloned state and swaps it in only
// if every step succeeds, which is what the Postgres adapter's transaction
// gives it. FailMergeAfterRewrites aborts between the rewrites and the
// deletions, leaving the original state untouched.
func (s *Store) MergeDonors(ctx context.Context, primaryID string, secondaryIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	primary, ok := s.donors[primaryID]
	if !ok {
		return fmt.Errorf("primary donor %s: %w", primaryID, domain.ErrNotFound)
	}
	for _, id := range secondaryIDs {
		if _, ok := s.donors[id]; !ok {
			return fmt.Errorf("secondary donor %s: %w", id, domain.ErrDonorMissing)
		}
	}

	donors := cloneMap(s.donors)
	donations := cloneMap(s.donations)
	candidates := make(map[string][]domain.Candidate, len(s.candidates))
	for k, v := range s.candidates {
		candidates[k] = append([]domain.Candidate(nil), v...)
	}
	notes := cloneMap(s.notes)
	tasks := cloneMap(s.tasks)
	files := cloneMap(s.files)
	pledges := cloneMap(s.pledges)

	secondary := make(map[string]bool, len(secondaryIDs))
	for _, id := range secondaryIDs {
		secondary[id] = true
	}

	for id, d := range donations {
		if d.DonorID != nil && secondary[*d.DonorID] {
			pid := primaryID
			d.DonorID = &pid
			donations[id] = d
		}
	}
	// Candidates for a secondary follow the merge: the best-scored one per
	// donation is repointed to the primary unless the primary is already a
	// candidate there, so a pending donation never loses its last candidate.
	for donationID, cs := range candidates {
		kept := make([]domain.Candidate, 0, len(cs))
		hasPrimary := false
		var best *domain.Candidate
		for _, c := range cs {
			if secondary[c.DonorID] {
				if best == nil || c.Score > best.Score {
					cc := c
					best = &cc
				}
				continue
			}
			if c.DonorID == primaryID {
				hasPrimary = true
			}
			kept = append(kept, c)
		}
		if best != nil && !hasPrimary {
			best.DonorID = primaryID
			kept = append(kept, *best)
		}
		candidates[donationID] = kept
	}
	for id, n := range notes {
		if secondary[n.DonorID] {
			n.DonorID = primaryID
			notes[id] = n
		}
	}
	repoint := func(m map[string]string) {
		for id, owner := range m {
			if secondary[owner] {
				m[id] = primaryID
			}
		}
	}
	repoint(tasks)
	repoint(files)
	repoint(pledges)

	// Fill policy: secondaries contribute, in caller order, only where the
	// primary is blank.
	for _, id := range secondaryIDs {
		sec := s.donors[id]
		fill(&primary.Email, sec.Email)
		fill(&primary.Phone, sec.Phone)
		fill(&primary.Street, sec.Street)
		fill(&primary.City, sec.City)
		fill(&primary.State, sec.State)
		fill(&primary.Zip, sec.Zip)
	}
	donors[primaryID] = primary

	if s.FailMergeAfterRewrites {
		return fmt.Errorf("merge aborted by test failpoint")
	}

	for _, id := range secondaryIDs {
		delete(donors, id)
	}

	s.donors = donors
	s.donations = donations
	s.candidates = candidates
	s.notes = notes
	s.tasks = tasks
	s.files = files
	s.pledges = pledges
	return nil
}

func (s *Store) ScanDuplicates(ctx context.Context) ([]domain.DuplicateGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey := make(map[string][]domain.Donor)
	for _, d := range s.donors {
		if d.Email != "" {
			key := "email:" + strings.ToLower(d.Email)
			byKey[key] = append(byKey[key], d)
		}
		if d.FirstName != "" && d.LastName != "" && d.Zip != "" {
			key := "name:" + strings.ToLower(d.FirstName) + " " + strings.ToLower(d.LastName) + " " + d.Zip
			byKey[key] = append(byKey[key], d)
		}
	}

	var out []domain.DuplicateGroup
	for key, donors := range byKey {
		if len(donors) < 2 {
			continue
		}
		sortDonors(donors)
		out = append(out, domain.DuplicateGroup{MatchKey: key, Donors: donors})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchKey < out[j].MatchKey })
	return out, nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func fill(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}
