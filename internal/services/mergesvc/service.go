// Package mergesvc consolidates duplicate donor records. The scan proposes
// groups; the merge rewrites every reference and deletes the losers in one
// transaction.
package mergesvc

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"almsdesk/internal/domain"
	"almsdesk/internal/ports"
)

type Service struct {
	merges ports.MergeRepository
	log    *zap.Logger
}

func New(merges ports.MergeRepository, log *zap.Logger) *Service {
	return &Service{merges: merges, log: log}
}

// Merge consolidates the secondaries into the primary. Cheap validation
// happens before any mutation; everything after that is a single
// all-or-nothing transaction in the repository. A secondary that no longer
// exists (merged concurrently, most likely) fails the whole operation
// loudly instead of being skipped.
//
// Field policy: the primary's empty contact fields are filled from the
// secondaries in the order given; populated primary fields are never
// overwritten.
func (s *Service) Merge(ctx context.Context, primaryID string, secondaryIDs []string) error {
	if len(secondaryIDs) == 0 {
		return domain.ErrNoSecondaries
	}
	seen := make(map[string]bool, len(secondaryIDs))
	for _, id := range secondaryIDs {
		if id == primaryID {
			return domain.ErrSelfMerge
		}
		if seen[id] {
			return fmt.Errorf("secondary donor %s listed twice", id)
		}
		seen[id] = true
	}

	if err := s.merges.MergeDonors(ctx, primaryID, secondaryIDs); err != nil {
		return err
	}
	s.log.Info("donors merged",
		zap.String("primary_id", primaryID),
		zap.Strings("secondary_ids", secondaryIDs))
	return nil
}

// ScanDuplicates proposes groups of donors sharing an exact key. Purely
// derived, recomputed on every call; the operator picks a primary and
// feeds the group back through Merge.
func (s *Service) ScanDuplicates(ctx context.Context) ([]domain.DuplicateGroup, error) {
	return s.merges.ScanDuplicates(ctx)
}
