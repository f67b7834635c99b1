package ports

import "context"

// MatchJob is a queued request to run the matcher over one donation.
// CSV imports enqueue jobs instead of matching inline so large files
// return quickly.
type MatchJob struct {
	ID         string
	DonationID string
}

// JobRepository supports enqueueing and claiming match jobs. ClaimNext
// must hand each queued job to exactly one claimant.
type JobRepository interface {
	Enqueue(ctx context.Context, donationID string) (jobID string, err error)
	ClaimNext(ctx context.Context) (job MatchJob, found bool, err error)
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
}
