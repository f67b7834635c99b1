// Package matchrunner drains the match_jobs queue in the background:
// donations created by CSV import are matched here instead of inline.
package matchrunner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"almsdesk/internal/domain"
	"almsdesk/internal/ports"
)

// Run starts a dispatcher plus worker goroutines that claim queued match
// jobs and run the matcher. It returns immediately; the goroutines stop
// when ctx is canceled.
func Run(ctx context.Context, jobs ports.JobRepository, m ports.Matcher, concurrency int, pollInterval time.Duration, log *zap.Logger) {
	if concurrency < 1 {
		return
	}
	jobsCh := make(chan ports.MatchJob, concurrency)

	// dispatcher loop
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(jobsCh)
				return
			case <-ticker.C:
				for {
					job, found, err := jobs.ClaimNext(ctx)
					if err != nil {
						if ctx.Err() == nil {
							log.Error("match job claim failed", zap.Error(err))
						}
						break
					}
					if !found {
						break
					}
					select {
					case jobsCh <- job:
					case <-ctx.Done():
						close(jobsCh)
						return
					}
				}
			}
		}
	}()

	for i := 0; i < concurrency; i++ {
		go func(idx int) {
			for job := range jobsCh {
				if err := Process(ctx, jobs, m, job); err != nil && ctx.Err() == nil {
					log.Error("match job failed",
						zap.Int("worker", idx),
						zap.String("job_id", job.ID),
						zap.Error(err))
				}
			}
		}(i)
	}
}

// Process runs the matcher for one claimed job and records the result. A
// donation that got linked while the job sat in the queue counts as done,
// not failed.
func Process(ctx context.Context, jobs ports.JobRepository, m ports.Matcher, job ports.MatchJob) error {
	_, err := m.Match(ctx, job.DonationID)
	if err != nil && !errors.Is(err, domain.ErrAlreadyLinked) {
		if markErr := jobs.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			return markErr
		}
		return err
	}
	return jobs.MarkCompleted(ctx, job.ID)
}
