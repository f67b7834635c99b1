package memstore

import (
	"context"

	"github.com/google/uuid"

	"almsdesk/internal/domain"
	"almsdesk/internal/ports"
)

// ---- JobRepository ----

func (s *Store) Enqueue(ctx context.Context, donationID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donations[donationID]; !ok {
		return "", domain.ErrNotFound
	}
	j := &job{id: uuid.NewString(), donationID: donationID, state: jobQueued}
	s.jobs = append(s.jobs, j)
	return j.id, nil
}

func (s *Store) ClaimNext(ctx context.Context) (ports.MatchJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.state == jobQueued {
			j.state = jobRunning
			return ports.MatchJob{ID: j.id, DonationID: j.donationID}, true, nil
		}
	}
	return ports.MatchJob{}, false, nil
}

func (s *Store) MarkCompleted(ctx context.Context, jobID string) error {
	return s.setJobState(jobID, jobCompleted, "")
}

func (s *Store) MarkFailed(ctx context.Context, jobID string, reason string) error {
	return s.setJobState(jobID, jobFailed, reason)
}

func (s *Store) setJobState(jobID string, state jobState, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.id == jobID {
			j.state = state
			j.lastError = reason
			return nil
		}
	}
	return domain.ErrNotFound
}

// JobState reports a job's state for tests.
func (s *Store) JobState(jobID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.id == jobID {
			return string(j.state)
		}
	}
	return ""
}
