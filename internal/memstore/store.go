// Package memstore is an in-memory implementation of the repository ports.
// Service tests run against it; the Postgres adapter mirrors its behavior,
// including pg_trgm-compatible similarity ranking via internal/similarity.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"almsdesk/internal/domain"
	"almsdesk/internal/similarity"
)

type jobState string

const (
	jobQueued    jobState = "queued"
	jobRunning   jobState = "running"
	jobCompleted jobState = "completed"
	jobFailed    jobState = "failed"
)

type job struct {
	id         string
	donationID string
	state      jobState
	lastError  string
}

// Store holds everything behind one mutex. Donor-owned side records
// (tasks, files, pledges) are kept as id -> owner maps; merge tests seed
// them directly.
type Store struct {
	mu         sync.Mutex
	donors     map[string]domain.Donor
	donations  map[string]domain.Donation
	candidates map[string][]domain.Candidate
	notes      map[string]domain.Note
	tasks      map[string]string
	files      map[string]string
	pledges    map[string]string
	jobs       []*job

	// FailMergeAfterRewrites injects a failure between reference rewriting
	// and secondary deletion, standing in for a transaction rollback.
	FailMergeAfterRewrites bool
}

func New() *Store {
	return &Store{
		donors:     make(map[string]domain.Donor),
		donations:  make(map[string]domain.Donation),
		candidates: make(map[string][]domain.Candidate),
		notes:      make(map[string]domain.Note),
		tasks:      make(map[string]string),
		files:      make(map[string]string),
		pledges:    make(map[string]string),
	}
}

// ---- DonorRepository ----

func (s *Store) CreateDonor(ctx context.Context, d domain.Donor) (domain.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	s.donors[d.ID] = d
	return d, nil
}

func (s *Store) GetDonor(ctx context.Context, id string) (domain.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[id]
	if !ok {
		return domain.Donor{}, domain.ErrNotFound
	}
	return d, nil
}

func (s *Store) UpdateDonor(ctx context.Context, d domain.Donor) (domain.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.donors[d.ID]
	if !ok {
		return domain.Donor{}, domain.ErrNotFound
	}
	d.CreatedAt = cur.CreatedAt
	s.donors[d.ID] = d
	return d, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) ([]domain.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Donor
	for _, d := range s.donors {
		if d.Email != "" && strings.EqualFold(d.Email, email) {
			out = append(out, d)
		}
	}
	sortDonors(out)
	return out, nil
}

func (s *Store) FindByName(ctx context.Context, first, last string) ([]domain.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Donor
	for _, d := range s.donors {
		if strings.EqualFold(d.FirstName, first) && strings.EqualFold(d.LastName, last) {
			out = append(out, d)
		}
	}
	sortDonors(out)
	return out, nil
}

func (s *Store) SearchByLastZip(ctx context.Context, last, zip, first string, minScore float64, limit int) ([]domain.DonorMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DonorMatch
	for _, d := range s.donors {
		if !strings.EqualFold(d.LastName, last) || d.Zip != zip {
			continue
		}
		if score := similarity.Score(d.FirstName, first); score > minScore {
			out = append(out, domain.DonorMatch{Donor: d, Score: score})
		}
	}
	return rank(out, limit), nil
}

func (s *Store) SearchByLastStreet(ctx context.Context, last, street string, minScore float64, limit int) ([]domain.DonorMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DonorMatch
	for _, d := range s.donors {
		if !strings.EqualFold(d.LastName, last) {
			continue
		}
		if score := similarity.Score(d.Street, street); score > minScore {
			out = append(out, domain.DonorMatch{Donor: d, Score: score})
		}
	}
	return rank(out, limit), nil
}

func (s *Store) SearchName(ctx context.Context, query string, limit int) ([]domain.DonorMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DonorMatch
	for _, d := range s.donors {
		full := strings.TrimSpace(d.FirstName + " " + d.LastName)
		if score := similarity.Score(full, query); score > 0 {
			out = append(out, domain.DonorMatch{Donor: d, Score: score})
		}
	}
	return rank(out, limit), nil
}

func sortDonors(ds []domain.Donor) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].ID < ds[j].ID })
}

func rank(ms []domain.DonorMatch, limit int) []domain.DonorMatch {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Score != ms[j].Score {
			return ms[i].Score > ms[j].Score
		}
		return ms[i].Donor.ID < ms[j].Donor.ID
	})
	if limit > 0 && len(ms) > limit {
		ms = ms[:limit]
	}
	return ms
}

// ---- DonationRepository ----

func (s *Store) CreateDonation(ctx context.Context, d domain.Donation) (domain.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.Status == "" {
		d.Status = domain.StatusResolved
	}
	if d.DonorID != nil {
		if _, ok := s.donors[*d.DonorID]; !ok {
			return domain.Donation{}, domain.ErrDonorMissing
		}
	}
	s.donations[d.ID] = d
	return d, nil
}

func (s *Store) GetDonation(ctx context.Context, id string) (domain.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return domain.Donation{}, domain.ErrNotFound
	}
	return d, nil
}

func (s *Store) SetResolved(ctx context.Context, donationID, donorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[donationID]
	if !ok {
		return domain.ErrNotFound
	}
	if _, ok := s.donors[donorID]; !ok {
		return domain.ErrDonorMissing
	}
	d.DonorID = &donorID
	d.Status = domain.StatusResolved
	s.donations[donationID] = d
	delete(s.candidates, donationID)
	return nil
}

func (s *Store) MarkPending(ctx context.Context, donationID string, candidates []domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[donationID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, c := range candidates {
		if _, ok := s.donors[c.DonorID]; !ok {
			return domain.ErrDonorMissing
		}
	}
	d.Status = domain.StatusPending
	d.DonorID = nil
	s.donations[donationID] = d
	s.candidates[donationID] = append([]domain.Candidate(nil), candidates...)
	return nil
}

func (s *Store) ResolveLink(ctx context.Context, donationID, donorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[donationID]
	if !ok {
		return domain.ErrNotFound
	}
	if d.Status != domain.StatusPending {
		return domain.ErrNotPending
	}
	if _, ok := s.donors[donorID]; !ok {
		return domain.ErrDonorMissing
	}
	d.DonorID = &donorID
	d.Status = domain.StatusResolved
	s.donations[donationID] = d
	delete(s.candidates, donationID)
	return nil
}

func (s *Store) ResolveNew(ctx context.Context, donationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[donationID]
	if !ok {
		return domain.ErrNotFound
	}
	if d.Status != domain.StatusPending {
		return domain.ErrNotPending
	}
	d.DonorID = nil
	d.Status = domain.StatusResolved
	s.donations[donationID] = d
	delete(s.candidates, donationID)
	return nil
}

func (s *Store) ClearPending(ctx context.Context, donationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[donationID]
	if !ok {
		return domain.ErrNotFound
	}
	d.Status = domain.StatusResolved
	s.donations[donationID] = d
	delete(s.candidates, donationID)
	return nil
}

func (s *Store) ListPending(ctx context.Context) ([]domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.QueueEntry
	for _, d := range s.donations {
		if d.Status != domain.StatusPending {
			continue
		}
		entry := domain.QueueEntry{Donation: d}
		for _, c := range s.candidates[d.ID] {
			donor, ok := s.donors[c.DonorID]
			if !ok {
				continue
			}
			entry.Candidates = append(entry.Candidates, domain.QueueCandidate{
				Donor:  donor,
				Score:  c.Score,
				Reason: c.Reason,
			})
		}
		sort.Slice(entry.Candidates, func(i, j int) bool {
			return entry.Candidates[i].Score > entry.Candidates[j].Score
		})
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Donation.CreatedAt.Before(out[j].Donation.CreatedAt)
	})
	return out, nil
}

func (s *Store) SummaryByDonor(ctx context.Context, donorID string) (domain.GivingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum domain.GivingSummary
	for _, d := range s.donations {
		if d.DonorID == nil || *d.DonorID != donorID {
			continue
		}
		sum.DonationCount++
		sum.TotalAmount = sum.TotalAmount.Add(d.Amount)
		gift := d.GiftDate
		if sum.FirstGift == nil || gift.Before(*sum.FirstGift) {
			g := gift
			sum.FirstGift = &g
		}
		if sum.LastGift == nil || gift.After(*sum.LastGift) {
			g := gift
			sum.LastGift = &g
		}
	}
	return sum, nil
}

// ---- NoteRepository ----

func (s *Store) AddNote(ctx context.Context, donorID, body string) (domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[donorID]; !ok {
		return domain.Note{}, domain.ErrDonorMissing
	}
	n := domain.Note{ID: uuid.NewString(), DonorID: donorID, Body: body, CreatedAt: time.Now().UTC()}
	s.notes[n.ID] = n
	return n, nil
}

func (s *Store) NotesByDonor(ctx context.Context, donorID string) ([]domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Note
	for _, n := range s.notes {
		if n.DonorID == donorID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---- side-record seed helpers for merge tests ----

func (s *Store) SeedTask(donorID string) string { return s.seed(s.tasks, donorID) }
func (s *Store) SeedFile(donorID string) string { return s.seed(s.files, donorID) }
func (s *Store) SeedPledge(donorID string) string { return s.seed(s.pledges, donorID) }
func (s *Store) TaskOwner(id string) string { s.mu.Lock(); defer s.mu.Unlock(); return s.tasks[id] }
func (s *Store) FileOwner(id string) string { s.mu.Lock(); defer s.mu.Unlock(); return s.files[id] }
func (s *Store) PledgeOwner(id string) string { s.mu.Lock(); defer s.mu.Unlock(); return s.pledges[id] }

func (s *Store) seed(m map[string]string, donorID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	m[id] = donorID
	return id
}
