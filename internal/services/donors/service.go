// Package donors is the CRM surface over donor records: create, update,
// trigram search, giving summaries and notes.
package donors

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"almsdesk/internal/domain"
	"almsdesk/internal/ports"
)

var (
	ErrLastNameRequired = errors.New("donor last name is required")
	ErrEmptyNote        = errors.New("note body is empty")
)

const defaultSearchLimit = 20

type Service struct {
	donors    ports.DonorRepository
	donations ports.DonationRepository
	notes     ports.NoteRepository
	log       *zap.Logger
}

func New(donors ports.DonorRepository, donations ports.DonationRepository, notes ports.NoteRepository, log *zap.Logger) *Service {
	return &Service{donors: donors, donations: donations, notes: notes, log: log}
}

func (s *Service) Create(ctx context.Context, d domain.Donor) (domain.Donor, error) {
	d = tidy(d)
	if d.LastName == "" {
		return domain.Donor{}, ErrLastNameRequired
	}
	created, err := s.donors.CreateDonor(ctx, d)
	if err != nil {
		return domain.Donor{}, err
	}
	s.log.Info("donor created", zap.String("donor_id", created.ID))
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Donor, error) {
	return s.donors.GetDonor(ctx, id)
}

func (s *Service) Update(ctx context.Context, d domain.Donor) (domain.Donor, error) {
	d = tidy(d)
	if d.LastName == "" {
		return domain.Donor{}, ErrLastNameRequired
	}
	return s.donors.UpdateDonor(ctx, d)
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]domain.DonorMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return s.donors.SearchName(ctx, query, limit)
}

func (s *Service) Summary(ctx context.Context, donorID string) (domain.GivingSummary, error) {
	if _, err := s.donors.GetDonor(ctx, donorID); err != nil {
		return domain.GivingSummary{}, err
	}
	return s.donations.SummaryByDonor(ctx, donorID)
}

func (s *Service) AddNote(ctx context.Context, donorID, body string) (domain.Note, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Note{}, ErrEmptyNote
	}
	return s.notes.AddNote(ctx, donorID, body)
}

func (s *Service) Notes(ctx context.Context, donorID string) ([]domain.Note, error) {
	return s.notes.NotesByDonor(ctx, donorID)
}

func tidy(d domain.Donor) domain.Donor {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Phone = strings.TrimSpace(d.Phone)
	d.Street = strings.TrimSpace(d.Street)
	d.City = strings.TrimSpace(d.City)
	d.State = strings.TrimSpace(d.State)
	d.Zip = strings.TrimSpace(d.Zip)
	return d
}
