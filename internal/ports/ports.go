package ports

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"almsdesk/internal/domain"
)

// Matcher runs identity resolution for a donation's raw fields.
type Matcher interface {
	Match(ctx context.Context, donationID string) (domain.MatchOutcome, error)
	Rescan(ctx context.Context, donationID string) (domain.MatchOutcome, error)
}

// Resolutions exposes the pending queue and applies operator decisions.
type Resolutions interface {
	Queue(ctx context.Context) ([]domain.QueueEntry, error)
	Link(ctx context.Context, donationID, donorID string) error
	CreateNew(ctx context.Context, donationID string) error
}

// Merges consolidates donors and proposes duplicate groups.
type Merges interface {
	Merge(ctx context.Context, primaryID string, secondaryIDs []string) error
	ScanDuplicates(ctx context.Context) ([]domain.DuplicateGroup, error)
}

// DonationInput is the raw material for one gift entry. The identity
// fields are stored verbatim on the donation; matching happens afterwards.
type DonationInput struct {
	Amount      decimal.Decimal
	Method      string
	CheckNumber string
	Fund        string
	GiftDate    time.Time

	First  string
	Last   string
	Email  string
	Street string
	Zip    string
}

// EntryResult is one entered donation with its matcher outcome.
type EntryResult struct {
	Donation domain.Donation
	Outcome  domain.MatchOutcome
}

// RowError reports a CSV row that could not be imported.
type RowError struct {
	Line   int
	Reason string
}

// ImportReport summarizes a CSV import run.
type ImportReport struct {
	Imported int
	Failed   []RowError
}

// Donations handles gift entry and CSV import.
type Donations interface {
	Enter(ctx context.Context, in DonationInput) (EntryResult, error)
	EnterBatch(ctx context.Context, ins []DonationInput) ([]EntryResult, error)
	ImportCSV(ctx context.Context, r io.Reader) (ImportReport, error)
	Get(ctx context.Context, id string) (domain.Donation, error)
}

// Donors is the CRM surface over donor records.
type Donors interface {
	Create(ctx context.Context, d domain.Donor) (domain.Donor, error)
	Get(ctx context.Context, id string) (domain.Donor, error)
	Update(ctx context.Context, d domain.Donor) (domain.Donor, error)
	Search(ctx context.Context, query string, limit int) ([]domain.DonorMatch, error)
	Summary(ctx context.Context, donorID string) (domain.GivingSummary, error)
	AddNote(ctx context.Context, donorID, body string) (domain.Note, error)
	Notes(ctx context.Context, donorID string) ([]domain.Note, error)
}
