package ports

import (
	"context"

	"almsdesk/internal/domain"
)

// DonorRepository stores canonical donor identities and backs the matcher's
// exact and similarity lookups. Lookups return empty slices when nothing
// matches; that is never an error.
type DonorRepository interface {
	CreateDonor(ctx context.Context, d domain.Donor) (domain.Donor, error)
	GetDonor(ctx context.Context, id string) (domain.Donor, error)
	UpdateDonor(ctx context.Context, d domain.Donor) (domain.Donor, error)

	// FindByEmail matches case-insensitively on the exact address.
	FindByEmail(ctx context.Context, email string) ([]domain.Donor, error)
	// FindByName matches case-insensitively on the exact (first, last) pair.
	FindByName(ctx context.Context, first, last string) ([]domain.Donor, error)

	// SearchByLastZip returns donors with the given exact last name and zip,
	// ranked by first-name trigram similarity, strictly above minScore,
	// best first, at most limit rows.
	SearchByLastZip(ctx context.Context, last, zip, first string, minScore float64, limit int) ([]domain.DonorMatch, error)
	// SearchByLastStreet is the address analog: exact last name, street
	// similarity strictly above minScore.
	SearchByLastStreet(ctx context.Context, last, street string, minScore float64, limit int) ([]domain.DonorMatch, error)

	// SearchName is the CRM search box: full-name trigram ranking.
	SearchName(ctx context.Context, query string, limit int) ([]domain.DonorMatch, error)
}

// DonationRepository manages donation records and their resolution state.
// The multi-row transitions (MarkPending, ResolveLink, ResolveNew,
// ClearPending) are atomic in every implementation.
type DonationRepository interface {
	CreateDonation(ctx context.Context, d domain.Donation) (domain.Donation, error)
	GetDonation(ctx context.Context, id string) (domain.Donation, error)

	// SetResolved links the donation to a donor and marks it resolved.
	SetResolved(ctx context.Context, donationID, donorID string) error
	// MarkPending replaces the donation's candidate set and flips it to
	// pending. candidates must be non-empty.
	MarkPending(ctx context.Context, donationID string, candidates []domain.Candidate) error
	// ResolveLink applies an operator link decision: donation must be
	// pending (domain.ErrNotPending otherwise); sets the donor, marks
	// resolved, deletes candidates. A nonexistent donor surfaces as the
	// store's foreign-key error, unmodified.
	ResolveLink(ctx context.Context, donationID, donorID string) error
	// ResolveNew confirms a pending donation as a brand-new person: marks
	// resolved with no donor and deletes candidates.
	ResolveNew(ctx context.Context, donationID string) error
	// ClearPending purges candidates and returns the donation to the
	// unresolved state ahead of a rescan.
	ClearPending(ctx context.Context, donationID string) error

	// ListPending returns the review queue: every pending donation joined
	// with its candidates, score descending within each donation.
	ListPending(ctx context.Context) ([]domain.QueueEntry, error)

	SummaryByDonor(ctx context.Context, donorID string) (domain.GivingSummary, error)
}

// NoteRepository stores operator notes on donors.
type NoteRepository interface {
	AddNote(ctx context.Context, donorID, body string) (domain.Note, error)
	NotesByDonor(ctx context.Context, donorID string) ([]domain.Note, error)
}

// MergeRepository executes donor consolidation and the duplicate scan.
type MergeRepository interface {
	// MergeDonors repoints every donor-owned record from each secondary to
	// the primary, fills the primary's empty contact fields from the
	// secondaries in order, and deletes the secondaries, all in one
	// transaction. A secondary that does not exist fails the whole merge
	// with domain.ErrDonorMissing.
	MergeDonors(ctx context.Context, primaryID string, secondaryIDs []string) error
	// ScanDuplicates groups donors sharing an exact key (lowercased email;
	// lowercased name+zip). Pure read, nothing persisted.
	ScanDuplicates(ctx context.Context) ([]domain.DuplicateGroup, error)
}
