package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Core domain models. Raw identity text on a donation is captured at entry
// time and never edited; only the resolution linkage changes afterwards.

// Donor is a canonical, deduplicated identity record. Donations, notes,
// tasks, files and pledges all reference it by ID; the ID is stable and a
// donor is never identified by name alone.
type Donor struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Street    string
	City      string
	State     string
	Zip       string
	CreatedAt time.Time
}

// ResolutionStatus is the persisted two-state flag on a donation.
// A resolved donation may still carry no donor (confirmed new person,
// or never matched); a pending donation always has candidates.
type ResolutionStatus string

const (
	StatusResolved ResolutionStatus = "resolved"
	StatusPending  ResolutionStatus = "pending"
)

// Donation is a financial transaction carrying the raw, unverified donor
// text fields it arrived with, plus an optional link to a resolved Donor.
type Donation struct {
	ID          string
	DonorID     *string
	Amount      decimal.Decimal
	Method      string
	CheckNumber string
	Fund        string
	GiftDate    time.Time

	RawFirst  string
	RawLast   string
	RawEmail  string
	RawStreet string
	RawZip    string

	Status    ResolutionStatus
	CreatedAt time.Time
}

// Candidate reasons written by the fuzzy tiers.
const (
	ReasonFuzzyName    = "Fuzzy Name Match"
	ReasonFuzzyAddress = "Fuzzy Address Match"
)

// Candidate is a scored guess linking a pending donation to a possible
// donor. Rows are write-once and deleted when the donation is resolved or
// rescanned.
type Candidate struct {
	DonationID string
	DonorID    string
	Score      float64
	Reason     string
}

// DonorMatch pairs a donor with a similarity score from a fuzzy search.
type DonorMatch struct {
	Donor Donor
	Score float64
}

// QueueCandidate is a candidate joined with its donor for operator review.
type QueueCandidate struct {
	Donor  Donor
	Score  float64
	Reason string
}

// QueueEntry is one pending donation with its candidates, best score first.
type QueueEntry struct {
	Donation   Donation
	Candidates []QueueCandidate
}

// DuplicateGroup is a transient grouping of donors sharing an exact match
// key. Groups are recomputed on every scan and never persisted.
type DuplicateGroup struct {
	MatchKey string
	Donors   []Donor
}

// GivingSummary aggregates a donor's donation history.
type GivingSummary struct {
	DonationCount int
	TotalAmount   decimal.Decimal
	FirstGift     *time.Time
	LastGift      *time.Time
}

// Note is a free-text annotation attached to a donor.
type Note struct {
	ID        string
	DonorID   string
	Body      string
	CreatedAt time.Time
}
