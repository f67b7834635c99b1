package domain

// MatchStatus tags a matcher outcome.
type MatchStatus string

const (
	MatchResolved  MatchStatus = "resolved"
	MatchPending   MatchStatus = "pending"
	MatchUnmatched MatchStatus = "unmatched"
)

// MatchOutcome is the result of running the tiered matcher over one
// donation. Construct through the helpers below so the illegal shapes
// (resolved with candidates, pending with a donor) cannot be built.
type MatchOutcome struct {
	Status     MatchStatus
	DonorID    string      // set only when Status == MatchResolved
	Tier       string      // which tier decided, for logging and the API
	Candidates []Candidate // set only when Status == MatchPending
}

func ResolvedOutcome(donorID, tier string) MatchOutcome {
	return MatchOutcome{Status: MatchResolved, DonorID: donorID, Tier: tier}
}

func PendingOutcome(tier string, candidates []Candidate) MatchOutcome {
	return MatchOutcome{Status: MatchPending, Tier: tier, Candidates: candidates}
}

func UnmatchedOutcome() MatchOutcome {
	return MatchOutcome{Status: MatchUnmatched}
}
