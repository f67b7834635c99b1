package resolution_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"almsdesk/internal/domain"
	"almsdesk/internal/memstore"
	"almsdesk/internal/services/matcher"
	"almsdesk/internal/services/resolution"
)

// pendingDonation seeds a donor plus a donation that fuzzy-matches it, runs
// the matcher, and returns both.
func pendingDonation(t *testing.T, store *memstore.Store) (domain.Donation, domain.Donor) {
	t.Helper()
	ctx := context.Background()
	donor, err := store.CreateDonor(ctx, domain.Donor{FirstName: "Jonathan", LastName: "Skywalker", Zip: "90210"})
	require.NoError(t, err)
	don, err := store.CreateDonation(ctx, domain.Donation{RawFirst: "Jon", RawLast: "Skywalker", RawZip: "90210"})
	require.NoError(t, err)

	m := matcher.New(store, store, matcher.DefaultConfig(), zap.NewNop())
	out, err := m.Match(ctx, don.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MatchPending, out.Status)
	return don, donor
}

func TestQueueShowsPendingWithRankedCandidates(t *testing.T) {
	store := memstore.New()
	svc := resolution.New(store, zap.NewNop())
	don, donor := pendingDonation(t, store)

	entries, err := svc.Queue(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, don.ID, entries[0].Donation.ID)
	require.Len(t, entries[0].Candidates, 1)
	assert.Equal(t, donor.ID, entries[0].Candidates[0].Donor.ID)
	assert.Equal(t, domain.ReasonFuzzyName, entries[0].Candidates[0].Reason)
}

func TestLinkResolvesAndClearsQueue(t *testing.T) {
	store := memstore.New()
	svc := resolution.New(store, zap.NewNop())
	don, donor := pendingDonation(t, store)
	ctx := context.Background()

	require.NoError(t, svc.Link(ctx, don.ID, donor.ID))

	got, err := store.GetDonation(ctx, don.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DonorID)
	assert.Equal(t, donor.ID, *got.DonorID)
	assert.Equal(t, domain.StatusResolved, got.Status)

	entries, err := svc.Queue(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLinkRejectsNonPendingDonation(t *testing.T) {
	store := memstore.New()
	svc := resolution.New(store, zap.NewNop())
	don, donor := pendingDonation(t, store)
	ctx := context.Background()

	require.NoError(t, svc.Link(ctx, don.ID, donor.ID))
	// Second decision must not corrupt the resolved donation.
	assert.ErrorIs(t, svc.Link(ctx, don.ID, donor.ID), domain.ErrNotPending)
	assert.ErrorIs(t, svc.CreateNew(ctx, don.ID), domain.ErrNotPending)
}

func TestLinkMissingDonorSurfacesStoreError(t *testing.T) {
	store := memstore.New()
	svc := resolution.New(store, zap.NewNop())
	don, _ := pendingDonation(t, store)

	err := svc.Link(context.Background(), don.ID, "no-such-donor")
	assert.ErrorIs(t, err, domain.ErrDonorMissing)
}

func TestCreateNewLeavesDonationUnlinked(t *testing.T) {
	store := memstore.New()
	svc := resolution.New(store, zap.NewNop())
	don, _ := pendingDonation(t, store)
	ctx := context.Background()

	require.NoError(t, svc.CreateNew(ctx, don.ID))

	got, err := store.GetDonation(ctx, don.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DonorID)
	assert.Equal(t, domain.StatusResolved, got.Status)

	entries, err := svc.Queue(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
