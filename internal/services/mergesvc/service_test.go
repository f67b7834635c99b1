package mergesvc_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"almsdesk/internal/domain"
	"almsdesk/internal/memstore"
	"almsdesk/internal/services/mergesvc"
)

func seedDonor(t *testing.T, store *memstore.Store, d domain.Donor) domain.Donor {
	t.Helper()
	created, err := store.CreateDonor(context.Background(), d)
	require.NoError(t, err)
	return created
}

func seedGift(t *testing.T, store *memstore.Store, donorID string, amount int64) domain.Donation {
	t.Helper()
	created, err := store.CreateDonation(context.Background(), domain.Donation{
		DonorID: &donorID,
		Amount:  decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
	return created
}

func TestMergeRepointsEverythingAndDeletesSecondaries(t *testing.T) {
	store := memstore.New()
	svc := mergesvc.New(store, zap.NewNop())
	ctx := context.Background()

	primary := seedDonor(t, store, domain.Donor{FirstName: "Beth", LastName: "Ward", Email: "beth@x.com"})
	secA := seedDonor(t, store, domain.Donor{FirstName: "Elizabeth", LastName: "Ward", Email: "a@x.com"})
	secB := seedDonor(t, store, domain.Donor{FirstName: "Liz", LastName: "Ward"})

	g1 := seedGift(t, store, secA.ID, 100)
	g2 := seedGift(t, store, secA.ID, 250)
	g3 := seedGift(t, store, secB.ID, 40)
	noteA, err := store.AddNote(ctx, secA.ID, "called about pledge")
	require.NoError(t, err)
	taskID := store.SeedTask(secB.ID)
	fileID := store.SeedFile(secA.ID)
	pledgeID := store.SeedPledge(secB.ID)

	require.NoError(t, svc.Merge(ctx, primary.ID, []string{secA.ID, secB.ID}))

	for _, id := range []string{g1.ID, g2.ID, g3.ID} {
		d, err := store.GetDonation(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, d.DonorID)
		assert.Equal(t, primary.ID, *d.DonorID)
	}
	notes, err := store.NotesByDonor(ctx, primary.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, noteA.ID, notes[0].ID)
	assert.Equal(t, primary.ID, store.TaskOwner(taskID))
	assert.Equal(t, primary.ID, store.FileOwner(fileID))
	assert.Equal(t, primary.ID, store.PledgeOwner(pledgeID))

	_, err = store.GetDonor(ctx, secA.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetDonor(ctx, secB.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	sum, err := store.SummaryByDonor(ctx, primary.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.DonationCount)
	assert.True(t, sum.TotalAmount.Equal(decimal.NewFromInt(390)))
}

func TestMergeFillsOnlyEmptyPrimaryFields(t *testing.T) {
	store := memstore.New()
	svc := mergesvc.New(store, zap.NewNop())
	ctx := context.Background()

	primary := seedDonor(t, store, domain.Donor{FirstName: "Beth", LastName: "Ward", Email: "beth@x.com"})
	first := seedDonor(t, store, domain.Donor{FirstName: "B", LastName: "Ward", Email: "old@x.com", Phone: "555-0100", City: "Springfield"})
	second := seedDonor(t, store, domain.Donor{FirstName: "B", LastName: "Ward", Phone: "555-9999", Zip: "62704"})

	require.NoError(t, svc.Merge(ctx, primary.ID, []string{first.ID, second.ID}))

	got, err := store.GetDonor(ctx, primary.ID)
	require.NoError(t, err)
	// Email was populated on the primary and must not be overwritten.
	assert.Equal(t, "beth@x.com", got.Email)
	// First secondary wins for phone; second contributes the zip.
	assert.Equal(t, "555-0100", got.Phone)
	assert.Equal(t, "Springfield", got.City)
	assert.Equal(t, "62704", got.Zip)
}

func TestMergeRepointsSoleCandidateToPrimary(t *testing.T) {
	store := memstore.New()
	svc := mergesvc.New(store, zap.NewNop())
	ctx := context.Background()

	primary := seedDonor(t, store, domain.Donor{FirstName: "Beth", LastName: "Ward"})
	sec := seedDonor(t, store, domain.Donor{FirstName: "Elizabeth", LastName: "Ward", Zip: "62704"})

	gift, err := store.CreateDonation(ctx, domain.Donation{
		Amount:   decimal.NewFromInt(60),
		RawFirst: "Eliza", RawLast: "Ward", RawZip: "62704",
	})
	require.NoError(t, err)
	require.NoError(t, store.MarkPending(ctx, gift.ID, []domain.Candidate{
		{DonationID: gift.ID, DonorID: sec.ID, Score: 0.41, Reason: domain.ReasonFuzzyName},
	}))

	require.NoError(t, svc.Merge(ctx, primary.ID, []string{sec.ID}))

	// The donation stays pending and its sole candidate follows the merge.
	queue, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Len(t, queue[0].Candidates, 1)
	assert.Equal(t, primary.ID, queue[0].Candidates[0].Donor.ID)
	assert.Equal(t, 0.41, queue[0].Candidates[0].Score)
	assert.Equal(t, domain.ReasonFuzzyName, queue[0].Candidates[0].Reason)
}

func TestMergeDropsCandidateCollidingWithPrimary(t *testing.T) {
	store := memstore.New()
	svc := mergesvc.New(store, zap.NewNop())
	ctx := context.Background()

	primary := seedDonor(t, store, domain.Donor{FirstName: "Beth", LastName: "Ward"})
	sec := seedDonor(t, store, domain.Donor{FirstName: "Elizabeth", LastName: "Ward"})

	gift, err := store.CreateDonation(ctx, domain.Donation{
		Amount:   decimal.NewFromInt(60),
		RawFirst: "Eliza", RawLast: "Ward", RawZip: "62704",
	})
	require.NoError(t, err)
	require.NoError(t, store.MarkPending(ctx, gift.ID, []domain.Candidate{
		{DonationID: gift.ID, DonorID: primary.ID, Score: 0.55, Reason: domain.ReasonFuzzyName},
		{DonationID: gift.ID, DonorID: sec.ID, Score: 0.41, Reason: domain.ReasonFuzzyName},
	}))

	require.NoError(t, svc.Merge(ctx, primary.ID, []string{sec.ID}))

	// The primary was already a candidate; the secondary's row is dropped
	// rather than duplicated.
	queue, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Len(t, queue[0].Candidates, 1)
	assert.Equal(t, primary.ID, queue[0].Candidates[0].Donor.ID)
	assert.Equal(t, 0.55, queue[0].Candidates[0].Score)
}

func TestMergeRejectsSelfMerge(t *testing.T) {
	store := memstore.New()
	svc := mergesvc.New(store, zap.NewNop())
	primary := seedDonor(t, store, domain.Donor{FirstName: "Beth", LastName: "Ward"})

	err := svc.Merge(context.Background(), primary.ID, []string{primary.ID})
	assert.ErrorIs(t, err, domain.ErrSelfMerge)
}

func TestMergeRejectsEmptySecondaries(t *testing.T) {
	store := memstore.New()
	svc := mergesvc.New(store, zap.NewNop())
	primary := seedDonor(t, store, domain.Donor{FirstName: "Beth", LastName: "Ward"})

	err := svc.Merge(context.Background(), primary.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNoSecondaries)
}

func TestMergeMissingSecondaryFailsLoudly(t *testing.T) {
	store := memstore.New()
	svc := mergesvc.New(store, zap.NewNop())
	ctx := context.Background()

	primary := seedDonor(t, store, domain.Donor{FirstName: "Beth", LastName: "Ward"})
	sec := seedDonor(t, store, domain.Donor{FirstName: "Liz", LastName: "Ward"})
	gift := seedGift(t, store, sec.ID, 10)

	err := svc.Merge(ctx, primary.ID, []string{sec.ID, "already-gone"})
	assert.ErrorIs(t, err, domain.ErrDonorMissing)

	// Nothing moved.
	d, err := store.GetDonation(ctx, gift.ID)
	require.NoError(t, err)
	assert.Equal(t, sec.ID, *d.DonorID)
	_, err = store.GetDonor(ctx, sec.ID)
	assert.NoError(t, err)
}

func TestMergeAtomicUnderInjectedFailure(t *testing.T) {
	store := memstore.New()
	svc := mergesvc.New(store, zap.NewNop())
	ctx := context.Background()

	primary := seedDonor(t, store, domain.Donor{FirstName: "Beth", LastName: "Ward"})
	sec := seedDonor(t, store, domain.Donor{FirstName: "Liz", LastName: "Ward", Email: "liz@x.com"})
	gift := seedGift(t, store, sec.ID, 75)

	store.FailMergeAfterRewrites = true
	err := svc.Merge(ctx, primary.ID, []string{sec.ID})
	require.Error(t, err)

	// Pre-merge state fully intact: gift still owned by the secondary, the
	// secondary still exists, the primary gained nothing.
	d, err := store.GetDonation(ctx, gift.ID)
	require.NoError(t, err)
	assert.Equal(t, sec.ID, *d.DonorID)
	got, err := store.GetDonor(ctx, sec.ID)
	require.NoError(t, err)
	assert.Equal(t, "liz@x.com", got.Email)
	p, err := store.GetDonor(ctx, primary.ID)
	require.NoError(t, err)
	assert.Empty(t, p.Email)
}

func TestScanDuplicatesGroupsByEmailAndNameZip(t *testing.T) {
	store := memstore.New()
	svc := mergesvc.New(store, zap.NewNop())
	ctx := context.Background()

	a := seedDonor(t, store, domain.Donor{FirstName: "Sam", LastName: "Reed", Email: "Sam@x.com"})
	b := seedDonor(t, store, domain.Donor{FirstName: "Samuel", LastName: "Reed", Email: "sam@X.com"})
	c := seedDonor(t, store, domain.Donor{FirstName: "Pat", LastName: "Cole", Zip: "10001"})
	d := seedDonor(t, store, domain.Donor{FirstName: "pat", LastName: "cole", Zip: "10001"})
	seedDonor(t, store, domain.Donor{FirstName: "Solo", LastName: "Unique", Email: "solo@x.com"})

	groups, err := svc.ScanDuplicates(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	byKey := make(map[string][]string)
	for _, g := range groups {
		for _, donor := range g.Donors {
			byKey[g.MatchKey] = append(byKey[g.MatchKey], donor.ID)
		}
	}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, byKey["email:sam@x.com"])
	assert.ElementsMatch(t, []string{c.ID, d.ID}, byKey["name:pat cole 10001"])

	// Nothing persisted: a second scan recomputes the same groups.
	again, err := svc.ScanDuplicates(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 2)
}
