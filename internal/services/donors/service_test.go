package donors_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"almsdesk/internal/domain"
	"almsdesk/internal/memstore"
	"almsdesk/internal/services/donors"
)

func newService(store *memstore.Store) *donors.Service {
	return donors.New(store, store, store, zap.NewNop())
}

func TestCreateTidiesAndValidates(t *testing.T) {
	store := memstore.New()
	svc := newService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.Donor{FirstName: " Ada ", LastName: " Lovelace ", Email: " ADA@Math.ORG "})
	require.NoError(t, err)
	assert.Equal(t, "Ada", created.FirstName)
	assert.Equal(t, "ada@math.org", created.Email)

	_, err = svc.Create(ctx, domain.Donor{FirstName: "No", LastName: "  "})
	assert.ErrorIs(t, err, donors.ErrLastNameRequired)
}

func TestSearchRanksByNameSimilarity(t *testing.T) {
	store := memstore.New()
	svc := newService(store)
	ctx := context.Background()

	exact, err := svc.Create(ctx, domain.Donor{FirstName: "Maya", LastName: "Reed"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.Donor{FirstName: "Mason", LastName: "Reid"})
	require.NoError(t, err)

	matches, err := svc.Search(ctx, "Maya Reed", 10)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, exact.ID, matches[0].Donor.ID)
	assert.Equal(t, 1.0, matches[0].Score)

	empty, err := svc.Search(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestSummaryAggregatesGifts(t *testing.T) {
	store := memstore.New()
	svc := newService(store)
	ctx := context.Background()

	donor, err := svc.Create(ctx, domain.Donor{FirstName: "Sam", LastName: "Reed"})
	require.NoError(t, err)

	early := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, g := range []struct {
		amount int64
		date   time.Time
	}{{100, late}, {50, early}} {
		_, err := store.CreateDonation(ctx, domain.Donation{
			DonorID:  &donor.ID,
			Amount:   decimal.NewFromInt(g.amount),
			GiftDate: g.date,
		})
		require.NoError(t, err)
	}

	sum, err := svc.Summary(ctx, donor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.DonationCount)
	assert.True(t, sum.TotalAmount.Equal(decimal.NewFromInt(150)))
	require.NotNil(t, sum.FirstGift)
	require.NotNil(t, sum.LastGift)
	assert.Equal(t, early, *sum.FirstGift)
	assert.Equal(t, late, *sum.LastGift)

	_, err = svc.Summary(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotes(t *testing.T) {
	store := memstore.New()
	svc := newService(store)
	ctx := context.Background()

	donor, err := svc.Create(ctx, domain.Donor{LastName: "Reed"})
	require.NoError(t, err)

	_, err = svc.AddNote(ctx, donor.ID, "  ")
	assert.Error(t, err)

	note, err := svc.AddNote(ctx, donor.ID, "thank-you letter sent")
	require.NoError(t, err)
	assert.Equal(t, donor.ID, note.DonorID)

	notes, err := svc.Notes(ctx, donor.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "thank-you letter sent", notes[0].Body)
}
