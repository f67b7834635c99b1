package matchrunner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"almsdesk/internal/domain"
	"almsdesk/internal/memstore"
	"almsdesk/internal/services/matcher"
	"almsdesk/internal/workers/matchrunner"
)

func TestProcessResolvesQueuedDonation(t *testing.T) {
	store := memstore.New()
	m := matcher.New(store, store, matcher.DefaultConfig(), zap.NewNop())
	ctx := context.Background()

	donor, err := store.CreateDonor(ctx, domain.Donor{FirstName: "Ada", LastName: "Lovelace", Email: "ada@math.org"})
	require.NoError(t, err)
	don, err := store.CreateDonation(ctx, domain.Donation{RawEmail: "ada@math.org"})
	require.NoError(t, err)
	jobID, err := store.Enqueue(ctx, don.ID)
	require.NoError(t, err)

	job, found, err := store.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, matchrunner.Process(ctx, store, m, job))
	assert.Equal(t, "completed", store.JobState(jobID))

	got, err := store.GetDonation(ctx, don.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DonorID)
	assert.Equal(t, donor.ID, *got.DonorID)
}

func TestProcessAlreadyLinkedCountsAsDone(t *testing.T) {
	store := memstore.New()
	m := matcher.New(store, store, matcher.DefaultConfig(), zap.NewNop())
	ctx := context.Background()

	donor, err := store.CreateDonor(ctx, domain.Donor{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	don, err := store.CreateDonation(ctx, domain.Donation{DonorID: &donor.ID})
	require.NoError(t, err)
	jobID, err := store.Enqueue(ctx, don.ID)
	require.NoError(t, err)

	job, found, err := store.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, matchrunner.Process(ctx, store, m, job))
	assert.Equal(t, "completed", store.JobState(jobID))
}

func TestProcessRecordsFailure(t *testing.T) {
	store := memstore.New()
	m := matcher.New(store, store, matcher.DefaultConfig(), zap.NewNop())
	ctx := context.Background()

	don, err := store.CreateDonation(ctx, domain.Donation{RawLast: "Orphan"})
	require.NoError(t, err)
	jobID, err := store.Enqueue(ctx, don.ID)
	require.NoError(t, err)
	job, found, err := store.ClaimNext(ctx)
	require.NoError(t, err)
	require.True(t, found)

	// Unmatched is a normal outcome, not a failure.
	require.NoError(t, matchrunner.Process(ctx, store, m, job))
	assert.Equal(t, "completed", store.JobState(jobID))
}

func TestRunDrainsQueue(t *testing.T) {
	store := memstore.New()
	m := matcher.New(store, store, matcher.DefaultConfig(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := store.CreateDonor(ctx, domain.Donor{FirstName: "Ada", LastName: "Lovelace", Email: "ada@math.org"})
	require.NoError(t, err)

	var jobIDs []string
	for i := 0; i < 3; i++ {
		don, err := store.CreateDonation(ctx, domain.Donation{RawEmail: "ada@math.org"})
		require.NoError(t, err)
		id, err := store.Enqueue(ctx, don.ID)
		require.NoError(t, err)
		jobIDs = append(jobIDs, id)
	}

	matchrunner.Run(ctx, store, m, 2, 5*time.Millisecond, zap.NewNop())

	assert.Eventually(t, func() bool {
		for _, id := range jobIDs {
			if store.JobState(id) != "completed" {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
}
