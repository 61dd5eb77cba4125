package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
)

// TestSuite defines a test suite that all submission store implementations
// must pass
type TestSuite struct {
	NewStore func() (SubmissionStore, error)
}

// Run executes all storage interface compliance tests
func (s *TestSuite) Run(t *testing.T) {
	t.Run("SubmissionJournal", s.testSubmissionJournal)
	t.Run("Lifecycle", s.testLifecycle)
	t.Run("ConcurrentAccess", s.testConcurrentAccess)
}

func (s *TestSuite) testSubmissionJournal(t *testing.T) {
	store, err := s.NewStore()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	record := &SubmissionRecord{
		InstanceId:  hostChain.InstanceId(7),
		Kind:        SubmissionKindLatestBlock,
		Author:      "0x0101",
		BlockNumber: 19_000_000,
		SubmittedAt: time.Now().UTC(),
	}

	// Getting before saving reports not found
	_, err = store.GetSubmission(ctx, record.InstanceId, record.Kind)
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.SaveSubmission(ctx, record)
	require.NoError(t, err)

	retrieved, err := store.GetSubmission(ctx, record.InstanceId, record.Kind)
	require.NoError(t, err)
	assert.Equal(t, record.InstanceId, retrieved.InstanceId)
	assert.Equal(t, record.Kind, retrieved.Kind)
	assert.Equal(t, record.BlockNumber, retrieved.BlockNumber)

	// A newer submission for the same (instance, kind) overwrites
	record.BlockNumber = 19_000_060
	err = store.SaveSubmission(ctx, record)
	require.NoError(t, err)

	retrieved, err = store.GetSubmission(ctx, record.InstanceId, record.Kind)
	require.NoError(t, err)
	assert.Equal(t, uint64(19_000_060), retrieved.BlockNumber)

	// A different kind for the same instance is a separate record
	voteRecord := &SubmissionRecord{
		InstanceId:  record.InstanceId,
		Kind:        SubmissionKindEventsVote,
		Author:      record.Author,
		PartitionId: 2,
		StartBlock:  19_000_000,
		EndBlock:    19_000_059,
		EventCount:  5,
		SubmittedAt: time.Now().UTC(),
	}
	err = store.SaveSubmission(ctx, voteRecord)
	require.NoError(t, err)

	records, err := store.ListSubmissions(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func (s *TestSuite) testLifecycle(t *testing.T) {
	store, err := s.NewStore()
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, store.Close())

	err = store.SaveSubmission(ctx, &SubmissionRecord{
		InstanceId: hostChain.InstanceId(1),
		Kind:       SubmissionKindLatestBlock,
	})
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = store.GetSubmission(ctx, hostChain.InstanceId(1), SubmissionKindLatestBlock)
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = store.ListSubmissions(ctx)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func (s *TestSuite) testConcurrentAccess(t *testing.T) {
	store, err := s.NewStore()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(instance uint32) {
			defer wg.Done()
			err := store.SaveSubmission(ctx, &SubmissionRecord{
				InstanceId:  hostChain.InstanceId(instance),
				Kind:        SubmissionKindLatestBlock,
				BlockNumber: uint64(instance) * 100,
				SubmittedAt: time.Now().UTC(),
			})
			assert.NoError(t, err)
		}(uint32(i))
	}
	wg.Wait()

	records, err := store.ListSubmissions(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 10)
}
