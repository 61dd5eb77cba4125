package badger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
	"github.com/sentinel-bridge/sentinel/pkg/orchestrator/storage"
	"github.com/sentinel-bridge/sentinel/pkg/sentinelConfig"
)

func TestBadgerSubmissionStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "badger-submission-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	// Each suite store gets its own subdirectory: badger allows a single
	// process-wide handle per directory.
	suite := &storage.TestSuite{
		NewStore: func() (storage.SubmissionStore, error) {
			dir, err := os.MkdirTemp(tmpDir, "store-*")
			if err != nil {
				return nil, err
			}
			return NewBadgerSubmissionStore(&sentinelConfig.BadgerConfig{Dir: dir})
		},
	}
	suite.Run(t)
}

func TestBadgerSubmissionStore_Persistence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "badger-submission-persist-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &sentinelConfig.BadgerConfig{Dir: tmpDir}
	ctx := context.Background()

	// Create store, save a record, and close
	{
		store, err := NewBadgerSubmissionStore(cfg)
		require.NoError(t, err)

		err = store.SaveSubmission(ctx, &storage.SubmissionRecord{
			InstanceId:  hostChain.InstanceId(4),
			Kind:        storage.SubmissionKindEventsVote,
			Author:      "0x0404",
			PartitionId: 1,
			StartBlock:  200,
			EndBlock:    259,
			EventCount:  12,
			SubmittedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		require.NoError(t, store.Close())
	}

	// Reopen store and verify the record persists
	{
		store, err := NewBadgerSubmissionStore(cfg)
		require.NoError(t, err)
		defer store.Close()

		record, err := store.GetSubmission(ctx, hostChain.InstanceId(4), storage.SubmissionKindEventsVote)
		require.NoError(t, err)
		assert.Equal(t, uint16(1), record.PartitionId)
		assert.Equal(t, 12, record.EventCount)
	}
}

func TestBadgerSubmissionStore_InMemory(t *testing.T) {
	store, err := NewBadgerSubmissionStore(&sentinelConfig.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	err = store.SaveSubmission(ctx, &storage.SubmissionRecord{
		InstanceId:  hostChain.InstanceId(1),
		Kind:        storage.SubmissionKindLatestBlock,
		BlockNumber: 77,
		SubmittedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	record, err := store.GetSubmission(ctx, hostChain.InstanceId(1), storage.SubmissionKindLatestBlock)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), record.BlockNumber)
}

func TestBadgerSubmissionStore_NilConfig(t *testing.T) {
	_, err := NewBadgerSubmissionStore(nil)
	assert.Error(t, err)
}
