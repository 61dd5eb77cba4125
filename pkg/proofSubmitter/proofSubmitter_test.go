package proofSubmitter

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinel-bridge/sentinel/pkg/config"
	"github.com/sentinel-bridge/sentinel/pkg/events"
	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
	"github.com/sentinel-bridge/sentinel/pkg/hostChain/simulatedHostChain"
	"github.com/sentinel-bridge/sentinel/pkg/signer/inMemorySigner"
)

var testInstance = hostChain.BridgeInstance{
	ChainId:        config.ChainId(1),
	BridgeContract: common.HexToAddress("0x1000000000000000000000000000000000000001"),
}

func testAuthor(t *testing.T, ims *inMemorySigner.InMemorySigner) hostChain.Author {
	t.Helper()

	seed := make([]byte, 32)
	seed[0] = 9
	key, err := ims.AddSeed(seed)
	require.NoError(t, err)
	return hostChain.Author{Address: key, SigningKey: key}
}

func Test_ProofEncoding(t *testing.T) {
	instanceId := hostChain.InstanceId(3)
	author := hostChain.AccountId{0xaa}

	t.Run("Should lay out the latest block proof deterministically", func(t *testing.T) {
		proof := EncodeLatestBlockProof(instanceId, testInstance, author, 19_000_000)

		offset := len(latestBlockContext)
		assert.Equal(t, latestBlockContext, proof[:offset])
		assert.Equal(t, uint32(3), binary.BigEndian.Uint32(proof[offset:offset+4]))
		offset += 4
		assert.Equal(t, testInstance.BridgeContract.Bytes(), proof[offset:offset+20])
		offset += 20
		assert.Equal(t, uint64(1), binary.BigEndian.Uint64(proof[offset:offset+8]))
		offset += 8
		assert.Equal(t, author[:], proof[offset:offset+32])
		offset += 32
		assert.Equal(t, uint64(19_000_000), binary.BigEndian.Uint64(proof[offset:offset+8]))
		assert.Len(t, proof, offset+8)
	})

	t.Run("Should bind partition contents into the events proof", func(t *testing.T) {
		partition := &hostChain.EventsPartition{
			PartitionId: 2,
			Range:       hostChain.EthBlockRange{StartBlock: 100, EndBlock: 159},
			Events: []events.DiscoveredEvent{
				{
					Event: events.EthEvent{
						EventId: events.EthEventId{
							Signature:       events.KindLifted.Signature(),
							TransactionHash: common.HexToHash("0x01"),
						},
					},
					Block: 105,
				},
			},
		}

		proof := EncodeEventsProof(instanceId, testInstance, author, partition)

		header := len(eventsVoteContext) + 4 + 20 + 8 + 32
		assert.Equal(t, uint16(2), binary.BigEndian.Uint16(proof[header:header+2]))
		assert.Equal(t, uint64(100), binary.BigEndian.Uint64(proof[header+2:header+10]))
		assert.Equal(t, uint64(159), binary.BigEndian.Uint64(proof[header+10:header+18]))

		eventOffset := header + 18
		assert.Equal(t, events.KindLifted.Signature().Bytes(), proof[eventOffset:eventOffset+32])
		assert.Len(t, proof, eventOffset+32+32+8)
	})

	t.Run("Should produce distinct proofs per submission kind", func(t *testing.T) {
		blockProof := EncodeLatestBlockProof(instanceId, testInstance, author, 100)
		eventsProof := EncodeEventsProof(instanceId, testInstance, author, &hostChain.EventsPartition{
			Range: hostChain.EthBlockRange{StartBlock: 100, EndBlock: 100},
		})
		assert.NotEqual(t, blockProof[:len(latestBlockContext)], eventsProof[:len(eventsVoteContext)])
	})
}

func Test_ProofSubmitter(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()
	instanceId := hostChain.InstanceId(1)

	t.Run("Should sign and submit a latest block vote", func(t *testing.T) {
		sim := simulatedHostChain.NewSimulatedHostChain(logger)
		sim.AddInstance(instanceId, testInstance)

		ims := inMemorySigner.NewInMemorySigner()
		author := testAuthor(t, ims)

		ps := NewProofSubmitter(sim, ims, logger)
		require.NoError(t, ps.SubmitLatestBlock(ctx, instanceId, testInstance, author, 500))

		block, voted := sim.LatestBlockVote(instanceId, author.Address)
		require.True(t, voted)
		assert.Equal(t, uint64(500), block)
	})

	t.Run("Should sign and submit an events vote", func(t *testing.T) {
		sim := simulatedHostChain.NewSimulatedHostChain(logger)
		sim.AddInstance(instanceId, testInstance)

		ims := inMemorySigner.NewInMemorySigner()
		author := testAuthor(t, ims)

		partition := &hostChain.EventsPartition{
			PartitionId: 0,
			Range:       hostChain.EthBlockRange{StartBlock: 1, EndBlock: 60},
		}

		ps := NewProofSubmitter(sim, ims, logger)
		require.NoError(t, ps.SubmitEventsVote(ctx, instanceId, testInstance, author, partition))

		voted, ok := sim.EventVote(instanceId, author.Address)
		require.True(t, ok)
		assert.Equal(t, partition.Range, voted.Range)
	})

	t.Run("Should surface signature failures", func(t *testing.T) {
		sim := simulatedHostChain.NewSimulatedHostChain(logger)
		ims := inMemorySigner.NewInMemorySigner()

		unknown := hostChain.Author{Address: hostChain.AccountId{1}, SigningKey: hostChain.AccountId{2}}
		ps := NewProofSubmitter(sim, ims, logger)

		err := ps.SubmitLatestBlock(ctx, instanceId, testInstance, unknown, 500)
		assert.ErrorIs(t, err, ErrSignatureGenerationFailed)
	})

	t.Run("Should verify the submitted signature against the proof bytes", func(t *testing.T) {
		sim := simulatedHostChain.NewSimulatedHostChain(logger)
		sim.AddInstance(instanceId, testInstance)

		ims := inMemorySigner.NewInMemorySigner()
		author := testAuthor(t, ims)

		ps := NewProofSubmitter(sim, ims, logger)
		require.NoError(t, ps.SubmitLatestBlock(ctx, instanceId, testInstance, author, 777))

		proof := EncodeLatestBlockProof(instanceId, testInstance, author.Address, 777)
		signature, err := ims.SignMessage(author.SigningKey, proof)
		require.NoError(t, err)

		valid, err := ims.VerifyMessage(author.SigningKey, proof, signature)
		require.NoError(t, err)
		assert.True(t, valid)
	})
}
