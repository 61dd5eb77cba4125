package orchestrator

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinel-bridge/sentinel/pkg/chainClient"
	"github.com/sentinel-bridge/sentinel/pkg/config"
	"github.com/sentinel-bridge/sentinel/pkg/events"
	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
	"github.com/sentinel-bridge/sentinel/pkg/hostChain/simulatedHostChain"
	"github.com/sentinel-bridge/sentinel/pkg/orchestrator/storage"
	"github.com/sentinel-bridge/sentinel/pkg/orchestrator/storage/memory"
	"github.com/sentinel-bridge/sentinel/pkg/partition"
	"github.com/sentinel-bridge/sentinel/pkg/proofSubmitter"
	"github.com/sentinel-bridge/sentinel/pkg/signer/inMemorySigner"
)

var (
	testBridgeAddress = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testInstance      = hostChain.BridgeInstance{
		ChainId:        config.ChainId(1),
		BridgeContract: testBridgeAddress,
	}
	testInstanceId = hostChain.InstanceId(1)
)

// stubChainClient serves a fixed head block and log set.
type stubChainClient struct {
	head uint64
	logs []chainClient.ChainLog

	headErr error
}

func (s *stubChainClient) BlockNumber(ctx context.Context) (uint64, error) {
	if s.headErr != nil {
		return 0, s.headErr
	}
	return s.head, nil
}
func (s *stubChainClient) ChainId(ctx context.Context) (uint64, error) { return 1, nil }
func (s *stubChainClient) GetLogs(ctx context.Context, filter chainClient.LogFilter) ([]chainClient.ChainLog, error) {
	var matched []chainClient.ChainLog
	for _, lg := range s.logs {
		if lg.BlockNumber == nil || *lg.BlockNumber < filter.FromBlock || *lg.BlockNumber > filter.ToBlock {
			continue
		}
		matched = append(matched, lg)
	}
	return matched, nil
}
func (s *stubChainClient) GetReceipt(ctx context.Context, txHash common.Hash) (*chainClient.ChainReceipt, error) {
	return nil, nil
}
func (s *stubChainClient) GetTransactionInput(ctx context.Context, txHash common.Hash) ([]byte, error) {
	return nil, nil
}
func (s *stubChainClient) ReadCall(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return nil, nil
}
func (s *stubChainClient) SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	return common.Hash{}, nil
}
func (s *stubChainClient) Close() {}

type stubClientProvider struct {
	client      chainClient.IChainClient
	err         error
	errForChain config.ChainId
}

func (p *stubClientProvider) GetClientWithRetry(ctx context.Context, chainId config.ChainId) (chainClient.IChainClient, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.errForChain != 0 && chainId == p.errForChain {
		return nil, errors.Errorf("no endpoint serves chain id %d", chainId)
	}
	return p.client, nil
}

type fixture struct {
	sim    *simulatedHostChain.SimulatedHostChain
	client *stubChainClient
	store  *memory.InMemorySubmissionStore
	orch   *Orchestrator
	author hostChain.Author
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	sim := simulatedHostChain.NewSimulatedHostChain(logger)
	sim.AddInstance(testInstanceId, testInstance)
	sim.SetRequestedSignatures(testInstanceId, events.Signatures(events.AllEventKinds()))

	ims := inMemorySigner.NewInMemorySigner()
	seed := make([]byte, 32)
	seed[0] = 7
	key, err := ims.AddSeed(seed)
	require.NoError(t, err)

	author := hostChain.Author{Address: key, SigningKey: key}
	sim.SetAuthors([]hostChain.Author{author})

	client := &stubChainClient{}
	store := memory.NewInMemorySubmissionStore()

	orch := NewOrchestrator(
		sim,
		proofSubmitter.NewProofSubmitter(sim, ims, logger),
		&stubClientProvider{client: client},
		ims,
		partition.NewPartitionFactory(),
		events.NewEventRegistry(),
		store,
		logger,
		WithIntervals(time.Millisecond, time.Millisecond),
	)
	require.NoError(t, orch.Initialize(context.Background()))

	return &fixture{sim: sim, client: client, store: store, orch: orch, author: author}
}

func liftedLog(txHash common.Hash, block uint64) chainClient.ChainLog {
	data := make([]byte, 32)
	big.NewInt(1000).FillBytes(data)
	blockCopy := block
	hashCopy := txHash
	return chainClient.ChainLog{
		Address: testBridgeAddress,
		Topics: []common.Hash{
			events.KindLifted.Signature(),
			common.BytesToHash(common.LeftPadBytes(testBridgeAddress.Bytes(), 32)),
			common.HexToHash("0xaa"),
		},
		Data:            data,
		TransactionHash: &hashCopy,
		BlockNumber:     &blockCopy,
	}
}

func Test_Initialize(t *testing.T) {
	logger := zap.NewNop()

	t.Run("Should resolve the author whose signing key is held locally", func(t *testing.T) {
		f := newFixture(t)
		require.NotNil(t, f.orch.CurrentNodeAuthor())
		assert.Equal(t, f.author.Address, f.orch.CurrentNodeAuthor().Address)
	})

	t.Run("Should keep retrying while the author is unregistered", func(t *testing.T) {
		sim := simulatedHostChain.NewSimulatedHostChain(logger)
		ims := inMemorySigner.NewInMemorySigner()

		orch := NewOrchestrator(
			sim, nil, &stubClientProvider{}, ims,
			partition.NewPartitionFactory(), events.NewEventRegistry(), nil, logger,
			WithIntervals(time.Millisecond, time.Millisecond),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := orch.Initialize(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Nil(t, orch.CurrentNodeAuthor())
	})
}

func Test_FindCurrentNodeAuthor(t *testing.T) {
	keyA := hostChain.AccountId{0x01}
	keyB := hostChain.AccountId{0x02}
	keyC := hostChain.AccountId{0x03}

	authors := []hostChain.Author{
		{Address: hostChain.AccountId{0xa1}, SigningKey: keyB},
		{Address: hostChain.AccountId{0xa2}, SigningKey: keyC},
	}

	t.Run("Should pick the first author in host order", func(t *testing.T) {
		found := findCurrentNodeAuthor(authors, []hostChain.AccountId{keyB, keyC})
		require.NotNil(t, found)
		assert.Equal(t, hostChain.AccountId{0xa1}, found.Address)
	})

	t.Run("Should return nil without an intersection", func(t *testing.T) {
		assert.Nil(t, findCurrentNodeAuthor(authors, []hostChain.AccountId{keyA}))
	})
}

func Test_LatestBlockVoting(t *testing.T) {
	ctx := context.Background()

	t.Run("Should vote the chain head when no range is active", func(t *testing.T) {
		f := newFixture(t)
		f.client.head = 1234

		f.orch.RunCycle(ctx)

		block, voted := f.sim.LatestBlockVote(testInstanceId, f.author.Address)
		require.True(t, voted)
		assert.Equal(t, uint64(1234), block)

		record, err := f.store.GetSubmission(ctx, testInstanceId, storage.SubmissionKindLatestBlock)
		require.NoError(t, err)
		assert.Equal(t, uint64(1234), record.BlockNumber)
	})

	t.Run("Should not vote twice", func(t *testing.T) {
		f := newFixture(t)
		f.client.head = 1234
		f.orch.RunCycle(ctx)

		f.client.head = 9999
		f.orch.RunCycle(ctx)

		block, voted := f.sim.LatestBlockVote(testInstanceId, f.author.Address)
		require.True(t, voted)
		assert.Equal(t, uint64(1234), block)
	})

	t.Run("Should skip the instance when no client can be acquired", func(t *testing.T) {
		f := newFixture(t)
		f.orch.clients = &stubClientProvider{err: errors.New("retry limit reached")}

		f.orch.RunCycle(ctx)

		_, voted := f.sim.LatestBlockVote(testInstanceId, f.author.Address)
		assert.False(t, voted)
	})
}

func Test_EventVoting(t *testing.T) {
	ctx := context.Background()
	activeRange := &hostChain.ActiveRange{
		Range:       hostChain.EthBlockRange{StartBlock: 100, EndBlock: 159},
		PartitionId: 0,
	}

	t.Run("Should wait for finality before voting", func(t *testing.T) {
		f := newFixture(t)
		f.sim.SetActiveRange(testInstanceId, activeRange)
		f.client.logs = []chainClient.ChainLog{liftedLog(common.HexToHash("0x01"), 105)}

		// Head one short of end + finality: not settled yet.
		f.client.head = activeRange.Range.EndBlock + config.EthFinality - 1
		f.orch.RunCycle(ctx)
		_, voted := f.sim.EventVote(testInstanceId, f.author.Address)
		assert.False(t, voted)

		// Boundary block reached: vote goes out.
		f.client.head = activeRange.Range.EndBlock + config.EthFinality
		f.orch.RunCycle(ctx)
		partitionVote, voted := f.sim.EventVote(testInstanceId, f.author.Address)
		require.True(t, voted)
		assert.Equal(t, activeRange.Range, partitionVote.Range)
		require.Len(t, partitionVote.Events, 1)
		assert.Equal(t, uint64(105), partitionVote.Events[0].Block)
	})

	t.Run("Should vote an empty partition when the range has no events", func(t *testing.T) {
		f := newFixture(t)
		f.sim.SetActiveRange(testInstanceId, activeRange)
		f.client.head = activeRange.Range.EndBlock + config.EthFinality

		f.orch.RunCycle(ctx)

		partitionVote, voted := f.sim.EventVote(testInstanceId, f.author.Address)
		require.True(t, voted)
		assert.Empty(t, partitionVote.Events)
	})

	t.Run("Should fail when the assigned partition does not exist", func(t *testing.T) {
		f := newFixture(t)
		f.sim.SetActiveRange(testInstanceId, &hostChain.ActiveRange{
			Range:       activeRange.Range,
			PartitionId: 5,
		})
		f.client.head = activeRange.Range.EndBlock + config.EthFinality

		f.orch.RunCycle(ctx)

		_, voted := f.sim.EventVote(testInstanceId, f.author.Address)
		assert.False(t, voted)
	})

	t.Run("Should journal the events vote", func(t *testing.T) {
		f := newFixture(t)
		f.sim.SetActiveRange(testInstanceId, activeRange)
		f.client.head = activeRange.Range.EndBlock + config.EthFinality
		f.client.logs = []chainClient.ChainLog{liftedLog(common.HexToHash("0x02"), 110)}

		f.orch.RunCycle(ctx)

		record, err := f.store.GetSubmission(ctx, testInstanceId, storage.SubmissionKindEventsVote)
		require.NoError(t, err)
		assert.Equal(t, uint16(0), record.PartitionId)
		assert.Equal(t, 1, record.EventCount)
		assert.Equal(t, activeRange.Range.StartBlock, record.StartBlock)
	})

	t.Run("Should not vote twice for the same range", func(t *testing.T) {
		f := newFixture(t)
		f.sim.SetActiveRange(testInstanceId, activeRange)
		f.client.head = activeRange.Range.EndBlock + config.EthFinality

		f.orch.RunCycle(ctx)
		first, voted := f.sim.EventVote(testInstanceId, f.author.Address)
		require.True(t, voted)

		f.client.logs = []chainClient.ChainLog{liftedLog(common.HexToHash("0x03"), 120)}
		f.orch.RunCycle(ctx)

		second, _ := f.sim.EventVote(testInstanceId, f.author.Address)
		assert.Equal(t, first, second)
	})
}

func Test_RunCycleIsolation(t *testing.T) {
	ctx := context.Background()

	t.Run("Should process healthy instances when another fails", func(t *testing.T) {
		f := newFixture(t)

		// A second instance on a chain no endpoint serves.
		f.sim.AddInstance(hostChain.InstanceId(2), hostChain.BridgeInstance{
			ChainId:        config.ChainId(999),
			BridgeContract: testBridgeAddress,
		})
		f.orch.clients = &stubClientProvider{client: f.client, errForChain: config.ChainId(999)}

		f.client.head = 321
		f.orch.RunCycle(ctx)

		block, voted := f.sim.LatestBlockVote(testInstanceId, f.author.Address)
		require.True(t, voted)
		assert.Equal(t, uint64(321), block)
	})
}
