package simulatedHostChain

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
)

// SimulatedHostChain is an in-memory host chain used by tests and local
// simulation. Votes are recorded, never finalized; HasVoted reflects what
// this process submitted.
type SimulatedHostChain struct {
	mu sync.Mutex

	logger *zap.Logger

	instances              []hostChain.InstanceEntry
	activeRanges           map[hostChain.InstanceId]*hostChain.ActiveRange
	requestedSignatures    map[hostChain.InstanceId][]common.Hash
	additionalTransactions map[hostChain.InstanceId][]common.Hash
	authors                []hostChain.Author

	latestBlockVotes map[hostChain.InstanceId]map[hostChain.AccountId]uint64
	eventVotes       map[hostChain.InstanceId]map[hostChain.AccountId]*hostChain.EventsPartition
}

func NewSimulatedHostChain(logger *zap.Logger) *SimulatedHostChain {
	return &SimulatedHostChain{
		logger:                 logger,
		activeRanges:           make(map[hostChain.InstanceId]*hostChain.ActiveRange),
		requestedSignatures:    make(map[hostChain.InstanceId][]common.Hash),
		additionalTransactions: make(map[hostChain.InstanceId][]common.Hash),
		latestBlockVotes:       make(map[hostChain.InstanceId]map[hostChain.AccountId]uint64),
		eventVotes:             make(map[hostChain.InstanceId]map[hostChain.AccountId]*hostChain.EventsPartition),
	}
}

func (s *SimulatedHostChain) AddInstance(id hostChain.InstanceId, instance hostChain.BridgeInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances = append(s.instances, hostChain.InstanceEntry{Id: id, Instance: instance})
}

func (s *SimulatedHostChain) SetActiveRange(id hostChain.InstanceId, activeRange *hostChain.ActiveRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if activeRange == nil {
		delete(s.activeRanges, id)
		return
	}
	s.activeRanges[id] = activeRange
}

func (s *SimulatedHostChain) SetRequestedSignatures(id hostChain.InstanceId, signatures []common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestedSignatures[id] = signatures
}

func (s *SimulatedHostChain) SetAdditionalTransactions(id hostChain.InstanceId, txs []common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.additionalTransactions[id] = txs
}

func (s *SimulatedHostChain) SetAuthors(authors []hostChain.Author) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authors = authors
}

// LatestBlockVote returns the latest-block vote this process recorded for
// the author, if any.
func (s *SimulatedHostChain) LatestBlockVote(id hostChain.InstanceId, author hostChain.AccountId) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	block, ok := s.latestBlockVotes[id][author]
	return block, ok
}

func (s *SimulatedHostChain) EventVote(id hostChain.InstanceId, author hostChain.AccountId) (*hostChain.EventsPartition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	partition, ok := s.eventVotes[id][author]
	return partition, ok
}

func (s *SimulatedHostChain) ActiveRange(ctx context.Context, instanceId hostChain.InstanceId) (*hostChain.ActiveRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activeRange, ok := s.activeRanges[instanceId]
	if !ok {
		return nil, nil
	}
	rangeCopy := *activeRange
	return &rangeCopy, nil
}

func (s *SimulatedHostChain) Instances(ctx context.Context) ([]hostChain.InstanceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]hostChain.InstanceEntry, len(s.instances))
	copy(out, s.instances)
	return out, nil
}

func (s *SimulatedHostChain) RequestedSignatures(ctx context.Context, instanceId hostChain.InstanceId) ([]common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]common.Hash(nil), s.requestedSignatures[instanceId]...), nil
}

func (s *SimulatedHostChain) HasVoted(ctx context.Context, instanceId hostChain.InstanceId, author hostChain.AccountId) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activeRanges[instanceId]; ok {
		_, voted := s.eventVotes[instanceId][author]
		return voted, nil
	}
	_, voted := s.latestBlockVotes[instanceId][author]
	return voted, nil
}

func (s *SimulatedHostChain) AdditionalTransactions(ctx context.Context, instanceId hostChain.InstanceId) ([]common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]common.Hash(nil), s.additionalTransactions[instanceId]...), nil
}

func (s *SimulatedHostChain) AuthorSet(ctx context.Context) ([]hostChain.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]hostChain.Author, len(s.authors))
	copy(out, s.authors)
	return out, nil
}

func (s *SimulatedHostChain) SubmitLatestBlock(
	ctx context.Context,
	instanceId hostChain.InstanceId,
	author hostChain.AccountId,
	blockNumber uint64,
	signature []byte,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestBlockVotes[instanceId] == nil {
		s.latestBlockVotes[instanceId] = make(map[hostChain.AccountId]uint64)
	}
	s.latestBlockVotes[instanceId][author] = blockNumber

	s.logger.Sugar().Infow("Recorded latest-block vote",
		"instanceId", instanceId,
		"author", author.String(),
		"blockNumber", blockNumber,
	)
	return nil
}

func (s *SimulatedHostChain) SubmitVote(
	ctx context.Context,
	instanceId hostChain.InstanceId,
	author hostChain.AccountId,
	partition *hostChain.EventsPartition,
	signature []byte,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventVotes[instanceId] == nil {
		s.eventVotes[instanceId] = make(map[hostChain.AccountId]*hostChain.EventsPartition)
	}
	s.eventVotes[instanceId][author] = partition

	s.logger.Sugar().Infow("Recorded event-partition vote",
		"instanceId", instanceId,
		"author", author.String(),
		"partitionId", partition.PartitionId,
		"eventCount", len(partition.Events),
	)
	return nil
}
