package hostChain

import (
	"context"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/sentinel-bridge/sentinel/pkg/config"
	"github.com/sentinel-bridge/sentinel/pkg/events"
)

// ErrGettingBridgeContract means the host chain could not report the bridge
// instance's contract details.
var ErrGettingBridgeContract = errors.New("error getting bridge contract")

// InstanceId identifies one configured bridge instance on the host chain.
type InstanceId uint32

// AccountId is a host-chain account, a 32-byte public key.
type AccountId [32]byte

func (a AccountId) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Author pairs a node's on-chain identity address with its block-signing
// key. The two differ: votes are attributed to the address but signed with
// the signing key.
type Author struct {
	Address    AccountId
	SigningKey AccountId
}

// BridgeInstance is one external-chain/contract pairing this node mirrors.
type BridgeInstance struct {
	ChainId        config.ChainId
	BridgeContract common.Address
	Description    string
}

// EthBlockRange is the bounded window currently open for voting, inclusive
// on both ends.
type EthBlockRange struct {
	StartBlock uint64
	EndBlock   uint64
}

// ActiveRange couples the open voting window with the partition id assigned
// for it.
type ActiveRange struct {
	Range       EthBlockRange
	PartitionId uint16
}

// EventsPartition is a host-chain-sized batch of discovered events with a
// stable id, the payload of one event vote.
type EventsPartition struct {
	PartitionId uint16
	Range       EthBlockRange
	Events      []events.DiscoveredEvent
}

// InstanceEntry is one (id, descriptor) pair reported by the host chain.
type InstanceEntry struct {
	Id       InstanceId
	Instance BridgeInstance
}

// IQueryClient is the host chain's storage/consensus read surface. The host
// chain is the durable source of truth; the oracle re-reads it every cycle
// instead of persisting its own state machine.
type IQueryClient interface {
	// ActiveRange returns nil when no range is open for the instance.
	ActiveRange(ctx context.Context, instanceId InstanceId) (*ActiveRange, error)
	Instances(ctx context.Context) ([]InstanceEntry, error)
	RequestedSignatures(ctx context.Context, instanceId InstanceId) ([]common.Hash, error)
	HasVoted(ctx context.Context, instanceId InstanceId, author AccountId) (bool, error)
	AdditionalTransactions(ctx context.Context, instanceId InstanceId) ([]common.Hash, error)
	AuthorSet(ctx context.Context) ([]Author, error)
}

// ICommandClient is the host chain's transaction-submission surface.
// Submissions enter the host chain's pool; vote finalization is the host
// consensus layer's business, not ours.
type ICommandClient interface {
	SubmitLatestBlock(ctx context.Context, instanceId InstanceId, author AccountId, blockNumber uint64, signature []byte) error
	SubmitVote(ctx context.Context, instanceId InstanceId, author AccountId, partition *EventsPartition, signature []byte) error
}
