package chainClient

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ChainLog is one raw log returned by the external chain. Transaction hash
// and block number are optional on the wire (pending logs omit them), so
// they stay pointers until discovery validates them.
type ChainLog struct {
	Address         common.Address
	Topics          []common.Hash
	Data            []byte
	TransactionHash *common.Hash
	BlockNumber     *uint64
}

// ChainReceipt carries the upstream receipt JSON untouched; only the block
// number is lifted out for confirmation counting.
type ChainReceipt struct {
	BlockNumber *uint64
	Json        []byte
}

// LogFilter selects logs in the inclusive block range [FromBlock, ToBlock].
// An empty address set matches any address. Each topic position is an
// OR-set; a nil entry leaves that position unconstrained.
type LogFilter struct {
	FromBlock uint64
	ToBlock   uint64
	Addresses []common.Address
	Topics    [4][]common.Hash
}

// AddressTopic right-aligns a 20-byte address into the low 20 bytes of a
// 32-byte topic value, the layout the EVM uses for indexed address
// parameters.
func AddressTopic(addr common.Address) common.Hash {
	var h common.Hash
	copy(h[12:], addr.Bytes())
	return h
}

// IChainClient is the capability surface over one external chain endpoint.
// Discovery and orchestration depend only on this interface so they can be
// exercised against fakes.
type IChainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	ChainId(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, filter LogFilter) ([]ChainLog, error)

	// GetReceipt and GetTransactionInput return nil without error when the
	// transaction is unknown to the endpoint.
	GetReceipt(ctx context.Context, txHash common.Hash) (*ChainReceipt, error)
	GetTransactionInput(ctx context.Context, txHash common.Hash) ([]byte, error)

	ReadCall(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error)

	Close()
}
