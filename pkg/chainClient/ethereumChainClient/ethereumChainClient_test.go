package ethereumChainClient

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-bridge/sentinel/pkg/chainClient"
)

func Test_ToFilterQuery(t *testing.T) {
	t.Run("Should carry the block range and addresses", func(t *testing.T) {
		filter := chainClient.LogFilter{
			FromBlock: 100,
			ToBlock:   200,
			Addresses: []common.Address{common.HexToAddress("0x01")},
		}

		query := toFilterQuery(filter)
		assert.Equal(t, big.NewInt(100), query.FromBlock)
		assert.Equal(t, big.NewInt(200), query.ToBlock)
		assert.Equal(t, filter.Addresses, query.Addresses)
		assert.Nil(t, query.Topics)
	})

	t.Run("Should drop trailing unconstrained topic positions", func(t *testing.T) {
		filter := chainClient.LogFilter{}
		filter.Topics[0] = []common.Hash{common.HexToHash("0xaa")}

		query := toFilterQuery(filter)
		require.Len(t, query.Topics, 1)
		assert.Equal(t, filter.Topics[0], query.Topics[0])
	})

	t.Run("Should keep nil wildcards before a constrained position", func(t *testing.T) {
		filter := chainClient.LogFilter{}
		filter.Topics[0] = []common.Hash{common.HexToHash("0xaa")}
		filter.Topics[2] = []common.Hash{common.HexToHash("0xbb")}

		query := toFilterQuery(filter)
		require.Len(t, query.Topics, 3)
		assert.Nil(t, query.Topics[1])
		assert.Equal(t, filter.Topics[2], query.Topics[2])
	})
}

func Test_ConvertLog(t *testing.T) {
	t.Run("Should keep transaction hash and block number of a mined log", func(t *testing.T) {
		lg := types.Log{
			Address:     common.HexToAddress("0x01"),
			Topics:      []common.Hash{common.HexToHash("0xaa")},
			Data:        []byte{0x01},
			TxHash:      common.HexToHash("0x02"),
			BlockHash:   common.HexToHash("0x03"),
			BlockNumber: 42,
		}

		out := convertLog(lg)
		require.NotNil(t, out.TransactionHash)
		assert.Equal(t, lg.TxHash, *out.TransactionHash)
		require.NotNil(t, out.BlockNumber)
		assert.Equal(t, uint64(42), *out.BlockNumber)
	})

	t.Run("Should leave the block number unset for a pending log", func(t *testing.T) {
		lg := types.Log{
			Address: common.HexToAddress("0x01"),
			TxHash:  common.HexToHash("0x02"),
		}

		out := convertLog(lg)
		require.NotNil(t, out.TransactionHash)
		assert.Nil(t, out.BlockNumber)
	})

	t.Run("Should leave the transaction hash unset when missing", func(t *testing.T) {
		out := convertLog(types.Log{Address: common.HexToAddress("0x01")})
		assert.Nil(t, out.TransactionHash)
	})
}

func Test_AddGasBuffer(t *testing.T) {
	assert.Equal(t, uint64(120_000), addGasBuffer(100_000))
	assert.Equal(t, uint64(0), addGasBuffer(0))
}
