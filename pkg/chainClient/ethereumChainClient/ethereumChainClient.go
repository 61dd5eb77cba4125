package ethereumChainClient

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sentinel-bridge/sentinel/pkg/chainClient"
)

// fallbackGasTipCap is used when the endpoint does not support
// eth_maxPriorityFeePerGas.
var fallbackGasTipCap = big.NewInt(15000000000)

// EthereumChainClient implements chainClient.IChainClient over a single
// JSON-RPC endpoint. A signing key is optional; without one the client is
// read-only and SendTransaction fails.
type EthereumChainClient struct {
	rpcClient  *rpc.Client
	ethClient  *ethclient.Client
	privateKey *ecdsa.PrivateKey
	logger     *zap.Logger
}

// NewEthereumChainClient dials the endpoint. A malformed URL fails here,
// before any request is issued.
func NewEthereumChainClient(ctx context.Context, rpcURL string, logger *zap.Logger) (*EthereumChainClient, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial rpc endpoint %s", rpcURL)
	}

	return &EthereumChainClient{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		logger:    logger,
	}, nil
}

// NewSigningEthereumChainClient dials the endpoint and attaches an ECDSA
// signing key so SendTransaction can be used.
func NewSigningEthereumChainClient(ctx context.Context, rpcURL string, privateKeyHex string, logger *zap.Logger) (*EthereumChainClient, error) {
	client, err := NewEthereumChainClient(ctx, rpcURL, logger)
	if err != nil {
		return nil, err
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to parse signing key")
	}
	client.privateKey = privateKey
	return client, nil
}

func (ecc *EthereumChainClient) Close() {
	if ecc.rpcClient != nil {
		ecc.rpcClient.Close()
	}
}

func (ecc *EthereumChainClient) BlockNumber(ctx context.Context) (uint64, error) {
	return ecc.ethClient.BlockNumber(ctx)
}

func (ecc *EthereumChainClient) ChainId(ctx context.Context) (uint64, error) {
	id, err := ecc.ethClient.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

func (ecc *EthereumChainClient) GetLogs(ctx context.Context, filter chainClient.LogFilter) ([]chainClient.ChainLog, error) {
	logs, err := ecc.ethClient.FilterLogs(ctx, toFilterQuery(filter))
	if err != nil {
		return nil, err
	}

	out := make([]chainClient.ChainLog, 0, len(logs))
	for _, lg := range logs {
		out = append(out, convertLog(lg))
	}
	return out, nil
}

// rawReceipt captures just the block number out of the receipt object; the
// rest of the payload is kept verbatim for callers that want the full JSON.
type rawReceipt struct {
	BlockNumber *hexutil.Uint64 `json:"blockNumber"`
}

func (ecc *EthereumChainClient) GetReceipt(ctx context.Context, txHash common.Hash) (*chainClient.ChainReceipt, error) {
	var raw json.RawMessage
	if err := ecc.rpcClient.CallContext(ctx, &raw, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var receipt rawReceipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, errors.Wrap(err, "failed to decode transaction receipt")
	}

	var blockNumber *uint64
	if receipt.BlockNumber != nil {
		n := uint64(*receipt.BlockNumber)
		blockNumber = &n
	}

	return &chainClient.ChainReceipt{
		BlockNumber: blockNumber,
		Json:        raw,
	}, nil
}

func (ecc *EthereumChainClient) GetTransactionInput(ctx context.Context, txHash common.Hash) ([]byte, error) {
	tx, _, err := ecc.ethClient.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, err
	}
	return tx.Data(), nil
}

func (ecc *EthereumChainClient) ReadCall(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return ecc.ethClient.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
}

// SendTransaction signs and broadcasts a zero-value transaction carrying the
// given calldata. Gas settings follow the EIP-1559 path: suggested tip cap
// with a fixed fallback, base fee overestimated by 3/2, and a 20% buffer on
// the estimated gas limit to absorb network variability.
func (ecc *EthereumChainClient) SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	if ecc.privateKey == nil {
		return common.Hash{}, errors.New("client has no signing key configured")
	}

	fromAddress := crypto.PubkeyToAddress(ecc.privateKey.PublicKey)

	chainId, err := ecc.ethClient.ChainID(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to get chain id")
	}

	gasTipCap, err := ecc.ethClient.SuggestGasTipCap(ctx)
	if err != nil {
		ecc.logger.Sugar().Debugw("SendTransaction: cannot get gasTipCap", "error", err.Error())
		gasTipCap = fallbackGasTipCap
	}

	header, err := ecc.ethClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to get latest header")
	}
	overestimatedBasefee := new(big.Int).Div(new(big.Int).Mul(header.BaseFee, big.NewInt(3)), big.NewInt(2))
	gasFeeCap := new(big.Int).Add(overestimatedBasefee, gasTipCap)

	gasLimit, err := ecc.ethClient.EstimateGas(ctx, ethereum.CallMsg{
		From:      fromAddress,
		To:        &to,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Data:      data,
	})
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to estimate gas")
	}

	nonce, err := ecc.ethClient.PendingNonceAt(ctx, fromAddress)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to get pending nonce")
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainId,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       addGasBuffer(gasLimit),
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(chainId), ecc.privateKey)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to sign transaction")
	}

	if err := ecc.ethClient.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to send transaction")
	}

	ecc.logger.Sugar().Infow("Sent transaction",
		zap.String("txHash", signedTx.Hash().Hex()),
		zap.String("to", to.Hex()),
	)
	return signedTx.Hash(), nil
}

func toFilterQuery(filter chainClient.LogFilter) ethereum.FilterQuery {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(filter.FromBlock),
		ToBlock:   new(big.Int).SetUint64(filter.ToBlock),
		Addresses: filter.Addresses,
	}

	// Trailing unconstrained positions are dropped entirely; a nil entry in
	// the middle keeps that position as a wildcard.
	lastConstrained := -1
	for i, topicSet := range filter.Topics {
		if len(topicSet) > 0 {
			lastConstrained = i
		}
	}
	if lastConstrained >= 0 {
		query.Topics = make([][]common.Hash, lastConstrained+1)
		for i := 0; i <= lastConstrained; i++ {
			query.Topics[i] = filter.Topics[i]
		}
	}
	return query
}

func convertLog(lg types.Log) chainClient.ChainLog {
	out := chainClient.ChainLog{
		Address: lg.Address,
		Topics:  lg.Topics,
		Data:    lg.Data,
	}
	if lg.TxHash != (common.Hash{}) {
		txHash := lg.TxHash
		out.TransactionHash = &txHash
	}
	// Pending logs carry no block hash; leave the block number unset for them.
	if lg.BlockHash != (common.Hash{}) {
		blockNumber := lg.BlockNumber
		out.BlockNumber = &blockNumber
	}
	return out
}

func addGasBuffer(gasLimit uint64) uint64 {
	return 6 * gasLimit / 5
}
