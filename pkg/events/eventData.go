package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ErrParsingEventLogs covers both unknown signatures and malformed event
// payloads.
var ErrParsingEventLogs = errors.New("error parsing event logs")

// EventData is the decoded payload of one bridge event.
type EventData interface {
	Kind() EventKind
}

// LiftedData describes tokens locked on the external chain for crediting on
// the host chain. Direct ERC-20 transfers decode into the same shape with
// the token contract left zero until discovery repairs it from the emitting
// address.
type LiftedData struct {
	TokenContract      common.Address
	SenderAddress      common.Address
	ReceiverKey        [32]byte
	Amount             *big.Int
	ToPredictionMarket bool
}

func (d *LiftedData) Kind() EventKind {
	if d.ToPredictionMarket {
		return KindLiftedToPredictionMarket
	}
	return KindLifted
}

// Erc20TransferData is a lift expressed as a bare ERC-20 Transfer into the
// bridge contract.
type Erc20TransferData struct {
	LiftedData
}

func (d *Erc20TransferData) Kind() EventKind { return KindErc20DirectTransfer }

type AvtGrowthLiftedData struct {
	Amount *big.Int
	Period uint32
}

func (d *AvtGrowthLiftedData) Kind() EventKind { return KindAvtGrowthLifted }

type AvtLowerClaimedData struct {
	LowerId uint32
}

func (d *AvtLowerClaimedData) Kind() EventKind { return KindAvtLowerClaimed }

type LowerRevertedData struct {
	TokenContract common.Address
	ReceiverKey   [32]byte
	Amount        *big.Int
	LowerId       uint32
}

func (d *LowerRevertedData) Kind() EventKind { return KindLowerReverted }

type AddedValidatorData struct {
	ValidatorKey [32]byte
	AccountKey   [32]byte
	Deposit      *big.Int
}

func (d *AddedValidatorData) Kind() EventKind { return KindAddedValidator }

type NftMintData struct {
	NftId    *big.Int
	OwnerKey [32]byte
}

func (d *NftMintData) Kind() EventKind { return KindNftMint }

type NftTransferToData struct {
	NftId         *big.Int
	NewOwnerKey   [32]byte
	TransferNonce uint64
}

func (d *NftTransferToData) Kind() EventKind { return KindNftTransferTo }

type NftCancelListingData struct {
	NftId *big.Int
	OpId  uint64
}

func (d *NftCancelListingData) Kind() EventKind { return KindNftCancelListing }

type NftEndBatchListingData struct {
	BatchId *big.Int
}

func (d *NftEndBatchListingData) Kind() EventKind { return KindNftEndBatchListing }

const wordSize = 32

// word extracts the n-th 32-byte word of the data section.
func word(data []byte, n int) ([]byte, error) {
	if len(data) < (n+1)*wordSize {
		return nil, errors.Wrapf(ErrParsingEventLogs, "event data too short: want word %d, have %d bytes", n, len(data))
	}
	return data[n*wordSize : (n+1)*wordSize], nil
}

func wordAsBig(data []byte, n int) (*big.Int, error) {
	w, err := word(data, n)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(w), nil
}

func wordAsUint32(data []byte, n int) (uint32, error) {
	v, err := wordAsBig(data, n)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() || v.Uint64() > 0xffffffff {
		return 0, errors.Wrapf(ErrParsingEventLogs, "event word %d out of uint32 range", n)
	}
	return uint32(v.Uint64()), nil
}

func wordAsUint64(data []byte, n int) (uint64, error) {
	v, err := wordAsBig(data, n)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errors.Wrapf(ErrParsingEventLogs, "event word %d out of uint64 range", n)
	}
	return v.Uint64(), nil
}

func wordAsKey(data []byte, n int) ([32]byte, error) {
	var key [32]byte
	w, err := word(data, n)
	if err != nil {
		return key, err
	}
	copy(key[:], w)
	return key, nil
}

// topicAddress reads an address embedded in a topic: right-aligned in the
// low 20 bytes, high 12 bytes zero.
func topicAddress(topic common.Hash) common.Address {
	return common.BytesToAddress(topic[12:])
}

func requireTopics(topics []common.Hash, want int) error {
	if len(topics) != want {
		return errors.Wrapf(ErrParsingEventLogs, "expected %d topics, got %d", want, len(topics))
	}
	return nil
}

func parseLiftedData(data []byte, topics []common.Hash, toPredictionMarket bool) (EventData, error) {
	if err := requireTopics(topics, 3); err != nil {
		return nil, err
	}
	amount, err := wordAsBig(data, 0)
	if err != nil {
		return nil, err
	}
	return &LiftedData{
		TokenContract:      topicAddress(topics[1]),
		ReceiverKey:        topics[2],
		Amount:             amount,
		ToPredictionMarket: toPredictionMarket,
	}, nil
}

func parseErc20TransferData(data []byte, topics []common.Hash) (EventData, error) {
	if err := requireTopics(topics, 3); err != nil {
		return nil, err
	}
	amount, err := wordAsBig(data, 0)
	if err != nil {
		return nil, err
	}
	// The token standard does not include its own address in the event; the
	// token contract stays zero here and is repaired from the log address
	// during discovery.
	return &Erc20TransferData{LiftedData: LiftedData{
		SenderAddress: topicAddress(topics[1]),
		Amount:        amount,
	}}, nil
}

func parseAvtGrowthLiftedData(data []byte, topics []common.Hash) (EventData, error) {
	if err := requireTopics(topics, 1); err != nil {
		return nil, err
	}
	amount, err := wordAsBig(data, 0)
	if err != nil {
		return nil, err
	}
	period, err := wordAsUint32(data, 1)
	if err != nil {
		return nil, err
	}
	return &AvtGrowthLiftedData{Amount: amount, Period: period}, nil
}

func parseAvtLowerClaimedData(data []byte, topics []common.Hash) (EventData, error) {
	if err := requireTopics(topics, 1); err != nil {
		return nil, err
	}
	lowerId, err := wordAsUint32(data, 0)
	if err != nil {
		return nil, err
	}
	return &AvtLowerClaimedData{LowerId: lowerId}, nil
}

func parseLowerRevertedData(data []byte, topics []common.Hash) (EventData, error) {
	if err := requireTopics(topics, 3); err != nil {
		return nil, err
	}
	amount, err := wordAsBig(data, 0)
	if err != nil {
		return nil, err
	}
	lowerId, err := wordAsUint32(data, 1)
	if err != nil {
		return nil, err
	}
	return &LowerRevertedData{
		TokenContract: topicAddress(topics[1]),
		ReceiverKey:   topics[2],
		Amount:        amount,
		LowerId:       lowerId,
	}, nil
}

func parseAddedValidatorData(data []byte, topics []common.Hash) (EventData, error) {
	if err := requireTopics(topics, 2); err != nil {
		return nil, err
	}
	accountKey, err := wordAsKey(data, 0)
	if err != nil {
		return nil, err
	}
	deposit, err := wordAsBig(data, 1)
	if err != nil {
		return nil, err
	}
	return &AddedValidatorData{
		ValidatorKey: topics[1],
		AccountKey:   accountKey,
		Deposit:      deposit,
	}, nil
}

func parseNftMintData(data []byte, topics []common.Hash) (EventData, error) {
	if err := requireTopics(topics, 2); err != nil {
		return nil, err
	}
	ownerKey, err := wordAsKey(data, 0)
	if err != nil {
		return nil, err
	}
	return &NftMintData{
		NftId:    new(big.Int).SetBytes(topics[1][:]),
		OwnerKey: ownerKey,
	}, nil
}

func parseNftTransferToData(data []byte, topics []common.Hash) (EventData, error) {
	if err := requireTopics(topics, 2); err != nil {
		return nil, err
	}
	newOwnerKey, err := wordAsKey(data, 0)
	if err != nil {
		return nil, err
	}
	transferNonce, err := wordAsUint64(data, 1)
	if err != nil {
		return nil, err
	}
	return &NftTransferToData{
		NftId:         new(big.Int).SetBytes(topics[1][:]),
		NewOwnerKey:   newOwnerKey,
		TransferNonce: transferNonce,
	}, nil
}

func parseNftCancelListingData(data []byte, topics []common.Hash) (EventData, error) {
	if err := requireTopics(topics, 2); err != nil {
		return nil, err
	}
	opId, err := wordAsUint64(data, 0)
	if err != nil {
		return nil, err
	}
	return &NftCancelListingData{
		NftId: new(big.Int).SetBytes(topics[1][:]),
		OpId:  opId,
	}, nil
}

func parseNftEndBatchListingData(data []byte, topics []common.Hash) (EventData, error) {
	if err := requireTopics(topics, 2); err != nil {
		return nil, err
	}
	return &NftEndBatchListingData{
		BatchId: new(big.Int).SetBytes(topics[1][:]),
	}, nil
}
