package events

import (
	"github.com/ethereum/go-ethereum/common"
)

// EventInfo holds the stateless decoder for one event signature.
type EventInfo struct {
	Parse func(data []byte, topics []common.Hash) (EventData, error)
}

// EventRegistry maps event signatures to decoders. It is built once at
// process start and never mutated afterwards.
type EventRegistry struct {
	registry map[common.Hash]EventInfo
}

func NewEventRegistry() *EventRegistry {
	m := map[common.Hash]EventInfo{
		KindLifted.Signature(): {
			Parse: func(data []byte, topics []common.Hash) (EventData, error) {
				return parseLiftedData(data, topics, false)
			},
		},
		KindLiftedToPredictionMarket.Signature(): {
			Parse: func(data []byte, topics []common.Hash) (EventData, error) {
				return parseLiftedData(data, topics, true)
			},
		},
		KindAvtGrowthLifted.Signature():    {Parse: parseAvtGrowthLiftedData},
		KindAvtLowerClaimed.Signature():    {Parse: parseAvtLowerClaimedData},
		KindLowerReverted.Signature():      {Parse: parseLowerRevertedData},
		KindAddedValidator.Signature():     {Parse: parseAddedValidatorData},
		KindErc20DirectTransfer.Signature(): {Parse: parseErc20TransferData},
		KindNftMint.Signature():            {Parse: parseNftMintData},
		KindNftTransferTo.Signature():      {Parse: parseNftTransferToData},
		KindNftCancelListing.Signature():   {Parse: parseNftCancelListingData},
		KindNftEndBatchListing.Signature(): {Parse: parseNftEndBatchListingData},
	}

	return &EventRegistry{registry: m}
}

func (r *EventRegistry) GetEventInfo(signature common.Hash) (EventInfo, bool) {
	info, ok := r.registry[signature]
	return info, ok
}
