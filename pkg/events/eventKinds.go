package events

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EventKind enumerates the bridge events the oracle knows how to decode.
type EventKind string

const (
	KindLifted                   EventKind = "Lifted"
	KindLiftedToPredictionMarket EventKind = "LiftedToPredictionMarket"
	KindAvtGrowthLifted          EventKind = "AvtGrowthLifted"
	KindAvtLowerClaimed          EventKind = "AvtLowerClaimed"
	KindLowerReverted            EventKind = "LowerReverted"
	KindAddedValidator           EventKind = "AddedValidator"
	KindErc20DirectTransfer      EventKind = "Erc20DirectTransfer"
	KindNftMint                  EventKind = "NftMint"
	KindNftTransferTo            EventKind = "NftTransferTo"
	KindNftCancelListing         EventKind = "NftCancelListing"
	KindNftEndBatchListing       EventKind = "NftEndBatchListing"
)

// Canonical Solidity declarations. Signatures are the keccak256 of these,
// computed once at package init.
var eventDeclarations = map[EventKind]string{
	KindLifted:                   "LogLifted(address,bytes32,uint256)",
	KindLiftedToPredictionMarket: "LogLiftedToPredictionMarket(address,bytes32,uint256)",
	KindAvtGrowthLifted:          "LogGrowth(uint256,uint32)",
	KindAvtLowerClaimed:          "LogLowerClaimed(uint32)",
	KindLowerReverted:            "LogLowerReverted(address,bytes32,uint256,uint32)",
	KindAddedValidator:           "LogValidatorRegistered(bytes32,bytes32,uint256)",
	KindErc20DirectTransfer:      "Transfer(address,address,uint256)",
	KindNftMint:                  "LogNftMinted(uint256,bytes32)",
	KindNftTransferTo:            "LogNftTransferTo(uint256,bytes32,uint64)",
	KindNftCancelListing:         "LogNftCancelListing(uint256,uint64)",
	KindNftEndBatchListing:       "LogNftEndBatchListing(uint256)",
}

var (
	signatureByKind = make(map[EventKind]common.Hash, len(eventDeclarations))
	kindBySignature = make(map[common.Hash]EventKind, len(eventDeclarations))
)

func init() {
	for kind, declaration := range eventDeclarations {
		sig := crypto.Keccak256Hash([]byte(declaration))
		signatureByKind[kind] = sig
		kindBySignature[sig] = kind
	}
}

// AllEventKinds returns every known kind in a stable order.
func AllEventKinds() []EventKind {
	return []EventKind{
		KindLifted,
		KindLiftedToPredictionMarket,
		KindAvtGrowthLifted,
		KindAvtLowerClaimed,
		KindLowerReverted,
		KindAddedValidator,
		KindErc20DirectTransfer,
		KindNftMint,
		KindNftTransferTo,
		KindNftCancelListing,
		KindNftEndBatchListing,
	}
}

// PrimaryEventKinds returns the kinds emitted directly by the bridge
// contract.
func PrimaryEventKinds() []EventKind {
	kinds := make([]EventKind, 0, len(eventDeclarations))
	for _, kind := range AllEventKinds() {
		if kind.IsPrimary() {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// SecondaryEventKinds returns the kinds emitted by arbitrary contracts,
// identified only by signature plus an address topic.
func SecondaryEventKinds() []EventKind {
	kinds := make([]EventKind, 0, len(eventDeclarations))
	for _, kind := range AllEventKinds() {
		if !kind.IsPrimary() {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func (k EventKind) Signature() common.Hash {
	return signatureByKind[k]
}

// IsPrimary reports whether the event is emitted on the bridge contract
// itself. A direct ERC-20 transfer fires on the token contract, so it is the
// one secondary kind.
func (k EventKind) IsPrimary() bool {
	return k != KindErc20DirectTransfer
}

func KindForSignature(sig common.Hash) (EventKind, bool) {
	kind, ok := kindBySignature[sig]
	return kind, ok
}

// Signatures maps the given kinds to their event signatures.
func Signatures(kinds []EventKind) []common.Hash {
	sigs := make([]common.Hash, 0, len(kinds))
	for _, kind := range kinds {
		sigs = append(sigs, kind.Signature())
	}
	return sigs
}
