package events

import (
	"github.com/ethereum/go-ethereum/common"
)

// EthEventId uniquely identifies one observed bridge event.
type EthEventId struct {
	Signature       common.Hash
	TransactionHash common.Hash
}

type EthEvent struct {
	EventId   EthEventId
	EventData EventData
}

// DiscoveredEvent is one fully decoded event pinned to the external-chain
// block it occurred in. Discovery guarantees at most one DiscoveredEvent per
// transaction hash.
type DiscoveredEvent struct {
	Event EthEvent
	Block uint64
}
