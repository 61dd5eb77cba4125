package partition

import (
	"bytes"
	"sort"

	"github.com/sentinel-bridge/sentinel/pkg/config"
	"github.com/sentinel-bridge/sentinel/pkg/events"
	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
)

// IPartitionFactory splits a discovered-event set into the fixed-size
// partitions the host chain votes on.
type IPartitionFactory interface {
	CreatePartitions(blockRange hostChain.EthBlockRange, discovered []events.DiscoveredEvent) []hostChain.EventsPartition
}

type PartitionFactory struct{}

func NewPartitionFactory() *PartitionFactory {
	return &PartitionFactory{}
}

// CreatePartitions sorts events into a canonical order and chunks them into
// partitions of config.PartitionSize with sequential ids starting at 0. Every
// honest node observing the same event set must derive identical partitions,
// so ordering ties on block number break on transaction hash bytes. An empty
// event set still yields one empty partition so the range can be voted on.
func (f *PartitionFactory) CreatePartitions(
	blockRange hostChain.EthBlockRange,
	discovered []events.DiscoveredEvent,
) []hostChain.EventsPartition {
	sorted := make([]events.DiscoveredEvent, len(discovered))
	copy(sorted, discovered)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Block != sorted[j].Block {
			return sorted[i].Block < sorted[j].Block
		}
		return bytes.Compare(
			sorted[i].Event.EventId.TransactionHash.Bytes(),
			sorted[j].Event.EventId.TransactionHash.Bytes(),
		) < 0
	})

	partitionCount := (len(sorted) + config.PartitionSize - 1) / config.PartitionSize
	if partitionCount == 0 {
		partitionCount = 1
	}

	partitions := make([]hostChain.EventsPartition, 0, partitionCount)
	for i := 0; i < partitionCount; i++ {
		start := i * config.PartitionSize
		end := start + config.PartitionSize
		if end > len(sorted) {
			end = len(sorted)
		}
		partitions = append(partitions, hostChain.EventsPartition{
			PartitionId: uint16(i),
			Range:       blockRange,
			Events:      sorted[start:end],
		})
	}
	return partitions
}
