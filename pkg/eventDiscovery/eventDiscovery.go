package eventDiscovery

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sentinel-bridge/sentinel/pkg/chainClient"
	"github.com/sentinel-bridge/sentinel/pkg/events"
)

var (
	// ErrGettingEventLogs means the external chain rejected or failed a log
	// query.
	ErrGettingEventLogs = errors.New("error getting event logs")

	ErrMissingEventSignature  = errors.New("log has no event signature topic")
	ErrMissingTransactionHash = errors.New("log has no transaction hash")
	ErrMissingBlockNumber     = errors.New("log has no block number")
)

// IdentifyPrimaryBridgeEvents queries the bridge contract addresses for all
// primary event signatures in [startBlock, endBlock].
func IdentifyPrimaryBridgeEvents(
	ctx context.Context,
	client chainClient.IChainClient,
	startBlock uint64,
	endBlock uint64,
	bridgeContractAddresses []common.Address,
	eventKinds []events.EventKind,
) ([]chainClient.ChainLog, error) {
	filter := chainClient.LogFilter{
		FromBlock: startBlock,
		ToBlock:   endBlock,
		Addresses: bridgeContractAddresses,
	}
	filter.Topics[0] = events.Signatures(eventKinds)

	logs, err := client.GetLogs(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(ErrGettingEventLogs, err.Error())
	}
	return logs, nil
}

// IdentifySecondaryBridgeEvents queries any address for secondary event
// signatures, constrained to logs whose third topic carries one of the
// bridge contract addresses (right-aligned into the 32-byte topic value).
func IdentifySecondaryBridgeEvents(
	ctx context.Context,
	client chainClient.IChainClient,
	startBlock uint64,
	endBlock uint64,
	bridgeContractAddresses []common.Address,
	eventKinds []events.EventKind,
) ([]chainClient.ChainLog, error) {
	addressTopics := make([]common.Hash, 0, len(bridgeContractAddresses))
	for _, addr := range bridgeContractAddresses {
		addressTopics = append(addressTopics, chainClient.AddressTopic(addr))
	}

	filter := chainClient.LogFilter{
		FromBlock: startBlock,
		ToBlock:   endBlock,
	}
	filter.Topics[0] = events.Signatures(eventKinds)
	filter.Topics[2] = addressTopics

	logs, err := client.GetLogs(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(ErrGettingEventLogs, err.Error())
	}
	return logs, nil
}

// IdentifyEvents discovers the canonical event set for a block range.
//
// All primary signatures are always queried against the bridge contract, not
// just the requested subset, so a primary event can never be shadowed by a
// coincidentally matching secondary pattern. Secondary discovery runs only
// when the requested set contains a secondary signature. Results merge
// primary-first with one event kept per transaction hash, then the merged
// set is filtered down to the requested signatures.
func IdentifyEvents(
	ctx context.Context,
	client chainClient.IChainClient,
	startBlock uint64,
	endBlock uint64,
	contractAddresses []common.Address,
	eventSignaturesToFind []common.Hash,
	eventsRegistry *events.EventRegistry,
) ([]events.DiscoveredEvent, error) {
	extendToSecondary := false
	for _, sig := range eventSignaturesToFind {
		if kind, ok := events.KindForSignature(sig); ok && !kind.IsPrimary() {
			extendToSecondary = true
			break
		}
	}

	var primaryLogs, secondaryLogs []chainClient.ChainLog

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logs, err := IdentifyPrimaryBridgeEvents(
			gctx, client, startBlock, endBlock, contractAddresses, events.PrimaryEventKinds())
		if err != nil {
			return err
		}
		primaryLogs = logs
		return nil
	})
	if extendToSecondary {
		g.Go(func() error {
			logs, err := IdentifySecondaryBridgeEvents(
				gctx, client, startBlock, endBlock, contractAddresses, events.SecondaryEventKinds())
			if err != nil {
				return err
			}
			secondaryLogs = logs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Primary results are concatenated first, so for a transaction hash
	// matched by both queries the primary event wins regardless of arrival
	// order.
	seen := make(map[common.Hash]struct{})
	discovered := make([]events.DiscoveredEvent, 0, len(primaryLogs)+len(secondaryLogs))
	for _, lg := range append(primaryLogs, secondaryLogs...) {
		if lg.TransactionHash == nil {
			continue
		}
		if _, ok := seen[*lg.TransactionHash]; ok {
			continue
		}
		event, err := parseLog(lg, eventsRegistry)
		if err != nil {
			return nil, err
		}
		seen[*lg.TransactionHash] = struct{}{}
		discovered = append(discovered, event)
	}

	wanted := make(map[common.Hash]struct{}, len(eventSignaturesToFind))
	for _, sig := range eventSignaturesToFind {
		wanted[sig] = struct{}{}
	}

	filtered := discovered[:0]
	for _, event := range discovered {
		if _, ok := wanted[event.Event.EventId.Signature]; ok {
			filtered = append(filtered, event)
		}
	}
	return filtered, nil
}

// IdentifyAdditionalEventInfo resolves host-supplied transaction ids to the
// blocks they landed in. Receipts are fetched concurrently; transactions
// without a receipt (or without a block number yet) are skipped.
func IdentifyAdditionalEventInfo(
	ctx context.Context,
	client chainClient.IChainClient,
	additionalTransactionsToCheck []common.Hash,
) ([]uint64, error) {
	receipts := make([]*chainClient.ChainReceipt, len(additionalTransactionsToCheck))

	g, gctx := errgroup.WithContext(ctx)
	for i, txHash := range additionalTransactionsToCheck {
		g.Go(func() error {
			receipt, err := client.GetReceipt(gctx, txHash)
			if err != nil {
				return errors.Wrap(ErrGettingEventLogs, err.Error())
			}
			receipts[i] = receipt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	blocks := make([]uint64, 0, len(receipts))
	for _, receipt := range receipts {
		if receipt == nil || receipt.BlockNumber == nil {
			continue
		}
		blocks = append(blocks, *receipt.BlockNumber)
	}
	return blocks, nil
}

// IdentifyAdditionalEvents re-runs discovery for the single-block ranges the
// host-supplied transactions landed in. This recovers events whose voting
// was deferred, independent of the currently active range.
func IdentifyAdditionalEvents(
	ctx context.Context,
	client chainClient.IChainClient,
	contractAddresses []common.Address,
	eventSignaturesToFind []common.Hash,
	eventsRegistry *events.EventRegistry,
	additionalTransactionsToCheck []common.Hash,
) ([]events.DiscoveredEvent, error) {
	additionalBlocks, err := IdentifyAdditionalEventInfo(ctx, client, additionalTransactionsToCheck)
	if err != nil {
		return nil, err
	}

	perBlock := make([][]events.DiscoveredEvent, len(additionalBlocks))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, block := range additionalBlocks {
		g.Go(func() error {
			discovered, err := IdentifyEvents(
				gctx, client, block, block, contractAddresses, eventSignaturesToFind, eventsRegistry)
			if err != nil {
				return err
			}
			mu.Lock()
			perBlock[i] = discovered
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var additionalEvents []events.DiscoveredEvent
	for _, discovered := range perBlock {
		additionalEvents = append(additionalEvents, discovered...)
	}
	return additionalEvents, nil
}

// parseLog validates and decodes one raw log. A direct-transfer event whose
// token contract decoded to the zero address takes the emitting contract
// address instead; the token standard does not embed its own address in the
// event data.
func parseLog(lg chainClient.ChainLog, eventsRegistry *events.EventRegistry) (events.DiscoveredEvent, error) {
	if len(lg.Topics) == 0 {
		return events.DiscoveredEvent{}, ErrMissingEventSignature
	}
	if lg.TransactionHash == nil {
		return events.DiscoveredEvent{}, ErrMissingTransactionHash
	}
	if lg.BlockNumber == nil {
		return events.DiscoveredEvent{}, ErrMissingBlockNumber
	}

	signature := lg.Topics[0]
	info, ok := eventsRegistry.GetEventInfo(signature)
	if !ok {
		return events.DiscoveredEvent{}, events.ErrParsingEventLogs
	}

	eventData, err := info.Parse(lg.Data, lg.Topics)
	if err != nil {
		return events.DiscoveredEvent{}, err
	}

	if transfer, ok := eventData.(*events.Erc20TransferData); ok {
		if transfer.TokenContract == (common.Address{}) {
			transfer.TokenContract = lg.Address
		}
	}

	return events.DiscoveredEvent{
		Event: events.EthEvent{
			EventId: events.EthEventId{
				Signature:       signature,
				TransactionHash: *lg.TransactionHash,
			},
			EventData: eventData,
		},
		Block: *lg.BlockNumber,
	}, nil
}
