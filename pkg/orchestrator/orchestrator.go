package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sentinel-bridge/sentinel/pkg/chainClient"
	"github.com/sentinel-bridge/sentinel/pkg/config"
	"github.com/sentinel-bridge/sentinel/pkg/eventDiscovery"
	"github.com/sentinel-bridge/sentinel/pkg/events"
	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
	"github.com/sentinel-bridge/sentinel/pkg/orchestrator/storage"
	"github.com/sentinel-bridge/sentinel/pkg/partition"
	"github.com/sentinel-bridge/sentinel/pkg/signer"
)

var (
	// ErrAuthorNotFound means none of the keystore signing keys appears in
	// the host chain's author set.
	ErrAuthorNotFound = errors.New("node author not found in host author set")

	// ErrPartitionNotFound means the host-assigned partition id does not
	// exist in the locally derived partition set.
	ErrPartitionNotFound = errors.New("assigned partition not found")
)

// IClientProvider hands out chain clients by chain id. Satisfied by
// clientPool.ClientPool; faked in tests.
type IClientProvider interface {
	GetClientWithRetry(ctx context.Context, chainId config.ChainId) (chainClient.IChainClient, error)
}

// IProofSubmitter signs and submits votes. Satisfied by
// proofSubmitter.ProofSubmitter; faked in tests.
type IProofSubmitter interface {
	SubmitLatestBlock(ctx context.Context, instanceId hostChain.InstanceId, instance hostChain.BridgeInstance, author hostChain.Author, blockNumber uint64) error
	SubmitEventsVote(ctx context.Context, instanceId hostChain.InstanceId, instance hostChain.BridgeInstance, author hostChain.Author, p *hostChain.EventsPartition) error
}

// Orchestrator drives the vote lifecycle for every bridge instance the host
// chain reports. It holds no durable state of its own: the host chain is
// re-read every cycle, so a restarted node picks up exactly where the chain
// says things stand.
type Orchestrator struct {
	queryClient      hostChain.IQueryClient
	submitter        IProofSubmitter
	clients          IClientProvider
	sig              signer.ISigner
	partitionFactory partition.IPartitionFactory
	eventsRegistry   *events.EventRegistry
	store            storage.SubmissionStore
	logger           *zap.Logger

	cycleInterval       time.Duration
	authorRetryInterval time.Duration

	currentNodeAuthor *hostChain.Author
}

type Option func(*Orchestrator)

// WithIntervals overrides the cycle and author-retry pacing, used by tests.
func WithIntervals(cycleInterval, authorRetryInterval time.Duration) Option {
	return func(o *Orchestrator) {
		o.cycleInterval = cycleInterval
		o.authorRetryInterval = authorRetryInterval
	}
}

func NewOrchestrator(
	queryClient hostChain.IQueryClient,
	submitter IProofSubmitter,
	clients IClientProvider,
	sig signer.ISigner,
	partitionFactory partition.IPartitionFactory,
	eventsRegistry *events.EventRegistry,
	store storage.SubmissionStore,
	logger *zap.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		queryClient:         queryClient,
		submitter:           submitter,
		clients:             clients,
		sig:                 sig,
		partitionFactory:    partitionFactory,
		eventsRegistry:      eventsRegistry,
		store:               store,
		logger:              logger,
		cycleInterval:       config.CycleInterval,
		authorRetryInterval: config.AuthorRetryInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CurrentNodeAuthor returns the resolved author identity, nil before
// Initialize succeeds.
func (o *Orchestrator) CurrentNodeAuthor() *hostChain.Author {
	return o.currentNodeAuthor
}

// Initialize blocks until this node's author identity is resolved against
// the host chain's author set. A node whose keys are not registered yet
// keeps retrying rather than failing: registration typically lands while
// the node is already running.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	for {
		author, err := o.resolveNodeAuthor(ctx)
		if err == nil {
			o.currentNodeAuthor = author
			o.logger.Sugar().Infow("Current node author resolved",
				"address", author.Address.String(),
				"signingKey", author.SigningKey.String(),
			)
			return nil
		}

		o.logger.Sugar().Errorw("Author not found, will attempt again after a while",
			"error", err,
			"retryIn", o.authorRetryInterval,
		)

		timer := time.NewTimer(o.authorRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// resolveNodeAuthor intersects the host author set with the keystore's
// signing keys and returns the first match in host order. The author's
// address attributes the vote; the signing key produces the signature.
func (o *Orchestrator) resolveNodeAuthor(ctx context.Context) (*hostChain.Author, error) {
	authors, err := o.queryClient.AuthorSet(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query author set")
	}

	signingKeys := o.sig.SigningKeys()
	if author := findCurrentNodeAuthor(authors, signingKeys); author != nil {
		return author, nil
	}
	return nil, errors.Wrapf(ErrAuthorNotFound,
		"%d authors on chain, %d keys in keystore", len(authors), len(signingKeys))
}

func findCurrentNodeAuthor(authors []hostChain.Author, signingKeys []hostChain.AccountId) *hostChain.Author {
	// SigningKeys is already sorted; binary-search each author's key in it.
	for _, author := range authors {
		idx := sort.Search(len(signingKeys), func(i int) bool {
			return !lessAccountId(signingKeys[i], author.SigningKey)
		})
		if idx < len(signingKeys) && signingKeys[idx] == author.SigningKey {
			found := author
			return &found
		}
	}
	return nil
}

func lessAccountId(a, b hostChain.AccountId) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Run executes cycles until the context is cancelled. Initialize must have
// succeeded first.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.currentNodeAuthor == nil {
		return errors.New("orchestrator is not initialized")
	}

	ticker := time.NewTicker(o.cycleInterval)
	defer ticker.Stop()

	for {
		o.RunCycle(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle processes every reported bridge instance once. Instance failures
// are isolated: one broken instance must not starve the others.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	cycleId := uuid.New().String()
	sugar := o.logger.Sugar().With("cycleId", cycleId)

	instances, err := o.queryClient.Instances(ctx)
	if err != nil {
		sugar.Errorw("Failed to query bridge instances", "error", err)
		return
	}
	sugar.Debugw("Bridge instances found", "count", len(instances))

	for _, entry := range instances {
		if err := o.processInstance(ctx, entry); err != nil {
			sugar.Errorw("Failed to process bridge instance",
				"instanceId", entry.Id,
				"chainId", entry.Instance.ChainId,
				"error", err,
			)
		}
	}
}

func (o *Orchestrator) processInstance(ctx context.Context, entry hostChain.InstanceEntry) error {
	activeRange, err := o.queryClient.ActiveRange(ctx, entry.Id)
	if err != nil {
		return errors.Wrap(err, "failed to query active block range")
	}

	client, err := o.clients.GetClientWithRetry(ctx, entry.Instance.ChainId)
	if err != nil {
		return errors.Wrap(err, "failed to acquire chain client")
	}

	if activeRange == nil {
		// No range open yet; vote on the latest block to seed one.
		return o.submitLatestBlock(ctx, entry, client)
	}
	return o.processActiveRange(ctx, entry, client, activeRange)
}

func (o *Orchestrator) submitLatestBlock(ctx context.Context, entry hostChain.InstanceEntry, client chainClient.IChainClient) error {
	hasVoted, err := o.queryClient.HasVoted(ctx, entry.Id, o.currentNodeAuthor.Address)
	if err != nil {
		return errors.Wrap(err, "failed to check latest block vote")
	}
	if hasVoted {
		o.logger.Sugar().Debugw("Latest block vote already cast", "instanceId", entry.Id)
		return nil
	}

	latestBlock, err := client.BlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to retrieve latest block")
	}

	if err := o.submitter.SubmitLatestBlock(ctx, entry.Id, entry.Instance, *o.currentNodeAuthor, latestBlock); err != nil {
		return err
	}

	o.journal(ctx, &storage.SubmissionRecord{
		InstanceId:  entry.Id,
		Kind:        storage.SubmissionKindLatestBlock,
		Author:      o.currentNodeAuthor.Address.String(),
		BlockNumber: latestBlock,
		SubmittedAt: time.Now().UTC(),
	})
	return nil
}

func (o *Orchestrator) processActiveRange(
	ctx context.Context,
	entry hostChain.InstanceEntry,
	client chainClient.IChainClient,
	activeRange *hostChain.ActiveRange,
) error {
	finalized, err := o.isBlockFinalized(ctx, client, activeRange.Range.EndBlock)
	if err != nil {
		return err
	}
	if !finalized {
		o.logger.Sugar().Debugw("Active range not yet finalized",
			"instanceId", entry.Id,
			"endBlock", activeRange.Range.EndBlock,
		)
		return nil
	}

	hasVoted, err := o.queryClient.HasVoted(ctx, entry.Id, o.currentNodeAuthor.Address)
	if err != nil {
		return errors.Wrap(err, "failed to check event vote")
	}
	if hasVoted {
		o.logger.Sugar().Debugw("Event vote already cast", "instanceId", entry.Id)
		return nil
	}

	requestedSignatures, err := o.queryClient.RequestedSignatures(ctx, entry.Id)
	if err != nil {
		return errors.Wrap(err, "failed to query event signatures")
	}

	additionalTransactions, err := o.queryClient.AdditionalTransactions(ctx, entry.Id)
	if err != nil {
		return errors.Wrap(err, "failed to query additional transactions")
	}

	contractAddresses := []common.Address{entry.Instance.BridgeContract}

	additionalEvents, err := eventDiscovery.IdentifyAdditionalEvents(
		ctx, client, contractAddresses, requestedSignatures, o.eventsRegistry, additionalTransactions)
	if err != nil {
		return errors.Wrap(err, "error retrieving additional events")
	}

	rangeEvents, err := eventDiscovery.IdentifyEvents(
		ctx, client, activeRange.Range.StartBlock, activeRange.Range.EndBlock,
		contractAddresses, requestedSignatures, o.eventsRegistry)
	if err != nil {
		return errors.Wrap(err, "error retrieving events")
	}

	allEvents := make([]events.DiscoveredEvent, 0, len(additionalEvents)+len(rangeEvents))
	allEvents = append(allEvents, additionalEvents...)
	allEvents = append(allEvents, rangeEvents...)

	partitions := o.partitionFactory.CreatePartitions(activeRange.Range, allEvents)

	var assigned *hostChain.EventsPartition
	for i := range partitions {
		if partitions[i].PartitionId == activeRange.PartitionId {
			assigned = &partitions[i]
			break
		}
	}
	if assigned == nil {
		return errors.Wrapf(ErrPartitionNotFound, "partition id %d of %d partitions", activeRange.PartitionId, len(partitions))
	}

	if err := o.submitter.SubmitEventsVote(ctx, entry.Id, entry.Instance, *o.currentNodeAuthor, assigned); err != nil {
		return err
	}

	o.journal(ctx, &storage.SubmissionRecord{
		InstanceId:  entry.Id,
		Kind:        storage.SubmissionKindEventsVote,
		Author:      o.currentNodeAuthor.Address.String(),
		PartitionId: assigned.PartitionId,
		StartBlock:  assigned.Range.StartBlock,
		EndBlock:    assigned.Range.EndBlock,
		EventCount:  len(assigned.Events),
		SubmittedAt: time.Now().UTC(),
	})
	return nil
}

// isBlockFinalized reports whether the chain head has advanced far enough
// past the block for its contents to be considered settled.
func (o *Orchestrator) isBlockFinalized(ctx context.Context, client chainClient.IChainClient, blockNumber uint64) (bool, error) {
	latestBlock, err := client.BlockNumber(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to get latest block number")
	}
	return latestBlock >= blockNumber+config.EthFinality, nil
}

// journal records a submission locally. Journal failures are logged and
// swallowed: the vote already reached the host chain.
func (o *Orchestrator) journal(ctx context.Context, record *storage.SubmissionRecord) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveSubmission(ctx, record); err != nil {
		o.logger.Sugar().Warnw("Failed to journal submission",
			"instanceId", record.InstanceId,
			"kind", record.Kind,
			"error", err,
		)
	}
}
