package proofSubmitter

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
	"github.com/sentinel-bridge/sentinel/pkg/signer"
)

// ErrSignatureGenerationFailed wraps signer failures so callers can treat
// them uniformly with submission failures.
var ErrSignatureGenerationFailed = errors.New("signature generation failed")

// Proof context tags. Every proof starts with one of these so a signature
// produced for one submission kind can never be replayed as another.
var (
	latestBlockContext = []byte("submit_latest_ethereum_block")
	eventsVoteContext  = []byte("submit_ethereum_events_partition")
)

// ProofSubmitter signs vote payloads and hands them to the host chain's
// command surface. The proof binds the context tag, the bridge instance
// identity, the voting author and the voted payload into one deterministic
// byte string, so every honest node signing the same observation produces
// a signature over identical bytes.
type ProofSubmitter struct {
	commandClient hostChain.ICommandClient
	sig           signer.ISigner
	logger        *zap.Logger
}

func NewProofSubmitter(commandClient hostChain.ICommandClient, sig signer.ISigner, logger *zap.Logger) *ProofSubmitter {
	return &ProofSubmitter{
		commandClient: commandClient,
		sig:           sig,
		logger:        logger,
	}
}

// EncodeLatestBlockProof builds the signing bytes for an initial
// latest-block vote.
func EncodeLatestBlockProof(
	instanceId hostChain.InstanceId,
	instance hostChain.BridgeInstance,
	author hostChain.AccountId,
	blockNumber uint64,
) []byte {
	proof := encodeProofHeader(latestBlockContext, instanceId, instance, author)
	return binary.BigEndian.AppendUint64(proof, blockNumber)
}

// EncodeEventsProof builds the signing bytes for an events-partition vote.
func EncodeEventsProof(
	instanceId hostChain.InstanceId,
	instance hostChain.BridgeInstance,
	author hostChain.AccountId,
	partition *hostChain.EventsPartition,
) []byte {
	proof := encodeProofHeader(eventsVoteContext, instanceId, instance, author)

	proof = binary.BigEndian.AppendUint16(proof, partition.PartitionId)
	proof = binary.BigEndian.AppendUint64(proof, partition.Range.StartBlock)
	proof = binary.BigEndian.AppendUint64(proof, partition.Range.EndBlock)

	for _, discovered := range partition.Events {
		proof = append(proof, discovered.Event.EventId.Signature.Bytes()...)
		proof = append(proof, discovered.Event.EventId.TransactionHash.Bytes()...)
		proof = binary.BigEndian.AppendUint64(proof, discovered.Block)
	}
	return proof
}

func encodeProofHeader(
	proofContext []byte,
	instanceId hostChain.InstanceId,
	instance hostChain.BridgeInstance,
	author hostChain.AccountId,
) []byte {
	proof := make([]byte, 0, len(proofContext)+4+20+8+32)
	proof = append(proof, proofContext...)
	proof = binary.BigEndian.AppendUint32(proof, uint32(instanceId))
	proof = append(proof, instance.BridgeContract.Bytes()...)
	proof = binary.BigEndian.AppendUint64(proof, uint64(instance.ChainId))
	proof = append(proof, author[:]...)
	return proof
}

// SubmitLatestBlock signs and submits an initial latest-block vote.
func (ps *ProofSubmitter) SubmitLatestBlock(
	ctx context.Context,
	instanceId hostChain.InstanceId,
	instance hostChain.BridgeInstance,
	author hostChain.Author,
	blockNumber uint64,
) error {
	proof := EncodeLatestBlockProof(instanceId, instance, author.Address, blockNumber)

	signature, err := ps.sig.SignMessage(author.SigningKey, proof)
	if err != nil {
		return errors.Wrapf(ErrSignatureGenerationFailed, "latest block vote: %v", err)
	}

	if err := ps.commandClient.SubmitLatestBlock(ctx, instanceId, author.Address, blockNumber, signature); err != nil {
		return errors.Wrap(err, "failed to submit latest block vote")
	}

	ps.logger.Sugar().Infow("Latest block vote submitted",
		"instanceId", instanceId,
		"blockNumber", blockNumber,
		"author", author.Address.String(),
	)
	return nil
}

// SubmitEventsVote signs and submits a vote for one events partition.
func (ps *ProofSubmitter) SubmitEventsVote(
	ctx context.Context,
	instanceId hostChain.InstanceId,
	instance hostChain.BridgeInstance,
	author hostChain.Author,
	partition *hostChain.EventsPartition,
) error {
	proof := EncodeEventsProof(instanceId, instance, author.Address, partition)

	signature, err := ps.sig.SignMessage(author.SigningKey, proof)
	if err != nil {
		return errors.Wrapf(ErrSignatureGenerationFailed, "events vote: %v", err)
	}

	if err := ps.commandClient.SubmitVote(ctx, instanceId, author.Address, partition, signature); err != nil {
		return errors.Wrap(err, "failed to submit events vote")
	}

	ps.logger.Sugar().Infow("Events vote submitted",
		"instanceId", instanceId,
		"partitionId", partition.PartitionId,
		"startBlock", partition.Range.StartBlock,
		"endBlock", partition.Range.EndBlock,
		"eventCount", len(partition.Events),
		"author", author.Address.String(),
	)
	return nil
}
