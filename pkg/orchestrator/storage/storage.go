package storage

import (
	"context"
	"time"

	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
)

// SubmissionKind distinguishes the two vote shapes a node can submit.
type SubmissionKind string

const (
	SubmissionKindLatestBlock SubmissionKind = "latest_block"
	SubmissionKindEventsVote  SubmissionKind = "events_vote"
)

// SubmissionRecord is the local journal entry for one vote this node handed
// to the host chain. The host chain remains the source of truth for whether
// the vote counted; the journal exists for operator inspection after
// restarts.
type SubmissionRecord struct {
	InstanceId  hostChain.InstanceId `json:"instanceId"`
	Kind        SubmissionKind       `json:"kind"`
	Author      string               `json:"author"`
	BlockNumber uint64               `json:"blockNumber,omitempty"`
	PartitionId uint16               `json:"partitionId,omitempty"`
	StartBlock  uint64               `json:"startBlock,omitempty"`
	EndBlock    uint64               `json:"endBlock,omitempty"`
	EventCount  int                  `json:"eventCount,omitempty"`
	SubmittedAt time.Time            `json:"submittedAt"`
}

// SubmissionStore persists the submission journal. One record is kept per
// (instance, kind); a newer submission for the same pair overwrites the
// older one.
type SubmissionStore interface {
	SaveSubmission(ctx context.Context, record *SubmissionRecord) error
	GetSubmission(ctx context.Context, instanceId hostChain.InstanceId, kind SubmissionKind) (*SubmissionRecord, error)
	ListSubmissions(ctx context.Context) ([]*SubmissionRecord, error)

	Close() error
}
