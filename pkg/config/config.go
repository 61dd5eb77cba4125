package config

import (
	"strings"
	"time"
)

// ChainId identifies an external EVM chain. The oracle discovers the id of
// every configured endpoint at runtime, so no allow-list is kept here.
type ChainId uint64

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_EthereumHolesky ChainId = 17000
	ChainId_EthereumHoodi   ChainId = 560048
)

const (
	// EthFinality is the number of confirmation blocks an active range's end
	// block needs on the external chain before its contents are voted on.
	EthFinality uint64 = 20

	// CycleInterval is the pause between orchestration cycles.
	CycleInterval = 60 * time.Second

	// AuthorRetryInterval is the pause between attempts to resolve this
	// node's on-chain author identity at startup.
	AuthorRetryInterval = 600 * time.Second

	// ClientRetryLimit and ClientRetryDelay bound chain-client acquisition
	// for a single bridge instance within one cycle.
	ClientRetryLimit = 3
	ClientRetryDelay = 5 * time.Second

	// PartitionSize is the maximum number of discovered events carried by a
	// single events partition.
	PartitionSize = 32
)

func KebabToSnakeCase(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func NormalizeFlagName(name string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(name)
}
