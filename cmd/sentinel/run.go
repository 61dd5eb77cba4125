package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sentinel-bridge/sentinel/pkg/clientPool"
	"github.com/sentinel-bridge/sentinel/pkg/events"
	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
	"github.com/sentinel-bridge/sentinel/pkg/hostChain/simulatedHostChain"
	"github.com/sentinel-bridge/sentinel/pkg/logger"
	"github.com/sentinel-bridge/sentinel/pkg/orchestrator"
	"github.com/sentinel-bridge/sentinel/pkg/orchestrator/storage"
	"github.com/sentinel-bridge/sentinel/pkg/orchestrator/storage/badger"
	"github.com/sentinel-bridge/sentinel/pkg/orchestrator/storage/memory"
	"github.com/sentinel-bridge/sentinel/pkg/partition"
	"github.com/sentinel-bridge/sentinel/pkg/proofSubmitter"
	"github.com/sentinel-bridge/sentinel/pkg/shutdown"
	"github.com/sentinel-bridge/sentinel/pkg/signer/keystore"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sentinel node",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: Config.Debug})

		if err := Config.Validate(); err != nil {
			return err
		}

		l.Sugar().Infow("sentinel run")

		ks := keystore.NewKeystore(Config.KeystoreDir, l)
		bridgeSigner, err := ks.LoadBridgeSigner()
		if err != nil {
			return fmt.Errorf("failed to load bridge signing keys: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool := clientPool.NewClientPool(Config.Ethereum.Endpoints, l)
		if Config.Ethereum.HealthProbeInterval > 0 {
			pool.StartHealthProbe(ctx, Config.Ethereum.HealthProbeInterval)
		}

		queryClient, commandClient, err := buildHostChainClients(l, bridgeSigner.SigningKeys())
		if err != nil {
			return err
		}

		// Create storage based on configuration
		var store storage.SubmissionStore
		if Config.Storage != nil {
			switch Config.Storage.Type {
			case "memory":
				l.Sugar().Infow("Using in-memory storage")
				store = memory.NewInMemorySubmissionStore()
			case "badger":
				l.Sugar().Infow("Using BadgerDB storage")
				badgerStore, err := badger.NewBadgerSubmissionStore(Config.Storage.BadgerConfig)
				if err != nil {
					return fmt.Errorf("failed to create badger store: %w", err)
				}
				store = badgerStore
			default:
				return fmt.Errorf("unknown storage type: %s", Config.Storage.Type)
			}
		} else {
			l.Sugar().Infow("No storage configured, running without a submission journal")
		}

		submitter := proofSubmitter.NewProofSubmitter(commandClient, bridgeSigner, l)

		orch := orchestrator.NewOrchestrator(
			queryClient,
			submitter,
			pool,
			bridgeSigner,
			partition.NewPartitionFactory(),
			events.NewEventRegistry(),
			store,
			l,
		)

		if err := orch.Initialize(ctx); err != nil {
			l.Sugar().Fatalw("Failed to initialize orchestrator", zap.Error(err))
		}

		go func() {
			if err := orch.Run(ctx); err != nil && ctx.Err() == nil {
				l.Sugar().Fatalw("Failed to run orchestrator", zap.Error(err))
			}
		}()

		gracefulShutdownNotifier := shutdown.CreateGracefulShutdownChannel()
		done := make(chan bool)
		shutdown.ListenForShutdown(gracefulShutdownNotifier, done, func() {
			l.Sugar().Info("Shutting down...")
			cancel()
			pool.Close()
			if store != nil {
				if err := store.Close(); err != nil {
					l.Sugar().Errorw("Failed to close storage", "error", err)
				}
			}
		}, 5*time.Second, l)

		return nil
	},
}

// buildHostChainClients wires the host chain surfaces. Only the in-process
// simulated host chain is wired today; it is seeded from the configured
// instances and treats every local signing key as a registered author.
func buildHostChainClients(l *zap.Logger, signingKeys []hostChain.AccountId) (hostChain.IQueryClient, hostChain.ICommandClient, error) {
	if !Config.SimulateHostChain {
		return nil, nil, fmt.Errorf("no host chain transport configured: set simulateHostChain to run against the in-process host chain")
	}

	sim := simulatedHostChain.NewSimulatedHostChain(l)

	for _, instance := range Config.SimulatedInstances {
		sim.AddInstance(hostChain.InstanceId(instance.Id), hostChain.BridgeInstance{
			ChainId:        instance.ChainId,
			BridgeContract: common.HexToAddress(instance.BridgeContract),
			Description:    instance.Description,
		})
		sim.SetRequestedSignatures(hostChain.InstanceId(instance.Id), events.Signatures(events.AllEventKinds()))
	}

	authors := make([]hostChain.Author, 0, len(signingKeys))
	for _, key := range signingKeys {
		authors = append(authors, hostChain.Author{Address: key, SigningKey: key})
	}
	sim.SetAuthors(authors)

	return sim, sim, nil
}
