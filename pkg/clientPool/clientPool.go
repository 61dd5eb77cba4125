package clientPool

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sentinel-bridge/sentinel/pkg/chainClient"
	"github.com/sentinel-bridge/sentinel/pkg/chainClient/ethereumChainClient"
	"github.com/sentinel-bridge/sentinel/pkg/config"
)

// ErrRetryLimitReached means client acquisition for a chain id exhausted its
// retry budget this cycle. The instance is skipped, not the process.
var ErrRetryLimitReached = errors.New("chain client acquisition retry limit reached")

// ClientFactory dials one endpoint. Injected so the pool can be exercised
// without a live chain.
type ClientFactory func(ctx context.Context, rpcURL string, logger *zap.Logger) (chainClient.IChainClient, error)

type poolEntry struct {
	client chainClient.IChainClient
	rpcURL string
}

// ClientPool keeps at most one live client per discovered chain id, fed by a
// fixed candidate endpoint list with in-order failover. The cache is
// mutex-guarded: two instances resolving the same never-before-seen chain id
// must not race the check-then-insert.
type ClientPool struct {
	mu      sync.Mutex
	clients map[config.ChainId]*poolEntry

	endpoints  []string
	factory    ClientFactory
	retryLimit int
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewClientPool(endpoints []string, logger *zap.Logger) *ClientPool {
	return &ClientPool{
		clients:   make(map[config.ChainId]*poolEntry),
		endpoints: endpoints,
		factory: func(ctx context.Context, rpcURL string, logger *zap.Logger) (chainClient.IChainClient, error) {
			return ethereumChainClient.NewEthereumChainClient(ctx, rpcURL, logger)
		},
		retryLimit: config.ClientRetryLimit,
		retryDelay: config.ClientRetryDelay,
		logger:     logger,
	}
}

// NewClientPoolWithFactory builds a pool with a custom dialer and retry
// policy, used by tests.
func NewClientPoolWithFactory(
	endpoints []string,
	factory ClientFactory,
	retryLimit int,
	retryDelay time.Duration,
	logger *zap.Logger,
) *ClientPool {
	return &ClientPool{
		clients:    make(map[config.ChainId]*poolEntry),
		endpoints:  endpoints,
		factory:    factory,
		retryLimit: retryLimit,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// GetClient returns the cached client for the chain id, or walks the
// candidate endpoints to find one. Every chain id discovered during the walk
// is cached even when it is not the wanted one, so later requests for it
// short-circuit.
func (p *ClientPool) GetClient(ctx context.Context, wantedChainId config.ChainId) (chainClient.IChainClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.clients[wantedChainId]; ok {
		p.logger.Sugar().Debugw("Found existing chain client", "chainId", wantedChainId)
		return entry.client, nil
	}

	return p.initialiseLocked(ctx, wantedChainId)
}

func (p *ClientPool) initialiseLocked(ctx context.Context, wantedChainId config.ChainId) (chainClient.IChainClient, error) {
	for _, rpcURL := range p.endpoints {
		client, err := p.factory(ctx, rpcURL, p.logger)
		if err != nil {
			p.logger.Sugar().Errorw("Failed to create chain client",
				"rpcUrl", rpcURL,
				"error", err,
			)
			continue
		}

		chainId, err := client.ChainId(ctx)
		if err != nil {
			p.logger.Sugar().Errorw("Connected but failed to get chain id",
				"rpcUrl", rpcURL,
				"error", err,
			)
			client.Close()
			continue
		}

		p.logger.Sugar().Infow("Connected to chain endpoint",
			"rpcUrl", rpcURL,
			"chainId", chainId,
		)

		discoveredId := config.ChainId(chainId)
		if existing, ok := p.clients[discoveredId]; ok {
			// Another endpoint already serves this id; keep the first.
			if existing.client != client {
				client.Close()
			}
		} else {
			p.clients[discoveredId] = &poolEntry{client: client, rpcURL: rpcURL}
		}

		if discoveredId == wantedChainId {
			return p.clients[discoveredId].client, nil
		}
	}

	return nil, errors.Errorf("no configured endpoint serves chain id %d", wantedChainId)
}

// GetClientWithRetry wraps GetClient with the fixed per-cycle retry policy.
func (p *ClientPool) GetClientWithRetry(ctx context.Context, wantedChainId config.ChainId) (chainClient.IChainClient, error) {
	for attempt := 1; ; attempt++ {
		client, err := p.GetClient(ctx, wantedChainId)
		if err == nil {
			return client, nil
		}

		p.logger.Sugar().Errorw("Failed to acquire chain client",
			"chainId", wantedChainId,
			"attempt", attempt,
			"error", err,
		)
		if attempt >= p.retryLimit {
			return nil, ErrRetryLimitReached
		}

		timer := time.NewTimer(p.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// StartHealthProbe periodically probes every cached client and evicts the
// ones whose endpoint stopped answering, so failover can pick a healthy
// endpoint on the next acquisition instead of retrying a dead cache entry
// forever.
func (p *ClientPool) StartHealthProbe(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.probeClients(ctx)
			}
		}
	}()
}

func (p *ClientPool) probeClients(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for chainId, entry := range p.clients {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := entry.client.BlockNumber(probeCtx)
		cancel()

		if err != nil {
			p.logger.Sugar().Warnw("Evicting unhealthy chain client",
				"chainId", chainId,
				"rpcUrl", entry.rpcURL,
				"error", err,
			)
			entry.client.Close()
			delete(p.clients, chainId)
		}
	}
}

// Close shuts down every cached client.
func (p *ClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for chainId, entry := range p.clients {
		entry.client.Close()
		delete(p.clients, chainId)
	}
}
