// Package provider builds connected evm.Chain values for the deployment pipeline, either backed
// by a JSON-RPC node or by an in-process simulated chain.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/smartcontractkit/lottery-deployments/chain/evm"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// ErrChainIDMismatch is returned when the node reports a different chain id than the one the
// network is configured with.
var ErrChainIDMismatch = errors.New("chain id mismatch")

// Provider initializes a connected chain.
type Provider interface {
	Initialize(ctx context.Context) (evm.Chain, error)
	Name() string
}

var (
	_ Provider = (*RPCChainProvider)(nil)
	_ Provider = (*SimChainProvider)(nil)
)

// RPCChainProviderConfig holds the configuration to initialize the RPCChainProvider.
type RPCChainProviderConfig struct {
	// Required: The JSON-RPC endpoint of the node.
	RPCURL string
	// Required: A generator for the deployer key. Use TransactorFromRaw to create a deployer
	// key from a private key.
	DeployerTransactorGen TransactorGenerator
	// Required: ConfirmFunctor is a type that generates a confirmation function for transactions.
	// If in doubt, use ConfirmFuncGeth.
	ConfirmFunctor ConfirmFunctor
	// Optional: Logger is the logger to use for the RPCChainProvider. If not provided, a no-op
	// logger will be used.
	Logger logger.Logger
}

// validate checks if the RPCChainProviderConfig is valid.
func (c RPCChainProviderConfig) validate() error {
	if c.RPCURL == "" {
		return errors.New("rpc url is required")
	}
	if c.DeployerTransactorGen == nil {
		return errors.New("deployer transactor generator is required")
	}
	if c.ConfirmFunctor == nil {
		return errors.New("confirm functor is required")
	}

	return nil
}

// RPCChainProvider is a chain provider that provides a chain that connects to an EVM node via RPC.
type RPCChainProvider struct {
	chainID uint64
	config  RPCChainProviderConfig

	chain *evm.Chain
}

// NewRPCChainProvider creates a new RPCChainProvider for the expected chain id.
func NewRPCChainProvider(chainID uint64, config RPCChainProviderConfig) *RPCChainProvider {
	return &RPCChainProvider{
		chainID: chainID,
		config:  config,
	}
}

// Initialize dials the node, checks that it serves the expected chain, and returns the chain
// with its deployer key and confirm function.
func (p *RPCChainProvider) Initialize(ctx context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	if p.config.Logger == nil {
		p.config.Logger = logger.Nop()
	}

	if err := p.config.validate(); err != nil {
		return evm.Chain{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	client, err := ethclient.DialContext(ctx, p.config.RPCURL)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to dial rpc: %w", err)
	}

	remoteID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return evm.Chain{}, fmt.Errorf("failed to fetch chain id: %w", err)
	}
	if remoteID.Uint64() != p.chainID {
		client.Close()
		return evm.Chain{}, fmt.Errorf("%w: node reports %s, network is configured for %d",
			ErrChainIDMismatch, remoteID, p.chainID,
		)
	}

	deployerKey, err := p.config.DeployerTransactorGen.Generate(new(big.Int).SetUint64(p.chainID))
	if err != nil {
		client.Close()
		return evm.Chain{}, fmt.Errorf("failed to generate deployer key: %w", err)
	}

	confirmFunc, err := p.config.ConfirmFunctor.Generate(ctx, p.chainID, client, deployerKey.From)
	if err != nil {
		client.Close()
		return evm.Chain{}, fmt.Errorf("failed to generate confirm function: %w", err)
	}

	p.config.Logger.Infow("Connected to EVM node",
		"chainID", p.chainID, "deployer", deployerKey.From.Hex(),
	)

	p.chain = &evm.Chain{
		ChainID:     p.chainID,
		Client:      client,
		DeployerKey: deployerKey,
		Confirm:     confirmFunc,
	}

	return *p.chain, nil
}

// Name returns the name of the RPCChainProvider.
func (*RPCChainProvider) Name() string {
	return "EVM RPC Chain Provider"
}
