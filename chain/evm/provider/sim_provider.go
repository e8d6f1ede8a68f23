package provider

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/eth/ethconfig"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/params"

	"github.com/smartcontractkit/lottery-deployments/chain/evm"
)

var (
	// prefundAmountEth is the amount of Ether to pre-fund the deployer account with.
	prefundAmountEth = big.NewInt(1_000_000)
	// prefundAmountWei is the prefund amount in wei.
	prefundAmountWei = new(big.Int).Mul(prefundAmountEth, big.NewInt(params.Ether))
)

// SimChainProviderConfig holds the configuration to initialize the SimChainProvider.
type SimChainProviderConfig struct {
	// Optional: The chain id the simulated chain reports. Defaults to the go-ethereum dev chain
	// id (1337).
	ChainID uint64
	// Optional: The deployer key. Defaults to the well-known development account.
	DeployerTransactorGen TransactorGenerator
	// Optional: How long a confirm function waits for a receipt. Defaults to one minute.
	WaitMinedTimeout time.Duration
}

// SimChainProvider manages a simulated EVM chain that is backed by go-ethereum's in memory
// simulated backend. Blocks are only produced when a transaction is confirmed.
type SimChainProvider struct {
	config SimChainProviderConfig

	client *SimClient
	chain  *evm.Chain
}

// NewSimChainProvider creates a new SimChainProvider with the given configuration.
func NewSimChainProvider(config SimChainProviderConfig) *SimChainProvider {
	if config.ChainID == 0 {
		config.ChainID = params.AllDevChainProtocolChanges.ChainID.Uint64()
	}
	if config.DeployerTransactorGen == nil {
		config.DeployerTransactorGen = TransactorDev()
	}
	if config.WaitMinedTimeout == 0 {
		config.WaitMinedTimeout = time.Minute
	}

	return &SimChainProvider{config: config}
}

// Initialize starts the simulated chain with a prefunded deployer account and returns the chain.
func (p *SimChainProvider) Initialize(ctx context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	chainID := new(big.Int).SetUint64(p.config.ChainID)
	deployerKey, err := p.config.DeployerTransactorGen.Generate(chainID)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to generate deployer key: %w", err)
	}

	genesis := types.GenesisAlloc{
		deployerKey.From: {Balance: prefundAmountWei},
	}

	backend := simulated.NewBackend(genesis,
		simulated.WithBlockGasLimit(50000000),
		withChainID(chainID),
	)
	backend.Commit() // Commit the genesis block

	client, err := NewSimClient(backend)
	if err != nil {
		return evm.Chain{}, err
	}
	p.client = client

	p.chain = &evm.Chain{
		ChainID:     p.config.ChainID,
		Client:      client,
		DeployerKey: deployerKey,
		Confirm: func(tx *types.Transaction, confirmations uint64) (*types.Receipt, error) {
			if tx == nil {
				return nil, fmt.Errorf("tx was nil, nothing to confirm for chain %d", p.config.ChainID)
			}

			// Ensure the transaction is mined by committing a new block
			client.Commit()

			waitCtx, cancel := context.WithTimeout(ctx, p.config.WaitMinedTimeout)
			defer cancel()

			receipt, err := bind.WaitMined(waitCtx, client, tx)
			if err != nil {
				return nil, fmt.Errorf("tx %s failed to confirm for chain %d: %w",
					tx.Hash().Hex(), p.config.ChainID, err,
				)
			}

			for {
				head, err := client.BlockNumber(waitCtx)
				if err != nil {
					return nil, fmt.Errorf("failed to read head for chain %d: %w", p.config.ChainID, err)
				}
				if confirmationDepth(receipt, head) >= confirmations {
					break
				}
				client.Commit()
			}

			if err := checkStatus(waitCtx, client, deployerKey.From, tx, receipt, p.config.ChainID); err != nil {
				return nil, err
			}

			return receipt, nil
		},
	}

	return *p.chain, nil
}

// Name returns the name of the SimChainProvider.
func (*SimChainProvider) Name() string {
	return "Simulated EVM Chain Provider"
}

// Close stops the simulated backend. It is a no-op before Initialize.
func (p *SimChainProvider) Close() error {
	if p.client == nil {
		return nil
	}

	return p.client.Close()
}

// withChainID makes the simulated chain report chainID instead of the dev chain default.
func withChainID(chainID *big.Int) func(*node.Config, *ethconfig.Config) {
	return func(_ *node.Config, ethConf *ethconfig.Config) {
		cfg := *ethConf.Genesis.Config
		cfg.ChainID = chainID
		ethConf.Genesis.Config = &cfg
		ethConf.NetworkId = chainID.Uint64()
	}
}
