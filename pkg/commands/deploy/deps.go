// Package deploy provides the CLI command that runs the lottery deployment pipeline.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/smartcontractkit/lottery-deployments/chain/evm/provider"
	cfgenv "github.com/smartcontractkit/lottery-deployments/config/env"
	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/frontend"
	"github.com/smartcontractkit/lottery-deployments/internal/jsonutils"
	"github.com/smartcontractkit/lottery-deployments/operations"
	"github.com/smartcontractkit/lottery-deployments/pipeline"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
	"github.com/smartcontractkit/lottery-deployments/verification"
)

// confirmTimeout bounds how long a transaction may wait for its confirmations.
const confirmTimeout = 5 * time.Minute

// NetworkLoaderFunc loads the network configuration from manifest files on top of the defaults.
type NetworkLoaderFunc func(filePaths []string) (*network.Config, error)

// EnvLoaderFunc loads the environment configuration. configFile may be empty, in which case only
// environment variables are read. envFiles are .env files loaded into the process environment
// first.
type EnvLoaderFunc func(configFile string, envFiles []string) (*cfgenv.Config, error)

// ChainLoaderFunc connects to the chain of the resolved network. The returned close function
// releases the connection and must be called once the run is done.
type ChainLoaderFunc func(
	ctx context.Context, netCtx network.Context, env *cfgenv.Config, lggr logger.Logger,
) (pipeline.ChainClient, func() error, error)

// VerifierLoaderFunc creates the source verification client for the resolved network.
type VerifierLoaderFunc func(netCtx network.Context, env *cfgenv.Config, lggr logger.Logger) (pipeline.Verifier, error)

// PublisherLoaderFunc creates the front-end artifact publisher.
type PublisherLoaderFunc func(env *cfgenv.Config, lggr logger.Logger) (pipeline.Publisher, error)

// ReportSaverFunc writes the operation reports of a run to a file.
type ReportSaverFunc func(path string, reports []operations.Report[any, any]) error

// Deps holds the injectable dependencies of the deploy command.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// NetworkLoader loads the network manifest.
	// Default: network.Load with ${VAR} expansion of RPC URLs
	NetworkLoader NetworkLoaderFunc

	// EnvLoader loads the environment configuration.
	// Default: .env files then config.Load or config.LoadEnv
	EnvLoader EnvLoaderFunc

	// ChainLoader connects to the chain.
	// Default: a simulated chain for the in-process network, JSON-RPC otherwise
	ChainLoader ChainLoaderFunc

	// VerifierLoader creates the verification client. Only called when verification is enabled.
	// Default: verification.NewClient against the network's block explorer
	VerifierLoader VerifierLoaderFunc

	// PublisherLoader creates the front-end publisher. Only called when the sync is enabled.
	// Default: frontend.NewSyncer
	PublisherLoader PublisherLoaderFunc

	// ReportSaver writes the operation reports.
	// Default: jsonutils.WriteFile
	ReportSaver ReportSaverFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.NetworkLoader == nil {
		d.NetworkLoader = defaultNetworkLoader
	}
	if d.EnvLoader == nil {
		d.EnvLoader = defaultEnvLoader
	}
	if d.ChainLoader == nil {
		d.ChainLoader = defaultChainLoader
	}
	if d.VerifierLoader == nil {
		d.VerifierLoader = defaultVerifierLoader
	}
	if d.PublisherLoader == nil {
		d.PublisherLoader = defaultPublisherLoader
	}
	if d.ReportSaver == nil {
		d.ReportSaver = defaultReportSaver
	}
}

func defaultNetworkLoader(filePaths []string) (*network.Config, error) {
	return network.Load(filePaths, network.WithRPCURLTransformer(os.ExpandEnv))
}

func defaultEnvLoader(configFile string, envFiles []string) (*cfgenv.Config, error) {
	if err := cfgenv.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	if configFile == "" {
		return cfgenv.LoadEnv()
	}

	return cfgenv.Load(configFile)
}

func defaultChainLoader(
	ctx context.Context, netCtx network.Context, env *cfgenv.Config, lggr logger.Logger,
) (pipeline.ChainClient, func() error, error) {
	n := netCtx.Network

	if n.InProcess() {
		p := provider.NewSimChainProvider(provider.SimChainProviderConfig{
			ChainID:          n.ChainID,
			WaitMinedTimeout: confirmTimeout,
		})

		chain, err := p.Initialize(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start simulated chain: %w", err)
		}

		lggr.Infow("Started in-process chain",
			"chain", chain.String(), "selector", chain.Selector(), "deployer", chain.DeployerAddress().Hex(),
		)

		return chain, p.Close, nil
	}

	var gen provider.TransactorGenerator
	switch {
	case env.Deployer.PrivateKey != "":
		gen = provider.TransactorFromRaw(env.Deployer.PrivateKey)
	case netCtx.IsEphemeral():
		gen = provider.TransactorDev()
	default:
		return nil, nil, fmt.Errorf("%w: no deployer private key configured for network %s",
			pipeline.ErrConfiguration, n.Name,
		)
	}

	p := provider.NewRPCChainProvider(n.ChainID, provider.RPCChainProviderConfig{
		RPCURL:                n.RPCURL,
		DeployerTransactorGen: gen,
		ConfirmFunctor:        provider.ConfirmFuncGeth(confirmTimeout),
		Logger:                lggr,
	})

	chain, err := p.Initialize(ctx)
	if err != nil {
		if errors.Is(err, provider.ErrChainIDMismatch) {
			return nil, nil, fmt.Errorf("%w: network %s: %w", pipeline.ErrConfiguration, n.Name, err)
		}

		return nil, nil, fmt.Errorf("failed to connect to network %s: %w", n.Name, err)
	}

	lggr.Infow("Connected to network",
		"network", n.Name, "chain", chain.String(), "selector", chain.Selector(),
		"deployer", chain.DeployerAddress().Hex(),
	)

	closeFn := func() error {
		if c, ok := chain.Client.(interface{ Close() }); ok {
			c.Close()
		}

		return nil
	}

	return chain, closeFn, nil
}

func defaultVerifierLoader(netCtx network.Context, env *cfgenv.Config, lggr logger.Logger) (pipeline.Verifier, error) {
	return verification.NewClient(verification.ClientConfig{
		APIURL:  netCtx.Network.BlockExplorer.APIURL,
		APIKey:  env.Etherscan.APIKey,
		ChainID: netCtx.Network.ChainID,
		Logger:  lggr,
	})
}

func defaultPublisherLoader(env *cfgenv.Config, lggr logger.Logger) (pipeline.Publisher, error) {
	return frontend.NewSyncer(frontend.SyncerConfig{
		AddressesFile: env.FrontEnd.AddressesFile,
		ABIFile:       env.FrontEnd.ABIFile,
		Logger:        lggr,
	})
}

func defaultReportSaver(path string, reports []operations.Report[any, any]) error {
	return jsonutils.WriteFile(path, reports)
}
