// Package networks provides the CLI command that lists the configured networks.
package networks

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/lottery-deployments/chain/evm"
	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/pkg/commands/flags"
	"github.com/smartcontractkit/lottery-deployments/pkg/commands/output"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// NetworkLoaderFunc loads the network configuration from manifest files on top of the defaults.
type NetworkLoaderFunc func(filePaths []string) (*network.Config, error)

// Deps holds the injectable dependencies for the networks command.
type Deps struct {
	// NetworkLoader loads the network manifest.
	// Default: network.Load with ${VAR} expansion of RPC URLs
	NetworkLoader NetworkLoaderFunc
}

func (d *Deps) applyDefaults() {
	if d.NetworkLoader == nil {
		d.NetworkLoader = func(filePaths []string) (*network.Config, error) {
			return network.Load(filePaths, network.WithRPCURLTransformer(os.ExpandEnv))
		}
	}
}

// Config holds the configuration for the networks command.
type Config struct {
	// Logger is the logger to use for command output. Required.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	Deps Deps
}

// Validate checks that the required configuration is present.
func (c Config) Validate() error {
	if c.Logger == nil {
		return errors.New("networks.Config: missing required field: Logger")
	}

	return nil
}

// NewCommand creates the networks command.
func NewCommand(cfg Config) (*cobra.Command, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Deps.applyDefaults()

	var typ string

	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List the configured networks",
		Long: fmt.Sprintf("List the configured networks with their chain id, chain selector and type.\n\n"+
			"Networks named %s are ephemeral and get VRF mocks deployed, all others are persistent.",
			strings.Join(network.EphemeralNetworks(), ", "),
		),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files := flags.MustStringSlice(cmd.Flags().GetStringSlice("networks-file"))

			return runList(cmd, cfg, files, typ)
		},
	}

	flags.NetworksFile(cmd)
	cmd.Flags().StringVarP(&typ, "type", "t", "", "Only list networks of this type (ephemeral or persistent)")

	return cmd, nil
}

func runList(cmd *cobra.Command, cfg Config, files []string, typ string) error {
	netCfg, err := cfg.Deps.NetworkLoader(files)
	if err != nil {
		return err
	}

	if typ != "" {
		nt := network.NetworkType(typ)
		if nt != network.NetworkTypeEphemeral && nt != network.NetworkTypePersistent {
			return fmt.Errorf("invalid network type %q, expected ephemeral or persistent", typ)
		}
		netCfg = netCfg.FilterWith(network.TypesFilter(nt))
	}

	table := output.NewTable(cmd.OutOrStdout(), "NAME", "CHAIN ID", "SELECTOR", "TYPE", "CONFIRMATIONS", "EXPLORER")
	for _, n := range netCfg.Networks() {
		explorer := n.BlockExplorer.URL
		if explorer == "" {
			explorer = "-"
		}
		selector := "-"
		if details, ok := evm.LookupChain(n.ChainID); ok {
			selector = strconv.FormatUint(details.ChainSelector, 10)
		}
		table.Append([]string{
			n.Name,
			strconv.FormatUint(n.ChainID, 10),
			selector,
			string(n.Type()),
			strconv.FormatUint(n.Confirmations(), 10),
			explorer,
		})
	}
	table.Render()

	return nil
}
