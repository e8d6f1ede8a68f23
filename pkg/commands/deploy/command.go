package deploy

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/lottery-deployments/pipeline"
	"github.com/smartcontractkit/lottery-deployments/pkg/commands/flags"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// Config holds the configuration for the deploy command.
type Config struct {
	// Logger is the logger the pipeline logs to. Required.
	Logger logger.Logger

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// Validate checks that the required configuration is present.
func (c Config) Validate() error {
	if c.Logger == nil {
		return errors.New("deploy.Config: missing required field: Logger")
	}

	return nil
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

// NewCommand creates the deploy command.
//
// Usage:
//
//	cmd, err := deploy.NewCommand(deploy.Config{Logger: lggr})
//	if err != nil {
//	    return err
//	}
//	rootCmd.AddCommand(cmd)
func NewCommand(cfg Config) (*cobra.Command, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply defaults for optional dependencies
	cfg.deps()

	var opts runOptions

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the lottery to a network",
		Long: `Deploy the lottery and provision its VRF subscription on the selected network.

On hardhat and localhost a VRFCoordinatorV2Mock is deployed and a funded subscription is
created for the lottery. Every other network uses the coordinator and subscription configured
for its chain id.

The contract is verified when ETHERSCAN_API_KEY is set and the network is not a development
network. The front-end documents are updated when UPDATE_FRONT_END is set.`,
		Example: `  # Deploy to the in-process development chain
  lottery-deploy deploy

  # Deploy only the mocks to a local node
  lottery-deploy deploy --network localhost --tags mocks

  # Deploy to goerli and keep the operation reports
  lottery-deploy deploy -n goerli --report-out reports/goerli.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.network = flags.MustString(cmd.Flags().GetString("network"))
			opts.networkFiles = flags.MustStringSlice(cmd.Flags().GetStringSlice("networks-file"))

			return runDeploy(cmd, cfg, opts)
		},
	}

	flags.Network(cmd)
	flags.NetworksFile(cmd)
	cmd.Flags().StringSliceVar(&opts.tags, "tags", []string{pipeline.LabelAll}, "Stage tags to run, e.g. mocks, raffle, verify, frontend")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "Environment configuration file (YAML). Environment variables take precedence")
	cmd.Flags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "Dotenv file loaded before reading the environment, may be repeated")
	cmd.Flags().StringVar(&opts.artifactsDir, "artifacts", "artifacts", "Hardhat artifacts directory")
	cmd.Flags().StringVar(&opts.reportOut, "report-out", "", "Write the operation reports of the run to this JSON file")

	return cmd, nil
}
