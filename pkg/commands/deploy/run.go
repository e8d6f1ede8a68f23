package deploy

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/operations"
	"github.com/smartcontractkit/lottery-deployments/pipeline"
	"github.com/smartcontractkit/lottery-deployments/pkg/commands/output"
)

// runOptions are the flag values of a deploy invocation.
type runOptions struct {
	network      string
	networkFiles []string
	tags         []string
	configFile   string
	envFiles     []string
	artifactsDir string
	reportOut    string
}

// runDeploy executes the deploy command logic.
// This is separated from the RunE closure to improve testability.
func runDeploy(cmd *cobra.Command, cfg Config, opts runOptions) error {
	deps := cfg.deps()
	lggr := cfg.Logger
	ctx := cmd.Context()

	netCfg, err := deps.NetworkLoader(opts.networkFiles)
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}

	netCtx, err := pipeline.ResolveNetwork(netCfg, opts.network)
	if err != nil {
		return err
	}

	if err := pipeline.Preflight(netCtx, opts.tags); err != nil {
		return err
	}

	env, err := deps.EnvLoader(opts.configFile, opts.envFiles)
	if err != nil {
		return fmt.Errorf("%w: failed to load environment: %w", pipeline.ErrConfiguration, err)
	}

	runOpts := pipeline.Options{
		Tags:           opts.tags,
		Verify:         !netCtx.IsEphemeral() && env.Etherscan.APIKey != "",
		UpdateFrontEnd: env.FrontEnd.Enabled(),
	}
	if !netCtx.IsEphemeral() && !runOpts.Verify {
		lggr.Infow("ETHERSCAN_API_KEY is not set, contract verification is disabled", "network", netCtx.Network.Name)
	}

	chain, closeChain, err := deps.ChainLoader(ctx, netCtx, env, lggr)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeChain(); cerr != nil {
			lggr.Warnw("Failed to close chain connection", "err", cerr)
		}
	}()

	pdeps := pipeline.Deps{
		Chain:     chain,
		Artifacts: contracts.NewLoader(opts.artifactsDir),
		Logger:    lggr,
		Reporter:  operations.NewMemoryReporter(),
	}

	if runOpts.Verify {
		if pdeps.Verifier, err = deps.VerifierLoader(netCtx, env, lggr.Named("verification")); err != nil {
			return fmt.Errorf("%w: failed to create verification client: %w", pipeline.ErrConfiguration, err)
		}
	}

	if runOpts.UpdateFrontEnd {
		if pdeps.Publisher, err = deps.PublisherLoader(env, lggr.Named("frontend")); err != nil {
			return fmt.Errorf("%w: failed to create front-end publisher: %w", pipeline.ErrConfiguration, err)
		}
	}

	p, err := pipeline.New(netCtx, runOpts, pdeps)
	if err != nil {
		return err
	}

	res, runErr := p.Run(ctx)

	// Reports are written even when the run failed, they show how far it got.
	if opts.reportOut != "" {
		if serr := saveReports(deps, pdeps.Reporter, opts.reportOut); serr != nil {
			if runErr != nil {
				lggr.Errorw("Failed to save operation reports", "path", opts.reportOut, "err", serr)
			} else {
				return serr
			}
		}
	}

	printSummary(cmd, res)

	return runErr
}

func saveReports(deps *Deps, reporter operations.Reporter, path string) error {
	reports, err := reporter.GetReports()
	if err != nil {
		return fmt.Errorf("failed to collect operation reports: %w", err)
	}

	if err := deps.ReportSaver(path, reports); err != nil {
		return fmt.Errorf("failed to save operation reports to %s: %w", path, err)
	}

	return nil
}

// printSummary writes a table of stage outcomes followed by the deployed address.
func printSummary(cmd *cobra.Command, res pipeline.Result) {
	table := output.NewTable(cmd.OutOrStdout(), "STAGE", "STATUS", "DURATION", "DETAIL")
	for _, s := range res.Stages {
		table.Append([]string{
			string(s.ID), string(s.Status), s.Duration.Round(time.Millisecond).String(), s.Reason,
		})
	}
	table.Render()

	if dep, ok := res.State.Deployment(); ok {
		cmd.Printf("Lottery deployed at %s on %s (chain %d)\n",
			dep.Address.Hex(), res.State.Network().Network.Name, res.State.Network().Network.ChainID,
		)
	}
	if v := res.State.Verification(); v != pipeline.VerificationNotRun {
		cmd.Printf("Verification: %s\n", v)
	}
}
