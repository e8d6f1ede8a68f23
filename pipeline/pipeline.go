// Package pipeline deploys the lottery and its VRF subscription to a single network. The run is
// a sequence of stages ordered by their declared dependencies, each consuming the immutable State
// produced before it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/operations"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// ArtifactSource loads compiled contracts. It is implemented by contracts.Loader.
type ArtifactSource interface {
	Load(name string) (contracts.Artifact, error)
	BuildInfo(a contracts.Artifact) (contracts.BuildInfo, error)
}

// Publisher writes the deployed address and ABI to the front-end documents. It is implemented by
// frontend.Syncer.
type Publisher interface {
	Sync(ctx context.Context, chainID uint64, addr common.Address, abi []byte) error
}

// Options select what a run does. They are validated once by New.
type Options struct {
	// Tags select the stages to run. Defaults to "all".
	Tags []string
	// Verify enables source verification on persistent networks. Requires a Verifier.
	Verify bool
	// UpdateFrontEnd enables the front-end artifact sync. Requires a Publisher.
	UpdateFrontEnd bool
}

// Deps are the collaborators of a run.
type Deps struct {
	Chain     ChainClient         // Required: The target chain
	Artifacts ArtifactSource      // Required: The compiled contracts
	Verifier  Verifier            // Optional: Required when Options.Verify is set
	Publisher Publisher           // Optional: Required when Options.UpdateFrontEnd is set
	Logger    logger.Logger       // Optional: Defaults to a no-op logger
	Reporter  operations.Reporter // Optional: Defaults to an in-memory reporter
}

// Validate checks the options against the stages they select from and the dependencies they
// enable.
func (o Options) Validate(stages []Stage, deps Deps) error {
	if err := validateTags(stages, o.Tags); err != nil {
		return err
	}

	if deps.Chain == nil {
		return fmt.Errorf("%w: chain client is required", ErrConfiguration)
	}
	if deps.Artifacts == nil {
		return fmt.Errorf("%w: artifact source is required", ErrConfiguration)
	}
	if o.Verify && deps.Verifier == nil {
		return fmt.Errorf("%w: verification is enabled without a verifier", ErrConfiguration)
	}
	if o.UpdateFrontEnd && deps.Publisher == nil {
		return fmt.Errorf("%w: front-end sync is enabled without a publisher", ErrConfiguration)
	}

	return nil
}

// Pipeline is a validated, scheduled run on one network.
type Pipeline struct {
	network network.Context
	opts    Options
	deps    Deps
	stages  []Stage
}

// New validates the options and schedules the selected stages.
func New(netCtx network.Context, opts Options, deps Deps) (*Pipeline, error) {
	return NewWithStages(netCtx, opts, deps, DefaultStages())
}

// NewWithStages is New with a custom stage set.
func NewWithStages(netCtx network.Context, opts Options, deps Deps, stages []Stage) (*Pipeline, error) {
	if len(opts.Tags) == 0 {
		opts.Tags = []string{LabelAll}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Reporter == nil {
		deps.Reporter = operations.NewMemoryReporter()
	}

	if err := opts.Validate(stages, deps); err != nil {
		return nil, err
	}

	scheduled, err := Schedule(stages, opts.Tags)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return &Pipeline{
		network: netCtx,
		opts:    opts,
		deps:    deps,
		stages:  scheduled,
	}, nil
}

// Stages returns the IDs of the scheduled stages in run order.
func (p *Pipeline) Stages() []StageID {
	ids := make([]StageID, 0, len(p.stages))
	for _, s := range p.stages {
		ids = append(ids, s.ID)
	}

	return ids
}

// StageStatus is the outcome of a stage.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageSkipped   StageStatus = "skipped"
	StageFailed    StageStatus = "failed"
)

// StageResult records what a stage did.
type StageResult struct {
	ID       StageID
	Status   StageStatus
	Reason   string
	Duration time.Duration
}

// Result is the outcome of a run. On failure it holds the state reached before the failing
// stage.
type Result struct {
	State  State
	Stages []StageResult
}

// runner carries the run-scoped dependencies into the stage functions.
type runner struct {
	opts Options
	deps Deps
	lggr logger.Logger
}

// Run executes the scheduled stages in order. The first fatal error stops the run and is
// returned wrapped with the stage ID.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	r := &runner{opts: p.opts, deps: p.deps, lggr: p.deps.Logger}

	st := NewState(p.network)
	res := Result{State: st}

	p.deps.Logger.Infow("Starting deployment",
		"network", p.network.Network.Name,
		"chainID", p.network.Network.ChainID,
		"type", p.network.Type,
		"stages", p.Stages(),
	)

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("stage %s: %w", stage.ID, err)
		}

		lggr := p.deps.Logger.Named(string(stage.ID))
		lggr.Infow("Running stage", "stage", stage.ID)

		start := time.Now()
		next, err := stage.Run(ctx, r.with(lggr), st)
		sr := StageResult{ID: stage.ID, Duration: time.Since(start)}

		var skipped skipError
		switch {
		case errors.As(err, &skipped):
			sr.Status = StageSkipped
			sr.Reason = skipped.reason
			lggr.Infow("Skipped stage", "stage", stage.ID, "reason", skipped.reason)
		case err != nil:
			sr.Status = StageFailed
			sr.Reason = err.Error()
			res.Stages = append(res.Stages, sr)
			lggr.Errorw("Stage failed", "stage", stage.ID, "err", err)

			return res, fmt.Errorf("stage %s: %w", stage.ID, err)
		default:
			sr.Status = StageCompleted
			st = next
			res.State = st
		}

		res.Stages = append(res.Stages, sr)
	}

	p.deps.Logger.Infow("Deployment finished", "network", p.network.Network.Name)

	return res, nil
}

// with returns a copy of the runner logging to lggr.
func (r *runner) with(lggr logger.Logger) *runner {
	c := *r
	c.lggr = lggr

	return &c
}

// bundle returns the operations bundle for ctx.
func (r *runner) bundle(ctx context.Context) operations.Bundle {
	return operations.NewBundle(func() context.Context { return ctx }, r.lggr, r.deps.Reporter)
}

func validateTags(stages []Stage, tags []string) error {
	known := Labels(stages)
	for _, t := range tags {
		if !slices.Contains(known, t) {
			return fmt.Errorf("%w: unknown tag %q, expected one of %v", ErrConfiguration, t, known)
		}
	}

	return nil
}

// Preflight checks the network parameters the stages selected by tags rely on, so a run can
// fail with ErrConfiguration before any chain connection is made. The same checks run again
// inside the stages.
func Preflight(netCtx network.Context, tags []string) error {
	if len(tags) == 0 {
		tags = []string{LabelAll}
	}

	stages := DefaultStages()
	if err := validateTags(stages, tags); err != nil {
		return err
	}

	plan, err := Schedule(stages, tags)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	for _, s := range plan {
		if s.ID == StageProvisionSubscription {
			return checkSubscriptionParameters(netCtx)
		}
	}

	return nil
}

// ResolveNetwork resolves the named network, classifying lookup failures as configuration
// errors.
func ResolveNetwork(cfg *network.Config, name string) (network.Context, error) {
	netCtx, err := cfg.Resolve(name)
	if err != nil {
		return network.Context{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return netCtx, nil
}
