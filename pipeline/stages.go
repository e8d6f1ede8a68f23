package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/operations"
	"github.com/smartcontractkit/lottery-deployments/verification"
)

// deployMocks deploys the VRF coordinator mock on ephemeral networks.
func deployMocks(ctx context.Context, r *runner, st State) (State, error) {
	netCtx := st.Network()
	if !netCtx.IsEphemeral() {
		return st, skip("%s is a persistent network", netCtx.Network.Name)
	}

	mock, err := r.deps.Artifacts.Load(contracts.VRFCoordinatorMockName)
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrProvisioning, err)
	}

	r.lggr.Infow("Local network detected, deploying mocks", "network", netCtx.Network.Name)

	report, err := operations.ExecuteOperation(r.bundle(ctx), opDeployMock,
		opDeps{Chain: r.deps.Chain, Artifact: mock},
		DeployMockInput{Args: contracts.DefaultMockConstructorArgs()},
	)
	if err != nil {
		return st, fmt.Errorf("%w: failed to deploy %s: %w", ErrProvisioning, contracts.VRFCoordinatorMockName, err)
	}

	r.lggr.Infow("Deployed VRF coordinator mock",
		"address", report.Output.Address.Hex(), "txHash", report.Output.TxHash.Hex(),
	)

	return st.withMockCoordinator(report.Output.Address), nil
}

// checkSubscriptionParameters requires persistent networks to reference an existing VRF
// coordinator and subscription.
func checkSubscriptionParameters(netCtx network.Context) error {
	if netCtx.IsEphemeral() {
		return nil
	}

	params := netCtx.Parameters

	var missing []string
	if params.VRFCoordinator == nil {
		missing = append(missing, "vrf_coordinator")
	}
	if params.SubscriptionID == 0 {
		missing = append(missing, "subscription_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: network %s has no %s configured for chain %d",
			ErrConfiguration, netCtx.Network.Name, strings.Join(missing, " or "), netCtx.Network.ChainID,
		)
	}

	return nil
}

// provisionSubscription creates and funds a subscription on the mock for ephemeral networks and
// references the configured one on persistent networks.
func provisionSubscription(ctx context.Context, r *runner, st State) (State, error) {
	netCtx := st.Network()

	if !netCtx.IsEphemeral() {
		if err := checkSubscriptionParameters(netCtx); err != nil {
			return st, err
		}

		params := netCtx.Parameters
		h := SubscriptionHandle{Coordinator: *params.VRFCoordinator, SubscriptionID: params.SubscriptionID}
		r.lggr.Infow("Using existing VRF subscription",
			"coordinator", h.Coordinator.Hex(), "subscriptionID", h.SubscriptionID,
		)

		return st.withSubscription(h), nil
	}

	coordinator, ok := st.MockCoordinator()
	if !ok {
		return st, fmt.Errorf("%w: no VRF coordinator mock was deployed", ErrProvisioning)
	}

	mock, err := r.deps.Artifacts.Load(contracts.VRFCoordinatorMockName)
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrProvisioning, err)
	}
	deps := opDeps{Chain: r.deps.Chain, Artifact: mock}

	created, err := operations.ExecuteOperation(r.bundle(ctx), opCreateSubscription, deps,
		CreateSubscriptionInput{Coordinator: coordinator},
	)
	if err != nil {
		return st, fmt.Errorf("%w: failed to create subscription: %w", ErrProvisioning, err)
	}
	subID := created.Output.SubscriptionID

	r.lggr.Infow("Created VRF subscription", "coordinator", coordinator.Hex(), "subscriptionID", subID)

	amount := new(big.Int).Set(contracts.SubscriptionFundAmount)
	if _, err = operations.ExecuteOperation(r.bundle(ctx), opFundSubscription, deps,
		FundSubscriptionInput{Coordinator: coordinator, SubscriptionID: subID, Amount: amount},
	); err != nil {
		return st, fmt.Errorf("%w: failed to fund subscription %d: %w", ErrProvisioning, subID, err)
	}

	r.lggr.Infow("Funded VRF subscription", "subscriptionID", subID, "amount", amount.String())

	return st.withSubscription(SubscriptionHandle{
		Coordinator:    coordinator,
		SubscriptionID: subID,
		FundedAmount:   amount,
	}), nil
}

// deployLottery deploys the lottery against the provisioned subscription and waits for the
// network's confirmations.
func deployLottery(ctx context.Context, r *runner, st State) (State, error) {
	netCtx := st.Network()

	sub, ok := st.Subscription()
	if !ok {
		return st, fmt.Errorf("%w: no VRF subscription was provisioned", ErrDeployment)
	}

	params := netCtx.Parameters
	args := contracts.LotteryConstructorArgs{
		VRFCoordinator:   sub.Coordinator,
		EntranceFee:      params.EntranceFee(),
		GasLane:          params.GasLane,
		SubscriptionID:   sub.SubscriptionID,
		CallbackGasLimit: params.CallbackGasLimit,
		Interval:         params.Interval(),
	}
	if err := args.Validate(); err != nil {
		return st, fmt.Errorf("%w: invalid lottery constructor args: %w", ErrConfiguration, err)
	}

	lottery, err := r.deps.Artifacts.Load(contracts.LotteryContractName)
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrDeployment, err)
	}

	packed, err := args.Pack(lottery.ABI)
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrDeployment, err)
	}

	confirmations := netCtx.Confirmations()
	r.lggr.Infow("Deploying lottery",
		"deployer", r.deps.Chain.DeployerAddress().Hex(), "confirmations", confirmations,
	)

	report, err := operations.ExecuteOperation(r.bundle(ctx), opDeployLottery,
		opDeps{Chain: r.deps.Chain, Artifact: lottery},
		DeployLotteryInput{Args: args, Confirmations: confirmations},
	)
	if err != nil {
		return st, fmt.Errorf("%w: failed to deploy %s: %w", ErrDeployment, contracts.LotteryContractName, err)
	}

	record := DeploymentRecord{
		Address:         report.Output.Address,
		ConstructorArgs: args,
		PackedArgs:      packed,
		TxHash:          report.Output.TxHash,
		BlockNumber:     report.Output.BlockNumber,
		Confirmations:   confirmations,
	}

	r.lggr.Infow("Deployed lottery",
		"address", record.Address.Hex(), "txHash", record.TxHash.Hex(), "block", record.BlockNumber,
	)

	return st.withDeployment(record), nil
}

// addConsumer registers the lottery with the mock subscription so it can request randomness.
func addConsumer(ctx context.Context, r *runner, st State) (State, error) {
	netCtx := st.Network()
	if !netCtx.IsEphemeral() {
		return st, skip("consumers of existing subscriptions on %s are managed outside this run", netCtx.Network.Name)
	}

	sub, ok := st.Subscription()
	if !ok {
		return st, fmt.Errorf("%w: no VRF subscription was provisioned", ErrProvisioning)
	}
	dep, ok := st.Deployment()
	if !ok {
		return st, fmt.Errorf("%w: lottery was not deployed", ErrProvisioning)
	}

	mock, err := r.deps.Artifacts.Load(contracts.VRFCoordinatorMockName)
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrProvisioning, err)
	}

	if _, err = operations.ExecuteOperation(r.bundle(ctx), opAddConsumer,
		opDeps{Chain: r.deps.Chain, Artifact: mock},
		AddConsumerInput{Coordinator: sub.Coordinator, SubscriptionID: sub.SubscriptionID, Consumer: dep.Address},
	); err != nil {
		return st, fmt.Errorf("%w: failed to add consumer %s: %w", ErrProvisioning, dep.Address.Hex(), err)
	}

	r.lggr.Infow("Added lottery as VRF consumer", "subscriptionID", sub.SubscriptionID, "consumer", dep.Address.Hex())

	return st.withConsumerRegistered(), nil
}

// verify submits the lottery for source verification on persistent networks. Failures are
// logged and recorded in the state, never returned.
func verify(ctx context.Context, r *runner, st State) (State, error) {
	netCtx := st.Network()
	if netCtx.IsEphemeral() {
		return st, skip("%s is an ephemeral network", netCtx.Network.Name)
	}
	if !r.opts.Verify {
		return st, skip("verification is not enabled")
	}

	dep, ok := st.Deployment()
	if !ok {
		return st, fmt.Errorf("%w: lottery was not deployed", ErrDeployment)
	}

	lottery, err := r.deps.Artifacts.Load(contracts.LotteryContractName)
	if err != nil {
		r.lggr.Warnw("Verification failed", "address", dep.Address.Hex(), "err", err)
		return st.withVerification(VerificationFailed), nil
	}

	bi, err := r.deps.Artifacts.BuildInfo(lottery)
	if err != nil {
		r.lggr.Warnw("Verification failed", "address", dep.Address.Hex(), "err", err)
		return st.withVerification(VerificationFailed), nil
	}

	r.lggr.Infow("Verifying contract", "address", dep.Address.Hex(), "contract", lottery.FullyQualifiedName())

	report, err := operations.ExecuteOperation(r.bundle(ctx), opVerify,
		verifyDeps{Verifier: r.deps.Verifier, SourceCode: bi.Input},
		VerifyInput{
			Address:         dep.Address,
			ContractName:    lottery.FullyQualifiedName(),
			CompilerVersion: bi.CompilerVersion(),
			ConstructorArgs: dep.PackedArgs,
		},
	)

	switch {
	case err == nil:
		r.lggr.Infow("Contract verified", "address", dep.Address.Hex(), "status", report.Output.Status)
		return st.withVerification(VerificationVerified), nil
	case verification.IsAlreadyVerified(err):
		r.lggr.Infow("Contract already verified", "address", dep.Address.Hex())
		return st.withVerification(VerificationAlreadyVerified), nil
	default:
		r.lggr.Warnw("Verification failed", "address", dep.Address.Hex(), "err", err)
		return st.withVerification(VerificationFailed), nil
	}
}

// updateFrontEnd writes the lottery address and ABI to the front-end documents.
func updateFrontEnd(ctx context.Context, r *runner, st State) (State, error) {
	if !r.opts.UpdateFrontEnd {
		return st, skip("front-end update is not enabled")
	}

	dep, ok := st.Deployment()
	if !ok {
		return st, fmt.Errorf("%w: lottery was not deployed", ErrArtifactSync)
	}

	lottery, err := r.deps.Artifacts.Load(contracts.LotteryContractName)
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrArtifactSync, err)
	}

	abi, err := lottery.CompactABI()
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrArtifactSync, err)
	}

	r.lggr.Infow("Updating front end", "chainID", st.Network().Network.ChainID, "address", dep.Address.Hex())

	if err := r.deps.Publisher.Sync(ctx, st.Network().Network.ChainID, dep.Address, abi); err != nil {
		return st, fmt.Errorf("%w: %w", ErrArtifactSync, err)
	}

	r.lggr.Infow("Front end written")

	return st.withArtifactsSynced(), nil
}
