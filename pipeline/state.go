package pipeline

import (
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/contracts"
)

// SubscriptionHandle references the VRF subscription the lottery consumes.
type SubscriptionHandle struct {
	Coordinator    common.Address `json:"coordinator"`
	SubscriptionID uint64         `json:"subscriptionId"`
	// FundedAmount is the amount this run funded the subscription with. It is nil for
	// pre-existing subscriptions.
	FundedAmount *big.Int `json:"fundedAmount,omitempty"`
}

func (h SubscriptionHandle) clone() SubscriptionHandle {
	if h.FundedAmount != nil {
		h.FundedAmount = new(big.Int).Set(h.FundedAmount)
	}

	return h
}

// DeploymentRecord is the confirmed lottery deployment.
type DeploymentRecord struct {
	Address         common.Address                   `json:"address"`
	ConstructorArgs contracts.LotteryConstructorArgs `json:"constructorArgs"`
	// PackedArgs is the ABI encoding of ConstructorArgs.
	PackedArgs    []byte      `json:"packedArgs"`
	TxHash        common.Hash `json:"txHash"`
	BlockNumber   uint64      `json:"blockNumber"`
	Confirmations uint64      `json:"confirmations"`
}

func (r DeploymentRecord) clone() DeploymentRecord {
	args := r.ConstructorArgs
	if args.EntranceFee != nil {
		args.EntranceFee = new(big.Int).Set(args.EntranceFee)
	}
	if args.Interval != nil {
		args.Interval = new(big.Int).Set(args.Interval)
	}
	r.ConstructorArgs = args
	r.PackedArgs = slices.Clone(r.PackedArgs)

	return r
}

// VerificationStatus is the outcome of the verify stage.
type VerificationStatus string

const (
	VerificationNotRun          VerificationStatus = ""
	VerificationVerified        VerificationStatus = "verified"
	VerificationAlreadyVerified VerificationStatus = "already-verified"
	// VerificationFailed is recorded when the service rejected the submission. The deployment is
	// unaffected.
	VerificationFailed VerificationStatus = "failed"
)

// State is the immutable context threaded through the stages. Every stage receives the state
// produced by the previous one and returns a new State with its output added. Accessors return
// copies.
type State struct {
	network            network.Context
	mockCoordinator    *common.Address
	subscription       *SubscriptionHandle
	deployment         *DeploymentRecord
	consumerRegistered bool
	verification       VerificationStatus
	artifactsSynced    bool
}

// NewState returns the initial state for a run on the resolved network.
func NewState(netCtx network.Context) State {
	return State{network: netCtx}
}

// Network returns the resolved network of the run.
func (s State) Network() network.Context {
	return s.network
}

// MockCoordinator returns the address of the coordinator mock deployed by this run.
func (s State) MockCoordinator() (common.Address, bool) {
	if s.mockCoordinator == nil {
		return common.Address{}, false
	}

	return *s.mockCoordinator, true
}

// Subscription returns the provisioned subscription.
func (s State) Subscription() (SubscriptionHandle, bool) {
	if s.subscription == nil {
		return SubscriptionHandle{}, false
	}

	return s.subscription.clone(), true
}

// Deployment returns the lottery deployment record.
func (s State) Deployment() (DeploymentRecord, bool) {
	if s.deployment == nil {
		return DeploymentRecord{}, false
	}

	return s.deployment.clone(), true
}

// ConsumerRegistered reports whether the lottery was added as a consumer of the subscription.
func (s State) ConsumerRegistered() bool {
	return s.consumerRegistered
}

// Verification returns the verification outcome.
func (s State) Verification() VerificationStatus {
	return s.verification
}

// ArtifactsSynced reports whether the front-end artifacts were written.
func (s State) ArtifactsSynced() bool {
	return s.artifactsSynced
}

func (s State) withMockCoordinator(addr common.Address) State {
	s.mockCoordinator = &addr

	return s
}

func (s State) withSubscription(h SubscriptionHandle) State {
	h = h.clone()
	s.subscription = &h

	return s
}

func (s State) withDeployment(r DeploymentRecord) State {
	r = r.clone()
	s.deployment = &r

	return s
}

func (s State) withConsumerRegistered() State {
	s.consumerRegistered = true

	return s
}

func (s State) withVerification(v VerificationStatus) State {
	s.verification = v

	return s
}

func (s State) withArtifactsSynced() State {
	s.artifactsSynced = true

	return s
}
