package pipeline

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/operations"
	"github.com/smartcontractkit/lottery-deployments/verification"
)

// ChainClient sends and confirms transactions on the target chain. It is implemented by
// evm.Chain.
type ChainClient interface {
	DeployContract(
		ctx context.Context, parsed abi.ABI, bytecode []byte, confirmations uint64, args ...any,
	) (common.Address, *types.Receipt, error)
	Transact(
		ctx context.Context, address common.Address, parsed abi.ABI, confirmations uint64, method string, args ...any,
	) (*types.Receipt, error)
	DeployerAddress() common.Address
}

// Verifier submits a deployed contract to a source verification service. It is implemented by
// verification.Client.
type Verifier interface {
	Verify(ctx context.Context, req verification.Request) (verification.Result, error)
}

// opDeps are the dependencies of every on-chain operation.
type opDeps struct {
	Chain    ChainClient
	Artifact contracts.Artifact
}

var version1_0_0 = semver.MustParse("1.0.0")

// TxOutput is the output of an operation that sent a single transaction.
type TxOutput struct {
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
}

func txOutput(receipt *types.Receipt) TxOutput {
	if receipt == nil {
		return TxOutput{}
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}

	return TxOutput{TxHash: receipt.TxHash, BlockNumber: block}
}

// DeployMockInput are the VRFCoordinatorV2Mock constructor arguments.
type DeployMockInput struct {
	Args contracts.MockConstructorArgs `json:"args"`
}

// DeployOutput is the output of a contract deployment.
type DeployOutput struct {
	TxOutput
	Address common.Address `json:"address"`
}

var opDeployMock = operations.NewOperation(
	"vrf-coordinator-mock-deploy",
	version1_0_0,
	"Deploys the VRFCoordinatorV2Mock contract",
	func(b operations.Bundle, deps opDeps, in DeployMockInput) (DeployOutput, error) {
		addr, receipt, err := deps.Chain.DeployContract(
			b.GetContext(), deps.Artifact.ABI, deps.Artifact.Bytecode, 1, in.Args.Values()...,
		)
		if err != nil {
			return DeployOutput{}, err
		}

		return DeployOutput{TxOutput: txOutput(receipt), Address: addr}, nil
	},
)

// CreateSubscriptionInput references the coordinator to create a subscription on.
type CreateSubscriptionInput struct {
	Coordinator common.Address `json:"coordinator"`
}

// CreateSubscriptionOutput carries the id assigned to the new subscription.
type CreateSubscriptionOutput struct {
	TxOutput
	SubscriptionID uint64 `json:"subscriptionId"`
}

var opCreateSubscription = operations.NewOperation(
	"vrf-subscription-create",
	version1_0_0,
	"Creates a VRF subscription on the coordinator mock",
	func(b operations.Bundle, deps opDeps, in CreateSubscriptionInput) (CreateSubscriptionOutput, error) {
		receipt, err := deps.Chain.Transact(
			b.GetContext(), in.Coordinator, deps.Artifact.ABI, 1, contracts.MethodCreateSubscription,
		)
		if err != nil {
			return CreateSubscriptionOutput{}, err
		}

		ev, err := contracts.ParseSubscriptionCreated(deps.Artifact.ABI, in.Coordinator, receipt)
		if err != nil {
			return CreateSubscriptionOutput{}, err
		}

		return CreateSubscriptionOutput{TxOutput: txOutput(receipt), SubscriptionID: ev.SubID}, nil
	},
)

// FundSubscriptionInput funds a subscription on the coordinator mock.
type FundSubscriptionInput struct {
	Coordinator    common.Address `json:"coordinator"`
	SubscriptionID uint64         `json:"subscriptionId"`
	Amount         *big.Int       `json:"amount"`
}

var opFundSubscription = operations.NewOperation(
	"vrf-subscription-fund",
	version1_0_0,
	"Funds a VRF subscription on the coordinator mock",
	func(b operations.Bundle, deps opDeps, in FundSubscriptionInput) (TxOutput, error) {
		receipt, err := deps.Chain.Transact(
			b.GetContext(), in.Coordinator, deps.Artifact.ABI, 1, contracts.MethodFundSubscription,
			in.SubscriptionID, in.Amount,
		)
		if err != nil {
			return TxOutput{}, err
		}

		return txOutput(receipt), nil
	},
)

// DeployLotteryInput are the lottery constructor arguments and the confirmations to wait for.
type DeployLotteryInput struct {
	Args          contracts.LotteryConstructorArgs `json:"args"`
	Confirmations uint64                           `json:"confirmations"`
}

var opDeployLottery = operations.NewOperation(
	"lottery-deploy",
	version1_0_0,
	"Deploys the Lottery contract",
	func(b operations.Bundle, deps opDeps, in DeployLotteryInput) (DeployOutput, error) {
		addr, receipt, err := deps.Chain.DeployContract(
			b.GetContext(), deps.Artifact.ABI, deps.Artifact.Bytecode, in.Confirmations, in.Args.Values()...,
		)
		if err != nil {
			return DeployOutput{}, err
		}

		return DeployOutput{TxOutput: txOutput(receipt), Address: addr}, nil
	},
)

// AddConsumerInput registers a consumer on a subscription of the coordinator mock.
type AddConsumerInput struct {
	Coordinator    common.Address `json:"coordinator"`
	SubscriptionID uint64         `json:"subscriptionId"`
	Consumer       common.Address `json:"consumer"`
}

var opAddConsumer = operations.NewOperation(
	"vrf-consumer-add",
	version1_0_0,
	"Adds the lottery as a consumer of the VRF subscription",
	func(b operations.Bundle, deps opDeps, in AddConsumerInput) (TxOutput, error) {
		receipt, err := deps.Chain.Transact(
			b.GetContext(), in.Coordinator, deps.Artifact.ABI, 1, contracts.MethodAddConsumer,
			in.SubscriptionID, in.Consumer,
		)
		if err != nil {
			return TxOutput{}, err
		}

		return txOutput(receipt), nil
	},
)

// VerifyInput is the contract submitted for source verification.
type VerifyInput struct {
	Address         common.Address `json:"address"`
	ContractName    string         `json:"contractName"`
	CompilerVersion string         `json:"compilerVersion"`
	ConstructorArgs []byte         `json:"constructorArgs"`
}

// verifyDeps are the dependencies of the verify operation. The source is kept out of the input
// so it does not bloat the report.
type verifyDeps struct {
	Verifier   Verifier
	SourceCode []byte
}

var opVerify = operations.NewOperation(
	"lottery-verify",
	version1_0_0,
	"Submits the Lottery contract for source verification",
	func(b operations.Bundle, deps verifyDeps, in VerifyInput) (verification.Result, error) {
		res, err := deps.Verifier.Verify(b.GetContext(), verification.Request{
			Address:         in.Address,
			ContractName:    in.ContractName,
			CompilerVersion: in.CompilerVersion,
			SourceCode:      deps.SourceCode,
			ConstructorArgs: in.ConstructorArgs,
		})
		if err != nil {
			return verification.Result{}, fmt.Errorf("failed to verify %s: %w", in.Address.Hex(), err)
		}

		return res, nil
	},
)
