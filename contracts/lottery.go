package contracts

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// LotteryContractName is the artifact name of the deployed contract.
const LotteryContractName = "Lottery"

// LotteryConstructorArgs are the Lottery constructor arguments.
type LotteryConstructorArgs struct {
	VRFCoordinator   common.Address `json:"vrfCoordinator"`
	EntranceFee      *big.Int       `json:"entranceFee"`
	GasLane          common.Hash    `json:"gasLane"`
	SubscriptionID   uint64         `json:"subscriptionId"`
	CallbackGasLimit uint32         `json:"callbackGasLimit"`
	Interval         *big.Int       `json:"interval"`
}

// Validate checks that every argument is set.
func (a LotteryConstructorArgs) Validate() error {
	var errs []error
	if a.VRFCoordinator == (common.Address{}) {
		errs = append(errs, errors.New("vrf coordinator is required"))
	}
	if a.EntranceFee == nil || a.EntranceFee.Sign() < 0 {
		errs = append(errs, errors.New("entrance fee must be a non-negative amount"))
	}
	if a.GasLane == (common.Hash{}) {
		errs = append(errs, errors.New("gas lane is required"))
	}
	if a.SubscriptionID == 0 {
		errs = append(errs, errors.New("subscription id is required"))
	}
	if a.CallbackGasLimit == 0 {
		errs = append(errs, errors.New("callback gas limit is required"))
	}
	if a.Interval == nil || a.Interval.Sign() <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}

	return errors.Join(errs...)
}

// Values returns the arguments in constructor order: coordinator, entranceFee, gasLane,
// subscriptionId, callbackGasLimit, interval.
func (a LotteryConstructorArgs) Values() []any {
	return []any{
		a.VRFCoordinator,
		a.EntranceFee,
		[32]byte(a.GasLane),
		a.SubscriptionID,
		a.CallbackGasLimit,
		a.Interval,
	}
}

// Pack ABI encodes the arguments against the constructor of parsed, as appended to the creation
// bytecode and as submitted for source verification.
func (a LotteryConstructorArgs) Pack(parsed abi.ABI) ([]byte, error) {
	b, err := parsed.Pack("", a.Values()...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack lottery constructor args: %w", err)
	}

	return b, nil
}
