package contracts

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// VRFCoordinatorMockName is the artifact name of the local VRF coordinator.
const VRFCoordinatorMockName = "VRFCoordinatorV2Mock"

// Coordinator methods and events.
const (
	MethodCreateSubscription = "createSubscription"
	MethodFundSubscription   = "fundSubscription"
	MethodAddConsumer        = "addConsumer"
	EventSubscriptionCreated = "SubscriptionCreated"
)

var (
	// MockBaseFee is the premium the mock charges per request, 0.25 LINK.
	MockBaseFee = big.NewInt(250_000_000_000_000_000)
	// MockGasPriceLink is the LINK per gas the mock charges, 1e9.
	MockGasPriceLink = big.NewInt(1_000_000_000)
	// SubscriptionFundAmount is the amount a fresh mock subscription is funded with, 0.5 LINK.
	SubscriptionFundAmount = big.NewInt(500_000_000_000_000_000)
)

// ErrNoSubscriptionCreated is returned when a receipt carries no usable SubscriptionCreated event.
var ErrNoSubscriptionCreated = errors.New("no SubscriptionCreated event in receipt")

// MockConstructorArgs are the VRFCoordinatorV2Mock constructor arguments.
type MockConstructorArgs struct {
	BaseFee      *big.Int `json:"baseFee"`
	GasPriceLink *big.Int `json:"gasPriceLink"`
}

// DefaultMockConstructorArgs returns copies of MockBaseFee and MockGasPriceLink.
func DefaultMockConstructorArgs() MockConstructorArgs {
	return MockConstructorArgs{
		BaseFee:      new(big.Int).Set(MockBaseFee),
		GasPriceLink: new(big.Int).Set(MockGasPriceLink),
	}
}

// Values returns the arguments in constructor order.
func (a MockConstructorArgs) Values() []any {
	return []any{a.BaseFee, a.GasPriceLink}
}

// SubscriptionCreated is the decoded SubscriptionCreated(uint64 indexed subId, address owner)
// event.
type SubscriptionCreated struct {
	SubID uint64
	Owner common.Address
}

// ParseSubscriptionCreated decodes the first SubscriptionCreated event emitted by coordinator in
// receipt. A zero subscription id is treated as missing.
func ParseSubscriptionCreated(
	parsed abi.ABI, coordinator common.Address, receipt *types.Receipt,
) (SubscriptionCreated, error) {
	ev, ok := parsed.Events[EventSubscriptionCreated]
	if !ok {
		return SubscriptionCreated{}, fmt.Errorf("coordinator ABI has no %s event", EventSubscriptionCreated)
	}
	if receipt == nil {
		return SubscriptionCreated{}, ErrNoSubscriptionCreated
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != coordinator || len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
			continue
		}

		fields := map[string]any{}
		if err := abi.ParseTopicsIntoMap(fields, indexed, lg.Topics[1:]); err != nil {
			return SubscriptionCreated{}, fmt.Errorf("failed to decode %s topics: %w", EventSubscriptionCreated, err)
		}
		if err := parsed.UnpackIntoMap(fields, EventSubscriptionCreated, lg.Data); err != nil {
			return SubscriptionCreated{}, fmt.Errorf("failed to decode %s data: %w", EventSubscriptionCreated, err)
		}

		subID, _ := fields["subId"].(uint64)
		if subID == 0 {
			return SubscriptionCreated{}, fmt.Errorf("%w: subscription id is zero", ErrNoSubscriptionCreated)
		}
		owner, _ := fields["owner"].(common.Address)

		return SubscriptionCreated{SubID: subID, Owner: owner}, nil
	}

	return SubscriptionCreated{}, ErrNoSubscriptionCreated
}
