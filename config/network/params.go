package network

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParameterSet is the manifest representation of the deployment parameters for a chain id.
// Amounts are strings so they can carry a unit, e.g. "0.1 ether".
type ParameterSet struct {
	ChainID          uint64 `yaml:"chain_id" toml:"chain_id"`
	EntranceFee      string `yaml:"entrance_fee" toml:"entrance_fee"`
	GasLane          string `yaml:"gas_lane" toml:"gas_lane"`
	CallbackGasLimit uint32 `yaml:"callback_gas_limit" toml:"callback_gas_limit"`
	Interval         uint64 `yaml:"interval" toml:"interval"`
	// VRFCoordinator and SubscriptionID reference pre-existing VRF state and are only read on
	// persistent networks.
	VRFCoordinator string `yaml:"vrf_coordinator,omitempty" toml:"vrf_coordinator,omitempty"`
	SubscriptionID uint64 `yaml:"subscription_id,omitempty" toml:"subscription_id,omitempty"`
}

// Parameters are the typed deployment parameters for a chain id. They are immutable once
// parsed: getters that expose big integers return copies.
type Parameters struct {
	ChainID          uint64
	entranceFee      *big.Int
	GasLane          common.Hash
	CallbackGasLimit uint32
	interval         *big.Int
	// VRFCoordinator is nil when the parameter set does not reference an existing coordinator.
	VRFCoordinator *common.Address
	// SubscriptionID is zero when the parameter set does not reference an existing subscription.
	SubscriptionID uint64
}

// EntranceFee returns the lottery entrance fee in wei.
func (p Parameters) EntranceFee() *big.Int {
	return new(big.Int).Set(p.entranceFee)
}

// Interval returns the lottery interval in seconds.
func (p Parameters) Interval() *big.Int {
	return new(big.Int).Set(p.interval)
}

// Parse converts the manifest representation into typed Parameters.
func (s ParameterSet) Parse() (Parameters, error) {
	var errs []error

	if s.ChainID == 0 {
		errs = append(errs, errors.New("chain id is required"))
	}

	fee, err := ParseAmount(s.EntranceFee)
	if err != nil {
		errs = append(errs, fmt.Errorf("entrance fee: %w", err))
	}

	lane, err := parseGasLane(s.GasLane)
	if err != nil {
		errs = append(errs, fmt.Errorf("gas lane: %w", err))
	}

	if s.CallbackGasLimit == 0 {
		errs = append(errs, errors.New("callback gas limit is required"))
	}

	if s.Interval == 0 {
		errs = append(errs, errors.New("interval is required"))
	}

	var coordinator *common.Address
	if s.VRFCoordinator != "" {
		if !common.IsHexAddress(s.VRFCoordinator) {
			errs = append(errs, fmt.Errorf("vrf coordinator %q is not a hex address", s.VRFCoordinator))
		} else {
			addr := common.HexToAddress(s.VRFCoordinator)
			coordinator = &addr
		}
	}

	if len(errs) > 0 {
		return Parameters{}, errors.Join(errs...)
	}

	return Parameters{
		ChainID:          s.ChainID,
		entranceFee:      fee,
		GasLane:          lane,
		CallbackGasLimit: s.CallbackGasLimit,
		interval:         new(big.Int).SetUint64(s.Interval),
		VRFCoordinator:   coordinator,
		SubscriptionID:   s.SubscriptionID,
	}, nil
}

func parseGasLane(s string) (common.Hash, error) {
	if s == "" {
		return common.Hash{}, errors.New("is required")
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%q: %w", s, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%q must be %d bytes, got %d", s, common.HashLength, len(b))
	}

	return common.BytesToHash(b), nil
}

// units maps the accepted amount suffixes to their power of ten.
var units = map[string]int64{
	"wei":   0,
	"gwei":  9,
	"ether": 18,
}

// ParseAmount parses an amount in wei. The amount may carry a unit suffix of wei, gwei or ether
// and may be fractional as long as it resolves to a whole number of wei, e.g. "0.1 ether".
func ParseAmount(s string) (*big.Int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	exp := int64(0)
	if len(fields) == 2 {
		e, ok := units[strings.ToLower(fields[1])]
		if !ok {
			return nil, fmt.Errorf("invalid amount %q: unknown unit %q", s, fields[1])
		}
		exp = e
	}

	r, ok := new(big.Rat).SetString(fields[0])
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q: must not be negative", s)
	}

	r.Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)))
	if !r.IsInt() {
		return nil, fmt.Errorf("invalid amount %q: not a whole number of wei", s)
	}

	return new(big.Int).Set(r.Num()), nil
}
