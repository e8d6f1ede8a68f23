package contracts

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLotteryArgs() LotteryConstructorArgs {
	return LotteryConstructorArgs{
		VRFCoordinator:   common.HexToAddress("0x2Ca8E0C643bDe4C2E08ab1fA0da3401AdAD7734D"),
		EntranceFee:      big.NewInt(100_000_000_000_000_000),
		GasLane:          common.HexToHash("0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15"),
		SubscriptionID:   1069,
		CallbackGasLimit: 50000,
		Interval:         big.NewInt(30),
	}
}

func Test_LotteryConstructorArgs_Values(t *testing.T) {
	t.Parallel()

	args := validLotteryArgs()
	got := args.Values()

	require.Len(t, got, 6)
	assert.Equal(t, args.VRFCoordinator, got[0])
	assert.Equal(t, args.EntranceFee, got[1])
	assert.Equal(t, [32]byte(args.GasLane), got[2])
	assert.Equal(t, uint64(1069), got[3])
	assert.Equal(t, uint32(50000), got[4])
	assert.Equal(t, args.Interval, got[5])
}

func Test_LotteryConstructorArgs_Pack(t *testing.T) {
	t.Parallel()

	lottery, err := NewLoader(testArtifactsDir).Load(LotteryContractName)
	require.NoError(t, err)

	packed, err := validLotteryArgs().Pack(lottery.ABI)
	require.NoError(t, err)
	require.Len(t, packed, 6*32)

	// Arguments round trip in constructor order
	unpacked, err := lottery.ABI.Constructor.Inputs.Unpack(packed)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x2Ca8E0C643bDe4C2E08ab1fA0da3401AdAD7734D"), unpacked[0])
	assert.Equal(t, uint64(1069), unpacked[3])
	assert.Equal(t, uint32(50000), unpacked[4])
}

func Test_LotteryConstructorArgs_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    func(a *LotteryConstructorArgs)
		wantErr string
	}{
		{name: "valid", give: func(*LotteryConstructorArgs) {}},
		{name: "no coordinator", give: func(a *LotteryConstructorArgs) { a.VRFCoordinator = common.Address{} }, wantErr: "vrf coordinator is required"},
		{name: "no fee", give: func(a *LotteryConstructorArgs) { a.EntranceFee = nil }, wantErr: "entrance fee must be a non-negative amount"},
		{name: "no gas lane", give: func(a *LotteryConstructorArgs) { a.GasLane = common.Hash{} }, wantErr: "gas lane is required"},
		{name: "no subscription", give: func(a *LotteryConstructorArgs) { a.SubscriptionID = 0 }, wantErr: "subscription id is required"},
		{name: "no callback gas", give: func(a *LotteryConstructorArgs) { a.CallbackGasLimit = 0 }, wantErr: "callback gas limit is required"},
		{name: "zero interval", give: func(a *LotteryConstructorArgs) { a.Interval = big.NewInt(0) }, wantErr: "interval must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := validLotteryArgs()
			tt.give(&args)

			err := args.Validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
