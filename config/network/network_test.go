package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Classify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		give string
		want NetworkType
	}{
		{give: "hardhat", want: NetworkTypeEphemeral},
		{give: "localhost", want: NetworkTypeEphemeral},
		{give: "goerli", want: NetworkTypePersistent},
		{give: "Hardhat", want: NetworkTypePersistent},
		{give: "", want: NetworkTypePersistent},
	}

	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Classify(tt.give))
		})
	}
}

func Test_EphemeralNetworks_ReturnsCopy(t *testing.T) {
	t.Parallel()

	got := EphemeralNetworks()
	got[0] = "mainnet"

	assert.Equal(t, NetworkTypePersistent, Classify("mainnet"))
	assert.Equal(t, []string{"hardhat", "localhost"}, EphemeralNetworks())
}

func Test_Network_Confirmations(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(1), Network{}.Confirmations())
	assert.Equal(t, uint64(6), Network{BlockConfirmations: 6}.Confirmations())
}

func Test_Network_InProcess(t *testing.T) {
	t.Parallel()

	assert.True(t, Network{Name: "hardhat"}.InProcess())
	assert.False(t, Network{Name: "hardhat", RPCURL: "http://127.0.0.1:8545"}.InProcess())
	assert.False(t, Network{Name: "localhost"}.InProcess())
}

func Test_Network_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    Network
		wantErr string
	}{
		{name: "valid", give: Network{Name: "goerli", ChainID: 5, RPCURL: "https://rpc"}},
		{name: "in process without rpc", give: Network{Name: "hardhat", ChainID: 31337}},
		{name: "missing name", give: Network{ChainID: 5}, wantErr: "name is required"},
		{name: "missing chain id", give: Network{Name: "goerli"}, wantErr: "chain id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.give.Validate()
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
