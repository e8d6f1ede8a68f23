package network

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var validParameterSet = ParameterSet{
	ChainID:          5,
	EntranceFee:      "0.1 ether",
	GasLane:          "0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15",
	CallbackGasLimit: 50000,
	Interval:         30,
}

func Test_Config_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    *Config
		wantErr string
	}{
		{
			name: "valid config",
			give: NewConfig(
				[]Network{{Name: "goerli", ChainID: 5, RPCURL: "https://rpc"}},
				[]ParameterSet{validParameterSet},
			),
		},
		{
			name:    "invalid network",
			give:    NewConfig([]Network{{Name: "goerli"}}, nil),
			wantErr: "network goerli: chain id is required",
		},
		{
			name:    "invalid parameters",
			give:    NewConfig(nil, []ParameterSet{{ChainID: 5, EntranceFee: "1", GasLane: validParameterSet.GasLane, Interval: 30}}),
			wantErr: "parameters for chain 5: callback gas limit is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.give.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.EqualError(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_Config_MarshalYAML(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(
		[]Network{
			{
				Name:               "goerli",
				ChainID:            5,
				RPCURL:             "https://rpc",
				BlockConfirmations: 6,
				BlockExplorer:      BlockExplorer{APIURL: "https://api.etherscan.io/v2/api", URL: "https://goerli.etherscan.io"},
			},
			{Name: "hardhat", ChainID: 31337},
		},
		[]ParameterSet{validParameterSet},
	)

	b, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	want := `networks:
    - name: goerli
      chain_id: 5
      rpc_url: https://rpc
      block_confirmations: 6
      block_explorer:
        api_url: https://api.etherscan.io/v2/api
        url: https://goerli.etherscan.io
    - name: hardhat
      chain_id: 31337
parameters:
    - chain_id: 5
      entrance_fee: 0.1 ether
      gas_lane: "0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15"
      callback_gas_limit: 50000
      interval: 30
`

	assert.YAMLEq(t, want, string(b))
}

func Test_Config_UnmarshalYAML(t *testing.T) {
	t.Parallel()

	give := `
networks:
  - name: goerli
    chain_id: 5
    rpc_url: https://rpc
parameters:
  - chain_id: 5
    entrance_fee: 0.1 ether
    gas_lane: "0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15"
    callback_gas_limit: 50000
    interval: 30
`

	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(give), &cfg))

	n, err := cfg.NetworkByName("goerli")
	require.NoError(t, err)
	assert.Equal(t, Network{Name: "goerli", ChainID: 5, RPCURL: "https://rpc"}, n)

	_, err = cfg.ParametersByChainID(5)
	require.NoError(t, err)
}

func Test_Config_Lookups(t *testing.T) {
	t.Parallel()

	cfg := NewConfig([]Network{{Name: "goerli", ChainID: 5}}, nil)

	_, err := cfg.NetworkByName("mainnet")
	require.ErrorIs(t, err, ErrNetworkNotFound)
	require.EqualError(t, err, `network not found: "mainnet" is not in the configuration`)

	_, err = cfg.ParametersByChainID(5)
	require.ErrorIs(t, err, ErrParametersNotFound)
	require.EqualError(t, err, "parameters not found: no parameters for chain id 5")
}

func Test_Config_Merge(t *testing.T) {
	t.Parallel()

	cfg := NewConfig([]Network{{Name: "goerli", ChainID: 5, BlockConfirmations: 6}}, nil)
	cfg.Merge(NewConfig(
		[]Network{{Name: "goerli", ChainID: 5, BlockConfirmations: 2}, {Name: "hardhat", ChainID: 31337}},
		[]ParameterSet{validParameterSet},
	))

	got := cfg.Networks()
	require.Len(t, got, 2)
	assert.Equal(t, "goerli", got[0].Name)
	assert.Equal(t, uint64(2), got[0].BlockConfirmations)
	assert.Equal(t, "hardhat", got[1].Name)

	_, err := cfg.ParametersByChainID(5)
	require.NoError(t, err)
}

func Test_Config_FilterWith(t *testing.T) {
	t.Parallel()

	cfg := NewConfig([]Network{
		{Name: "hardhat", ChainID: 31337},
		{Name: "localhost", ChainID: 31337},
		{Name: "goerli", ChainID: 5},
	}, []ParameterSet{validParameterSet})

	tests := []struct {
		name      string
		giveFilts []NetworkFilter
		want      []string
	}{
		{name: "no filters", want: []string{"goerli", "hardhat", "localhost"}},
		{name: "ephemeral", giveFilts: []NetworkFilter{TypesFilter(NetworkTypeEphemeral)}, want: []string{"hardhat", "localhost"}},
		{name: "persistent", giveFilts: []NetworkFilter{TypesFilter(NetworkTypePersistent)}, want: []string{"goerli"}},
		{name: "chain id", giveFilts: []NetworkFilter{ChainIDFilter(31337)}, want: []string{"hardhat", "localhost"}},
		{
			name:      "combined",
			giveFilts: []NetworkFilter{TypesFilter(NetworkTypePersistent), ChainIDFilter(31337)},
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := cfg.FilterWith(tt.giveFilts...)

			names := []string{}
			for _, n := range got.Networks() {
				names = append(names, n.Name)
			}
			assert.Equal(t, tt.want, names)

			_, err := got.ParametersByChainID(5)
			require.NoError(t, err)
		})
	}
}

func Test_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Defaults()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	names := []string{}
	for _, n := range cfg.Networks() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"goerli", "hardhat", "localhost"}, names)

	goerli, err := cfg.NetworkByName("goerli")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), goerli.ChainID)
	assert.Equal(t, uint64(6), goerli.Confirmations())
	assert.Equal(t, "${GOERLI_RPC_URL}", goerli.RPCURL)

	params, err := cfg.ParametersByChainID(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(1069), params.SubscriptionID)
	assert.Equal(t, "100000000000000000", params.EntranceFee().String())

	local, err := cfg.ParametersByChainID(31337)
	require.NoError(t, err)
	assert.Nil(t, local.VRFCoordinator)
	assert.Zero(t, local.SubscriptionID)
	assert.Equal(t, "2000000000000000000", local.EntranceFee().String())
	assert.Equal(t, uint32(500000), local.CallbackGasLimit)
}

func Test_Load(t *testing.T) {
	t.Parallel()

	urls := map[string]string{"${TEST_GOERLI_RPC_URL}": "https://goerli.rpc.example"}
	transform := func(s string) string {
		if v, ok := urls[s]; ok {
			return v
		}

		return s
	}

	tests := []struct {
		name      string
		givePaths []string
		giveOpts  []LoadOption
		assert    func(t *testing.T, cfg *Config)
		wantErr   string
	}{
		{
			name:      "defaults",
			givePaths: nil,
			assert: func(t *testing.T, cfg *Config) {
				t.Helper()

				assert.Len(t, cfg.Networks(), 3)
			},
		},
		{
			name:      "yaml override with transformer",
			givePaths: []string{"testdata/networks_override.yml"},
			giveOpts:  []LoadOption{WithRPCURLTransformer(transform)},
			assert: func(t *testing.T, cfg *Config) {
				t.Helper()

				require.Len(t, cfg.Networks(), 4)

				goerli, err := cfg.NetworkByName("goerli")
				require.NoError(t, err)
				assert.Equal(t, "https://goerli.rpc.example", goerli.RPCURL)
				assert.Equal(t, uint64(3), goerli.BlockConfirmations)

				mumbai, err := cfg.ParametersByChainID(80001)
				require.NoError(t, err)
				assert.Equal(t, "10000000000", mumbai.EntranceFee().String())

				// hardhat keeps its empty url
				hardhat, err := cfg.NetworkByName("hardhat")
				require.NoError(t, err)
				assert.Empty(t, hardhat.RPCURL)
			},
		},
		{
			name:      "toml without defaults",
			givePaths: []string{"testdata/networks.toml"},
			giveOpts:  []LoadOption{WithoutDefaults()},
			assert: func(t *testing.T, cfg *Config) {
				t.Helper()

				require.Len(t, cfg.Networks(), 1)

				sepolia, err := cfg.NetworkByName("sepolia")
				require.NoError(t, err)
				assert.Equal(t, uint64(11155111), sepolia.ChainID)
				assert.Equal(t, "https://sepolia.etherscan.io", sepolia.BlockExplorer.URL)

				params, err := cfg.ParametersByChainID(11155111)
				require.NoError(t, err)
				assert.Equal(t, uint64(42), params.SubscriptionID)
				assert.Equal(t, "10000000000000000", params.EntranceFee().String())
			},
		},
		{
			name:      "multiple files merge in order",
			givePaths: []string{"testdata/networks_override.yml", "testdata/networks.toml"},
			assert: func(t *testing.T, cfg *Config) {
				t.Helper()

				assert.Len(t, cfg.Networks(), 5)
			},
		},
		{
			name:      "missing file",
			givePaths: []string{"testdata/missing.yml"},
			wantErr:   "failed to read networks file",
		},
		{
			name:      "invalid yaml",
			givePaths: []string{"testdata/invalid_yaml.yaml"},
			wantErr:   "failed to unmarshal networks YAML",
		},
		{
			name:      "invalid network",
			givePaths: []string{"testdata/invalid_network.yaml"},
			wantErr:   "failed to validate networks configuration: network nochain: chain id is required",
		},
		{
			name:      "invalid parameters",
			givePaths: []string{"testdata/invalid_parameters.yaml"},
			wantErr:   `parameters for chain 99: entrance fee: invalid amount "lots"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Load(tt.givePaths, tt.giveOpts...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			tt.assert(t, cfg)
		})
	}
}

func Test_Load_InvalidTOML(t *testing.T) {
	t.Parallel()

	fp := filepath.Join(t.TempDir(), "networks.TOML")
	require.NoError(t, os.WriteFile(fp, []byte(strings.Repeat("[", 3)), 0o600))

	_, err := Load([]string{fp})
	require.ErrorContains(t, err, "failed to unmarshal networks TOML")
}

func Test_Load_EmptyYAML(t *testing.T) {
	t.Parallel()

	fp := filepath.Join(t.TempDir(), "empty.yml")
	require.NoError(t, os.WriteFile(fp, nil, 0o600))

	cfg, err := Load([]string{fp})
	require.NoError(t, err)
	assert.Len(t, cfg.Networks(), 3)
}
