package network

import (
	"errors"
	"slices"
)

// NetworkType classifies a network as a disposable local test network or a persistent public one.
type NetworkType string

const (
	NetworkTypeEphemeral  NetworkType = "ephemeral"
	NetworkTypePersistent NetworkType = "persistent"
)

// ephemeralNetworks are the network names treated as local development chains.
var ephemeralNetworks = []string{"hardhat", "localhost"}

// InProcessNetwork is the ephemeral network that runs on an in-process simulated chain when no
// RPC URL is configured for it.
const InProcessNetwork = "hardhat"

// Classify returns the NetworkType of a network by name. Only the fixed development names are
// ephemeral, everything else is persistent.
func Classify(name string) NetworkType {
	if slices.Contains(ephemeralNetworks, name) {
		return NetworkTypeEphemeral
	}

	return NetworkTypePersistent
}

// EphemeralNetworks returns the network names that Classify treats as ephemeral.
func EphemeralNetworks() []string {
	return slices.Clone(ephemeralNetworks)
}

// Network is a named chain the pipeline can deploy to.
type Network struct {
	Name    string `yaml:"name" toml:"name"`
	ChainID uint64 `yaml:"chain_id" toml:"chain_id"`
	// RPCURL may reference environment variables, e.g. ${GOERLI_RPC_URL}. Empty is only valid for
	// the in-process network.
	RPCURL string `yaml:"rpc_url,omitempty" toml:"rpc_url,omitempty"`
	// BlockConfirmations is how many blocks a transaction must be buried under. Zero means one.
	BlockConfirmations uint64        `yaml:"block_confirmations,omitempty" toml:"block_confirmations,omitempty"`
	BlockExplorer      BlockExplorer `yaml:"block_explorer,omitempty" toml:"block_explorer,omitempty"`
}

// BlockExplorer is the Etherscan compatible explorer of a network.
type BlockExplorer struct {
	APIURL string `yaml:"api_url,omitempty" toml:"api_url,omitempty"`
	URL    string `yaml:"url,omitempty" toml:"url,omitempty"`
}

// Type returns the classification of the network.
func (n Network) Type() NetworkType {
	return Classify(n.Name)
}

// Confirmations returns the configured block confirmations, defaulting to 1.
func (n Network) Confirmations() uint64 {
	if n.BlockConfirmations == 0 {
		return 1
	}

	return n.BlockConfirmations
}

// InProcess reports whether the network runs on an in-process simulated chain.
func (n Network) InProcess() bool {
	return n.Name == InProcessNetwork && n.RPCURL == ""
}

// Validate validates the network configuration to ensure that all required fields are set. The
// RPC URL is checked on resolution since it usually comes from the environment.
func (n Network) Validate() error {
	if n.Name == "" {
		return errors.New("name is required")
	}

	if n.ChainID == 0 {
		return errors.New("chain id is required")
	}

	return nil
}
