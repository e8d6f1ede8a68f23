package network

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNetworkNotFound is returned when a network name is not present in the configuration.
	ErrNetworkNotFound = errors.New("network not found")
	// ErrParametersNotFound is returned when no deployment parameters exist for a chain id.
	ErrParametersNotFound = errors.New("parameters not found")
)

// Manifest is the file representation of network configuration. It can be encoded as YAML or
// TOML.
type Manifest struct {
	// A list of networks.
	Networks []Network `yaml:"networks" toml:"networks"`
	// A list of deployment parameter sets, one per chain id.
	Parameters []ParameterSet `yaml:"parameters" toml:"parameters"`
}

// Config represents the configuration of a collection of networks and their deployment
// parameters. This is loaded from manifest file/s.
type Config struct {
	// networks is a map of networks by name. Several networks may share a chain id, e.g. hardhat
	// and localhost.
	networks map[string]Network
	// parameters is a map of parameter sets by chain id.
	parameters map[uint64]ParameterSet
}

// NewConfig creates a new config from networks and parameter sets. Any duplicate network names
// or parameter chain ids will be overwritten.
func NewConfig(networks []Network, params []ParameterSet) *Config {
	nmap := make(map[string]Network)
	for _, network := range networks {
		nmap[network.Name] = network
	}

	pmap := make(map[uint64]ParameterSet)
	for _, p := range params {
		pmap[p.ChainID] = p
	}

	return &Config{
		networks:   nmap,
		parameters: pmap,
	}
}

// Validate ensures that all networks and parameter sets are valid.
func (c *Config) Validate() error {
	for _, network := range c.Networks() {
		if err := network.Validate(); err != nil {
			return fmt.Errorf("network %s: %w", network.Name, err)
		}
	}

	for _, id := range slices.Sorted(maps.Keys(c.parameters)) {
		if _, err := c.parameters[id].Parse(); err != nil {
			return fmt.Errorf("parameters for chain %d: %w", id, err)
		}
	}

	return nil
}

// Networks returns a slice of all networks in the config, sorted by name.
func (c *Config) Networks() []Network {
	return slices.SortedFunc(maps.Values(c.networks), func(a, b Network) int {
		return strings.Compare(a.Name, b.Name)
	})
}

// NetworkByName retrieves a network by its name.
func (c *Config) NetworkByName(name string) (Network, error) {
	network, ok := c.networks[name]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q is not in the configuration", ErrNetworkNotFound, name)
	}

	return network, nil
}

// ParametersByChainID retrieves the typed deployment parameters of a chain id.
func (c *Config) ParametersByChainID(chainID uint64) (Parameters, error) {
	set, ok := c.parameters[chainID]
	if !ok {
		return Parameters{}, fmt.Errorf("%w: no parameters for chain id %d", ErrParametersNotFound, chainID)
	}

	return set.Parse()
}

// Merge merges another config into the current config. It overwrites any networks with the same
// name and any parameter sets with the same chain id.
func (c *Config) Merge(other *Config) {
	maps.Copy(c.networks, other.networks)
	maps.Copy(c.parameters, other.parameters)
}

// Manifest returns the file representation of the config.
func (c *Config) Manifest() Manifest {
	params := slices.SortedFunc(maps.Values(c.parameters), func(a, b ParameterSet) int {
		return cmp.Compare(a.ChainID, b.ChainID)
	})

	return Manifest{
		Networks:   c.Networks(),
		Parameters: params,
	}
}

// MarshalYAML implements the yaml.Marshaler interface for the Config struct.
func (c *Config) MarshalYAML() (any, error) {
	return c.Manifest(), nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for the Config struct.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	node := Manifest{}

	if err := value.Decode(&node); err != nil {
		return err
	}

	*c = *NewConfig(node.Networks, node.Parameters)

	return nil
}

// NetworkFilter defines a function type that filters networks based on certain criteria.
type NetworkFilter func(Network) bool

// FilterWith returns a new Config containing only Networks that pass all provided filter
// functions. Parameter sets are kept as they are.
func (c *Config) FilterWith(filters ...NetworkFilter) *Config {
	networks := c.Networks()

	for _, filter := range filters {
		networks = slices.DeleteFunc(networks, func(network Network) bool {
			return !filter(network)
		})
	}

	return NewConfig(networks, slices.Collect(maps.Values(c.parameters)))
}

// TypesFilter returns a filter function that matches networks with the specified network types.
func TypesFilter(networkTypes ...NetworkType) NetworkFilter {
	return func(network Network) bool {
		return slices.Contains(networkTypes, network.Type())
	}
}

// ChainIDFilter returns a filter function that matches networks with the specified chain id.
func ChainIDFilter(chainID uint64) NetworkFilter {
	return func(network Network) bool {
		return network.ChainID == chainID
	}
}

// transformRPCURLs transforms the RPC URLs of the networks in the config.
func (c *Config) transformRPCURLs(transform URLTransformer) {
	for k, n := range c.networks {
		if n.RPCURL == "" {
			continue
		}
		n.RPCURL = transform(n.RPCURL)

		c.networks[k] = n
	}
}

// Load loads configuration from the specified file paths on top of the embedded defaults, and
// merges them into a single Config. Files ending in .toml are decoded as TOML, everything else
// as YAML.
//
// It accepts load options to customize the loading behavior.
func Load(filePaths []string, opts ...LoadOption) (*Config, error) {
	loadCfg := &loadConfig{withDefaults: true}
	for _, opt := range opts {
		opt(loadCfg)
	}

	cfg := NewConfig(nil, nil)
	if loadCfg.withDefaults {
		def, err := Defaults()
		if err != nil {
			return nil, err
		}
		cfg.Merge(def)
	}

	for _, fp := range filePaths {
		data, err := os.ReadFile(fp)
		if err != nil {
			return nil, fmt.Errorf("failed to read networks file: %w", err)
		}

		fileCfg, err := decode(fp, data)
		if err != nil {
			return nil, err
		}

		cfg.Merge(fileCfg)
	}

	if loadCfg.RPCURLTransformer != nil {
		cfg.transformRPCURLs(loadCfg.RPCURLTransformer)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate networks configuration: %w", err)
	}

	return cfg, nil
}

func decode(fp string, data []byte) (*Config, error) {
	if strings.EqualFold(filepath.Ext(fp), ".toml") {
		var m Manifest
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal networks TOML: %w", err)
		}

		return NewConfig(m.Networks, m.Parameters), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal networks YAML: %w", err)
	}
	if cfg.networks == nil {
		return NewConfig(nil, nil), nil
	}

	return &cfg, nil
}

// LoadOption defines a function which modifies the load configuration.
type LoadOption func(*loadConfig)

// loadConfig holds the configuration for loading the config.
type loadConfig struct {
	RPCURLTransformer URLTransformer
	withDefaults      bool
}

// URLTransformer is a function that transforms a URL.
type URLTransformer func(string) string

// WithRPCURLTransformer transforms the RPC URLs of the networks after loading, e.g.
// os.ExpandEnv to resolve ${GOERLI_RPC_URL}.
func WithRPCURLTransformer(t URLTransformer) LoadOption {
	return func(opts *loadConfig) {
		opts.RPCURLTransformer = t
	}
}

// WithoutDefaults skips the embedded default networks.
func WithoutDefaults() LoadOption {
	return func(opts *loadConfig) {
		opts.withDefaults = false
	}
}
