package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default locations of the front-end artifacts, relative to the working directory.
const (
	DefaultFrontEndAddressesFile = "../nextjs-smartcontract-lottery/constants/contractAddresses.json"
	DefaultFrontEndABIFile       = "../nextjs-smartcontract-lottery/constants/abi.json"
)

// EtherscanConfig is the configuration for the Etherscan source verification service.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type EtherscanConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"` // Secret: Etherscan API key. Verification is skipped when empty.
}

// DeployerConfig is the configuration for the deployer account.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type DeployerConfig struct {
	PrivateKey string `mapstructure:"private_key" yaml:"private_key"` // Secret: The hex private key of the deployer account.
}

// FrontEndConfig is the configuration for the front-end artifact sync.
type FrontEndConfig struct {
	Update        string `mapstructure:"update" yaml:"update"`                 // Opt-in to the front-end sync. Any value other than empty or a false boolean enables it.
	AddressesFile string `mapstructure:"addresses_file" yaml:"addresses_file"` // The path to the contract addresses JSON document.
	ABIFile       string `mapstructure:"abi_file" yaml:"abi_file"`             // The path to the ABI JSON document.
}

// Enabled reports whether the front-end sync was opted into.
func (c FrontEndConfig) Enabled() bool {
	v := strings.TrimSpace(c.Update)
	if v == "" {
		return false
	}

	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}

	return true
}

// Config wraps the environment configuration of a deployment run.
type Config struct {
	Etherscan EtherscanConfig `mapstructure:"etherscan" yaml:"etherscan"`
	Deployer  DeployerConfig  `mapstructure:"deployer" yaml:"deployer"`
	FrontEnd  FrontEndConfig  `mapstructure:"front_end" yaml:"front_end"`
}

// Load loads the config from the file path, falling back to env vars if the file does not exist.
// If the file exists, any env vars that are set will override the values loaded from the file.
func Load(filePath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(filePath)

	// Bind environment variables
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	// If the config file exists, we continue to read it, otherwise we fallback to using
	// environment variables
	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// LoadEnv loads the config from the environment variables.
func LoadEnv() (*Config, error) {
	v := newViper()

	// Bind environment variables
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// LoadDotEnv loads variables from dotenv files into the process environment. Variables that are
// already set are not overridden and missing files are ignored.
func LoadDotEnv(filePaths ...string) error {
	for _, fp := range filePaths {
		if _, err := os.Stat(fp); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err := godotenv.Load(fp); err != nil {
			return fmt.Errorf("failed to load dotenv file %s: %w", fp, err)
		}
	}

	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("front_end.addresses_file", DefaultFrontEndAddressesFile)
	v.SetDefault("front_end.abi_file", DefaultFrontEndABIFile)

	return v
}

var (
	// envBindings defines how environment variables map to configuration keys used by Viper.
	// Each entry maps a config key (as used in the struct, e.g. "etherscan.api_key") to a list of
	// environment variable names that can provide its value.
	//
	// The first element in the list is the preferred environment variable name, and the second
	// (if present) is the short name used by existing deploy scripts.
	envBindings = map[string][]string{
		"etherscan.api_key":        {"ETHERSCAN_API_KEY"},
		"deployer.private_key":     {"DEPLOYER_PRIVATE_KEY", "PRIVATE_KEY"},
		"front_end.update":         {"UPDATE_FRONT_END"},
		"front_end.addresses_file": {"FRONT_END_ADDRESSES_FILE"},
		"front_end.abi_file":       {"FRONT_END_ABI_FILE"},
	}
)

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		// Prepend the env key to the start of the arguments
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
