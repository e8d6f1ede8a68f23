package provider

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
)

// DevPrivateKey is the first well-known account of local development nodes (Hardhat and Anvil),
// 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266.
const DevPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// TransactorGenerator is an interface for generating geth's *bind.TransactOpts instances. These
// instances are used to sign transactions using geth bindings.
type TransactorGenerator interface {
	Generate(chainID *big.Int) (*bind.TransactOpts, error)
}

var (
	_ TransactorGenerator = (*transactorFromRaw)(nil)
	_ TransactorGenerator = (*transactorRandom)(nil)
)

// TransactorFromRaw returns a generator which creates a transactor from a raw hex private key.
// A leading 0x is accepted.
func TransactorFromRaw(privKey string) TransactorGenerator {
	return &transactorFromRaw{
		privKey: strings.TrimPrefix(strings.TrimSpace(privKey), "0x"),
	}
}

// TransactorDev returns a generator for the well-known local development account.
func TransactorDev() TransactorGenerator {
	return TransactorFromRaw(DevPrivateKey)
}

// transactorFromRaw is a TransactorGenerator that creates a transactor from a private key.
type transactorFromRaw struct {
	privKey string
}

// Generate parses the hex encoded private key and returns the bind transactor options.
func (g *transactorFromRaw) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	if g.privKey == "" {
		return nil, errors.New("private key is empty")
	}

	privKey, err := crypto.HexToECDSA(g.privKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to ECDSA: %w", err)
	}

	return bind.NewKeyedTransactorWithChainID(privKey, chainID)
}

// TransactorRandom is a TransactorGenerator that creates a transactor with a random private key.
func TransactorRandom() TransactorGenerator {
	return &transactorRandom{}
}

// transactorRandom is an TransactorGenerator that creates a transactor from a random keypair.
type transactorRandom struct{}

// Generate generates a random key and returns the bind transactor options.
func (g *transactorRandom) Generate(chainID *big.Int) (*bind.TransactOpts, error) {
	privKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate random private key: %w", err)
	}

	return bind.NewKeyedTransactorWithChainID(privKey, chainID)
}
