// Package evm provides the EVM chain handle used by the deployment pipeline to send and confirm
// transactions.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	chainsel "github.com/smartcontractkit/chain-selectors"
)

// ConfirmFunc takes a sent transaction, waits until it is included and buried under the requested
// number of confirmations, and returns its receipt.
type ConfirmFunc func(tx *types.Transaction, confirmations uint64) (*types.Receipt, error)

// OnchainClient is an EVM chain client.
// For EVM specifically we can use existing geth interface to abstract chain clients.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Chain represents a connected EVM chain with a funded deployer key.
type Chain struct {
	ChainID uint64

	Client OnchainClient
	// Note the Sign function can be abstract supporting a variety of key storage mechanisms.
	DeployerKey *bind.TransactOpts
	Confirm     ConfirmFunc
}

// LookupChain returns the chain-selectors details of an EVM chain id. ok is false when the chain
// is unknown to the registry, e.g. a retired testnet.
func LookupChain(chainID uint64) (details chainsel.ChainDetails, ok bool) {
	details, err := chainsel.GetChainDetailsByChainIDAndFamily(
		strconv.FormatUint(chainID, 10), chainsel.FamilyEVM,
	)
	if err != nil {
		return chainsel.ChainDetails{}, false
	}

	return details, true
}

// Selector returns the chain-selectors selector for the chain id, or 0 when the chain is unknown
// to the registry.
func (c Chain) Selector() uint64 {
	details, _ := LookupChain(c.ChainID)

	return details.ChainSelector
}

// Name returns the chain-selectors name of the chain, falling back to the chain id.
func (c Chain) Name() string {
	details, ok := LookupChain(c.ChainID)
	if !ok || details.ChainName == "" {
		return strconv.FormatUint(c.ChainID, 10)
	}

	return details.ChainName
}

// String returns "<name> (<chain id>)".
func (c Chain) String() string {
	return fmt.Sprintf("%s (%d)", c.Name(), c.ChainID)
}

// DeployerAddress returns the address transactions are sent from.
func (c Chain) DeployerAddress() common.Address {
	if c.DeployerKey == nil {
		return common.Address{}
	}

	return c.DeployerKey.From
}

// DeployContract sends a contract creation transaction for bytecode with the ABI encoded
// constructor args and waits for the given number of confirmations.
func (c Chain) DeployContract(
	ctx context.Context, parsed abi.ABI, bytecode []byte, confirmations uint64, args ...any,
) (common.Address, *types.Receipt, error) {
	if err := c.validate(); err != nil {
		return common.Address{}, nil, err
	}

	addr, tx, _, err := bind.DeployContract(c.transactOpts(ctx), parsed, bytecode, c.Client, args...)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to send deployment tx: %w", MaybeDataErr(err))
	}

	receipt, err := c.Confirm(tx, confirmations)
	if err != nil {
		return common.Address{}, nil, err
	}

	return addr, receipt, nil
}

// Transact calls method on the contract at address and waits for the given number of
// confirmations.
func (c Chain) Transact(
	ctx context.Context, address common.Address, parsed abi.ABI, confirmations uint64, method string, args ...any,
) (*types.Receipt, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	bound := bind.NewBoundContract(address, parsed, c.Client, c.Client, c.Client)
	tx, err := bound.Transact(c.transactOpts(ctx), method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s tx to %s: %w", method, address.Hex(), MaybeDataErr(err))
	}

	return c.Confirm(tx, confirmations)
}

func (c Chain) validate() error {
	if c.Client == nil {
		return errors.New("chain client is not initialized")
	}
	if c.DeployerKey == nil {
		return errors.New("deployer key is not initialized")
	}
	if c.Confirm == nil {
		return errors.New("confirm function is not initialized")
	}

	return nil
}

// transactOpts returns a copy of the deployer key bound to ctx.
func (c Chain) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *c.DeployerKey
	opts.Context = ctx

	return &opts
}

// MaybeDataErr appends the JSON-RPC error data to err when present.
func MaybeDataErr(err error) error {
	var d rpc.DataError
	if errors.As(err, &d) {
		return fmt.Errorf("%s: %v", d.Error(), d.ErrorData())
	}

	return err
}
