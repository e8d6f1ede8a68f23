package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/smartcontractkit/lottery-deployments/chain/evm"
)

// ErrReverted is returned by confirm functions when the transaction was mined with a failed status.
var ErrReverted = errors.New("transaction reverted")

// ConfirmFunctor is an interface for creating a confirmation function for transactions on the
// EVM chain.
type ConfirmFunctor interface {
	// Generate returns a function that confirms transactions on the EVM chain.
	Generate(
		ctx context.Context, chainID uint64, client evm.OnchainClient, from common.Address,
	) (evm.ConfirmFunc, error)
}

// ConfirmFuncGeth returns a ConfirmFunctor that uses the Geth client to confirm transactions.
func ConfirmFuncGeth(waitMinedTimeout time.Duration, opts ...func(*confirmFuncGeth)) ConfirmFunctor {
	cf := &confirmFuncGeth{
		tickInterval:     1 * time.Second, // the same value we have in bind.WaitMined hardcoded in "go-ethereum"
		waitMinedTimeout: waitMinedTimeout,
	}
	for _, o := range opts {
		o(cf)
	}

	return cf
}

// WithTickInterval sets how often receipts and the chain head are polled.
func WithTickInterval(interval time.Duration) func(*confirmFuncGeth) {
	return func(o *confirmFuncGeth) {
		o.tickInterval = interval
	}
}

// confirmFuncGeth implements the ConfirmFunctor interface which generates a confirmation function
// for transactions using the Geth client.
type confirmFuncGeth struct {
	tickInterval     time.Duration
	waitMinedTimeout time.Duration
}

// Generate returns a function that waits for the receipt of a transaction and then for the chain
// head to advance until the receipt's block has the requested number of confirmations. The
// inclusion block itself counts as the first confirmation.
func (g *confirmFuncGeth) Generate(
	ctx context.Context, chainID uint64, client evm.OnchainClient, from common.Address,
) (evm.ConfirmFunc, error) {
	return func(tx *types.Transaction, confirmations uint64) (*types.Receipt, error) {
		if tx == nil {
			return nil, fmt.Errorf("tx was nil, nothing to confirm for chain %d", chainID)
		}

		ctxTimeout, cancel := context.WithTimeout(ctx, g.waitMinedTimeout)
		defer cancel()

		receipt, err := WaitConfirmedWithInterval(ctxTimeout, g.tickInterval, client, tx.Hash(), confirmations)
		if err != nil {
			return nil, fmt.Errorf("tx %s failed to confirm for chain %d: %w",
				tx.Hash().Hex(), chainID, err,
			)
		}

		if err := checkStatus(ctxTimeout, client, from, tx, receipt, chainID); err != nil {
			return nil, err
		}

		return receipt, nil
	}, nil
}

// checkStatus returns an ErrReverted error, decorated with the revert reason when it can be
// recovered, for receipts with a failed status.
func checkStatus(
	ctx context.Context, caller ContractCaller, from common.Address, tx *types.Transaction,
	receipt *types.Receipt, chainID uint64,
) error {
	if receipt.Status != types.ReceiptStatusFailed {
		return nil
	}

	reason, err := getErrorReasonFromTx(ctx, caller, from, tx, receipt)
	if err == nil && reason != "" {
		return fmt.Errorf("tx %s on chain %d: %w: %s", tx.Hash().Hex(), chainID, ErrReverted, reason)
	}

	return fmt.Errorf("tx %s on chain %d: %w, could not decode error reason",
		tx.Hash().Hex(), chainID, ErrReverted,
	)
}

// DepthBackend is the subset of the client used to wait for confirmations.
type DepthBackend interface {
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
}

// WaitConfirmedWithInterval polls for the receipt of txHash and then for the chain head until the
// receipt is buried under confirmations blocks. If the receipt moves to a different block while
// waiting, the depth is measured against the new block.
func WaitConfirmedWithInterval(
	ctx context.Context, tick time.Duration, b DepthBackend, txHash common.Hash, confirmations uint64,
) (*types.Receipt, error) {
	receipt, err := WaitMinedWithInterval(ctx, tick, b, txHash)
	if err != nil {
		return nil, err
	}
	if confirmations <= 1 {
		return receipt, nil
	}

	queryTicker := time.NewTicker(tick)
	defer queryTicker.Stop()
	for {
		head, err := b.BlockNumber(ctx)
		if err == nil && confirmationDepth(receipt, head) >= confirmations {
			latest, rerr := b.TransactionReceipt(ctx, txHash)
			if rerr == nil && latest.BlockHash == receipt.BlockHash {
				return latest, nil
			}
			if rerr == nil {
				receipt = latest
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-queryTicker.C:
		}
	}
}

// WaitMinedWithInterval is a custom function that allows to get receipts faster for networks with instant blocks
func WaitMinedWithInterval(ctx context.Context, tick time.Duration, b bind.DeployBackend, txHash common.Hash) (*types.Receipt, error) {
	queryTicker := time.NewTicker(tick)
	defer queryTicker.Stop()
	for {
		receipt, err := b.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-queryTicker.C:
		}
	}
}

// confirmationDepth returns how many blocks, including its own, sit on top of the receipt's block.
func confirmationDepth(receipt *types.Receipt, head uint64) uint64 {
	if receipt.BlockNumber == nil {
		return 0
	}
	block := receipt.BlockNumber.Uint64()
	if head < block {
		return 0
	}

	return head - block + 1
}
