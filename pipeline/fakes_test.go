package pipeline

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/verification"
)

const testArtifactsDir = "../contracts/testdata/artifacts"

var (
	deployer    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	mockAddr    = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	lotteryAddr = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")

	errBoom = errors.New("boom")
)

// Call names recorded by fakeChain.
const (
	callDeployMock         = "deploy:" + contracts.VRFCoordinatorMockName
	callDeployLottery      = "deploy:" + contracts.LotteryContractName
	callCreateSubscription = contracts.MethodCreateSubscription
	callFundSubscription   = contracts.MethodFundSubscription
	callAddConsumer        = contracts.MethodAddConsumer
)

type chainCall struct {
	Name          string
	To            common.Address
	Confirmations uint64
	Args          []any
}

// fakeChain records every transaction and answers with successful receipts. createSubscription
// emits a SubscriptionCreated event for subID unless noEvent is set.
type fakeChain struct {
	t       *testing.T
	mockABI abi.ABI
	subID   uint64
	noEvent bool
	failOn  map[string]error

	mu    sync.Mutex
	calls []chainCall
	block int64
}

func newFakeChain(t *testing.T) *fakeChain {
	t.Helper()

	mock, err := contracts.NewLoader(testArtifactsDir).Load(contracts.VRFCoordinatorMockName)
	require.NoError(t, err)

	return &fakeChain{t: t, mockABI: mock.ABI, subID: 1, failOn: map[string]error{}}
}

func (c *fakeChain) DeployerAddress() common.Address {
	return deployer
}

func (c *fakeChain) DeployContract(
	_ context.Context, parsed abi.ABI, _ []byte, confirmations uint64, args ...any,
) (common.Address, *types.Receipt, error) {
	name, addr := callDeployMock, mockAddr
	if _, ok := parsed.Methods["enterLottery"]; ok {
		name, addr = callDeployLottery, lotteryAddr
	}

	receipt, err := c.record(chainCall{Name: name, Confirmations: confirmations, Args: args})
	if err != nil {
		return common.Address{}, nil, err
	}
	receipt.ContractAddress = addr

	return addr, receipt, nil
}

func (c *fakeChain) Transact(
	_ context.Context, address common.Address, _ abi.ABI, confirmations uint64, method string, args ...any,
) (*types.Receipt, error) {
	receipt, err := c.record(chainCall{Name: method, To: address, Confirmations: confirmations, Args: args})
	if err != nil {
		return nil, err
	}

	if method == contracts.MethodCreateSubscription && !c.noEvent {
		ev := c.mockABI.Events[contracts.EventSubscriptionCreated]
		data, perr := ev.Inputs.NonIndexed().Pack(deployer)
		require.NoError(c.t, perr)

		receipt.Logs = append(receipt.Logs, &types.Log{
			Address: address,
			Topics:  []common.Hash{ev.ID, common.BigToHash(new(big.Int).SetUint64(c.subID))},
			Data:    data,
		})
	}

	return receipt, nil
}

func (c *fakeChain) record(call chainCall) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, call)
	if err := c.failOn[call.Name]; err != nil {
		return nil, err
	}

	c.block++

	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      crypto.Keccak256Hash([]byte(call.Name)),
		BlockNumber: big.NewInt(c.block),
	}, nil
}

func (c *fakeChain) callNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.calls))
	for _, call := range c.calls {
		names = append(names, call.Name)
	}

	return names
}

func (c *fakeChain) call(name string) (chainCall, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, call := range c.calls {
		if call.Name == name {
			return call, true
		}
	}

	return chainCall{}, false
}

type fakeVerifier struct {
	res verification.Result
	err error

	mu       sync.Mutex
	requests []verification.Request
}

func (v *fakeVerifier) Verify(_ context.Context, req verification.Request) (verification.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.requests = append(v.requests, req)

	return v.res, v.err
}

type publishCall struct {
	ChainID uint64
	Address common.Address
	ABI     []byte
}

type fakePublisher struct {
	err error

	mu    sync.Mutex
	calls []publishCall
}

func (p *fakePublisher) Sync(_ context.Context, chainID uint64, addr common.Address, abi []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, publishCall{ChainID: chainID, Address: addr, ABI: abi})

	return p.err
}

// verifierFunc adapts a function to the Verifier interface.
type verifierFunc func(ctx context.Context, req verification.Request) (verification.Result, error)

func (f verifierFunc) Verify(ctx context.Context, req verification.Request) (verification.Result, error) {
	return f(ctx, req)
}
