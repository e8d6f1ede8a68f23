package pipeline

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/lottery-deployments/chain/evm"
	"github.com/smartcontractkit/lottery-deployments/chain/evm/provider"
	"github.com/smartcontractkit/lottery-deployments/config/network"
	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/frontend"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
	"github.com/smartcontractkit/lottery-deployments/verification"
)

const simChainID = 1337

func newSimChain(t *testing.T) evm.Chain {
	t.Helper()

	p := provider.NewSimChainProvider(provider.SimChainProviderConfig{ChainID: simChainID})
	t.Cleanup(func() { _ = p.Close() })

	chain, err := p.Initialize(t.Context())
	require.NoError(t, err)

	return chain
}

// etherscanServer accepts every submission and reports it verified on the first status check.
func etherscanServer(t *testing.T, submitted *atomic.Value) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseForm()) {
			return
		}

		var resp map[string]string
		switch r.Form.Get("action") {
		case "verifysourcecode":
			submitted.Store(r.Form.Get("constructorArguements"))
			resp = map[string]string{"status": "1", "message": "OK", "result": "guid-1"}
		case "checkverifystatus":
			resp = map[string]string{"status": "1", "message": "OK", "result": "Pass - Verified"}
		}

		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func Test_Run_SimulatedChain_Persistent(t *testing.T) {
	t.Parallel()

	chain := newSimChain(t)

	// A persistent network backed by the simulated chain, referencing an existing subscription.
	cfg := network.NewConfig(
		[]network.Network{{Name: "staging", ChainID: simChainID, RPCURL: "simulated", BlockConfirmations: 2}},
		[]network.ParameterSet{{
			ChainID:          simChainID,
			EntranceFee:      "0.01 ether",
			GasLane:          "0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15",
			CallbackGasLimit: 500000,
			Interval:         30,
			VRFCoordinator:   goerliCoordinator.Hex(),
			SubscriptionID:   42,
		}},
	)
	netCtx, err := ResolveNetwork(cfg, "staging")
	require.NoError(t, err)
	require.False(t, netCtx.IsEphemeral())

	var submitted atomic.Value
	srv := etherscanServer(t, &submitted)

	verifier, err := verification.NewClient(verification.ClientConfig{
		APIURL:       srv.URL,
		APIKey:       "test-key",
		ChainID:      simChainID,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	syncer, err := frontend.NewSyncer(frontend.SyncerConfig{
		AddressesFile: filepath.Join(dir, "contractAddresses.json"),
		ABIFile:       filepath.Join(dir, "abi.json"),
	})
	require.NoError(t, err)

	p, err := New(netCtx, Options{Verify: true, UpdateFrontEnd: true}, Deps{
		Chain:     chain,
		Artifacts: contracts.NewLoader(testArtifactsDir),
		Verifier:  verifier,
		Publisher: syncer,
		Logger:    logger.Test(t),
	})
	require.NoError(t, err)

	res, err := p.Run(t.Context())
	require.NoError(t, err)

	dep, ok := res.State.Deployment()
	require.True(t, ok)
	assert.Equal(t, uint64(2), dep.Confirmations)
	assert.Equal(t, uint64(42), dep.ConstructorArgs.SubscriptionID)

	// The contract exists on chain and is buried under the requested confirmations
	code, err := chain.Client.CodeAt(t.Context(), dep.Address, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, code)

	head, err := chain.Client.BlockNumber(t.Context())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, head-dep.BlockNumber+1, uint64(2))

	assert.Equal(t, VerificationVerified, res.State.Verification())
	assert.Equal(t, hex.EncodeToString(dep.PackedArgs), submitted.Load())

	registry, err := syncer.LoadRegistry()
	require.NoError(t, err)
	assert.True(t, registry.Contains(simChainID, dep.Address))

	abi, err := os.ReadFile(filepath.Join(dir, "abi.json"))
	require.NoError(t, err)
	assert.Contains(t, string(abi), "enterLottery")
}

func Test_Run_SimulatedChain_Ephemeral(t *testing.T) {
	t.Parallel()

	chain := newSimChain(t)

	netCtx := network.Context{
		Network:    network.Network{Name: network.InProcessNetwork, ChainID: simChainID},
		Type:       network.NetworkTypeEphemeral,
		Parameters: resolveDefault(t, "hardhat").Parameters,
	}

	p, err := New(netCtx, Options{}, Deps{
		Chain:     chain,
		Artifacts: contracts.NewLoader(testArtifactsDir),
		Logger:    logger.Test(t),
	})
	require.NoError(t, err)

	// The stub coordinator accepts the call but emits no SubscriptionCreated event
	res, err := p.Run(t.Context())
	require.ErrorIs(t, err, ErrProvisioning)
	require.ErrorIs(t, err, contracts.ErrNoSubscriptionCreated)

	mock, ok := res.State.MockCoordinator()
	require.True(t, ok)

	code, err := chain.Client.CodeAt(t.Context(), mock, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, code)
}
