package verification

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRequest = Request{
	Address:         common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
	ContractName:    "contracts/Lottery.sol:Lottery",
	CompilerVersion: "v0.8.7+commit.e28d00a7",
	SourceCode:      json.RawMessage(`{"language":"Solidity"}`),
	ConstructorArgs: []byte{0x01, 0x02},
}

// fakeEtherscan is an httptest server that answers verifysourcecode with submit and every
// checkverifystatus call with the next entry of statuses, repeating the last one.
type fakeEtherscan struct {
	t        *testing.T
	submit   apiResponse
	statuses []apiResponse
	code     int

	submits atomic.Int32
	checks  atomic.Int32
}

func (f *fakeEtherscan) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.code != 0 {
		w.WriteHeader(f.code)
		return
	}

	assert.NoError(f.t, r.ParseForm())
	assert.Equal(f.t, "5", r.Form.Get("chainid"))
	assert.Equal(f.t, "test-key", r.Form.Get("apikey"))

	var resp apiResponse
	switch r.Form.Get("action") {
	case "verifysourcecode":
		f.submits.Add(1)
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.Equal(f.t, testRequest.Address.Hex(), r.Form.Get("contractaddress"))
		assert.Equal(f.t, "contracts/Lottery.sol:Lottery", r.Form.Get("contractname"))
		assert.Equal(f.t, "v0.8.7+commit.e28d00a7", r.Form.Get("compilerversion"))
		assert.Equal(f.t, codeFormat, r.Form.Get("codeformat"))
		assert.Equal(f.t, "0102", r.Form.Get("constructorArguements"))
		assert.JSONEq(f.t, `{"language":"Solidity"}`, r.Form.Get("sourceCode"))
		resp = f.submit
	case "checkverifystatus":
		n := int(f.checks.Add(1)) - 1
		assert.Equal(f.t, "guid-1", r.Form.Get("guid"))
		resp = f.statuses[min(n, len(f.statuses)-1)]
	default:
		f.t.Errorf("unexpected action %q", r.Form.Get("action"))
	}

	w.Header().Set("Content-Type", "application/json")
	assert.NoError(f.t, json.NewEncoder(w).Encode(resp))
}

func newTestClient(t *testing.T, f *fakeEtherscan) *Client {
	t.Helper()

	f.t = t
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{
		APIURL:       srv.URL,
		APIKey:       "test-key",
		ChainID:      5,
		PollInterval: time.Millisecond,
		PollAttempts: 3,
	})
	require.NoError(t, err)

	return c
}

var (
	submitOK = apiResponse{Status: "1", Message: "OK", Result: "guid-1"}
	pending  = apiResponse{Status: "0", Message: "NOTOK", Result: "Pending in queue"}
	passed   = apiResponse{Status: "1", Message: "OK", Result: "Pass - Verified"}
)

func Test_Client_Verify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		give            *fakeEtherscan
		want            Result
		wantErr         string
		wantAlready     bool
		wantSubmits     int32
		wantStatusCalls int32
	}{
		{
			name:            "verified after pending",
			give:            &fakeEtherscan{submit: submitOK, statuses: []apiResponse{pending, passed}},
			want:            Result{GUID: "guid-1", Status: "Pass - Verified"},
			wantSubmits:     1,
			wantStatusCalls: 2,
		},
		{
			name: "already verified on submit",
			give: &fakeEtherscan{
				submit: apiResponse{Status: "0", Message: "NOTOK", Result: "Contract source code already verified"},
			},
			wantErr:     "contract source code already verified",
			wantAlready: true,
			wantSubmits: 1,
		},
		{
			name: "already verified on status",
			give: &fakeEtherscan{
				submit:   submitOK,
				statuses: []apiResponse{{Status: "0", Message: "NOTOK", Result: "Already Verified"}},
			},
			wantErr:         "Already Verified",
			wantAlready:     true,
			wantSubmits:     1,
			wantStatusCalls: 1,
		},
		{
			name: "submission rejected",
			give: &fakeEtherscan{
				submit: apiResponse{Status: "0", Message: "NOTOK", Result: "Invalid API Key"},
			},
			wantErr:     "verification submission rejected: NOTOK: Invalid API Key",
			wantSubmits: 1,
		},
		{
			name: "no guid",
			give: &fakeEtherscan{
				submit: apiResponse{Status: "1", Message: "OK"},
			},
			wantErr:     "verification submission returned no guid",
			wantSubmits: 1,
		},
		{
			name: "verification failed",
			give: &fakeEtherscan{
				submit:   submitOK,
				statuses: []apiResponse{{Status: "0", Message: "NOTOK", Result: "Fail - Unable to verify"}},
			},
			wantErr:         "verification failed: Fail - Unable to verify",
			wantSubmits:     1,
			wantStatusCalls: 1,
		},
		{
			name:            "still pending",
			give:            &fakeEtherscan{submit: submitOK, statuses: []apiResponse{pending}},
			wantErr:         "verification guid-1 still pending after 3 checks",
			wantSubmits:     1,
			wantStatusCalls: 3,
		},
		{
			name:    "server error",
			give:    &fakeEtherscan{code: http.StatusBadGateway},
			wantErr: "failed to submit verification: unexpected status code 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, tt.give)

			got, err := c.Verify(t.Context(), testRequest)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				assert.Equal(t, tt.wantAlready, IsAlreadyVerified(err))
				assert.Equal(t, tt.wantAlready, errors.Is(err, ErrAlreadyVerified))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.Equal(t, tt.wantSubmits, tt.give.submits.Load())
			assert.Equal(t, tt.wantStatusCalls, tt.give.checks.Load())
		})
	}
}

func Test_Client_Verify_InvalidRequest(t *testing.T) {
	t.Parallel()

	f := &fakeEtherscan{submit: submitOK, statuses: []apiResponse{passed}}
	c := newTestClient(t, f)

	_, err := c.Verify(t.Context(), Request{})
	require.ErrorContains(t, err, "invalid verification request")
	require.ErrorContains(t, err, "address is required")
	require.ErrorContains(t, err, "source code is required")
	assert.Zero(t, f.submits.Load())
}

func Test_NewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    ClientConfig
		wantErr string
	}{
		{name: "valid", give: ClientConfig{APIKey: "key", ChainID: 5}},
		{name: "missing api key", give: ClientConfig{ChainID: 5}, wantErr: "api key is required"},
		{name: "missing chain id", give: ClientConfig{APIKey: "key"}, wantErr: "chain id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewClient(tt.give)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, DefaultAPIURL, c.cfg.APIURL)
			assert.NotNil(t, c.cfg.HTTPClient)
			assert.NotNil(t, c.cfg.Logger)
			assert.Equal(t, defaultPollInterval, c.cfg.PollInterval)
			assert.Equal(t, uint(defaultPollAttempts), c.cfg.PollAttempts)
		})
	}
}

func Test_Client_endpoint(t *testing.T) {
	t.Parallel()

	c, err := NewClient(ClientConfig{APIKey: "key", ChainID: 5})
	require.NoError(t, err)
	assert.Equal(t, "https://api.etherscan.io/v2/api?chainid=5", c.endpoint(nil))

	c, err = NewClient(ClientConfig{APIURL: "https://explorer.example/api?x=1", APIKey: "key", ChainID: 5})
	require.NoError(t, err)
	assert.Equal(t, "https://explorer.example/api?x=1&chainid=5", c.endpoint(nil))
}

func Test_IsAlreadyVerified(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give error
		want bool
	}{
		{name: "nil", give: nil, want: false},
		{name: "sentinel", give: ErrAlreadyVerified, want: true},
		{name: "wrapped sentinel", give: fmt.Errorf("stage verify: %w", ErrAlreadyVerified), want: true},
		{name: "message", give: errors.New("Contract source code already verified"), want: true},
		{name: "mixed case", give: errors.New("Already Verified"), want: true},
		{name: "other", give: errors.New("Fail - Unable to verify"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsAlreadyVerified(tt.give))
		})
	}
}
