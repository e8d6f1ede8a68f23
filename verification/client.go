// Package verification submits deployed contracts to an Etherscan compatible source code
// verification service.
package verification

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

const (
	// DefaultAPIURL is the Etherscan multichain API endpoint.
	DefaultAPIURL = "https://api.etherscan.io/v2/api"

	// codeFormat is the source submission format. The full standard JSON compiler input is sent
	// so that imported sources and compiler settings match the deployed bytecode.
	codeFormat = "solidity-standard-json-input"

	defaultRequestTimeout = 30 * time.Second
	defaultPollInterval   = 5 * time.Second
	defaultPollAttempts   = 12
)

var (
	// ErrAlreadyVerified is returned when the service reports that the contract source is already
	// verified.
	ErrAlreadyVerified = errors.New("contract source code already verified")

	// errPending is returned while a submission is waiting in the service queue.
	errPending = errors.New("verification pending")
)

// IsAlreadyVerified reports whether err indicates the contract is already verified. It matches the
// sentinel and falls back to the message for errors produced by other clients.
func IsAlreadyVerified(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrAlreadyVerified) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "already verified")
}

// Request describes a contract to verify.
type Request struct {
	// Address is the deployed contract address.
	Address common.Address
	// ContractName is the fully qualified contract name, e.g. contracts/Lottery.sol:Lottery.
	ContractName string
	// CompilerVersion is the full solc version, e.g. v0.8.7+commit.e28d00a7.
	CompilerVersion string
	// SourceCode is the standard JSON compiler input the contract was built from.
	SourceCode json.RawMessage
	// ConstructorArgs is the ABI encoded constructor arguments.
	ConstructorArgs []byte
}

// Validate checks that the request carries everything the service needs.
func (r Request) Validate() error {
	var errs []error

	if r.Address == (common.Address{}) {
		errs = append(errs, errors.New("address is required"))
	}
	if r.ContractName == "" {
		errs = append(errs, errors.New("contract name is required"))
	}
	if r.CompilerVersion == "" {
		errs = append(errs, errors.New("compiler version is required"))
	}
	if len(r.SourceCode) == 0 {
		errs = append(errs, errors.New("source code is required"))
	}

	return errors.Join(errs...)
}

// Result is the outcome of a successful verification.
type Result struct {
	// GUID is the submission id assigned by the service.
	GUID string
	// Status is the final status message, e.g. "Pass - Verified".
	Status string
}

// ClientConfig configures a Client.
type ClientConfig struct {
	APIURL       string        // Optional: Defaults to DefaultAPIURL
	APIKey       string        // Required: The Etherscan API key
	ChainID      uint64        // Required: The chain id the contract is deployed on
	HTTPClient   *http.Client  // Optional: Defaults to a client with a 30s timeout
	PollInterval time.Duration // Optional: Defaults to 5s
	PollAttempts uint          // Optional: Defaults to 12
	Logger       logger.Logger // Optional: Defaults to a no-op logger
}

// Client is an Etherscan verification client.
type Client struct {
	cfg ClientConfig
}

// NewClient creates a new Client, applying defaults to unset optional fields.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if cfg.ChainID == 0 {
		return nil, errors.New("chain id is required")
	}

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollAttempts == 0 {
		cfg.PollAttempts = defaultPollAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return &Client{cfg: cfg}, nil
}

// apiResponse is the envelope of every Etherscan API response.
type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Verify submits the contract source and waits until the service has processed it. It returns an
// error wrapping ErrAlreadyVerified when the contract was verified before.
func (c *Client) Verify(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid verification request: %w", err)
	}

	guid, err := c.submit(ctx, req)
	if err != nil {
		return Result{}, err
	}

	c.cfg.Logger.Infow("Submitted contract for verification",
		"address", req.Address.Hex(), "contract", req.ContractName, "guid", guid,
	)

	status, err := c.waitForStatus(ctx, guid)
	if err != nil {
		return Result{}, err
	}

	return Result{GUID: guid, Status: status}, nil
}

func (c *Client) submit(ctx context.Context, req Request) (string, error) {
	form := url.Values{}
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("apikey", c.cfg.APIKey)
	form.Set("contractaddress", req.Address.Hex())
	form.Set("sourceCode", string(req.SourceCode))
	form.Set("codeformat", codeFormat)
	form.Set("contractname", req.ContractName)
	form.Set("compilerversion", req.CompilerVersion)
	// The misspelling is part of the Etherscan API.
	form.Set("constructorArguements", hex.EncodeToString(req.ConstructorArgs))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(nil), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build verification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to submit verification: %w", err)
	}

	if resp.Status != "1" {
		if IsAlreadyVerified(errors.New(resp.Result)) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyVerified, resp.Result)
		}

		return "", fmt.Errorf("verification submission rejected: %s: %s", resp.Message, resp.Result)
	}

	if resp.Result == "" {
		return "", errors.New("verification submission returned no guid")
	}

	return resp.Result, nil
}

// waitForStatus polls the submission status until it leaves the queue.
func (c *Client) waitForStatus(ctx context.Context, guid string) (string, error) {
	var status string

	err := retry.Do(
		func() error {
			resp, err := c.checkStatus(ctx, guid)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			switch {
			case strings.Contains(strings.ToLower(resp.Result), "pending"):
				return errPending
			case IsAlreadyVerified(errors.New(resp.Result)):
				return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrAlreadyVerified, resp.Result))
			case resp.Status == "1":
				status = resp.Result

				return nil
			default:
				return retry.Unrecoverable(fmt.Errorf("verification failed: %s", resp.Result))
			}
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.PollAttempts),
		retry.Delay(c.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errPending) }),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, errPending) {
			return "", fmt.Errorf("verification %s still pending after %d checks", guid, c.cfg.PollAttempts)
		}

		return "", err
	}

	return status, nil
}

func (c *Client) checkStatus(ctx context.Context, guid string) (apiResponse, error) {
	query := url.Values{}
	query.Set("module", "contract")
	query.Set("action", "checkverifystatus")
	query.Set("guid", guid)
	query.Set("apikey", c.cfg.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(query), nil)
	if err != nil {
		return apiResponse{}, fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return apiResponse{}, fmt.Errorf("failed to check verification status: %w", err)
	}

	return resp, nil
}

// endpoint returns the API URL with the chain id and any extra query parameters.
func (c *Client) endpoint(extra url.Values) string {
	query := url.Values{}
	query.Set("chainid", strconv.FormatUint(c.cfg.ChainID, 10))
	for k, vs := range extra {
		query[k] = vs
	}

	sep := "?"
	if strings.Contains(c.cfg.APIURL, "?") {
		sep = "&"
	}

	return c.cfg.APIURL + sep + query.Encode()
}

func (c *Client) do(req *http.Request) (apiResponse, error) {
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return apiResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiResponse{}, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return apiResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return data, nil
}
