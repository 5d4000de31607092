package solana

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	jrpc "github.com/gagliardetto/solana-go/rpc/jsonrpc" // For jrpc.RPCError
	"github.com/shopspring/decimal"

	"github.com/hunterwarburton/tokenscope/internal/core"
	"github.com/hunterwarburton/tokenscope/internal/logger"
)

// DefaultMainnetEndpoint is the public RPC endpoint for Solana mainnet-beta.
const DefaultMainnetEndpoint = "https://api.mainnet-beta.solana.com"

// Client uses the solana-go SDK's RPC client. Every call is a single attempt.
type Client struct {
	rpcClient  *rpc.Client
	httpClient *http.Client
	commitment rpc.CommitmentType
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for JSON-RPC requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCommitment sets the commitment level used for supply reads.
func WithCommitment(commitment rpc.CommitmentType) ClientOption {
	return func(c *Client) {
		c.commitment = commitment
	}
}

// NewClient creates a new RPC client pointing to the specified endpoint.
// If endpoint is an empty string DefaultMainnetEndpoint is used.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	startTime := time.Now()
	defer func() {
		logger.ResolverDebug("NewClient took %v to initialize", time.Since(startTime))
	}()

	if endpoint == "" {
		endpoint = DefaultMainnetEndpoint
	}

	c := &Client{
		commitment: rpc.CommitmentFinalized,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient != nil {
		c.rpcClient = rpc.NewWithCustomRPCClient(jrpc.NewClientWithOpts(endpoint, &jrpc.RPCClientOpts{
			HTTPClient: c.httpClient,
		}))
	} else {
		c.rpcClient = rpc.New(endpoint)
	}
	return c
}

// Close releases idle connections held by the RPC client.
func (c *Client) Close() error {
	return c.rpcClient.Close()
}

// FetchAccount returns the raw data of the account at address. Transport
// failures, RPC errors and missing accounts are all core.ErrChain.
func (c *Client) FetchAccount(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	accountInfo, err := c.rpcClient.GetAccountInfo(ctx, address)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w - account %s not found", core.ErrChain, address)
		}
		var rpcErr *jrpc.RPCError
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("%w - RPC error %d fetching account %s: %s", core.ErrChain, rpcErr.Code, address, rpcErr.Message)
		}
		return nil, fmt.Errorf("%w - failed to fetch account %s: %w", core.ErrChain, address, err)
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, fmt.Errorf("%w - account %s not found or empty", core.ErrChain, address)
	}

	data := accountInfo.Value.Data.GetBinary()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w - account %s has no data", core.ErrChain, address)
	}

	logger.ResolverDebug("Fetched %d bytes for account %s (owner %s)", len(data), address, accountInfo.Value.Owner)
	return data, nil
}

// FetchSupply returns the supply of mint. The amount stays a decimal string;
// it is validated with arbitrary precision and never narrowed to an integer type.
func (c *Client) FetchSupply(ctx context.Context, mint solana.PublicKey) (core.SupplyInfo, error) {
	out, err := c.rpcClient.GetTokenSupply(ctx, mint, c.commitment)
	if err != nil {
		var rpcErr *jrpc.RPCError
		if errors.As(err, &rpcErr) {
			return core.SupplyInfo{}, fmt.Errorf("%w - RPC error %d fetching supply of %s: %s", core.ErrChain, rpcErr.Code, mint, rpcErr.Message)
		}
		return core.SupplyInfo{}, fmt.Errorf("%w - failed to fetch supply of %s: %w", core.ErrChain, mint, err)
	}
	if out == nil || out.Value == nil {
		return core.SupplyInfo{}, fmt.Errorf("%w - no supply reported for %s", core.ErrChain, mint)
	}

	amount, err := decimal.NewFromString(out.Value.Amount)
	if err != nil {
		return core.SupplyInfo{}, fmt.Errorf("%w - malformed supply amount %q for %s", core.ErrChain, out.Value.Amount, mint)
	}

	return core.SupplyInfo{
		Amount:   out.Value.Amount,
		Decimals: out.Value.Decimals,
		UIAmount: amount.Shift(-int32(out.Value.Decimals)).String(),
	}, nil
}

var _ core.ChainReader = (*Client)(nil)
