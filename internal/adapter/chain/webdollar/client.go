// Package webdollar talks to a WebDollar node over its HTTP API. The node
// is treated as a remote, possibly slow, possibly failing dependency;
// transient trouble is reported as domain.ErrChainUnavailable so callers
// can retry, and is never folded into a definitive transaction status.
package webdollar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/rocketharbor/wdpay/internal/domain"
)

// Config holds node client configuration.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Client is an HTTP client for a WebDollar node.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new node client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Ping checks that the node is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrChainUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: node status %d", domain.ErrChainUnavailable, resp.StatusCode)
	}

	return nil
}

// Connect waits for the node to become reachable, retrying with
// exponential backoff. Startup should not fail just because the node is
// briefly behind.
func (c *Client) Connect(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 15 * time.Second
	b.MaxElapsedTime = 2 * time.Minute

	return backoff.Retry(func() error {
		err := c.Ping(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("webdollar node not ready, retrying")
		}
		return err
	}, backoff.WithContext(b, ctx))
}

type transactionResponse struct {
	Confirmed     bool `json:"confirmed"`
	Invalid       bool `json:"invalid"`
	Confirmations int  `json:"confirmations"`
}

// GetTransaction looks up a transaction by hash.
//   - confirmed: the node reports the transaction as confirmed
//   - rejected: the node definitively rejected it (invalid or malformed)
//   - pending: anything else, including "unknown" - the transaction may
//     simply not have propagated yet
func (c *Client) GetTransaction(ctx context.Context, txHash string) (domain.TransactionStatus, error) {
	endpoint := c.baseURL + "/api/transactions/" + url.PathEscape(txHash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrChainUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Not yet propagated to this node.
		return domain.TransactionPending, nil
	case resp.StatusCode == http.StatusBadRequest:
		// The node refuses the hash outright; retrying cannot help.
		return domain.TransactionRejected, nil
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: node status %d", domain.ErrChainUnavailable, resp.StatusCode)
	}

	var tx transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrChainUnavailable, err)
	}

	switch {
	case tx.Invalid:
		return domain.TransactionRejected, nil
	case tx.Confirmed:
		return domain.TransactionConfirmed, nil
	default:
		return domain.TransactionPending, nil
	}
}
