package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is the client-side view of a payment as returned by the
// confirmation service.
type Payment struct {
	ID          string          `json:"paymentId"`
	Amount      decimal.Decimal `json:"amount"`
	Recipient   string          `json:"recipient"`
	Reference   string          `json:"reference,omitempty"`
	Status      string          `json:"status"`
	TxHash      string          `json:"txHash,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	ConfirmedAt *time.Time      `json:"confirmedAt,omitempty"`
}

// Payment statuses as reported by the service.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// APIError is a non-2xx response from the confirmation service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Permanent reports whether retrying the same request cannot succeed.
// 5xx responses and 429 are treated as retryable.
func (e *APIError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// NewReference generates a unique merchant reference for a new payment.
func NewReference() string {
	return "pay_" + uuid.NewString()
}

// Client is an HTTP client for the payment confirmation service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CreatePayment registers a new payment request with the service.
func (c *Client) CreatePayment(ctx context.Context, amount decimal.Decimal, recipient, reference string) (*Payment, error) {
	body := map[string]any{
		"amount":    amount,
		"recipient": recipient,
	}
	if reference != "" {
		body["reference"] = reference
	}

	var payment Payment
	if err := c.post(ctx, "/api/payments/create", body, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// NotifyTransaction reports a broadcast transaction hash for the payment
// identified by reference. The service only acknowledges the delivery;
// callers poll GetStatus with the paymentId for the outcome.
func (c *Client) NotifyTransaction(ctx context.Context, reference, txHash string) error {
	body := map[string]any{
		"reference": reference,
		"txHash":    txHash,
	}
	return c.post(ctx, "/api/payments/webhook", body, nil)
}

// GetStatus fetches the current state of a payment.
func (c *Client) GetStatus(ctx context.Context, paymentID string) (*Payment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/payments/status/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	var payment Payment
	if err := c.do(req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
		return errResp.Error
	}
	return strings.TrimSpace(string(raw))
}
