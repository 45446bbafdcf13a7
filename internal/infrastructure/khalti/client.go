// Package khalti is a client for the Khalti ePayment v2 API.
package khalti

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shopsystem/internal/config"

	"github.com/shopspring/decimal"
)

var ErrMalformedResponse = errors.New("khalti: malformed response")

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("khalti error %d: %s", e.StatusCode, e.Body)
}

// Payment describes a payment to start. Amount is in rupees.
type Payment struct {
	Amount            float64
	PurchaseOrderID   string
	PurchaseOrderName string
}

type initiatePayload struct {
	ReturnURL         string `json:"return_url"`
	WebsiteURL        string `json:"website_url"`
	Amount            int64  `json:"amount"`
	PurchaseOrderID   string `json:"purchase_order_id"`
	PurchaseOrderName string `json:"purchase_order_name"`
}

// InitiateResponse holds the decoded fields plus the body exactly as Khalti sent it.
type InitiateResponse struct {
	Pidx       string          `json:"pidx"`
	PaymentURL string          `json:"payment_url"`
	ExpiresAt  string          `json:"expires_at"`
	ExpiresIn  int             `json:"expires_in"`
	Raw        json.RawMessage `json:"-"`
}

type LookupResponse struct {
	Pidx          string  `json:"pidx"`
	TotalAmount   int64   `json:"total_amount"`
	Status        string  `json:"status"`
	TransactionID *string `json:"transaction_id"`
	Fee           int64   `json:"fee"`
	Refunded      bool    `json:"refunded"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	returnURL  string
	websiteURL string
}

func NewClient(cfg *config.KhaltiConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		returnURL:  cfg.ReturnURL,
		websiteURL: cfg.WebsiteURL,
	}
}

// ToPaisa converts rupees to paisa, the unit Khalti expects.
func ToPaisa(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Initiate starts a payment and returns where to send the buyer.
func (c *Client) Initiate(ctx context.Context, p *Payment) (*InitiateResponse, error) {
	payload := initiatePayload{
		ReturnURL:         c.returnURL,
		WebsiteURL:        c.websiteURL,
		Amount:            ToPaisa(p.Amount),
		PurchaseOrderID:   p.PurchaseOrderID,
		PurchaseOrderName: p.PurchaseOrderName,
	}

	body, err := c.post(ctx, "/epayment/initiate/", payload)
	if err != nil {
		return nil, err
	}

	var resp InitiateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Pidx == "" {
		return nil, fmt.Errorf("%w: missing pidx", ErrMalformedResponse)
	}
	resp.Raw = body
	return &resp, nil
}

// Lookup reports the current state of the payment identified by pidx.
func (c *Client) Lookup(ctx context.Context, pidx string) (*LookupResponse, error) {
	body, err := c.post(ctx, "/epayment/lookup/", map[string]string{"pidx": pidx})
	if err != nil {
		return nil, err
	}

	var resp LookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Status == "" {
		return nil, fmt.Errorf("%w: missing status", ErrMalformedResponse)
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "key "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("khalti request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read khalti response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
