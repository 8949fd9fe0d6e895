// Package payments creates hosted payment links with the external payment
// provider. Only link creation lives here; the rest of the gateway protocol
// (webhooks, captures, refunds) is the provider's responsibility.
package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the production links endpoint of the payment provider.
const DefaultBaseURL = "https://api.paymongo.com/v1"

// ErrNotConfigured is returned when no provider secret key is set.
var ErrNotConfigured = errors.New("payment provider secret key is not configured")

// Link is a hosted checkout link returned by the provider.
type Link struct {
	ID          string
	CheckoutURL string
	Status      string
}

// Client calls the provider's links API. The zero value is unusable; use New.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

// New creates a Client. baseURL may be empty to use DefaultBaseURL; tests
// point it at a local server.
func New(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   baseURL,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type linkRequest struct {
	Data struct {
		Attributes struct {
			Amount      int64  `json:"amount"`
			Description string `json:"description"`
			Remarks     string `json:"remarks"`
			Currency    string `json:"currency"`
			Redirect    struct {
				Success string `json:"success"`
				Failed  string `json:"failed"`
			} `json:"redirect"`
		} `json:"attributes"`
	} `json:"data"`
}

type linkResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			CheckoutURL string `json:"checkout_url"`
			Status      string `json:"status"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateLink creates a payment link for the given amount in currency units.
// The provider wants the amount in centavos.
func (c *Client) CreateLink(ctx context.Context, amount decimal.Decimal, description, successURL, failedURL string) (*Link, error) {
	if c.secretKey == "" {
		return nil, ErrNotConfigured
	}

	var req linkRequest
	req.Data.Attributes.Amount = amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	req.Data.Attributes.Description = description
	req.Data.Attributes.Remarks = "Checkout payment link"
	req.Data.Attributes.Currency = "PHP"
	req.Data.Attributes.Redirect.Success = successURL
	req.Data.Attributes.Redirect.Failed = failedURL

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal link request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/links", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build link request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.secretKey+":")))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "call payment provider")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("payment provider returned %d: %s", resp.StatusCode, msg)
	}

	var lr linkResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, errors.Wrap(err, "decode link response")
	}

	return &Link{
		ID:          lr.Data.ID,
		CheckoutURL: lr.Data.Attributes.CheckoutURL,
		Status:      lr.Data.Attributes.Status,
	}, nil
}
