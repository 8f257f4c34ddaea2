package provider

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

	"github.com/andersonlima/payhook/internal/pkg/env"
)

const defaultCheckTimeout = 8 * time.Second

// Client talks to the payment provider's authoritative payment-status API.
// It is the re-verification fallback used when a webhook arrives with
// identifying fields that match nothing locally.
type Client struct {
	BaseURL string
	Handle  string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from PROVIDER_API_BASE_URL and
// PROVIDER_HANDLE.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: strings.TrimRight(env.GetEnv("PROVIDER_API_BASE_URL", ""), "/"),
		Handle:  strings.TrimSpace(env.GetEnv("PROVIDER_HANDLE", "")),
		HTTPClient: &http.Client{
			Timeout: defaultCheckTimeout,
		},
	}
}

type checkRequest struct {
	Handle         string `json:"handle"`
	OrderNsu       string `json:"order_nsu"`
	TransactionNsu string `json:"transaction_nsu"`
	Slug           string `json:"slug"`
}

type checkResponse struct {
	Paid bool `json:"paid"`
}

// CheckPayment asks the provider whether the referenced payment is genuinely
// settled. The HTTP client carries its own timeout; callers should still pass
// a bounded context so a slow provider fails the match, not the request.
func (c *Client) CheckPayment(ctx context.Context, orderNsu, transactionNsu, slug string) (bool, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return false, errors.New("PROVIDER_API_BASE_URL is not configured")
	}
	if strings.TrimSpace(orderNsu) == "" {
		return false, errors.New("order nsu is required")
	}

	payload, err := json.Marshal(checkRequest{
		Handle:         c.Handle,
		OrderNsu:       orderNsu,
		TransactionNsu: transactionNsu,
		Slug:           slug,
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/payment_check", bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("payment check failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out checkResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, err
	}
	return out.Paid, nil
}
