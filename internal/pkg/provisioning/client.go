package provisioning

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

const defaultTimeout = 10 * time.Second

// Client talks to the external account-provisioning API that owns subscriber
// records. Creation is idempotent by username: an "already exists" response
// is a success signal, not an error.
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from PROVISIONING_API_BASE_URL and
// PROVISIONING_API_KEY.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: strings.TrimRight(env.GetEnv("PROVISIONING_API_BASE_URL", ""), "/"),
		APIKey:  strings.TrimSpace(env.GetEnv("PROVISIONING_API_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type createUserRequest struct {
	Username        string     `json:"username"`
	Password        string     `json:"password"`
	AccessType      string     `json:"access_type"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
}

// CreateSubscriber creates a subscriber account. Returns nil both on a fresh
// create and when the account already existed.
func (c *Client) CreateSubscriber(ctx context.Context, username, password, accessType string, subscriptionEnd *time.Time) error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("PROVISIONING_API_BASE_URL is not configured")
	}
	if strings.TrimSpace(username) == "" {
		return errors.New("username is required")
	}

	payload, err := json.Marshal(createUserRequest{
		Username:        username,
		Password:        password,
		AccessType:      accessType,
		SubscriptionEnd: subscriptionEnd,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/users", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if isAlreadyExists(resp.StatusCode, body) {
		return nil
	}
	return fmt.Errorf("subscriber create failed: status=%d body=%s", resp.StatusCode, string(body))
}

func isAlreadyExists(status int, body []byte) bool {
	if status == http.StatusConflict {
		return true
	}
	// Some deployments answer 400/422 with an "already exists" message
	// instead of a proper 409.
	if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
		return strings.Contains(strings.ToLower(string(body)), "exist")
	}
	return false
}
