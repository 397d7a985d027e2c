package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/Flare200/natours/pkg/errors"
	"github.com/Flare200/natours/pkg/httpclient"
)

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// HTTPClient talks to the payment gateway's REST API.
type HTTPClient struct {
	client  HTTPDoer
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewHTTPClient creates a payment gateway client.
func NewHTTPClient(client HTTPDoer, baseURL, apiKey string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
}

// CreateCheckoutSession creates a hosted checkout session on the gateway.
func (c *HTTPClient) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout session params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create checkout session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest {
			return nil, apperrors.InvalidInput("payment gateway rejected the checkout session")
		}
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode checkout session response: %w", err)
	}

	c.logger.InfoContext(ctx, "checkout session created on gateway",
		slog.String("session_id", session.ID),
		slog.String("client_reference_id", session.ClientReferenceID),
	)

	return &session, nil
}

var (
	_ Client   = (*HTTPClient)(nil)
	_ HTTPDoer = (*httpclient.Client)(nil)
	_ HTTPDoer = (*httpclient.CircuitBreakerClient)(nil)
)
