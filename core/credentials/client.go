// Package credentials exchanges a server-held secret for short-lived
// session credentials.
//
// The exchange is a plain request/response; no state is kept between calls.
package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tbornik/coaching-core/core/transport"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

// CredentialError reports a failed credential exchange. Status carries the
// upstream HTTP status verbatim so callers can surface it unchanged.
type CredentialError struct {
	Status  int
	Message string
	Details string
}

func (e *CredentialError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("credential exchange failed (%d): %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("credential exchange failed (%d): %s", e.Status, e.Message)
}

// Health is the side-effect-free health probe response.
type Health struct {
	Status    string `json:"status"`
	HasAPIKey bool   `json:"hasApiKey"`
}

// Client mints session credentials from a token endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

// WithAPIKey includes an API key in the exchange request body, for
// deployments where the token endpoint does not hold the secret itself.
func WithAPIKey(apiKey string) Option {
	return func(c *Client) { c.apiKey = apiKey }
}

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(endpoint string, opts ...Option) *Client {
	client := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Acquire exchanges the configured secret for a session credential.
// Failures are not retried; connect treats them as fatal.
func (c *Client) Acquire(ctx context.Context) (transport.Credential, error) {
	ctx, span := tracer.Start(ctx, "acquire session credential")
	defer span.End()

	var requestBody io.Reader
	if c.apiKey != "" {
		bodyBytes, err := json.Marshal(map[string]string{"apiKey": c.apiKey})
		if err != nil {
			span.RecordError(err)
			return transport.Credential{}, fmt.Errorf("error marshalling JSON: %w", err)
		}
		requestBody = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, requestBody)
	if err != nil {
		span.RecordError(err)
		return transport.Credential{}, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return transport.Credential{}, fmt.Errorf("error sending credential request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Error == "" {
			failure.Error = resp.Status
		}
		credentialErr := &CredentialError{Status: resp.StatusCode, Message: failure.Error, Details: failure.Details}
		span.RecordError(credentialErr)
		return transport.Credential{}, credentialErr
	}

	var success struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expiresAt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&success); err != nil {
		span.RecordError(err)
		return transport.Credential{}, fmt.Errorf("error unmarshalling credential response: %w", err)
	}
	if success.Token == "" {
		err := &CredentialError{Status: resp.StatusCode, Message: "empty token in credential response"}
		span.RecordError(err)
		return transport.Credential{}, err
	}

	return transport.Credential{Token: success.Token, ExpiresAt: success.ExpiresAt}, nil
}

// Status probes the token endpoint without minting anything.
func (c *Client) Status(ctx context.Context) (Health, error) {
	ctx, span := tracer.Start(ctx, "check credential endpoint health")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		span.RecordError(err)
		return Health{}, fmt.Errorf("error creating HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return Health{}, fmt.Errorf("error sending health request: %w", err)
	}
	defer resp.Body.Close()

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		span.RecordError(err)
		return Health{}, fmt.Errorf("error unmarshalling health response: %w", err)
	}
	return health, nil
}
