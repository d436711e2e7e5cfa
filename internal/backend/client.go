package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"portfolio-dashboard/internal/config"
	"portfolio-dashboard/internal/models"
	"portfolio-dashboard/pkg/auth"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxErrorBody bounds how much of an error body is kept in APIError
const maxErrorBody = 512

// Observer receives one call per backend round trip
type Observer interface {
	ObserveUpstream(target, endpoint string, statusCode int, duration time.Duration)
}

// Client talks to the platform REST backend. Use ForUser to obtain a client
// bound to a user's credentials.
type Client struct {
	baseURL  string
	base     http.RoundTripper
	timeout  time.Duration
	observer Observer
	logger   zerolog.Logger
}

// NewClient creates a backend client
func NewClient(cfg config.BackendConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		base:    http.DefaultTransport,
		timeout: time.Duration(cfg.Timeout) * time.Second,
		logger:  logger.With().Str("component", "backend").Logger(),
	}
}

// WithObserver attaches a request observer
func (c *Client) WithObserver(o Observer) *Client {
	c.observer = o
	return c
}

// WithTransport replaces the underlying round tripper
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.base = rt
	return c
}

// AdminAddresses lists the platform deposit addresses. The endpoint is public.
func (c *Client) AdminAddresses(ctx context.Context) ([]models.AdminAddress, error) {
	httpClient := &http.Client{Transport: c.base, Timeout: c.timeout}
	var out []models.AdminAddress
	if err := c.doJSON(ctx, httpClient, nil, http.MethodGet, "/api/admin/addresses", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ForUser returns a client that authenticates as the provider's user
func (c *Client) ForUser(provider auth.TokenProvider) *UserClient {
	return &UserClient{
		parent:   c,
		provider: provider,
		http: &http.Client{
			Transport: &oauth2.Transport{Source: auth.TokenSource(provider), Base: c.base},
			Timeout:   c.timeout,
		},
	}
}

// doJSON sends an optional JSON body and decodes the answer into out
func (c *Client) doJSON(ctx context.Context, httpClient *http.Client, provider auth.TokenProvider, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.do(ctx, httpClient, provider, method, path, reader, contentType, out)
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, provider auth.TokenProvider, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		c.observe(path, 0, start)
		if errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrTokenMissing) {
			if provider != nil {
				provider.OnExpire()
			}
			return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.observe(path, resp.StatusCode, start)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    errorMessage(data),
		}
		if errors.Is(apiErr, ErrUnauthorized) && provider != nil {
			provider.OnExpire()
		}
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("backend returned error")
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := decodeEnvelope(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) observe(path string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstream("backend", endpointLabel(path), status, time.Since(start))
	}
}

// decodeEnvelope accepts both bare payloads and {"data": ...} envelopes
func decodeEnvelope(data []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Data jsoniter.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
			return json.Unmarshal(envelope.Data, out)
		}
	}
	return json.Unmarshal(trimmed, out)
}

func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

// endpointLabel strips ids from a path so metrics stay low-cardinality
func endpointLabel(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) == 4 {
		switch parts[2] {
		case "trades", "deposits", "withdrawals":
			parts[3] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
