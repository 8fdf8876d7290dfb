// Package client is the storefront API client used by the command-line tools.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configure a Client.
type Options struct {
	// Token is sent as a bearer token on order requests when set.
	Token string
	// APIKey is sent on staff requests.
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Client calls the storefront HTTP API.
type Client struct {
	baseURL string
	token   string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts Options, logger zerolog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   opts.Token,
		apiKey:  opts.APIKey,
		http:    hc,
		logger:  logger.With().Str("component", "api-client").Logger(),
	}, nil
}

// envelope is the response body of every API call.
type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields"`
}

// ListProducts returns a page of the catalogue.
func (c *Client) ListProducts(ctx context.Context, limit, offset int) ([]model.Product, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var products []model.Product
	if err := c.do(ctx, http.MethodGet, "/products?"+q.Encode(), nil, authNone, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct returns a single product.
func (c *Client) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, authNone, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListDeliveryMethods returns the active delivery methods.
func (c *Client) ListDeliveryMethods(ctx context.Context) ([]model.DeliveryMethod, error) {
	var methods []model.DeliveryMethod
	if err := c.do(ctx, http.MethodGet, "/delivery-methods", nil, authNone, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// SubmitOrder places an order. Server rejections are returned as *model.DomainError.
func (c *Client) SubmitOrder(ctx context.Context, req model.OrderRequest) (*model.OrderConfirmation, error) {
	var confirmation model.OrderConfirmation
	if err := c.do(ctx, http.MethodPost, "/orders", req, authBearer, &confirmation); err != nil {
		return nil, err
	}
	return &confirmation, nil
}

// GetOrder returns the full order.
func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (*model.OrderDetail, error) {
	var order model.OrderDetail
	if err := c.do(ctx, http.MethodGet, "/orders/"+id.String(), nil, authBearer, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus moves an order to status. It requires the staff API key.
func (c *Client) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.StatusChange, error) {
	var change model.StatusChange
	body := model.StatusUpdateRequest{Status: string(status)}
	if err := c.do(ctx, http.MethodPut, "/admin/orders/"+id.String()+"/status", body, authAPIKey, &change); err != nil {
		return nil, err
	}
	return &change, nil
}

type authMode int

const (
	authNone authMode = iota
	authBearer
	authAPIKey
)

func (c *Client) do(ctx context.Context, method, path string, body any, mode authMode, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch mode {
	case authBearer:
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
	case authAPIKey:
		req.Header.Set("X-API-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api call")

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return unexpectedStatus(resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !env.Success {
		return toDomainError(resp.StatusCode, env)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func toDomainError(status int, env envelope) error {
	if env.Code == "" {
		return unexpectedStatus(status)
	}
	message := env.Message
	if message == "" {
		message = http.StatusText(status)
	}
	return &model.DomainError{Code: env.Code, Message: message, Fields: env.Fields}
}

// ErrUnexpectedStatus is returned for error responses without a domain code.
var ErrUnexpectedStatus = errors.New("unexpected response status")

func unexpectedStatus(status int) error {
	return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, status, http.StatusText(status))
}
