package hostapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

// Host endpoints, relative to the resource base URL.
const (
	PurchasePath = "/purchaseItems"
	ClosePath    = "/closeShop"
)

const maxResponseBytes = 1 << 20

// ResourceURL is the base URL of the request channel bound to a resource.
func ResourceURL(resource string) string {
	return "https://" + resource
}

// StatusError is a non-2xx reply from the host.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("post %s: unexpected status %d", e.Path, e.Code)
}

// Client talks to the host over its resource-bound HTTP channel.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *zap.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient, Logger: logger}
}

func (c *Client) Purchase(ctx context.Context, req domain.PurchaseRequest) (domain.PurchaseResponse, error) {
	var resp domain.PurchaseResponse
	body, err := c.post(ctx, PurchasePath, req)
	var status *StatusError
	if errors.As(err, &status) {
		// A refusal sent with an error status still carries the host's verdict.
		if json.Unmarshal(body, &resp) == nil && !resp.Success &&
			(resp.Message != "" || resp.Money != nil || resp.CustomCurrencies != nil) {
			c.Logger.Debug("host refused purchase", zap.Int("status", status.Code), zap.String("message", resp.Message))
			return resp, nil
		}
		return domain.PurchaseResponse{}, err
	}
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PurchaseResponse{}, fmt.Errorf("decode purchase response: %w", err)
	}
	return resp, nil
}

func (c *Client) NotifyClosed(ctx context.Context) error {
	_, err := c.post(ctx, ClosePath, struct{}{})
	return err
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return body, &StatusError{Path: path, Code: res.StatusCode}
	}
	c.Logger.Debug("host request done", zap.String("path", path), zap.Int("status", res.StatusCode), zap.Int("bytes", len(body)))
	return body, nil
}

var _ domain.HostGateway = (*Client)(nil)
