package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/rbright/voxsearch/internal/config"
)

var (
	// ErrNotConfigured reports a missing API_BASE_URL or AI_SEARCH_URL.
	ErrNotConfigured = errors.New("catalog endpoint not configured")
	// ErrEmptyQuery rejects an AI search without a product name.
	ErrEmptyQuery = errors.New("product name is required for search")
)

// APIError is a non-successful catalog response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog request failed: status %d", e.Status)
	}
	if e.Status == 0 {
		return "catalog request failed: " + e.Message
	}
	return fmt.Sprintf("catalog request failed: status %d: %s", e.Status, e.Message)
}

// envelope is the product API response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Client talks to the product REST API and the AI search webhook.
type Client struct {
	baseURL     string
	aiSearchURL string
	http        *http.Client
	logger      *slog.Logger
}

// NewClient constructs a catalog client from runtime config.
func NewClient(cfg config.CatalogConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/"),
		aiSearchURL: strings.TrimSpace(cfg.AISearchURL),
		http:        newHTTPClient(cfg),
		logger:      logger,
	}
}

func newHTTPClient(cfg config.CatalogConfig) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.EnableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}

// ListProducts returns every catalog product.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, http.MethodGet, "", nil, &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// GetProduct returns one product by id.
func (c *Client) GetProduct(ctx context.Context, id ID) (Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodGet, string(id), nil, &product); err != nil {
		return Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return product, nil
}

// CreateProduct validates and creates product.
func (c *Client) CreateProduct(ctx context.Context, product Product) (Product, error) {
	if err := product.Validate(); err != nil {
		return Product{}, err
	}
	product.ID = ""
	var created Product
	if err := c.do(ctx, http.MethodPost, "", product, &created); err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

// UpdateProduct validates and replaces product id.
func (c *Client) UpdateProduct(ctx context.Context, id ID, product Product) (Product, error) {
	if err := product.Validate(); err != nil {
		return Product{}, err
	}
	product.ID = ""
	var updated Product
	if err := c.do(ctx, http.MethodPut, string(id), product, &updated); err != nil {
		return Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	return updated, nil
}

// DeleteProduct removes product id.
func (c *Client) DeleteProduct(ctx context.Context, id ID) error {
	if err := c.do(ctx, http.MethodDelete, string(id), nil, nil); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

// AISearch asks the search webhook to describe productName.
func (c *Client) AISearch(ctx context.Context, productName string) (SearchResult, error) {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return SearchResult{}, ErrEmptyQuery
	}
	if c.aiSearchURL == "" {
		return SearchResult{}, fmt.Errorf("%w: AI_SEARCH_URL", ErrNotConfigured)
	}

	body, err := json.Marshal(map[string]string{"productName": productName})
	if err != nil {
		return SearchResult{}, fmt.Errorf("encode search request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.aiSearchURL, bytes.NewReader(body))
	if err != nil {
		return SearchResult{}, fmt.Errorf("build search request: %w", err)
	}
	// The webhook expects a text/plain body carrying JSON.
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("ai search: %w", err)
	}
	defer resp.Body.Close()
	c.logDebug("ai search response", "status", resp.StatusCode, "latency_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SearchResult{}, fmt.Errorf("ai search: %w", &APIError{Status: resp.StatusCode, Message: readMessage(resp.Body)})
	}

	var payload struct {
		Success bool            `json:"success"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return SearchResult{}, fmt.Errorf("decode search response: %w", err)
	}
	if !payload.Success {
		return SearchResult{}, fmt.Errorf("ai search: %w", &APIError{Status: resp.StatusCode, Message: rawMessage(payload.Message)})
	}

	var result SearchResult
	if err := json.Unmarshal(payload.Message, &result); err != nil {
		return SearchResult{}, fmt.Errorf("decode search result: %w", err)
	}
	return result, nil
}

// Ping checks that the product API answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListProducts(ctx)
	return err
}

func (c *Client) productsURL(id string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("%w: API_BASE_URL", ErrNotConfigured)
	}
	if id == "" {
		return c.baseURL + "/products", nil
	}
	return c.baseURL + "/products/" + url.PathEscape(id), nil
}

// do performs one product API call and decodes the envelope data into out.
func (c *Client) do(ctx context.Context, method string, id string, in any, out any) error {
	endpoint, err := c.productsURL(id)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.logDebug("catalog response", "method", method, "status", resp.StatusCode, "latency_ms", time.Since(start).Milliseconds())

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := env.Message
		if decodeErr != nil {
			message = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func readMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	var env struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Message) > 0 {
		return rawMessage(env.Message)
	}
	return strings.TrimSpace(string(raw))
}

// rawMessage renders a message field that may be a string or an object.
func rawMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (c *Client) logDebug(msg string, attrs ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, attrs...)
}
