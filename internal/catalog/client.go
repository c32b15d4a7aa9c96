package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aurelhart/scoreline-backend/pkg/config"
	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL             = "https://api.notion.com/v1"
	notionVersion              = "2022-06-28"
	errorBodyReadLimit   int64 = 1024
	publishedStatusValue       = "Published"
)

var (
	errAPIKeyRequired     = errors.New("catalog api key is required")
	errDatabaseIDRequired = errors.New("catalog database id is required")
)

// Product is a sellable item in the upstream catalog database.
type Product struct {
	ID          string
	Title       string
	Description string
	Slug        string
	Price       decimal.Decimal
	Status      string
	Category    string
	AssetURL    string
	ImageURL    string
	LastEdited  time.Time
}

// Published reports whether the product is visible to buyers.
func (p Product) Published() bool {
	return strings.EqualFold(p.Status, publishedStatusValue)
}

// Client queries the Notion-backed product catalog.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	databaseID string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured catalog base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the catalog client from configuration.
func NewClient(cfg config.CatalogConfig, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	databaseID := strings.TrimSpace(cfg.DatabaseID)
	if databaseID == "" {
		return nil, errDatabaseIDRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		apiKey:     apiKey,
		databaseID: databaseID,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	if trimmed := strings.TrimSpace(cfg.BaseURL); trimmed != "" {
		client.baseURL = trimmed
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// GetBySlug looks up a single product by its URL slug. A missing slug is not
// an error; it returns (nil, nil) so callers can fall through to other
// identity sources.
func (c *Client) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}

	body := map[string]any{
		"filter": map[string]any{
			"property":  "Slug",
			"rich_text": map[string]any{"equals": trimmed},
		},
	}
	pages, err := c.queryDatabase(ctx, body)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}
	product := parsePage(pages[0])
	return &product, nil
}

// GetByID fetches a single product page by its catalog ID.
func (c *Client) GetByID(ctx context.Context, id string) (*Product, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	endpoint := fmt.Sprintf("%s/pages/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build product request")
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute product request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "product request failed")
	}

	var page pageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product response")
	}
	product := parsePage(page)
	return &product, nil
}

// ListPublished returns every product whose status is Published, sorted by title.
func (c *Client) ListPublished(ctx context.Context) ([]Product, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}

	body := map[string]any{
		"filter": map[string]any{
			"property": "Status",
			"status":   map[string]any{"equals": publishedStatusValue},
		},
		"sorts": []map[string]any{
			{"property": "Title", "direction": "ascending"},
		},
	}
	pages, err := c.queryDatabase(ctx, body)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(pages))
	for _, page := range pages {
		products = append(products, parsePage(page))
	}
	return products, nil
}

// Ping verifies the database is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}

	endpoint := fmt.Sprintf("%s/databases/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(c.databaseID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build catalog ping request")
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute catalog ping")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, "catalog ping failed")
	}
	return nil
}

func (c *Client) queryDatabase(ctx context.Context, body map[string]any) ([]pageEnvelope, error) {
	endpoint := fmt.Sprintf("%s/databases/%s/query", strings.TrimRight(c.baseURL, "/"), url.PathEscape(c.databaseID))
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal catalog query")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build catalog query request")
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute catalog query")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "catalog query failed")
	}

	var apiResp struct {
		Results []pageEnvelope `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode catalog query response")
	}
	return apiResp.Results, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) statusError(resp *http.Response, message string) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), message)
}
