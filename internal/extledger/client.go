package extledger

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

	"github.com/aurelhart/scoreline-backend/internal/orders"
	"github.com/aurelhart/scoreline-backend/pkg/config"
	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
)

const (
	defaultBaseURL           = "https://api.notion.com/v1"
	notionVersion            = "2022-06-28"
	errorBodyReadLimit int64 = 1024

	propOrderID          = "Order ID"
	propCustomerEmail    = "Customer Email"
	propCustomerName     = "Customer Name"
	propItemTitle        = "Item"
	propAmount           = "Amount"
	propStatus           = "Status"
	propPurchaseDate     = "Purchase Date"
	propPaymentReference = "Payment Reference"
	propCatalogID        = "Catalog ID"

	missingValue = "N/A"
)

var (
	errAPIKeyRequired     = errors.New("external ledger api key is required")
	errDatabaseIDRequired = errors.New("external ledger database id is required")
)

// Client writes order entries to the Notion-backed external ledger database.
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

// WithBaseURL overrides the configured ledger base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the external ledger client from configuration.
func NewClient(cfg config.ExtLedgerConfig, opts ...Option) (*Client, error) {
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

// CreateEntry writes one order as a new page and returns the page id.
func (c *Client) CreateEntry(ctx context.Context, order orders.OrderDTO) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "external ledger client not configured")
	}

	amount, _ := order.Amount.Float64()
	body := map[string]any{
		"parent": map[string]any{"database_id": c.databaseID},
		"properties": map[string]any{
			propOrderID:          titleProperty(order.OrderID),
			propCustomerEmail:    map[string]any{"email": order.CustomerEmail},
			propCustomerName:     richTextProperty(orDefault(order.CustomerName, missingValue)),
			propItemTitle:        richTextProperty(orDefault(order.Title, missingValue)),
			propAmount:           map[string]any{"number": amount},
			propStatus:           selectProperty(string(order.Status)),
			propPurchaseDate:     dateProperty(order.CreatedAt),
			propPaymentReference: richTextProperty(orDefault(order.PaymentReference, missingValue)),
			propCatalogID:        richTextProperty(orDefault(order.CatalogID, missingValue)),
		},
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/pages"
	resp, err := c.post(ctx, endpoint, body)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp, "create ledger entry failed")
	}

	var page struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode ledger entry response")
	}
	return page.ID, nil
}

// UpdateStatus patches the status of an existing page. When externalID is
// empty the page is located by its order id first.
func (c *Client) UpdateStatus(ctx context.Context, externalID, orderID, status string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "external ledger client not configured")
	}

	pageID := strings.TrimSpace(externalID)
	if pageID == "" {
		found, err := c.findByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if found == "" {
			return pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
		}
		pageID = found
	}

	endpoint := fmt.Sprintf("%s/pages/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(pageID))
	body := map[string]any{
		"properties": map[string]any{
			propStatus: selectProperty(status),
		},
	}
	resp, err := c.patch(ctx, endpoint, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, "update ledger entry failed")
	}
	return nil
}

// Ping verifies the ledger database is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "external ledger client not configured")
	}

	endpoint := fmt.Sprintf("%s/databases/%s/query", strings.TrimRight(c.baseURL, "/"), url.PathEscape(c.databaseID))
	resp, err := c.post(ctx, endpoint, map[string]any{"page_size": 1})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, "ledger ping failed")
	}
	return nil
}

func (c *Client) findByOrderID(ctx context.Context, orderID string) (string, error) {
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	endpoint := fmt.Sprintf("%s/databases/%s/query", strings.TrimRight(c.baseURL, "/"), url.PathEscape(c.databaseID))
	body := map[string]any{
		"filter": map[string]any{
			"property": propOrderID,
			"title":    map[string]any{"equals": trimmed},
		},
	}
	resp, err := c.post(ctx, endpoint, body)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(resp, "ledger lookup failed")
	}

	var apiResp struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode ledger lookup response")
	}
	if len(apiResp.Results) == 0 {
		return "", nil
	}
	return apiResp.Results[0].ID, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body map[string]any) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, endpoint, body)
}

func (c *Client) patch(ctx context.Context, endpoint string, body map[string]any) (*http.Response, error) {
	return c.send(ctx, http.MethodPatch, endpoint, body)
}

func (c *Client) send(ctx context.Context, method, endpoint string, body map[string]any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal ledger request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build ledger request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Notion-Version", notionVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute ledger request")
	}
	return resp, nil
}

func (c *Client) statusError(resp *http.Response, message string) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), message)
}

func titleProperty(value string) map[string]any {
	return map[string]any{
		"title": []map[string]any{
			{"text": map[string]any{"content": value}},
		},
	}
}

func richTextProperty(value string) map[string]any {
	return map[string]any{
		"rich_text": []map[string]any{
			{"text": map[string]any{"content": value}},
		},
	}
}

func selectProperty(value string) map[string]any {
	return map[string]any{"select": map[string]any{"name": value}}
}

func dateProperty(value time.Time) map[string]any {
	return map[string]any{"date": map[string]any{"start": value.UTC().Format(time.RFC3339)}}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
