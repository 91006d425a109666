package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"toptours-server/internal/domain"
	"toptours-server/internal/infra"
)

// ErrMissingBaseURL indicates the client was configured without endpoints.
var ErrMissingBaseURL = errors.New("catalog: base url is required")

// Item is the display metadata for a resolved catalog entry.
type Item struct {
	ID       string
	Type     domain.ItemType
	Name     string
	Slug     string
	ImageURL string
}

// Options configures the catalog client.
type Options struct {
	TourBaseURL    string
	DiningBaseURL  string
	APIKey         string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client resolves tour product codes against the tour supplier API and
// restaurant ids against the internal dining catalog.
type Client struct {
	tourBaseURL   string
	diningBaseURL string
	apiKey        string
	httpClient    *http.Client
	logger        *infra.Logger
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.TourBaseURL) == "" || strings.TrimSpace(opts.DiningBaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		tourBaseURL:   strings.TrimRight(opts.TourBaseURL, "/"),
		diningBaseURL: strings.TrimRight(opts.DiningBaseURL, "/"),
		apiKey:        opts.APIKey,
		httpClient:    httpClient,
		logger:        opts.Logger,
	}, nil
}

// Resolve reports whether the item exists, returning domain.ErrItemNotFound
// when the catalog has no such entry.
func (c *Client) Resolve(ctx context.Context, itemID string, itemType domain.ItemType) error {
	_, err := c.Lookup(ctx, itemID, itemType)
	return err
}

// Lookup fetches display metadata for an item.
func (c *Client) Lookup(ctx context.Context, itemID string, itemType domain.ItemType) (*Item, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, domain.ErrItemNotFound
	}

	var endpoint string
	switch itemType {
	case domain.ItemTypeTour:
		endpoint = fmt.Sprintf("%s/products/%s", c.tourBaseURL, url.PathEscape(itemID))
	case domain.ItemTypeRestaurant:
		endpoint = fmt.Sprintf("%s/restaurants/%s", c.diningBaseURL, url.PathEscape(itemID))
	default:
		return nil, domain.ErrInvalidItemType
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if itemType == domain.ItemTypeTour && c.apiKey != "" {
		req.Header.Set("exp-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrItemNotFound
	case resp.StatusCode != http.StatusOK:
		if c.logger != nil {
			c.logger.Warn().Int("status", resp.StatusCode).Str("item_id", itemID).Msg("catalog lookup failed")
		}
		return nil, fmt.Errorf("catalog: unexpected status %d for %s", resp.StatusCode, itemID)
	}

	var payload struct {
		ProductCode string `json:"productCode"`
		ID          string `json:"id"`
		Title       string `json:"title"`
		Name        string `json:"name"`
		Images      []struct {
			Variants []struct {
				URL string `json:"url"`
			} `json:"variants"`
		} `json:"images"`
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("catalog: decode response: %w", err)
	}

	item := &Item{ID: itemID, Type: itemType}
	item.Name = payload.Title
	if item.Name == "" {
		item.Name = payload.Name
	}
	item.Slug = slug.Make(item.Name)
	item.ImageURL = payload.ImageURL
	if item.ImageURL == "" && len(payload.Images) > 0 && len(payload.Images[0].Variants) > 0 {
		item.ImageURL = payload.Images[0].Variants[0].URL
	}
	return item, nil
}
