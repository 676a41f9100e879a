package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/mwhitford/storyloom/internal/config"
)

// Record is a single raw record as returned by the source: an opaque stable
// ID plus an unordered field map with no schema guarantees. Values may be
// scalars, lists, or absent depending on the table's configuration.
type Record struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime"`
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// Client fetches records from the Airtable REST API.
type Client struct {
	baseURL string
	baseID  string
	apiKey  string
	client  *http.Client
}

// NewClient creates a client from config. The API key comes from the
// configured environment variable.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: cfg.Airtable.BaseURL,
		baseID:  cfg.Airtable.BaseID,
		apiKey:  cfg.APIKey(),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured returns whether the API key and base ID are available.
func (c *Client) IsConfigured() bool {
	return c.apiKey != "" && c.baseID != ""
}

// ListAll pages through every record in the given table view and returns the
// full set. The sync is all-or-nothing: any transport or auth failure on any
// page aborts with an error and no partial results escape.
func (c *Client) ListAll(ctx context.Context, table, view string) ([]Record, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("airtable: missing API key or base ID")
	}

	var all []Record
	offset := ""
	page := 0
	for {
		resp, err := c.fetchPage(ctx, table, view, offset)
		if err != nil {
			return nil, fmt.Errorf("fetching %s page %d: %w", table, page+1, err)
		}
		all = append(all, resp.Records...)
		page++

		if resp.Offset == "" {
			break
		}
		offset = resp.Offset
	}

	log.Printf("Fetched %d records from %s (view %q, %d pages)", len(all), table, view, page)
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, table, view, offset string) (*listResponse, error) {
	params := url.Values{}
	if view != "" {
		params.Set("view", view)
	}
	if offset != "" {
		params.Set("offset", offset)
	}

	endpoint := fmt.Sprintf("%s/v0/%s/%s", c.baseURL, c.baseID, url.PathEscape(table))
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var result listResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}
