package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/rulegrid/internal/grid"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 32 * 1024 * 1024

// HTTPClient calls the reporting API over HTTP/JSON:
//
//	GET {base}/v1/entities?granularity=campaign        -> [{"id":..,"name":..}]
//	GET {base}/v1/metrics?granularity=campaign&fields=a,b -> {"<id>":{"a":1.5}}
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPClient returns a client for baseURL. token, when set, is sent as a
// bearer token.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Rows returns the tracked entities at granularity.
func (c *HTTPClient) Rows(ctx context.Context, granularity string) ([]grid.Entity, error) {
	q := url.Values{"granularity": {granularity}}
	var out []grid.Entity
	if err := c.get(ctx, "/v1/entities", q, &out); err != nil {
		return nil, fmt.Errorf("list %s entities: %w", granularity, err)
	}
	return out, nil
}

// Metrics returns the requested fields for every entity at granularity.
func (c *HTTPClient) Metrics(ctx context.Context, granularity string, fields []string) (map[string]Metrics, error) {
	q := url.Values{
		"granularity": {granularity},
		"fields":      {strings.Join(fields, ",")},
	}
	out := make(map[string]Metrics)
	if err := c.get(ctx, "/v1/metrics", q, &out); err != nil {
		return nil, fmt.Errorf("fetch %s metrics: %w", granularity, err)
	}
	return out, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, q url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseSize)
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		return fmt.Errorf("reporting api %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
