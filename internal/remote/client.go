package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/epiview/epiview/internal/catalog"
	logpkg "github.com/epiview/epiview/pkg/log"
)

// Client talks to the remote episode source.
type Client struct {
	base   string
	http   *http.Client
	logger logpkg.Logger
}

// New returns a Client for the given base URL. Timeout bounds each request;
// zero means 10s.
func New(baseURL string, timeout time.Duration, logger logpkg.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logpkg.NewLogger().WithComponent("remote")
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// FetchEpisodes fetches the full episode list.
func (c *Client) FetchEpisodes(ctx context.Context) ([]catalog.Episode, error) {
	var out []catalog.Episode
	if err := c.getJSON(ctx, "/episodes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchEpisodesByCategory fetches the episode list for one category.
func (c *Client) FetchEpisodesByCategory(ctx context.Context, category int) ([]catalog.Episode, error) {
	q := url.Values{"category": []string{strconv.Itoa(category)}}
	var out []catalog.Episode
	if err := c.getJSON(ctx, "/episodes", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchSortOrder fetches the custom sort order: episode ids in display
// precedence. Not every episode needs to appear in it.
func (c *Client) FetchSortOrder(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, "/order", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v interface{}) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	t0 := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("remote: build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote: get %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("remote: decode %s: %w", path, err)
	}
	c.logger.Debug("remote.get",
		logpkg.Str("path", path),
		logpkg.Int64("dur_ms", time.Since(t0).Milliseconds()),
	)
	return nil
}
