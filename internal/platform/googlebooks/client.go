package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

// MaxResultsLimit is the largest page the provider accepts.
const MaxResultsLimit = 40

var ErrNotFound = errors.New("volume not found")

// StatusError is returned for non-success provider responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

type Config struct {
	BaseURL    string
	APIKey     string
	UserAgent  string
	RPS        float64
	Burst      int
	MaxRetries int
	Timeout    time.Duration
	CacheTTL   time.Duration
	CacheSize  int
	// Registerer receives the client metrics. A private registry is used when nil.
	Registerer prometheus.Registerer
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	// fetchTimeout bounds one shared fetch, retries included.
	fetchTimeout time.Duration
	cache        *expirable.LRU[string, []byte]
	group        singleflight.Group
	metrics      *metrics
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "bookcrew/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 4
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 512
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	var cache *expirable.LRU[string, []byte]
	if cfg.CacheTTL > 0 {
		cache = expirable.NewLRU[string, []byte](cfg.CacheSize, nil, cfg.CacheTTL)
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		userAgent:    cfg.UserAgent,
		limiter:      rate.NewLimiter(limit, cfg.Burst),
		maxRetries:   cfg.MaxRetries,
		backoff:      500 * time.Millisecond,
		fetchTimeout: cfg.Timeout * time.Duration(max(1, cfg.MaxRetries+1)),
		cache:        cache,
		metrics:      newMetrics(cfg.Registerer),
	}
}

// SearchURL builds the volumes query URL. maxResults is clamped to 1..40.
func (c *Client) SearchURL(query string, maxResults int, opts QueryOptions) string {
	maxResults = min(MaxResultsLimit, max(1, maxResults))

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(maxResults))

	printType := opts.PrintType
	if printType == "" {
		printType = PrintTypeBooks
	}
	params.Set("printType", printType)

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = OrderRelevance
	}
	params.Set("orderBy", orderBy)

	if opts.Filter != "" {
		params.Set("filter", opts.Filter)
	}
	if opts.LangRestrict != "" {
		params.Set("langRestrict", opts.LangRestrict)
	}
	if opts.StartIndex > 0 {
		params.Set("startIndex", strconv.Itoa(opts.StartIndex))
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	return c.baseURL + "?" + params.Encode()
}

// VolumeURL builds the single-volume URL.
func (c *Client) VolumeURL(id string) string {
	u := c.baseURL + "/" + url.PathEscape(id)
	if c.apiKey != "" {
		u += "?" + url.Values{"key": []string{c.apiKey}}.Encode()
	}
	return u
}

func (c *Client) Volumes(ctx context.Context, query string, maxResults int, opts QueryOptions) ([]Volume, error) {
	body, err := c.fetch(ctx, "volumes", c.SearchURL(query, maxResults, opts))
	if err != nil {
		return nil, err
	}

	var res volumesResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode volumes: %w", err)
	}
	return res.Items, nil
}

func (c *Client) Volume(ctx context.Context, id string) (*Volume, error) {
	body, err := c.fetch(ctx, "volume", c.VolumeURL(id))
	if err != nil {
		return nil, err
	}

	var v Volume
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode volume: %w", err)
	}
	return &v, nil
}

// fetch serves from the response cache, coalescing identical in-flight
// requests. The shared request runs detached from any one caller, so a
// caller that gives up only ends its own wait.
func (c *Client) fetch(ctx context.Context, endpoint, u string) ([]byte, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(u); ok {
			c.metrics.cacheHits.Inc()
			return body, nil
		}
	}

	ch := c.group.DoChan(u, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		start := time.Now()
		body, err := c.get(fetchCtx, u)
		c.metrics.observe(endpoint, err, time.Since(start))
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			c.cache.Add(u, body)
		}
		return body, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 0.5s, 1s, 2s...
			backoff := c.backoff * time.Duration(1<<uint(i-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retry, err := c.do(ctx, u)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, u string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, &StatusError{StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, false, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}
