package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"moviesvault/catalog/internal/metrics"
	"moviesvault/catalog/internal/session"
)

const (
	defaultBaseURL   = "http://127.0.0.1:8000/api"
	defaultUserAgent = "moviesvault-catalog/1.0"
	maxBodyBytes     = 2 << 20
)

// Client talks to the backend movie-listing proxy and watchlist API.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	tokens    session.TokenSource
	logger    *slog.Logger
}

type Config struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string
	Tokens    session.TokenSource
	Logger    *slog.Logger
}

// operation names an upstream call: key labels metrics, name prefixes
// synthesized error messages ("<name> failed (<status>)").
type operation struct {
	key  string
	name string
}

var (
	opTrending    = operation{key: "trending", name: "Fetch trending movies"}
	opPopular     = operation{key: "popular", name: "Fetch popular movies"}
	opTopRated    = operation{key: "top_rated", name: "Fetch top rated movies"}
	opSearch      = operation{key: "search", name: "Search movies"}
	opNowPlaying  = operation{key: "now_playing", name: "Fetch now playing movies"}
	opUpcoming    = operation{key: "upcoming", name: "Fetch upcoming movies"}
	opGenres      = operation{key: "genres", name: "Fetch genres"}
	opDetails     = operation{key: "details", name: "Fetch movie details"}
	opHealth      = operation{key: "health", name: "Health check"}
	opWatchlist   = operation{key: "watchlist_list", name: "Get watchlist"}
	opWatchAdd    = operation{key: "watchlist_add", name: "Add to watchlist"}
	opWatchRemove = operation{key: "watchlist_remove", name: "Remove from watchlist"}
	opWatchCheck  = operation{key: "watchlist_check", name: "Check watchlist status"}
	opWatchMark   = operation{key: "watchlist_mark_watched", name: "Mark as watched"}
)

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = session.ContextTokens{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
		userAgent: userAgent,
		tokens:    tokens,
		logger:    logger,
	}
}

// do issues one request and returns the raw body of a 2xx response.
// Every failure is returned as *domain.UpstreamError, except caller
// cancellation which is returned as the context error.
func (c *Client) do(ctx context.Context, op operation, method, path string, query url.Values, payload any) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op.name, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op.name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	startedAt := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(op.key).Observe(time.Since(startedAt).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.UpstreamRequestsTotal.WithLabelValues(op.key, "canceled").Inc()
			return nil, ctxErr
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(op.key, "network").Inc()
		c.logger.Warn("upstream unreachable",
			slog.String("operation", op.key),
			slog.String("error", err.Error()),
		)
		return nil, networkError(op, err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamRequestsTotal.WithLabelValues(op.key, "upstream").Inc()
		upstreamErr := statusError(op, resp.StatusCode, data)
		c.logger.Debug("upstream rejected request",
			slog.String("operation", op.key),
			slog.Int("status", resp.StatusCode),
			slog.String("message", upstreamErr.Message),
		)
		return nil, upstreamErr
	}
	if readErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.UpstreamRequestsTotal.WithLabelValues(op.key, "canceled").Inc()
			return nil, ctxErr
		}
		metrics.UpstreamRequestsTotal.WithLabelValues(op.key, "network").Inc()
		return nil, networkError(op, readErr)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(op.key, "ok").Inc()
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, op operation, path string, query url.Values, out any) error {
	data, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decodeJSON(op, data, out)
}

func decodeJSON(op operation, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(op.key, "malformed").Inc()
		return malformedError(op, err)
	}
	return nil
}

func pageQuery(page int) url.Values {
	if page < 1 {
		page = 1
	}
	return url.Values{"page": {fmt.Sprint(page)}}
}
