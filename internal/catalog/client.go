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
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/kimifish/music2db-client/internal/config"
)

// Client talks to the catalog service. Batch submissions are rate limited
// and retried a bounded number of times before the error is reported.
type Client struct {
	client     *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	baseURL    string
	oneTrack   string
	manyTracks string
	maxRetries uint64
}

// NewClient creates a catalog client from the server configuration.
func NewClient(cfg config.ServerConfig, logger *slog.Logger) *Client {
	return NewClientWithBaseURL(cfg.BaseURL(), cfg.OneTrackEndpoint, cfg.ManyTracksEndpoint, logger)
}

// NewClientWithBaseURL creates a catalog client for an explicit base URL
// (also used by tests and the search tool).
func NewClientWithBaseURL(baseURL, oneTrack, manyTracks string, logger *slog.Logger) *Client {
	return &Client{
		client:     &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
		logger:     logger.With(slog.String("component", "catalog")),
		baseURL:    strings.TrimRight(baseURL, "/"),
		oneTrack:   oneTrack,
		manyTracks: manyTracks,
		maxRetries: 2,
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

type batchResponse struct {
	Message string `json:"message"`
}

// Health verifies the server is running. Any network failure, timeout,
// non-200 status or unrecognized body makes the server unhealthy.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health/", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &ErrUnavailable{Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &ErrStatus{Code: resp.StatusCode}
	}

	var health healthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&health); err != nil {
		return &ErrBadHealth{Status: "unparseable body"}
	}
	if health.Status != healthyStatus {
		return &ErrBadHealth{Status: health.Status}
	}
	return nil
}

// SendTrack submits a single track record outside the batch scan path.
func (c *Client) SendTrack(ctx context.Context, track Track) error {
	_, err := c.post(ctx, c.oneTrack, track)
	return err
}

// SendBatch submits a batch of track records. Transient failures are
// retried with backoff before the last error is returned.
func (c *Client) SendBatch(ctx context.Context, tracks []Track) error {
	c.logger.Info("sending batch to server", "tracks", len(tracks))

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		body, err := c.post(ctx, c.manyTracks, tracks)
		if err != nil {
			var unavailable *ErrUnavailable
			var status *ErrStatus
			switch {
			case errors.As(err, &unavailable):
				return retry.RetryableError(err)
			case errors.As(err, &status) && status.Code >= 500:
				return retry.RetryableError(err)
			}
			return err
		}

		var result batchResponse
		if err := json.Unmarshal(body, &result); err == nil && result.Message != "" {
			c.logger.Info(result.Message)
		}
		return nil
	})
}

// SearchTracks queries the catalog for tracks matching a comma separated
// tag list and returns their paths.
func (c *Client) SearchTracks(ctx context.Context, tags string, limit int) ([]string, error) {
	params := url.Values{
		"tags":  {tags},
		"limit": {strconv.Itoa(limit)},
	}
	reqURL := c.baseURL + "/search_tracks/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ErrUnavailable{Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrStatus{Code: resp.StatusCode}
	}

	var tracks []string
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&tracks); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return tracks, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ErrUnavailable{Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrStatus{Code: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
