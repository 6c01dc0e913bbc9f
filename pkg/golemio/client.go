package golemio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://api.golemio.cz/v1/"
const DefaultPageSize = 1000
const DefaultMaxRetries = 5

var ErrUnauthorized = errors.New("golemio rejected the access token")

type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status code: %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}

	return nil
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type Config struct {
	BaseURL     string
	AccessToken string
	PageSize    int
	UserAgent   string

	MaxRetries           uint64
	RetryInitialInterval time.Duration

	HTTPClient *http.Client
}

type Client struct {
	config Config
}

func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(config.BaseURL, "/") {
		config.BaseURL += "/"
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.RetryInitialInterval <= 0 {
		config.RetryInitialInterval = 2 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if config.UserAgent == "" {
		config.UserAgent = "stopdensity"
	}

	return &Client{config: config}
}

func (c *Client) PageSize() int {
	return c.config.PageSize
}

func (c *Client) pageURL(endpoint string, offset int, params map[string]string) string {
	query := url.Values{}
	for key, value := range params {
		query.Set(key, value)
	}
	query.Set("limit", strconv.Itoa(c.config.PageSize))
	query.Set("offset", strconv.Itoa(offset))

	return fmt.Sprintf("%s%s?%s", c.config.BaseURL, endpoint, query.Encode())
}

// DownloadPage fetches a single page of the endpoint starting at offset
func (c *Client) DownloadPage(ctx context.Context, endpoint string, offset int, params map[string]string) ([]byte, error) {
	requestURL := c.pageURL(endpoint, offset, params)

	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.InitialInterval = c.config.RetryInitialInterval

	var policy backoff.BackOff = retryBackoff
	policy = backoff.WithMaxRetries(policy, c.config.MaxRetries)
	policy = backoff.WithContext(policy, ctx)

	return backoff.RetryNotifyWithData(
		func() ([]byte, error) {
			body, err := c.get(ctx, requestURL)

			var statusError *StatusError
			if errors.As(err, &statusError) && !statusError.retryable() {
				return nil, backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}

			return body, err
		},
		policy,
		func(err error, wait time.Duration) {
			log.Warn().Err(err).Str("url", requestURL).Str("wait", wait.String()).Msg("Request failed, backing off")
		},
	)
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Access-Token", c.config.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("code", resp.StatusCode).Str("url", requestURL).Int("bytes", len(body)).Msg("Golemio response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: requestURL}
	}

	return body, nil
}

// DownloadAllPages walks the endpoint page by page, advancing the offset by the number of
// items received, until an empty page comes back. With features set the items are read
// from the features array of a GeoJSON feature collection.
func (c *Client) DownloadAllPages(ctx context.Context, endpoint string, features bool, params map[string]string, handlePage func(page []json.RawMessage) error) error {
	offset := 0

	for {
		body, err := c.DownloadPage(ctx, endpoint, offset, params)
		if err != nil {
			return err
		}

		page, err := decodePage(body, features)
		if err != nil {
			return fmt.Errorf("decoding %s page at offset %d: %w", endpoint, offset, err)
		}

		if len(page) == 0 {
			return nil
		}

		if err := handlePage(page); err != nil {
			return err
		}

		offset += len(page)
	}
}

func decodePage(body []byte, features bool) ([]json.RawMessage, error) {
	var page []json.RawMessage

	if features {
		var collection struct {
			Features []json.RawMessage `json:"features"`
		}
		if err := json.Unmarshal(body, &collection); err != nil {
			return nil, err
		}
		page = collection.Features
	} else if err := json.Unmarshal(body, &page); err != nil {
		return nil, err
	}

	return page, nil
}
