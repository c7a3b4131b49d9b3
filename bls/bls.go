// Copyright 2025 BLS Query Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bls

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
	"golang.org/x/time/rate"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default base URL of the BLS public API. It may be overwritten in
// tests before creating a new client.
var URL = "https://api.bls.gov/publicAPI/v2"

// envKeyPrefix selects the environment variables holding registration keys.
const envKeyPrefix = "BLS_API_KEY"

// KeySupplier yields a registration key for each request.
type KeySupplier interface {
	Key() string
}

// FixedKey is a KeySupplier returning the same key every time. The empty
// string makes unauthenticated requests.
type FixedKey string

func (k FixedKey) Key() string { return string(k) }

// RandomKeyPool is a KeySupplier picking a key uniformly at random, spreading
// the daily per-key quota across several registrations.
type RandomKeyPool []string

func (p RandomKeyPool) Key() string {
	if len(p) == 0 {
		return ""
	}
	return p[rand.Intn(len(p))]
}

// KeyPoolFromEnv collects the values of all BLS_API_KEY* environment
// variables into a RandomKeyPool. An empty pool makes unauthenticated
// requests.
func KeyPoolFromEnv() RandomKeyPool {
	var names []string
	for _, kv := range os.Environ() {
		name, value, found := strings.Cut(kv, "=")
		if found && strings.HasPrefix(name, envKeyPrefix) && value != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	var pool RandomKeyPool
	for _, name := range names {
		pool = append(pool, os.Getenv(name))
	}
	return pool
}

// Config configures a Client. The zero value is usable: default limits and
// backoff, no rate limiting, no registration key.
type Config struct {
	Keys       KeySupplier
	QPS        float64 // max requests per second; 0 disables rate limiting
	Retry      RetryConfig
	Limits     Limits
	HTTPClient *http.Client // nil uses http.DefaultClient
}

// Client queries the BLS timeseries API with rate limiting and retry.
type Client struct {
	baseURL    string
	keys       KeySupplier
	retry      RetryConfig
	limits     Limits
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewClient creates a new client from the config and the current value of
// URL.
func NewClient(config Config) *Client {
	c := &Client{
		baseURL:    URL,
		keys:       config.Keys,
		retry:      config.Retry,
		limits:     config.Limits,
		httpClient: config.HTTPClient,
	}
	if c.keys == nil {
		c.keys = FixedKey("")
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = DefaultRetryConfig()
	}
	if c.limits.SeriesPerRequest == 0 {
		c.limits = DefaultLimits()
	}
	if config.QPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.QPS), 1)
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient creates a new client from the config and injects it into the
// context.
func UseClient(ctx context.Context, config Config) context.Context {
	return context.WithValue(ctx, clientContextKey, NewClient(config))
}

// Limits returns the per-request caps the client plans with.
func (c *Client) Limits() Limits { return c.limits }

// post makes a single POST attempt and classifies the outcome. A nil error
// with a nil response never happens; a *statusError marks a retryable HTTP
// status.
func (c *Client) post(ctx context.Context, body []byte) (*SeriesResponse, error) {
	uri := c.baseURL + "/timeseries/data/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri,
		bytes.NewReader(body))
	if err != nil {
		return nil, &FatalError{Err: errors.Annotate(err, "failed to create request")}
	}
	req.Header.Set("Content-Type", "application/json")
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FatalError{Err: errors.Annotate(err, "request failed")}
	}
	defer httpResp.Body.Close()

	if retryableStatus(httpResp.StatusCode) {
		io.Copy(io.Discard, httpResp.Body)
		return nil, &statusError{status: httpResp.StatusCode}
	}
	if httpResp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, httpResp.Body)
		return nil, &FatalError{
			Status: httpResp.StatusCode,
			Err:    errors.Reason("unexpected HTTP status %d", httpResp.StatusCode),
		}
	}
	var resp SeriesResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, &FatalError{
			Status: httpResp.StatusCode,
			Err:    errors.Annotate(err, "failed to decode response"),
		}
	}
	if !resp.Succeeded() {
		return nil, &FatalError{
			Status:   httpResp.StatusCode,
			Messages: resp.Message,
			Err:      errors.Reason("API status %q", resp.Status),
		}
	}
	return &resp, nil
}

// statusError is the internal marker of a retryable HTTP status.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return "HTTP status " + http.StatusText(e.status)
}

// Fetch requests the data of one chunk, retrying throttled and server-failed
// attempts with exponential backoff. It returns *FatalError for failures that
// retrying cannot fix, and *TransientError when the retry budget runs out.
func (c *Client) Fetch(ctx context.Context, chunk Chunk, flags RequestFlags) (*SeriesResponse, error) {
	body, err := json.Marshal(newSeriesRequest(chunk, c.keys.Key(), flags))
	if err != nil {
		return nil, &FatalError{Err: errors.Annotate(err, "failed to encode request")}
	}
	r := newRetrier(c.retry)
	var last *statusError
	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &FatalError{Err: errors.Annotate(err, "rate limiter interrupted")}
			}
		}
		resp, err := c.post(ctx, body)
		if err == nil {
			return resp, nil
		}
		se, retryable := err.(*statusError)
		if !retryable {
			return nil, err
		}
		last = se
		if !r.next(ctx) {
			break
		}
		logging.Debugf(ctx, "retrying [%s] after HTTP %d (attempt %d of %d)",
			chunk, se.status, r.attempt+1, c.retry.MaxAttempts)
	}
	return nil, &TransientError{
		Status:   last.status,
		Attempts: r.attempt,
		Err:      errors.Reason("HTTP status %d", last.status),
	}
}

// FetchLatest requests only the most recent observation of a single series
// using the GET endpoint.
func (c *Client) FetchLatest(ctx context.Context, seriesID string) (*Series, error) {
	uri := c.baseURL + "/timeseries/data/" + seriesID
	query := url.Values{"latest": {"true"}}
	if key := c.keys.Key(); key != "" {
		query.Set("registrationkey", key)
	}
	var resp SeriesResponse
	if err := fetch.FetchJSON(ctx, uri, &resp, query, nil); err != nil {
		return nil, errors.Annotate(err, "failed to fetch the latest value of %s", seriesID)
	}
	if !resp.Succeeded() {
		return nil, &FatalError{
			Messages: resp.Message,
			Err:      errors.Reason("API status %q", resp.Status),
		}
	}
	if len(resp.Results.Series) == 0 {
		return nil, errors.Reason("response for %s contains no series", seriesID)
	}
	return &resp.Results.Series[0], nil
}
