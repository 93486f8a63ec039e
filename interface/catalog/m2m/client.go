package m2m

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/service"
	"github.com/airbusgeo/landsat-acquirer/service/log"
	"go.uber.org/zap"
)

// DefaultBaseURL of the USGS machine-to-machine JSON api
const DefaultBaseURL = "https://m2m.cr.usgs.gov/api/api/json/stable/"

// ErrorPolicy defines what to do with an envelope carrying an errorCode
type ErrorPolicy int

const (
	// ErrorPolicyStrict returns a *ServiceError
	ErrorPolicyStrict ErrorPolicy = iota
	// ErrorPolicyLenient logs the error and decodes the data anyway
	ErrorPolicyLenient
)

// ParseErrorPolicy parses "strict" or "lenient"
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(s) {
	case "", "strict":
		return ErrorPolicyStrict, nil
	case "lenient":
		return ErrorPolicyLenient, nil
	}
	return ErrorPolicyStrict, fmt.Errorf("unknown error policy: %s", s)
}

// Client sends requests to the catalog service.
// The token is set by Login and cleared by Logout. It must not be changed while a request is in flight.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	retryWait   time.Duration
	errorPolicy ErrorPolicy
	token       atomic.Value
}

// Option configures the Client
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithHTTPClient overrides http.DefaultClient
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets the number of retries on temporary transport errors
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryWait sets the first wait between two retries
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) { c.retryWait = d }
}

func WithErrorPolicy(p ErrorPolicy) Option {
	return func(c *Client) { c.errorPolicy = p }
}

// New creates a client
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
		maxRetries: 3,
		retryWait:  time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.token.Store("")
	return c
}

// Token returns the current api token or an empty string
func (c *Client) Token() string {
	return c.token.Load().(string)
}

// Send marshals payload, posts it to endpoint and decodes the data of the envelope into out (if not nil).
// Temporary transport errors are retried. A service error is never retried.
func (c *Client) Send(ctx context.Context, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("Send.Marshal: %w", err)
	}

	var env envelope
	err = service.Retriable(ctx, func() error {
		var err error
		env, err = c.post(ctx, endpoint, body)
		if err != nil {
			if service.Temporary(err) {
				log.Logger(ctx).Sugar().Warnf("%s: %v (retrying)", endpoint, err)
				return err
			}
			return service.MakeFatal(err)
		}
		return nil
	}, c.retryWait, c.maxRetries+1)
	if err != nil {
		return fmt.Errorf("Send.%w", err)
	}

	if env.ErrorCode != nil && *env.ErrorCode != "" {
		serr := &ServiceError{Endpoint: endpoint, Code: *env.ErrorCode}
		if env.ErrorMessage != nil {
			serr.Message = *env.ErrorMessage
		}
		if c.errorPolicy == ErrorPolicyStrict {
			return serr
		}
		log.Logger(ctx).Warn("catalog service error", zap.String("endpoint", endpoint), zap.Error(serr))
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (envelope, error) {
	var env envelope
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return env, fmt.Errorf("NewRequest: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("X-Auth-Token", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return env, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return env, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return env, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	return env, nil
}

// Login exchanges the application token for an api key and keeps it for the next requests
func (c *Client) Login(ctx context.Context, username, token string) (string, error) {
	var apiKey string
	if err := c.Send(ctx, EndpointLoginToken, LoginTokenRequest{Username: username, Token: token}, &apiKey); err != nil {
		return "", fmt.Errorf("Login.%w", err)
	}
	if apiKey == "" {
		return "", fmt.Errorf("Login: empty api key")
	}
	c.token.Store(apiKey)
	return apiKey, nil
}

// Logout invalidates the api key. The local token is cleared even if the request fails.
func (c *Client) Logout(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	err := c.Send(ctx, EndpointLogout, struct{}{}, nil)
	c.token.Store("")
	if err != nil {
		return fmt.Errorf("Logout.%w", err)
	}
	return nil
}

// Grid2LL returns the center coordinates of a WRS-2 path/row
func (c *Client) Grid2LL(ctx context.Context, ref common.GridRef) (Grid2LLResponse, error) {
	var res Grid2LLResponse
	req := Grid2LLRequest{
		GridType:      "WRS2",
		Path:          strconv.Itoa(ref.Path),
		Row:           strconv.Itoa(ref.Row),
		ResponseShape: "point",
	}
	if err := c.Send(ctx, EndpointGrid2LL, req, &res); err != nil {
		return res, fmt.Errorf("Grid2LL.%w", err)
	}
	return res, nil
}

func (c *Client) DatasetSearch(ctx context.Context, req DatasetSearchRequest) ([]common.DatasetDescriptor, error) {
	var res []common.DatasetDescriptor
	if err := c.Send(ctx, EndpointDatasetSearch, req, &res); err != nil {
		return nil, fmt.Errorf("DatasetSearch.%w", err)
	}
	return res, nil
}

func (c *Client) SceneSearch(ctx context.Context, req SceneSearchRequest) (common.SceneSearchResult, error) {
	var res common.SceneSearchResult
	if err := c.Send(ctx, EndpointSceneSearch, req, &res); err != nil {
		return res, fmt.Errorf("SceneSearch.%w", err)
	}
	return res, nil
}

func (c *Client) DownloadOptions(ctx context.Context, req DownloadOptionsRequest) ([]common.DownloadOption, error) {
	var res []common.DownloadOption
	if err := c.Send(ctx, EndpointDownloadOptions, req, &res); err != nil {
		return nil, fmt.Errorf("DownloadOptions.%w", err)
	}
	return res, nil
}

func (c *Client) DownloadRequest(ctx context.Context, req DownloadRequestRequest) (DownloadRequestResponse, error) {
	var res DownloadRequestResponse
	if err := c.Send(ctx, EndpointDownloadRequest, req, &res); err != nil {
		return res, fmt.Errorf("DownloadRequest.%w", err)
	}
	return res, nil
}
