package proxy

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dcwiz/appkit/apierror"
	"github.com/dcwiz/appkit/cache"
	"github.com/dcwiz/appkit/config"
)

// Config holds the transport settings of one upstream. Immutable after
// construction; owned by one Client.
type Config struct {
	BaseURL        string
	CacheTTL       time.Duration
	CacheTTLJitter time.Duration
	Timeout        time.Duration
	Username       string
	Password       string
	VerifyTLS      bool
}

// FromConfig reads the platform.* settings with the documented defaults.
func FromConfig(cfg *config.Config) Config {
	return Config{
		BaseURL:        cfg.String("platform.base_url", ""),
		CacheTTL:       cfg.Seconds("platform.cache_ttl", 120*time.Second),
		CacheTTLJitter: cfg.Seconds("platform.cache_ttl_var", 60*time.Second),
		Timeout:        cfg.Seconds("platform.timeout", 60*time.Second),
		Username:       cfg.String("platform.username", ""),
		Password:       cfg.String("platform.password", ""),
		VerifyTLS:      cfg.Bool("platform.verify", true),
	}
}

// Client performs outbound HTTP calls to one logical upstream across named
// surfaces, with shared caching and typed error classification. It performs
// no retries; a failed call surfaces immediately.
type Client struct {
	cfg        Config
	httpClient *http.Client
	// store is nil when CacheTTL <= 0, making caching a construction-time
	// no-op rather than a per-call branch.
	store *cache.Memory
}

// New builds a Client. The underlying http.Client and its connection pool
// are shared by every request, including whole fan-out batches.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
	if cfg.CacheTTL > 0 {
		c.store = cache.NewMemory()
	}
	return c
}

// NewFromGlobal builds a Client from the process-wide configuration.
func NewFromGlobal() *Client {
	return New(FromConfig(config.Global()))
}

type requestOptions struct {
	bearer   string
	query    url.Values
	body     any
	headers  http.Header
	expected []int
	rawBody  bool
}

// Option customizes one request.
type Option func(*requestOptions)

// WithBearer overrides the Authorization header with a bearer token.
func WithBearer(token string) Option {
	return func(o *requestOptions) { o.bearer = token }
}

// WithQuery adds query parameters.
func WithQuery(params map[string]string) Option {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		for k, v := range params {
			o.query.Set(k, v)
		}
	}
}

// WithJSON sends body as the JSON request payload.
func WithJSON(body any) Option {
	return func(o *requestOptions) { o.body = body }
}

// WithHeader sets one request header.
func WithHeader(key, value string) Option {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = http.Header{}
		}
		o.headers.Set(key, value)
	}
}

// WithRawBody returns the response body verbatim instead of requiring
// valid JSON, for endpoints that serve file content.
func WithRawBody() Option {
	return func(o *requestOptions) { o.rawBody = true }
}

// WithExpectedStatus replaces the default "any 2xx" success check with an
// explicit status list.
func WithExpectedStatus(codes ...int) Option {
	return func(o *requestOptions) { o.expected = codes }
}

func buildOptions(opts []Option) *requestOptions {
	o := &requestOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *requestOptions) accepts(status int) bool {
	if len(o.expected) == 0 {
		return status >= 200 && status < 300
	}
	for _, code := range o.expected {
		if code == status {
			return true
		}
	}
	return false
}

// resolveURL uses pathOrURL verbatim when it carries a scheme separator and
// appends it to the base URL otherwise.
func (c *Client) resolveURL(pathOrURL string) string {
	if strings.Contains(pathOrURL, "://") {
		return pathOrURL
	}
	return c.cfg.BaseURL + pathOrURL
}

// Request issues one HTTP call against a surface and returns the decoded
// body. A non-expected status raises the surface's error kind carrying
// method, URL and the raw response.
func (c *Client) Request(ctx context.Context, surface Surface, method, pathOrURL string, opts ...Option) (json.RawMessage, error) {
	o := buildOptions(opts)
	fullURL := c.resolveURL(pathOrURL)

	var bodyReader io.Reader
	if o.body != nil {
		payload, err := json.Marshal(o.body)
		if err != nil {
			return nil, apierror.NewServiceError(fmt.Sprintf("Request Error: %v when %s %s", err, method, fullURL))
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, requestError(err, method, fullURL)
	}
	if o.query != nil {
		// Keep any query string already embedded in the path.
		merged := req.URL.Query()
		for k, vs := range o.query {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
		req.URL.RawQuery = merged.Encode()
	}
	if o.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range o.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}
	if o.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+o.bearer)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, requestError(err, method, fullURL)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, requestError(err, method, fullURL)
	}

	if !o.accepts(res.StatusCode) {
		log.Error().Str("method", method).Str("url", fullURL).Int("status", res.StatusCode).Msg("API error")
		log.Debug().Bytes("body", raw).Msg("API error body")
		return nil, classify(surface, apierror.Upstream{
			Method:     method,
			URL:        fullURL,
			StatusCode: res.StatusCode,
			Body:       raw,
		})
	}

	if !o.rawBody && !json.Valid(raw) {
		return nil, apierror.NewServiceError(
			fmt.Sprintf("Request Error: invalid JSON response when %s %s", method, fullURL),
			apierror.Item{Type: "API Error", Severity: apierror.SeverityError, Message: string(raw)},
		)
	}
	return json.RawMessage(raw), nil
}

// requestError wraps a transport-level failure. No retry is performed.
func requestError(err error, method, url string) error {
	return apierror.NewServiceError(
		fmt.Sprintf("Request Error: %v when %s %s", err, method, url),
		apierror.Item{Type: "API Error", Severity: apierror.SeverityError, Message: err.Error()},
	)
}

// Get is shorthand for Request with GET.
func (c *Client) Get(ctx context.Context, surface Surface, pathOrURL string, opts ...Option) (json.RawMessage, error) {
	return c.Request(ctx, surface, http.MethodGet, pathOrURL, opts...)
}

// Post is shorthand for Request with POST.
func (c *Client) Post(ctx context.Context, surface Surface, pathOrURL string, opts ...Option) (json.RawMessage, error) {
	return c.Request(ctx, surface, http.MethodPost, pathOrURL, opts...)
}

// Put is shorthand for Request with PUT.
func (c *Client) Put(ctx context.Context, surface Surface, pathOrURL string, opts ...Option) (json.RawMessage, error) {
	return c.Request(ctx, surface, http.MethodPut, pathOrURL, opts...)
}

// Delete is shorthand for Request with DELETE.
func (c *Client) Delete(ctx context.Context, surface Surface, pathOrURL string, opts ...Option) (json.RawMessage, error) {
	return c.Request(ctx, surface, http.MethodDelete, pathOrURL, opts...)
}
