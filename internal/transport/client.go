package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/smartcast/internal/logging"
	"github.com/muurk/smartcast/internal/wire"
)

const (
	// DefaultPort is the HTTPS control port used by current SmartCast firmware
	DefaultPort = 9000

	// LegacyPort is the control port used by older firmware
	LegacyPort = 7345

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// AuthHeader carries the pairing token on authenticated requests
	AuthHeader = "AUTH"
)

// Transport sends one request to a device and returns its decoded body.
// Implementations never retry.
type Transport interface {
	Do(ctx context.Context, method, path string, body any) (*wire.Body, error)
}

// Client is the HTTPS transport for a single SmartCast device
type Client struct {
	// BaseURL is the base URL for the device (e.g., "https://192.168.1.40:9000")
	BaseURL string

	// Host is the device host, used for error context
	Host string

	// AuthToken is sent in the AUTH header when non-empty
	AuthToken string

	// HTTPClient is the underlying HTTP client (certificate validation disabled)
	HTTPClient *http.Client

	// Metrics records request counts and latency (nil disables)
	Metrics *Metrics

	logger *zap.Logger
}

// NewClient creates a transport for the device at host:port
func NewClient(host string, port int) *Client {
	if port == 0 {
		port = DefaultPort
	}
	return NewClientWithURL("https://" + net.JoinHostPort(host, strconv.Itoa(port)))
}

// NewClientWithURL creates a transport with a full base URL
func NewClientWithURL(baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	return &Client{
		BaseURL:    baseURL,
		Host:       host,
		HTTPClient: newInsecureHTTPClient(DefaultTimeout),
	}
}

// newInsecureHTTPClient builds an HTTP client that accepts the device's self-signed certificate
func newInsecureHTTPClient(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // devices ship self-signed certificates
	return &http.Client{Timeout: timeout, Transport: tr}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetLogger overrides the package logger
func (c *Client) SetLogger(logger *zap.Logger) {
	c.logger = logger
}

func (c *Client) log() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logging.GetLogger()
}

// Do sends method to path with an optional JSON body.
// The response body is decoded as JSON when possible and kept as text otherwise;
// HTTP status codes are recorded but not treated as failures.
func (c *Client) Do(ctx context.Context, method, path string, payload any) (*wire.Body, error) {
	start := time.Now()
	body, err := c.do(ctx, method, path, payload)
	c.Metrics.observe(method, body, err, time.Since(start))
	return body, err
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*wire.Body, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, NewParseError("failed to encode request body", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("failed to create %s request", method), c.Host, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.AuthToken != "" {
		req.Header.Set(AuthHeader, c.AuthToken)
	}

	c.log().Debug("Device request",
		zap.String("method", method),
		zap.String("path", path),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.log().Warn("Device request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, NewNetworkError(fmt.Sprintf("%s %s failed", method, path), c.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", c.Host, err)
	}

	body := wire.DecodeBody(resp.StatusCode, raw)
	result, _ := body.Result()
	c.log().Debug("Device response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode),
		zap.Bool("text", body.IsText()),
		zap.String("result", result),
	)
	if resp := body.Response(); resp != nil && resp.Skipped > 0 {
		c.log().Warn("Dropped undecodable items from device response",
			zap.String("path", path),
			zap.Int("skipped", resp.Skipped),
		)
	}

	return body, nil
}
