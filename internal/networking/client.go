package networking

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rafabd1/Loginprobe/internal/config"
	"github.com/rafabd1/Loginprobe/internal/utils"
)

const (
	// DefaultConnectTimeout bounds TCP connection setup for every request.
	DefaultConnectTimeout = 10 * time.Second
	// maxBodyBytes caps how much of a response body is kept.
	maxBodyBytes = 10 << 20
)

// Client wraps one *http.Client whose transport and connection pool are
// reused across every attempt of a run.
type Client struct {
	baseClient *http.Client
	logger     utils.Logger
	userAgent  string
}

// ClientRequestData struct encapsulates all necessary data for making a request.
type ClientRequestData struct {
	URL            string
	Method         string
	Body           string
	RequestHeaders http.Header
	Timeout        time.Duration // Per-request deadline, applied on top of Ctx
	Ctx            context.Context
}

// ClientResponseData struct holds the outcome of an HTTP request.
type ClientResponseData struct {
	StatusCode  int
	Body        []byte
	RespHeaders http.Header
	Error       error
}

// NewClient creates a new HTTP Client with specified configurations.
// Redirects are followed, so a login page behind a redirect still yields its token.
func NewClient(cfg *config.Config, logger utils.Logger) (*Client, error) {
	dialer := &net.Dialer{Timeout: DefaultConnectTimeout}
	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: DefaultConnectTimeout,
	}

	return &Client{
		baseClient: &http.Client{Transport: transport},
		logger:     logger,
		userAgent:  cfg.UserAgent,
	}, nil
}

// PerformRequest executes a single HTTP request. There are no retries:
// a transport or body-read failure is reported in ClientResponseData.Error.
func (c *Client) PerformRequest(reqData ClientRequestData) ClientResponseData {
	var respData ClientResponseData

	ctx := reqData.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if reqData.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, reqData.Timeout)
		defer cancel()
	}

	var body io.Reader
	if reqData.Body != "" {
		body = strings.NewReader(reqData.Body)
	}
	req, err := http.NewRequestWithContext(ctx, reqData.Method, reqData.URL, body)
	if err != nil {
		respData.Error = fmt.Errorf("failed to build request for %s: %w", reqData.URL, err)
		return respData
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, values := range reqData.RequestHeaders {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	c.logger.Debugf("Sending %s to %s with headers: %v", reqData.Method, reqData.URL, req.Header)

	resp, err := c.baseClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			c.logger.Debugf("Request to %s timed out after %s", reqData.URL, reqData.Timeout)
		}
		respData.Error = fmt.Errorf("failed to execute %s %s: %w", reqData.Method, reqData.URL, err)
		return respData
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	respData.StatusCode = resp.StatusCode
	respData.RespHeaders = resp.Header
	if err != nil {
		respData.Error = fmt.Errorf("failed to read response body for %s: %w", reqData.URL, err)
		return respData
	}
	respData.Body = bodyBytes

	c.logger.Debugf("Request to %s completed. Status: %s. Body size: %d", reqData.URL, resp.Status, len(bodyBytes))
	return respData
}

// CloseIdleConnections releases pooled connections at the end of a run.
func (c *Client) CloseIdleConnections() {
	c.baseClient.CloseIdleConnections()
}
