// Package publicip resolves the caller's public IP address through an
// external plaintext lookup service.
package publicip

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	apperrors "devboxctl/errors"
)

const (
	packageName = "publicip"

	// maxResponseBytes bounds the lookup response read. The body is a
	// single IP literal, 45 bytes at most even for IPv6.
	maxResponseBytes = 256
)

// Client queries a plaintext what-is-my-ip service such as api.ipify.org.
type Client struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a lookup client for the given service URL.
func NewClient(url string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil // suppress default logging

	return &Client{
		url:    url,
		http:   retryClient.StandardClient(),
		logger: logger.With(zap.String("package", packageName)),
	}
}

// Lookup returns the caller's public IP address as reported by the lookup
// service.
func (c *Client) Lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", apperrors.New(apperrors.ErrIPLookup, "failed to build IP lookup request",
			map[string]interface{}{
				"url": c.url,
			}, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperrors.New(apperrors.ErrIPLookup, "IP lookup request failed",
			map[string]interface{}{
				"url": c.url,
			}, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.New(apperrors.ErrIPLookup, "IP lookup service returned non-OK status",
			map[string]interface{}{
				"url":    c.url,
				"status": resp.StatusCode,
			}, nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", apperrors.New(apperrors.ErrIPLookup, "failed to read IP lookup response",
			map[string]interface{}{
				"url": c.url,
			}, err)
	}

	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", apperrors.New(apperrors.ErrIPLookup, "IP lookup service returned an invalid address",
			map[string]interface{}{
				"url":  c.url,
				"body": ip,
			}, nil)
	}

	c.logger.Info("resolved caller public IP", zap.String("ip", ip))
	return ip, nil
}
