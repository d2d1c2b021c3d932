package misoca

import (
	"net/http"
	"time"
)

// ClientOption represents an option for configuring the Misoca client
type ClientOption func(*ClientConfig)

// ClientConfig holds the configuration for the Misoca client
type ClientConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	HTTPClient   *http.Client
	UserAgent    string
}

// DefaultConfig returns the production configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:   DefaultBaseURL,
		Timeout:   30 * time.Second,
		UserAgent: "misoca-monthly/dev",
	}
}

// WithBaseURL sets the base URL for the Misoca API
func WithBaseURL(baseURL string) ClientOption {
	return func(c *ClientConfig) {
		if baseURL != "" {
			c.BaseURL = baseURL
		}
	}
}

// WithCredentials sets the OAuth client credentials sent as basic auth to the token endpoint
func WithCredentials(clientID, clientSecret string) ClientOption {
	return func(c *ClientConfig) {
		c.ClientID = clientID
		c.ClientSecret = clientSecret
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *ClientConfig) {
		c.HTTPClient = httpClient
	}
}

// WithUserAgent sets a custom user agent
func WithUserAgent(userAgent string) ClientOption {
	return func(c *ClientConfig) {
		c.UserAgent = userAgent
	}
}
