package misoca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://app.misoca.jp"

	tokenPath     = "/oauth2/token"
	authorizePath = "/oauth2/authorize"
	invoicePath   = "/api/v3/invoice"
	viewerPath    = "/invoices"
)

// ClientInterface is the part of the Misoca API the duplicator and the setup server use
type ClientInterface interface {
	RefreshToken(ctx context.Context, refreshToken, redirectURI string) (*TokenResponse, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error)
	GetInvoice(ctx context.Context, accessToken, invoiceID string) (*Invoice, error)
	CreateInvoice(ctx context.Context, accessToken string, req *CreateInvoiceRequest) (*Invoice, error)
}

// Client talks to the Misoca OAuth2 token endpoint and the v3 invoice API
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new Misoca client with the given options
func NewClient(options ...ClientOption) *Client {
	config := DefaultConfig()

	for _, option := range options {
		option(config)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// OAuth2Config returns the oauth2 configuration for this client's credentials and endpoints
func (c *Client) OAuth2Config(redirectURI string, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.config.BaseURL + authorizePath,
			TokenURL:  c.config.BaseURL + tokenPath,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthorizeURL builds the URL an operator opens to grant access during setup
func (c *Client) AuthorizeURL(redirectURI, scope, state string) string {
	var scopes []string
	if scope != "" {
		scopes = strings.Fields(scope)
	}
	return c.OAuth2Config(redirectURI, scopes...).AuthCodeURL(state)
}

// InvoiceURL returns the web viewer URL for an invoice
func (c *Client) InvoiceURL(invoiceID string) string {
	return fmt.Sprintf("%s%s/%s", c.config.BaseURL, viewerPath, invoiceID)
}

// RefreshToken exchanges a refresh token for a new access token.
// Misoca requires redirect_uri on this grant as well, which oauth2.TokenSource does not send.
func (c *Client) RefreshToken(ctx context.Context, refreshToken, redirectURI string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("redirect_uri", redirectURI)

	return c.executeTokenRequest(ctx, data)
}

// ExchangeCode exchanges an authorization code for the initial token pair
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)

	return c.executeTokenRequest(ctx, data)
}

// GetInvoice fetches a single invoice by ID
func (c *Client) GetInvoice(ctx context.Context, accessToken, invoiceID string) (*Invoice, error) {
	if invoiceID == "" {
		return nil, fmt.Errorf("invoice ID is required")
	}

	path := fmt.Sprintf("%s/%s", invoicePath, url.PathEscape(invoiceID))
	resp, err := c.doRequest(ctx, accessToken, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	var invoice Invoice
	if err := c.handleResponse(resp, &invoice); err != nil {
		return nil, fmt.Errorf("failed to process get invoice response: %w", err)
	}

	return &invoice, nil
}

// CreateInvoice creates a new invoice
func (c *Client) CreateInvoice(ctx context.Context, accessToken string, req *CreateInvoiceRequest) (*Invoice, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}

	resp, err := c.doRequest(ctx, accessToken, http.MethodPost, invoicePath, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	var invoice Invoice
	if err := c.handleResponse(resp, &invoice); err != nil {
		return nil, fmt.Errorf("failed to process create invoice response: %w", err)
	}

	return &invoice, nil
}

// executeTokenRequest posts a form to the token endpoint with the client credentials as basic auth
func (c *Client) executeTokenRequest(ctx context.Context, data url.Values) (*TokenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+tokenPath, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}

	var token TokenResponse
	if err := c.handleResponse(resp, &token); err != nil {
		return nil, err
	}

	return &token, nil
}

// doRequest performs a bearer-authenticated JSON request against the API
func (c *Client) doRequest(ctx context.Context, accessToken, method, path string, body any) (*http.Response, error) {
	var requestBody io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		requestBody = bytes.NewReader(bodyBytes)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, requestBody)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.bearerClient(accessToken).Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("request failed: %w", err)
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	return resp, nil
}

// bearerClient wraps the configured transport with a static bearer token
func (c *Client) bearerClient(accessToken string) *http.Client {
	return &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Base: c.httpClient.Transport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: accessToken,
				TokenType:   "Bearer",
			}),
		},
	}
}

// handleResponse decodes a successful body into result or converts the failure into *Error
func (c *Client) handleResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
			Body:       string(body),
		}

		var errorResponse struct {
			Error            any    `json:"error"`
			ErrorDescription string `json:"error_description"`
			Message          string `json:"message"`
		}
		if json.Unmarshal(body, &errorResponse) == nil {
			if code, ok := errorResponse.Error.(string); ok {
				apiErr.Code = code
			}
			switch {
			case errorResponse.ErrorDescription != "":
				apiErr.Message = errorResponse.ErrorDescription
			case errorResponse.Message != "":
				apiErr.Message = errorResponse.Message
			}
		}

		return apiErr
	}

	if token, ok := result.(*TokenResponse); ok {
		token.Raw = json.RawMessage(body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// cancelOnClose releases the request timeout once the body has been consumed
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
