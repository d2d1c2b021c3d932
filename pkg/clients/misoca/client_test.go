package misoca

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(
		WithBaseURL(server.URL),
		WithCredentials("client-id", "client-secret"),
	)
}

func TestClient_RefreshToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		form, err := url.ParseQuery(string(body))
		require.NoError(t, err)
		assert.Equal(t, "refresh_token", form.Get("grant_type"))
		assert.Equal(t, "old-refresh", form.Get("refresh_token"))
		assert.Equal(t, "http://localhost:3000/callback", form.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access-1","refresh_token":"new-refresh","token_type":"Bearer","expires_in":86400}`))
	})

	token, err := client.RefreshToken(t.Context(), "old-refresh", "http://localhost:3000/callback")
	require.NoError(t, err)
	assert.Equal(t, "access-1", token.AccessToken)
	assert.Equal(t, "new-refresh", token.RefreshToken)
	assert.JSONEq(t, `{"access_token":"access-1","refresh_token":"new-refresh","token_type":"Bearer","expires_in":86400}`, string(token.Raw))
}

func TestClient_ExchangeCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "http://localhost:3000/callback", r.PostForm.Get("redirect_uri"))

		w.Write([]byte(`{"access_token":"a","refresh_token":"r"}`))
	})

	token, err := client.ExchangeCode(t.Context(), "the-code", "http://localhost:3000/callback")
	require.NoError(t, err)
	assert.Equal(t, "r", token.RefreshToken)
}

func TestClient_RefreshToken_InvalidGrant(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"The provided authorization grant is invalid"}`))
	})

	_, err := client.RefreshToken(t.Context(), "stale", "http://localhost:3000/callback")
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Bad Request", apiErr.StatusText())
	assert.Equal(t, "invalid_grant", apiErr.Code)
	assert.True(t, apiErr.IsInvalidGrant())
	assert.Contains(t, apiErr.Body, "invalid_grant")
}

func TestClient_GetInvoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v3/invoice/12345", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))

		w.Write([]byte(`{
			"id": 12345,
			"subject": "12月分 保守費用",
			"contact_id": 987,
			"contact_name": "株式会社サンプル",
			"body": {"note": "keep"},
			"items": [{"name": "保守", "quantity": 1, "unit_price": "50000"}]
		}`))
	})

	invoice, err := client.GetInvoice(t.Context(), "access-1", "12345")
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345"), invoice.ID)
	assert.Equal(t, "12月分 保守費用", invoice.Subject)
	assert.Equal(t, "株式会社サンプル", invoice.ContactName)
	assert.JSONEq(t, `987`, string(invoice.ContactID))
	assert.JSONEq(t, `{"note":"keep"}`, string(invoice.Body))
	require.Len(t, invoice.Items, 1)
	assert.JSONEq(t, `{"name":"保守","quantity":1,"unit_price":"50000"}`, string(invoice.Items[0]))
}

func TestClient_GetInvoice_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Unauthorized"}`))
	})

	_, err := client.GetInvoice(t.Context(), "bad", "1")
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsAuthError())
	assert.Equal(t, "Unauthorized", apiErr.Message)
}

func TestClient_CreateInvoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/invoice", r.URL.Path)
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"subject": "3月分 保守費用",
			"contact_id": 987,
			"issue_date": "2024-03-31",
			"payment_due_on": "2024-04-30",
			"body": {"note": "keep"},
			"items": [{"name": "保守"}]
		}`, string(body))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 555, "subject": "3月分 保守費用"}`))
	})

	created, err := client.CreateInvoice(t.Context(), "access-1", &CreateInvoiceRequest{
		Subject:      "3月分 保守費用",
		ContactID:    json.RawMessage(`987`),
		IssueDate:    "2024-03-31",
		PaymentDueOn: "2024-04-30",
		Body:         json.RawMessage(`{"note": "keep"}`),
		Items:        []json.RawMessage{json.RawMessage(`{"name": "保守"}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, json.Number("555"), created.ID)
	assert.Equal(t, "3月分 保守費用", created.Subject)
}

func TestClient_CreateInvoice_ValidationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":["contact_id is invalid"]}`))
	})

	_, err := client.CreateInvoice(t.Context(), "access-1", &CreateInvoiceRequest{Subject: "x"})
	require.Error(t, err)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsValidationError())
	assert.Equal(t, "HTTP 422", apiErr.Message)
	assert.Contains(t, apiErr.Body, "contact_id is invalid")
}

func TestClient_AuthorizeURL(t *testing.T) {
	client := NewClient(WithCredentials("client-id", "client-secret"))

	raw := client.AuthorizeURL("http://localhost:3000/callback", "write", "")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "app.misoca.jp", u.Host)
	assert.Equal(t, "/oauth2/authorize", u.Path)
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, "write", u.Query().Get("scope"))
	assert.Equal(t, "http://localhost:3000/callback", u.Query().Get("redirect_uri"))
}

func TestClient_InvoiceURL(t *testing.T) {
	client := NewClient()
	assert.Equal(t, "https://app.misoca.jp/invoices/555", client.InvoiceURL("555"))
}
