package misoca

import "encoding/json"

// Invoice is the subset of a Misoca v3 invoice the duplicator reads.
// ContactID, Body and Items are kept as raw JSON so a duplicate carries them unchanged.
type Invoice struct {
	ID          json.Number       `json:"id,omitempty"`
	Subject     string            `json:"subject"`
	ContactID   json.RawMessage   `json:"contact_id,omitempty"`
	ContactName string            `json:"contact_name,omitempty"`
	IssueDate   string            `json:"issue_date,omitempty"`
	Body        json.RawMessage   `json:"body,omitempty"`
	Items       []json.RawMessage `json:"items,omitempty"`
}

// CreateInvoiceRequest is the body of POST /api/v3/invoice
type CreateInvoiceRequest struct {
	Subject      string            `json:"subject"`
	ContactID    json.RawMessage   `json:"contact_id,omitempty"`
	IssueDate    string            `json:"issue_date"`
	PaymentDueOn string            `json:"payment_due_on"`
	Body         json.RawMessage   `json:"body,omitempty"`
	Items        []json.RawMessage `json:"items"`
}

// TokenResponse is the token endpoint response for both grant types.
// Raw holds the undecoded body for diagnostics.
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	TokenType    string          `json:"token_type,omitempty"`
	ExpiresIn    int             `json:"expires_in,omitempty"`
	Scope        string          `json:"scope,omitempty"`
	CreatedAt    int64           `json:"created_at,omitempty"`
	Raw          json.RawMessage `json:"-"`
}
