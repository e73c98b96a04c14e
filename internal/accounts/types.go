package accounts

import "encoding/json"

// Account is the dashboard's view of one stored credential file.
type Account struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Type            string `json:"type"`
	Provider        string `json:"provider"`
	Status          string `json:"status"`
	StatusMessage   string `json:"status_message,omitempty"`
	Disabled        bool   `json:"disabled"`
	AccountType     string `json:"account_type,omitempty"`
	ProjectID       string `json:"project_id,omitempty"`
	HasAccessToken  bool   `json:"has_access_token"`
	HasRefreshToken bool   `json:"has_refresh_token"`
	ModTime         int64  `json:"modtime,omitempty"`
	Source          string `json:"source"`

	// Raw holds the decoded credential file for quota lookups; never
	// serialized back to clients.
	Raw json.RawMessage `json:"-"`
}

// Source values for Account.Source.
const (
	SourceFile = "file"
	SourceAPI  = "api"
)
