package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// ManagementClient talks to the proxy's remote management API. Transient
// failures retry through the underlying transport; a missing API key
// disables the client entirely (the dashboard then works in local mode).
type ManagementClient struct {
	resty *resty.Client
	key   string
}

// ErrManagementUnavailable reports a management API call that did not reach
// a usable response; callers fall back to the disk store.
type ErrManagementUnavailable struct {
	cause error
}

func (e *ErrManagementUnavailable) Error() string {
	return fmt.Sprintf("management API unavailable: %v", e.cause)
}

func (e *ErrManagementUnavailable) Unwrap() error { return e.cause }

// NewManagementClient creates a client for the given base URL and API key.
func NewManagementClient(baseURL, key string) *ManagementClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetTransport(retryClient.HTTPClient.Transport)
	if key != "" {
		client.SetAuthToken(key)
	}

	return &ManagementClient{resty: client, key: key}
}

// Enabled reports whether a management API key is configured.
func (m *ManagementClient) Enabled() bool { return m.key != "" }

// ListAuthFiles fetches the credential file list from the management API.
func (m *ManagementClient) ListAuthFiles(ctx context.Context) ([]Account, error) {
	var body struct {
		Files []Account `json:"files"`
	}
	resp, err := m.resty.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/v0/management/auth-files")
	if err != nil {
		return nil, &ErrManagementUnavailable{cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &ErrManagementUnavailable{cause: fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())}
	}

	for i := range body.Files {
		body.Files[i].Source = SourceAPI
		if body.Files[i].Provider == "" {
			body.Files[i].Provider = body.Files[i].Type
		}
		if body.Files[i].ID == "" {
			body.Files[i].ID = body.Files[i].Name
		}
	}
	return body.Files, nil
}

// DownloadAuthFile fetches one credential file's contents.
func (m *ManagementClient) DownloadAuthFile(ctx context.Context, name string) (json.RawMessage, error) {
	resp, err := m.resty.R().
		SetContext(ctx).
		SetQueryParam("name", name).
		Get("/v0/management/auth-files/download")
	if err != nil {
		return nil, &ErrManagementUnavailable{cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode())
	}
	data := resp.Body()
	if !json.Valid(data) {
		return nil, fmt.Errorf("management API returned invalid JSON for %s", name)
	}
	return json.RawMessage(data), nil
}

// DeleteAuthFile removes a credential file through the management API.
// http.StatusUnauthorized surfaces as ErrUnauthorized so the boundary can
// tell the operator to configure the management key.
func (m *ManagementClient) DeleteAuthFile(ctx context.Context, name string) error {
	resp, err := m.resty.R().
		SetContext(ctx).
		SetQueryParam("name", name).
		Delete("/v0/management/auth-files")
	if err != nil {
		return &ErrManagementUnavailable{cause: err}
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("delete failed: status %d: %s", resp.StatusCode(), resp.String())
	}
}
