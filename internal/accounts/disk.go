package accounts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DiskStore reads credential files straight from the proxy's auth directory.
// Used when no management API key is configured or the proxy is down.
type DiskStore struct {
	authDir string
	logger  *zap.Logger
}

// NewDiskStore creates a store over the given auth directory.
func NewDiskStore(authDir string, logger *zap.Logger) *DiskStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiskStore{authDir: authDir, logger: logger}
}

// AuthDir returns the directory being scanned.
func (d *DiskStore) AuthDir() string { return d.authDir }

// List scans the auth directory for credential JSON files. Unreadable files
// are logged and skipped; a missing directory yields an empty list.
func (d *DiskStore) List() []Account {
	entries, err := os.ReadDir(d.authDir)
	if err != nil {
		d.logger.Warn("auth directory not readable", zap.String("dir", d.authDir), zap.Error(err))
		return nil
	}

	var accounts []Account
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		account, err := d.readFile(entry.Name())
		if err != nil {
			d.logger.Warn("skipping credential file", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts
}

// Download returns the decoded contents of one credential file. A name
// without the .json suffix is retried with it, matching how the management
// API addresses files.
func (d *DiskStore) Download(name string) (json.RawMessage, error) {
	path := filepath.Join(d.authDir, name)
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(d.authDir, name+".json")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credential file not found: %s", name)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("credential file %s is not valid JSON", name)
	}
	return json.RawMessage(data), nil
}

// Delete removes one credential file.
func (d *DiskStore) Delete(name string) error {
	path := filepath.Join(d.authDir, name)
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(d.authDir, name+".json")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// readFile decodes one credential file into an Account.
func (d *DiskStore) readFile(name string) (Account, error) {
	path := filepath.Join(d.authDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return Account{}, err
	}

	var fields struct {
		Type         string `json:"type"`
		Email        string `json:"email"`
		ProjectID    string `json:"project_id"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return Account{}, fmt.Errorf("invalid credential file: %w", err)
	}

	account := Account{
		ID:              strings.TrimSuffix(name, ".json"),
		Name:            name,
		Email:           fields.Email,
		Type:            fields.Type,
		Provider:        fields.Type,
		Status:          "active",
		ProjectID:       fields.ProjectID,
		HasAccessToken:  fields.AccessToken != "",
		HasRefreshToken: fields.RefreshToken != "",
		Source:          SourceFile,
		Raw:             json.RawMessage(data),
	}
	if account.Type == "" {
		account.Type = "unknown"
		account.Provider = "unknown"
	}
	if info, err := os.Stat(path); err == nil {
		account.ModTime = info.ModTime().Unix()
	}
	return account, nil
}
