// Package accounts lists, downloads and deletes the credential files the
// proxy authenticates with. The management API is preferred when a key is
// configured; otherwise (or when the proxy is unreachable) the auth directory
// is read directly from disk.
package accounts

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

var (
	// ErrNotFound reports an unknown account name.
	ErrNotFound = errors.New("account not found")
	// ErrUnauthorized reports a management API call rejected for a missing
	// or wrong management key.
	ErrUnauthorized = errors.New("management API key required")
)

// Service combines the management API client with the disk fallback.
type Service struct {
	management *ManagementClient
	disk       *DiskStore
	logger     *zap.Logger
}

// NewService wires the two account sources together.
func NewService(management *ManagementClient, disk *DiskStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{management: management, disk: disk, logger: logger}
}

// Mode describes which source the service currently prefers.
func (s *Service) Mode() string {
	if s.management.Enabled() {
		return "api"
	}
	return "local"
}

// AuthDir exposes the scanned auth directory for status endpoints.
func (s *Service) AuthDir() string { return s.disk.AuthDir() }

// List returns all known accounts, preferring the management API.
func (s *Service) List(ctx context.Context) []Account {
	if s.management.Enabled() {
		files, err := s.management.ListAuthFiles(ctx)
		if err == nil {
			return files
		}
		s.logger.Warn("management API list failed, falling back to disk", zap.Error(err))
	}
	return s.disk.List()
}

// Find locates one account by id or file name.
func (s *Service) Find(ctx context.Context, accountID string) (Account, bool) {
	for _, account := range s.List(ctx) {
		if account.ID == accountID || account.Name == accountID {
			return account, true
		}
	}
	return Account{}, false
}

// Download returns the decoded credential file for an account. Accounts
// listed from disk already carry their raw data; API-sourced accounts are
// fetched on demand.
func (s *Service) Download(ctx context.Context, account Account) (json.RawMessage, error) {
	if len(account.Raw) > 0 {
		return account.Raw, nil
	}
	if s.management.Enabled() {
		data, err := s.management.DownloadAuthFile(ctx, account.Name)
		if err == nil {
			return data, nil
		}
		s.logger.Warn("management API download failed, falling back to disk",
			zap.String("name", account.Name), zap.Error(err))
	}
	return s.disk.Download(account.Name)
}

// Delete removes an account, trying the management API first. A connection
// failure or API-side 404 falls through to local deletion; an explicit
// unauthorized response is returned as-is.
func (s *Service) Delete(ctx context.Context, name string) error {
	if s.management.Enabled() {
		err := s.management.DeleteAuthFile(ctx, name)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		var unavailable *ErrManagementUnavailable
		if !errors.Is(err, ErrNotFound) && !errors.As(err, &unavailable) {
			return err
		}
		s.logger.Warn("management API delete failed, falling back to disk",
			zap.String("name", name), zap.Error(err))
	}
	return s.disk.Delete(name)
}
