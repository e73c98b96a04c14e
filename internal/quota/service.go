package quota

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Service resolves quota for accounts and keeps results in the cache.
type Service struct {
	fetcher *Fetcher
	cache   *Cache
	logger  *zap.Logger
}

// NewService creates the quota service.
func NewService(fetcher *Fetcher, cache *Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{fetcher: fetcher, cache: cache, logger: logger}
}

// Cache exposes the underlying cache for read paths.
func (s *Service) Cache() *Cache { return s.cache }

// ForAccount produces the quota report for one decoded credential file and
// records it in the cache under accountID.
//
// Antigravity accounts hit the live Cloud Code API, refreshing the access
// token up front (it is usually expired) and once more on a failed fetch.
// Every other supported provider gets its static model list.
func (s *Service) ForAccount(ctx context.Context, accountID string, raw json.RawMessage) Quota {
	var cred credentialFields
	if err := json.Unmarshal(raw, &cred); err != nil {
		return Quota{LastUpdated: time.Now().Unix(), Error: "invalid credential data"}
	}
	provider := strings.ToLower(cred.Type)

	var quota Quota
	switch {
	case IsStatic(provider):
		quota = staticQuota(provider)
	case liveQuotaProviders[provider]:
		quota = s.liveQuota(ctx, cred)
	default:
		quota = Quota{
			LastUpdated: time.Now().Unix(),
			Error:       "quota lookup not supported for provider " + provider,
		}
	}

	s.cache.Put(accountID, quota)
	return quota
}

func (s *Service) liveQuota(ctx context.Context, cred credentialFields) Quota {
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return Quota{
			LastUpdated: time.Now().Unix(),
			TokenStatus: TokenMissing,
			Error:       "credential file has no access_token or refresh_token",
		}
	}

	accessToken := cred.AccessToken
	refreshed := false
	if cred.RefreshToken != "" {
		if token, err := s.fetcher.refreshAccessToken(ctx, cred.RefreshToken); err == nil {
			refreshed = token != accessToken
			accessToken = token
		} else {
			s.logger.Warn("token refresh failed", zap.Error(err))
		}
	}
	if accessToken == "" {
		return Quota{
			LastUpdated: time.Now().Unix(),
			TokenStatus: TokenRefreshFailed,
			Error:       "could not obtain a valid access token",
		}
	}

	quota, ok := s.fetcher.fetchWithToken(ctx, accessToken, cred.ProjectID)
	if !ok && cred.RefreshToken != "" {
		if token, err := s.fetcher.refreshAccessToken(ctx, cred.RefreshToken); err == nil {
			quota, ok = s.fetcher.fetchWithToken(ctx, token, cred.ProjectID)
			if ok {
				refreshed = true
			}
		}
	}

	switch {
	case refreshed:
		quota.TokenStatus = TokenRefreshed
		quota.TokenRefreshed = true
	case ok:
		quota.TokenStatus = TokenValid
	default:
		quota.TokenStatus = TokenError
	}
	return quota
}

// DisplayTier maps a subscription tier string to its UI presentation.
func DisplayTier(tier string) TierDisplay {
	lower := strings.ToLower(tier)
	switch {
	case strings.Contains(lower, "ultra"):
		return TierDisplay{Name: "ULTRA", Color: "purple", BadgeClass: "tier-ultra"}
	case strings.Contains(lower, "pro"):
		return TierDisplay{Name: "PRO", Color: "blue", BadgeClass: "tier-pro"}
	case tier != "":
		return TierDisplay{Name: strings.ToUpper(tier), Color: "gray", BadgeClass: "tier-free"}
	default:
		return TierDisplay{Name: "UNKNOWN", Color: "gray", BadgeClass: "tier-unknown"}
	}
}
