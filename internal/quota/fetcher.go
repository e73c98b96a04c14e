package quota

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Google Cloud Code endpoints serving antigravity quota data. The client ID
// pair is the one the antigravity IDE itself ships with.
const (
	cloudCodeAPIURL     = "https://cloudcode-pa.googleapis.com"
	googleTokenURL      = "https://oauth2.googleapis.com/token"
	antigravityAgent    = "antigravity/1.11.3 Darwin/arm64"
	antigravityClientID = "1071006060591-tmhssin2h21lcre235vtolojh4g403ep.apps.googleusercontent.com"
	antigravitySecret   = "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"
	fallbackProjectID   = "bamboo-precept-lgxtn"
)

// Fetcher retrieves live quota data from the Cloud Code API.
type Fetcher struct {
	resty  *resty.Client
	logger *zap.Logger
}

// NewFetcher creates a quota fetcher.
func NewFetcher(logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &Fetcher{resty: client, logger: logger}
}

// refreshAccessToken exchanges a refresh token for a fresh access token.
func (f *Fetcher) refreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	var body struct {
		AccessToken string `json:"access_token"`
	}
	resp, err := f.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"client_id":     antigravityClientID,
			"client_secret": antigravitySecret,
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		}).
		SetResult(&body).
		Post(googleTokenURL)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || body.AccessToken == "" {
		return "", fmt.Errorf("token refresh failed: status %d", resp.StatusCode())
	}
	return body.AccessToken, nil
}

// fetchProjectAndTier loads the account's Cloud Code project ID and
// subscription tier. Paid tier wins over the current tier when both exist.
func (f *Fetcher) fetchProjectAndTier(ctx context.Context, accessToken string) (string, string) {
	var body struct {
		Project  string `json:"cloudaicompanionProject"`
		PaidTier struct {
			ID string `json:"id"`
		} `json:"paidTier"`
		CurrentTier struct {
			ID string `json:"id"`
		} `json:"currentTier"`
	}
	resp, err := f.resty.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("User-Agent", antigravityAgent).
		SetBody(map[string]interface{}{
			"metadata": map[string]string{"ideType": "ANTIGRAVITY"},
		}).
		SetResult(&body).
		Post(cloudCodeAPIURL + "/v1internal:loadCodeAssist")
	if err != nil || resp.StatusCode() != http.StatusOK {
		return "", ""
	}
	tier := body.PaidTier.ID
	if tier == "" {
		tier = body.CurrentTier.ID
	}
	return body.Project, tier
}

// fetchWithToken pulls model quota for one access token. The bool result
// reports whether the token produced a usable answer (403 counts: the quota
// state "forbidden" is itself the answer).
func (f *Fetcher) fetchWithToken(ctx context.Context, accessToken, projectID string) (Quota, bool) {
	quota := Quota{LastUpdated: time.Now().Unix()}

	fetchedProject, tier := f.fetchProjectAndTier(ctx, accessToken)
	quota.SubscriptionTier = tier

	project := projectID
	if project == "" {
		project = fetchedProject
	}
	if project == "" {
		project = fallbackProjectID
	}

	var body struct {
		Models map[string]struct {
			QuotaInfo struct {
				RemainingFraction float64 `json:"remainingFraction"`
				ResetTime         string  `json:"resetTime"`
			} `json:"quotaInfo"`
		} `json:"models"`
	}
	resp, err := f.resty.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("User-Agent", antigravityAgent).
		SetBody(map[string]string{"project": project}).
		SetResult(&body).
		Post(cloudCodeAPIURL + "/v1internal:fetchAvailableModels")
	if err != nil {
		f.logger.Warn("quota fetch failed", zap.Error(err))
		return quota, false
	}

	switch resp.StatusCode() {
	case http.StatusForbidden:
		quota.IsForbidden = true
		return quota, true
	case http.StatusUnauthorized:
		return quota, false
	case http.StatusOK:
	default:
		f.logger.Warn("quota API error", zap.Int("status", resp.StatusCode()))
		return quota, false
	}

	for name, info := range body.Models {
		lower := strings.ToLower(name)
		if !strings.Contains(lower, "gemini") && !strings.Contains(lower, "claude") {
			continue
		}
		quota.Models = append(quota.Models, ModelQuota{
			Name:       name,
			Percentage: int(info.QuotaInfo.RemainingFraction * 100),
			ResetTime:  info.QuotaInfo.ResetTime,
		})
	}
	sort.Slice(quota.Models, func(i, j int) bool {
		return quota.Models[i].Name < quota.Models[j].Name
	})
	return quota, true
}
