// Package quota fetches and caches quota and subscription-tier information
// for stored accounts. Only the antigravity provider exposes a live quota
// API; the other providers report a static model list.
package quota

// ModelQuota is the remaining quota for one model.
type ModelQuota struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
	ResetTime  string `json:"reset_time,omitempty"`
	Static     bool   `json:"static,omitempty"`
}

// Quota is the full quota report for one account.
type Quota struct {
	Models           []ModelQuota `json:"models"`
	LastUpdated      int64        `json:"last_updated"`
	IsForbidden      bool         `json:"is_forbidden"`
	SubscriptionTier string       `json:"subscription_tier,omitempty"`
	TokenStatus      string       `json:"token_status,omitempty"`
	TokenRefreshed   bool         `json:"token_refreshed,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// Token status values.
const (
	TokenValid         = "valid"
	TokenRefreshed     = "refreshed"
	TokenMissing       = "missing"
	TokenRefreshFailed = "refresh_failed"
	TokenError         = "error"
)

// TierDisplay is the UI presentation of a subscription tier.
type TierDisplay struct {
	Name       string `json:"name"`
	Color      string `json:"color"`
	BadgeClass string `json:"badge_class"`
}

// credentialFields is the subset of a credential file quota lookups need.
type credentialFields struct {
	Type         string `json:"type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ProjectID    string `json:"project_id"`
}
