package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/proxydash/proxydash/internal/quota"
)

// RefreshQuota refreshes quota for one account.
func (h *Handlers) RefreshQuota(c *gin.Context) {
	accountID := c.Param("id")
	ctx := c.Request.Context()

	account, ok := h.accounts.Find(ctx, accountID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	provider := strings.ToLower(account.Type)
	if !quota.SupportsQuota(provider) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "quota lookup not supported for provider " + provider,
			"account_id": accountID,
		})
		return
	}

	raw, err := h.accounts.Download(ctx, account)
	if err != nil {
		h.metrics.RecordQuotaRefresh("error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load credential data"})
		return
	}

	result := h.quota.ForAccount(ctx, account.ID, raw)
	if result.Error != "" {
		h.metrics.RecordQuotaRefresh("error")
	} else {
		h.metrics.RecordQuotaRefresh("success")
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id":        accountID,
		"quota":             result,
		"subscription_tier": result.SubscriptionTier,
		"tier_display":      quota.DisplayTier(result.SubscriptionTier),
	})
}

// refreshResult is one row of a refresh-all response.
type refreshResult struct {
	AccountID        string `json:"account_id"`
	Email            string `json:"email,omitempty"`
	Status           string `json:"status"`
	Message          string `json:"message,omitempty"`
	SubscriptionTier string `json:"subscription_tier,omitempty"`
	ModelsCount      int    `json:"models_count,omitempty"`
}

// RefreshAllQuotas refreshes quota for every stored account.
func (h *Handlers) RefreshAllQuotas(c *gin.Context) {
	ctx := c.Request.Context()
	list := h.accounts.List(ctx)

	var results []refreshResult
	var success, static, failed, skipped int

	for _, account := range list {
		provider := strings.ToLower(account.Type)

		if !quota.SupportsQuota(provider) {
			skipped++
			results = append(results, refreshResult{
				AccountID: account.ID,
				Email:     account.Email,
				Status:    "skipped",
				Message:   "provider " + provider + " not supported",
			})
			continue
		}

		raw, err := h.accounts.Download(ctx, account)
		if err != nil {
			failed++
			h.metrics.RecordQuotaRefresh("error")
			results = append(results, refreshResult{
				AccountID: account.ID,
				Email:     account.Email,
				Status:    "error",
				Message:   "could not load credential data",
			})
			continue
		}

		result := h.quota.ForAccount(ctx, account.ID, raw)
		switch {
		case quota.IsStatic(provider):
			static++
			h.metrics.RecordQuotaRefresh("static")
			results = append(results, refreshResult{
				AccountID:   account.ID,
				Email:       account.Email,
				Status:      "static",
				Message:     "static model list",
				ModelsCount: len(result.Models),
			})
		case result.Error != "":
			failed++
			h.metrics.RecordQuotaRefresh("error")
			results = append(results, refreshResult{
				AccountID: account.ID,
				Email:     account.Email,
				Status:    "error",
				Message:   result.Error,
			})
		default:
			success++
			h.metrics.RecordQuotaRefresh("success")
			results = append(results, refreshResult{
				AccountID:        account.ID,
				Email:            account.Email,
				Status:           "success",
				SubscriptionTier: result.SubscriptionTier,
				ModelsCount:      len(result.Models),
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   len(list),
		"success": success,
		"static":  static,
		"failed":  failed,
		"skipped": skipped,
		"results": results,
	})
}
