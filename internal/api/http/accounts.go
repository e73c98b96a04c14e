package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/proxydash/proxydash/internal/accounts"
	"github.com/proxydash/proxydash/internal/quota"
)

// accountView is an account enriched with cached quota data.
type accountView struct {
	accounts.Account
	Quota            *quota.Quota      `json:"quota,omitempty"`
	SubscriptionTier string            `json:"subscription_tier,omitempty"`
	TierDisplay      *quota.TierDisplay `json:"tier_display,omitempty"`
}

// ListAccounts returns all stored accounts with any cached quota attached.
func (h *Handlers) ListAccounts(c *gin.Context) {
	list := h.accounts.List(c.Request.Context())

	views := make([]accountView, 0, len(list))
	for _, account := range list {
		view := accountView{Account: account}
		if entry, ok := h.quota.Cache().Get(account.ID); ok {
			q := entry.Quota
			view.Quota = &q
			view.SubscriptionTier = entry.SubscriptionTier
			display := quota.DisplayTier(entry.SubscriptionTier)
			view.TierDisplay = &display
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts": views,
		"auth_dir": h.accounts.AuthDir(),
		"mode":     h.accounts.Mode(),
	})
}

// DeleteAccount removes a stored credential file.
func (h *Handlers) DeleteAccount(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account name required"})
		return
	}

	err := h.accounts.Delete(c.Request.Context(), name)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "account deleted"})
	case errors.Is(err, accounts.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	case errors.Is(err, accounts.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "management API key required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
