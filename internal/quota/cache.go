package quota

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is one cached quota result.
type Entry struct {
	Quota            Quota  `json:"quota"`
	SubscriptionTier string `json:"subscription_tier,omitempty"`
	FetchedAt        int64  `json:"fetched_at"`
}

// Cache is a file-backed quota cache: loaded once at startup, written through
// on every update so results survive dashboard restarts.
type Cache struct {
	path    string
	logger  *zap.Logger
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache loads the cache file if present; a missing or corrupt file just
// starts empty.
func NewCache(path string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{path: path, logger: logger, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		logger.Warn("quota cache unreadable, starting empty", zap.String("path", path), zap.Error(err))
		c.entries = make(map[string]Entry)
	}
	return c
}

// Get returns the cached entry for an account.
func (c *Cache) Get(accountID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[accountID]
	return entry, ok
}

// Put stores a quota result and persists the cache.
func (c *Cache) Put(accountID string, quota Quota) {
	c.mu.Lock()
	c.entries[accountID] = Entry{
		Quota:            quota,
		SubscriptionTier: quota.SubscriptionTier,
		FetchedAt:        time.Now().Unix(),
	}
	snapshot, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("quota cache marshal failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.path, snapshot, 0o644); err != nil {
		c.logger.Warn("quota cache write failed", zap.String("path", c.path), zap.Error(err))
	}
}
