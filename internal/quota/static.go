package quota

import "time"

// Providers that can answer a live quota query.
var liveQuotaProviders = map[string]bool{
	"antigravity": true,
}

// staticModels lists the models each provider exposes when no quota API
// exists. Maintained by hand against the provider CLIs.
var staticModels = map[string][]string{
	"gemini":   {"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite"},
	"codex":    {"gpt-5", "gpt-5-codex", "codex-mini-latest"},
	"claude":   {"claude-opus-4-5", "claude-sonnet-4-5", "claude-haiku-4-5"},
	"qwen":     {"qwen3-coder-plus", "qwen3-coder-flash"},
	"iflow":    {"tstars2.0", "qwen3-max", "kimi-k2", "glm-4.6"},
	"aistudio": {"gemini-2.5-pro", "gemini-2.5-flash"},
	"vertex":   {"gemini-2.5-pro", "gemini-2.5-flash"},
}

// SupportsQuota reports whether any model information can be produced for
// the provider.
func SupportsQuota(provider string) bool {
	return liveQuotaProviders[provider] || len(staticModels[provider]) > 0
}

// IsStatic reports whether the provider only has a static model list.
func IsStatic(provider string) bool {
	return !liveQuotaProviders[provider] && len(staticModels[provider]) > 0
}

// staticQuota builds the fixed model list response for a provider.
func staticQuota(provider string) Quota {
	quota := Quota{LastUpdated: time.Now().Unix(), TokenStatus: TokenValid}
	for _, name := range staticModels[provider] {
		quota.Models = append(quota.Models, ModelQuota{
			Name:       name,
			Percentage: 100,
			Static:     true,
		})
	}
	return quota
}
