package sources

import "strings"

// ConfigString returns the trimmed string value for key from source.Config or a fallback.
func ConfigString(src Source, key, fallback string) string {
	if src.Config != nil {
		if raw, ok := src.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

// ConfigFloat returns the float value for key from source.Config or a fallback.
// YAML/JSON decoders deliver numbers as float64 or int depending on the literal.
func ConfigFloat(src Source, key string, fallback float64) float64 {
	if src.Config == nil {
		return fallback
	}
	switch val := src.Config[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	default:
		return fallback
	}
}

const (
	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptKey         = "accept"
	ConfigAcceptLanguageKey = "accept_language"
	ConfigCacheControlKey   = "cache_control"
	ConfigSportKey          = "sport"
	ConfigMarketTypeKey     = "market_type"
	ConfigReliabilityKey    = "reliability"
)

const (
	defaultSport       = "soccer"
	defaultMarketType  = "match_odds"
	defaultReliability = 0.85
)

// Headers builds the common request headers from a source config (skips empty values).
func Headers(src Source) map[string]string {
	headers := make(map[string]string, 4)

	if v := ConfigString(src, ConfigUserAgentKey, ""); v != "" {
		headers["User-Agent"] = v
	}
	if v := ConfigString(src, ConfigAcceptKey, ""); v != "" {
		headers["Accept"] = v
	}
	if v := ConfigString(src, ConfigAcceptLanguageKey, ""); v != "" {
		headers["Accept-Language"] = v
	}
	if v := ConfigString(src, ConfigCacheControlKey, ""); v != "" {
		headers["Cache-Control"] = v
	}

	return headers
}

// Sport returns the configured sport category for the source.
func Sport(src Source) string { return ConfigString(src, ConfigSportKey, defaultSport) }

// MarketType returns the configured market type for the source.
func MarketType(src Source) string { return ConfigString(src, ConfigMarketTypeKey, defaultMarketType) }

// Reliability returns the configured bookmaker reliability score (0-1).
func Reliability(src Source) float64 {
	score := ConfigFloat(src, ConfigReliabilityKey, defaultReliability)
	if score < 0 || score > 1 {
		return defaultReliability
	}
	return score
}
