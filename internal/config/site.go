package config

import "strings"

// SiteConfig holds settings applied to requests for one host.
type SiteConfig struct {
	// Cookie is sent with every request to the host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers included in requests to the host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// FilterPatterns are substrings that mark an address for expansion.
	// Only read from the defaults section; they are merged with --filter-pattern.
	FilterPatterns []string `yaml:"filterPatterns,omitempty"`

	// IgnorePatterns are glob path patterns that are never expanded.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are glob path patterns; if set, only matching paths are expanded.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .linkspider configuration file.
type File struct {
	// Sites maps host names (e.g. "example.com") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merged over the defaults.
// Host lookup is case-insensitive and ignores a port suffix when no entry
// matches the full host.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.lookup(host)
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range siteConfig.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	if len(siteConfig.FilterPatterns) > 0 {
		result.FilterPatterns = siteConfig.FilterPatterns
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}

	return result
}

func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	if sc, ok := cf.Sites[host]; ok {
		return sc, true
	}
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.HasSuffix(host, "]") {
		if sc, ok := cf.Sites[host[:i]]; ok {
			return sc, true
		}
	}
	for name, sc := range cf.Sites {
		if strings.EqualFold(name, host) {
			return sc, true
		}
	}
	return SiteConfig{}, false
}
