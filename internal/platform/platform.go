// Package platform classifies media URLs by social network using ordered
// host/path pattern rules. Classification is pure and never fails: input
// that matches no rule yields domain.PlatformUnknown.
package platform

import (
	"regexp"

	"github.com/vidgrab/vidgrab/internal/domain"
)

// rule binds a platform to its URL pattern. Rules are evaluated in order;
// the first match wins.
type rule struct {
	platform domain.Platform
	pattern  *regexp.Regexp
}

var rules = []rule{
	{domain.PlatformYouTube, regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+`)},
	{domain.PlatformFacebook, regexp.MustCompile(`^(https?://)?(www\.)?facebook\.com/.+`)},
	{domain.PlatformInstagram, regexp.MustCompile(`^(https?://)?(www\.)?instagram\.com/.+`)},
	{domain.PlatformTikTok, regexp.MustCompile(`^(https?://)?(www\.)?(tiktok\.com|vt\.tiktok\.com)/.+`)},
}

// Classify maps a raw URL to the platform it belongs to, or
// domain.PlatformUnknown when no rule matches. Empty or malformed input is
// unrecognized, never an error.
func Classify(rawURL string) domain.Platform {
	if rawURL == "" {
		return domain.PlatformUnknown
	}
	for _, r := range rules {
		if r.pattern.MatchString(rawURL) {
			return r.platform
		}
	}
	return domain.PlatformUnknown
}

// Validate re-runs only the rule for the asserted platform. It is a guard
// against spending engine-invocation cost on a mismatched selection, not a
// security boundary.
func Validate(rawURL string, p domain.Platform) bool {
	for _, r := range rules {
		if r.platform == p {
			return r.pattern.MatchString(rawURL)
		}
	}
	return false
}
