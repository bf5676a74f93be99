// Package visitor normalizes inbound request headers into the signals the
// gate decides on. Extraction is a pure function: every header is optional
// and degrades to a defined default, it never fails.
package visitor

import (
	"net/http"
	"strings"
)

// Headers set by the edge network. In the production topology these are not
// forgeable by the client.
const (
	HeaderCountry      = "CF-IPCountry"
	HeaderConnectingIP = "CF-Connecting-IP"
	HeaderForwardedFor = "X-Forwarded-For"
)

// Sentinels used when a signal is absent. Absence maps to "unknown", never
// implicitly to "allowed".
const (
	UnknownCountry = "UNKNOWN"
	UnknownIP      = "0.0.0.0"
)

// DefaultMobileTokens is the fixed set of user-agent substrings that mark a
// visitor as mobile/handheld. Conservative heuristic: any match means mobile,
// no match (including an empty user-agent) means desktop. False negatives on
// exotic mobile browsers are accepted.
var DefaultMobileTokens = []string{
	"Android",
	"webOS",
	"iPhone",
	"iPad",
	"iPod",
	"BlackBerry",
	"IEMobile",
	"Opera Mini",
}

// Profile is the normalized view of one inbound visitor. It is derived per
// request and never persisted directly.
type Profile struct {
	Country   string
	IsMobile  bool
	ClientIP  string
	UserAgent string
}

// Extract builds a Profile from request headers. Malformed or missing
// headers degrade to defaults; the function is total.
func Extract(h http.Header, mobileTokens []string) Profile {
	country := strings.ToUpper(strings.TrimSpace(h.Get(HeaderCountry)))
	if country == "" {
		country = UnknownCountry
	}

	ua := h.Get("User-Agent")

	return Profile{
		Country:   country,
		IsMobile:  IsMobileUserAgent(ua, mobileTokens),
		ClientIP:  clientIP(h),
		UserAgent: ua,
	}
}

// IsMobileUserAgent reports whether ua contains any of the given tokens,
// case-insensitively. A nil token list falls back to DefaultMobileTokens.
func IsMobileUserAgent(ua string, mobileTokens []string) bool {
	if len(mobileTokens) == 0 {
		mobileTokens = DefaultMobileTokens
	}
	lower := strings.ToLower(ua)
	for _, token := range mobileTokens {
		if strings.Contains(lower, strings.ToLower(token)) {
			return true
		}
	}
	return false
}

// clientIP prefers the trusted connecting-IP header, then the first entry of
// the forwarded-for header, then the sentinel.
func clientIP(h http.Header) string {
	if ip := strings.TrimSpace(h.Get(HeaderConnectingIP)); ip != "" {
		return ip
	}
	if fwd := h.Get(HeaderForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return UnknownIP
}
