package metadata

import (
	"net/url"
	"regexp"
	"strings"
)

// domainPattern is a permissive hostname check: one or more label characters,
// a dot, and an alphabetic top-level label of at least two letters.
//
// Known heuristic, not an RFC validator: no IDNA and no length limits. Do not
// tighten it; previously accepted documents would start failing.
var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidDomain reports whether domain passes the permissive hostname check.
func IsValidDomain(domain string) bool {
	return domainPattern.MatchString(domain)
}

// DomainFromWebsite returns the host of a website URL. A value without a
// parsable host is returned trimmed as-is so that the caller's validation sees
// exactly what the document claimed.
func DomainFromWebsite(website string) string {
	website = strings.TrimSpace(website)
	if u, err := url.Parse(website); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return website
}
