package dnsinfo

import (
	"context"
	"fmt"

	"github.com/hunterwarburton/tokenscope/internal/core"
	"github.com/hunterwarburton/tokenscope/internal/logger"
)

// Enricher turns a domain into a list of DNS entries:
//
//	A Record: IPv4: <address>
//	AAAA Record: IPv6: <address>
//	MX Record: Preference: <n>, Exchange: <host>
//
// Address entries come first (IPv4 before IPv6), then mail exchangers.
type Enricher struct {
	newResolver func() (Resolver, error)
}

// NewEnricher uses the given resolver for every lookup.
func NewEnricher(resolver Resolver) *Enricher {
	return &Enricher{newResolver: func() (Resolver, error) { return resolver, nil }}
}

// NewSystemEnricher builds a fresh StubResolver from confPath for each call,
// so edits to the file are picked up without a restart.
func NewSystemEnricher(confPath string) *Enricher {
	return &Enricher{newResolver: func() (Resolver, error) { return NewResolver(confPath) }}
}

// Entries resolves domain. Only a resolver that cannot be constructed is an
// error (core.ErrDNS); failed individual lookups contribute no entries.
func (e *Enricher) Entries(ctx context.Context, domain string) ([]string, error) {
	resolver, err := e.newResolver()
	if err != nil {
		return nil, err
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w - no resolver configured", core.ErrDNS)
	}

	var v4, v6, mx []string

	addrs, err := resolver.LookupNetIP(ctx, "ip4", domain)
	if err != nil {
		logger.ResolverDebug("A lookup for %s failed: %v", domain, err)
	}
	for _, addr := range addrs {
		v4 = append(v4, fmt.Sprintf("A Record: IPv4: %s", addr.Unmap()))
	}

	addrs, err = resolver.LookupNetIP(ctx, "ip6", domain)
	if err != nil {
		logger.ResolverDebug("AAAA lookup for %s failed: %v", domain, err)
	}
	for _, addr := range addrs {
		v6 = append(v6, fmt.Sprintf("AAAA Record: IPv6: %s", addr))
	}

	mxs, err := resolver.LookupMX(ctx, domain)
	if err != nil {
		logger.ResolverDebug("MX lookup for %s failed: %v", domain, err)
	}
	for _, m := range mxs {
		if m == nil {
			continue
		}
		mx = append(mx, fmt.Sprintf("MX Record: Preference: %d, Exchange: %s", m.Pref, m.Host))
	}

	entries := make([]string, 0, len(v4)+len(v6)+len(mx))
	entries = append(entries, v4...)
	entries = append(entries, v6...)
	entries = append(entries, mx...)
	return entries, nil
}

var _ core.DNSEnricher = (*Enricher)(nil)
