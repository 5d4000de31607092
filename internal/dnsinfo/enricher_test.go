package dnsinfo

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/tokenscope/internal/core"
)

type fakeResolver struct {
	v4      []netip.Addr
	v6      []netip.Addr
	addrErr error
	mxs     []*net.MX
	mxErr   error
}

func (f *fakeResolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	switch network {
	case "ip4":
		return f.v4, f.addrErr
	case "ip6":
		return f.v6, f.addrErr
	}
	return nil, errors.New("unexpected network " + network)
}

func (f *fakeResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	return f.mxs, f.mxErr
}

func TestEnricher_Entries(t *testing.T) {
	resolver := &fakeResolver{
		v4: []netip.Addr{
			netip.MustParseAddr("192.0.2.1"),
			netip.MustParseAddr("192.0.2.2"),
		},
		v6: []netip.Addr{
			netip.MustParseAddr("2001:db8::1"),
		},
		mxs: []*net.MX{
			{Host: "mail.example.com.", Pref: 10},
		},
	}

	entries, err := NewEnricher(resolver).Entries(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"A Record: IPv4: 192.0.2.1",
		"A Record: IPv4: 192.0.2.2",
		"AAAA Record: IPv6: 2001:db8::1",
		"MX Record: Preference: 10, Exchange: mail.example.com.",
	}, entries)
}

func TestEnricher_Entries_KindFollowsRecordType(t *testing.T) {
	resolver := &fakeResolver{
		v4: []netip.Addr{netip.MustParseAddr("::ffff:192.0.2.7")},
		v6: []netip.Addr{netip.MustParseAddr("::ffff:1.2.3.4")},
	}

	entries, err := NewEnricher(resolver).Entries(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"A Record: IPv4: 192.0.2.7",
		"AAAA Record: IPv6: ::ffff:1.2.3.4",
	}, entries)
}

func TestEnricher_Entries_LookupFailuresSwallowed(t *testing.T) {
	resolver := &fakeResolver{
		addrErr: errors.New("timeout"),
		mxs:     []*net.MX{{Host: "mx.example.org.", Pref: 5}},
	}
	entries, err := NewEnricher(resolver).Entries(context.Background(), "example.org")
	require.NoError(t, err)
	assert.Equal(t, []string{"MX Record: Preference: 5, Exchange: mx.example.org."}, entries)

	resolver = &fakeResolver{addrErr: errors.New("nxdomain"), mxErr: errors.New("nxdomain")}
	entries, err = NewEnricher(resolver).Entries(context.Background(), "nowhere.example")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnricher_Entries_ResolverInitFailure(t *testing.T) {
	e := NewSystemEnricher(filepath.Join(t.TempDir(), "no-such-resolv.conf"))
	_, err := e.Entries(context.Background(), "example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDNS)

	_, err = NewEnricher(nil).Entries(context.Background(), "example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDNS)
}

func TestEnricher_Entries_StubResolver(t *testing.T) {
	addr := startServer(t, exampleZone)

	entries, err := NewEnricher(NewResolverWithServers(addr)).Entries(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"A Record: IPv4: 93.184.216.34",
		"AAAA Record: IPv6: 2606:2800:220:1:248:1893:25c8:1946",
		"MX Record: Preference: 10, Exchange: mail.example.com.",
		"MX Record: Preference: 20, Exchange: backup.example.com.",
	}, entries)
}

func TestEnricher_Entries_StubResolverMappedAAAA(t *testing.T) {
	addr := startServer(t, exampleZone)

	entries, err := NewEnricher(NewResolverWithServers(addr)).Entries(context.Background(), "mapped.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAAA Record: IPv6: ::ffff:1.2.3.4"}, entries)
}
