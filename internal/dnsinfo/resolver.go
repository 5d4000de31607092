// Package dnsinfo resolves the address and mail records of a token's website
// domain and renders them as human-readable entries.
package dnsinfo

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/multierr"

	"github.com/hunterwarburton/tokenscope/internal/core"
	"github.com/hunterwarburton/tokenscope/internal/logger"
)

// DefaultResolvConf is where the system nameservers are read from.
const DefaultResolvConf = "/etc/resolv.conf"

// ednsBufferSize is the UDP payload size advertised with every query.
const ednsBufferSize = 4096

// Resolver looks up address and mail exchanger records. *net.Resolver
// satisfies it as well as StubResolver.
//
// LookupNetIP is called with network "ip4" for A records and "ip6" for AAAA
// records, so the record kind is known from the call and never guessed from
// the address.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// StubResolver sends recursive queries to the configured nameservers in
// order and uses the first one that answers. Truncated UDP answers are
// repeated over TCP.
type StubResolver struct {
	udp     *dns.Client
	tcp     *dns.Client
	servers []string
}

// NewResolver builds a StubResolver from a resolv.conf style file.
func NewResolver(confPath string) (*StubResolver, error) {
	if confPath == "" {
		confPath = DefaultResolvConf
	}
	conf, err := dns.ClientConfigFromFile(confPath)
	if err != nil {
		return nil, fmt.Errorf("%w - failed to load resolver config %s: %w", core.ErrDNS, confPath, err)
	}
	if len(conf.Servers) == 0 {
		return nil, fmt.Errorf("%w - no nameservers in %s", core.ErrDNS, confPath)
	}

	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, net.JoinHostPort(s, conf.Port))
	}
	r := NewResolverWithServers(servers...)
	if conf.Timeout > 0 {
		r.setTimeout(time.Duration(conf.Timeout) * time.Second)
	}
	return r, nil
}

// NewResolverWithServers builds a StubResolver for explicit host:port servers.
func NewResolverWithServers(servers ...string) *StubResolver {
	r := &StubResolver{
		udp:     &dns.Client{Net: "udp"},
		tcp:     &dns.Client{Net: "tcp"},
		servers: servers,
	}
	r.setTimeout(5 * time.Second)
	return r
}

func (r *StubResolver) setTimeout(d time.Duration) {
	r.udp.Timeout = d
	r.tcp.Timeout = d
}

// LookupNetIP returns the A records of host for "ip4", the AAAA records for
// "ip6", and both (A first) for "ip". With "ip" it fails only when both
// queries fail.
func (r *StubResolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	switch network {
	case "ip4":
		return r.lookupAddrs(ctx, host, dns.TypeA)
	case "ip6":
		return r.lookupAddrs(ctx, host, dns.TypeAAAA)
	case "ip":
		v4, errA := r.lookupAddrs(ctx, host, dns.TypeA)
		v6, errAAAA := r.lookupAddrs(ctx, host, dns.TypeAAAA)
		if errA != nil && errAAAA != nil {
			return nil, multierr.Append(errA, errAAAA)
		}
		return append(v4, v6...), nil
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}
}

func (r *StubResolver) lookupAddrs(ctx context.Context, host string, qtype uint16) ([]netip.Addr, error) {
	answer, err := r.query(ctx, host, qtype)
	if err != nil {
		return nil, err
	}
	var addrs []netip.Addr
	for _, rr := range answer {
		switch rec := rr.(type) {
		case *dns.A:
			if addr, ok := netip.AddrFromSlice(rec.A.To4()); ok {
				addrs = append(addrs, addr)
			}
		case *dns.AAAA:
			// Kept as 16 bytes: an IPv4-mapped AAAA answer is still an AAAA record.
			if addr, ok := netip.AddrFromSlice(rec.AAAA.To16()); ok {
				addrs = append(addrs, addr)
			}
		}
	}
	return addrs, nil
}

// LookupMX returns the mail exchangers of name in answer order.
func (r *StubResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	answer, err := r.query(ctx, name, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	var mxs []*net.MX
	for _, rr := range answer {
		if mx, ok := rr.(*dns.MX); ok {
			mxs = append(mxs, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}
	return mxs, nil
}

func (r *StubResolver) query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(ednsBufferSize, false)

	qname := dns.TypeToString[qtype]
	lastErr := fmt.Errorf("no nameservers configured")
	for _, server := range r.servers {
		in, rtt, err := r.udp.ExchangeContext(ctx, msg, server)
		if err != nil {
			logger.ResolverDebug("%s query for %s via %s failed: %v", qname, name, server, err)
			lastErr = err
			continue
		}
		logger.ResolverDebug("%s query for %s via %s answered in %v", qname, name, server, rtt)

		if in.Truncated {
			full, _, err := r.tcp.ExchangeContext(ctx, msg, server)
			if err != nil {
				logger.ResolverWarn("%s query for %s via %s was truncated and the TCP retry failed: %v", qname, name, server, err)
				lastErr = fmt.Errorf("truncated answer and TCP retry failed: %w", err)
				continue
			}
			in = full
		}

		if in.Rcode != dns.RcodeSuccess {
			return nil, fmt.Errorf("%s lookup for %s: %s", qname, name, dns.RcodeToString[in.Rcode])
		}
		return in.Answer, nil
	}
	return nil, fmt.Errorf("%s lookup for %s: %w", qname, name, lastErr)
}

var _ Resolver = (*StubResolver)(nil)
var _ Resolver = (*net.Resolver)(nil)
