package dnsinfo

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/tokenscope/internal/core"
)

// zone maps "name./TYPE" to the records served for it.
type zone map[string][]string

// zoneHandler answers from z. Names not in z get NXDOMAIN.
func zoneHandler(z zone) dns.HandlerFunc {
	return func(w dns.ResponseWriter, r *dns.Msg) {
		w.WriteMsg(zoneReply(z, r))
	}
}

func zoneReply(z zone, r *dns.Msg) *dns.Msg {
	m := new(dns.Msg)
	m.SetReply(r)
	q := r.Question[0]
	records, ok := z[q.Name+"/"+dns.TypeToString[q.Qtype]]
	if !ok {
		known := false
		for key := range z {
			if strings.HasPrefix(key, q.Name+"/") {
				known = true
			}
		}
		if !known {
			m.Rcode = dns.RcodeNameError
		}
	}
	for _, rec := range records {
		rr, err := dns.NewRR(rec)
		if err == nil {
			m.Answer = append(m.Answer, rr)
		}
	}
	return m
}

func serve(t *testing.T, server *dns.Server) {
	t.Helper()

	started := make(chan struct{})
	server.NotifyStartedFunc = func() { close(started) }
	go server.ActivateAndServe()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("dns server did not start")
	}
	t.Cleanup(func() { server.Shutdown() })
}

// startServer runs an in-process UDP nameserver answering from z.
func startServer(t *testing.T, z zone) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	serve(t, &dns.Server{PacketConn: pc, Handler: zoneHandler(z)})

	return pc.LocalAddr().String()
}

// startTruncatingServer answers from z, cutting UDP replies down to 512 bytes.
// With withTCP the same handler also listens on TCP at the same port. It
// reports whether every query carried an EDNS0 OPT record.
func startTruncatingServer(t *testing.T, z zone, withTCP bool) (string, *atomic.Bool) {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := pc.LocalAddr().String()

	allEdns := &atomic.Bool{}
	allEdns.Store(true)
	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		if r.IsEdns0() == nil {
			allEdns.Store(false)
		}
		m := zoneReply(z, r)
		if w.LocalAddr().Network() == "udp" {
			m.Truncate(dns.MinMsgSize)
		}
		w.WriteMsg(m)
	})

	serve(t, &dns.Server{PacketConn: pc, Handler: handler})
	if withTCP {
		l, err := net.Listen("tcp", addr)
		require.NoError(t, err)
		serve(t, &dns.Server{Listener: l, Handler: handler})
	}

	return addr, allEdns
}

var exampleZone = zone{
	"example.com./A": {
		"example.com. 300 IN A 93.184.216.34",
	},
	"example.com./AAAA": {
		"example.com. 300 IN AAAA 2606:2800:220:1:248:1893:25c8:1946",
	},
	"example.com./MX": {
		"example.com. 300 IN MX 10 mail.example.com.",
		"example.com. 300 IN MX 20 backup.example.com.",
	},
	"mapped.example./AAAA": {
		"mapped.example. 300 IN AAAA ::ffff:1.2.3.4",
	},
	"v4only.example./A": {
		"v4only.example. 300 IN A 10.0.0.1",
		"v4only.example. 300 IN A 10.0.0.2",
	},
}

func TestStubResolver_LookupNetIP(t *testing.T) {
	addr := startServer(t, exampleZone)
	r := NewResolverWithServers(addr)
	ctx := context.Background()

	v4, err := r.LookupNetIP(ctx, "ip4", "example.com")
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("93.184.216.34")}, v4)

	v6, err := r.LookupNetIP(ctx, "ip6", "example.com")
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("2606:2800:220:1:248:1893:25c8:1946")}, v6)

	both, err := r.LookupNetIP(ctx, "ip", "example.com")
	require.NoError(t, err)
	assert.Equal(t, append(v4, v6...), both)

	_, err = r.LookupNetIP(ctx, "tcp", "example.com")
	assert.Error(t, err)
}

func TestStubResolver_LookupNetIP_MappedAAAA(t *testing.T) {
	addr := startServer(t, exampleZone)
	r := NewResolverWithServers(addr)
	ctx := context.Background()

	v4, err := r.LookupNetIP(ctx, "ip4", "mapped.example")
	require.NoError(t, err)
	assert.Empty(t, v4)

	v6, err := r.LookupNetIP(ctx, "ip6", "mapped.example")
	require.NoError(t, err)
	require.Len(t, v6, 1)
	assert.True(t, v6[0].Is4In6())
	assert.Equal(t, "::ffff:1.2.3.4", v6[0].String())
}

func TestStubResolver_LookupMX(t *testing.T) {
	addr := startServer(t, exampleZone)
	r := NewResolverWithServers(addr)

	mxs, err := r.LookupMX(context.Background(), "example.com")
	require.NoError(t, err)
	require.Len(t, mxs, 2)
	assert.Equal(t, &net.MX{Host: "mail.example.com.", Pref: 10}, mxs[0])
	assert.Equal(t, &net.MX{Host: "backup.example.com.", Pref: 20}, mxs[1])
}

func TestStubResolver_NXDomain(t *testing.T) {
	addr := startServer(t, exampleZone)
	r := NewResolverWithServers(addr)

	_, err := r.LookupNetIP(context.Background(), "ip", "nonexistent.invalid")
	assert.Error(t, err)

	_, err = r.LookupMX(context.Background(), "nonexistent.invalid")
	assert.Error(t, err)
}

func TestStubResolver_FallsThroughDeadServer(t *testing.T) {
	addr := startServer(t, exampleZone)

	dead, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := dead.LocalAddr().String()
	dead.Close()

	r := NewResolverWithServers(deadAddr, addr)
	r.setTimeout(500 * time.Millisecond)

	addrs, err := r.LookupNetIP(context.Background(), "ip4", "v4only.example")
	require.NoError(t, err)
	assert.Len(t, addrs, 2)
}

func TestNewResolver(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "resolv.conf")
	require.NoError(t, os.WriteFile(conf, []byte("nameserver 127.0.0.1\nnameserver ::1\noptions timeout:3\n"), 0o644))

	r, err := NewResolver(conf)
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1:53", "[::1]:53"}, r.servers)
	assert.Equal(t, 3*time.Second, r.udp.Timeout)
	assert.Equal(t, 3*time.Second, r.tcp.Timeout)
}

func TestNewResolver_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewResolver(filepath.Join(dir, "missing.conf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDNS)

	empty := filepath.Join(dir, "empty.conf")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing here\n"), 0o644))
	_, err = NewResolver(empty)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDNS)
}

func manyMX(name string, n int) zone {
	records := make([]string, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, fmt.Sprintf("%s 300 IN MX %d mail-exchanger-number-%02d.%s", name, i+1, i, name))
	}
	return zone{name + "/MX": records}
}

func TestStubResolver_TruncatedAnswerRetriedOverTCP(t *testing.T) {
	addr, allEdns := startTruncatingServer(t, manyMX("big.example.", 40), true)
	r := NewResolverWithServers(addr)

	mxs, err := r.LookupMX(context.Background(), "big.example")
	require.NoError(t, err)
	require.Len(t, mxs, 40)
	assert.Equal(t, &net.MX{Host: "mail-exchanger-number-00.big.example.", Pref: 1}, mxs[0])
	assert.Equal(t, &net.MX{Host: "mail-exchanger-number-39.big.example.", Pref: 40}, mxs[39])
	assert.True(t, allEdns.Load())
}

func TestStubResolver_TruncatedAnswerWithoutTCP(t *testing.T) {
	addr, _ := startTruncatingServer(t, manyMX("big.example.", 40), false)
	r := NewResolverWithServers(addr)
	r.setTimeout(500 * time.Millisecond)

	_, err := r.LookupMX(context.Background(), "big.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}
