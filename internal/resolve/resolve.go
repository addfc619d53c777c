// Package resolve maps peer addresses to names with cached PTR lookups.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/patrickmn/go-cache"

	"firestige.xyz/peeracct/internal/config"
	"firestige.xyz/peeracct/internal/metrics"
)

const resolvConf = "/etc/resolv.conf"

// exchanger sends one DNS query.
type exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

// Resolver performs reverse lookups against a single server. Results,
// including "no name", are cached for the configured TTL.
type Resolver struct {
	server  string
	timeout time.Duration
	client  exchanger
	names   *cache.Cache
}

// New creates a resolver. An empty server means the first nameserver in
// /etc/resolv.conf.
func New(cfg config.ResolverConfig) (*Resolver, error) {
	server := cfg.Server
	if server == "" {
		cc, err := dns.ClientConfigFromFile(resolvConf)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", resolvConf, err)
		}
		if len(cc.Servers) == 0 {
			return nil, fmt.Errorf("no nameserver in %s", resolvConf)
		}
		server = net.JoinHostPort(cc.Servers[0], cc.Port)
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &Resolver{
		server:  server,
		timeout: timeout,
		client:  &dns.Client{Timeout: timeout},
		names:   cache.New(ttl, 2*ttl),
	}, nil
}

// Server returns the nameserver address in use.
func (r *Resolver) Server() string {
	return r.server
}

// Cached returns a previously resolved name without querying. ok is true for
// cached negative results too, with an empty name.
func (r *Resolver) Cached(addr netip.Addr) (string, bool) {
	v, ok := r.names.Get(addr.String())
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Name returns addr's PTR name, or "" if it has none or the lookup fails.
// It blocks for at most the configured timeout.
func (r *Resolver) Name(ctx context.Context, addr netip.Addr) string {
	if name, ok := r.Cached(addr); ok {
		metrics.ResolverLookupsTotal.WithLabelValues("hit").Inc()
		return name
	}

	name, err := r.lookup(ctx, addr)
	if err != nil {
		metrics.ResolverLookupsTotal.WithLabelValues("error").Inc()
		slog.Debug("reverse lookup failed", "peer", addr, "error", err)
		// Failures are cached too.
	} else {
		metrics.ResolverLookupsTotal.WithLabelValues("miss").Inc()
	}
	r.names.Set(addr.String(), name, cache.DefaultExpiration)
	return name
}

func (r *Resolver) lookup(ctx context.Context, addr netip.Addr) (string, error) {
	arpa, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", err
	}

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)
	m.RecursionDesired = true

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return "", err
	}
	if resp.Rcode == dns.RcodeNameError {
		return "", nil
	}
	if resp.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("rcode %s", dns.RcodeToString[resp.Rcode])
	}
	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	return "", nil
}

// Len returns the number of cached entries.
func (r *Resolver) Len() int {
	return r.names.ItemCount()
}
