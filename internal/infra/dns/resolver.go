// Package dns provides the DNS resolver used by email validation.
package dns

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

const (
	defaultServer  = "8.8.8.8:53"
	defaultTimeout = 5 * time.Second
)

// Resolver answers MX and A existence queries against a configurable DNS
// server.
type Resolver struct {
	client *dns.Client
	server string
}

// NewResolver constructs a Resolver. server is a host:port; empty selects a
// public default.
func NewResolver(server string) *Resolver {
	if server == "" {
		server = defaultServer
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &Resolver{
		client: &dns.Client{Timeout: defaultTimeout},
		server: server,
	}
}

// LookupMX reports whether domain has at least one MX record.
func (r *Resolver) LookupMX(ctx context.Context, domain string) (bool, error) {
	return r.query(ctx, domain, dns.TypeMX)
}

// LookupA reports whether domain has at least one A record.
func (r *Resolver) LookupA(ctx context.Context, domain string) (bool, error) {
	return r.query(ctx, domain, dns.TypeA)
}

func (r *Resolver) query(ctx context.Context, domain string, qtype uint16) (bool, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return false, fmt.Errorf("dns query %s %s: %w", dns.TypeToString[qtype], domain, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return false, nil
	}
	for _, rr := range resp.Answer {
		if rr.Header().Rrtype == qtype {
			return true, nil
		}
	}
	return false, nil
}
