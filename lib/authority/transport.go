// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// Transport issues raw DNS queries. The production implementation
// talks TCP to the system resolvers; tests substitute fakes. A
// Transport does no caching and no canonicalization: it answers
// exactly the question asked.
type Transport interface {
	// TXT returns the TXT records at fqdn, one entry per record,
	// each record as its ordered string fragments. A name with no
	// such record returns an error wrapping ErrNoRecord.
	TXT(ctx context.Context, fqdn string) ([][]string, error)

	// Addresses returns the A and AAAA records at fqdn. A name with
	// neither returns an error wrapping ErrNoRecord.
	Addresses(ctx context.Context, fqdn string) ([]netip.Addr, error)
}

// DNSConfig configures the TCP DNS transport.
type DNSConfig struct {
	// Servers are resolver addresses in host:port form. When empty,
	// the system resolv.conf supplies them.
	Servers []string

	// ResolvConfPath overrides the resolv.conf location. Defaults to
	// /etc/resolv.conf.
	ResolvConfPath string

	// Timeout bounds each query exchange. Defaults to 4 seconds.
	Timeout time.Duration

	// Logger receives per-server failure messages. Defaults to
	// discard.
	Logger *slog.Logger
}

// DNSTransport resolves over TCP. Trust records decide whether a
// domain's key is believed, so the transport prefers the
// connection-oriented path: no spoofed UDP answers, no truncation
// retries.
type DNSTransport struct {
	client  *dns.Client
	servers []string
	logger  *slog.Logger
}

var _ Transport = (*DNSTransport)(nil)

// NewDNSTransport builds the production transport. It fails when no
// servers are configured and resolv.conf cannot be read.
func NewDNSTransport(cfg DNSConfig) (*DNSTransport, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 4 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	servers := cfg.Servers
	if len(servers) == 0 {
		path := cfg.ResolvConfPath
		if path == "" {
			path = "/etc/resolv.conf"
		}
		conf, err := dns.ClientConfigFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("dns transport: reading %s: %w", path, err)
		}
		for _, server := range conf.Servers {
			servers = append(servers, net.JoinHostPort(server, conf.Port))
		}
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("dns transport: no resolvers configured")
	}

	return &DNSTransport{
		client: &dns.Client{
			Net:     "tcp",
			Timeout: cfg.Timeout,
		},
		servers: servers,
		logger:  cfg.Logger,
	}, nil
}

func (t *DNSTransport) TXT(ctx context.Context, fqdn string) ([][]string, error) {
	response, err := t.exchange(ctx, fqdn, dns.TypeTXT)
	if err != nil {
		return nil, err
	}

	var records [][]string
	for _, answer := range response.Answer {
		if txt, ok := answer.(*dns.TXT); ok {
			records = append(records, txt.Txt)
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no TXT records at %s: %w", fqdn, ErrNoRecord)
	}
	return records, nil
}

func (t *DNSTransport) Addresses(ctx context.Context, fqdn string) ([]netip.Addr, error) {
	var addresses []netip.Addr
	var lastErr error

	for _, queryType := range []uint16{dns.TypeA, dns.TypeAAAA} {
		response, err := t.exchange(ctx, fqdn, queryType)
		if err != nil {
			lastErr = err
			continue
		}
		for _, answer := range response.Answer {
			var ip net.IP
			switch record := answer.(type) {
			case *dns.A:
				ip = record.A
			case *dns.AAAA:
				ip = record.AAAA
			default:
				continue
			}
			if addr, ok := netip.AddrFromSlice(ip); ok {
				addresses = append(addresses, addr.Unmap())
			}
		}
	}

	if len(addresses) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("no address records at %s: %w", fqdn, ErrNoRecord)
	}
	return addresses, nil
}

// exchange queries each configured server in order and returns the
// first usable response. NXDOMAIN is definitive (no later server will
// disagree); other failures try the next server.
func (t *DNSTransport) exchange(ctx context.Context, fqdn string, queryType uint16) (*dns.Msg, error) {
	message := new(dns.Msg)
	message.SetQuestion(dns.Fqdn(fqdn), queryType)

	var lastErr error
	for _, server := range t.servers {
		response, _, err := t.client.ExchangeContext(ctx, message, server)
		if err != nil {
			lastErr = fmt.Errorf("querying %s via %s: %w", fqdn, server, err)
			t.logger.Debug("dns exchange failed",
				"fqdn", fqdn,
				"server", server,
				"error", err,
			)
			continue
		}
		switch response.Rcode {
		case dns.RcodeSuccess:
			return response, nil
		case dns.RcodeNameError:
			return nil, fmt.Errorf("domain %s does not exist: %w", fqdn, ErrNoRecord)
		default:
			lastErr = fmt.Errorf("querying %s via %s: rcode %s", fqdn, server, dns.RcodeToString[response.Rcode])
		}
	}
	return nil, lastErr
}
