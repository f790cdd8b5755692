// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"slices"
	"strings"

	"github.com/caisson-foundation/caisson/lib/keyring"
	"github.com/caisson-foundation/caisson/lib/partition"
	"github.com/caisson-foundation/caisson/lib/rights"
)

// Sentinel errors. Both only surface in strict mode; relaxed lookups
// report absence as a false boolean or an empty result.
var (
	// ErrNoRecord marks a name with no record of the requested kind.
	ErrNoRecord = errors.New("record not found")

	// ErrUnknownKeyHash marks a published hash that no key source
	// (override, store, bundle, held rights) could resolve.
	ErrUnknownKeyHash = errors.New("key hash not held anywhere")
)

// DefaultGlobalPartition is where process-wide trust anchors live in
// a key store when a lookup names no more specific partition.
var DefaultGlobalPartition = partition.NewKey("caisson.trust", 0)

// Config assembles a Resolver. Every field is optional except that a
// nil Transport requires a readable resolv.conf to build the real one.
type Config struct {
	// Transport issues the raw DNS queries. Defaults to the TCP
	// transport over the system resolvers.
	Transport Transport

	// Cache holds lookup results. Defaults to the standard sizing
	// (20000 positive entries, 300 negative, 300s TTL). Sharing one
	// Cache between resolvers shares their view of DNS.
	Cache *Cache

	// Overrides are consulted before the cache and the network.
	// Defaults to an empty, runtime-settable set.
	Overrides *Overrides

	// Keys is the key store consulted when resolving published
	// hashes and the registration target for GenerateTXTRecord.
	// Optional: without it, hash resolution falls through to the
	// bundled anchors and held rights.
	Keys keyring.Store

	// GlobalPartition scopes Keys lookups when a query names no
	// partition. Defaults to DefaultGlobalPartition.
	GlobalPartition partition.Key

	// Rights is the caller's identity. Its write keys are the final
	// fallback when a published hash matches a key already held.
	Rights *rights.Identity

	// Logger receives debug records for relaxed-mode misses and
	// warnings for store faults. Defaults to discard.
	Logger *slog.Logger
}

// Resolver derives trust from DNS: a domain owner publishes a public
// key hash in a TXT record, and the resolver turns that hash into an
// actual key through its configured key sources. See the package
// documentation for the full resolution order.
type Resolver struct {
	transport       Transport
	cache           *Cache
	overrides       *Overrides
	keys            keyring.Store
	globalPartition partition.Key
	rights          *rights.Identity
	logger          *slog.Logger
}

// New builds a resolver. It fails only when no transport was supplied
// and the real one cannot be constructed.
func New(cfg Config) (*Resolver, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Transport == nil {
		transport, err := NewDNSTransport(DNSConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("authority: %w", err)
		}
		cfg.Transport = transport
	}
	if cfg.Cache == nil {
		cfg.Cache = NewCache(CacheConfig{})
	}
	if cfg.Overrides == nil {
		cfg.Overrides = NewOverrides()
	}
	if cfg.GlobalPartition == (partition.Key{}) {
		cfg.GlobalPartition = DefaultGlobalPartition
	}
	return &Resolver{
		transport:       cfg.Transport,
		cache:           cfg.Cache,
		overrides:       cfg.Overrides,
		keys:            cfg.Keys,
		globalPartition: cfg.GlobalPartition,
		rights:          cfg.Rights,
		logger:          cfg.Logger,
	}, nil
}

// Overrides returns the resolver's override set, settable at runtime.
func (r *Resolver) Overrides() *Overrides {
	return r.overrides
}

// DomainText resolves the TXT payload at a domain: the string
// fragments of the first TXT record carrying data, concatenated.
// Records with no data are skipped. Absence and lookup failure return
// ok=false under relaxed mode; strict mode turns both into an error
// naming the domain.
func (r *Resolver) DomainText(ctx context.Context, domain string, strict bool) (string, bool, error) {
	fqdn := canonicalFQDN(domain)
	if fqdn == "" {
		return r.textAbsent(fqdn, strict)
	}

	if text, ok := r.overrides.lookupText(fqdn); ok {
		return text, true, nil
	}

	// Loopback names never carry trust records; skip the network.
	if fqdn == "localhost." || fqdn == "127.0.0.1." {
		return r.textAbsent(fqdn, strict)
	}

	cacheKey := "txt:" + fqdn
	if cached, negative, ok := r.cache.lookup(cacheKey); ok {
		if negative {
			return r.textAbsent(fqdn, strict)
		}
		return cached[0], true, nil
	}

	records, err := r.transport.TXT(ctx, fqdn)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			r.cache.storeNegative(cacheKey)
			return r.textAbsent(fqdn, strict)
		}
		// Transient failure: never cached, so the next call retries.
		if strict {
			return "", false, fmt.Errorf("resolving TXT for %s: %w", fqdn, err)
		}
		r.logger.Debug("TXT lookup failed", "fqdn", fqdn, "error", err)
		return "", false, nil
	}

	joined := make([]string, 0, len(records))
	for _, fragments := range records {
		if text := strings.Join(fragments, ""); text != "" {
			joined = append(joined, text)
		}
	}
	if len(joined) == 0 {
		r.cache.storeNegative(cacheKey)
		return r.textAbsent(fqdn, strict)
	}

	r.cache.store(cacheKey, joined)
	return joined[0], true, nil
}

func (r *Resolver) textAbsent(fqdn string, strict bool) (string, bool, error) {
	if strict {
		return "", false, fmt.Errorf("no TXT record for %s: %w", fqdn, ErrNoRecord)
	}
	r.logger.Debug("no TXT record", "fqdn", fqdn)
	return "", false, nil
}

// DomainAddresses resolves a domain to its address strings: A and
// AAAA records, lowercased, IPv6 bracketed, deduplicated, and sorted
// for determinism. A trailing :port on the domain is stripped first.
// IP literals and localhost answer themselves without touching the
// network. An empty result is absence; strict mode turns absence and
// failure into an error naming the domain.
func (r *Resolver) DomainAddresses(ctx context.Context, domain string, strict bool) ([]string, error) {
	fqdn := canonicalFQDN(stripPort(domain))
	if fqdn == "" {
		return r.addressesAbsent(fqdn, strict)
	}

	if addresses, ok := r.overrides.lookupAddresses(fqdn); ok {
		return normalizeAddressStrings(addresses), nil
	}

	if literal, ok := selfAddressed(fqdn); ok {
		return []string{literal}, nil
	}

	cacheKey := "addr:" + fqdn
	if cached, negative, ok := r.cache.lookup(cacheKey); ok {
		if negative {
			return r.addressesAbsent(fqdn, strict)
		}
		return slices.Clone(cached), nil
	}

	resolved, err := r.transport.Addresses(ctx, fqdn)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			r.cache.storeNegative(cacheKey)
			return r.addressesAbsent(fqdn, strict)
		}
		if strict {
			return nil, fmt.Errorf("resolving addresses for %s: %w", fqdn, err)
		}
		r.logger.Debug("address lookup failed", "fqdn", fqdn, "error", err)
		return nil, nil
	}

	formatted := make([]string, 0, len(resolved))
	for _, addr := range resolved {
		formatted = append(formatted, formatAddress(addr))
	}
	formatted = normalizeAddressStrings(formatted)
	if len(formatted) == 0 {
		r.cache.storeNegative(cacheKey)
		return r.addressesAbsent(fqdn, strict)
	}

	r.cache.store(cacheKey, formatted)
	return slices.Clone(formatted), nil
}

func (r *Resolver) addressesAbsent(fqdn string, strict bool) ([]string, error) {
	if strict {
		return nil, fmt.Errorf("no address records for %s: %w", fqdn, ErrNoRecord)
	}
	r.logger.Debug("no address records", "fqdn", fqdn)
	return nil, nil
}

// KeyQuery names a trust lookup: whose key, how strictly, and with
// which local sources.
type KeyQuery struct {
	// Prefix is the record label, queried at prefix + "." + domain.
	Prefix string

	// Domain is the trust domain whose owner published the record.
	Domain string

	// Strict turns absence at any step into an error naming what was
	// missing.
	Strict bool

	// Alias overrides the alias on the returned key. Defaults to
	// Domain.
	Alias string

	// Partition scopes the key store lookup. When nil, the record's
	// own partition (if it names one) and then the resolver's global
	// partition apply.
	Partition *partition.Key

	// Lookup, when set, replaces the key store as the hash source.
	// The bundled anchors and held rights still apply afterward.
	Lookup func(keyring.Hash) (*keyring.PublicKey, bool)
}

// DomainKey resolves a domain's published key: the TXT record at
// prefix.domain names a public key hash, and the hash is resolved
// through, in order, the query's Lookup override or the key store,
// then the bundled anchors, then the caller's held write rights. The
// returned key is always a clone with the query's alias; shared and
// cached instances are never mutated.
func (r *Resolver) DomainKey(ctx context.Context, query KeyQuery) (*keyring.PublicKey, bool, error) {
	name := query.Domain
	if query.Prefix != "" {
		name = query.Prefix + "." + query.Domain
	}
	fqdn := canonicalFQDN(name)

	text, ok, err := r.DomainText(ctx, fqdn, query.Strict)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	recordPartition, hash, err := parseRecordText(text)
	if err != nil {
		if query.Strict {
			return nil, false, fmt.Errorf("trust record at %s: %w", fqdn, err)
		}
		r.logger.Debug("malformed trust record", "fqdn", fqdn, "error", err)
		return nil, false, nil
	}

	found := r.resolveHash(ctx, query, recordPartition, hash)
	if found == nil {
		if query.Strict {
			return nil, false, fmt.Errorf("trust record at %s names key hash %s: %w", fqdn, hash, ErrUnknownKeyHash)
		}
		r.logger.Debug("unresolvable key hash", "fqdn", fqdn, "hash", hash.String())
		return nil, false, nil
	}

	alias := query.Alias
	if alias == "" {
		alias = query.Domain
	}
	return found.WithAlias(alias), true, nil
}

// resolveHash walks the key sources. Store faults are logged and the
// walk continues: a broken store must not mask a bundled anchor.
func (r *Resolver) resolveHash(ctx context.Context, query KeyQuery, recordPartition *partition.Key, hash keyring.Hash) *keyring.PublicKey {
	if query.Lookup != nil {
		if key, ok := query.Lookup(hash); ok {
			return key
		}
	} else if r.keys != nil {
		pk := r.globalPartition
		if query.Partition != nil {
			pk = *query.Partition
		} else if recordPartition != nil {
			pk = *recordPartition
		}
		key, ok, err := r.keys.Lookup(ctx, pk, hash)
		if err != nil {
			r.logger.Warn("key store lookup failed",
				"partition", pk.String(),
				"hash", hash.String(),
				"error", err,
			)
		} else if ok {
			return key
		}
	}

	if key, ok := EmbeddedKey(hash); ok {
		return key
	}

	if key, ok := r.rights.FindWriteKey(hash); ok {
		return key.Public()
	}
	return nil
}

// GenerateTXTRecord returns the TXT payload a domain owner publishes
// to make key resolvable under the given partition. The key is merged
// into the resolver's key store first (self-unlocking) when not
// already present, so the record resolves immediately.
func (r *Resolver) GenerateTXTRecord(ctx context.Context, key *keyring.PrivateKey, pk partition.Key) (string, error) {
	if r.keys == nil {
		return "", fmt.Errorf("generating trust record: no key store configured")
	}

	exists, err := r.keys.Exists(ctx, pk, key.SecretHash(), key.Public().Hash())
	if err != nil {
		return "", fmt.Errorf("generating trust record: %w", err)
	}
	if !exists {
		if err := r.keys.Put(ctx, pk, key, key.Public().Hash()); err != nil {
			return "", fmt.Errorf("generating trust record: %w", err)
		}
	}
	return FormatTXTRecord(pk, key.Public().Hash()), nil
}

// FormatTXTRecord renders the published trust record form:
// base64url-encoded partition, a colon, and the hex public key hash.
func FormatTXTRecord(pk partition.Key, hash keyring.Hash) string {
	return pk.EncodeString() + ":" + hash.String()
}

// ParseTXTRecord parses the form FormatTXTRecord produces.
func ParseTXTRecord(record string) (partition.Key, keyring.Hash, error) {
	record = strings.TrimSpace(record)
	separator := strings.LastIndex(record, ":")
	if separator < 0 {
		return partition.Key{}, keyring.Hash{}, fmt.Errorf("trust record %q has no partition separator", record)
	}
	pk, err := partition.DecodeKeyString(record[:separator])
	if err != nil {
		return partition.Key{}, keyring.Hash{}, fmt.Errorf("trust record partition: %w", err)
	}
	hash, err := keyring.ParseHash(record[separator+1:])
	if err != nil {
		return partition.Key{}, keyring.Hash{}, fmt.Errorf("trust record hash: %w", err)
	}
	return pk, hash, nil
}

// parseRecordText accepts both published record forms: the full
// partition:hash form and a bare hex hash.
func parseRecordText(text string) (*partition.Key, keyring.Hash, error) {
	text = strings.TrimSpace(text)
	if strings.Contains(text, ":") {
		pk, hash, err := ParseTXTRecord(text)
		if err != nil {
			return nil, keyring.Hash{}, err
		}
		return &pk, hash, nil
	}
	hash, err := keyring.ParseHash(text)
	if err != nil {
		return nil, keyring.Hash{}, fmt.Errorf("trust record hash: %w", err)
	}
	return nil, hash, nil
}

// stripPort removes a trailing :port. Plain names and raw IPv6
// literals pass through unchanged.
func stripPort(domain string) string {
	host, _, err := net.SplitHostPort(domain)
	if err != nil {
		return domain
	}
	return host
}

// selfAddressed reports whether a name answers its own address
// lookup: localhost and any IP literal.
func selfAddressed(fqdn string) (string, bool) {
	name := strings.TrimSuffix(fqdn, ".")
	if name == "localhost" {
		return "127.0.0.1", true
	}
	if addr, err := netip.ParseAddr(name); err == nil {
		return formatAddress(addr), true
	}
	return "", false
}

// formatAddress renders one resolved address: IPv4 dotted quad, IPv6
// bracketed.
func formatAddress(addr netip.Addr) string {
	addr = addr.Unmap()
	if addr.Is4() {
		return addr.String()
	}
	return "[" + addr.String() + "]"
}

// normalizeAddressStrings lowercases, trims, deduplicates, and sorts.
func normalizeAddressStrings(addresses []string) []string {
	normalized := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if address = strings.ToLower(strings.TrimSpace(address)); address != "" {
			normalized = append(normalized, address)
		}
	}
	slices.Sort(normalized)
	return slices.Compact(normalized)
}
