// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package authority

import (
	"strings"
	"sync"
)

// Overrides maps domains to fixed answers, consulted before the cache
// and before any network path. They exist for tests and air-gapped
// deployments: set an answer at runtime and the resolver will never
// touch DNS for that domain. Safe for concurrent use while a resolver
// is running.
type Overrides struct {
	mu        sync.RWMutex
	text      map[string]string
	addresses map[string][]string
}

// NewOverrides returns an empty override set.
func NewOverrides() *Overrides {
	return &Overrides{
		text:      make(map[string]string),
		addresses: make(map[string][]string),
	}
}

// SetText fixes the TXT answer for a domain. The domain is
// canonicalized, so "pay.example.com" and "pay.example.com." are the
// same entry.
func (o *Overrides) SetText(domain, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.text[canonicalFQDN(domain)] = text
}

// ClearText removes a TXT override.
func (o *Overrides) ClearText(domain string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.text, canonicalFQDN(domain))
}

// SetAddresses fixes the address answer for a domain.
func (o *Overrides) SetAddresses(domain string, addresses ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.addresses[canonicalFQDN(domain)] = append([]string(nil), addresses...)
}

// ClearAddresses removes an address override.
func (o *Overrides) ClearAddresses(domain string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.addresses, canonicalFQDN(domain))
}

func (o *Overrides) lookupText(fqdn string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	text, ok := o.text[fqdn]
	return text, ok
}

func (o *Overrides) lookupAddresses(fqdn string) ([]string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	addresses, ok := o.addresses[fqdn]
	if !ok {
		return nil, false
	}
	return append([]string(nil), addresses...), true
}

// canonicalFQDN lowercases, trims, and ensures the trailing dot that
// makes a DNS name fully qualified.
func canonicalFQDN(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return domain
	}
	if !strings.HasSuffix(domain, ".") {
		domain += "."
	}
	return domain
}
