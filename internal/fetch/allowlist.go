package fetch

import (
	"context"
	"net/url"
	"strings"
)

// Allowlist is the set of hosts a store's pipeline may contact.
// An entry matches the host itself and any of its subdomains.
type Allowlist struct {
	hosts []string
}

// NewAllowlist builds an allowlist from host names. Entries are lowercased;
// a leading "*." or "." is accepted and ignored.
func NewAllowlist(hosts ...string) *Allowlist {
	a := &Allowlist{}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.TrimPrefix(h, "*.")
		h = strings.TrimPrefix(h, ".")
		if h != "" {
			a.hosts = append(a.hosts, h)
		}
	}
	return a
}

// Hosts returns the configured host entries.
func (a *Allowlist) Hosts() []string {
	return append([]string(nil), a.hosts...)
}

// Allows reports whether rawURL is an http(s) URL on an allowed host.
func (a *Allowlist) Allows(rawURL string) bool {
	return a.Check(rawURL) == nil
}

// Check returns a *PolicyError if rawURL may not be fetched.
func (a *Allowlist) Check(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return &PolicyError{URL: rawURL}
	}
	host := strings.ToLower(parsed.Hostname())
	if a == nil {
		return &PolicyError{URL: rawURL, Host: host}
	}
	for _, allowed := range a.hosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return &PolicyError{URL: rawURL, Host: host}
}

// Guarded wraps a Fetcher so every request, and every redirect hop, is
// validated against an allowlist before it leaves the process.
type Guarded struct {
	next  Fetcher
	allow *Allowlist
}

// NewGuarded returns a Fetcher restricted to allow.
func NewGuarded(next Fetcher, allow *Allowlist) *Guarded {
	return &Guarded{next: next, allow: allow}
}

// Fetch rejects disallowed targets with a *PolicyError and otherwise delegates.
func (g *Guarded) Fetch(ctx context.Context, req Request) (*Result, error) {
	if err := g.allow.Check(req.URL); err != nil {
		return nil, err
	}
	req.Guard = g.allow
	return g.next.Fetch(ctx, req)
}

// Allowlist returns the allowlist the fetcher enforces.
func (g *Guarded) Allowlist() *Allowlist {
	return g.allow
}
