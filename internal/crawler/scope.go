package crawler

import "strings"

// Scope restricts traversal to the crawl's root domain. The default policy is
// exact-host match; subdomain inclusion is opt-in since the crawl goal is
// "same domain".
type Scope struct {
	root              string
	includeSubdomains bool
}

// NewScope builds a Scope for rootDomain. Any port suffix on rootDomain is
// kept as part of the identity, matching the normalizer's host handling.
func NewScope(rootDomain string, includeSubdomains bool) Scope {
	return Scope{
		root:              strings.ToLower(strings.TrimSpace(rootDomain)),
		includeSubdomains: includeSubdomains,
	}
}

// Root returns the root domain this scope was built for.
func (s Scope) Root() string {
	return s.root
}

// Contains reports whether host is inside the crawl scope.
func (s Scope) Contains(host string) bool {
	if s.root == "" {
		return false
	}
	host = strings.ToLower(host)
	if host == s.root {
		return true
	}
	return s.includeSubdomains && strings.HasSuffix(host, "."+s.root)
}
