package auth

import "strings"

// PublicPaths is the allow-list of request paths that bypass token
// verification. Anything not listed requires authentication, so a typo here
// locks a path down rather than opening it up.
type PublicPaths struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewPublicPaths builds the registry from exact paths and prefixes. A prefix
// must end with "/" to make the intent explicit.
func NewPublicPaths(exact []string, prefixes []string) *PublicPaths {
	p := &PublicPaths{
		exact: make(map[string]struct{}, len(exact)),
	}
	for _, path := range exact {
		p.exact[path] = struct{}{}
	}
	for _, prefix := range prefixes {
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		p.prefixes = append(p.prefixes, prefix)
	}
	return p
}

// Contains reports whether the path is public.
func (p *PublicPaths) Contains(path string) bool {
	if _, ok := p.exact[path]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// DefaultPublicPaths covers the endpoints a caller must reach before it can
// hold a token: health, the login flows, and invitation acceptance.
func DefaultPublicPaths() *PublicPaths {
	return NewPublicPaths(
		[]string{
			"/health",
			"/api/auth/login",
			// validate carries the token in the body
			"/api/auth/validate",
			"/api/auth/sso/resolve",
			"/api/auth/sso/login",
			"/api/auth/invitations/accept",
		},
		[]string{
			// pre-join lookup for users who hold no token yet
			"/api/organizations/by-slug/",
		},
	)
}
