package forwarded

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/gobwas/glob"
)

// addressFilter matches addresses against glob and CIDR patterns.
type addressFilter struct {
	matchAll bool
	globs    []glob.Glob
	prefixes prefixMatcher
}

// compileAddressFilter builds a filter from patterns.
//
// When configured is false every address passes. Otherwise an address passes
// if it matches at least one pattern, so an empty list matches nothing.
// Patterns containing '/' are CIDR prefixes; everything else is a glob. A "*"
// pattern matches everything. Invalid patterns are reported to onInvalid and
// never match.
func compileAddressFilter(patterns []string, configured bool, onInvalid func(pattern string, err error)) addressFilter {
	if !configured {
		return addressFilter{matchAll: true}
	}

	var f addressFilter
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)

		switch {
		case pattern == "*":
			return addressFilter{matchAll: true}
		case pattern == "":
			reportInvalidPattern(onInvalid, pattern, fmt.Errorf("empty pattern"))
		case strings.Contains(pattern, "/"):
			prefix, err := netip.ParsePrefix(pattern)
			if err != nil {
				reportInvalidPattern(onInvalid, pattern, err)
				continue
			}
			f.prefixes.insert(prefix)
		default:
			g, err := glob.Compile(pattern)
			if err != nil {
				reportInvalidPattern(onInvalid, pattern, err)
				continue
			}
			f.globs = append(f.globs, g)
		}
	}

	return f
}

func reportInvalidPattern(onInvalid func(string, error), pattern string, err error) {
	if onInvalid != nil {
		onInvalid(pattern, err)
	}
}

func (f *addressFilter) matches(address string) bool {
	if f.matchAll {
		return true
	}

	for _, g := range f.globs {
		if g.Match(address) {
			return true
		}
	}

	ip := parseIP(address)
	if !ip.IsValid() {
		return false
	}

	if !f.prefixes.empty() && f.prefixes.contains(ip) {
		return true
	}

	// Header values may carry ports or brackets; retry globs on the bare
	// address.
	if bare := ip.String(); bare != address {
		for _, g := range f.globs {
			if g.Match(bare) {
				return true
			}
		}
	}

	return false
}

// addressPolicy combines the pattern filter with the private-address rule.
type addressPolicy struct {
	filter       addressFilter
	allowPrivate bool
}

func (p *addressPolicy) unrestricted() bool {
	return p.filter.matchAll && p.allowPrivate
}

// admit reports whether address may stay in a result, and otherwise why not.
func (p *addressPolicy) admit(address string) (reason string, ok bool) {
	if !p.filter.matches(address) {
		return DropReasonFilter, false
	}

	if !p.allowPrivate && isPrivateAddress(address) {
		return DropReasonPrivate, false
	}

	return "", true
}

// isPrivateAddress reports RFC 1918, RFC 4193, loopback and link-local
// addresses. Obfuscated identifiers are not addresses and are never private.
func isPrivateAddress(address string) bool {
	ip := parseIP(address)
	if !ip.IsValid() {
		return false
	}

	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}
