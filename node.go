package forwarded

import (
	"net/netip"
	"strings"
)

// SplitNode splits an RFC 7239 node identifier, such as the value of a "for"
// or "by" parameter, into an address and a port.
//
// Three shapes are recognized, in this order:
//
//   - "[2001:db8::1]" or "[2001:db8::1]:4711": the bracket contents and the
//     trailing port
//   - "192.0.2.1" or "192.0.2.1:4711": the dotted quad and the trailing port
//   - anything else, including unbracketed IPv6 and obfuscated identifiers
//     like "secret", "_gazonk" or "unknown": the whole token
//
// fallbackPort is returned whenever the token carries no numeric port.
// SplitNode never fails.
func SplitNode(token, fallbackPort string) (address, port string) {
	token = strings.TrimSpace(token)

	if strings.HasPrefix(token, "[") {
		if end := strings.IndexByte(token, ']'); end > 0 {
			return token[1:end], portSuffix(token[end+1:], fallbackPort)
		}
	}

	if colon := strings.LastIndexByte(token, ':'); colon != -1 {
		if host, p := token[:colon], token[colon+1:]; isIPv4Literal(host) && isPortNumber(p) {
			return host, p
		}
	}

	// A bare IPv4 literal and an opaque identifier split the same way.
	return token, fallbackPort
}

// portSuffix returns the digits of a ":port" suffix, or fallback.
func portSuffix(rest, fallback string) string {
	if len(rest) > 1 && rest[0] == ':' && isPortNumber(rest[1:]) {
		return rest[1:]
	}
	return fallback
}

func isIPv4Literal(s string) bool {
	ip, err := netip.ParseAddr(s)
	return err == nil && ip.Is4()
}

func isPortNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
