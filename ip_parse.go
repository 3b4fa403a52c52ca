package forwarded

import (
	"net"
	"net/netip"
	"strings"
)

// parseIP extracts an IP address from the formats found in proxy headers so
// that filter policies can classify it. It handles:
//   - Leading/trailing whitespace: "  192.168.1.1  "
//   - Port suffixes: "192.168.1.1:8080" or "[::1]:8080"
//   - Quoted values: "\"192.168.1.1\"" or "'192.168.1.1'"
//   - IPv6 brackets: "[::1]"
//
// Returns an invalid netip.Addr (IsValid() == false) for anything that is not
// an address, such as an obfuscated RFC 7239 identifier.
func parseIP(s string) netip.Addr {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}
	}

	s = trimMatchedChar(s, '"')
	s = trimMatchedChar(s, '\'')
	if s == "" {
		return netip.Addr{}
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}

	s = trimMatchedPair(s, '[', ']')

	ip, _ := netip.ParseAddr(s)
	return normalizeIP(ip)
}

func normalizeIP(ip netip.Addr) netip.Addr {
	if ip.Is4In6() {
		return ip.Unmap()
	}
	return ip
}

// splitRemoteAddr splits a connection's "host:port" remote address. A value
// without a port is returned whole with an empty port.
func splitRemoteAddr(remoteAddr string) (address, port string) {
	remoteAddr = strings.TrimSpace(remoteAddr)

	host, port, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return trimMatchedPair(remoteAddr, '[', ']'), ""
	}

	return host, port
}

// trimMatchedPair removes one leading and trailing delimiter when both match.
func trimMatchedPair(s string, start, end byte) string {
	if len(s) < 2 {
		return s
	}

	if s[0] != start || s[len(s)-1] != end {
		return s
	}

	return s[1 : len(s)-1]
}

// trimMatchedChar removes one matching leading and trailing character.
func trimMatchedChar(s string, ch byte) string {
	return trimMatchedPair(s, ch, ch)
}
