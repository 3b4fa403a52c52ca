package forwarded

import "net/netip"

// prefixMatcher answers CIDR membership for filter patterns with one binary
// trie per address family.
type prefixMatcher struct {
	v4 *prefixTrieNode
	v6 *prefixTrieNode
}

type prefixTrieNode struct {
	children [2]*prefixTrieNode
	terminal bool
}

func (m *prefixMatcher) empty() bool {
	return m.v4 == nil && m.v6 == nil
}

// insert adds prefix to the matcher. Invalid prefixes are ignored.
func (m *prefixMatcher) insert(prefix netip.Prefix) {
	if !prefix.IsValid() {
		return
	}

	prefix = prefix.Masked()
	addr := prefix.Addr()

	var root **prefixTrieNode
	var bytes []byte
	if addr.Is4() {
		root = &m.v4
		b := addr.As4()
		bytes = b[:]
	} else {
		root = &m.v6
		b := addr.As16()
		bytes = b[:]
	}

	if *root == nil {
		*root = &prefixTrieNode{}
	}

	node := *root
	for i := range prefix.Bits() {
		bit := addrBit(bytes, i)
		if node.children[bit] == nil {
			node.children[bit] = &prefixTrieNode{}
		}
		node = node.children[bit]
	}

	node.terminal = true
}

// contains reports whether ip falls inside any inserted prefix.
func (m *prefixMatcher) contains(ip netip.Addr) bool {
	if !ip.IsValid() {
		return false
	}

	ip = normalizeIP(ip)

	node := m.v6
	var bytes []byte
	if ip.Is4() {
		node = m.v4
		b := ip.As4()
		bytes = b[:]
	} else {
		b := ip.As16()
		bytes = b[:]
	}

	for i := 0; node != nil; i++ {
		if node.terminal {
			return true
		}
		if i == len(bytes)*8 {
			return false
		}
		node = node.children[addrBit(bytes, i)]
	}

	return false
}

func addrBit(addr []byte, bitIndex int) int {
	return int(addr[bitIndex/8]>>(7-uint(bitIndex%8))) & 1
}
