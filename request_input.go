package forwarded

import (
	"context"
	"net/http"
	"strings"
)

// HeaderValues provides access to request header values by name.
//
// Header names are requested in canonical MIME format (for example
// "X-Forwarded-For"). Implementations return one slice entry per received
// header line; the reconciler joins repeated lines with ", ".
//
// net/http's http.Header satisfies this interface directly.
type HeaderValues interface {
	Values(name string) []string
}

// HeaderValuesFunc adapts a function to the HeaderValues interface.
type HeaderValuesFunc func(name string) []string

// Values implements HeaderValues.
func (f HeaderValuesFunc) Values(name string) []string {
	if f == nil {
		return nil
	}

	return f(name)
}

// ConnectionFacts is the framework-agnostic input of a reconciliation.
//
// Context defaults to context.Background() when nil. Host is the Host request
// header; when empty it is looked up in Headers.
type ConnectionFacts struct {
	Context     context.Context
	PeerAddress string
	PeerPort    string
	TLS         bool
	Host        string
	Headers     HeaderValues
}

func connectionFactsContext(facts ConnectionFacts) context.Context {
	if facts.Context == nil {
		return context.Background()
	}

	return facts.Context
}

func factsFromRequest(r *http.Request) ConnectionFacts {
	address, port := splitRemoteAddr(r.RemoteAddr)

	facts := ConnectionFacts{
		Context:     r.Context(),
		PeerAddress: address,
		PeerPort:    port,
		TLS:         r.TLS != nil,
		Host:        r.Host,
	}

	if r.Header != nil {
		facts.Headers = r.Header
	}

	return facts
}

// headersEmpty reports whether h is known to carry no headers at all.
// Arbitrary providers cannot be enumerated and are never considered empty.
func headersEmpty(h HeaderValues) bool {
	switch v := h.(type) {
	case nil:
		return true
	case http.Header:
		return len(v) == 0
	case *http.Header:
		return v == nil || len(*v) == 0
	case HeaderValuesFunc:
		return v == nil
	default:
		return isNilInterface(h)
	}
}

// headerValue returns every line of the named header joined with ", ".
func headerValue(h HeaderValues, name string) string {
	if name == "" || headersEmpty(h) {
		return ""
	}

	values := h.Values(name)
	switch len(values) {
	case 0:
		return ""
	case 1:
		return strings.TrimSpace(values[0])
	default:
		return strings.TrimSpace(strings.Join(values, ", "))
	}
}

// splitAddressList splits a comma-separated address header, dropping blank
// entries.
func splitAddressList(value string) []string {
	if value == "" {
		return nil
	}

	addresses := make([]string, 0, typicalChainCapacity)
	for part := range strings.SplitSeq(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			addresses = append(addresses, trimmed)
		}
	}

	return addresses
}
