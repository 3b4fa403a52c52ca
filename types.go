package forwarded

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// SourceForwarded labels the RFC 7239 Forwarded header in logs and metrics.
const SourceForwarded = "forwarded"

// typicalChainCapacity is the initial capacity used for address lists.
//
// Most deployments have short chains (around 1-5 hops).
const typicalChainCapacity = 8

var (
	// ErrInvalidInput is returned when the request carries no connection
	// facts to seed a result from.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidVisitorHeader reports a CF-Visitor header that is not the
	// expected JSON object. It never fails a reconciliation.
	ErrInvalidVisitorHeader = errors.New("invalid CF-Visitor header")
)

// InputError describes which part of the caller-supplied input is missing.
type InputError struct {
	Err   error
	Field string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Result is the normalized view of a request's forwarding path.
//
// IPs and Ports start with the immediate peer's address and port and hold no
// duplicates. Port is the most authoritative port seen. For correlates each
// address with the port last associated with it; when intermediaries disagree
// it is best effort.
type Result struct {
	IPs   []string          `json:"ips"`
	Ports []string          `json:"ports"`
	Port  string            `json:"port"`
	Proto string            `json:"proto"`
	Host  string            `json:"host,omitempty"`
	By    string            `json:"by,omitempty"`
	For   map[string]string `json:"for"`
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	r.IPs = slices.Clone(r.IPs)
	r.Ports = slices.Clone(r.Ports)
	r.For = maps.Clone(r.For)
	return r
}
