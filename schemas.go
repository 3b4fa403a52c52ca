package forwarded

import (
	"encoding/json"
	"fmt"
	"net/textproto"
)

// ProtoExtractor computes a protocol opinion from request headers.
//
// An empty string means no opinion. A non-nil error reports a malformed
// header; the reconciler records it and treats the call as no opinion.
type ProtoExtractor func(h HeaderValues) (string, error)

// Schema describes the header convention of one kind of intermediary.
//
// Every field is optional but a schema must name at least one header or set
// Proto. When both ProtoHeader and Proto are set, an opinion from Proto wins.
type Schema struct {
	// Name labels the schema in logs and metrics.
	Name string

	IPHeader    string
	HostHeader  string
	PortHeader  string
	ProtoHeader string

	Proto ProtoExtractor
}

func (s Schema) hasSource() bool {
	return s.IPHeader != "" || s.HostHeader != "" || s.PortHeader != "" || s.ProtoHeader != "" || s.Proto != nil
}

// canonical returns s with every header name in canonical MIME form.
func (s Schema) canonical() Schema {
	s.IPHeader = canonicalHeaderKey(s.IPHeader)
	s.HostHeader = canonicalHeaderKey(s.HostHeader)
	s.PortHeader = canonicalHeaderKey(s.PortHeader)
	s.ProtoHeader = canonicalHeaderKey(s.ProtoHeader)
	return s
}

func canonicalHeaderKey(name string) string {
	if name == "" {
		return ""
	}
	return textproto.CanonicalMIMEHeaderKey(name)
}

// defaultSchemas is evaluated in order; later entries overwrite the proto,
// host and port found by earlier ones.
var defaultSchemas = []Schema{
	{
		Name:        "x-forwarded",
		IPHeader:    "X-Forwarded-For",
		HostHeader:  "X-Forwarded-Host",
		PortHeader:  "X-Forwarded-Port",
		ProtoHeader: "X-Forwarded-Proto",
	},
	{
		Name:        "x-forwarded-protocol",
		ProtoHeader: "X-Forwarded-Protocol",
	},
	// Zscaler
	{
		Name:        "z-forwarded",
		IPHeader:    "Z-Forwarded-For",
		HostHeader:  "Z-Forwarded-Host",
		PortHeader:  "Z-Forwarded-Port",
		ProtoHeader: "Z-Forwarded-Proto",
	},
	{
		Name:        "z-forwarded-protocol",
		ProtoHeader: "Z-Forwarded-Protocol",
	},
	{
		Name:       "fastly",
		IPHeader:   "Fastly-Client-IP",
		PortHeader: "Fastly-Client-Port",
	},
	{
		Name:        "nginx",
		IPHeader:    "X-Real-IP",
		PortHeader:  "X-Real-Port",
		ProtoHeader: "X-Real-Proto",
	},
	{
		Name:        "nginx-url-scheme",
		ProtoHeader: "X-Url-Scheme",
	},
	{
		Name:     "rackspace",
		IPHeader: "X-Cluster-Client-IP",
	},
	{
		Name:     "cloudflare",
		IPHeader: "CF-Connecting-IP",
	},
	{
		Name:  "ssl-flags",
		Proto: sslFlagsProto,
	},
}

// DefaultSchemas returns a copy of the built-in schema table in evaluation
// order.
func DefaultSchemas() []Schema {
	return cloneSchemas(defaultSchemas)
}

func cloneSchemas(schemas []Schema) []Schema {
	if schemas == nil {
		return nil
	}
	cloned := make([]Schema, len(schemas))
	copy(cloned, schemas)
	return cloned
}

// sslFlagsProto reads the boolean TLS hints set by Microsoft front ends,
// generic SSL offloaders, Fastly and Cloudflare.
func sslFlagsProto(h HeaderValues) (string, error) {
	if headerValue(h, "Front-End-Https") == "on" {
		return "https", nil
	}

	if headerValue(h, "X-Forwarded-Ssl") == "on" {
		return "https", nil
	}

	switch headerValue(h, "Fastly-Ssl") {
	case "1", "true":
		return "https", nil
	}

	visitor := headerValue(h, "Cf-Visitor")
	if visitor == "" {
		return "", nil
	}

	var cf struct {
		Scheme string `json:"scheme"`
	}
	if err := json.Unmarshal([]byte(visitor), &cf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidVisitorHeader, err)
	}

	return cf.Scheme, nil
}
