package forwarded

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"
)

// Reconciler merges connection facts, vendor proxy headers and the RFC 7239
// Forwarded header into a single Result.
//
// Reconciler instances are immutable and safe for concurrent reuse.
type Reconciler struct {
	config *config
}

// New creates a Reconciler from one or more Option builders.
func New(opts ...Option) (*Reconciler, error) {
	cfg, err := configFromOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Reconciler{config: cfg}, nil
}

// Reconcile derives the forwarding view of r.
//
// The peer address and port come from r.RemoteAddr, TLS from r.TLS and the
// host from r.Host. It fails only with ErrInvalidInput, when r is nil or has
// no RemoteAddr; malformed headers never fail the call.
//
// When overrides are provided, they are merged left-to-right and applied only
// for this call.
func (rc *Reconciler) Reconcile(r *http.Request, overrides ...OverrideOptions) (Result, error) {
	if r == nil {
		return Result{}, &InputError{Err: ErrInvalidInput, Field: "request"}
	}

	return rc.ReconcileFrom(factsFromRequest(r), overrides...)
}

// ReconcileFrom derives the forwarding view from framework-agnostic
// connection facts.
//
// It fails only with ErrInvalidInput, when facts carry no peer address.
func (rc *Reconciler) ReconcileFrom(facts ConnectionFacts, overrides ...OverrideOptions) (Result, error) {
	ctx := connectionFactsContext(facts)

	if facts.PeerAddress == "" {
		rc.config.metrics.RecordAnomaly(eventInvalidInput)
		return Result{}, &InputError{Err: ErrInvalidInput, Field: "peer_address"}
	}

	call := reconciliation{
		ctx:    ctx,
		config: rc.config.withOverrides(ctx, overrides...),
		facts:  facts,
	}

	return call.run(), nil
}

// ReconcileWithOptions is a one-shot convenience helper.
//
// It constructs a temporary reconciler from opts and reconciles r.
func ReconcileWithOptions(r *http.Request, opts ...Option) (Result, error) {
	rc, err := New(opts...)
	if err != nil {
		return Result{}, err
	}

	return rc.Reconcile(r)
}

// reconciliation carries the state of a single call.
type reconciliation struct {
	ctx    context.Context
	config *config
	facts  ConnectionFacts
}

func (c *reconciliation) run() Result {
	acc := seedAccumulator(c.facts)

	if headersEmpty(c.facts.Headers) {
		return acc.result()
	}

	for _, schema := range c.config.schemas {
		acc = c.applySchema(acc, schema)
	}

	acc = acc.backfilled()

	if raw := headerValue(c.facts.Headers, "Forwarded"); raw != "" {
		acc = c.applyForwarded(acc, raw)
	}

	acc = acc.deduplicated()
	acc = c.applyPolicy(acc)

	return acc.result()
}

// accumulator is the immutable value folded through the reconciliation
// steps. Steps never modify their input; they return a modified clone.
type accumulator struct {
	ips      []string
	ports    []string
	port     string
	proto    string
	host     string
	by       string
	forPorts map[string]string
}

func seedAccumulator(facts ConnectionFacts) accumulator {
	proto := "http"
	if facts.TLS {
		proto = "https"
	}

	host := facts.Host
	if host == "" {
		host = headerValue(facts.Headers, "Host")
	}

	return accumulator{
		ips:      []string{facts.PeerAddress},
		ports:    []string{facts.PeerPort},
		port:     facts.PeerPort,
		proto:    proto,
		host:     host,
		forPorts: map[string]string{facts.PeerAddress: facts.PeerPort},
	}
}

func (a accumulator) clone() accumulator {
	a.ips = slices.Clone(a.ips)
	a.ports = slices.Clone(a.ports)
	a.forPorts = maps.Clone(a.forPorts)
	return a
}

// backfilled gives every address without a port correlation the current
// port.
func (a accumulator) backfilled() accumulator {
	missing := false
	for _, ip := range a.ips {
		if _, ok := a.forPorts[ip]; !ok {
			missing = true
			break
		}
	}

	if !missing {
		return a
	}

	next := a.clone()
	for _, ip := range next.ips {
		if _, ok := next.forPorts[ip]; !ok {
			next.forPorts[ip] = next.port
		}
	}

	return next
}

// deduplicated drops repeated addresses and ports, keeping first
// occurrences.
func (a accumulator) deduplicated() accumulator {
	next := a.clone()
	next.ips = uniqueStrings(next.ips)
	next.ports = uniqueStrings(next.ports)
	return next
}

func (a accumulator) result() Result {
	next := a.clone()
	return Result{
		IPs:   next.ips,
		Ports: next.ports,
		Port:  next.port,
		Proto: next.proto,
		Host:  next.host,
		By:    next.by,
		For:   next.forPorts,
	}
}

// applySchema folds one vendor schema into acc. Scalars are overwritten,
// addresses are appended and correlated with the port known at this point.
func (c *reconciliation) applySchema(acc accumulator, schema Schema) accumulator {
	host := c.schemaHeader(schema, schema.HostHeader)
	proto := c.schemaProto(schema)
	port := c.schemaHeader(schema, schema.PortHeader)
	ips := splitAddressList(c.schemaHeader(schema, schema.IPHeader))

	if host == "" && proto == "" && port == "" && len(ips) == 0 {
		return acc
	}

	next := acc.clone()

	if host != "" {
		next.host = host
	}
	if proto != "" {
		next.proto = proto
	}
	if port != "" {
		next.port = port
		next.ports = append(next.ports, port)
	}
	for _, ip := range ips {
		next.ips = append(next.ips, ip)
		next.forPorts[ip] = next.port
	}

	c.config.metrics.RecordSourceApplied(schema.Name)
	return next
}

func (c *reconciliation) schemaHeader(schema Schema, name string) string {
	value := headerValue(c.facts.Headers, name)
	if value != "" {
		c.config.logger.DebugContext(c.ctx, "found forwarding header",
			"schema", schema.Name,
			"header", name,
		)
	}
	return value
}

func (c *reconciliation) schemaProto(schema Schema) string {
	proto := c.schemaHeader(schema, schema.ProtoHeader)

	if schema.Proto == nil {
		return proto
	}

	computed, err := schema.Proto(c.facts.Headers)
	if err != nil {
		c.anomaly(schema.Name, eventProtoExtractorFailed, "computed proto ignored", "error", err.Error())
		return proto
	}
	if computed != "" {
		return computed
	}

	return proto
}

// applyForwarded folds the RFC 7239 header into acc. It is applied after
// every schema, so its proto, host and by override theirs.
func (c *reconciliation) applyForwarded(acc accumulator, raw string) accumulator {
	directives := parseDirectives(raw, func(part string) {
		c.anomaly(SourceForwarded, eventMalformedForwarded, "malformed Forwarded directive ignored", "directive", part)
	})

	if len(directives) == 0 {
		return acc
	}

	next := acc.clone()

	for _, node := range directives.Values("for") {
		address, port := SplitNode(node, next.port)
		next.ips = append(next.ips, address)
		next.ports = append(next.ports, port)
		next.forPorts[address] = port
	}

	if proto := directives.Get("proto"); proto != "" {
		next.proto = proto
	}
	if host := directives.Get("host"); host != "" {
		next.host = host
	}
	if by := directives.Get("by"); by != "" {
		next.by = by
	}

	c.config.metrics.RecordSourceApplied(SourceForwarded)
	return next
}

// applyPolicy drops addresses rejected by the filter policy from the address
// list and from the port correlation table.
func (c *reconciliation) applyPolicy(acc accumulator) accumulator {
	policy := &c.config.policy
	if policy.unrestricted() {
		return acc
	}

	next := acc.clone()
	next.ips = next.ips[:0]

	for _, ip := range acc.ips {
		reason, ok := policy.admit(ip)
		if !ok {
			c.config.metrics.RecordAddressDropped(reason)
			c.config.logger.DebugContext(c.ctx, "address dropped by filter policy",
				"address", ip,
				"reason", reason,
			)
			continue
		}
		next.ips = append(next.ips, ip)
	}

	for address := range next.forPorts {
		if _, ok := policy.admit(address); !ok {
			delete(next.forPorts, address)
		}
	}

	return next
}

func (c *reconciliation) anomaly(source, event, msg string, attrs ...any) {
	c.config.metrics.RecordAnomaly(event)

	baseAttrs := []any{
		"event", event,
		"source", source,
		"remote_addr", c.facts.PeerAddress,
	}
	baseAttrs = append(baseAttrs, attrs...)
	c.config.logger.WarnContext(c.ctx, msg, baseAttrs...)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))

	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		unique = append(unique, value)
	}

	return unique
}
