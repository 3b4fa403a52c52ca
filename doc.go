// Package forwarded derives a single normalized view of who sent an HTTP
// request from the connection itself and every forwarding header that
// proxies, CDNs and load balancers may have added.
//
// # Features
//
//   - RFC 7239 Forwarded parsing, including quoted values, bracketed IPv6
//     nodes and obfuscated identifiers
//   - A declarative table of vendor headers: X-Forwarded-*, Z-Forwarded-*,
//     Fastly, X-Real-IP, X-Cluster-Client-IP, CF-Connecting-IP and the
//     Front-End-Https / X-Forwarded-Ssl / Fastly-Ssl / CF-Visitor TLS hints
//   - Deduplicated address and port lists with a best-effort address to port
//     correlation table
//   - Glob and CIDR address filters and an optional private-address policy
//   - Optional observability with context-aware logging and pluggable metrics
//
// # Basic Usage
//
//	reconciler, err := forwarded.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := reconciler.Reconcile(req)
//	if err != nil {
//	    log.Printf("reconcile failed: %v", err)
//	    return
//	}
//
//	fmt.Println(result.IPs, result.Proto, result.Host)
//
// Result.IPs always starts with the immediate peer and then lists every
// address the headers claimed, in evaluation order. Vendor headers are applied
// in table order and the Forwarded header last, so its proto, host and by
// values win.
//
// # Filtering
//
//	reconciler, _ := forwarded.New(
//	    forwarded.WithFilter("203.0.113.*", "2001:db8::/32"),
//	    forwarded.AllowPrivate(false),
//	)
//
// Filtered addresses are removed from both Result.IPs and Result.For.
//
// # Middleware
//
//	handler := reconciler.Middleware(mux)
//
//	func serve(w http.ResponseWriter, r *http.Request) {
//	    result, ok := forwarded.FromContext(r.Context())
//	    ...
//	}
//
// # Observability
//
// Add logging and metrics for production monitoring
// (Prometheus adapter package: github.com/abczzz13/forwarded/prometheus).
// The logger receives the request context, allowing trace/span IDs to flow
// through.
//
//	reconciler, err := forwarded.New(
//	    forwarded.WithLogger(slog.Default()),
//	    forwardedprom.WithRegisterer(registry),
//	)
//
// # Security Considerations
//
// Every header value is attacker-controlled unless an edge you operate strips
// and rewrites it. The package normalizes what the headers claim; it does not
// authenticate it. Malformed headers are absorbed and reported as anomalies
// rather than failing the request.
//
// # Thread Safety
//
// Reconciler instances are safe for concurrent use. They are typically
// created once at application startup and reused across all requests.
package forwarded
