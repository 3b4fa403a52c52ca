package forwarded

import (
	"context"
	"net/http"
	"net/textproto"
	"sync"
	"testing"
)

func mustNewReconciler(t *testing.T, opts ...Option) *Reconciler {
	t.Helper()

	rc, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return rc
}

func newTestRequest(remoteAddr string, headers map[string]string) *http.Request {
	req := &http.Request{
		RemoteAddr: remoteAddr,
		Header:     make(http.Header),
	}

	for name, value := range headers {
		req.Header.Set(name, value)
	}

	return req
}

func mustReconcile(t *testing.T, rc *Reconciler, req *http.Request, overrides ...OverrideOptions) Result {
	t.Helper()

	result, err := rc.Reconcile(req, overrides...)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	return result
}

// headerMap is a HeaderValues provider that is not an http.Header.
type headerMap map[string][]string

func (h headerMap) Values(name string) []string {
	return h[textproto.CanonicalMIMEHeaderKey(name)]
}

type mockMetrics struct {
	mu               sync.Mutex
	sourcesApplied   map[string]int
	addressesDropped map[string]int
	anomalies        map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		sourcesApplied:   make(map[string]int),
		addressesDropped: make(map[string]int),
		anomalies:        make(map[string]int),
	}
}

func (m *mockMetrics) RecordSourceApplied(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourcesApplied[source]++
}

func (m *mockMetrics) RecordAddressDropped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addressesDropped[reason]++
}

func (m *mockMetrics) RecordAnomaly(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalies[event]++
}

func (m *mockMetrics) getSourceCount(source string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sourcesApplied[source]
}

func (m *mockMetrics) getDroppedCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addressesDropped[reason]
}

func (m *mockMetrics) getAnomalyCount(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anomalies[event]
}

type capturedLogEntry struct {
	ctx   context.Context
	level string
	msg   string
	attrs map[string]any
}

type capturedLogger struct {
	mu      sync.Mutex
	entries []capturedLogEntry
}

func (l *capturedLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.record(ctx, "debug", msg, args)
}

func (l *capturedLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.record(ctx, "warn", msg, args)
}

func (l *capturedLogger) record(ctx context.Context, level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, capturedLogEntry{
		ctx:   ctx,
		level: level,
		msg:   msg,
		attrs: attrsToMap(args),
	})
}

func (l *capturedLogger) snapshot(level string) []capturedLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []capturedLogEntry
	for _, entry := range l.entries {
		if entry.level == level {
			entries = append(entries, entry)
		}
	}
	return entries
}

func attrsToMap(args []any) map[string]any {
	attrs := make(map[string]any)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		attrs[key] = args[i+1]
	}
	return attrs
}

func assertAttr(t *testing.T, attrs map[string]any, key string, want any) {
	t.Helper()

	got, ok := attrs[key]
	if !ok {
		t.Fatalf("missing %q attr", key)
	}

	if got != want {
		t.Fatalf("%s attr = %v, want %v", key, got, want)
	}
}
