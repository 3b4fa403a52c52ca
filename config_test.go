package forwarded

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew_InvalidConfiguration(t *testing.T) {
	var nilMetrics *mockMetrics
	var nilLogger *capturedLogger

	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{
			name:    "schema without name",
			opts:    []Option{WithSchemas(Schema{IPHeader: "X-Client-IP"})},
			wantErr: "schema at index 0 has no name",
		},
		{
			name:    "duplicate schema name",
			opts:    []Option{AppendSchemas(Schema{Name: "NGINX", IPHeader: "X-Client-IP"})},
			wantErr: `duplicate schema "NGINX"`,
		},
		{
			name:    "reserved schema name",
			opts:    []Option{WithSchemas(Schema{Name: "Forwarded", IPHeader: "X-Client-IP"})},
			wantErr: "reserved for the Forwarded header",
		},
		{
			name:    "schema without source",
			opts:    []Option{WithSchemas(Schema{Name: "empty"})},
			wantErr: `schema "empty" names no header and no proto extractor`,
		},
		{
			name:    "nil logger",
			opts:    []Option{WithLogger(nil)},
			wantErr: "logger cannot be nil",
		},
		{
			name:    "typed nil logger",
			opts:    []Option{WithLogger(nilLogger)},
			wantErr: "logger cannot be nil",
		},
		{
			name:    "nil metrics",
			opts:    []Option{WithMetrics(nil)},
			wantErr: "metrics cannot be nil",
		},
		{
			name:    "typed nil metrics",
			opts:    []Option{WithMetrics(nilMetrics)},
			wantErr: "metrics cannot be nil",
		},
		{
			name:    "nil metrics factory",
			opts:    []Option{WithMetricsFactory(nil)},
			wantErr: "metrics factory cannot be nil",
		},
		{
			name: "factory returns nil metrics",
			opts: []Option{WithMetricsFactory(func() (Metrics, error) {
				return nil, nil
			})},
			wantErr: "metrics cannot be nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := New(tt.opts...)
			if err == nil {
				t.Fatal("New() error = nil, want error")
			}
			if rc != nil {
				t.Errorf("New() reconciler = %v, want nil", rc)
			}
			if !strings.HasPrefix(err.Error(), "invalid configuration: ") {
				t.Errorf("New() error = %q, want invalid configuration prefix", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew_NilOptionsIgnored(t *testing.T) {
	rc := mustNewReconciler(t, nil, AllowPrivate(false), nil)

	if rc.config.policy.allowPrivate {
		t.Error("allowPrivate = true, want false")
	}
}

func TestNew_MetricsFactoryError(t *testing.T) {
	errBoom := errors.New("boom")

	_, err := New(WithMetricsFactory(func() (Metrics, error) {
		return nil, errBoom
	}))

	if !errors.Is(err, errBoom) {
		t.Fatalf("New() error = %v, want %v", err, errBoom)
	}
}

func TestNew_MetricsFactoryRunsAfterValidation(t *testing.T) {
	calls := 0
	factory := WithMetricsFactory(func() (Metrics, error) {
		calls++
		return newMockMetrics(), nil
	})

	if _, err := New(factory, WithLogger(nil)); err == nil {
		t.Fatal("New() error = nil, want error")
	}
	if calls != 0 {
		t.Errorf("factory calls after failed validation = %d, want 0", calls)
	}

	if _, err := New(factory); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("factory calls = %d, want 1", calls)
	}
}

func TestNew_LastMetricsOptionWins(t *testing.T) {
	direct := newMockMetrics()
	factoryCalls := 0
	factory := WithMetricsFactory(func() (Metrics, error) {
		factoryCalls++
		return newMockMetrics(), nil
	})

	rc := mustNewReconciler(t, factory, WithMetrics(direct))

	if factoryCalls != 0 {
		t.Errorf("factory calls = %d, want 0", factoryCalls)
	}

	mustReconcile(t, rc, newTestRequest("0.0.0.0:8000", map[string]string{"Forwarded": "for=192.0.2.1"}))

	if got := direct.getSourceCount(SourceForwarded); got != 1 {
		t.Errorf("direct metrics sources applied = %d, want 1", got)
	}
}

func TestWithSchemas_CopiesInput(t *testing.T) {
	schemas := []Schema{{Name: "edge", IPHeader: "x-edge-client"}}
	rc := mustNewReconciler(t, WithSchemas(schemas...))

	schemas[0].IPHeader = "X-Mutated"

	want := []string{"X-Edge-Client"}
	var got []string
	for _, schema := range rc.config.schemas {
		got = append(got, schema.IPHeader)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("configured IP headers mismatch (-want +got):\n%s", diff)
	}
}

func TestWithFilter_CopiesInput(t *testing.T) {
	patterns := []string{"203.0.113.*"}
	rc := mustNewReconciler(t, WithFilter(patterns...))

	patterns[0] = "*"

	got := mustReconcile(t, rc, newTestRequest("0.0.0.0:8000", map[string]string{"X-Forwarded-For": "198.51.100.1"}))
	if diff := cmp.Diff([]string{}, got.IPs); diff != "" {
		t.Errorf("IPs mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultSchemas_ReturnsCopy(t *testing.T) {
	schemas := DefaultSchemas()
	schemas[0].IPHeader = "X-Mutated"

	if got := DefaultSchemas()[0].IPHeader; got != "X-Forwarded-For" {
		t.Errorf("DefaultSchemas()[0].IPHeader = %q, want %q", got, "X-Forwarded-For")
	}
}

func TestDefaultSchemas_Order(t *testing.T) {
	var got []string
	for _, schema := range DefaultSchemas() {
		got = append(got, schema.Name)
	}

	want := []string{
		"x-forwarded",
		"x-forwarded-protocol",
		"z-forwarded",
		"z-forwarded-protocol",
		"fastly",
		"nginx",
		"nginx-url-scheme",
		"rackspace",
		"cloudflare",
		"ssl-flags",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("schema order mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemasNamed(t *testing.T) {
	var got []string
	for _, schema := range schemasNamed("cloudflare", "x-forwarded", "missing") {
		got = append(got, schema.Name)
	}

	if diff := cmp.Diff([]string{"x-forwarded", "cloudflare"}, got); diff != "" {
		t.Errorf("schemasNamed() mismatch (-want +got):\n%s", diff)
	}
}
