package forwarded

import "fmt"

// WithFilter restricts the addresses kept in results to those matching at
// least one pattern.
//
// Patterns are globs ("10.0.*", "2001:db8:*", "192.168.?.1") or CIDR
// prefixes ("10.0.0.0/8"). "*" keeps everything. Calling WithFilter without
// patterns configures an empty list, which keeps nothing. Invalid patterns do
// not fail construction; they never match and are reported as anomalies.
func WithFilter(patterns ...string) Option {
	patterns = cloneStrings(patterns)

	return func(c *config) error {
		if patterns == nil {
			patterns = []string{}
		}
		c.filterPatterns = patterns
		c.filterConfigured = true
		return nil
	}
}

// AllowPrivate configures whether private, loopback and link-local addresses
// are kept in results. It defaults to true.
func AllowPrivate(allow bool) Option {
	return func(c *config) error {
		c.policy.allowPrivate = allow
		return nil
	}
}

// WithSchemas replaces the header schema table. Schemas are evaluated in the
// given order. Calling it without schemas leaves only the Forwarded header.
func WithSchemas(schemas ...Schema) Option {
	schemas = cloneSchemas(schemas)

	return func(c *config) error {
		if schemas == nil {
			schemas = []Schema{}
		}
		c.schemas = cloneSchemas(schemas)
		return nil
	}
}

// AppendSchemas adds schemas after the current table, giving them the last
// word on proto, host and port.
func AppendSchemas(schemas ...Schema) Option {
	schemas = cloneSchemas(schemas)

	return func(c *config) error {
		c.schemas = append(c.schemas, schemas...)
		return nil
	}
}

// WithLogger sets the logger implementation used for diagnostic events.
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics sets a concrete metrics implementation.
//
// If previously configured, a metrics factory is disabled.
func WithMetrics(metrics Metrics) Option {
	return func(c *config) error {
		c.metrics = metrics
		c.metricsFactory = nil
		c.useMetricsFactory = false
		return nil
	}
}

// WithMetricsFactory configures a lazy metrics constructor.
//
// The factory is invoked only for the final winning metrics option after
// option validation succeeds.
func WithMetricsFactory(factory func() (Metrics, error)) Option {
	return func(c *config) error {
		if factory == nil {
			return fmt.Errorf("metrics factory cannot be nil")
		}

		c.metricsFactory = factory
		c.useMetricsFactory = true
		return nil
	}
}
