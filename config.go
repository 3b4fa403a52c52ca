package forwarded

import (
	"context"
	"fmt"
)

// Option configures a Reconciler.
//
// Construct options using package-provided option builder functions.
type Option func(*config) error

// SetValue represents an optional per-call override value.
//
// Use Set(v) to mark an override as explicitly provided.
type SetValue[T any] struct {
	v   T
	set bool
}

// Set marks a value as explicitly set for OverrideOptions.
func Set[T any](value T) SetValue[T] {
	return SetValue[T]{v: value, set: true}
}

// isSet reports whether a value was explicitly provided.
func (s SetValue[T]) isSet() bool {
	return s.set
}

// value returns the stored value.
func (s SetValue[T]) value() T {
	return s.v
}

// OverrideOptions applies per-call policy overrides.
//
// Only the address policy is overrideable. Schemas, Logger and Metrics remain
// fixed at reconciler construction time.
type OverrideOptions struct {
	// Filter replaces the filter patterns. Any explicitly set list, even an
	// empty one, is a configured filter.
	Filter       SetValue[[]string]
	AllowPrivate SetValue[bool]
}

func (o OverrideOptions) hasSetValues() bool {
	return o.Filter.isSet() || o.AllowPrivate.isSet()
}

// config holds reconciler configuration state.
//
// It is mutated by Option functions during construction and override merging.
type config struct {
	schemas []Schema

	filterPatterns   []string
	filterConfigured bool
	policy           addressPolicy

	logger  Logger
	metrics Metrics

	metricsFactory    func() (Metrics, error)
	useMetricsFactory bool
}

func defaultConfig() *config {
	return &config{
		schemas: DefaultSchemas(),
		policy: addressPolicy{
			filter:       addressFilter{matchAll: true},
			allowPrivate: true,
		},
		logger:  noopLogger{},
		metrics: noopMetrics{},
	}
}

func applyOptions(c *config, opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return err
		}
	}

	return nil
}

func configFromOptions(opts ...Option) (*config, error) {
	cfg := defaultConfig()

	if err := applyOptions(cfg, opts...); err != nil {
		return nil, err
	}

	if cfg.useMetricsFactory && cfg.metricsFactory == nil {
		return nil, fmt.Errorf("metrics factory cannot be nil")
	}

	validationConfig := cfg
	if cfg.useMetricsFactory {
		validationConfig = cfg.clone()
		validationConfig.metrics = noopMetrics{}
	}

	if err := validationConfig.validate(); err != nil {
		return nil, err
	}

	if cfg.useMetricsFactory {
		metrics, err := cfg.metricsFactory()
		if err != nil {
			return nil, err
		}
		cfg.metrics = metrics

		if err := cfg.validate(); err != nil {
			return nil, err
		}
	}

	for i, schema := range cfg.schemas {
		cfg.schemas[i] = schema.canonical()
	}

	cfg.compileFilter(context.Background())

	return cfg, nil
}

// compileFilter rebuilds the address filter from the configured patterns,
// reporting invalid ones.
func (c *config) compileFilter(ctx context.Context) {
	c.policy.filter = compileAddressFilter(c.filterPatterns, c.filterConfigured, func(pattern string, err error) {
		c.metrics.RecordAnomaly(eventInvalidFilterPattern)
		c.logger.WarnContext(ctx, "invalid filter pattern never matches",
			"event", eventInvalidFilterPattern,
			"pattern", pattern,
			"error", err.Error(),
		)
	})
}

func (c *config) clone() *config {
	cloned := *c
	cloned.schemas = cloneSchemas(c.schemas)
	cloned.filterPatterns = cloneStrings(c.filterPatterns)
	return &cloned
}

// withOverrides returns the configuration effective for one call. The
// receiver is returned unchanged when no override sets a value.
func (c *config) withOverrides(ctx context.Context, overrides ...OverrideOptions) *config {
	hasOverrides := false
	for _, override := range overrides {
		if override.hasSetValues() {
			hasOverrides = true
			break
		}
	}

	if !hasOverrides {
		return c
	}

	effective := c.clone()
	filterOverridden := false

	for _, override := range overrides {
		if override.Filter.isSet() {
			effective.filterPatterns = cloneStrings(override.Filter.value())
			effective.filterConfigured = true
			filterOverridden = true
		}
		if override.AllowPrivate.isSet() {
			effective.policy.allowPrivate = override.AllowPrivate.value()
		}
	}

	if filterOverridden {
		effective.compileFilter(ctx)
	}

	return effective
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	cloned := make([]string, len(values))
	copy(cloned, values)
	return cloned
}
