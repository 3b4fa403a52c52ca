package forwarded

import (
	"fmt"
	"reflect"
	"strings"
)

func (c *config) validate() error {
	if err := validateSchemas(c.schemas); err != nil {
		return err
	}

	if isNilLogger(c.logger) {
		return fmt.Errorf("logger cannot be nil")
	}
	if isNilMetrics(c.metrics) {
		return fmt.Errorf("metrics cannot be nil")
	}
	return nil
}

func validateSchemas(schemas []Schema) error {
	seen := make(map[string]struct{}, len(schemas))

	for i, schema := range schemas {
		name := strings.TrimSpace(schema.Name)
		if name == "" {
			return fmt.Errorf("schema at index %d has no name", i)
		}

		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate schema %q", schema.Name)
		}
		seen[key] = struct{}{}

		if key == SourceForwarded {
			return fmt.Errorf("schema name %q is reserved for the Forwarded header", schema.Name)
		}

		if !schema.hasSource() {
			return fmt.Errorf("schema %q names no header and no proto extractor", schema.Name)
		}
	}

	return nil
}

func isNilLogger(logger Logger) bool {
	return isNilInterface(logger)
}

func isNilMetrics(metrics Metrics) bool {
	return isNilInterface(metrics)
}

func isNilInterface(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}
