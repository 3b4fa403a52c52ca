package forwarded

// Metrics records reconciliation outcomes emitted by Reconciler.
//
// Implementations should be safe for concurrent use, as a single Reconciler
// instance is typically shared across many goroutines.
type Metrics interface {
	// RecordSourceApplied is called when a schema, or the Forwarded header
	// (SourceForwarded), contributed at least one value to a result.
	RecordSourceApplied(source string)
	// RecordAddressDropped is called for every address removed by the filter
	// policy, labeled DropReasonFilter or DropReasonPrivate.
	RecordAddressDropped(reason string)
	// RecordAnomaly is called when malformed input was absorbed.
	RecordAnomaly(event string)
}

// noopMetrics is the default Metrics implementation when metrics are not
// explicitly configured.
type noopMetrics struct{}

func (noopMetrics) RecordSourceApplied(string) {}

func (noopMetrics) RecordAddressDropped(string) {}

func (noopMetrics) RecordAnomaly(string) {}
