package forwarded

const (
	eventMalformedForwarded   = "malformed_forwarded"
	eventProtoExtractorFailed = "proto_extractor_failed"
	eventInvalidFilterPattern = "invalid_filter_pattern"
	eventInvalidInput         = "invalid_input"
)

const (
	// DropReasonFilter labels addresses that matched no filter pattern.
	DropReasonFilter = "filter"
	// DropReasonPrivate labels private, loopback and link-local addresses
	// removed because private addresses are not allowed.
	DropReasonPrivate = "private"
)
