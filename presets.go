package forwarded

// PresetPublicOnly drops private, loopback and link-local addresses from
// results, leaving public addresses and obfuscated identifiers.
func PresetPublicOnly() Option {
	return AllowPrivate(false)
}

// PresetRFC7239Only ignores every vendor header and reconciles the
// connection with the standard Forwarded header alone.
func PresetRFC7239Only() Option {
	return WithSchemas()
}

// PresetXForwardedOnly keeps only the de facto X-Forwarded-* headers next to
// the standard Forwarded header.
func PresetXForwardedOnly() Option {
	return WithSchemas(schemasNamed("x-forwarded", "x-forwarded-protocol")...)
}

// schemasNamed picks default schemas by name, preserving table order.
func schemasNamed(names ...string) []Schema {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	picked := make([]Schema, 0, len(names))
	for _, schema := range defaultSchemas {
		if _, ok := wanted[schema.Name]; ok {
			picked = append(picked, schema)
		}
	}

	return picked
}
