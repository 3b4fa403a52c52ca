package forwarded

import "strings"

// Directives holds the parameters of an RFC 7239 Forwarded header keyed by
// lower-cased parameter name.
//
// Values keep wire order across all elements of the header, so a header
// carrying several hops yields one "for" value per hop. Extension parameters
// are retained verbatim.
type Directives map[string][]string

// Get returns the first value recorded for name, or "" when the directive is
// absent.
func (d Directives) Get(name string) string {
	values := d[strings.ToLower(name)]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Values returns every value recorded for name in wire order.
func (d Directives) Values(name string) []string {
	return d[strings.ToLower(name)]
}

// Has reports whether name was recorded at least once.
func (d Directives) Has(name string) bool {
	return len(d[strings.ToLower(name)]) > 0
}

// ParseForwarded parses a raw Forwarded header value (RFC 7239).
//
// The value is split into elements on ';' and each element into parts on ','
// so that both "for=a, for=b" and "for=a;proto=https" are understood.
// Delimiters inside quoted strings do not split. Parameter names are
// lower-cased and quoted values are unquoted.
//
// ParseForwarded never fails: parts without a name or value are skipped, so
// malformed input yields an empty or partial result.
func ParseForwarded(raw string) Directives {
	return parseDirectives(raw, nil)
}

// parseDirectives is ParseForwarded with a hook invoked for every part that
// had to be skipped.
func parseDirectives(raw string, onMalformed func(part string)) Directives {
	directives := make(Directives)

	scanForwardedSegments(raw, ';', func(element string) {
		scanForwardedSegments(element, ',', func(part string) {
			name, value, ok := parseDirective(part)
			if !ok {
				if onMalformed != nil {
					onMalformed(part)
				}
				return
			}

			directives[name] = append(directives[name], value)
		})
	})

	return directives
}

// parseDirective splits one name=value part on its first '='.
func parseDirective(part string) (name, value string, ok bool) {
	eq := strings.IndexByte(part, '=')
	if eq <= 0 {
		return "", "", false
	}

	name = strings.ToLower(strings.TrimSpace(part[:eq]))
	if name == "" {
		return "", "", false
	}

	value = strings.TrimSpace(part[eq+1:])
	if value != "" && value[0] == '"' {
		value = unquoteForwardedValue(value)
	}
	if value == "" {
		return "", "", false
	}

	return name, value, true
}

// scanForwardedSegments splits value by delimiter while respecting quoted
// segments and escape sequences inside quoted strings. An unterminated quote
// extends to the end of value. Blank segments are skipped.
func scanForwardedSegments(value string, delimiter byte, onSegment func(string)) {
	start := 0
	inQuotes := false
	escaped := false

	for i := 0; i < len(value); i++ {
		ch := value[i]

		if escaped {
			escaped = false
			continue
		}

		switch {
		case ch == '\\' && inQuotes:
			escaped = true
		case ch == '"':
			inQuotes = !inQuotes
		case ch == delimiter && !inQuotes:
			emitSegment(value[start:i], onSegment)
			start = i + 1
		}
	}

	emitSegment(value[start:], onSegment)
}

func emitSegment(segment string, onSegment func(string)) {
	if segment = strings.TrimSpace(segment); segment != "" {
		onSegment(segment)
	}
}

// unquoteForwardedValue removes surrounding quotes from a quoted string and
// resolves backslash escapes. A malformed quoted string falls back to the
// value with every quote character removed.
func unquoteForwardedValue(value string) string {
	if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
		return strings.TrimSpace(strings.ReplaceAll(value, `"`, ""))
	}

	inner := value[1 : len(value)-1]
	if strings.IndexByte(inner, '\\') == -1 {
		return strings.TrimSpace(strings.ReplaceAll(inner, `"`, ""))
	}

	var b strings.Builder
	b.Grow(len(inner))
	escaped := false

	for i := 0; i < len(inner); i++ {
		ch := inner[i]

		switch {
		case escaped:
			b.WriteByte(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			// stray quote inside a quoted string
		default:
			b.WriteByte(ch)
		}
	}

	return strings.TrimSpace(b.String())
}
