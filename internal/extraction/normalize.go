package extraction

import "strings"

// NormalizeName canonicalizes an entity name: lowercased, trimmed, internal
// whitespace collapsed to single underscores. Node identity within a scope is
// decided by embedding similarity, not by this string, but normalization keeps
// the graph readable and makes exact-triple deletion matching possible.
func NormalizeName(s string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(fields, "_")
}

// NormalizeLabel canonicalizes a relationship or entity type for use as a
// graph label. Labels end up interpolated into Cypher (relationship types
// cannot be parameterized), so anything outside [a-z0-9_] is dropped.
func NormalizeLabel(s string) string {
	name := NormalizeName(s)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), "_")
	return out
}

// NormalizeRelationship is NormalizeLabel with a fallback for labels that
// normalize to nothing.
func NormalizeRelationship(s string) string {
	if out := NormalizeLabel(s); out != "" {
		return out
	}
	return "related_to"
}

// NormalizeEntityType is NormalizeLabel with the sentinel type fallback.
func NormalizeEntityType(s string) string {
	if out := NormalizeLabel(s); out != "" {
		return out
	}
	return "unknown"
}
