package storage

import (
	"strings"

	"edge-resizer/validation"
)

const derivedPrefix = "resized_"

// DerivedKey names the resized variant of originalKey. Only the final path
// segment changes, so equal inputs always map to the same key.
func DerivedKey(originalKey string, spec validation.SizeSpec) string {
	segments := strings.Split(originalKey, "/")
	last := len(segments) - 1

	var builder strings.Builder
	builder.WriteString(derivedPrefix)
	builder.WriteString(spec.Encode())
	builder.WriteByte('_')
	builder.WriteString(segments[last])
	segments[last] = builder.String()

	return strings.Join(segments, "/")
}
