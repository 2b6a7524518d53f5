package domain

import "strings"

// subjectMarker is the optional leading character of a channel handle ("@name").
const subjectMarker = "@"

// CanonicalName lowercases a channel name and strips one leading subject marker.
// Every name comparison in the pipeline goes through this function.
func CanonicalName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), subjectMarker))
}
