// internal/knowledge/subjects.go
package knowledge

import "strings"

// Subject keyword lists used to scope retrieval by the topic of the
// latest user turn.
var subjectKeywords = map[string][]string{
	"science": {
		"atmosphere", "weather", "solar", "cosmic", "stellar",
		"earthquake", "radiation", "photosynthesis", "cell", "energy",
	},
	"mathematics": {
		"angle", "triangle", "chord", "secant", "tangent", "slope",
		"equation", "parallel", "perpendicular", "quadratic",
	},
	"general": {
		"school", "admission", "tuition", "schedule", "grade",
	},
}

// InferSubject maps a query to a corpus subject via keyword matching.
// Returns the empty string when no subject is recognized.
func InferSubject(query string) string {
	q := strings.ToLower(query)
	for _, subject := range []string{"science", "mathematics", "general"} {
		for _, kw := range subjectKeywords[subject] {
			if strings.Contains(q, kw) {
				return subject
			}
		}
	}
	return ""
}
