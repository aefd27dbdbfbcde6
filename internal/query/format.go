package query

import (
	"fmt"
	"strings"

	"github.com/coachx-ai/coachx/internal/store"
)

// NoResultsSentinel is returned instead of an empty string when nothing
// matched, so the generation step can tell "nothing found" from a formatting
// bug.
const NoResultsSentinel = "No relevant information found."

// FormatContext renders ranked results into the numbered, citation-annotated
// block handed to the generation step. Input order (distance-sorted) is
// preserved.
func FormatContext(results []store.QueryResult) string {
	if len(results) == 0 {
		return NoResultsSentinel
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] Source: %s/%s\n%s", i+1, r.Category, r.SourceName, r.Text)
	}
	return b.String()
}
