// Package output turns slices into their presentation forms: an annotated
// text rendering for prompt assembly, and a compressed JSON archive for
// handing off to other tools.
package output

import (
	"fmt"
	"strings"

	"ctxslice/internal/compress"
)

// markers per inclusion level, matching the rendering contract consumers
// parse: a comment header per section, then the content at that level.
func marker(level compress.Level) string {
	switch level {
	case compress.LevelFull:
		return "FULL"
	case compress.LevelInterface:
		return "INTERFACE"
	default:
		return "REF"
	}
}

// Render produces the annotated text form of a slice. Sections appear in
// slice order, the root first, each headed by its inclusion marker and
// origin location.
func Render(slice *compress.Slice) string {
	var b strings.Builder
	for _, entry := range slice.Entries {
		span := entry.Node.Span
		fmt.Fprintf(&b, "// [%s] %s:%d:%d\n", marker(entry.Level), span.File, span.StartLine, span.StartCol)
		b.WriteString(entry.Content)
		if !strings.HasSuffix(entry.Content, "\n") {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}
